package rlwe

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/tuneinsight/rnsct/ring"
	"github.com/tuneinsight/rnsct/utils"
)

func testParameters(tc *testContext, t *testing.T) {

	params := tc.params

	t.Run(testString(params, "Parameters/Moduli"), func(t *testing.T) {
		require.NoError(t, CheckModuli(params.Q()))
		for _, q := range params.Q() {
			require.True(t, ring.IsPrime(q))
		}
		require.Equal(t, 1<<params.LogN(), params.N())
		require.Equal(t, params.QCount()-1, params.MaxLevel())
	})

	t.Run(testString(params, "Parameters/MarshalJSON"), func(t *testing.T) {
		data, err := json.Marshal(params)
		require.NoError(t, err)

		var paramsRec Parameters
		require.NoError(t, json.Unmarshal(data, &paramsRec))
		require.True(t, params.Equal(paramsRec))

		data, err = params.MarshalBinary()
		require.NoError(t, err)
		paramsRec = Parameters{}
		require.NoError(t, paramsRec.UnmarshalBinary(data))
		require.True(t, params.Equal(paramsRec))
	})

	t.Run(testString(params, "Parameters/ParametersLiteral"), func(t *testing.T) {
		lit := params.ParametersLiteral()
		paramsRec, err := NewParametersFromLiteral(lit)
		require.NoError(t, err)
		require.True(t, params.Equal(paramsRec))

		// The literal holds a copy of the moduli.
		lit.Q[0] = 0
		require.NotEqual(t, uint64(0), params.Q()[0])
	})

	t.Run(testString(params, "Parameters/AtLevel"), func(t *testing.T) {
		for level := 0; level <= params.MaxLevel(); level++ {
			pl := params.AtLevel(level)
			require.Equal(t, level+1, pl.QCount())
			require.True(t, cmp.Equal(params.Q()[:level+1], pl.Q()))
		}
		require.Panics(t, func() { params.AtLevel(params.MaxLevel() + 1) })
	})
}

func TestParametersInvalid(t *testing.T) {

	for name, lit := range map[string]ParametersLiteral{
		"NoModuli":      {LogN: 4},
		"QAndLogQ":      {LogN: 4, Q: qi[:1], LogQ: []int{30}},
		"LogNTooSmall":  {LogN: 0, Q: qi[:1]},
		"LogNTooLarge":  {LogN: MaxLogN + 1, Q: qi[:1]},
		"NotPrime":      {LogN: 4, Q: []uint64{qi[0], qi[1] * 3}},
		"Duplicate":     {LogN: 4, Q: []uint64{qi[0], qi[1], qi[0]}},
		"TooLarge":      {LogN: 4, Q: []uint64{0x3ffffffffffffff5}},
		"TooManyModuli": {LogN: 4, LogQ: make([]int, MaxModuliCount+1)},
		"LogQTooLarge":  {LogN: 4, LogQ: []int{MaxModuliSize + 1}},
		"EmptyQ":        {LogN: 4, Q: []uint64{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewParametersFromLiteral(lit)
			require.ErrorIs(t, err, utils.ErrInvalidArgument)

			ctx := NewContextFromLiteral(lit)
			require.False(t, ctx.ParametersSet())
			require.ErrorIs(t, ctx.Err(), ErrParametersNotReady)
			require.True(t, ctx.FirstFingerprint().IsZero())
			require.Zero(t, ctx.Levels())
		})
	}
}

func testContextLevels(tc *testContext, t *testing.T) {

	params, ctx := tc.params, tc.ctx

	t.Run(testString(params, "Context/Levels"), func(t *testing.T) {

		require.True(t, ctx.ParametersSet())
		require.Equal(t, params.QCount(), ctx.Levels())

		seen := map[Fingerprint]bool{}

		for level := 0; level < ctx.Levels(); level++ {
			fp, ok := ctx.FingerprintAtLevel(level)
			require.True(t, ok)
			require.False(t, fp.IsZero())
			require.False(t, seen[fp], "fingerprints of the levels must be distinct")
			seen[fp] = true

			lvl, ok := ctx.LevelOf(fp)
			require.True(t, ok)
			require.Equal(t, level, lvl)

			shape, ok := ctx.ShapeOf(fp)
			require.True(t, ok)
			require.Equal(t, params.N(), shape.RingDegree)
			require.Equal(t, level+1, shape.ModulusCount)
			require.Equal(t, params.Q()[:level+1], shape.Moduli)

			pl, ok := ctx.ParametersByFingerprint(fp)
			require.True(t, ok)
			require.True(t, pl.Equal(params.AtLevel(level)))
		}

		first, _ := ctx.FingerprintAtLevel(params.MaxLevel())
		last, _ := ctx.FingerprintAtLevel(0)
		require.Equal(t, first, ctx.FirstFingerprint())
		require.Equal(t, last, ctx.LastFingerprint())

		_, ok := ctx.FingerprintAtLevel(ctx.Levels())
		require.False(t, ok)
		_, ok = ctx.ShapeOf(Fingerprint{})
		require.False(t, ok)
	})

	t.Run(testString(params, "Context/Deterministic"), func(t *testing.T) {
		require.Equal(t, ctx.FirstFingerprint(), NewContext(params).FirstFingerprint())
	})

	t.Run(testString(params, "Context/FingerprintHash"), func(t *testing.T) {

		fps := map[Fingerprint]FingerprintHash{}

		for _, h := range []FingerprintHash{HashBLAKE2b, HashSHA3, HashBLAKE3} {
			c := NewContext(params, WithFingerprintHash(h))
			require.NoError(t, c.Err())
			require.Equal(t, h, c.Hash())

			_, dup := fps[c.FirstFingerprint()]
			require.False(t, dup)
			fps[c.FirstFingerprint()] = h

			parsed, err := ParseFingerprintHash(h.String())
			require.NoError(t, err)
			require.Equal(t, h, parsed)
		}

		require.Equal(t, ctx.FirstFingerprint(), NewContext(params, WithFingerprintHash(HashBLAKE2b)).FirstFingerprint())

		c := NewContext(params, WithFingerprintHash(FingerprintHash(42)))
		require.False(t, c.ParametersSet())
		require.ErrorIs(t, c.Err(), utils.ErrInvalidArgument)

		_, err := ParseFingerprintHash("md5")
		require.ErrorIs(t, err, utils.ErrInvalidArgument)
	})
}

func TestContextNil(t *testing.T) {
	var ctx *Context
	require.False(t, ctx.ParametersSet())
	require.ErrorIs(t, ctx.Err(), ErrParametersNotReady)
	require.Zero(t, ctx.Levels())
	require.True(t, ctx.LastFingerprint().IsZero())
	_, ok := ctx.ShapeOf(Fingerprint{1})
	require.False(t, ok)

	_, err := Resolve(ctx, Fingerprint{1})
	require.ErrorIs(t, err, ErrParametersNotReady)

	require.ErrorIs(t, NewContext(Parameters{}).Err(), ErrParametersNotReady)
}

func testResolve(tc *testContext, t *testing.T) {

	params, ctx := tc.params, tc.ctx

	t.Run(testString(params, "Resolve"), func(t *testing.T) {

		shape, err := Resolve(ctx, ctx.FirstFingerprint())
		require.NoError(t, err)
		require.Equal(t, Shape{RingDegree: params.N(), ModulusCount: params.QCount(), Moduli: params.Q()}, shape)

		// The moduli are a copy.
		shape.Moduli[0] = 0
		shape, err = Resolve(ctx, ctx.FirstFingerprint())
		require.NoError(t, err)
		require.Equal(t, params.Q()[0], shape.Moduli[0])
	})

	t.Run(testString(params, "Resolve/Errors"), func(t *testing.T) {

		_, err := Resolve(nil, ctx.FirstFingerprint())
		require.ErrorIs(t, err, utils.ErrInvalidArgument)

		_, err = Resolve(ctx, Fingerprint{0xff})
		require.ErrorIs(t, err, ErrInvalidParameterSet)
		require.ErrorIs(t, err, utils.ErrInvalidArgument)

		fp := ctx.FirstFingerprint()

		_, err = Resolve(&fakeRegistry{notReady: true, shapes: map[Fingerprint]Shape{fp: {RingDegree: 8, ModulusCount: 1, Moduli: []uint64{17}}}}, fp)
		require.ErrorIs(t, err, ErrParametersNotReady)
		require.ErrorIs(t, err, utils.ErrInvalidArgument)

		_, err = Resolve(&fakeRegistry{shapes: map[Fingerprint]Shape{fp: {RingDegree: 8, ModulusCount: 2, Moduli: []uint64{17}}}}, fp)
		require.ErrorIs(t, err, ErrInvalidParameterSet)
	})
}
