package rlwe

var (
	logN = 10
	qi   = []uint64{0x200000440001, 0x7fff80001, 0x800280001, 0x7ffd80001, 0x7ffc80001}

	testParamsLiteral = []ParametersLiteral{
		{
			LogN: 3,
			Q:    qi[:3],
		},
		{
			LogN:           logN,
			Q:              qi,
			DefaultScale:   1 << 40,
			DefaultNTTFlag: true,
		},
		{
			LogN: 5,
			LogQ: []int{55, 40, 40},
		},
	}
)
