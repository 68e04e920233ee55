package rlwe

import (
	"fmt"
)

// Context is a [ParameterRegistry] holding a parameter set together with
// its modulus-switching chain: the parameters at level L use the first L+1
// moduli, and each level is identified by its own [Fingerprint].
// A Context is immutable after creation and is safe for concurrent use.
type Context struct {
	params Parameters
	hash   FingerprintHash
	err    error

	// levels[L] is the fingerprint of params.AtLevel(L).
	levels        []Fingerprint
	byFingerprint map[Fingerprint]int
}

// ContextOption configures a Context at creation.
type ContextOption func(*Context)

// WithFingerprintHash sets the hash function fingerprints are derived with.
// The default is [HashBLAKE2b].
func WithFingerprintHash(h FingerprintHash) ContextOption {
	return func(c *Context) {
		c.hash = h
	}
}

// NewContext returns a new Context for params.
// If the context cannot be built, the returned Context reports
// ParametersSet() == false and Err() returns the reason.
func NewContext(params Parameters, opts ...ContextOption) (c *Context) {

	c = &Context{params: params, hash: HashBLAKE2b}

	for _, opt := range opts {
		opt(c)
	}

	if params.QCount() == 0 {
		c.err = fmt.Errorf("rlwe.NewContext: %w: empty parameters", ErrParametersNotReady)
		return
	}

	c.levels = make([]Fingerprint, params.QCount())
	c.byFingerprint = make(map[Fingerprint]int, params.QCount())

	for level := range c.levels {

		fp, err := c.hash.Sum(params.AtLevel(level).canonical())
		if err != nil {
			c.err = fmt.Errorf("rlwe.NewContext: %w", err)
			c.levels, c.byFingerprint = nil, nil
			return
		}

		c.levels[level] = fp
		c.byFingerprint[fp] = level
	}

	return
}

// NewContextFromLiteral returns a new Context for the parameters described by lit.
// If lit is invalid, the returned Context reports ParametersSet() == false and
// Err() returns the reason.
func NewContextFromLiteral(lit ParametersLiteral, opts ...ContextOption) *Context {
	params, err := NewParametersFromLiteral(lit)
	if err != nil {
		c := &Context{hash: HashBLAKE2b, err: fmt.Errorf("rlwe.NewContextFromLiteral: %w: %w", ErrParametersNotReady, err)}
		for _, opt := range opts {
			opt(c)
		}
		return c
	}
	return NewContext(params, opts...)
}

// ParametersSet returns true if the context holds valid parameters.
// It is safe to call on a nil Context.
func (c *Context) ParametersSet() bool {
	return c != nil && c.err == nil
}

// Err returns the reason why the parameters of the context are not set, or nil.
func (c *Context) Err() error {
	if c == nil {
		return fmt.Errorf("rlwe.Context: %w: nil context", ErrParametersNotReady)
	}
	return c.err
}

// Parameters returns the parameters of the context at the highest level.
func (c *Context) Parameters() Parameters {
	if c == nil {
		return Parameters{}
	}
	return c.params
}

// Hash returns the hash function the fingerprints of the context are derived with.
func (c *Context) Hash() FingerprintHash {
	return c.hash
}

// Levels returns the number of levels of the modulus-switching chain.
func (c *Context) Levels() int {
	if !c.ParametersSet() {
		return 0
	}
	return len(c.levels)
}

// FirstFingerprint returns the fingerprint of the parameters with all the moduli.
// It returns the zero Fingerprint if the parameters are not set.
func (c *Context) FirstFingerprint() Fingerprint {
	if !c.ParametersSet() {
		return Fingerprint{}
	}
	return c.levels[len(c.levels)-1]
}

// LastFingerprint returns the fingerprint of the parameters with a single modulus.
// It returns the zero Fingerprint if the parameters are not set.
func (c *Context) LastFingerprint() Fingerprint {
	if !c.ParametersSet() {
		return Fingerprint{}
	}
	return c.levels[0]
}

// FingerprintAtLevel returns the fingerprint of the parameters at the given level,
// and false if the level does not exist.
func (c *Context) FingerprintAtLevel(level int) (Fingerprint, bool) {
	if !c.ParametersSet() || level < 0 || level >= len(c.levels) {
		return Fingerprint{}, false
	}
	return c.levels[level], true
}

// ParametersByFingerprint returns the parameters identified by fp,
// and false if fp is not a fingerprint of the context.
func (c *Context) ParametersByFingerprint(fp Fingerprint) (Parameters, bool) {
	if !c.ParametersSet() {
		return Parameters{}, false
	}
	level, ok := c.byFingerprint[fp]
	if !ok {
		return Parameters{}, false
	}
	return c.params.AtLevel(level), true
}

// ShapeOf implements [ParameterRegistry].
func (c *Context) ShapeOf(fp Fingerprint) (Shape, bool) {
	params, ok := c.ParametersByFingerprint(fp)
	if !ok {
		return Shape{}, false
	}
	return Shape{RingDegree: params.N(), ModulusCount: params.QCount(), Moduli: params.Q()}, true
}

// LevelOf returns the level of the parameters identified by fp,
// and false if fp is not a fingerprint of the context.
func (c *Context) LevelOf(fp Fingerprint) (int, bool) {
	if !c.ParametersSet() {
		return 0, false
	}
	level, ok := c.byFingerprint[fp]
	return level, ok
}
