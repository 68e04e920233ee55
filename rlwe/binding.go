package rlwe

import (
	"fmt"

	"github.com/tuneinsight/rnsct/utils"
)

var (
	// ErrInvalidParameterSet is returned when a fingerprint does not identify
	// a parameter set of the registry it is resolved against.
	ErrInvalidParameterSet = fmt.Errorf("%w: fingerprint is not valid for the parameter registry", utils.ErrInvalidArgument)
	// ErrParametersNotReady is returned when the parameter registry reports
	// that its parameters are not set correctly.
	ErrParametersNotReady = fmt.Errorf("%w: parameters are not set correctly", utils.ErrInvalidArgument)
)

// Shape is the part of a parameter set that determines the layout of a
// ciphertext: its ring degree and its ordered RNS moduli.
type Shape struct {
	RingDegree   int
	ModulusCount int
	Moduli       []uint64
}

// ParameterRegistry maps fingerprints to parameter sets.
// [Context] is the registry of this package.
type ParameterRegistry interface {
	// ParametersSet returns true if the registry holds valid parameters.
	ParametersSet() bool
	// ShapeOf returns the shape of the parameter set identified by fp, and
	// false if the registry has no such parameter set.
	ShapeOf(fp Fingerprint) (Shape, bool)
}

// Resolve looks up fp in reg and returns the shape of the parameter set it
// identifies. It does not modify reg. The returned moduli are a copy.
func Resolve(reg ParameterRegistry, fp Fingerprint) (shape Shape, err error) {

	if reg == nil {
		return Shape{}, fmt.Errorf("rlwe.Resolve: %w: nil parameter registry", utils.ErrInvalidArgument)
	}

	if !reg.ParametersSet() {
		return Shape{}, fmt.Errorf("rlwe.Resolve: %w", ErrParametersNotReady)
	}

	var ok bool
	if shape, ok = reg.ShapeOf(fp); !ok {
		return Shape{}, fmt.Errorf("rlwe.Resolve: %w: %s", ErrInvalidParameterSet, fp)
	}

	if shape.RingDegree <= 0 || shape.ModulusCount <= 0 || len(shape.Moduli) != shape.ModulusCount {
		return Shape{}, fmt.Errorf("rlwe.Resolve: %w: %s has ring degree %d and %d moduli for a modulus count of %d",
			ErrInvalidParameterSet, fp, shape.RingDegree, len(shape.Moduli), shape.ModulusCount)
	}

	shape.Moduli = append([]uint64(nil), shape.Moduli...)

	return
}
