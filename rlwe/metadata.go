package rlwe

// MetaData is a struct storing the descriptive metadata of a ciphertext.
// It is carried along the coefficients but never interpreted by this package.
type MetaData struct {
	// Scale is the scaling factor of the plaintext encoded in the ciphertext.
	Scale float64
	// IsNTT is true if the coefficients are in the NTT domain.
	IsNTT bool
}

// Equal returns true if two MetaData structs are identical.
func (m *MetaData) Equal(other MetaData) (res bool) {
	return m.Scale == other.Scale && m.IsNTT == other.IsNTT
}
