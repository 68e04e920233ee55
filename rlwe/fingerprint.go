package rlwe

import (
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"github.com/tuneinsight/rnsct/utils"
)

// FingerprintSize is the size in bytes of a Fingerprint.
const FingerprintSize = 32

// Fingerprint is an opaque identifier binding a ciphertext to one specific
// parameter set. Two ciphertexts sharing a fingerprint have compatible shapes.
// The zero Fingerprint identifies no parameter set.
type Fingerprint [FingerprintSize]byte

// IsZero returns true if fp is the zero Fingerprint.
func (fp Fingerprint) IsZero() bool {
	return fp == Fingerprint{}
}

func (fp Fingerprint) String() string {
	return hex.EncodeToString(fp[:])
}

// FingerprintHash is the hash function a Context derives fingerprints with.
type FingerprintHash int

const (
	// HashBLAKE2b uses BLAKE2b-256.
	HashBLAKE2b = FingerprintHash(iota)
	// HashSHA3 uses SHA3-256.
	HashSHA3
	// HashBLAKE3 uses BLAKE3 with a 256-bit output.
	HashBLAKE3
)

// ParseFingerprintHash returns the FingerprintHash named s, as returned by String.
func ParseFingerprintHash(s string) (FingerprintHash, error) {
	for _, h := range []FingerprintHash{HashBLAKE2b, HashSHA3, HashBLAKE3} {
		if h.String() == s {
			return h, nil
		}
	}
	return 0, fmt.Errorf("rlwe.ParseFingerprintHash: %w: unknown fingerprint hash %q", utils.ErrInvalidArgument, s)
}

func (h FingerprintHash) String() string {
	switch h {
	case HashBLAKE2b:
		return "blake2b"
	case HashSHA3:
		return "sha3"
	case HashBLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("FingerprintHash(%d)", int(h))
	}
}

func (h FingerprintHash) new() (hash.Hash, error) {
	switch h {
	case HashBLAKE2b:
		return blake2b.New256(nil)
	case HashSHA3:
		return sha3.New256(), nil
	case HashBLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown fingerprint hash %d", utils.ErrInvalidArgument, int(h))
	}
}

// Sum returns the Fingerprint of data.
func (h FingerprintHash) Sum(data []byte) (fp Fingerprint, err error) {

	var hasher hash.Hash
	if hasher, err = h.new(); err != nil {
		return
	}

	if _, err = hasher.Write(data); err != nil {
		return
	}

	copy(fp[:], hasher.Sum(nil))

	return
}
