package derive

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Fixed per-curve extract salt. The expand info is the full canonical path
// string, so every distinct path gets a distinct expansion context.
var x25519Salt = sha256.Sum256([]byte("ik:x25519:root"))

// deriveX25519 is deliberately flat: one HKDF-SHA512 extract-and-expand per
// key, no chain code propagation. Delegation is not needed when every path
// derives independently from the one master seed.
func deriveX25519(seed []byte, p Path) (KeyPair, error) {
	if len(seed) == 0 {
		return KeyPair{}, fmt.Errorf("%w: x25519 seed is empty", ErrInvalidSeed)
	}

	okm := make([]byte, 32)
	reader := hkdf.New(sha512.New, seed, x25519Salt[:], []byte(p.String()))
	if _, err := io.ReadFull(reader, okm); err != nil {
		return KeyPair{}, fmt.Errorf("x25519 hkdf for %s: %w", p, err)
	}

	secret := clampScalar(okm)
	zeroBytes(okm)

	pubBytes, err := curve25519.X25519(secret[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("x25519 basepoint multiply for %s: %w", p, err)
	}
	var pub [32]byte
	copy(pub[:], pubBytes)
	return KeyPair{Secret: secret, Public: pub}, nil
}
