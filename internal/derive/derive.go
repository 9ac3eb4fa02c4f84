// Package derive turns one root seed into independent per-path keypairs.
//
// The signing branch (ed25519) walks a hardened HMAC-SHA512 chain; the
// key-agreement branch (x25519) is a single HKDF-SHA512 call whose info label
// is the full canonical path string. The two constructions share nothing but
// the seed, so keys from one branch cannot be converted into keys for the
// other.
package derive

import (
	"errors"
	"fmt"
)

var ErrInvalidSeed = errors.New("invalid seed")

// KeyPair is a pure function of (seed, path). Secret is already clamped for
// its curve's scalar-multiplication rules.
type KeyPair struct {
	Secret [32]byte
	Public [32]byte
}

// Derive computes the keypair for a path, dispatching on its curve.
func Derive(seed []byte, p Path) (KeyPair, error) {
	switch p.Curve {
	case CurveEd25519:
		return deriveEd25519(seed, p)
	case CurveX25519:
		return deriveX25519(seed, p)
	default:
		return KeyPair{}, fmt.Errorf("%w: unknown curve %q", ErrInvalidPath, p.Curve)
	}
}

// clampScalar applies the shared curve25519/ed25519 bit pattern: clear the
// low 3 bits of byte 0, clear bit 7 and set bit 6 of byte 31.
func clampScalar(raw []byte) [32]byte {
	var out [32]byte
	copy(out[:], raw)
	out[0] &= 248
	out[31] &= 127
	out[31] |= 64
	return out
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
