package derive

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	ed25519MasterHMACKey = "ed25519 seed"
	hardenedOffset       = uint32(1) << 31
)

// deriveEd25519 runs the hardened hierarchical chain: master (key, chain
// code) from the seed, then one HMAC-SHA512 step per path segment. Every step
// is hardened; there is no public-key derivation path from parent to child.
func deriveEd25519(seed []byte, p Path) (KeyPair, error) {
	if len(seed) != 32 && len(seed) != 64 {
		return KeyPair{}, fmt.Errorf("%w: ed25519 seed must be 32 or 64 bytes, got %d", ErrInvalidSeed, len(seed))
	}
	roleID, ok := RoleID(p.Role)
	if !ok {
		return KeyPair{}, fmt.Errorf("%w: unknown role %q", ErrInvalidPath, p.Role)
	}

	key, chain := splitHMAC(hmacSHA512([]byte(ed25519MasterHMACKey), seed))
	for _, segment := range []uint32{p.Account, roleID, p.Index} {
		msg := make([]byte, 0, 1+32+4)
		msg = append(msg, 0x00)
		msg = append(msg, key...)
		msg = binary.BigEndian.AppendUint32(msg, hardenedOffset+segment)
		zeroBytes(key)
		key, chain = splitHMAC(hmacSHA512(chain, msg))
		zeroBytes(msg)
	}

	scalar, err := edwards25519.NewScalar().SetBytesWithClamping(key)
	if err != nil {
		return KeyPair{}, fmt.Errorf("ed25519 scalar for %s: %w", p, err)
	}
	var pub [32]byte
	copy(pub[:], new(edwards25519.Point).ScalarBaseMult(scalar).Bytes())

	secret := clampScalar(key)
	zeroBytes(key)
	zeroBytes(chain)
	return KeyPair{Secret: secret, Public: pub}, nil
}

func hmacSHA512(key, msg []byte) []byte {
	mac := hmac.New(sha512.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

func splitHMAC(sum []byte) (key, chain []byte) {
	return sum[:32], sum[32:]
}
