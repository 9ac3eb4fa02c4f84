// Package fingerprint encodes SHA-256 public-key digests for display and
// lookup. The short form is a tagged 10-byte prefix and is never a canonical
// identifier: anything resolved through it must re-verify the full digest.
package fingerprint

import (
	"crypto/sha256"
	"strings"

	"github.com/mr-tron/base58/base58"

	"identikit/go-core/internal/derive"
)

const (
	TagEd25519 = "ed1"
	TagX25519  = "x1"

	shortPrefixLen = 10
)

// Of digests a public key.
func Of(public []byte) [32]byte {
	return sha256.Sum256(public)
}

// Full encodes all 32 digest bytes.
func Full(fp [32]byte) string {
	return base58.Encode(fp[:])
}

// Short encodes the first 10 digest bytes behind a curve tag.
func Short(fp [32]byte, tag string) string {
	return tag + "-" + base58.Encode(fp[:shortPrefixLen])
}

// TagFor maps a curve to its short-form tag.
func TagFor(c derive.Curve) string {
	if c == derive.CurveX25519 {
		return TagX25519
	}
	return TagEd25519
}

// IsShort reports whether a reference string carries a short-form tag.
func IsShort(ref string) bool {
	return strings.HasPrefix(ref, TagEd25519+"-") || strings.HasPrefix(ref, TagX25519+"-")
}
