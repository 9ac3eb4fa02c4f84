// Package seed supplies root secrets to the derivation layer. Derivation
// itself never persists a seed; every Source hands out a fresh copy per call.
package seed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

var (
	ErrSeedUnavailable  = errors.New("seed is not available")
	ErrInvalidMnemonic  = errors.New("invalid mnemonic")
	ErrMnemonicRequired = errors.New("mnemonic is required")
)

// Source is the collaborator contract consumed by the registry: it either
// yields the root seed bytes or reports that the store is still locked.
type Source interface {
	Seed() ([]byte, error)
}

// Static holds seed bytes in memory. Test and bootstrap helper.
type Static struct {
	bytes []byte
}

func NewStatic(b []byte) *Static {
	return &Static{bytes: append([]byte(nil), b...)}
}

func (s *Static) Seed() ([]byte, error) {
	if len(s.bytes) == 0 {
		return nil, ErrSeedUnavailable
	}
	return append([]byte(nil), s.bytes...), nil
}

// Mnemonic derives its 64-byte seed from a BIP-39 sentence once at
// construction and keeps only the seed.
type Mnemonic struct {
	seed []byte
}

// FromMnemonic validates the sentence and expands it with the standard BIP-39
// PBKDF2 step. The passphrase is the optional "25th word", not the store
// passphrase.
func FromMnemonic(mnemonic, passphrase string) (*Mnemonic, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, ErrMnemonicRequired
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	return &Mnemonic{seed: bip39.NewSeed(mnemonic, passphrase)}, nil
}

func (m *Mnemonic) Seed() ([]byte, error) {
	if len(m.seed) == 0 {
		return nil, ErrSeedUnavailable
	}
	return append([]byte(nil), m.seed...), nil
}

// NewMnemonic generates a fresh 24-word sentence, used by the all-keys
// rotation flow when a seed is suspected compromised.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("mnemonic generation: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether a sentence passes BIP-39 checks.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(mnemonic))
}
