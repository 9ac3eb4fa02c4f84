package derive

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func katSeed() []byte {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func mustParse(t *testing.T, s string) Path {
	t.Helper()
	p, err := Parse(s)
	if err != nil {
		t.Fatalf("parse %q failed: %v", s, err)
	}
	return p
}

func TestDeriveDeterministic(t *testing.T) {
	seed := katSeed()
	for _, s := range []string{
		"ik:v1:ed25519/0/identity/0",
		"ik:v1:x25519/1/encryption/7",
	} {
		p := mustParse(t, s)
		k1, err := Derive(seed, p)
		if err != nil {
			t.Fatalf("derive %s (1) failed: %v", s, err)
		}
		k2, err := Derive(seed, p)
		if err != nil {
			t.Fatalf("derive %s (2) failed: %v", s, err)
		}
		if k1 != k2 {
			t.Fatalf("derive %s is not deterministic", s)
		}
	}
}

func TestDerivePathIndependence(t *testing.T) {
	seed := katSeed()
	paths := []string{
		"ik:v1:ed25519/0/identity/0",
		"ik:v1:ed25519/0/identity/1",
		"ik:v1:ed25519/1/identity/0",
		"ik:v1:ed25519/0/signing/0",
		"ik:v1:x25519/0/encryption/0",
		"ik:v1:x25519/0/encryption/1",
		"ik:v1:x25519/0/backup/0",
	}
	seen := make(map[[32]byte]string)
	for _, s := range paths {
		kp, err := Derive(seed, mustParse(t, s))
		if err != nil {
			t.Fatalf("derive %s failed: %v", s, err)
		}
		if prev, dup := seen[kp.Public]; dup {
			t.Fatalf("paths %s and %s produced the same public key", prev, s)
		}
		seen[kp.Public] = s
	}
}

func TestDeriveClampedScalars(t *testing.T) {
	seed := katSeed()
	for _, s := range []string{
		"ik:v1:ed25519/0/identity/0",
		"ik:v1:ed25519/2/backup/9",
		"ik:v1:x25519/0/encryption/0",
		"ik:v1:x25519/5/authentication/3",
	} {
		kp, err := Derive(seed, mustParse(t, s))
		if err != nil {
			t.Fatalf("derive %s failed: %v", s, err)
		}
		if kp.Secret[0]&7 != 0 {
			t.Fatalf("%s: low 3 bits of byte 0 not cleared", s)
		}
		if kp.Secret[31]&128 != 0 {
			t.Fatalf("%s: bit 7 of byte 31 not cleared", s)
		}
		if kp.Secret[31]&64 == 0 {
			t.Fatalf("%s: bit 6 of byte 31 not set", s)
		}
	}
}

func TestDeriveKnownAnswers(t *testing.T) {
	seed := katSeed()
	vectors := []struct {
		path   string
		secret string
		public string
	}{
		{
			path:   "ik:v1:ed25519/0/identity/0",
			secret: "e0e8024b49b2cd11be18688fd72e4840482391277ebb43adcef6062f94a8f868",
			public: "b0fa401a7c5a63ad4a890178ce828ed73e46f22274ecb1b8fb847a531907de42",
		},
		{
			path:   "ik:v1:x25519/0/encryption/0",
			secret: "a007a089b47fdfd6ffe1c18b2f00b4d46a2484b41b375ab19fdf80392d99a648",
			public: "b59070aebe585fcd70d0faa4cb7e07f52ca5a33850cc979428e78885a377ee5b",
		},
	}
	for _, v := range vectors {
		kp, err := Derive(seed, mustParse(t, v.path))
		if err != nil {
			t.Fatalf("derive %s failed: %v", v.path, err)
		}
		wantSecret, _ := hex.DecodeString(v.secret)
		wantPublic, _ := hex.DecodeString(v.public)
		if !bytes.Equal(kp.Secret[:], wantSecret) {
			t.Fatalf("%s secret mismatch: got %x want %s", v.path, kp.Secret, v.secret)
		}
		if !bytes.Equal(kp.Public[:], wantPublic) {
			t.Fatalf("%s public mismatch: got %x want %s", v.path, kp.Public, v.public)
		}
	}
}

func TestDeriveSeedValidation(t *testing.T) {
	edPath := mustParse(t, "ik:v1:ed25519/0/identity/0")
	xPath := mustParse(t, "ik:v1:x25519/0/encryption/0")

	if _, err := Derive(make([]byte, 16), edPath); !errors.Is(err, ErrInvalidSeed) {
		t.Fatalf("ed25519 16-byte seed: want ErrInvalidSeed, got %v", err)
	}
	if _, err := Derive(nil, edPath); !errors.Is(err, ErrInvalidSeed) {
		t.Fatalf("ed25519 nil seed: want ErrInvalidSeed, got %v", err)
	}
	if _, err := Derive(nil, xPath); !errors.Is(err, ErrInvalidSeed) {
		t.Fatalf("x25519 empty seed: want ErrInvalidSeed, got %v", err)
	}

	// 64-byte seeds are valid on both branches.
	if _, err := Derive(make([]byte, 64), edPath); err != nil {
		t.Fatalf("ed25519 64-byte seed failed: %v", err)
	}
	if _, err := Derive(make([]byte, 64), xPath); err != nil {
		t.Fatalf("x25519 64-byte seed failed: %v", err)
	}
}

func TestDeriveBranchesAreDomainSeparated(t *testing.T) {
	// Same account/role/index on both curves must not produce related output.
	seed := katSeed()
	ed, err := Derive(seed, Path{Curve: CurveEd25519, Account: 0, Role: "encryption", Index: 0})
	if err != nil {
		t.Fatalf("ed25519 derive failed: %v", err)
	}
	x, err := Derive(seed, Path{Curve: CurveX25519, Account: 0, Role: "encryption", Index: 0})
	if err != nil {
		t.Fatalf("x25519 derive failed: %v", err)
	}
	if ed.Secret == x.Secret || ed.Public == x.Public {
		t.Fatal("ed25519 and x25519 branches produced related keys")
	}
}
