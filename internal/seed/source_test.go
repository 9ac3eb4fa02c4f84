package seed

import (
	"bytes"
	"errors"
	"testing"
)

const testMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"

func TestStaticCopiesBytes(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	src := NewStatic(raw)
	raw[0] = 99

	got, err := src.Seed()
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if got[0] != 1 {
		t.Fatal("static source shares caller's backing array")
	}
	got[1] = 99
	again, _ := src.Seed()
	if again[1] != 2 {
		t.Fatal("static source handed out its internal buffer")
	}
}

func TestStaticEmptyIsUnavailable(t *testing.T) {
	if _, err := NewStatic(nil).Seed(); !errors.Is(err, ErrSeedUnavailable) {
		t.Fatalf("want ErrSeedUnavailable, got %v", err)
	}
}

func TestFromMnemonicDeterministic(t *testing.T) {
	a, err := FromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("from mnemonic failed: %v", err)
	}
	b, err := FromMnemonic("  "+testMnemonic+"  ", "")
	if err != nil {
		t.Fatalf("from mnemonic (padded) failed: %v", err)
	}
	sa, _ := a.Seed()
	sb, _ := b.Seed()
	if len(sa) != 64 {
		t.Fatalf("want 64-byte seed, got %d", len(sa))
	}
	if !bytes.Equal(sa, sb) {
		t.Fatal("same mnemonic produced different seeds")
	}

	withWord, err := FromMnemonic(testMnemonic, "extra")
	if err != nil {
		t.Fatalf("from mnemonic with passphrase failed: %v", err)
	}
	sc, _ := withWord.Seed()
	if bytes.Equal(sa, sc) {
		t.Fatal("passphrase did not change the seed")
	}
}

func TestFromMnemonicRejectsBadInput(t *testing.T) {
	if _, err := FromMnemonic("", ""); !errors.Is(err, ErrMnemonicRequired) {
		t.Fatalf("want ErrMnemonicRequired, got %v", err)
	}
	if _, err := FromMnemonic("not a valid sentence at all", ""); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("want ErrInvalidMnemonic, got %v", err)
	}
}

func TestNewMnemonicIsValid(t *testing.T) {
	m, err := NewMnemonic()
	if err != nil {
		t.Fatalf("new mnemonic failed: %v", err)
	}
	if !ValidateMnemonic(m) {
		t.Fatalf("generated mnemonic does not validate: %q", m)
	}
}
