package securestore

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	plaintext := []byte("root seed bytes go here")
	data, err := Seal("seed", "correct horse", plaintext)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	got, err := Open("seed", "correct horse", data)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatal("round trip mismatch")
	}
}

func TestOpenRejectsWrongPassphrase(t *testing.T) {
	data, err := Seal("seed", "right", []byte("payload"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if _, err := Open("seed", "wrong", data); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("want ErrAuthFailed, got %v", err)
	}
}

func TestOpenRejectsWrongPurpose(t *testing.T) {
	data, err := Seal("seed", "pass", []byte("payload"))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if _, err := Open("registry", "pass", data); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid for purpose mismatch, got %v", err)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	if _, err := Open("seed", "pass", []byte("not an envelope")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}
