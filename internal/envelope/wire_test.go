package envelope

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestWireRoundTrip(t *testing.T) {
	codec := NewCodec()
	a := newTestKey(t, "x1-alpha")
	b := newTestKey(t, "x1-bravo")
	plaintext := []byte("wire layout survives both directions")

	env, err := codec.Seal(plaintext, recipientsOf(a, b))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	decoded, err := Unmarshal(raw)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(env, decoded) {
		t.Fatal("decoded envelope differs from original")
	}

	got, err := codec.Open(decoded, resolverFor(b))
	if err != nil {
		t.Fatalf("open after wire round trip failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatal("wrong plaintext after wire round trip")
	}
}

func TestUnmarshalRejectsTruncation(t *testing.T) {
	codec := NewCodec()
	k := newTestKey(t, "x1-alpha")
	env, err := codec.Seal([]byte("body"), recipientsOf(k))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	for _, cut := range []int{1, len(raw) / 2, len(raw) - 1} {
		if _, err := Unmarshal(raw[:cut]); !errors.Is(err, ErrInvalidWire) {
			t.Fatalf("truncation at %d: want ErrInvalidWire, got %v", cut, err)
		}
	}
}

func TestUnmarshalRejectsTrailingBytes(t *testing.T) {
	codec := NewCodec()
	k := newTestKey(t, "x1-alpha")
	env, err := codec.Seal([]byte("body"), recipientsOf(k))
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	raw, err := env.Marshal()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if _, err := Unmarshal(append(raw, 0x00)); !errors.Is(err, ErrInvalidWire) {
		t.Fatalf("want ErrInvalidWire for trailing byte, got %v", err)
	}
}

func TestUnmarshalEmptyInput(t *testing.T) {
	if _, err := Unmarshal(nil); !errors.Is(err, ErrInvalidWire) {
		t.Fatalf("want ErrInvalidWire, got %v", err)
	}
}
