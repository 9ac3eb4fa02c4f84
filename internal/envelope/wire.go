package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Raw byte layout handed to the armor/transport collaborators:
//
//	[1]  alg length         [n] alg
//	[24] body nonce
//	[4]  body ct length     [n] body ct
//	[2]  recipient count
//	per recipient:
//	  [32] ephemeral public [24] nonce
//	  [2]  wrapped length   [n] wrapped cek
//	  [1]  to length        [n] to
//
// All integers big-endian. This core never produces a textual encoding.

var ErrInvalidWire = errors.New("invalid envelope wire bytes")

const (
	maxWireAlgLen  = 255
	maxWireToLen   = 255
	maxWireWrapLen = 65535
)

// Marshal encodes the envelope into the raw wire layout.
func (e *Envelope) Marshal() ([]byte, error) {
	if len(e.Alg) == 0 || len(e.Alg) > maxWireAlgLen {
		return nil, fmt.Errorf("%w: alg length %d", ErrInvalidWire, len(e.Alg))
	}
	if len(e.Recipients) > 65535 {
		return nil, fmt.Errorf("%w: %d recipients", ErrInvalidWire, len(e.Recipients))
	}

	size := 1 + len(e.Alg) + NonceSize + 4 + len(e.BodyCiphertext) + 2
	for _, r := range e.Recipients {
		size += 32 + NonceSize + 2 + len(r.WrappedCEK) + 1 + len(r.To)
	}
	out := make([]byte, 0, size)

	out = append(out, byte(len(e.Alg)))
	out = append(out, e.Alg...)
	out = append(out, e.BodyNonce[:]...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(e.BodyCiphertext)))
	out = append(out, e.BodyCiphertext...)
	out = binary.BigEndian.AppendUint16(out, uint16(len(e.Recipients)))

	for i, r := range e.Recipients {
		if len(r.WrappedCEK) > maxWireWrapLen || len(r.To) > maxWireToLen {
			return nil, fmt.Errorf("%w: recipient %d field too long", ErrInvalidWire, i)
		}
		out = append(out, r.EphemeralPublic[:]...)
		out = append(out, r.Nonce[:]...)
		out = binary.BigEndian.AppendUint16(out, uint16(len(r.WrappedCEK)))
		out = append(out, r.WrappedCEK...)
		out = append(out, byte(len(r.To)))
		out = append(out, r.To...)
	}
	return out, nil
}

// Unmarshal decodes wire bytes produced by Marshal.
func Unmarshal(data []byte) (*Envelope, error) {
	r := wireReader{buf: data}

	algLen, err := r.byte()
	if err != nil {
		return nil, err
	}
	alg, err := r.take(int(algLen))
	if err != nil {
		return nil, err
	}
	env := &Envelope{Alg: string(alg)}

	nonce, err := r.take(NonceSize)
	if err != nil {
		return nil, err
	}
	copy(env.BodyNonce[:], nonce)

	bodyLen, err := r.uint32()
	if err != nil {
		return nil, err
	}
	body, err := r.take(int(bodyLen))
	if err != nil {
		return nil, err
	}
	env.BodyCiphertext = append([]byte(nil), body...)

	count, err := r.uint16()
	if err != nil {
		return nil, err
	}
	env.Recipients = make([]RecipientEntry, 0, count)
	for i := 0; i < int(count); i++ {
		var entry RecipientEntry
		eph, err := r.take(32)
		if err != nil {
			return nil, err
		}
		copy(entry.EphemeralPublic[:], eph)
		n, err := r.take(NonceSize)
		if err != nil {
			return nil, err
		}
		copy(entry.Nonce[:], n)
		wrapLen, err := r.uint16()
		if err != nil {
			return nil, err
		}
		wrapped, err := r.take(int(wrapLen))
		if err != nil {
			return nil, err
		}
		entry.WrappedCEK = append([]byte(nil), wrapped...)
		toLen, err := r.byte()
		if err != nil {
			return nil, err
		}
		to, err := r.take(int(toLen))
		if err != nil {
			return nil, err
		}
		entry.To = string(to)
		env.Recipients = append(env.Recipients, entry)
	}

	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidWire, len(r.buf))
	}
	return env, nil
}

type wireReader struct {
	buf []byte
}

func (r *wireReader) take(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, fmt.Errorf("%w: truncated (need %d, have %d)", ErrInvalidWire, n, len(r.buf))
	}
	out := r.buf[:n]
	r.buf = r.buf[n:]
	return out, nil
}

func (r *wireReader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *wireReader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *wireReader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
