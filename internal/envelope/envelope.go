// Package envelope seals one plaintext body for many recipients: the body is
// encrypted once under a fresh content-encryption key (CEK), and the CEK is
// wrapped per recipient with an ephemeral X25519 agreement. Cost is one body
// pass plus a 32-byte wrap per recipient.
//
// Nonce reuse is the single catastrophic failure mode of this construction;
// every nonce and every ephemeral key comes from crypto/rand and nothing here
// accepts caller-supplied nonces.
package envelope

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
)

// Alg identifies the only supported suite. New curves get a new identifier,
// never a reinterpretation of this one.
const Alg = "x25519+xchacha20poly1305"

const (
	NonceSize = chacha20poly1305.NonceSizeX
	cekSize   = chacha20poly1305.KeySize
)

var (
	ErrNoRecipients             = errors.New("envelope needs at least one recipient")
	ErrInvalidRecipientKey      = errors.New("invalid recipient public key")
	ErrUnwrapFailed             = errors.New("no recipient entry could unwrap the content key")
	ErrBodyAuthenticationFailed = errors.New("body authentication failed")
	ErrNoMatchingRecipient      = errors.New("no recipient entry matches an available key")
	ErrUnknownAlg               = errors.New("unknown envelope algorithm")
)

// Recipient is an encryption target: an X25519 public key plus the short
// fingerprint recorded in the entry so the holder can find it again.
type Recipient struct {
	PublicKey [32]byte
	To        string
}

// RecipientEntry wraps the CEK for one recipient.
type RecipientEntry struct {
	EphemeralPublic [32]byte
	Nonce           [NonceSize]byte
	WrappedCEK      []byte
	To              string
}

// Envelope is the sealed form handed to the wire/armor layer.
type Envelope struct {
	Alg            string
	BodyNonce      [NonceSize]byte
	BodyCiphertext []byte
	Recipients     []RecipientEntry
}

// Codec seals and opens envelopes. Safe for concurrent use; the random
// source is its only shared state.
type Codec struct {
	rand io.Reader

	bodySeals      atomic.Uint64
	cekWraps       atomic.Uint64
	cekUnwrapFails atomic.Uint64
}

func NewCodec() *Codec {
	return &Codec{rand: rand.Reader}
}

// Stats reports cumulative operation counts, mirroring the prometheus
// counters.
type Stats struct {
	BodySeals         uint64
	CEKWraps          uint64
	CEKUnwrapFailures uint64
}

func (c *Codec) Stats() Stats {
	return Stats{
		BodySeals:         c.bodySeals.Load(),
		CEKWraps:          c.cekWraps.Load(),
		CEKUnwrapFailures: c.cekUnwrapFails.Load(),
	}
}

// Seal encrypts plaintext once under a fresh CEK and wraps the CEK for every
// recipient with a fresh ephemeral keypair and nonce.
func (c *Codec) Seal(plaintext []byte, recipients []Recipient) (*Envelope, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	cek := make([]byte, cekSize)
	if _, err := io.ReadFull(c.rand, cek); err != nil {
		return nil, err
	}
	defer zeroBytes(cek)

	env := &Envelope{Alg: Alg}
	if _, err := io.ReadFull(c.rand, env.BodyNonce[:]); err != nil {
		return nil, err
	}
	bodyAEAD, err := chacha20poly1305.NewX(cek)
	if err != nil {
		return nil, err
	}
	env.BodyCiphertext = bodyAEAD.Seal(nil, env.BodyNonce[:], plaintext, []byte(Alg))
	c.bodySeals.Add(1)
	bodySealTotal.Inc()

	env.Recipients = make([]RecipientEntry, 0, len(recipients))
	for i, rcpt := range recipients {
		entry, err := c.wrapCEK(cek, rcpt)
		if err != nil {
			return nil, fmt.Errorf("recipient %d (%s): %w", i, rcpt.To, err)
		}
		env.Recipients = append(env.Recipients, entry)
	}
	return env, nil
}

func (c *Codec) wrapCEK(cek []byte, rcpt Recipient) (RecipientEntry, error) {
	ephSecret := make([]byte, 32)
	if _, err := io.ReadFull(c.rand, ephSecret); err != nil {
		return RecipientEntry{}, err
	}
	defer zeroBytes(ephSecret)

	ephPublic, err := curve25519.X25519(ephSecret, curve25519.Basepoint)
	if err != nil {
		return RecipientEntry{}, err
	}
	shared, err := curve25519.X25519(ephSecret, rcpt.PublicKey[:])
	if err != nil {
		return RecipientEntry{}, fmt.Errorf("%w: %v", ErrInvalidRecipientKey, err)
	}
	defer zeroBytes(shared)

	entry := RecipientEntry{To: rcpt.To}
	copy(entry.EphemeralPublic[:], ephPublic)
	if _, err := io.ReadFull(c.rand, entry.Nonce[:]); err != nil {
		return RecipientEntry{}, err
	}
	wrapAEAD, err := chacha20poly1305.NewX(shared)
	if err != nil {
		return RecipientEntry{}, err
	}
	entry.WrappedCEK = wrapAEAD.Seal(nil, entry.Nonce[:], cek, []byte(Alg))
	c.cekWraps.Add(1)
	cekWrapTotal.Inc()
	return entry, nil
}

// Open recovers the plaintext. resolve maps a short fingerprint to an X25519
// secret the caller holds; entries that do not resolve are skipped, and a
// failed unwrap on one entry only moves on to the next. A body MAC mismatch
// after a successful unwrap is fatal: no plaintext is released.
//
// Open wipes every secret the resolver hands it, so the resolver must return
// a fresh copy per call.
func (c *Codec) Open(env *Envelope, resolve func(to string) ([]byte, bool)) ([]byte, error) {
	if env == nil || env.Alg != Alg {
		return nil, ErrUnknownAlg
	}

	matched := false
	for i := range env.Recipients {
		entry := &env.Recipients[i]
		secret, ok := resolve(entry.To)
		if !ok {
			continue
		}
		matched = true

		cek, err := c.unwrapCEK(entry, secret)
		zeroBytes(secret)
		if err != nil {
			// Recoverable: another entry may still unwrap.
			c.cekUnwrapFails.Add(1)
			cekUnwrapFailTotal.Inc()
			continue
		}

		plaintext, err := openBody(env, cek)
		zeroBytes(cek)
		if err != nil {
			return nil, fmt.Errorf("%w (entry %d)", ErrBodyAuthenticationFailed, i)
		}
		return plaintext, nil
	}

	if !matched {
		return nil, ErrNoMatchingRecipient
	}
	return nil, ErrUnwrapFailed
}

func (c *Codec) unwrapCEK(entry *RecipientEntry, secret []byte) ([]byte, error) {
	shared, err := curve25519.X25519(secret, entry.EphemeralPublic[:])
	if err != nil {
		return nil, err
	}
	defer zeroBytes(shared)

	wrapAEAD, err := chacha20poly1305.NewX(shared)
	if err != nil {
		return nil, err
	}
	return wrapAEAD.Open(nil, entry.Nonce[:], entry.WrappedCEK, []byte(Alg))
}

func openBody(env *Envelope, cek []byte) ([]byte, error) {
	bodyAEAD, err := chacha20poly1305.NewX(cek)
	if err != nil {
		return nil, err
	}
	return bodyAEAD.Open(nil, env.BodyNonce[:], env.BodyCiphertext, []byte(Alg))
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
