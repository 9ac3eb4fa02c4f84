package seed

import (
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"identikit/go-core/internal/securestore"
)

const storePurpose = "identikit/seed/v1"

var (
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrInvalidPassphrase  = errors.New("invalid passphrase")
	ErrUnlockThrottled    = errors.New("unlock attempts are temporarily throttled")
	ErrNothingSealed      = errors.New("store holds no sealed seed")
)

// Store keeps the root seed sealed under a passphrase and implements Source
// while unlocked. Unlock attempts are throttled with a token bucket so a
// stolen envelope cannot be brute-forced through this process.
type Store struct {
	mu       sync.Mutex
	envelope *securestore.Envelope
	cached   []byte
	attempts *rate.Limiter
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		attempts: rate.NewLimiter(rate.Every(2*time.Second), 3),
		now:      time.Now,
	}
}

// Seal encrypts the seed under the passphrase and locks the store.
func (s *Store) Seal(seedBytes []byte, passphrase string) error {
	if strings.TrimSpace(passphrase) == "" {
		return ErrPassphraseRequired
	}
	if len(seedBytes) == 0 {
		return ErrSeedUnavailable
	}
	env, err := securestore.SealEnvelope(storePurpose, passphrase, seedBytes)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelope = env
	s.wipeCachedLocked()
	return nil
}

// Unlock decrypts the sealed seed into memory. Failed attempts consume
// throttle tokens; a drained bucket yields ErrUnlockThrottled.
func (s *Store) Unlock(passphrase string) error {
	if strings.TrimSpace(passphrase) == "" {
		return ErrPassphraseRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.envelope == nil {
		return ErrNothingSealed
	}
	if !s.attempts.AllowN(s.now(), 1) {
		return ErrUnlockThrottled
	}

	plaintext, err := securestore.OpenEnvelope(storePurpose, passphrase, s.envelope)
	if err != nil {
		return ErrInvalidPassphrase
	}
	s.wipeCachedLocked()
	s.cached = plaintext
	return nil
}

// Lock wipes the in-memory seed; the sealed envelope stays available.
func (s *Store) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wipeCachedLocked()
}

// Seed returns a copy of the unlocked seed or ErrSeedUnavailable while
// locked.
func (s *Store) Seed() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cached) == 0 {
		return nil, ErrSeedUnavailable
	}
	return append([]byte(nil), s.cached...), nil
}

// Envelope exposes the sealed form for the persistence collaborator.
func (s *Store) Envelope() *securestore.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelope
}

// Restore installs a previously persisted envelope; the store starts locked.
func (s *Store) Restore(env *securestore.Envelope) error {
	if env == nil {
		return securestore.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelope = env
	s.wipeCachedLocked()
	return nil
}

func (s *Store) wipeCachedLocked() {
	for i := range s.cached {
		s.cached[i] = 0
	}
	s.cached = nil
}
