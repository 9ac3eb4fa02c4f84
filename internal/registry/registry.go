// Package registry tracks which derivation paths exist, their fingerprints
// and their lifecycle state. It never stores secret material: every resolve
// re-derives from the seed source, so compromise of persisted bookkeeping
// leaks structure only.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"identikit/go-core/internal/derive"
	"identikit/go-core/internal/envelope"
	"identikit/go-core/internal/fingerprint"
	"identikit/go-core/internal/seed"
)

type State string

const (
	StateInactive   State = "inactive"
	StateActive     State = "active"
	StateDeprecated State = "deprecated"
	StateRevoked    State = "revoked"
)

var (
	ErrKeyNotFound          = errors.New("key not found")
	ErrFingerprintCollision = errors.New("short fingerprint collision")
	ErrInvalidTransition    = errors.New("invalid lifecycle transition")
	ErrNoActiveKey          = errors.New("no active key")
)

// RegisteredKey is bookkeeping only; it holds no secret. Generation counts
// seed replacements: keys from superseded seeds stay resolvable for
// historical decryption.
type RegisteredKey struct {
	Path        derive.Path
	Fingerprint [32]byte
	State       State
	CreatedAt   time.Time
	Generation  int
}

// ShortFingerprint is the tagged display/lookup form of the key's digest.
func (k RegisteredKey) ShortFingerprint() string {
	return fingerprint.Short(k.Fingerprint, fingerprint.TagFor(k.Path.Curve))
}

// FullFingerprint is the base58 form of the whole digest.
func (k RegisteredKey) FullFingerprint() string {
	return fingerprint.Full(k.Fingerprint)
}

// Registry is safe for concurrent use. Register, Activate, Rotate, Revoke
// and RotateAll mutate shared bookkeeping under the write lock; Resolve and
// the CEK resolver work against read snapshots.
type Registry struct {
	mu      sync.RWMutex
	seeds   []seed.Source
	keys    map[string]*RegisteredKey // recordKey(generation, path)
	byFull  map[string]string         // full fingerprint -> record key
	byShort map[string]string         // short fingerprint -> record key
	active  map[string]string         // curve/role -> record key
	now     func() time.Time
}

func New(src seed.Source) *Registry {
	return NewWithSources([]seed.Source{src})
}

// NewWithSources builds a registry whose records may span several seed
// generations: sources are ordered oldest first and the last one is current.
// Needed when restoring bookkeeping written after an all-keys rotation.
func NewWithSources(sources []seed.Source) *Registry {
	return &Registry{
		seeds:   append([]seed.Source(nil), sources...),
		keys:    make(map[string]*RegisteredKey),
		byFull:  make(map[string]string),
		byShort: make(map[string]string),
		active:  make(map[string]string),
		now:     time.Now,
	}
}

func recordKey(generation int, p derive.Path) string {
	return fmt.Sprintf("%d:%s", generation, p)
}

func roleKey(c derive.Curve, role string) string {
	return string(c) + "/" + role
}

// Register derives the path once to record its fingerprint, then discards
// the secret. Registering an already-known path returns the existing record.
func (r *Registry) Register(p derive.Path) (RegisteredKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(p)
}

func (r *Registry) registerLocked(p derive.Path) (RegisteredKey, error) {
	generation := len(r.seeds) - 1
	rk := recordKey(generation, p)
	if existing, ok := r.keys[rk]; ok {
		return *existing, nil
	}

	seedBytes, err := r.seeds[generation].Seed()
	if err != nil {
		return RegisteredKey{}, fmt.Errorf("register %s: %w", p, err)
	}
	kp, err := derive.Derive(seedBytes, p)
	zeroBytes(seedBytes)
	if err != nil {
		return RegisteredKey{}, err
	}
	fp := fingerprint.Of(kp.Public[:])
	kp.Secret = [32]byte{}

	rec := &RegisteredKey{
		Path:        p,
		Fingerprint: fp,
		State:       StateInactive,
		CreatedAt:   r.now(),
		Generation:  generation,
	}
	if err := r.indexLocked(rk, rec); err != nil {
		return RegisteredKey{}, err
	}
	r.keys[rk] = rec
	return *rec, nil
}

func (r *Registry) indexLocked(rk string, rec *RegisteredKey) error {
	short := rec.ShortFingerprint()
	if prior, ok := r.byShort[short]; ok && prior != rk {
		// Operational alert, not a security failure: the 80-bit short-form
		// space makes this astronomically unlikely, yet it must never pass
		// silently.
		return fmt.Errorf("%w: %s already maps to %s", ErrFingerprintCollision, short, r.keys[prior].Path)
	}
	r.byShort[short] = rk
	r.byFull[rec.FullFingerprint()] = rk
	return nil
}

// Activate moves an Inactive key to Active and makes it the current key for
// its (curve, role) pair. A pair with a current key must Rotate instead.
func (r *Registry) Activate(p derive.Path) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rk, rec, err := r.lookupPathLocked(p)
	if err != nil {
		return err
	}
	if rec.State != StateInactive {
		return fmt.Errorf("%w: %s is %s, want %s", ErrInvalidTransition, p, rec.State, StateInactive)
	}
	pair := roleKey(p.Curve, p.Role)
	if current, ok := r.active[pair]; ok {
		return fmt.Errorf("%w: %s already has active key %s", ErrInvalidTransition, pair, r.keys[current].Path)
	}
	rec.State = StateActive
	r.active[pair] = rk
	return nil
}

// Resolve re-derives the keypair behind a full or short fingerprint. Short
// references are a lookup aid only: the record found through one has its
// full digest re-verified against the derived key.
func (r *Registry) Resolve(ref string) (derive.KeyPair, RegisteredKey, error) {
	r.mu.RLock()
	var rk string
	var ok bool
	if fingerprint.IsShort(ref) {
		rk, ok = r.byShort[ref]
	} else {
		rk, ok = r.byFull[ref]
	}
	if !ok {
		r.mu.RUnlock()
		return derive.KeyPair{}, RegisteredKey{}, fmt.Errorf("%w: %s", ErrKeyNotFound, ref)
	}
	rec := *r.keys[rk]
	src := r.seeds[rec.Generation]
	r.mu.RUnlock()

	kp, err := r.deriveRecord(src, rec)
	if err != nil {
		return derive.KeyPair{}, RegisteredKey{}, err
	}
	return kp, rec, nil
}

func (r *Registry) deriveRecord(src seed.Source, rec RegisteredKey) (derive.KeyPair, error) {
	seedBytes, err := src.Seed()
	if err != nil {
		return derive.KeyPair{}, fmt.Errorf("resolve %s: %w", rec.Path, err)
	}
	kp, err := derive.Derive(seedBytes, rec.Path)
	zeroBytes(seedBytes)
	if err != nil {
		return derive.KeyPair{}, err
	}
	if fingerprint.Of(kp.Public[:]) != rec.Fingerprint {
		return derive.KeyPair{}, fmt.Errorf("%w: %s no longer matches its recorded fingerprint", ErrKeyNotFound, rec.Path)
	}
	return kp, nil
}

// Revoke is terminal and idempotent. Revoked keys stay derivable for
// historical decryption but are never offered as encryption targets again.
func (r *Registry) Revoke(p derive.Path) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rk, rec, err := r.lookupPathLocked(p)
	if err != nil {
		return err
	}
	return r.revokeLocked(rk, rec)
}

func (r *Registry) revokeLocked(rk string, rec *RegisteredKey) error {
	if rec.State == StateRevoked {
		return nil
	}
	rec.State = StateRevoked
	pair := roleKey(rec.Path.Curve, rec.Path.Role)
	if r.active[pair] == rk {
		delete(r.active, pair)
	}
	return nil
}

// EncryptionTarget returns the active X25519 key for a role as an envelope
// recipient. Deprecated and revoked keys are never offered.
func (r *Registry) EncryptionTarget(role string) (envelope.Recipient, error) {
	r.mu.RLock()
	rk, ok := r.active[roleKey(derive.CurveX25519, role)]
	if !ok {
		r.mu.RUnlock()
		return envelope.Recipient{}, fmt.Errorf("%w: no active x25519 key for role %q", ErrNoActiveKey, role)
	}
	rec := *r.keys[rk]
	src := r.seeds[rec.Generation]
	r.mu.RUnlock()

	kp, err := r.deriveRecord(src, rec)
	if err != nil {
		return envelope.Recipient{}, err
	}
	kp.Secret = [32]byte{}
	return envelope.Recipient{PublicKey: kp.Public, To: rec.ShortFingerprint()}, nil
}

// CEKResolver adapts the registry for envelope.Open: it maps a recipient
// entry's short fingerprint to a freshly derived X25519 secret. Every
// registered state qualifies, revoked included, so old envelopes stay
// readable.
func (r *Registry) CEKResolver() func(to string) ([]byte, bool) {
	return func(to string) ([]byte, bool) {
		r.mu.RLock()
		rk, ok := r.byShort[to]
		if !ok {
			r.mu.RUnlock()
			return nil, false
		}
		rec := *r.keys[rk]
		src := r.seeds[rec.Generation]
		r.mu.RUnlock()

		if rec.Path.Curve != derive.CurveX25519 {
			return nil, false
		}
		kp, err := r.deriveRecord(src, rec)
		if err != nil {
			return nil, false
		}
		return append([]byte(nil), kp.Secret[:]...), true
	}
}

// Records snapshots the bookkeeping in stable order for persistence.
func (r *Registry) Records() []RegisteredKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegisteredKey, 0, len(r.keys))
	for _, rec := range r.keys {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Generation != out[j].Generation {
			return out[i].Generation < out[j].Generation
		}
		return out[i].Path.String() < out[j].Path.String()
	})
	return out
}

// lookupPathLocked finds the newest generation's record for a path.
func (r *Registry) lookupPathLocked(p derive.Path) (string, *RegisteredKey, error) {
	for generation := len(r.seeds) - 1; generation >= 0; generation-- {
		rk := recordKey(generation, p)
		if rec, ok := r.keys[rk]; ok {
			return rk, rec, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrKeyNotFound, p)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
