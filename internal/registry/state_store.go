package registry

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"

	"identikit/go-core/internal/derive"
	"identikit/go-core/internal/securestore"
)

const statePurpose = "identikit/registry/v1"

var ErrStateInvalid = errors.New("registry persistence payload is invalid")

// Record is the external persisted shape of one registered key. It carries
// bookkeeping only, never secret material.
type Record struct {
	Path        string    `json:"path"`
	Fingerprint string    `json:"fingerprint"`
	State       string    `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	Generation  int       `json:"generation"`
}

type persistedState struct {
	Version  uint32   `json:"version"`
	Checksum string   `json:"checksum"`
	Records  []Record `json:"records"`
}

// Export renders the current bookkeeping as persistable records.
func (r *Registry) Export() []Record {
	keys := r.Records()
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, Record{
			Path:        k.Path.String(),
			Fingerprint: k.FullFingerprint(),
			State:       string(k.State),
			CreatedAt:   k.CreatedAt,
			Generation:  k.Generation,
		})
	}
	return out
}

// Load rebuilds bookkeeping from persisted records. Records must reference
// seed generations the registry was constructed with; loading never derives
// a key.
func (r *Registry) Load(records []Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		p, err := derive.Parse(rec.Path)
		if err != nil {
			return err
		}
		fpBytes, err := base58.Decode(rec.Fingerprint)
		if err != nil || len(fpBytes) != 32 {
			return fmt.Errorf("%w: bad fingerprint for %s", ErrStateInvalid, rec.Path)
		}
		state := State(rec.State)
		switch state {
		case StateInactive, StateActive, StateDeprecated, StateRevoked:
		default:
			return fmt.Errorf("%w: unknown state %q for %s", ErrStateInvalid, rec.State, rec.Path)
		}
		if rec.Generation < 0 || rec.Generation >= len(r.seeds) {
			return fmt.Errorf("%w: %s references seed generation %d without a source", ErrStateInvalid, rec.Path, rec.Generation)
		}

		entry := &RegisteredKey{
			Path:       p,
			State:      state,
			CreatedAt:  rec.CreatedAt,
			Generation: rec.Generation,
		}
		copy(entry.Fingerprint[:], fpBytes)

		rk := recordKey(rec.Generation, p)
		if err := r.indexLocked(rk, entry); err != nil {
			return err
		}
		r.keys[rk] = entry

		if state == StateActive {
			pair := roleKey(p.Curve, p.Role)
			if prior, ok := r.active[pair]; ok {
				return fmt.Errorf("%w: both %s and %s active for %s", ErrStateInvalid, r.keys[prior].Path, p, pair)
			}
			r.active[pair] = rk
		}
	}
	return nil
}

// StateStore persists registry records encrypted at rest, in the shape the
// persistence collaborator owns. An unconfigured store is a no-op.
type StateStore struct {
	path   string
	secret string
}

func (s *StateStore) Configure(path, secret string) {
	s.path = strings.TrimSpace(path)
	s.secret = strings.TrimSpace(secret)
}

// Bootstrap reads persisted records, creating an empty file on first run.
func (s *StateStore) Bootstrap() ([]Record, error) {
	if s.path == "" || s.secret == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := s.Persist(nil); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, err
	}
	plaintext, err := securestore.Open(statePurpose, s.secret, raw)
	if err != nil {
		return nil, err
	}

	var state persistedState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, ErrStateInvalid
	}
	if state.Version != 1 {
		return nil, fmt.Errorf("%w: version %d", ErrStateInvalid, state.Version)
	}
	if state.Checksum != recordsChecksum(state.Records) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrStateInvalid)
	}
	return state.Records, nil
}

// Persist writes records through the securestore envelope.
func (s *StateStore) Persist(records []Record) error {
	if s.path == "" || s.secret == "" {
		return nil
	}
	state := persistedState{
		Version:  1,
		Checksum: recordsChecksum(records),
		Records:  records,
	}
	plaintext, err := json.Marshal(state)
	if err != nil {
		return err
	}
	sealed, err := securestore.Seal(statePurpose, s.secret, plaintext)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, sealed, 0o600)
}

func recordsChecksum(records []Record) string {
	payload, err := json.Marshal(records)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
