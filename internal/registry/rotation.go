package registry

import (
	"fmt"

	"identikit/go-core/internal/derive"
	"identikit/go-core/internal/seed"
)

// Lifecycle: Inactive -> Active -> Deprecated -> Revoked, with Revoked
// reachable from any non-terminal state. Rotation only changes which path is
// current for a (curve, role) pair; derivability of old paths is never
// deleted.

// RotationResult reports both sides of a single-role rotation.
type RotationResult struct {
	Old RegisteredKey
	New RegisteredKey
}

// Rotate deprecates the current key for (curve, role) and registers and
// activates its successor path (index + 1).
func (r *Registry) Rotate(curve derive.Curve, role string) (RotationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pair := roleKey(curve, role)
	oldRK, ok := r.active[pair]
	if !ok {
		return RotationResult{}, fmt.Errorf("%w: cannot rotate %s", ErrNoActiveKey, pair)
	}
	oldRec := r.keys[oldRK]

	newPath := oldRec.Path.Next()
	newRec, err := r.registerLocked(newPath)
	if err != nil {
		return RotationResult{}, err
	}
	newRK := recordKey(newRec.Generation, newPath)
	if r.keys[newRK].State != StateInactive {
		return RotationResult{}, fmt.Errorf("%w: successor %s is already %s", ErrInvalidTransition, newPath, r.keys[newRK].State)
	}

	oldRec.State = StateDeprecated
	r.keys[newRK].State = StateActive
	r.active[pair] = newRK
	return RotationResult{Old: *oldRec, New: *r.keys[newRK]}, nil
}

// RotateAll is the suspected-seed-compromise response: every key under the
// old seed is revoked, the replacement seed becomes current, and a fresh
// index-0 key is registered and activated for every (curve, role) pair that
// had an active key. Old-generation paths remain resolvable against their
// own seed source.
func (r *Registry) RotateAll(next seed.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	type pairInfo struct {
		curve   derive.Curve
		account uint32
		role    string
	}
	pairs := make([]pairInfo, 0, len(r.active))
	for _, rk := range r.active {
		rec := r.keys[rk]
		pairs = append(pairs, pairInfo{curve: rec.Path.Curve, account: rec.Path.Account, role: rec.Path.Role})
	}

	for rk, rec := range r.keys {
		if err := r.revokeLocked(rk, rec); err != nil {
			return err
		}
	}
	r.seeds = append(r.seeds, next)

	for _, p := range pairs {
		freshPath := derive.Path{Curve: p.curve, Account: p.account, Role: p.role, Index: 0}
		rec, err := r.registerLocked(freshPath)
		if err != nil {
			return err
		}
		newRK := recordKey(rec.Generation, freshPath)
		r.keys[newRK].State = StateActive
		r.active[roleKey(p.curve, p.role)] = newRK
	}
	return nil
}
