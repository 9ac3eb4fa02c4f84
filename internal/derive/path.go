package derive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidPath = errors.New("invalid derivation path")

type Curve string

const (
	CurveEd25519 Curve = "ed25519"
	CurveX25519  Curve = "x25519"
)

const (
	pathPrefix = "ik:v1:"

	// Indices live in the hardened half of the u32 space, so the raw value
	// must leave room for the 2^31 offset.
	maxPathIndex = 1<<31 - 1
)

// Path identifies one derivable key: curve, account, role and rotation index.
// The canonical textual form is ik:v1:<curve>/<account>/<role>/<index>.
type Path struct {
	Curve   Curve
	Account uint32
	Role    string
	Index   uint32
}

// Parse decodes a canonical path string. Role names are checked against the
// versioned role table here, so a parsed Path is always derivable.
func Parse(s string) (Path, error) {
	rest, ok := strings.CutPrefix(s, pathPrefix)
	if !ok {
		return Path{}, fmt.Errorf("%w: missing %q prefix in %q", ErrInvalidPath, pathPrefix, s)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 4 {
		return Path{}, fmt.Errorf("%w: want curve/account/role/index in %q", ErrInvalidPath, s)
	}

	curve := Curve(parts[0])
	if curve != CurveEd25519 && curve != CurveX25519 {
		return Path{}, fmt.Errorf("%w: unknown curve %q in %q", ErrInvalidPath, parts[0], s)
	}
	account, err := parsePathIndex(parts[1])
	if err != nil {
		return Path{}, fmt.Errorf("%w: bad account in %q: %v", ErrInvalidPath, s, err)
	}
	role := parts[2]
	if _, ok := RoleID(role); !ok {
		return Path{}, fmt.Errorf("%w: unknown role %q in %q", ErrInvalidPath, role, s)
	}
	index, err := parsePathIndex(parts[3])
	if err != nil {
		return Path{}, fmt.Errorf("%w: bad index in %q: %v", ErrInvalidPath, s, err)
	}

	return Path{Curve: curve, Account: account, Role: role, Index: index}, nil
}

// String builds the canonical textual form. Parse(p.String()) == p for every
// valid path.
func (p Path) String() string {
	return fmt.Sprintf("%s%s/%d/%s/%d", pathPrefix, p.Curve, p.Account, p.Role, p.Index)
}

// Next is the successor path used by rotation: same curve, account and role,
// index incremented by one.
func (p Path) Next() Path {
	p.Index++
	return p
}

func parsePathIndex(s string) (uint32, error) {
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zeros in %q", s)
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if n > maxPathIndex {
		return 0, fmt.Errorf("%d exceeds hardened index space", n)
	}
	return uint32(n), nil
}
