package derive

import "sort"

// Role names admitted into derivation paths, with the integer each one feeds
// into the hardened chain. The table is versioned and compatibility-critical:
// changing an assignment invalidates every key derived under it.
const roleTableVersion = 1

var roleIDs = map[string]uint32{
	"identity":       0,
	"encryption":     1,
	"signing":        2,
	"authentication": 3,
	"backup":         4,
}

// RoleID returns the chain integer for a role name.
func RoleID(role string) (uint32, bool) {
	id, ok := roleIDs[role]
	return id, ok
}

// Roles lists the known role names in stable order.
func Roles() []string {
	out := make([]string, 0, len(roleIDs))
	for name := range roleIDs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
