package steward

import "strings"

// Authorize reports whether the given effective permission set grants the
// required permission. This is the single matching rule used everywhere a
// permission is checked: the set grants `required` iff it contains the
// universal wildcard "*", the required token verbatim, or the resource-level
// wildcard "resource:*" where resource is the part of `required` before its
// first ':'. No other prefix matching applies — "resource:*" never implies
// "*".
func Authorize(effective []string, required string) bool {
	for _, perm := range effective {
		if matchPermission(perm, required) {
			return true
		}
	}
	return false
}

// matchPermission checks if a held permission token matches a required
// permission. Permission format: "resource:verb" (e.g. "work_orders:approve").
func matchPermission(perm, required string) bool {
	if perm == "*" {
		return true
	}
	if perm == required {
		return true
	}
	if strings.HasSuffix(perm, ":*") {
		resource := strings.TrimSuffix(perm, ":*")
		rest, ok := strings.CutPrefix(required, resource+":")
		return ok && rest != ""
	}
	return false
}
