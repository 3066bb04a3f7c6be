package permission

import (
	"sort"
	"strings"
)

const (
	// Any is the requirement satisfied by every user, authenticated or not.
	Any = "*"

	segmentSep     = "."
	wildcardSuffix = ".*"
)

// Set is an immutable, deduplicated collection of granted permissions.
type Set struct {
	granted map[string]struct{}
}

// NewSet builds a [Set] from a user's permission list. Empty entries are ignored and
// order is irrelevant.
func NewSet(perms []string) Set {
	s := Set{granted: make(map[string]struct{}, len(perms))}
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		s.granted[p] = struct{}{}
	}
	return s
}

// Len returns the number of distinct grants.
func (s Set) Len() int {
	return len(s.granted)
}

// List returns the grants in lexical order.
func (s Set) List() []string {
	out := make([]string, 0, len(s.granted))
	for p := range s.granted {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Can reports whether permission is granted by exact match.
func (s Set) Can(permission string) bool {
	if s.granted == nil {
		return false
	}
	_, ok := s.granted[permission]
	return ok
}

// HasMenuAccess reports whether any of the required permissions is granted, either
// exactly or through a wildcard grant on one of its dot-separated prefixes.
// A requirement list containing [Any] always passes.
func (s Set) HasMenuAccess(required ...string) bool {
	for _, r := range required {
		if r == Any {
			return true
		}
	}
	if len(s.granted) == 0 {
		return false
	}

	for _, r := range required {
		if s.matches(r) {
			return true
		}
	}
	return false
}

func (s Set) matches(permission string) bool {
	if permission == "" {
		return false
	}
	if s.Can(permission) {
		return true
	}

	for _, candidate := range WildcardsFor(permission) {
		if _, ok := s.granted[candidate]; ok {
			return true
		}
	}
	return false
}

// WildcardsFor lists the wildcard grants that would cover permission, longest prefix
// first. For "view.rfid.monitoring" it returns "view.rfid.monitoring.*", "view.rfid.*"
// and "view.*".
func WildcardsFor(permission string) []string {
	if permission == "" {
		return nil
	}
	parts := strings.Split(permission, segmentSep)
	out := make([]string, 0, len(parts))
	for i := len(parts); i > 0; i-- {
		out = append(out, strings.Join(parts[:i], segmentSep)+wildcardSuffix)
	}
	return out
}
