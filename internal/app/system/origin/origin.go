// Package origin decides whether a cross-origin caller is admitted.
//
// The decision is a pure function of the request's Origin header and a Set
// built once at startup. It performs no I/O and holds no mutable state, so a
// single Set is shared by every request goroutine.
package origin

import (
	"errors"
	"fmt"
)

// ErrNotAllowed is returned by Check when a present origin is not in the set.
var ErrNotAllowed = errors.New("origin not allowed")

// Decision is the outcome of admitting one request.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Set is an ordered, immutable collection of exact origin values
// (scheme+host+port). Membership is case-sensitive string equality.
type Set struct {
	list    []string
	members map[string]struct{}
}

// NewSet builds a Set from the given origins. Duplicates are collapsed,
// first occurrence wins for ordering. Values are not normalized.
func NewSet(origins ...string) Set {
	s := Set{
		list:    make([]string, 0, len(origins)),
		members: make(map[string]struct{}, len(origins)),
	}
	for _, o := range origins {
		if _, dup := s.members[o]; dup {
			continue
		}
		s.members[o] = struct{}{}
		s.list = append(s.list, o)
	}
	return s
}

// Contains reports whether o is exactly one of the set's origins.
func (s Set) Contains(o string) bool {
	_, ok := s.members[o]
	return ok
}

// Len returns the number of distinct origins.
func (s Set) Len() int { return len(s.list) }

// Origins returns a copy of the origins in insertion order.
func (s Set) Origins() []string {
	out := make([]string, len(s.list))
	copy(out, s.list)
	return out
}

// Admit decides a request whose Origin header is origin. present is false
// when the header is missing; an empty header value counts as missing.
//
// Callers without an Origin header (mobile apps, server-to-server, curl) are
// always admitted.
func (s Set) Admit(origin string, present bool) Decision {
	if !present || origin == "" {
		return Allow
	}
	if s.Contains(origin) {
		return Allow
	}
	return Deny
}

// Check is Admit expressed as an error: nil on allow, an error wrapping
// ErrNotAllowed on deny.
func (s Set) Check(origin string, present bool) error {
	if s.Admit(origin, present) == Allow {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrNotAllowed, origin)
}
