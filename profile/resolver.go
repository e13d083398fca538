// Package profile resolves instrument identifiers to the numeric tuning the
// strategies use.
package profile

import (
	"sort"
	"strings"
	"unicode"
)

// Resolver maps instrument ids to profiles. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	profiles map[string]Profile
	keys     []string // longest first
}

// NewResolver builds a resolver over profiles. Later profiles with the same
// canonical id replace earlier ones.
func NewResolver(profiles ...Profile) *Resolver {
	r := &Resolver{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		key := Canonical(p.ID)
		if key == "" {
			continue
		}
		p.ID = key
		r.profiles[key] = p
	}
	r.keys = make([]string, 0, len(r.profiles))
	for k := range r.profiles {
		r.keys = append(r.keys, k)
	}
	sort.Slice(r.keys, func(i, j int) bool {
		if len(r.keys[i]) != len(r.keys[j]) {
			return len(r.keys[i]) > len(r.keys[j])
		}
		return r.keys[i] < r.keys[j]
	})
	return r
}

// Builtin returns a resolver over the builtin instrument table.
func Builtin() *Resolver {
	return NewResolver(builtin...)
}

// Resolve returns the profile for instrument. An exact canonical match
// wins; otherwise the longest table id contained in the canonical
// instrument id ("XAUUSD.m" -> XAUUSD). With no match the conservative
// Default profile is returned; that is baseline behaviour, not an error.
func (r *Resolver) Resolve(instrument string) Profile {
	id := Canonical(instrument)
	if id == "" {
		return Default()
	}
	if p, ok := r.profiles[id]; ok {
		return p
	}
	for _, k := range r.keys {
		if strings.Contains(id, k) {
			return r.profiles[k]
		}
	}
	return Default()
}

// IDs lists the table ids in resolution order.
func (r *Resolver) IDs() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Profiles returns every profile in the table.
func (r *Resolver) Profiles() []Profile {
	out := make([]Profile, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.profiles[k])
	}
	return out
}

// Canonical upper-cases id and drops everything but letters and digits, so
// "eur_usd", "EUR/USD" and "EURUSD" are the same instrument.
func Canonical(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
