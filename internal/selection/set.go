package selection

import "github.com/jonathan/resume-tailor/internal/types"

// Set is a set of candidate ids.
type Set map[string]struct{}

// NewSet returns a set holding ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Ordered returns the members in candidate order. Ids that are not among
// candidates are left out.
func (s Set) Ordered(candidates []types.MatchCandidate) []string {
	out := make([]string, 0, len(s))
	for _, c := range candidates {
		if s.Has(c.ID) {
			out = append(out, c.ID)
		}
	}
	return out
}

func (s Set) equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for id := range s {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

func idsOf(candidates []types.MatchCandidate) Set {
	s := make(Set, len(candidates))
	for _, c := range candidates {
		s[c.ID] = struct{}{}
	}
	return s
}
