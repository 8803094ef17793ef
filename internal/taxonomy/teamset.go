package taxonomy

import (
	"encoding/json"
	"sort"
)

// TeamSet is a duplicate-free set of team names that remembers first-seen
// order. The zero value is an empty set.
type TeamSet struct {
	names []string
	index map[string]struct{}
}

func NewTeamSet(names ...string) TeamSet {
	var s TeamSet
	for _, n := range names {
		s.add(n)
	}
	return s
}

func (s *TeamSet) add(name string) {
	if name == "" {
		return
	}
	if _, ok := s.index[name]; ok {
		return
	}
	if s.index == nil {
		s.index = map[string]struct{}{}
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
}

func (s TeamSet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s TeamSet) Len() int { return len(s.names) }

// Names returns the members in first-seen order.
func (s TeamSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s TeamSet) Sorted() []string {
	out := s.Names()
	sort.Strings(out)
	return out
}

// Equal reports set equality, ignoring order.
func (s TeamSet) Equal(other TeamSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, n := range s.names {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

func (s TeamSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}
