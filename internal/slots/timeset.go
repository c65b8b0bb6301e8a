package slots

import "sort"

// TimeSet is a set of "h:mm AM/PM" values.
type TimeSet map[string]struct{}

// NewTimeSet builds a set from the given values.
func NewTimeSet(values ...string) TimeSet {
	set := make(TimeSet, len(values))
	for _, v := range values {
		set.Add(v)
	}
	return set
}

func (s TimeSet) Add(value string) {
	if value == "" {
		return
	}
	s[value] = struct{}{}
}

func (s TimeSet) Has(value string) bool {
	_, ok := s[value]
	return ok
}

func (s TimeSet) Len() int { return len(s) }

// Clone returns an independent copy.
func (s TimeSet) Clone() TimeSet {
	out := make(TimeSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the members ordered by time of day; unparsable values sort
// last in lexical order.
func (s TimeSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, erri := ParseClock(out[i])
		cj, errj := ParseClock(out[j])
		switch {
		case erri == nil && errj == nil:
			return ci.Minutes() < cj.Minutes()
		case erri == nil:
			return true
		case errj == nil:
			return false
		default:
			return out[i] < out[j]
		}
	})
	return out
}
