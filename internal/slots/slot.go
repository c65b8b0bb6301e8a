package slots

import "time"

// Slot is one candidate time on a selected date.
type Slot struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Time24   string `json:"time24"`
	Booked   bool   `json:"booked"`
	Past     bool   `json:"past"`
	Adjacent bool   `json:"adjacent,omitempty"`
	Disabled bool   `json:"disabled"`
}

// Generate classifies every slot of the policy for selectedDate. A slot is past
// when selectedDate at the slot time is before now, evaluated in
// selectedDate's location. When either selectedDate or now is zero no slot is
// past.
func Generate(policy Policy, booked TimeSet, selectedDate, now time.Time) []Slot {
	checkPast := !selectedDate.IsZero() && !now.IsZero()
	out := make([]Slot, 0, policy.Len())
	for _, c := range policy.times {
		value := c.String()
		s := Slot{
			Value:  value,
			Label:  value,
			Time24: c.Format24(),
			Booked: booked.Has(value),
		}
		if checkPast {
			y, m, d := selectedDate.Date()
			at := time.Date(y, m, d, c.Hour, c.Minute, 0, 0, selectedDate.Location())
			s.Past = at.Before(now)
		}
		s.Disabled = s.Past || s.Booked
		out = append(out, s)
	}
	return out
}

// Reorder rotates options so the slot whose value equals selected sits at
// index len/2. The result is a permutation of the input; the input is not
// modified. Missing or empty selected returns a copy in the original order.
func Reorder(options []Slot, selected string) []Slot {
	n := len(options)
	out := make([]Slot, n)
	copy(out, options)
	if selected == "" || n == 0 {
		return out
	}
	idx := -1
	for i, o := range options {
		if o.Value == selected {
			idx = i
			break
		}
	}
	if idx < 0 {
		return out
	}
	offset := n/2 - idx
	for i, o := range options {
		out[((i+offset)%n+n)%n] = o
	}
	return out
}

// Available returns the values of slots that are not disabled.
func Available(options []Slot) []string {
	var out []string
	for _, o := range options {
		if !o.Disabled {
			out = append(out, o.Value)
		}
	}
	return out
}

// Find returns the slot with the given value.
func Find(options []Slot, value string) (Slot, bool) {
	for _, o := range options {
		if o.Value == value {
			return o, true
		}
	}
	return Slot{}, false
}
