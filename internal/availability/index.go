package availability

import (
	"sync"

	"github.com/wolfman30/muvance-crm/internal/slots"
)

// DateIndex caches booked times per visited date. Only the current date's
// entry survives navigation: visiting another date evicts the previous one.
type DateIndex struct {
	mu      sync.Mutex
	current string
	entries map[string]slots.TimeSet
}

func NewDateIndex() *DateIndex {
	return &DateIndex{entries: make(map[string]slots.TimeSet)}
}

// Visit makes key the current date and returns its booked times, calling load
// only when no entry exists.
func (x *DateIndex) Visit(key string, load func() slots.TimeSet) slots.TimeSet {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.current != "" && x.current != key {
		delete(x.entries, x.current)
	}
	x.current = key
	set, ok := x.entries[key]
	if !ok {
		set = slots.NewTimeSet()
		if load != nil {
			if loaded := load(); loaded != nil {
				set = loaded.Clone()
			}
		}
		x.entries[key] = set
	}
	return set.Clone()
}

// Add records a new booking on key.
func (x *DateIndex) Add(key, value string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.entries[key]
	if !ok {
		set = slots.NewTimeSet()
		x.entries[key] = set
	}
	set.Add(value)
}

// Get returns a copy of key's entry.
func (x *DateIndex) Get(key string) (slots.TimeSet, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	set, ok := x.entries[key]
	if !ok {
		return nil, false
	}
	return set.Clone(), true
}

// Evict drops key, e.g. when the scheduling dialog for it closes.
func (x *DateIndex) Evict(key string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.entries, key)
	if x.current == key {
		x.current = ""
	}
}

// Current returns the last visited key.
func (x *DateIndex) Current() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.current
}

func (x *DateIndex) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.current = ""
	x.entries = make(map[string]slots.TimeSet)
}

func (x *DateIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}
