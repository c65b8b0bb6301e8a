package availability

import (
	"testing"

	"github.com/wolfman30/muvance-crm/internal/slots"
)

func TestDateIndexLazyLoadAndEviction(t *testing.T) {
	idx := NewDateIndex()
	loads := 0
	loader := func(values ...string) func() slots.TimeSet {
		return func() slots.TimeSet {
			loads++
			return slots.NewTimeSet(values...)
		}
	}

	got := idx.Visit("2025-06-01", loader("11:00 AM"))
	if !got.Has("11:00 AM") || loads != 1 {
		t.Fatalf("expected first visit to load, loads=%d", loads)
	}

	idx.Visit("2025-06-01", loader("1:00 PM"))
	if loads != 1 {
		t.Fatalf("revisiting current date must not reload, loads=%d", loads)
	}

	idx.Visit("2025-06-02", loader())
	if _, ok := idx.Get("2025-06-01"); ok {
		t.Fatal("expected previous date to be evicted on navigation")
	}
	if idx.Current() != "2025-06-02" {
		t.Fatalf("unexpected current %q", idx.Current())
	}

	got = idx.Visit("2025-06-01", loader("4:00 PM"))
	if loads != 3 || !got.Has("4:00 PM") || got.Has("11:00 AM") {
		t.Fatalf("expected fresh load after eviction, loads=%d got=%v", loads, got)
	}
}

func TestDateIndexAddAndEvict(t *testing.T) {
	idx := NewDateIndex()
	idx.Visit("2025-06-01", nil)
	idx.Add("2025-06-01", "7:00 PM")

	set, ok := idx.Get("2025-06-01")
	if !ok || !set.Has("7:00 PM") {
		t.Fatalf("expected added time, got %v", set)
	}
	set.Add("9:00 PM")
	if again, _ := idx.Get("2025-06-01"); again.Has("9:00 PM") {
		t.Fatal("Get must return a copy")
	}

	idx.Evict("2025-06-01")
	if idx.Len() != 0 || idx.Current() != "" {
		t.Fatalf("expected empty index after evict, len=%d current=%q", idx.Len(), idx.Current())
	}

	idx.Add("2025-07-01", "1:00 PM")
	idx.Reset()
	if idx.Len() != 0 {
		t.Fatal("expected reset to clear entries")
	}
}
