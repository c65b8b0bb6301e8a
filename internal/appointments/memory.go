package appointments

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

// InMemoryRepository is used for local development and tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	order   []string
	records map[string]leads.RawAppointment
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{records: make(map[string]leads.RawAppointment)}
}

func cloneRaw(raw leads.RawAppointment) leads.RawAppointment {
	raw.Activity = append([]leads.Activity{}, raw.Activity...)
	return raw
}

func (r *InMemoryRepository) List(ctx context.Context) ([]leads.RawAppointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]leads.RawAppointment, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneRaw(r.records[id]))
	}
	return out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (leads.RawAppointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.records[id]
	if !ok {
		return leads.RawAppointment{}, ErrNotFound
	}
	return cloneRaw(raw), nil
}

func (r *InMemoryRepository) Create(ctx context.Context, raw leads.RawAppointment) (leads.RawAppointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw = cloneRaw(raw)
	raw.ID = uuid.NewString()
	r.records[raw.ID] = raw
	r.order = append(r.order, raw.ID)
	return cloneRaw(raw), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id string, patch leads.Patch) (leads.RawAppointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.records[id]
	if !ok {
		return leads.RawAppointment{}, ErrNotFound
	}
	raw = raw.Apply(patch)
	r.records[id] = raw
	return cloneRaw(raw), nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) (leads.RawAppointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.records[id]
	if !ok {
		return leads.RawAppointment{}, ErrNotFound
	}
	delete(r.records, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return raw, nil
}
