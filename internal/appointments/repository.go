// Package appointments stores appointment records and serves the CRUD and
// availability endpoints.
package appointments

import (
	"context"
	"errors"

	"github.com/wolfman30/muvance-crm/internal/leads"
)

// ErrNotFound is returned when no appointment has the requested id.
var ErrNotFound = errors.New("appointments: not found")

// Repository persists appointments in their wire shape. Implementations
// assign the id on Create.
type Repository interface {
	List(ctx context.Context) ([]leads.RawAppointment, error)
	Get(ctx context.Context, id string) (leads.RawAppointment, error)
	Create(ctx context.Context, raw leads.RawAppointment) (leads.RawAppointment, error)
	Update(ctx context.Context, id string, patch leads.Patch) (leads.RawAppointment, error)
	// Delete removes the record and returns it as it was.
	Delete(ctx context.Context, id string) (leads.RawAppointment, error)
}
