package events

import (
	"context"
	"errors"

	"github.com/wolfman30/muvance-crm/pkg/logging"
)

// Publisher delivers lead events to a downstream transport.
type Publisher interface {
	Publish(ctx context.Context, evt LeadEvent) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, evt LeadEvent) error

func (f PublisherFunc) Publish(ctx context.Context, evt LeadEvent) error { return f(ctx, evt) }

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, LeadEvent) error { return nil }

// Fanout publishes to every target and joins their errors.
type Fanout struct {
	targets []Publisher
	logger  *logging.Logger
}

// NewFanout skips nil targets.
func NewFanout(logger *logging.Logger, targets ...Publisher) *Fanout {
	if logger == nil {
		logger = logging.Default()
	}
	f := &Fanout{logger: logger}
	for _, t := range targets {
		if t != nil {
			f.targets = append(f.targets, t)
		}
	}
	return f
}

func (f *Fanout) Publish(ctx context.Context, evt LeadEvent) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Publish(ctx, evt); err != nil {
			f.logger.Warn("lead event publish failed", "type", evt.Type, "lead_id", evt.LeadID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of targets.
func (f *Fanout) Len() int { return len(f.targets) }
