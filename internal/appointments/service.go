package appointments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/muvance-crm/internal/availability"
	"github.com/wolfman30/muvance-crm/internal/events"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/internal/observability/metrics"
	"github.com/wolfman30/muvance-crm/internal/slots"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

// Notifier is told about new appointments after they are stored.
type Notifier interface {
	NotifyNewAppointment(ctx context.Context, raw leads.RawAppointment) error
}

// ServiceOptions wires the optional collaborators. Nil fields are skipped.
type ServiceOptions struct {
	Cache            BookingCache
	Publisher        events.Publisher
	Notifier         Notifier
	Metrics          *metrics.CRMMetrics
	Tracer           trace.Tracer
	Logger           *logging.Logger
	Location         *time.Location
	ThirtyMinuteRule bool
}

// Service applies server-side defaults, keeps the availability cache fresh
// and announces every write.
type Service struct {
	repo             Repository
	cache            BookingCache
	publisher        events.Publisher
	notifier         Notifier
	metrics          *metrics.CRMMetrics
	tracer           trace.Tracer
	logger           *logging.Logger
	loc              *time.Location
	thirtyMinuteRule bool
}

func NewService(repo Repository, opts ServiceOptions) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("muvance.internal.appointments")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		repo:             repo,
		cache:            opts.Cache,
		publisher:        opts.Publisher,
		notifier:         opts.Notifier,
		metrics:          opts.Metrics,
		tracer:           opts.Tracer,
		logger:           opts.Logger,
		loc:              opts.Location,
		thirtyMinuteRule: opts.ThirtyMinuteRule,
	}
}

// Location is the calendar location used for day and month keys.
func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveLatency(op, time.Since(start).Seconds())
}

// List returns every appointment.
func (s *Service) List(ctx context.Context) ([]leads.RawAppointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.list")
	defer span.End()
	defer s.observe("list", time.Now())

	out, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if out == nil {
		out = []leads.RawAppointment{}
	}
	return out, nil
}

// Create stores a new appointment after filling status, submission date and
// the booking activity entry.
func (s *Service) Create(ctx context.Context, raw leads.RawAppointment, now time.Time) (leads.RawAppointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.create")
	defer span.End()
	defer s.observe("create", time.Now())

	prepared, err := leads.PrepareForCreate(raw, now)
	if err != nil {
		span.RecordError(err)
		return leads.RawAppointment{}, err
	}
	created, err := s.repo.Create(ctx, prepared)
	if err != nil {
		span.RecordError(err)
		return leads.RawAppointment{}, err
	}
	span.SetAttributes(attribute.String("appointment.id", created.ID))

	source := "widget"
	if lead, err := leads.Ingest(created); err == nil && lead.Service == leads.ServiceManual {
		source = "manual"
	}
	s.metrics.ObserveCreated(source)
	s.invalidate(ctx, created.Date)
	s.publish(ctx, events.TypeLeadCreated, created, now)

	if s.notifier != nil {
		if err := s.notifier.NotifyNewAppointment(ctx, created); err != nil {
			s.logger.Warn("new appointment notification failed", "lead_id", created.ID, "error", err)
		}
	}
	s.logger.Info("appointment created", "lead_id", created.ID, "source", source)
	return created, nil
}

// Update applies a partial update. Unknown statuses are rejected before any
// write.
func (s *Service) Update(ctx context.Context, id string, patch leads.Patch, now time.Time) (leads.RawAppointment, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.update")
	defer span.End()
	defer s.observe("update", time.Now())
	span.SetAttributes(attribute.String("appointment.id", id))

	if err := patch.Validate(); err != nil {
		return leads.RawAppointment{}, err
	}

	var previousDate string
	if patch.Date != nil {
		if prev, err := s.repo.Get(ctx, id); err == nil {
			previousDate = prev.Date
		}
	}

	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		span.RecordError(err)
		return leads.RawAppointment{}, err
	}
	if patch.Status != nil {
		s.metrics.ObserveTransition(string(*patch.Status))
	}
	if patch.Date != nil || patch.Time != nil {
		s.invalidate(ctx, previousDate, updated.Date)
	}
	s.publish(ctx, events.TypeLeadUpdated, updated, now)
	return updated, nil
}

// Delete removes an appointment.
func (s *Service) Delete(ctx context.Context, id string, now time.Time) error {
	ctx, span := s.tracer.Start(ctx, "appointments.delete")
	defer span.End()
	defer s.observe("delete", time.Now())

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.invalidate(ctx, deleted.Date)
	s.publish(ctx, events.TypeLeadDeleted, deleted, now)
	s.logger.Info("appointment deleted", "lead_id", id)
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, raw leads.RawAppointment, now time.Time) {
	if err := s.publisher.Publish(ctx, events.NewLeadEvent(eventType, raw, now)); err != nil {
		s.logger.Warn("lead event not published", "type", eventType, "lead_id", raw.ID, "error", err)
	}
}

func (s *Service) monthOf(rawDate string) string {
	key, ok := availability.RawDayKey(rawDate, s.loc)
	if !ok {
		return ""
	}
	return key[:len(monthKeyLayout)]
}

func (s *Service) invalidate(ctx context.Context, rawDates ...string) {
	if s.cache == nil {
		return
	}
	var months []string
	for _, d := range rawDates {
		if m := s.monthOf(d); m != "" {
			months = append(months, m)
		}
	}
	if err := s.cache.Invalidate(ctx, months...); err != nil {
		s.logger.Warn("availability cache invalidation failed", "months", strings.Join(months, ","), "error", err)
	}
}

// Bookings returns the date/time projection of appointments whose calendar
// day falls in [from, to). Month projections are served from the cache when
// one is configured.
func (s *Service) Bookings(ctx context.Context, from, to time.Time) ([]availability.Booking, error) {
	ctx, span := s.tracer.Start(ctx, "appointments.bookings")
	defer span.End()
	defer s.observe("bookings", time.Now())

	from = availability.CalendarDay(from, s.loc)
	to = availability.CalendarDay(to, s.loc)
	if !to.After(from) {
		return []availability.Booking{}, nil
	}

	months := monthsBetween(from, to)
	byMonth := make(map[string][]availability.Booking, len(months))
	var missing []string
	for _, m := range months {
		if s.cache == nil {
			missing = append(missing, m)
			continue
		}
		cached, ok, err := s.cache.GetMonth(ctx, m)
		switch {
		case err != nil:
			s.metrics.ObserveCache("error")
			s.logger.Warn("availability cache read failed", "month", m, "error", err)
			missing = append(missing, m)
		case ok:
			s.metrics.ObserveCache("hit")
			byMonth[m] = cached
		default:
			s.metrics.ObserveCache("miss")
			missing = append(missing, m)
		}
	}

	if len(missing) > 0 {
		all, err := s.repo.List(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		loaded := s.bucketByMonth(all)
		for _, m := range missing {
			byMonth[m] = loaded[m]
			if s.cache != nil {
				if err := s.cache.SetMonth(ctx, m, loaded[m]); err != nil {
					s.logger.Warn("availability cache write failed", "month", m, "error", err)
				}
			}
		}
	}

	fromKey, toKey := availability.DayKey(from, s.loc), availability.DayKey(to, s.loc)
	out := []availability.Booking{}
	for _, m := range months {
		for _, b := range byMonth[m] {
			key, ok := availability.RawDayKey(b.Date, s.loc)
			if ok && key >= fromKey && key < toKey {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (s *Service) bucketByMonth(all []leads.RawAppointment) map[string][]availability.Booking {
	out := make(map[string][]availability.Booking)
	for _, raw := range all {
		if strings.TrimSpace(raw.Time) == "" {
			continue
		}
		m := s.monthOf(raw.Date)
		if m == "" {
			continue
		}
		out[m] = append(out[m], availability.Booking{Date: raw.Date, Time: raw.Time})
	}
	for m := range out {
		sort.SliceStable(out[m], func(i, j int) bool { return out[m][i].Date < out[m][j].Date })
	}
	return out
}

func monthsBetween(from, to time.Time) []string {
	var out []string
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	for cur.Before(to) {
		out = append(out, MonthKey(cur))
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// widgetPolicy reports whether the adjacency rule applies to policy. The admin
// grid books any free slot.
func widgetPolicy(p slots.Policy) bool {
	switch p.Name() {
	case slots.PolicyWidget, slots.PolicyWidgetExtended:
		return true
	}
	return false
}

// DayView is the public availability of one calendar day.
type DayView struct {
	Date        string       `json:"date"`
	Policy      string       `json:"policy"`
	FullyBooked bool         `json:"fullyBooked"`
	Slots       []slots.Slot `json:"slots"`
}

// Day computes the slots of date under policy.
func (s *Service) Day(ctx context.Context, date time.Time, policy slots.Policy, now time.Time) (DayView, error) {
	day := availability.CalendarDay(date, s.loc)
	bookings, err := s.Bookings(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return DayView{}, err
	}
	engine := availability.NewEngine(policy,
		availability.WithLocation(s.loc),
		availability.WithThirtyMinuteRule(s.thirtyMinuteRule && widgetPolicy(policy)),
	)
	return DayView{
		Date:        availability.DayKey(day, s.loc),
		Policy:      policy.Name(),
		FullyBooked: engine.IsFullyBooked(bookings, day),
		Slots:       engine.Slots(bookings, day, now),
	}, nil
}

// FullyBookedDays returns the fully booked days of a month under policy.
func (s *Service) FullyBookedDays(ctx context.Context, year int, month time.Month, policy slots.Policy) ([]int, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	bookings, err := s.Bookings(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("appointments: fully booked days: %w", err)
	}
	return availability.FullyBookedDates(bookings, year, month, policy, s.loc), nil
}
