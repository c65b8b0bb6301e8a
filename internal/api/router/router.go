package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/muvance-crm/internal/appointments"
	httpmiddleware "github.com/wolfman30/muvance-crm/internal/http/middleware"
	"github.com/wolfman30/muvance-crm/internal/realtime"
	"github.com/wolfman30/muvance-crm/internal/users"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Appointments *appointments.Handler
	Users        *users.Handler
	Tokens       httpmiddleware.TokenVerifier

	// Optional
	Feed           http.Handler
	MetricsHandler http.Handler
	BookingLimiter *httpmiddleware.RateLimiter
	CORS           httpmiddleware.CORSConfig
	HealthChecks   map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Appointments == nil || cfg.Users == nil || cfg.Tokens == nil {
		panic("router: appointments, users and token verifier are required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if len(cfg.CORS.Origins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORS))
	}

	// Public: login, widget booking, availability, probes.
	r.Group(func(public chi.Router) {
		public.Get("/health", health(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Post("/api/login", cfg.Users.Login)

		create := http.Handler(http.HandlerFunc(cfg.Appointments.Create))
		if cfg.BookingLimiter != nil {
			create = httpmiddleware.RateLimit(cfg.BookingLimiter)(create)
		}
		public.Method(http.MethodPost, "/api/appointments", create)

		public.Route("/api/availability", func(r chi.Router) {
			r.Get("/", cfg.Appointments.Bookings)
			r.Get("/day", cfg.Appointments.Day)
			r.Get("/month", cfg.Appointments.Month)
		})
	})

	// Operator console.
	r.Group(func(op chi.Router) {
		op.Use(httpmiddleware.BearerAuth(cfg.Tokens))
		op.Get("/api/appointments", cfg.Appointments.List)
		op.Patch("/api/appointments/{id}", cfg.Appointments.Update)
		op.Delete("/api/appointments/{id}", cfg.Appointments.Delete)
		if cfg.Feed != nil {
			op.Handle(realtime.FeedPath, cfg.Feed)
		}
		op.With(httpmiddleware.RequireAdmin).Post("/api/settings/add-user", cfg.Users.AddUser)
	})

	return r
}

func health(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := map[string]any{"status": "ok"}
		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			status = http.StatusServiceUnavailable
			resp["status"] = "degraded"
			resp["failed"] = failed
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
