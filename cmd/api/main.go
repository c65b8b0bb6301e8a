package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/muvance-crm/cmd/mainconfig"
	"github.com/wolfman30/muvance-crm/internal/api/router"
	"github.com/wolfman30/muvance-crm/internal/appointments"
	"github.com/wolfman30/muvance-crm/internal/booking"
	appconfig "github.com/wolfman30/muvance-crm/internal/config"
	"github.com/wolfman30/muvance-crm/internal/events"
	httpmiddleware "github.com/wolfman30/muvance-crm/internal/http/middleware"
	"github.com/wolfman30/muvance-crm/internal/notify"
	"github.com/wolfman30/muvance-crm/internal/observability/metrics"
	"github.com/wolfman30/muvance-crm/internal/realtime"
	"github.com/wolfman30/muvance-crm/internal/slots"
	"github.com/wolfman30/muvance-crm/internal/users"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting muvance CRM API server", "env", cfg.Env, "port", cfg.Port, "storage", cfg.StorageDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	loc, err := time.LoadLocation(cfg.CalendarTimezone)
	if err != nil {
		return fmt.Errorf("calendar timezone: %w", err)
	}
	phone, err := booking.ParsePhonePolicy(cfg.PhonePolicy)
	if err != nil {
		return err
	}
	bookingPolicy := booking.Policy{Phone: phone, RequireWebsite: cfg.RequireWebsite}
	widgetSlots, err := slots.PolicyByName(cfg.WidgetSlotPolicy)
	if err != nil {
		return err
	}

	metricsHandler, crmMetrics := setupMetrics()
	checks := map[string]router.HealthCheck{}

	store, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	for name, check := range store.checks {
		checks[name] = check
	}

	cache, redisCheck, err := setupCache(cfg)
	if err != nil {
		return err
	}
	if redisCheck != nil {
		checks["redis"] = redisCheck
	}

	hub := realtime.NewHub(logger.Component("realtime"))
	publisher, closeEvents, err := setupEvents(ctx, cfg, store.pool, hub, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	email, err := setupEmail(ctx, cfg, logger)
	if err != nil {
		return err
	}

	svc := appointments.NewService(store.appointments, appointments.ServiceOptions{
		Cache:            cache,
		Publisher:        publisher,
		Notifier:         notify.NewBookingNotifier(email, cfg.NotifyToEmail, logger),
		Metrics:          crmMetrics,
		Logger:           logger.Component("appointments"),
		Location:         loc,
		ThirtyMinuteRule: cfg.ThirtyMinuteRule,
	})

	auth := users.NewService(store.users, cfg.JWTSecret, cfg.TokenTTL, logger.Component("users"))
	if err := auth.EnsureDefaultAdmin(ctx, cfg.DefaultAdminUsername, cfg.DefaultAdminEmail, cfg.DefaultAdminPassword); err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.BookingRateLimit, cfg.BookingRateBurst)
	sweepStop := make(chan struct{})
	defer close(sweepStop)
	go limiter.RunSweeper(5*time.Minute, sweepStop)

	handler := router.New(&router.Config{
		Logger:         logger,
		Appointments:   appointments.NewHandler(svc, bookingPolicy, widgetSlots, logger.Component("http")),
		Users:          users.NewHandler(auth, logger.Component("http")),
		Tokens:         auth,
		Feed:           hub,
		MetricsHandler: metricsHandler,
		BookingLimiter: limiter,
		CORS:           httpmiddleware.CORSConfig{Origins: cfg.CORSAllowedOrigins},
		HealthChecks:   checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupMetrics() (http.Handler, *metrics.CRMMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewCRMMetrics(reg)
}

type storage struct {
	appointments appointments.Repository
	users        users.Repository
	pool         *pgxpool.Pool
	checks       map[string]router.HealthCheck
	closers      []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// setupStorage picks the appointment store from STORAGE_DRIVER. Operator
// accounts live in Postgres whenever DATABASE_URL is set.
func setupStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*storage, error) {
	s := &storage{checks: map[string]router.HealthCheck{}}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.pool = pool
		s.closers = append(s.closers, pool.Close)
		s.checks["postgres"] = pool.Ping

		db, err := users.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = db.Close() })
		s.users = users.NewSQLRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, operator accounts are kept in memory")
		s.users = users.NewInMemoryRepository()
	}

	switch cfg.StorageDriver {
	case "", "memory":
		s.appointments = appointments.NewInMemoryRepository()
	case "postgres":
		if s.pool == nil {
			s.Close()
			return nil, errors.New("STORAGE_DRIVER=postgres requires DATABASE_URL")
		}
		s.appointments = appointments.NewPostgresRepository(s.pool)
	case "mongo":
		if cfg.MongoURI == "" {
			s.Close()
			return nil, errors.New("STORAGE_DRIVER=mongo requires MONGO_URI")
		}
		client, err := appointments.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Disconnect(context.Background()) })
		s.checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		s.appointments = appointments.NewMongoRepository(client.Database(cfg.MongoDatabase))
	default:
		s.Close()
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	return s, nil
}

func setupCache(cfg *appconfig.Config) (appointments.BookingCache, router.HealthCheck, error) {
	if cfg.RedisAddr == "" {
		return nil, nil, nil
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	check := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return appointments.NewRedisBookingCache(client, cfg.AvailabilityCacheTTL), check, nil
}

// setupEvents always feeds the realtime hub. With Postgres, events go through
// the outbox and a deliverer forwards them to RabbitMQ; without it they are
// published to RabbitMQ directly.
func setupEvents(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, hub *realtime.Hub, logger *logging.Logger) (events.Publisher, func(), error) {
	targets := []events.Publisher{hub}
	closeFn := func() {}
	if cfg.AMQPURL == "" {
		return events.NewFanout(logger, targets...), closeFn, nil
	}

	amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		return nil, nil, err
	}
	closeFn = func() { _ = amqpPub.Close() }

	if pool == nil {
		targets = append(targets, amqpPub)
		return events.NewFanout(logger, targets...), closeFn, nil
	}

	outbox := events.NewOutboxStore(pool)
	relay := events.NewRelay(outbox, amqpPub, events.RelayOptions{Logger: logger.Component("outbox")})
	go relay.Run(ctx)
	targets = append(targets, outbox)
	return events.NewFanout(logger, targets...), closeFn, nil
}

func setupEmail(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "":
		return notify.NewStubEmailSender(logger), nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, logger)
		if sender == nil {
			return nil, errors.New("EMAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY")
		}
		return sender, nil
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return notify.NewSESSender(mainconfig.NewSESClient(awsCfg, cfg), notify.SESConfig{
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}
