package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/seiflawfirm/site/libs/auth"
	"github.com/seiflawfirm/site/libs/config"
	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/libs/email"
	"github.com/seiflawfirm/site/libs/httpx"
	"github.com/seiflawfirm/site/libs/kafkax"
	otelx "github.com/seiflawfirm/site/libs/otel"
	"github.com/seiflawfirm/site/libs/runtime"
	"github.com/seiflawfirm/site/services/site-service/internal/availability"
	"github.com/seiflawfirm/site/services/site-service/internal/booking"
	"github.com/seiflawfirm/site/services/site-service/internal/handlers"
	"github.com/seiflawfirm/site/services/site-service/internal/media"
	"github.com/seiflawfirm/site/services/site-service/internal/metrics"
	"github.com/seiflawfirm/site/services/site-service/internal/outbox"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "site-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	issuer, err := auth.NewIssuer(jwtSecret, time.Duration(config.Int("SESSION_TTL_HOURS", 24))*time.Hour)
	if err != nil {
		panic(err)
	}

	loc, err := time.LoadLocation(config.String("SITE_TIMEZONE", "Africa/Casablanca"))
	if err != nil {
		logger.Warn("invalid SITE_TIMEZONE; using UTC", "err", err)
		loc = time.UTC
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	}

	// Redis backs rate limiting and booking sessions when configured; both
	// fall back to process memory for single-instance deployments.
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 30)
	var limiter httpx.Limiter
	var sessions booking.SessionStore
	sessionTTL := config.Duration("BOOKING_SESSION_TTL", booking.DefaultSessionTTL)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		limiter = httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		sessions = booking.NewRedisStore(rdb, sessionTTL)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("redis enabled", "addr", addr, "rate_limit_per_minute", limitPerMinute)
	} else {
		limiter = httpx.NewRateLimiter(limitPerMinute, time.Minute)
		sessions = booking.NewMemoryStore(sessionTTL, time.Now)
		logger.Info("redis not configured; using in-memory rate limiting and booking sessions")
	}

	outboxRepo := outbox.NewRepository()
	apptRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	blockedRepo := storage.NewBlockedDateRepository(pool)
	blogRepo := storage.NewBlogRepository(pool)
	adminRepo := storage.NewAdminRepository(pool)

	policy, err := availabilityPolicyFromEnv()
	if err != nil {
		panic(err)
	}
	availHandler := handlers.NewAvailabilityHandler(apptRepo, blockedRepo, availability.NewStoreSource(policy, blockedRepo), loc, logger)

	bookingSvc := booking.NewService(sessions, apptRepo,
		booking.WithObserver(func(mode booking.ModeKind, from, to booking.State) {
			m.ObserveTransition(string(mode), string(from), string(to))
		}),
		booking.WithWriteObserver(m.ObserveAppointmentWrite),
	)

	sender, err := email.FromEnv(ctx, logger)
	if err != nil {
		panic(err)
	}

	var covers handlers.CoverUploader
	if cfg, ok := media.ConfigFromEnv(); ok {
		store, err := media.NewCoverStore(cfg)
		if err != nil {
			logger.Error("cover storage disabled", "err", err)
		} else {
			covers = store
		}
	}

	var writer outbox.MessageWriter
	if brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", "")); len(brokers) > 0 {
		w := kafkax.NewWriter(brokers)
		defer func() { _ = w.Close() }()
		writer = w
	}
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		OnPublish: m.ObservePublished,
	})
	go publisher.Run(ctx, writer)

	secureCookie := config.Bool("COOKIE_SECURE", true)
	api := handlers.API{
		Appointments: handlers.NewAppointmentHandler(apptRepo, logger, m),
		Availability: availHandler,
		Booking:      handlers.NewBookingHandler(bookingSvc, apptRepo, availHandler, logger),
		Blog:         handlers.NewBlogHandler(blogRepo, covers, logger),
		Contact:      handlers.NewContactHandler(sender, config.String("CONTACT_TO", "ayoub.seif@seiflawfirm.com"), logger, m),
		Auth:         handlers.NewAuthHandler(adminRepo, issuer, secureCookie, logger),
		PublicWriteLimit: httpx.WithRateLimit(limiter, "public", config.Bool("RATE_LIMIT_FAIL_OPEN", true), func(err error) {
			logger.Warn("rate limiter error", "err", err)
		}),
	}

	router := runtime.NewBaseRouter(readyChecks...)
	router.Handle("/metrics", m.Handler())
	api.Mount(router, issuer)

	handler := httpx.Chain(router,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.List("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS"),
			AllowedHeaders:   config.List("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,Idempotency-Key"),
			ExposedHeaders:   []string{httpx.RequestIDHeader, "Retry-After"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           config.Duration("CORS_MAX_AGE", 10*time.Minute),
		}),
		httpx.WithSecurityHeaders,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, m.ObserveRequest),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 6<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelx.HTTPHandler(handler, "site"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}

func availabilityPolicyFromEnv() (availability.Policy, error) {
	p := availability.DefaultPolicy()
	blocked, err := availability.ParseDates(config.List("AVAILABILITY_BLOCKED_DATES", ""))
	if err != nil {
		return p, err
	}
	partial, err := availability.ParseDates(config.List("AVAILABILITY_PARTIAL_DATES", ""))
	if err != nil {
		return p, err
	}
	p.BlockedDates = blocked
	p.PartiallyBookedDates = partial
	p.FullyBookedThreshold = config.Int("AVAILABILITY_FULL_THRESHOLD", availability.DefaultFullyBookedThreshold)
	p.SimulatePartialBookings = config.Bool("AVAILABILITY_SIMULATE_PARTIAL", true)
	if slots := config.List("AVAILABILITY_SIMULATED_SLOTS", ""); len(slots) > 0 {
		p.SimulatedTakenSlots = p.SimulatedTakenSlots[:0]
		for _, raw := range slots {
			s, ok := availability.ParseSlot(raw)
			if !ok {
				return p, fmt.Errorf("AVAILABILITY_SIMULATED_SLOTS: unknown slot %q", raw)
			}
			p.SimulatedTakenSlots = append(p.SimulatedTakenSlots, s)
		}
	}
	return p, nil
}
