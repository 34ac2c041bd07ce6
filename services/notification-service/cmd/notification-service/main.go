package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seiflawfirm/site/libs/config"
	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/libs/email"
	"github.com/seiflawfirm/site/libs/httpx"
	"github.com/seiflawfirm/site/libs/kafkax"
	otelx "github.com/seiflawfirm/site/libs/otel"
	"github.com/seiflawfirm/site/libs/runtime"
	"github.com/seiflawfirm/site/services/notification-service/internal/consumer"
	"github.com/seiflawfirm/site/services/notification-service/internal/inbox"
	"github.com/seiflawfirm/site/services/notification-service/internal/notify"
	"github.com/seiflawfirm/site/services/notification-service/internal/reminders"
	"github.com/seiflawfirm/site/services/notification-service/internal/storage"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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
	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	sender, err := email.FromEnv(ctx, logger)
	if err != nil {
		panic(err)
	}

	reg := prometheus.NewRegistry()
	sentTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "notification",
		Name:      "emails_total",
		Help:      "Notification emails by kind and outcome",
	}, []string{"kind", "status"})
	reg.MustRegister(sentTotal)

	loc, err := time.LoadLocation(config.String("SITE_TIMEZONE", "Africa/Casablanca"))
	if err != nil {
		logger.Warn("invalid SITE_TIMEZONE; using UTC", "err", err)
		loc = time.UTC
	}
	lead := config.Duration("REMINDER_LEAD", 24*time.Hour)

	notifications := storage.NewRepository(pool)
	opts := []notify.Option{
		notify.WithObserver(func(kind, status string) { sentTotal.WithLabelValues(kind, status).Inc() }),
	}
	if config.Bool("REMINDERS_ENABLED", true) {
		reminderRepo := reminders.NewRepository(pool)
		opts = append(opts, notify.WithReminders(reminderRepo, loc, lead))
		worker := reminders.NewWorker(pool, reminderRepo, sender, notifications, notify.ReminderMessage, logger, reminders.WorkerConfig{
			Interval: config.Duration("REMINDER_POLL_INTERVAL", 30*time.Second),
			Backoff:  config.Duration("REMINDER_RETRY_BACKOFF", 5*time.Minute),
			Lead:     lead,
			Location: loc,
		})
		go worker.Run(ctx)
	}
	notifier := notify.New(sender, notifications,
		config.String("FIRM_INBOX", config.String("CONTACT_TO", "ayoub.seif@seiflawfirm.com")),
		logger,
		opts...,
	)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		reader := consumer.NewReader(consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
			Topics:  notify.Topics,
		})
		go consumer.New(logger, reader, inbox.NewRepository(pool), notifier.Handle).Run(ctx)
	} else {
		logger.Warn("KAFKA_BROKERS not set; no events will be consumed")
	}

	router := runtime.NewBaseRouter(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler := httpx.Chain(router,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelx.HTTPHandler(handler, "notification"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}
