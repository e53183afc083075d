package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/karimbh/advisorly/internal/availability"
	"github.com/karimbh/advisorly/internal/draft"
	"github.com/karimbh/advisorly/internal/handlers"
	"github.com/karimbh/advisorly/internal/outbox"
	"github.com/karimbh/advisorly/internal/storage"
	"github.com/karimbh/advisorly/libs/config"
	"github.com/karimbh/advisorly/libs/db"
	"github.com/karimbh/advisorly/libs/httpx"
	"github.com/karimbh/advisorly/libs/kafkax"
	otelx "github.com/karimbh/advisorly/libs/otel"
	"github.com/karimbh/advisorly/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
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
	if config.Bool("MIGRATE_ON_START", true) {
		if err := storage.Migrate(dbURL); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
	}

	pool, err := db.Open(ctx, dbURL, db.Options{
		MaxConns:        int32(config.Int("DB_MAX_CONNS", 10)),
		MaxConnLifetime: config.Duration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var rdb *redis.Client
	if redisURL := strings.TrimSpace(config.String("REDIS_URL", "")); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid redis url", "err", err)
			panic(err)
		}
		rdb = redis.NewClient(redisOpts)
		defer rdb.Close()
	}

	outboxRepo := outbox.NewRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo)
	scheduleRepo := storage.NewScheduleRepository(pool)

	generator := &availability.Generator{
		Calendar:     scheduleRepo,
		Bookings:     bookingRepo,
		MaxRangeDays: config.Int("SLOTS_MAX_RANGE_DAYS", availability.DefaultMaxRangeDays),
	}
	validator := &availability.Validator{
		Calendar: scheduleRepo,
		Bookings: bookingRepo,
	}

	brokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(generator, validator, bookingRepo, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, logger)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.HandleFunc("/api/v1/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/book", bookingHandler.Create)
	mux.HandleFunc("/api/v1/appointments", bookingHandler.List)
	mux.HandleFunc("/api/v1/appointments/cancel", bookingHandler.Cancel)
	mux.HandleFunc("/api/v1/appointments/reschedule", bookingHandler.Reschedule)
	mux.HandleFunc("/api/v1/working-hours", scheduleHandler.WorkingHours)
	if rdb != nil {
		draftStore := draft.NewStore(rdb, config.Duration("DRAFT_TTL", 30*time.Minute))
		draftHandler := handlers.NewDraftHandler(draftStore, logger)
		mux.HandleFunc("/api/v1/draft", draftHandler.Draft)
	} else {
		logger.Warn("REDIS_URL not set; booking drafts disabled")
	}

	limitRequests := config.Int("RATE_LIMIT_REQUESTS", 120)
	limitWindow := config.Duration("RATE_LIMIT_WINDOW", time.Minute)
	var rateLimit httpx.Middleware
	if rdb != nil {
		rateLimit = httpx.NewRedisRateLimiter(rdb, limitRequests, limitWindow, service).
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		rateLimit = httpx.NewRateLimiter(limitRequests, limitWindow).Middleware()
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type", handlers.TokenHeader},
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		rateLimit,
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
