package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/libs/metrics"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/outbox"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/handlers"
	bookingmetrics "github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newLimiter(ctx context.Context, logger *slog.Logger) (httpx.Limiter, func()) {
	limit := config.Int("PUBLIC_RATE_LIMIT", 60)
	window := config.Duration("PUBLIC_RATE_WINDOW", time.Minute)

	redisURL := config.String("REDIS_URL", "")
	if redisURL == "" {
		return httpx.NewMemoryLimiter(limit, window), func() {}
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL; using in-memory rate limiter", "err", err)
		return httpx.NewMemoryLimiter(limit, window), func() {}
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping failed", "err", err)
	}
	return httpx.NewRedisLimiter(rdb, limit, window, "ratelimit:booking"), func() { _ = rdb.Close() }
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	defer otelx.Start(ctx, service, logger)()

	loc, err := time.LoadLocation(config.String("SLOTBOOK_TIMEZONE", "Asia/Jerusalem"))
	if err != nil {
		logger.Error("invalid SLOTBOOK_TIMEZONE", "err", err)
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.PoolConfig{
		MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		MinConns: int32(config.Int("DB_MIN_CONNS", 1)),
	})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go publisher.Run(ctx)

	verifier, err := auth.VerifierFromEnv()
	if err != nil {
		logger.Error("auth verifier init failed", "err", err)
		panic(err)
	}

	limiter, closeLimiter := newLimiter(ctx, logger)
	defer closeLimiter()

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg, service)

	h := handlers.New(storage.NewRepository(pool), logger, handlers.Config{
		Location: loc,
		Metrics:  bookingmetrics.NewBooking(reg),
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.Handle("/metrics", metrics.Handler(reg))

	cors := httpx.WithCORS(httpx.CORSPolicy{
		AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
		MaxAge:         10 * time.Minute,
	})
	failOpen := config.Bool("RATE_LIMIT_FAIL_OPEN", true)
	public := map[string]http.HandlerFunc{
		"/api/v1/public/slots":    h.Slots,
		"/api/v1/public/meetings": h.WebsiteMeeting,
		"/api/v1/public/website":  h.Website,
		"/api/v1/public/contact":  h.ContactUs,
	}
	for route, fn := range public {
		handler := httpx.Chain(fn, cors, httpx.RateLimit(limiter, logger, failOpen))
		mux.Handle(route, httpMetrics.Wrap(route, handler))
	}

	authenticated := map[string]http.HandlerFunc{
		"/api/v1/meetings":         h.AddMeeting,
		"/api/v1/meetings/delete":  h.DeleteMeeting,
		"/api/v1/meetings/confirm": h.ConfirmMeeting,
		"/api/v1/vacations":        h.AddVacation,
		"/api/v1/notifications":    h.Notifications,
	}
	for route, fn := range authenticated {
		handler := httpx.Chain(fn, cors, httpx.RequireAuth(verifier))
		mux.Handle(route, httpMetrics.Wrap(route, handler))
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("HTTP_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}
