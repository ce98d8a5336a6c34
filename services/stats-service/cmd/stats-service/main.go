package main

import (
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/events"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/inbox"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/libs/metrics"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/stats-service/internal/handlers"
	statsmetrics "github.com/md-rashed-zaman/slotbook/services/stats-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/stats-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "stats-service")
	port, err := config.Port("PORT", "8086")
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

	verifier, err := auth.VerifierFromEnv()
	if err != nil {
		logger.Error("auth verifier init failed", "err", err)
		panic(err)
	}

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg, service)
	h := handlers.New(storage.NewRepository(pool, logger), logger, handlers.Config{
		Location: loc,
		Metrics:  statsmetrics.NewStats(reg),
	})

	brokers := config.String("KAFKA_BROKERS", "")
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		consumer := kafkax.NewConsumer(logger, inbox.NewRepository(pool), kafkax.ConsumerConfig{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   config.String("KAFKA_CONSUME_TOPIC", events.TopicCustomerCreated),
		}, h.CustomerCreated)
		go consumer.Run(ctx)
	} else {
		logger.Warn("customer.created consumer disabled (no kafka brokers configured)")
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.Handle("/metrics", metrics.Handler(reg))

	cors := httpx.WithCORS(httpx.CORSPolicy{
		AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
		MaxAge:         10 * time.Minute,
	})
	limiter := httpx.NewMemoryLimiter(config.Int("PUBLIC_RATE_LIMIT", 30), config.Duration("PUBLIC_RATE_WINDOW", time.Minute))

	mux.Handle("/api/v1/stats/month", httpMetrics.Wrap("/api/v1/stats/month",
		httpx.Chain(http.HandlerFunc(h.Month), cors, httpx.RequireAuth(verifier))))
	mux.Handle("/api/v1/public/site-visit", httpMetrics.Wrap("/api/v1/public/site-visit",
		httpx.Chain(http.HandlerFunc(h.SiteVisit), cors, httpx.RateLimit(limiter, logger, true))))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("HTTP_BODY_LIMIT_BYTES", 1<<16))),
		httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 15*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "stats")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}
