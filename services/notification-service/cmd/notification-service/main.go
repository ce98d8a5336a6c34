package main

import (
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/events"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/inbox"
	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/libs/metrics"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	notificationmetrics "github.com/md-rashed-zaman/slotbook/services/notification-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/notification-service/internal/notifier"
	"github.com/md-rashed-zaman/slotbook/services/notification-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/notification-service/internal/whatsapp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
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

	defer otelx.Start(ctx, service, logger)()

	loc, err := time.LoadLocation(config.String("WHATSAPP_TIMEZONE", "Asia/Jerusalem"))
	if err != nil {
		logger.Error("invalid WHATSAPP_TIMEZONE", "err", err)
		panic(err)
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.PoolConfig{MaxConns: int32(config.Int("DB_MAX_CONNS", 5))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var sender whatsapp.Sender = whatsapp.NewNoopSender()
	if config.String("WHATSAPP_PROVIDER", "noop") == "graph" {
		graph, err := whatsapp.NewGraphSender(whatsapp.GraphConfig{
			BaseURL:       config.String("WHATSAPP_GRAPH_BASE_URL", whatsapp.DefaultGraphBase),
			APIVersion:    config.String("WHATSAPP_API_VERSION", "v17.0"),
			PhoneNumberID: config.String("WHATSAPP_PHONE_NUMBER_ID", ""),
			AccessToken:   config.String("WHATSAPP_ACCESS_TOKEN", ""),
			Timeout:       config.Duration("WHATSAPP_TIMEOUT", 10*time.Second),
		})
		if err != nil {
			logger.Error("whatsapp sender init failed", "err", err)
			panic(err)
		}
		sender = graph
	}
	logger.Info("whatsapp sender configured", "provider", sender.ProviderID())

	reg := metrics.NewRegistry()
	n := notifier.New(sender, storage.NewRepository(pool), logger, loc, notificationmetrics.NewNotification(reg))

	brokers := config.String("KAFKA_BROKERS", "")
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		consumer := kafkax.NewConsumer(logger, inbox.NewRepository(pool), kafkax.ConsumerConfig{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", service),
			Topic:   config.String("KAFKA_CONSUME_TOPIC", events.TopicMeetingConfirmed),
		}, n.MeetingConfirmed)
		go consumer.Run(ctx)
	} else {
		logger.Warn("meeting.confirmed consumer disabled (no kafka brokers configured)")
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	mux.Handle("/metrics", metrics.Handler(reg))

	httpHandler := httpx.Chain(mux, httpx.WithRequestID, httpx.WithAccessLog(logger))
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}
