package main

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/config"
	"github.com/md-rashed-zaman/slotbook/libs/db"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/libs/metrics"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/libs/runtime"
	"github.com/md-rashed-zaman/slotbook/services/auth-service/internal/handlers"
	"github.com/md-rashed-zaman/slotbook/services/auth-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/auth-service/internal/tokens"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "auth-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	defer otelx.Start(ctx, service, logger)()

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

	signer, err := buildSigner()
	if err != nil {
		logger.Error("failed to init jwt signer", "err", err)
		panic(err)
	}
	issuerName := config.String("JWT_ISSUER", "")
	issuer := tokens.NewIssuer(signer, issuerName, config.Duration("JWT_TTL", time.Hour))

	vcfg := signer.Verification()
	vcfg.Issuer = issuerName
	vcfg.Leeway = config.Duration("JWT_LEEWAY", 30*time.Second)
	verifier, err := auth.NewVerifier(vcfg)
	if err != nil {
		logger.Error("auth verifier init failed", "err", err)
		panic(err)
	}

	h := handlers.NewAuthHandler(storage.NewRepository(pool), issuer, logger, config.Int("BCRYPT_COST", bcrypt.DefaultCost))
	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg, service)
	limiter := httpx.NewMemoryLimiter(config.Int("AUTH_RATE_LIMIT", 20), time.Minute)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
	)
	mux.Handle("/metrics", metrics.Handler(reg))

	limited := httpx.RateLimit(limiter, logger, true)
	authenticated := httpx.RequireAuth(verifier)
	routes := map[string]http.Handler{
		"/api/v1/auth/register":  httpx.Chain(http.HandlerFunc(h.Register), limited),
		"/api/v1/auth/login":     httpx.Chain(http.HandlerFunc(h.Login), limited),
		"/api/v1/auth/me":        httpx.Chain(http.HandlerFunc(h.Me), authenticated),
		"/api/v1/auth/staff":     httpx.Chain(http.HandlerFunc(h.AddStaff), authenticated, httpx.RequireRole(storage.RoleOwner)),
		"/.well-known/jwks.json": http.HandlerFunc(h.JWKS),
	}
	for route, handler := range routes {
		mux.Handle(route, httpMetrics.Wrap(route, handler))
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(64<<10),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "auth")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.Serve(ctx, srv, logger)
}

// buildSigner prefers an RS256 key so downstream services can verify through JWKS.
func buildSigner() (tokens.Signer, error) {
	if pemKey := config.String("JWT_PRIVATE_KEY_PEM", ""); pemKey != "" {
		return tokens.NewRS256Signer([]byte(pemKey), config.String("JWT_KID", ""))
	}
	return tokens.NewHS256Signer(config.String("JWT_SECRET", "dev-secret"))
}
