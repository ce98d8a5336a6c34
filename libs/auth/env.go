package auth

import (
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/config"
)

// VerifierFromEnv builds a Verifier from JWT_SECRET, JWKS_URL, JWT_ISSUER and JWT_LEEWAY.
func VerifierFromEnv() (*Verifier, error) {
	cfg := VerifierConfig{
		HSSecret: config.String("JWT_SECRET", ""),
		Issuer:   config.String("JWT_ISSUER", ""),
		Leeway:   config.Duration("JWT_LEEWAY", 30*time.Second),
	}
	if url := config.String("JWKS_URL", ""); url != "" {
		cfg.Keys = NewJWKSClient(url, config.Duration("JWKS_CACHE_TTL", 10*time.Minute))
	}
	return NewVerifier(cfg)
}
