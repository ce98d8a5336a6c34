package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by slotbook access tokens.
type Claims struct {
	BusinessID string `json:"business_id"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// KeySource resolves RS256 verification keys by kid.
type KeySource interface {
	Key(ctx context.Context, kid string) (any, error)
}

type VerifierConfig struct {
	HSSecret string
	Keys     KeySource
	Issuer   string
	Leeway   time.Duration
}

// Verifier validates HS256 tokens with a shared secret and RS256 tokens against a KeySource.
type Verifier struct {
	cfg VerifierConfig
}

func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.HSSecret == "" && cfg.Keys == nil {
		return nil, errors.New("auth: verifier needs a secret or a key source")
	}
	return &Verifier{cfg: cfg}, nil
}

func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods()),
		jwt.WithLeeway(v.cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(v.cfg.HSSecret), nil
		case *jwt.SigningMethodRSA:
			kid, _ := t.Header["kid"].(string)
			return v.cfg.Keys.Key(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.BusinessID == "" {
		return nil, fmt.Errorf("%w: missing business_id", ErrInvalidToken)
	}
	return claims, nil
}

func (v *Verifier) methods() []string {
	var methods []string
	if v.cfg.HSSecret != "" {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if v.cfg.Keys != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	return methods
}

// SignHS256 issues a token for local development and tests.
func SignHS256(claims Claims, secret string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
