package tokens

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/md-rashed-zaman/slotbook/libs/auth"
)

// Signer signs access tokens. JWKS is empty for symmetric signers.
type Signer interface {
	Sign(claims auth.Claims) (string, error)
	JWKS() []map[string]any
	// Verification returns a config that accepts this signer's own tokens.
	Verification() auth.VerifierConfig
}

type hs256Signer struct {
	secret string
}

func NewHS256Signer(secret string) (Signer, error) {
	if secret == "" {
		return nil, errors.New("tokens: hs256 secret is empty")
	}
	return &hs256Signer{secret: secret}, nil
}

func (s *hs256Signer) Sign(claims auth.Claims) (string, error) {
	return auth.SignHS256(claims, s.secret)
}

func (s *hs256Signer) JWKS() []map[string]any {
	return nil
}

func (s *hs256Signer) Verification() auth.VerifierConfig {
	return auth.VerifierConfig{HSSecret: s.secret}
}

type rs256Signer struct {
	key *rsa.PrivateKey
	kid string
}

// NewRS256Signer parses a PKCS#1 or PKCS#8 PEM key. An empty kid is derived from the public modulus.
func NewRS256Signer(pemBytes []byte, kid string) (Signer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, err
	}
	if kid == "" {
		kid = KeyID(&key.PublicKey)
	}
	return &rs256Signer{key: key, kid: kid}, nil
}

func (s *rs256Signer) Sign(claims auth.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

func (s *rs256Signer) JWKS() []map[string]any {
	pub := &s.key.PublicKey
	return []map[string]any{{
		"kty": "RSA",
		"kid": s.kid,
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}
}

func (s *rs256Signer) Verification() auth.VerifierConfig {
	return auth.VerifierConfig{Keys: localKeys{s.kid: &s.key.PublicKey}}
}

type localKeys map[string]*rsa.PublicKey

func (k localKeys) Key(_ context.Context, kid string) (any, error) {
	if key, ok := k[kid]; ok {
		return key, nil
	}
	return nil, auth.ErrKeyNotFound
}

func KeyID(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}

// Issuer stamps registered claims onto owner identities.
type Issuer struct {
	signer Signer
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(signer Signer, issuer string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{signer: signer, issuer: issuer, ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(userID, businessID, role string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	token, err := i.signer.Sign(auth.Claims{
		BusinessID: businessID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (i *Issuer) JWKS() []map[string]any {
	return i.signer.JWKS()
}
