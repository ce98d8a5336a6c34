package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testClaims(businessID string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		BusinessID: businessID,
		Role:       "owner",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestHS256RoundTrip(t *testing.T) {
	token, err := SignHS256(testClaims("biz-1", time.Hour), "test-secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	v, err := NewVerifier(VerifierConfig{HSSecret: "test-secret"})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	claims, err := v.Verify(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.BusinessID != "biz-1" || claims.Subject != "user-1" || claims.Role != "owner" {
		t.Fatalf("claims mismatch: got %+v", claims)
	}

	wrong, _ := NewVerifier(VerifierConfig{HSSecret: "wrong-secret"})
	if _, err := wrong.Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestVerifyRejectsExpiredAndMissingBusiness(t *testing.T) {
	v, _ := NewVerifier(VerifierConfig{HSSecret: "s"})

	expired, _ := SignHS256(testClaims("biz-1", -time.Hour), "s")
	if _, err := v.Verify(context.Background(), expired); err == nil {
		t.Fatal("expected expired token to fail")
	}

	noBiz, _ := SignHS256(testClaims("", time.Hour), "s")
	if _, err := v.Verify(context.Background(), noBiz); err == nil {
		t.Fatal("expected token without business_id to fail")
	}
}

func TestRS256ViaJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "kid-1",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	defer srv.Close()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, testClaims("biz-2", time.Hour))
	tok.Header["kid"] = "kid-1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	v, _ := NewVerifier(VerifierConfig{Keys: NewJWKSClient(srv.URL, time.Minute)})
	claims, err := v.Verify(context.Background(), signed)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.BusinessID != "biz-2" {
		t.Fatalf("claims mismatch: got %+v", claims)
	}

	tok.Header["kid"] = "unknown"
	unknown, _ := tok.SignedString(key)
	if _, err := v.Verify(context.Background(), unknown); err == nil {
		t.Fatal("expected unknown kid to fail")
	}
}

func TestNewVerifierNeedsKeys(t *testing.T) {
	if _, err := NewVerifier(VerifierConfig{}); err == nil {
		t.Fatal("expected error without secret or key source")
	}
}
