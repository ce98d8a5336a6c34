package tokens

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
)

func TestHS256IssuerVerifies(t *testing.T) {
	signer, err := NewHS256Signer("dev-secret")
	if err != nil {
		t.Fatalf("NewHS256Signer: %v", err)
	}
	issuer := NewIssuer(signer, "slotbook-auth", time.Hour)
	token, exp, err := issuer.Issue("user-1", "biz-1", "owner")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}
	if issuer.JWKS() != nil {
		t.Fatal("hs256 must not publish keys")
	}

	v, _ := auth.NewVerifier(auth.VerifierConfig{HSSecret: "dev-secret", Issuer: "slotbook-auth"})
	claims, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.BusinessID != "biz-1" || claims.Role != "owner" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestHS256RequiresSecret(t *testing.T) {
	if _, err := NewHS256Signer(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestRS256VerifiesThroughJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	signer, err := NewRS256Signer(pemBytes, "")
	if err != nil {
		t.Fatalf("NewRS256Signer: %v", err)
	}
	issuer := NewIssuer(signer, "", time.Hour)
	keys := issuer.JWKS()
	if len(keys) != 1 || keys[0]["kid"] != KeyID(&key.PublicKey) {
		t.Fatalf("unexpected jwks: %+v", keys)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
	}))
	defer srv.Close()

	token, _, err := issuer.Issue("user-2", "biz-2", "staff")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	v, _ := auth.NewVerifier(auth.VerifierConfig{Keys: auth.NewJWKSClient(srv.URL, time.Minute)})
	claims, err := v.Verify(context.Background(), "Bearer "+token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.BusinessID != "biz-2" || claims.Role != "staff" {
		t.Fatalf("claims mismatch: %+v", claims)
	}

	local, _ := auth.NewVerifier(signer.Verification())
	if _, err := local.Verify(context.Background(), token); err != nil {
		t.Fatalf("local Verify: %v", err)
	}
}

func TestRS256RejectsBadPEM(t *testing.T) {
	if _, err := NewRS256Signer([]byte("not a key"), ""); err == nil {
		t.Fatal("expected error for invalid pem")
	}
}
