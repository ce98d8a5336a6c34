package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/auth-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/auth-service/internal/tokens"
	"golang.org/x/crypto/bcrypt"
)

const secret = "test-secret"

type memUsers struct {
	byEmail    map[string]storage.User
	businesses map[string]string
}

func (m *memUsers) CreateOwner(_ context.Context, u storage.User, name string) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return storage.ErrEmailTaken
	}
	m.businesses[u.BusinessID] = name
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) CreateStaff(_ context.Context, u storage.User) error {
	if _, ok := m.businesses[u.BusinessID]; !ok {
		return storage.ErrUnknownOwner
	}
	if _, ok := m.byEmail[u.Email]; ok {
		return storage.ErrEmailTaken
	}
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUsers) ByEmail(_ context.Context, email string) (storage.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func newTestHandler(t *testing.T) (*AuthHandler, *memUsers, *auth.Verifier) {
	t.Helper()
	signer, err := tokens.NewHS256Signer(secret)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	users := &memUsers{byEmail: map[string]storage.User{}, businesses: map[string]string{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v, _ := auth.NewVerifier(auth.VerifierConfig{HSSecret: secret})
	return NewAuthHandler(users, tokens.NewIssuer(signer, "", time.Hour), logger, bcrypt.MinCost), users, v
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeToken(t *testing.T, rec *httptest.ResponseRecorder) tokenResponse {
	t.Helper()
	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestRegisterIssuesOwnerToken(t *testing.T) {
	h, users, v := newTestHandler(t)

	rec := post(h.Register, `{"email":"Dana@Example.com","password":"longenough","business_name":"Studio"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeToken(t, rec)
	claims, err := v.Verify(context.Background(), resp.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Role != storage.RoleOwner || claims.BusinessID != resp.BusinessID {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	stored, ok := users.byEmail["dana@example.com"]
	if !ok || users.businesses[stored.BusinessID] != "Studio" {
		t.Fatalf("owner not stored: %+v", users)
	}
	if stored.PasswordHash == "longenough" {
		t.Fatal("password stored in clear")
	}

	rec = post(h.Register, `{"email":"dana@example.com","password":"longenough","business_name":"Other"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
}

func TestRegisterValidates(t *testing.T) {
	h, _, _ := newTestHandler(t)
	for _, body := range []string{
		`{"email":"nope","password":"longenough","business_name":"S"}`,
		`{"email":"a@b.c","password":"short","business_name":"S"}`,
		`{"email":"a@b.c","password":"longenough"}`,
		`{"email":"a@b.c","password":"longenough","business_name":"S","extra":1}`,
	} {
		if rec := post(h.Register, body); rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d", body, rec.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	h, _, v := newTestHandler(t)
	post(h.Register, `{"email":"dana@example.com","password":"longenough","business_name":"Studio"}`)

	rec := post(h.Login, `{"email":" DANA@example.com","password":"longenough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if _, err := v.Verify(context.Background(), decodeToken(t, rec).AccessToken); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if rec := post(h.Login, `{"email":"dana@example.com","password":"wrong-pass"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d", rec.Code)
	}
	if rec := post(h.Login, `{"email":"ghost@example.com","password":"longenough"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d", rec.Code)
	}
}

func TestAddStaffAndMe(t *testing.T) {
	h, _, v := newTestHandler(t)
	owner := decodeToken(t, post(h.Register, `{"email":"dana@example.com","password":"longenough","business_name":"Studio"}`))

	staff := httpx.Chain(http.HandlerFunc(h.AddStaff), httpx.RequireAuth(v), httpx.RequireRole(storage.RoleOwner))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/staff", strings.NewReader(`{"email":"sam@example.com","password":"longenough"}`))
	req.Header.Set("Authorization", "Bearer "+owner.AccessToken)
	rec := httptest.NewRecorder()
	staff.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add staff status = %d body=%s", rec.Code, rec.Body.String())
	}

	login := decodeToken(t, post(h.Login, `{"email":"sam@example.com","password":"longenough"}`))
	if login.Role != storage.RoleStaff || login.BusinessID != owner.BusinessID {
		t.Fatalf("staff token mismatch: %+v", login)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/staff", strings.NewReader(`{"email":"x@example.com","password":"longenough"}`))
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec = httptest.NewRecorder()
	staff.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff adding staff status = %d", rec.Code)
	}

	me := httpx.Chain(http.HandlerFunc(h.Me), httpx.RequireAuth(v))
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	rec = httptest.NewRecorder()
	me.ServeHTTP(rec, req)
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if rec.Code != http.StatusOK || body["role"] != storage.RoleStaff || body["business_id"] != owner.BusinessID {
		t.Fatalf("me = %d %+v", rec.Code, body)
	}
}

func TestJWKSUnavailableForHS256(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.JWKS(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
