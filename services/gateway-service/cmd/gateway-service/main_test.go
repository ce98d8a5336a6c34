package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/libs/httpx"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, raw string) (*auth.Claims, error) {
	switch raw {
	case "Bearer owner":
		return &auth.Claims{BusinessID: "biz-1", Role: "owner"}, nil
	case "Bearer staff":
		return &auth.Claims{BusinessID: "biz-1", Role: "staff"}, nil
	}
	return nil, auth.ErrInvalidToken
}

type seen struct {
	path     string
	business string
}

func backend(t *testing.T, name string, hits *[]string, last *seen) *url.URL {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits = append(*hits, name)
		*last = seen{path: r.URL.Path, business: r.Header.Get(httpx.BusinessIDHeader)}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return u
}

func newTestGateway(t *testing.T) (http.Handler, *[]string, *seen) {
	t.Helper()
	var hits []string
	var last seen
	mux := http.NewServeMux()
	registerRoutes(mux, upstreams{
		Auth:     backend(t, "auth", &hits, &last),
		Booking:  backend(t, "booking", &hits, &last),
		Business: backend(t, "business", &hits, &last),
		Stats:    backend(t, "stats", &hits, &last),
	}, stubVerifier{}, func(next http.Handler) http.Handler { return next })
	return mux, &hits, &last
}

func TestGatewayRoutesToUpstreams(t *testing.T) {
	gw, hits, last := newTestGateway(t)

	cases := []struct {
		path  string
		token string
		want  string
	}{
		{"/api/v1/auth/login", "", "auth"},
		{"/.well-known/jwks.json", "", "auth"},
		{"/api/v1/public/slots", "", "booking"},
		{"/api/v1/public/site-visit", "", "stats"},
		{"/api/v1/meetings/confirm", "Bearer owner", "booking"},
		{"/api/v1/stats/month", "Bearer owner", "stats"},
		{"/api/v1/business/profile", "Bearer owner", "business"},
	}
	for _, tc := range cases {
		*hits = nil
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", tc.token)
		}
		rec := httptest.NewRecorder()
		gw.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.path, rec.Code)
		}
		if len(*hits) != 1 || (*hits)[0] != tc.want {
			t.Fatalf("%s: hits = %v, want %s", tc.path, *hits, tc.want)
		}
		if last.path != tc.path {
			t.Fatalf("%s: upstream saw %s", tc.path, last.path)
		}
	}
}

func TestGatewayRequiresAuthOnPrivateRoutes(t *testing.T) {
	gw, hits, _ := newTestGateway(t)

	rec := httptest.NewRecorder()
	gw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/meetings", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/month", nil)
	req.Header.Set("Authorization", "Bearer staff")
	rec = httptest.NewRecorder()
	gw.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff on stats: status = %d, want 403", rec.Code)
	}
	if len(*hits) != 0 {
		t.Fatalf("rejected requests reached upstreams: %v", *hits)
	}
}

func TestGatewayStripsSpoofedBusinessOnPublicRoutes(t *testing.T) {
	gw, _, last := newTestGateway(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/website?id=biz-1", nil)
	req.Header.Set(httpx.BusinessIDHeader, "spoofed")
	gw.ServeHTTP(httptest.NewRecorder(), req)
	if last.business != "" {
		t.Fatalf("upstream saw business %q", last.business)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer owner")
	req.Header.Set(httpx.BusinessIDHeader, "spoofed")
	gw.ServeHTTP(httptest.NewRecorder(), req)
	if last.business != "biz-1" {
		t.Fatalf("upstream saw business %q, want biz-1", last.business)
	}
}
