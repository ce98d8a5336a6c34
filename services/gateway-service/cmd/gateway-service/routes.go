package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type upstreams struct {
	Auth     *url.URL
	Booking  *url.URL
	Business *url.URL
	Stats    *url.URL
}

// ownerRoles may manage the business and read its statistics.
var ownerRoles = []string{"owner", "admin"}

func registerRoutes(mux *http.ServeMux, up upstreams, verifier httpx.TokenVerifier, public httpx.Middleware) {
	authProxy := newProxy(up.Auth)
	bookingProxy := newProxy(up.Booking)
	businessProxy := newProxy(up.Business)
	statsProxy := newProxy(up.Stats)
	authenticated := httpx.RequireAuth(verifier)

	// auth-service checks its own bearer tokens on /me and /staff.
	registerProxy(mux, "/api/v1/auth", httpx.Chain(authProxy, httpx.StripIdentity, public))
	registerProxy(mux, "/.well-known/jwks.json", authProxy)
	registerProxy(mux, "/api/v1/public/site-visit", httpx.Chain(statsProxy, httpx.StripIdentity, public))
	registerProxy(mux, "/api/v1/public", httpx.Chain(bookingProxy, httpx.StripIdentity, public))

	registerProxy(mux, "/api/v1/meetings", httpx.Chain(bookingProxy, authenticated))
	registerProxy(mux, "/api/v1/vacations", httpx.Chain(bookingProxy, authenticated))
	registerProxy(mux, "/api/v1/notifications", httpx.Chain(bookingProxy, authenticated))
	registerProxy(mux, "/api/v1/stats", httpx.Chain(statsProxy, authenticated, httpx.RequireRole(ownerRoles...)))
	registerProxy(mux, "/api/v1/business", httpx.Chain(businessProxy, authenticated, httpx.RequireRole(ownerRoles...)))
}

func newProxy(target *url.URL) *httputil.ReverseProxy {
	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = otelhttp.NewTransport(http.DefaultTransport)
	return p
}

func registerProxy(mux *http.ServeMux, prefix string, handler http.Handler) {
	if !strings.HasSuffix(prefix, "/") {
		mux.Handle(prefix, handler)
		mux.Handle(prefix+"/", handler)
		return
	}
	mux.Handle(prefix, handler)
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
