package httpx

import (
	"context"
	"net/http"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
)

// Identity headers are overwritten from the verified token so handlers never trust client-sent values.
const (
	BusinessIDHeader = "X-Business-Id"
	UserIDHeader     = "X-User-Id"
	RoleHeader       = "X-Role"
)

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

func RequireAuth(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			r.Header.Set(BusinessIDHeader, claims.BusinessID)
			r.Header.Set(UserIDHeader, claims.Subject)
			r.Header.Set(RoleHeader, claims.Role)
			ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(*auth.Claims)
	return c, ok
}

// RequireRole allows requests whose verified role is one of roles. It must run after RequireAuth.
func RequireRole(roles ...string) Middleware {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[c.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StripIdentity drops client-sent identity headers on routes that do not authenticate.
func StripIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(BusinessIDHeader)
		r.Header.Del(UserIDHeader)
		r.Header.Del(RoleHeader)
		next.ServeHTTP(w, r)
	})
}
