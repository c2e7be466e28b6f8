package auth

import (
	"context"
	"net/http"
	"strings"

	"ordering-platform/internal/domain"
)

type contextKey string

const actorCtxKey contextKey = "actor"

// Middleware resolves the caller once per request and stores the actor in
// the context. A request without a token passes through as the anonymous
// customer; a request with a bad token is refused outright.
func Middleware(g *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := g.Resolve(BearerToken(r))
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), actorCtxKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header, falling back
// to the "token" query parameter for websocket clients that cannot set
// headers.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h != "" {
		parts := strings.Split(h, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// ActorFromContext returns the resolved actor, or the anonymous customer if
// the middleware never ran.
func ActorFromContext(ctx context.Context) domain.Actor {
	if a, ok := ctx.Value(actorCtxKey).(domain.Actor); ok {
		return a
	}
	return domain.Anonymous()
}
