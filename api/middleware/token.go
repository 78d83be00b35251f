package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ecosheet/ecosheet-backend/pkg/logger"
)

type accessTokenKey struct{}

// AccessToken stashes the caller's Google access token on the request
// context. Requests without a token pass through: the audit trail can fall
// back to the relational store, and controllers that need the table store
// reject tokenless requests themselves.
func AccessToken(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			ctx := r.Context()
			if token != "" {
				ctx = WithAccessToken(ctx, token)
				if logg != nil {
					ctx = logg.WithField(ctx, "has_token", true)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(accessTokenKey{}).(string); ok {
		return token
	}
	return ""
}

func bearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if token == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
