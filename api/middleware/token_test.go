package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAccessTokenMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer prefix", "Bearer ya29.token-value", "ya29.token-value"},
		{"lowercase prefix", "bearer ya29.token-value", "ya29.token-value"},
		{"raw token", "ya29.token-value", "ya29.token-value"},
		{"padded", "  Bearer   ya29.token-value  ", "ya29.token-value"},
		{"missing", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := AccessToken(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = AccessTokenFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/sheets/headers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Fatalf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessTokenFromContextDefaultsEmpty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token := AccessTokenFromContext(req.Context()); token != "" {
		t.Fatalf("token = %q", token)
	}
}
