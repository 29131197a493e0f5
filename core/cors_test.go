package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORSMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		config         CORSConfig
		origin         string
		method         string
		preflight      bool
		expectedStatus int
		expectedOrigin string
	}{
		{"disabled", CORSConfig{Enabled: false}, "https://example.com", http.MethodGet, false, http.StatusOK, ""},
		{"exact match", CORSConfig{Enabled: true, AllowedOrigins: []string{"https://example.com"}}, "https://example.com", http.MethodGet, false, http.StatusOK, "https://example.com"},
		{"not allowed", CORSConfig{Enabled: true, AllowedOrigins: []string{"https://example.com"}}, "https://evil.com", http.MethodGet, false, http.StatusOK, ""},
		{"wildcard subdomain", CORSConfig{Enabled: true, AllowedOrigins: []string{"https://*.example.com"}}, "https://app.example.com", http.MethodGet, false, http.StatusOK, "https://app.example.com"},
		{"wildcard subdomain root rejected", CORSConfig{Enabled: true, AllowedOrigins: []string{"https://*.example.com"}}, "https://example.com", http.MethodGet, false, http.StatusOK, ""},
		{"wildcard port", CORSConfig{Enabled: true, AllowedOrigins: []string{"http://localhost:*"}}, "http://localhost:3000", http.MethodGet, false, http.StatusOK, "http://localhost:3000"},
		{"preflight", CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}, AllowedMethods: []string{"POST"}}, "https://a.com", http.MethodOptions, true, http.StatusNoContent, "https://a.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/chat", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			rec := httptest.NewRecorder()

			CORSMiddleware(tt.config)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
