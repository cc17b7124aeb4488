package cron

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestAuthenticateRequest(t *testing.T) {
	h := NewHandler(nil, zap.NewNop(), "scan-secret")

	tests := []struct {
		name   string
		header string
		value  string
		want   bool
	}{
		{"header secret", "X-Cron-Secret", "scan-secret", true},
		{"bearer token", "Authorization", "Bearer scan-secret", true},
		{"wrong header secret", "X-Cron-Secret", "guess", false},
		{"wrong bearer token", "Authorization", "Bearer guess", false},
		{"bearer prefix only", "Authorization", "Bearer ", false},
		{"missing credentials", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/cron/variance-scan", nil)
			if tt.header != "" {
				r.Header.Set(tt.header, tt.value)
			}
			assert.Equal(t, tt.want, h.authenticateRequest(r))
		})
	}
}

// An unset secret disables the endpoints rather than opening them up.
func TestAuthenticateRequest_EmptySecretRejectsAll(t *testing.T) {
	h := NewHandler(nil, zap.NewNop(), "")

	r := httptest.NewRequest("POST", "/cron/variance-scan", nil)
	r.Header.Set("X-Cron-Secret", "")
	assert.False(t, h.authenticateRequest(r))

	r.Header.Set("Authorization", "Bearer ")
	assert.False(t, h.authenticateRequest(r))
}
