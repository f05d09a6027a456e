package websocket

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckOrigin(t *testing.T) {
	allowed := []string{"https://ham.refty.tech", "http://localhost:3000/"}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin header", "", true},
		{"exact match", "https://ham.refty.tech", true},
		{"match ignores path", "http://localhost:3000", true},
		{"case insensitive", "HTTPS://HAM.REFTY.TECH", true},
		{"different host", "https://evil.example", false},
		{"different port", "http://localhost:3001", false},
		{"scheme mismatch", "http://ham.refty.tech", false},
	}

	checker := NewCheckOrigin(allowed)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checker(r))
		})
	}
}

func TestNewCheckOrigin_Wildcard(t *testing.T) {
	checker := NewCheckOrigin([]string{"*"})

	r, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://anything.example")

	assert.True(t, checker(r))
}

func TestNormalizeOrigin(t *testing.T) {
	assert.Equal(t, "https://example.com:8443", normalizeOrigin("https://example.com:8443/path"))
	assert.Equal(t, "", normalizeOrigin("not a url"))
	assert.Equal(t, "", normalizeOrigin(""))
}
