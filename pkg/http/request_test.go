package http_test

import (
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/sessionauth/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP(t *testing.T) {
	trusted := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8", "fd00::/8"}}

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xRealIP    string
		config     *pkghttp.IPConfig
		want       string
	}{
		{
			name:       "direct client ignores spoofed headers",
			remoteAddr: "203.0.113.10:54321",
			xff:        "1.2.3.4",
			xRealIP:    "192.168.1.1",
			config:     trusted,
			want:       "203.0.113.10",
		},
		{
			name:       "trusted proxy uses first forwarded address",
			remoteAddr: "10.0.0.5:54321",
			xff:        "203.0.113.42, 10.0.0.5",
			config:     trusted,
			want:       "203.0.113.42",
		},
		{
			name:       "trusted proxy skips garbage in forwarded list",
			remoteAddr: "10.0.0.5:1",
			xff:        "garbage, 198.51.100.7",
			config:     trusted,
			want:       "198.51.100.7",
		},
		{
			name:       "trusted proxy falls back to X-Real-IP",
			remoteAddr: "10.1.2.3:1",
			xRealIP:    "198.51.100.9",
			config:     trusted,
			want:       "198.51.100.9",
		},
		{
			name:       "ipv6 trusted proxy",
			remoteAddr: "[fd00::1]:443",
			xff:        "2001:db8::1",
			config:     trusted,
			want:       "2001:db8::1",
		},
		{
			name:       "nil config never trusts headers",
			remoteAddr: "10.0.0.5:1",
			xff:        "203.0.113.42",
			want:       "10.0.0.5",
		},
		{
			name:       "invalid cidr is skipped",
			remoteAddr: "10.0.0.5:1",
			xff:        "203.0.113.42",
			config:     &pkghttp.IPConfig{TrustedProxies: []string{"not-a-cidr"}},
			want:       "10.0.0.5",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.10",
			config:     trusted,
			want:       "203.0.113.10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}
