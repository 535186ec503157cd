package api

import (
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestNewRateLimiterConfig(t *testing.T) {
	rl := newRateLimiter(2.5, 7)
	if rl.refill != rate.Limit(2.5) {
		t.Errorf("refill = %v, want 2.5", rl.refill)
	}
	if rl.burst != 7 {
		t.Errorf("burst = %d, want 7", rl.burst)
	}
}

func TestAllowConsumesBurst(t *testing.T) {
	// Refill slow enough that no token comes back during the test.
	rl := newRateLimiter(0.001, 3)

	for i := range 3 {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d should be within burst", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request beyond burst should be rejected")
	}
	// A different client gets its own full bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("fresh client should start with a full bucket")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "192.0.2.7:51234",
			want:       "192.0.2.7",
		},
		{
			name:       "proxy headers ignored when untrusted",
			remoteAddr: "192.0.2.7:51234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "192.0.2.7",
		},
		{
			name:       "x-real-ip wins when trusted",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "first forwarded-for entry",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"},
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:       "forged non-ip header falls back to remote addr",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "evil-bucket-key"},
			trustProxy: true,
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
