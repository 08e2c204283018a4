package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	t.Run("plain http", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

		want := map[string]string{
			"X-Content-Type-Options":  "nosniff",
			"X-Frame-Options":         "DENY",
			"Cache-Control":           "no-store",
			"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		}
		for k, v := range want {
			if got := rec.Header().Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		if rec.Header().Get("Strict-Transport-Security") != "" {
			t.Error("HSTS must not be sent over plain http")
		}
	})

	t.Run("tls", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
		req.TLS = &tls.ConnectionState{}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
			t.Errorf("HSTS = %q", got)
		}
	})
}

func TestHeadersMiddleware_HandlerOverridesCacheControl(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export.csv", nil))
	if got := rec.Header().Get("Cache-Control"); got != "private, max-age=60" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		xff    string
		want   bool
	}{
		{"normal api call", http.MethodGet, "/api/transactions", "Mozilla/5.0", "", false},
		{"curl is a normal client", http.MethodGet, "/api/periods?granularity=month", "curl/8.4.0", "", false},
		{"path traversal", http.MethodGet, "/api/../etc/passwd", "", "", true},
		{"dotenv probe", http.MethodGet, "/.env", "", "", true},
		{"script in query", http.MethodGet, "/api/transactions?q=<script>alert(1)", "", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", "", true},
		{"trace method", "TRACE", "/", "", "", true},
		{"long url", http.MethodGet, "/api/transactions?x=" + strings.Repeat("a", 2100), "", "", true},
		{"many proxy hops", http.MethodGet, "/", "", "1.1.1.1,2.2.2.2,3.3.3.3,4.4.4.4,5.5.5.5,6.6.6.6,7.7.7.7", true},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "http://example.com/", nil)
			req.URL.Path, req.URL.RawQuery, _ = strings.Cut(tt.target, "?")
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := d.DetectSuspiciousRequest(req); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddleware_RejectsTrace(t *testing.T) {
	d := NewDetector()
	called := 0
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("TRACE", "/", nil))
	if rec.Code != http.StatusMethodNotAllowed || called != 0 {
		t.Fatalf("TRACE: status = %d, handler calls = %d", rec.Code, called)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/.git/config", nil))
	if called != 1 {
		t.Fatal("suspicious GET requests are logged, not blocked")
	}
	if d.SuspiciousCount() != 2 {
		t.Fatalf("SuspiciousCount() = %d, want 2", d.SuspiciousCount())
	}
}

func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		realIP     string
		want       string
	}{
		{"direct client", "203.0.113.7:5555", "", "", "203.0.113.7"},
		{"untrusted proxy headers ignored", "203.0.113.7:5555", "1.2.3.4", "", "203.0.113.7"},
		{"trusted proxy uses first forwarded ip", "10.0.0.2:80", "198.51.100.1, 10.0.0.3", "", "198.51.100.1"},
		{"trusted proxy with x-real-ip", "127.0.0.1:80", "", "198.51.100.9", "198.51.100.9"},
		{"trusted proxy with garbage header", "127.0.0.1:80", "not-an-ip", "", "127.0.0.1"},
		{"unparseable remote addr", "pipe", "", "", "pipe"},
	}

	d := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector()
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(req); got != "198.51.100.1" {
		t.Fatalf("ExtractClientIP() = %q", got)
	}
}
