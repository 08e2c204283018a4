package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var seen string
	h := NewMiddleware(nil).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/periods", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Fatalf("response header = %q, want %q", got, seen)
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMiddleware_RequestIDFromHeader(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"well formed", "abc-123_XYZ", true},
		{"contains spaces", "abc 123", false},
		{"injection attempt", "id\nforged=1", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := NewMiddleware(func(*http.Request) string { return "10.0.0.1" }).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderRequestID, tt.incoming)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.incoming) != tt.keep {
				t.Fatalf("request id = %q, keep incoming %v", seen, tt.keep)
			}
		})
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("body"))
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusOK {
		t.Fatalf("statusCode = %d, want 200 once the body was written", rw.statusCode)
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Fatalf("GetRequestID() = %q, want empty", id)
	}
}
