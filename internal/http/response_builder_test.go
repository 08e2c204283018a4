package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rec.Body.String())
	}
	return body
}

func TestResponseBuilder_Data(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusCreated).Header("X-Test", "1").Data(map[string]int{"n": 2}).Write(rec)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Test") != "1" {
		t.Fatal("custom header missing")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type = %q", ct)
	}
	body := decodeEnvelope(t, rec)
	if body["success"] != true {
		t.Fatalf("success = %v", body["success"])
	}
	if data := body["data"].(map[string]any); data["n"] != float64(2) {
		t.Fatalf("data = %v", data)
	}
	if _, ok := body["error"]; ok {
		t.Fatal("success envelope must not carry error")
	}
}

func TestResponseBuilder_FailWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorResponse(http.StatusConflict, CodeDuplicate, "중복").Details([]string{"a"}).Write(rec)

	body := decodeEnvelope(t, rec)
	if rec.Code != http.StatusConflict || body["success"] != false {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	if body["code"] != CodeDuplicate || body["error"] != "중복" {
		t.Fatalf("body = %v", body)
	}
	if d, ok := body["details"].([]any); !ok || len(d) != 1 {
		t.Fatalf("details = %v", body["details"])
	}
}

func TestResponseBuilder_Raw(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Raw(map[string]string{"summary": "ok"}).Write(rec)
	body := decodeEnvelope(t, rec)
	if _, ok := body["success"]; ok {
		t.Fatal("raw body must not be wrapped")
	}
	if body["summary"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		b      *ResponseBuilder
		status int
		code   string
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest, CodeValidation},
		{"unauthorized", UnauthorizedError(), http.StatusUnauthorized, CodeUnauthorized},
		{"not found", NotFoundError("x"), http.StatusNotFound, CodeNotFound},
		{"internal", InternalServerError("x"), http.StatusInternalServerError, CodeStore},
		{"rate limited", TooManyRequestsError(1500 * time.Millisecond), http.StatusTooManyRequests, CodeRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.b.Write(rec)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if body := decodeEnvelope(t, rec); body["code"] != tt.code {
				t.Fatalf("code = %v, want %s", body["code"], tt.code)
			}
		})
	}

	rec := httptest.NewRecorder()
	TooManyRequestsError(1500 * time.Millisecond).Write(rec)
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}
