package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"salesbook/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth int
		wantErr   error
	}{
		{"defaults", url.Values{}, 2024, 3, nil},
		{"explicit", url.Values{"year": {"2023"}, "month": {"12"}}, 2023, 12, nil},
		{"whitespace", url.Values{"year": {" 2022 "}, "month": {" 7"}}, 2022, 7, nil},
		{"month out of range", url.Values{"month": {"13"}}, 0, 0, core.ErrInvalidMonth},
		{"non numeric month", url.Values{"month": {"x"}}, 0, 0, core.ErrInvalidMonth},
		{"non numeric year", url.Values{"year": {"abc"}}, 0, 0, core.ErrInvalidYear},
		{"year out of range", url.Values{"year": {"99"}}, 0, 0, core.ErrInvalidYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseMonthParams() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMonthParams() error = %v", err)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("ParseMonthParams() = %+v, want %d-%d", got, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestQueryInt(t *testing.T) {
	q := url.Values{"asOfMonth": {"6"}, "bad": {"six"}}
	if n, err := queryInt(q, "asOfMonth", 0); err != nil || n != 6 {
		t.Fatalf("queryInt() = %d, %v", n, err)
	}
	if n, err := queryInt(q, "missing", 7); err != nil || n != 7 {
		t.Fatalf("queryInt(missing) = %d, %v", n, err)
	}
	if _, err := queryInt(q, "bad", 0); err == nil {
		t.Fatal("expected error for non numeric value")
	}
}

func TestParseTxType(t *testing.T) {
	tests := []struct {
		in       string
		optional bool
		want     core.TxType
		wantErr  bool
	}{
		{"income", false, core.Income, false},
		{" EXPENSE ", false, core.Expense, false},
		{"", true, "", false},
		{"", false, "", true},
		{"refund", true, "", true},
	}
	for _, tt := range tests {
		got, err := parseTxType(tt.in, tt.optional)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseTxType(%q, %v) = %q, %v", tt.in, tt.optional, got, err)
		}
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" a, b,,c ,")
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("splitIDs() = %v, want %v", got, want)
	}
	if got := splitIDs(""); got != nil {
		t.Fatalf("splitIDs(\"\") = %v, want nil", got)
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes", "on"} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false", v)
		}
	}
	for _, v := range []string{"", "0", "false", "nope"} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true", v)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Type string `json:"type"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"type":"income"}`, ""},
		{"empty", ``, "비어 있습니다"},
		{"malformed", `{"type":`, "파싱 실패"},
		{"unknown field", `{"type":"income","cardd":1}`, "파싱 실패"},
		{"trailing value", `{"type":"income"} {}`, "여러 개"},
		{"too large", `{"type":"` + strings.Repeat("a", maxJSONBody) + `"}`, "너무 큽니다"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr == "" {
				if err != nil || p.Type != "income" {
					t.Fatalf("decodeJSON() = %v, payload %+v", err, p)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("decodeJSON() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  normal  ", "normal"},
		{"a\x00b\x07c", "abc"},
		{"keep\ttabs", "keep\ttabs"},
		{"식당", "식당"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
