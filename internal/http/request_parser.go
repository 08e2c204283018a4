// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// query parameters with defaults, JSON bodies with a size cap, and the
// transaction type and id lists most ledger endpoints take.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"salesbook/internal/core"
)

// maxJSONBody caps decoded request bodies.
const maxJSONBody = 1 << 20

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters. A missing
// value falls back to now; a malformed or out of range one is an error.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			return MonthParams{}, fmt.Errorf("%w: year %q", core.ErrInvalidYear, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: month %q", core.ErrInvalidMonth, v)
		}
		params.Month = m
	}
	return params, nil
}

// queryInt parses an optional integer parameter. Missing means def.
func queryInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return n, nil
}

// parseBool accepts the usual spellings of true; anything else is false.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parseTxType reads a transaction type. Empty is allowed only when
// optional is set.
func parseTxType(v string, optional bool) (core.TxType, error) {
	typ := core.TxType(strings.ToLower(strings.TrimSpace(v)))
	if typ == "" && optional {
		return "", nil
	}
	if !typ.IsValid() {
		return "", core.ErrInvalidType
	}
	return typ, nil
}

// splitIDs turns "a, b,,c" into [a b c].
func splitIDs(v string) []string {
	var ids []string
	for _, id := range strings.Split(v, ",") {
		if id = sanitizeInput(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// decodeJSON decodes a JSON request body into dst. Unknown fields are
// rejected so typos in amount keys do not silently store zero.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("요청 바디가 너무 큽니다 (최대 %d바이트)", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("요청 바디가 비어 있습니다")
		default:
			return fmt.Errorf("요청 바디 파싱 실패: %v", err)
		}
	}
	if dec.More() {
		return errors.New("요청 바디에 JSON 값이 여러 개 있습니다")
	}
	return nil
}
