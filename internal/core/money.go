// Package core provides the bookkeeping domain types and amount parsing.
//
// This file contains the lenient amount readers used where input is not
// schema-guaranteed (JSON bodies, spreadsheet cells, CSV files).
package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceAmount converts an untyped amount to whole currency units.
// Missing, non-numeric and non-finite values become 0.
//
// Examples:
//
//	CoerceAmount(1500)      -> 1500
//	CoerceAmount("1500")    -> 1500
//	CoerceAmount("1,200원")  -> 1200
//	CoerceAmount(1499.6)    -> 1500
//	CoerceAmount(nil)       -> 0
//	CoerceAmount("abc")     -> 0
func CoerceAmount(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint32:
		return int64(n)
	case float32:
		return roundFloat(float64(n))
	case float64:
		return roundFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return roundFloat(f)
	case string:
		s := strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), "원")
		if s == "" {
			return 0
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return roundFloat(f)
	case bool:
		if n {
			return 1
		}
		return 0
	}
	return 0
}

// UnmarshalJSON reads card, transfer and cash through CoerceAmount, so
// clients may send numbers, numeric strings or null. Unknown fields are
// rejected.
func (e *Entry) UnmarshalJSON(b []byte) error {
	type plain Entry
	aux := struct {
		plain
		Card     any `json:"card"`
		Transfer any `json:"transfer"`
		Cash     any `json:"cash"`
	}{plain: plain(*e)}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	*e = Entry(aux.plain)
	e.Card = CoerceAmount(aux.Card)
	e.Transfer = CoerceAmount(aux.Transfer)
	e.Cash = CoerceAmount(aux.Cash)
	return nil
}

func roundFloat(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(math.Floor(f + 0.5))
}

// ParseAmount keeps only the digits of s, so formatted input such as
// "1,200,000원" reads as 1200000. Empty or digit-free input reads as 0.
func ParseAmount(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatWon renders an amount with thousands separators and the 원 suffix.
func FormatWon(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString("원")
	return b.String()
}
