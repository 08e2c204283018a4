package core

import (
	"encoding/json"
	"math"
	"testing"
)

func TestCoerceAmount(t *testing.T) {
	cases := []struct {
		in  any
		out int64
	}{
		{nil, 0},
		{1500, 1500},
		{int64(42), 42},
		{1499.6, 1500},
		{"2000", 2000},
		{" 12.5 ", 13},
		{"1,200", 1200},
		{"1,200,000원", 1200000},
		{"-300", -300},
		{"abc", 0},
		{"", 0},
		{json.Number("300"), 300},
		{math.NaN(), 0},
		{[]int{1}, 0},
	}
	for _, tc := range cases {
		if got := CoerceAmount(tc.in); got != tc.out {
			t.Fatalf("%v expected %d, got %d", tc.in, tc.out, got)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
	}{
		{"1,200,000원", 1200000},
		{"  3000 ", 3000},
		{"-500", 500},
		{"", 0},
		{"없음", 0},
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got != tc.out {
			t.Fatalf("%q expected %d, got %d", tc.in, tc.out, got)
		}
	}
}

func TestFormatWon(t *testing.T) {
	cases := map[int64]string{
		0:       "0원",
		999:     "999원",
		1000:    "1,000원",
		1234567: "1,234,567원",
		-250000: "-250,000원",
	}
	for in, want := range cases {
		if got := FormatWon(in); got != want {
			t.Fatalf("%d expected %q, got %q", in, want, got)
		}
	}
}

func TestEntryUnmarshalCoercesAmounts(t *testing.T) {
	cases := []struct {
		name                 string
		body                 string
		card, transfer, cash int64
	}{
		{"numbers", `{"date":"2024-03-01","card":1200,"transfer":0,"cash":300}`, 1200, 0, 300},
		{"strings", `{"date":"2024-03-01","card":"1,200","transfer":"500","cash":""}`, 1200, 500, 0},
		{"null and missing", `{"date":"2024-03-01","card":null,"cash":12.5}`, 0, 0, 13},
		{"garbage string", `{"date":"2024-03-01","card":"abc","transfer":7}`, 0, 7, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var e Entry
			if err := json.Unmarshal([]byte(tc.body), &e); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if e.Date != "2024-03-01" {
				t.Fatalf("date = %q", e.Date)
			}
			if e.Card != tc.card || e.Transfer != tc.transfer || e.Cash != tc.cash {
				t.Fatalf("amounts = %d/%d/%d, want %d/%d/%d", e.Card, e.Transfer, e.Cash, tc.card, tc.transfer, tc.cash)
			}
		})
	}

	var e Entry
	if err := json.Unmarshal([]byte(`{"date":"2024-03-01","memo":"a","ids":{"card":"x"}}`), &e); err != nil {
		t.Fatal(err)
	}
	if e.Memo != "a" || e.IDs[Card] != "x" {
		t.Fatalf("other fields lost: %+v", e)
	}
	if err := json.Unmarshal([]byte(`{"date":"2024-03-01","card":1,"tip":5}`), &e); err == nil {
		t.Fatal("expected error for unknown field")
	}
}
