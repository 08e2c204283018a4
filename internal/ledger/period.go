package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"salesbook/internal/core"
)

// Granularity selects month (YYYY-MM) or year (YYYY) period keys.
type Granularity string

const (
	Month Granularity = "month"
	Year  Granularity = "year"
)

// ParseGranularity accepts "month" or "year"; empty input means month.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case "", Month:
		return Month, nil
	case Year:
		return Year, nil
	}
	return "", fmt.Errorf("invalid granularity %q: must be month or year", s)
}

func (g Granularity) keyLen() int {
	if g == Year {
		return 4
	}
	return 7
}

// PeriodKey returns the period a canonical date belongs to, or "" when the
// date is too short to carry one.
func PeriodKey(date string, g Granularity) string {
	n := g.keyLen()
	if len(date) < n {
		return ""
	}
	return date[:n]
}

// ValidPeriodKey reports whether key is a well-formed period of g: four
// digits for a year, YYYY-MM with month 01..12 for a month.
func ValidPeriodKey(key string, g Granularity) bool {
	if len(key) != g.keyLen() || !isDigits(key[:4]) {
		return false
	}
	if g == Year {
		return true
	}
	m := key[5:]
	return key[4] == '-' && isDigits(m) && m >= "01" && m <= "12"
}

func isDigits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// MonthKey formats a YYYY-MM period key.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// YearKey formats a YYYY period key.
func YearKey(year int) string {
	return fmt.Sprintf("%04d", year)
}

// ExtractPeriods lists the distinct period keys present in txs, most recent first.
func ExtractPeriods(txs []core.Transaction, g Granularity) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, t := range txs {
		key := PeriodKey(t.Date, g)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// FilterByPeriod keeps the transactions whose date starts with key.
// Matching is lexical on the canonical date string.
func FilterByPeriod(txs []core.Transaction, key string) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range txs {
		if strings.HasPrefix(t.Date, key) {
			out = append(out, t)
		}
	}
	return out
}

// FormatPeriodLabel renders "2024년 3월" or "2024년". Unparseable keys are
// returned unchanged.
func FormatPeriodLabel(key string, g Granularity) string {
	if len(key) < 4 {
		return key
	}
	year := key[:4]
	if g == Year {
		return year + "년"
	}
	if len(key) < 7 {
		return key
	}
	month, err := strconv.Atoi(key[5:7])
	if err != nil {
		return key
	}
	return fmt.Sprintf("%s년 %d월", year, month)
}

// SelectPeriod keeps current while it is still available and otherwise
// falls back to the most recent period. It returns "" when there are none.
// Run it every time the underlying transaction set changes.
func SelectPeriod(periods []string, current string) string {
	if current != "" {
		for _, p := range periods {
			if p == current {
				return current
			}
		}
	}
	if len(periods) == 0 {
		return ""
	}
	return periods[0]
}

// DefaultComparisonPeriods picks the two most recent periods as
// (current, baseline). Missing slots are "".
func DefaultComparisonPeriods(periods []string) (string, string) {
	switch len(periods) {
	case 0:
		return "", ""
	case 1:
		return periods[0], ""
	}
	return periods[0], periods[1]
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
