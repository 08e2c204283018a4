package google

import (
	"fmt"
	"strings"
	"time"

	"salesbook/internal/ledger"
)

// ReportTabName builds "<base> <owner prefix> <YYYY-MM>". Only the first
// eight characters of the owner id are used.
func ReportTabName(base, owner, periodKey string) string {
	short := []rune(owner)
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s %s %s", base, string(short), periodKey)
}

// a1 quotes a tab title for A1 notation.
func a1(tab, rng string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + rng
}

// reportValues lays a month report out as a summary block followed by one
// row per day.
func reportValues(r ledger.MonthReport, generated time.Time) [][]any {
	s := r.Summary
	values := [][]any{
		{"기간", r.Label, r.PeriodKey},
		{"생성", generated.UTC().Format(time.RFC3339)},
		{},
		{"매출", "지출", "순익", "순익률(%)"},
		{s.Income, s.Expense, s.Profit, s.ProfitRate},
		{},
		{"일자", "매출", "지출", "순익"},
	}
	for _, d := range r.Daily {
		values = append(values, []any{d.Label, d.Income, d.Expense, d.Income - d.Expense})
	}
	return values
}
