package ledger

import (
	"strconv"
	"testing"
	"time"

	"salesbook/internal/core"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestResolveWindow(t *testing.T) {
	cases := []struct {
		name string
		w    Window
		now  time.Time
		key  string
		g    Granularity
	}{
		{"this month", ThisMonth, at(2024, time.March, 15), "2024-03", Month},
		{"last month", LastMonth, at(2024, time.March, 15), "2024-02", Month},
		{"january rollover", LastMonth, at(2025, time.January, 10), "2024-12", Month},
		{"this year", ThisYear, at(2024, time.March, 15), "2024", Year},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rw := ResolveWindow(tc.w, tc.now)
			if rw.Key != tc.key || rw.Granularity != tc.g {
				t.Fatalf("got %+v, want key %s granularity %s", rw, tc.key, tc.g)
			}
		})
	}
}

func TestParseWindow(t *testing.T) {
	if w, err := ParseWindow(""); err != nil || w != ThisMonth {
		t.Fatalf("expected thisMonth default, got %q %v", w, err)
	}
	if _, err := ParseWindow("nextMonth"); err == nil {
		t.Fatalf("expected error for unknown window")
	}
}

func TestBuildDashboardThisYear(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-01-03", core.Income, 100),
		tx("2024-01-20", core.Expense, 40),
		tx("2024-11-01", core.Income, 500),
		tx("2023-11-01", core.Income, 999),
	}
	d := BuildDashboard(txs, ThisYear, at(2024, time.March, 15))

	if len(d.Series) != 12 {
		t.Fatalf("expected 12 buckets, got %d", len(d.Series))
	}
	for i, p := range d.Series {
		if want := strconv.Itoa(i+1) + "월"; p.Label != want {
			t.Fatalf("bucket %d label %q, want %q", i, p.Label, want)
		}
	}
	if d.Series[0].Income != 100 || d.Series[0].Expense != 40 || d.Series[10].Income != 500 {
		t.Fatalf("unexpected buckets %+v", d.Series)
	}
	if d.Summary.Income != 600 || d.Summary.Expense != 40 || d.Summary.Profit != 560 {
		t.Fatalf("unexpected summary %+v", d.Summary)
	}
	if len(d.Insights) == 0 {
		t.Fatalf("insights must never be empty")
	}
}

func TestBuildDashboardMonthSeries(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-02-29", core.Income, 300),
		tx("2024-02-01", core.Expense, 100),
	}
	d := BuildDashboard(txs, LastMonth, at(2024, time.March, 15))
	if len(d.Series) != 29 {
		t.Fatalf("expected 29 days for February 2024, got %d", len(d.Series))
	}
	if d.Series[28].Label != "29일" || d.Series[28].Income != 300 || d.Series[0].Expense != 100 {
		t.Fatalf("unexpected series %+v", d.Series)
	}
	if d.Summary.ProfitRate < 66.6 || d.Summary.ProfitRate > 66.7 {
		t.Fatalf("unexpected profit rate %v", d.Summary.ProfitRate)
	}
}

func TestSummarizeNoIncome(t *testing.T) {
	s := Summarize([]core.Transaction{tx("2024-03-01", core.Expense, 50)})
	if s.ProfitRate != 0 || s.Profit != -50 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestCompareSeries(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-03-31", core.Income, 10),
		tx("2024-02-05", core.Income, 20),
		tx("2024-03-05", core.Income, 30),
		tx("2024-03-05", core.Expense, 999),
		tx("2024-01-05", core.Income, 999),
	}
	got := CompareSeries(txs, at(2024, time.March, 15))
	if len(got) != 31 {
		t.Fatalf("expected 31 points, got %d", len(got))
	}
	if got[4].ThisMonth != 30 || got[4].LastMonth != 20 || got[30].ThisMonth != 10 {
		t.Fatalf("unexpected compare series %+v", got[4])
	}

	// January compares against December of the previous year.
	jan := CompareSeries([]core.Transaction{tx("2023-12-25", core.Income, 7)}, at(2024, time.January, 2))
	if len(jan) != 31 || jan[24].LastMonth != 7 {
		t.Fatalf("unexpected january series %+v", jan[24])
	}
}

func TestBuildMonthReport(t *testing.T) {
	r, err := BuildMonthReport([]core.Transaction{tx("2023-02-10", core.Income, 5)}, "2023-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Daily) != 28 || r.Summary.Income != 5 || r.Label != "2023년 2월" {
		t.Fatalf("unexpected report %+v", r)
	}
	if _, err := BuildMonthReport(nil, "2023"); err == nil {
		t.Fatalf("expected error for year key")
	}
}
