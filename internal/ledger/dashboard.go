package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"salesbook/internal/core"
)

// Window is one of the fixed relative dashboard periods.
type Window string

const (
	ThisMonth Window = "thisMonth"
	LastMonth Window = "lastMonth"
	ThisYear  Window = "thisYear"
)

// ParseWindow accepts thisMonth, lastMonth or thisYear; empty input means thisMonth.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.TrimSpace(s)); w {
	case "":
		return ThisMonth, nil
	case ThisMonth, LastMonth, ThisYear:
		return w, nil
	}
	return "", fmt.Errorf("invalid period %q: must be thisMonth, lastMonth or thisYear", s)
}

// ResolvedWindow pins a Window to concrete calendar coordinates.
type ResolvedWindow struct {
	Window      Window      `json:"window"`
	Key         string      `json:"key"`
	Label       string      `json:"label"`
	Granularity Granularity `json:"granularity"`
	Year        int         `json:"year"`
	Month       time.Month  `json:"month,omitempty"`
}

// ResolveWindow maps w onto the calendar at now. lastMonth in January is
// December of the previous year.
func ResolveWindow(w Window, now time.Time) ResolvedWindow {
	switch w {
	case ThisYear:
		key := YearKey(now.Year())
		return ResolvedWindow{Window: w, Key: key, Label: FormatPeriodLabel(key, Year), Granularity: Year, Year: now.Year()}
	case LastMonth:
		y, m := previousMonth(now)
		key := MonthKey(y, m)
		return ResolvedWindow{Window: w, Key: key, Label: FormatPeriodLabel(key, Month), Granularity: Month, Year: y, Month: m}
	default:
		key := MonthKey(now.Year(), now.Month())
		return ResolvedWindow{Window: ThisMonth, Key: key, Label: FormatPeriodLabel(key, Month), Granularity: Month, Year: now.Year(), Month: now.Month()}
	}
}

func previousMonth(now time.Time) (int, time.Month) {
	if now.Month() == time.January {
		return now.Year() - 1, time.December
	}
	return now.Year(), now.Month() - 1
}

// Summary is the headline block of a dashboard. ProfitRate is a percentage
// of income and 0 when there is no income.
type Summary struct {
	Income     int64   `json:"income"`
	Expense    int64   `json:"expense"`
	Profit     int64   `json:"profit"`
	ProfitRate float64 `json:"profitRate"`
}

// SeriesPoint is one chart bucket.
type SeriesPoint struct {
	Label   string `json:"label"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
}

// ComparePoint is one day of the this-month vs last-month income chart.
type ComparePoint struct {
	Label     string `json:"label"`
	ThisMonth int64  `json:"thisMonth"`
	LastMonth int64  `json:"lastMonth"`
}

// Dashboard is the full dashboard payload for one window.
type Dashboard struct {
	Period        ResolvedWindow `json:"period"`
	Summary       Summary        `json:"summary"`
	Series        []SeriesPoint  `json:"series"`
	CompareSeries []ComparePoint `json:"compareSeries"`
	Insights      []Insight      `json:"insights"`
}

// Summarize computes the summary block for txs.
func Summarize(txs []core.Transaction) Summary {
	t := TotalsOf(txs)
	s := Summary{Income: t.Income, Expense: t.Expense, Profit: t.Profit}
	if t.Income > 0 {
		s.ProfitRate = float64(t.Profit) / float64(t.Income) * 100
	}
	return s
}

// BuildDashboard summarizes txs for window w as seen at now. The compare
// series and insights always look at the current and previous calendar
// month regardless of w.
func BuildDashboard(txs []core.Transaction, w Window, now time.Time) Dashboard {
	rw := ResolveWindow(w, now)
	selected := FilterByPeriod(txs, rw.Key)

	var series []SeriesPoint
	if rw.Window == ThisYear {
		series = MonthlySeries(selected)
	} else {
		series = DailySeries(selected, rw.Year, rw.Month)
	}

	return Dashboard{
		Period:        rw,
		Summary:       Summarize(selected),
		Series:        series,
		CompareSeries: CompareSeries(txs, now),
		Insights:      Insights(txs, now),
	}
}

// MonthlySeries buckets txs into twelve zero-filled months labelled "1월".."12월".
func MonthlySeries(txs []core.Transaction) []SeriesPoint {
	out := make([]SeriesPoint, 12)
	for i := range out {
		out[i].Label = strconv.Itoa(i+1) + "월"
	}
	for _, t := range txs {
		m := dateField(t.Date, 5, 7)
		if m < 1 || m > 12 {
			continue
		}
		addTo(&out[m-1], t)
	}
	return out
}

// DailySeries buckets txs into every day of the month, zero-filled,
// labelled "1일".."N일".
func DailySeries(txs []core.Transaction, year int, month time.Month) []SeriesPoint {
	days := DaysIn(year, month)
	out := make([]SeriesPoint, days)
	for i := range out {
		out[i].Label = strconv.Itoa(i+1) + "일"
	}
	for _, t := range txs {
		d := dateField(t.Date, 8, 10)
		if d < 1 || d > days {
			continue
		}
		addTo(&out[d-1], t)
	}
	return out
}

// CompareSeries lines up daily income of the current and previous month
// across the longer of the two months.
func CompareSeries(txs []core.Transaction, now time.Time) []ComparePoint {
	curKey := MonthKey(now.Year(), now.Month())
	py, pm := previousMonth(now)
	prevKey := MonthKey(py, pm)

	days := DaysIn(now.Year(), now.Month())
	if pd := DaysIn(py, pm); pd > days {
		days = pd
	}
	out := make([]ComparePoint, days)
	for i := range out {
		out[i].Label = strconv.Itoa(i+1) + "일"
	}
	for _, t := range txs {
		if t.Type != core.Income {
			continue
		}
		d := dateField(t.Date, 8, 10)
		if d < 1 || d > days {
			continue
		}
		switch {
		case strings.HasPrefix(t.Date, curKey):
			out[d-1].ThisMonth += t.Amount
		case strings.HasPrefix(t.Date, prevKey):
			out[d-1].LastMonth += t.Amount
		}
	}
	return out
}

// MonthReport is the per-month export written to report sheets.
type MonthReport struct {
	PeriodKey string        `json:"periodKey"`
	Label     string        `json:"label"`
	Summary   Summary       `json:"summary"`
	Daily     []SeriesPoint `json:"daily"`
}

// BuildMonthReport summarizes one YYYY-MM period with its daily series.
func BuildMonthReport(txs []core.Transaction, periodKey string) (MonthReport, error) {
	t, err := time.Parse("2006-01", periodKey)
	if err != nil || len(periodKey) != 7 {
		return MonthReport{}, fmt.Errorf("invalid month period %q", periodKey)
	}
	selected := FilterByPeriod(txs, periodKey)
	return MonthReport{
		PeriodKey: periodKey,
		Label:     FormatPeriodLabel(periodKey, Month),
		Summary:   Summarize(selected),
		Daily:     DailySeries(selected, t.Year(), t.Month()),
	}, nil
}

func addTo(p *SeriesPoint, t core.Transaction) {
	switch t.Type {
	case core.Income:
		p.Income += t.Amount
	case core.Expense:
		p.Expense += t.Amount
	}
}

// dateField reads date[from:to] as an integer, 0 when absent.
func dateField(date string, from, to int) int {
	if len(date) < to {
		return 0
	}
	n, err := strconv.Atoi(date[from:to])
	if err != nil {
		return 0
	}
	return n
}
