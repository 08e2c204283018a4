package ledger

import (
	"errors"
	"testing"

	"salesbook/internal/core"
)

func TestCompareScenario(t *testing.T) {
	all := []core.Transaction{
		tx("2024-03-01", core.Income, 1500000),
		tx("2024-03-15", core.Income, 500000),
		tx("2024-03-20", core.Expense, 500000),
		tx("2024-02-03", core.Income, 1000000),
		tx("2024-02-10", core.Expense, 200000),
		tx("2024-02-11", core.Expense, 300000),
		tx("2023-02-11", core.Expense, 999),
	}

	c := Compare(all, "2024-03", "2024-02", Month)
	if c == nil {
		t.Fatalf("expected comparison")
	}
	if c.Period1 != (Totals{Income: 2000000, Expense: 500000, Profit: 1500000}) {
		t.Fatalf("unexpected period1 %+v", c.Period1)
	}
	if c.Period2 != (Totals{Income: 1000000, Expense: 500000, Profit: 500000}) {
		t.Fatalf("unexpected period2 %+v", c.Period2)
	}
	if c.Growth.Income != 100 || c.Growth.Expense != 0 || c.Growth.Profit != 200 {
		t.Fatalf("unexpected growth %+v", c.Growth)
	}
	if c.Period1Label != "2024년 3월" || c.Period2Label != "2024년 2월" {
		t.Fatalf("unexpected labels %q %q", c.Period1Label, c.Period2Label)
	}
}

func TestCompareUnsetPeriod(t *testing.T) {
	all := []core.Transaction{tx("2024-03-01", core.Income, 1)}
	if c := Compare(all, "2024-03", "", Month); c != nil {
		t.Fatalf("expected nil comparison, got %+v", c)
	}
	if c := Compare(all, "", "2024-03", Month); c != nil {
		t.Fatalf("expected nil comparison, got %+v", c)
	}
}

func TestCompareEmptyBaselineIsZeroGrowth(t *testing.T) {
	all := []core.Transaction{tx("2024", core.Income, 0), tx("2024-05-01", core.Income, 100)}
	c := Compare(all, "2024-05", "2024-04", Month)
	if c == nil || c.Growth.Income != 0 {
		t.Fatalf("expected 0%% growth against empty baseline, got %+v", c)
	}
}

func TestResolveComparison(t *testing.T) {
	one := []core.Transaction{tx("2024-03-01", core.Income, 100)}
	two := append(one, tx("2024-02-01", core.Income, 50))

	tests := []struct {
		name   string
		txs    []core.Transaction
		p1, p2 string
		g      Granularity
		want   error
	}{
		{"single period", one, "", "", Month, ErrNotEnoughPeriods},
		{"explicit keys on single period", one, "2024-03", "2024-02", Month, ErrNotEnoughPeriods},
		{"baseline without data", two, "2024-03", "2024-01", Month, ErrPeriodNotFound},
		{"malformed month", two, "2024-13", "2024-02", Month, ErrInvalidPeriodKey},
		{"year key for month granularity", two, "2024", "2023", Month, ErrInvalidPeriodKey},
		{"only one key", two, "2024-03", "", Month, ErrInvalidPeriodKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ResolveComparison(tt.txs, tt.p1, tt.p2, tt.g)
			if !errors.Is(err, tt.want) || c != nil {
				t.Fatalf("ResolveComparison() = %+v, %v; want nil, %v", c, err, tt.want)
			}
		})
	}

	c, err := ResolveComparison(two, "", "", Month)
	if err != nil || c.Period1Key != "2024-03" || c.Period2Key != "2024-02" || c.Growth.Income != 100 {
		t.Fatalf("default comparison = %+v, %v", c, err)
	}
	c, err = ResolveComparison(two, "2024-02", "2024-03", Month)
	if err != nil || c.Growth.Income != -50 {
		t.Fatalf("explicit comparison = %+v, %v", c, err)
	}
}
