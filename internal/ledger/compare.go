package ledger

import (
	"errors"
	"fmt"

	"salesbook/internal/core"
)

var (
	// ErrInvalidPeriodKey marks a period key that does not match the
	// granularity's YYYY or YYYY-MM shape.
	ErrInvalidPeriodKey = errors.New("invalid period key")
	// ErrNotEnoughPeriods means the data spans fewer than two periods.
	ErrNotEnoughPeriods = errors.New("comparison needs at least two periods with data")
	// ErrPeriodNotFound means a requested period holds no transactions.
	ErrPeriodNotFound = errors.New("period has no data")
)

// Growth holds whole-percent changes of period1 against period2.
type Growth struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Profit  int64 `json:"profit"`
}

// Comparison is a before/after view of two periods. Period1 is the current
// side and Period2 the baseline.
type Comparison struct {
	Period1Key   string `json:"period1Key"`
	Period2Key   string `json:"period2Key"`
	Period1Label string `json:"period1Label"`
	Period2Label string `json:"period2Label"`
	Period1      Totals `json:"period1"`
	Period2      Totals `json:"period2"`
	Growth       Growth `json:"growth"`
}

// Compare aggregates both periods and their growth. It returns nil when
// either key is unset; callers must render that as "not enough periods"
// rather than a zero comparison.
func Compare(all []core.Transaction, period1, period2 string, g Granularity) *Comparison {
	if period1 == "" || period2 == "" {
		return nil
	}
	t1 := TotalsOf(FilterByPeriod(all, period1))
	t2 := TotalsOf(FilterByPeriod(all, period2))
	return &Comparison{
		Period1Key:   period1,
		Period2Key:   period2,
		Period1Label: FormatPeriodLabel(period1, g),
		Period2Label: FormatPeriodLabel(period2, g),
		Period1:      t1,
		Period2:      t2,
		Growth: Growth{
			Income:  GrowthRate(t1.Income, t2.Income),
			Expense: GrowthRate(t1.Expense, t2.Expense),
			Profit:  GrowthRate(t1.Profit, t2.Profit),
		},
	}
}

// ResolveComparison compares period1 against period2 when both are periods
// present in all. With both keys empty it takes the two most recent
// periods. Setting only one key is an ErrInvalidPeriodKey.
func ResolveComparison(all []core.Transaction, period1, period2 string, g Granularity) (*Comparison, error) {
	for _, key := range []string{period1, period2} {
		if key != "" && !ValidPeriodKey(key, g) {
			return nil, fmt.Errorf("%w %q for %s granularity", ErrInvalidPeriodKey, key, g)
		}
	}
	if (period1 == "") != (period2 == "") {
		return nil, fmt.Errorf("%w: period1 and period2 must be set together", ErrInvalidPeriodKey)
	}

	periods := ExtractPeriods(all, g)
	if len(periods) < 2 {
		return nil, ErrNotEnoughPeriods
	}
	if period1 == "" {
		period1, period2 = DefaultComparisonPeriods(periods)
	}
	for _, key := range []string{period1, period2} {
		if !containsPeriod(periods, key) {
			return nil, fmt.Errorf("%w: %s", ErrPeriodNotFound, key)
		}
	}
	return Compare(all, period1, period2, g), nil
}

func containsPeriod(periods []string, key string) bool {
	for _, p := range periods {
		if p == key {
			return true
		}
	}
	return false
}
