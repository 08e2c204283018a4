// Package ledger computes period aggregates over transaction sets: sums,
// period keys, comparisons, dashboard series, insights and goal progress.
//
// Everything here is pure. Callers pass the evaluation instant explicitly so
// results never depend on the wall clock.
package ledger

import (
	"math"

	"salesbook/internal/core"
)

// Totals is the income/expense/profit triple for one transaction subset.
type Totals struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Profit  int64 `json:"profit"`
}

// Sum totals Amount over txs whose Type equals typ. An empty typ sums every row.
func Sum(txs []core.Transaction, typ core.TxType) int64 {
	var total int64
	for _, t := range txs {
		if typ != "" && t.Type != typ {
			continue
		}
		total += t.Amount
	}
	return total
}

// Profit is income minus expense.
func Profit(txs []core.Transaction) int64 {
	return Sum(txs, core.Income) - Sum(txs, core.Expense)
}

// TotalsOf aggregates txs in a single pass.
func TotalsOf(txs []core.Transaction) Totals {
	var out Totals
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			out.Income += t.Amount
		case core.Expense:
			out.Expense += t.Amount
		}
	}
	out.Profit = out.Income - out.Expense
	return out
}

// GrowthRate returns the whole-percent change from previous to current.
// A zero baseline reports 0, so 0 -> N is not treated as growth.
func GrowthRate(current, previous int64) int64 {
	if previous == 0 {
		return 0
	}
	return Round(float64(current-previous) / float64(previous) * 100)
}

// Round rounds half up toward positive infinity (-2.5 -> -2, 2.5 -> 3).
func Round(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}
