package ledger

import (
	"testing"

	"salesbook/internal/core"
)

func tx(date string, typ core.TxType, amount int64) core.Transaction {
	return core.Transaction{Date: date, Type: typ, PaymentMethod: core.Card, Amount: amount}
}

func TestSumAndProfit(t *testing.T) {
	sets := map[string][]core.Transaction{
		"empty": nil,
		"mixed": {
			tx("2024-03-01", core.Income, 1000),
			tx("2024-03-02", core.Expense, 300),
			tx("2024-03-03", core.Income, 500),
			tx("2024-04-01", core.Expense, 50),
		},
		"only expense": {
			tx("2024-03-01", core.Expense, 700),
		},
	}
	for name, txs := range sets {
		t.Run(name, func(t *testing.T) {
			income := Sum(txs, core.Income)
			expense := Sum(txs, core.Expense)
			if all := Sum(txs, ""); all != income+expense {
				t.Fatalf("sum(all)=%d, want %d", all, income+expense)
			}
			if p := Profit(txs); p != income-expense {
				t.Fatalf("profit=%d, want %d", p, income-expense)
			}
			tot := TotalsOf(txs)
			if tot.Income != income || tot.Expense != expense || tot.Profit != income-expense {
				t.Fatalf("unexpected totals %+v", tot)
			}
		})
	}

	mixed := sets["mixed"]
	if got := Sum(mixed, core.Income); got != 1500 {
		t.Fatalf("income=%d, want 1500", got)
	}
	if got := Sum(mixed, core.Expense); got != 350 {
		t.Fatalf("expense=%d, want 350", got)
	}
}

func TestGrowthRate(t *testing.T) {
	cases := []struct {
		cur, prev, want int64
	}{
		{150, 100, 50},
		{50, 100, -50},
		{100, 100, 0},
		{0, 0, 0},
		{999, 0, 0},
		{1500000, 500000, 200},
		{2000000, 1000000, 100},
		{1, 3, -67},
		{2, 3, -33},
	}
	for _, tc := range cases {
		if got := GrowthRate(tc.cur, tc.prev); got != tc.want {
			t.Fatalf("GrowthRate(%d, %d)=%d, want %d", tc.cur, tc.prev, got, tc.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[float64]int64{
		2.5:  3,
		2.49: 2,
		-2.5: -2,
		-2.6: -3,
		0:    0,
	}
	for in, want := range cases {
		if got := Round(in); got != want {
			t.Fatalf("Round(%v)=%d, want %d", in, got, want)
		}
	}
}
