package ledger

import (
	"testing"
	"time"

	"salesbook/internal/core"
)

func TestInsights(t *testing.T) {
	now := at(2024, time.March, 15)
	cases := []struct {
		name string
		txs  []core.Transaction
		want []Insight
	}{
		{
			name: "empty current month",
			txs:  []core.Transaction{tx("2024-02-01", core.Income, 100)},
			want: []Insight{{Icon: "✍️", Text: "이번 달(03월) 매출 데이터를 입력해주세요"}},
		},
		{
			name: "income up",
			txs: []core.Transaction{
				tx("2024-03-01", core.Income, 1200000),
				tx("2024-02-01", core.Income, 1000000),
			},
			want: []Insight{{Icon: "📈", Text: "지난 달보다 매출이 20% 증가했어요"}},
		},
		{
			name: "income down",
			txs: []core.Transaction{
				tx("2024-03-01", core.Income, 850),
				tx("2024-02-01", core.Income, 1000),
			},
			want: []Insight{{Icon: "📉", Text: "지난 달보다 매출이 15% 감소했어요"}},
		},
		{
			name: "swing rounded onto the threshold",
			txs: []core.Transaction{
				tx("2024-03-01", core.Income, 105040),
				tx("2024-02-01", core.Income, 100000),
			},
			want: []Insight{fallbackInsight},
		},
		{
			name: "expense share and profit rate",
			txs: []core.Transaction{
				tx("2024-03-01", core.Income, 1000),
				tx("2024-03-02", core.Expense, 1000),
				tx("2024-02-01", core.Income, 1000),
				tx("2024-02-02", core.Expense, 250),
			},
			want: []Insight{
				{Icon: "⚠️", Text: "지출 비중이 지난 달 20.0%에서 50.0%로 증가했어요"},
				{Icon: "💡", Text: "순익률이 지난 달 75.0%에서 0.0%로 하락했어요"},
			},
		},
		{
			name: "expense share falls",
			txs: []core.Transaction{
				tx("2024-03-01", core.Income, 1000),
				tx("2024-03-02", core.Expense, 250),
				tx("2024-02-01", core.Income, 1000),
				tx("2024-02-02", core.Expense, 1000),
			},
			want: []Insight{
				{Icon: "✨", Text: "지출 비중이 지난 달 50.0%에서 20.0%로 감소했어요"},
				{Icon: "🎉", Text: "순익률이 지난 달 0.0%에서 75.0%로 개선됐어요"},
			},
		},
		{
			name: "no history",
			txs:  []core.Transaction{tx("2024-03-01", core.Income, 1000)},
			want: []Insight{fallbackInsight},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Insights(tc.txs, now)
			if len(got) != len(tc.want) {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("insight %d: got %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestInsightsJanuaryUsesDecember(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-01-05", core.Income, 2000),
		tx("2024-12-05", core.Income, 1000),
	}
	got := Insights(txs, at(2025, time.January, 20))
	if len(got) != 1 || got[0].Text != "지난 달보다 매출이 100% 증가했어요" {
		t.Fatalf("unexpected insights %+v", got)
	}
}
