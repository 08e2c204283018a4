package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"salesbook/internal/core"
)

// Insight is one rule-based dashboard statement.
type Insight struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// swingThreshold is the fixed magnitude, in percent or percentage points,
// a change must exceed before a rule reports it.
var swingThreshold = decimal.NewFromInt(5)

var hundred = decimal.NewFromInt(100)

// monthPair holds current and previous calendar month totals.
type monthPair struct {
	month int
	cur   Totals
	prev  Totals
}

// insightRule is a pure predicate+formatter. Rules run in slice order and
// each may contribute at most one insight.
type insightRule struct {
	name string
	eval func(monthPair) (Insight, bool)
}

var insightRules = []insightRule{
	{name: "income-trend", eval: incomeTrendInsight},
	{name: "expense-share", eval: expenseShareInsight},
	{name: "profit-rate", eval: profitRateInsight},
}

var fallbackInsight = Insight{Icon: "📊", Text: "더 많은 데이터가 쌓이면 맞춤 인사이트를 제공해드릴게요"}

// Insights evaluates the rule table over the current and previous calendar
// month at now. It never returns an empty list.
func Insights(txs []core.Transaction, now time.Time) []Insight {
	py, pm := previousMonth(now)
	pair := monthPair{
		month: int(now.Month()),
		cur:   TotalsOf(FilterByPeriod(txs, MonthKey(now.Year(), now.Month()))),
		prev:  TotalsOf(FilterByPeriod(txs, MonthKey(py, pm))),
	}

	out := make([]Insight, 0, len(insightRules))
	for _, rule := range insightRules {
		if in, ok := rule.eval(pair); ok {
			out = append(out, in)
		}
	}
	if len(out) == 0 {
		out = append(out, fallbackInsight)
	}
	return out
}

// incomeTrendInsight prompts for data on an empty month, otherwise reports
// an income swing. The swing is rounded to one decimal before the
// threshold test.
func incomeTrendInsight(p monthPair) (Insight, bool) {
	if p.cur.Income == 0 && p.cur.Expense == 0 {
		return Insight{Icon: "✍️", Text: fmt.Sprintf("이번 달(%02d월) 매출 데이터를 입력해주세요", p.month)}, true
	}
	if p.prev.Income <= 0 || p.cur.Income <= 0 {
		return Insight{}, false
	}
	change := percentChange(p.cur.Income, p.prev.Income).Round(1)
	if change.Abs().LessThanOrEqual(swingThreshold) {
		return Insight{}, false
	}
	icon, verb := "📉", "감소"
	if change.IsPositive() {
		icon, verb = "📈", "증가"
	}
	return Insight{Icon: icon, Text: fmt.Sprintf("지난 달보다 매출이 %s%% %s했어요", change.Abs().String(), verb)}, true
}

// expenseShareInsight compares expense / (income + expense) between months.
func expenseShareInsight(p monthPair) (Insight, bool) {
	if p.cur.Income <= 0 || p.cur.Expense <= 0 || p.prev.Income <= 0 || p.prev.Expense <= 0 {
		return Insight{}, false
	}
	curShare := ratio(p.cur.Expense, p.cur.Income+p.cur.Expense)
	prevShare := ratio(p.prev.Expense, p.prev.Income+p.prev.Expense)
	diff := curShare.Sub(prevShare)
	if diff.Abs().LessThanOrEqual(swingThreshold) {
		return Insight{}, false
	}
	icon, verb := "⚠️", "증가"
	if diff.IsNegative() {
		icon, verb = "✨", "감소"
	}
	return Insight{
		Icon: icon,
		Text: fmt.Sprintf("지출 비중이 지난 달 %s%%에서 %s%%로 %s했어요", prevShare.StringFixed(1), curShare.StringFixed(1), verb),
	}, true
}

// profitRateInsight compares profit / income between months.
func profitRateInsight(p monthPair) (Insight, bool) {
	if p.cur.Income <= 0 || p.prev.Income <= 0 {
		return Insight{}, false
	}
	curRate := ratio(p.cur.Profit, p.cur.Income)
	prevRate := ratio(p.prev.Profit, p.prev.Income)
	diff := curRate.Sub(prevRate)
	if diff.Abs().LessThanOrEqual(swingThreshold) {
		return Insight{}, false
	}
	icon, outcome := "💡", "하락했어요"
	if diff.IsPositive() {
		icon, outcome = "🎉", "개선됐어요"
	}
	return Insight{
		Icon: icon,
		Text: fmt.Sprintf("순익률이 지난 달 %s%%에서 %s%%로 %s", prevRate.StringFixed(1), curRate.StringFixed(1), outcome),
	}, true
}

// ratio returns part/whole as a percentage.
func ratio(part, whole int64) decimal.Decimal {
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(whole)).Mul(hundred)
}

func percentChange(cur, prev int64) decimal.Decimal {
	return ratio(cur-prev, prev)
}
