package ledger

import (
	"time"

	"salesbook/internal/core"
)

// RunRate is the daily pace needed to reach a monthly goal by month end.
type RunRate struct {
	CurrentDay        int   `json:"currentDay"`
	DaysInMonth       int   `json:"daysInMonth"`
	RemainingDays     int   `json:"remainingDays"`
	DailyIncomeNeeded int64 `json:"dailyIncomeNeeded"`
	DailyProfitNeeded int64 `json:"dailyProfitNeeded"`
}

// GoalProgress reports how far a goal has been reached. RunRate is nil
// unless the goal is a monthly goal for the month containing the
// evaluation instant; nil and a zero run-rate mean different things.
type GoalProgress struct {
	Goal            core.Goal `json:"goal"`
	CurrentIncome   int64     `json:"currentIncome"`
	CurrentProfit   int64     `json:"currentProfit"`
	IncomeRate      int64     `json:"incomeRate"`
	ProfitRate      int64     `json:"profitRate"`
	IncomeRemaining int64     `json:"incomeRemaining"`
	ProfitRemaining int64     `json:"profitRemaining"`
	InDeficit       bool      `json:"inDeficit"`
	RunRate         *RunRate  `json:"runRate,omitempty"`
}

// GoalTransactions selects the rows a goal is measured against. Yearly goals
// only count months up to asOfMonth; a value outside 1..12 counts the whole year.
func GoalTransactions(goal core.Goal, txs []core.Transaction, asOfMonth int) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range txs {
		y, m, _ := core.DateParts(t.Date)
		if y != goal.Year {
			continue
		}
		switch goal.GoalType {
		case core.Monthly:
			if m != goal.Month {
				continue
			}
		case core.Yearly:
			if asOfMonth >= 1 && asOfMonth <= 12 && m > asOfMonth {
				continue
			}
		default:
			continue
		}
		out = append(out, t)
	}
	return out
}

// AchievementRate is round(current/goal*100) clamped to [0,100]; 0 when the
// goal is not positive.
func AchievementRate(current, goal int64) int64 {
	if goal <= 0 {
		return 0
	}
	rate := Round(float64(current) / float64(goal) * 100)
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}

// EvaluateGoal measures goal against txs at now.
func EvaluateGoal(goal core.Goal, txs []core.Transaction, asOfMonth int, now time.Time) GoalProgress {
	subset := GoalTransactions(goal, txs, asOfMonth)
	income := Sum(subset, core.Income)
	profit := Profit(subset)

	p := GoalProgress{
		Goal:            goal,
		CurrentIncome:   income,
		CurrentProfit:   profit,
		IncomeRate:      AchievementRate(income, goal.IncomeGoal),
		ProfitRate:      AchievementRate(profit, goal.ProfitGoal),
		IncomeRemaining: remaining(goal.IncomeGoal, income),
		ProfitRemaining: remaining(goal.ProfitGoal, profit),
		InDeficit:       profit < 0,
	}

	if goal.GoalType == core.Monthly && goal.Year == now.Year() && goal.Month == int(now.Month()) {
		days := DaysIn(now.Year(), now.Month())
		left := days - now.Day() + 1
		p.RunRate = &RunRate{
			CurrentDay:        now.Day(),
			DaysInMonth:       days,
			RemainingDays:     left,
			DailyIncomeNeeded: ceilDiv(p.IncomeRemaining, int64(left)),
			DailyProfitNeeded: ceilDiv(p.ProfitRemaining, int64(left)),
		}
	}
	return p
}

// FindGoal returns the goal stored for the given slot. month is ignored
// for yearly goals.
func FindGoal(goals []core.Goal, typ core.GoalType, year, month int) (core.Goal, bool) {
	for _, g := range goals {
		if g.GoalType != typ || g.Year != year {
			continue
		}
		if typ == core.Monthly && g.Month != month {
			continue
		}
		return g, true
	}
	return core.Goal{}, false
}

func remaining(goal, current int64) int64 {
	if current >= goal {
		return 0
	}
	return goal - current
}

func ceilDiv(n, d int64) int64 {
	if n <= 0 || d <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
