package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"salesbook/internal/core"
	"salesbook/internal/sheets/memory"
)

func TestGoalService_SaveValidates(t *testing.T) {
	store := memory.New()
	svc := NewGoalService(store, store)
	ctx := context.Background()

	cases := []struct {
		name string
		goal core.Goal
		want error
	}{
		{"profit above income", core.Goal{GoalType: core.Monthly, Year: 2024, Month: 3, IncomeGoal: 10, ProfitGoal: 20}, core.ErrProfitExceedsIncome},
		{"bad month", core.Goal{GoalType: core.Monthly, Year: 2024, Month: 13}, core.ErrInvalidMonth},
		{"bad type", core.Goal{GoalType: "weekly", Year: 2024}, core.ErrInvalidGoalType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Save(ctx, "o", tc.goal); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
	if _, err := svc.Save(ctx, "", core.Goal{GoalType: core.Yearly, Year: 2024}); !errors.Is(err, core.ErrEmptyOwner) {
		t.Fatalf("expected empty owner error, got %v", err)
	}
}

func TestGoalService_Progress(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewGoalService(store, store)
	svc.now = func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) }

	if _, err := svc.Save(ctx, "o", core.Goal{GoalType: core.Monthly, Year: 2024, Month: 3, IncomeGoal: 3100000, ProfitGoal: 1000000}); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.InsertTransactions(ctx, "o", []core.Transaction{
		{Date: "2024-03-02", Type: core.Income, PaymentMethod: core.Card, Amount: 1000000},
		{Date: "2024-03-03", Type: core.Expense, PaymentMethod: core.Cash, Amount: 200000},
	})

	p, ok, err := svc.Progress(ctx, "o", ProgressQuery{GoalType: core.Monthly, Year: 2024, Month: 3})
	if err != nil || !ok {
		t.Fatalf("progress ok=%v err=%v", ok, err)
	}
	if p.IncomeRate != 32 || p.ProfitRate != 80 || p.RunRate == nil || p.RunRate.RemainingDays != 22 {
		t.Fatalf("unexpected progress %+v", p)
	}

	if _, ok, err := svc.Progress(ctx, "o", ProgressQuery{GoalType: core.Yearly, Year: 2024, Month: 3}); err != nil || ok {
		t.Fatalf("expected no yearly goal, ok=%v err=%v", ok, err)
	}
}

func TestGoalService_Delete(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewGoalService(store, store)

	g, err := svc.Save(ctx, "o", core.Goal{GoalType: core.Yearly, Year: 2024, IncomeGoal: 10})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.Delete(ctx, "o", g.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	goals, _ := svc.List(ctx, "o")
	if len(goals) != 0 {
		t.Fatalf("expected no goals, got %+v", goals)
	}
}

func TestGoalService_YearlyGoalIgnoresMonthOnSave(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewGoalService(store, store)

	g, err := svc.Save(ctx, "o", core.Goal{GoalType: core.Yearly, Year: 2024, Month: 7, IncomeGoal: 10})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if g.Month != 0 {
		t.Fatalf("yearly goal saved with month %d, want 0", g.Month)
	}
}

func TestGoalService_YearlyProgressCutsOffAtSelectedMonth(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewGoalService(store, store)
	svc.now = func() time.Time { return time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC) }

	if _, err := svc.Save(ctx, "o", core.Goal{GoalType: core.Yearly, Year: 2024, IncomeGoal: 1000}); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.InsertTransactions(ctx, "o", []core.Transaction{
		{Date: "2024-02-10", Type: core.Income, PaymentMethod: core.Card, Amount: 100},
		{Date: "2024-11-10", Type: core.Income, PaymentMethod: core.Card, Amount: 900},
	})

	tests := []struct {
		name       string
		q          ProgressQuery
		wantIncome int64
		wantRate   int64
	}{
		{"selected month is the cutoff", ProgressQuery{GoalType: core.Yearly, Year: 2024, Month: 3}, 100, 10},
		{"explicit as-of wins", ProgressQuery{GoalType: core.Yearly, Year: 2024, Month: 3, AsOfMonth: 12}, 1000, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok, err := svc.Progress(ctx, "o", tt.q)
			if err != nil || !ok {
				t.Fatalf("progress ok=%v err=%v", ok, err)
			}
			if p.CurrentIncome != tt.wantIncome || p.IncomeRate != tt.wantRate {
				t.Fatalf("income=%d rate=%d, want %d/%d", p.CurrentIncome, p.IncomeRate, tt.wantIncome, tt.wantRate)
			}
		})
	}
}

func TestGoalService_ProgressRejectsBadQuery(t *testing.T) {
	store := memory.New()
	svc := NewGoalService(store, store)

	cases := []struct {
		name string
		q    ProgressQuery
		want error
	}{
		{"month 13", ProgressQuery{GoalType: core.Monthly, Year: 2024, Month: 13}, core.ErrInvalidMonth},
		{"month 0", ProgressQuery{GoalType: core.Yearly, Year: 2024}, core.ErrInvalidMonth},
		{"as-of 13", ProgressQuery{GoalType: core.Yearly, Year: 2024, Month: 3, AsOfMonth: 13}, core.ErrInvalidMonth},
		{"year", ProgressQuery{GoalType: core.Monthly, Year: 12, Month: 3}, core.ErrInvalidYear},
		{"type", ProgressQuery{GoalType: "weekly", Year: 2024, Month: 3}, core.ErrInvalidGoalType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.Progress(context.Background(), "o", tc.q); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}
