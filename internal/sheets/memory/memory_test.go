package memory

import (
	"context"
	"errors"
	"testing"

	"salesbook/internal/core"
	"salesbook/internal/ledger"
)

func TestStoreInsertListDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	rows, err := s.InsertTransactions(ctx, "o1", []core.Transaction{
		{Date: "2024-03-01", Type: core.Income, PaymentMethod: core.Card, Amount: 10},
		{Date: "2024-03-05", Type: core.Expense, PaymentMethod: core.Cash, Amount: 4},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if rows[0].ID == "" || rows[0].OwnerID != "o1" || rows[0].CreatedAt.IsZero() {
		t.Fatalf("expected ids and owner assigned, got %+v", rows[0])
	}

	list, _ := s.ListTransactions(ctx, "o1")
	if len(list) != 2 || list[0].Date != "2024-03-05" {
		t.Fatalf("expected date-descending list, got %+v", list)
	}
	if other, _ := s.ListTransactions(ctx, "o2"); len(other) != 0 {
		t.Fatalf("owners must be isolated, got %+v", other)
	}

	n, err := s.DeleteTransactions(ctx, "o1", []string{rows[0].ID, "missing"})
	if err != nil || n != 1 {
		t.Fatalf("unexpected delete result n=%d err=%v", n, err)
	}
	list, _ = s.ListTransactions(ctx, "o1")
	if len(list) != 1 {
		t.Fatalf("expected one row left, got %+v", list)
	}
}

func TestStoreInsertRejectsInvalidBatch(t *testing.T) {
	s := New()
	_, err := s.InsertTransactions(context.Background(), "o1", []core.Transaction{
		{Date: "2024-03-01", Type: core.Income, PaymentMethod: core.Card, Amount: 10},
		{Date: "2024-3-1", Type: core.Income, PaymentMethod: core.Card, Amount: 10},
	})
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected invalid date, got %v", err)
	}
	if list, _ := s.ListTransactions(context.Background(), "o1"); len(list) != 0 {
		t.Fatalf("nothing should be stored, got %+v", list)
	}
}

func TestStoreUpsertGoalKeepsOneRowPerKey(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.UpsertGoal(ctx, "o1", core.Goal{GoalType: core.Monthly, Year: 2024, Month: 3, IncomeGoal: 100})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := s.UpsertGoal(ctx, "o1", core.Goal{GoalType: core.Monthly, Year: 2024, Month: 3, IncomeGoal: 200})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if second.ID != first.ID || second.IncomeGoal != 200 {
		t.Fatalf("expected update in place, got %+v", second)
	}
	if _, err := s.UpsertGoal(ctx, "o1", core.Goal{GoalType: core.Yearly, Year: 2024, Month: 7}); err != nil {
		t.Fatalf("upsert yearly: %v", err)
	}

	goals, _ := s.ListGoals(ctx, "o1")
	if len(goals) != 2 {
		t.Fatalf("expected 2 goals, got %+v", goals)
	}
	for _, g := range goals {
		if g.GoalType == core.Yearly && g.Month != 0 {
			t.Fatalf("yearly goal month must be 0, got %d", g.Month)
		}
	}

	if err := s.DeleteGoal(ctx, "o1", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteGoal(ctx, "o1", first.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReportWriter(t *testing.T) {
	w := NewReportWriter()
	if err := w.WriteMonthReport(context.Background(), "o1", ledger.MonthReport{PeriodKey: "2024-03"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, ok := w.Report("o1", "2024-03"); !ok {
		t.Fatalf("expected stored report")
	}
	if _, ok := w.Report("o1", "2024-04"); ok {
		t.Fatalf("unexpected report")
	}
}
