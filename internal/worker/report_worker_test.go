package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"salesbook/internal/amqp"
	"salesbook/internal/core"
	"salesbook/internal/ledger"
	"salesbook/internal/sheets/memory"
)

type flakyWriter struct {
	*memory.ReportWriter
	mu      sync.Mutex
	failFor string
	calls   int
}

func (w *flakyWriter) WriteMonthReport(ctx context.Context, owner string, r ledger.MonthReport) error {
	w.mu.Lock()
	w.calls++
	w.mu.Unlock()
	if r.PeriodKey == w.failFor {
		return errors.New("quota exceeded")
	}
	return w.ReportWriter.WriteMonthReport(ctx, owner, r)
}

func seed(t *testing.T, store *memory.Store, owner string) {
	t.Helper()
	_, err := store.InsertTransactions(context.Background(), owner, []core.Transaction{
		{Date: "2024-02-10", Type: core.Income, PaymentMethod: core.Card, Amount: 500},
		{Date: "2024-03-01", Type: core.Income, PaymentMethod: core.Cash, Amount: 1000},
		{Date: "2024-03-05", Type: core.Expense, PaymentMethod: core.Card, Amount: 300},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestHandleLedgerChanged(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seed(t, store, "o")
	writer := memory.NewReportWriter()
	w := NewReportWorker(store, writer, 0)

	msg := amqp.NewLedgerChangedMessage("o", "create", []string{"2024-03"})
	if err := w.HandleLedgerChanged(ctx, msg); err != nil {
		t.Fatalf("HandleLedgerChanged: %v", err)
	}

	r, ok := writer.Report("o", "2024-03")
	if !ok {
		t.Fatal("expected March report")
	}
	if r.Summary.Income != 1000 || r.Summary.Expense != 300 || len(r.Daily) != 31 {
		t.Fatalf("unexpected report %+v", r.Summary)
	}
	if _, ok := writer.Report("o", "2024-02"); ok {
		t.Fatal("February was not part of the event")
	}
}

func TestHandleLedgerChanged_EmptyPeriodWritesZeroReport(t *testing.T) {
	// a delete can empty a month; its report must still be rewritten
	writer := memory.NewReportWriter()
	w := NewReportWorker(memory.New(), writer, 2)

	msg := amqp.NewLedgerChangedMessage("o", "delete", []string{"2024-04"})
	if err := w.HandleLedgerChanged(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerChanged: %v", err)
	}
	r, ok := writer.Report("o", "2024-04")
	if !ok || r.Summary.Income != 0 || len(r.Daily) != 30 {
		t.Fatalf("expected zeroed April report, got ok=%v %+v", ok, r)
	}
}

func TestHandleLedgerChanged_Failures(t *testing.T) {
	store := memory.New()
	seed(t, store, "o")
	writer := &flakyWriter{ReportWriter: memory.NewReportWriter(), failFor: "2024-02"}
	w := NewReportWorker(store, writer, 1)

	msg := &amqp.LedgerChangedMessage{OwnerID: "o", Periods: []string{"2024-02", "2024-03", "bogus"}}
	err := w.HandleLedgerChanged(context.Background(), msg)
	if err == nil || !strings.Contains(err.Error(), "2024-02") {
		t.Fatalf("expected February failure, got %v", err)
	}
	if _, ok := writer.Report("o", "2024-03"); !ok {
		t.Fatal("March must be written despite the February failure")
	}
	if writer.calls != 2 {
		t.Fatalf("invalid period must be skipped, got %d writes", writer.calls)
	}

	if err := w.HandleLedgerChanged(context.Background(), &amqp.LedgerChangedMessage{OwnerID: "o"}); err != nil {
		t.Fatalf("empty event should be ignored, got %v", err)
	}
}

func TestRefreshAll(t *testing.T) {
	store := memory.New()
	seed(t, store, "a")
	seed(t, store, "b")
	writer := memory.NewReportWriter()
	w := NewReportWorker(store, writer, 3)

	if err := w.RefreshAll(context.Background(), store); err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	for _, owner := range []string{"a", "b"} {
		for _, period := range []string{"2024-02", "2024-03"} {
			if _, ok := writer.Report(owner, period); !ok {
				t.Errorf("missing report %s %s", owner, period)
			}
		}
	}
}
