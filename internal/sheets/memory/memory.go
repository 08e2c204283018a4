package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"salesbook/internal/core"
	"salesbook/internal/ledger"
)

// Store keeps transactions and goals in process memory.
type Store struct {
	mu    sync.Mutex
	txs   map[string][]core.Transaction
	goals map[string][]core.Goal
	now   func() time.Time
}

func New() *Store {
	return &Store{
		txs:   make(map[string][]core.Transaction),
		goals: make(map[string][]core.Goal),
		now:   time.Now,
	}
}

// ListTransactions returns a copy of owner's rows, most recent date first.
func (s *Store) ListTransactions(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction(nil), s.txs[owner]...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// InsertTransactions validates every row before storing any of them.
func (s *Store) InsertTransactions(_ context.Context, owner string, rows []core.Transaction) ([]core.Transaction, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	for i, r := range rows {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := s.now().UTC()
	out := make([]core.Transaction, len(rows))
	for i, r := range rows {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.OwnerID = owner
		r.CreatedAt = stamp
		out[i] = r
	}
	s.txs[owner] = append(s.txs[owner], out...)
	return out, nil
}

func (s *Store) DeleteTransactions(_ context.Context, owner string, ids []string) (int, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.txs[owner][:0]
	removed := 0
	for _, t := range s.txs[owner] {
		if _, ok := drop[t.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.txs[owner] = kept
	return removed, nil
}

// Owners lists owners holding at least one transaction, sorted.
func (s *Store) Owners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.txs))
	for owner, txs := range s.txs {
		if len(txs) > 0 {
			out = append(out, owner)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListGoals(_ context.Context, owner string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Goal(nil), s.goals[owner]...), nil
}

// UpsertGoal replaces the goal stored under g's key, keeping its id and
// creation time.
func (s *Store) UpsertGoal(_ context.Context, owner string, g core.Goal) (core.Goal, error) {
	if owner == "" {
		return core.Goal{}, core.ErrEmptyOwner
	}
	if g.GoalType == core.Yearly {
		g.Month = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stamp := s.now().UTC()
	g.OwnerID = owner
	g.UpdatedAt = stamp
	for i, existing := range s.goals[owner] {
		if existing.Key() == g.Key() {
			g.ID = existing.ID
			g.CreatedAt = existing.CreatedAt
			s.goals[owner][i] = g
			return g, nil
		}
	}
	g.ID = uuid.NewString()
	g.CreatedAt = stamp
	s.goals[owner] = append(s.goals[owner], g)
	return g, nil
}

func (s *Store) DeleteGoal(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	goals := s.goals[owner]
	for i, g := range goals {
		if g.ID == id {
			s.goals[owner] = append(goals[:i], goals[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

// ReportWriter records month reports keyed by owner and period.
type ReportWriter struct {
	mu      sync.Mutex
	reports map[string]ledger.MonthReport
}

func NewReportWriter() *ReportWriter {
	return &ReportWriter{reports: make(map[string]ledger.MonthReport)}
}

func (w *ReportWriter) WriteMonthReport(_ context.Context, owner string, report ledger.MonthReport) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports[owner+"/"+report.PeriodKey] = report
	return nil
}

// Report returns the last report written for owner and period.
func (w *ReportWriter) Report(owner, period string) (ledger.MonthReport, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.reports[owner+"/"+period]
	return r, ok
}
