package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"salesbook/internal/core"
	"salesbook/internal/ledger"
	"salesbook/internal/sheets"
)

// GoalService manages goals and evaluates their progress.
type GoalService struct {
	goals sheets.GoalStore
	txs   sheets.TransactionStore
	now   func() time.Time
}

func NewGoalService(goals sheets.GoalStore, txs sheets.TransactionStore) *GoalService {
	return &GoalService{goals: goals, txs: txs, now: time.Now}
}

func (s *GoalService) List(ctx context.Context, owner string) ([]core.Goal, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	goals, err := s.goals.ListGoals(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// Save validates g and upserts it on its (type, year, month) slot. A
// yearly goal always lands on month 0, whatever month it was sent with.
func (s *GoalService) Save(ctx context.Context, owner string, g core.Goal) (core.Goal, error) {
	if owner == "" {
		return core.Goal{}, core.ErrEmptyOwner
	}
	if g.GoalType == core.Yearly {
		g.Month = 0
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	saved, err := s.goals.UpsertGoal(ctx, owner, g)
	if err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	return saved, nil
}

func (s *GoalService) Delete(ctx context.Context, owner, id string) error {
	if owner == "" {
		return core.ErrEmptyOwner
	}
	return s.goals.DeleteGoal(ctx, owner, id)
}

// ProgressQuery selects the goal slot to evaluate. Month is the selected
// month: the slot of a monthly goal, and the cutoff of a yearly one unless
// AsOfMonth (1..12) overrides it.
type ProgressQuery struct {
	GoalType  core.GoalType
	Year      int
	Month     int
	AsOfMonth int
}

func (q ProgressQuery) validate() error {
	if !q.GoalType.IsValid() {
		return core.ErrInvalidGoalType
	}
	if q.Year < 1900 || q.Year > 9999 {
		return core.ErrInvalidYear
	}
	if q.Month < 1 || q.Month > 12 {
		return core.ErrInvalidMonth
	}
	if q.AsOfMonth < 0 || q.AsOfMonth > 12 {
		return fmt.Errorf("%w: as-of month %d", core.ErrInvalidMonth, q.AsOfMonth)
	}
	return nil
}

// Progress evaluates the goal stored for q. The bool is false when no goal
// is set for that slot.
func (s *GoalService) Progress(ctx context.Context, owner string, q ProgressQuery) (ledger.GoalProgress, bool, error) {
	if owner == "" {
		return ledger.GoalProgress{}, false, core.ErrEmptyOwner
	}
	if err := q.validate(); err != nil {
		return ledger.GoalProgress{}, false, err
	}
	slot, asOf := q.Month, q.AsOfMonth
	if q.GoalType == core.Yearly {
		slot = 0
		if asOf == 0 {
			asOf = q.Month
		}
	}

	var (
		goals []core.Goal
		txs   []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goals, err = s.goals.ListGoals(gctx, owner)
		if err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = s.txs.ListTransactions(gctx, owner)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return ledger.GoalProgress{}, false, err
	}

	goal, ok := ledger.FindGoal(goals, q.GoalType, q.Year, slot)
	if !ok {
		return ledger.GoalProgress{}, false, nil
	}
	return ledger.EvaluateGoal(goal, txs, asOf, s.now()), true, nil
}
