package sheets

import (
	"context"

	"salesbook/internal/core"
	"salesbook/internal/ledger"
)

// Ports for outbound adapters.
type (
	// TransactionStore persists an owner's transaction rows.
	TransactionStore interface {
		// ListTransactions returns every row of owner, most recent date first.
		ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
		// InsertTransactions stores rows for owner, assigning ids and
		// timestamps, and returns the stored rows.
		InsertTransactions(ctx context.Context, owner string, rows []core.Transaction) ([]core.Transaction, error)
		// DeleteTransactions removes the given ids of owner and reports how
		// many rows were removed. Unknown ids are ignored.
		DeleteTransactions(ctx context.Context, owner string, ids []string) (int, error)
	}

	// GoalStore persists goals, one per (owner, type, year, month).
	GoalStore interface {
		ListGoals(ctx context.Context, owner string) ([]core.Goal, error)
		// UpsertGoal inserts g or updates the goal already stored under its key.
		UpsertGoal(ctx context.Context, owner string, g core.Goal) (core.Goal, error)
		DeleteGoal(ctx context.Context, owner, id string) error
	}

	// OwnerLister lists every owner with at least one transaction.
	OwnerLister interface {
		Owners(ctx context.Context) ([]string, error)
	}

	// ReportWriter publishes a month report for an owner.
	ReportWriter interface {
		WriteMonthReport(ctx context.Context, owner string, report ledger.MonthReport) error
	}
)
