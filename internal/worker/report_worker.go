package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"salesbook/internal/amqp"
	"salesbook/internal/core"
	"salesbook/internal/ledger"
	"salesbook/internal/sheets"
)

const defaultConcurrency = 4

// ReportWorker keeps month reports in sync with the ledger: every change
// event rewrites the reports of the months it touched.
type ReportWorker struct {
	store       sheets.TransactionStore
	writer      sheets.ReportWriter
	concurrency int
}

// NewReportWorker builds a worker writing at most concurrency reports at
// once. Values below one fall back to a default.
func NewReportWorker(store sheets.TransactionStore, writer sheets.ReportWriter, concurrency int) *ReportWorker {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &ReportWorker{store: store, writer: writer, concurrency: concurrency}
}

// HandleLedgerChanged processes a single ledger change message from AMQP.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"owner_id", msg.OwnerID,
		"operation", msg.Operation,
		"periods", msg.Periods)

	if msg.OwnerID == "" || len(msg.Periods) == 0 {
		slog.WarnContext(ctx, "Ignoring ledger change without owner or periods")
		return nil
	}
	return w.writeReports(ctx, msg.OwnerID, msg.Periods)
}

// RefreshAll rewrites the report of every month of every owner. It is the
// backup path for events lost while the worker was down.
func (w *ReportWorker) RefreshAll(ctx context.Context, owners sheets.OwnerLister) error {
	list, err := owners.Owners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}
	slog.InfoContext(ctx, "Refreshing month reports", "owners", len(list))

	var errs []error
	for _, owner := range list {
		if err := w.RefreshOwner(ctx, owner); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshOwner rewrites the reports of every month owner has data in.
func (w *ReportWorker) RefreshOwner(ctx context.Context, owner string) error {
	txs, err := w.store.ListTransactions(ctx, owner)
	if err != nil {
		return fmt.Errorf("list transactions of %s: %w", owner, err)
	}
	return w.write(ctx, owner, txs, ledger.ExtractPeriods(txs, ledger.Month))
}

func (w *ReportWorker) writeReports(ctx context.Context, owner string, periods []string) error {
	txs, err := w.store.ListTransactions(ctx, owner)
	if err != nil {
		return fmt.Errorf("list transactions of %s: %w", owner, err)
	}
	return w.write(ctx, owner, txs, periods)
}

// write builds and writes one report per period with bounded fan-out. Every
// period is attempted; the failures are joined.
func (w *ReportWorker) write(ctx context.Context, owner string, txs []core.Transaction, periods []string) error {
	periods = append([]string(nil), periods...)
	sort.Strings(periods)

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	errs := make([]error, len(periods))
	for i, period := range periods {
		g.Go(func() error {
			report, err := ledger.BuildMonthReport(txs, period)
			if err != nil {
				// requeueing cannot fix a malformed period
				slog.WarnContext(ctx, "Skipping invalid report period",
					"owner_id", owner, "period", period, "error", err)
				return nil
			}
			if err := w.writer.WriteMonthReport(ctx, owner, report); err != nil {
				slog.ErrorContext(ctx, "Failed to write month report",
					"owner_id", owner, "period", period, "error", err)
				errs[i] = fmt.Errorf("write report %s: %w", period, err)
			}
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}
