package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"salesbook/internal/amqp"
	"salesbook/internal/core"
	"salesbook/internal/ledger"
	"salesbook/internal/sheets"
)

// Publisher announces ledger changes to downstream consumers.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// ErrReplaceIncomplete marks an entry edit whose insert step failed after
// the old rows were already deleted.
var ErrReplaceIncomplete = errors.New("entry replace incomplete")

// ErrInvalidPeriod is returned for period keys other than YYYY or YYYY-MM.
var ErrInvalidPeriod = errors.New("invalid period")

// DuplicateError is a confirmable warning: the entries already exist and
// are only stored when the caller confirms.
type DuplicateError struct {
	Duplicates []core.Entry
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%d entries already exist", len(e.Duplicates))
}

// ReplaceError reports a failed edit saga. Restored is true when the
// original rows were put back.
type ReplaceError struct {
	Restored        bool
	Err             error
	CompensationErr error
}

func (e *ReplaceError) Error() string {
	if e.Restored {
		return fmt.Sprintf("replace entry: %v (original rows restored)", e.Err)
	}
	return fmt.Sprintf("replace entry: %v (restore failed: %v)", e.Err, e.CompensationErr)
}

func (e *ReplaceError) Unwrap() []error {
	return []error{ErrReplaceIncomplete, e.Err}
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Total       int    `json:"total"`
	Imported    int    `json:"imported"`
	Duplicates  int    `json:"duplicates"`
	Invalid     int    `json:"invalid"`
	LatestMonth string `json:"latestMonth,omitempty"`
	DryRun      bool   `json:"dryRun"`
}

// LedgerService orchestrates ledger mutations across the store and AMQP.
type LedgerService struct {
	store     sheets.TransactionStore
	publisher Publisher
}

// NewLedgerService wires the store and an optional publisher.
func NewLedgerService(store sheets.TransactionStore, publisher Publisher) *LedgerService {
	return &LedgerService{store: store, publisher: publisher}
}

// List returns every transaction of owner, most recent first.
func (s *LedgerService) List(ctx context.Context, owner string) ([]core.Transaction, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	txs, err := s.store.ListTransactions(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Entries returns owner's rows of typ grouped into logical entries.
func (s *LedgerService) Entries(ctx context.Context, owner string, typ core.TxType) ([]core.Entry, error) {
	txs, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	return ledger.EntriesOfType(txs, typ), nil
}

// AddEntries stores entries as split rows. Entries equal to an existing one
// yield a *DuplicateError unless confirmDuplicates is set.
func (s *LedgerService) AddEntries(ctx context.Context, owner string, typ core.TxType, entries []core.Entry, confirmDuplicates bool) ([]core.Transaction, error) {
	if !typ.IsValid() {
		return nil, core.ErrInvalidType
	}
	clean, err := normalizeEntries(entries)
	if err != nil {
		return nil, err
	}

	existing, err := s.Entries(ctx, owner, typ)
	if err != nil {
		return nil, err
	}
	if dups, _ := ledger.FindDuplicates(clean, existing); len(dups) > 0 && !confirmDuplicates {
		return nil, &DuplicateError{Duplicates: dups}
	}

	stored, err := s.insertEntries(ctx, owner, typ, clean)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, owner, "create", periodsOf(stored))
	return stored, nil
}

// ReplaceEntry swaps the rows oldIDs for a fresh split of entry. The store
// offers no multi-statement transaction, so the edit runs as a saga: the
// old rows are snapshotted, deleted, and re-inserted if the new insert fails.
func (s *LedgerService) ReplaceEntry(ctx context.Context, owner string, typ core.TxType, oldIDs []string, entry core.Entry) ([]core.Transaction, error) {
	if !typ.IsValid() {
		return nil, core.ErrInvalidType
	}
	entry = entry.Normalize()
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	all, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	snapshot := selectByID(all, oldIDs)
	if len(snapshot) == 0 {
		return nil, core.ErrNotFound
	}

	if _, err := s.store.DeleteTransactions(ctx, owner, idsOf(snapshot)); err != nil {
		return nil, fmt.Errorf("delete old rows: %w", err)
	}

	stored, err := s.store.InsertTransactions(ctx, owner, ledger.SplitEntry(entry, typ, uuid.NewString()))
	if err != nil {
		rerr := &ReplaceError{Err: err}
		if _, cerr := s.store.InsertTransactions(ctx, owner, snapshot); cerr != nil {
			rerr.CompensationErr = cerr
			slog.ErrorContext(ctx, "Entry replace left a gap", "owner_id", owner, "rows", len(snapshot), "error", cerr)
			s.publish(ctx, owner, "replace", periodsOf(snapshot))
		} else {
			rerr.Restored = true
			slog.WarnContext(ctx, "Entry replace rolled back", "owner_id", owner, "error", err)
		}
		return nil, rerr
	}

	s.publish(ctx, owner, "replace", append(periodsOf(snapshot), periodsOf(stored)...))
	return stored, nil
}

// Delete removes rows by id and returns how many were removed.
func (s *LedgerService) Delete(ctx context.Context, owner string, ids []string) (int, error) {
	if owner == "" {
		return 0, core.ErrEmptyOwner
	}
	if len(ids) == 0 {
		return 0, nil
	}
	all, err := s.List(ctx, owner)
	if err != nil {
		return 0, err
	}
	victims := selectByID(all, ids)

	n, err := s.store.DeleteTransactions(ctx, owner, ids)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	if n > 0 {
		s.publish(ctx, owner, "delete", periodsOf(victims))
	}
	return n, nil
}

// DeletePeriod removes every row of typ (all types when empty) whose date
// falls in periodKey.
func (s *LedgerService) DeletePeriod(ctx context.Context, owner string, typ core.TxType, periodKey string) (int, error) {
	if typ != "" && !typ.IsValid() {
		return 0, core.ErrInvalidType
	}
	if !ledger.ValidPeriodKey(periodKey, ledger.Month) && !ledger.ValidPeriodKey(periodKey, ledger.Year) {
		return 0, fmt.Errorf("%w %q: expected YYYY or YYYY-MM", ErrInvalidPeriod, periodKey)
	}
	all, err := s.List(ctx, owner)
	if err != nil {
		return 0, err
	}
	var ids []string
	var victims []core.Transaction
	for _, t := range ledger.FilterByPeriod(all, periodKey) {
		if typ == "" || t.Type == typ {
			ids = append(ids, t.ID)
			victims = append(victims, t)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.store.DeleteTransactions(ctx, owner, ids)
	if err != nil {
		return 0, fmt.Errorf("delete period: %w", err)
	}
	s.publish(ctx, owner, "delete", periodsOf(victims))
	return n, nil
}

// Import stores parsed entries, skipping invalid ones and those already
// present (in the store or earlier in the same batch). A dry run only counts.
func (s *LedgerService) Import(ctx context.Context, owner string, typ core.TxType, entries []core.Entry, dryRun bool) (ImportResult, error) {
	res := ImportResult{Total: len(entries), DryRun: dryRun}
	if !typ.IsValid() {
		return res, core.ErrInvalidType
	}

	existing, err := s.Entries(ctx, owner, typ)
	if err != nil {
		return res, err
	}

	fresh := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		e = e.Normalize()
		if e.Validate() != nil {
			res.Invalid++
			continue
		}
		if dups, _ := ledger.FindDuplicates([]core.Entry{e}, existing); len(dups) > 0 {
			res.Duplicates++
			continue
		}
		existing = append(existing, e)
		fresh = append(fresh, e)
		if m := ledger.PeriodKey(e.Date, ledger.Month); m > res.LatestMonth {
			res.LatestMonth = m
		}
	}
	res.Imported = len(fresh)

	if dryRun || len(fresh) == 0 {
		return res, nil
	}
	stored, err := s.insertEntries(ctx, owner, typ, fresh)
	if err != nil {
		return res, err
	}
	s.publish(ctx, owner, "import", periodsOf(stored))
	return res, nil
}

// insertEntries splits every entry under its own group id and stores the
// rows in one batch.
func (s *LedgerService) insertEntries(ctx context.Context, owner string, typ core.TxType, entries []core.Entry) ([]core.Transaction, error) {
	rows := make([]core.Transaction, 0, len(entries)*len(core.PaymentMethods))
	for _, e := range entries {
		rows = append(rows, ledger.SplitEntry(e, typ, uuid.NewString())...)
	}
	stored, err := s.store.InsertTransactions(ctx, owner, rows)
	if err != nil {
		return nil, fmt.Errorf("insert transactions: %w", err)
	}
	return stored, nil
}

// publish sends a change event. Failures are logged only: the rows are
// already committed.
func (s *LedgerService) publish(ctx context.Context, owner, op string, periods []string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping ledger event", "owner_id", owner)
		return
	}
	msg := amqp.NewLedgerChangedMessage(owner, op, periods)
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"owner_id", owner, "operation", op, "error", err)
	}
}

func normalizeEntries(entries []core.Entry) ([]core.Entry, error) {
	if len(entries) == 0 {
		return nil, core.ErrEmptyEntry
	}
	out := make([]core.Entry, len(entries))
	for i, e := range entries {
		e = e.Normalize()
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		out[i] = e
	}
	return out, nil
}

func selectByID(txs []core.Transaction, ids []string) []core.Transaction {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []core.Transaction
	for _, t := range txs {
		if _, ok := want[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out
}

func idsOf(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

// periodsOf lists the distinct month keys touched by txs.
func periodsOf(txs []core.Transaction) []string {
	out := ledger.ExtractPeriods(txs, ledger.Month)
	sort.Strings(out)
	return out
}

