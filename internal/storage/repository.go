package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"salesbook/internal/core"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const txColumns = `id, owner_id, date, type, payment_method, amount, memo, category, vendor, description, entry_group_id, created_at`

// ListTransactions implements sheets.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE owner_id = ? ORDER BY date DESC, created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			t       core.Transaction
			typ, pm string
			created string
		)
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Date, &typ, &pm, &t.Amount,
			&t.Memo, &t.Category, &t.Vendor, &t.Description, &t.EntryGroupID, &created); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TxType(typ)
		t.PaymentMethod = core.PaymentMethod(pm)
		t.CreatedAt = parseTime(created)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// InsertTransactions implements sheets.TransactionStore. The batch is
// all-or-nothing.
func (r *SQLiteRepository) InsertTransactions(ctx context.Context, owner string, batch []core.Transaction) ([]core.Transaction, error) {
	if owner == "" {
		return nil, core.ErrEmptyOwner
	}
	for i, t := range batch {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (`+txColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	stamp := r.now().UTC()
	out := make([]core.Transaction, len(batch))
	for i, t := range batch {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.OwnerID = owner
		t.CreatedAt = stamp
		if _, err := stmt.ExecContext(ctx, t.ID, owner, t.Date, string(t.Type), string(t.PaymentMethod), t.Amount,
			t.Memo, t.Category, t.Vendor, t.Description, t.EntryGroupID, stamp.Format(timeLayout)); err != nil {
			return nil, fmt.Errorf("insert transaction %d: %w", i, err)
		}
		out[i] = t
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert: %w", err)
	}

	slog.DebugContext(ctx, "Transactions saved to SQLite", "owner_id", owner, "rows", len(out))
	return out, nil
}

// DeleteTransactions implements sheets.TransactionStore
func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, owner string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE owner_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	return int(n), nil
}

// ListGoals implements sheets.GoalStore
func (r *SQLiteRepository) ListGoals(ctx context.Context, owner string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, goal_type, year, month, income_goal, profit_goal, created_at, updated_at
		 FROM goals WHERE owner_id = ? ORDER BY year DESC, month DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		var (
			g                core.Goal
			typ              string
			created, updated string
		)
		if err := rows.Scan(&g.ID, &g.OwnerID, &typ, &g.Year, &g.Month, &g.IncomeGoal, &g.ProfitGoal, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.GoalType = core.GoalType(typ)
		g.CreatedAt = parseTime(created)
		g.UpdatedAt = parseTime(updated)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return out, nil
}

// UpsertGoal implements sheets.GoalStore with a single statement keyed on
// (owner, type, year, month).
func (r *SQLiteRepository) UpsertGoal(ctx context.Context, owner string, g core.Goal) (core.Goal, error) {
	if owner == "" {
		return core.Goal{}, core.ErrEmptyOwner
	}
	if g.GoalType == core.Yearly {
		g.Month = 0
	}
	stamp := r.now().UTC().Format(timeLayout)

	var created, updated string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO goals (id, owner_id, goal_type, year, month, income_goal, profit_goal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, goal_type, year, month) DO UPDATE SET
			income_goal = excluded.income_goal,
			profit_goal = excluded.profit_goal,
			updated_at  = excluded.updated_at
		RETURNING id, created_at, updated_at`,
		uuid.NewString(), owner, string(g.GoalType), g.Year, g.Month, g.IncomeGoal, g.ProfitGoal, stamp, stamp,
	).Scan(&g.ID, &created, &updated)
	if err != nil {
		return core.Goal{}, fmt.Errorf("upsert goal: %w", err)
	}
	g.OwnerID = owner
	g.CreatedAt = parseTime(created)
	g.UpdatedAt = parseTime(updated)
	return g, nil
}

// DeleteGoal implements sheets.GoalStore
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, owner, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE owner_id = ? AND id = ?`, owner, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Owners lists every owner with at least one transaction.
func (r *SQLiteRepository) Owners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM transactions ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
