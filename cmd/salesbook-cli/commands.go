package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"salesbook/internal/analysis"
	"salesbook/internal/config"
	"salesbook/internal/core"
	"salesbook/internal/importer"
	"salesbook/internal/ledger"
	"salesbook/internal/services"
	"salesbook/internal/storage"
)

// app holds the store and services shared by every subcommand. The store
// is opened on first use so commands that do not touch it never create a
// database file.
type app struct {
	cfg    *config.Config
	dbPath string
	owner  string
	now    func() time.Time

	repo   *storage.SQLiteRepository
	ledger *services.LedgerService
	goals  *services.GoalService
}

func newApp() *app {
	return &app{cfg: config.Load(), now: time.Now}
}

func (a *app) open() error {
	if strings.TrimSpace(a.owner) == "" {
		return codeError(exitInvalid, "--owner (or DEV_OWNER_ID) is required")
	}
	if a.repo != nil {
		return nil
	}
	if dir := filepath.Dir(a.dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return codeError(exitStore, "create database directory: %s", err)
		}
	}
	repo, err := storage.NewSQLiteRepository(a.dbPath)
	if err != nil {
		return codeError(exitStore, "open database: %s", err)
	}
	a.repo = repo
	a.ledger = services.NewLedgerService(repo, nil)
	a.goals = services.NewGoalService(repo, repo)
	return nil
}

func (a *app) close() {
	if a.repo != nil {
		_ = a.repo.Close()
		a.repo = nil
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "salesbook-cli",
		Short:         "Manage a salesbook ledger from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.dbPath, "db", a.cfg.SQLiteDBPath, "SQLite database path")
	pf.StringVar(&a.owner, "owner", a.cfg.DevOwnerID, "Owner id the command acts for")

	root.AddCommand(
		newImportCmd(a),
		newExportCmd(a),
		newDashboardCmd(a),
		newPeriodsCmd(a),
		newCompareCmd(a),
		newGoalCmd(a),
		newAnalyzeCmd(a),
	)
	return root
}

func newImportCmd(a *app) *cobra.Command {
	var (
		typ    string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import <file.csv|file.xlsx>",
		Short: "Import entries from a spreadsheet export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txType, err := parseType(typ)
			if err != nil {
				return err
			}
			if err := a.open(); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return codeError(exitInvalid, "open %s: %s", args[0], err)
			}
			defer f.Close()

			entries, err := importer.Parse(filepath.Base(args[0]), f)
			if err != nil {
				return codeError(exitInvalid, "parse %s: %s", args[0], err)
			}
			res, err := a.ledger.Import(cmd.Context(), a.owner, txType, entries, dryRun)
			if err != nil {
				return serviceError(err)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Entry type: income or expense")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be imported without storing it")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		typ, month, format, out string
		noBOM                   bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			txType, err := parseType(typ)
			if err != nil {
				return err
			}
			if month != "" {
				if _, err := time.Parse("2006-01", month); err != nil || len(month) != 7 {
					return codeError(exitInvalid, "--month must be YYYY-MM")
				}
			}
			if format == "" {
				format = "csv"
				if strings.EqualFold(filepath.Ext(out), ".xlsx") {
					format = "xlsx"
				}
			}
			if format != "csv" && format != "xlsx" {
				return codeError(exitInvalid, "--format must be csv or xlsx")
			}
			if err := a.open(); err != nil {
				return err
			}

			entries, err := a.ledger.Entries(cmd.Context(), a.owner, txType)
			if err != nil {
				return serviceError(err)
			}
			if month != "" {
				kept := entries[:0]
				for _, e := range entries {
					if strings.HasPrefix(e.Date, month) {
						kept = append(kept, e)
					}
				}
				entries = kept
			}

			var buf bytes.Buffer
			if format == "xlsx" {
				err = importer.WriteXLSX(&buf, entries)
			} else {
				err = importer.WriteCSV(&buf, entries, !noBOM)
			}
			if err != nil {
				return codeError(exitStore, "export: %s", err)
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if info, err := os.Stat(out); err == nil && info.IsDir() {
				out = filepath.Join(out, importer.ExportFilename(txType, month, format))
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return codeError(exitStore, "write %s: %s", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d entries to %s\n", len(entries), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&typ, "type", "", "Entry type: income or expense")
	f.StringVar(&month, "month", "", "Only export one month (YYYY-MM)")
	f.StringVar(&format, "format", "", "Output format: csv or xlsx (default from --out extension, else csv)")
	f.StringVar(&out, "out", "", "Output file or directory (default stdout)")
	f.BoolVar(&noBOM, "no-bom", false, "Omit the UTF-8 byte order mark from CSV output")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	var window string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard for thisMonth, lastMonth or thisYear",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := ledger.ParseWindow(window)
			if err != nil {
				return codeError(exitInvalid, "%s", err)
			}
			txs, err := a.transactions(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), ledger.BuildDashboard(txs, w, a.now()))
		},
	}
	cmd.Flags().StringVar(&window, "window", string(ledger.ThisMonth), "Dashboard window")
	return cmd
}

type periodRow struct {
	Key     string         `json:"key"`
	Label   string         `json:"label"`
	Summary ledger.Summary `json:"summary"`
}

func newPeriodsCmd(a *app) *cobra.Command {
	var granularity string
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "List the months or years present in the ledger with their totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := ledger.ParseGranularity(granularity)
			if err != nil {
				return codeError(exitInvalid, "%s", err)
			}
			txs, err := a.transactions(cmd.Context())
			if err != nil {
				return err
			}
			keys := ledger.ExtractPeriods(txs, g)
			rows := make([]periodRow, len(keys))
			for i, k := range keys {
				rows[i] = periodRow{
					Key:     k,
					Label:   ledger.FormatPeriodLabel(k, g),
					Summary: ledger.Summarize(ledger.FilterByPeriod(txs, k)),
				}
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&granularity, "granularity", string(ledger.Month), "month or year")
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var granularity, period1, period2 string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two periods (default: the two most recent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := ledger.ParseGranularity(granularity)
			if err != nil {
				return codeError(exitInvalid, "%s", err)
			}
			txs, err := a.transactions(cmd.Context())
			if err != nil {
				return err
			}
			c, err := ledger.ResolveComparison(txs, period1, period2, g)
			if err != nil {
				return codeError(exitInvalid, "%s", err)
			}
			return writeJSON(cmd.OutOrStdout(), c)
		},
	}
	f := cmd.Flags()
	f.StringVar(&granularity, "granularity", string(ledger.Month), "month or year")
	f.StringVar(&period1, "period1", "", "Current period key")
	f.StringVar(&period2, "period2", "", "Baseline period key")
	return cmd
}

func newGoalCmd(a *app) *cobra.Command {
	goal := &cobra.Command{
		Use:   "goal",
		Short: "Manage income and profit goals",
	}

	var (
		goalType         string
		year, month      int
		income, profit   int64
		progressGoalType string
		progressYear     int
		progressMonth    int
		asOfMonth        int
	)
	now := a.now()
	defaultYear, defaultMonth := now.Year(), int(now.Month())

	set := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the goal for a month or year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			g := core.Goal{
				GoalType:   core.GoalType(strings.ToLower(goalType)),
				Year:       year,
				Month:      month,
				IncomeGoal: income,
				ProfitGoal: profit,
			}
			if g.GoalType == core.Yearly {
				g.Month = 0
			}
			saved, err := a.goals.Save(cmd.Context(), a.owner, g)
			if err != nil {
				return serviceError(err)
			}
			return writeJSON(cmd.OutOrStdout(), saved)
		},
	}
	sf := set.Flags()
	sf.StringVar(&goalType, "type", string(core.Monthly), "monthly or yearly")
	sf.IntVar(&year, "year", defaultYear, "Goal year")
	sf.IntVar(&month, "month", defaultMonth, "Goal month (monthly goals)")
	sf.Int64Var(&income, "income", 0, "Income goal in won")
	sf.Int64Var(&profit, "profit", 0, "Profit goal in won")

	progress := &cobra.Command{
		Use:   "progress",
		Short: "Show progress against a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			q := services.ProgressQuery{
				GoalType:  core.GoalType(strings.ToLower(progressGoalType)),
				Year:      progressYear,
				Month:     progressMonth,
				AsOfMonth: asOfMonth,
			}
			p, found, err := a.goals.Progress(cmd.Context(), a.owner, q)
			if err != nil {
				return serviceError(err)
			}
			if !found {
				return codeError(exitInvalid, "no %s goal set for that period", q.GoalType)
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
	pf := progress.Flags()
	pf.StringVar(&progressGoalType, "type", string(core.Monthly), "monthly or yearly")
	pf.IntVar(&progressYear, "year", defaultYear, "Goal year")
	pf.IntVar(&progressMonth, "month", defaultMonth, "Goal month, or the cutoff month of a yearly goal")
	pf.IntVar(&asOfMonth, "as-of", 0, "Cutoff month of a yearly goal (default --month)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			goals, err := a.goals.List(cmd.Context(), a.owner)
			if err != nil {
				return serviceError(err)
			}
			if goals == nil {
				goals = []core.Goal{}
			}
			return writeJSON(cmd.OutOrStdout(), goals)
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			if err := a.goals.Delete(cmd.Context(), a.owner, args[0]); err != nil {
				return serviceError(err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "deleted goal %s\n", args[0])
			return nil
		},
	}

	goal.AddCommand(set, progress, list, del)
	return goal
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var relationship, userGoal, tone string
	cmd := &cobra.Command{
		Use:   "analyze <conversation.txt|->",
		Short: "Analyze a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				text []byte
				err  error
			)
			if args[0] == "-" {
				text, err = io.ReadAll(cmd.InOrStdin())
			} else {
				text, err = os.ReadFile(args[0])
			}
			if err != nil {
				return codeError(exitInvalid, "read conversation: %s", err)
			}

			req := map[string]string{
				"conversationText": string(text),
				"relationshipType": relationship,
				"userGoal":         userGoal,
			}
			if tone != "" {
				req["toneBaseline"] = tone
			}
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}

			analyzer, err := a.analyzer(cmd.Context())
			if err != nil {
				return codeError(exitAnalysis, "%s", err)
			}
			res, aerr := analysis.Run(cmd.Context(), analyzer, body)
			if aerr != nil {
				_ = writeJSON(cmd.OutOrStdout(), aerr)
				return codeError(exitAnalysis, "%s (%s)", aerr.Message, aerr.Code)
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&relationship, "relationship", "", "Relationship type, e.g. colleague or friend")
	f.StringVar(&userGoal, "goal", "", "What you want from the conversation, e.g. apologize")
	f.StringVar(&tone, "tone", "", "Tone baseline (default unknown)")
	return cmd
}

func (a *app) analyzer(ctx context.Context) (analysis.Analyzer, error) {
	if a.cfg.AnalysisBackend == "gemini" {
		return analysis.NewGeminiAnalyzer(ctx, a.cfg.GeminiModel)
	}
	m := analysis.NewMockAnalyzer()
	m.Now = a.now
	return m, nil
}

func (a *app) transactions(ctx context.Context) ([]core.Transaction, error) {
	if err := a.open(); err != nil {
		return nil, err
	}
	txs, err := a.ledger.List(ctx, a.owner)
	if err != nil {
		return nil, serviceError(err)
	}
	return txs, nil
}

func parseType(s string) (core.TxType, error) {
	t := core.TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", codeError(exitInvalid, "--type must be income or expense, got %q", s)
	}
	return t, nil
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidType,
	core.ErrInvalidPaymentMethod,
	core.ErrInvalidAmount,
	core.ErrEmptyEntry,
	core.ErrInvalidGoalType,
	core.ErrInvalidYear,
	core.ErrInvalidMonth,
	core.ErrProfitExceedsIncome,
	core.ErrEmptyOwner,
	core.ErrNotFound,
}

// serviceError maps a service failure onto an exit code.
func serviceError(err error) error {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return codeError(exitInvalid, "%s", err)
		}
	}
	return codeError(exitStore, "%s", err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
