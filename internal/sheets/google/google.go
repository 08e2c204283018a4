package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"salesbook/internal/ledger"
	ports "salesbook/internal/sheets"
)

// DefaultReportSheetName prefixes report tab names when none is configured.
const DefaultReportSheetName = "Report"

// Client writes month reports into tabs of one spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportBase    string
	now           func() time.Time

	// titles of tabs known to exist, filled lazily
	mu   sync.Mutex
	tabs map[string]bool
}

var _ ports.ReportWriter = (*Client)(nil)

// Options configures New.
type Options struct {
	SpreadsheetID   string
	ReportSheetName string
	// CredentialsJSON is a service account key. When empty the key is read
	// through CredentialsFromEnv.
	CredentialsJSON []byte
}

// New creates a Sheets client. Extra client options are appended after the
// credentials, so tests can point the client at a local endpoint.
func New(ctx context.Context, o Options, extra ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(o.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(o.ReportSheetName)
	if base == "" {
		base = DefaultReportSheetName
	}

	opts := extra
	if len(extra) == 0 {
		var err error
		if opts, err = credentialOptions(ctx, o.CredentialsJSON); err != nil {
			return nil, err
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "report_base", base)

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportBase:    base,
		now:           time.Now,
		tabs:          map[string]bool{},
	}, nil
}

// credentialOptions prefers explicit service account JSON, then a user
// token from salesbook-oauth-init, then a service account from the
// environment.
func credentialOptions(ctx context.Context, creds []byte) ([]goption.ClientOption, error) {
	if len(creds) == 0 {
		opt, ok, err := userTokenOption(ctx)
		if err != nil {
			return nil, fmt.Errorf("oauth user token: %w", err)
		}
		if ok {
			slog.DebugContext(ctx, "Using OAuth user token", "path", TokenFile())
			return []goption.ClientOption{opt}, nil
		}
		if creds, err = CredentialsFromEnv(ctx); err != nil {
			return nil, err
		}
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// CredentialsFromEnv loads a service account key from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func CredentialsFromEnv(ctx context.Context) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	slog.DebugContext(ctx, "Read service account credentials", "path", path, "size", len(data))
	return data, nil
}

// WriteMonthReport replaces the content of the owner's tab for the report
// period, creating the tab when it does not exist yet.
func (c *Client) WriteMonthReport(ctx context.Context, owner string, report ledger.MonthReport) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	tab := ReportTabName(c.reportBase, owner, report.PeriodKey)

	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(tab, "A:Z"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}

	vr := &gsheet.ValueRange{Values: reportValues(report, c.now())}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(tab, "A1"), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Month report written",
		"owner_id", owner,
		"period", report.PeriodKey,
		"sheet_tab", tab,
		"rows", len(vr.Values))
	return nil
}

// ensureTab adds the tab through a batch update when the spreadsheet does
// not contain it.
func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	known := c.tabs[tab]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet tabs: %w", err)
	}
	exists := false
	c.mu.Lock()
	for _, s := range ss.Sheets {
		if s.Properties == nil {
			continue
		}
		c.tabs[s.Properties.Title] = true
		if s.Properties.Title == tab {
			exists = true
		}
	}
	c.mu.Unlock()
	if exists {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Report tab created", "sheet_tab", tab)

	c.mu.Lock()
	c.tabs[tab] = true
	c.mu.Unlock()
	return nil
}
