package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"despesas/internal/core"
	ports "despesas/internal/export"
)

// Config selects the target spreadsheet and the service account used to
// write to it. One of CredentialsJSON or CredentialsFile must be set;
// JSON wins when both are.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client writes financial summaries to a Google spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

// New creates a Sheets client from the given configuration.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Dashboard"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case cfg.CredentialsJSON != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case cfg.CredentialsFile != "":
		credentialsJSON, err = os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// AppendSummary appends one row per month plus one row per category slice.
// The summary row carries the headline totals; slice rows carry the
// per-category expense share.
func (c *Client) AppendSummary(ctx context.Context, monthKey core.MonthKey, summary core.FinancialSummary) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := [][]any{{
		string(monthKey),
		"summary",
		summary.TotalBalance.StringFixed(2),
		summary.MonthlyExpenseTotal.StringFixed(2),
		summary.RemainingBudget.StringFixed(2),
	}}
	for _, slice := range summary.Distribution {
		rows = append(rows, []any{
			string(monthKey),
			slice.Category,
			slice.Value.StringFixed(2),
			slice.Percent.StringFixed(2),
			"",
		})
	}

	rng := fmt.Sprintf("%s!A:E", c.sheetName)
	vr := &gsheet.ValueRange{Values: rows}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported summary to Google Sheets",
		"sheet", c.sheetName,
		"month_key", string(monthKey),
		"rows", len(rows))

	return nil
}
