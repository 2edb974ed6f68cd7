package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"hisab/internal/config"
	"hisab/internal/core"
	ports "hisab/internal/sheets"
)

// Client appends monthly reports to a Google spreadsheet. Reports live in a
// year-prefixed sheet (e.g. "2026 Reports") so one spreadsheet can carry
// several years without the columns drifting.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportBase    string
}

// Ensure interface conformance
var _ ports.ReportWriter = (*Client)(nil)

// NewFromConfig creates a Sheets client from the application configuration.
// Requires GOOGLE_SPREADSHEET_ID plus OAuth client and token credentials,
// either inline JSON or file paths.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.SheetsEnabled() {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	base := strings.TrimSpace(cfg.GoogleSheetName)
	if base == "" {
		base = "Reports"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		reportBase:    base,
	}, nil
}

// newSheetsService builds a Sheets service from OAuth client credentials and
// a previously issued token (see cmd/oauth-init).
func newSheetsService(ctx context.Context, cfg *config.Config) (*gsheet.Service, error) {
	clientJSON, err := readCredential(cfg.GoogleOAuthClientJSON, cfg.GoogleOAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("oauth client credentials: %w", err)
	}
	tokenJSON, err := readCredential(cfg.GoogleOAuthTokenJSON, cfg.GoogleOAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("oauth token: %w", err)
	}

	oauthCfg, err := oauthgoogle.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	httpClient := oauthCfg.Client(context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling()), &token)

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func readCredential(inline, file string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case strings.TrimSpace(file) != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("not configured")
	}
}

// newHTTPClientWithPooling creates an HTTP client optimized for Google Sheets API
// with connection pooling, proper timeouts, and keep-alive settings
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableKeepAlives: false,
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendMonthReport writes one summary row for the month to the year's report
// sheet and returns a range reference to the written row.
func (c *Client) AppendMonthReport(ctx context.Context, userID string, view core.MonthView) (string, error) {
	if !core.ValidMonth(view.Month) {
		return "", fmt.Errorf("invalid month: %d", view.Month)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheetName := yearPrefixedName(c.reportBase, view.Year)

	// Find the next empty row by getting the sheet dimensions first
	rng := fmt.Sprintf("%s!A:A", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get sheet dimensions for %s: %w", sheetName, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:J%d", sheetName, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{reportRow(userID, view)}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// reportRow flattens a month view into the spreadsheet columns:
// user, month number, total income, total expense, net, completed, pending,
// top expense category, category breakdown, written-at timestamp.
func reportRow(userID string, view core.MonthView) []any {
	return []any{
		userID,
		view.Month,
		view.TotalIncome.StringFixed(2),
		view.TotalExpense.StringFixed(2),
		view.Net.StringFixed(2),
		view.CompletedRecurring,
		view.PendingRecurring,
		view.TopExpenseCategory,
		categoryBreakdown(view.CategoryTotals),
		time.Now().UTC().Format(time.RFC3339),
	}
}

// categoryBreakdown renders category totals as "Name amount; Name amount" so
// the whole breakdown fits in one cell.
func categoryBreakdown(totals []core.CategoryTotal) string {
	parts := make([]string, 0, len(totals))
	for _, ct := range totals {
		parts = append(parts, fmt.Sprintf("%s %s", ct.Name, ct.Total.StringFixed(2)))
	}
	return strings.Join(parts, "; ")
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
