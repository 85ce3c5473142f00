package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneycoach/internal/core"
	"moneycoach/internal/log"
	"moneycoach/internal/sheets"
)

// Exporter writes budget breakdowns into one spreadsheet, one tab per user
// and period.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu   sync.Mutex
	tabs map[string]struct{}
}

// New creates an exporter authenticated with a service account.
// ctx must outlive the exporter; token refreshes use it.
func New(ctx context.Context, spreadsheetID string, credentialsJSON []byte, logger *log.Logger) (*Exporter, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if len(credentialsJSON) == 0 {
		return nil, errors.New("missing service account credentials")
	}

	creds, err := googleauth.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	base := newHTTPClientWithPooling()
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), creds.TokenSource)
	client.Timeout = base.Timeout

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, logger), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = log.Nop()
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(log.ComponentSheets),
		tabs:          make(map[string]struct{}),
	}
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ExportBudget replaces the user's tab for the breakdown's period and
// returns the written range.
func (e *Exporter) ExportBudget(ctx context.Context, userID string, b core.BudgetBreakdown) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	tab := sheets.TabName(userID, b.Period)
	if err := e.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	// Clear first so a shorter taxonomy never leaves stale rows behind.
	clearRange := fmt.Sprintf("'%s'!A:E", tab)
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	rows := sheets.Rows(b)
	writeRange := fmt.Sprintf("'%s'!A1:E%d", tab, len(rows))
	resp, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, writeRange, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write %s: %w", writeRange, err)
	}

	ref := writeRange
	if resp.UpdatedRange != "" {
		ref = resp.UpdatedRange
	}
	e.logger.InfoContext(ctx, "Budget written to sheet",
		log.FieldUserID, userID, log.FieldPeriod, b.Period, "range", ref, "rows", len(rows))
	return ref, nil
}

// ensureTab creates the tab unless this exporter has already seen it.
func (e *Exporter) ensureTab(ctx context.Context, tab string) error {
	e.mu.Lock()
	_, known := e.tabs[tab]
	e.mu.Unlock()
	if known {
		return nil
	}

	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	exists := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == tab {
			exists = true
			break
		}
	}

	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: []*gsheet.Request{{
				AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
			}},
		}
		if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add tab %q: %w", tab, err)
		}
		e.logger.InfoContext(ctx, "Created sheet tab", "tab", tab)
	}

	e.mu.Lock()
	e.tabs[tab] = struct{}{}
	e.mu.Unlock()
	return nil
}
