package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneycoach/internal/core"
)

// fakeSheets answers the handful of Sheets API calls the exporter makes.
type fakeSheets struct {
	mu      sync.Mutex
	tabs    []string
	calls   []string
	written [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-1"):
		f.calls = append(f.calls, "get")
		sheets := make([]map[string]any, 0, len(f.tabs))
		for _, t := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "addSheet")
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.tabs = append(f.tabs, req.Requests[0].AddSheet.Properties.Title)
		_, _ = io.WriteString(w, `{"replies":[{}]}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.written = vr.Values
		_, _ = io.WriteString(w, `{"updatedRange":"'2026-03 u1'!A1:E3"}`)
	default:
		http.Error(w, `{"error":{"code":404,"message":"unexpected call"}}`, http.StatusNotFound)
	}
}

func newTestExporter(t *testing.T, f *fakeSheets) *Exporter {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-1", nil)
}

func TestExportBudgetCreatesTabOnce(t *testing.T) {
	f := &fakeSheets{tabs: []string{"Sheet1"}}
	e := newTestExporter(t, f)

	b := core.NewBreakdown("2026-03",
		map[string]core.Money{"groceries": {Cents: 40000}},
		map[string]core.Money{"groceries": {Cents: 5450}})

	ref, err := e.ExportBudget(context.Background(), "u1", b)
	if err != nil {
		t.Fatalf("ExportBudget: %v", err)
	}
	if ref != "'2026-03 u1'!A1:E3" {
		t.Fatalf("unexpected ref %q", ref)
	}
	if _, err := e.ExportBudget(context.Background(), "u1", b); err != nil {
		t.Fatalf("second ExportBudget: %v", err)
	}

	want := []string{"get", "addSheet", "clear", "update", "clear", "update"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
	if len(f.written) != len(core.Taxonomy)+2 {
		t.Fatalf("wrote %d rows", len(f.written))
	}
	if f.written[0][0] != "Group" || f.written[len(f.written)-1][1] != "Total" {
		t.Fatalf("unexpected layout: first %v last %v", f.written[0], f.written[len(f.written)-1])
	}
}

func TestExportBudgetUsesExistingTab(t *testing.T) {
	f := &fakeSheets{tabs: []string{"2026-03 u1"}}
	e := newTestExporter(t, f)

	if _, err := e.ExportBudget(context.Background(), "u1", core.NewBreakdown("2026-03", nil, nil)); err != nil {
		t.Fatalf("ExportBudget: %v", err)
	}
	for _, c := range f.calls {
		if c == "addSheet" {
			t.Fatal("existing tab must not be recreated")
		}
	}
}

func TestNewRejectsMissingConfig(t *testing.T) {
	if _, err := New(context.Background(), "", []byte(`{}`), nil); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}
	if _, err := New(context.Background(), "sheet-1", nil, nil); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := New(context.Background(), "sheet-1", []byte(`not json`), nil); err == nil {
		t.Fatal("expected error for malformed credentials")
	}
}

func TestExportWithoutService(t *testing.T) {
	e := &Exporter{}
	if _, err := e.ExportBudget(context.Background(), "u1", core.BudgetBreakdown{}); err == nil {
		t.Fatal("expected error without service")
	}
}
