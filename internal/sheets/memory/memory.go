package memory

import (
	"context"
	"fmt"
	"sync"

	"moneycoach/internal/core"
	"moneycoach/internal/sheets"
)

// Exporter keeps exported budgets in process. It backs tests and local
// runs without Google credentials.
type Exporter struct {
	mu      sync.Mutex
	tabs    map[string][][]any
	exports int
}

func New() *Exporter {
	return &Exporter{tabs: make(map[string][][]any)}
}

// ExportBudget replaces the user's tab for the period and returns a
// synthetic range reference.
func (e *Exporter) ExportBudget(_ context.Context, userID string, b core.BudgetBreakdown) (string, error) {
	tab := sheets.TabName(userID, b.Period)
	rows := sheets.Rows(b)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.tabs[tab] = rows
	e.exports++
	return fmt.Sprintf("mem:%s!A1:E%d", tab, len(rows)), nil
}

// Tab returns a copy of the rows last written to tab.
func (e *Exporter) Tab(tab string) ([][]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, ok := e.tabs[tab]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), rows...), true
}

// Exports counts ExportBudget calls.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
