// Package sheets holds the spreadsheet layout shared by every budget exporter.
package sheets

import (
	"strings"

	"moneycoach/internal/core"
)

// maxTabUserLength keeps tab titles well under the 100 character limit.
const maxTabUserLength = 40

// Header is the first row of every exported budget tab.
var Header = []any{"Group", "Category", "Planned", "Spent", "Remaining"}

// TabName returns the tab title for one user's period, e.g. "2026-03 u1".
// Characters that need quoting in A1 notation are dropped from the user id.
func TabName(userID, period string) string {
	user := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.', r == '@':
			return r
		}
		return -1
	}, userID)
	if len(user) > maxTabUserLength {
		user = user[:maxTabUserLength]
	}
	if user == "" {
		return period
	}
	return period + " " + user
}

// Rows renders a breakdown as the header, one row per category in taxonomy
// order and a closing totals row. Amounts are plain numbers so the sheet
// can sum them.
func Rows(b core.BudgetBreakdown) [][]any {
	rows := make([][]any, 0, len(b.Categories)+2)
	rows = append(rows, Header)
	for _, c := range b.Categories {
		rows = append(rows, []any{c.GroupName, c.Name, c.PlannedAmount.Dollars(), c.ActualSpent.Dollars(), c.Remaining.Dollars()})
	}
	rows = append(rows, []any{"", "Total", b.TotalPlanned.Dollars(), b.TotalSpent.Dollars(), b.TotalRemaining.Dollars()})
	return rows
}
