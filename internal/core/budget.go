package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// MiscellaneousCategory absorbs any transaction the categoriser could not
// place in a known category.
const MiscellaneousCategory = "miscellaneous"

// CategoryDef is one entry of the fixed budget taxonomy.
type CategoryDef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"groupName"`
}

// Taxonomy is the fixed, ordered category list every breakdown reports on.
var Taxonomy = []CategoryDef{
	{ID: "housing", Name: "Rent & Mortgage", Group: "Home"},
	{ID: "utilities", Name: "Utilities", Group: "Home"},
	{ID: "groceries", Name: "Groceries", Group: "Food"},
	{ID: "dining", Name: "Dining Out", Group: "Food"},
	{ID: "transportation", Name: "Transportation", Group: "Getting Around"},
	{ID: "healthcare", Name: "Healthcare", Group: "Health"},
	{ID: "insurance", Name: "Insurance", Group: "Health"},
	{ID: "debt_payments", Name: "Debt Payments", Group: "Financial"},
	{ID: "savings", Name: "Savings & Investing", Group: "Financial"},
	{ID: "subscriptions", Name: "Subscriptions", Group: "Lifestyle"},
	{ID: "entertainment", Name: "Entertainment", Group: "Lifestyle"},
	{ID: "shopping", Name: "Shopping", Group: "Lifestyle"},
	{ID: "personal_care", Name: "Personal Care", Group: "Lifestyle"},
	{ID: "education", Name: "Education", Group: "Growth"},
	{ID: "travel", Name: "Travel", Group: "Growth"},
	{ID: "gifts_donations", Name: "Gifts & Donations", Group: "Giving"},
	{ID: MiscellaneousCategory, Name: "Miscellaneous", Group: "Other"},
}

var taxonomyIndex = func() map[string]CategoryDef {
	idx := make(map[string]CategoryDef, len(Taxonomy))
	for _, c := range Taxonomy {
		idx[c.ID] = c
	}
	return idx
}()

// CategoryByID looks up a taxonomy entry.
func CategoryByID(id string) (CategoryDef, bool) {
	c, ok := taxonomyIndex[id]
	return c, ok
}

// NormalizeCategory maps any categoriser output onto a known id, coercing
// unknown or empty ids to MiscellaneousCategory.
func NormalizeCategory(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if _, ok := taxonomyIndex[id]; ok {
		return id
	}
	return MiscellaneousCategory
}

type (
	// Transaction is a raw bank transaction. A positive amount is money out.
	Transaction struct {
		Merchant string `json:"merchant"`
		Amount   Money  `json:"amount"`
		Date     Date   `json:"date"`
	}

	BudgetCategory struct {
		ID            string `json:"categoryId"`
		Name          string `json:"name"`
		GroupName     string `json:"groupName"`
		PlannedAmount Money  `json:"plannedAmount"`
		ActualSpent   Money  `json:"actualSpent"`
		Remaining     Money  `json:"remaining"`
		PeriodKey     string `json:"periodKey"`
	}

	CategorySpend struct {
		CategoryID string `json:"categoryId"`
		Amount     Money  `json:"amount"`
	}

	// BudgetBreakdown is the full per-category picture for one period.
	BudgetBreakdown struct {
		Period              string           `json:"period"`
		Categories          []BudgetCategory `json:"categories"`
		CategorizedSpending []CategorySpend  `json:"categorizedSpending"`
		TotalPlanned        Money            `json:"totalPlanned"`
		TotalSpent          Money            `json:"totalSpent"`
		TotalRemaining      Money            `json:"totalRemaining"`
		Skipped             int              `json:"skipped"`
	}
)

// Fingerprint identifies a transaction independently of its position in a batch.
func (t Transaction) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(t.Merchant))))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(t.Amount.Cents, 10)))
	h.Write([]byte{0})
	h.Write([]byte(t.Date.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// IsSpend reports whether the transaction counts towards category spending.
func (t Transaction) IsSpend() bool {
	return t.Amount.Cents > 0
}

// NewBreakdown assembles a breakdown over the whole taxonomy. Categories
// absent from either map count as zero.
func NewBreakdown(period string, planned, actual map[string]Money) BudgetBreakdown {
	b := BudgetBreakdown{
		Period:              period,
		Categories:          make([]BudgetCategory, 0, len(Taxonomy)),
		CategorizedSpending: []CategorySpend{},
	}
	for _, def := range Taxonomy {
		p := planned[def.ID]
		a := actual[def.ID]
		b.Categories = append(b.Categories, BudgetCategory{
			ID:            def.ID,
			Name:          def.Name,
			GroupName:     def.Group,
			PlannedAmount: p,
			ActualSpent:   a,
			Remaining:     p.Sub(a),
			PeriodKey:     period,
		})
		if a.Cents > 0 {
			b.CategorizedSpending = append(b.CategorizedSpending, CategorySpend{CategoryID: def.ID, Amount: a})
		}
		b.TotalPlanned = b.TotalPlanned.Add(p)
		b.TotalSpent = b.TotalSpent.Add(a)
	}
	b.TotalRemaining = b.TotalPlanned.Sub(b.TotalSpent)
	return b
}
