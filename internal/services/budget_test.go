package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"moneycoach/internal/core"
	"moneycoach/internal/llm"
	"moneycoach/internal/storage"
)

func tx(merchant string, cents int64, day int) core.Transaction {
	return core.Transaction{Merchant: merchant, Amount: core.Money{Cents: cents}, Date: core.NewDate(2026, 3, day)}
}

var marchBatch = []core.Transaction{
	tx("Blue Bottle Coffee", 450, 2),
	tx("Whole Foods", 5000, 3),
	tx("Amazon refund", -2000, 4),
	tx("Mystery Vendor", 1200, 5),
	tx("Whole Foods", 5000, 3), // the same purchase twice counts twice
	tx("Rent", 150000, 1),
}

const marchAssignments = `{"assignments": [
	{"index": 0, "categoryId": "dining"},
	{"index": 1, "categoryId": "groceries"},
	{"index": 2, "categoryId": "crypto"},
	{"index": 3, "categoryId": "housing"}
]}`

func newBudgetService(t *testing.T, p llm.Provider) (*BudgetService, *storage.SQLiteRepository) {
	t.Helper()
	store := newStore(t)
	s := NewBudgetService(store, newLLM(p), nil, nil, nil)
	s.now = fixedClock(march10)
	return s, store
}

func category(b core.BudgetBreakdown, id string) core.BudgetCategory {
	for _, c := range b.Categories {
		if c.ID == id {
			return c
		}
	}
	return core.BudgetCategory{}
}

func TestReconcile(t *testing.T) {
	p := llm.Texts(marchAssignments)
	s, _ := newBudgetService(t, p)
	ctx := context.Background()

	if _, err := s.SetPlanned(ctx, "u1", "2026-03", "groceries", core.Money{Cents: 40000}); err != nil {
		t.Fatalf("SetPlanned: %v", err)
	}

	b, err := s.Reconcile(ctx, "u1", "2026-03", marchBatch)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if len(b.Categories) != len(core.Taxonomy) {
		t.Fatalf("every taxonomy category must be reported, got %d", len(b.Categories))
	}
	checks := map[string]int64{
		"dining":                   450,
		"groceries":                10000,
		core.MiscellaneousCategory: 1200,
		"housing":                  150000,
		"travel":                   0,
	}
	for id, want := range checks {
		if got := category(b, id).ActualSpent.Cents; got != want {
			t.Errorf("%s actual = %d, want %d", id, got, want)
		}
	}
	if g := category(b, "groceries"); g.PlannedAmount.Cents != 40000 || g.Remaining.Cents != 30000 {
		t.Errorf("groceries planned/remaining = %d/%d", g.PlannedAmount.Cents, g.Remaining.Cents)
	}
	if b.TotalSpent.Cents != 450+10000+1200+150000 || b.Skipped != 1 {
		t.Errorf("total = %d skipped = %d", b.TotalSpent.Cents, b.Skipped)
	}
	if len(b.CategorizedSpending) != 4 {
		t.Errorf("categorizedSpending = %+v", b.CategorizedSpending)
	}

	// The model sees each distinct transaction once, and never the refund.
	prompt := p.Requests()[0].Messages[0].Content
	if strings.Count(prompt, "Whole Foods") != 1 || strings.Contains(prompt, "refund") {
		t.Errorf("unexpected categorisation prompt:\n%s", prompt)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	p := llm.Texts(marchAssignments)
	s, _ := newBudgetService(t, p)
	ctx := context.Background()

	first, err := s.Reconcile(ctx, "u1", "2026-03", marchBatch)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	second, err := s.Reconcile(ctx, "u1", "2026-03", marchBatch)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-running the same batch changed the breakdown:\n%+v\n%+v", first, second)
	}
	if p.Calls() != 1 {
		t.Fatalf("known transactions must not be re-categorised, model called %d times", p.Calls())
	}

	stored, err := s.Breakdown(ctx, "u1", "2026-03")
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if stored.TotalSpent != first.TotalSpent {
		t.Fatalf("stored total %v, want %v", stored.TotalSpent, first.TotalSpent)
	}
}

func TestReconcileRecomputesWholesale(t *testing.T) {
	p := llm.Texts(marchAssignments)
	s, _ := newBudgetService(t, p)
	ctx := context.Background()

	if _, err := s.Reconcile(ctx, "u1", "2026-03", marchBatch); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	b, err := s.Reconcile(ctx, "u1", "2026-03", marchBatch[:1])
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if b.TotalSpent.Cents != 450 || category(b, "groceries").ActualSpent.Cents != 0 {
		t.Fatalf("actuals must reflect only the latest batch: %+v", b)
	}
}

func TestReconcileUpstreamFailurePersistsNothing(t *testing.T) {
	p := llm.NewScripted()
	p.Fallback = &llm.Reply{Err: errors.New("503 from provider")}
	s, store := newBudgetService(t, p)
	ctx := context.Background()

	_, err := s.Reconcile(ctx, "u1", "2026-03", marchBatch)
	if !errors.Is(err, core.ErrUpstreamProvider) {
		t.Fatalf("expected ErrUpstreamProvider, got %v", err)
	}
	actual, err := store.ActualAmounts(ctx, "u1", "2026-03")
	if err != nil || len(actual) != 0 {
		t.Fatalf("nothing may be persisted: %+v, %v", actual, err)
	}
}

func TestReconcileSkipsOtherPeriods(t *testing.T) {
	p := llm.Texts(`{"assignments": [{"index": 0, "categoryId": "travel"}]}`)
	s, _ := newBudgetService(t, p)

	batch := []core.Transaction{
		tx("Airline", 30000, 15),
		{Merchant: "Old hotel", Amount: core.Money{Cents: 9000}, Date: core.NewDate(2026, 2, 27)},
	}
	b, err := s.Reconcile(context.Background(), "u1", "2026-03", batch)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if b.TotalSpent.Cents != 30000 || b.Skipped != 1 {
		t.Fatalf("total = %d skipped = %d", b.TotalSpent.Cents, b.Skipped)
	}
}

func TestConcurrentReconcileSerialises(t *testing.T) {
	p := llm.NewScripted()
	p.Fallback = &llm.Reply{Text: marchAssignments}
	s, _ := newBudgetService(t, p)
	ctx := context.Background()

	var eg errgroup.Group
	results := make([]core.BudgetBreakdown, 8)
	for i := range results {
		eg.Go(func() error {
			b, err := s.Reconcile(ctx, "u1", "2026-03", marchBatch)
			results[i] = b
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	for i := 1; i < len(results); i++ {
		if !reflect.DeepEqual(results[0], results[i]) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, results[0], results[i])
		}
	}
	if p.Calls() != 1 {
		t.Fatalf("serialised runs should categorise once, got %d calls", p.Calls())
	}
	if s.locks.size() != 0 {
		t.Fatalf("keyed locks leaked: %d", s.locks.size())
	}
}

func TestBudgetPeriod(t *testing.T) {
	s, _ := newBudgetService(t, llm.NewScripted())

	if got, err := s.Period("", nil); err != nil || got != "2026-03" {
		t.Fatalf("default period = %q, %v", got, err)
	}
	if _, err := s.Period("March", nil); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportUnavailable(t *testing.T) {
	s, _ := newBudgetService(t, llm.NewScripted())
	if _, err := s.Export(context.Background(), "u1", "2026-03"); !errors.Is(err, ErrExportUnavailable) {
		t.Fatalf("expected ErrExportUnavailable, got %v", err)
	}
}

type fakeExporter struct {
	got core.BudgetBreakdown
}

func (f *fakeExporter) ExportBudget(ctx context.Context, userID string, b core.BudgetBreakdown) (string, error) {
	f.got = b
	return "sheet!A1", nil
}

func TestExport(t *testing.T) {
	exp := &fakeExporter{}
	s := NewBudgetService(newStore(t), nil, exp, nil, nil)
	ctx := context.Background()

	if _, err := s.SetPlanned(ctx, "u1", "2026-03", "savings", core.Money{Cents: 20000}); err != nil {
		t.Fatalf("SetPlanned: %v", err)
	}
	ref, err := s.Export(ctx, "u1", "2026-03")
	if err != nil || ref != "sheet!A1" {
		t.Fatalf("Export = %q, %v", ref, err)
	}
	if exp.got.TotalPlanned.Cents != 20000 {
		t.Fatalf("exported breakdown = %+v", exp.got)
	}
}
