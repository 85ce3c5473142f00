package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
	"moneycoach/internal/llm"
	"moneycoach/internal/log"
	"moneycoach/internal/metrics"
)

const maxTransactionsPerRun = 1000

// ErrExportUnavailable is returned when no budget exporter is configured.
var ErrExportUnavailable = errors.New("budget export not configured")

// BudgetExporter writes a breakdown to an external destination and returns
// a reference to it.
type BudgetExporter interface {
	ExportBudget(ctx context.Context, userID string, b core.BudgetBreakdown) (string, error)
}

type BudgetService struct {
	store    BudgetStore
	llm      *llm.Client
	exporter BudgetExporter
	changes  *Changes
	logger   *log.Logger
	locks    *keyedMutex
	now      func() time.Time
}

func NewBudgetService(store BudgetStore, client *llm.Client, exporter BudgetExporter, changes *Changes, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Nop()
	}
	return &BudgetService{
		store:    store,
		llm:      client,
		exporter: exporter,
		changes:  changes,
		logger:   logger.WithComponent(log.ComponentBudget),
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

// Period resolves an optional period key, defaulting to the user's current month.
func (s *BudgetService) Period(raw string, loc *time.Location) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return core.DateOf(s.now(), loc).Period(), nil
	}
	return core.ParsePeriod(raw)
}

// Breakdown returns the stored picture of a period without recomputing it.
func (s *BudgetService) Breakdown(ctx context.Context, userID, period string) (core.BudgetBreakdown, error) {
	planned, err := s.store.PlannedAmounts(ctx, userID, period)
	if err != nil {
		return core.BudgetBreakdown{}, fmt.Errorf("load planned amounts: %w", err)
	}
	actual, err := s.store.ActualAmounts(ctx, userID, period)
	if err != nil {
		return core.BudgetBreakdown{}, fmt.Errorf("load actuals: %w", err)
	}
	return core.NewBreakdown(period, planned, actual), nil
}

// SetPlanned updates one category's planned amount. Reconciliation never
// touches planned amounts.
func (s *BudgetService) SetPlanned(ctx context.Context, userID, period, categoryID string, amount core.Money) (core.BudgetBreakdown, error) {
	unlock := s.locks.Lock(userID + "|" + period)
	defer unlock()

	if err := s.store.SetPlanned(ctx, userID, period, categoryID, amount); err != nil {
		return core.BudgetBreakdown{}, err
	}
	s.changes.Notify(ctx, userID, cache.BudgetView(period))
	return s.Breakdown(ctx, userID, period)
}

// Reconcile categorises a batch of transactions and recomputes the period's
// actual spending from scratch.
//
// Runs for the same user and period are serialised. Categories already
// assigned to a transaction fingerprint are reused, so repeating a run over
// the same batch yields the same breakdown. Transactions that are not spend,
// or fall outside the period, are skipped.
func (s *BudgetService) Reconcile(ctx context.Context, userID, period string, txs []core.Transaction) (core.BudgetBreakdown, error) {
	if len(txs) > maxTransactionsPerRun {
		return core.BudgetBreakdown{}, core.Invalid("transactions", fmt.Sprintf("too many (max %d)", maxTransactionsPerRun))
	}
	for i, tx := range txs {
		if tx.Amount.Cents > core.MaxAmountCents || tx.Amount.Cents < -core.MaxAmountCents {
			return core.BudgetBreakdown{}, core.Invalid(fmt.Sprintf("transactions[%d].amount", i), core.ErrAmountTooLarge.Error())
		}
	}

	unlock := s.locks.Lock(userID + "|" + period)
	defer unlock()

	start := time.Now()
	var (
		spend        []core.Transaction
		fingerprints []string
		skipped      int
	)
	for _, tx := range txs {
		if !tx.IsSpend() || (!tx.Date.IsEmpty() && tx.Date.Period() != period) {
			skipped++
			continue
		}
		spend = append(spend, tx)
		fingerprints = append(fingerprints, tx.Fingerprint())
	}

	known, err := s.store.Assignments(ctx, userID, fingerprints)
	if err != nil {
		return core.BudgetBreakdown{}, fmt.Errorf("load assignments: %w", err)
	}

	// One model call covers every fingerprint not seen before.
	var (
		unseen    []core.Transaction
		unseenFPs []string
	)
	queued := map[string]bool{}
	for i, tx := range spend {
		fp := fingerprints[i]
		if _, ok := known[fp]; ok || queued[fp] {
			continue
		}
		queued[fp] = true
		unseen = append(unseen, tx)
		unseenFPs = append(unseenFPs, fp)
	}
	metrics.TransactionsCategorised.WithLabelValues("memo").Add(float64(len(spend) - len(unseen)))

	fresh := map[string]string{}
	if len(unseen) > 0 {
		categories, err := s.categorise(ctx, unseen)
		if err != nil {
			return core.BudgetBreakdown{}, err
		}
		for i, fp := range unseenFPs {
			fresh[fp] = categories[i]
			known[fp] = categories[i]
		}
		metrics.TransactionsCategorised.WithLabelValues("model").Add(float64(len(unseen)))
	}

	actual := map[string]core.Money{}
	for i, tx := range spend {
		cat := core.NormalizeCategory(known[fingerprints[i]])
		actual[cat] = actual[cat].Add(tx.Amount)
	}

	if err := s.store.SaveReconciliation(ctx, userID, period, fresh, actual); err != nil {
		return core.BudgetBreakdown{}, fmt.Errorf("save reconciliation: %w", err)
	}

	planned, err := s.store.PlannedAmounts(ctx, userID, period)
	if err != nil {
		return core.BudgetBreakdown{}, fmt.Errorf("load planned amounts: %w", err)
	}
	b := core.NewBreakdown(period, planned, actual)
	b.Skipped = skipped

	s.logger.InfoContext(ctx, "Budget reconciled",
		log.FieldUserID, userID,
		log.FieldPeriod, period,
		log.FieldCount, len(spend),
		"categorised", len(unseen),
		"skipped", skipped,
		log.FieldDuration, time.Since(start).Milliseconds())

	s.changes.Notify(ctx, userID, cache.BudgetView(period))
	return b, nil
}

type categoryAssignment struct {
	Index      int    `json:"index"`
	CategoryID string `json:"categoryId"`
}

type categorisePayload struct {
	Assignments []categoryAssignment `json:"assignments"`
}

var categoriseSchema = llm.Schema[categorisePayload]{
	Name:  "categorise_transactions",
	Shape: `{"assignments": [{"index": 0, "categoryId": "groceries"}]}`,
	Validate: func(p categorisePayload) []string {
		if p.Assignments == nil {
			return []string{"assignments must be an array with one entry per transaction"}
		}
		return nil
	},
}

// categorise returns one category id per transaction, in order. Ids the
// model leaves out or invents become miscellaneous.
func (s *BudgetService) categorise(ctx context.Context, txs []core.Transaction) ([]string, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("categorise transactions: %w: no model provider configured", core.ErrUpstreamProvider)
	}

	var list strings.Builder
	for i, tx := range txs {
		fmt.Fprintf(&list, "%d. %s | %s | %s\n", i, strings.TrimSpace(tx.Merchant), tx.Amount, tx.Date)
	}

	req := llm.Request{
		System: "You assign bank transactions to budget categories. Use exactly one of these category ids for each transaction:\n" +
			taxonomyPrompt() +
			"Return one assignment per transaction index.",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: list.String()}},
		Temperature: 0,
	}
	out, err := llm.Extract(ctx, s.llm, req, categoriseSchema)
	if err != nil {
		return nil, fmt.Errorf("categorise transactions: %w", err)
	}

	categories := make([]string, len(txs))
	for i := range categories {
		categories[i] = core.MiscellaneousCategory
	}
	for _, a := range out.Assignments {
		if a.Index >= 0 && a.Index < len(txs) {
			categories[a.Index] = core.NormalizeCategory(a.CategoryID)
		}
	}
	return categories, nil
}

func taxonomyPrompt() string {
	var b strings.Builder
	for _, c := range core.Taxonomy {
		fmt.Fprintf(&b, "- %s (%s)\n", c.ID, c.Name)
	}
	return b.String()
}

// Export writes the stored breakdown of a period to the configured exporter.
func (s *BudgetService) Export(ctx context.Context, userID, period string) (string, error) {
	if s.exporter == nil {
		return "", ErrExportUnavailable
	}
	b, err := s.Breakdown(ctx, userID, period)
	if err != nil {
		return "", err
	}
	ref, err := s.exporter.ExportBudget(ctx, userID, b)
	if err != nil {
		return "", fmt.Errorf("export budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget exported",
		log.FieldUserID, userID, log.FieldPeriod, period, "ref", ref)
	return ref, nil
}
