package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"moneycoach/internal/core"
	"moneycoach/internal/log"
)

// SetPlanned stores the planned amount for one category of a period.
func (r *SQLiteRepository) SetPlanned(ctx context.Context, userID, period, categoryID string, amount core.Money) error {
	if _, ok := core.CategoryByID(categoryID); !ok {
		return core.Invalid("categoryId", fmt.Sprintf("unknown category %q", categoryID))
	}
	if amount.Cents < 0 || amount.Cents > core.MaxAmountCents {
		return core.Invalid("plannedAmount", "must be between 0 and the maximum amount")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget_plans (user_id, period, category_id, planned_cents, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, period, category_id)
		 DO UPDATE SET planned_cents = excluded.planned_cents, updated_at = excluded.updated_at`,
		userID, period, categoryID, amount.Cents, unixNano(r.now()))
	if err != nil {
		return fmt.Errorf("set planned amount: %w", err)
	}
	return nil
}

// PlannedAmounts returns the planned amount per category id.
func (r *SQLiteRepository) PlannedAmounts(ctx context.Context, userID, period string) (map[string]core.Money, error) {
	return r.amounts(ctx,
		`SELECT category_id, planned_cents FROM budget_plans WHERE user_id = ? AND period = ?`, userID, period)
}

// ActualAmounts returns the spending recorded by the last reconciliation.
func (r *SQLiteRepository) ActualAmounts(ctx context.Context, userID, period string) (map[string]core.Money, error) {
	return r.amounts(ctx,
		`SELECT category_id, actual_cents FROM budget_actuals WHERE user_id = ? AND period = ?`, userID, period)
}

func (r *SQLiteRepository) amounts(ctx context.Context, query, userID, period string) (map[string]core.Money, error) {
	rows, err := r.db.QueryContext(ctx, query, userID, period)
	if err != nil {
		return nil, fmt.Errorf("query amounts: %w", err)
	}
	defer rows.Close()

	out := map[string]core.Money{}
	for rows.Next() {
		var (
			id    string
			cents int64
		)
		if err := rows.Scan(&id, &cents); err != nil {
			return nil, fmt.Errorf("scan amount: %w", err)
		}
		out[id] = core.Money{Cents: cents}
	}
	return out, rows.Err()
}

// Assignments returns the memoised category for each known fingerprint.
func (r *SQLiteRepository) Assignments(ctx context.Context, userID string, fingerprints []string) (map[string]string, error) {
	out := map[string]string{}
	if len(fingerprints) == 0 {
		return out, nil
	}

	// Chunked to stay under SQLite's bound-parameter limit.
	const chunk = 500
	for start := 0; start < len(fingerprints); start += chunk {
		part := fingerprints[start:min(start+chunk, len(fingerprints))]
		args := make([]any, 0, len(part)+1)
		args = append(args, userID)
		for _, fp := range part {
			args = append(args, fp)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")

		rows, err := r.db.QueryContext(ctx,
			`SELECT fingerprint, category_id FROM transaction_assignments
			 WHERE user_id = ? AND fingerprint IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("query assignments: %w", err)
		}
		for rows.Next() {
			var fp, cat string
			if err := rows.Scan(&fp, &cat); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan assignment: %w", err)
			}
			out[fp] = cat
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate assignments: %w", err)
		}
	}
	return out, nil
}

// SaveReconciliation stores new assignments and replaces the period's actuals
// in one transaction. Categories missing from actuals end up with no row,
// which reads back as zero.
func (r *SQLiteRepository) SaveReconciliation(ctx context.Context, userID, period string, assignments map[string]string, actuals map[string]core.Money) error {
	now := unixNano(r.now())
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for fp, cat := range assignments {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO transaction_assignments (user_id, fingerprint, category_id, created_at)
				 VALUES (?, ?, ?, ?) ON CONFLICT (user_id, fingerprint) DO NOTHING`,
				userID, fp, cat, now); err != nil {
				return fmt.Errorf("insert assignment: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM budget_actuals WHERE user_id = ? AND period = ?`, userID, period); err != nil {
			return fmt.Errorf("clear actuals: %w", err)
		}
		for cat, amount := range actuals {
			if amount.Cents <= 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO budget_actuals (user_id, period, category_id, actual_cents, computed_at)
				 VALUES (?, ?, ?, ?, ?)`, userID, period, cat, amount.Cents, now); err != nil {
				return fmt.Errorf("insert actual: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "Reconciliation saved",
		log.FieldUserID, userID, log.FieldPeriod, period, log.FieldCount, len(assignments))
	return nil
}
