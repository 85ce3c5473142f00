package storage

import (
	"context"
	"database/sql"
	"fmt"

	"moneycoach/internal/log"
)

// userTables lists every table holding per-user rows. Playbooks go before
// interviews because of the foreign key.
var userTables = []string{
	"goals",
	"budget_plans",
	"budget_actuals",
	"transaction_assignments",
	"checkins",
	"playbooks",
	"interviews",
	"moments",
	"reflections",
}

// DeleteUserData removes everything stored for userID in one transaction and
// returns the number of rows deleted.
func (r *SQLiteRepository) DeleteUserData(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range userTables {
			res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID)
			if err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete from %s rows: %w", table, err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.InfoContext(ctx, "User data deleted", log.FieldUserID, userID, log.FieldCount, total)
	return total, nil
}
