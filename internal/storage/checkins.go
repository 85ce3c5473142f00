package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moneycoach/internal/core"
)

const checkInColumns = `id, user_id, day, money_mind_score, habit_text, habit_completed, ai_insight, streak_at_creation, created_at, completed_at`

func scanCheckIn(row rowScanner) (core.CheckIn, error) {
	var (
		c         core.CheckIn
		day       string
		completed int64
		created   int64
		doneAt    sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.UserID, &day, &c.MoneyMindScore, &c.HabitText, &completed,
		&c.AIInsight, &c.StreakAtCreation, &created, &doneAt); err != nil {
		return core.CheckIn{}, err
	}
	d, err := core.ParseDate(day)
	if err != nil {
		return core.CheckIn{}, fmt.Errorf("check-in %s day: %w", c.ID, err)
	}
	c.Date = d
	c.HabitCompleted = completed != 0
	c.CreatedAt = fromUnixNano(created)
	if doneAt.Valid {
		t := fromUnixNano(doneAt.Int64)
		c.CompletedAt = &t
	}
	return c, nil
}

// InsertCheckIn stores c unless the user already has a check-in for that
// day. created reports whether this call wrote the row.
func (r *SQLiteRepository) InsertCheckIn(ctx context.Context, c core.CheckIn) (created bool, err error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO checkins (id, user_id, day, money_mind_score, habit_text, habit_completed, ai_insight, streak_at_creation, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)
		 ON CONFLICT (user_id, day) DO NOTHING`,
		c.ID, c.UserID, c.Date.String(), c.MoneyMindScore, c.HabitText, c.AIInsight, c.StreakAtCreation, unixNano(c.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("insert check-in: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert check-in rows: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) GetCheckIn(ctx context.Context, userID string, day core.Date) (core.CheckIn, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+checkInColumns+` FROM checkins WHERE user_id = ? AND day = ?`, userID, day.String())
	c, err := scanCheckIn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CheckIn{}, fmt.Errorf("check-in %s: %w", day, core.ErrNotFound)
	}
	if err != nil {
		return core.CheckIn{}, fmt.Errorf("get check-in: %w", err)
	}
	return c, nil
}

// CompleteHabit flips habit_completed from false to true. changed is false
// when the habit was already completed, which is not an error.
func (r *SQLiteRepository) CompleteHabit(ctx context.Context, userID string, day core.Date) (c core.CheckIn, changed bool, err error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE checkins SET habit_completed = 1, completed_at = ?
		 WHERE user_id = ? AND day = ? AND habit_completed = 0
		 RETURNING `+checkInColumns, unixNano(r.now()), userID, day.String())
	c, err = scanCheckIn(row)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.CheckIn{}, false, fmt.Errorf("complete habit: %w", err)
	}

	c, err = r.GetCheckIn(ctx, userID, day)
	if err != nil {
		return core.CheckIn{}, false, err
	}
	return c, false, nil
}

// ListCheckIns returns check-ins newest first. limit <= 0 returns all.
func (r *SQLiteRepository) ListCheckIns(ctx context.Context, userID string, limit int) ([]core.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM checkins WHERE user_id = ? ORDER BY day DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	out := []core.CheckIn{}
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check-ins: %w", err)
	}
	return out, nil
}
