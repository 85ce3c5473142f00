package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moneycoach/internal/core"
	"moneycoach/internal/log"
)

const goalColumns = `id, user_id, type, name, target_cents, current_cents, deadline, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		g        core.Goal
		kind     string
		deadline sql.NullString
		created  int64
	)
	if err := row.Scan(&g.ID, &g.UserID, &kind, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents, &deadline, &created); err != nil {
		return core.Goal{}, err
	}
	g.Type = core.GoalType(kind)
	g.CreatedAt = fromUnixNano(created)
	if deadline.Valid && deadline.String != "" {
		d, err := core.ParseDate(deadline.String)
		if err != nil {
			return core.Goal{}, fmt.Errorf("goal %s deadline: %w", g.ID, err)
		}
		g.Deadline = &d
	}
	return g, nil
}

func nullableDate(d *core.Date) sql.NullString {
	if d == nil || d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// CreateGoal validates and stores a new goal with a zero current amount.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, userID string, n core.NewGoal) (core.Goal, error) {
	if err := n.Validate(); err != nil {
		return core.Goal{}, err
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, 0, ?, ?) RETURNING `+goalColumns,
		newID(), userID, string(n.Type), strings.TrimSpace(n.Name), n.TargetAmount.Cents,
		nullableDate(n.Deadline), unixNano(r.now()),
	)
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	r.logger.DebugContext(ctx, "Goal inserted",
		log.FieldUserID, userID, log.FieldGoalID, g.ID, log.FieldAmountCents, g.TargetAmount.Cents)
	return g, nil
}

// ListGoals returns the user's goals, newest first.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, userID, goalID string) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND id = ?`, userID, goalID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

// DeleteGoal removes a goal and returns it as it was just before deletion.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, goalID string) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM goals WHERE user_id = ? AND id = ? RETURNING `+goalColumns, userID, goalID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("delete goal: %w", err)
	}
	return g, nil
}

// AddProgress adds delta to the goal's current amount in one statement and
// returns the post-update goal. The amount never drops below zero.
func (r *SQLiteRepository) AddProgress(ctx context.Context, userID, goalID string, delta core.Money) (core.Goal, error) {
	if delta.Cents == 0 {
		return core.Goal{}, core.Invalid("amount", "must not be zero")
	}
	if delta.Cents > core.MaxAmountCents || delta.Cents < -core.MaxAmountCents {
		return core.Goal{}, core.Invalid("amount", core.ErrAmountTooLarge.Error())
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE goals SET current_cents = MAX(0, current_cents + ?)
		 WHERE user_id = ? AND id = ?
		 RETURNING `+goalColumns, delta.Cents, userID, goalID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("add progress: %w", err)
	}
	return g, nil
}
