package storage

import (
	"context"
	"fmt"

	"moneycoach/internal/core"
)

// InsertMoment records a moment unless one with the same type and day number
// already exists for the user. inserted reports whether a row was written.
func (r *SQLiteRepository) InsertMoment(ctx context.Context, m core.Moment) (core.Moment, bool, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO moments (id, user_id, moment_type, day_number, stat_label, stat_value, quote, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, moment_type, day_number) DO NOTHING`,
		m.ID, m.UserID, string(m.MomentType), m.DayNumber, m.StatLabel, m.StatValue, m.Quote, unixNano(m.CreatedAt))
	if err != nil {
		return core.Moment{}, false, fmt.Errorf("insert moment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Moment{}, false, fmt.Errorf("insert moment rows: %w", err)
	}
	return m, n == 1, nil
}

// ListMoments returns moments in the order they were reached.
func (r *SQLiteRepository) ListMoments(ctx context.Context, userID string) ([]core.Moment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, moment_type, day_number, stat_label, stat_value, quote, created_at
		 FROM moments WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list moments: %w", err)
	}
	defer rows.Close()

	out := []core.Moment{}
	for rows.Next() {
		var (
			m       core.Moment
			kind    string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.UserID, &kind, &m.DayNumber, &m.StatLabel, &m.StatValue, &m.Quote, &created); err != nil {
			return nil, fmt.Errorf("scan moment: %w", err)
		}
		m.MomentType = core.MomentType(kind)
		m.CreatedAt = fromUnixNano(created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moments: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) InsertReflection(ctx context.Context, ref core.Reflection) (core.Reflection, error) {
	if ref.ID == "" {
		ref.ID = newID()
	}
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = r.now().UTC()
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO reflections (id, user_id, day_number, prompt, response, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ref.ID, ref.UserID, ref.DayNumber, ref.Prompt, ref.Response, unixNano(ref.CreatedAt)); err != nil {
		return core.Reflection{}, fmt.Errorf("insert reflection: %w", err)
	}
	return ref, nil
}

// ListReflections returns journal entries ordered by programme day.
func (r *SQLiteRepository) ListReflections(ctx context.Context, userID string) ([]core.Reflection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, day_number, prompt, response, created_at
		 FROM reflections WHERE user_id = ? ORDER BY day_number, created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	defer rows.Close()

	out := []core.Reflection{}
	for rows.Next() {
		var (
			ref     core.Reflection
			created int64
		)
		if err := rows.Scan(&ref.ID, &ref.UserID, &ref.DayNumber, &ref.Prompt, &ref.Response, &created); err != nil {
			return nil, fmt.Errorf("scan reflection: %w", err)
		}
		ref.CreatedAt = fromUnixNano(created)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reflections: %w", err)
	}
	return out, nil
}
