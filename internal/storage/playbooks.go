package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"moneycoach/internal/core"
)

// SavePlaybook stores an interview and the playbook generated from it in one
// transaction. Missing ids and timestamps are filled in; the stored values
// are returned.
func (r *SQLiteRepository) SavePlaybook(ctx context.Context, iv core.Interview, pb core.Playbook) (core.Interview, core.Playbook, error) {
	now := r.now().UTC()
	if iv.ID == "" {
		iv.ID = newID()
	}
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = now
	}
	if iv.CompletedAt.IsZero() {
		iv.CompletedAt = now
	}
	if pb.ID == "" {
		pb.ID = newID()
	}
	if pb.CreatedAt.IsZero() {
		pb.CreatedAt = now
	}
	pb.UserID = iv.UserID
	pb.InterviewID = iv.ID

	responses, err := json.Marshal(iv.Responses)
	if err != nil {
		return core.Interview{}, core.Playbook{}, fmt.Errorf("encode responses: %w", err)
	}
	plan, err := json.Marshal(pb.ThirtyDayPlan)
	if err != nil {
		return core.Interview{}, core.Playbook{}, fmt.Errorf("encode plan: %w", err)
	}

	err = r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interviews (id, user_id, responses, completed_at, created_at) VALUES (?, ?, ?, ?, ?)`,
			iv.ID, iv.UserID, string(responses), unixNano(iv.CompletedAt), unixNano(iv.CreatedAt)); err != nil {
			return fmt.Errorf("insert interview: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO playbooks (id, user_id, interview_id, personality_type, saving_habit, financial_awareness,
			 spending_trigger_intensity, plan, daily_habit, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pb.ID, pb.UserID, pb.InterviewID, string(pb.PersonalityType), pb.Scores.SavingHabit,
			pb.Scores.FinancialAwareness, pb.Scores.SpendingTriggerIntensity, string(plan), pb.DailyHabit,
			unixNano(pb.CreatedAt)); err != nil {
			return fmt.Errorf("insert playbook: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Interview{}, core.Playbook{}, err
	}
	return iv, pb, nil
}

// LatestPlaybook returns the most recent playbook and its interview.
func (r *SQLiteRepository) LatestPlaybook(ctx context.Context, userID string) (core.Interview, core.Playbook, error) {
	var (
		iv                  core.Interview
		pb                  core.Playbook
		personality         string
		responses, plan     string
		ivCompleted, ivMade int64
		pbMade              int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.user_id, p.interview_id, p.personality_type, p.saving_habit, p.financial_awareness,
		        p.spending_trigger_intensity, p.plan, p.daily_habit, p.created_at,
		        i.responses, i.completed_at, i.created_at
		 FROM playbooks p JOIN interviews i ON i.id = p.interview_id
		 WHERE p.user_id = ?
		 ORDER BY p.created_at DESC, p.rowid DESC
		 LIMIT 1`, userID).Scan(
		&pb.ID, &pb.UserID, &pb.InterviewID, &personality, &pb.Scores.SavingHabit, &pb.Scores.FinancialAwareness,
		&pb.Scores.SpendingTriggerIntensity, &plan, &pb.DailyHabit, &pbMade,
		&responses, &ivCompleted, &ivMade)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Interview{}, core.Playbook{}, fmt.Errorf("playbook: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.Interview{}, core.Playbook{}, fmt.Errorf("latest playbook: %w", err)
	}

	pb.PersonalityType = core.PersonalityType(personality)
	pb.CreatedAt = fromUnixNano(pbMade)
	if err := json.Unmarshal([]byte(plan), &pb.ThirtyDayPlan); err != nil {
		return core.Interview{}, core.Playbook{}, fmt.Errorf("decode plan: %w", err)
	}

	iv.ID = pb.InterviewID
	iv.UserID = pb.UserID
	iv.CompletedAt = fromUnixNano(ivCompleted)
	iv.CreatedAt = fromUnixNano(ivMade)
	if err := json.Unmarshal([]byte(responses), &iv.Responses); err != nil {
		return core.Interview{}, core.Playbook{}, fmt.Errorf("decode responses: %w", err)
	}
	return iv, pb, nil
}
