package services

import (
	"context"

	"moneycoach/internal/core"
)

// GoalStore is the persistence the goal service needs.
type GoalStore interface {
	CreateGoal(ctx context.Context, userID string, n core.NewGoal) (core.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	GetGoal(ctx context.Context, userID, goalID string) (core.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) (core.Goal, error)
	AddProgress(ctx context.Context, userID, goalID string, delta core.Money) (core.Goal, error)
}

type BudgetStore interface {
	SetPlanned(ctx context.Context, userID, period, categoryID string, amount core.Money) error
	PlannedAmounts(ctx context.Context, userID, period string) (map[string]core.Money, error)
	ActualAmounts(ctx context.Context, userID, period string) (map[string]core.Money, error)
	Assignments(ctx context.Context, userID string, fingerprints []string) (map[string]string, error)
	SaveReconciliation(ctx context.Context, userID, period string, assignments map[string]string, actuals map[string]core.Money) error
}

type CheckInStore interface {
	InsertCheckIn(ctx context.Context, c core.CheckIn) (bool, error)
	GetCheckIn(ctx context.Context, userID string, day core.Date) (core.CheckIn, error)
	CompleteHabit(ctx context.Context, userID string, day core.Date) (core.CheckIn, bool, error)
	ListCheckIns(ctx context.Context, userID string, limit int) ([]core.CheckIn, error)
}

type PlaybookStore interface {
	SavePlaybook(ctx context.Context, iv core.Interview, pb core.Playbook) (core.Interview, core.Playbook, error)
	LatestPlaybook(ctx context.Context, userID string) (core.Interview, core.Playbook, error)
}

// JournalStore holds the append-only records of the money reset programme.
type JournalStore interface {
	InsertMoment(ctx context.Context, m core.Moment) (core.Moment, bool, error)
	ListMoments(ctx context.Context, userID string) ([]core.Moment, error)
	InsertReflection(ctx context.Context, r core.Reflection) (core.Reflection, error)
	ListReflections(ctx context.Context, userID string) ([]core.Reflection, error)
}

type AccountStore interface {
	DeleteUserData(ctx context.Context, userID string) (int64, error)
}
