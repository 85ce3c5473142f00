package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"moneycoach/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	// Strictly increasing clock so ordering by creation time is deterministic.
	var tick atomic.Int64
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return base.Add(time.Duration(tick.Add(1)) * time.Second) }
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestGoalLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	deadline := core.NewDate(2026, 12, 31)

	g, err := repo.CreateGoal(ctx, "u1", core.NewGoal{
		Type: core.GoalSavings, Name: "  Emergency Fund ", TargetAmount: core.Money{Cents: 100000}, Deadline: &deadline,
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if g.ID == "" || g.Name != "Emergency Fund" || g.CurrentAmount.Cents != 0 || g.Deadline == nil || *g.Deadline != deadline {
		t.Fatalf("unexpected goal: %+v", g)
	}

	got, err := repo.GetGoal(ctx, "u1", g.ID)
	if err != nil || got.ID != g.ID {
		t.Fatalf("GetGoal = %+v, %v", got, err)
	}
	if _, err := repo.GetGoal(ctx, "u2", g.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected goals to be scoped by user, got %v", err)
	}

	updated, err := repo.AddProgress(ctx, "u1", g.ID, core.Money{Cents: 25000})
	if err != nil {
		t.Fatalf("AddProgress: %v", err)
	}
	if updated.CurrentAmount.Cents != 25000 {
		t.Fatalf("current = %d, want 25000", updated.CurrentAmount.Cents)
	}

	// Negative corrections clamp at zero.
	updated, err = repo.AddProgress(ctx, "u1", g.ID, core.Money{Cents: -90000})
	if err != nil {
		t.Fatalf("AddProgress negative: %v", err)
	}
	if updated.CurrentAmount.Cents != 0 {
		t.Fatalf("current = %d, want 0", updated.CurrentAmount.Cents)
	}

	deleted, err := repo.DeleteGoal(ctx, "u1", g.ID)
	if err != nil || deleted.ID != g.ID {
		t.Fatalf("DeleteGoal = %+v, %v", deleted, err)
	}
	if _, err := repo.DeleteGoal(ctx, "u1", g.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestCreateGoalRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateGoal(context.Background(), "u1", core.NewGoal{Type: core.GoalDebt, Name: "Loan"})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Field != "targetAmount" {
		t.Fatalf("expected targetAmount validation error, got %v", err)
	}
}

func TestListGoalsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	for _, name := range []string{"First", "Second", "Third"} {
		if _, err := repo.CreateGoal(ctx, "u1", core.NewGoal{Type: core.GoalSavings, Name: name, TargetAmount: core.Money{Cents: 100}}); err != nil {
			t.Fatalf("CreateGoal: %v", err)
		}
	}
	if _, err := repo.CreateGoal(ctx, "u2", core.NewGoal{Type: core.GoalSavings, Name: "Other", TargetAmount: core.Money{Cents: 100}}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	goals, err := repo.ListGoals(ctx, "u1")
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 3 || goals[0].Name != "Third" || goals[2].Name != "First" {
		t.Fatalf("unexpected order: %+v", goals)
	}
}

func TestConcurrentProgressIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	g, err := repo.CreateGoal(ctx, "u1", core.NewGoal{Type: core.GoalSavings, Name: "Car", TargetAmount: core.Money{Cents: 1000000}})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	const workers = 20
	var eg errgroup.Group
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			_, err := repo.AddProgress(ctx, "u1", g.ID, core.Money{Cents: 500})
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("AddProgress: %v", err)
	}

	got, err := repo.GetGoal(ctx, "u1", g.ID)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	if got.CurrentAmount.Cents != workers*500 {
		t.Fatalf("current = %d, want %d", got.CurrentAmount.Cents, workers*500)
	}
}

func TestReconciliationReplacesActuals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SetPlanned(ctx, "u1", "2026-03", "groceries", core.Money{Cents: 40000}); err != nil {
		t.Fatalf("SetPlanned: %v", err)
	}
	if err := repo.SetPlanned(ctx, "u1", "2026-03", "not_a_category", core.Money{Cents: 1}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error for unknown category, got %v", err)
	}

	err := repo.SaveReconciliation(ctx, "u1", "2026-03",
		map[string]string{"fp1": "groceries", "fp2": "dining"},
		map[string]core.Money{"groceries": {Cents: 1200}, "dining": {Cents: 3000}})
	if err != nil {
		t.Fatalf("SaveReconciliation: %v", err)
	}

	// Second run drops dining and must not keep the old row.
	err = repo.SaveReconciliation(ctx, "u1", "2026-03",
		map[string]string{"fp1": "shopping"},
		map[string]core.Money{"groceries": {Cents: 1200}})
	if err != nil {
		t.Fatalf("SaveReconciliation: %v", err)
	}

	actual, err := repo.ActualAmounts(ctx, "u1", "2026-03")
	if err != nil {
		t.Fatalf("ActualAmounts: %v", err)
	}
	if len(actual) != 1 || actual["groceries"].Cents != 1200 {
		t.Fatalf("unexpected actuals: %+v", actual)
	}

	planned, err := repo.PlannedAmounts(ctx, "u1", "2026-03")
	if err != nil || planned["groceries"].Cents != 40000 {
		t.Fatalf("planned amounts must survive reconciliation: %+v, %v", planned, err)
	}

	assigned, err := repo.Assignments(ctx, "u1", []string{"fp1", "fp2", "fp3"})
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if assigned["fp1"] != "groceries" || assigned["fp2"] != "dining" || len(assigned) != 2 {
		t.Fatalf("first assignment must be kept: %+v", assigned)
	}
}

func TestCheckInUniquePerDay(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := core.NewDate(2026, 3, 10)

	const callers = 10
	var created atomic.Int32
	var eg errgroup.Group
	for i := 0; i < callers; i++ {
		eg.Go(func() error {
			ok, err := repo.InsertCheckIn(ctx, core.CheckIn{UserID: "u1", Date: day, MoneyMindScore: 50, HabitText: "Check your balance"})
			if ok {
				created.Add(1)
			}
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatalf("InsertCheckIn: %v", err)
	}
	if created.Load() != 1 {
		t.Fatalf("created %d check-ins, want 1", created.Load())
	}

	c, changed, err := repo.CompleteHabit(ctx, "u1", day)
	if err != nil || !changed || !c.HabitCompleted || c.CompletedAt == nil {
		t.Fatalf("CompleteHabit = %+v, %v, %v", c, changed, err)
	}
	c, changed, err = repo.CompleteHabit(ctx, "u1", day)
	if err != nil || changed || !c.HabitCompleted {
		t.Fatalf("second CompleteHabit = %+v, %v, %v", c, changed, err)
	}

	if _, _, err := repo.CompleteHabit(ctx, "u1", day.AddDays(1)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("completing a missing day should be not found, got %v", err)
	}

	history, err := repo.ListCheckIns(ctx, "u1", 0)
	if err != nil || len(history) != 1 {
		t.Fatalf("ListCheckIns = %+v, %v", history, err)
	}
}

func TestPlaybookRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, _, err := repo.LatestPlaybook(ctx, "u1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found before any interview, got %v", err)
	}

	months := 3.0
	iv := core.Interview{UserID: "u1", Responses: []core.Answer{
		{QuestionID: "money_feeling", Choice: "calm"},
		{QuestionID: "emergency_months", Number: &months},
	}}
	pb := core.Playbook{
		PersonalityType: core.PersonalitySecurityBuilder,
		Scores:          core.PlaybookScores{SavingHabit: 70, FinancialAwareness: 60, SpendingTriggerIntensity: 20},
		ThirtyDayPlan:   core.ThirtyDayPlan{Week1: []string{"a"}, Week2: []string{"b"}, Week3: []string{"c"}, Week4: []string{"d"}},
		DailyHabit:      "Log one purchase",
	}
	for i := 0; i < 2; i++ {
		if _, _, err := repo.SavePlaybook(ctx, iv, pb); err != nil {
			t.Fatalf("SavePlaybook: %v", err)
		}
		pb.DailyHabit = "Skip one impulse buy"
	}

	gotIV, gotPB, err := repo.LatestPlaybook(ctx, "u1")
	if err != nil {
		t.Fatalf("LatestPlaybook: %v", err)
	}
	if gotPB.DailyHabit != "Skip one impulse buy" || gotPB.InterviewID != gotIV.ID {
		t.Fatalf("latest playbook must supersede: %+v", gotPB)
	}
	if len(gotIV.Responses) != 2 || gotIV.Responses[1].Number == nil || *gotIV.Responses[1].Number != 3 {
		t.Fatalf("responses not round-tripped: %+v", gotIV.Responses)
	}
	if len(gotPB.ThirtyDayPlan.Week4) != 1 {
		t.Fatalf("plan not round-tripped: %+v", gotPB.ThirtyDayPlan)
	}
}

func TestMomentsInsertOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := core.Moment{UserID: "u1", MomentType: core.MomentStreakAchievement, DayNumber: 7, StatLabel: "Day streak", StatValue: "7 days", Quote: "q"}
	if _, inserted, err := repo.InsertMoment(ctx, m); err != nil || !inserted {
		t.Fatalf("first insert = %v, %v", inserted, err)
	}
	if _, inserted, err := repo.InsertMoment(ctx, m); err != nil || inserted {
		t.Fatalf("duplicate insert = %v, %v", inserted, err)
	}

	moments, err := repo.ListMoments(ctx, "u1")
	if err != nil || len(moments) != 1 {
		t.Fatalf("ListMoments = %+v, %v", moments, err)
	}
}

func TestDeleteUserData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.CreateGoal(ctx, "u1", core.NewGoal{Type: core.GoalSavings, Name: "A", TargetAmount: core.Money{Cents: 1}}); err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	keep, err := repo.CreateGoal(ctx, "u2", core.NewGoal{Type: core.GoalSavings, Name: "B", TargetAmount: core.Money{Cents: 1}})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if _, err := repo.InsertReflection(ctx, core.Reflection{UserID: "u1", DayNumber: 1, Prompt: "p", Response: "r"}); err != nil {
		t.Fatalf("InsertReflection: %v", err)
	}
	if _, _, err := repo.SavePlaybook(ctx, core.Interview{UserID: "u1"}, core.Playbook{
		PersonalityType: core.PersonalityBalancedPlanner,
		ThirtyDayPlan:   core.ThirtyDayPlan{Week1: []string{"a"}, Week2: []string{"b"}, Week3: []string{"c"}, Week4: []string{"d"}},
		DailyHabit:      "h",
	}); err != nil {
		t.Fatalf("SavePlaybook: %v", err)
	}

	n, err := repo.DeleteUserData(ctx, "u1")
	if err != nil {
		t.Fatalf("DeleteUserData: %v", err)
	}
	if n != 4 {
		t.Fatalf("deleted %d rows, want 4", n)
	}

	goals, _ := repo.ListGoals(ctx, "u1")
	refs, _ := repo.ListReflections(ctx, "u1")
	if len(goals) != 0 || len(refs) != 0 {
		t.Fatalf("u1 data left behind: %v %v", goals, refs)
	}
	if _, err := repo.GetGoal(ctx, "u2", keep.ID); err != nil {
		t.Fatalf("other users must be untouched: %v", err)
	}
}
