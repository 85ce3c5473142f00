package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
	"moneycoach/internal/llm"
	"moneycoach/internal/log"
	"moneycoach/internal/metrics"
)

const defaultHabit = "Check your account balance and write down one purchase you made today."

// CheckInResult is the state returned by every check-in operation.
type CheckInResult struct {
	CheckIn          core.CheckIn       `json:"checkin"`
	Streak           int                `json:"streak"`
	AlreadyCompleted bool               `json:"alreadyCompleted,omitempty"`
	NewMoments       []core.Moment      `json:"newMoments"`
	Progress         core.ResetProgress `json:"progress"`

	// Changed reports whether this call wrote anything.
	Changed bool `json:"-"`
}

// HabitService drives the daily check-in and the 30-day money reset.
type HabitService struct {
	checkins  CheckInStore
	playbooks PlaybookStore
	journal   JournalStore
	llm       *llm.Client
	changes   *Changes
	logger    *log.Logger
	flight    singleflight.Group
	now       func() time.Time
}

func NewHabitService(checkins CheckInStore, playbooks PlaybookStore, journal JournalStore, client *llm.Client, changes *Changes, logger *log.Logger) *HabitService {
	if logger == nil {
		logger = log.Nop()
	}
	return &HabitService{
		checkins:  checkins,
		playbooks: playbooks,
		journal:   journal,
		llm:       client,
		changes:   changes,
		logger:    logger.WithComponent(log.ComponentCheckIn),
		now:       time.Now,
	}
}

// Today returns the user's check-in for their current day, creating it on
// first access. Concurrent first accesses share one creation.
func (s *HabitService) Today(ctx context.Context, userID string, loc *time.Location) (CheckInResult, error) {
	day := core.DateOf(s.now(), loc)

	c, err := s.checkins.GetCheckIn(ctx, userID, day)
	if err == nil {
		return s.state(ctx, userID, c, day, nil)
	}
	if !errors.Is(err, core.ErrNotFound) {
		return CheckInResult{}, fmt.Errorf("get check-in: %w", err)
	}

	v, err, _ := s.flight.Do(userID+"|"+day.String(), func() (any, error) {
		return s.create(context.WithoutCancel(ctx), userID, day)
	})
	if err != nil {
		return CheckInResult{}, err
	}
	return v.(CheckInResult), nil
}

func (s *HabitService) create(ctx context.Context, userID string, day core.Date) (CheckInResult, error) {
	history, err := s.checkins.ListCheckIns(ctx, userID, 0)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("load check-ins: %w", err)
	}
	for _, c := range history {
		if c.Date.Equal(day.Time) {
			return s.state(ctx, userID, c, day, history)
		}
	}

	days := make([]core.Date, 0, len(history))
	yesterdayDone := false
	for _, c := range history {
		days = append(days, c.Date)
		if c.Date.Equal(day.AddDays(-1).Time) && c.HabitCompleted {
			yesterdayDone = true
		}
	}
	streakBefore := core.ComputeStreak(days, day.AddDays(-1))

	var playbook *core.Playbook
	if _, pb, err := s.playbooks.LatestPlaybook(ctx, userID); err == nil {
		playbook = &pb
	} else if !errors.Is(err, core.ErrNotFound) {
		return CheckInResult{}, fmt.Errorf("load playbook: %w", err)
	}

	c := core.CheckIn{
		UserID:           userID,
		Date:             day,
		MoneyMindScore:   MoneyMindScore(streakBefore, yesterdayDone, playbook),
		HabitText:        defaultHabit,
		StreakAtCreation: streakBefore,
	}
	if playbook != nil && strings.TrimSpace(playbook.DailyHabit) != "" {
		c.HabitText = playbook.DailyHabit
	}
	c.AIInsight = s.insight(ctx, c, streakBefore, playbook)

	created, err := s.checkins.InsertCheckIn(ctx, c)
	if err != nil {
		return CheckInResult{}, err
	}
	stored, err := s.checkins.GetCheckIn(ctx, userID, day)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("read back check-in: %w", err)
	}
	if created {
		metrics.CheckInsCreated.Inc()
		s.logger.InfoContext(ctx, "Check-in created",
			log.FieldUserID, userID, log.FieldDay, day.String(), "score", stored.MoneyMindScore)
	}

	res, err := s.state(ctx, userID, stored, day, append(history, stored))
	if err != nil {
		return CheckInResult{}, err
	}
	moments, err := s.recordMoments(ctx, userID, res)
	if err != nil {
		return CheckInResult{}, err
	}
	res.NewMoments = moments
	res.Changed = created
	if created {
		s.changes.Notify(ctx, userID, cache.ViewCheckIn, cache.ViewReset, cache.ViewMoments)
	}
	return res, nil
}

// CompleteHabit marks today's habit done. Completing twice is not an error;
// the second call reports AlreadyCompleted and changes nothing.
func (s *HabitService) CompleteHabit(ctx context.Context, userID string, loc *time.Location) (CheckInResult, error) {
	today, err := s.Today(ctx, userID, loc)
	if err != nil {
		return CheckInResult{}, err
	}
	day := today.CheckIn.Date

	c, changed, err := s.checkins.CompleteHabit(ctx, userID, day)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("complete habit: %w", err)
	}

	res, err := s.state(ctx, userID, c, day, nil)
	if err != nil {
		return CheckInResult{}, err
	}
	res.AlreadyCompleted = !changed
	res.Changed = changed || today.Changed
	res.NewMoments = today.NewMoments

	if changed {
		moments, err := s.recordMoments(ctx, userID, res)
		if err != nil {
			return CheckInResult{}, err
		}
		res.NewMoments = append(res.NewMoments, moments...)
		s.logger.InfoContext(ctx, "Habit completed",
			log.FieldUserID, userID, log.FieldDay, day.String(), "completed_days", res.Progress.CompletedDays)
		s.changes.Notify(ctx, userID, cache.ViewCheckIn, cache.ViewReset, cache.ViewMoments)
	}
	return res, nil
}

// state fills in the derived streak and programme progress. history may be
// nil, in which case it is loaded.
func (s *HabitService) state(ctx context.Context, userID string, c core.CheckIn, today core.Date, history []core.CheckIn) (CheckInResult, error) {
	if history == nil {
		var err error
		history, err = s.checkins.ListCheckIns(ctx, userID, 0)
		if err != nil {
			return CheckInResult{}, fmt.Errorf("load check-ins: %w", err)
		}
	}
	progress := core.ComputeProgress(history, today)
	return CheckInResult{
		CheckIn:    c,
		Streak:     progress.CurrentStreak,
		NewMoments: []core.Moment{},
		Progress:   progress,
	}, nil
}

// recordMoments stores every moment the state has earned and returns the
// ones that were new.
func (s *HabitService) recordMoments(ctx context.Context, userID string, res CheckInResult) ([]core.Moment, error) {
	fresh := []core.Moment{}
	for _, m := range core.DetectMoments(res.Streak, res.Progress.CompletedDays) {
		m.UserID = userID
		stored, inserted, err := s.journal.InsertMoment(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("record moment: %w", err)
		}
		if inserted {
			metrics.MomentsEmitted.WithLabelValues(string(m.MomentType)).Inc()
			fresh = append(fresh, stored)
		}
	}
	return fresh, nil
}

// MoneyMindScore rates the user's money mindset for the day from their
// streak, yesterday's habit and their playbook's saving habit score.
func MoneyMindScore(streakBefore int, yesterdayCompleted bool, playbook *core.Playbook) int {
	score := 50 + 5*min(streakBefore, 6)
	if yesterdayCompleted {
		score += 10
	}
	if playbook != nil {
		score += playbook.Scores.SavingHabit / 10
	}
	return max(0, min(100, score))
}

func (s *HabitService) insight(ctx context.Context, c core.CheckIn, streakBefore int, playbook *core.Playbook) string {
	fallback := fallbackInsight(streakBefore)
	if s.llm == nil {
		return fallback
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Streak before today: %d days. Money mind score: %d/100. Today's habit: %s.", streakBefore, c.MoneyMindScore, c.HabitText)
	if playbook != nil {
		fmt.Fprintf(&prompt, " Money personality: %s.", strings.ReplaceAll(string(playbook.PersonalityType), "_", " "))
	}

	text, err := s.llm.Complete(ctx, "checkin_insight", llm.Request{
		System:      "You are a warm personal finance coach. Reply with one or two encouraging sentences for today's check-in. No lists, no markdown.",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt.String()}},
		Temperature: 0.7,
		MaxTokens:   120,
	})
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		s.logger.WarnContext(ctx, "Using fallback insight", log.FieldUserID, c.UserID, log.FieldError, err)
		return fallback
	}
	return text
}

func fallbackInsight(streakBefore int) string {
	switch {
	case streakBefore == 0:
		return "Every streak starts with one day. Showing up today is the win."
	case streakBefore < 7:
		return fmt.Sprintf("You've checked in %d days in a row. Keep the chain going today.", streakBefore)
	default:
		return fmt.Sprintf("%d days straight. Your money habits are becoming part of who you are.", streakBefore)
	}
}

// History returns recent check-ins, newest first.
func (s *HabitService) History(ctx context.Context, userID string, limit int) ([]core.CheckIn, error) {
	return s.checkins.ListCheckIns(ctx, userID, limit)
}

// Progress derives the user's place in the 30-day programme.
func (s *HabitService) Progress(ctx context.Context, userID string, loc *time.Location) (core.ResetProgress, error) {
	history, err := s.checkins.ListCheckIns(ctx, userID, 0)
	if err != nil {
		return core.ResetProgress{}, fmt.Errorf("load check-ins: %w", err)
	}
	return core.ComputeProgress(history, core.DateOf(s.now(), loc)), nil
}

func (s *HabitService) Moments(ctx context.Context, userID string) ([]core.Moment, error) {
	return s.journal.ListMoments(ctx, userID)
}

func (s *HabitService) Reflections(ctx context.Context, userID string) ([]core.Reflection, error) {
	return s.journal.ListReflections(ctx, userID)
}

// AddReflection appends a journal entry for an unlocked programme day. An
// empty prompt is replaced by the day's default prompt.
func (s *HabitService) AddReflection(ctx context.Context, userID string, dayNumber int, prompt, response string, loc *time.Location) (core.Reflection, error) {
	progress, err := s.Progress(ctx, userID, loc)
	if err != nil {
		return core.Reflection{}, err
	}
	if err := core.ValidateReflection(dayNumber, response, progress.UnlockedDay); err != nil {
		return core.Reflection{}, err
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = ReflectionPrompt(dayNumber)
	}

	r, err := s.journal.InsertReflection(ctx, core.Reflection{
		UserID:    userID,
		DayNumber: dayNumber,
		Prompt:    prompt,
		Response:  strings.TrimSpace(response),
	})
	if err != nil {
		return core.Reflection{}, err
	}
	s.changes.Notify(ctx, userID, cache.ViewReset)
	return r, nil
}

var weeklyPrompts = [4]string{
	"What did you notice about how you feel when you spend money?",
	"Which purchase this week are you most glad you skipped?",
	"What money story from your past showed up this week?",
	"What would you tell yourself from day one of this reset?",
}

// ReflectionPrompt returns the default journal prompt for a programme day.
func ReflectionPrompt(dayNumber int) string {
	week := min(max((dayNumber-1)/7, 0), len(weeklyPrompts)-1)
	return weeklyPrompts[week]
}
