package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ProgrammeDays is the length of the money reset programme.
const ProgrammeDays = 30

const (
	MomentMilestone         MomentType = "milestone"
	MomentWeeklyWin         MomentType = "weekly_win"
	MomentStreakAchievement MomentType = "streak_achievement"
	MomentCompletion        MomentType = "completion"
)

type (
	MomentType string

	CheckIn struct {
		ID               string     `json:"id"`
		UserID           string     `json:"userId"`
		Date             Date       `json:"date"`
		MoneyMindScore   int        `json:"moneyMindScore"`
		HabitText        string     `json:"habitText"`
		HabitCompleted   bool       `json:"habitCompleted"`
		AIInsight        string     `json:"aiInsight"`
		StreakAtCreation int        `json:"streakAtCreation"`
		CreatedAt        time.Time  `json:"createdAt"`
		CompletedAt      *time.Time `json:"completedAt,omitempty"`
	}

	// Moment is an append-only record of a milestone crossed in the programme.
	Moment struct {
		ID         string     `json:"id"`
		UserID     string     `json:"userId"`
		MomentType MomentType `json:"momentType"`
		DayNumber  int        `json:"dayNumber"`
		StatLabel  string     `json:"statLabel"`
		StatValue  string     `json:"statValue"`
		Quote      string     `json:"quote"`
		CreatedAt  time.Time  `json:"createdAt"`
	}

	Reflection struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		DayNumber int       `json:"dayNumber"`
		Prompt    string    `json:"prompt"`
		Response  string    `json:"response"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// ResetProgress is derived from check-in history, never stored.
	ResetProgress struct {
		StartedOn     *Date `json:"startedOn,omitempty"`
		CompletedDays int   `json:"completedDays"`
		UnlockedDay   int   `json:"unlockedDay"`
		CurrentStreak int   `json:"currentStreak"`
		Finished      bool  `json:"finished"`
	}
)

// ComputeStreak counts consecutive check-in days ending at today. A missing
// record for today means the streak is zero.
func ComputeStreak(days []Date, today Date) int {
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		seen[d.String()] = struct{}{}
	}
	streak := 0
	for day := today; ; day = day.AddDays(-1) {
		if _, ok := seen[day.String()]; !ok {
			return streak
		}
		streak++
	}
}

// ComputeProgress derives programme state from a user's check-ins.
func ComputeProgress(checkins []CheckIn, today Date) ResetProgress {
	var p ResetProgress
	if len(checkins) == 0 {
		p.UnlockedDay = 1
		return p
	}

	days := make([]Date, 0, len(checkins))
	for _, c := range checkins {
		days = append(days, c.Date)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j].Time) })
	start := days[0]
	p.StartedOn = &start

	for _, c := range checkins {
		if c.HabitCompleted && !c.Date.Before(start.Time) {
			p.CompletedDays++
		}
	}
	p.UnlockedDay = min(ProgrammeDays, p.CompletedDays+1)
	p.CurrentStreak = ComputeStreak(days, today)
	p.Finished = p.CompletedDays >= ProgrammeDays
	return p
}

var (
	streakThresholds    = []int{7, 14, 30}
	weeklyWinThresholds = []int{7, 14, 21, 28}
	midpointDay         = 15
)

// DetectMoments returns every moment whose threshold the given state has
// reached. The store's uniqueness key turns repeats into no-ops, so callers
// pass the full state on every check-in rather than tracking deltas.
func DetectMoments(streak, completedDays int) []Moment {
	var out []Moment
	for _, t := range streakThresholds {
		if streak >= t {
			out = append(out, Moment{
				MomentType: MomentStreakAchievement,
				DayNumber:  t,
				StatLabel:  "Day streak",
				StatValue:  fmt.Sprintf("%d days", t),
				Quote:      streakQuote(t),
			})
		}
	}
	for _, t := range weeklyWinThresholds {
		if completedDays >= t {
			out = append(out, Moment{
				MomentType: MomentWeeklyWin,
				DayNumber:  t,
				StatLabel:  "Week completed",
				StatValue:  fmt.Sprintf("Week %d", t/7),
				Quote:      fmt.Sprintf("Week %d of your money reset is done. Small habits, real change.", t/7),
			})
		}
	}
	if completedDays >= midpointDay {
		out = append(out, Moment{
			MomentType: MomentMilestone,
			DayNumber:  midpointDay,
			StatLabel:  "Halfway there",
			StatValue:  fmt.Sprintf("%d of %d days", midpointDay, ProgrammeDays),
			Quote:      "Halfway through. The habits you are building now are the ones that stick.",
		})
	}
	if completedDays >= ProgrammeDays {
		out = append(out, Moment{
			MomentType: MomentCompletion,
			DayNumber:  ProgrammeDays,
			StatLabel:  "Programme complete",
			StatValue:  fmt.Sprintf("%d days", ProgrammeDays),
			Quote:      "You finished the 30-day money reset. This is who you are with money now.",
		})
	}
	return out
}

func streakQuote(days int) string {
	switch days {
	case 7:
		return "Seven days in a row. Consistency beats intensity."
	case 14:
		return "Two weeks without breaking the chain."
	default:
		return fmt.Sprintf("%d straight days of showing up for your money.", days)
	}
}

const maxReflectionLength = 4000

// ValidateReflection checks a journal entry against the unlocked range.
func ValidateReflection(dayNumber int, response string, unlockedDay int) error {
	if dayNumber < 1 || dayNumber > ProgrammeDays {
		return Invalid("dayNumber", fmt.Sprintf("must be between 1 and %d", ProgrammeDays))
	}
	if dayNumber > unlockedDay {
		return Invalid("dayNumber", fmt.Sprintf("day %d is not unlocked yet", dayNumber))
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return Invalid("response", "cannot be empty")
	}
	if len(response) > maxReflectionLength {
		return Invalid("response", fmt.Sprintf("too long (max %d characters)", maxReflectionLength))
	}
	return nil
}
