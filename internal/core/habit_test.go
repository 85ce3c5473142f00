package core

import (
	"errors"
	"testing"
)

func days(ds ...Date) []Date { return ds }

func TestComputeStreak(t *testing.T) {
	d1 := NewDate(2026, 10, 1)
	tests := []struct {
		name  string
		days  []Date
		today Date
		want  int
	}{
		{name: "no history", days: nil, today: d1, want: 0},
		{name: "only today", days: days(d1), today: d1, want: 1},
		{name: "three consecutive", days: days(d1, d1.AddDays(1), d1.AddDays(2)), today: d1.AddDays(2), want: 3},
		{name: "today missing", days: days(d1, d1.AddDays(1)), today: d1.AddDays(2), want: 0},
		{
			// Days 1-3, skip day 4, check in day 5.
			name:  "gap resets",
			days:  days(d1, d1.AddDays(1), d1.AddDays(2), d1.AddDays(4)),
			today: d1.AddDays(4),
			want:  1,
		},
		{name: "duplicates ignored", days: days(d1, d1, d1.AddDays(1)), today: d1.AddDays(1), want: 2},
		{name: "unordered input", days: days(d1.AddDays(2), d1, d1.AddDays(1)), today: d1.AddDays(2), want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStreak(tt.days, tt.today); got != tt.want {
				t.Errorf("ComputeStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeStreakMonotonicThenReset(t *testing.T) {
	start := NewDate(2026, 1, 1)
	var history []Date
	prev := 0
	for i := 0; i < 10; i++ {
		today := start.AddDays(i)
		history = append(history, today)
		s := ComputeStreak(history, today)
		if s < prev {
			t.Fatalf("streak decreased on consecutive day %d: %d < %d", i, s, prev)
		}
		prev = s
	}
	if got := ComputeStreak(history, start.AddDays(11)); got != 0 {
		t.Fatalf("expected streak 0 after a gap day, got %d", got)
	}
}

func TestComputeProgress(t *testing.T) {
	start := NewDate(2026, 10, 1)
	var checkins []CheckIn
	for i := 0; i < 5; i++ {
		checkins = append(checkins, CheckIn{Date: start.AddDays(i), HabitCompleted: i != 2})
	}
	p := ComputeProgress(checkins, start.AddDays(4))
	if p.StartedOn == nil || *p.StartedOn != start {
		t.Fatalf("expected start %s, got %v", start, p.StartedOn)
	}
	if p.CompletedDays != 4 || p.UnlockedDay != 5 {
		t.Fatalf("expected 4 completed / day 5 unlocked, got %+v", p)
	}
	if p.CurrentStreak != 5 || p.Finished {
		t.Fatalf("unexpected progress %+v", p)
	}

	empty := ComputeProgress(nil, start)
	if empty.UnlockedDay != 1 || empty.StartedOn != nil {
		t.Fatalf("unexpected empty progress %+v", empty)
	}
}

func TestDetectMoments(t *testing.T) {
	if got := DetectMoments(3, 3); len(got) != 0 {
		t.Fatalf("expected no moments, got %+v", got)
	}

	got := DetectMoments(7, 7)
	want := map[MomentType]int{MomentStreakAchievement: 7, MomentWeeklyWin: 7}
	if len(got) != len(want) {
		t.Fatalf("expected %d moments, got %+v", len(want), got)
	}
	for _, m := range got {
		if want[m.MomentType] != m.DayNumber {
			t.Fatalf("unexpected moment %+v", m)
		}
		if m.Quote == "" || m.StatLabel == "" {
			t.Fatalf("moment missing share text: %+v", m)
		}
	}

	all := DetectMoments(30, 30)
	counts := map[MomentType]int{}
	for _, m := range all {
		counts[m.MomentType]++
	}
	if counts[MomentStreakAchievement] != 3 || counts[MomentWeeklyWin] != 4 || counts[MomentMilestone] != 1 || counts[MomentCompletion] != 1 {
		t.Fatalf("unexpected moment counts %+v", counts)
	}
}

func TestValidateReflection(t *testing.T) {
	if err := ValidateReflection(3, "I noticed I spend when tired.", 3); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, tc := range []struct {
		day      int
		response string
		unlocked int
	}{
		{0, "x", 5},
		{31, "x", 30},
		{6, "x", 5},
		{2, "   ", 5},
	} {
		if err := ValidateReflection(tc.day, tc.response, tc.unlocked); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", tc, err)
		}
	}
}
