package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !errors.Is(err, ErrZeroDate) {
			t.Fatalf("case %d expected ErrZeroDate, got %v", i, err)
		}
	}

	// Out-of-range parts normalise to a real day rather than failing.
	if d := NewDate(2025, 2, 30); d.Validate() != nil || d.String() != "2025-03-02" {
		t.Fatalf("NewDate(2025, 2, 30) = %s, %v", d, d.Validate())
	}
}

func TestDateOfUsesLocation(t *testing.T) {
	// 02:30 UTC on March 2nd is still March 1st in New York.
	instant := time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC)
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if got := DateOf(instant, ny); got != NewDate(2026, 3, 1) {
		t.Fatalf("expected 2026-03-01, got %s", got)
	}
	if got := DateOf(instant, nil); got != NewDate(2026, 3, 2) {
		t.Fatalf("expected 2026-03-02 in UTC, got %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2026-04-05T10:11:12Z"`), &d); err != nil {
		t.Fatalf("unmarshal timestamp: %v", err)
	}
	if d != NewDate(2026, 4, 5) {
		t.Fatalf("unexpected date %s", d)
	}
	out, _ := json.Marshal(d)
	if string(out) != `"2026-04-05"` {
		t.Fatalf("unexpected json %s", out)
	}
	if err := json.Unmarshal([]byte(`"yesterday"`), &d); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestParsePeriod(t *testing.T) {
	if p, err := ParsePeriod(" 2026-09 "); err != nil || p != "2026-09" {
		t.Fatalf("expected 2026-09, got %q (err=%v)", p, err)
	}
	_, err := ParsePeriod("2026-13")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewGoalValidate(t *testing.T) {
	deadline := NewDate(2027, 1, 1)
	good := NewGoal{Type: GoalSavings, Name: "Emergency Fund", TargetAmount: Money{Cents: 500000}, Deadline: &deadline}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		goal  NewGoal
		field string
	}{
		{NewGoal{Type: "rainy", Name: "x", TargetAmount: Money{Cents: 1}}, "type"},
		{NewGoal{Type: GoalDebt, Name: "  ", TargetAmount: Money{Cents: 1}}, "name"},
		{NewGoal{Type: GoalDebt, Name: "Card", TargetAmount: Money{Cents: 0}}, "targetAmount"},
		{NewGoal{Type: GoalDebt, Name: "Card", TargetAmount: Money{Cents: -5}}, "targetAmount"},
	}
	for i, tc := range cases {
		err := tc.goal.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("case %d expected field %q, got %q", i, tc.field, verr.Field)
		}
	}

	past := NewDate(2020, 1, 1)
	late := NewGoal{Type: GoalSavings, Name: "Trip", TargetAmount: Money{Cents: 100}, Deadline: &past}
	if err := late.ValidateDeadline(NewDate(2026, 1, 1)); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected past deadline to be rejected, got %v", err)
	}
}

func TestGoalProgress(t *testing.T) {
	g := Goal{TargetAmount: Money{Cents: 1000000}, CurrentAmount: Money{Cents: 270000}}
	if !g.IsOpen() {
		t.Fatalf("expected goal to be open")
	}
	if got := g.PercentComplete(); got != 27 {
		t.Fatalf("expected 27%%, got %d", got)
	}
	g.CurrentAmount = Money{Cents: 1200000}
	if g.IsOpen() {
		t.Fatalf("over-saved goal should not be open")
	}
	if got := g.PercentComplete(); got != 120 {
		t.Fatalf("expected 120%%, got %d", got)
	}
}
