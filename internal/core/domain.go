package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	GoalSavings GoalType = "savings"
	GoalDebt    GoalType = "debt"
)

const (
	maxGoalNameLength = 100
	dateLayout        = "2006-01-02"
	periodLayout      = "2006-01"
)

type (
	GoalType string

	// Date is a calendar day with no time-of-day component. The wrapped
	// time is always midnight UTC so that equal days compare equal.
	Date struct {
		time.Time
	}

	Goal struct {
		ID            string    `json:"id"`
		UserID        string    `json:"userId"`
		Type          GoalType  `json:"type"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		Deadline      *Date     `json:"deadline,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	// NewGoal is the validated payload accepted by the goal store.
	NewGoal struct {
		Type         GoalType `json:"type"`
		Name         string   `json:"name"`
		TargetAmount Money    `json:"targetAmount"`
		Deadline     *Date    `json:"deadline,omitempty"`
	}
)

var ErrZeroDate = errors.New("date cannot be zero")

func (t GoalType) Valid() bool {
	return t == GoalSavings || t == GoalDebt
}

// Validate rejects the zero Date. Any other value is a real calendar day.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day t falls on in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the day n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// Period returns the YYYY-MM budget period the day belongs to.
func (d Date) Period() string {
	return d.Format(periodLayout)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a YYYY-MM-DD string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	// Accept full timestamps from bank feeds and keep only the day part.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParsePeriod validates a YYYY-MM period key.
func ParsePeriod(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", Invalid("period", "must be formatted as YYYY-MM")
	}
	return t.Format(periodLayout), nil
}

// IsOpen reports whether the goal still has an amount left to reach.
func (g Goal) IsOpen() bool {
	return g.CurrentAmount.Cents < g.TargetAmount.Cents
}

// PercentComplete returns progress towards the target, rounded to a whole percent.
func (g Goal) PercentComplete() int {
	return Percent(g.CurrentAmount, g.TargetAmount)
}

func (n NewGoal) Validate() error {
	if !n.Type.Valid() {
		return Invalid("type", "must be savings or debt")
	}
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return Invalid("name", "cannot be empty")
	}
	if len(name) > maxGoalNameLength {
		return Invalid("name", fmt.Sprintf("too long (max %d characters)", maxGoalNameLength))
	}
	if err := n.TargetAmount.Validate(); err != nil {
		return Invalid("targetAmount", err.Error())
	}
	if n.Deadline != nil {
		if err := n.Deadline.Validate(); err != nil {
			return Invalid("deadline", err.Error())
		}
	}
	return nil
}

// ValidateDeadline rejects deadlines that already passed relative to today.
func (n NewGoal) ValidateDeadline(today Date) error {
	if n.Deadline != nil && n.Deadline.Before(today.Time) {
		return Invalid("deadline", "must not be in the past")
	}
	return nil
}
