package core

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

type PersonalityType string

const (
	PersonalityCautiousSaver     PersonalityType = "cautious_saver"
	PersonalityImpulseSpender    PersonalityType = "impulse_spender"
	PersonalityAnxiousAvoider    PersonalityType = "anxious_avoider"
	PersonalityStatusSeeker      PersonalityType = "status_seeker"
	PersonalityGenerousGiver     PersonalityType = "generous_giver"
	PersonalityFrugalOptimizer   PersonalityType = "frugal_optimizer"
	PersonalityCarefreeOptimist  PersonalityType = "carefree_optimist"
	PersonalityAmbitiousInvestor PersonalityType = "ambitious_investor"
	PersonalitySecurityBuilder   PersonalityType = "security_builder"
	PersonalityBalancedPlanner   PersonalityType = "balanced_planner"
)

// PersonalityTypes lists every archetype a playbook may carry.
var PersonalityTypes = []PersonalityType{
	PersonalityCautiousSaver,
	PersonalityImpulseSpender,
	PersonalityAnxiousAvoider,
	PersonalityStatusSeeker,
	PersonalityGenerousGiver,
	PersonalityFrugalOptimizer,
	PersonalityCarefreeOptimist,
	PersonalityAmbitiousInvestor,
	PersonalitySecurityBuilder,
	PersonalityBalancedPlanner,
}

func (p PersonalityType) Valid() bool {
	return slices.Contains(PersonalityTypes, p)
}

type (
	PlaybookScores struct {
		SavingHabit              int `json:"savingHabit"`
		FinancialAwareness       int `json:"financialAwareness"`
		SpendingTriggerIntensity int `json:"spendingTriggerIntensity"`
	}

	ThirtyDayPlan struct {
		Week1 []string `json:"week1"`
		Week2 []string `json:"week2"`
		Week3 []string `json:"week3"`
		Week4 []string `json:"week4"`
	}

	Playbook struct {
		ID              string          `json:"id"`
		UserID          string          `json:"userId"`
		InterviewID     string          `json:"interviewId"`
		PersonalityType PersonalityType `json:"personalityType"`
		Scores          PlaybookScores  `json:"scores"`
		ThirtyDayPlan   ThirtyDayPlan   `json:"thirtyDayPlan"`
		DailyHabit      string          `json:"dailyHabit"`
		CreatedAt       time.Time       `json:"createdAt"`
	}
)

// Weeks returns the plan's four weeks in order.
func (p ThirtyDayPlan) Weeks() [][]string {
	return [][]string{p.Week1, p.Week2, p.Week3, p.Week4}
}

// Problems lists every way the playbook falls short of a well-formed one.
// An empty result means the playbook is safe to persist.
func (p Playbook) Problems() []string {
	var problems []string
	if !p.PersonalityType.Valid() {
		names := make([]string, len(PersonalityTypes))
		for i, t := range PersonalityTypes {
			names[i] = string(t)
		}
		problems = append(problems, fmt.Sprintf("personalityType %q must be one of: %s", p.PersonalityType, strings.Join(names, ", ")))
	}
	for name, v := range map[string]int{
		"savingHabit":              p.Scores.SavingHabit,
		"financialAwareness":       p.Scores.FinancialAwareness,
		"spendingTriggerIntensity": p.Scores.SpendingTriggerIntensity,
	} {
		if v < 0 || v > 100 {
			problems = append(problems, fmt.Sprintf("scores.%s must be an integer between 0 and 100, got %d", name, v))
		}
	}
	for i, week := range p.ThirtyDayPlan.Weeks() {
		if len(week) == 0 {
			problems = append(problems, fmt.Sprintf("thirtyDayPlan.week%d must contain at least one task", i+1))
			continue
		}
		for j, task := range week {
			if strings.TrimSpace(task) == "" {
				problems = append(problems, fmt.Sprintf("thirtyDayPlan.week%d[%d] must not be empty", i+1, j))
			}
		}
	}
	if strings.TrimSpace(p.DailyHabit) == "" {
		problems = append(problems, "dailyHabit must not be empty")
	}
	slices.Sort(problems)
	return problems
}

// IsWholeScore reports whether a decoded JSON number is an integer score.
func IsWholeScore(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0)
}
