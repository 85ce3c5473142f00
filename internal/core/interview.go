package core

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type QuestionKind string

const (
	QuestionChoice      QuestionKind = "multiple_choice"
	QuestionMultiSelect QuestionKind = "multi_select"
	QuestionRange       QuestionKind = "range"
	QuestionFreeText    QuestionKind = "free_text"
)

const maxFreeTextLength = 1000

type (
	Question struct {
		ID       string       `json:"id"`
		Prompt   string       `json:"prompt"`
		Kind     QuestionKind `json:"kind"`
		Options  []string     `json:"options,omitempty"`
		Min      float64      `json:"min,omitempty"`
		Max      float64      `json:"max,omitempty"`
		Required bool         `json:"required"`
	}

	// Answer holds the value matching its question's kind; other fields stay empty.
	Answer struct {
		QuestionID string   `json:"questionId"`
		Choice     string   `json:"choice,omitempty"`
		Choices    []string `json:"choices,omitempty"`
		Number     *float64 `json:"number,omitempty"`
		Text       string   `json:"text,omitempty"`
	}

	Interview struct {
		ID          string    `json:"id"`
		UserID      string    `json:"userId"`
		Responses   []Answer  `json:"responses"`
		CompletedAt time.Time `json:"completedAt"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

// InterviewQuestions is the fixed, ordered money-personality interview.
var InterviewQuestions = []Question{
	{
		ID:       "money_feeling",
		Prompt:   "When you check your bank balance, what do you usually feel?",
		Kind:     QuestionChoice,
		Options:  []string{"calm", "anxious", "indifferent", "excited", "I avoid checking"},
		Required: true,
	},
	{
		ID:       "spending_triggers",
		Prompt:   "Which situations make you spend more than you planned?",
		Kind:     QuestionMultiSelect,
		Options:  []string{"stress", "boredom", "social pressure", "sales and deals", "celebrations", "late-night browsing", "none of these"},
		Required: true,
	},
	{
		ID:       "savings_rate",
		Prompt:   "Roughly what percent of your income do you save each month?",
		Kind:     QuestionRange,
		Min:      0,
		Max:      100,
		Required: true,
	},
	{
		ID:       "budget_tracking",
		Prompt:   "How closely do you track where your money goes?",
		Kind:     QuestionChoice,
		Options:  []string{"every transaction", "weekly review", "monthly glance", "rarely", "never"},
		Required: true,
	},
	{
		ID:       "emergency_months",
		Prompt:   "How many months of expenses could you cover if your income stopped?",
		Kind:     QuestionRange,
		Min:      0,
		Max:      24,
		Required: true,
	},
	{
		ID:       "money_priorities",
		Prompt:   "What matters most to you right now?",
		Kind:     QuestionMultiSelect,
		Options:  []string{"paying off debt", "building savings", "investing", "enjoying life now", "helping family", "buying a home"},
		Required: true,
	},
	{
		ID:       "windfall",
		Prompt:   "You receive an unexpected $1,000. What do you do first?",
		Kind:     QuestionChoice,
		Options:  []string{"save it", "pay down debt", "invest it", "treat myself", "give some away"},
		Required: true,
	},
	{
		ID:       "money_story",
		Prompt:   "In a sentence or two, what would you most like to change about your money life?",
		Kind:     QuestionFreeText,
		Required: false,
	},
}

// QuestionByID looks up an interview question.
func QuestionByID(id string) (Question, bool) {
	for _, q := range InterviewQuestions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// ValidateAnswers checks a submission against InterviewQuestions and returns
// the answers in question order.
func ValidateAnswers(answers []Answer) ([]Answer, error) {
	byID := make(map[string]Answer, len(answers))
	for _, a := range answers {
		q, ok := QuestionByID(a.QuestionID)
		if !ok {
			return nil, Invalid("responses", fmt.Sprintf("unknown question %q", a.QuestionID))
		}
		if _, dup := byID[a.QuestionID]; dup {
			return nil, Invalid(q.ID, "answered more than once")
		}
		if err := validateAnswer(q, a); err != nil {
			return nil, err
		}
		byID[a.QuestionID] = a
	}

	ordered := make([]Answer, 0, len(byID))
	for _, q := range InterviewQuestions {
		a, ok := byID[q.ID]
		if !ok {
			if q.Required {
				return nil, Invalid(q.ID, "answer required")
			}
			continue
		}
		ordered = append(ordered, a)
	}
	return ordered, nil
}

func validateAnswer(q Question, a Answer) error {
	switch q.Kind {
	case QuestionChoice:
		if !slices.Contains(q.Options, a.Choice) {
			return Invalid(q.ID, fmt.Sprintf("choice must be one of: %s", strings.Join(q.Options, ", ")))
		}
	case QuestionMultiSelect:
		if len(a.Choices) == 0 {
			return Invalid(q.ID, "select at least one option")
		}
		seen := map[string]bool{}
		for _, c := range a.Choices {
			if !slices.Contains(q.Options, c) {
				return Invalid(q.ID, fmt.Sprintf("unknown option %q", c))
			}
			if seen[c] {
				return Invalid(q.ID, fmt.Sprintf("option %q selected twice", c))
			}
			seen[c] = true
		}
	case QuestionRange:
		if a.Number == nil {
			return Invalid(q.ID, "number required")
		}
		if *a.Number < q.Min || *a.Number > q.Max {
			return Invalid(q.ID, fmt.Sprintf("must be between %g and %g", q.Min, q.Max))
		}
	case QuestionFreeText:
		text := strings.TrimSpace(a.Text)
		if text == "" && q.Required {
			return Invalid(q.ID, "answer required")
		}
		if len(text) > maxFreeTextLength {
			return Invalid(q.ID, fmt.Sprintf("too long (max %d characters)", maxFreeTextLength))
		}
	}
	return nil
}

// Describe renders an answer as "prompt: value" for prompts and exports.
func (a Answer) Describe() string {
	q, _ := QuestionByID(a.QuestionID)
	var value string
	switch {
	case a.Choice != "":
		value = a.Choice
	case len(a.Choices) > 0:
		value = strings.Join(a.Choices, ", ")
	case a.Number != nil:
		value = fmt.Sprintf("%g", *a.Number)
	default:
		value = strings.TrimSpace(a.Text)
	}
	return q.Prompt + " " + value
}
