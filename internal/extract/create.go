package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"moneycoach/internal/core"
	"moneycoach/internal/llm"
)

// canonicalGoals maps goal nouns to the name a goal is filed under. Longer
// phrases come first so "credit card" wins over "card".
var canonicalGoals = []struct {
	phrase string
	name   string
	kind   core.GoalType
}{
	{"emergency fund", "Emergency Fund", core.GoalSavings},
	{"rainy day", "Rainy Day Fund", core.GoalSavings},
	{"credit card", "Credit Card Debt", core.GoalDebt},
	{"student loan", "Student Loan", core.GoalDebt},
	{"car loan", "Car Loan", core.GoalDebt},
	{"medical bill", "Medical Bills", core.GoalDebt},
	{"mortgage", "Mortgage", core.GoalDebt},
	{"down payment", "House Down Payment", core.GoalSavings},
	{"nest egg", "Nest Egg", core.GoalSavings},
	{"retirement", "Retirement", core.GoalSavings},
	{"vacation", "Vacation", core.GoalSavings},
	{"holiday", "Holiday", core.GoalSavings},
	{"wedding", "Wedding", core.GoalSavings},
	{"tuition", "Tuition", core.GoalSavings},
	{"college", "College Fund", core.GoalSavings},
	{"emergency", "Emergency Fund", core.GoalSavings},
	{"house", "House", core.GoalSavings},
	{"home", "Home", core.GoalSavings},
	{"car", "Car", core.GoalSavings},
	{"laptop", "Laptop", core.GoalSavings},
	{"christmas", "Christmas", core.GoalSavings},
	{"trip", "Trip", core.GoalSavings},
	{"loan", "Loan", core.GoalDebt},
	{"debt", "Debt Payoff", core.GoalDebt},
}

var debtVocabulary = []string{
	"debt", "loan", "credit card", "pay off", "paying off", "payoff", "owe", "mortgage",
	"balance", "paid", "payment", "paying down", "pay down", "paid down", "paid off",
}

var (
	// Words that introduce a goal name: "for a trip to Japan", "called Rainy Day".
	nameLead = regexp.MustCompile(`\b(called|named|for|towards?)\s+`)

	nameFiller = map[string]bool{
		"a": true, "an": true, "my": true, "the": true, "our": true, "some": true, "new": true, "this": true,
	}
	nameStop = map[string]bool{
		"by": true, "in": true, "before": true, "until": true, "within": true, "of": true, "with": true,
		"and": true, "so": true, "that": true, "which": true, "because": true, "please": true, "each": true,
		"every": true, "per": true, "starting": true, "from": true, "i": true, "goal": true, "total": true,
		"target": true, "next": true, "this": true, "at": true, "on": true, "it": true, "me": true,
		"now": true, "them": true, "us": true,
	}
)

const maxNameWords = 5

// CreateRules extracts what it can from a create utterance without the model.
func CreateRules(message string, today core.Date) (goal core.NewGoal, complete bool) {
	lower := strings.ToLower(message)

	deadline, span := FindDeadline(lower, today)
	goal.Deadline = deadline

	rest := lower
	if span != "" {
		rest = strings.Replace(rest, span, " ", 1)
	}
	if amount, ok := FindAmount(rest); ok {
		goal.TargetAmount = amount
	}

	goal.Type = goalType(lower)
	goal.Name = goalName(lower, goal.Type)

	complete = goal.Name != "" && goal.TargetAmount.Cents > 0
	return goal, complete
}

func goalType(lower string) core.GoalType {
	padded := " " + lower + " "
	for _, term := range debtVocabulary {
		if strings.Contains(padded, " "+term) {
			return core.GoalDebt
		}
	}
	return core.GoalSavings
}

func goalName(lower string, kind core.GoalType) string {
	if name := capturedName(lower); name != "" {
		if kind == core.GoalDebt && !strings.Contains(strings.ToLower(name), "debt") && !strings.Contains(strings.ToLower(name), "loan") {
			for _, c := range canonicalGoals {
				if c.kind == core.GoalDebt && strings.Contains(strings.ToLower(name), c.phrase) {
					return c.name
				}
			}
		}
		return name
	}
	padded := " " + lower + " "
	for _, c := range canonicalGoals {
		if strings.Contains(padded, " "+c.phrase+" ") || strings.Contains(padded, " "+c.phrase+"s ") {
			if kind == core.GoalSavings && c.kind == core.GoalDebt && c.phrase == "debt" {
				continue
			}
			return c.name
		}
	}
	return ""
}

// capturedName returns the words after the first name lead, stopping at
// amounts, punctuation, or a stop word.
func capturedName(lower string) string {
	for _, loc := range nameLead.FindAllStringIndex(lower, -1) {
		words := strings.Fields(lower[loc[1]:])

		var picked []string
		for _, w := range words {
			clean := strings.Trim(w, `"'`)
			trailingStop := strings.ContainsAny(clean, ".,!?;:")
			clean = strings.TrimRight(clean, ".,!?;:")
			if clean == "" || strings.ContainsAny(clean, "$0123456789") {
				break
			}
			if len(picked) == 0 && nameFiller[clean] {
				continue
			}
			if nameStop[clean] {
				break
			}
			picked = append(picked, clean)
			if trailingStop || len(picked) == maxNameWords {
				break
			}
		}
		if len(picked) == 0 {
			continue
		}
		return titleCase(strings.Join(picked, " "))
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if i > 0 && (w == "to" || w == "of" || w == "for" || w == "and") {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

type createPayload struct {
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	TargetAmount float64 `json:"targetAmount"`
	Deadline     string  `json:"deadline"`
}

var createSchema = llm.Schema[createPayload]{
	Name:  "goal_create",
	Shape: `{"name": "short goal name", "type": "savings" | "debt", "targetAmount": 5000.00, "deadline": "YYYY-MM-DD" or ""}`,
	Validate: func(p createPayload) []string {
		var problems []string
		if strings.TrimSpace(p.Name) == "" {
			problems = append(problems, "name must be a non-empty string")
		}
		if p.Type != string(core.GoalSavings) && p.Type != string(core.GoalDebt) {
			problems = append(problems, `type must be "savings" or "debt"`)
		}
		if m, err := core.MoneyFromFloat(p.TargetAmount); err != nil || m.Validate() != nil {
			problems = append(problems, "targetAmount must be a positive number of dollars")
		}
		if p.Deadline != "" {
			if _, err := core.ParseDate(p.Deadline); err != nil {
				problems = append(problems, "deadline must be YYYY-MM-DD or an empty string")
			}
		}
		return problems
	},
}

// Create produces a validated NewGoal. Rules run first; the model is asked
// only when the name or amount is missing.
func (e *Extractor) Create(ctx context.Context, message string, today core.Date) (core.NewGoal, error) {
	goal, complete := CreateRules(message, today)
	if complete {
		return goal, goal.Validate()
	}
	if e.llm == nil {
		return core.NewGoal{}, fmt.Errorf("%w: goal name or amount missing", core.ErrExtractionFailed)
	}

	req := llm.Request{
		System: "You turn a person's description of a financial goal into structured data. " +
			"Today is " + today.String() + ". Use type \"debt\" for paying something off, otherwise \"savings\".",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: message}},
		Temperature: 0,
	}
	p, err := llm.Extract(ctx, e.llm, req, createSchema)
	if err != nil {
		return core.NewGoal{}, err
	}

	// Deterministic findings win over the model's.
	if goal.Name == "" {
		goal.Name = strings.TrimSpace(p.Name)
	}
	if goal.TargetAmount.Cents == 0 {
		goal.TargetAmount, _ = core.MoneyFromFloat(p.TargetAmount)
	}
	if goal.Type == core.GoalSavings && p.Type == string(core.GoalDebt) {
		goal.Type = core.GoalDebt
	}
	if goal.Deadline == nil && p.Deadline != "" {
		d, _ := core.ParseDate(p.Deadline)
		goal.Deadline = &d
	}
	return goal, goal.Validate()
}
