package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"moneycoach/internal/core"
	"moneycoach/internal/llm"
)

// Progress is the payload of an update-progress utterance.
type Progress struct {
	Amount     core.Money
	GoalHint   string
	PreferType core.GoalType
}

var (
	hintLead = regexp.MustCompile(`\b(?:for|to|toward|towards|into|on|in|off|of)\s+`)
	hintStop = map[string]bool{
		"today": true, "yesterday": true, "this": true, "last": true, "week": true, "month": true,
		"already": true, "so": true, "now": true, "and": true, "from": true, "because": true,
		"by": true, "with": true, "after": true, "which": true, "paycheck": true, "bonus": true,
		"put": true, "save": true, "pay": true, "add": true, "get": true, "make": true, "have": true,
		"keep": true, "throw": true, "move": true, "transfer": true, "be": true, "it": true,
	}
	hintLeadFiller = map[string]bool{"a": true, "an": true, "my": true, "the": true, "our": true}
)

// ProgressRules extracts the amount and an optional goal hint.
func ProgressRules(message string) (Progress, bool) {
	lower := strings.ToLower(message)
	p := Progress{PreferType: goalType(lower)}

	match, ok := findAmount(lower)
	if ok {
		p.Amount = match.money
	}
	p.GoalHint = progressHint(lower)
	return p, ok
}

func progressHint(lower string) string {
	for _, loc := range hintLead.FindAllStringIndex(lower, -1) {
		var picked []string
		for _, w := range strings.Fields(lower[loc[1]:]) {
			clean := strings.Trim(w, `"'`)
			stop := strings.ContainsAny(clean, ".,!?;:")
			clean = strings.TrimRight(clean, ".,!?;:")
			if clean == "" || strings.ContainsAny(clean, "$0123456789") || hintStop[clean] {
				break
			}
			if len(picked) == 0 && hintLeadFiller[clean] {
				continue
			}
			picked = append(picked, clean)
			if stop || len(picked) == maxNameWords {
				break
			}
		}
		if len(significantTokens(strings.Join(picked, " "))) > 0 {
			return strings.Join(picked, " ")
		}
	}
	return ""
}

type progressPayload struct {
	Amount   float64 `json:"amount"`
	GoalHint string  `json:"goalHint"`
}

var progressSchema = llm.Schema[progressPayload]{
	Name:  "goal_progress",
	Shape: `{"amount": 200.00, "goalHint": "words naming the goal, or empty string"}`,
	Validate: func(p progressPayload) []string {
		if m, err := core.MoneyFromFloat(p.Amount); err != nil || m.Validate() != nil {
			return []string{"amount must be a positive number of dollars"}
		}
		return nil
	},
}

// Progress extracts an amount and goal hint. The model is asked only when no
// amount can be found by rule.
func (e *Extractor) Progress(ctx context.Context, message string) (Progress, error) {
	p, ok := ProgressRules(message)
	if ok {
		return p, nil
	}
	if e.llm == nil {
		return Progress{}, fmt.Errorf("%w: no amount in message", core.ErrExtractionFailed)
	}

	req := llm.Request{
		System:      "You read a message about money a person put toward a savings or debt goal and report the amount.",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: message}},
		Temperature: 0,
	}
	out, err := llm.Extract(ctx, e.llm, req, progressSchema)
	if err != nil {
		return Progress{}, err
	}
	p.Amount, _ = core.MoneyFromFloat(out.Amount)
	if p.GoalHint == "" {
		p.GoalHint = strings.TrimSpace(out.GoalHint)
	}
	return p, nil
}
