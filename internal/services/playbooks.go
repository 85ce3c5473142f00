package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
	"moneycoach/internal/llm"
	"moneycoach/internal/log"
	"moneycoach/internal/metrics"
)

// PlaybookResult pairs a stored interview with the playbook built from it.
type PlaybookResult struct {
	Interview core.Interview `json:"interview"`
	Playbook  core.Playbook  `json:"playbook"`
}

type PlaybookService struct {
	store   PlaybookStore
	llm     *llm.Client
	changes *Changes
	logger  *log.Logger
	now     func() time.Time
}

func NewPlaybookService(store PlaybookStore, client *llm.Client, changes *Changes, logger *log.Logger) *PlaybookService {
	if logger == nil {
		logger = log.Nop()
	}
	return &PlaybookService{
		store:   store,
		llm:     client,
		changes: changes,
		logger:  logger.WithComponent(log.ComponentPlaybook),
		now:     time.Now,
	}
}

type playbookPayload struct {
	PersonalityType string `json:"personalityType"`
	Scores          struct {
		SavingHabit              float64 `json:"savingHabit"`
		FinancialAwareness       float64 `json:"financialAwareness"`
		SpendingTriggerIntensity float64 `json:"spendingTriggerIntensity"`
	} `json:"scores"`
	ThirtyDayPlan core.ThirtyDayPlan `json:"thirtyDayPlan"`
	DailyHabit    string             `json:"dailyHabit"`
}

func (p playbookPayload) playbook() core.Playbook {
	return core.Playbook{
		PersonalityType: core.PersonalityType(strings.TrimSpace(p.PersonalityType)),
		Scores: core.PlaybookScores{
			SavingHabit:              int(p.Scores.SavingHabit),
			FinancialAwareness:       int(p.Scores.FinancialAwareness),
			SpendingTriggerIntensity: int(p.Scores.SpendingTriggerIntensity),
		},
		ThirtyDayPlan: p.ThirtyDayPlan,
		DailyHabit:    strings.TrimSpace(p.DailyHabit),
	}
}

var playbookSchema = llm.Schema[playbookPayload]{
	Name: "playbook",
	Shape: `{"personalityType": "security_builder", ` +
		`"scores": {"savingHabit": 0-100, "financialAwareness": 0-100, "spendingTriggerIntensity": 0-100}, ` +
		`"thirtyDayPlan": {"week1": ["task"], "week2": ["task"], "week3": ["task"], "week4": ["task"]}, ` +
		`"dailyHabit": "one small daily action"}`,
	Validate: func(p playbookPayload) []string {
		problems := p.playbook().Problems()
		for name, v := range map[string]float64{
			"savingHabit":              p.Scores.SavingHabit,
			"financialAwareness":       p.Scores.FinancialAwareness,
			"spendingTriggerIntensity": p.Scores.SpendingTriggerIntensity,
		} {
			if !core.IsWholeScore(v) {
				problems = append(problems, fmt.Sprintf("scores.%s must be a whole number, got %g", name, v))
			}
		}
		return problems
	},
}

// Generate validates an interview, asks the model for a playbook and stores
// both together. Nothing is stored unless the playbook passes validation.
func (s *PlaybookService) Generate(ctx context.Context, userID string, answers []core.Answer, completedAt time.Time) (PlaybookResult, error) {
	ordered, err := core.ValidateAnswers(answers)
	if err != nil {
		return PlaybookResult{}, err
	}
	if s.llm == nil {
		return PlaybookResult{}, fmt.Errorf("generate playbook: %w: no model provider configured", core.ErrUpstreamProvider)
	}

	var interview strings.Builder
	for _, a := range ordered {
		interview.WriteString("- " + a.Describe() + "\n")
	}
	names := make([]string, len(core.PersonalityTypes))
	for i, t := range core.PersonalityTypes {
		names[i] = string(t)
	}

	req := llm.Request{
		System: "You are a financial coach. From a money-personality interview, build a personal 30-day money reset playbook. " +
			"personalityType must be one of: " + strings.Join(names, ", ") + ". " +
			"Scores are whole numbers from 0 to 100. Each of the four weeks has at least one concrete task.",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Interview answers:\n" + interview.String()}},
		Temperature: 0.4,
	}
	out, err := llm.Extract(ctx, s.llm, req, playbookSchema)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, core.ErrExtractionFailed) {
			outcome = "invalid"
		}
		metrics.PlaybooksGenerated.WithLabelValues(outcome).Inc()
		return PlaybookResult{}, fmt.Errorf("generate playbook: %w", err)
	}

	if completedAt.IsZero() {
		completedAt = s.now()
	}
	iv, pb, err := s.store.SavePlaybook(ctx,
		core.Interview{UserID: userID, Responses: ordered, CompletedAt: completedAt.UTC()},
		out.playbook())
	if err != nil {
		return PlaybookResult{}, fmt.Errorf("save playbook: %w", err)
	}

	metrics.PlaybooksGenerated.WithLabelValues("ok").Inc()
	s.logger.InfoContext(ctx, "Playbook generated",
		log.FieldUserID, userID, "personality_type", string(pb.PersonalityType))
	s.changes.Notify(ctx, userID, cache.ViewPlaybook, cache.ViewCheckIn)
	return PlaybookResult{Interview: iv, Playbook: pb}, nil
}

// Latest returns the newest playbook. found is false when the user has not
// completed an interview yet.
func (s *PlaybookService) Latest(ctx context.Context, userID string) (res PlaybookResult, found bool, err error) {
	iv, pb, err := s.store.LatestPlaybook(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return PlaybookResult{}, false, nil
	}
	if err != nil {
		return PlaybookResult{}, false, err
	}
	return PlaybookResult{Interview: iv, Playbook: pb}, true, nil
}
