package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneycoach/internal/cache"
	"moneycoach/internal/core"
	"moneycoach/internal/extract"
	"moneycoach/internal/intent"
	"moneycoach/internal/log"
	"moneycoach/internal/metrics"
)

const maxMessageLength = 2000

// Reply is the conversational answer to one utterance. At most one of the
// mutation flags is set.
type Reply struct {
	Response        string        `json:"response"`
	Intent          intent.Intent `json:"intent"`
	GoalCreated     bool          `json:"goalCreated"`
	GoalDeleted     bool          `json:"goalDeleted"`
	ProgressUpdated bool          `json:"progressUpdated"`
	Goal            *core.Goal    `json:"goal,omitempty"`
	Candidates      []string      `json:"candidates,omitempty"`

	// Invalidated lists the views the mutation made stale.
	Invalidated []string `json:"-"`
}

func (r Reply) mutated() bool {
	return r.GoalCreated || r.GoalDeleted || r.ProgressUpdated
}

// GoalService runs goal operations, both from structured requests and from
// free-text utterances.
type GoalService struct {
	store     GoalStore
	extractor *extract.Extractor
	changes   *Changes
	logger    *log.Logger
	audit     *log.StructuredLogger
	now       func() time.Time
}

func NewGoalService(store GoalStore, extractor *extract.Extractor, changes *Changes, logger *log.Logger) *GoalService {
	if logger == nil {
		logger = log.Nop()
	}
	return &GoalService{
		store:     store,
		extractor: extractor,
		changes:   changes,
		logger:    logger.WithComponent(log.ComponentGoals),
		audit:     log.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

func (s *GoalService) List(ctx context.Context, userID string) ([]core.Goal, error) {
	return s.store.ListGoals(ctx, userID)
}

// Create stores a structured goal. The deadline must not lie before the
// user's today.
func (s *GoalService) Create(ctx context.Context, userID string, n core.NewGoal, loc *time.Location) (core.Goal, error) {
	return s.create(ctx, userID, n, core.DateOf(s.now(), loc))
}

func (s *GoalService) create(ctx context.Context, userID string, n core.NewGoal, today core.Date) (core.Goal, error) {
	if err := n.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := n.ValidateDeadline(today); err != nil {
		return core.Goal{}, err
	}
	g, err := s.store.CreateGoal(ctx, userID, n)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}
	s.mutated(ctx, log.OpCreate, userID, g, g.TargetAmount)
	return g, nil
}

// AddProgress adds a positive amount to a goal.
func (s *GoalService) AddProgress(ctx context.Context, userID, goalID string, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, core.Invalid("amount", err.Error())
	}
	g, err := s.store.AddProgress(ctx, userID, goalID, amount)
	if err != nil {
		return core.Goal{}, fmt.Errorf("add progress: %w", err)
	}
	s.mutated(ctx, log.OpProgress, userID, g, amount)
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID string) (core.Goal, error) {
	g, err := s.store.DeleteGoal(ctx, userID, goalID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("delete goal: %w", err)
	}
	s.mutated(ctx, log.OpDelete, userID, g, g.CurrentAmount)
	return g, nil
}

func (s *GoalService) mutated(ctx context.Context, op, userID string, g core.Goal, amount core.Money) {
	metrics.GoalMutations.WithLabelValues(op).Inc()
	s.audit.LogGoalMutation(ctx, op, userID, g.ID, g.Name, amount.Cents)
	s.changes.Notify(ctx, userID, cache.ViewGoals)
}

// Assist answers an utterance. expected is the intent implied by the
// endpoint; intent.Unknown lets the classifier decide alone.
//
// A delete is only carried out when both the endpoint and the classifier
// agree on it. Ambiguity, failed extraction and unknown intents come back as
// replies without touching the store. Only provider outages and storage
// failures are returned as errors.
func (s *GoalService) Assist(ctx context.Context, userID, message string, expected intent.Intent, loc *time.Location) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, core.Invalid("message", "cannot be empty")
	}
	if len(message) > maxMessageLength {
		return Reply{}, core.Invalid("message", fmt.Sprintf("too long (max %d characters)", maxMessageLength))
	}

	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return Reply{}, fmt.Errorf("list goals: %w", err)
	}

	res := intent.Classify(message, intent.Context{HasGoals: len(goals) > 0})
	s.logger.DebugContext(ctx, "Utterance classified",
		log.FieldUserID, userID, log.FieldIntent, res.Intent.String(), "matched", res.Matched)

	reply, err := s.route(ctx, userID, message, expected, res.Intent, goals, core.DateOf(s.now(), loc))
	if err != nil {
		metrics.AssistantReplies.WithLabelValues(res.Intent.String(), "failed").Inc()
		return Reply{}, err
	}

	result := "clarified"
	if reply.mutated() {
		result = "applied"
		reply.Invalidated = []string{cache.ViewGoals}
	}
	metrics.AssistantReplies.WithLabelValues(reply.Intent.String(), result).Inc()
	return reply, nil
}

func (s *GoalService) route(ctx context.Context, userID, message string, expected, classified intent.Intent, goals []core.Goal, today core.Date) (Reply, error) {
	switch {
	case classified == intent.Delete && expected != intent.Delete && expected != intent.Unknown:
		return Reply{
			Intent:   intent.Delete,
			Response: "It sounds like you want to delete a goal. Please confirm by asking to delete it by name, for example \"Delete my vacation goal\".",
		}, nil
	case expected == intent.Delete && classified != intent.Delete:
		return Reply{
			Intent:   classified,
			Response: "Tell me which goal to delete, for example \"Delete my vacation goal\".",
		}, nil
	case expected == intent.UpdateProgress && classified == intent.Create:
		classified = intent.UpdateProgress
	case expected == intent.Create && classified == intent.UpdateProgress:
		return Reply{
			Intent:   intent.UpdateProgress,
			Response: "It sounds like you're adding money to an existing goal. Log it as progress instead, for example \"I saved $200 for my emergency fund\".",
		}, nil
	}

	switch classified {
	case intent.Create:
		return s.assistCreate(ctx, userID, message, today)
	case intent.Delete:
		return s.assistDelete(ctx, userID, message, goals)
	case intent.UpdateProgress:
		return s.assistProgress(ctx, userID, message, goals)
	default:
		return Reply{Intent: intent.Unknown, Response: notUnderstood}, nil
	}
}

const notUnderstood = "Sorry, I didn't understand that. I can help you:\n" +
	"- create a goal (\"Save $5,000 for a vacation by June\")\n" +
	"- log progress (\"I saved $200 for my emergency fund\")\n" +
	"- delete a goal (\"Delete my vacation goal\")"

func (s *GoalService) assistCreate(ctx context.Context, userID, message string, today core.Date) (Reply, error) {
	reply := Reply{Intent: intent.Create}

	n, err := s.extractor.Create(ctx, message, today)
	if err != nil {
		if text, ok := clarification(err); ok {
			reply.Response = text
			return reply, nil
		}
		return Reply{}, err
	}

	g, err := s.create(ctx, userID, n, today)
	if err != nil {
		if text, ok := clarification(err); ok {
			reply.Response = text
			return reply, nil
		}
		return Reply{}, err
	}

	reply.GoalCreated = true
	reply.Goal = &g
	reply.Response = fmt.Sprintf("Created your %s goal %q with a target of %s", g.Type, g.Name, g.TargetAmount)
	if g.Deadline != nil {
		reply.Response += " by " + g.Deadline.Format("January 2, 2006")
	}
	reply.Response += "."
	return reply, nil
}

func (s *GoalService) assistDelete(ctx context.Context, userID, message string, goals []core.Goal) (Reply, error) {
	reply := Reply{Intent: intent.Delete}
	if len(goals) == 0 {
		reply.Response = "You don't have any goals to delete."
		return reply, nil
	}

	target, err := extract.ResolveGoal(extract.DeleteFragment(message), goals)
	if err != nil {
		var amb *core.AmbiguityError
		if errors.As(err, &amb) {
			if len(amb.Candidates) == 0 {
				reply.Candidates = goalNames(goals)
				reply.Response = "I couldn't find a goal matching that. Your goals are: " + strings.Join(reply.Candidates, ", ") + ". Which one should I delete?"
				return reply, nil
			}
			reply.Candidates = amb.Candidates
			reply.Response = "Which goal do you want to delete: " + strings.Join(amb.Candidates, ", ") + "?"
			return reply, nil
		}
		return Reply{}, err
	}

	g, err := s.Delete(ctx, userID, target.ID)
	if errors.Is(err, core.ErrNotFound) {
		reply.Response = fmt.Sprintf("The goal %q no longer exists.", target.Name)
		return reply, nil
	}
	if err != nil {
		return Reply{}, err
	}

	reply.GoalDeleted = true
	reply.Goal = &g
	reply.Response = fmt.Sprintf("Deleted your goal %q.", g.Name)
	return reply, nil
}

func (s *GoalService) assistProgress(ctx context.Context, userID, message string, goals []core.Goal) (Reply, error) {
	reply := Reply{Intent: intent.UpdateProgress}
	if len(goals) == 0 {
		reply.Response = "You don't have any goals yet. Create one first, for example \"Save $1,000 for an emergency fund\"."
		return reply, nil
	}

	p, err := s.extractor.Progress(ctx, message)
	if err != nil {
		if errors.Is(err, core.ErrExtractionFailed) {
			reply.Response = progressNotUnderstood
			return reply, nil
		}
		if text, ok := clarification(err); ok {
			reply.Response = text
			return reply, nil
		}
		return Reply{}, err
	}

	target, err := extract.ResolveProgressTarget(p, goals)
	if err != nil {
		var amb *core.AmbiguityError
		if errors.As(err, &amb) {
			reply.Candidates = amb.Candidates
			reply.Response = fmt.Sprintf("Which goal should I add %s to: %s?", p.Amount, strings.Join(amb.Candidates, ", "))
			return reply, nil
		}
		return Reply{}, err
	}

	g, err := s.AddProgress(ctx, userID, target.ID, p.Amount)
	if errors.Is(err, core.ErrNotFound) {
		reply.Response = fmt.Sprintf("The goal %q no longer exists.", target.Name)
		return reply, nil
	}
	if err != nil {
		if text, ok := clarification(err); ok {
			reply.Response = text
			return reply, nil
		}
		return Reply{}, err
	}

	reply.ProgressUpdated = true
	reply.Goal = &g
	verb := "Added"
	if g.Type == core.GoalDebt {
		verb = "Recorded a payment of"
	}
	reply.Response = fmt.Sprintf("%s %s to %q. You're now at %s of %s (%d%%).",
		verb, p.Amount, g.Name, g.CurrentAmount, g.TargetAmount, g.PercentComplete())
	if !g.IsOpen() {
		reply.Response += " You've reached your target!"
	}
	return reply, nil
}

const (
	createNotUnderstood = "I couldn't work out the details. Please include the goal's name and an amount, for example \"Save $2,000 for a new laptop by December\", " +
		"or fill in the goal form to add it yourself."
	progressNotUnderstood = "I couldn't work out how much to add. Please include the amount, for example \"I saved $200 for my emergency fund\", " +
		"or use the \"Add money\" button on the goal."
)

// clarification turns a recoverable error into a reply text.
func clarification(err error) (string, bool) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return fmt.Sprintf("I couldn't use that: the %s %s.", fieldLabel(ve.Field), ve.Reason), true
	case errors.Is(err, core.ErrExtractionFailed):
		return createNotUnderstood, true
	case errors.Is(err, core.ErrClassificationAmbiguous):
		return "I'm not sure which goal you mean. Please name it.", true
	}
	return "", false
}

func fieldLabel(field string) string {
	switch field {
	case "targetAmount":
		return "target amount"
	case "amount":
		return "amount"
	default:
		return field
	}
}

func goalNames(goals []core.Goal) []string {
	seen := map[string]bool{}
	var names []string
	for _, g := range goals {
		if !seen[strings.ToLower(g.Name)] {
			seen[strings.ToLower(g.Name)] = true
			names = append(names, g.Name)
		}
	}
	return names
}
