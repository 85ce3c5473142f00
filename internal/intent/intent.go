// Package intent classifies free-text goal utterances.
//
// Classification is a deterministic keyword scan. The model provider is never
// consulted here so that a destructive action is always decided by an
// auditable rule.
package intent

import (
	"fmt"
	"regexp"
	"strings"
)

// Intent is the action a user utterance asks for.
//
// Priority when several vocabularies match: Delete > UpdateProgress > Create > Unknown.
type Intent int

const (
	Unknown Intent = iota
	Create
	Delete
	UpdateProgress
)

func (i Intent) String() string {
	switch i {
	case Create:
		return "create"
	case Delete:
		return "delete"
	case UpdateProgress:
		return "update_progress"
	default:
		return "unknown"
	}
}

func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Intent) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Parse maps a name produced by String back to its Intent.
func Parse(s string) (Intent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return Create, nil
	case "delete":
		return Delete, nil
	case "update_progress", "progress":
		return UpdateProgress, nil
	case "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown intent %q", s)
}

// Context carries the user state the classifier needs.
type Context struct {
	HasGoals bool
}

// Result is a classification together with the vocabulary terms that decided it.
type Result struct {
	Intent  Intent
	Matched []string
}

var (
	deleteVocabulary = []string{
		"delete", "remove", "cancel", "erase", "discard", "scrap", "trash",
		"get rid of", "drop", "abandon", "stop tracking", "forget about", "forget my",
	}

	progressVocabulary = []string{
		"saved", "added", "adding", "deposited", "deposit", "contributed", "contribute",
		"put in", "put away", "put aside", "set aside", "stashed", "transferred", "moved",
		"paid", "paid off", "paid down", "pay down", "made a payment", "progress",
		"update", "more toward", "more towards",
	}

	goalNouns = []string{
		"goal", "save", "saving", "savings", "fund", "emergency", "rainy day",
		"vacation", "holiday", "trip", "travel", "house", "home", "down payment",
		"car", "wedding", "retirement", "college", "tuition", "education",
		"debt", "loan", "credit card", "mortgage", "pay off", "payoff", "laptop",
		"baby", "christmas", "gift", "investment", "nest egg",
	}

	// Phrases that look like progress but describe a fresh goal.
	progressExclusions = []string{"new goal", "create", "start a", "set up", "want to save", "want to pay"}

	progressAdd = regexp.MustCompile(`\b(add|put|threw|throw)\s+(another\s+)?\$?\d`)

	amountShape = regexp.MustCompile(`\$\s*\d|\b\d[\d,]*(\.\d+)?\s*(k|dollars?|bucks|usd)\b|\b\d{2,}[\d,]*(\.\d+)?\b`)

	nonWord = regexp.MustCompile(`[^a-z0-9$.,'\s]+`)
	spaces  = regexp.MustCompile(`\s+`)
)

// Classify maps an utterance to an Intent.
func Classify(message string, c Context) Result {
	text := normalise(message)
	if text == "" {
		return Result{Intent: Unknown}
	}
	padded := " " + text + " "

	if hits := matchAll(padded, deleteVocabulary); len(hits) > 0 {
		return Result{Intent: Delete, Matched: hits}
	}

	shaped, shapeHits := goalShape(text, padded)

	progress := matchAll(padded, progressVocabulary)
	if m := progressAdd.FindStringSubmatch(text); m != nil {
		progress = append(progress, m[1])
	}
	if len(progress) > 0 && len(matchAll(padded, progressExclusions)) == 0 {
		if !c.HasGoals && shaped {
			return Result{Intent: Create, Matched: shapeHits}
		}
		return Result{Intent: UpdateProgress, Matched: progress}
	}

	if shaped {
		return Result{Intent: Create, Matched: shapeHits}
	}
	return Result{Intent: Unknown}
}

// HasAmount reports whether the message mentions a money amount.
func HasAmount(message string) bool {
	return amountShape.MatchString(normalise(message))
}

func goalShape(text, padded string) (bool, []string) {
	hits := matchAll(padded, goalNouns)
	if m := amountShape.FindString(text); m != "" {
		hits = append(hits, strings.TrimSpace(m))
	}
	return len(hits) > 0, hits
}

func normalise(message string) string {
	s := strings.ToLower(message)
	s = nonWord.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// matchAll returns every term that appears in padded on word boundaries.
func matchAll(padded string, terms []string) []string {
	var hits []string
	for _, term := range terms {
		if containsWord(padded, term) {
			hits = append(hits, term)
		}
	}
	return hits
}

func containsWord(padded, term string) bool {
	idx := 0
	for {
		i := strings.Index(padded[idx:], term)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(term)
		if boundary(padded, start-1) && boundary(padded, end) {
			return true
		}
		idx = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '\'')
}
