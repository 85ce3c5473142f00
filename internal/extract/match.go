package extract

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"moneycoach/internal/core"
)

var (
	deleteVerbs = regexp.MustCompile(`\b(delete|remove|cancel|erase|discard|scrap|trash|drop|abandon|get rid of|stop tracking|forget about|forget)\b`)

	fillerWords = map[string]bool{
		"please": true, "can": true, "could": true, "would": true, "you": true, "i": true, "want": true,
		"to": true, "my": true, "the": true, "a": true, "an": true, "goal": true, "goals": true,
		"this": true, "that": true, "it": true, "for": true, "me": true, "our": true, "just": true,
		"now": true, "all": true, "of": true, "one": true, "toward": true, "towards": true, "into": true,
		"on": true, "in": true, "more": true, "some": true, "and": true, "like": true, "d": true, "'d": true,
	}

	// genericWords appear in many goal names and never identify one alone.
	genericWords = map[string]bool{
		"fund": true, "funds": true, "saving": true, "savings": true, "debt": true, "debts": true,
		"loan": true, "loans": true, "new": true, "money": true, "account": true, "plan": true,
	}

	tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)
)

// DeleteFragment strips deletion verbs and filler from an utterance, leaving
// the words that name the goal.
func DeleteFragment(message string) string {
	lower := strings.ToLower(message)
	lower = deleteVerbs.ReplaceAllString(lower, " ")
	return strings.Join(significantTokens(lower), " ")
}

func significantTokens(s string) []string {
	var out []string
	for _, t := range tokenSplit.Split(strings.ToLower(s), -1) {
		if t == "" || fillerWords[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// byRecency orders goals newest first. Ties keep the store order.
func byRecency(goals []core.Goal) []core.Goal {
	sorted := slices.Clone(goals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}

// ResolveGoal finds the goal a fragment refers to.
//
// Names are compared case-insensitively by substring in either direction,
// then by shared words. Generic words such as "fund" or "debt" only count
// as part of a longer match or an exact name: goals they alone match are
// returned as candidates, and a fragment made of a bare goal type picks
// among goals of that type. Exactly one distinct name must match;
// when several goals share that name the most recent wins. Anything else is
// an *core.AmbiguityError listing the candidates, if any.
func ResolveGoal(fragment string, goals []core.Goal) (core.Goal, error) {
	tokens := significantTokens(fragment)
	frag := strings.Join(tokens, " ")
	sorted := byRecency(goals)

	if frag == "" {
		return core.Goal{}, &core.AmbiguityError{Fragment: fragment, Candidates: distinctNames(sorted)}
	}

	specific := specificTokens(tokens)
	var hits, generic []core.Goal
	for _, g := range sorted {
		name := strings.Join(significantTokens(g.Name), " ")
		if name == "" {
			continue
		}
		switch {
		case name == frag:
			hits = append(hits, g)
		case !strings.Contains(" "+name+" ", " "+frag+" ") && !strings.Contains(" "+frag+" ", " "+name+" "):
		case len(specific) == 0:
			generic = append(generic, g)
		default:
			hits = append(hits, g)
		}
	}
	if g, done, err := pick(fragment, frag, hits); done {
		return g, err
	}

	best := 0
	hits = nil
	for _, g := range sorted {
		score := overlap(specific, significantTokens(g.Name))
		switch {
		case score == 0:
		case score > best:
			best = score
			hits = append(hits[:0], g)
		case score == best:
			hits = append(hits, g)
		}
	}
	if g, done, err := pick(fragment, frag, hits); done {
		return g, err
	}

	// "delete my debt goal" falls back to the goal type.
	if len(tokens) == 1 {
		for _, t := range []core.GoalType{core.GoalDebt, core.GoalSavings} {
			if tokens[0] != string(t) {
				continue
			}
			var typed []core.Goal
			for _, g := range sorted {
				if g.Type == t {
					typed = append(typed, g)
				}
			}
			if g, done, err := pick(fragment, frag, typed); done {
				return g, err
			}
		}
	}

	// Goals sharing only a generic word are offered, never chosen.
	return core.Goal{}, &core.AmbiguityError{Fragment: fragment, Candidates: distinctNames(generic)}
}

func specificTokens(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if !genericWords[t] {
			out = append(out, t)
		}
	}
	return out
}

// pick resolves a recency-ordered hit list. done is false when hits is empty.
func pick(fragment, normalised string, hits []core.Goal) (core.Goal, bool, error) {
	if len(hits) == 0 {
		return core.Goal{}, false, nil
	}
	names := distinctNames(hits)
	if len(names) == 1 {
		return hits[0], true, nil
	}
	// Several names contain the fragment; an exact name match still decides.
	for _, g := range hits {
		if strings.Join(significantTokens(g.Name), " ") == normalised {
			return g, true, nil
		}
	}
	return core.Goal{}, true, &core.AmbiguityError{Fragment: fragment, Candidates: names}
}

func distinctNames(goals []core.Goal) []string {
	seen := map[string]bool{}
	var names []string
	for _, g := range goals {
		key := strings.ToLower(strings.TrimSpace(g.Name))
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, g.Name)
	}
	return names
}

func overlap(a, b []string) int {
	n := 0
	for _, t := range a {
		if slices.Contains(b, t) || slices.Contains(b, strings.TrimSuffix(t, "s")) || slices.Contains(b, t+"s") {
			n++
		}
	}
	return n
}

// ResolveProgressTarget picks the goal a progress update applies to. A hint
// that names a goal decides; a hint matching several distinct goals is
// ambiguous. Otherwise the most recent open goal of the preferred type is
// used, then any open goal, then the most recent goal.
func ResolveProgressTarget(p Progress, goals []core.Goal) (core.Goal, error) {
	if len(goals) == 0 {
		return core.Goal{}, fmt.Errorf("no goals to update: %w", core.ErrNotFound)
	}

	if strings.TrimSpace(p.GoalHint) != "" {
		g, err := ResolveGoal(p.GoalHint, goals)
		if err == nil {
			return g, nil
		}
		var amb *core.AmbiguityError
		if errors.As(err, &amb) && len(amb.Candidates) > 1 {
			return core.Goal{}, err
		}
	}

	sorted := byRecency(goals)
	for _, g := range sorted {
		if g.IsOpen() && g.Type == p.PreferType {
			return g, nil
		}
	}
	for _, g := range sorted {
		if g.IsOpen() {
			return g, nil
		}
	}
	return sorted[0], nil
}
