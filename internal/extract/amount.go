package extract

import (
	"regexp"
	"strings"

	"moneycoach/internal/core"
)

var (
	// $1,250.50 | $2.5k | 2.5k | 300 dollars | 5 thousand | 1200
	amountPattern = regexp.MustCompile(`(\$\s*)?(\d[\d,]*(?:\.\d+)?)(\s*(?:k\b|thousand\b|grand\b|dollars?\b|bucks\b|usd\b))?`)

	// Numbers followed by these words are durations, not money.
	durationUnit = regexp.MustCompile(`^\s*(?:days?|weeks?|months?|years?|yrs?|%|percent)\b`)
)

type amountMatch struct {
	money  core.Money
	marked bool // carried a currency sign or unit
	start  int
	end    int
}

// FindAmount returns the most plausible money amount mentioned in text.
// Amounts carrying "$" or a unit win over bare numbers; among equals the
// first one wins.
func FindAmount(text string) (core.Money, bool) {
	m, ok := findAmount(strings.ToLower(text))
	return m.money, ok
}

func findAmount(lower string) (amountMatch, bool) {
	var best amountMatch
	found := false

	for _, loc := range amountPattern.FindAllStringSubmatchIndex(lower, -1) {
		start, end := loc[0], loc[1]
		hasSign := loc[2] >= 0
		number := lower[loc[4]:loc[5]]
		unit := ""
		if loc[6] >= 0 {
			unit = strings.TrimSpace(lower[loc[6]:loc[7]])
		}

		// Part of a word or a date such as 2026-06-01.
		if start > 0 && isWordByte(lower[start-1]) {
			continue
		}
		if end < len(lower) && (lower[end] == '-' || lower[end] == '/') {
			continue
		}
		if start > 0 && (lower[start-1] == '-' || lower[start-1] == '/') {
			continue
		}
		if !hasSign && unit == "" {
			if durationUnit.MatchString(lower[end:]) || looksLikeYear(lower, start, number) {
				continue
			}
		}

		raw := number
		if unit == "k" || unit == "thousand" || unit == "grand" {
			raw += "k"
		}
		money, err := core.ParseAmount(raw)
		if err != nil {
			continue
		}

		marked := hasSign || unit != ""
		if !found || (marked && !best.marked) {
			best = amountMatch{money: money, marked: marked, start: start, end: end}
			found = true
		}
	}
	return best, found
}

var yearContext = regexp.MustCompile(`(?:by|in|of|until|before|january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sep|sept|oct|nov|dec)\s*,?\s*$`)

func looksLikeYear(lower string, start int, number string) bool {
	if len(number) != 4 || !(strings.HasPrefix(number, "19") || strings.HasPrefix(number, "20")) {
		return false
	}
	return yearContext.MatchString(lower[:start])
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}
