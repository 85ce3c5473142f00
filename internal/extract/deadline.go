package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"moneycoach/internal/core"
)

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"eighteen": 18, "twenty": 20, "thirty": 30,
}

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	isoDate       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	relativeSpan  = regexp.MustCompile(`\b(?:in|within)\s+(\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|eighteen|twenty|thirty)\s+(days?|weeks?|months?|years?)\b`)
	endOfYear     = regexp.MustCompile(`\b(?:by|before|until)\s+(?:the\s+)?end\s+of\s+(?:the\s+|this\s+)?year\b`)
	nextYear      = regexp.MustCompile(`\b(?:by|before|until|in)\s+next\s+year\b`)
	nextMonth     = regexp.MustCompile(`\b(?:by|before|until)\s+(?:the\s+end\s+of\s+)?next\s+month\b`)
	christmas     = regexp.MustCompile(`\b(?:by|before|until)\s+christmas\b`)
	monthDeadline = regexp.MustCompile(`\b(?:by|before|until|in)\s+(?:the\s+end\s+of\s+)?(` + monthNames + `)\b\.?(?:\s+(\d{1,2})(?:st|nd|rd|th)?\b)?,?(?:\s+(\d{4})\b)?`)
)

// FindDeadline extracts a deadline phrase relative to today. It returns the
// day and the matched span so callers can strip it before looking for amounts.
func FindDeadline(text string, today core.Date) (*core.Date, string) {
	lower := strings.ToLower(text)

	if m := isoDate.FindStringSubmatch(lower); m != nil {
		if d, err := core.ParseDate(m[0]); err == nil {
			return &d, m[0]
		}
	}

	if m := relativeSpan.FindStringSubmatch(lower); m != nil {
		n, ok := numberWords[m[1]]
		if !ok {
			n, _ = strconv.Atoi(m[1])
		}
		if n > 0 {
			var d core.Date
			switch {
			case strings.HasPrefix(m[2], "day"):
				d = today.AddDays(n)
			case strings.HasPrefix(m[2], "week"):
				d = today.AddDays(7 * n)
			case strings.HasPrefix(m[2], "month"):
				d = core.Date{Time: today.AddDate(0, n, 0)}
			default:
				d = core.Date{Time: today.AddDate(n, 0, 0)}
			}
			return &d, m[0]
		}
	}

	if m := endOfYear.FindString(lower); m != "" {
		d := core.NewDate(today.Year(), 12, 31)
		return &d, m
	}
	if m := nextYear.FindString(lower); m != "" {
		d := core.NewDate(today.Year()+1, 12, 31)
		return &d, m
	}
	if m := nextMonth.FindString(lower); m != "" {
		first := core.NewDate(today.Year(), int(today.Month()), 1)
		d := core.Date{Time: first.AddDate(0, 2, -1)}
		return &d, m
	}
	if m := christmas.FindString(lower); m != "" {
		d := core.NewDate(today.Year(), 12, 25)
		if d.Before(today.Time) {
			d = core.NewDate(today.Year()+1, 12, 25)
		}
		return &d, m
	}

	if m := monthDeadline.FindStringSubmatch(lower); m != nil {
		month := months[m[1]]
		year := today.Year()
		explicitYear := m[3] != ""
		if explicitYear {
			year, _ = strconv.Atoi(m[3])
		}

		var d core.Date
		if m[2] != "" {
			day, _ := strconv.Atoi(m[2])
			if day < 1 || day > daysIn(month, year) {
				return nil, ""
			}
			d = core.NewDate(year, int(month), day)
		} else {
			d = core.NewDate(year, int(month), daysIn(month, year))
		}
		if !explicitYear && d.Before(today.Time) {
			year++
			if m[2] != "" {
				d = core.NewDate(year, int(month), d.Day())
			} else {
				d = core.NewDate(year, int(month), daysIn(month, year))
			}
		}
		return &d, m[0]
	}

	return nil, ""
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
