package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

var (
	// "by March 1", "by March 1st, 2026", "by April", "before April 15"
	explicitDateRe = regexp.MustCompile(`(?i)(?:by|before)\s+(January|February|March|April|May|June|July|August|September|October|November|December)(?:\s+(\d{1,2})(?:st|nd|rd|th)?)?(?:\s*,?\s*(\d{4}))?`)
	// "end of Q1", "end of Q2 2026"
	quarterEndRe = regexp.MustCompile(`(?i)end\s+of\s+(Q[1-4])(?:\s+(\d{4}))?`)
	// "next week", "next month"
	nextPeriodRe = regexp.MustCompile(`(?i)next\s+(week|month|quarter|year)`)
	// "in 7 days", "within 30 days"
	relativeRe = regexp.MustCompile(`(?i)(?:in|within)\s+(\d+)\s+(days?|weeks?|months?)`)
	// "this week", "this month"
	thisPeriodRe = regexp.MustCompile(`(?i)this\s+(week|month|quarter)`)
)

// parseDeadline extracts a deadline date from text, trying patterns in a
// fixed priority order. Returns false when no pattern matches; the caller
// falls back to the configured default window. Month-only and quarter
// phrases resolve to the last calendar day of that period.
func parseDeadline(text string, now time.Time) (time.Time, bool) {
	if m := explicitDateRe.FindStringSubmatch(text); m != nil {
		month := monthsByName[strings.ToLower(m[1])]
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		if m[2] != "" {
			day, _ := strconv.Atoi(m[2])
			return time.Date(year, month, day, 0, 0, 0, 0, now.Location()), true
		}
		return lastDayOfMonth(year, month, now.Location()), true
	}

	if m := quarterEndRe.FindStringSubmatch(text); m != nil {
		quarter, _ := strconv.Atoi(m[1][1:])
		year := now.Year()
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
		return lastDayOfMonth(year, time.Month(quarter*3), now.Location()), true
	}

	if m := nextPeriodRe.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "week":
			return now.AddDate(0, 0, 7), true
		case "month":
			return now.AddDate(0, 1, 0), true
		case "quarter":
			return now.AddDate(0, 3, 0), true
		case "year":
			return now.AddDate(1, 0, 0), true
		}
	}

	if m := relativeRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch strings.TrimSuffix(strings.ToLower(m[2]), "s") {
		case "day":
			return now.AddDate(0, 0, n), true
		case "week":
			return now.AddDate(0, 0, n*7), true
		case "month":
			return now.AddDate(0, n, 0), true
		}
	}

	if m := thisPeriodRe.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "week":
			// end of this week (Sunday)
			return now.AddDate(0, 0, 7-int(now.Weekday())), true
		case "month":
			return lastDayOfMonth(now.Year(), now.Month(), now.Location()), true
		case "quarter":
			q := (int(now.Month()) - 1) / 3
			return lastDayOfMonth(now.Year(), time.Month((q+1)*3), now.Location()), true
		}
	}

	return time.Time{}, false
}

func lastDayOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	// day 0 of the following month normalizes to the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
}
