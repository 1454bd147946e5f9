package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	fillerPrefixRe = regexp.MustCompile(`(?i)^(I think|I believe|I predict|My call:|Call:)\s*`)
	gonnaPrefixRe  = regexp.MustCompile(`(?i)^(gonna|going to)\s*`)
	startsWillRe   = regexp.MustCompile(`(?i)^will\s`)
	containsWillRe = regexp.MustCompile(`(?i)\bwill\s`)
	trailingPunctRe = regexp.MustCompile(`[.!?]*$`)

	// date phrases already present in the raw text; stripped so the
	// synthesized deadline is not appended twice
	embeddedByDateRe   = regexp.MustCompile(`(?i)\s+by\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(st|nd|rd|th)?,?\s*\d{0,4}`)
	embeddedPeriodRe   = regexp.MustCompile(`(?i)\s+(?:next|this)\s+(?:week|month|quarter|year)`)
	embeddedRelativeRe = regexp.MustCompile(`(?i)\s+(?:in|within)\s+\d+\s+(?:days?|weeks?|months?)`)
	embeddedQuarterRe  = regexp.MustCompile(`(?i)\s+(?:end of|by end of)\s+Q[1-4](?:\s+\d{4})?`)
)

// cleanPredictionToQuestion is the generic fallback transform: strip filler
// prefixes, restructure "X will Y" into "Will X Y", drop any date phrase
// already in the text, and append the synthesized deadline.
func cleanPredictionToQuestion(text string, deadline time.Time) string {
	clean := strings.TrimSpace(fillerPrefixRe.ReplaceAllString(text, ""))
	clean = gonnaPrefixRe.ReplaceAllString(clean, "will ")

	switch {
	case startsWillRe.MatchString(clean):
		if idx := strings.Index(clean, " "); idx >= 0 {
			clean = "Will " + clean[idx+1:]
		}
	case containsWillRe.MatchString(clean):
		// "Chiefs will win the Super Bowl" -> "Will the Chiefs win the Super Bowl"
		loc := containsWillRe.FindStringIndex(clean)
		subject := strings.TrimSpace(clean[:loc[0]])
		rest := strings.TrimSpace(clean[loc[0]+5:])
		clean = "Will " + lowerFirst(subject) + " " + rest
	default:
		clean = "Will " + lowerFirst(clean)
	}

	clean = trailingPunctRe.ReplaceAllString(clean, "")
	clean = embeddedByDateRe.ReplaceAllString(clean, "")
	clean = embeddedPeriodRe.ReplaceAllString(clean, "")
	clean = embeddedRelativeRe.ReplaceAllString(clean, "")
	clean = embeddedQuarterRe.ReplaceAllString(clean, "")

	clean = strings.TrimRight(clean, " ")
	clean += " by " + formatDate(deadline) + "?"

	return upperFirst(clean)
}

// formatPrice renders a price target for question text: billions and
// millions abbreviated, thousands comma-grouped, small values with cents.
func formatPrice(price float64) string {
	switch {
	case price >= 1_000_000_000:
		return fmt.Sprintf("$%.1fB", price/1_000_000_000)
	case price >= 1_000_000:
		return fmt.Sprintf("$%.1fM", price/1_000_000)
	case price >= 1_000:
		return "$" + groupThousands(price)
	default:
		return fmt.Sprintf("$%.2f", price)
	}
}

func groupThousands(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
	intPart := s
	fracPart := ""
	if dot := strings.Index(s, "."); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}
	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	return b.String() + fracPart
}

func formatDate(date time.Time) string {
	return date.Format("January 2, 2006")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
