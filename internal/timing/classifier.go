// Package timing classifies market questions into their timing regime and
// enforces the golden rule of pari-mutuel markets: bettors must never hold
// an informational advantage while betting is open.
//
// Type A (event-based): close_time <= event_time - buffer.
// Type B (measurement-period): close_time < measurement_start.
package timing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"calls-tracker/internal/models"
)

// ErrUncorrectable is returned by Enforce when no compliant closing time
// exists in the future.
var ErrUncorrectable = errors.New("timing cannot be corrected: adjusted close would be in the past")

var (
	// "above/below/reach/exceed $N ... on YYYY-MM-DD" marks a price
	// measurement on a specific date
	measurementDateRe  = regexp.MustCompile(`(?i)on\s+(\d{4}-\d{2}-\d{2})`)
	measurementPriceRe = regexp.MustCompile(`(?i)(?:above|below|reach|exceed)\s+\$?[\d,]+`)
	// "by March 2026", "by end of Q1 2026", "by 2026-04-01"
	byDeadlineRe = regexp.MustCompile(`(?i)by\s+(?:end\s+of\s+)?([a-z]+\s+\d{4}|q[1-4]\s+\d{4}|\d{4}-\d{2}-\d{2})`)

	quarterRe = regexp.MustCompile(`(?i)^q([1-4])\s+(\d{4})$`)
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// Classifier determines the timing regime of a synthesized question and
// checks compliance against a configurable event buffer.
type Classifier struct {
	eventBuffer time.Duration
	now         func() time.Time
}

// New creates a Classifier requiring closes at least bufferHours before an
// event.
func New(bufferHours int) *Classifier {
	return &Classifier{
		eventBuffer: time.Duration(bufferHours) * time.Hour,
		now:         time.Now,
	}
}

// WithClock overrides the classifier's time source. Used in tests.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Classify derives the timing regime from the question text, not from the
// raw prediction: the parser's pre-tag is advisory only and this result is
// authoritative.
func (c *Classifier) Classify(question string, closingTime time.Time) models.TimingClassification {
	// Type B: price measurement on a specific date
	if dateMatch := measurementDateRe.FindStringSubmatch(question); dateMatch != nil && measurementPriceRe.MatchString(question) {
		start, err := time.Parse("2006-01-02", dateMatch[1])
		if err == nil {
			start = start.UTC() // start of day
			compliant := closingTime.Before(start)
			reason := fmt.Sprintf("Type B: closes %.1fh before measurement", start.Sub(closingTime).Hours())
			if !compliant {
				reason = fmt.Sprintf("Type B VIOLATION: close_time must be < measurement_start (%s)", start.Format(time.RFC3339))
			}
			return models.TimingClassification{
				Regime:           models.RegimeMeasurementPeriod,
				MeasurementStart: &start,
				Compliant:        compliant,
				Reason:           reason,
			}
		}
	}

	// Type A: explicit deadline phrase
	if m := byDeadlineRe.FindStringSubmatch(question); m != nil {
		if eventTime, ok := parseDeadlinePhrase(m[1]); ok {
			compliant := !closingTime.After(eventTime.Add(-c.eventBuffer))
			reason := fmt.Sprintf("Type A: closes %.1f days before event", eventTime.Sub(closingTime).Hours()/24)
			if !compliant {
				reason = fmt.Sprintf("Type A VIOLATION: close_time must be <= event_time - %.0fh", c.eventBuffer.Hours())
			}
			return models.TimingClassification{
				Regime:    models.RegimeEventBased,
				EventTime: &eventTime,
				Compliant: compliant,
				Reason:    reason,
			}
		}
	}

	// No extractable date: assume the closing time already carries the
	// buffer rather than manufacturing a false violation.
	inferred := closingTime.Add(c.eventBuffer)
	return models.TimingClassification{
		Regime:    models.RegimeEventBased,
		EventTime: &inferred,
		Compliant: true,
		Reason:    "Type A (inferred): no explicit event date, using closing time with default buffer",
	}
}

// parseDeadlinePhrase resolves a matched deadline phrase to an event time.
// Quarters resolve to the last day of the quarter; month-only deadlines
// anchor conservatively at day 28.
func parseDeadlinePhrase(phrase string) (time.Time, bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))

	if m := quarterRe.FindStringSubmatch(phrase); m != nil {
		quarter, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		// day 0 of the following month = last day of the quarter
		return time.Date(year, time.Month(quarter*3)+1, 0, 23, 59, 59, 0, time.UTC), true
	}

	if isoDateRe.MatchString(phrase) {
		d, err := time.Parse("2006-01-02", phrase)
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.UTC), true
	}

	parts := strings.Fields(phrase)
	if len(parts) == 2 {
		if month, ok := monthsByName[parts[0]]; ok {
			year, err := strconv.Atoi(parts[1])
			if err == nil {
				return time.Date(year, month, 28, 23, 59, 59, 0, time.UTC), true
			}
		}
	}

	return time.Time{}, false
}

// Enforce adjusts a proposal's closing time until its classification is
// compliant, stamping the authoritative regime and times onto the result.
// Already-compliant proposals are fixed points. Returns ErrUncorrectable
// when the only compliant close is already in the past.
func (c *Classifier) Enforce(proposal models.Proposal) (*models.Proposal, error) {
	cls := c.Classify(proposal.Question, proposal.ClosingTime)
	apply(&proposal, cls)

	if cls.Compliant {
		return &proposal, nil
	}

	switch cls.Regime {
	case models.RegimeEventBased:
		if cls.EventTime == nil {
			return nil, ErrUncorrectable
		}
		adjusted := cls.EventTime.Add(-c.eventBuffer)
		if !adjusted.After(c.now()) {
			return nil, ErrUncorrectable
		}
		proposal.ClosingTime = adjusted

	case models.RegimeMeasurementPeriod:
		if cls.MeasurementStart == nil {
			return nil, ErrUncorrectable
		}
		adjusted := cls.MeasurementStart.Add(-time.Hour)
		if !adjusted.After(c.now()) {
			return nil, ErrUncorrectable
		}
		proposal.ClosingTime = adjusted
	}

	return &proposal, nil
}

// apply overwrites the proposal's advisory regime with the classifier's
// determination.
func apply(proposal *models.Proposal, cls models.TimingClassification) {
	proposal.Regime = cls.Regime
	switch cls.Regime {
	case models.RegimeEventBased:
		proposal.EventTime = cls.EventTime
		proposal.MeasurementStart = nil
		proposal.MeasurementEnd = nil
	case models.RegimeMeasurementPeriod:
		proposal.MeasurementStart = cls.MeasurementStart
		proposal.EventTime = nil
	}
}
