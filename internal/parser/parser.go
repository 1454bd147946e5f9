// Package parser turns free-form natural-language predictions into
// structured market proposals.
//
// "BTC will hit $110k by March 1" -> "Will Bitcoin (BTC) exceed $110,000 by March 1, 2026?"
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"calls-tracker/internal/lexicon"
	"calls-tracker/internal/models"
)

var pricePatterns = []*regexp.Regexp{
	// "$110k", "$110,000", "$110000", "$4000"
	regexp.MustCompile(`\$(\d+(?:,\d{3})*(?:\.\d+)?[kKmMbB]?)\b`),
	// "110k dollars", "110000 USD"
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?[kKmMbB]?)\s*(?:dollars?|USD)`),
}

var upPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)will\s+(?:hit|reach|exceed|surpass|break|top|go\s+(?:above|over|past))`),
	regexp.MustCompile(`(?i)(?:above|over|higher\s+than|more\s+than|at\s+least)\s+\$`),
	regexp.MustCompile(`(?i)(?:pump|moon|surge|rally|spike|soar|climb)`),
	regexp.MustCompile(`(?i)(?:bullish|long|buy|call)\b`),
}

var downPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)will\s+(?:drop|fall|crash|dump|tank|dip|decline)\s+(?:to|below|under)`),
	regexp.MustCompile(`(?i)(?:below|under|less\s+than|lower\s+than|at\s+most)\s+\$`),
	regexp.MustCompile(`(?i)(?:dump|crash|tank|collapse|plunge|crater)`),
	regexp.MustCompile(`(?i)(?:bearish|short|sell|put)\b`),
}

// measurementHint tags period-phrased predictions. Advisory only: the timing
// classifier re-derives the regime from the synthesized question.
var (
	periodWordsRe = regexp.MustCompile(`(?i)\b(over|during|throughout|across|period|week|month|quarter)\b`)
	byWordRe      = regexp.MustCompile(`(?i)\bby\b`)
)

const (
	DirectionUp   = "UP"
	DirectionDown = "DOWN"
)

// Parser converts prediction text into Proposals. Zero value is not usable;
// construct with New.
type Parser struct {
	closeBufferHours  int
	defaultWindowDays int
	now               func() time.Time
}

// New creates a Parser. closeBufferHours is subtracted from the detected
// deadline to pick a closing time; defaultWindowDays is the deadline used
// when no date phrase matches.
func New(closeBufferHours, defaultWindowDays int) *Parser {
	return &Parser{
		closeBufferHours:  closeBufferHours,
		defaultWindowDays: defaultWindowDays,
		now:               time.Now,
	}
}

// WithClock overrides the parser's time source. Used in tests.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

// Parse extracts asset, price target, direction and deadline from raw text
// and synthesizes a structured yes/no question. It never fails: worst case
// is a low-confidence generic question with a default deadline.
func (p *Parser) Parse(text string) models.Proposal {
	now := p.now()

	category := lexicon.DetectCategory(text)
	asset := lexicon.DetectAsset(text)
	price := parsePrice(text)
	direction := detectDirection(text)

	eventDate, dateFound := parseDeadline(text, now)
	if !dateFound {
		eventDate = now.AddDate(0, 0, p.defaultWindowDays)
	}

	closingTime := eventDate.Add(-time.Duration(p.closeBufferHours) * time.Hour)

	ds := lexicon.DataSourceFor(category)
	dataSource := ds.Name
	dataSourceURL := ds.URL

	var question string
	confidence := 0.5

	switch {
	case asset != nil && price != nil:
		dir := direction
		if dir == "" {
			dir = DirectionUp
		}
		verb := "exceed"
		if dir == DirectionDown {
			verb = "fall below"
		}
		question = "Will " + asset.Name + " (" + asset.Ticker + ") " + verb + " " +
			formatPrice(*price) + " by " + formatDate(eventDate) + "?"
		confidence = 0.8

		if lexicon.IsCryptoTicker(asset.Ticker) {
			dataSource = "CoinGecko"
			dataSourceURL = "https://www.coingecko.com/en/coins/" + coinSlug(asset.Name)
		}

	case asset != nil:
		dir := direction
		if dir == "" {
			dir = DirectionUp
		}
		verb := "increase"
		if dir == DirectionDown {
			verb = "decrease"
		}
		question = "Will " + asset.Name + " (" + asset.Ticker + ") " + verb +
			" in value by " + formatDate(eventDate) + "?"
		confidence = 0.6

	case lexicon.MatchesSports(text):
		if teams := teamMatchupRe.FindStringSubmatch(text); teams != nil {
			question = "Will the " + teams[1] + " beat the " + teams[2] + " by " + formatDate(eventDate) + "?"
			confidence = 0.7
		} else {
			question = cleanPredictionToQuestion(text, eventDate)
			confidence = 0.4
		}
		dataSource = "ESPN"
		dataSourceURL = "https://www.espn.com"

	default:
		question = cleanPredictionToQuestion(text, eventDate)
		confidence = 0.3
	}

	proposal := models.Proposal{
		RawText:       text,
		Category:      category,
		Question:      question,
		ClosingTime:   closingTime,
		DataSource:    dataSource,
		DataSourceURL: dataSourceURL,
		BackupSource:  "Manual verification via " + dataSource,
		Side:          models.SideYes, // caller always backs their own stated outcome
		Confidence:    confidence,
		Direction:     direction,
	}
	if asset != nil {
		proposal.AssetTicker = asset.Ticker
		proposal.AssetName = asset.Name
	}
	proposal.PriceTarget = price

	if periodWordsRe.MatchString(text) && !byWordRe.MatchString(text) {
		proposal.Regime = models.RegimeMeasurementPeriod
		start := closingTime.Add(time.Hour)
		proposal.MeasurementStart = &start
		end := eventDate
		proposal.MeasurementEnd = &end
	} else {
		proposal.Regime = models.RegimeEventBased
		et := eventDate
		proposal.EventTime = &et
	}

	return proposal
}

var teamMatchupRe = regexp.MustCompile(`(?i)(\w+)\s+will\s+(?:beat|defeat|win\s+against)\s+(?:the\s+)?(\w+)`)

func parsePrice(text string) *float64 {
	for _, re := range pricePatterns {
		match := re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		raw := strings.ReplaceAll(match[1], ",", "")
		multiplier := 1.0
		switch strings.ToLower(raw[len(raw)-1:]) {
		case "k":
			multiplier = 1_000
			raw = raw[:len(raw)-1]
		case "m":
			multiplier = 1_000_000
			raw = raw[:len(raw)-1]
		case "b":
			multiplier = 1_000_000_000
			raw = raw[:len(raw)-1]
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		value *= multiplier
		return &value
	}
	return nil
}

func detectDirection(text string) string {
	for _, re := range upPatterns {
		if re.MatchString(text) {
			return DirectionUp
		}
	}
	for _, re := range downPatterns {
		if re.MatchString(text) {
			return DirectionDown
		}
	}
	return ""
}

func coinSlug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
