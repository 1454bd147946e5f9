// Package validation runs the local quality and timing checks on a Call and
// merges them with the external review verdict into one result with
// itemized violations. Malformed content never produces an error, only
// violations; callers decide whether to retry with corrected input.
package validation

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"calls-tracker/internal/models"
)

// Reviewer is the external review collaborator. Implementations cross a
// network boundary; the validator itself stays synchronous and testable
// without network access.
type Reviewer interface {
	Review(ctx context.Context, call *models.Call) (models.ValidationResult, error)
}

// Config holds the externally injectable validation thresholds.
type Config struct {
	MinHoursUntilClose float64 // critical below this
	MaxDaysUntilClose  float64 // warning above this
	EventBufferHours   float64 // Type A: close must precede event by this
	MinQuestionLength  int
	MaxQuestionLength  int
}

// DefaultConfig mirrors the platform's pari-mutuel defaults.
func DefaultConfig() Config {
	return Config{
		MinHoursUntilClose: 24,
		MaxDaysUntilClose:  14,
		EventBufferHours:   24,
		MinQuestionLength:  20,
		MaxQuestionLength:  200,
	}
}

var subjectiveWordsRe = regexp.MustCompile(`(?i)\b(should|might|could|would|maybe|possibly|I think)\b`)

type Validator struct {
	cfg      Config
	reviewer Reviewer
	now      func() time.Time
}

func New(cfg Config, reviewer Reviewer) *Validator {
	return &Validator{cfg: cfg, reviewer: reviewer, now: time.Now}
}

// WithClock overrides the validator's time source. Used in tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate composes the timing, question-quality and external review checks.
// Timing failures short-circuit: they are unrecoverable without changing
// the proposal, so later checks add no value.
func (v *Validator) Validate(ctx context.Context, call *models.Call) models.ValidationResult {
	timingResult := v.validateTiming(call)
	if !timingResult.Approved {
		return timingResult
	}

	questionResult := v.validateQuestion(call)
	remoteResult := v.reviewExternally(ctx, call)

	violations := append(timingResult.Violations, questionResult.Violations...)
	violations = append(violations, remoteResult.Violations...)

	merged := models.ValidationResult{Violations: violations}
	merged.Approved = !merged.HasCritical() && remoteResult.Approved
	return merged
}

func (v *Validator) validateTiming(call *models.Call) models.ValidationResult {
	var violations []models.Violation
	now := v.now()

	if !call.ClosingTime.After(now) {
		violations = append(violations, models.Violation{
			Severity: models.SeverityCritical,
			Rule:     "closing_time_future",
			Message:  fmt.Sprintf("Closing time %s is in the past", call.ClosingTime.Format(time.RFC3339)),
		})
	}

	hoursUntilClose := call.ClosingTime.Sub(now).Hours()
	if hoursUntilClose < v.cfg.MinHoursUntilClose {
		violations = append(violations, models.Violation{
			Severity: models.SeverityCritical,
			Rule:     "min_close_buffer",
			Message:  fmt.Sprintf("Only %.1fh until close — minimum %.0fh required", hoursUntilClose, v.cfg.MinHoursUntilClose),
		})
	}

	if daysUntilClose := hoursUntilClose / 24; daysUntilClose > v.cfg.MaxDaysUntilClose {
		violations = append(violations, models.Violation{
			Severity: models.SeverityWarning,
			Rule:     "max_close_days",
			Message:  fmt.Sprintf("%.0f days until close exceeds recommended %.0fd", daysUntilClose, v.cfg.MaxDaysUntilClose),
		})
	}

	switch call.Regime {
	case models.RegimeEventBased:
		if call.EventTime != nil {
			hoursBefore := call.EventTime.Sub(call.ClosingTime).Hours()
			if hoursBefore < v.cfg.EventBufferHours {
				violations = append(violations, models.Violation{
					Severity: models.SeverityCritical,
					Rule:     "type_a_buffer",
					Message:  fmt.Sprintf("Close is only %.1fh before event — need >= %.0fh", hoursBefore, v.cfg.EventBufferHours),
				})
			}
		}
	case models.RegimeMeasurementPeriod:
		if call.MeasurementStart != nil && !call.ClosingTime.Before(*call.MeasurementStart) {
			violations = append(violations, models.Violation{
				Severity: models.SeverityCritical,
				Rule:     "type_b_close_before_measurement",
				Message:  "Close time must be before measurement start",
			})
		}
		if call.MeasurementStart != nil && call.MeasurementEnd != nil {
			periodDays := call.MeasurementEnd.Sub(*call.MeasurementStart).Hours() / 24
			if periodDays > 30 {
				violations = append(violations, models.Violation{
					Severity: models.SeverityWarning,
					Rule:     "type_b_period_length",
					Message:  fmt.Sprintf("Measurement period is %.0f days — 7-14 days optimal", periodDays),
				})
			}
		}
	}

	result := models.ValidationResult{Violations: violations}
	result.Approved = !result.HasCritical()
	return result
}

func (v *Validator) validateQuestion(call *models.Call) models.ValidationResult {
	var violations []models.Violation

	if len(call.Question) == 0 || call.Question[len(call.Question)-1] != '?' {
		violations = append(violations, models.Violation{
			Severity: models.SeverityCritical,
			Rule:     "question_format",
			Message:  "Question must end with a question mark",
		})
	}

	if subjectiveWordsRe.MatchString(call.Question) {
		violations = append(violations, models.Violation{
			Severity: models.SeverityWarning,
			Rule:     "objective_question",
			Message:  "Question contains subjective language — must be objectively resolvable",
		})
	}

	if call.DataSource == "" {
		violations = append(violations, models.Violation{
			Severity: models.SeverityCritical,
			Rule:     "data_source",
			Message:  "Must specify a data source for resolution",
		})
	}

	if len(call.Question) < v.cfg.MinQuestionLength {
		violations = append(violations, models.Violation{
			Severity: models.SeverityWarning,
			Rule:     "question_length",
			Message:  "Question seems too short — add more specifics",
		})
	} else if len(call.Question) > v.cfg.MaxQuestionLength {
		violations = append(violations, models.Violation{
			Severity: models.SeverityWarning,
			Rule:     "question_length",
			Message:  "Question is very long — consider making it more concise",
		})
	}

	result := models.ValidationResult{Violations: violations}
	result.Approved = !result.HasCritical()
	return result
}

// reviewExternally delegates to the review collaborator. An unreachable
// reviewer is a critical violation, never a silent approval.
func (v *Validator) reviewExternally(ctx context.Context, call *models.Call) models.ValidationResult {
	if v.reviewer == nil {
		return models.ValidationResult{Approved: true}
	}

	result, err := v.reviewer.Review(ctx, call)
	if err != nil {
		return models.ValidationResult{
			Approved: false,
			Violations: []models.Violation{{
				Severity: models.SeverityCritical,
				Rule:     "api_unreachable",
				Message:  fmt.Sprintf("Cannot reach review API: %v", err),
			}},
		}
	}
	return result
}
