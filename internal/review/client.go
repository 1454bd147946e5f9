// Package review implements the external market-review collaborator over
// HTTP. Requests are rate limited and retried with exponential backoff;
// failures surface as critical violations upstream, never as approvals.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"calls-tracker/internal/models"
)

// Client posts proposed markets to the review API and maps its verdict onto
// the pipeline's ValidationResult shape.
type Client struct {
	httpClient      *http.Client
	limiter         *rate.Limiter
	validateURL     string
	maxRetryElapsed time.Duration
}

// Options configures the review client.
type Options struct {
	ValidateURL     string
	Timeout         time.Duration
	RequestsPerSec  int
	MaxRetryElapsed time.Duration
}

func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryElapsed == 0 {
		opts.MaxRetryElapsed = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:         rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		validateURL:     opts.ValidateURL,
		maxRetryElapsed: opts.MaxRetryElapsed,
	}
}

type reviewRequest struct {
	Question         string  `json:"question"`
	ClosingTime      string  `json:"closingTime"`
	EventTime        *string `json:"eventTime,omitempty"`
	MeasurementStart *string `json:"measurementStart,omitempty"`
	MeasurementEnd   *string `json:"measurementEnd,omitempty"`
	Regime           string  `json:"marketType"`
	Category         string  `json:"category"`
	DataSource       string  `json:"dataSource"`
	BackupSource     string  `json:"backupSource"`
}

type reviewResponse struct {
	Approved   bool `json:"approved"`
	Violations []struct {
		Severity string `json:"severity"`
		Rule     string `json:"rule"`
		Message  string `json:"message"`
	} `json:"violations"`
}

// Review implements validation.Reviewer. A non-2xx response becomes a
// critical api_error violation in the returned result; transport failures
// after retries are returned as an error for the validator to map.
func (c *Client) Review(ctx context.Context, call *models.Call) (models.ValidationResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.ValidationResult{}, err
	}

	payload := reviewRequest{
		Question:     call.Question,
		ClosingTime:  call.ClosingTime.Format(time.RFC3339),
		Regime:       string(call.Regime),
		Category:     string(call.Category),
		DataSource:   call.DataSource,
		BackupSource: call.BackupSource,
	}
	if call.EventTime != nil {
		s := call.EventTime.Format(time.RFC3339)
		payload.EventTime = &s
	}
	if call.Regime == models.RegimeMeasurementPeriod {
		if call.MeasurementStart != nil {
			s := call.MeasurementStart.Format(time.RFC3339)
			payload.MeasurementStart = &s
		}
		if call.MeasurementEnd != nil {
			s := call.MeasurementEnd.Format(time.RFC3339)
			payload.MeasurementEnd = &s
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to encode review request: %w", err)
	}

	var resp *http.Response
	operation := func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.validateURL, bytes.NewReader(body))
		if reqErr != nil {
			return backoff.Permanent(reqErr)
		}
		req.Header.Set("Content-Type", "application/json")

		var doErr error
		resp, doErr = c.httpClient.Do(req)
		return doErr
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxRetryElapsed

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return models.ValidationResult{}, fmt.Errorf("review request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return models.ValidationResult{
			Approved: false,
			Violations: []models.Violation{{
				Severity: models.SeverityCritical,
				Rule:     "api_error",
				Message:  fmt.Sprintf("Review API returned %d: %s", resp.StatusCode, string(text)),
			}},
		}, nil
	}

	var decoded reviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return models.ValidationResult{}, fmt.Errorf("failed to decode review response: %w", err)
	}

	result := models.ValidationResult{Approved: decoded.Approved}
	for _, v := range decoded.Violations {
		severity := models.Severity(v.Severity)
		switch severity {
		case models.SeverityCritical, models.SeverityWarning, models.SeverityInfo:
		default:
			severity = models.SeverityWarning
		}
		rule := v.Rule
		if rule == "" {
			rule = "api"
		}
		message := v.Message
		if message == "" {
			message = "Unknown violation"
		}
		result.Violations = append(result.Violations, models.Violation{
			Severity: severity,
			Rule:     rule,
			Message:  message,
		})
	}
	return result, nil
}
