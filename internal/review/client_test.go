package review

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"calls-tracker/internal/models"
)

func testCall() *models.Call {
	event := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &models.Call{
		ID:          "abc123",
		Question:    "Will Bitcoin (BTC) exceed $110,000 by March 1, 2026?",
		Category:    models.CategoryCrypto,
		Regime:      models.RegimeEventBased,
		ClosingTime: event.Add(-48 * time.Hour),
		EventTime:   &event,
		DataSource:  "CoinGecko",
	}
}

func TestReviewRequestShape(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"approved": true})
	}))
	defer server.Close()

	client := NewClient(Options{ValidateURL: server.URL})
	result, err := client.Review(context.Background(), testCall())
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if !result.Approved {
		t.Error("expected approval")
	}

	if got["marketType"] != "event_based" {
		t.Errorf("marketType = %v", got["marketType"])
	}
	if got["question"] != testCall().Question {
		t.Errorf("question = %v", got["question"])
	}
	if _, ok := got["eventTime"]; !ok {
		t.Error("eventTime missing from request")
	}
}

func TestReviewMapsViolations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"approved": false,
			"violations": []map[string]string{
				{"severity": "critical", "rule": "ambiguous", "message": "Cannot be objectively resolved"},
				{"severity": "bogus"}, // unknown severity, empty rule and message
			},
		})
	}))
	defer server.Close()

	client := NewClient(Options{ValidateURL: server.URL})
	result, err := client.Review(context.Background(), testCall())
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if result.Approved {
		t.Error("expected rejection")
	}
	if len(result.Violations) != 2 {
		t.Fatalf("got %d violations, want 2", len(result.Violations))
	}
	if result.Violations[0].Severity != models.SeverityCritical || result.Violations[0].Rule != "ambiguous" {
		t.Errorf("violation 0 = %+v", result.Violations[0])
	}
	// Unknown fields normalize to safe defaults.
	if result.Violations[1].Severity != models.SeverityWarning {
		t.Errorf("severity = %s, want warning default", result.Violations[1].Severity)
	}
	if result.Violations[1].Rule != "api" || result.Violations[1].Message != "Unknown violation" {
		t.Errorf("violation 1 = %+v", result.Violations[1])
	}
}

func TestReviewNonOKBecomesViolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Options{ValidateURL: server.URL})
	result, err := client.Review(context.Background(), testCall())
	if err != nil {
		t.Fatalf("Review returned error: %v, want violation result", err)
	}
	if result.Approved {
		t.Error("expected rejection")
	}
	if len(result.Violations) != 1 || result.Violations[0].Rule != "api_error" {
		t.Errorf("violations = %+v, want one api_error", result.Violations)
	}
}

func TestRequestsPerSecIsSustainedRate(t *testing.T) {
	client := NewClient(Options{ValidateURL: "http://example.invalid", RequestsPerSec: 5})
	if got := client.limiter.Limit(); got != rate.Limit(5) {
		t.Errorf("sustained rate = %v, want 5 req/s", got)
	}
	if got := client.limiter.Burst(); got != 5 {
		t.Errorf("burst = %d, want 5", got)
	}
}

func TestReviewUnreachableReturnsError(t *testing.T) {
	client := NewClient(Options{
		ValidateURL:     "http://127.0.0.1:1/validate",
		Timeout:         100 * time.Millisecond,
		MaxRetryElapsed: 200 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := client.Review(ctx, testCall()); err == nil {
		t.Error("expected an error for an unreachable endpoint")
	}
}
