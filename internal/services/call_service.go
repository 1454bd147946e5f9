package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"calls-tracker/internal/ledger"
	"calls-tracker/internal/models"
	"calls-tracker/internal/parser"
	"calls-tracker/internal/reputation"
	"calls-tracker/internal/timing"
	"calls-tracker/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrValidationFailed = errors.New("call rejected by validation")
	ErrDuplicateEvent   = errors.New("a call for this event already exists")
	ErrAlreadyResolved  = errors.New("call is already resolved")
	ErrCallNotFound     = errors.New("call not found")
	ErrCallerNotFound   = errors.New("caller not found")
)

// CallService runs the full prediction pipeline: parse the raw text,
// enforce timing rules, validate, dedup and persist, then manage the
// call through resolution and caller stats recomputation.
type CallService struct {
	db         *gorm.DB
	parser     *parser.Parser
	classifier *timing.Classifier
	validator  *validation.Validator
	dedup      *DedupService
	settler    ledger.Settler
	repCfg     reputation.Config
	defaultBet decimal.Decimal
	mu         sync.Mutex
	now        func() time.Time
}

func NewCallService(
	db *gorm.DB,
	p *parser.Parser,
	classifier *timing.Classifier,
	validator *validation.Validator,
	dedup *DedupService,
	settler ledger.Settler,
	repCfg reputation.Config,
	defaultBet decimal.Decimal,
) *CallService {
	return &CallService{
		db:         db,
		parser:     p,
		classifier: classifier,
		validator:  validator,
		dedup:      dedup,
		settler:    settler,
		repCfg:     repCfg,
		defaultBet: defaultBet,
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *CallService) WithClock(now func() time.Time) *CallService {
	s.now = now
	return s
}

// CreateCall turns a raw prediction into an open call. The returned
// ValidationResult carries the violations whether or not the call was
// accepted, so rejections can explain themselves.
func (s *CallService) CreateCall(
	ctx context.Context,
	callerID, callerName, predictionText string,
	wager *decimal.Decimal,
) (*models.Call, models.ValidationResult, error) {
	proposal := s.parser.Parse(predictionText)

	fixed, err := s.classifier.Enforce(proposal)
	if err != nil {
		return nil, models.ValidationResult{}, fmt.Errorf("timing enforcement failed: %w", err)
	}

	bet := s.defaultBet
	if wager != nil && wager.IsPositive() {
		bet = *wager
	}

	call := &models.Call{
		ID:               newCallID(),
		CallerID:         callerID,
		PredictionText:   predictionText,
		Question:         fixed.Question,
		Category:         fixed.Category,
		Regime:           fixed.Regime,
		ClosingTime:      fixed.ClosingTime,
		EventTime:        fixed.EventTime,
		MeasurementStart: fixed.MeasurementStart,
		MeasurementEnd:   fixed.MeasurementEnd,
		DataSource:       fixed.DataSource,
		DataSourceURL:    fixed.DataSourceURL,
		BackupSource:     fixed.BackupSource,
		WagerAmount:      bet,
		Side:             fixed.Side,
		Status:           models.CallStatusOpen,
		CreatedAt:        s.now(),
	}

	result := s.validator.Validate(ctx, call)
	if !result.Approved {
		return nil, result, ErrValidationFailed
	}

	seen, err := s.dedup.Seen(call.Question, call.Category)
	if err != nil {
		return nil, result, err
	}
	if seen {
		return nil, result, ErrDuplicateEvent
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(call).Error; err != nil {
			return fmt.Errorf("failed to create call: %w", err)
		}
		if err := s.touchCaller(tx, callerID, callerName, call); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, result, err
	}

	if err := s.dedup.Record(call.Question, call.Category); err != nil {
		log.Printf("Warning: failed to record seen event for call %s: %v", call.ID, err)
	}

	s.anchorCall(ctx, call, "OPEN")

	log.Printf("Call %s created by %s: %q closes %s", call.ID, callerID, call.Question, call.ClosingTime.Format(time.RFC3339))
	return call, result, nil
}

// touchCaller creates or updates the caller aggregate for a new call.
func (s *CallService) touchCaller(tx *gorm.DB, callerID, callerName string, call *models.Call) error {
	var caller models.Caller
	err := tx.Where("id = ?", callerID).First(&caller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := s.now()
		caller = models.Caller{
			ID:           callerID,
			Name:         callerName,
			TotalWagered: decimal.Zero,
			TotalWon:     decimal.Zero,
			TotalLost:    decimal.Zero,
			CreatedAt:    now,
		}
		if err := tx.Create(&caller).Error; err != nil {
			return fmt.Errorf("failed to create caller: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to load caller: %w", err)
	}

	now := s.now()
	updates := map[string]interface{}{
		"total_calls":   gorm.Expr("total_calls + 1"),
		"pending_calls": gorm.Expr("pending_calls + 1"),
		"total_wagered": caller.TotalWagered.Add(call.WagerAmount),
		"last_call_at":  now,
		"updated_at":    now,
	}
	if callerName != "" && callerName != caller.Name {
		updates["name"] = callerName
	}
	if err := tx.Model(&models.Caller{}).Where("id = ?", callerID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update caller: %w", err)
	}
	return nil
}

// ResolveCall settles an open call with the given outcome. Resolution is
// one-way: a resolved or void call cannot be resolved again, and a failed
// second attempt leaves the caller profile untouched.
func (s *CallService) ResolveCall(ctx context.Context, callID string, outcome models.Outcome) (*models.Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var call models.Call
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", callID).First(&call).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCallNotFound
			}
			return fmt.Errorf("failed to load call: %w", err)
		}

		if call.Resolved() {
			return ErrAlreadyResolved
		}

		now := s.now()
		call.Outcome = &outcome
		call.ResolvedAt = &now
		if outcome == models.OutcomeVoid {
			call.Status = models.CallStatusVoid
		} else {
			call.Status = models.CallStatusResolved
		}

		if err := tx.Save(&call).Error; err != nil {
			return fmt.Errorf("failed to save call: %w", err)
		}

		return s.recomputeCaller(tx, call.CallerID)
	})
	if err != nil {
		return nil, err
	}

	s.anchorCall(ctx, &call, string(outcome))

	log.Printf("Call %s resolved: %s", call.ID, outcome)
	return &call, nil
}

// recomputeCaller rebuilds the caller aggregate from scratch by folding
// over the full call history. Replaying the history keeps the profile
// correct even if calls are voided or settled out of creation order.
func (s *CallService) recomputeCaller(tx *gorm.DB, callerID string) error {
	calls, err := loadCallerHistory(tx, callerID)
	if err != nil {
		return err
	}

	var caller models.Caller
	if err := tx.Where("id = ?", callerID).First(&caller).Error; err != nil {
		return fmt.Errorf("failed to load caller: %w", err)
	}

	folded := FoldHistory(calls)

	caller.TotalCalls = folded.TotalCalls
	caller.CorrectCalls = folded.CorrectCalls
	caller.PendingCalls = folded.PendingCalls
	caller.TotalWagered = folded.TotalWagered
	caller.TotalWon = folded.TotalWon
	caller.TotalLost = folded.TotalLost
	caller.CurrentStreak = folded.CurrentStreak
	caller.BestStreak = folded.BestStreak
	caller.WorstStreak = folded.WorstStreak
	caller.HitRate = folded.HitRate
	caller.ConfidenceScore = float64(reputation.Score(&caller, s.repCfg).Score)
	caller.UpdatedAt = s.now()

	if err := tx.Save(&caller).Error; err != nil {
		return fmt.Errorf("failed to save caller: %w", err)
	}
	return nil
}

// HistoryFold is the caller aggregate derived from a call history.
type HistoryFold struct {
	TotalCalls    int
	CorrectCalls  int
	PendingCalls  int
	TotalWagered  decimal.Decimal
	TotalWon      decimal.Decimal
	TotalLost     decimal.Decimal
	CurrentStreak int
	BestStreak    int
	WorstStreak   int
	HitRate       float64
}

// FoldHistory replays calls and accumulates the caller profile. Void
// calls refund the wager and vanish from every statistic. A win pays out
// double the wager; a loss forfeits it. Streaks are signed (positive runs
// of wins, negative runs of losses) and replay in the order the calls
// RESOLVED, not the order they were created: a call made first but
// settled last lands at the end of the streak sequence, matching what an
// incremental update at each resolution would have produced.
func FoldHistory(calls []models.Call) HistoryFold {
	fold := HistoryFold{
		TotalWagered: decimal.Zero,
		TotalWon:     decimal.Zero,
		TotalLost:    decimal.Zero,
	}

	var settled []models.Call
	for _, c := range calls {
		if c.Outcome != nil && *c.Outcome == models.OutcomeVoid {
			continue
		}

		fold.TotalCalls++
		fold.TotalWagered = fold.TotalWagered.Add(c.WagerAmount)

		if c.Outcome == nil {
			fold.PendingCalls++
			continue
		}

		settled = append(settled, c)
	}

	sort.SliceStable(settled, func(i, j int) bool {
		a, b := resolutionTime(settled[i]), resolutionTime(settled[j])
		if !a.Equal(b) {
			return a.Before(b)
		}
		return settled[i].ID < settled[j].ID
	})

	for _, c := range settled {
		switch *c.Outcome {
		case models.OutcomeWin:
			fold.CorrectCalls++
			fold.TotalWon = fold.TotalWon.Add(c.WagerAmount.Mul(decimal.NewFromInt(2)))
			if fold.CurrentStreak > 0 {
				fold.CurrentStreak++
			} else {
				fold.CurrentStreak = 1
			}
			if fold.CurrentStreak > fold.BestStreak {
				fold.BestStreak = fold.CurrentStreak
			}
		case models.OutcomeLoss:
			fold.TotalLost = fold.TotalLost.Add(c.WagerAmount)
			if fold.CurrentStreak < 0 {
				fold.CurrentStreak--
			} else {
				fold.CurrentStreak = -1
			}
			if fold.CurrentStreak < fold.WorstStreak {
				fold.WorstStreak = fold.CurrentStreak
			}
		}
	}

	if len(settled) > 0 {
		fold.HitRate = float64(fold.CorrectCalls) / float64(len(settled))
	}
	return fold
}

func resolutionTime(c models.Call) time.Time {
	if c.ResolvedAt != nil {
		return *c.ResolvedAt
	}
	return c.CreatedAt
}

func loadCallerHistory(tx *gorm.DB, callerID string) ([]models.Call, error) {
	var calls []models.Call
	err := tx.Where("caller_id = ?", callerID).
		Order("created_at ASC, id ASC").
		Find(&calls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load caller history: %w", err)
	}
	return calls, nil
}

// GetCall fetches a single call by ID.
func (s *CallService) GetCall(callID string) (*models.Call, error) {
	var call models.Call
	if err := s.db.Where("id = ?", callID).First(&call).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCallNotFound
		}
		return nil, fmt.Errorf("failed to load call: %w", err)
	}
	return &call, nil
}

// ListCalls returns calls filtered by status and/or caller, newest first.
func (s *CallService) ListCalls(status models.CallStatus, callerID string, limit int) ([]models.Call, error) {
	query := s.db.Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if callerID != "" {
		query = query.Where("caller_id = ?", callerID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var calls []models.Call
	if err := query.Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	return calls, nil
}

// CallerProfile is a caller with their computed reputation and
// recency-weighted accuracy.
type CallerProfile struct {
	Caller           models.Caller     `json:"caller"`
	Reputation       reputation.Result `json:"reputation"`
	WeightedAccuracy float64           `json:"weighted_accuracy"`
	StreakLabel      string            `json:"streak_label"`
	RecentCalls      []models.Call     `json:"recent_calls"`
}

// GetCallerProfile returns a caller's full public profile.
func (s *CallService) GetCallerProfile(callerID string) (*CallerProfile, error) {
	var caller models.Caller
	if err := s.db.Where("id = ?", callerID).First(&caller).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCallerNotFound
		}
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}

	history, err := loadCallerHistory(s.db, callerID)
	if err != nil {
		return nil, err
	}

	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	return &CallerProfile{
		Caller:           caller,
		Reputation:       reputation.Score(&caller, s.repCfg),
		WeightedAccuracy: reputation.WeightedAccuracy(history, s.repCfg.DecayFactor),
		StreakLabel:      reputation.StreakLabel(caller.CurrentStreak),
		RecentCalls:      recent,
	}, nil
}

// Leaderboard ranks eligible callers by reputation score.
func (s *CallService) Leaderboard(limit int) ([]reputation.Entry, error) {
	var callers []models.Caller
	if err := s.db.Find(&callers).Error; err != nil {
		return nil, fmt.Errorf("failed to load callers: %w", err)
	}

	entries := reputation.Rank(callers, s.repCfg)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// PlatformStats summarizes pipeline activity.
type PlatformStats struct {
	TotalCallers  int64 `json:"total_callers"`
	TotalCalls    int64 `json:"total_calls"`
	OpenCalls     int64 `json:"open_calls"`
	ResolvedCalls int64 `json:"resolved_calls"`
	VoidCalls     int64 `json:"void_calls"`
	Wins          int64 `json:"wins"`
}

// Stats returns platform-wide counts.
func (s *CallService) Stats() (*PlatformStats, error) {
	stats := &PlatformStats{}

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalCallers, s.db.Model(&models.Caller{})},
		{&stats.TotalCalls, s.db.Model(&models.Call{})},
		{&stats.OpenCalls, s.db.Model(&models.Call{}).Where("status = ?", models.CallStatusOpen)},
		{&stats.ResolvedCalls, s.db.Model(&models.Call{}).Where("status = ?", models.CallStatusResolved)},
		{&stats.VoidCalls, s.db.Model(&models.Call{}).Where("status = ?", models.CallStatusVoid)},
		{&stats.Wins, s.db.Model(&models.Call{}).Where("outcome = ?", models.OutcomeWin)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count stats: %w", err)
		}
	}
	return stats, nil
}

// anchorCall submits a lifecycle memo to the ledger. Best effort: a
// failed anchor never fails the call.
func (s *CallService) anchorCall(ctx context.Context, call *models.Call, event string) {
	if s.settler == nil {
		return
	}

	memo := fmt.Sprintf("call:%s %s %s", call.ID, event, call.ClosingTime.UTC().Format(time.RFC3339))
	ref, err := s.settler.SubmitMemo(ctx, memo)
	if err != nil {
		log.Printf("Warning: failed to anchor call %s: %v", call.ID, err)
		return
	}

	call.LedgerRef = &ref
	if err := s.db.Model(&models.Call{}).Where("id = ?", call.ID).Update("ledger_ref", ref).Error; err != nil {
		log.Printf("Warning: failed to store ledger ref for call %s: %v", call.ID, err)
	}
}

func newCallID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
