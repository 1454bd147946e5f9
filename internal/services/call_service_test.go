package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"calls-tracker/internal/ledger"
	"calls-tracker/internal/models"
	"calls-tracker/internal/parser"
	"calls-tracker/internal/reputation"
	"calls-tracker/internal/timing"
	"calls-tracker/internal/validation"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Caller{},
		&models.Call{},
		&models.SeenEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func newTestService(t *testing.T, db *gorm.DB) *CallService {
	return NewCallService(
		db,
		parser.New(48, 30),
		timing.New(24),
		validation.New(validation.DefaultConfig(), nil),
		NewDedupService(db),
		ledger.DryRunSettler{},
		reputation.DefaultConfig(),
		decimal.RequireFromString("0.1"),
	)
}

func TestCreateCallPipeline(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	call, result, err := service.CreateCall(context.Background(), "alice", "Alice", "BTC will hit $110k in 10 days", nil)
	if err != nil {
		t.Fatalf("CreateCall failed: %v (violations: %+v)", err, result.Violations)
	}

	if call.Status != models.CallStatusOpen {
		t.Errorf("status = %s, want OPEN", call.Status)
	}
	if call.Category != models.CategoryCrypto {
		t.Errorf("category = %s, want crypto", call.Category)
	}
	if call.Question == "" || call.Question[len(call.Question)-1] != '?' {
		t.Errorf("malformed question %q", call.Question)
	}
	if !call.WagerAmount.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("wager = %s, want default 0.1", call.WagerAmount)
	}
	if call.LedgerRef == nil {
		t.Error("expected a ledger reference from the dry-run settler")
	}
	if !call.ClosingTime.After(time.Now()) {
		t.Errorf("closing time %s not in the future", call.ClosingTime)
	}

	// The caller aggregate reflects the open call.
	var caller models.Caller
	if err := db.Where("id = ?", "alice").First(&caller).Error; err != nil {
		t.Fatalf("caller not created: %v", err)
	}
	if caller.TotalCalls != 1 || caller.PendingCalls != 1 {
		t.Errorf("caller counts = %d total / %d pending, want 1/1", caller.TotalCalls, caller.PendingCalls)
	}
	if !caller.TotalWagered.Equal(call.WagerAmount) {
		t.Errorf("total wagered = %s, want %s", caller.TotalWagered, call.WagerAmount)
	}
}

func TestCreateCallRejectsDuplicateEvent(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	ctx := context.Background()

	if _, _, err := service.CreateCall(ctx, "alice", "Alice", "BTC will hit $110k in 10 days", nil); err != nil {
		t.Fatalf("first CreateCall failed: %v", err)
	}

	// Same question from a different caller is the same event.
	_, _, err := service.CreateCall(ctx, "bob", "Bob", "BTC will hit $110k in 10 days", nil)
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Errorf("err = %v, want ErrDuplicateEvent", err)
	}
}

func TestCreateCallRejectsPastDeadline(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	_, result, err := service.CreateCall(context.Background(), "alice", "Alice", "ETH will hit $5k by March 2020", nil)
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}

	found := false
	for _, v := range result.Violations {
		if v.Rule == "closing_time_future" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing closing_time_future violation: %+v", result.Violations)
	}
}

func TestResolveCallUpdatesCaller(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	ctx := context.Background()

	call, _, err := service.CreateCall(ctx, "alice", "Alice", "BTC will hit $110k in 10 days", nil)
	if err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}

	resolved, err := service.ResolveCall(ctx, call.ID, models.OutcomeWin)
	if err != nil {
		t.Fatalf("ResolveCall failed: %v", err)
	}
	if resolved.Status != models.CallStatusResolved {
		t.Errorf("status = %s, want RESOLVED", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Error("resolved_at not set")
	}

	var caller models.Caller
	if err := db.Where("id = ?", "alice").First(&caller).Error; err != nil {
		t.Fatalf("failed to load caller: %v", err)
	}
	if caller.CorrectCalls != 1 || caller.PendingCalls != 0 {
		t.Errorf("caller counts = %d correct / %d pending, want 1/0", caller.CorrectCalls, caller.PendingCalls)
	}
	if caller.CurrentStreak != 1 || caller.BestStreak != 1 {
		t.Errorf("streaks = %d current / %d best, want 1/1", caller.CurrentStreak, caller.BestStreak)
	}
	// A win pays out double the wager.
	wantWon := call.WagerAmount.Mul(decimal.NewFromInt(2))
	if !caller.TotalWon.Equal(wantWon) {
		t.Errorf("total won = %s, want %s", caller.TotalWon, wantWon)
	}
	if caller.HitRate != 1.0 {
		t.Errorf("hit rate = %v, want 1.0", caller.HitRate)
	}
}

func TestResolveCallIsOneWay(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	ctx := context.Background()

	call, _, err := service.CreateCall(ctx, "alice", "Alice", "BTC will hit $110k in 10 days", nil)
	if err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}

	if _, err := service.ResolveCall(ctx, call.ID, models.OutcomeWin); err != nil {
		t.Fatalf("first resolution failed: %v", err)
	}

	var before models.Caller
	if err := db.Where("id = ?", "alice").First(&before).Error; err != nil {
		t.Fatal(err)
	}

	// The second resolution must fail and leave the profile untouched.
	_, err = service.ResolveCall(ctx, call.ID, models.OutcomeLoss)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("err = %v, want ErrAlreadyResolved", err)
	}

	var after models.Caller
	if err := db.Where("id = ?", "alice").First(&after).Error; err != nil {
		t.Fatal(err)
	}
	if after.CorrectCalls != before.CorrectCalls || after.CurrentStreak != before.CurrentStreak {
		t.Errorf("caller profile mutated by failed resolution: %+v -> %+v", before, after)
	}
	if !after.TotalWon.Equal(before.TotalWon) {
		t.Errorf("total won mutated: %s -> %s", before.TotalWon, after.TotalWon)
	}
}

func TestResolveCallVoidRefunds(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	ctx := context.Background()

	call, _, err := service.CreateCall(ctx, "alice", "Alice", "BTC will hit $110k in 10 days", nil)
	if err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}

	resolved, err := service.ResolveCall(ctx, call.ID, models.OutcomeVoid)
	if err != nil {
		t.Fatalf("ResolveCall failed: %v", err)
	}
	if resolved.Status != models.CallStatusVoid {
		t.Errorf("status = %s, want VOID", resolved.Status)
	}

	// Void calls vanish from every statistic, including the wager.
	var caller models.Caller
	if err := db.Where("id = ?", "alice").First(&caller).Error; err != nil {
		t.Fatal(err)
	}
	if caller.TotalCalls != 0 || caller.PendingCalls != 0 {
		t.Errorf("caller counts = %d total / %d pending, want 0/0", caller.TotalCalls, caller.PendingCalls)
	}
	if !caller.TotalWagered.IsZero() {
		t.Errorf("total wagered = %s, want 0", caller.TotalWagered)
	}
}

func TestFoldHistoryStreaks(t *testing.T) {
	win, loss, void := models.OutcomeWin, models.OutcomeLoss, models.OutcomeVoid
	wager := decimal.RequireFromString("1")

	mk := func(o *models.Outcome, daysAgo int) models.Call {
		return models.Call{
			Outcome:     o,
			WagerAmount: wager,
			CreatedAt:   time.Now().AddDate(0, 0, -daysAgo),
		}
	}

	fold := FoldHistory([]models.Call{
		mk(&win, 9), mk(&win, 8), mk(&win, 7), // W3
		mk(&loss, 6), mk(&loss, 5), // L2
		mk(&void, 4),     // invisible
		mk(&win, 3),      // W1
		mk(nil, 1),       // pending
	})

	if fold.TotalCalls != 7 {
		t.Errorf("total = %d, want 7 (void excluded)", fold.TotalCalls)
	}
	if fold.CorrectCalls != 4 || fold.PendingCalls != 1 {
		t.Errorf("correct/pending = %d/%d, want 4/1", fold.CorrectCalls, fold.PendingCalls)
	}
	if fold.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", fold.CurrentStreak)
	}
	if fold.BestStreak != 3 {
		t.Errorf("best streak = %d, want 3", fold.BestStreak)
	}
	if fold.WorstStreak != -2 {
		t.Errorf("worst streak = %d, want -2", fold.WorstStreak)
	}
	// Hit rate counts resolved non-void calls only: 4 of 6.
	if want := 4.0 / 6.0; fold.HitRate != want {
		t.Errorf("hit rate = %v, want %v", fold.HitRate, want)
	}
	if !fold.TotalWon.Equal(decimal.RequireFromString("8")) {
		t.Errorf("total won = %s, want 8", fold.TotalWon)
	}
	if !fold.TotalLost.Equal(decimal.RequireFromString("2")) {
		t.Errorf("total lost = %s, want 2", fold.TotalLost)
	}
}

func TestFoldHistoryStreaksFollowResolutionOrder(t *testing.T) {
	win, loss := models.OutcomeWin, models.OutcomeLoss
	wager := decimal.RequireFromString("1")
	base := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)

	at := func(h int) *time.Time {
		ts := base.Add(time.Duration(h) * time.Hour)
		return &ts
	}

	// Created a then b, but b settled first as a loss and a settled last
	// as a win. The streak walks the settlement sequence: L1 then W1.
	fold := FoldHistory([]models.Call{
		{ID: "a", Outcome: &win, WagerAmount: wager, CreatedAt: base, ResolvedAt: at(48)},
		{ID: "b", Outcome: &loss, WagerAmount: wager, CreatedAt: base.Add(time.Hour), ResolvedAt: at(24)},
	})

	if fold.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1 (win settled last)", fold.CurrentStreak)
	}
	if fold.BestStreak != 1 || fold.WorstStreak != -1 {
		t.Errorf("best/worst = %d/%d, want 1/-1", fold.BestStreak, fold.WorstStreak)
	}
}

func TestFoldHistoryMatchesIncrementalResolution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	outcomes := []models.Outcome{models.OutcomeWin, models.OutcomeLoss, models.OutcomeVoid}

	for trial := 0; trial < 100; trial++ {
		n := 3 + rng.Intn(12)
		base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

		calls := make([]models.Call, n)
		for i := range calls {
			calls[i] = models.Call{
				ID:          fmt.Sprintf("c%02d", i),
				WagerAmount: decimal.New(int64(1+rng.Intn(5)), -1),
				CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			}
		}

		// Resolve a random subset in a random order, tracking the streak
		// step by step the way live resolutions would.
		current, best, worst := 0, 0, 0
		resolveAt := base.AddDate(0, 0, 1)
		for _, idx := range rng.Perm(n) {
			if rng.Intn(4) == 0 {
				continue // stays pending
			}
			o := outcomes[rng.Intn(len(outcomes))]
			ts := resolveAt
			resolveAt = resolveAt.Add(time.Minute)
			calls[idx].Outcome = &o
			calls[idx].ResolvedAt = &ts

			switch o {
			case models.OutcomeWin:
				if current > 0 {
					current++
				} else {
					current = 1
				}
				if current > best {
					best = current
				}
			case models.OutcomeLoss:
				if current < 0 {
					current--
				} else {
					current = -1
				}
				if current < worst {
					worst = current
				}
			}
		}

		fold := FoldHistory(calls)
		if fold.CurrentStreak != current || fold.BestStreak != best || fold.WorstStreak != worst {
			t.Fatalf("trial %d: fold streaks %d/%d/%d, step-by-step %d/%d/%d",
				trial, fold.CurrentStreak, fold.BestStreak, fold.WorstStreak, current, best, worst)
		}
	}
}

func TestLeaderboardOrdering(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	seed := func(id string, total, correct int) {
		c := models.Caller{
			ID:           id,
			Name:         id,
			TotalCalls:   total,
			CorrectCalls: correct,
			TotalWagered: decimal.NewFromInt(int64(total)),
			TotalWon:     decimal.NewFromInt(int64(correct * 2)),
			TotalLost:    decimal.NewFromInt(int64(total - correct)),
		}
		if err := db.Create(&c).Error; err != nil {
			t.Fatalf("failed to seed caller %s: %v", id, err)
		}
	}

	seed("sharp", 10, 9)
	seed("chalk", 10, 5)
	seed("fresh", 1, 1) // below ranking minimum

	entries, err := service.Leaderboard(10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("leaderboard has %d entries, want 2", len(entries))
	}
	if entries[0].Caller.ID != "sharp" {
		t.Errorf("top = %s, want sharp", entries[0].Caller.ID)
	}
}

func TestDedupHashNormalization(t *testing.T) {
	a := EventHash("Will Bitcoin (BTC) exceed $110,000 by March 1, 2026?", models.CategoryCrypto)
	b := EventHash("will bitcoin btc exceed 110000 by march 1 2026", models.CategoryCrypto)
	if a != b {
		t.Error("hash must ignore case and punctuation")
	}

	c := EventHash("Will Bitcoin (BTC) exceed $110,000 by March 1, 2026?", models.CategorySports)
	if a == c {
		t.Error("hash must include the category")
	}
}

func TestStats(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	ctx := context.Background()

	call, _, err := service.CreateCall(ctx, "alice", "Alice", "BTC will hit $110k in 10 days", nil)
	if err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}
	if _, _, err := service.CreateCall(ctx, "bob", "Bob", "solana is gonna pump in 12 days", nil); err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}
	if _, err := service.ResolveCall(ctx, call.ID, models.OutcomeWin); err != nil {
		t.Fatalf("ResolveCall failed: %v", err)
	}

	stats, err := service.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalCallers != 2 || stats.TotalCalls != 2 {
		t.Errorf("callers/calls = %d/%d, want 2/2", stats.TotalCallers, stats.TotalCalls)
	}
	if stats.OpenCalls != 1 || stats.ResolvedCalls != 1 || stats.Wins != 1 {
		t.Errorf("open/resolved/wins = %d/%d/%d, want 1/1/1", stats.OpenCalls, stats.ResolvedCalls, stats.Wins)
	}
}

func TestGetCallerProfile(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)
	ctx := context.Background()

	call, _, err := service.CreateCall(ctx, "alice", "Alice", "BTC will hit $110k in 10 days", nil)
	if err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}
	if _, err := service.ResolveCall(ctx, call.ID, models.OutcomeWin); err != nil {
		t.Fatalf("ResolveCall failed: %v", err)
	}

	profile, err := service.GetCallerProfile("alice")
	if err != nil {
		t.Fatalf("GetCallerProfile failed: %v", err)
	}
	if profile.Caller.ID != "alice" {
		t.Errorf("caller = %s", profile.Caller.ID)
	}
	if profile.WeightedAccuracy != 1.0 {
		t.Errorf("weighted accuracy = %v, want 1.0", profile.WeightedAccuracy)
	}
	if profile.StreakLabel != "W1" {
		t.Errorf("streak label = %s, want W1", profile.StreakLabel)
	}
	if len(profile.RecentCalls) != 1 {
		t.Errorf("recent calls = %d, want 1", len(profile.RecentCalls))
	}

	if _, err := service.GetCallerProfile("nobody"); !errors.Is(err, ErrCallerNotFound) {
		t.Errorf("err = %v, want ErrCallerNotFound", err)
	}
}
