package reputation

import (
	"math"
	"testing"
	"time"

	"calls-tracker/internal/models"

	"github.com/shopspring/decimal"
)

func caller(total, correct, streak int) *models.Caller {
	return &models.Caller{
		ID:            "c1",
		TotalCalls:    total,
		CorrectCalls:  correct,
		CurrentStreak: streak,
		TotalWagered:  decimal.NewFromInt(int64(total)),
		TotalWon:      decimal.NewFromInt(int64(correct * 2)),
		TotalLost:     decimal.NewFromInt(int64(total - correct)),
	}
}

func TestScoreBounds(t *testing.T) {
	cfg := DefaultConfig()

	cases := []*models.Caller{
		{ID: "empty", TotalWagered: decimal.Zero, TotalWon: decimal.Zero, TotalLost: decimal.Zero},
		caller(100, 100, 10),
		caller(100, 0, -10),
		caller(1, 1, 1),
	}

	for _, c := range cases {
		result := Score(c, cfg)
		if result.Score < 0 || result.Score > 100 {
			t.Errorf("score %d out of [0,100] for %+v", result.Score, c)
		}
	}
}

func TestScoreBayesianPullsTowardHalf(t *testing.T) {
	cfg := DefaultConfig()

	// One win out of one: raw rate 1.0, but the prior drags it down.
	one := Score(caller(1, 1, 1), cfg)
	if one.Details.RawHitRate != 1.0 {
		t.Errorf("raw hit rate = %v, want 1.0", one.Details.RawHitRate)
	}
	if one.Details.BayesianScore >= 1.0 {
		t.Errorf("bayesian score %v not smoothed", one.Details.BayesianScore)
	}

	// (1 + 1.5) / (1 + 3) with the default prior of 3.
	want := 2.5 / 4.0
	if math.Abs(one.Details.BayesianScore-want) > 1e-9 {
		t.Errorf("bayesian score = %v, want %v", one.Details.BayesianScore, want)
	}
}

func TestScoreStreakClamped(t *testing.T) {
	cfg := DefaultConfig()

	long := Score(caller(50, 30, 20), cfg)
	if long.Details.StreakBonus != 0.10 {
		t.Errorf("streak bonus = %v, want clamp at 0.10", long.Details.StreakBonus)
	}

	cold := Score(caller(50, 20, -20), cfg)
	if cold.Details.StreakBonus != -0.10 {
		t.Errorf("streak bonus = %v, want clamp at -0.10", cold.Details.StreakBonus)
	}
}

func TestScoreVolumeCapped(t *testing.T) {
	cfg := DefaultConfig()

	small := Score(caller(4, 2, 0), cfg)
	if math.Abs(small.Details.VolumeBonus-0.02) > 1e-9 {
		t.Errorf("volume bonus = %v, want 0.02", small.Details.VolumeBonus)
	}

	big := Score(caller(500, 250, 0), cfg)
	if big.Details.VolumeBonus != 0.05 {
		t.Errorf("volume bonus = %v, want cap at 0.05", big.Details.VolumeBonus)
	}
}

func TestTiers(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{85, "Oracle"},
		{75, "Prophet"},
		{65, "Analyst"},
		{55, "Speculator"},
		{45, "Gambler"},
		{20, "Rekt"},
	}

	for _, tc := range cases {
		tier, _ := tierFor(tc.score, 10, 3)
		if tier != tc.want {
			t.Errorf("tierFor(%d) = %s, want %s", tc.score, tier, tc.want)
		}
	}
}

func TestTierNeverDropsAsScoreRises(t *testing.T) {
	order := map[string]int{
		"Rekt": 0, "Gambler": 1, "Speculator": 2,
		"Analyst": 3, "Prophet": 4, "Oracle": 5,
	}

	prev, _ := tierFor(0, 10, 3)
	for score := 1; score <= 100; score++ {
		cur, _ := tierFor(score, 10, 3)
		if order[cur] < order[prev] {
			t.Fatalf("tier dropped from %s to %s at score %d", prev, cur, score)
		}
		prev = cur
	}

	// Same volume, strictly better record: the higher score cannot land
	// in a lower tier.
	cfg := DefaultConfig()
	lo := Score(caller(20, 8, 0), cfg)
	hi := Score(caller(20, 16, 0), cfg)
	if hi.Score <= lo.Score {
		t.Fatalf("scores %d vs %d, expected the better record to score higher", hi.Score, lo.Score)
	}
	if order[hi.Tier] < order[lo.Tier] {
		t.Errorf("tier %s ranks below %s despite the higher score", hi.Tier, lo.Tier)
	}
}

func TestUnrankedBelowMinimum(t *testing.T) {
	cfg := DefaultConfig()

	result := Score(caller(2, 2, 2), cfg)
	if result.Tier != "Unranked" {
		t.Errorf("tier = %s, want Unranked for %d calls", result.Tier, 2)
	}
}

func resolvedCall(daysAgo int, outcome models.Outcome) models.Call {
	o := outcome
	return models.Call{
		Outcome:   &o,
		CreatedAt: time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo),
	}
}

func TestWeightedAccuracyRecency(t *testing.T) {
	// Old losses, recent wins: weighted accuracy beats the raw 50%.
	calls := []models.Call{
		resolvedCall(10, models.OutcomeLoss),
		resolvedCall(8, models.OutcomeLoss),
		resolvedCall(2, models.OutcomeWin),
		resolvedCall(1, models.OutcomeWin),
	}

	weighted := WeightedAccuracy(calls, 0.95)
	if weighted <= 0.5 {
		t.Errorf("weighted accuracy = %v, want > 0.5 when recent calls won", weighted)
	}

	// Reversed history gives the mirror result.
	reversed := []models.Call{
		resolvedCall(10, models.OutcomeWin),
		resolvedCall(8, models.OutcomeWin),
		resolvedCall(2, models.OutcomeLoss),
		resolvedCall(1, models.OutcomeLoss),
	}
	if w := WeightedAccuracy(reversed, 0.95); w >= 0.5 {
		t.Errorf("weighted accuracy = %v, want < 0.5 when recent calls lost", w)
	}
}

func TestWeightedAccuracyIgnoresVoidAndPending(t *testing.T) {
	calls := []models.Call{
		resolvedCall(3, models.OutcomeWin),
		resolvedCall(2, models.OutcomeVoid),
		{CreatedAt: time.Now()}, // pending
	}

	if w := WeightedAccuracy(calls, 0.95); w != 1.0 {
		t.Errorf("weighted accuracy = %v, want 1.0 from the single resolved win", w)
	}

	if w := WeightedAccuracy(nil, 0.95); w != 0 {
		t.Errorf("weighted accuracy of empty history = %v, want 0", w)
	}
}

func TestRankFiltersAndOrders(t *testing.T) {
	cfg := DefaultConfig()

	callers := []models.Caller{
		*caller(10, 9, 3),
		*caller(10, 2, -3),
		*caller(2, 2, 2), // below the ranking minimum
	}
	callers[0].ID = "alice"
	callers[1].ID = "bob"
	callers[2].ID = "carol"

	entries := Rank(callers, cfg)
	if len(entries) != 2 {
		t.Fatalf("ranked %d callers, want 2", len(entries))
	}
	if entries[0].Caller.ID != "alice" {
		t.Errorf("top entry = %s, want alice", entries[0].Caller.ID)
	}
	if entries[0].Reputation.Score <= entries[1].Reputation.Score {
		t.Errorf("ranking not descending: %d then %d", entries[0].Reputation.Score, entries[1].Reputation.Score)
	}
}

func TestRankTieBreakDeterministic(t *testing.T) {
	cfg := DefaultConfig()

	a := *caller(10, 5, 0)
	b := *caller(10, 5, 0)
	a.ID = "zed"
	b.ID = "amy"

	first := Rank([]models.Caller{a, b}, cfg)
	second := Rank([]models.Caller{b, a}, cfg)

	if first[0].Caller.ID != "amy" || second[0].Caller.ID != "amy" {
		t.Errorf("tie not broken by ID: %s vs %s", first[0].Caller.ID, second[0].Caller.ID)
	}
}

func TestStreakLabel(t *testing.T) {
	if got := StreakLabel(3); got != "W3" {
		t.Errorf("StreakLabel(3) = %s", got)
	}
	if got := StreakLabel(-2); got != "L2" {
		t.Errorf("StreakLabel(-2) = %s", got)
	}
	if got := StreakLabel(0); got != "-" {
		t.Errorf("StreakLabel(0) = %s", got)
	}
}
