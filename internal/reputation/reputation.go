// Package reputation scores callers from their aggregate call history:
// Bayesian-smoothed hit rate with streak, volume and profit adjustments,
// mapped onto a 0-100 scale and a tier ladder.
package reputation

import (
	"fmt"
	"math"
	"sort"

	"calls-tracker/internal/models"
)

// Config holds the externally injectable scoring constants.
type Config struct {
	MinCallsForRanking int     // Bayesian prior strength and ranking gate
	DecayFactor        float64 // in (0,1); older calls matter less
}

// DefaultConfig mirrors the platform defaults.
func DefaultConfig() Config {
	return Config{MinCallsForRanking: 3, DecayFactor: 0.95}
}

// Details itemizes the score components for display.
type Details struct {
	RawHitRate    float64 `json:"raw_hit_rate"`
	BayesianScore float64 `json:"bayesian_score"`
	StreakBonus   float64 `json:"streak_bonus"`
	VolumeBonus   float64 `json:"volume_bonus"`
	ProfitFactor  float64 `json:"profit_factor"`
}

// Result is a caller's computed reputation.
type Result struct {
	Score   int     `json:"score"` // 0-100
	Tier    string  `json:"tier"`
	Badge   string  `json:"badge"`
	Details Details `json:"details"`
}

// Score computes the confidence-weighted reputation of a caller. The
// Bayesian term pulls toward 50% while observations are few; streaks,
// volume and profitability nudge the result within hard clamps so the
// final score stays in [0, 100] for every profile, including empty ones.
func Score(caller *models.Caller, cfg Config) Result {
	total := caller.TotalCalls
	correct := caller.CorrectCalls

	rawHitRate := 0.0
	if total > 0 {
		rawHitRate = float64(correct) / float64(total)
	}

	prior := float64(cfg.MinCallsForRanking)
	bayesianScore := (float64(correct) + prior/2) / (float64(total) + prior)

	streakBonus := clamp(float64(caller.CurrentStreak)*0.02, -0.10, 0.10)

	volumeBonus := math.Min(float64(total)*0.005, 0.05)

	totalWagered := caller.TotalWagered.InexactFloat64()
	profitFactor := 0.0
	if totalWagered > 0 {
		profitFactor = (caller.TotalWon.InexactFloat64() - caller.TotalLost.InexactFloat64()) / totalWagered
	}
	profitBonus := clamp(profitFactor*0.1, -0.1, 0.1)

	combined := clamp(bayesianScore+streakBonus+volumeBonus+profitBonus, 0, 1)
	score := int(math.Round(combined * 100))

	tier, badge := tierFor(score, total, cfg.MinCallsForRanking)

	return Result{
		Score: score,
		Tier:  tier,
		Badge: badge,
		Details: Details{
			RawHitRate:    rawHitRate,
			BayesianScore: bayesianScore,
			StreakBonus:   streakBonus,
			VolumeBonus:   volumeBonus,
			ProfitFactor:  profitFactor,
		},
	}
}

func tierFor(score, totalCalls, minCalls int) (string, string) {
	if totalCalls < minCalls {
		return "Unranked", "?"
	}
	switch {
	case score >= 80:
		return "Oracle", "***"
	case score >= 70:
		return "Prophet", "**"
	case score >= 60:
		return "Analyst", "*"
	case score >= 50:
		return "Speculator", "~"
	case score >= 40:
		return "Gambler", "."
	default:
		return "Rekt", "x"
	}
}

// WeightedAccuracy is the recency-weighted hit rate over resolved non-void
// calls, oldest first: call i of n carries weight decay^(n-1-i). Display
// metric only, never folded into the ranking score.
func WeightedAccuracy(calls []models.Call, decay float64) float64 {
	resolved := make([]models.Call, 0, len(calls))
	for _, c := range calls {
		if c.Outcome != nil && *c.Outcome != models.OutcomeVoid {
			resolved = append(resolved, c)
		}
	}
	if len(resolved) == 0 {
		return 0
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].CreatedAt.Before(resolved[j].CreatedAt)
	})

	var weightedSum, totalWeight float64
	n := len(resolved)
	for i, c := range resolved {
		weight := math.Pow(decay, float64(n-1-i))
		if *c.Outcome == models.OutcomeWin {
			weightedSum += weight
		}
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// Entry is one leaderboard row.
type Entry struct {
	Caller     models.Caller `json:"caller"`
	Reputation Result        `json:"reputation"`
}

// Rank filters to callers with enough calls for ranking and orders them by
// score descending. Ties break on caller ID ascending so output is
// deterministic.
func Rank(callers []models.Caller, cfg Config) []Entry {
	entries := make([]Entry, 0, len(callers))
	for _, c := range callers {
		if c.TotalCalls < cfg.MinCallsForRanking {
			continue
		}
		entries = append(entries, Entry{Caller: c, Reputation: Score(&c, cfg)})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Reputation.Score != entries[j].Reputation.Score {
			return entries[i].Reputation.Score > entries[j].Reputation.Score
		}
		return entries[i].Caller.ID < entries[j].Caller.ID
	})

	return entries
}

// StreakLabel renders a signed streak for display: "W3", "L2" or "-".
func StreakLabel(streak int) string {
	switch {
	case streak > 0:
		return fmt.Sprintf("W%d", streak)
	case streak < 0:
		return fmt.Sprintf("L%d", -streak)
	default:
		return "-"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
