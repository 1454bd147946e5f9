package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Caller is the aggregate profile of one predicting party. Every numeric
// field is derived from that caller's ordered call history by recomputation;
// the calls table is the source of truth, never this row.
type Caller struct {
	ID              string          `gorm:"size:64;primaryKey" json:"id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	WalletAddress   *string         `gorm:"size:64;uniqueIndex" json:"wallet_address,omitempty"`
	TotalCalls      int             `gorm:"default:0" json:"total_calls"`
	CorrectCalls    int             `gorm:"default:0" json:"correct_calls"`
	PendingCalls    int             `gorm:"default:0" json:"pending_calls"`
	TotalWagered    decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"total_wagered"`
	TotalWon        decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"total_won"`
	TotalLost       decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"total_lost"`
	CurrentStreak   int             `gorm:"default:0" json:"current_streak"` // positive = win streak, negative = loss streak
	BestStreak      int             `gorm:"default:0" json:"best_streak"`
	WorstStreak     int             `gorm:"default:0" json:"worst_streak"`
	HitRate         float64         `gorm:"type:decimal(6,4);default:0" json:"hit_rate"`
	ConfidenceScore float64         `gorm:"type:decimal(6,4);default:0.5" json:"confidence_score"`
	LastCallAt      *time.Time      `json:"last_call_at,omitempty"`
	CreatedAt       time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Caller) TableName() string {
	return "callers"
}

// IncorrectCalls derives the losing side of the aggregate so that
// total = correct + incorrect + pending always holds.
func (c *Caller) IncorrectCalls() int {
	return c.TotalCalls - c.CorrectCalls - c.PendingCalls
}
