package jobs

import (
	"context"
	"testing"
	"time"

	"calls-tracker/internal/ledger"
	"calls-tracker/internal/models"
	"calls-tracker/internal/parser"
	"calls-tracker/internal/reputation"
	"calls-tracker/internal/services"
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

	if err := db.AutoMigrate(&models.Caller{}, &models.Call{}, &models.SeenEvent{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func seedCall(t *testing.T, db *gorm.DB, id string, status models.CallStatus, closing time.Time) {
	call := models.Call{
		ID:          id,
		CallerID:    "alice",
		Question:    "Will Bitcoin (BTC) exceed $110,000 by March 1, 2026?",
		Category:    models.CategoryCrypto,
		Regime:      models.RegimeEventBased,
		ClosingTime: closing,
		DataSource:  "CoinGecko",
		WagerAmount: decimal.RequireFromString("0.1"),
		Side:        models.SideYes,
		Status:      status,
		CreatedAt:   closing.AddDate(0, 0, -3),
	}
	if err := db.Create(&call).Error; err != nil {
		t.Fatalf("failed to seed call %s: %v", id, err)
	}
}

func TestSweepVoidsOverdueCalls(t *testing.T) {
	db := setupTestDB(t)

	caller := models.Caller{
		ID: "alice", Name: "Alice",
		TotalWagered: decimal.Zero, TotalWon: decimal.Zero, TotalLost: decimal.Zero,
	}
	if err := db.Create(&caller).Error; err != nil {
		t.Fatal(err)
	}

	service := services.NewCallService(
		db,
		parser.New(48, 30),
		timing.New(24),
		validation.New(validation.DefaultConfig(), nil),
		services.NewDedupService(db),
		ledger.DryRunSettler{},
		reputation.DefaultConfig(),
		decimal.RequireFromString("0.1"),
	)

	now := time.Now()
	seedCall(t, db, "overdue1", models.CallStatusOpen, now.AddDate(0, 0, -10))
	seedCall(t, db, "recent1", models.CallStatusOpen, now.AddDate(0, 0, -1))
	seedCall(t, db, "future1", models.CallStatusOpen, now.AddDate(0, 0, 5))

	sweeper := NewSettlementSweeper(db, service, 7*24*time.Hour)
	if err := sweeper.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	var call models.Call
	if err := db.Where("id = ?", "overdue1").First(&call).Error; err != nil {
		t.Fatal(err)
	}
	if call.Status != models.CallStatusVoid {
		t.Errorf("overdue call status = %s, want VOID", call.Status)
	}

	for _, id := range []string{"recent1", "future1"} {
		var call models.Call
		if err := db.Where("id = ?", id).First(&call).Error; err != nil {
			t.Fatal(err)
		}
		if call.Status != models.CallStatusOpen {
			t.Errorf("call %s status = %s, want OPEN", id, call.Status)
		}
	}
}
