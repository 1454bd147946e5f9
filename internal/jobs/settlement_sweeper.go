package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"calls-tracker/internal/models"
	"calls-tracker/internal/services"

	"gorm.io/gorm"
)

// SettlementSweeper periodically voids open calls that stayed
// unresolved long past their closing time, refunding the wager.
type SettlementSweeper struct {
	db      *gorm.DB
	service *services.CallService
	grace   time.Duration
}

func NewSettlementSweeper(db *gorm.DB, service *services.CallService, grace time.Duration) *SettlementSweeper {
	return &SettlementSweeper{
		db:      db,
		service: service,
		grace:   grace,
	}
}

// Start begins the periodic settlement sweep
func (j *SettlementSweeper) Start(interval time.Duration) {
	go func() {
		// Run immediately on start
		ctx := context.Background()
		if err := j.Sweep(ctx); err != nil {
			log.Printf("Initial sweep error: %v", err)
		}

		// Then run periodically
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			if err := j.Sweep(ctx); err != nil {
				log.Printf("Sweep error: %v", err)
			}
		}
	}()
}

// Sweep voids every open call whose closing time passed more than the
// grace period ago.
func (j *SettlementSweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-j.grace)

	var overdue []models.Call
	err := j.db.Where("status = ? AND closing_time < ?", models.CallStatusOpen, cutoff).
		Find(&overdue).Error
	if err != nil {
		return err
	}

	for _, call := range overdue {
		_, err := j.service.ResolveCall(ctx, call.ID, models.OutcomeVoid)
		if err != nil {
			// A concurrent resolution beat us to it; nothing to do.
			if errors.Is(err, services.ErrAlreadyResolved) {
				continue
			}
			log.Printf("Failed to void overdue call %s: %v", call.ID, err)
			continue
		}
		log.Printf("Voided overdue call %s (closed %s)", call.ID, call.ClosingTime.Format(time.RFC3339))
	}

	return nil
}
