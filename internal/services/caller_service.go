package services

import (
	"errors"
	"fmt"
	"time"

	"calls-tracker/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CallerService manages caller identity.
type CallerService struct {
	db *gorm.DB
}

func NewCallerService(db *gorm.DB) *CallerService {
	return &CallerService{db: db}
}

// ProcessWalletLogin finds or creates the caller bound to a wallet
// address. New callers start with a zeroed profile.
func (s *CallerService) ProcessWalletLogin(walletAddress, name string) (*models.Caller, error) {
	var caller models.Caller
	err := s.db.Where("wallet_address = ?", walletAddress).First(&caller).Error
	if err == nil {
		return &caller, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up caller: %w", err)
	}

	if name == "" {
		name = shortWallet(walletAddress)
	}

	now := time.Now()
	caller = models.Caller{
		ID:            newCallID(),
		Name:          name,
		WalletAddress: &walletAddress,
		TotalWagered:  decimal.Zero,
		TotalWon:      decimal.Zero,
		TotalLost:     decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.Create(&caller).Error; err != nil {
		return nil, fmt.Errorf("failed to create caller: %w", err)
	}
	return &caller, nil
}

// GetCallerByID fetches a caller by ID.
func (s *CallerService) GetCallerByID(id string) (*models.Caller, error) {
	var caller models.Caller
	if err := s.db.Where("id = ?", id).First(&caller).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCallerNotFound
		}
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}
	return &caller, nil
}

func shortWallet(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:4] + ".." + address[len(address)-4:]
}
