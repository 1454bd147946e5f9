package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"calls-tracker/internal/models"

	"gorm.io/gorm"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)
var spaceRe = regexp.MustCompile(`\s+`)

// DedupService tracks questions already turned into calls so the same
// event cannot spawn two markets.
type DedupService struct {
	db *gorm.DB
}

func NewDedupService(db *gorm.DB) *DedupService {
	return &DedupService{db: db}
}

// EventHash produces a stable fingerprint of a question within its
// category. Case, punctuation and whitespace do not affect the hash.
func EventHash(question string, category models.Category) string {
	normalized := strings.ToLower(question)
	normalized = nonAlnumRe.ReplaceAllString(normalized, "")
	normalized = spaceRe.ReplaceAllString(strings.TrimSpace(normalized), " ")

	sum := sha256.Sum256([]byte(string(category) + "|" + normalized))
	return hex.EncodeToString(sum[:16])
}

// Seen reports whether a question was already recorded.
func (s *DedupService) Seen(question string, category models.Category) (bool, error) {
	hash := EventHash(question, category)

	var event models.SeenEvent
	err := s.db.Where("hash = ?", hash).First(&event).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check seen events: %w", err)
}

// Record marks a question as seen. Recording the same question twice is
// not an error.
func (s *DedupService) Record(question string, category models.Category) error {
	event := models.SeenEvent{
		Hash:      EventHash(question, category),
		Question:  question,
		Category:  category,
		CreatedAt: time.Now(),
	}

	err := s.db.Create(&event).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		// Primary key collision on replays is fine; anything else is not.
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate key") {
			return nil
		}
		return fmt.Errorf("failed to record seen event: %w", err)
	}
	return nil
}
