package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryCrypto     Category = "crypto"
	CategorySports     Category = "sports"
	CategoryMusic      Category = "music"
	CategoryStreaming  Category = "streaming"
	CategoryEconomic   Category = "economic"
	CategoryWeather    Category = "weather"
	CategoryElections  Category = "elections"
	CategoryTechnology Category = "technology"
)

// Categories lists every valid market category.
var Categories = []Category{
	CategoryCrypto, CategorySports, CategoryMusic, CategoryStreaming,
	CategoryEconomic, CategoryWeather, CategoryElections, CategoryTechnology,
}

type Regime string

const (
	// RegimeEventBased resolves because a discrete event occurs by a deadline.
	// Closing time must precede the event by at least the configured buffer.
	RegimeEventBased Regime = "event_based"
	// RegimeMeasurementPeriod resolves by measuring a quantity over a future
	// window. Closing time must precede the window start.
	RegimeMeasurementPeriod Regime = "measurement_period"
)

type CallStatus string

const (
	CallStatusOpen     CallStatus = "OPEN"
	CallStatusResolved CallStatus = "RESOLVED"
	CallStatusVoid     CallStatus = "VOID"
)

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
	OutcomeVoid Outcome = "VOID"
)

type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Call is one caller's structured, timed, wagered prediction, tracked from
// creation through resolution. Outcome is set exactly once.
type Call struct {
	ID               string          `gorm:"size:16;primaryKey" json:"id"`
	CallerID         string          `gorm:"size:64;not null;index" json:"caller_id"`
	PredictionText   string          `gorm:"type:text;not null" json:"prediction_text"`
	Question         string          `gorm:"size:500;not null" json:"question"`
	Category         Category        `gorm:"size:50;not null;index" json:"category"`
	Regime           Regime          `gorm:"size:50;not null" json:"regime"`
	ClosingTime      time.Time       `gorm:"not null;index" json:"closing_time"`
	EventTime        *time.Time      `json:"event_time,omitempty"`
	MeasurementStart *time.Time      `json:"measurement_start,omitempty"`
	MeasurementEnd   *time.Time      `json:"measurement_end,omitempty"`
	DataSource       string          `gorm:"size:255;not null" json:"data_source"`
	DataSourceURL    string          `gorm:"size:500" json:"data_source_url"`
	BackupSource     string          `gorm:"size:255" json:"backup_source"`
	WagerAmount      decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"wager_amount"`
	Side             Side            `gorm:"size:10;not null" json:"side"`
	LedgerRef        *string         `gorm:"size:255" json:"ledger_ref,omitempty"`
	Status           CallStatus      `gorm:"size:20;not null;default:OPEN;index" json:"status"`
	Outcome          *Outcome        `gorm:"size:10" json:"outcome,omitempty"`
	CreatedAt        time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
}

func (Call) TableName() string {
	return "calls"
}

// Resolved reports whether the call has left the OPEN state.
func (c *Call) Resolved() bool {
	return c.Status != CallStatusOpen
}

// SeenEvent records a normalized question hash so the pipeline can refuse
// to create the same market twice.
type SeenEvent struct {
	Hash      string    `gorm:"size:64;primaryKey" json:"hash"`
	Question  string    `gorm:"size:500;not null" json:"question"`
	Category  Category  `gorm:"size:50;not null" json:"category"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SeenEvent) TableName() string {
	return "seen_events"
}
