package models

import "time"

// Proposal is the parser's transient output: one pipeline invocation creates
// it, the classifier and validator refine it, and a Call is minted from it.
// It is never persisted.
type Proposal struct {
	RawText          string     `json:"raw_text"`
	Category         Category   `json:"category"`
	AssetTicker      string     `json:"asset_ticker,omitempty"`
	AssetName        string     `json:"asset_name,omitempty"`
	PriceTarget      *float64   `json:"price_target,omitempty"`
	Direction        string     `json:"direction,omitempty"` // "UP", "DOWN" or empty
	Question         string     `json:"question"`
	Regime           Regime     `json:"regime"` // advisory pre-tag; the classifier's determination wins
	ClosingTime      time.Time  `json:"closing_time"`
	EventTime        *time.Time `json:"event_time,omitempty"`
	MeasurementStart *time.Time `json:"measurement_start,omitempty"`
	MeasurementEnd   *time.Time `json:"measurement_end,omitempty"`
	DataSource       string     `json:"data_source"`
	DataSourceURL    string     `json:"data_source_url"`
	BackupSource     string     `json:"backup_source"`
	Side             Side       `json:"side"`
	Confidence       float64    `json:"confidence"` // 0-1, how confident the parser is
}

// TimingClassification is the authoritative regime determination for a
// synthesized question plus its compliance verdict.
type TimingClassification struct {
	Regime           Regime     `json:"regime"`
	EventTime        *time.Time `json:"event_time,omitempty"`
	MeasurementStart *time.Time `json:"measurement_start,omitempty"`
	Compliant        bool       `json:"compliant"`
	Reason           string     `json:"reason"`
}
