package models

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Violation is one failed (or advisory) rule check. Rule identifiers are
// stable strings so callers can branch on them.
type Violation struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
}

// ValidationResult is a batch of violations. Approved is true iff no
// violation is critical and, when an external review participated, the
// external verdict was also positive.
type ValidationResult struct {
	Approved   bool        `json:"approved"`
	Violations []Violation `json:"violations"`
}

// HasCritical reports whether any violation blocks approval.
func (r ValidationResult) HasCritical() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
