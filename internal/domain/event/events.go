package event

import (
	"time"

	"github.com/bibbank/taxrisk/pkg/events"
)

const (
	// EventTypeVerdictIssued is emitted whenever a filing has been scored.
	EventTypeVerdictIssued = "taxrisk.verdict.issued"

	// EventTypeCriticalRiskDetected is emitted for verdicts in the CRITICAL tier.
	EventTypeCriticalRiskDetected = "taxrisk.critical_risk.detected"

	aggregateTypeVerdict = "Verdict"
)

// VerdictIssued is published when a consensus verdict has been recorded for a filing.
type VerdictIssued struct {
	events.BaseEvent
	BusinessID       string    `json:"business_id"`
	BusinessCategory string    `json:"business_category"`
	FinalScore       float64   `json:"final_score"`
	RiskTier         string    `json:"risk_tier"`
	Contributing     []string  `json:"contributing_scorers"`
	Excluded         []string  `json:"excluded_scorers"`
	MatchedPatterns  []string  `json:"matched_patterns"`
	ScoredAt         time.Time `json:"scored_at"`
}

// NewVerdictIssued builds the event for verdictID.
func NewVerdictIssued(
	verdictID, tenantID, businessID, category string,
	finalScore float64,
	tier string,
	contributing, excluded, matchedPatterns []string,
	scoredAt time.Time,
) VerdictIssued {
	return VerdictIssued{
		BaseEvent:        events.NewBaseEvent(EventTypeVerdictIssued, verdictID, aggregateTypeVerdict, tenantID),
		BusinessID:       businessID,
		BusinessCategory: category,
		FinalScore:       finalScore,
		RiskTier:         tier,
		Contributing:     contributing,
		Excluded:         excluded,
		MatchedPatterns:  matchedPatterns,
		ScoredAt:         scoredAt,
	}
}

// CriticalRiskDetected is published for CRITICAL verdicts so investigators can be alerted.
type CriticalRiskDetected struct {
	events.BaseEvent
	BusinessID  string    `json:"business_id"`
	FinalScore  float64   `json:"final_score"`
	Explanation string    `json:"explanation"`
	DetectedAt  time.Time `json:"detected_at"`
}

// NewCriticalRiskDetected builds the alert event for verdictID.
func NewCriticalRiskDetected(verdictID, tenantID, businessID string, finalScore float64, explanation string, detectedAt time.Time) CriticalRiskDetected {
	return CriticalRiskDetected{
		BaseEvent:   events.NewBaseEvent(EventTypeCriticalRiskDetected, verdictID, aggregateTypeVerdict, tenantID),
		BusinessID:  businessID,
		FinalScore:  finalScore,
		Explanation: explanation,
		DetectedAt:  detectedAt,
	}
}
