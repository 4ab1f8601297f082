package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/taxrisk/internal/domain/event"
	"github.com/bibbank/taxrisk/internal/domain/valueobject"
	"github.com/bibbank/taxrisk/pkg/events"
	"github.com/bibbank/taxrisk/pkg/money"
)

// VerdictRecord is the aggregate root persisted for audit: one scored filing.
type VerdictRecord struct {
	scoredAt        time.Time
	businessID      string
	category        valueobject.BusinessCategory
	declaredRevenue *money.Money
	estimate        RevenueEstimate
	gapRatio        *float64
	verdict         ConsensusVerdict
	patterns        PatternReport
	collector       events.EventCollector
	tenantID        uuid.UUID
	id              uuid.UUID
}

// NewVerdictRecord captures a freshly computed verdict and records its domain events.
func NewVerdictRecord(
	tenantID uuid.UUID,
	profile BusinessProfile,
	estimate RevenueEstimate,
	gapRatio *float64,
	verdict ConsensusVerdict,
	patterns PatternReport,
) (*VerdictRecord, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("tenant ID is required")
	}
	if profile.BusinessID() == "" {
		return nil, fmt.Errorf("business ID is required")
	}
	if verdict.RiskTier().IsZero() {
		return nil, fmt.Errorf("verdict has no risk tier")
	}

	r := &VerdictRecord{
		id:         uuid.New(),
		tenantID:   tenantID,
		businessID: profile.BusinessID(),
		category:   profile.Category(),
		estimate:   estimate,
		verdict:    verdict,
		patterns:   patterns,
		scoredAt:   time.Now().UTC(),
	}
	if declared, ok := profile.DeclaredRevenue(); ok {
		r.declaredRevenue = &declared
	}
	if gapRatio != nil {
		g := *gapRatio
		r.gapRatio = &g
	}

	contributing := make([]string, 0, len(verdict.contributing))
	for _, s := range verdict.contributing {
		contributing = append(contributing, s.ScorerID())
	}
	excluded := make([]string, 0, len(verdict.excluded))
	for _, x := range verdict.excluded {
		excluded = append(excluded, x.ScorerID)
	}
	matched := make([]string, 0, len(patterns.checks))
	for _, c := range patterns.Matched() {
		matched = append(matched, c.Type)
	}

	r.collector.Record(event.NewVerdictIssued(
		r.id.String(), r.tenantID.String(), r.businessID, r.category.String(),
		verdict.FinalScore(), verdict.RiskTier().String(),
		contributing, excluded, matched, r.scoredAt,
	))

	if verdict.RiskTier().Equal(valueobject.RiskTierCritical) {
		r.collector.Record(event.NewCriticalRiskDetected(
			r.id.String(), r.tenantID.String(), r.businessID,
			verdict.FinalScore(), verdict.Explanation(), r.scoredAt,
		))
	}

	return r, nil
}

// ReconstructVerdictRecord rebuilds a record from persisted data (no validation, no events).
func ReconstructVerdictRecord(
	id, tenantID uuid.UUID,
	businessID string,
	category valueobject.BusinessCategory,
	declaredRevenue *money.Money,
	estimate RevenueEstimate,
	gapRatio *float64,
	verdict ConsensusVerdict,
	patterns PatternReport,
	scoredAt time.Time,
) *VerdictRecord {
	return &VerdictRecord{
		id:              id,
		tenantID:        tenantID,
		businessID:      businessID,
		category:        category,
		declaredRevenue: declaredRevenue,
		estimate:        estimate,
		gapRatio:        gapRatio,
		verdict:         verdict,
		patterns:        patterns,
		scoredAt:        scoredAt,
	}
}

// --- Accessors ---

func (r *VerdictRecord) ID() uuid.UUID                          { return r.id }
func (r *VerdictRecord) TenantID() uuid.UUID                    { return r.tenantID }
func (r *VerdictRecord) BusinessID() string                     { return r.businessID }
func (r *VerdictRecord) Category() valueobject.BusinessCategory { return r.category }
func (r *VerdictRecord) Estimate() RevenueEstimate              { return r.estimate }
func (r *VerdictRecord) Verdict() ConsensusVerdict              { return r.verdict }
func (r *VerdictRecord) Patterns() PatternReport                { return r.patterns }
func (r *VerdictRecord) ScoredAt() time.Time                    { return r.scoredAt }

// DeclaredRevenue returns the declared revenue at scoring time, if any.
func (r *VerdictRecord) DeclaredRevenue() (money.Money, bool) {
	if r.declaredRevenue == nil {
		return money.Money{}, false
	}
	return *r.declaredRevenue, true
}

// GapRatio returns declared / expected midpoint, if revenue was declared.
func (r *VerdictRecord) GapRatio() (float64, bool) {
	if r.gapRatio == nil {
		return 0, false
	}
	return *r.gapRatio, true
}

// DomainEvents returns all accumulated domain events and clears them.
func (r *VerdictRecord) DomainEvents() []events.DomainEvent {
	return r.collector.Drain()
}
