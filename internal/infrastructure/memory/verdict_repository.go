// Package memory holds process-local adapters for one-shot CLI runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bibbank/taxrisk/internal/domain/model"
	"github.com/bibbank/taxrisk/internal/domain/port"
)

var _ port.VerdictRepository = (*VerdictRepository)(nil)

// VerdictRepository keeps verdicts in memory, scoped by tenant.
type VerdictRepository struct {
	mu       sync.RWMutex
	verdicts map[uuid.UUID]*model.VerdictRecord
}

// NewVerdictRepository creates an empty repository.
func NewVerdictRepository() *VerdictRepository {
	return &VerdictRepository{verdicts: map[uuid.UUID]*model.VerdictRecord{}}
}

func (r *VerdictRepository) Save(_ context.Context, record *model.VerdictRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts[record.ID()] = record
	return nil
}

func (r *VerdictRepository) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.VerdictRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.verdicts[id]
	if !ok || rec.TenantID() != tenantID {
		return nil, nil
	}
	return rec, nil
}

// FindByBusinessID returns newest first, ties broken by id, like the SQL store.
func (r *VerdictRepository) FindByBusinessID(_ context.Context, tenantID uuid.UUID, businessID string, limit, offset int) ([]*model.VerdictRecord, error) {
	r.mu.RLock()
	var matches []*model.VerdictRecord
	for _, rec := range r.verdicts {
		if rec.TenantID() == tenantID && rec.BusinessID() == businessID {
			matches = append(matches, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if !a.ScoredAt().Equal(b.ScoredAt()) {
			return a.ScoredAt().After(b.ScoredAt())
		}
		return a.ID().String() < b.ID().String()
	})

	if offset >= len(matches) {
		return nil, nil
	}
	end := len(matches)
	if limit > 0 {
		end = min(offset+limit, end)
	}
	return matches[offset:end], nil
}
