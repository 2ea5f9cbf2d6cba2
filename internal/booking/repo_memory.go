package booking

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory appointment repository for tests and early
// development. Keyed by call_id to mirror the Postgres unique constraint.
type MemoryRepo struct {
	mu     sync.Mutex
	byCall map[string]Appointment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byCall: map[string]Appointment{}}
}

func (r *MemoryRepo) CreateIfAbsent(ctx context.Context, a Appointment) (Appointment, error) {
	if a.TenantID == "" || a.CallID == "" {
		return Appointment{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byCall[a.CallID]; ok {
		return existing, nil
	}
	r.byCall[a.CallID] = a
	return a, nil
}

func (r *MemoryRepo) GetByCallID(ctx context.Context, tenantID, callID string) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byCall[callID]
	if !ok || a.TenantID != tenantID {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Appointment, 0)
	for _, a := range r.byCall {
		if a.TenantID != tenantID {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
