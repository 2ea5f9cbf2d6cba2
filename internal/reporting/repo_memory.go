package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"voiceai-platform/internal/booking"
	"voiceai-platform/internal/calls"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early
// development. It enforces tenant isolation on reads.
type MemoryRepo struct {
	mu sync.Mutex

	Calls        []calls.Call
	Appointments []booking.Appointment
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListCalls(_ context.Context, tenantID string, from, to time.Time) ([]calls.Call, error) {
	if tenantID == "" {
		return nil, errors.New("tenant_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calls.Call, 0)
	for _, c := range r.Calls {
		if c.TenantID != tenantID {
			continue
		}
		if !c.CreatedAt.IsZero() {
			if c.CreatedAt.Before(from) || !c.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) ListAppointments(_ context.Context, tenantID string, from, to time.Time) ([]booking.Appointment, error) {
	if tenantID == "" {
		return nil, errors.New("tenant_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]booking.Appointment, 0)
	for _, a := range r.Appointments {
		if a.TenantID != tenantID {
			continue
		}
		if !a.CreatedAt.IsZero() {
			if a.CreatedAt.Before(from) || !a.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}
