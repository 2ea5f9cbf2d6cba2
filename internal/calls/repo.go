package calls

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound        = errors.New("calls: call not found")
	ErrInvalidArgument = errors.New("calls: invalid argument")
)

type Repository interface {
	Upsert(ctx context.Context, c Call) error
	Get(ctx context.Context, tenantID, callID string) (Call, error)
	ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]Call, error)
}

// MemoryRepo backs tests and single-process deployments.
type MemoryRepo struct {
	mu    sync.Mutex
	calls map[string]Call
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{calls: make(map[string]Call)}
}

func (r *MemoryRepo) Upsert(_ context.Context, c Call) error {
	if c.TenantID == "" || c.CallID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[c.CallID] = c
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, tenantID, callID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[callID]
	if !ok || c.TenantID != tenantID {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) ListByTenant(_ context.Context, tenantID string, from, to time.Time) ([]Call, error) {
	if tenantID == "" {
		return nil, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, 0)
	for _, c := range r.calls {
		if c.TenantID != tenantID {
			continue
		}
		if !from.IsZero() && c.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !c.CreatedAt.Before(to) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
