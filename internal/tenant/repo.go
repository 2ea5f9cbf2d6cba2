package tenant

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound        = errors.New("tenant: practice not found")
	ErrInvalidArgument = errors.New("tenant: invalid argument")
)

type Repository interface {
	Get(ctx context.Context, tenantID string) (Practice, error)
	Upsert(ctx context.Context, p Practice) error
	List(ctx context.Context) ([]Practice, error)
}

// MemoryRepo backs tests and early development.
type MemoryRepo struct {
	mu        sync.RWMutex
	practices map[string]Practice
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{practices: make(map[string]Practice)}
}

func (r *MemoryRepo) Get(_ context.Context, tenantID string) (Practice, error) {
	if tenantID == "" {
		return Practice{}, ErrInvalidArgument
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.practices[tenantID]
	if !ok {
		return Practice{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) Upsert(_ context.Context, p Practice) error {
	if p.TenantID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.practices[p.TenantID] = p
	return nil
}

func (r *MemoryRepo) List(_ context.Context) ([]Practice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Practice, 0, len(r.practices))
	for _, p := range r.practices {
		out = append(out, p)
	}
	return out, nil
}
