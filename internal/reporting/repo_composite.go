package reporting

import (
	"context"
	"time"

	"voiceai-platform/internal/booking"
	"voiceai-platform/internal/calls"
)

// CompositeRepo serves reports straight from the call log and appointment
// repositories, avoiding a separate reporting schema.
type CompositeRepo struct {
	Calls    calls.Repository
	Bookings booking.Repository
}

func NewCompositeRepo(c calls.Repository, b booking.Repository) *CompositeRepo {
	return &CompositeRepo{Calls: c, Bookings: b}
}

func (r *CompositeRepo) ListCalls(ctx context.Context, tenantID string, from, to time.Time) ([]calls.Call, error) {
	return r.Calls.ListByTenant(ctx, tenantID, from, to)
}

func (r *CompositeRepo) ListAppointments(ctx context.Context, tenantID string, from, to time.Time) ([]booking.Appointment, error) {
	rows, err := r.Bookings.ListByTenant(ctx, tenantID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]booking.Appointment, 0, len(rows))
	for _, a := range rows {
		if !a.CreatedAt.IsZero() {
			if a.CreatedAt.Before(from) || !a.CreatedAt.Before(to) {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}
