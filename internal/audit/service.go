package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Service logs internal audit information. Callers treat it as best-effort:
// a failed audit write is logged and swallowed, never surfaced to the caller
// on the phone.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.TenantID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCall records a call lifecycle event.
func (s *Service) LogCall(ctx context.Context, typ EventType, tenantID, callID, message string) error {
	return s.Append(ctx, Event{
		TenantID: tenantID,
		Type:     typ,
		CallID:   callID,
		Message:  message,
	})
}

// LogBooking records a finalized appointment against its call.
func (s *Service) LogBooking(ctx context.Context, tenantID, callID, confirmationCode string) error {
	return s.Append(ctx, Event{
		TenantID: tenantID,
		Type:     EventTypeBookingCreated,
		CallID:   callID,
		Message:  "appointment booked",
		Metadata: `{"confirmation_code":"` + confirmationCode + `"}`,
	})
}

// LogAdminAction records an authenticated admin API action.
func (s *Service) LogAdminAction(ctx context.Context, tenantID, actorUserID, ip, message string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeAdminAction,
		ActorUserID: actorUserID,
		IPAddress:   ip,
		Message:     message,
	})
}
