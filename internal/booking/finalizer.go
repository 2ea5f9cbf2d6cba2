package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidArgument = errors.New("booking: invalid argument")
	ErrNotFound        = errors.New("booking: not found")
)

// Repository is the persistence contract for appointments.
//
// CreateIfAbsent must be atomic on call_id: concurrent or redelivered
// finalizes for the same call settle on a single row, and the winner is
// returned to every caller.
type Repository interface {
	CreateIfAbsent(ctx context.Context, a Appointment) (Appointment, error)
	GetByCallID(ctx context.Context, tenantID, callID string) (Appointment, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]Appointment, error)
}

// FinalizeRequest is a completed slot set plus call/tenant identifiers.
type FinalizeRequest struct {
	TenantID string
	CallID   string

	PatientName    string
	Phone          string
	ServiceType    string
	TimePreference string
	Urgent         bool
}

// Finalizer converts a fully-collected slot set into a persisted booking.
type Finalizer struct {
	repo  Repository
	clock func() time.Time
}

func NewFinalizer(repo Repository) *Finalizer {
	return &Finalizer{repo: repo, clock: time.Now}
}

// Finalize creates the appointment exactly once per call_id. Invoking it
// again for the same call (webhook redelivery at the confirm step) returns
// the existing confirmation.
func (f *Finalizer) Finalize(ctx context.Context, req FinalizeRequest) (Appointment, error) {
	if f.repo == nil {
		return Appointment{}, errors.New("booking: repository not configured")
	}
	if req.TenantID == "" || req.CallID == "" {
		return Appointment{}, ErrInvalidArgument
	}
	if req.PatientName == "" || req.ServiceType == "" || req.TimePreference == "" {
		return Appointment{}, ErrInvalidArgument
	}

	a := Appointment{
		ID:               uuid.NewString(),
		ConfirmationCode: newConfirmationCode(),
		TenantID:         req.TenantID,
		CallID:           req.CallID,
		PatientName:      req.PatientName,
		Phone:            req.Phone,
		ServiceType:      req.ServiceType,
		TimePreference:   req.TimePreference,
		Urgent:           req.Urgent,
		Status:           StatusPending,
		CreatedAt:        f.clock().UTC(),
	}
	return f.repo.CreateIfAbsent(ctx, a)
}

// newConfirmationCode produces a short caller-readable code. Uniqueness is
// per-call best effort; the appointment id stays the real key.
func newConfirmationCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "APT-" + raw[:6]
}
