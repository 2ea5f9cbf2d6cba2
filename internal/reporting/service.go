package reporting

import (
	"context"
	"errors"
	"time"

	"voiceai-platform/internal/booking"
	"voiceai-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations must enforce tenant filtering and should read from the
// immutable sources (call records, appointments), never session state.
type Repository interface {
	ListCalls(ctx context.Context, tenantID string, from, to time.Time) ([]calls.Call, error)
	ListAppointments(ctx context.Context, tenantID string, from, to time.Time) ([]booking.Appointment, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CallsSummary(ctx context.Context, req SummaryRequest) (CallsSummary, error) {
	if err := s.check(req); err != nil {
		return CallsSummary{}, err
	}

	rows, err := s.repo.ListCalls(ctx, req.TenantID, req.Range.From, req.Range.To)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{TenantID: req.TenantID}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalTurns += c.Turns
		if c.Urgent {
			out.UrgentCalls++
		}
		switch c.Status {
		case calls.CallStatusCompleted:
			out.CompletedCalls++
		case calls.CallStatusFailed:
			out.FailedCalls++
		}
		switch c.Outcome {
		case calls.OutcomeBooked:
			out.BookedCalls++
		case calls.OutcomeTransferred:
			out.TransferredCalls++
		case calls.OutcomeAbandoned:
			out.AbandonedCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageTurns = float64(out.TotalTurns) / float64(out.TotalCalls)
		out.BookingRate = float64(out.BookedCalls) / float64(out.TotalCalls)
	}
	return out, nil
}

func (s *Service) BookingsSummary(ctx context.Context, req SummaryRequest) (BookingsSummary, error) {
	if err := s.check(req); err != nil {
		return BookingsSummary{}, err
	}

	rows, err := s.repo.ListAppointments(ctx, req.TenantID, req.Range.From, req.Range.To)
	if err != nil {
		return BookingsSummary{}, err
	}

	out := BookingsSummary{
		TenantID:         req.TenantID,
		ByServiceType:    map[string]int{},
		ByTimePreference: map[string]int{},
	}
	for _, a := range rows {
		out.TotalBookings++
		if a.Urgent {
			out.UrgentBookings++
		}
		out.ByServiceType[a.ServiceType]++
		out.ByTimePreference[a.TimePreference]++
	}
	return out, nil
}

func (s *Service) check(req SummaryRequest) error {
	if req.TenantID == "" {
		return ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return ErrInvalidRequest
	}
	if s.repo == nil {
		return errors.New("reporting: repository not configured")
	}
	return nil
}
