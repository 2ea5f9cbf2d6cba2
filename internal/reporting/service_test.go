package reporting

import (
	"context"
	"testing"
	"time"

	"voiceai-platform/internal/booking"
	"voiceai-platform/internal/calls"
)

func testRange() Range {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return Range{From: from, To: from.Add(24 * time.Hour)}
}

func TestCallsSummaryAggregatesOutcomes(t *testing.T) {
	rng := testRange()
	inWindow := rng.From.Add(time.Hour)

	repo := NewMemoryRepo()
	repo.Calls = []calls.Call{
		{CallID: "c1", TenantID: "t1", Status: calls.CallStatusCompleted, Outcome: calls.OutcomeBooked, Turns: 5, CreatedAt: inWindow},
		{CallID: "c2", TenantID: "t1", Status: calls.CallStatusCompleted, Outcome: calls.OutcomeTransferred, Urgent: true, Turns: 2, CreatedAt: inWindow},
		{CallID: "c3", TenantID: "t1", Status: calls.CallStatusFailed, Outcome: calls.OutcomeError, Turns: 1, CreatedAt: inWindow},
		{CallID: "other", TenantID: "t2", Status: calls.CallStatusCompleted, Outcome: calls.OutcomeBooked, CreatedAt: inWindow},
		{CallID: "stale", TenantID: "t1", Status: calls.CallStatusCompleted, Outcome: calls.OutcomeBooked, CreatedAt: rng.From.Add(-time.Hour)},
	}

	out, err := NewService(repo).CallsSummary(context.Background(), SummaryRequest{TenantID: "t1", Range: rng})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.TotalCalls != 3 {
		t.Fatalf("expected 3 calls, got %d", out.TotalCalls)
	}
	if out.BookedCalls != 1 || out.TransferredCalls != 1 || out.FailedCalls != 1 {
		t.Fatalf("unexpected outcome counts: %+v", out)
	}
	if out.UrgentCalls != 1 {
		t.Fatalf("expected 1 urgent call, got %d", out.UrgentCalls)
	}
	if out.BookingRate <= 0.33 || out.BookingRate >= 0.34 {
		t.Fatalf("unexpected booking rate: %f", out.BookingRate)
	}
}

func TestBookingsSummaryGroupsByType(t *testing.T) {
	rng := testRange()
	inWindow := rng.From.Add(time.Hour)

	repo := NewMemoryRepo()
	repo.Appointments = []booking.Appointment{
		{ID: "a1", TenantID: "t1", ServiceType: "cleaning", TimePreference: "morning", CreatedAt: inWindow},
		{ID: "a2", TenantID: "t1", ServiceType: "cleaning", TimePreference: "afternoon", CreatedAt: inWindow},
		{ID: "a3", TenantID: "t1", ServiceType: "emergency", TimePreference: "morning", Urgent: true, CreatedAt: inWindow},
		{ID: "a4", TenantID: "t2", ServiceType: "checkup", TimePreference: "morning", CreatedAt: inWindow},
	}

	out, err := NewService(repo).BookingsSummary(context.Background(), SummaryRequest{TenantID: "t1", Range: rng})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.TotalBookings != 3 || out.UrgentBookings != 1 {
		t.Fatalf("unexpected totals: %+v", out)
	}
	if out.ByServiceType["cleaning"] != 2 || out.ByServiceType["emergency"] != 1 {
		t.Fatalf("unexpected service grouping: %+v", out.ByServiceType)
	}
	if out.ByTimePreference["morning"] != 2 {
		t.Fatalf("unexpected time grouping: %+v", out.ByTimePreference)
	}
}

func TestSummaryRejectsInvalidRange(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	_, err := svc.CallsSummary(context.Background(), SummaryRequest{TenantID: "t1"})
	if err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	rng := testRange()
	_, err = svc.CallsSummary(context.Background(), SummaryRequest{Range: rng})
	if err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest for missing tenant, got %v", err)
	}
}
