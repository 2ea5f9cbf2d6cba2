package reporting

import "time"

type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type SummaryRequest struct {
	TenantID string `json:"tenant_id"`
	Range    Range  `json:"range"`
}

// CallsSummary aggregates call outcomes for one tenant and window.
type CallsSummary struct {
	TenantID string `json:"tenant_id"`

	TotalCalls     int `json:"total_calls"`
	CompletedCalls int `json:"completed_calls"`
	FailedCalls    int `json:"failed_calls"`

	BookedCalls      int `json:"booked_calls"`
	TransferredCalls int `json:"transferred_calls"`
	AbandonedCalls   int `json:"abandoned_calls"`
	UrgentCalls      int `json:"urgent_calls"`

	TotalTurns   int     `json:"total_turns"`
	AverageTurns float64 `json:"average_turns"`

	// BookingRate is booked calls over total calls.
	BookingRate float64 `json:"booking_rate"`
}

// BookingsSummary aggregates finalized appointments for one tenant and window.
type BookingsSummary struct {
	TenantID string `json:"tenant_id"`

	TotalBookings  int `json:"total_bookings"`
	UrgentBookings int `json:"urgent_bookings"`

	ByServiceType    map[string]int `json:"by_service_type"`
	ByTimePreference map[string]int `json:"by_time_preference"`
}
