package calls

import "time"

// Call is the tenant-scoped record of one phone call handled by the platform.
//
// Multi-tenant invariant: TenantID is required on every row.
//
// Provider-specific identifiers (the Twilio CallSid) live in ProviderCallID;
// the model itself stays provider-agnostic.
type Call struct {
	CallID         string `json:"call_id" db:"call_id"`
	ProviderCallID string `json:"provider_call_id" db:"provider_call_id"`
	TenantID       string `json:"tenant_id" db:"tenant_id"`

	From string `json:"from" db:"from_number"`
	To   string `json:"to" db:"to_number"`

	Status  CallStatus  `json:"status" db:"status"`
	Outcome CallOutcome `json:"outcome,omitempty" db:"outcome"`

	// Turns counts caller webhook turns handled for this call.
	Turns  int  `json:"turns" db:"turns"`
	Urgent bool `json:"urgent" db:"urgent"`

	// ConfirmationCode is set when the call produced a booking.
	ConfirmationCode string `json:"confirmation_code,omitempty" db:"confirmation_code"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
)

// CallOutcome is how the conversation ended, independent of the telephony
// status.
type CallOutcome string

const (
	OutcomeBooked      CallOutcome = "booked"
	OutcomeTransferred CallOutcome = "transferred"
	OutcomeAbandoned   CallOutcome = "abandoned"
	OutcomeError       CallOutcome = "error"
)
