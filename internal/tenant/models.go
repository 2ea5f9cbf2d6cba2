package tenant

import "time"

// Practice is one dental office served by the platform. Every call, session,
// and appointment is scoped to exactly one practice.
//
// Multi-tenant invariant: TenantID is required on every row of every
// dependent table.
type Practice struct {
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Name     string `json:"name" db:"name"`
	Active   bool   `json:"active" db:"active"`

	// TransferNumber receives escalated calls (low-confidence assistant
	// replies, booking failures). Empty disables transfer.
	TransferNumber string `json:"transfer_number" db:"transfer_number"`

	// Greeting overrides the stock opening line when set.
	Greeting      string `json:"greeting,omitempty" db:"greeting"`
	BusinessHours string `json:"business_hours,omitempty" db:"business_hours"`
	Services      string `json:"services,omitempty" db:"services"`

	// VoiceName selects the telephony provider's TTS voice.
	VoiceName string `json:"voice_name,omitempty" db:"voice_name"`

	// ConfidenceThreshold and MaxConcurrentCalls override platform defaults
	// when positive.
	ConfidenceThreshold float64 `json:"confidence_threshold,omitempty" db:"confidence_threshold"`
	MaxConcurrentCalls  int     `json:"max_concurrent_calls,omitempty" db:"max_concurrent_calls"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
