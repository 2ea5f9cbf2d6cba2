package audit

import "time"

// Event is an immutable, append-only audit record of call lifecycle and
// booking activity.
//
// Invariants:
// - Events are never updated or deleted.
// - tenant_id is required for tenancy isolation.
// - Audit writes are best-effort; call handling never blocks on them.
type Event struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	// Type indicates the business category of the record.
	Type EventType `json:"type" db:"type"`

	// CallID ties the event to a phone call when applicable.
	CallID string `json:"call_id,omitempty" db:"call_id"`

	// ActorUserID is set for admin API actions, empty for caller-driven ones.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	IPAddress   string `json:"ip_address,omitempty" db:"ip_address"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallStarted     EventType = "call_started"
	EventTypeCallEnded       EventType = "call_ended"
	EventTypeCallTransferred EventType = "call_transferred"
	EventTypeBookingCreated  EventType = "booking_created"
	EventTypeEscalation      EventType = "ai_escalation"
	EventTypeAdminAction     EventType = "admin_action"
)
