package booking

import "time"

// Appointment is the booking outcome of a completed call.
//
// Tenancy invariant: TenantID is required on every row.
// Idempotency invariant: at most one appointment per call_id; a retried
// finalize returns the existing row instead of inserting a duplicate.
type Appointment struct {
	ID               string `json:"id" db:"id"`
	ConfirmationCode string `json:"confirmation_code" db:"confirmation_code"`

	TenantID string `json:"tenant_id" db:"tenant_id"`
	CallID   string `json:"call_id" db:"call_id"`

	PatientName    string `json:"patient_name" db:"patient_name"`
	Phone          string `json:"phone" db:"phone"`
	ServiceType    string `json:"service_type" db:"service_type"`
	TimePreference string `json:"time_preference" db:"time_preference"`

	Urgent bool              `json:"urgent" db:"urgent"`
	Status AppointmentStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCanceled  AppointmentStatus = "canceled"
)
