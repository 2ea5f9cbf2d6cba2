package booking

import (
	"context"
	"database/sql"
	"errors"

	"voiceai-platform/pkg/utils"
)

// PostgresRepo persists appointments in the appointments table.
//
// Schema expectation:
//
//	CREATE TABLE appointments (
//	    id                 UUID PRIMARY KEY,
//	    confirmation_code  TEXT NOT NULL,
//	    tenant_id          TEXT NOT NULL,
//	    call_id            TEXT NOT NULL UNIQUE,
//	    patient_name       TEXT NOT NULL,
//	    phone              TEXT NOT NULL DEFAULT '',
//	    service_type       TEXT NOT NULL,
//	    time_preference    TEXT NOT NULL,
//	    urgent             BOOLEAN NOT NULL DEFAULT FALSE,
//	    status             TEXT NOT NULL,
//	    created_at         TIMESTAMPTZ NOT NULL
//	);
//
// The UNIQUE constraint on call_id is what makes finalize idempotent under
// at-least-once webhook delivery.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) CreateIfAbsent(ctx context.Context, a Appointment) (Appointment, error) {
	if a.TenantID == "" || a.CallID == "" {
		return Appointment{}, ErrInvalidArgument
	}
	var out Appointment
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO appointments
				(id, confirmation_code, tenant_id, call_id, patient_name, phone, service_type, time_preference, urgent, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (call_id) DO NOTHING
		`, a.ID, a.ConfirmationCode, a.TenantID, a.CallID, a.PatientName, a.Phone, a.ServiceType, a.TimePreference, a.Urgent, a.Status, a.CreatedAt)
		if err != nil {
			return err
		}
		// Re-read inside the same transaction so a redelivered finalize
		// observes the winning row.
		out, err = scanByCallID(ctx, tx, a.TenantID, a.CallID)
		return err
	})
	if err != nil {
		return Appointment{}, err
	}
	return out, nil
}

func (r *PostgresRepo) GetByCallID(ctx context.Context, tenantID, callID string) (Appointment, error) {
	return scanByCallID(ctx, r.db, tenantID, callID)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanByCallID(ctx context.Context, q rowQuerier, tenantID, callID string) (Appointment, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, confirmation_code, tenant_id, call_id, patient_name, phone, service_type, time_preference, urgent, status, created_at
		FROM appointments
		WHERE tenant_id = $1 AND call_id = $2
	`, tenantID, callID)
	var a Appointment
	err := row.Scan(&a.ID, &a.ConfirmationCode, &a.TenantID, &a.CallID, &a.PatientName, &a.Phone, &a.ServiceType, &a.TimePreference, &a.Urgent, &a.Status, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Appointment{}, ErrNotFound
	}
	if err != nil {
		return Appointment{}, err
	}
	return a, nil
}

func (r *PostgresRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, confirmation_code, tenant_id, call_id, patient_name, phone, service_type, time_preference, urgent, status, created_at
		FROM appointments
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.ConfirmationCode, &a.TenantID, &a.CallID, &a.PatientName, &a.Phone, &a.ServiceType, &a.TimePreference, &a.Urgent, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
