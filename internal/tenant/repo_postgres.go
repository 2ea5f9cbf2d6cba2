package tenant

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo persists practices in the practices table.
//
// Schema expectation:
//
//	CREATE TABLE practices (
//	    tenant_id            TEXT PRIMARY KEY,
//	    name                 TEXT NOT NULL,
//	    active               BOOLEAN NOT NULL DEFAULT TRUE,
//	    transfer_number      TEXT NOT NULL DEFAULT '',
//	    greeting             TEXT NOT NULL DEFAULT '',
//	    business_hours       TEXT NOT NULL DEFAULT '',
//	    services             TEXT NOT NULL DEFAULT '',
//	    voice_name           TEXT NOT NULL DEFAULT '',
//	    confidence_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    max_concurrent_calls INT NOT NULL DEFAULT 0,
//	    created_at           TIMESTAMPTZ NOT NULL,
//	    updated_at           TIMESTAMPTZ NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const practiceColumns = `tenant_id, name, active, transfer_number, greeting, business_hours, services, voice_name, confidence_threshold, max_concurrent_calls, created_at, updated_at`

func (r *PostgresRepo) Get(ctx context.Context, tenantID string) (Practice, error) {
	if tenantID == "" {
		return Practice{}, ErrInvalidArgument
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT `+practiceColumns+`
		FROM practices
		WHERE tenant_id = $1
	`, tenantID)
	var p Practice
	err := row.Scan(&p.TenantID, &p.Name, &p.Active, &p.TransferNumber, &p.Greeting, &p.BusinessHours, &p.Services, &p.VoiceName, &p.ConfidenceThreshold, &p.MaxConcurrentCalls, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Practice{}, ErrNotFound
	}
	if err != nil {
		return Practice{}, err
	}
	return p, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, p Practice) error {
	if p.TenantID == "" {
		return ErrInvalidArgument
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO practices (`+practiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			transfer_number = EXCLUDED.transfer_number,
			greeting = EXCLUDED.greeting,
			business_hours = EXCLUDED.business_hours,
			services = EXCLUDED.services,
			voice_name = EXCLUDED.voice_name,
			confidence_threshold = EXCLUDED.confidence_threshold,
			max_concurrent_calls = EXCLUDED.max_concurrent_calls,
			updated_at = EXCLUDED.updated_at
	`, p.TenantID, p.Name, p.Active, p.TransferNumber, p.Greeting, p.BusinessHours, p.Services, p.VoiceName, p.ConfidenceThreshold, p.MaxConcurrentCalls, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Practice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+practiceColumns+`
		FROM practices
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Practice
	for rows.Next() {
		var p Practice
		if err := rows.Scan(&p.TenantID, &p.Name, &p.Active, &p.TransferNumber, &p.Greeting, &p.BusinessHours, &p.Services, &p.VoiceName, &p.ConfidenceThreshold, &p.MaxConcurrentCalls, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
