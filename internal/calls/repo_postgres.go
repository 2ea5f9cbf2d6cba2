package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresRepo persists call records in the calls table.
//
// Schema expectation:
//
//	CREATE TABLE calls (
//	    call_id           TEXT PRIMARY KEY,
//	    provider_call_id  TEXT NOT NULL DEFAULT '',
//	    tenant_id         TEXT NOT NULL,
//	    from_number       TEXT NOT NULL DEFAULT '',
//	    to_number         TEXT NOT NULL DEFAULT '',
//	    status            TEXT NOT NULL,
//	    outcome           TEXT NOT NULL DEFAULT '',
//	    turns             INT NOT NULL DEFAULT 0,
//	    urgent            BOOLEAN NOT NULL DEFAULT FALSE,
//	    confirmation_code TEXT NOT NULL DEFAULT '',
//	    created_at        TIMESTAMPTZ NOT NULL,
//	    updated_at        TIMESTAMPTZ NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const callColumns = `call_id, provider_call_id, tenant_id, from_number, to_number, status, outcome, turns, urgent, confirmation_code, created_at, updated_at`

func (r *PostgresRepo) Upsert(ctx context.Context, c Call) error {
	if c.TenantID == "" || c.CallID == "" {
		return ErrInvalidArgument
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calls (`+callColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (call_id) DO UPDATE SET
			status = EXCLUDED.status,
			outcome = EXCLUDED.outcome,
			turns = EXCLUDED.turns,
			urgent = EXCLUDED.urgent,
			confirmation_code = EXCLUDED.confirmation_code,
			updated_at = EXCLUDED.updated_at
	`, c.CallID, c.ProviderCallID, c.TenantID, c.From, c.To, c.Status, c.Outcome, c.Turns, c.Urgent, c.ConfirmationCode, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, callID string) (Call, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE tenant_id = $1 AND call_id = $2
	`, tenantID, callID)
	var c Call
	err := row.Scan(&c.CallID, &c.ProviderCallID, &c.TenantID, &c.From, &c.To, &c.Status, &c.Outcome, &c.Turns, &c.Urgent, &c.ConfirmationCode, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Call{}, ErrNotFound
	}
	if err != nil {
		return Call{}, err
	}
	return c, nil
}

func (r *PostgresRepo) ListByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]Call, error) {
	if tenantID == "" {
		return nil, ErrInvalidArgument
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+callColumns+`
		FROM calls
		WHERE tenant_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at
	`, tenantID, nullableTime(from), nullableTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Call
	for rows.Next() {
		var c Call
		if err := rows.Scan(&c.CallID, &c.ProviderCallID, &c.TenantID, &c.From, &c.To, &c.Status, &c.Outcome, &c.Turns, &c.Urgent, &c.ConfirmationCode, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
