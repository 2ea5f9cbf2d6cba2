package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends events to the audit_events table.
//
// Schema expectation:
//
//	CREATE TABLE audit_events (
//	    id            UUID PRIMARY KEY,
//	    tenant_id     TEXT NOT NULL,
//	    type          TEXT NOT NULL,
//	    call_id       TEXT NOT NULL DEFAULT '',
//	    actor_user_id TEXT NOT NULL DEFAULT '',
//	    ip_address    TEXT NOT NULL DEFAULT '',
//	    message       TEXT NOT NULL DEFAULT '',
//	    metadata      TEXT NOT NULL DEFAULT '',
//	    created_at    TIMESTAMPTZ NOT NULL
//	);
//
// The table is INSERT-only; rows are never updated or deleted.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events
			(id, tenant_id, type, call_id, actor_user_id, ip_address, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.TenantID, e.Type, e.CallID, e.ActorUserID, e.IPAddress, e.Message, e.Metadata, e.CreatedAt)
	return err
}
