package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valhalla/console/internal/platform/db"
	"github.com/valhalla/console/internal/rbac"
)

// SessionRecord is one audited console login.
type SessionRecord struct {
	SessionID string
	UserID    string
	Username  string
	RoleID    rbac.Role
	IP        string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AuditRepository persists the login trail.
type AuditRepository interface {
	RecordLogin(ctx context.Context, rec SessionRecord) error
	RecordLogout(ctx context.Context, sessionID string, at time.Time) error
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// PGAuditRepository implements AuditRepository using PostgreSQL.
type PGAuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository constructs a PostgreSQL repository.
func NewAuditRepository(pool *pgxpool.Pool) *PGAuditRepository {
	return &PGAuditRepository{pool: pool}
}

const insertSessionSQL = `
INSERT INTO console_sessions (id, user_id, username, role_id, ip, user_agent, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    username = EXCLUDED.username,
    role_id = EXCLUDED.role_id,
    expires_at = EXCLUDED.expires_at,
    ended_at = NULL`

// RecordLogin stores a login row keyed by session ID.
func (r *PGAuditRepository) RecordLogin(ctx context.Context, rec SessionRecord) error {
	_, err := r.pool.Exec(ctx, insertSessionSQL,
		rec.SessionID,
		rec.UserID,
		rec.Username,
		int32(rec.RoleID),
		pgtype.Text{String: rec.IP, Valid: rec.IP != ""},
		pgtype.Text{String: rec.UserAgent, Valid: rec.UserAgent != ""},
		pgtype.Timestamptz{Time: rec.CreatedAt.UTC(), Valid: true},
		pgtype.Timestamptz{Time: rec.ExpiresAt.UTC(), Valid: true},
	)
	if err != nil {
		return fmt.Errorf("auth: record login: %w", err)
	}
	return nil
}

// RecordLogout marks the session row as ended.
func (r *PGAuditRepository) RecordLogout(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE console_sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`,
		sessionID, pgtype.Timestamptz{Time: at.UTC(), Valid: true})
	if err != nil {
		return fmt.Errorf("auth: record logout: %w", err)
	}
	return nil
}

// PurgeExpired deletes rows that expired or ended before the cutoff.
func (r *PGAuditRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	var purged int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		cutoff := pgtype.Timestamptz{Time: before.UTC(), Valid: true}
		tag, err := tx.Exec(ctx, `DELETE FROM console_sessions WHERE expires_at < $1 OR ended_at < $1`, cutoff)
		if err != nil {
			return err
		}
		purged = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("auth: purge sessions: %w", err)
	}
	return purged, nil
}

var _ AuditRepository = (*PGAuditRepository)(nil)

// AuditMigrations creates the console_sessions table.
func AuditMigrations() []db.Migration {
	return []db.Migration{
		{
			Version:     1,
			Description: "create console_sessions",
			SQL: `
CREATE TABLE IF NOT EXISTS console_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    username TEXT NOT NULL,
    role_id INT NOT NULL,
    ip TEXT,
    user_agent TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_console_sessions_expires_at ON console_sessions (expires_at);
CREATE INDEX IF NOT EXISTS idx_console_sessions_user_id ON console_sessions (user_id);`,
		},
	}
}
