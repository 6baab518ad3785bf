package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sockgate/internal/session/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUserAndTokenHash returns the session bound to the given user and token
// hash, or nil if not found. It returns an error only for database failures,
// not for missing rows.
func (r *PostgresRepository) GetByUserAndTokenHash(ctx context.Context, userID, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, revoked_at, last_used_at, ip_address, created_at
		FROM sessions WHERE user_id = $1 AND token_hash = $2`,
		userID, tokenHash,
	)
	var s domain.Session
	var revoked, lastUsed sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &revoked, &lastUsed, &s.IPAddress, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		s.LastUsedAt = &t
	}
	return &s, nil
}

// Create persists the session to the database. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, expires_at, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.IPAddress, s.CreatedAt,
	)
	return err
}

// Revoke marks the session revoked. Revoking an already-revoked session keeps
// the original revocation time.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = COALESCE(revoked_at, $2) WHERE id = $1`,
		id, time.Now().UTC(),
	)
	return err
}

// RevokeAllByUser revokes every non-revoked session for the given user.
func (r *PostgresRepository) RevokeAllByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`,
		userID, time.Now().UTC(),
	)
	return err
}

// UpdateLastUsed sets the session's last_used_at marker. Best-effort bookkeeping on the connection path.
func (r *PostgresRepository) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sessions SET last_used_at = $2 WHERE id = $1`, id, at)
	return err
}
