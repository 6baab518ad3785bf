package repository

import (
	"context"
	"time"

	"sockgate/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	GetByUserAndTokenHash(ctx context.Context, userID, tokenHash string) (*domain.Session, error)
	Create(ctx context.Context, s *domain.Session) error
	Revoke(ctx context.Context, id string) error
	RevokeAllByUser(ctx context.Context, userID string) error
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
}
