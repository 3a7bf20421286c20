package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuthRepository is the persistence surface the auth service depends on.
// Tests substitute an in-memory fake.
type AuthRepository interface {
	UpsertUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error

	CreateUserToken(ctx context.Context, userID uuid.UUID, tokenHash, tokenType string, expiresAt time.Time) error
	ConsumeUserToken(ctx context.Context, tokenHash, tokenType string) (uuid.UUID, time.Time, error)

	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, userID uuid.UUID) error
}

var _ AuthRepository = (*Repository)(nil)
