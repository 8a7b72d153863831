package repository

import (
	"context"
	"time"

	"tweeter/internal/domain"
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	Update(ctx context.Context, user *domain.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetResetToken(ctx context.Context, id int64, digest string, sentAt time.Time) error
	GetByResetToken(ctx context.Context, digest string) (*domain.User, error)
	RecordSignIn(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
	// Delete removes the user and every tweet it owns in one transaction.
	Delete(ctx context.Context, id int64) error
}
