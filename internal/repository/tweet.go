package repository

import (
	"context"

	"tweeter/internal/domain"
)

// TweetRepository exposes persistence operations for tweets. List methods
// return tweets newest first with Author populated.
type TweetRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, tweet *domain.Tweet) (int64, error)
	Update(ctx context.Context, tweet *domain.Tweet) error
	Delete(ctx context.Context, userID, id int64) error
	GetForUser(ctx context.Context, userID, id int64) (*domain.Tweet, error)
	List(ctx context.Context, limit, offset int) ([]domain.Tweet, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Tweet, error)
	Count(ctx context.Context) (int, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
}
