package service

import (
	"context"
	"fmt"
	"strings"

	"tweeter/internal/domain"
	"tweeter/internal/pagination"
	"tweeter/internal/repository"
)

const (
	// TweetsPerPage is the size of the global timeline page.
	TweetsPerPage = 3
	// UserTweetsPerPage is the size of a single user's timeline page.
	UserTweetsPerPage = 10
)

// TweetInput is the only client-controlled part of a tweet. The owner always
// comes from the authenticated session.
type TweetInput struct {
	// max must equal domain.MaxTweetLength.
	Body string `json:"body" form:"body" validate:"required,max=280"`
}

// TweetService coordinates tweet operations scoped by owner.
type TweetService interface {
	List(ctx context.Context, page pagination.Params) (pagination.Page[domain.Tweet], error)
	ListByUser(ctx context.Context, userID int64, page pagination.Params) (pagination.Page[domain.Tweet], error)
	Get(ctx context.Context, userID, id int64) (*domain.Tweet, error)
	Create(ctx context.Context, ownerID int64, in TweetInput) (*domain.Tweet, error)
	Update(ctx context.Context, ownerID, id int64, in TweetInput) (*domain.Tweet, error)
	Destroy(ctx context.Context, ownerID, id int64) error
}

type tweetService struct {
	tweets repository.TweetRepository
}

func NewTweetService(tweets repository.TweetRepository) TweetService {
	return &tweetService{tweets: tweets}
}

func (s *tweetService) List(ctx context.Context, page pagination.Params) (pagination.Page[domain.Tweet], error) {
	total, err := s.tweets.Count(ctx)
	if err != nil {
		return pagination.Page[domain.Tweet]{}, err
	}
	items, err := s.tweets.List(ctx, page.Limit(), page.Offset())
	if err != nil {
		return pagination.Page[domain.Tweet]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *tweetService) ListByUser(ctx context.Context, userID int64, page pagination.Params) (pagination.Page[domain.Tweet], error) {
	total, err := s.tweets.CountByUser(ctx, userID)
	if err != nil {
		return pagination.Page[domain.Tweet]{}, err
	}
	items, err := s.tweets.ListByUser(ctx, userID, page.Limit(), page.Offset())
	if err != nil {
		return pagination.Page[domain.Tweet]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

func (s *tweetService) Get(ctx context.Context, userID, id int64) (*domain.Tweet, error) {
	return s.tweets.GetForUser(ctx, userID, id)
}

func (s *tweetService) Create(ctx context.Context, ownerID int64, in TweetInput) (*domain.Tweet, error) {
	in, err := normalizeTweet(in)
	if err != nil {
		return nil, err
	}

	tweet := &domain.Tweet{Body: in.Body, UserID: ownerID}
	if _, err := s.tweets.Create(ctx, tweet); err != nil {
		return nil, err
	}
	return s.tweets.GetForUser(ctx, ownerID, tweet.ID)
}

func (s *tweetService) Update(ctx context.Context, ownerID, id int64, in TweetInput) (*domain.Tweet, error) {
	tweet, err := s.tweets.GetForUser(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	in, err = normalizeTweet(in)
	if err != nil {
		return nil, err
	}

	tweet.Body = in.Body
	if err := s.tweets.Update(ctx, tweet); err != nil {
		return nil, err
	}
	return tweet, nil
}

func (s *tweetService) Destroy(ctx context.Context, ownerID, id int64) error {
	if _, err := s.tweets.GetForUser(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.tweets.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("destroy tweet %d: %w", id, err)
	}
	return nil
}

func normalizeTweet(in TweetInput) (TweetInput, error) {
	in.Body = strings.TrimSpace(in.Body)
	verr := NewValidationError()
	if err := validateStruct(in, verr); err != nil {
		return in, err
	}
	return in, verr.Err()
}
