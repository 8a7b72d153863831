package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tweeter/internal/domain"
	"tweeter/internal/repository"
)

const createTweetsTable = `
CREATE TABLE IF NOT EXISTS tweets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	body TEXT NOT NULL,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS index_tweets_on_user_id ON tweets(user_id);
CREATE INDEX IF NOT EXISTS index_tweets_on_created_at ON tweets(created_at);
`

// tweets are always read together with the owner summary so listings do not
// issue one user lookup per row
const selectTweetWithAuthor = `
SELECT t.id, t.body, t.user_id, t.created_at, t.updated_at,
	u.id, u.name, u.email, u.avatar_file_name, u.avatar_content_type, u.avatar_file_size, u.avatar_key_prefix, u.avatar_updated_at
FROM tweets t
JOIN users u ON u.id = t.user_id`

type TweetRepository struct {
	db *sql.DB
}

func NewTweetRepository(db *sql.DB) repository.TweetRepository {
	return &TweetRepository{db: db}
}

func (r *TweetRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTweetsTable); err != nil {
		return fmt.Errorf("create tweets table: %w", err)
	}
	return nil
}

func (r *TweetRepository) Create(ctx context.Context, tweet *domain.Tweet) (int64, error) {
	now := time.Now().UTC()
	tweet.CreatedAt = now
	tweet.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO tweets (body, user_id, created_at, updated_at)
VALUES (?, ?, ?, ?)`,
		tweet.Body,
		tweet.UserID,
		tweet.CreatedAt,
		tweet.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert tweet: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("tweet last insert id: %w", err)
	}
	tweet.ID = id
	return id, nil
}

func (r *TweetRepository) Update(ctx context.Context, tweet *domain.Tweet) error {
	tweet.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
UPDATE tweets
SET body = ?, updated_at = ?
WHERE id = ? AND user_id = ?`,
		tweet.Body,
		tweet.UpdatedAt,
		tweet.ID,
		tweet.UserID,
	)
	if err != nil {
		return fmt.Errorf("update tweet: %w", err)
	}
	return expectAffected(res, "update tweet")
}

func (r *TweetRepository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tweets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete tweet: %w", err)
	}
	return expectAffected(res, "delete tweet")
}

func (r *TweetRepository) GetForUser(ctx context.Context, userID, id int64) (*domain.Tweet, error) {
	row := r.db.QueryRowContext(ctx, selectTweetWithAuthor+`
WHERE t.id = ? AND t.user_id = ?`,
		id,
		userID,
	)
	return scanTweet(row)
}

func (r *TweetRepository) List(ctx context.Context, limit, offset int) ([]domain.Tweet, error) {
	rows, err := r.db.QueryContext(ctx, selectTweetWithAuthor+`
ORDER BY t.created_at DESC, t.id DESC
LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", err)
	}
	return collectTweets(rows)
}

func (r *TweetRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Tweet, error) {
	rows, err := r.db.QueryContext(ctx, selectTweetWithAuthor+`
WHERE t.user_id = ?
ORDER BY t.created_at DESC, t.id DESC
LIMIT ? OFFSET ?`,
		userID,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list user tweets: %w", err)
	}
	return collectTweets(rows)
}

func (r *TweetRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tweets: %w", err)
	}
	return n, nil
}

func (r *TweetRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count user tweets: %w", err)
	}
	return n, nil
}

func collectTweets(rows *sql.Rows) ([]domain.Tweet, error) {
	defer rows.Close()

	tweets := []domain.Tweet{}
	for rows.Next() {
		tweet, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, *tweet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tweets: %w", err)
	}
	return tweets, nil
}

func scanTweet(row interface {
	Scan(dest ...any) error
}) (*domain.Tweet, error) {
	var (
		tweet           domain.Tweet
		author          domain.Author
		avatarUpdatedAt sql.NullTime
	)
	if err := row.Scan(
		&tweet.ID,
		&tweet.Body,
		&tweet.UserID,
		&tweet.CreatedAt,
		&tweet.UpdatedAt,
		&author.ID,
		&author.Name,
		&author.Email,
		&author.Avatar.FileName,
		&author.Avatar.ContentType,
		&author.Avatar.Size,
		&author.Avatar.KeyPrefix,
		&avatarUpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tweet: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan tweet: %w", err)
	}
	author.Avatar.UpdatedAt = timePtr(avatarUpdatedAt)
	tweet.Author = &author
	return &tweet, nil
}
