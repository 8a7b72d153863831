package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tweeter/internal/domain"
	"tweeter/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tweeter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRepos(t *testing.T) (repository.UserRepository, repository.TweetRepository) {
	t.Helper()
	db := openTestDB(t)
	users := NewUserRepository(db)
	tweets := NewTweetRepository(db)
	ctx := context.Background()
	require.NoError(t, users.Init(ctx))
	require.NoError(t, tweets.Init(ctx))
	return users, tweets
}

func createUser(t *testing.T, users repository.UserRepository, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "hash",
	}
	_, err := users.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

func createTweet(t *testing.T, tweets repository.TweetRepository, userID int64, body string) *domain.Tweet {
	t.Helper()
	tw := &domain.Tweet{Body: body, UserID: userID}
	_, err := tweets.Create(context.Background(), tw)
	require.NoError(t, err)
	return tw
}
