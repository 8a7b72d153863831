package sqlite

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweeter/internal/domain"
	"tweeter/internal/repository"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	users, _ := newTestRepos(t)
	ctx := context.Background()

	u := createUser(t, users, "alice")
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Nil(t, got.CurrentSignInAt)
	assert.False(t, got.Avatar.Present())

	got, err = users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	users, _ := newTestRepos(t)
	createUser(t, users, "alice")

	_, err := users.Create(context.Background(), &domain.User{Name: "other", Email: "alice@example.com", PasswordHash: "x"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestUserRepository_GetMissing(t *testing.T) {
	users, _ := newTestRepos(t)

	_, err := users.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_UpdateProfileAndAvatar(t *testing.T) {
	users, _ := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, users, "alice")
	other := createUser(t, users, "bob")

	now := time.Now().UTC()
	u.Name = "Alice A."
	u.Avatar = domain.Avatar{FileName: "me.jpg", ContentType: "image/jpeg", Size: 42, KeyPrefix: "avatars/1/abc", UpdatedAt: &now}
	require.NoError(t, users.Update(ctx, u))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", got.Name)
	assert.Equal(t, "avatars/1/abc", got.Avatar.KeyPrefix)
	require.NotNil(t, got.Avatar.UpdatedAt)

	u.Email = other.Email
	require.ErrorIs(t, users.Update(ctx, u), repository.ErrConflict)

	require.ErrorIs(t, users.Update(ctx, &domain.User{ID: 999, Email: "x@example.com"}), repository.ErrNotFound)
}

func TestUserRepository_ResetTokenLifecycle(t *testing.T) {
	users, _ := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, users, "alice")

	sentAt := time.Now().UTC()
	require.NoError(t, users.SetResetToken(ctx, u.ID, "digest", sentAt))

	got, err := users.GetByResetToken(ctx, "digest")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	require.NotNil(t, got.ResetPasswordSentAt)

	require.NoError(t, users.UpdatePassword(ctx, u.ID, "new-hash"))

	_, err = users.GetByResetToken(ctx, "digest")
	require.ErrorIs(t, err, repository.ErrNotFound)

	got, err = users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
}

func TestUserRepository_RecordSignIn(t *testing.T) {
	users, _ := newTestRepos(t)
	ctx := context.Background()
	u := createUser(t, users, "alice")

	u.SignIn(time.Now().UTC(), "10.0.0.1")
	require.NoError(t, users.RecordSignIn(ctx, u))
	u.SignIn(time.Now().UTC(), "10.0.0.2")
	require.NoError(t, users.RecordSignIn(ctx, u))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SignInCount)
	assert.Equal(t, "10.0.0.2", got.CurrentSignInIP)
	assert.Equal(t, "10.0.0.1", got.LastSignInIP)
	assert.NotNil(t, got.LastSignInAt)
}

func TestUserRepository_ListAndCount(t *testing.T) {
	users, _ := newTestRepos(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d"} {
		createUser(t, users, name)
	}

	page, err := users.List(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "a", page[0].Name)

	page, err = users.List(ctx, 3, 3)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "d", page[0].Name)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestUserRepository_DeleteCascadesOnlyOwnTweets(t *testing.T) {
	users, tweets := newTestRepos(t)
	ctx := context.Background()
	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")
	createTweet(t, tweets, alice.ID, "one")
	createTweet(t, tweets, alice.ID, "two")
	keep := createTweet(t, tweets, bob.ID, "bob's")

	require.NoError(t, users.Delete(ctx, alice.ID))

	_, err := users.GetByID(ctx, alice.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	n, err := tweets.CountByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := tweets.GetForUser(ctx, bob.ID, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob's", got.Body)
}

func TestUserRepository_DeleteMissing(t *testing.T) {
	users, _ := newTestRepos(t)

	require.ErrorIs(t, users.Delete(context.Background(), 12), repository.ErrNotFound)
}

func TestUserRepository_DeleteRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tweets WHERE user_id = ?`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = ?`)).
		WithArgs(int64(7)).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = NewUserRepository(db).Delete(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteRollsBackWhenUserMissing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tweets WHERE user_id = ?`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = ?`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = NewUserRepository(db).Delete(context.Background(), 7)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
