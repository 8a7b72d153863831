package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tweeter/internal/attachment"
	"tweeter/internal/domain"
	"tweeter/internal/repository"
	"tweeter/internal/repository/sqlite"
)

type testEnv struct {
	users    repository.UserRepository
	tweets   repository.TweetRepository
	storage  *memStorage
	avatars  *attachment.Store
	revoker  *fakeRevoker
	notifier *fakeNotifier
	userSvc  UserService
	tweetSvc TweetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	users := sqlite.NewUserRepository(db)
	tweets := sqlite.NewTweetRepository(db)
	require.NoError(t, users.Init(ctx))
	require.NoError(t, tweets.Init(ctx))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		users:    users,
		tweets:   tweets,
		storage:  newMemStorage(),
		revoker:  &fakeRevoker{},
		notifier: &fakeNotifier{},
	}
	env.avatars = attachment.NewStore(env.storage, logger)
	env.userSvc = NewUserService(users, env.avatars, env.revoker, env.notifier, UserServiceConfig{
		BcryptCost: bcrypt.MinCost,
		Logger:     logger,
	})
	env.tweetSvc = NewTweetService(tweets)
	return env
}

func (e *testEnv) register(t *testing.T, name string) *domain.User {
	t.Helper()
	user, err := e.userSvc.Register(context.Background(), RegisterInput{
		Name:                 name,
		Email:                name + "@example.com",
		Password:             "secret123",
		PasswordConfirmation: "secret123",
	})
	require.NoError(t, err)
	return user
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) PutObject(_ context.Context, key string, body io.Reader, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memStorage) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.objects {
		if strings.HasPrefix(key, prefix+"/") {
			delete(m.objects, key)
		}
	}
	return nil
}

func (m *memStorage) ObjectURL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type fakeRevoker struct {
	revoked []int64
	err     error
}

func (f *fakeRevoker) SignOutEverywhere(_ context.Context, userID int64) error {
	f.revoked = append(f.revoked, userID)
	return f.err
}

type fakeNotifier struct {
	user  *domain.User
	token string
}

func (f *fakeNotifier) SendResetPasswordInstructions(_ context.Context, user *domain.User, token string) error {
	f.user = user
	f.token = token
	return nil
}

func jpegUpload(t *testing.T) *attachment.Upload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y * 10), B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return &attachment.Upload{
		FileName:    "me.jpg",
		ContentType: "image/jpeg",
		Size:        int64(buf.Len()),
		Body:        bytes.NewReader(buf.Bytes()),
	}
}
