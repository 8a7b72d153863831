package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"tweeter/internal/domain"
	"tweeter/internal/storage"
)

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 5 << 20

var (
	ErrUnsupportedType = errors.New("avatar must be a JPEG image")
	ErrTooLarge        = errors.New("avatar must be smaller than 5 MB")
)

// Upload is an avatar file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store keeps avatars and their derived styles in object storage.
type Store struct {
	storage storage.Service
	logger  *logrus.Logger
}

func NewStore(svc storage.Service, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{storage: svc, logger: logger}
}

// Image is a validated, decoded avatar ready to be stored.
type Image struct {
	fileName string
	data     []byte
	img      image.Image
}

// Decode validates an upload without touching storage. Callers decode first
// so invalid files are rejected before anything is persisted.
func (s *Store) Decode(up Upload) (*Image, error) {
	if up.Size > MaxAvatarSize {
		return nil, ErrTooLarge
	}
	if !isJPEG(up.ContentType) {
		return nil, ErrUnsupportedType
	}
	if up.Body == nil {
		return nil, ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, MaxAvatarSize+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > MaxAvatarSize {
		return nil, ErrTooLarge
	}
	if http.DetectContentType(data) != "image/jpeg" {
		return nil, ErrUnsupportedType
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUnsupportedType
	}
	return &Image{fileName: filepath.Base(up.FileName), data: data, img: img}, nil
}

// Save writes the original plus every style under a fresh prefix and returns
// the avatar metadata to persist on the user.
func (s *Store) Save(ctx context.Context, userID int64, img *Image) (domain.Avatar, error) {
	prefix := fmt.Sprintf("avatars/%d/%s", userID, uuid.NewString())
	if err := s.storage.PutObject(ctx, styleKey(prefix, StyleOriginal), bytes.NewReader(img.data), "image/jpeg"); err != nil {
		return domain.Avatar{}, s.abandon(ctx, prefix, err)
	}

	for _, style := range Styles {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, fill(img.img, style.Width, style.Height), &jpeg.Options{Quality: 85}); err != nil {
			return domain.Avatar{}, s.abandon(ctx, prefix, fmt.Errorf("encode %s: %w", style.Name, err))
		}
		if err := s.storage.PutObject(ctx, styleKey(prefix, style.Name), &buf, "image/jpeg"); err != nil {
			return domain.Avatar{}, s.abandon(ctx, prefix, err)
		}
	}

	now := time.Now().UTC()
	return domain.Avatar{
		FileName:    img.fileName,
		ContentType: "image/jpeg",
		Size:        int64(len(img.data)),
		KeyPrefix:   prefix,
		UpdatedAt:   &now,
	}, nil
}

// URL returns where a style of the avatar can be fetched. Users without an
// avatar get the placeholder path.
func (s *Store) URL(ctx context.Context, avatar domain.Avatar, style string) string {
	if !avatar.Present() {
		return DefaultURL(style)
	}
	url, err := s.storage.ObjectURL(ctx, styleKey(avatar.KeyPrefix, style))
	if err != nil {
		s.logger.WithError(err).WithField("prefix", avatar.KeyPrefix).Warn("resolve avatar url")
		return DefaultURL(style)
	}
	return url
}

// URLs resolves the original and every derived style.
func (s *Store) URLs(ctx context.Context, avatar domain.Avatar) map[string]string {
	urls := map[string]string{StyleOriginal: s.URL(ctx, avatar, StyleOriginal)}
	for _, style := range Styles {
		urls[style.Name] = s.URL(ctx, avatar, style.Name)
	}
	return urls
}

// Purge removes every stored object of the avatar.
func (s *Store) Purge(ctx context.Context, avatar domain.Avatar) error {
	if !avatar.Present() {
		return nil
	}
	return s.storage.DeletePrefix(ctx, avatar.KeyPrefix)
}

func (s *Store) abandon(ctx context.Context, prefix string, cause error) error {
	err := fmt.Errorf("store avatar: %w", cause)
	if cleanupErr := s.storage.DeletePrefix(ctx, prefix); cleanupErr != nil {
		err = multierr.Append(err, fmt.Errorf("cleanup %s: %w", prefix, cleanupErr))
	}
	return err
}

// DefaultURL is the placeholder served for users without an avatar.
func DefaultURL(style string) string {
	return "/images/" + style + "/missing.png"
}

func styleKey(prefix, style string) string {
	return path.Join(prefix, style+".jpg")
}

func isJPEG(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "image/jpeg" || ct == "image/jpg" || ct == "image/pjpeg"
}
