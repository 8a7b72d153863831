package attachment

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweeter/internal/domain"
)

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleted   []string
	putErr    error
	failAfter int
	puts      int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) PutObject(_ context.Context, key string, body io.Reader, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil && f.puts > f.failAfter {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, prefix)
	for key := range f.objects {
		if strings.HasPrefix(key, prefix+"/") {
			delete(f.objects, key)
		}
	}
	return nil
}

func (f *fakeStorage) ObjectURL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newTestStore(svc *fakeStorage) *Store {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewStore(svc, logger)
}

func TestSave_WritesOriginalAndStyles(t *testing.T) {
	svc := newFakeStorage()
	store := newTestStore(svc)
	data := jpegBytes(t, 640, 480)

	img, err := store.Decode(Upload{
		FileName:    "../me.jpg",
		ContentType: "image/jpeg",
		Size:        int64(len(data)),
		Body:        bytes.NewReader(data),
	})
	require.NoError(t, err)
	assert.Empty(t, svc.objects)

	avatar, err := store.Save(context.Background(), 7, img)
	require.NoError(t, err)

	assert.True(t, avatar.Present())
	assert.True(t, strings.HasPrefix(avatar.KeyPrefix, "avatars/7/"))
	assert.Equal(t, "me.jpg", avatar.FileName)
	assert.Equal(t, int64(len(data)), avatar.Size)
	require.NotNil(t, avatar.UpdatedAt)

	require.Len(t, svc.objects, 3)
	assert.Equal(t, data, svc.objects[avatar.KeyPrefix+"/original.jpg"])

	for _, style := range Styles {
		raw, ok := svc.objects[avatar.KeyPrefix+"/"+style.Name+".jpg"]
		require.True(t, ok, style.Name)
		img, err := jpeg.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, style.Width, img.Bounds().Dx())
		assert.Equal(t, style.Height, img.Bounds().Dy())
	}
}

func TestDecode_RejectsNonJPEG(t *testing.T) {
	store := newTestStore(newFakeStorage())

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))

	_, err := store.Decode(Upload{FileName: "a.png", ContentType: "image/png", Size: int64(buf.Len()), Body: &buf})
	require.ErrorIs(t, err, ErrUnsupportedType)

	// a PNG body claiming to be a JPEG is still rejected
	var again bytes.Buffer
	require.NoError(t, png.Encode(&again, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	_, err = store.Decode(Upload{FileName: "a.jpg", ContentType: "image/jpeg", Size: int64(again.Len()), Body: &again})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDecode_RejectsOversized(t *testing.T) {
	store := newTestStore(newFakeStorage())

	_, err := store.Decode(Upload{FileName: "a.jpg", ContentType: "image/jpeg", Size: MaxAvatarSize + 1, Body: strings.NewReader("")})
	require.ErrorIs(t, err, ErrTooLarge)

	big := bytes.Repeat([]byte{0xff}, MaxAvatarSize+10)
	_, err = store.Decode(Upload{FileName: "a.jpg", ContentType: "image/jpeg", Size: 10, Body: bytes.NewReader(big)})
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestSave_CleansUpOnStorageFailure(t *testing.T) {
	svc := newFakeStorage()
	svc.putErr = errors.New("bucket unavailable")
	svc.failAfter = 1
	store := newTestStore(svc)
	data := jpegBytes(t, 50, 50)

	img, err := store.Decode(Upload{FileName: "a.jpg", ContentType: "image/jpeg", Size: int64(len(data)), Body: bytes.NewReader(data)})
	require.NoError(t, err)

	_, err = store.Save(context.Background(), 3, img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	require.Len(t, svc.deleted, 1)
	assert.True(t, strings.HasPrefix(svc.deleted[0], "avatars/3/"))
	assert.Empty(t, svc.objects)
}

func TestURL(t *testing.T) {
	store := newTestStore(newFakeStorage())
	ctx := context.Background()

	assert.Equal(t, "/images/thumb/missing.png", store.URL(ctx, domain.Avatar{}, "thumb"))
	assert.Equal(t, "https://cdn.test/avatars/1/x/medium.jpg", store.URL(ctx, domain.Avatar{KeyPrefix: "avatars/1/x"}, "medium"))

	urls := store.URLs(ctx, domain.Avatar{})
	assert.Equal(t, map[string]string{
		"original": "/images/original/missing.png",
		"medium":   "/images/medium/missing.png",
		"thumb":    "/images/thumb/missing.png",
	}, urls)
}

func TestPurge(t *testing.T) {
	svc := newFakeStorage()
	store := newTestStore(svc)

	require.NoError(t, store.Purge(context.Background(), domain.Avatar{}))
	assert.Empty(t, svc.deleted)

	require.NoError(t, store.Purge(context.Background(), domain.Avatar{KeyPrefix: "avatars/1/x"}))
	assert.Equal(t, []string{"avatars/1/x"}, svc.deleted)
}

func TestFill_CropsToBox(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	dst := fill(src, 100, 100)
	assert.Equal(t, image.Rect(0, 0, 100, 100), dst.Bounds())

	tall := image.NewRGBA(image.Rect(0, 0, 30, 90))
	dst = fill(tall, 300, 300)
	assert.Equal(t, image.Rect(0, 0, 300, 300), dst.Bounds())
}
