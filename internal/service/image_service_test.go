package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"onebatch/internal/config"
	"onebatch/internal/media"
	"onebatch/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memObjectStore struct {
	objects map[string][]byte
	failOn  string
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (m *memObjectStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if m.failOn != "" && key == m.failOn {
		return errors.New("bucket unavailable")
	}
	m.objects[key] = data
	return nil
}

func (m *memObjectStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageService_Upload(t *testing.T) {
	t.Parallel()
	f := newFixture()
	var created *models.Image
	f.images.createFn = func(_ context.Context, img *models.Image) error {
		img.ID = 42
		created = img
		return nil
	}
	store := newMemObjectStore()
	svc := NewImageService(f.repos(), store, nil, &config.Config{ImageMaxUploadSizeMB: 1})

	img, err := svc.Upload(context.Background(), &models.User{ID: 1, Name: "alice"}, UploadImageInput{
		Filename:    "a.png",
		ContentType: "image/png",
		Caption:     "dusk",
		Content:     samplePNG(t),
	})
	require.NoError(t, err)
	assert.Same(t, created, img)
	assert.Equal(t, "alice", img.UserID)
	assert.Equal(t, "dusk", img.Caption)
	assert.False(t, img.Picked)
	assert.False(t, img.Published)
	assert.False(t, img.Hidden)
	assert.NotEmpty(t, img.Src)

	assert.Len(t, store.objects, 2+len(media.SquareSizes))
	for _, key := range renditionKeys(img.Src) {
		assert.Contains(t, store.objects, key)
	}
}

func TestImageService_UploadRejections(t *testing.T) {
	t.Parallel()
	f := newFixture()
	store := newMemObjectStore()
	svc := NewImageService(f.repos(), store, nil, nil)

	_, err := svc.Upload(context.Background(), &models.User{ID: 1, Name: "a@b.co"}, UploadImageInput{Content: samplePNG(t)})
	assert.True(t, models.IsCode(err, models.CodeInvalidState))

	_, err = svc.Upload(context.Background(), &models.User{ID: 1, Name: "alice"}, UploadImageInput{Content: []byte("hello")})
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Empty(t, store.objects)

	unstored := NewImageService(f.repos(), nil, nil, nil)
	_, err = unstored.Upload(context.Background(), &models.User{ID: 1, Name: "alice"}, UploadImageInput{Content: samplePNG(t)})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestImageService_UploadStorageFailureCleansUp(t *testing.T) {
	t.Parallel()
	f := newFixture()
	createCalled := false
	f.images.createFn = func(context.Context, *models.Image) error {
		createCalled = true
		return nil
	}
	store := newMemObjectStore()
	svc := NewImageService(f.repos(), store, nil, nil)
	svc.store = &failingAfter{memObjectStore: store, allowed: 3}

	_, err := svc.Upload(context.Background(), &models.User{ID: 1, Name: "alice"}, UploadImageInput{Content: samplePNG(t)})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeInternal))
	assert.False(t, createCalled)
	assert.Empty(t, store.objects)
}

// failingAfter accepts a fixed number of puts and fails the rest.
type failingAfter struct {
	*memObjectStore
	allowed int
}

func (f *failingAfter) Put(ctx context.Context, key string, data []byte, ct string) error {
	if f.allowed == 0 {
		return errors.New("bucket unavailable")
	}
	f.allowed--
	return f.memObjectStore.Put(ctx, key, data, ct)
}

func TestImageService_SetHidden(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.withImages(&models.Image{ID: 1, UserID: "alice", Published: true}, &models.Image{ID: 2, UserID: "bob"})
	var hidden *bool
	f.images.setHiddenFn = func(_ context.Context, _ uint, v bool) error {
		hidden = &v
		return nil
	}
	svc := NewImageService(f.repos(), newMemObjectStore(), nil, nil)
	alice := &models.User{ID: 1, Name: "alice"}

	img, err := svc.SetHidden(context.Background(), alice, 1, true)
	require.NoError(t, err)
	assert.True(t, img.Hidden)
	require.NotNil(t, hidden)
	assert.True(t, *hidden)

	_, err = svc.SetHidden(context.Background(), alice, 2, true)
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}

func TestImageService_Delete(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.withImages(&models.Image{ID: 1, UserID: "alice", Src: "abc", Published: true}, &models.Image{ID: 2, UserID: "bob", Src: "def"})
	deleted := uint(0)
	f.images.deleteFn = func(_ context.Context, id uint) error {
		deleted = id
		return nil
	}
	store := newMemObjectStore()
	for _, key := range append(renditionKeys("abc"), renditionKeys("def")...) {
		store.objects[key] = []byte("x")
	}
	svc := NewImageService(f.repos(), store, nil, nil)
	alice := &models.User{ID: 1, Name: "alice", Posted: timePtr(baseTime)}

	require.NoError(t, svc.Delete(context.Background(), alice, 1))
	assert.Equal(t, uint(1), deleted)
	assert.Len(t, store.objects, len(renditionKeys("def")))

	err := svc.Delete(context.Background(), alice, 2)
	assert.True(t, models.IsCode(err, models.CodeForbidden))
}
