package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"onebatch/internal/config"
	"onebatch/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Str0ng!Passw0rd"

// MockObjectStorage is a mock of the ObjectStorage interface
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStorage) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newAcceptingStorage() *MockObjectStorage {
	m := new(MockObjectStorage)
	m.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("Delete", mock.Anything, mock.Anything).Return(nil)
	m.On("Ping", mock.Anything).Return(nil)
	return m
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t       *testing.T
	server  *Server
	app     *fiber.App
	db      *gorm.DB
	clock   *testClock
	storage *MockObjectStorage
	redis   *miniredis.Miniredis
}

type harnessOption func(*config.Config, *Deps)

func withoutStorage() harnessOption {
	return func(_ *config.Config, d *Deps) { d.Storage = nil }
}

func withFlags(flags string) harnessOption {
	return func(c *config.Config, _ *Deps) { c.FeatureFlags = flags }
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := &testClock{now: time.Now().UTC()}
	storage := newAcceptingStorage()
	cfg := &config.Config{
		JWTSecret:            "test-secret-key-for-handlers",
		Port:                 "0",
		Env:                  "test",
		FeatureFlags:         "uploads=on",
		MediaBaseURL:         "https://media.test/photos",
		ImageMaxUploadSizeMB: 2,
	}
	deps := Deps{
		DB:      setupTestDB(t),
		Redis:   rdb,
		Storage: storage,
		Clock:   clock.Now,
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	s, err := NewServerWithDeps(cfg, deps)
	require.NoError(t, err)
	return &harness{
		t:       t,
		server:  s,
		app:     s.App(),
		db:      deps.DB,
		clock:   clock,
		storage: storage,
		redis:   mr,
	}
}

func (h *harness) do(method, path, token string, body any) (int, map[string]any) {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return h.send(req, token)
}

func (h *harness) send(req *http.Request, token string) (int, map[string]any) {
	h.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(h.t, err)
	defer func() { _ = resp.Body.Close() }()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

// register creates a user with a claimed handle and returns its bearer token.
func (h *harness) register(name string) string {
	h.t.Helper()
	status, body := h.do(http.MethodPost, "/api/auth/register", "", fiber.Map{
		"username": name,
		"password": testPassword,
	})
	require.Equal(h.t, http.StatusCreated, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(h.t, token)
	return token
}

func (h *harness) login(name string) string {
	h.t.Helper()
	status, body := h.do(http.MethodPost, "/api/auth/login", "", fiber.Map{
		"username": name,
		"password": testPassword,
	})
	require.Equal(h.t, http.StatusOK, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(h.t, token)
	return token
}

// upload posts a generated PNG and returns the new image ID.
func (h *harness) upload(token, caption string) uint {
	h.t.Helper()
	status, body := h.send(uploadRequest(h.t, samplePNG(h.t), caption), token)
	require.Equal(h.t, http.StatusCreated, status, body)
	img, _ := body["image"].(map[string]any)
	require.NotNil(h.t, img)
	return uint(img["id"].(float64))
}

func uploadRequest(t *testing.T, content []byte, caption string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if content != nil {
		part, err := writer.CreateFormFile("upload", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	if caption != "" {
		require.NoError(t, writer.WriteField("caption", caption))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for x := 0; x < 48; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: 120, B: uint8(y * 5), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imagesOf(t *testing.T, body map[string]any, field string) []map[string]any {
	t.Helper()
	raw, _ := body[field].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		out = append(out, item.(map[string]any))
	}
	return out
}
