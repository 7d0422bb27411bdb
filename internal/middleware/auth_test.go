package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123456"

func TestGenerateAndParseToken(t *testing.T) {
	t.Parallel()
	now := time.Now()

	token, err := GenerateToken(testSecret, 42, "ana", now)
	require.NoError(t, err)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ana", claims.Name)
	assert.NotEmpty(t, claims.JTI)
	assert.WithinDuration(t, now.Add(TokenTTL), claims.ExpiresAt, time.Second)
}

func TestParseTokenRejects(t *testing.T) {
	t.Parallel()

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(testSecret, 1, "ana", time.Now())
		require.NoError(t, err)
		_, err = ParseToken("another-secret", token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateToken(testSecret, 1, "ana", time.Now().Add(-2*TokenTTL))
		require.NoError(t, err)
		_, err = ParseToken(testSecret, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "1",
			"iss": "someone-else",
			"aud": TokenAudience,
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = ParseToken(testSecret, signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty secret cannot sign", func(t *testing.T) {
		_, err := GenerateToken("", 1, "ana", time.Now())
		assert.Error(t, err)
	})
}

func TestBearerToken(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		token, err := BearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).SendString(err.Error())
		}
		return c.SendString(token)
	})

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token abc", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer abc", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, "header %q", tc.header)
	}
}
