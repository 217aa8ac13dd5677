package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/middleware"
)

const testSecret = "classroom-secret"

func signToken(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newIdentityApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.CorrelationID(zerolog.Nop()))
	app.Get("/me", middleware.JWTProtected(testSecret), func(c *fiber.Ctx) error {
		identity, ok := middleware.IdentityFromCtx(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.JSON(fiber.Map{
			"user_id":        identity.UserID,
			"role":           identity.Role,
			"correlation_id": middleware.GetCorrelationID(c),
		})
	})
	return app
}

func TestJWTProtectedExtractsIdentity(t *testing.T) {
	app := newIdentityApp()
	token := signToken(t, jwt.MapClaims{
		"sub":  "42",
		"role": "Teacher",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, jwt.SigningMethodHS256, []byte(testSecret))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))

	var body struct {
		UserID        uint   `json:"user_id"`
		Role          string `json:"role"`
		CorrelationID string `json:"correlation_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, uint(42), body.UserID)
	require.Equal(t, "teacher", body.Role)
	require.Equal(t, "abc-123", body.CorrelationID)
}

func TestJWTProtectedRejectsBadTokens(t *testing.T) {
	app := newIdentityApp()

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"wrong secret": "Bearer " + signToken(t, jwt.MapClaims{"sub": "1", "role": "student"},
			jwt.SigningMethodHS256, []byte("other")),
		"expired": "Bearer " + signToken(t, jwt.MapClaims{"sub": "1", "exp": time.Now().Add(-time.Hour).Unix()},
			jwt.SigningMethodHS256, []byte(testSecret)),
		"no subject": "Bearer " + signToken(t, jwt.MapClaims{"role": "admin"},
			jwt.SigningMethodHS256, []byte(testSecret)),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestCorrelationIDGeneratedWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID(zerolog.Nop()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(middleware.CorrelationIDFromContext(c.UserContext()))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
}
