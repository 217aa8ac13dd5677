package utils_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-classroom-api/internal/utils"
)

type envelope struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Data    json.RawMessage            `json:"data"`
	Meta    map[string]interface{}     `json:"meta"`
	Details map[string]json.RawMessage `json:"details"`
}

func call(t *testing.T, handler fiber.Handler) (int, envelope, map[string]json.RawMessage) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &raw))
	var body envelope
	require.NoError(t, json.Unmarshal(payload, &body))
	return resp.StatusCode, body, raw
}

func TestOKCarriesItemsAndPagination(t *testing.T) {
	status, body, _ := call(t, func(c *fiber.Ctx) error {
		items := []map[string]interface{}{{"id": 1, "status": "submitted"}, {"id": 2, "status": "late"}}
		return utils.OK(c, items, "submissions retrieved", map[string]int{"page": 1, "page_size": 2, "total_items": 3, "total_pages": 2})
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, body.Success)
	require.Equal(t, "submissions retrieved", body.Message)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 2)
	require.Equal(t, "late", items[1]["status"])
	require.Equal(t, float64(3), body.Meta["total_items"])
	require.Equal(t, float64(2), body.Meta["total_pages"])
}

func TestSendSuccessWithStatusCreated(t *testing.T) {
	status, body, raw := call(t, func(c *fiber.Ctx) error {
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "", map[string]bool{"created": true})
	})

	require.Equal(t, fiber.StatusCreated, status)
	require.True(t, body.Success)
	require.Equal(t, "success", body.Message)
	require.NotContains(t, raw, "meta")
	require.NotContains(t, raw, "details")
}

func TestFailCarriesRetryableConflict(t *testing.T) {
	status, body, raw := call(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusConflict, "submission changed concurrently", fiber.Map{"retryable": true})
	})

	require.Equal(t, fiber.StatusConflict, status)
	require.False(t, body.Success)
	require.Equal(t, "submission changed concurrently", body.Message)
	require.JSONEq(t, "true", string(body.Details["retryable"]))
	require.NotContains(t, raw, "data")
}

func TestFailCarriesFieldErrors(t *testing.T) {
	status, body, _ := call(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", fiber.Map{
			"fields": []map[string]string{{"field": "title", "message": "must not be empty"}},
		})
	})

	require.Equal(t, fiber.StatusBadRequest, status)
	require.JSONEq(t, `[{"field":"title","message":"must not be empty"}]`, string(body.Details["fields"]))
}

func TestSendErrorDefaultsMessage(t *testing.T) {
	status, body, raw := call(t, func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusTooManyRequests, "")
	})

	require.Equal(t, fiber.StatusTooManyRequests, status)
	require.False(t, body.Success)
	require.Equal(t, "error", body.Message)
	require.NotContains(t, raw, "details")
}
