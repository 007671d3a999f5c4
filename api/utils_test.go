package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryString(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		value   string
		present bool
	}{
		{"Missing", "/probe", "", false},
		{"Empty", "/probe?name=", "", true},
		{"Present", "/probe?name=requests", "requests", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/probe", func(c *fiber.Ctx) error {
				value, ok := queryString(c, "name")
				assert.Equal(t, tt.value, value)
				assert.Equal(t, tt.present, ok)
				return c.SendStatus(http.StatusOK)
			})

			resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestQueryUnixTime(t *testing.T) {
	since := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	app := fiber.New()
	app.Get("/probe", func(c *fiber.Ctx) error {
		parsed, present, err := queryUnixTime(c, "since")
		if err != nil {
			return c.SendStatus(http.StatusBadRequest)
		}
		if !present {
			return c.SendStatus(http.StatusNoContent)
		}
		assert.Equal(t, since, parsed)
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/probe?since=%d", since.Unix()), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/probe", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/probe?since=yesterday", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
