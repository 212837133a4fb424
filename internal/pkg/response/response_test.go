package response

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"propsales-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 404, StatusFor(domain.NotFound("transfer", "x")))
	assert.Equal(t, 400, StatusFor(domain.Validation("amount", "bad")))
	assert.Equal(t, 400, StatusFor(domain.ImmutableField("unit_id")))
	assert.Equal(t, 422, StatusFor(domain.Ineligible("x")))
	assert.Equal(t, 409, StatusFor(domain.NoPendingCharge("x")))
	assert.Equal(t, 502, StatusFor(domain.Transport("op", errors.New("x"))))
	assert.Equal(t, 422, StatusFor(domain.UpstreamRejected("Customer record locked")))
	assert.Equal(t, 202, StatusFor(domain.Orphaned("t", errors.New("x"))))
	assert.Equal(t, 500, StatusFor(errors.New("boom")))
}

func decode(t *testing.T, app *fiber.App, path string) (int, Body) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var b Body
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	return resp.StatusCode, b
}

func TestDomainError(t *testing.T) {
	app := fiber.New()
	app.Get("/validation", func(c *fiber.Ctx) error {
		return DomainError(c, domain.Validation("cheque_details.bank_name", "cheque_details.bank_name is required"))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return DomainError(c, errors.New("pq: connection reset"))
	})

	code, b := decode(t, app, "/validation")
	assert.Equal(t, 400, code)
	assert.False(t, b.Success)
	assert.Equal(t, "VALIDATION", b.Reason)
	assert.Equal(t, "cheque_details.bank_name", b.Field)
	assert.Equal(t, "cheque_details.bank_name is required", b.Message)

	code, b = decode(t, app, "/internal")
	assert.Equal(t, 500, code)
	assert.Equal(t, "Internal Server Error", b.Message)
	assert.Equal(t, "INTERNAL", b.Reason)
}

func TestWarning(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return Warning(c, domain.Orphaned("t1", errors.New("timeout")), fiber.Map{"transfer_id": "t1"})
	})
	code, b := decode(t, app, "/")
	assert.Equal(t, 202, code)
	assert.True(t, b.Success)
	assert.Equal(t, "ORPHANED", b.Reason)
	assert.Contains(t, b.Message, "manual reconciliation")
	assert.Equal(t, "t1", b.Data.(map[string]interface{})["transfer_id"])
}
