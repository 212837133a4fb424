package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"propsales-backend/internal/domain"
	"propsales-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) (*Client, *int32) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Method == http.MethodGet {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "secret", time.Second), &hits
}

func TestCheckCustomerUnit_Booked(t *testing.T) {
	unitID := uuid.New()
	projectID := uuid.New()
	c, _ := serve(t, 200, `{"success":true,"data":{"hasBooking":true,"unitId":"`+unitID.String()+`","unitName":"A-1","projectId":"`+projectID.String()+`"}}`)

	customerID := uuid.New()
	elig, err := c.CheckCustomerUnit(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, customerID, elig.CustomerID)
	assert.True(t, elig.HasBooking)
	assert.Equal(t, unitID, *elig.UnitID)
	assert.Equal(t, "A-1", *elig.UnitName)
	assert.Equal(t, projectID, *elig.ProjectID)
}

func TestCheckCustomerUnit_NotBooked(t *testing.T) {
	c, _ := serve(t, 200, `{"success":true,"data":{"hasBooking":false}}`)
	elig, err := c.CheckCustomerUnit(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, elig.HasBooking)
	assert.Nil(t, elig.UnitID)
}

func TestCheckCustomerUnit_EnvelopeRules(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   error
	}{
		{"success false on 200", 200, `{"success":false,"message":"customer archived"}`, domain.ErrUpstreamRejected},
		{"success false on 409", 409, `{"success":false,"message":"Customer record locked"}`, domain.ErrUpstreamRejected},
		{"not found", 404, `{"success":false,"message":"no such customer"}`, domain.ErrNotFound},
		{"server error", 503, `upstream down`, domain.ErrTransport},
		{"malformed envelope", 200, `<html>`, domain.ErrValidation},
		{"null data", 200, `{"success":true,"data":null}`, domain.ErrValidation},
		{"missing hasBooking", 200, `{"success":true,"data":{"unitId":null}}`, domain.ErrValidation},
		{"booking without unit", 200, `{"success":true,"data":{"hasBooking":true}}`, domain.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := serve(t, tc.status, tc.body)
			_, err := c.CheckCustomerUnit(context.Background(), uuid.New())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.kind), "got %v", err)
			if tc.kind == domain.ErrUpstreamRejected {
				var de *domain.Error
				require.True(t, errors.As(err, &de))
				assert.Contains(t, tc.body, `"message":"`+de.Reason+`"`)
			}
		})
	}
}

func TestCheckCustomerUnit_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, "", time.Second)
	_, err := c.CheckCustomerUnit(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, domain.ErrTransport))
}

func TestBreakerOpensAfterConsecutiveTransportFailures(t *testing.T) {
	c, hits := serve(t, 500, `boom`)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := c.CheckCustomerUnit(ctx, uuid.New())
		require.True(t, errors.Is(err, domain.ErrTransport))
	}
	require.Equal(t, int32(5), atomic.LoadInt32(hits))

	_, err := c.CheckCustomerUnit(ctx, uuid.New())
	assert.True(t, errors.Is(err, domain.ErrTransport))
	assert.Equal(t, int32(5), atomic.LoadInt32(hits), "open breaker must not reach the server")
}

func TestBreakerIgnoresBusinessErrors(t *testing.T) {
	c, hits := serve(t, 404, `{"success":false}`)
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		_, err := c.CheckCustomerUnit(ctx, uuid.New())
		require.True(t, errors.Is(err, domain.ErrNotFound))
	}
	assert.Equal(t, int32(7), atomic.LoadInt32(hits))
}

func TestUpstreamRejection_ReachesClient(t *testing.T) {
	c, hits := serve(t, 200, `{"success":false,"message":"Customer record locked"}`)
	app := fiber.New()
	app.Get("/eligibility/:id", func(ctx *fiber.Ctx) error {
		elig, err := c.CheckCustomerUnit(ctx.UserContext(), uuid.MustParse(ctx.Params("id")))
		if err != nil {
			return response.DomainError(ctx, err)
		}
		return response.Success(ctx, "ok", elig)
	})

	for i := 0; i < 7; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/eligibility/"+uuid.New().String(), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
		var body response.Body
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Success)
		assert.Equal(t, "Customer record locked", body.Message)
		assert.Equal(t, "UPSTREAM_REJECTED", body.Reason)
	}
	assert.Equal(t, int32(7), atomic.LoadInt32(hits), "rejections must not open the breaker")
}

func TestPing(t *testing.T) {
	c, _ := serve(t, 200, ``)
	assert.NoError(t, c.Ping(context.Background()))
}
