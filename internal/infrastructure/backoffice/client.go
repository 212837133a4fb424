package backoffice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"propsales-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const defaultTimeout = 10 * time.Second

// envelope is the back office's response wrapper. success=false is an error
// whatever the HTTP status.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type eligibilityPayload struct {
	HasBooking *bool      `json:"hasBooking"`
	UnitID     *uuid.UUID `json:"unitId"`
	UnitName   *string    `json:"unitName"`
	ProjectID  *uuid.UUID `json:"projectId"`
}

// Client checks eligibility against the property back office REST API.
type Client struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New returns a Client with its own circuit breaker. The breaker opens after
// five consecutive transport failures and probes again after thirty seconds.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "backoffice",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// Only transport failures count against the breaker; a business
			// error means the back office is up.
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, domain.ErrTransport)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			},
		}),
	}
}

// CheckCustomerUnit calls GET /unit-transfer/customer/{id}.
func (c *Client) CheckCustomerUnit(ctx context.Context, customerID uuid.UUID) (domain.Eligibility, error) {
	out := domain.Eligibility{CustomerID: customerID}
	data, err := c.get(ctx, "/unit-transfer/customer/"+customerID.String(), "customer", customerID.String())
	if err != nil {
		return out, err
	}

	var p eligibilityPayload
	if err := json.Unmarshal(data, &p); err != nil || p.HasBooking == nil {
		return out, domain.Validation("data", "malformed eligibility payload")
	}
	out.HasBooking = *p.HasBooking
	if out.HasBooking {
		if p.UnitID == nil {
			return out, domain.Validation("data.unitId", "eligibility payload has a booking without a unit")
		}
		out.UnitID = p.UnitID
		out.UnitName = p.UnitName
		out.ProjectID = p.ProjectID
	}
	return out, nil
}

// Ping reports whether the back office answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: defaultTimeout}
	}
	return c.Client
}

func (c *Client) get(ctx context.Context, path, entity, id string) (json.RawMessage, error) {
	if c.breaker == nil {
		return c.do(ctx, path, entity, id)
	}
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, path, entity, id)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, domain.Transport("backoffice "+path, err)
	}
	if err != nil {
		return nil, err
	}
	return res.(json.RawMessage), nil
}

func (c *Client) do(ctx context.Context, path, entity, id string) (json.RawMessage, error) {
	op := "backoffice GET " + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, domain.Transport(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, domain.Transport(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Transport(op, err)
	}
	if resp.StatusCode >= 500 {
		return nil, domain.Transport(op, fmt.Errorf("status %d", resp.StatusCode))
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NotFound(entity, id)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, domain.Validation("", "back office returned a malformed envelope")
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("back office rejected the request (status %d)", resp.StatusCode)
		}
		return nil, domain.UpstreamRejected(msg)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, domain.Validation("data", "back office response has no data")
	}
	return env.Data, nil
}
