package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"propsales-backend/internal/domain"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches the Brevo API v3 transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender `json:"sender"`
	To          []BrevoTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Notifier tells operations about transfers that need manual reconciliation.
type Notifier interface {
	NotifyOrphaned(ctx context.Context, transfers []domain.TransferTransaction) error
}

// BrevoClient sends ops alerts via Brevo. Empty APIKey or To makes it a no-op.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	To       string
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@propsales.app"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

func (c *BrevoClient) send(ctx context.Context, subject, htmlBody string) error {
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Property Sales Back Office"},
		To:          []BrevoTo{{Email: c.To}},
		Subject:     subject,
		HTMLContent: htmlBody,
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// NotifyOrphaned sends one email listing every transfer awaiting reconciliation.
func (c *BrevoClient) NotifyOrphaned(ctx context.Context, transfers []domain.TransferTransaction) error {
	if c.APIKey == "" || c.To == "" || len(transfers) == 0 {
		return nil
	}
	subject := fmt.Sprintf("%d unit transfer(s) need manual reconciliation", len(transfers))
	return c.send(ctx, subject, orphanedContent(transfers))
}

func orphanedContent(transfers []domain.TransferTransaction) string {
	var rows strings.Builder
	for _, t := range transfers {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			t.TransferID, t.CustomerID, t.UnitID, html.EscapeString(t.Charge.Amount.StringFixed(2)),
			t.CreatedAt.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf(`<h1>Unit transfers awaiting reconciliation</h1>
<p>The transfers below were recorded but their transfer-charge consumption could not be confirmed.
Resolve each one from the reconciliation screen: consume a pending charge, or void the record.</p>
<table border="1" cellpadding="6">
<tr><th>Transfer</th><th>Customer</th><th>Unit</th><th>Amount</th><th>Recorded at</th></tr>
%s</table>`, rows.String())
}
