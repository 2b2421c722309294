package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	brevoAPI = "https://api.brevo.com/v3/smtp/email"

	DefaultFrom       = "no-reply@trubid.auction"
	defaultSenderName = "TruBid"
	supportAddress    = "support@trubid.auction"
)

// Mailer delivers one rendered HTML email.
type Mailer interface {
	Send(ctx context.Context, to, from, subject, htmlBody string) error
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// brevoMessage is the v3 transactional email body.
type brevoMessage struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	ReplyTo     *brevoAddress  `json:"replyTo,omitempty"`
}

// BrevoClient sends through Brevo (formerly Sendinblue). The sender is the template's from_email,
// else MailFrom, else DefaultFrom.
type BrevoClient struct {
	APIKey     string
	MailFrom   string
	SenderName string
	Endpoint   string
	Client     *http.Client
}

func (c *BrevoClient) from(override string) string {
	for _, addr := range []string{override, c.MailFrom} {
		if addr = strings.TrimSpace(addr); addr != "" {
			return addr
		}
	}
	return DefaultFrom
}

func (c *BrevoClient) senderName() string {
	if c.SenderName != "" {
		return c.SenderName
	}
	return defaultSenderName
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

func (c *BrevoClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// Send posts one email. An empty API key disables sending. Non-2xx answers are returned with the
// start of Brevo's error body.
func (c *BrevoClient) Send(ctx context.Context, to, from, subject, htmlBody string) error {
	if c.APIKey == "" {
		return nil
	}
	payload, err := json.Marshal(brevoMessage{
		Sender:      brevoAddress{Email: c.from(from), Name: c.senderName()},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: htmlBody,
		ReplyTo:     &brevoAddress{Email: supportAddress, Name: c.senderName() + " Support"},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("brevo send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
