// Package email sends transactional mail through the Resend API.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/portalakashico/portal-backend/pkg/config"
)

const defaultTimeout = 20 * time.Second

var (
	errAPIKeyRequired = errors.New("resend api key is required")
	errFromRequired   = errors.New("email sender address is required")
	errRecipient      = errors.New("email recipient is required")
)

// Message is one outgoing HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Client sends mail from a fixed sender address.
type Client struct {
	api  *resend.Client
	from string
}

// Option configures optional client behavior.
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
}

// WithHTTPClient overrides the HTTP client used to reach Resend.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// NewClient builds the Resend client from configuration.
func NewClient(cfg config.ResendConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, errFromRequired
	}

	o := clientOptions{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return &Client{
		api:  resend.NewCustomClient(o.httpClient, apiKey),
		from: from,
	}, nil
}

// From returns the configured sender address.
func (c *Client) From() string {
	if c == nil {
		return ""
	}
	return c.from
}

// Send delivers msg and returns the provider error, if any.
func (c *Client) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errRecipient
	}
	_, err := c.api.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}
