// Package paypal is a thin client for the PayPal Orders v2 REST API.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/portalakashico/portal-backend/pkg/config"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

const (
	sandboxMode = "sandbox"
	liveMode    = "live"

	tokenPath        = "/v1/oauth2/token"
	ordersPath       = "/v2/checkout/orders"
	errorBodyLimit   = 4096
	defaultTimeout   = 20 * time.Second
	intentCapture    = "CAPTURE"
	userActionPayNow = "PAY_NOW"
)

const (
	StatusCompleted           = "COMPLETED"
	StatusPayerActionRequired = "PAYER_ACTION_REQUIRED"

	IssueOrderNotApproved     = "ORDER_NOT_APPROVED"
	IssueOrderAlreadyCaptured = "ORDER_ALREADY_CAPTURED"
	nameResourceNotFound      = "RESOURCE_NOT_FOUND"
)

var (
	errCredentialsRequired = errors.New("paypal client id and secret are required")
	errInvalidMode         = fmt.Errorf("paypal mode must be %q or %q", sandboxMode, liveMode)
)

var baseURLs = map[string]string{
	sandboxMode: "https://api-m.sandbox.paypal.com",
	liveMode:    "https://api-m.paypal.com",
}

// Client calls the Orders API with a cached client-credentials token.
type Client struct {
	api     *http.Client
	baseURL string
	mode    string
}

type clientOptions struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*clientOptions)

// WithHTTPClient overrides the HTTP client used for both token and API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithBaseURL overrides the mode-derived API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			o.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// NewClient builds the PayPal client for the configured mode.
func NewClient(cfg config.PayPalConfig, opts ...Option) (*Client, error) {
	mode, err := normalizeMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	clientID := strings.TrimSpace(cfg.ClientID)
	secret := strings.TrimSpace(cfg.ClientSecret)
	if clientID == "" || secret == "" {
		return nil, errCredentialsRequired
	}

	o := clientOptions{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURLs[mode],
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	credentials := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		TokenURL:     o.baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// The token source keeps this context for refreshes, so it must outlive any request.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, o.httpClient)
	api := credentials.Client(tokenCtx)
	api.Timeout = o.httpClient.Timeout

	return &Client{
		api:     api,
		baseURL: o.baseURL,
		mode:    mode,
	}, nil
}

// Mode reports the normalized PayPal mode.
func (c *Client) Mode() string {
	if c == nil {
		return ""
	}
	return c.mode
}

// CreateOrderParams describes a single-item order for a fixed amount.
type CreateOrderParams struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	ReferenceID string
	ReturnURL   string
	CancelURL   string
}

// Link is a HATEOAS link returned by the Orders API.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// Order is the subset of the Orders API resource the backend reads.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

// ApproveURL returns the link the buyer follows to approve the order.
func (o *Order) ApproveURL() string {
	if o == nil {
		return ""
	}
	for _, link := range o.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      amount `json:"amount"`
}

type experienceContext struct {
	ReturnURL  string `json:"return_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
	UserAction string `json:"user_action,omitempty"`
}

type paypalSource struct {
	ExperienceContext experienceContext `json:"experience_context"`
}

type paymentSource struct {
	PayPal paypalSource `json:"paypal"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
	PaymentSource *paymentSource `json:"payment_source,omitempty"`
}

// CreateOrder opens a CAPTURE-intent order and returns it with its approval link.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "paypal client not configured")
	}
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "paypal order amount must be positive")
	}

	body := createOrderRequest{
		Intent: intentCapture,
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: params.ReferenceID,
			Description: params.Description,
			Amount: amount{
				CurrencyCode: strings.ToUpper(strings.TrimSpace(params.Currency)),
				Value:        params.Amount.StringFixed(config.CurrencyExponent(params.Currency)),
			},
		}},
	}
	if params.ReturnURL != "" || params.CancelURL != "" {
		body.PaymentSource = &paymentSource{PayPal: paypalSource{
			ExperienceContext: experienceContext{
				ReturnURL:  params.ReturnURL,
				CancelURL:  params.CancelURL,
				UserAction: userActionPayNow,
			},
		}}
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, ordersPath, body, &order); err != nil {
		return nil, mapError(err, "create order")
	}
	return &order, nil
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeProvider, "paypal client not configured")
	}
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Falta el orderID de PayPal.")
	}

	path := fmt.Sprintf("%s/%s/capture", ordersPath, url.PathEscape(trimmed))
	var order Order
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &order); err != nil {
		return nil, mapError(err, "capture order")
	}
	return &order, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func normalizeMode(raw string) (string, error) {
	mode := strings.TrimSpace(strings.ToLower(raw))
	if mode == "" {
		mode = sandboxMode
	}
	if _, ok := baseURLs[mode]; !ok {
		return "", errInvalidMode
	}
	return mode, nil
}
