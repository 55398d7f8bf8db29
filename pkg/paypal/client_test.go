package paypal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/portalakashico/portal-backend/pkg/config"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

const testBaseURL = "http://paypal.test"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// fakePayPal answers the token endpoint and delegates API calls to handler.
func fakePayPal(t *testing.T, tokenCalls *int32, handler func(*http.Request) *http.Response) *http.Client {
	t.Helper()
	return &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == tokenPath {
			atomic.AddInt32(tokenCalls, 1)
			if user, pass, ok := req.BasicAuth(); !ok || user != "client-id" || pass != "client-secret" {
				t.Fatalf("token request missing basic auth")
			}
			return jsonResponse(http.StatusOK, `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`), nil
		}
		if got := req.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		return handler(req), nil
	})}
}

func newTestClient(t *testing.T, httpClient *http.Client) *Client {
	t.Helper()
	client, err := NewClient(config.PayPalConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Mode:         "sandbox",
	}, WithBaseURL(testBaseURL), WithHTTPClient(httpClient))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateOrderSendsFixedAmountAndReturnsApproveLink(t *testing.T) {
	var tokenCalls int32
	var captured map[string]any
	httpClient := fakePayPal(t, &tokenCalls, func(req *http.Request) *http.Response {
		if req.Method != http.MethodPost || req.URL.Path != ordersPath {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		raw, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(raw, &captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(http.StatusCreated, `{"id":"ORDER-1","status":"PAYER_ACTION_REQUIRED","links":[{"href":"https://paypal.test/self","rel":"self"},{"href":"https://paypal.test/checkoutnow?token=ORDER-1","rel":"payer-action"}]}`)
	})
	client := newTestClient(t, httpClient)

	order, err := client.CreateOrder(context.Background(), CreateOrderParams{
		Amount:    decimal.RequireFromString("15"),
		Currency:  "usd",
		ReturnURL: "https://portal.test/success-paypal.html",
		CancelURL: "https://portal.test/",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID != "ORDER-1" {
		t.Fatalf("unexpected order id %q", order.ID)
	}
	if order.ApproveURL() != "https://paypal.test/checkoutnow?token=ORDER-1" {
		t.Fatalf("unexpected approve url %q", order.ApproveURL())
	}

	if captured["intent"] != intentCapture {
		t.Fatalf("expected CAPTURE intent, got %v", captured["intent"])
	}
	units := captured["purchase_units"].([]any)
	amount := units[0].(map[string]any)["amount"].(map[string]any)
	if amount["value"] != "15.00" || amount["currency_code"] != "USD" {
		t.Fatalf("unexpected amount %v", amount)
	}

	if _, err := client.CreateOrder(context.Background(), CreateOrderParams{Amount: decimal.RequireFromString("15"), Currency: "USD"}); err != nil {
		t.Fatalf("second create order: %v", err)
	}
	if got := atomic.LoadInt32(&tokenCalls); got != 1 {
		t.Fatalf("expected token fetched once and cached, got %d", got)
	}
}

func TestCaptureOrderReturnsStatus(t *testing.T) {
	var tokenCalls int32
	httpClient := fakePayPal(t, &tokenCalls, func(req *http.Request) *http.Response {
		if req.URL.Path != ordersPath+"/ORDER-1/capture" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusCreated, `{"id":"ORDER-1","status":"COMPLETED"}`)
	})
	client := newTestClient(t, httpClient)

	order, err := client.CaptureOrder(context.Background(), "ORDER-1")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if order.Status != StatusCompleted {
		t.Fatalf("unexpected status %q", order.Status)
	}
}

func TestCaptureOrderErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  pkgerrors.Code
		wantIssue string
	}{
		{
			name:     "unknown order",
			status:   http.StatusNotFound,
			body:     `{"name":"RESOURCE_NOT_FOUND","message":"The specified resource does not exist.","debug_id":"abc"}`,
			wantCode: pkgerrors.CodeNotFound,
		},
		{
			name:      "not approved",
			status:    http.StatusUnprocessableEntity,
			body:      `{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"ORDER_NOT_APPROVED"}]}`,
			wantCode:  pkgerrors.CodeProvider,
			wantIssue: IssueOrderNotApproved,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `oops`,
			wantCode: pkgerrors.CodeProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tokenCalls int32
			httpClient := fakePayPal(t, &tokenCalls, func(req *http.Request) *http.Response {
				return jsonResponse(tt.status, tt.body)
			})
			client := newTestClient(t, httpClient)

			_, err := client.CaptureOrder(context.Background(), "ORDER-X")
			if !pkgerrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if tt.wantIssue != "" && !IsIssue(err, tt.wantIssue) {
				t.Fatalf("expected issue %s in %v", tt.wantIssue, err)
			}
		})
	}
}

func TestCaptureOrderRequiresID(t *testing.T) {
	var tokenCalls int32
	client := newTestClient(t, fakePayPal(t, &tokenCalls, func(*http.Request) *http.Response {
		t.Fatalf("no request expected")
		return nil
	}))
	if _, err := client.CaptureOrder(context.Background(), "  "); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(config.PayPalConfig{Mode: "sandbox"}); err == nil {
		t.Fatalf("expected credentials error")
	}
	if _, err := NewClient(config.PayPalConfig{ClientID: "a", ClientSecret: "b", Mode: "prod"}); err == nil {
		t.Fatalf("expected invalid mode error")
	}
	client, err := NewClient(config.PayPalConfig{ClientID: "a", ClientSecret: "b", Mode: "LIVE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Mode() != liveMode || client.baseURL != baseURLs[liveMode] {
		t.Fatalf("unexpected mode/base %s %s", client.Mode(), client.baseURL)
	}
}

func TestCreateOrderFormatsZeroDecimalCurrency(t *testing.T) {
	var tokenCalls int32
	var captured map[string]any
	httpClient := fakePayPal(t, &tokenCalls, func(req *http.Request) *http.Response {
		raw, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(raw, &captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(http.StatusCreated, `{"id":"ORDER-2","status":"CREATED","links":[]}`)
	})
	client := newTestClient(t, httpClient)

	if _, err := client.CreateOrder(context.Background(), CreateOrderParams{Amount: decimal.RequireFromString("2000"), Currency: "jpy"}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	units := captured["purchase_units"].([]any)
	amount := units[0].(map[string]any)["amount"].(map[string]any)
	if amount["value"] != "2000" || amount["currency_code"] != "JPY" {
		t.Fatalf("unexpected amount %v", amount)
	}
}
