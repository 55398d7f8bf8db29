package stripe

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stripe/stripe-go/v84"

	"github.com/portalakashico/portal-backend/pkg/config"
	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

func TestNewClientValidatesKeyForEnvironment(t *testing.T) {
	if _, err := NewClient(context.Background(), config.StripeConfig{}, nil); !errors.Is(err, errAPIKeyRequired) {
		t.Fatalf("expected errAPIKeyRequired, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_live_123", Env: "test"}, nil); err == nil {
		t.Fatalf("expected live key rejected in test env")
	}
	if _, err := NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_test_123", Env: "staging"}, nil); !errors.Is(err, errInvalidStripeEnv) {
		t.Fatalf("expected invalid env error, got %v", err)
	}

	client, err := NewClient(context.Background(), config.StripeConfig{SecretKey: "sk_test_123", WebhookSecret: " whsec_1 "}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Environment() != testEnv {
		t.Fatalf("expected test env, got %q", client.Environment())
	}
	if client.SigningSecret() != "whsec_1" {
		t.Fatalf("expected trimmed signing secret, got %q", client.SigningSecret())
	}
}

func TestMapError(t *testing.T) {
	missing := &stripe.Error{HTTPStatusCode: http.StatusNotFound, Code: stripe.ErrorCodeResourceMissing}
	if got := MapError(missing, "retrieve checkout session"); !pkgerrors.HasCode(got, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", got)
	}

	unauthorized := &stripe.Error{HTTPStatusCode: http.StatusUnauthorized}
	if got := MapError(unauthorized, "create checkout session"); !pkgerrors.HasCode(got, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error, got %v", got)
	}

	if got := MapError(errors.New("dial tcp: timeout"), "create checkout session"); !pkgerrors.HasCode(got, pkgerrors.CodeProvider) {
		t.Fatalf("expected provider error for network failure, got %v", got)
	}

	if MapError(nil, "noop") != nil {
		t.Fatalf("nil error should map to nil")
	}
}
