package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/openai/openai-go/option"

	"github.com/portalakashico/portal-backend/pkg/config"
)

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

func TestCompleteSendsParametersAndTrimsFirstChoice(t *testing.T) {
	var captured map[string]any
	httpClient := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/chat/completions") {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected authorization %q", got)
		}
		raw, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(raw, &captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4.1-mini","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Querida Ana...  \n"}}]}`), nil
	})}

	client, err := NewClient(config.OpenAIConfig{APIKey: "sk-test"},
		option.WithBaseURL("http://openai.test/v1/"),
		option.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	text, err := client.Complete(context.Background(), CompletionRequest{
		Model:       "gpt-4.1-mini",
		System:      "sistema",
		User:        "usuario",
		Temperature: 0.9,
		MaxTokens:   2000,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if text != "Querida Ana..." {
		t.Fatalf("unexpected text %q", text)
	}
	if captured["model"] != "gpt-4.1-mini" || captured["temperature"] != 0.9 || captured["max_tokens"] != float64(2000) {
		t.Fatalf("unexpected request parameters %v", captured)
	}
	messages := captured["messages"].([]any)
	if len(messages) != 2 || messages[0].(map[string]any)["role"] != "system" || messages[1].(map[string]any)["role"] != "user" {
		t.Fatalf("unexpected messages %v", messages)
	}
}

func TestCompleteDoesNotRetryFailures(t *testing.T) {
	calls := 0
	httpClient := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`), nil
	})}
	client, err := NewClient(config.OpenAIConfig{APIKey: "sk-test"},
		option.WithBaseURL("http://openai.test/v1/"),
		option.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Complete(context.Background(), CompletionRequest{Model: "gpt-4.1-mini", System: "s", User: "u"}); err == nil {
		t.Fatalf("expected error on 429")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestCompleteWithoutChoices(t *testing.T) {
	httpClient := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"id":"chatcmpl-2","object":"chat.completion","created":1,"model":"gpt-4.1-mini","choices":[]}`), nil
	})}
	client, err := NewClient(config.OpenAIConfig{APIKey: "sk-test"},
		option.WithBaseURL("http://openai.test/v1/"),
		option.WithHTTPClient(httpClient),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	text, err := client.Complete(context.Background(), CompletionRequest{Model: "m"})
	if err != nil {
		t.Fatalf("expected empty reading without error, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(config.OpenAIConfig{APIKey: " "}); !errors.Is(err, errAPIKeyRequired) {
		t.Fatalf("expected errAPIKeyRequired, got %v", err)
	}
}
