package paypal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/portalakashico/portal-backend/pkg/errors"
)

// APIError is a non-2xx response from the PayPal REST API.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
	DebugID    string
	Issues     []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("paypal status %d", e.StatusCode)
	if e.Name != "" {
		msg += ": " + e.Name
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.Issues) > 0 {
		msg += " (" + strings.Join(e.Issues, ", ") + ")"
	}
	if e.DebugID != "" {
		msg += " debug_id=" + e.DebugID
	}
	return msg
}

// HasIssue reports whether the response listed the given issue code.
func (e *APIError) HasIssue(issue string) bool {
	if e == nil {
		return false
	}
	for _, candidate := range e.Issues {
		if candidate == issue {
			return true
		}
	}
	return false
}

// IsIssue reports whether err wraps an APIError carrying the given issue code.
func IsIssue(err error, issue string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.HasIssue(issue)
	}
	return false
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	var payload struct {
		Name    string `json:"name"`
		Message string `json:"message"`
		DebugID string `json:"debug_id"`
		Details []struct {
			Issue string `json:"issue"`
		} `json:"details"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		apiErr.Name = payload.Name
		apiErr.Message = payload.Message
		apiErr.DebugID = payload.DebugID
		for _, detail := range payload.Details {
			if detail.Issue != "" {
				apiErr.Issues = append(apiErr.Issues, detail.Issue)
			}
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}

func mapError(err error, op string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound || apiErr.Name == nameResourceNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "La orden de PayPal no existe.")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeProvider, err, fmt.Sprintf("paypal %s failed", op))
}
