// internal/llm/errors.go
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from an upstream model API. The message is
// kept verbatim because it may carry a retry hint.
type APIError struct {
	Provider   string
	StatusCode int
	Status     string // vendor status such as RESOURCE_EXHAUSTED
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s API error: %d %s - %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s API error: %d - %s", e.Provider, e.StatusCode, e.Message)
}

// HTTPStatus exposes the upstream status code to the retry classifier.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// NewAPIError builds an APIError from a response body. Google style
// {"error":{"message","status"}} and flat {"message"} bodies are understood;
// anything else is kept as raw text.
func NewAPIError(provider string, statusCode int, body []byte) *APIError {
	apiErr := &APIError{Provider: provider, StatusCode: statusCode}

	var nested struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		apiErr.Message = nested.Error.Message
		apiErr.Status = nested.Error.Status
		return apiErr
	}

	var flat struct {
		Message json.RawMessage `json:"message"`
		Type    string          `json:"type"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && len(flat.Message) > 0 {
		var text string
		if json.Unmarshal(flat.Message, &text) != nil {
			text = string(flat.Message)
		}
		apiErr.Message = text
		apiErr.Status = flat.Type
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
