// Package httpx decodes the backend's HTTP error envelope. Every
// failing endpoint responds with {"error", "code", "request_id"}; the
// request_id is kept so transient-failure toasts can reference it in
// support reports.
package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// APIError is a non-2xx backend response.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

// DecodeError builds an APIError from a failed response body. Bodies
// that do not match the envelope still produce a usable error.
func DecodeError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.Error != "" {
			apiErr.Message = resp.Error
		}
		apiErr.Code = resp.Code
		apiErr.RequestID = resp.RequestID
	}
	return apiErr
}
