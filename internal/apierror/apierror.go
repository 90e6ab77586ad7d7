// Package apierror provides the standardized error envelope for the HTTP
// facade. Internal details (stack traces, store errors) never leak through.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}
