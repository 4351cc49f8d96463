package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrSessionInvalid is matched by every 401 failure. Listeners registered with
// OnSessionInvalid have already run by the time the caller sees it.
var ErrSessionInvalid = errors.New("session invalid")

// Kind classifies a failed API call.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindTimeout
	KindCanceled
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindRateLimited
	KindServer
	KindValidation
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// APIError is returned for every failed call. Err holds the transport error
// when no response was received.
type APIError struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	return target == ErrSessionInvalid && e.Kind == KindUnauthorized
}

// KindOf returns the classification of err, or 0 when err is not an APIError.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// MessageOf returns the server supplied message for err, or fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// classifyResponse maps a non-2xx response onto a Kind.
func classifyResponse(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Method:  method,
		Path:    path,
		Status:  status,
		Message: serverMessage(body),
	}

	switch {
	case status == http.StatusUnauthorized:
		apiErr.Kind = KindUnauthorized
	case status == http.StatusForbidden:
		apiErr.Kind = KindForbidden
	case status == http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case status == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimited
	case status >= http.StatusInternalServerError:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindValidation
	}

	return apiErr
}

// classifyTransport maps a failure where no response was received.
func classifyTransport(method, path string, err error) *APIError {
	apiErr := &APIError{
		Method: method,
		Path:   path,
		Err:    err,
		Kind:   KindNetwork,
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		apiErr.Kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		apiErr.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		apiErr.Kind = KindTimeout
	}

	return apiErr
}

// unreachable is true for connection level failures such as a refused dial
// or a DNS lookup error.
func unreachable(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	return errors.As(err, &opErr) || errors.As(err, &dnsErr)
}

func serverMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	return eb.Error
}
