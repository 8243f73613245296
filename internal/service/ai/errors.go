package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"

	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

// ErrorKind distinguishes backend failure classes.
type ErrorKind string

const (
	KindTimeout    ErrorKind = "timeout"
	KindTransport  ErrorKind = "transport"
	KindBackend4xx ErrorKind = "backend-4xx"
	KindBackend5xx ErrorKind = "backend-5xx"
)

// ErrBackendUnavailable is reported when no generative backend is configured.
var ErrBackendUnavailable = errors.New("generative backend unavailable")

// BackendError is the only error Service.Generate returns.
type BackendError struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Err      error
}

func (e *BackendError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s backend %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s backend %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// statusPattern matches the HTTP status embedded in Ark and OpenAI-compatible
// client errors.
var statusPattern = regexp.MustCompile(`(?i)status code:?\s*(\d{3})`)

// classify maps any backend failure onto a BackendError.
func classify(provider string, err error) *BackendError {
	var be *BackendError
	if errors.As(err, &be) {
		return be
	}

	out := &BackendError{Provider: provider, Err: err}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out.Kind = KindTimeout
		return out
	case errors.Is(err, ErrBackendUnavailable):
		out.Kind = KindBackend5xx
		return out
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		out.Status = apiErr.Code
		out.Kind = kindForStatus(apiErr.Code)
		return out
	}

	if status, ok := statusFromChain(err); ok {
		out.Status = status
		out.Kind = kindForStatus(status)
		return out
	}

	var llmErr *llms.Error
	if errors.As(err, &llmErr) {
		switch llmErr.Code {
		case llms.ErrCodeTimeout:
			out.Kind = KindTimeout
		case llms.ErrCodeInvalidRequest, llms.ErrCodeAuthentication, llms.ErrCodeResourceNotFound,
			llms.ErrCodeTokenLimit, llms.ErrCodeContentFilter, llms.ErrCodeRateLimit, llms.ErrCodeQuotaExceeded:
			out.Kind = KindBackend4xx
		default:
			out.Kind = KindBackend5xx
		}
		return out
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		out.Kind = KindTimeout
		return out
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || errors.Is(err, context.Canceled) {
		out.Kind = KindTransport
		return out
	}

	out.Kind = KindBackend5xx
	return out
}

func statusFromChain(err error) (int, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if m := statusPattern.FindStringSubmatch(e.Error()); m != nil {
			status, convErr := strconv.Atoi(m[1])
			if convErr == nil {
				return status, true
			}
		}
	}
	return 0, false
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == 408 || status == 504:
		return KindTimeout
	case status >= 400 && status < 500:
		return KindBackend4xx
	default:
		return KindBackend5xx
	}
}
