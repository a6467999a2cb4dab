package llm

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindCredential
	KindQuota
	KindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindCredential:
		return "credential"
	case KindQuota:
		return "quota"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

const (
	credentialGuidance = "Please configure your OpenAI API key in the environment variables to enable AI responses."
	quotaGuidance      = "OpenAI API quota exceeded. Please check your billing settings or try again later."
	rateLimitGuidance  = "Rate limit exceeded. Please wait a moment before sending another message."

	// NoResponseMessage is returned when the endpoint answers without a usable completion.
	NoResponseMessage = "I apologize, but I was unable to generate a response. Please try again."
)

// Guidance returns the user-facing reply for a classified failure, or "" for
// KindUnknown.
func (k ErrorKind) Guidance() string {
	switch k {
	case KindCredential:
		return credentialGuidance
	case KindQuota:
		return quotaGuidance
	case KindRateLimit:
		return rateLimitGuidance
	default:
		return ""
	}
}

// APIError is an endpoint failure that carries its HTTP status.
type APIError struct {
	Status  int
	Message string

	err error
}

func (e *APIError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("API returned status code %d: %s", e.Status, e.Message)
}

func (e *APIError) StatusCode() int {
	return e.Status
}

func (e *APIError) Unwrap() error {
	return e.err
}

// The openai client reports non-200 answers as plain text in this shape.
var statusCodePattern = regexp.MustCompile(`unexpected status code: (\d{3})(?:: (.*))?`)

// asAPIError recovers the HTTP status from an openai client error. Errors
// that already carry a status, or that do not mention one, are returned as is.
func asAPIError(err error) error {
	if err == nil {
		return nil
	}
	var sc statusCoder
	if errors.As(err, &sc) {
		return err
	}
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	status, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return err
	}
	return &APIError{Status: status, Message: m[2], err: err}
}

type statusCoder interface {
	StatusCode() int
}

// ClassifyError sorts an endpoint failure into a kind. Errors that expose a
// status code are classified by it; anything else falls back to matching
// the error text.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	msg := strings.ToLower(err.Error())

	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindCredential
		case http.StatusTooManyRequests:
			if strings.Contains(msg, "quota") {
				return KindQuota
			}
			return KindRateLimit
		}
	}

	switch {
	case containsAny(msg, "api key", "api_key", "status code: 401"):
		return KindCredential
	case strings.Contains(msg, "quota"):
		return KindQuota
	case containsAny(msg, "rate limit", "rate_limit", "status code: 429"):
		return KindRateLimit
	}
	return KindUnknown
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
