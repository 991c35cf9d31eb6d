package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is the stable, machine-checkable class of an API failure.
type Kind string

const (
	KindAuthentication     Kind = "authentication"
	KindAuthorization      Kind = "authorization"
	KindNotFound           Kind = "not_found"
	KindPrimaryRateLimit   Kind = "primary_rate_limit"
	KindSecondaryRateLimit Kind = "secondary_rate_limit"
	KindValidation         Kind = "validation"
	KindServer             Kind = "server"
	KindNetwork            Kind = "network"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrAuthentication     = &Error{Kind: KindAuthentication}
	ErrAuthorization      = &Error{Kind: KindAuthorization}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrPrimaryRateLimit   = &Error{Kind: KindPrimaryRateLimit}
	ErrSecondaryRateLimit = &Error{Kind: KindSecondaryRateLimit}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrServer             = &Error{Kind: KindServer}
	ErrNetwork            = &Error{Kind: KindNetwork}
)

// FieldError is one entry of the "errors" array GitHub returns with 422.
type FieldError struct {
	Resource string `json:"resource,omitempty"`
	Field    string `json:"field,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (f FieldError) String() string {
	if f.Message != "" {
		return f.Message
	}
	parts := make([]string, 0, 3)
	for _, part := range []string{f.Resource, f.Field, f.Code} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// Error is the single failure type produced by the request pipeline.
type Error struct {
	Kind             Kind
	StatusCode       int
	Method           string
	URL              string
	Message          string
	DocumentationURL string

	// ResetAt is set for primary rate limits.
	ResetAt time.Time
	// RetryAfter is the server-suggested delay for secondary rate limits;
	// zero when the server gave none.
	RetryAfter time.Duration
	// FieldErrors carries validation details verbatim.
	FieldErrors []FieldError
	// Attempts is the number of attempts the retry policy made.
	Attempts int

	Err error
}

// NewError builds an error of the given kind with a message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Method != "" && e.URL != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.URL)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, "%d ", e.StatusCode)
	}
	b.WriteString(string(e.Kind))

	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	for _, fe := range e.FieldErrors {
		if s := fe.String(); s != "" {
			b.WriteString("; ")
			b.WriteString(s)
		}
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " (after %d attempts)", e.Attempts)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.StatusCode == 0 && t.Message == ""
}

// Retryable reports whether the retry policy may re-issue the request.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindSecondaryRateLimit, KindServer, KindNetwork:
		return true
	default:
		return false
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func (e *Error) withAttempts(n int) *Error {
	cp := *e
	cp.Attempts = n
	return &cp
}
