package engine

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryAfterHeader parses Retry-After as delta-seconds or an HTTP date.
func retryAfterHeader(header http.Header, now time.Time) (time.Duration, bool) {
	if header == nil {
		return 0, false
	}

	retry := strings.TrimSpace(header.Get(headerRetry))
	if retry == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(retry); err == nil {
		if seconds < 0 {
			seconds = 0
		}
		return time.Duration(seconds) * time.Second, true
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		wait := parsed.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}

	return 0, false
}

func resetHeader(header http.Header) time.Time {
	if header == nil {
		return time.Time{}
	}
	reset, err := strconv.ParseInt(strings.TrimSpace(header.Get(headerReset)), 10, 64)
	if err != nil || reset <= 0 {
		return time.Time{}
	}
	return time.Unix(reset, 0).UTC()
}

type errorBody struct {
	Message          string            `json:"message"`
	DocumentationURL string            `json:"documentation_url"`
	Errors           []json.RawMessage `json:"errors"`
}

// parseErrorBody extracts GitHub's error document. Bodies that are not
// JSON are returned as the message, trimmed.
func parseErrorBody(body []byte) (string, string, []FieldError) {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		text := strings.TrimSpace(string(body))
		if len(text) > 512 {
			text = text[:512] + "..."
		}
		return text, "", nil
	}

	fields := make([]FieldError, 0, len(payload.Errors))
	for _, raw := range payload.Errors {
		var fe FieldError
		if err := json.Unmarshal(raw, &fe); err == nil {
			fields = append(fields, fe)
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err == nil && text != "" {
			fields = append(fields, FieldError{Message: text})
		}
	}
	if len(fields) == 0 {
		fields = nil
	}
	return payload.Message, payload.DocumentationURL, fields
}

// classify maps a non-2xx response onto the error taxonomy. Every status
// lands in exactly one kind.
func classify(method, rawURL string, status int, header http.Header, body []byte, now time.Time) *Error {
	message, docURL, fields := parseErrorBody(body)
	if message == "" {
		message = http.StatusText(status)
	}

	apiErr := &Error{
		Method:           method,
		URL:              rawURL,
		StatusCode:       status,
		Message:          message,
		DocumentationURL: docURL,
	}

	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized:
		apiErr.Kind = KindAuthentication
	case status == http.StatusForbidden || status == http.StatusTooManyRequests:
		remaining := strings.TrimSpace(header.Get(headerRemaining))
		wait, hasRetry := retryAfterHeader(header, now)
		switch {
		case remaining == "0":
			apiErr.Kind = KindPrimaryRateLimit
			apiErr.ResetAt = resetHeader(header)
		case hasRetry:
			apiErr.Kind = KindSecondaryRateLimit
			apiErr.RetryAfter = wait
		case strings.Contains(lower, "secondary rate limit"), strings.Contains(lower, "abuse detection"):
			apiErr.Kind = KindSecondaryRateLimit
		case strings.Contains(lower, "api rate limit exceeded"):
			apiErr.Kind = KindPrimaryRateLimit
			apiErr.ResetAt = resetHeader(header)
		case status == http.StatusTooManyRequests:
			apiErr.Kind = KindSecondaryRateLimit
		default:
			apiErr.Kind = KindAuthorization
		}
	case status == http.StatusNotFound || status == http.StatusGone:
		apiErr.Kind = KindNotFound
	case status >= 500:
		apiErr.Kind = KindServer
	default:
		apiErr.Kind = KindValidation
		apiErr.FieldErrors = fields
	}
	return apiErr
}
