package engine

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	reset := now.Add(15 * time.Minute)

	exhausted := rateHeader(5000, 0, reset)
	withRetry := rateHeader(5000, 4000, reset)
	withRetry.Set(headerRetry, "42")

	tests := []struct {
		name   string
		status int
		header http.Header
		body   string
		want   Kind
	}{
		{"unauthorized", 401, nil, `{"message":"Bad credentials"}`, KindAuthentication},
		{"forbidden", 403, nil, `{"message":"Resource not accessible by integration"}`, KindAuthorization},
		{"primary via header", 403, exhausted, `{"message":"API rate limit exceeded for user"}`, KindPrimaryRateLimit},
		{"primary via 429", 429, exhausted, `{}`, KindPrimaryRateLimit},
		{"secondary via retry-after", 403, withRetry, `{"message":"slow down"}`, KindSecondaryRateLimit},
		{"secondary via message", 403, nil, `{"message":"You have exceeded a secondary rate limit."}`, KindSecondaryRateLimit},
		{"primary via message", 403, nil, `{"message":"API rate limit exceeded for 1.2.3.4."}`, KindPrimaryRateLimit},
		{"bare 429", 429, nil, ``, KindSecondaryRateLimit},
		{"not found", 404, nil, `{"message":"Not Found"}`, KindNotFound},
		{"gone", 410, nil, `{"message":"Issues are disabled"}`, KindNotFound},
		{"unprocessable", 422, nil, `{"message":"Validation Failed"}`, KindValidation},
		{"bad request", 400, nil, `{"message":"Problems parsing JSON"}`, KindValidation},
		{"conflict", 409, nil, `{"message":"Git Repository is empty."}`, KindValidation},
		{"server", 502, nil, `<html>bad gateway</html>`, KindServer},
		{"redirect", 301, nil, ``, KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := tt.header
			if header == nil {
				header = http.Header{}
			}
			err := classify(http.MethodGet, "https://api.github.com/x", tt.status, header, []byte(tt.body), now)
			require.Equal(t, tt.want, err.Kind)
			require.Equal(t, tt.status, err.StatusCode)
			require.NotEmpty(t, err.Message)
		})
	}
}

func TestClassifyCarriesDetails(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	reset := now.Add(15 * time.Minute)

	primary := classify(http.MethodGet, "u", 403, rateHeader(60, 0, reset), []byte(`{"message":"API rate limit exceeded"}`), now)
	require.Equal(t, reset, primary.ResetAt)

	h := http.Header{}
	h.Set(headerRetry, now.Add(90*time.Second).Format(http.TimeFormat))
	secondary := classify(http.MethodGet, "u", 429, h, nil, now)
	require.Equal(t, KindSecondaryRateLimit, secondary.Kind)
	require.Equal(t, 90*time.Second, secondary.RetryAfter)

	body := `{"message":"Validation Failed","errors":[{"resource":"Issue","field":"title","code":"missing_field"},"labels is invalid"],` +
		`"documentation_url":"https://docs.github.com/rest/issues"}`
	validation := classify(http.MethodPost, "u", 422, http.Header{}, []byte(body), now)
	require.Equal(t, "Validation Failed", validation.Message)
	require.Equal(t, "https://docs.github.com/rest/issues", validation.DocumentationURL)
	require.Equal(t, []FieldError{
		{Resource: "Issue", Field: "title", Code: "missing_field"},
		{Message: "labels is invalid"},
	}, validation.FieldErrors)
	require.Contains(t, validation.Error(), "Issue title missing_field")
}

func TestErrorIsSentinel(t *testing.T) {
	err := fmt.Errorf("listing repos: %w", &Error{Kind: KindNotFound, StatusCode: 404, Message: "Not Found"})
	require.True(t, errors.Is(err, ErrNotFound))
	require.False(t, errors.Is(err, ErrServer))
	require.Equal(t, KindNotFound, KindOf(err))

	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, 404, apiErr.StatusCode)
}

func TestErrorRetryable(t *testing.T) {
	retryable := map[Kind]bool{
		KindAuthentication:     false,
		KindAuthorization:      false,
		KindNotFound:           false,
		KindPrimaryRateLimit:   false,
		KindValidation:         false,
		KindSecondaryRateLimit: true,
		KindServer:             true,
		KindNetwork:            true,
	}
	for kind, want := range retryable {
		require.Equal(t, want, (&Error{Kind: kind}).Retryable(), string(kind))
	}
}

func TestErrorMessage(t *testing.T) {
	err := (&Error{
		Kind:       KindServer,
		StatusCode: 503,
		Method:     http.MethodGet,
		URL:        "https://api.github.com/user",
		Message:    "Service Unavailable",
	}).withAttempts(3)

	require.Equal(t, "GET https://api.github.com/user: 503 server: Service Unavailable (after 3 attempts)", err.Error())
	require.Equal(t, "authentication: no token", NewError(KindAuthentication, "no token").Error())
}
