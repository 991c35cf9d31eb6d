package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mygh/mygh/internal/core/engine"
)

func TestFromErrorMapsKinds(t *testing.T) {
	tests := []struct {
		kind engine.Kind
		code string
		exit foundry.ExitCode
	}{
		{engine.KindAuthentication, CodeUnauthorized, foundry.ExitConfigInvalid},
		{engine.KindAuthorization, CodeForbidden, foundry.ExitFailure},
		{engine.KindNotFound, CodeNotFound, foundry.ExitFailure},
		{engine.KindPrimaryRateLimit, CodeRateLimited, foundry.ExitExternalServiceUnavailable},
		{engine.KindSecondaryRateLimit, CodeRateLimited, foundry.ExitExternalServiceUnavailable},
		{engine.KindValidation, CodeValidation, foundry.ExitFailure},
		{engine.KindServer, CodeExternalService, foundry.ExitExternalServiceUnavailable},
		{engine.KindNetwork, CodeNetwork, foundry.ExitExternalServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("list repos: %w", engine.NewError(tt.kind, "remote says no"))

			env := FromError(err)
			require.NotNil(t, env)
			assert.Equal(t, tt.code, env.Code)
			assert.Equal(t, "remote says no", env.Message)
			assert.NotEmpty(t, env.CorrelationID)
			assert.Equal(t, string(tt.kind), env.Context["kind"])

			assert.Equal(t, tt.exit, ExitCode(err))
			assert.Equal(t, tt.exit, ExitCode(env))
		})
	}
}

func TestFromErrorCarriesRateLimitDetails(t *testing.T) {
	reset := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	apiErr := &engine.Error{
		Kind:       engine.KindPrimaryRateLimit,
		StatusCode: 403,
		Method:     "GET",
		URL:        "https://api.github.com/user/repos",
		Message:    "API rate limit exceeded",
		ResetAt:    reset,
		Attempts:   1,
	}

	env := FromError(apiErr)
	assert.EqualValues(t, 403, env.Context["http_status"])
	assert.Equal(t, "2025-03-01T10:00:00Z", env.Context["reset_at"])
	assert.Equal(t, "https://api.github.com/user/repos", env.Context["url"])
	assert.EqualValues(t, 1, env.Context["attempts"])
	assert.Same(t, apiErr, env.Original)
}

func TestFromErrorFieldErrors(t *testing.T) {
	env := FromError(&engine.Error{
		Kind:        engine.KindValidation,
		StatusCode:  422,
		Message:     "Validation Failed",
		FieldErrors: []engine.FieldError{{Resource: "Issue", Field: "title", Code: "missing_field"}},
	})
	assert.Equal(t, "Issue title missing_field", env.Context["field_errors"])
}

func TestFromErrorContextAndUnknown(t *testing.T) {
	assert.Nil(t, FromError(nil))

	env := FromError(fmt.Errorf("fetch: %w", context.DeadlineExceeded))
	assert.Equal(t, CodeTimeout, env.Code)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCode(context.DeadlineExceeded))

	env = FromError(context.Canceled)
	assert.Equal(t, CodeCancelled, env.Code)

	env = FromError(fmt.Errorf("boom"))
	assert.Equal(t, CodeInternal, env.Code)
	assert.Equal(t, "boom", env.Message)
	assert.Equal(t, foundry.ExitFailure, ExitCode(fmt.Errorf("boom")))
}

func TestFromErrorPassesEnvelopesThrough(t *testing.T) {
	original := gferrors.NewErrorEnvelope(CodeInvalidInput, "bad repo")
	env := FromError(original)
	assert.Equal(t, CodeInvalidInput, env.Code)
	assert.NotEmpty(t, env.CorrelationID)

	cfgErr := NewConfigInvalidError("config unreadable", fmt.Errorf("toml: bad"))
	assert.Equal(t, foundry.ExitConfigInvalid, ExitCode(cfgErr))
	assert.Equal(t, "toml: bad", cfgErr.Context["wrapped_error"])
}
