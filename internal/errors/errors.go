// Package errors converts API and command failures into gofulmen error
// envelopes and semantic exit codes.
package errors

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"

	"github.com/mygh/mygh/internal/core/engine"
)

// Envelope codes
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeRateLimited     = "RATE_LIMITED"
	CodeValidation      = "VALIDATION_FAILED"
	CodeExternalService = "EXTERNAL_SERVICE_ERROR"
	CodeNetwork         = "NETWORK_ERROR"
	CodeTimeout         = "TIMEOUT"
	CodeCancelled       = "CANCELLED"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeInternal        = "INTERNAL_ERROR"
)

// NewInvalidInputError reports bad command arguments.
func NewInvalidInputError(message string) *errors.ErrorEnvelope {
	return withCorrelation(errors.NewErrorEnvelope(CodeInvalidInput, message))
}

// NewConfigInvalidError reports an unusable configuration.
func NewConfigInvalidError(message string, err error) *errors.ErrorEnvelope {
	return withWrappedError(withCorrelation(errors.NewErrorEnvelope(CodeConfigInvalid, message)), err)
}

// FromError normalizes err into an envelope. Engine errors keep their kind,
// status and rate-limit details in the envelope context.
func FromError(err error) *errors.ErrorEnvelope {
	if err == nil {
		return nil
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		if envelope.CorrelationID == "" {
			envelope = withCorrelation(envelope)
		}
		return envelope
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return wrap(CodeTimeout, "request timed out", err, false)
	case stderrors.Is(err, context.Canceled):
		return wrap(CodeCancelled, "operation cancelled", err, false)
	}

	apiErr, ok := engine.AsError(err)
	if !ok {
		return wrap(CodeInternal, err.Error(), err, true)
	}

	message := apiErr.Message
	if message == "" {
		message = apiErr.Error()
	}
	env := withCorrelation(errors.NewErrorEnvelope(CodeForKind(apiErr.Kind), message))
	env = withContext(env, apiContext(apiErr))
	env = withSeverity(env, highSeverity(apiErr.Kind))
	env.Original = err
	return env
}

// CodeForKind maps an engine error kind to an envelope code.
func CodeForKind(kind engine.Kind) string {
	switch kind {
	case engine.KindAuthentication:
		return CodeUnauthorized
	case engine.KindAuthorization:
		return CodeForbidden
	case engine.KindNotFound:
		return CodeNotFound
	case engine.KindPrimaryRateLimit, engine.KindSecondaryRateLimit:
		return CodeRateLimited
	case engine.KindValidation:
		return CodeValidation
	case engine.KindServer:
		return CodeExternalService
	case engine.KindNetwork:
		return CodeNetwork
	default:
		return CodeInternal
	}
}

// ExitCode picks the foundry exit code for err.
func ExitCode(err error) foundry.ExitCode {
	if err == nil {
		return foundry.ExitCode(0)
	}

	var envelope *errors.ErrorEnvelope
	if stderrors.As(err, &envelope) && envelope != nil {
		return exitCodeForEnvelope(envelope.Code)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return foundry.ExitExternalServiceUnavailable
	}

	switch engine.KindOf(err) {
	case engine.KindAuthentication:
		return foundry.ExitConfigInvalid
	case engine.KindPrimaryRateLimit, engine.KindSecondaryRateLimit,
		engine.KindServer, engine.KindNetwork:
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

func exitCodeForEnvelope(code string) foundry.ExitCode {
	switch code {
	case CodeUnauthorized, CodeConfigInvalid:
		return foundry.ExitConfigInvalid
	case CodeRateLimited, CodeExternalService, CodeNetwork, CodeTimeout:
		return foundry.ExitExternalServiceUnavailable
	default:
		return foundry.ExitFailure
	}
}

func apiContext(apiErr *engine.Error) map[string]interface{} {
	ctx := map[string]interface{}{
		"kind": string(apiErr.Kind),
	}
	if apiErr.StatusCode > 0 {
		ctx["http_status"] = apiErr.StatusCode
	}
	if apiErr.Method != "" {
		ctx["method"] = apiErr.Method
	}
	if apiErr.URL != "" {
		ctx["url"] = apiErr.URL
	}
	if apiErr.DocumentationURL != "" {
		ctx["documentation_url"] = apiErr.DocumentationURL
	}
	if !apiErr.ResetAt.IsZero() {
		ctx["reset_at"] = apiErr.ResetAt.UTC().Format(time.RFC3339)
	}
	if apiErr.RetryAfter > 0 {
		ctx["retry_after"] = apiErr.RetryAfter.String()
	}
	if apiErr.Attempts > 0 {
		ctx["attempts"] = apiErr.Attempts
	}
	if len(apiErr.FieldErrors) > 0 {
		fields := make([]string, 0, len(apiErr.FieldErrors))
		for _, fe := range apiErr.FieldErrors {
			fields = append(fields, fe.String())
		}
		ctx["field_errors"] = strings.Join(fields, "; ")
	}
	if apiErr.Err != nil {
		ctx["wrapped_error"] = apiErr.Err.Error()
	}
	return ctx
}

// highSeverity marks failures the user must fix before retrying.
func highSeverity(kind engine.Kind) bool {
	return kind == engine.KindAuthentication || kind == engine.KindAuthorization
}

func wrap(code, message string, err error, high bool) *errors.ErrorEnvelope {
	env := withCorrelation(errors.NewErrorEnvelope(code, message))
	env = withWrappedError(env, err)
	env = withSeverity(env, high)
	env.Original = err
	return env
}

func withCorrelation(envelope *errors.ErrorEnvelope) *errors.ErrorEnvelope {
	return envelope.WithCorrelationID(uuid.New().String())
}

func withWrappedError(envelope *errors.ErrorEnvelope, err error) *errors.ErrorEnvelope {
	if envelope == nil || err == nil {
		return envelope
	}
	return withContext(envelope, map[string]interface{}{
		"wrapped_error": err.Error(),
	})
}

func withContext(envelope *errors.ErrorEnvelope, ctx map[string]interface{}) *errors.ErrorEnvelope {
	updated, err := envelope.WithContext(ctx)
	if err != nil {
		return envelope
	}
	return updated
}

func withSeverity(envelope *errors.ErrorEnvelope, high bool) *errors.ErrorEnvelope {
	severity := errors.SeverityMedium
	if high {
		severity = errors.SeverityHigh
	}
	updated, err := envelope.WithSeverity(severity)
	if err != nil {
		return envelope
	}
	return updated
}
