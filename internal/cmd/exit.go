package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mygh/mygh/internal/core/auth"
	"github.com/mygh/mygh/internal/core/engine"
	apperrors "github.com/mygh/mygh/internal/errors"
	"github.com/mygh/mygh/internal/metrics"
	"github.com/mygh/mygh/internal/observability"
	"github.com/mygh/mygh/internal/output"
)

// reportError renders err for the user on w, records it, and returns the
// semantic exit code.
func reportError(c *cobra.Command, w io.Writer, err error) int {
	code := apperrors.ExitCode(err)
	command := rootCmd.Name()
	if c != nil {
		command = c.CommandPath()
	}
	metrics.RecordCommandError(command, int(code))

	if observability.CLILogger != nil {
		envelope := apperrors.FromError(err)
		fields := []zap.Field{
			zap.String("command", command),
			zap.Int("exit_code", int(code)),
			zap.String("error_code", envelope.Code),
			zap.String("correlation_id", envelope.CorrelationID),
		}
		if envelope.Context != nil {
			fields = append(fields, zap.Any("error_context", envelope.Context))
		}
		observability.CLILogger.Debug("Command failed", fields...)
	}

	_, _ = fmt.Fprintln(w, describeError(err, time.Now()))
	return int(code)
}

// describeError is the user-facing rendering of err. Authentication
// failures carry setup guidance and primary rate limits the reset time;
// every other API error shows GitHub's own message.
func describeError(err error, now time.Time) string {
	if stderrors.Is(err, context.Canceled) {
		return "Operation cancelled"
	}

	var apiErr *engine.Error
	if !stderrors.As(err, &apiErr) {
		return "Error: " + err.Error()
	}

	message := apiErr.Message
	if message == "" && apiErr.Err != nil {
		message = apiErr.Err.Error()
	}

	var b strings.Builder
	switch apiErr.Kind {
	case engine.KindAuthentication:
		fmt.Fprintf(&b, "Authentication error: %s\n\nTo authenticate, %s", message, auth.SetupGuidance)
	case engine.KindPrimaryRateLimit:
		b.WriteString("GitHub API rate limit exceeded")
		if reset := output.ResetDescription(apiErr.ResetAt, now); reset != "" {
			fmt.Fprintf(&b, "; the quota resets at %s", reset)
		}
	default:
		fmt.Fprintf(&b, "Error: %s", message)
		for _, fe := range apiErr.FieldErrors {
			if s := fe.String(); s != "" {
				fmt.Fprintf(&b, "\n  - %s", s)
			}
		}
		if apiErr.Attempts > 1 {
			fmt.Fprintf(&b, "\n(gave up after %d attempts)", apiErr.Attempts)
		}
	}
	return b.String()
}

// ExitWithCodeStderr writes msg to stderr and exits. Use it before the
// logger exists.
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		os.Exit(int(exitCode))
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}
