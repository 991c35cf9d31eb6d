package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mygh/mygh/internal/core/engine"
)

func TestDescribeError(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		err      error
		contains []string
		excludes []string
		once     string
	}{
		{
			name:     "authentication shows setup guidance",
			err:      &engine.Error{Kind: engine.KindAuthentication, StatusCode: 401, Message: "Bad credentials"},
			contains: []string{"Authentication error: Bad credentials", "GITHUB_TOKEN", "gh auth login"},
		},
		{
			name:     "missing token shows setup guidance once",
			err:      fmt.Errorf("resolve credential: %w", engine.NewError(engine.KindAuthentication, "no GitHub token found")),
			contains: []string{"Authentication error: no GitHub token found", "GITHUB_TOKEN"},
			once:     "gh auth login",
		},
		{
			name: "primary rate limit shows reset time",
			err: &engine.Error{
				Kind:       engine.KindPrimaryRateLimit,
				StatusCode: 403,
				Message:    "API rate limit exceeded for user ID 1.",
				ResetAt:    now.Add(12*time.Minute + 30*time.Second),
			},
			contains: []string{"rate limit exceeded", "(in 12m30s)"},
		},
		{
			name: "validation keeps the remote message and field errors",
			err: fmt.Errorf("create: %w", &engine.Error{
				Kind:        engine.KindValidation,
				StatusCode:  422,
				Message:     "Validation Failed",
				FieldErrors: []engine.FieldError{{Message: "A pull request already exists for o:feature."}},
			}),
			contains: []string{"Error: Validation Failed", "\n  - A pull request already exists for o:feature."},
			excludes: []string{"422"},
		},
		{
			name:     "exhausted retries mention the attempts",
			err:      &engine.Error{Kind: engine.KindServer, StatusCode: 502, Message: "Server Error", Attempts: 3},
			contains: []string{"Error: Server Error", "after 3 attempts"},
		},
		{
			name:     "plain errors",
			err:      errors.New(`repository must be in owner/repo format, got "x"`),
			contains: []string{`Error: repository must be in owner/repo format, got "x"`},
		},
		{
			name:     "cancellation",
			err:      context.Canceled,
			contains: []string{"Operation cancelled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeError(tt.err, now)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
			if tt.once != "" {
				assert.Equal(t, 1, strings.Count(got, tt.once), got)
			}
		})
	}
}

func TestReportErrorExitCodes(t *testing.T) {
	tests := []struct {
		err  error
		want foundry.ExitCode
	}{
		{&engine.Error{Kind: engine.KindAuthentication, Message: "Bad credentials"}, foundry.ExitConfigInvalid},
		{&engine.Error{Kind: engine.KindPrimaryRateLimit, ResetAt: time.Now().Add(time.Hour)}, foundry.ExitExternalServiceUnavailable},
		{&engine.Error{Kind: engine.KindNotFound, Message: "Not Found"}, foundry.ExitFailure},
		{errors.New("boom"), foundry.ExitFailure},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		code := reportError(nil, &buf, tt.err)
		require.Equal(t, int(tt.want), code, tt.err.Error())
		require.NotEmpty(t, buf.String())
	}
}
