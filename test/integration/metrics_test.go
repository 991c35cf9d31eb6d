package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mygh/mygh/internal/core/engine"
	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/metrics"
	"github.com/mygh/mygh/internal/observability"
	"github.com/mygh/mygh/internal/testutil"
)

type staticToken string

func (s staticToken) Resolve(context.Context) (engine.Credential, error) {
	return engine.Credential{Token: string(s), Source: engine.SourceGitHubToken}, nil
}

// isPermissionError normalizes OS-specific permission errors (macOS/Linux/BSD)
// so we can gracefully skip when loopback sockets are blocked.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range []string{"permission denied", "operation not permitted", "not permitted"} {
		if strings.Contains(msg, fragment) {
			return true
		}
	}

	return false
}

// initMetricsOrSkip starts the exporter on a free port; if the environment
// forbids network binds we skip instead of failing the entire suite.
func initMetricsOrSkip(t *testing.T) int {
	t.Helper()

	if err := observability.InitMetrics("test", 0); err != nil {
		if isPermissionError(err) {
			t.Skipf("skipping metrics tests due to sandbox permissions: %v", err)
		}
		require.NoError(t, err)
	}
	t.Cleanup(func() { _ = observability.ShutdownMetrics() })

	port := observability.GetMetricsPort()
	if port == 0 {
		t.Skip("exporter did not report its port")
	}
	return port
}

func scrape(t *testing.T, port int) (string, string) {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
	require.NoError(t, err)
	body, readErr := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, readErr)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return string(body), resp.Header.Get("Content-Type")
}

func TestMetricsRecordAPITraffic(t *testing.T) {
	observability.InitCLILogger("test", false, "error")
	port := initMetricsOrSkip(t)

	api := testutil.NewFakeAPI(t)
	api.Paged("/user/repos",
		[]any{map[string]any{"id": 1, "full_name": "me/a"}},
		[]any{map[string]any{"id": 2, "full_name": "me/b"}},
	)
	api.JSON(http.MethodGet, "/repos/{owner}/{repo}", http.StatusNotFound, map[string]any{"message": "Not Found"})

	client, err := engine.New(engine.Options{
		BaseURL:  api.URL(),
		Resolver: staticToken("ghp_test"),
		PerPage:  1,
	})
	require.NoError(t, err)
	svc := github.NewService(client, 2, observability.CLILogger)

	start := time.Now()
	repos, err := svc.Repositories(context.Background(), "", github.RepoListOptions{})
	require.NoError(t, err)
	require.Len(t, repos, 2)

	_, err = svc.Repository(context.Background(), github.RepoRef{Owner: "o", Name: "missing"})
	require.Error(t, err)
	metrics.RecordCommandError("mygh repos info", 1)
	elapsed := time.Since(start)

	body, contentType := scrape(t, port)
	assert.True(t, strings.HasPrefix(contentType, "text/plain"), "Expected Prometheus content type, got: %s", contentType)
	assert.Contains(t, body, "test_api_requests_total", "Should have API request metrics")
	assert.Contains(t, body, "test_api_request_duration_ms", "Should have duration metrics")
	assert.Contains(t, body, "test_command_errors_total", "Should have command error metrics")
	assert.True(t, elapsed < 5*time.Second, "API calls should complete in reasonable time")
}

func TestMetricsDisabledRecordsNothing(t *testing.T) {
	require.NoError(t, observability.ShutdownMetrics())
	assert.Nil(t, observability.TelemetrySystem)
	assert.Equal(t, 0, observability.GetMetricsPort())

	// Recorders are no-ops without a telemetry system.
	metrics.RecordRequest(http.MethodGet, "core", http.StatusOK, time.Millisecond)
	metrics.RecordCommandError("mygh version", 1)
}
