package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mygh/mygh/internal/testutil"
)

// resetFlags restores every flag to its default so runs do not leak into
// each other through the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}

// setupCLI points the CLI at a fake API with a token and an isolated config
// file.
func setupCLI(t *testing.T) (*testutil.FakeAPI, string) {
	t.Helper()
	api := testutil.NewFakeAPI(t)

	t.Setenv("GITHUB_TOKEN", "test-token")
	t.Setenv("GH_TOKEN", "")
	t.Setenv("MYGH_API_URL", api.URL())
	t.Setenv("MYGH_CACHE_ENABLED", "false")
	t.Setenv("MYGH_METRICS_ENABLED", "false")

	configFile := filepath.Join(t.TempDir(), "config.toml")
	t.Cleanup(func() {
		resetFlags(rootCmd)
		appViper, appConfig = nil, nil
	})
	return api, configFile
}

func runCLI(t *testing.T, configFile string, args ...string) (string, string, int) {
	t.Helper()
	resetFlags(rootCmd)
	appViper, appConfig = nil, nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--config", configFile}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	code := Execute()
	return stdout.String(), stderr.String(), code
}

func TestReposListJSON(t *testing.T) {
	api, configFile := setupCLI(t)
	api.Paged("/user/repos",
		[]any{map[string]any{"id": 1, "name": "a", "full_name": "me/a"}},
		[]any{map[string]any{"id": 2, "name": "b", "full_name": "me/b"}},
	)

	stdout, stderr, code := runCLI(t, configFile, "repos", "list", "-f", "json")
	require.Equal(t, 0, code, stderr)

	var repos []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &repos))
	require.Len(t, repos, 2)
	assert.Equal(t, "me/a", repos[0]["full_name"])
	assert.Equal(t, "me/b", repos[1]["full_name"])

	first := api.Requests()[0]
	assert.Equal(t, "Bearer test-token", first.Header.Get("Authorization"))
	assert.Contains(t, first.Header.Get("User-Agent"), "mygh")
}

func TestOutputToDirectory(t *testing.T) {
	api, configFile := setupCLI(t)
	api.Paged("/users/{login}/repos", []any{map[string]any{"id": 1, "name": "a", "full_name": "octo/a"}})

	dir := t.TempDir()
	stdout, stderr, code := runCLI(t, configFile, "repos", "list", "octo", "-f", "json", "-o", dir)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Wrote json output to")

	raw, err := os.ReadFile(filepath.Join(dir, "repos-list.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "octo/a")
}

func TestReposInfoReportsMissingRepository(t *testing.T) {
	api, configFile := setupCLI(t)
	api.Handle(http.MethodGet, "/repos/{owner}/{repo}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "repo") == "missing" {
			testutil.WriteJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
			return
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]any{
			"id":        7,
			"name":      chi.URLParam(r, "repo"),
			"full_name": chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "repo"),
		})
	})

	stdout, stderr, code := runCLI(t, configFile, "repos", "info", "o/present", "o/missing", "-f", "json")
	assert.Equal(t, int(foundry.ExitFailure), code)
	assert.Contains(t, stdout, "o/present")
	assert.Contains(t, stderr, "Not Found")
}

func TestAuthenticationFailureShowsGuidance(t *testing.T) {
	api, configFile := setupCLI(t)
	api.JSON(http.MethodGet, "/user", http.StatusUnauthorized, map[string]any{"message": "Bad credentials"})

	_, stderr, code := runCLI(t, configFile, "user", "info")
	assert.Equal(t, int(foundry.ExitConfigInvalid), code)
	assert.Contains(t, stderr, "Authentication error: Bad credentials")
	assert.Contains(t, stderr, "gh auth login")
	assert.Equal(t, 1, api.Count(http.MethodGet, "/user"))
}

func TestPullsMergeDeletesBranch(t *testing.T) {
	api, configFile := setupCLI(t)
	api.JSON(http.MethodGet, "/repos/{owner}/{repo}/pulls/{number}", http.StatusOK, map[string]any{
		"number": 5,
		"head":   map[string]any{"ref": "feature/login", "repo": map[string]any{"full_name": "o/r"}},
	})
	api.Handle(http.MethodPut, "/repos/{owner}/{repo}/pulls/{number}/merge", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "squash", body["merge_method"])
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"sha": "abc123", "merged": true, "message": "merged"})
	})
	api.Handle(http.MethodDelete, "/repos/{owner}/{repo}/git/refs/heads/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	stdout, stderr, code := runCLI(t, configFile, "pulls", "merge", "o/r", "5", "--method", "squash", "--delete-branch")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Merged pull request #5 (abc123)")
	assert.Contains(t, stdout, "Deleted branch feature/login")
	assert.Equal(t, 1, api.Count(http.MethodDelete, "/repos/o/r/git/refs/heads/feature/login"))
}

func TestPullsMergeRefusesForkBranchDeletion(t *testing.T) {
	api, configFile := setupCLI(t)
	api.JSON(http.MethodGet, "/repos/{owner}/{repo}/pulls/{number}", http.StatusOK, map[string]any{
		"number": 5,
		"head":   map[string]any{"ref": "patch-1", "repo": map[string]any{"full_name": "fork/r"}},
	})

	_, stderr, code := runCLI(t, configFile, "pulls", "merge", "o/r", "5", "--delete-branch")
	assert.NotEqual(t, 0, code)
	assert.Contains(t, stderr, "lives in fork/r")
	assert.Equal(t, 0, api.Count(http.MethodPut, "/repos/o/r/pulls/5/merge"))
}

func TestRateLimitJSON(t *testing.T) {
	api, configFile := setupCLI(t)
	reset := time.Now().Add(30 * time.Minute).Unix()
	api.JSON(http.MethodGet, "/rate_limit", http.StatusOK, map[string]any{
		"resources": map[string]any{
			"search": map[string]any{"limit": 30, "remaining": 29, "used": 1, "reset": reset},
			"core":   map[string]any{"limit": 5000, "remaining": 4990, "used": 10, "reset": reset},
		},
	})

	stdout, stderr, code := runCLI(t, configFile, "rate-limit", "-f", "json")
	require.Equal(t, 0, code, stderr)

	var states []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &states))
	require.Len(t, states, 2)
	assert.Equal(t, "core", states[0]["resource"])
	assert.EqualValues(t, 4990, states[0]["remaining"])
	assert.Equal(t, "search", states[1]["resource"])
}

func TestConfigSetAndGet(t *testing.T) {
	_, configFile := setupCLI(t)

	stdout, stderr, code := runCLI(t, configFile, "config", "set", "max-retries", "5")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Set max-retries = 5")

	stdout, stderr, code = runCLI(t, configFile, "config", "get", "max-retries")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "5\n", stdout)

	_, stderr, code = runCLI(t, configFile, "config", "set", "token", "secret")
	assert.NotEqual(t, 0, code)
	assert.Contains(t, stderr, "never stored")
}

func TestInvalidRepositoryArgument(t *testing.T) {
	api, configFile := setupCLI(t)

	_, stderr, code := runCLI(t, configFile, "repos", "info", "not-a-repo")
	assert.Equal(t, int(foundry.ExitFailure), code)
	assert.Contains(t, stderr, "owner/repo")
	assert.Empty(t, api.Requests())
}
