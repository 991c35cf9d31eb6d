package integration

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles cmd/mygh into a fresh directory and returns its path.
func buildBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("binary exec tests are unix-focused")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	repoRoot := filepath.Dir(strings.TrimSpace(string(goMod)))
	require.NotEqual(t, ".", repoRoot, "go env GOMOD returned empty")

	binary := filepath.Join(t.TempDir(), "mygh")
	build := exec.Command("go", "build", "-ldflags", "-X main.version=9.9.9-test", "-o", binary, "./cmd/mygh")
	build.Dir = repoRoot
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build: %s", out)
	return binary
}

// isolatedEnv runs the binary with its own config and cache homes, no
// token, and a PATH without the gh CLI.
func isolatedEnv(t *testing.T) []string {
	t.Helper()
	home := t.TempDir()
	env := []string{
		"HOME=" + home,
		"XDG_CONFIG_HOME=" + filepath.Join(home, "config"),
		"XDG_CACHE_HOME=" + filepath.Join(home, "cache"),
		"XDG_DATA_HOME=" + filepath.Join(home, "data"),
		"PATH=" + t.TempDir(),
		"MYGH_CACHE_ENABLED=false",
	}
	return env
}

func runBinary(t *testing.T, binary string, env []string, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = env
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return string(out), 0
	case errors.As(err, &exitErr):
		return string(out), exitErr.ExitCode()
	default:
		require.NoError(t, err)
		return "", -1
	}
}

func TestBinaryVersionAndHelp(t *testing.T) {
	binary := buildBinary(t)
	env := isolatedEnv(t)

	out, code := runBinary(t, binary, env, "version", "--extended")
	require.Equal(t, 0, code, out)
	assert.True(t, strings.HasPrefix(out, "mygh 9.9.9-test\n"), out)
	assert.Contains(t, out, "User-Agent: mygh/9.9.9-test")

	out, code = runBinary(t, binary, env, "--help")
	require.Equal(t, 0, code, out)
	for _, command := range []string{"repos", "pulls", "search", "rate-limit", "config", "cache"} {
		assert.Contains(t, out, command)
	}
	assert.Contains(t, out, "--format")
}

func TestBinaryWithoutCredentialsShowsGuidance(t *testing.T) {
	binary := buildBinary(t)
	env := isolatedEnv(t)

	out, code := runBinary(t, binary, env, "user", "info")
	assert.Equal(t, int(foundry.ExitConfigInvalid), code, out)
	assert.Contains(t, out, "GITHUB_TOKEN")
	assert.Equal(t, 1, strings.Count(out, "gh auth login"), "guidance should appear once")
}

func TestBinaryConfigRoundTrip(t *testing.T) {
	binary := buildBinary(t)
	env := isolatedEnv(t)

	out, code := runBinary(t, binary, env, "config", "set", "output-format", "json")
	require.Equal(t, 0, code, out)

	out, code = runBinary(t, binary, env, "config", "get", "output-format")
	require.Equal(t, 0, code, out)
	assert.Equal(t, "json", strings.TrimSpace(out))

	out, code = runBinary(t, binary, env, "config", "path")
	require.Equal(t, 0, code, out)
	path := strings.TrimSpace(out)
	assert.True(t, strings.HasSuffix(path, filepath.Join("mygh", "config.toml")), path)
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
