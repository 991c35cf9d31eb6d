package engine

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLinks(t *testing.T) {
	header := `<https://api.github.com/user/starred?page=2&per_page=30>; rel="next", ` +
		`<https://api.github.com/user/starred?page=9&per_page=30>; rel="last"`

	links := ParseLinks([]string{header})
	require.Equal(t, "https://api.github.com/user/starred?page=2&per_page=30", links["next"])
	require.Equal(t, "https://api.github.com/user/starred?page=9&per_page=30", links["last"])
}

func TestParseLinksCommaInURL(t *testing.T) {
	header := `<https://api.github.com/search/issues?q=a,b&page=2>; rel="next"`
	links := ParseLinks([]string{header})
	require.Equal(t, "https://api.github.com/search/issues?q=a,b&page=2", links["next"])
}

func TestParseLinksMalformed(t *testing.T) {
	links := ParseLinks([]string{`https://no-brackets; rel="next"`, ``, `<x>; title="y"`})
	require.Empty(t, links)
}

func TestResponseNextCursor(t *testing.T) {
	resp := &Response{Header: http.Header{}}
	require.Equal(t, "", resp.NextCursor())

	resp.Header.Set("Link", `<https://api.github.com/x?page=3>; rel="prev next"`)
	require.Equal(t, "https://api.github.com/x?page=3", resp.NextCursor())
}

func TestRequestSpecResolve(t *testing.T) {
	base, err := url.Parse("https://ghe.example.com/api/v3/")
	require.NoError(t, err)

	spec := Get("/repos/octo/hello", url.Values{"state": {"open"}})
	target, err := spec.resolve(base)
	require.NoError(t, err)
	require.Equal(t, "https://ghe.example.com/api/v3/repos/octo/hello?state=open", target.String())

	next := spec.WithCursor("https://ghe.example.com/api/v3/repositories/1?page=2")
	require.Nil(t, next.Query)
	target, err = next.resolve(base)
	require.NoError(t, err)
	require.Equal(t, "https://ghe.example.com/api/v3/repositories/1?page=2", target.String())

	require.Equal(t, "open", spec.Query.Get("state"), "cursor must not mutate the template")
}

func TestRelativeToBasePath(t *testing.T) {
	base, err := url.Parse("https://ghe.example.com/api/v3")
	require.NoError(t, err)

	tests := []struct {
		raw  string
		want string
	}{
		{"https://ghe.example.com/api/v3/search/repositories?q=go&page=2", "/search/repositories?q=go&page=2"},
		{"https://GHE.example.com/api/v3/user/repos", "/user/repos"},
		{"https://ghe.example.com/api/v3", "/"},
		{"https://ghe.example.com/other/search/code", "https://ghe.example.com/other/search/code"},
		{"https://uploads.example.com/api/v3/search/code", "https://uploads.example.com/api/v3/search/code"},
		{"/user/repos", "/user/repos"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, relativeTo(base, tt.raw), tt.raw)
	}

	rel := relativeTo(base, "https://ghe.example.com/api/v3/search/repositories?page=2")
	require.Equal(t, ResourceSearch, ResourceFor(rel))

	root, err := url.Parse("https://api.github.com")
	require.NoError(t, err)
	require.Equal(t, "/search/issues?page=3", relativeTo(root, "https://api.github.com/search/issues?page=3"))
}

func TestRequestSpecWithQueryCopies(t *testing.T) {
	spec := Get("/user/repos", url.Values{"sort": {"updated"}})
	paged := spec.WithQuery("per_page", "50")

	require.Equal(t, "50", paged.Query.Get("per_page"))
	require.Empty(t, spec.Query.Get("per_page"))
	require.Equal(t, http.MethodGet, paged.method())
}
