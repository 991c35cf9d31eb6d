package github

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mygh/mygh/internal/testutil"
)

func TestUser(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.JSON(http.MethodGet, "/user", http.StatusOK, map[string]any{"login": "me", "public_repos": 3})
	api.JSON(http.MethodGet, "/users/{login}", http.StatusOK, map[string]any{"login": "octocat"})
	svc := newTestService(t, api, 30)

	me, err := svc.User(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "me", me.Login)
	require.NotNil(t, me.PublicRepos)
	require.Equal(t, 3, *me.PublicRepos)

	other, err := svc.User(context.Background(), "octocat")
	require.NoError(t, err)
	require.Equal(t, "octocat", other.Login)
}

func TestStarredLanguageFilterAppliesLimitAfterFiltering(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Paged("/users/{login}/starred",
		[]any{
			map[string]any{"full_name": "a/one", "language": "Python"},
			map[string]any{"full_name": "a/two", "language": "go"},
		},
		[]any{
			map[string]any{"full_name": "a/three", "language": "Rust"},
			map[string]any{"full_name": "a/four", "language": "Go"},
		},
		[]any{
			map[string]any{"full_name": "a/five", "language": "Go"},
		},
	)
	svc := newTestService(t, api, 2)

	repos, err := svc.Starred(context.Background(), "octocat", StarredOptions{Language: "GO", Limit: 2})
	require.NoError(t, err)
	require.Len(t, repos, 2)
	require.Equal(t, "a/two", repos[0].FullName)
	require.Equal(t, "a/four", repos[1].FullName)
	// the third page is never requested once two matches are found
	require.Equal(t, 2, api.Count(http.MethodGet, "/users/octocat/starred"))
}

func TestStarredWithoutFilter(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Paged("/user/starred",
		[]any{map[string]any{"full_name": "a/one"}, map[string]any{"full_name": "a/two"}},
		[]any{map[string]any{"full_name": "a/three"}},
	)
	svc := newTestService(t, api, 2)

	repos, err := svc.Starred(context.Background(), "", StarredOptions{Sort: "updated"})
	require.NoError(t, err)
	require.Len(t, repos, 3)

	reqs := api.Requests()
	require.Contains(t, reqs[0].RawQuery, "sort=updated")
}

func TestGistsPublicOnly(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.Paged("/gists", []any{
		map[string]any{"id": "1", "public": true},
		map[string]any{"id": "2", "public": false},
		map[string]any{"id": "3", "public": true},
	})
	svc := newTestService(t, api, 30)

	all, err := svc.Gists(context.Background(), "", GistOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	public, err := svc.Gists(context.Background(), "", GistOptions{PublicOnly: true})
	require.NoError(t, err)
	require.Len(t, public, 2)
	require.Equal(t, "3", public[1].ID)
}
