package github

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mygh/mygh/internal/core/engine"
	"github.com/mygh/mygh/internal/testutil"
)

func TestSearchRepositoriesReadsItems(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.JSON(http.MethodGet, "/search/repositories", http.StatusOK, map[string]any{
		"total_count":        2,
		"incomplete_results": false,
		"items": []any{
			map[string]any{"full_name": "a/cli"},
			map[string]any{"full_name": "b/cli"},
		},
	})
	svc := newTestService(t, api, 30)

	repos, err := svc.SearchRepositories(context.Background(), "cli language:go", SearchOptions{Sort: "stars", Order: "desc", Limit: 5})
	require.NoError(t, err)
	require.Len(t, repos, 2)

	q := api.Requests()[0].RawQuery
	require.Contains(t, q, "q=cli+language%3Ago")
	require.Contains(t, q, "sort=stars")
	require.Contains(t, q, "per_page=5")

	state, ok := svc.Client().Tracker().State(engine.ResourceSearch)
	require.False(t, ok, "no rate headers were sent")
	require.Zero(t, state.Limit)
}

func TestSearchUsersValidation(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	api.JSON(http.MethodGet, "/search/users", http.StatusOK, map[string]any{
		"items": []any{map[string]any{"login": "octocat", "type": "User"}},
	})
	svc := newTestService(t, api, 30)

	_, err := svc.SearchUsers(context.Background(), "  ", SearchOptions{})
	require.Error(t, err)

	_, err = svc.SearchUsers(context.Background(), "octo", SearchOptions{Order: "sideways"})
	require.Error(t, err)
	require.Empty(t, api.Requests())

	users, err := svc.SearchUsers(context.Background(), "octo", SearchOptions{})
	require.NoError(t, err)
	require.Equal(t, "octocat", users[0].Login)
}
