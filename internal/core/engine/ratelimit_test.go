package engine

import (
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rateHeader(limit, remaining int, reset time.Time) http.Header {
	h := make(http.Header)
	h.Set(headerLimit, strconv.Itoa(limit))
	h.Set(headerRemaining, strconv.Itoa(remaining))
	h.Set(headerUsed, strconv.Itoa(limit-remaining))
	h.Set(headerReset, strconv.FormatInt(reset.Unix(), 10))
	return h
}

func TestTrackerPreemptiveWait(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker()
	tracker.Clock = func() time.Time { return now }

	_, wait := tracker.ShouldPreemptivelyWait(ResourceCore)
	require.False(t, wait, "unknown resource is assumed available")

	require.True(t, tracker.Observe(ResourceCore, rateHeader(5000, 0, now.Add(60*time.Second))))
	delay, wait := tracker.ShouldPreemptivelyWait(ResourceCore)
	require.True(t, wait)
	require.Equal(t, 60*time.Second, delay)

	require.True(t, tracker.Observe(ResourceCore, rateHeader(5000, 1, now.Add(60*time.Second))))
	_, wait = tracker.ShouldPreemptivelyWait(ResourceCore)
	require.False(t, wait)
}

func TestTrackerResetInPast(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker()
	tracker.Clock = func() time.Time { return now }

	tracker.Observe(ResourceCore, rateHeader(60, 0, now.Add(-time.Second)))
	_, wait := tracker.ShouldPreemptivelyWait(ResourceCore)
	require.False(t, wait)
}

func TestTrackerResourcesIndependent(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker()
	tracker.Clock = func() time.Time { return now }

	search := rateHeader(30, 0, now.Add(30*time.Second))
	search.Set(headerResource, ResourceSearch)
	tracker.Observe(ResourceCore, search)
	tracker.Observe(ResourceCore, rateHeader(5000, 4999, now.Add(time.Hour)))

	_, coreWait := tracker.ShouldPreemptivelyWait(ResourceCore)
	_, searchWait := tracker.ShouldPreemptivelyWait(ResourceSearch)
	require.False(t, coreWait)
	require.True(t, searchWait)

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 2)
	require.Equal(t, ResourceCore, snapshot[0].Resource)
	require.Equal(t, ResourceSearch, snapshot[1].Resource)
	require.Equal(t, 30, snapshot[1].Limit)
}

func TestTrackerIgnoresHeadersWithoutQuota(t *testing.T) {
	tracker := NewTracker()
	require.False(t, tracker.Observe(ResourceCore, http.Header{"Content-Type": {"application/json"}}))
	require.Empty(t, tracker.Snapshot())
}

func TestTrackerUnparseableRemaining(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker()
	tracker.Clock = func() time.Time { return now }

	h := make(http.Header)
	h.Set(headerRemaining, "lots")
	h.Set(headerReset, strconv.FormatInt(now.Add(time.Minute).Unix(), 10))
	require.True(t, tracker.Observe(ResourceCore, h))

	_, wait := tracker.ShouldPreemptivelyWait(ResourceCore)
	require.False(t, wait)
}

func TestTrackerConcurrentObserve(t *testing.T) {
	now := time.Now()
	tracker := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tracker.Observe(ResourceCore, rateHeader(5000, 5000-i, now.Add(time.Hour)))
			tracker.ShouldPreemptivelyWait(ResourceCore)
		}(i)
	}
	wg.Wait()

	state, ok := tracker.State(ResourceCore)
	require.True(t, ok)
	require.Equal(t, 5000, state.Limit)
}

func TestResourceFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/user/starred", ResourceCore},
		{"user", ResourceCore},
		{"/search/repositories", ResourceSearch},
		{"search/users", ResourceSearch},
		{"https://api.github.com/search/repositories?q=go&page=2", ResourceSearch},
		{"https://api.github.com/repositories/1/issues?page=2", ResourceCore},
		{"/graphql", ResourceGraphQL},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, ResourceFor(tt.path))
		})
	}
}
