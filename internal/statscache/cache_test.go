package statscache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviechat/internal/ragclient"
)

type fakeFetcher struct {
	summary     ragclient.StatsSummary
	summaryErr  error
	detailed    ragclient.DetailedStats
	detailedErr error
	calls       int
}

func (f *fakeFetcher) Stats(ctx context.Context) (ragclient.StatsSummary, error) {
	f.calls++
	return f.summary, f.summaryErr
}

func (f *fakeFetcher) DetailedStats(ctx context.Context) (ragclient.DetailedStats, error) {
	f.calls++
	return f.detailed, f.detailedErr
}

func TestRefreshSummaryStoresSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{summary: ragclient.StatsSummary{TotalMovies: 1250, AvgRating: 7.2}}
	cache := New(fetcher, nil)

	_, ok := cache.Summary()
	assert.False(t, ok)
	assert.True(t, cache.LastUpdated().IsZero())

	got, err := cache.RefreshSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1250, got.TotalMovies)

	cached, ok := cache.Summary()
	require.True(t, ok)
	assert.Equal(t, 1250, cached.TotalMovies)
	assert.False(t, cache.LastUpdated().IsZero())
	assert.NoError(t, cache.LastError())
}

func TestRefreshFailureKeepsStaleSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{summary: ragclient.StatsSummary{TotalMovies: 1250}}
	cache := New(fetcher, nil)

	_, err := cache.RefreshSummary(context.Background())
	require.NoError(t, err)
	updated := cache.LastUpdated()

	fetcher.summaryErr = errors.New("backend went away")
	_, err = cache.RefreshSummary(context.Background())
	require.Error(t, err)

	// The snapshot shown before the failure is still shown after it.
	cached, ok := cache.Summary()
	require.True(t, ok)
	assert.Equal(t, 1250, cached.TotalMovies)
	assert.Equal(t, updated, cache.LastUpdated())
	assert.Error(t, cache.LastError())
}

func TestRefreshSuccessClearsLastError(t *testing.T) {
	fetcher := &fakeFetcher{summaryErr: errors.New("down")}
	cache := New(fetcher, nil)

	_, err := cache.RefreshSummary(context.Background())
	require.Error(t, err)
	require.Error(t, cache.LastError())

	fetcher.summaryErr = nil
	_, err = cache.RefreshSummary(context.Background())
	require.NoError(t, err)
	assert.NoError(t, cache.LastError())
}

func TestDetailedIndependentOfSummary(t *testing.T) {
	detailed := ragclient.DetailedStats{}
	detailed.Movies.TotalMovies = 1250
	fetcher := &fakeFetcher{detailed: detailed}
	cache := New(fetcher, nil)

	_, err := cache.RefreshDetailed(context.Background())
	require.NoError(t, err)

	_, ok := cache.Summary()
	assert.False(t, ok)
	got, ok := cache.Detailed()
	require.True(t, ok)
	assert.Equal(t, 1250, got.Movies.TotalMovies)
}
