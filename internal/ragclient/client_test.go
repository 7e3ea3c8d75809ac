package ragclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRoundTrip(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"response": "Blade Runner is a strong pick.",
			"intent": "recommendation",
			"sources": {"vector_matches": 5, "sql_matches": 2, "used_statistics": false},
			"token_usage": {
				"intent_analysis": {"prompt_tokens": 50, "completion_tokens": 10, "total_tokens": 60},
				"response_generation": {"prompt_tokens": 400, "completion_tokens": 120, "total_tokens": 520},
				"total": {"prompt_tokens": 450, "completion_tokens": 130, "total_tokens": 580}
			}
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	history := []Message{{Role: RoleUser, Content: "earlier question"}}
	resp, err := client.Query(context.Background(), "best sci-fi?", history)
	require.NoError(t, err)

	assert.Equal(t, "/api/chat/", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "best sci-fi?", gotBody.Message)
	assert.Equal(t, history, gotBody.ConversationHistory)

	assert.Equal(t, "Blade Runner is a strong pick.", resp.Response)
	assert.Equal(t, "recommendation", resp.Intent)
	assert.Equal(t, 5, resp.Sources.VectorMatches)
	require.NotNil(t, resp.TokenUsage)
	assert.Equal(t, 580, resp.TokenUsage.Total.TotalTokens)
	assert.True(t, resp.TokenUsage.Consistent())
}

func TestQuerySendsEmptyHistoryNotNull(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"response": "ok", "intent": "", "sources": {}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.Query(context.Background(), "first message", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw["conversation_history"]))
}

func TestQueryNonOKStatusCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("  upstream model unavailable\n"))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.Query(context.Background(), "hello", nil)
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusBadGateway, netErr.Status)
	assert.Equal(t, "upstream model unavailable", netErr.Body)
}

func TestQueryTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.Query(context.Background(), "hello", nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Error(t, netErr.Err)
}

func TestQueryRejectsNegativeSourceCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": "x", "intent": "", "sources": {"vector_matches": -1, "sql_matches": 0}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.Query(context.Background(), "hello", nil)
	require.Error(t, err)
}

func TestQueryDropsInconsistentTokenUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"response": "still a good answer",
			"intent": "general",
			"sources": {"vector_matches": 1, "sql_matches": 0},
			"token_usage": {
				"intent_analysis": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
				"response_generation": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
				"total": {"prompt_tokens": 2, "completion_tokens": 2, "total_tokens": 999}
			}
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	resp, err := client.Query(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "still a good answer", resp.Response)
	assert.Nil(t, resp.TokenUsage)
}

func TestHealth(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	assert.True(t, client.Health(context.Background()))

	healthy = false
	assert.False(t, client.Health(context.Background()))
}

func TestHealthFalseOnTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(srv.URL, time.Second, nil)
	assert.False(t, client.Health(context.Background()))
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/movies/stats", r.URL.Path)
		w.Write([]byte(`{
			"total_movies": 1250, "avg_rating": 7.3,
			"earliest_year": 1927, "latest_year": 2024,
			"unique_directors": 480, "unique_genres": 19,
			"unique_reviewers": 3200, "unique_actors": 2100
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1250, stats.TotalMovies)
	assert.Equal(t, 1927, stats.EarliestYear)
	assert.Equal(t, 2100, stats.UniqueActors)
}

func TestStatsErrorIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	_, err := client.Stats(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "/api/movies/stats", fetchErr.Endpoint)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.Status)
}

func TestDetailedStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/movies/stats/detailed", r.URL.Path)
		w.Write([]byte(`{
			"movies": {"total_movies": 1250, "avg_rating": 7.3, "unique_genres": 19},
			"vector_config": {"embedding_model": "text-embedding-3-small", "embedding_dimensions": 1536},
			"genre_distribution": [{"genre": "Drama", "count": 300}],
			"redis_cache": {"available": true, "status": "connected"}
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second, nil)
	stats, err := client.DetailedStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1250, stats.Movies.TotalMovies)
	assert.Equal(t, "text-embedding-3-small", stats.VectorConfig.EmbeddingModel)
	require.Len(t, stats.GenreDistribution, 1)
	assert.Equal(t, "Drama", stats.GenreDistribution[0].Genre)
	require.NotNil(t, stats.RedisCache)
	assert.Equal(t, "connected", stats.RedisCache.Status)
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"total_movies": 1}`))
	}))
	defer srv.Close()

	client := New(srv.URL+"///", time.Second, nil)
	_, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/movies/stats", gotPath)
}

func TestConsistencyChecks(t *testing.T) {
	ok := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	bad := TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 99}
	assert.True(t, ok.Consistent())
	assert.False(t, bad.Consistent())

	group := QueryTokenUsage{IntentAnalysis: ok, ResponseGeneration: ok, Total: ok}
	assert.True(t, group.Consistent())
	group.ResponseGeneration = bad
	assert.False(t, group.Consistent())
}
