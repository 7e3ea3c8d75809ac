package ragclient

// Role of a conversation turn as the backend understands it.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversational context sent with a query.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SourceSummary reports which retrieval mechanisms contributed to an answer.
// A missing optional field means unknown, not zero.
type SourceSummary struct {
	VectorMatches  int   `json:"vector_matches"`
	SQLMatches     int   `json:"sql_matches"`
	UsedStatistics bool  `json:"used_statistics"`
	RedisCacheHit  *bool `json:"redis_cache_hit,omitempty"`
}

// TokenUsage is one reported usage record. Consistent() holds for every
// record the backend emits; records that violate it are flagged, not trusted.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u TokenUsage) Consistent() bool {
	return u.TotalTokens == u.PromptTokens+u.CompletionTokens
}

// QueryTokenUsage groups the usage records of one answered query.
type QueryTokenUsage struct {
	IntentAnalysis     TokenUsage `json:"intent_analysis"`
	ResponseGeneration TokenUsage `json:"response_generation"`
	Total              TokenUsage `json:"total"`
}

// Consistent reports whether every record in the group satisfies the
// total == prompt + completion invariant.
func (u QueryTokenUsage) Consistent() bool {
	return u.IntentAnalysis.Consistent() &&
		u.ResponseGeneration.Consistent() &&
		u.Total.Consistent()
}

// ChatResponse is the full payload of a completed query.
type ChatResponse struct {
	Response   string           `json:"response"`
	Intent     string           `json:"intent"`
	Sources    SourceSummary    `json:"sources"`
	TokenUsage *QueryTokenUsage `json:"token_usage,omitempty"`
}

type chatRequest struct {
	Message             string    `json:"message"`
	ConversationHistory []Message `json:"conversation_history"`
}

// StatsSummary is the aggregate snapshot behind the info bar.
type StatsSummary struct {
	TotalMovies     int     `json:"total_movies"`
	AvgRating       float64 `json:"avg_rating"`
	EarliestYear    int     `json:"earliest_year"`
	LatestYear      int     `json:"latest_year"`
	UniqueDirectors int     `json:"unique_directors"`
	UniqueGenres    int     `json:"unique_genres"`
	UniqueReviewers int     `json:"unique_reviewers"`
	UniqueActors    int     `json:"unique_actors"`
}

// DetailedStats is the analytics-view snapshot. Shapes mirror the backend's
// /api/movies/stats/detailed payload; only wholesale replacement, no mutation.
type DetailedStats struct {
	Movies struct {
		TotalMovies         int     `json:"total_movies"`
		AvgRating           float64 `json:"avg_rating"`
		MinRating           float64 `json:"min_rating"`
		MaxRating           float64 `json:"max_rating"`
		RatingStddev        float64 `json:"rating_stddev"`
		EarliestYear        int     `json:"earliest_year"`
		LatestYear          int     `json:"latest_year"`
		UniqueDirectors     int     `json:"unique_directors"`
		UniqueGenres        int     `json:"unique_genres"`
		AvgRuntime          float64 `json:"avg_runtime"`
		MinRuntime          int     `json:"min_runtime"`
		MaxRuntime          int     `json:"max_runtime"`
		TotalRuntimeMinutes int     `json:"total_runtime_minutes"`
	} `json:"movies"`
	Reviews struct {
		TotalReviews      int     `json:"total_reviews"`
		AvgReviewRating   float64 `json:"avg_review_rating"`
		UniqueReviewers   int     `json:"unique_reviewers"`
		MoviesWithReviews int     `json:"movies_with_reviews"`
	} `json:"reviews"`
	VectorDB struct {
		MoviesWithEmbeddings int     `json:"movies_with_embeddings"`
		TotalMovies          int     `json:"total_movies"`
		EmbeddingCoveragePct float64 `json:"embedding_coverage_percent"`
	} `json:"vector_db"`
	ReviewVectorDB struct {
		ReviewsWithEmbeddings int     `json:"reviews_with_embeddings"`
		TotalReviews          int     `json:"total_reviews"`
		EmbeddingCoveragePct  float64 `json:"embedding_coverage_percent"`
	} `json:"review_vector_db"`
	VectorConfig struct {
		EmbeddingDimensions int    `json:"embedding_dimensions"`
		EmbeddingModel      string `json:"embedding_model"`
		DistanceMetric      string `json:"distance_metric"`
		IndexType           string `json:"index_type"`
	} `json:"vector_config"`
	GenreDistribution []struct {
		Genre string `json:"genre"`
		Count int    `json:"count"`
	} `json:"genre_distribution"`
	DecadeDistribution []struct {
		Decade    int     `json:"decade"`
		Count     int     `json:"count"`
		AvgRating float64 `json:"avg_rating"`
	} `json:"decade_distribution"`
	RatingDistribution []struct {
		RatingBucket string `json:"rating_bucket"`
		Count        int    `json:"count"`
	} `json:"rating_distribution"`
	TopDirectors []struct {
		Director   string  `json:"director"`
		MovieCount int     `json:"movie_count"`
		AvgRating  float64 `json:"avg_rating"`
	} `json:"top_directors"`
	RuntimeDistribution []struct {
		RuntimeCategory string `json:"runtime_category"`
		Count           int    `json:"count"`
	} `json:"runtime_distribution"`
	Storage struct {
		MoviesTableSize  string `json:"movies_table_size"`
		ReviewsTableSize string `json:"reviews_table_size"`
		TotalSize        string `json:"total_size"`
	} `json:"storage"`
	Indexes []struct {
		IndexName string `json:"indexname"`
		Size      string `json:"size"`
	} `json:"indexes"`
	RedisCache *RedisCacheStats `json:"redis_cache,omitempty"`
}

// RedisCacheStats is present only when the backend has a cache server wired.
type RedisCacheStats struct {
	Available  bool   `json:"available"`
	Status     string `json:"status"`
	Host       string `json:"host,omitempty"`
	CacheStats *struct {
		Hits           int     `json:"hits"`
		Misses         int     `json:"misses"`
		TotalRequests  int     `json:"total_requests"`
		HitRatePercent float64 `json:"hit_rate_percent"`
	} `json:"cache_stats,omitempty"`
	CachedItems *struct {
		SearchResults int  `json:"search_results"`
		StatsCached   bool `json:"stats_cached"`
	} `json:"cached_items,omitempty"`
	Memory *struct {
		UsedMemory       string `json:"used_memory"`
		UsedMemoryPeak   string `json:"used_memory_peak"`
		ConnectedClients int    `json:"connected_clients"`
	} `json:"memory,omitempty"`
	Server *struct {
		Version    string  `json:"version"`
		UptimeDays float64 `json:"uptime_days"`
	} `json:"server,omitempty"`
}
