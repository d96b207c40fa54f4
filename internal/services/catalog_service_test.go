package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func setupCatalog(t *testing.T, handler http.HandlerFunc, mutate func(*CatalogConfig)) (*CatalogService, *recordingSleeper, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	sleeper := &recordingSleeper{}

	cfg := CatalogConfig{
		BearerToken:    "test-token",
		BaseURL:        server.URL,
		ImageBaseURL:   "https://image.tmdb.org/t/p",
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	svc := NewCatalogService(cfg, zerolog.Nop(), WithSleeper(sleeper.Sleep))
	return svc, sleeper, server.Close
}

func TestCatalogService_FetchPage(t *testing.T) {
	svc, _, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/popular", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"page": 2,
			"total_pages": 5,
			"total_results": 100,
			"results": [
				{"id": 1, "title": "Alien", "vote_average": 8.5, "genre_ids": [27, 878, 99999]},
				{"id": 2, "title": "Brazil", "release_date": "1985-02-20", "genre_ids": []}
			]
		}`))
	}, nil)
	defer cleanup()

	page, err := svc.FetchPage(context.Background(), Popular(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.TotalPages)
	require.Len(t, page.Results, 2)
	require.Len(t, page.Results[0].Genres, 2)
	assert.Equal(t, "Horror", page.Results[0].Genres[0].Name)
	assert.Equal(t, "Science Fiction", page.Results[0].Genres[1].Name)
	assert.Empty(t, page.Results[1].Genres)
}

func TestCatalogService_RetryExhaustion(t *testing.T) {
	var hits atomic.Int32
	svc, sleeper, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, nil)
	defer cleanup()

	_, err := svc.FetchPage(context.Background(), NowPlaying(), 1)
	require.Error(t, err)

	var catalogErr *CatalogError
	require.True(t, errors.As(err, &catalogErr))
	assert.Equal(t, KindServer, catalogErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, catalogErr.StatusCode)

	assert.EqualValues(t, 4, hits.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, sleeper.Delays())
}

func TestCatalogService_RetryRecovers(t *testing.T) {
	var hits atomic.Int32
	svc, sleeper, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
		case 2:
			_, _ = w.Write([]byte(`{"page": "not a number"`))
		default:
			_, _ = w.Write([]byte(`{"page": 1, "total_pages": 1, "results": [{"id": 7, "title": "Heat"}]}`))
		}
	}, nil)
	defer cleanup()

	page, err := svc.FetchPage(context.Background(), TopRated(), 1)
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Heat", page.Results[0].Title)
	assert.EqualValues(t, 3, hits.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.Delays())
}

func TestCatalogService_ConcurrentCallsCountIndependently(t *testing.T) {
	var hits atomic.Int32
	svc, _, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, func(cfg *CatalogConfig) {
		cfg.BreakerFailureThreshold = 100
	})
	defer cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.FetchPage(context.Background(), Upcoming(), 1)
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 12, hits.Load())
}

func TestCatalogService_CancelledDuringBackoff(t *testing.T) {
	var hits atomic.Int32
	svc, _, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	svc.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := svc.FetchDetails(ctx, 550)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, hits.Load())
}

func TestCatalogService_CircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	svc, _, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(cfg *CatalogConfig) {
		cfg.BreakerFailureThreshold = 2
	})
	defer cleanup()

	_, err := svc.FetchPage(context.Background(), Popular(), 1)
	require.Error(t, err)

	var catalogErr *CatalogError
	require.True(t, errors.As(err, &catalogErr))
	assert.Equal(t, KindTransport, catalogErr.Kind)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.EqualValues(t, 2, hits.Load())
}

func TestCatalogService_SearchBlankQuery(t *testing.T) {
	var hits atomic.Int32
	svc, _, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}, nil)
	defer cleanup()

	for _, query := range []string{"", "  ", "\t\n"} {
		_, err := svc.Search(context.Background(), query)
		assert.ErrorIs(t, err, ErrNoData)
	}
	assert.Zero(t, hits.Load())
}

func TestCatalogService_SearchIsSingleShot(t *testing.T) {
	var hits atomic.Int32
	svc, sleeper, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)
	defer cleanup()

	_, err := svc.Search(context.Background(), "alien")
	assert.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, sleeper.Delays())
}

func TestCatalogService_Search(t *testing.T) {
	svc, _, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "the thing", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"page": 1, "total_pages": 1, "results": [{"id": 1091, "title": "The Thing", "genre_ids": [27]}]}`))
	}, nil)
	defer cleanup()

	movies, err := svc.Search(context.Background(), "  the thing ")
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.True(t, movies[0].HasGenre(27))
}

func TestCatalogService_FetchDetails(t *testing.T) {
	svc, _, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		assert.Equal(t, "credits,videos,similar", r.URL.Query().Get("append_to_response"))
		_, _ = w.Write([]byte(`{
			"id": 550,
			"title": "Fight Club",
			"genres": [{"id": 18, "name": "Drama"}],
			"credits": {"cast": [{"id": 819, "name": "Edward Norton", "character": "The Narrator"}], "crew": []},
			"videos": {"results": [{"key": "abc", "type": "Teaser", "site": "YouTube"}, {"key": "xyz", "type": "Trailer", "site": "YouTube"}]},
			"similar": {"page": 1, "total_pages": 1, "results": [{"id": 807, "title": "Se7en", "genre_ids": [80]}]}
		}`))
	}, nil)
	defer cleanup()

	details, err := svc.FetchDetails(context.Background(), 550)
	require.NoError(t, err)

	require.NotNil(t, details.Credits)
	assert.Equal(t, "Edward Norton", details.Credits.Cast[0].Name)
	trailer, ok := details.Videos.Trailer()
	require.True(t, ok)
	assert.Equal(t, "xyz", trailer.Key)
	require.Len(t, details.SimilarMovies, 1)
	assert.Equal(t, "Crime", details.SimilarMovies[0].Genres[0].Name)
}

func TestCatalogService_FetchSingle(t *testing.T) {
	svc, _, cleanup := setupCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 550, "title": "Fight Club", "runtime": 139, "genres": [{"id": 18, "name": "Drama"}]}`))
	}, nil)
	defer cleanup()

	movie, err := svc.FetchSingle(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", movie.Title)
	require.NotNil(t, movie.Runtime)
	assert.Equal(t, 139, *movie.Runtime)
	assert.Equal(t, "Drama", movie.Genres[0].Name)
}

func TestListKind_Path(t *testing.T) {
	testCases := []struct {
		kind ListKind
		want string
	}{
		{NowPlaying(), "/movie/now_playing"},
		{Popular(), "/movie/popular"},
		{TopRated(), "/movie/top_rated"},
		{Upcoming(), "/movie/upcoming"},
		{SimilarTo(550), "/movie/550/similar"},
	}

	for _, tc := range testCases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.kind.Path())
		})
	}
}

func TestCatalogService_ImageURL(t *testing.T) {
	svc := NewCatalogService(CatalogConfig{BearerToken: "x"}, zerolog.Nop())

	assert.Equal(t, "https://image.tmdb.org/t/p/w500/poster.jpg", svc.ImageURL("/poster.jpg", ImageLarge))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/poster.jpg", svc.ImageURL("poster.jpg", ImageOriginal))
	assert.Empty(t, svc.ImageURL("", ImageSmall))
}
