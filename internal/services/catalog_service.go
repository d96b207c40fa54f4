package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/liamwears/movielist/internal/metrics"
	"github.com/liamwears/movielist/internal/models"
)

// Category is the kind of movie listing
type Category int

const (
	CategoryNowPlaying Category = iota
	CategoryPopular
	CategoryTopRated
	CategoryUpcoming
	CategorySimilar
)

// ListKind selects a movie listing. MovieID is only meaningful for
// CategorySimilar.
type ListKind struct {
	Category Category
	MovieID  int
}

func NowPlaying() ListKind { return ListKind{Category: CategoryNowPlaying} }
func Popular() ListKind    { return ListKind{Category: CategoryPopular} }
func TopRated() ListKind   { return ListKind{Category: CategoryTopRated} }
func Upcoming() ListKind   { return ListKind{Category: CategoryUpcoming} }

// SimilarTo lists movies similar to the given movie
func SimilarTo(movieID int) ListKind {
	return ListKind{Category: CategorySimilar, MovieID: movieID}
}

// Path returns the catalog endpoint for the listing
func (k ListKind) Path() string {
	switch k.Category {
	case CategoryPopular:
		return "/movie/popular"
	case CategoryTopRated:
		return "/movie/top_rated"
	case CategoryUpcoming:
		return "/movie/upcoming"
	case CategorySimilar:
		return fmt.Sprintf("/movie/%d/similar", k.MovieID)
	default:
		return "/movie/now_playing"
	}
}

func (k ListKind) String() string {
	switch k.Category {
	case CategoryPopular:
		return "popular"
	case CategoryTopRated:
		return "top_rated"
	case CategoryUpcoming:
		return "upcoming"
	case CategorySimilar:
		return "similar:" + strconv.Itoa(k.MovieID)
	default:
		return "now_playing"
	}
}

// metricLabel keeps movie ids out of metric labels
func (k ListKind) metricLabel() string {
	if k.Category == CategorySimilar {
		return "/movie/{id}/similar"
	}
	return k.Path()
}

// ImageSize is a poster/backdrop size bucket
type ImageSize string

const (
	ImageSmall    ImageSize = "w185"
	ImageMedium   ImageSize = "w342"
	ImageLarge    ImageSize = "w500"
	ImageOriginal ImageSize = "original"
)

// CatalogConfig holds catalog client configuration
type CatalogConfig struct {
	BearerToken  string
	BaseURL      string
	ImageBaseURL string

	// MaxRetries is the number of retries after the first failed attempt
	MaxRetries     int
	RetryBaseDelay time.Duration

	RequestsPerSecond       float64
	Burst                   int
	BreakerFailureThreshold uint32

	// HTTPClient replaces the bearer-token client when set
	HTTPClient *http.Client
}

// CatalogOption customizes a CatalogService
type CatalogOption func(*CatalogService)

// WithSleeper replaces the backoff wait, mainly for tests
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) CatalogOption {
	return func(s *CatalogService) {
		s.sleep = sleep
	}
}

// CatalogService is the client for the movie metadata API
type CatalogService struct {
	client         *http.Client
	baseURL        string
	imageBaseURL   string
	maxRetries     int
	retryBaseDelay time.Duration
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker[[]byte]
	sleep          func(ctx context.Context, d time.Duration) error
	logger         zerolog.Logger
}

// NewCatalogService creates a new catalog client
func NewCatalogService(cfg CatalogConfig, logger zerolog.Logger, opts ...CatalogOption) *CatalogService {
	client := cfg.HTTPClient
	if client == nil {
		client = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.BearerToken,
			TokenType:   "Bearer",
		}))
		client.Timeout = 30 * time.Second
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = "https://image.tmdb.org/t/p"
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 40
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 10
	}

	logger = logger.With().Str("component", "catalog").Logger()

	s := &CatalogService{
		client:         client,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		imageBaseURL:   strings.TrimRight(cfg.ImageBaseURL, "/"),
		maxRetries:     cfg.MaxRetries,
		retryBaseDelay: cfg.RetryBaseDelay,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		sleep:          sleepContext,
		logger:         logger,
	}

	const breakerName = "catalog"
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	threshold := cfg.BreakerFailureThreshold
	s.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// FetchPage fetches one page of a listing, retrying failed attempts with
// exponential backoff
func (s *CatalogService) FetchPage(ctx context.Context, kind ListKind, page int) (*models.MoviePage, error) {
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))

	var result models.MoviePage
	err := s.withRetry(ctx, kind.metricLabel(), func(ctx context.Context) error {
		result = models.MoviePage{}
		return s.attempt(ctx, "fetch page", kind.Path(), kind.metricLabel(), params, &result)
	})
	if err != nil {
		return nil, err
	}

	for i := range result.Results {
		result.Results[i].EnsureGenres()
	}

	s.logger.Debug().
		Str("kind", kind.String()).
		Int("page", result.Page).
		Int("total_pages", result.TotalPages).
		Int("results", len(result.Results)).
		Msg("fetched page")

	return &result, nil
}

// Search runs a title search. A blank query fails with ErrNoData and no
// request is sent.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &CatalogError{Op: "search", Kind: KindNoData, Err: ErrNoData}
	}

	params := url.Values{}
	params.Set("query", query)

	var result models.MoviePage
	if err := s.attempt(ctx, "search", "/search/movie", "/search/movie", params, &result); err != nil {
		return nil, err
	}

	for i := range result.Results {
		result.Results[i].EnsureGenres()
	}
	return result.Results, nil
}

// detailEnvelope is the part of a detail payload appended by
// append_to_response
type detailEnvelope struct {
	Credits *models.Credits   `json:"credits"`
	Videos  *models.Videos    `json:"videos"`
	Similar *models.MoviePage `json:"similar"`
}

// FetchDetails fetches credits, videos and similar movies in one request,
// retrying failed attempts with exponential backoff
func (s *CatalogService) FetchDetails(ctx context.Context, movieID int) (*models.ExtendedDetails, error) {
	endpoint := fmt.Sprintf("/movie/%d", movieID)
	params := url.Values{}
	params.Set("append_to_response", "credits,videos,similar")

	var envelope detailEnvelope
	err := s.withRetry(ctx, "/movie/{id}", func(ctx context.Context) error {
		envelope = detailEnvelope{}
		return s.attempt(ctx, "fetch details", endpoint, "/movie/{id}", params, &envelope)
	})
	if err != nil {
		return nil, err
	}

	details := &models.ExtendedDetails{
		Credits: envelope.Credits,
		Videos:  envelope.Videos,
	}
	if envelope.Similar != nil {
		details.SimilarMovies = envelope.Similar.Results
		for i := range details.SimilarMovies {
			details.SimilarMovies[i].EnsureGenres()
		}
	}
	return details, nil
}

// FetchSingle fetches a movie's detail payload
func (s *CatalogService) FetchSingle(ctx context.Context, movieID int) (*models.Movie, error) {
	endpoint := fmt.Sprintf("/movie/%d", movieID)

	var movie models.Movie
	if err := s.attempt(ctx, "fetch movie", endpoint, "/movie/{id}", nil, &movie); err != nil {
		return nil, err
	}
	movie.EnsureGenres()
	return &movie, nil
}

// ImageURL builds the URL for an image path fragment. An empty path
// yields an empty URL.
func (s *CatalogService) ImageURL(path string, size ImageSize) string {
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.imageBaseURL + "/" + string(size) + path
}

// withRetry runs fn until it succeeds, fails with a non-retryable error or
// maxRetries retries are used up. The wait before retry n is
// retryBaseDelay * 2^n.
func (s *CatalogService) withRetry(ctx context.Context, label string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := s.retryBaseDelay * time.Duration(1<<attempt)
			metrics.CatalogRetries.WithLabelValues(label).Inc()
			s.logger.Warn().
				Err(err).
				Str("endpoint", label).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying catalog request")

			if waitErr := s.sleep(ctx, delay); waitErr != nil {
				return waitErr
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		var catalogErr *CatalogError
		if !errors.As(err, &catalogErr) || !catalogErr.Retryable() {
			return err
		}
		if attempt >= s.maxRetries {
			s.logger.Error().Err(err).Str("endpoint", label).Int("attempts", attempt+1).Msg("catalog request failed")
			return err
		}
	}
}

// attempt performs a single paced, breaker-guarded request and decodes the
// body into out
func (s *CatalogService) attempt(ctx context.Context, op, endpoint, label string, params url.Values, out any) error {
	start := time.Now()
	outcome := "success"
	defer func() {
		metrics.CatalogRequests.WithLabelValues(label, outcome).Inc()
		metrics.CatalogRequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	reqURL, err := url.Parse(s.baseURL + endpoint)
	if err != nil {
		outcome = KindBadRequest.String()
		return &CatalogError{Op: op, Kind: KindBadRequest, Err: err}
	}
	q := reqURL.Query()
	q.Set("language", "en-US")
	q.Set("include_adult", "false")
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	reqURL.RawQuery = q.Encode()

	if err := s.limiter.Wait(ctx); err != nil {
		outcome = KindTransport.String()
		return &CatalogError{Op: op, Kind: KindTransport, Err: err}
	}

	body, err := s.breaker.Execute(func() ([]byte, error) {
		return s.do(ctx, op, reqURL.String())
	})
	if err != nil {
		var catalogErr *CatalogError
		if errors.As(err, &catalogErr) {
			outcome = catalogErr.Kind.String()
			return catalogErr
		}
		// gobreaker.ErrOpenState or ErrTooManyRequests
		outcome = "rejected"
		return &CatalogError{Op: op, Kind: KindTransport, Err: err}
	}

	if err := json.Unmarshal(body, out); err != nil {
		outcome = KindDecode.String()
		return &CatalogError{Op: op, Kind: KindDecode, Err: err}
	}

	return nil
}

func (s *CatalogService) do(ctx context.Context, op, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &CatalogError{Op: op, Kind: KindBadRequest, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &CatalogError{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CatalogError{Op: op, Kind: KindTransport, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CatalogError{
			Op:         op,
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", truncate(string(body), 200)),
		}
	}

	return body, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
