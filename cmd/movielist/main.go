package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/liamwears/movielist/internal/blobstore"
	"github.com/liamwears/movielist/internal/browse"
	"github.com/liamwears/movielist/internal/config"
	"github.com/liamwears/movielist/internal/database"
	"github.com/liamwears/movielist/internal/docstore"
	"github.com/liamwears/movielist/internal/handlers"
	"github.com/liamwears/movielist/internal/localstore"
	"github.com/liamwears/movielist/internal/logging"
	"github.com/liamwears/movielist/internal/middleware"
	"github.com/liamwears/movielist/internal/models"
	"github.com/liamwears/movielist/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(logging.Config{})
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	command := "sync"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "migrate":
		err = runMigrations(ctx, cfg, logger, os.Args[2:])
	case "serve":
		err = runServer(ctx, cfg, logger)
	case "sync":
		err = runSync(ctx, cfg, logger)
	case "search":
		err = runSearch(ctx, cfg, logger, strings.Join(os.Args[2:], " "))
	default:
		logger.Fatal().Str("command", command).Msg("unknown command, expected migrate, serve, sync or search")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("command failed")
	}
}

// runMigrations runs database migrations
func runMigrations(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	db, err := database.New(ctx, database.Config{URL: cfg.Database.URL}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	migrator := database.NewMigrator(db.Pool, logger)
	if len(args) > 0 && args[0] == "down" {
		return migrator.Down(ctx)
	}
	if err := migrator.Up(ctx); err != nil {
		return err
	}

	logger.Info().Msg("migrations completed successfully")
	return nil
}

// runServer serves stored blobs, health and metrics until interrupted
func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Str("env", cfg.App.Env).Msg("starting blob server")

	db, err := database.New(ctx, database.Config{URL: cfg.Database.URL}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	blobs := blobstore.NewPostgresStore(db.Pool, cfg.Storage.PublicBaseURL)
	blobHandler := handlers.NewBlobHandler(blobs, logger)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.HealthChecker{
		"database": db,
		"redis":    redisClient,
	})

	// 100 req/min in production, unlimited in local/dev
	rateLimiter := middleware.NewRateLimiter(redisClient.Client, cfg.Server.RateLimit, cfg.Server.RateLimitWindow, cfg.IsProduction(), logger)

	mux := http.NewServeMux()
	mux.Handle("GET /blobs/{path...}", rateLimiter.Limit(http.HandlerFunc(blobHandler.Get)))
	mux.Handle("GET /health", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      middleware.Logger(logger)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilDone(ctx, srv, logger)
}

// runSync restores the saved session and loads the first listing page and
// the user's favorites, reconciling every favorite flag on the way
func runSync(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	db, err := database.New(ctx, database.Config{URL: cfg.Database.URL}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	local, err := localstore.Open(filepath.Join(cfg.App.DataDir, "local"))
	if err != nil {
		return err
	}
	defer local.Close()

	auth := services.NewAuthService(
		services.NewUserService(db.Pool),
		database.NewSessionStore(redisClient.Client, 0),
		local,
		logger,
	)
	prefs, err := services.NewPreferencesService(local).Load()
	if err != nil {
		logger.Warn().Err(err).Msg("falling back to default preferences")
	}

	catalog := newCatalog(cfg, logger)

	session := browse.NewSession(catalog, browse.Config{
		MinLoadInterval: cfg.Browse.MinLoadInterval,
		FilterDebounce:  cfg.Browse.FilterDebounce,
		Sort:            prefs.SortPreference,
	}, logger)
	defer session.Close()

	docs := docstore.NewPostgresStore(db.Pool, logger)
	library := services.NewLibraryService(docs, auth, logger, services.WithMovieIndex(session))

	if cfg.Metrics.Addr != "" {
		metricsServer := &http.Server{Addr: cfg.Metrics.Addr, Handler: promhttp.Handler()}
		go func() {
			if err := serveUntilDone(ctx, metricsServer, logger); err != nil {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	if err := session.Load(ctx, services.NowPlaying()); err != nil {
		return err
	}
	logger.Info().
		Str("kind", session.Kind().String()).
		Int("movies", len(session.Visible())).
		Int("total_pages", session.TotalPages()).
		Msg("listing loaded")

	user, err := auth.Restore(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		logger.Info().Msg("no saved session, skipping user data")
		return waitForMetrics(ctx, cfg)
	}

	if err := library.LoadFavorites(ctx); err != nil {
		return err
	}
	favorites := library.Favorites()
	logger.Info().Int("favorites", len(favorites)).Msg("favorites loaded")

	profiles := services.NewProfileService(
		docs,
		blobstore.NewPostgresStore(db.Pool, cfg.Storage.PublicBaseURL),
		auth,
		logger,
		services.WithAccountRenamer(auth),
	)
	profile, err := profiles.Load(ctx)
	if err != nil {
		return err
	}
	logger.Info().Str("name", profile.Name).Bool("has_image", profile.ProfileImageURL != nil).Msg("profile loaded")

	lists, err := services.NewListService(docs, auth, logger).Lists(ctx)
	if err != nil {
		return err
	}
	logger.Info().Int("lists", len(lists)).Msg("custom lists loaded")

	if cfg.Recommend.APIKey != "" && len(favorites) > 0 {
		titles := make([]string, 0, len(favorites))
		for _, m := range favorites {
			titles = append(titles, m.Title)
		}
		recommender := services.NewRecommendService(services.RecommendConfig{
			APIKey:   cfg.Recommend.APIKey,
			Endpoint: cfg.Recommend.Endpoint,
		}, logger)
		suggestion, err := recommender.Recommend(ctx, titles)
		if err != nil {
			logger.Warn().Err(err).Msg("recommendation failed")
		} else {
			logger.Info().Str("suggestion", suggestion).Msg("recommendation")
		}
	}

	return waitForMetrics(ctx, cfg)
}

// runSearch runs one debounced title search against the catalog
func runSearch(ctx context.Context, cfg *config.Config, logger zerolog.Logger, query string) error {
	if strings.TrimSpace(query) == "" {
		return services.ErrNoData
	}

	type outcome struct {
		movies []models.Movie
		err    error
	}
	done := make(chan outcome, 1)

	searcher := browse.NewSearcher(newCatalog(cfg, logger), cfg.Browse.SearchDebounce, logger,
		browse.WithResultHandler(func(_ string, movies []models.Movie, err error) {
			done <- outcome{movies: movies, err: err}
		}),
	)
	defer searcher.Close()

	searcher.Query(ctx, query)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case o := <-done:
		if o.err != nil {
			return o.err
		}
		for _, m := range o.movies {
			logger.Info().Int("movie_id", m.ID).Str("title", m.Title).Float64("rating", m.Rating()).Msg("search result")
		}
		logger.Info().Str("query", query).Int("results", len(o.movies)).Msg("search completed")
		return nil
	}
}

func newCatalog(cfg *config.Config, logger zerolog.Logger) *services.CatalogService {
	return services.NewCatalogService(services.CatalogConfig{
		BearerToken:       cfg.TMDB.BearerToken,
		BaseURL:           cfg.TMDB.BaseURL,
		ImageBaseURL:      cfg.TMDB.ImageBaseURL,
		MaxRetries:        cfg.TMDB.MaxRetries,
		RetryBaseDelay:    cfg.TMDB.RetryBaseDelay,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
	}, logger)
}

// waitForMetrics keeps the process alive for scraping when a metrics
// address is configured
func waitForMetrics(ctx context.Context, cfg *config.Config) error {
	if cfg.Metrics.Addr == "" {
		return nil
	}
	<-ctx.Done()
	return nil
}

func serveUntilDone(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Str("addr", srv.Addr).Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
