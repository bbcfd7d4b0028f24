package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"framd/server/internal/adapter/repo"
	"framd/server/internal/curation"
	"framd/server/internal/fetch"
	"framd/server/internal/genqueue"
	"framd/server/internal/http/handlers"
	"framd/server/internal/http/httpapi"
	"framd/server/internal/infra"
	"framd/server/internal/infra/geoip"
	"framd/server/internal/middleware"
	"framd/server/internal/providers/genai"
	"framd/server/internal/providers/stock"
	"framd/server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init file store")
	}

	countryLookup := middleware.CountryLookup(nil)
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer func() {
			if closer, ok := resolver.(*geoip.Resolver); ok {
				_ = closer.Close()
			}
		}()
		countryLookup = resolver.CountryCode
	}

	curatedRepo := repo.NewCuratedAssetRepository(runner)
	rejectionRepo := repo.NewRejectionLogRepository(runner)
	resolvedRepo := repo.NewResolvedAssetRepository(runner)

	cache := curation.NewCache(curatedRepo, logger)
	searchers := []stock.Searcher{
		stock.NewPexelsClient(stock.PexelsOptions{
			APIKey:  cfg.PexelsAPIKey,
			BaseURL: cfg.PexelsBaseURL,
		}),
		stock.NewOpenverseClient(stock.OpenverseOptions{
			BaseURL: cfg.OpenverseBaseURL,
		}),
	}
	curator := curation.NewService(cache, rejectionRepo, searchers, logger)

	resolver := fetch.NewResolver(logger,
		fetch.WithMaxBytes(cfg.DownloadMaxBytes),
		fetch.WithTimeout(cfg.DownloadTimeout),
		fetch.WithAllowedHosts(cfg.DownloadAllowedHosts...),
	)
	downloads := fetch.NewService(resolver, store, resolvedRepo, logger)

	genClient, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GenAPIKey,
		BaseURL: cfg.GenBaseURL,
		Model:   cfg.GenModel,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init generation client")
	}
	dispatcher := genai.NewClipDispatcher(genClient, store, logger)
	queue := genqueue.New(dispatcher, logger,
		genqueue.WithMinSpacing(cfg.QueueMinSpacing),
		genqueue.WithBackoffInitial(cfg.QueueBackoffInitial),
		genqueue.WithMaxRetries(cfg.QueueMaxRetries),
	)
	go func() {
		if err := queue.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("generation queue stopped")
		}
	}()

	app := &handlers.App{
		Curator:    curator,
		Cache:      cache,
		Downloader: downloads,
		Queue:      queue,
		Rejections: rejectionRepo,
		Resolved:   resolvedRepo,
		Store:      store,
		DB:         dbpool,
		Logger:     logger,
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  countryLookup,
		RateLimit:      cfg.RateLimitPerMin,
		RatePer:        time.Minute,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	downloads.Wait()
	logger.Info().Msg("server stopped")
}
