// @title                       Ad-Quiz API
// @version                     1.0
// @description                 Credit ledger and ad distribution for ad + quiz cards.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/adrecipro/adquiz/docs"
	"github.com/adrecipro/adquiz/internal/api"
	"github.com/adrecipro/adquiz/internal/api/handler"
	"github.com/adrecipro/adquiz/internal/core/ports"
	"github.com/adrecipro/adquiz/internal/core/service"
	"github.com/adrecipro/adquiz/internal/infrastructure/db/memory"
	mongodb "github.com/adrecipro/adquiz/internal/infrastructure/db/mongo"
	redisdb "github.com/adrecipro/adquiz/internal/infrastructure/db/redis"
	"github.com/adrecipro/adquiz/internal/infrastructure/queue"
	"github.com/adrecipro/adquiz/internal/infrastructure/quizgen"
	"github.com/adrecipro/adquiz/internal/infrastructure/storage"
	"github.com/adrecipro/adquiz/internal/pkg/config"
	"github.com/adrecipro/adquiz/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "adquiz-api",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := map[string]handler.PingFunc{}

	// --- Record store ---
	var (
		users ports.UserRepository
		ads   ports.AdRepository
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store := memory.New()
		users, ads = store.Users(), store.Ads()
		ready["store"] = store.Ping
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to mongodb")
		}
		defer func() {
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			_ = client.Disconnect(dctx)
		}()
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure mongodb indexes")
		}
		users, ads = mongodb.NewUserRepository(db), mongodb.NewAdRepository(db)
		ready["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	}

	// --- Notifications and impression dedup ---
	var (
		notifier ports.BalanceNotifier = memory.NewNotifier()
		dedup    ports.ImpressionDedup = memory.NewImpressionDedup()
	)
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		notifier = redisdb.NewBalanceNotifier(rdb, logger.Component("balance-notifier"))
		dedup = redisdb.NewImpressionDedup(rdb)
		ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		log.Warn().Msg("REDIS_ADDR empty, balance events and impression dedup are process-local")
	}

	// --- Collaborators ---
	files, err := storage.NewFileStore(cfg.Storage.Dir, cfg.Storage.PublicURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare image storage")
	}
	var generator ports.QuizGenerator
	if cfg.Gemini.APIKey != "" {
		g, err := quizgen.NewGemini(quizgen.Options{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure quiz generator")
		}
		generator = g
	} else {
		log.Warn().Msg("GEMINI_API_KEY empty, quiz drafting disabled")
	}

	// --- Services ---
	ledger := service.NewLedgerService(users, notifier, logger.Component("ledger"))
	adService := service.NewAdService(ads, logger.Component("ads"))

	dispatcher := queue.NewDispatcher(cfg.Workers.CounterWorkers, adService, logger.Component("counter-dispatcher"))
	dispatcher.Start(ctx)

	feed := service.NewFeedService(ads, ledger, dispatcher, dedup, service.FeedConfig{
		CandidateLimit: cfg.Feed.CandidateLimit,
		ExcludeOwnAds:  cfg.Feed.ExcludeOwnAds,
		ImpressionTTL:  cfg.Feed.ImpressionDedupTTL,
	}, logger.Component("feed"))
	publication := service.NewPublicationService(ledger, adService, files, generator, logger.Component("publication"))
	resolution := service.NewResolutionService(ledger, adService, logger.Component("resolution"))

	e := api.NewRouter(api.Dependencies{
		Ledger:      ledger,
		Ads:         adService,
		Feed:        feed,
		Publication: publication,
		Resolution:  resolution,
		Counters:    dispatcher,
		JWTSecret:   cfg.JWTSecret,
		MediaDir:    files.BasePath(),
		Ready:       ready,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdown(srv, dispatcher, cfg.ShutdownTimeout, log)
	cancel()
	log.Info().Msg("server exited properly")
}

// shutdown stops accepting requests, then drains queued counter events.
func shutdown(srv *http.Server, dispatcher *queue.Dispatcher, timeout time.Duration, log zerolog.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	done := make(chan struct{})
	go func() {
		dispatcher.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("counter queue not drained before shutdown deadline")
	}
}
