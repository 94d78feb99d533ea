// cmd/recommender/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"poi-recommender/internal/clients/genai"
	"poi-recommender/internal/clients/places"
	"poi-recommender/internal/common/config"
	"poi-recommender/internal/common/database"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/common/observability"
	estimatepreferences "poi-recommender/internal/pipeline/estimate-preferences"
	ingestfeedback "poi-recommender/internal/pipeline/ingest-feedback"
	"poi-recommender/internal/pipeline/recommend"
	reconcileranking "poi-recommender/internal/pipeline/reconcile-ranking"
	scorerelevance "poi-recommender/internal/pipeline/score-relevance"
	suggestactions "poi-recommender/internal/pipeline/suggest-actions"
	"poi-recommender/internal/server"
	"poi-recommender/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting recommender...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- External clients ---
	searcher := places.NewClient(&places.Config{
		BaseURL:    cfg.APIs.PlaceSearch.BaseURL,
		APIKey:     cfg.APIs.PlaceSearch.APIKey,
		Timeout:    time.Duration(cfg.APIs.PlaceSearch.Timeout) * time.Millisecond,
		MaxRetries: cfg.APIs.PlaceSearch.MaxRetries,
	}, log)

	var generator *genai.Client
	if cfg.APIs.GenAI.BaseURL != "" {
		generator = genai.NewClient(&genai.Config{
			BaseURL:     cfg.APIs.GenAI.BaseURL,
			APIKey:      cfg.APIs.GenAI.APIKey,
			Timeout:     time.Duration(cfg.APIs.GenAI.Timeout) * time.Millisecond,
			MaxRetries:  cfg.APIs.GenAI.MaxRetries,
			MaxTokens:   cfg.APIs.GenAI.MaxTokens,
			Temperature: cfg.APIs.GenAI.Temperature,
		}, log)
	} else {
		zapLog.Warn("no genai base url configured, running with deterministic ranking only")
	}

	// --- Stores ---
	users := store.NewUserStore(pg.DB, log)
	feedbackStore := store.NewFeedbackStore(pg.DB, log)
	history := store.NewHistoryStore(esClient.Client, cfg.Database.Elasticsearch.HistoryIndex, log)
	cache := store.NewCache(
		redisClient.Client,
		time.Duration(cfg.Recommendation.PreferenceCacheTTL)*time.Second,
		time.Duration(cfg.Recommendation.CandidateCacheTTL)*time.Second,
		log,
	)
	preferences := store.NewCachedPreferences(users, cache, log)

	// --- Pipeline ---
	reconciler := reconcileranking.NewHandler(reconcileranking.DefaultConfig(), scorerelevance.NewHandler(), log)
	actions := suggestactions.NewHandler(generatorOrNil(generator), log)
	estimator := estimatepreferences.NewHandler(generatorOrNil(generator), log)

	recommender := recommend.NewHandler(
		&recommend.Config{
			DefaultRadiusM:    cfg.Recommendation.DefaultRadiusM,
			DefaultLimit:      cfg.Recommendation.DefaultLimit,
			TopKActions:       cfg.Recommendation.TopKActions,
			ActionConcurrency: cfg.Recommendation.ActionConcurrency,
		},
		searcher,
		rankGeneratorOrNil(generator),
		preferences,
		history,
		reconciler,
		actions,
		log,
	)
	recommender.SetPlaceCache(cache)

	feedback := ingestfeedback.NewHandler(feedbackStore, preferences, cache, cache, estimator, log)

	// --- Retention janitor ---
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	janitor := store.NewRetentionJanitor(
		feedbackStore,
		history,
		time.Duration(cfg.Retention.FeedbackMaxAgeDays)*24*time.Hour,
		time.Duration(cfg.Retention.SweepInterval)*time.Minute,
		log,
	)
	go janitor.Run(janitorCtx)

	// --- HTTP server ---
	pingers := map[string]server.Pinger{
		"postgres": pg.Ping,
		"redis":    redisClient.Ping,
		"elasticsearch": func(context.Context) error {
			return esClient.Ping()
		},
	}
	srv := server.New(cfg.Server.Address, recommender, feedback, history, pingers, log)
	srv.SetTelemetry(obs)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zapLog.Error("http server stopped", zap.Error(err))
		}
	}

	stopJanitor()

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("recommender stopped")
}

// generatorOrNil keeps the pipeline's nil checks meaningful: a typed nil
// pointer inside an interface would defeat them.
func generatorOrNil(c *genai.Client) suggestactions.Generator {
	if c == nil {
		return nil
	}
	return c
}

func rankGeneratorOrNil(c *genai.Client) recommend.Generator {
	if c == nil {
		return nil
	}
	return c
}
