package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"drawcast/internal/api"
	"drawcast/internal/cfg"
	"drawcast/internal/features"
	"drawcast/internal/feed"
	"drawcast/internal/metrics"
	"drawcast/internal/ml"
	"drawcast/internal/sequence"
	"drawcast/internal/source"
	"drawcast/internal/storage"
	"drawcast/internal/training"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// syncLookback is how many past days each scheduled cycle re-fetches.
const syncLookback = 2

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setupLogging(c.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.DataPath).Msg("storage initialization failed")
	}
	defer store.Close()

	m := metrics.New()
	mw := metrics.NewWrapper(m)
	hub := feed.NewHub()
	defer hub.Close()

	ctrl, err := training.New(training.Deps{
		Draws:       store,
		Predictions: store,
		States:      store,
		Builder:     sequence.NewBuilder(features.NewExtractor(), c.WindowSize, c.TrailingDays),
		Strategy:    ml.MLP{},
		Metrics:     m,
		Notifier:    hub,
	}, training.Config{
		ModelName:    c.ModelName,
		TopK:         c.TopK,
		Epochs:       c.Epochs,
		Hidden:       c.HiddenSize,
		LearningRate: c.LearningRate,
		Seed:         c.Seed,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("controller initialization failed")
	}

	srv := api.NewServer(ctrl, store, c.ListenPort, api.Options{
		Metrics: promhttp.Handler(),
		Feed:    hub,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	var wg sync.WaitGroup
	if c.Cycle > 0 {
		ing := source.NewIngester(source.NewClient(c.SourceURL, c.RESTTimeout, c.SourceRate, mw), store, mw)
		startScheduler(ctx, &wg, c.Cycle, ing, ctrl)
	}

	waitForShutdown(ctx, cancel, &wg)

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server shutdown failed")
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// startScheduler runs one daily cycle immediately and then every interval.
func startScheduler(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, ing *source.Ingester, ctrl *training.Controller) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			runCycle(ctx, ing, ctrl)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// runCycle ingests the latest results, scores and learns from matured
// predictions, then predicts the next day. A missing model is trained from
// scratch first.
func runCycle(ctx context.Context, ing *source.Ingester, ctrl *training.Controller) {
	today := time.Now().UTC()
	if _, err := ing.Sync(ctx, today.AddDate(0, 0, -syncLookback), today); err != nil {
		log.Error().Err(err).Msg("draw sync failed")
	}

	_, err := ctrl.RunIncrementalLearn(ctx)
	if errors.Is(err, ml.ErrModelNotInitialized) {
		log.Info().Msg("No model state yet, running full retrain")
		_, err = ctrl.RunFullRetrain(ctx)
	}
	if err != nil {
		log.Error().Err(err).Msg("training step failed")
		return
	}

	if _, err := ctrl.GenerateNextDayPrediction(ctx); err != nil {
		log.Error().Err(err).Msg("prediction failed")
	}
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all goroutines stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}
