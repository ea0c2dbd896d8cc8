package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drawcast/internal/backtest"
	"drawcast/internal/cfg"
	"drawcast/internal/draw"
	"drawcast/internal/features"
	"drawcast/internal/ml"
	"drawcast/internal/sequence"
	"drawcast/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		csvPath    = flag.String("csv", "", "Replay a date,tier,code CSV instead of the draw store")
		outputPath = flag.String("output", "backtest", "Output directory for reports")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		startDate  = flag.String("start", "", "First day to load (dd/mm/yyyy or yyyy-mm-dd)")
		endDate    = flag.String("end", "", "Last day to load (dd/mm/yyyy or yyyy-mm-dd)")
		warmup     = flag.Int("warmup", 60, "Pairs used for the initial full training")
		seed       = flag.Int64("seed", 0, "Model seed (overrides config; 0 keeps config)")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *seed != 0 {
		config.Seed = *seed
	}

	var from, to time.Time
	if *startDate != "" {
		if from, err = draw.ParseDate(*startDate); err != nil {
			log.Fatal().Err(err).Msg("Invalid start date")
		}
	}
	if *endDate != "" {
		if to, err = draw.ParseDate(*endDate); err != nil {
			log.Fatal().Err(err).Msg("Invalid end date")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := backtest.NewDataLoader()
	if *csvPath != "" {
		err = loader.LoadFromCSV(ctx, *csvPath)
	} else {
		err = loadFromStore(ctx, loader, config.DataPath, from, to)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load data")
	}

	engine := backtest.NewEngine(
		sequence.NewBuilder(features.NewExtractor(), config.WindowSize, config.TrailingDays),
		ml.MLP{},
		backtest.Config{
			Warmup:       *warmup,
			Epochs:       config.Epochs,
			TopK:         config.TopK,
			Hidden:       config.HiddenSize,
			LearningRate: config.LearningRate,
			Seed:         config.Seed,
		},
	)

	if err := engine.Run(ctx, loader.Days()); err != nil {
		log.Fatal().Err(err).Msg("Backtest failed")
	}

	reporter := backtest.NewReporter(engine.GetResults(), *outputPath)
	if err := reporter.GenerateReport(); err != nil {
		log.Error().Err(err).Msg("Failed to generate reports")
	}

	fmt.Println()
	reporter.PrintSummary(os.Stdout)

	log.Info().
		Str("output", *outputPath).
		Msg("Backtest completed successfully")
}

func loadFromStore(ctx context.Context, loader *backtest.DataLoader, dataPath string, from, to time.Time) error {
	store, err := storage.New(dataPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()
	return loader.LoadFromStore(ctx, store, from, to)
}
