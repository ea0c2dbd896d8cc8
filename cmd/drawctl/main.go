package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"drawcast/internal/cfg"
	"drawcast/internal/draw"
	"drawcast/internal/features"
	"drawcast/internal/metrics"
	"drawcast/internal/ml"
	"drawcast/internal/prediction"
	"drawcast/internal/sequence"
	"drawcast/internal/source"
	"drawcast/internal/storage"
	"drawcast/internal/training"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: drawctl <command> [flags]

commands:
  import   -file results.csv        load date,tier,code rows
  fetch    -from DATE [-to DATE]    pull results from the REST source
  retrain                           rebuild the model from all history
  learn                             score matured predictions and learn from them
  predict                           predict the day after the latest draw
  list                              show stored predictions
  days     [-from DATE] [-to DATE]  show stored top-tier results
  info                              show the stored model
`

type app struct {
	settings cfg.Settings
	store    *storage.Store
	metrics  *metrics.Metrics
	ctrl     *training.Controller
	out      io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(c)
	if err != nil {
		log.Fatal().Err(err).Msg("initialization failed")
	}
	defer a.store.Close()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		a.store.Close()
		os.Exit(1)
	}
}

func newApp(c cfg.Settings) (*app, error) {
	store, err := storage.New(c.DataPath)
	if err != nil {
		return nil, err
	}

	// one-shot commands have no scrape endpoint
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	ctrl, err := training.New(training.Deps{
		Draws:       store,
		Predictions: store,
		States:      store,
		Builder:     sequence.NewBuilder(features.NewExtractor(), c.WindowSize, c.TrailingDays),
		Strategy:    ml.MLP{},
		Metrics:     m,
	}, training.Config{
		ModelName:    c.ModelName,
		TopK:         c.TopK,
		Epochs:       c.Epochs,
		Hidden:       c.HiddenSize,
		LearningRate: c.LearningRate,
		Seed:         c.Seed,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{settings: c, store: store, metrics: m, ctrl: ctrl, out: os.Stdout}, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var (
		file = fs.String("file", "", "CSV file to import (- for stdin)")
		from = fs.String("from", "", "first date (dd/mm/yyyy or yyyy-mm-dd)")
		to   = fs.String("to", "", "last date (dd/mm/yyyy or yyyy-mm-dd)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "import":
		return a.importCSV(ctx, *file)
	case "fetch":
		return a.fetch(ctx, *from, *to)
	case "retrain":
		sum, err := a.ctrl.RunFullRetrain(ctx)
		if err != nil {
			return err
		}
		a.table([]string{"Run", "Model", "Pairs", "Epochs", "Final loss", "Seed", "Duration"}, [][]string{{
			sum.RunID, sum.Model, fmt.Sprint(sum.PairCount), fmt.Sprint(sum.Epochs),
			fmt.Sprintf("%.6f", sum.FinalLoss), fmt.Sprint(sum.Seed), sum.Duration.Round(time.Millisecond).String(),
		}})
		return nil
	case "learn":
		sum, err := a.ctrl.RunIncrementalLearn(ctx)
		if err != nil {
			return err
		}
		a.table([]string{"Run", "Model", "Trained", "Skipped", "Pending"}, [][]string{{
			sum.RunID, sum.Model, fmt.Sprint(sum.Trained), fmt.Sprint(sum.Skipped), fmt.Sprint(sum.Pending),
		}})
		return nil
	case "predict":
		rec, err := a.ctrl.GenerateNextDayPrediction(ctx)
		if err != nil {
			return err
		}
		a.predictions([]prediction.Record{rec})
		return nil
	case "list":
		recs, err := a.store.ListPredictions(ctx)
		if err != nil {
			return err
		}
		a.predictions(recs)
		return nil
	case "days":
		return a.days(ctx, *from, *to)
	case "info":
		info, err := a.ctrl.ModelInfo(ctx)
		if err != nil {
			return err
		}
		a.table([]string{"Model", "Window", "Features", "Seed", "Updates", "Pairs", "Trained", "Updated"}, [][]string{{
			info.Name, fmt.Sprint(info.Window), fmt.Sprint(info.FeatureDim), fmt.Sprint(info.Meta.Seed),
			fmt.Sprint(info.Meta.Updates), fmt.Sprint(info.Meta.Pairs),
			formatTime(info.Meta.TrainedAt), formatTime(info.Meta.UpdatedAt),
		}})
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) importCSV(ctx context.Context, path string) error {
	var r io.Reader
	switch path {
	case "":
		return fmt.Errorf("import requires -file")
	case "-":
		r = os.Stdin
	default:
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	sum, err := source.ImportCSV(ctx, r, a.store, metrics.NewWrapper(a.metrics))
	if err != nil {
		return err
	}
	a.syncTable(sum)
	return nil
}

func (a *app) fetch(ctx context.Context, fromArg, toArg string) error {
	if fromArg == "" {
		return fmt.Errorf("fetch requires -from")
	}
	from, err := draw.ParseDate(fromArg)
	if err != nil {
		return err
	}
	to := time.Now().UTC()
	if toArg != "" {
		if to, err = draw.ParseDate(toArg); err != nil {
			return err
		}
	}

	mw := metrics.NewWrapper(a.metrics)
	client := source.NewClient(a.settings.SourceURL, a.settings.RESTTimeout, a.settings.SourceRate, mw)
	sum, err := source.NewIngester(client, a.store, mw).Sync(ctx, from, to)
	a.syncTable(sum)
	return err
}

func (a *app) days(ctx context.Context, fromArg, toArg string) error {
	var from, to time.Time
	var err error
	if fromArg != "" {
		if from, err = draw.ParseDate(fromArg); err != nil {
			return err
		}
	}
	if toArg != "" {
		if to, err = draw.ParseDate(toArg); err != nil {
			return err
		}
	}

	days, err := a.store.ListDays(ctx, from, to)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(days))
	for _, d := range days {
		top, ok := d.TopCode()
		if !ok {
			top = "-"
		}
		rows = append(rows, []string{
			d.Date.Format(draw.DateLayout), top, fmt.Sprintf("%d/%d", len(d.Events), draw.TierCount),
		})
	}
	a.table([]string{"Date", string(draw.TopTier), "Tiers"}, rows)
	return nil
}

func (a *app) syncTable(sum source.SyncSummary) {
	a.table([]string{"Days", "Inserted", "Duplicates", "Missing"}, [][]string{{
		fmt.Sprint(sum.Days), fmt.Sprint(sum.Inserted), fmt.Sprint(sum.Duplicates), fmt.Sprint(sum.Missing),
	}})
}

func (a *app) predictions(recs []prediction.Record) {
	header := []string{"Target", "Model", "Scored"}
	for i := 0; i < sequence.Positions; i++ {
		header = append(header, fmt.Sprintf("Pos %d", i+1))
	}

	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		row := []string{rec.TargetDate.Format(draw.DateLayout), rec.Model, fmt.Sprint(rec.Scored)}
		for _, digits := range rec.Positions {
			row = append(row, strings.Join(digits, " "))
		}
		rows = append(rows, row)
	}
	a.table(header, rows)
}

func (a *app) table(header []string, rows [][]string) {
	t := tablewriter.NewWriter(a.out)
	t.Header(cells(header)...)
	for _, row := range rows {
		t.Append(cells(row)...)
	}
	t.Render()
}

func cells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
