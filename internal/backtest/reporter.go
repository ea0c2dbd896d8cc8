package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"

	"drawcast/internal/draw"
)

// Reporter generates backtest reports
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes the summary, outcome log and JSON report.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}
	if err := r.generateOutcomeLog(); err != nil {
		return err
	}
	return r.generateJSONReport()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "backtest_summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	res := r.results
	fmt.Fprintf(file, "BACKTEST RESULTS SUMMARY\n")
	fmt.Fprintf(file, "========================\n\n")
	fmt.Fprintf(file, "Period: %s to %s\n", res.StartTime.Format(draw.KeyLayout), res.EndTime.Format(draw.KeyLayout))
	fmt.Fprintf(file, "Seed: %d\n", res.Seed)
	fmt.Fprintf(file, "Warmup Pairs: %d (final loss %.6f)\n\n", res.WarmupPairs, res.WarmupLoss)

	fmt.Fprintf(file, "HIT STATISTICS\n")
	fmt.Fprintf(file, "--------------\n")
	fmt.Fprintf(file, "Days Evaluated: %d\n", res.Evaluated)
	fmt.Fprintf(file, "Mean Hits: %.3f of 5 (random baseline %.3f)\n", res.MeanHits, res.Baseline)
	fmt.Fprintf(file, "Hit Rate: %.2f%%\n", res.HitRate()*100)
	fmt.Fprintf(file, "Mean Loss: %.6f\n\n", res.MeanLoss)

	fmt.Fprintf(file, "HITS BY POSITION\n")
	fmt.Fprintf(file, "----------------\n")
	for i, hits := range res.PositionHits {
		fmt.Fprintf(file, "Position %d: %d (%.2f%%)\n", i+1, hits, ratio(hits, res.Evaluated)*100)
	}

	fmt.Fprintf(file, "\nDAYS BY HIT COUNT\n")
	fmt.Fprintf(file, "-----------------\n")
	for hits, days := range res.Histogram {
		fmt.Fprintf(file, "%d hits: %d\n", hits, days)
	}

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) generateOutcomeLog() error {
	csvPath := filepath.Join(r.outputPath, "outcome_log.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create outcome log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Date", "Actual", "Hits", "Loss", "Pos 1", "Pos 2", "Pos 3", "Pos 4", "Pos 5"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range r.results.Outcomes {
		record := []string{
			o.Date.Format(draw.KeyLayout),
			o.Actual,
			fmt.Sprintf("%d", o.Hits),
			fmt.Sprintf("%.6f", o.Loss),
		}
		for _, digits := range o.Positions {
			record = append(record, strings.Join(digits, ""))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	log.Info().Str("file", csvPath).Msg("Outcome log generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "backtest_results.json")

	report := map[string]interface{}{
		"results":      r.results,
		"hit_rate":     r.results.HitRate(),
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary prints a summary table to w
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.results
	table := tablewriter.NewWriter(w)
	table.Header("Period", "Days", "Mean hits", "Baseline", "Hit rate", "Mean loss")
	table.Append(
		res.StartTime.Format(draw.KeyLayout)+" to "+res.EndTime.Format(draw.KeyLayout),
		fmt.Sprintf("%d", res.Evaluated),
		fmt.Sprintf("%.3f", res.MeanHits),
		fmt.Sprintf("%.3f", res.Baseline),
		fmt.Sprintf("%.2f%%", res.HitRate()*100),
		fmt.Sprintf("%.6f", res.MeanLoss),
	)
	table.Render()
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
