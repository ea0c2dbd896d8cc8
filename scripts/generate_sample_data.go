package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"drawcast/internal/draw"
	"drawcast/internal/storage"
)

func main() {
	var (
		dataPath  = flag.String("data", "data", "Data directory path")
		days      = flag.Int("days", 365, "Number of days of results to generate")
		seed      = flag.Int64("seed", 0, "Random seed (0 uses the clock)")
		malformed = flag.Float64("malformed", 0.01, "Share of top-tier codes written malformed")
		gaps      = flag.Float64("gaps", 0.01, "Share of days left without results")
	)
	flag.Parse()

	fmt.Printf("Generating sample draws...\n")
	fmt.Printf("  Days: %d\n", *days)
	fmt.Printf("  Data Path: %s\n", *dataPath)

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	end := draw.Truncate(time.Now().UTC())
	start := end.AddDate(0, 0, -*days)

	inserted, skipped, err := generateDraws(context.Background(), store, rng, start, end, *malformed, *gaps)
	if err != nil {
		log.Fatalf("Failed to generate data: %v", err)
	}

	fmt.Printf("✓ Generated %d events (%d days skipped), seed %d\n", inserted, skipped, *seed)
}

func generateDraws(ctx context.Context, store *storage.Store, rng *rand.Rand, start, end time.Time, malformed, gaps float64) (int, int, error) {
	inserted, skipped := 0, 0

	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		if rng.Float64() < gaps {
			skipped++
			continue
		}

		for _, tier := range draw.Tiers() {
			code := randomCode(rng, tier.Width())
			if tier == draw.TopTier && rng.Float64() < malformed {
				code = code[:len(code)-1]
			}

			ok, err := store.InsertDraw(ctx, draw.Event{Date: day, Tier: tier, Code: code})
			if err != nil {
				return inserted, skipped, fmt.Errorf("failed to store draw: %w", err)
			}
			if ok {
				inserted++
			}
		}
	}

	return inserted, skipped, nil
}

func randomCode(rng *rand.Rand, width int) string {
	var b strings.Builder
	for i := 0; i < width; i++ {
		b.WriteByte(byte('0' + rng.Intn(10)))
	}
	return b.String()
}
