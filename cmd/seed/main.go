package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/blackmichael/space-feeds/internal/config"
	"github.com/blackmichael/space-feeds/internal/domain"
	"github.com/blackmichael/space-feeds/internal/nasa"
	"github.com/blackmichael/space-feeds/internal/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		date     string
		tz       string
		explore  bool
		apiKey   string
		logLevel string
	)

	flag.StringVar(&date, "date", "", "Day to generate the seed for, YYYY-MM-DD (default today)")
	flag.StringVar(&tz, "tz", envOrDefault("SEED_TIMEZONE", "UTC"), "IANA timezone that decides the calendar day")
	flag.BoolVar(&explore, "explore", false, "Also fetch the lanes live and print the explore page")
	flag.StringVar(&apiKey, "api-key", envOrDefault("NASA_API_KEY", "DEMO_KEY"), "NASA API key")
	flag.StringVar(&logLevel, "log-level", envOrDefault("LOG_LEVEL", "warn"), "Log level written to stderr")
	flag.Parse()

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid --tz: %w", err)
	}

	day := time.Now()
	if date != "" {
		day, err = time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
	}

	lanes := domain.DefaultLanes()
	if !explore {
		return printJSON(os.Stdout, domain.GenerateSeed(day, loc, lanes))
	}

	logger := config.NewLogger(os.Stderr, logLevel)
	ctx := context.Background()

	store, err := sqlite.Open(ctx, sqlite.MemoryPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	client := nasa.NewClient(nasa.Options{APIKey: apiKey}, logger)
	feedService, err := domain.NewFeedService(
		lanes,
		domain.Sources{Library: client, PictureOfDay: client, NearEarth: client},
		store,
		domain.Options{Location: loc, Now: func() time.Time { return day }},
		logger,
	)
	if err != nil {
		return fmt.Errorf("create feed service: %w", err)
	}

	return printJSON(os.Stdout, struct {
		Seed    domain.DailySeed    `json:"seed"`
		Explore *domain.ExplorePage `json:"explore"`
	}{
		Seed:    feedService.Seed(),
		Explore: feedService.Explore(ctx, ""),
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
