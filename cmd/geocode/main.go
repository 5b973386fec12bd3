package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"casualty-dispatch/internal/config"
	"casualty-dispatch/internal/geocoding"
	"casualty-dispatch/internal/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	inPath := flag.String("in", getEnv("DISPATCH_ADDRESS_LIST", "addresses.txt"), "line-delimited address list")
	outPath := flag.String("out", "", "output CSV (default ~/.casualty-dispatch/geocoded_addresses.csv)")
	configPath := flag.String("config", getEnv("DISPATCH_CONFIG", ""), "config file (default ~/.casualty-dispatch/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, "geocode")
	if err != nil {
		return err
	}
	defer logger.Sync()

	if *outPath == "" {
		p, err := config.GetGeocodedTablePath()
		if err != nil {
			return err
		}
		*outPath = p
	}

	in, err := os.Open(*inPath)
	if err != nil {
		return fmt.Errorf("failed to open address list: %w", err)
	}
	addresses, err := geocoding.ReadAddressList(in)
	in.Close()
	if err != nil {
		return err
	}
	logger.Info("address list loaded", zap.String("path", *inPath), zap.Int("addresses", len(addresses)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geocoder := geocoding.NewNominatimGeocoder(geocoding.Config{
		BaseURL:       cfg.Geocoding.BaseURL,
		UserAgent:     cfg.Geocoding.UserAgent,
		RatePerSecond: cfg.Geocoding.RatePerSecond,
	}, logger)

	entries, buildErr := geocoding.BuildAddressTable(ctx, geocoder, addresses, cfg.Geocoding.MaxRetries, logger)

	// An interrupted run still writes what was resolved so far
	out, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := geocoding.WriteTable(out, entries); err != nil {
		return err
	}

	resolved := 0
	for _, e := range entries {
		if e.Found {
			resolved++
		}
	}
	logger.Info("address table written",
		zap.String("path", *outPath),
		zap.Int("rows", len(entries)),
		zap.Int("resolved", resolved),
	)

	if buildErr != nil {
		return fmt.Errorf("geocoding stopped after %d of %d addresses: %w", len(entries), len(addresses), buildErr)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
