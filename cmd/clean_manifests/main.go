package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"manifestcleaner/internal/config"
	"manifestcleaner/pipeline"
	"manifestcleaner/reference"
	"manifestcleaner/standardize"
)

func main() {
	inputDir := flag.String("input", "data/raw", "Directory with raw manifest files (*.csv, *.xlsx)")
	outputDir := flag.String("output", "data/cleaned", "Directory for cleaned manifests")
	configPath := flag.String("config", "", "Optional JSON config file layered over environment variables")
	referencePath := flag.String("reference", "", "Reference database path (overrides config)")
	testFile := flag.String("test", "", "Process a single manifest file instead of the input directory")
	seedSCAC := flag.String("seed-scac", "", "Import SCAC registry from a CSV file and exit")
	seedCities := flag.String("seed-cities", "", "Import city reference from a JSON file and exit")
	seedHS := flag.String("seed-hs", "", "Import HS code reference from a JSON file and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *referencePath != "" {
		cfg.ReferenceDBPath = *referencePath
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	books, err := reference.Open(cfg.ReferenceDBPath, logger)
	if err != nil {
		log.Fatalf("failed to open reference database: %v", err)
	}
	defer books.Close()

	if *seedSCAC != "" || *seedCities != "" || *seedHS != "" {
		seedReferences(books, *seedSCAC, *seedCities, *seedHS)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := standardize.NewClient(standardize.ClientConfig{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		Timeout:  cfg.RequestTimeout,
		Retry: standardize.RetryConfig{
			MaxAttempts:  cfg.RetryAttempts,
			InitialDelay: cfg.RetryBaseDelay,
			MaxDelay:     standardize.MaxRetryDelay,
			Multiplier:   2.0,
		},
		RateLimit: cfg.RateLimitRPS,
	}, logger)

	runner := pipeline.NewRunner(client, books, pipeline.Config{
		TempDir:         cfg.TempDir,
		IDColumn:        cfg.IDColumn,
		PartyColumns:    cfg.PartyColumns,
		AddressColumns:  cfg.AddressColumns,
		PartyPromptPath: cfg.PartyPromptPath,
		CityPromptPath:  cfg.CityPromptPath,
		Engine: standardize.EngineConfig{
			ChunkSize:      cfg.ChunkSize,
			MaxConcurrency: cfg.MaxConcurrency,
		},
	}, logger)

	if *testFile != "" {
		if err := os.MkdirAll(*outputDir, 0o755); err != nil {
			log.Fatalf("failed to create output directory: %v", err)
		}
		result := runner.ProcessFile(ctx, *testFile, *outputDir)
		if result.Err != nil {
			log.Fatalf("failed to process %s: %v", *testFile, result.Err)
		}
		fmt.Println("\n--- Manifest Cleaning (single file) ---")
		fmt.Printf("Input: %s\n", result.Path)
		fmt.Printf("Output: %s\n", result.Output)
		fmt.Printf("Rows: %d\n", result.Rows)
		fmt.Printf("Duration: %s\n", result.Duration.Round(time.Millisecond))
		return
	}

	summary, err := runner.Run(ctx, *inputDir, *outputDir)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	fmt.Println("\n--- Manifest Cleaning ---")
	fmt.Printf("Run ID: %s\n", summary.RunID)
	fmt.Printf("Processed Files: %d\n", summary.Processed)
	fmt.Printf("Failed Files: %d\n", summary.Failed)
	for _, file := range summary.Files {
		if file.Err != nil {
			fmt.Printf(" - %s: FAILED (%v)\n", filepath.Base(file.Path), file.Err)
			continue
		}
		fmt.Printf(" - %s: %d rows -> %s (%s)\n",
			filepath.Base(file.Path), file.Rows, file.Output, file.Duration.Round(time.Millisecond))
	}
	fmt.Printf("Duration: %s\n", summary.Duration.Round(time.Millisecond))
}

func seedReferences(books *reference.Books, scacPath, citiesPath, hsPath string) {
	if scacPath != "" {
		count, err := books.ImportSCACFromCSV(scacPath)
		if err != nil {
			log.Fatalf("failed to import SCAC registry: %v", err)
		}
		fmt.Printf("Imported SCAC records: %d\n", count)
	}
	if citiesPath != "" {
		count, err := books.ImportCitiesFromJSON(citiesPath)
		if err != nil {
			log.Fatalf("failed to import city reference: %v", err)
		}
		fmt.Printf("Imported city records: %d\n", count)
	}
	if hsPath != "" {
		count, err := books.ImportHSCodesFromJSON(hsPath)
		if err != nil {
			log.Fatalf("failed to import HS code reference: %v", err)
		}
		fmt.Printf("Imported HS code records: %d\n", count)
	}
}
