package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/finparse/statement-pipeline/internal/config"
	"github.com/finparse/statement-pipeline/internal/export"
	"github.com/finparse/statement-pipeline/internal/logger"
	"github.com/finparse/statement-pipeline/internal/pipeline"
	"github.com/finparse/statement-pipeline/internal/statement"
	"github.com/finparse/statement-pipeline/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "process":
		runProcess()
	case "analyze":
		runAnalyze()
	case "validate":
		runValidate()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Pipeline CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  process   Run the full pipeline over a local statement PDF")
	fmt.Println("  analyze   Classify and summarize an extracted transaction CSV")
	fmt.Println("  validate  Check that a CSV is structurally well-formed")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func newLogger() zerolog.Logger {
	return logger.New(os.Getenv("LOG_LEVEL"))
}

func runProcess() {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to local statement PDF")
	fs.Parse(os.Args[2:])

	log := newLogger()

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	deps, cleanup, err := pipeline.BuildDeps(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline dependencies")
	}
	defer cleanup()

	pdf, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement PDF")
	}

	filename := filepath.Base(*filePath)
	sourceKey := fmt.Sprintf("%s/%s", storage.PrefixUploads, filename)
	if err := deps.Store.Save(ctx, sourceKey, pdf); err != nil {
		log.Fatal().Err(err).Msg("Failed to store statement PDF")
	}

	log.Info().Str("source_key", sourceKey).Msg("Starting processing")

	st, err := pipeline.ProcessStatement(ctx, deps, sourceKey, filename)
	if err != nil {
		log.Fatal().Err(err).Msg("Processing failed")
	}

	report, err := export.RenderReport(deps.Store.URI(sourceKey), st.Analysis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render summary")
	}

	fmt.Println(string(report))
	fmt.Printf("\nTransactions CSV: %s\n", deps.Store.URI(st.CSVKey))
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to transaction CSV")
	fs.Parse(os.Args[2:])

	log := newLogger()

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	analysis, err := statement.AnalyzeFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Analysis failed")
	}

	report, err := export.RenderReport(*filePath, &analysis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to render summary")
	}

	fmt.Println(string(report))
}

func runValidate() {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	filePath := fs.String("file", "", "Path to transaction CSV")
	fs.Parse(os.Args[2:])

	log := newLogger()

	if *filePath == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	doc, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read CSV")
	}

	if err := statement.Validate(doc); err != nil {
		var verr *statement.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("INVALID (%s): %s\n", verr.Check, verr.Reason)
		} else {
			fmt.Printf("INVALID: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("OK")
}
