package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/finparse/statement-pipeline/internal/config"
	"github.com/finparse/statement-pipeline/internal/logger"
	"github.com/finparse/statement-pipeline/internal/ocr"
	"github.com/finparse/statement-pipeline/internal/raster"
	"github.com/finparse/statement-pipeline/internal/runstore"
	"github.com/finparse/statement-pipeline/internal/storage"
)

// BuildDeps assembles pipeline dependencies from configuration: GCS or local
// storage, BigQuery or in-memory run records, and the OCR and transcription
// clients. The returned cleanup closes any backing clients and is safe to
// call even on a partial build.
func BuildDeps(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Deps, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Error().Err(err).Msg("closing pipeline dependency")
			}
		}
	}

	if err := cfg.RequirePipeline(); err != nil {
		return nil, cleanup, fmt.Errorf("BuildDeps: %w", err)
	}

	var store storage.Store
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.Storage.Bucket)
		if err != nil {
			return nil, cleanup, fmt.Errorf("BuildDeps: %w", err)
		}
		closers = append(closers, gcs.Close)
		store = gcs
	} else {
		local, err := storage.NewLocal(cfg.Storage.BaseDir)
		if err != nil {
			return nil, cleanup, fmt.Errorf("BuildDeps: %w", err)
		}
		store = local
	}

	var runs runstore.Store
	if cfg.RunDB.ProjectID != "" {
		bq, err := runstore.NewBigQuery(ctx, cfg.RunDB.ProjectID, cfg.RunDB.Dataset)
		if err != nil {
			return nil, cleanup, fmt.Errorf("BuildDeps: %w", err)
		}
		closers = append(closers, bq.Close)
		runs = bq
	} else {
		runs = runstore.NewMemory()
	}

	transcriber, err := NewGeminiTranscriber(ctx, cfg.Gemini.APIKey, logger.ForStage(log, "transcribe"), TranscriberOptions{
		Model:        cfg.Gemini.Model,
		MaxAttempts:  cfg.Gemini.MaxAttempts,
		RequestDelay: cfg.Gemini.RequestDelay,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("BuildDeps: %w", err)
	}

	tables := ocr.New(cfg.OCR.APIKey, logger.ForStage(log, "ocr"), ocr.Options{
		Endpoint:     cfg.OCR.Endpoint,
		MaxAttempts:  cfg.OCR.MaxAttempts,
		RequestDelay: cfg.OCR.RequestDelay,
	})

	deps := &Deps{
		Store: store,
		Runs:  runs,
		Rasterizer: &PDFRasterizer{Options: raster.Options{
			MinDPI:    cfg.Raster.MinDPI,
			MaxPixels: cfg.Raster.MaxPixels,
		}},
		Tables:         tables,
		Transcriber:    transcriber,
		Log:            log,
		ExtractorModel: cfg.Gemini.Model,
	}
	return deps, cleanup, nil
}
