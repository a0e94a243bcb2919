package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finparse/statement-pipeline/internal/config"
	"github.com/finparse/statement-pipeline/internal/jobs"
	"github.com/finparse/statement-pipeline/internal/jobs/inmemory"
	"github.com/finparse/statement-pipeline/internal/logger"
	"github.com/finparse/statement-pipeline/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, cleanup, err := pipeline.BuildDeps(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build pipeline dependencies")
	}
	defer cleanup()

	// In-memory queue suits a single instance; a multi-instance deployment
	// would consume from Cloud Tasks or Pub/Sub instead.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 5, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
		stmtJob, ok := job.(*jobs.ProcessStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", stmtJob.JobID).
			Str("source_key", stmtJob.SourceKey).
			Msg("Processing statement job")

		st, err := pipeline.ProcessStatement(ctx, deps, stmtJob.SourceKey, stmtJob.Filename)
		stmtJob.DocumentID = st.DocumentID
		stmtJob.RunID = st.RunID
		stmtJob.Stage = string(st.Stage)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", stmtJob.JobID).
				Str("document_id", stmtJob.DocumentID).
				Msg("Pipeline execution failed")
			return err
		}

		log.Info().
			Str("job_id", stmtJob.JobID).
			Str("document_id", stmtJob.DocumentID).
			Str("run_id", stmtJob.RunID).
			Msg("Pipeline execution completed")
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
