package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scz-inmuebles/config"
	"scz-inmuebles/extractor"
	"scz-inmuebles/ingest"
	"scz-inmuebles/llm"
	"scz-inmuebles/models"
	"scz-inmuebles/services"
	"scz-inmuebles/storage"
	"scz-inmuebles/utils"
)

func createRunCmd() *cobra.Command {
	var (
		provider        string
		resetCheckpoint bool
		skipDedup       bool
	)
	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Ingest exports, extract fields, deduplicate and export",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPipeline(ctx, args, provider, resetCheckpoint, skipDedup)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "provider code (default: file name prefix)")
	cmd.Flags().BoolVar(&resetCheckpoint, "reset-checkpoint", false, "ignore the saved checkpoint and start over")
	cmd.Flags().BoolVar(&skipDedup, "skip-dedup", false, "skip duplicate resolution")
	return cmd
}

func createExtractCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the hybrid extractor on one listing text and print JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" && description == "" {
				return errors.New("extract: --title or --description is required")
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cache, closeCache, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer closeCache()

			fields := extractor.NewFieldExtractor(logger, nil)
			hybrid := services.NewHybridExtractor(fields, buildChain(), cache, logger)
			result := hybrid.ExtractFromDescription(ctx, description, title)
			if err := cache.Flush(ctx); err != nil {
				logger.Warn("Cache flush failed: %v", err)
			}

			out := struct {
				Fields     models.ExtractedFields `json:"campos"`
				References extractor.References   `json:"referencias"`
			}{result, fields.Zones().References(description + " " + title)}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "listing title")
	cmd.Flags().StringVar(&description, "description", "", "listing description")
	return cmd
}

func createDedupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedup",
		Short: "Resolve duplicates over the stored properties and export canonical records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			report := &models.RunReport{StartedAt: time.Now()}
			props, err := resolveDuplicates(ctx, store)
			if err != nil {
				return err
			}
			report.FinishedAt = time.Now()
			printReport(cmd.OutOrStdout(), report, props)
			return nil
		},
	}
}

func runPipeline(ctx context.Context, files []string, provider string, resetCheckpoint, skipDedup bool) error {
	report := &models.RunReport{StartedAt: time.Now()}
	logger.Info("=== Inmuebles pipeline starting ===")
	logger.Info("Config: store %s | batch %d | concurrency %d | llm %v | rate %dms",
		cfg.StoreDriver, cfg.BatchSize, cfg.MaxConcurrency, cfg.LLMEnabled, cfg.LLMRateLimitMs)

	raw, err := ingest.NewReader(nil, logger).ReadFiles(files, provider)
	if err != nil {
		return err
	}
	rows := services.NewCleaner(logger).Clean(raw)
	report.RowsRead = len(raw)
	report.RowsRejected = len(raw) - len(rows)
	if len(rows) == 0 {
		return errors.New("no usable rows in the input files")
	}

	checkpoint := storage.NewCheckpointFile(cfg.CheckpointPath)
	if resetCheckpoint {
		if err := checkpoint.Reset(); err != nil {
			return err
		}
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	cache, closeCache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	hybrid := services.NewHybridExtractor(extractor.NewFieldExtractor(logger, nil), buildChain(), cache, logger)
	pipeline := services.NewPipeline(hybrid, store, cache, checkpoint, services.PipelineConfig{
		BatchSize:      cfg.BatchSize,
		MaxConcurrency: cfg.MaxConcurrency,
		WriteRetry:     &utils.RetryConfig{MaxAttempts: cfg.MaxRetries + 1, BaseDelay: time.Second, Logger: logger},
	}, logger)

	res, runErr := pipeline.Run(ctx, rows)
	report.Extraction = hybrid.Stats()
	if res != nil {
		report.BatchesTotal = res.BatchesTotal
		report.BatchesSkipped = res.BatchesSkipped
		report.WriteErrors = res.WriteErrors
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Run interrupted; rerun the same command to resume from the checkpoint")
		}
		return runErr
	}

	var props []*models.Property
	if skipDedup {
		props = res.Properties
	} else if props, err = resolveDuplicates(ctx, store); err != nil {
		return err
	}

	report.FinishedAt = time.Now()
	printReport(os.Stdout, report, props)
	return nil
}

// resolveDuplicates groups every stored property, persists the group outcome
// and exports the canonical records.
func resolveDuplicates(ctx context.Context, store storage.PropertyStore) ([]*models.Property, error) {
	all, err := store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	dcfg := services.DefaultDuplicateConfig()
	dcfg.Thresholds.Score = cfg.DedupScoreThreshold
	dcfg.BOBPerUSD = cfg.BOBPerUSD
	dedup := services.NewDeduplicator(services.NewDuplicateScorer(dcfg), cfg.DedupScope, logger)

	res, err := dedup.Resolve(ctx, all)
	if err != nil {
		return nil, err
	}
	if err := store.Write(ctx, res.Properties); err != nil {
		return nil, fmt.Errorf("persist duplicate groups: %w", err)
	}

	var exporter storage.PropertyExporter = storage.NewCSVWriter(cfg.CSVOutputPath)
	if err := exporter.Export(res.Canonical); err != nil {
		logger.Error("CSV export failed: %v", err)
	} else {
		logger.Info("Canonical properties saved to %s", cfg.CSVOutputPath)
	}
	return res.Properties, nil
}

func printReport(w io.Writer, report *models.RunReport, props []*models.Property) {
	svc := services.NewReportService(cfg.BOBPerUSD, logger)
	svc.Print(w, svc.Summarize(report, props))
}

func openStore(ctx context.Context) (storage.PropertyStore, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		sw, err := storage.NewSQLiteWriter(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sw, nil
	case "postgres", "":
		pw, err := storage.NewPostgresWriter(ctx, cfg.DSN(),
			&utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, Logger: logger})
		if err != nil {
			logger.Error("Make sure Docker is running: docker compose up -d")
			return nil, err
		}
		return pw, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want postgres or sqlite)", cfg.StoreDriver)
	}
}

// openCache builds the extraction cache over the configured backend. The
// returned func releases the backend.
func openCache(ctx context.Context) (*services.ExtractionCache, func(), error) {
	var (
		store   storage.CacheStore
		release = func() {}
	)
	switch cfg.CacheBackend {
	case "redis":
		rc, err := storage.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisCacheKey)
		if err != nil {
			return nil, nil, err
		}
		store = rc
		release = func() { _ = rc.Close() }
	case "none":
	default:
		store = storage.NewJSONFileCache(cfg.CachePath)
	}

	cache := services.NewExtractionCache(store, cfg.CacheFlushEvery, logger)
	if err := cache.Load(ctx); err != nil {
		logger.Warn("Starting with an empty cache: %v", err)
	}
	return cache, release, nil
}

// buildChain returns the configured LLM providers, or nil when none is usable.
func buildChain() services.Completer {
	if !cfg.LLMEnabled {
		logger.Info("LLM disabled, incomplete records will keep their regex fields")
		return nil
	}
	var providers []llm.Provider
	for _, ep := range []config.LLMEndpoint{cfg.LLMPrimary, cfg.LLMFallback} {
		if !ep.Enabled() {
			continue
		}
		providers = append(providers, llm.NewOpenAIProvider(llm.OpenAIConfig{
			Name:    ep.Name,
			BaseURL: ep.BaseURL,
			APIKey:  ep.APIKey,
			Model:   ep.Model,
			Timeout: cfg.LLMTimeout,
		}))
	}
	if len(providers) == 0 {
		logger.Warn("No LLM endpoint has an API key, running regex only")
		return nil
	}
	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: time.Second, Logger: logger}
	return llm.NewChain(providers, cfg.LLMRateInterval(), retry, logger)
}
