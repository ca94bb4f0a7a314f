package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"scz-inmuebles/extractor"
	"scz-inmuebles/models"
	"scz-inmuebles/storage"
	"scz-inmuebles/utils"
)

// PipelineConfig controls batching and concurrency of a run.
type PipelineConfig struct {
	BatchSize      int
	MaxConcurrency int
	WriteRetry     *utils.RetryConfig
}

// PipelineResult summarizes one Run.
type PipelineResult struct {
	Properties       []*models.Property
	BatchesTotal     int
	BatchesSkipped   int
	WriteErrors      int
	AlreadyProcessed bool
}

// Pipeline extracts rows batch by batch, writes each batch to the store and
// records progress so an interrupted run resumes after its last committed
// batch.
type Pipeline struct {
	hybrid     *HybridExtractor
	store      storage.PropertyStore
	cache      *ExtractionCache
	checkpoint *storage.CheckpointFile
	cfg        PipelineConfig
	logger     *utils.Logger
}

// NewPipeline wires a pipeline. cache and checkpoint may be nil.
func NewPipeline(hybrid *HybridExtractor, store storage.PropertyStore, cache *ExtractionCache,
	checkpoint *storage.CheckpointFile, cfg PipelineConfig, logger *utils.Logger) *Pipeline {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if cfg.WriteRetry == nil {
		cfg.WriteRetry = &utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, Logger: logger}
	}
	return &Pipeline{
		hybrid:     hybrid,
		store:      store,
		cache:      cache,
		checkpoint: checkpoint,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run processes rows. Batches committed by an earlier run over the same input
// are skipped. When ctx is cancelled the batch in flight is discarded and Run
// returns the context error after flushing the cache.
func (p *Pipeline) Run(ctx context.Context, rows []*models.RawRow) (*PipelineResult, error) {
	total := (len(rows) + p.cfg.BatchSize - 1) / p.cfg.BatchSize
	res := &PipelineResult{BatchesTotal: total}
	source := fingerprint(rows)

	cp := storage.Fresh(source, total)
	if p.checkpoint != nil {
		saved, ok, err := p.checkpoint.Load()
		switch {
		case err != nil:
			p.logger.Warn("[pipeline] Ignoring unreadable checkpoint: %v", err)
		case ok && saved.Source == source && saved.TotalBatches == total && saved.Complete():
			cp = saved
			res.AlreadyProcessed = true
			p.logger.Warn("[pipeline] Input already processed (%d batches), nothing to do; use --reset-checkpoint to extract it again", total)
		case ok && saved.Source == source && saved.TotalBatches == total:
			cp = saved
			p.logger.Info("[pipeline] Resuming after batch %d/%d", cp.LastCompletedBatch+1, total)
		case ok:
			p.logger.Info("[pipeline] Checkpoint belongs to another input, starting over")
		}
	}
	defer p.flushCache()

	for b := 0; b < total; b++ {
		if cp.Done(b) {
			res.BatchesSkipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		start := b * p.cfg.BatchSize
		end := start + p.cfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		props := p.processBatch(ctx, rows[start:end])

		if err := ctx.Err(); err != nil {
			p.logger.Warn("[pipeline] Interrupted during batch %d/%d, not committed", b+1, total)
			return res, err
		}

		err := p.cfg.WriteRetry.Do(ctx, fmt.Sprintf("write batch %d", b+1), func() error {
			return p.store.Write(ctx, props)
		})
		if err != nil {
			res.WriteErrors++
			return res, fmt.Errorf("pipeline: batch %d/%d: %w", b+1, total, err)
		}
		res.Properties = append(res.Properties, props...)

		p.flushCache()
		cp.LastCompletedBatch = b
		if p.checkpoint != nil {
			if err := p.checkpoint.Save(cp); err != nil {
				p.logger.Warn("[pipeline] Could not save checkpoint: %v", err)
			}
		}
		p.logger.Info("[pipeline] Batch %d/%d committed (%d properties)", b+1, total, len(props))
	}

	return res, nil
}

// processBatch extracts each row of batch on the worker pool. Order is kept.
func (p *Pipeline) processBatch(ctx context.Context, batch []*models.RawRow) []*models.Property {
	out := make([]*models.Property, len(batch))
	pool := utils.NewWorkerPool(p.cfg.MaxConcurrency)
	for i, row := range batch {
		pool.Submit(func() {
			out[i] = p.extractRow(ctx, row)
		})
	}
	pool.Wait()
	return out
}

func (p *Pipeline) extractRow(ctx context.Context, row *models.RawRow) *models.Property {
	fields := p.hybrid.ExtractWithKnown(ctx, row.Description, row.Title, KnownFields(row, p.hybrid.fields.Zones()))
	return NewProperty(row, fields)
}

// KnownFields returns the values a row already carries in structured columns.
func KnownFields(row *models.RawRow, zones *extractor.ZoneCatalog) models.ExtractedFields {
	var known models.ExtractedFields
	if price, ok := extractor.ExtractPrice(row.PriceText); ok {
		amount := price.Amount
		known.Price = &amount
		known.Currency = price.Currency
		known.CurrencyGuess = price.Inferred
	}
	known.Bedrooms = row.Rooms
	known.Bathrooms = row.Baths
	known.PropertyType = extractor.NormalizePropertyType(row.PropertyType)
	if row.Zone != "" && zones != nil {
		known.Zone = zones.Canonicalize(row.Zone)
	}
	known.Amenities = extractor.SplitAmenities(row.AmenitiesText)
	return known
}

// NewProperty builds the persisted record of row.
func NewProperty(row *models.RawRow, fields models.ExtractedFields) *models.Property {
	return &models.Property{
		ExtractedFields: fields,
		ID:              row.ID,
		URL:             row.URL,
		Title:           row.Title,
		Description:     row.Description,
		Latitude:        row.Latitude,
		Longitude:       row.Longitude,
		Provider:        row.Provider,
		SourceFile:      row.SourceFile,
		SnapshotDate:    row.SnapshotDate,
		CanonicalID:     row.ID,
	}
}

func (p *Pipeline) flushCache() {
	if p.cache == nil {
		return
	}
	// the run context may already be cancelled
	if err := p.cache.Flush(context.Background()); err != nil {
		p.logger.Warn("[pipeline] Cache flush failed: %v", err)
	}
}

// fingerprint identifies an input by the ordered ids of its rows.
func fingerprint(rows []*models.RawRow) string {
	h := sha256.New()
	for _, r := range rows {
		h.Write([]byte(r.ID))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
