package services

import (
	"context"
	"sync/atomic"

	"scz-inmuebles/extractor"
	"scz-inmuebles/llm"
	"scz-inmuebles/models"
	"scz-inmuebles/utils"
)

// Completer is the part of llm.Chain the hybrid extractor depends on.
type Completer interface {
	Complete(ctx context.Context, prompt string) (llm.Completion, error)
}

// HybridExtractor runs the regex extractor first and only asks an LLM for the
// fields regex could not find. Results that needed the LLM are cached.
type HybridExtractor struct {
	fields *extractor.FieldExtractor
	chain  Completer
	parser *llm.ResponseParser
	cache  *ExtractionCache
	logger *utils.Logger

	processed    atomic.Int64
	cacheHits    atomic.Int64
	llmCalls     atomic.Int64
	regexOnly    atomic.Int64
	hybrid       atomic.Int64
	llmOnly      atomic.Int64
	fallbackUsed atomic.Int64
	errors       atomic.Int64
}

// NewHybridExtractor wires the extractor. A nil chain disables the LLM: records
// regex cannot complete are marked regex_fallback. A nil cache disables caching.
func NewHybridExtractor(fields *extractor.FieldExtractor, chain Completer, cache *ExtractionCache, logger *utils.Logger) *HybridExtractor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if fields == nil {
		fields = extractor.NewFieldExtractor(logger, nil)
	}
	return &HybridExtractor{
		fields: fields,
		chain:  chain,
		parser: llm.NewResponseParser(fields.Zones(), logger),
		cache:  cache,
		logger: logger,
	}
}

// ExtractFromDescription extracts the structured fields of one listing.
func (h *HybridExtractor) ExtractFromDescription(ctx context.Context, description, title string) models.ExtractedFields {
	return h.ExtractWithKnown(ctx, description, title, models.ExtractedFields{})
}

// ExtractWithKnown is ExtractFromDescription seeded with values the provider
// export already carried in structured columns. Seeded values win over text.
func (h *HybridExtractor) ExtractWithKnown(ctx context.Context, description, title string, known models.ExtractedFields) models.ExtractedFields {
	h.processed.Add(1)

	key := CacheKey(title, description)
	if h.cache != nil {
		if cached, ok := h.cache.Get(key); ok {
			h.cacheHits.Add(1)
			return fromCache(known, cached)
		}
	}

	base := seedKnown(known, h.fields.ExtractAll(description, title))
	if base.Sufficient() {
		base.Method = models.MethodRegexOnly
		h.regexOnly.Add(1)
		return base
	}

	if h.chain == nil {
		return h.fail(base)
	}

	prompt, missing := llm.BuildPrompt(description, title, base)
	h.logger.Debug("[hybrid] Asking LLM for %v (title %q)", missing, truncate(title, 40))

	h.llmCalls.Add(1)
	completion, err := h.chain.Complete(ctx, prompt)
	if err != nil {
		h.logger.Warn("[hybrid] LLM completion failed for %q: %v", truncate(title, 40), err)
		return h.fail(base)
	}

	parsed, err := h.parser.Parse(completion.Text)
	if err != nil {
		h.logger.Warn("[hybrid] Unusable LLM answer from %s for %q: %v", completion.Provider, truncate(title, 40), err)
		return h.fail(base)
	}

	merged := MergeExtraction(base, parsed)
	merged.LLMProvider = completion.Provider + "/" + completion.Model
	merged.LLMFallback = completion.FallbackUsed
	if completion.FallbackUsed {
		h.fallbackUsed.Add(1)
	}
	if merged.Method == models.MethodLLMOnly {
		h.llmOnly.Add(1)
	} else {
		h.hybrid.Add(1)
	}

	if h.cache != nil {
		h.cache.Put(ctx, key, merged)
	}
	return merged
}

// fromCache applies the row's structured columns over a cached result. The
// cache is keyed on text only, so two snapshots sharing a description may
// carry different column values.
func fromCache(known, cached models.ExtractedFields) models.ExtractedFields {
	out := seedKnown(known, cached)
	out.Method = cached.Method
	out.LLMProvider = cached.LLMProvider
	out.LLMFallback = cached.LLMFallback
	return out
}

func (h *HybridExtractor) fail(f models.ExtractedFields) models.ExtractedFields {
	h.errors.Add(1)
	return degrade(f)
}

// Stats returns a snapshot of the extractor counters.
func (h *HybridExtractor) Stats() models.ExtractionStats {
	return models.ExtractionStats{
		Processed:    h.processed.Load(),
		CacheHits:    h.cacheHits.Load(),
		LLMCalls:     h.llmCalls.Load(),
		RegexOnly:    h.regexOnly.Load(),
		Hybrid:       h.hybrid.Load(),
		LLMOnly:      h.llmOnly.Load(),
		FallbackUsed: h.fallbackUsed.Load(),
		Errors:       h.errors.Load(),
	}
}
