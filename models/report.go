package models

import "time"

// ExtractionStats holds the counters of the hybrid extractor.
type ExtractionStats struct {
	Processed    int64
	CacheHits    int64
	LLMCalls     int64
	RegexOnly    int64
	Hybrid       int64
	LLMOnly      int64
	FallbackUsed int64
	Errors       int64
}

// RunReport holds the end-of-run summary over the processed dataset.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	RowsRead       int
	RowsRejected   int
	Properties     int
	BatchesTotal   int
	BatchesSkipped int
	WriteErrors    int

	Extraction ExtractionStats

	DuplicateGroups  int
	DuplicateRecords int
	CanonicalRecords int

	ListingsByProvider map[string]int
	ListingsByZone     map[string]int
	MethodCounts       map[ExtractionMethod]int

	AveragePriceUSD float64
	MinPriceUSD     float64
	MaxPriceUSD     float64
	MostExpensive   *Property
}
