package storage

import (
	"context"

	"scz-inmuebles/models"
)

// PropertyStore is the interface any property backend must satisfy. Write is
// an upsert keyed by Property.ID, so replaying a batch never duplicates rows.
type PropertyStore interface {
	Write(ctx context.Context, props []*models.Property) error
	FetchAll(ctx context.Context) ([]*models.Property, error)
	Close() error
}

// PropertyExporter writes a dataset snapshot, e.g. the canonical records of a run.
type PropertyExporter interface {
	Export(props []*models.Property) error
}

// CacheStore persists the extraction cache between runs. Save merges entries
// into what is already stored; it never removes keys.
type CacheStore interface {
	Load(ctx context.Context) (map[string]models.ExtractedFields, error)
	Save(ctx context.Context, entries map[string]models.ExtractedFields) error
}
