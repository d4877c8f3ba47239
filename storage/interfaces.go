package storage

import (
	"context"

	"car-sales-dashboard/models"
)

// ListingWriter is the interface any storage backend for the enriched
// table must satisfy.
type ListingWriter interface {
	Write(ctx context.Context, t models.Table) error
	Close() error
}

// ListingReader reads a previously stored enriched table.
type ListingReader interface {
	FetchAll(ctx context.Context) (models.Table, error)
}

var (
	_ ListingWriter = (*CSVWriter)(nil)
	_ ListingWriter = (*PostgresWriter)(nil)
	_ ListingReader = (*PostgresWriter)(nil)
)
