package pipeline

import (
	"context"

	"github.com/aronkovacs/real-estate-scrapers/database"
	"github.com/aronkovacs/real-estate-scrapers/models"
)

// StoreWriter persists batches into Postgres through the listing repository.
type StoreWriter struct {
	ctx  context.Context
	repo *database.ListingRepository
}

// NewStoreWriter creates a writer backed by the given repository.
func NewStoreWriter(ctx context.Context, repo *database.ListingRepository) *StoreWriter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &StoreWriter{ctx: ctx, repo: repo}
}

// Write flattens the batch and inserts it in a single statement.
func (sw *StoreWriter) Write(items []*models.RealEstate) error {
	rows := make([]database.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, database.NewRow(item))
	}
	return sw.repo.InsertBatch(sw.ctx, rows)
}

// Close is a no-op; the database connection is owned by the caller.
func (sw *StoreWriter) Close() error { return nil }

// Validate is a no-op; inserts are verified as they happen.
func (sw *StoreWriter) Validate() error { return nil }
