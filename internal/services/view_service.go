package services

import (
	"context"

	"homemoney/internal/aggregate"
	"homemoney/internal/core"
	"homemoney/internal/storage"
	"homemoney/internal/store"
)

// ViewService answers read requests. Aggregates are recomputed from the
// live store on every call; transaction listings go through the store's
// snapshot cache.
type ViewService struct {
	store *store.Store
	repo  Repository
}

// Transactions lists transactions filtered and ordered per opts.
func (s *ViewService) Transactions(opts store.ListOptions) []core.Transaction {
	return s.store.List(opts)
}

// Aggregate groups the current non-ignored transactions.
func (s *ViewService) Aggregate(by aggregate.GroupBy, w aggregate.Window) []aggregate.Group {
	return aggregate.Aggregate(s.store.All(), by, w)
}

// Trend returns the gap-free monthly series.
func (s *ViewService) Trend(metric aggregate.Metric, w aggregate.Window) []aggregate.Point {
	return aggregate.Trend(s.store.All(), metric, w)
}

// SourceFiles lists the import registry, newest first.
func (s *ViewService) SourceFiles(ctx context.Context) ([]storage.SourceFile, error) {
	return s.repo.ListSourceFiles(ctx)
}
