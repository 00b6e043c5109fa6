// Package services orchestrates the engine: imports, rule edits and
// view requests, each a synchronous call that leaves the store and the
// database consistent before returning.
package services

import (
	"context"
	"fmt"

	"homemoney/internal/core"
	"homemoney/internal/storage"
	"homemoney/internal/store"
)

// Repository is what the services need from persistence. Implemented
// by *storage.Repository; tests substitute a fake.
type Repository interface {
	SaveState(ctx context.Context, txs []core.Transaction, rules []core.Rule) error
	LoadState(ctx context.Context) ([]core.Transaction, []core.Rule, error)
	RecordSourceFile(ctx context.Context, sha256, filename string, count int) error
	SourceFileCount(ctx context.Context, sha256 string) (int, bool, error)
	ListSourceFiles(ctx context.Context) ([]storage.SourceFile, error)
}

// App bundles the services around one store and one repository.
type App struct {
	Imports *ImportService
	Rules   *RuleService
	Views   *ViewService

	store *store.Store
	repo  Repository
}

// Options for building an App. Zero values get defaults.
type Options struct {
	ImportConcurrency int
}

func NewApp(st *store.Store, repo Repository, opts Options) *App {
	if opts.ImportConcurrency < 1 {
		opts.ImportConcurrency = 4
	}
	ruleSvc := &RuleService{store: st, repo: repo}
	return &App{
		Imports: &ImportService{
			store:       st,
			repo:        repo,
			rules:       ruleSvc,
			concurrency: opts.ImportConcurrency,
		},
		Rules: ruleSvc,
		Views: &ViewService{store: st, repo: repo},
		store: st,
		repo:  repo,
	}
}

// Bootstrap loads persisted state into the store and re-applies the
// persisted rules, so derived fields are fresh even if the rule list
// changed outside a running process.
func (a *App) Bootstrap(ctx context.Context) error {
	txs, ruleList, err := a.repo.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	a.store.Replace(txs)
	a.Rules.reset(ruleList)
	a.store.ApplyRules(ruleList)
	return nil
}

// persist writes the current store snapshot and rule list. Every
// mutating service call ends with this.
func persist(ctx context.Context, repo Repository, st *store.Store, rules *RuleService) error {
	if err := repo.SaveState(ctx, st.All(), rules.Current()); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}
