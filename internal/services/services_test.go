package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homemoney/internal/aggregate"
	"homemoney/internal/core"
	"homemoney/internal/csvimport"
	"homemoney/internal/storage"
	"homemoney/internal/store"
)

// fakeRepo keeps persisted state in memory and counts SaveState calls,
// standing in for *storage.Repository.
type fakeRepo struct {
	txs   []core.Transaction
	rules []core.Rule
	files map[string]int
	saves int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{files: make(map[string]int)}
}

func (r *fakeRepo) SaveState(_ context.Context, txs []core.Transaction, rules []core.Rule) error {
	r.txs = txs
	r.rules = rules
	r.saves++
	return nil
}

func (r *fakeRepo) LoadState(context.Context) ([]core.Transaction, []core.Rule, error) {
	return r.txs, r.rules, nil
}

func (r *fakeRepo) RecordSourceFile(_ context.Context, sha, _ string, count int) error {
	r.files[sha] = count
	return nil
}

func (r *fakeRepo) SourceFileCount(_ context.Context, sha string) (int, bool, error) {
	n, ok := r.files[sha]
	return n, ok, nil
}

func (r *fakeRepo) ListSourceFiles(context.Context) ([]storage.SourceFile, error) {
	out := make([]storage.SourceFile, 0, len(r.files))
	for sha, n := range r.files {
		out = append(out, storage.SourceFile{SHA256: sha, TransactionCount: n})
	}
	return out, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestApp(repo Repository) *App {
	st := store.New(core.Fingerprinter{BucketCents: core.DefaultBucketCents}, time.Minute)
	return NewApp(st, repo, Options{ImportConcurrency: 2})
}

const statement = `Date,Description,Amount
2024-01-05,GROCERY MART,-45.10
2024-01-06,COFFEE SHOP,-4.50
2024-01-31,SALARY,2500.00
`

func TestImportBytesPersistsAndRegisters(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	res, err := app.Imports.ImportBytes(ctx, "jan.csv", []byte(statement), csvimport.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Accepted)
	assert.Equal(t, 0, res.Duplicate)
	assert.Len(t, repo.txs, 3)
	assert.Len(t, repo.files, 1)
	assert.Equal(t, 1, repo.saves)
}

func TestImportBytesIdenticalFileShortCircuits(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	_, err := app.Imports.ImportBytes(ctx, "jan.csv", []byte(statement), csvimport.Options{})
	require.NoError(t, err)

	res, err := app.Imports.ImportBytes(ctx, "jan-copy.csv", []byte(statement), csvimport.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 3, res.Duplicate)
	assert.Equal(t, 1, repo.saves, "re-import of a known file must not rewrite state")
}

func TestBootstrapRestoresStateAndReappliesRules(t *testing.T) {
	repo := newFakeRepo()
	ctx := context.Background()

	first := newTestApp(repo)
	_, err := first.Imports.ImportBytes(ctx, "jan.csv", []byte(statement), csvimport.Options{})
	require.NoError(t, err)
	require.NoError(t, first.Rules.Add(ctx, core.Rule{
		Kind:     core.RuleCategorize,
		Category: "groceries",
		Matcher:  core.Matcher{Pattern: "grocery"},
	}))

	second := newTestApp(repo)
	require.NoError(t, second.Bootstrap(ctx))

	txs := second.Views.Transactions(store.ListOptions{Search: "grocery"})
	require.Len(t, txs, 1)
	assert.Equal(t, "groceries", txs[0].Category)
	assert.Len(t, second.Rules.Current(), 1)
}

func TestRuleEditsRecomputeDerivedState(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	_, err := app.Imports.ImportBytes(ctx, "jan.csv", []byte(statement), csvimport.Options{})
	require.NoError(t, err)

	require.NoError(t, app.Rules.Add(ctx, core.Rule{
		Kind:     core.RuleCategorize,
		Category: "dining",
		Matcher:  core.Matcher{Pattern: "coffee"},
	}))
	txs := app.Views.Transactions(store.ListOptions{Search: "coffee"})
	require.Len(t, txs, 1)
	assert.Equal(t, "dining", txs[0].Category)

	// Deleting the rule clears every assignment it produced.
	require.NoError(t, app.Rules.Delete(ctx, 0))
	txs = app.Views.Transactions(store.ListOptions{Search: "coffee"})
	require.Len(t, txs, 1)
	assert.Empty(t, txs[0].Category)
}

func TestRuleAddRejectsInvalid(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)

	err := app.Rules.Add(context.Background(), core.Rule{Kind: core.RuleCategorize})
	require.ErrorIs(t, err, core.ErrInvalidRule)
	assert.Empty(t, app.Rules.Current())
	assert.Zero(t, repo.saves)
}

func TestAssignCategoryPinBeatsPatternRules(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	_, err := app.Imports.ImportBytes(ctx, "jan.csv", []byte(statement), csvimport.Options{})
	require.NoError(t, err)
	require.NoError(t, app.Rules.Add(ctx, core.Rule{
		Kind:     core.RuleCategorize,
		Category: "groceries",
		Matcher:  core.Matcher{Pattern: "grocery"},
	}))

	target := app.Views.Transactions(store.ListOptions{Search: "grocery"})[0]
	require.NoError(t, app.Rules.AssignCategory(ctx, target.Fingerprint, "household"))

	got, ok := app.store.Get(target.Fingerprint)
	require.True(t, ok)
	assert.Equal(t, "household", got.Category)

	// The pin is an ordinary rule, so a later full recompute keeps it.
	app.store.ApplyRules(app.Rules.Current())
	got, _ = app.store.Get(target.Fingerprint)
	assert.Equal(t, "household", got.Category)
}

func TestAssignCategoryReplacesExistingPin(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	_, err := app.Imports.ImportBytes(ctx, "jan.csv", []byte(statement), csvimport.Options{})
	require.NoError(t, err)
	target := app.Views.Transactions(store.ListOptions{Search: "salary"})[0]

	require.NoError(t, app.Rules.AssignCategory(ctx, target.Fingerprint, "income"))
	require.NoError(t, app.Rules.AssignCategory(ctx, target.Fingerprint, "bonus"))

	assert.Len(t, app.Rules.Current(), 1)
	got, _ := app.store.Get(target.Fingerprint)
	assert.Equal(t, "bonus", got.Category)
}

func TestRuleServiceCategoriesListsAssignableLabels(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	require.NoError(t, app.Rules.Add(ctx, core.Rule{
		Kind: core.RuleCategorize, Category: "dining", Matcher: core.Matcher{Pattern: "coffee"},
	}))
	require.NoError(t, app.Rules.Add(ctx, core.Rule{
		Kind: core.RuleIgnore, Matcher: core.Matcher{Pattern: "transfer"},
	}))
	require.NoError(t, app.Rules.Add(ctx, core.Rule{
		Kind: core.RuleCategorize, Category: "dining", Matcher: core.Matcher{Pattern: "pizza"},
	}))
	require.NoError(t, app.Rules.Add(ctx, core.Rule{
		Kind: core.RuleCategorize, Category: "groceries", Matcher: core.Matcher{Pattern: "grocery"},
	}))

	assert.Equal(t, []string{"dining", "groceries"}, app.Rules.Categories())
}

func TestAddManualEntersDedupPath(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	tx := core.Transaction{
		Date:        core.NewDate(2024, 2, 1),
		Description: "  Landlord   Rent ",
		Amount:      core.Money{Cents: -120000},
	}
	res, err := app.Imports.AddManual(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Accepted)

	res, err = app.Imports.AddManual(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Accepted)
	assert.Equal(t, 1, res.Duplicate)

	listed := app.Views.Transactions(store.ListOptions{})
	require.Len(t, listed, 1)
	assert.Equal(t, "Landlord Rent", listed[0].Description)
	assert.Equal(t, core.SourceManual, listed[0].SourceFile)
}

func TestRemoveAndNote(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	_, err := app.Imports.ImportBytes(ctx, "jan.csv", []byte(statement), csvimport.Options{})
	require.NoError(t, err)
	target := app.Views.Transactions(store.ListOptions{Search: "coffee"})[0]

	require.NoError(t, app.Imports.SetNote(ctx, target.Fingerprint, "card trip"))
	got, _ := app.store.Get(target.Fingerprint)
	assert.Equal(t, "card trip", got.Note)

	require.NoError(t, app.Imports.Remove(ctx, target.Fingerprint))
	_, ok := app.store.Get(target.Fingerprint)
	assert.False(t, ok)
	assert.Len(t, repo.txs, 2)

	err = app.Imports.Remove(ctx, target.Fingerprint)
	assert.Error(t, err)
}

func TestViewsAggregateAndTrend(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	csv := `Date,Description,Amount
2024-01-05,GROCERY MART,-45.10
2024-03-06,GROCERY MART,-30.00
`
	_, err := app.Imports.ImportBytes(ctx, "q1.csv", []byte(csv), csvimport.Options{})
	require.NoError(t, err)

	groups := app.Views.Aggregate(aggregate.ByMonth, aggregate.Window{})
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-01", groups[0].Key)

	trend := app.Views.Trend(aggregate.MetricTotal, aggregate.Window{})
	require.Len(t, trend, 3, "february must appear as a zero point")
	assert.Equal(t, int64(0), trend[1].Value)

	files, err := app.Views.SourceFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestImportFilesConcurrentBatch(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	dir := t.TempDir()
	a := dir + "/a.csv"
	b := dir + "/b.csv"
	writeFile(t, a, statement)
	writeFile(t, b, `Date,Description,Amount
2024-02-01,UTILITY CO,-80.00
`)

	results, err := app.Imports.ImportFiles(ctx, []string{a, b}, csvimport.Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a.csv", results[0].File)
	assert.Equal(t, 3, results[0].Accepted)
	assert.Equal(t, "b.csv", results[1].File)
	assert.Equal(t, 1, results[1].Accepted)
	assert.Equal(t, 4, app.store.Size())
	assert.Len(t, repo.files, 2)
}

func TestImportFilesBadSchemaDoesNotBlockOthers(t *testing.T) {
	repo := newFakeRepo()
	app := newTestApp(repo)
	ctx := context.Background()

	dir := t.TempDir()
	good := dir + "/good.csv"
	bad := dir + "/bad.csv"
	writeFile(t, good, statement)
	writeFile(t, bad, "foo,bar\n1,2\n")

	results, err := app.Imports.ImportFiles(ctx, []string{good, bad}, csvimport.Options{})
	require.Error(t, err)
	var schemaErr *core.UnrecognizedSchemaError
	assert.ErrorAs(t, err, &schemaErr)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].Accepted)
	assert.Equal(t, 3, app.store.Size(), "the good file still lands")
}
