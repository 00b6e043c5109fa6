// Package storage persists the transaction log, the rule list, the
// import registry and the category catalog in sqlite. It owns the
// physical format; the logical schema it round-trips is fixed.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"homemoney/internal/core"

	_ "modernc.org/sqlite"
)

// SourceFile is one entry of the import registry.
type SourceFile struct {
	SHA256           string
	Filename         string
	TransactionCount int
	ImportedAt       time.Time
}

// Category is one entry of the category catalog.
type Category struct {
	Name        string
	Description string
	Color       string
}

type Repository struct {
	db *sql.DB
}

// Open creates the database file if needed, runs migrations, and
// returns a ready repository.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveState writes the full transaction log and rule list in one
// database transaction, replacing what was there. Either everything is
// saved or nothing is.
func (r *Repository) SaveState(ctx context.Context, txs []core.Transaction, ruleList []core.Rule) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	for _, t := range txs {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO transactions (fingerprint, date, description, amount_cents, source_file, category, ignored, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Fingerprint, t.Date.ISO(), t.Description, t.Amount.Cents,
			t.SourceFile, t.Category, boolToInt(t.Ignored), t.Note)
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.Fingerprint, err)
		}
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}
	for pos, rule := range ruleList {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO rules (position, kind, pattern, use_regexp, min_cents, max_cents, start_date, end_date, fingerprint, category)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pos, string(rule.Kind), rule.Matcher.Pattern, boolToInt(rule.Matcher.UseRegexp),
			nullCents(rule.Matcher.MinAmount), nullCents(rule.Matcher.MaxAmount),
			nullDate(rule.Matcher.After), nullDate(rule.Matcher.Before),
			rule.Matcher.Fingerprint, rule.Category)
		if err != nil {
			return fmt.Errorf("insert rule %d: %w", pos, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	slog.InfoContext(ctx, "state saved", "transactions", len(txs), "rules", len(ruleList))
	return nil
}

// LoadState reads back what SaveState wrote. A fresh database yields
// empty slices, not an error.
func (r *Repository) LoadState(ctx context.Context) ([]core.Transaction, []core.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fingerprint, date, description, amount_cents, source_file, category, ignored, note
		FROM transactions ORDER BY date, fingerprint`)
	if err != nil {
		return nil, nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t       core.Transaction
			date    string
			ignored int
		)
		if err := rows.Scan(&t.Fingerprint, &date, &t.Description, &t.Amount.Cents,
			&t.SourceFile, &t.Category, &ignored, &t.Note); err != nil {
			return nil, nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := parseISODate(date)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %s: %w", t.Fingerprint, err)
		}
		t.Date = d
		t.Ignored = ignored != 0
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate transactions: %w", err)
	}

	ruleList, err := r.loadRules(ctx)
	if err != nil {
		return nil, nil, err
	}
	return txs, ruleList, nil
}

func (r *Repository) loadRules(ctx context.Context) ([]core.Rule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, pattern, use_regexp, min_cents, max_cents, start_date, end_date, fingerprint, category
		FROM rules ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []core.Rule
	for rows.Next() {
		var (
			rule       core.Rule
			useRegexp  int
			minC, maxC sql.NullInt64
			from, to   sql.NullString
			kind       string
		)
		if err := rows.Scan(&rule.ID, &kind, &rule.Matcher.Pattern, &useRegexp,
			&minC, &maxC, &from, &to, &rule.Matcher.Fingerprint, &rule.Category); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rule.Kind = core.RuleKind(kind)
		rule.Matcher.UseRegexp = useRegexp != 0
		if minC.Valid {
			rule.Matcher.MinAmount = &core.Money{Cents: minC.Int64}
		}
		if maxC.Valid {
			rule.Matcher.MaxAmount = &core.Money{Cents: maxC.Int64}
		}
		if from.Valid && from.String != "" {
			d, err := parseISODate(from.String)
			if err != nil {
				return nil, fmt.Errorf("rule %d start date: %w", rule.ID, err)
			}
			rule.Matcher.After = d
		}
		if to.Valid && to.String != "" {
			d, err := parseISODate(to.String)
			if err != nil {
				return nil, fmt.Errorf("rule %d end date: %w", rule.ID, err)
			}
			rule.Matcher.Before = d
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// RecordSourceFile registers an imported file by content hash.
func (r *Repository) RecordSourceFile(ctx context.Context, sha256, filename string, count int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO source_files (sha256, filename, transaction_count)
		VALUES (?, ?, ?)`, sha256, filename, count)
	if err != nil {
		return fmt.Errorf("record source file: %w", err)
	}
	return nil
}

// SourceFileCount reports whether a byte-identical file was imported
// before, and how many transactions it contributed.
func (r *Repository) SourceFileCount(ctx context.Context, sha256 string) (int, bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT transaction_count FROM source_files WHERE sha256 = ?`, sha256).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("check source file: %w", err)
	}
	return n, true, nil
}

// ListSourceFiles returns the import registry, newest first.
func (r *Repository) ListSourceFiles(ctx context.Context) ([]SourceFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sha256, filename, transaction_count, imported_at
		FROM source_files ORDER BY imported_at DESC, sha256`)
	if err != nil {
		return nil, fmt.Errorf("query source files: %w", err)
	}
	defer rows.Close()

	var out []SourceFile
	for rows.Next() {
		var f SourceFile
		if err := rows.Scan(&f.SHA256, &f.Filename, &f.TransactionCount, &f.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan source file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Categories returns the catalog, seeded defaults included.
func (r *Repository) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, description, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Name, &c.Description, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddCategory inserts a user-defined category into the catalog.
func (r *Repository) AddCategory(ctx context.Context, c Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (name, description, color) VALUES (?, ?, ?)`,
		c.Name, c.Description, c.Color)
	if err != nil {
		return fmt.Errorf("add category %s: %w", c.Name, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullCents(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.ISO()
}

func parseISODate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
}
