package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"homemoney/internal/core"
	"homemoney/internal/csvimport"
	"homemoney/internal/store"
)

// ImportService turns CSV files into accepted transactions. Parsing of
// multiple files runs concurrently; ingestion is serialized so each
// file lands atomically and results are deterministic in input order.
type ImportService struct {
	store       *store.Store
	repo        Repository
	rules       *RuleService
	concurrency int
}

type parsedFile struct {
	name    string
	sha     string
	txs     []core.Transaction
	skipped []*core.MalformedRowError
	dupOf   int  // recorded count when the identical file was seen before
	seen    bool // byte-identical re-import
	err     error
}

// ImportFiles reads, parses and ingests the given CSV files. Each file
// yields its own ImportResult; a file whose schema is unrecognized
// contributes an error instead and ingests nothing, without affecting
// the other files.
func (s *ImportService) ImportFiles(ctx context.Context, paths []string, opts csvimport.Options) ([]core.ImportResult, error) {
	batch := uuid.NewString()
	log := slog.With("component", "import", "batch", batch)

	parsed := make([]parsedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			parsed[i] = s.parseOne(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]core.ImportResult, 0, len(paths))
	for _, pf := range parsed {
		if pf.err != nil {
			log.Warn("import failed", "file", pf.name, "error", pf.err)
			results = append(results, core.ImportResult{File: pf.name})
			continue
		}
		if pf.seen {
			// Byte-identical file already in the registry: everything
			// in it is known, no need to touch the store.
			log.Info("file already imported", "file", pf.name, "sha256", pf.sha)
			results = append(results, core.ImportResult{File: pf.name, Duplicate: pf.dupOf})
			continue
		}

		res := s.store.Ingest(pf.txs)
		res.File = pf.name
		res.Skipped = pf.skipped
		results = append(results, res)

		if err := s.repo.RecordSourceFile(ctx, pf.sha, pf.name, res.Accepted); err != nil {
			return results, err
		}
		log.Info("file imported", "file", pf.name,
			"accepted", res.Accepted, "duplicate", res.Duplicate, "skipped", len(res.Skipped))
	}

	s.store.ApplyRules(s.rules.Current())
	if err := persist(ctx, s.repo, s.store, s.rules); err != nil {
		return results, err
	}

	// Surface schema failures after the good files are safely in.
	for _, pf := range parsed {
		if pf.err != nil {
			return results, pf.err
		}
	}
	return results, nil
}

// ImportBytes ingests one in-memory CSV, for callers that already hold
// the upload rather than a path.
func (s *ImportService) ImportBytes(ctx context.Context, filename string, data []byte, opts csvimport.Options) (core.ImportResult, error) {
	pf := s.parseBytes(ctx, filename, data, opts)
	if pf.err != nil {
		return core.ImportResult{File: filename}, pf.err
	}
	if pf.seen {
		return core.ImportResult{File: filename, Duplicate: pf.dupOf}, nil
	}

	res := s.store.Ingest(pf.txs)
	res.File = filename
	res.Skipped = pf.skipped

	if err := s.repo.RecordSourceFile(ctx, pf.sha, filename, res.Accepted); err != nil {
		return res, err
	}
	s.store.ApplyRules(s.rules.Current())
	return res, persist(ctx, s.repo, s.store, s.rules)
}

// AddManual enters a hand-typed transaction through the same dedup path
// as imports.
func (s *ImportService) AddManual(ctx context.Context, t core.Transaction) (core.ImportResult, error) {
	t.SourceFile = core.SourceManual
	t.Description = core.NormalizeDescription(t.Description)
	if err := t.Validate(); err != nil {
		return core.ImportResult{}, fmt.Errorf("manual transaction: %w", err)
	}

	res := s.store.Ingest([]core.Transaction{t})
	res.File = core.SourceManual
	s.store.ApplyRules(s.rules.Current())
	return res, persist(ctx, s.repo, s.store, s.rules)
}

// Remove deletes one transaction by fingerprint, the manual correction
// path for a bad dedup or an unwanted row.
func (s *ImportService) Remove(ctx context.Context, fingerprint string) error {
	if !s.store.Remove(fingerprint) {
		return fmt.Errorf("no transaction with fingerprint %s", fingerprint)
	}
	return persist(ctx, s.repo, s.store, s.rules)
}

// SetNote attaches a note to one transaction.
func (s *ImportService) SetNote(ctx context.Context, fingerprint, note string) error {
	if !s.store.SetNote(fingerprint, note) {
		return fmt.Errorf("no transaction with fingerprint %s", fingerprint)
	}
	return persist(ctx, s.repo, s.store, s.rules)
}

func (s *ImportService) parseOne(ctx context.Context, path string, opts csvimport.Options) parsedFile {
	data, err := os.ReadFile(path)
	if err != nil {
		return parsedFile{name: filepath.Base(path), err: fmt.Errorf("read %s: %w", path, err)}
	}
	pf := s.parseBytes(ctx, filepath.Base(path), data, opts)
	if ctx.Err() != nil {
		pf.err = ctx.Err()
	}
	return pf
}

func (s *ImportService) parseBytes(ctx context.Context, filename string, data []byte, opts csvimport.Options) parsedFile {
	sum := sha256.Sum256(data)
	pf := parsedFile{name: filename, sha: hex.EncodeToString(sum[:])}

	if n, ok, err := s.repo.SourceFileCount(ctx, pf.sha); err != nil {
		pf.err = err
		return pf
	} else if ok {
		pf.seen = true
		pf.dupOf = n
		return pf
	}

	pf.txs, pf.skipped, pf.err = csvimport.Parse(filename, bytes.NewReader(data), opts)
	return pf
}
