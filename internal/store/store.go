// Package store maintains the authoritative deduplicated transaction
// set. It is the only stateful component: every other package is a pure
// transform over what this one holds.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"homemoney/internal/cache"
	"homemoney/internal/core"
	"homemoney/internal/rules"
)

// ListOptions control the order and filtering of List.
type ListOptions struct {
	SortBy     string // "date" (default), "description", "amount"
	Descending bool
	Search     string // case-insensitive substring over descriptions
}

// Store is the in-memory authoritative set, keyed by fingerprint.
// Writers are serialized against readers: a reader sees either the
// pre- or post-mutation set, never a partially-ingested one.
type Store struct {
	mu      sync.RWMutex
	fp      core.Fingerprinter
	version uint64 // bumped on every mutation; part of the snapshot cache key
	txs     map[string]*core.Transaction
	lists   *cache.LRU[[]core.Transaction]
}

func New(fp core.Fingerprinter, cacheTTL time.Duration) *Store {
	return &Store{
		fp:    fp,
		txs:   make(map[string]*core.Transaction),
		lists: cache.New[[]core.Transaction](16, cacheTTL),
	}
}

// Ingest merges candidates into the set. Each candidate gets its
// fingerprint computed here; one already present is counted as a
// duplicate and discarded silently, since re-uploading a statement is
// an expected workflow rather than an error. The whole batch is applied
// under one write lock, so it is atomic with respect to readers.
func (s *Store) Ingest(candidates []core.Transaction) core.ImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res core.ImportResult
	for _, c := range candidates {
		c.Description = core.NormalizeDescription(c.Description)
		c.Fingerprint = s.fp.Of(c)
		if _, exists := s.txs[c.Fingerprint]; exists {
			res.Duplicate++
			continue
		}
		t := c
		s.txs[t.Fingerprint] = &t
		res.Accepted++
	}
	if res.Accepted > 0 {
		s.version++
	}
	return res
}

// Remove deletes one transaction by fingerprint. This is the only way
// anything leaves the set, and it is issued by direct user action only.
func (s *Store) Remove(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[fingerprint]; !ok {
		return false
	}
	delete(s.txs, fingerprint)
	s.version++
	return true
}

// Get returns a copy of one transaction.
func (s *Store) Get(fingerprint string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[fingerprint]
	if !ok {
		return core.Transaction{}, false
	}
	return *t, true
}

// All returns a read-only snapshot of the set, ordered by date then
// description then fingerprint for determinism.
func (s *Store) All() []core.Transaction {
	return s.List(ListOptions{})
}

// List returns a filtered, sorted snapshot. Snapshots are memoized per
// option set, the way the dashboard re-reads the same table view
// repeatedly between imports; the cache key carries the store version,
// so a stale snapshot can never be served after a mutation. Every call
// gets its own copy, so writing into a returned slice affects no other
// caller.
func (s *Store) List(opts ListOptions) []core.Transaction {
	s.mu.RLock()
	key := listKey(s.version, opts)
	if snap, ok := s.lists.Get(key); ok {
		s.mu.RUnlock()
		return copySnapshot(snap)
	}
	out := make([]core.Transaction, 0, len(s.txs))
	search := strings.ToLower(opts.Search)
	for _, t := range s.txs {
		if search != "" && !strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, *t)
	}
	s.mu.RUnlock()

	sortSnapshot(out, opts)
	s.lists.Set(key, out)
	return copySnapshot(out)
}

func copySnapshot(snap []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(snap))
	copy(out, snap)
	return out
}

// Size returns the number of transactions in the set.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs)
}

// ApplyRules recomputes category/ignored for the whole set from the
// given rule list, under a single write lock.
func (s *Store) ApplyRules(ruleList []core.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	flat := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		flat = append(flat, *t)
	}
	rules.Apply(ruleList, flat)
	for i := range flat {
		s.txs[flat[i].Fingerprint] = &flat[i]
	}
	s.version++
}

// SetNote attaches a free-text note to one transaction.
func (s *Store) SetNote(fingerprint, note string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[fingerprint]
	if !ok {
		return false
	}
	t.Note = note
	s.version++
	return true
}

// Replace swaps in a previously persisted set, trusting stored
// fingerprints and computing any that are missing.
func (s *Store) Replace(txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = make(map[string]*core.Transaction, len(txs))
	for _, c := range txs {
		if c.Fingerprint == "" {
			c.Fingerprint = s.fp.Of(c)
		}
		t := c
		s.txs[t.Fingerprint] = &t
	}
	s.version++
}

func sortSnapshot(out []core.Transaction, opts ListOptions) {
	less := func(a, b *core.Transaction) bool {
		switch opts.SortBy {
		case "description":
			if x, y := strings.ToLower(a.Description), strings.ToLower(b.Description); x != y {
				return x < y
			}
		case "amount":
			if a.Amount.Cents != b.Amount.Cents {
				return a.Amount.Cents < b.Amount.Cents
			}
		default:
			if !a.Date.Equal(b.Date.Time) {
				return a.Date.Time.Before(b.Date.Time)
			}
			if a.Description != b.Description {
				return a.Description < b.Description
			}
		}
		return a.Fingerprint < b.Fingerprint
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := &out[i], &out[j]
		if opts.Descending {
			a, b = b, a
		}
		return less(a, b)
	})
}

func listKey(version uint64, opts ListOptions) string {
	return fmt.Sprintf("%d|%s|%v|%s", version, opts.SortBy, opts.Descending, strings.ToLower(opts.Search))
}
