package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"homemoney/internal/core"
	"homemoney/internal/rules"
	"homemoney/internal/store"
)

// RuleService owns the ordered rule list. Every edit re-applies the
// full list to the whole set and persists, so derived category/ignored
// state never drifts from the rules that produced it.
type RuleService struct {
	mu    sync.Mutex
	list  []core.Rule
	store *store.Store
	repo  Repository
}

// Current returns a copy of the rule list in evaluation order.
func (s *RuleService) Current() []core.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Rule, len(s.list))
	copy(out, s.list)
	return out
}

// Add validates and appends a rule, then re-applies and persists.
// Invalid rules are rejected and never stored.
func (s *RuleService) Add(ctx context.Context, r core.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.list = append(s.list, r)
	s.mu.Unlock()
	return s.reapply(ctx)
}

// Update replaces the rule at index.
func (s *RuleService) Update(ctx context.Context, index int, r core.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if index < 0 || index >= len(s.list) {
		s.mu.Unlock()
		return fmt.Errorf("no rule at index %d", index)
	}
	s.list[index] = r
	s.mu.Unlock()
	return s.reapply(ctx)
}

// Delete removes the rule at index. Assignments only that rule produced
// disappear on the re-apply that follows.
func (s *RuleService) Delete(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.list) {
		s.mu.Unlock()
		return fmt.Errorf("no rule at index %d", index)
	}
	s.list = append(s.list[:index], s.list[index+1:]...)
	s.mu.Unlock()
	return s.reapply(ctx)
}

// Move changes a rule's position in the evaluation order.
func (s *RuleService) Move(ctx context.Context, from, to int) error {
	s.mu.Lock()
	n := len(s.list)
	if from < 0 || from >= n || to < 0 || to >= n {
		s.mu.Unlock()
		return fmt.Errorf("move %d -> %d out of range", from, to)
	}
	r := s.list[from]
	rest := append(s.list[:from], s.list[from+1:]...)
	s.list = append(rest[:to], append([]core.Rule{r}, rest[to:]...)...)
	s.mu.Unlock()
	return s.reapply(ctx)
}

// AssignCategory pins a category to a single transaction. The pin is an
// ordinary categorize rule keyed on the fingerprint, prepended so it
// beats pattern rules; it therefore survives any future recompute, but
// an ignore rule that matches the transaction still wins.
func (s *RuleService) AssignCategory(ctx context.Context, fingerprint, category string) error {
	if _, ok := s.store.Get(fingerprint); !ok {
		return fmt.Errorf("no transaction with fingerprint %s", fingerprint)
	}
	pin := core.Rule{
		Kind:     core.RuleCategorize,
		Category: category,
		Matcher:  core.Matcher{Fingerprint: fingerprint},
	}
	if err := pin.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	// Replace an existing pin for the same transaction instead of
	// stacking a dead one behind it.
	kept := s.list[:0]
	for _, r := range s.list {
		if r.Kind == core.RuleCategorize && r.Matcher.Fingerprint == fingerprint {
			continue
		}
		kept = append(kept, r)
	}
	s.list = append([]core.Rule{pin}, kept...)
	s.mu.Unlock()
	return s.reapply(ctx)
}

// Categories lists the labels the current rules can assign.
func (s *RuleService) Categories() []string {
	return rules.Categories(s.Current())
}

func (s *RuleService) reapply(ctx context.Context) error {
	list := s.Current()
	s.store.ApplyRules(list)
	slog.Info("rules re-applied", "component", "rules", "rules", len(list), "transactions", s.store.Size())
	return persist(ctx, s.repo, s.store, s)
}

// reset installs a loaded rule list without persisting, for bootstrap.
func (s *RuleService) reset(list []core.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = list
}
