package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	RuleIgnore     RuleKind = "ignore"
	RuleCategorize RuleKind = "categorize"

	// SourceManual marks transactions entered by hand rather than imported.
	SourceManual = "manual"
)

type (
	RuleKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is the canonical record for one financial event,
	// independent of the column layout of the file it came from.
	// Immutable once accepted by the store, except Category, Ignored
	// and Note.
	Transaction struct {
		Date        Date
		Description string
		Amount      Money
		SourceFile  string
		Fingerprint string
		Category    string // empty until assigned
		Ignored     bool
		Note        string
	}

	// Matcher holds the conditions of a rule. Conditions left at their
	// zero value are absent; all present conditions must hold.
	Matcher struct {
		Pattern   string // substring, or regexp when UseRegexp
		UseRegexp bool
		MinAmount *Money // inclusive
		MaxAmount *Money // inclusive
		After     Date   // inclusive, zero = open
		Before    Date   // inclusive, zero = open

		// Fingerprint pins the rule to exactly one transaction. Manual
		// category assignments are stored this way so a full rule
		// recompute preserves them instead of wiping them.
		Fingerprint string

		re *regexp.Regexp
	}

	// Rule is a user directive: ignore matching transactions, or assign
	// them a category. Rules are ordered; position is the list index.
	Rule struct {
		ID       int64
		Kind     RuleKind
		Matcher  Matcher
		Category string // for RuleCategorize
	}
)

var (
	ErrInvalidRule      = errors.New("invalid rule")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
)

// NewDate creates a Date from year, month, day. Dates carry no time of
// day; everything is midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// MonthKey returns the "YYYY-MM" grouping key for the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// ISO returns the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the rule and compiles its pattern. A rule that fails
// validation must never be stored.
func (r *Rule) Validate() error {
	switch r.Kind {
	case RuleIgnore, RuleCategorize:
	default:
		return errors.Join(ErrInvalidRule, errors.New("unknown kind "+string(r.Kind)))
	}
	if r.Kind == RuleCategorize && strings.TrimSpace(r.Category) == "" {
		return errors.Join(ErrInvalidRule, errors.New("categorize rule without category"))
	}
	if err := r.Matcher.compile(); err != nil {
		return errors.Join(ErrInvalidRule, err)
	}
	if r.Matcher.isEmpty() {
		return errors.Join(ErrInvalidRule, errors.New("matcher has no conditions"))
	}
	if r.Matcher.MinAmount != nil && r.Matcher.MaxAmount != nil &&
		r.Matcher.MinAmount.Cents > r.Matcher.MaxAmount.Cents {
		return errors.Join(ErrInvalidRule, errors.New("amount range inverted"))
	}
	if !r.Matcher.After.IsZero() && !r.Matcher.Before.IsZero() &&
		r.Matcher.After.Time.After(r.Matcher.Before.Time) {
		return errors.Join(ErrInvalidRule, errors.New("date range inverted"))
	}
	return nil
}

func (m *Matcher) isEmpty() bool {
	return m.Pattern == "" && m.MinAmount == nil && m.MaxAmount == nil &&
		m.After.IsZero() && m.Before.IsZero() && m.Fingerprint == ""
}

func (m *Matcher) compile() error {
	if !m.UseRegexp || m.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile("(?i)" + m.Pattern)
	if err != nil {
		return err
	}
	m.re = re
	return nil
}

// Matches reports whether every present condition holds for t.
// Description matching is case-insensitive.
func (m *Matcher) Matches(t Transaction) bool {
	if m.Fingerprint != "" && m.Fingerprint != t.Fingerprint {
		return false
	}
	if m.Pattern != "" {
		if m.UseRegexp {
			if m.re == nil && m.compile() != nil {
				return false
			}
			if !m.re.MatchString(t.Description) {
				return false
			}
		} else if !strings.Contains(strings.ToLower(t.Description), strings.ToLower(m.Pattern)) {
			return false
		}
	}
	if m.MinAmount != nil && t.Amount.Cents < m.MinAmount.Cents {
		return false
	}
	if m.MaxAmount != nil && t.Amount.Cents > m.MaxAmount.Cents {
		return false
	}
	if !m.After.IsZero() && t.Date.Time.Before(m.After.Time) {
		return false
	}
	if !m.Before.IsZero() && t.Date.Time.After(m.Before.Time) {
		return false
	}
	return true
}
