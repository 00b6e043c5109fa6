// Package csvimport turns heterogeneous bank-statement CSV exports into
// canonical transactions. It is a pure transform: nothing here touches
// the store.
package csvimport

import (
	"strings"
)

// Mapping is an explicit column mapping supplied by the caller for
// exports whose headers match none of the known layouts.
type Mapping struct {
	Date        string
	Description string
	Amount      string
}

// schema is a resolved column layout: semantic field -> column index.
// Either amount is set, or the debit/credit pair is. -1 means absent.
type schema struct {
	name     string
	date     int
	desc     int
	amount   int
	debit    int
	credit   int
	category int
}

// Header synonyms seen across bank exports. Matching is done on
// trimmed, lowercased headers.
var (
	dateHeaders   = []string{"date", "transaction date", "posting date", "posted date", "value date"}
	descHeaders   = []string{"description", "memo", "details", "payee", "narrative"}
	amountHeaders = []string{"amount", "transaction amount", "value"}
	debitHeaders  = []string{"debit", "withdrawal", "money out"}
	creditHeaders = []string{"credit", "deposit", "money in"}
	catHeaders    = []string{"category", "tags", "tag"}
)

// detectSchema tries the known layout strategies in order. Each either
// resolves fully or is rejected; there is no partial application. A nil
// return means no strategy accepted the header row.
func detectSchema(headers []string, hint *Mapping) *schema {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = normalizeHeader(h)
	}

	if hint != nil {
		if s := explicitSchema(norm, hint); s != nil {
			return s
		}
		return nil // an explicit hint that does not fit is an error, not a fallback
	}
	if s := singleAmountSchema(norm); s != nil {
		return s
	}
	if s := splitAmountSchema(norm); s != nil {
		return s
	}
	return nil
}

func explicitSchema(headers []string, hint *Mapping) *schema {
	s := &schema{
		name:     "explicit",
		date:     indexOf(headers, normalizeHeader(hint.Date)),
		desc:     indexOf(headers, normalizeHeader(hint.Description)),
		amount:   indexOf(headers, normalizeHeader(hint.Amount)),
		debit:    -1,
		credit:   -1,
		category: findAny(headers, catHeaders),
	}
	if s.date < 0 || s.desc < 0 || s.amount < 0 {
		return nil
	}
	return s
}

func singleAmountSchema(headers []string) *schema {
	s := &schema{
		name:     "single-amount",
		date:     findAny(headers, dateHeaders),
		desc:     findAny(headers, descHeaders),
		amount:   findAny(headers, amountHeaders),
		debit:    -1,
		credit:   -1,
		category: findAny(headers, catHeaders),
	}
	if s.date < 0 || s.desc < 0 || s.amount < 0 {
		return nil
	}
	return s
}

func splitAmountSchema(headers []string) *schema {
	s := &schema{
		name:     "debit-credit",
		date:     findAny(headers, dateHeaders),
		desc:     findAny(headers, descHeaders),
		amount:   -1,
		debit:    findAny(headers, debitHeaders),
		credit:   findAny(headers, creditHeaders),
		category: findAny(headers, catHeaders),
	}
	if s.date < 0 || s.desc < 0 || s.debit < 0 || s.credit < 0 {
		return nil
	}
	return s
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF") // exporters love BOMs
	return strings.ToLower(strings.TrimSpace(h))
}

func indexOf(headers []string, want string) int {
	for i, h := range headers {
		if h == want {
			return i
		}
	}
	return -1
}

func findAny(headers []string, candidates []string) int {
	for _, c := range candidates {
		if i := indexOf(headers, c); i >= 0 {
			return i
		}
	}
	return -1
}
