// Package rules applies the user's ordered ignore/categorize rules to
// the transaction set.
package rules

import (
	"homemoney/internal/core"
)

// Apply recomputes Category and Ignored for every transaction from the
// current rule list. Previous assignments are reset first, so deleting
// a rule and re-applying clears anything only that rule produced;
// running Apply twice is the same as running it once.
//
// Any matching ignore rule wins outright: the transaction is marked
// ignored, its category stays empty, and no further rules are
// consulted. Otherwise the first matching categorize rule in list order
// assigns the category. A transaction matching nothing keeps an empty
// category.
func Apply(ruleList []core.Rule, txs []core.Transaction) {
	for i := range txs {
		txs[i].Ignored = false
		txs[i].Category = ""

		if matchesAnyIgnore(ruleList, txs[i]) {
			txs[i].Ignored = true
			continue
		}
		for j := range ruleList {
			r := &ruleList[j]
			if r.Kind == core.RuleCategorize && r.Matcher.Matches(txs[i]) {
				txs[i].Category = r.Category
				break
			}
		}
	}
}

// matchesAnyIgnore checks every ignore rule regardless of position:
// ignore precedence is absolute, not an artifact of list order.
func matchesAnyIgnore(ruleList []core.Rule, t core.Transaction) bool {
	for j := range ruleList {
		r := &ruleList[j]
		if r.Kind == core.RuleIgnore && r.Matcher.Matches(t) {
			return true
		}
	}
	return false
}

// Categories returns the distinct category labels the rule list can
// assign, in list order.
func Categories(ruleList []core.Rule) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range ruleList {
		if r.Kind != core.RuleCategorize || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	return out
}
