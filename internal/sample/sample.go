// Package sample produces realistic demo statements so a fresh install
// has something to import before any real bank export exists.
package sample

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"homemoney/internal/core"
)

type profile struct {
	category string
	payees   []string
	minCents int64
	maxCents int64
}

var profiles = []profile{
	{"groceries", []string{"Walmart", "Target", "Whole Foods", "Trader Joes", "Kroger", "Costco", "Safeway"}, 2000, 20000},
	{"dining", []string{"Restaurant", "Cafe", "Coffee Shop", "Fast Food", "Pizza Place", "Food Delivery"}, 1000, 10000},
	{"transportation", []string{"Gas Station", "Uber", "Lyft", "Public Transit", "Parking"}, 1500, 15000},
	{"shopping", []string{"Amazon", "Department Store", "Clothing Store", "Electronics Store", "Home Goods"}, 2500, 30000},
	{"entertainment", []string{"Movie Theater", "Streaming Service", "Concert", "Gym", "Hobby Store"}, 1000, 20000},
	{"utilities", []string{"Electric Bill", "Water Bill", "Internet", "Phone Bill", "Gas Bill"}, 5000, 30000},
	{"housing", []string{"Rent", "Home Repair", "Home Insurance", "Property Tax"}, 50000, 300000},
	{"healthcare", []string{"Doctor Visit", "Pharmacy", "Dental", "Medical Bill"}, 2000, 50000},
}

// Options for a generated statement.
type Options struct {
	Count int       // number of rows, default 200
	From  core.Date // default one year before To
	To    core.Date // default today
	Seed  int64     // same seed, same statement
}

// Generate returns a date-sorted batch of plausible spending rows plus
// a monthly salary credit, spread over the window.
func Generate(opts Options) []core.Transaction {
	if opts.Count <= 0 {
		opts.Count = 200
	}
	if opts.To.IsZero() {
		now := time.Now().UTC()
		opts.To = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}
	if opts.From.IsZero() {
		f := opts.To.AddDate(-1, 0, 0)
		opts.From = core.Date{Time: f}
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	days := int(opts.To.Sub(opts.From.Time).Hours()/24) + 1
	if days < 1 {
		days = 1
	}

	txs := make([]core.Transaction, 0, opts.Count+12)
	for i := 0; i < opts.Count; i++ {
		p := profiles[rng.Intn(len(profiles))]
		d := opts.From.AddDate(0, 0, rng.Intn(days))
		cents := p.minCents + rng.Int63n(p.maxCents-p.minCents+1)
		txs = append(txs, core.Transaction{
			Date:        core.Date{Time: d},
			Description: p.payees[rng.Intn(len(p.payees))],
			Amount:      core.Money{Cents: -cents},
			Category:    p.category,
		})
	}

	// One salary credit on the first of each month in the window.
	for m := monthFirst(opts.From.Time); !m.After(opts.To.Time); m = m.AddDate(0, 1, 0) {
		if m.Before(opts.From.Time) {
			continue
		}
		txs = append(txs, core.Transaction{
			Date:        core.Date{Time: m},
			Description: "Monthly Salary",
			Amount:      core.Money{Cents: 350000},
			Category:    "income",
		})
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Time.Before(txs[j].Date.Time)
	})
	return txs
}

// CSV renders the batch as a four-column statement, the shape the
// importer detects without any mapping hint.
func CSV(txs []core.Transaction) []byte {
	var b strings.Builder
	b.WriteString("Date,Description,Amount,Category\n")
	for _, t := range txs {
		fmt.Fprintf(&b, "%s,%s,%s,%s\n", t.Date.ISO(), t.Description, t.Amount, t.Category)
	}
	return []byte(b.String())
}

func monthFirst(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
