// Package aggregate computes grouped views over the transaction set.
// Views are derived on every call and never cached: a total can only be
// wrong if the source set is wrong.
package aggregate

import (
	"sort"
	"time"

	"homemoney/internal/core"
)

type GroupBy string

const (
	ByMonth    GroupBy = "month"
	ByCategory GroupBy = "category"
	ByPayee    GroupBy = "payee"
)

type Metric string

const (
	MetricTotal Metric = "total"
	MetricCount Metric = "count"
)

// Uncategorized is the group key for transactions with no category.
const Uncategorized = "uncategorized"

// Window bounds a view by date, inclusive on both ends. A zero bound is
// open.
type Window struct {
	From core.Date
	To   core.Date
}

func (w Window) contains(d core.Date) bool {
	if !w.From.IsZero() && d.Time.Before(w.From.Time) {
		return false
	}
	if !w.To.IsZero() && d.Time.After(w.To.Time) {
		return false
	}
	return true
}

// Group is one bucket of an aggregate view.
type Group struct {
	Key   string
	Total core.Money
	Count int
}

// Point is one month of a trend series.
type Point struct {
	Month string // "YYYY-MM"
	Value int64  // cents for MetricTotal, transactions for MetricCount
}

// Aggregate buckets the non-ignored transactions inside the window by
// the requested key and sums their signed amounts in cents. Groups come
// back ordered by key ascending, which is chronological for months and
// alphabetical for categories and payees.
func Aggregate(txs []core.Transaction, by GroupBy, w Window) []Group {
	buckets := make(map[string]*Group)
	for i := range txs {
		t := &txs[i]
		if t.Ignored || !w.contains(t.Date) {
			continue
		}
		key := groupKey(t, by)
		g, ok := buckets[key]
		if !ok {
			g = &Group{Key: key}
			buckets[key] = g
		}
		g.Total.Cents += t.Amount.Cents
		g.Count++
	}

	out := make([]Group, 0, len(buckets))
	for _, g := range buckets {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Trend is the monthly series for charting. Unlike Aggregate it never
// omits a month: gaps between the first and last month of the series
// appear with value 0, so time axes stay continuous.
func Trend(txs []core.Transaction, metric Metric, w Window) []Point {
	monthly := Aggregate(txs, ByMonth, w)
	if len(monthly) == 0 {
		return nil
	}

	byKey := make(map[string]Group, len(monthly))
	for _, g := range monthly {
		byKey[g.Key] = g
	}

	start := monthStart(monthly[0].Key)
	end := monthStart(monthly[len(monthly)-1].Key)
	if !w.From.IsZero() {
		start = time.Date(w.From.Year(), w.From.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if !w.To.IsZero() {
		end = time.Date(w.To.Year(), w.To.Time.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	var out []Point
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		var v int64
		if g, ok := byKey[key]; ok {
			if metric == MetricCount {
				v = int64(g.Count)
			} else {
				v = g.Total.Cents
			}
		}
		out = append(out, Point{Month: key, Value: v})
	}
	return out
}

func groupKey(t *core.Transaction, by GroupBy) string {
	switch by {
	case ByCategory:
		if t.Category == "" {
			return Uncategorized
		}
		return t.Category
	case ByPayee:
		return core.PayeeKey(t.Description)
	default:
		return t.Date.MonthKey()
	}
}

func monthStart(key string) time.Time {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return time.Time{}
	}
	return t
}
