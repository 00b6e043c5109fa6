package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homemoney/internal/core"
)

func mkTx(date core.Date, desc string, cents int64) core.Transaction {
	return core.Transaction{Date: date, Description: desc, Amount: core.Money{Cents: cents}}
}

func sampleSet() []core.Transaction {
	txs := []core.Transaction{
		mkTx(core.NewDate(2024, 1, 5), "COFFEE SHOP #1041", -450),
		mkTx(core.NewDate(2024, 1, 20), "Coffee Shop #2210", -520),
		mkTx(core.NewDate(2024, 1, 31), "ACME PAYROLL", 250000),
		mkTx(core.NewDate(2024, 3, 2), "GROCERY MART", -8012),
		mkTx(core.NewDate(2024, 3, 15), "TRANSFER TO SAVINGS", -50000),
	}
	txs[0].Category = "Dining"
	txs[1].Category = "Dining"
	txs[4].Ignored = true
	return txs
}

func TestAggregateByMonth(t *testing.T) {
	groups := Aggregate(sampleSet(), ByMonth, Window{})
	require.Len(t, groups, 2)
	assert.Equal(t, "2024-01", groups[0].Key)
	assert.Equal(t, int64(-450-520+250000), groups[0].Total.Cents)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "2024-03", groups[1].Key)
	assert.Equal(t, int64(-8012), groups[1].Total.Cents) // ignored transfer excluded
	assert.Equal(t, 1, groups[1].Count)
}

func TestAggregateTotalsMatchSourceSet(t *testing.T) {
	txs := sampleSet()
	var want int64
	for _, tx := range txs {
		if !tx.Ignored {
			want += tx.Amount.Cents
		}
	}
	for _, by := range []GroupBy{ByMonth, ByCategory, ByPayee} {
		var got int64
		for _, g := range Aggregate(txs, by, Window{}) {
			got += g.Total.Cents
		}
		assert.Equalf(t, want, got, "grouping by %s must preserve the overall sum", by)
	}
}

func TestAggregateByCategory(t *testing.T) {
	groups := Aggregate(sampleSet(), ByCategory, Window{})
	require.Len(t, groups, 2)
	assert.Equal(t, "Dining", groups[0].Key)
	assert.Equal(t, int64(-970), groups[0].Total.Cents)
	assert.Equal(t, Uncategorized, groups[1].Key)
	assert.Equal(t, 2, groups[1].Count)
}

func TestAggregateByPayeeBucketsStoreNumbers(t *testing.T) {
	groups := Aggregate(sampleSet(), ByPayee, Window{})
	var coffee *Group
	for i := range groups {
		if groups[i].Key == "coffee shop" {
			coffee = &groups[i]
		}
	}
	require.NotNil(t, coffee, "store-numbered variants should share one payee bucket")
	assert.Equal(t, 2, coffee.Count)
	assert.Equal(t, int64(-970), coffee.Total.Cents)
}

func TestAggregateWindowInclusive(t *testing.T) {
	w := Window{From: core.NewDate(2024, 1, 5), To: core.NewDate(2024, 1, 31)}
	groups := Aggregate(sampleSet(), ByMonth, w)
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].Count, "both window bounds are inclusive")
}

func TestTrendFillsGapMonths(t *testing.T) {
	txs := []core.Transaction{
		mkTx(core.NewDate(2024, 1, 5), "A", -100),
		mkTx(core.NewDate(2024, 3, 5), "B", -200),
	}
	points := Trend(txs, MetricTotal, Window{})
	require.Len(t, points, 3)
	assert.Equal(t, Point{Month: "2024-01", Value: -100}, points[0])
	assert.Equal(t, Point{Month: "2024-02", Value: 0}, points[1], "gap month must be present with zero")
	assert.Equal(t, Point{Month: "2024-03", Value: -200}, points[2])
}

func TestTrendCountMetric(t *testing.T) {
	points := Trend(sampleSet(), MetricCount, Window{})
	require.Len(t, points, 3)
	assert.Equal(t, int64(3), points[0].Value)
	assert.Equal(t, int64(0), points[1].Value)
	assert.Equal(t, int64(1), points[2].Value)
}

func TestTrendWindowBoundsSeries(t *testing.T) {
	txs := []core.Transaction{mkTx(core.NewDate(2024, 2, 10), "A", -100)}
	w := Window{From: core.NewDate(2024, 1, 1), To: core.NewDate(2024, 4, 30)}
	points := Trend(txs, MetricTotal, w)
	require.Len(t, points, 4, "series should span the requested window, not just the data")
	assert.Equal(t, "2024-01", points[0].Month)
	assert.Equal(t, "2024-04", points[3].Month)
}

func TestTrendEmptySet(t *testing.T) {
	assert.Nil(t, Trend(nil, MetricTotal, Window{}))
}

func TestAggregateCrossesYearBoundary(t *testing.T) {
	txs := []core.Transaction{
		mkTx(core.NewDate(2023, 12, 31), "A", -100),
		mkTx(core.NewDate(2024, 1, 1), "B", -200),
	}
	groups := Aggregate(txs, ByMonth, Window{})
	require.Len(t, groups, 2)
	assert.Equal(t, "2023-12", groups[0].Key)
	assert.Equal(t, "2024-01", groups[1].Key)

	points := Trend(txs, MetricTotal, Window{})
	require.Len(t, points, 2)
}
