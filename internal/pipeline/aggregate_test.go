package pipeline

import (
	"reflect"
	"testing"

	"budgetviz/internal/core"
)

func tx(date string, desc, category string, cents int64, currency string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		Date:        d,
		Description: desc,
		Category:    category,
		Amount:      core.Money{Cents: cents},
		Currency:    currency,
	}
}

// The two-transaction fixture from the acceptance scenarios: Grocery £50.00
// and Rent £1500.00, both on 2024-03-01.
func marchTransactions() []core.Transaction {
	return []core.Transaction{
		tx("2024-03-01", "Weekly shop", "Grocery", 5000, "GBP"),
		tx("2024-03-01", "March rent", "Rent", 150000, "GBP"),
	}
}

func mustTable(t *testing.T, txs []core.Transaction, opts Options) Table {
	t.Helper()
	table, err := BuildTable(txs, opts)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	return table
}

func TestAggregateMonthly(t *testing.T) {
	table := mustTable(t, marchTransactions(), Options{Granularity: core.Monthly})
	agg := Aggregate(table, Filters{Years: []int{2024}})

	if len(agg.ByPeriod) != 1 {
		t.Fatalf("ByPeriod = %+v", agg.ByPeriod)
	}
	got := agg.ByPeriod[0]
	if got.Period != "2024-03" || got.Category != TotalCategory || got.Amount.Cents != 155000 {
		t.Fatalf("period total = %+v, want 2024-03 Total 155000", got)
	}

	want := []AggregateRow{
		{Period: "2024-03", Category: "Grocery", Amount: core.Money{Cents: 5000}},
		{Period: "2024-03", Category: "Rent", Amount: core.Money{Cents: 150000}},
	}
	if !reflect.DeepEqual(agg.ByPeriodCategory, want) {
		t.Fatalf("ByPeriodCategory = %+v, want %+v", agg.ByPeriodCategory, want)
	}

	if agg.Total.Cents != 155000 || agg.PeriodCount != 1 || agg.AveragePerPeriod.Cents != 155000 {
		t.Fatalf("scalars = %+v", agg)
	}
}

func TestAggregateDisplayCurrency(t *testing.T) {
	table := mustTable(t, marchTransactions(), Options{Granularity: core.Monthly})
	agg, err := Aggregate(table, Filters{}).InCurrency("USD")
	if err != nil {
		t.Fatalf("InCurrency: %v", err)
	}
	// £1550.00 at rate 1.25 is $1937.50.
	if agg.Total.Cents != 193750 {
		t.Fatalf("USD total = %d cents, want 193750", agg.Total.Cents)
	}
	if agg.ByPeriod[0].Amount.Cents != 193750 {
		t.Fatalf("USD period total = %d", agg.ByPeriod[0].Amount.Cents)
	}

	if _, err := Aggregate(table, Filters{}).InCurrency("EUR"); err == nil {
		t.Fatal("unknown display currency must be rejected")
	}
}

func TestAggregateTotalsInvariant(t *testing.T) {
	txs := append(marchTransactions(),
		tx("2024-04-02", "Cinema", "Entertainment", 1799, "GBP"),
		tx("2024-04-09", "Train", "Transportation", 2450, "USD"),
		tx("2023-12-31", "Gift", "Gift", 3000, "RMB"),
	)
	for _, g := range []core.Granularity{core.Yearly, core.Monthly, core.Weekly} {
		table := mustTable(t, txs, Options{Granularity: g})
		for _, filters := range []Filters{
			{},
			{Years: []int{2024}},
			{Categories: []string{"Grocery", "Gift"}},
			{Years: []int{2023}, Categories: []string{"Gift"}},
		} {
			agg := Aggregate(table, filters)
			var byPeriod, byPair int64
			for _, row := range agg.ByPeriod {
				byPeriod += row.Amount.Cents
			}
			for _, row := range agg.ByPeriodCategory {
				byPair += row.Amount.Cents
			}
			if agg.Total.Cents != byPeriod || agg.Total.Cents != byPair {
				t.Fatalf("granularity %s filters %+v: total %d, byPeriod %d, byPair %d",
					g, filters, agg.Total.Cents, byPeriod, byPair)
			}
		}
	}
}

func TestAggregateEmptySelection(t *testing.T) {
	table := mustTable(t, marchTransactions(), Options{Granularity: core.Monthly})
	agg := Aggregate(table, Filters{Years: []int{1999}})

	if len(agg.ByPeriod) != 0 || len(agg.ByPeriodCategory) != 0 {
		t.Fatalf("expected no rows, got %+v", agg)
	}
	// Average is 0 with no periods, never a division error.
	if agg.Total.Cents != 0 || agg.PeriodCount != 0 || agg.AveragePerPeriod.Cents != 0 {
		t.Fatalf("scalars = %+v", agg)
	}
}

func TestAggregateNoZeroFill(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-01-10", "a", "Grocery", 100, "GBP"),
		tx("2024-03-10", "b", "Grocery", 100, "GBP"),
	}
	table := mustTable(t, txs, Options{Granularity: core.Monthly})
	agg := Aggregate(table, Filters{})
	// February has no transactions and therefore no row.
	if len(agg.ByPeriod) != 2 {
		t.Fatalf("ByPeriod = %+v", agg.ByPeriod)
	}
	if agg.ByPeriod[0].Period != "2024-01" || agg.ByPeriod[1].Period != "2024-03" {
		t.Fatalf("periods = %+v", agg.ByPeriod)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	txs := append(marchTransactions(),
		tx("2024-04-02", "Cinema", "Entertainment", 1799, "USD"),
	)
	opts := Options{Granularity: core.Weekly, CoarseCategories: true}
	filters := Filters{Years: []int{2024}}

	first := Aggregate(mustTable(t, txs, opts), filters)
	second := Aggregate(mustTable(t, txs, opts), filters)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("recomputation differs:\n%+v\n%+v", first, second)
	}
}

func TestAggregateCoarseCategories(t *testing.T) {
	txs := []core.Transaction{
		tx("2024-03-01", "rent", "Rent", 100000, "GBP"),
		tx("2024-03-05", "ikea", "Home Setup", 20000, "GBP"),
	}
	table := mustTable(t, txs, Options{Granularity: core.Monthly, CoarseCategories: true})
	agg := Aggregate(table, Filters{})

	if len(agg.ByPeriodCategory) != 1 {
		t.Fatalf("coarse rows = %+v", agg.ByPeriodCategory)
	}
	row := agg.ByPeriodCategory[0]
	if row.Category != "Living" || row.Amount.Cents != 120000 {
		t.Fatalf("coarse row = %+v, want Living 120000", row)
	}
}
