package pipeline

import (
	"math"
	"sort"

	"budgetviz/internal/core"
)

// TotalCategory is the sentinel category label on per-period total rows.
const TotalCategory = "Total"

// Filters restrict aggregation to the selected years and categories. Empty
// slices select everything.
type Filters struct {
	Years      []int
	Categories []string
}

func (f Filters) matcher() func(Row) bool {
	years := map[int]struct{}{}
	for _, y := range f.Years {
		years[y] = struct{}{}
	}
	cats := map[string]struct{}{}
	for _, c := range f.Categories {
		cats[c] = struct{}{}
	}
	return func(row Row) bool {
		if len(years) > 0 {
			if _, ok := years[row.Year]; !ok {
				return false
			}
		}
		if len(cats) > 0 {
			if _, ok := cats[row.Category]; !ok {
				return false
			}
		}
		return true
	}
}

// AggregateRow is one point of a chart projection: the summed base-currency
// amount for a period, or a (period, category) pair.
type AggregateRow struct {
	Period   string
	Category string
	Amount   core.Money
}

// Aggregation holds both chart projections plus the derived scalars shown in
// the summary. Amounts are in base-currency cents; display conversion happens
// in InCurrency.
type Aggregation struct {
	ByPeriod         []AggregateRow // category fixed to TotalCategory
	ByPeriodCategory []AggregateRow
	Total            core.Money
	PeriodCount      int
	AveragePerPeriod core.Money
}

type periodCategory struct {
	period   string
	category string
}

// Aggregate groups the filtered rows by period and by (period, category),
// summing base-currency amounts. Periods or categories without transactions
// produce no row. Output is sorted by period ascending (lexical order matches
// chronological for every key format), then category.
func Aggregate(table Table, filters Filters) Aggregation {
	match := filters.matcher()

	byPeriod := map[string]int64{}
	byPair := map[periodCategory]int64{}
	var total int64
	for _, row := range table.Rows() {
		if !match(row) {
			continue
		}
		byPeriod[row.Period] += row.Base.Cents
		byPair[periodCategory{row.Period, row.Category}] += row.Base.Cents
		total += row.Base.Cents
	}

	agg := Aggregation{
		ByPeriod:         make([]AggregateRow, 0, len(byPeriod)),
		ByPeriodCategory: make([]AggregateRow, 0, len(byPair)),
		Total:            core.Money{Cents: total},
		PeriodCount:      len(byPeriod),
	}
	for period, cents := range byPeriod {
		agg.ByPeriod = append(agg.ByPeriod, AggregateRow{
			Period:   period,
			Category: TotalCategory,
			Amount:   core.Money{Cents: cents},
		})
	}
	for pair, cents := range byPair {
		agg.ByPeriodCategory = append(agg.ByPeriodCategory, AggregateRow{
			Period:   pair.period,
			Category: pair.category,
			Amount:   core.Money{Cents: cents},
		})
	}

	sort.Slice(agg.ByPeriod, func(i, j int) bool {
		return agg.ByPeriod[i].Period < agg.ByPeriod[j].Period
	})
	sort.Slice(agg.ByPeriodCategory, func(i, j int) bool {
		a, b := agg.ByPeriodCategory[i], agg.ByPeriodCategory[j]
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.Category < b.Category
	})

	// Average is 0, not an error, when nothing matched.
	if agg.PeriodCount > 0 {
		avg := math.Round(float64(total) / float64(agg.PeriodCount))
		agg.AveragePerPeriod = core.Money{Cents: int64(avg)}
	}
	return agg
}

// InCurrency converts every amount to the given display currency. Group sums
// are converted independently, so converted projections can drift from the
// converted total by a cent; callers comparing them should compare in base
// currency instead.
func (a Aggregation) InCurrency(code string) (Aggregation, error) {
	out := Aggregation{
		ByPeriod:         make([]AggregateRow, len(a.ByPeriod)),
		ByPeriodCategory: make([]AggregateRow, len(a.ByPeriodCategory)),
		PeriodCount:      a.PeriodCount,
	}
	var err error
	if out.Total, err = core.FromBase(a.Total, code); err != nil {
		return Aggregation{}, err
	}
	if out.AveragePerPeriod, err = core.FromBase(a.AveragePerPeriod, code); err != nil {
		return Aggregation{}, err
	}
	for i, row := range a.ByPeriod {
		if row.Amount, err = core.FromBase(row.Amount, code); err != nil {
			return Aggregation{}, err
		}
		out.ByPeriod[i] = row
	}
	for i, row := range a.ByPeriodCategory {
		if row.Amount, err = core.FromBase(row.Amount, code); err != nil {
			return Aggregation{}, err
		}
		out.ByPeriodCategory[i] = row
	}
	return out, nil
}
