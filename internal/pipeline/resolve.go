package pipeline

import (
	"fmt"
	"sort"

	"budgetviz/internal/core"
)

const (
	// DefaultTolerance is the maximum distance, in whole display-currency
	// units, between a clicked chart value and a group sum for the group to
	// count as a match.
	DefaultTolerance = 5

	// DefaultDetailLimit caps the rows returned for one resolved group.
	DefaultDetailLimit = 100
)

// DetailRow is one transaction as presented in a drill-down table, with the
// amount converted to the requested display currency at two decimals.
type DetailRow struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
}

// ResolveOptions tune the reverse lookup. Zero values select the defaults.
type ResolveOptions struct {
	Tolerance int64
	Limit     int
}

func (o ResolveOptions) withDefaults() ResolveOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Limit <= 0 {
		o.Limit = DefaultDetailLimit
	}
	return o
}

// ResolveDetails maps a clicked chart point back to its detail rows. The
// click carries only the period and the displayed amount, which went through
// currency conversion and whole-unit rounding, so an exact match is not
// possible; the group whose re-computed sum lies within the tolerance wins,
// and when several do (or none), the one with the minimum absolute difference
// is taken. Rows come back sorted by amount descending, capped at opts.Limit.
// A period with no groups at all resolves to an empty slice, not an error.
func ResolveDetails(table Table, period string, approxAmount int64, currency string, opts ResolveOptions) ([]DetailRow, error) {
	if _, err := core.Rate(currency); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	// Chart labels round every amount to whole display units before summing;
	// the same lossy projection has to be reproduced here.
	sums := map[string]int64{}
	for _, row := range table.Rows() {
		if row.Period != period {
			continue
		}
		display, err := core.FromBase(row.Base, currency)
		if err != nil {
			return nil, err
		}
		sums[row.Category] += display.WholeUnits()
	}
	if len(sums) == 0 {
		return nil, nil
	}

	// Prefer groups within tolerance of the click; two groups can both
	// qualify, in which case the nearest wins. With no group in tolerance the
	// nearest one is the fallback.
	candidates := map[string]int64{}
	for category, sum := range sums {
		if abs64(sum-approxAmount) <= opts.Tolerance {
			candidates[category] = sum
		}
	}
	if len(candidates) == 0 {
		candidates = sums
	}
	category, _ := closestGroup(candidates, approxAmount)

	rows, err := collectDetails(table, period, category, currency)
	if err != nil {
		return nil, err
	}
	if len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}
	return rows, nil
}

// closestGroup returns the category whose sum is nearest the target,
// breaking ties by label so resolution is deterministic.
func closestGroup(sums map[string]int64, target int64) (string, int64) {
	best := ""
	var bestDiff int64 = -1
	for category, sum := range sums {
		diff := abs64(sum - target)
		if bestDiff < 0 || diff < bestDiff || (diff == bestDiff && category < best) {
			best = category
			bestDiff = diff
		}
	}
	return best, bestDiff
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// DetailsForCategory returns the drill-down rows for an exact
// (period, category) pair, the lookup the REST details endpoint performs.
// The period key must be well-formed for its granularity.
func DetailsForCategory(table Table, period, category, currency string) ([]DetailRow, error) {
	if _, err := core.InferGranularity(period); err != nil {
		return nil, err
	}
	if _, err := core.Rate(currency); err != nil {
		return nil, err
	}
	return collectDetails(table, period, category, currency)
}

func collectDetails(table Table, period, category, currency string) ([]DetailRow, error) {
	var rows []DetailRow
	for _, row := range table.Rows() {
		if row.Period != period || row.Category != category {
			continue
		}
		display, err := core.FromBase(row.Base, currency)
		if err != nil {
			return nil, fmt.Errorf("convert detail row: %w", err)
		}
		rows = append(rows, DetailRow{
			Date:        row.Date.String(),
			Description: row.Description,
			Category:    row.Category,
			Amount:      display.Units(),
			Currency:    currency,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount > rows[j].Amount
	})
	return rows, nil
}
