package pipeline

import (
	"sort"

	"budgetviz/internal/core"
)

// Options select how the canonical transactions are projected into a table:
// the time-bucketing resolution and whether categories are remapped to their
// higher-level labels.
type Options struct {
	Granularity      core.Granularity
	CoarseCategories bool
}

// Row is one normalized, bucketed transaction. Category carries the
// (possibly remapped) label; Base is the amount converted to the base
// currency. The original transaction fields are retained untouched so detail
// views can show them.
type Row struct {
	Date        core.Date
	Description string
	Category    string
	Amount      core.Money
	Currency    string
	Base        core.Money
	Year        int
	Period      string
}

// Table is an immutable tabular view over the canonical transactions under
// one set of options. Build a fresh one whenever options change; rows are
// never mutated after construction.
type Table struct {
	rows []Row
	opts Options
}

// BuildTable derives a table from canonical transactions. The only error
// source is an unknown transaction currency, which normalization already
// rules out for uploaded data.
func BuildTable(txs []core.Transaction, opts Options) (Table, error) {
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		base, err := core.ToBase(tx.Amount, tx.Currency)
		if err != nil {
			return Table{}, err
		}
		year, period := core.Bucket(tx.Date.Time, opts.Granularity)
		rows = append(rows, Row{
			Date:        tx.Date,
			Description: tx.Description,
			Category:    core.RemapCategory(tx.Category, opts.CoarseCategories),
			Amount:      tx.Amount,
			Currency:    tx.Currency,
			Base:        base,
			Year:        year,
			Period:      period,
		})
	}
	return Table{rows: rows, opts: opts}, nil
}

// Rows exposes the underlying rows. Callers must treat them as read-only.
func (t Table) Rows() []Row {
	return t.rows
}

func (t Table) Len() int {
	return len(t.rows)
}

func (t Table) Options() Options {
	return t.opts
}

// Categories returns the distinct (post-remap) category labels, sorted.
func (t Table) Categories() []string {
	seen := map[string]struct{}{}
	var cats []string
	for _, row := range t.rows {
		if _, ok := seen[row.Category]; !ok {
			seen[row.Category] = struct{}{}
			cats = append(cats, row.Category)
		}
	}
	sort.Strings(cats)
	return cats
}

// Years returns the distinct calendar years present, ascending.
func (t Table) Years() []int {
	seen := map[int]struct{}{}
	var years []int
	for _, row := range t.rows {
		if _, ok := seen[row.Year]; !ok {
			seen[row.Year] = struct{}{}
			years = append(years, row.Year)
		}
	}
	sort.Ints(years)
	return years
}
