// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request
// data, consolidating the query-parameter handling shared by the JSON API
// and the dashboard partials.

package http

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"budgetviz/internal/core"
)

// QueryOptions holds the projection parameters shared by every chart and
// summary endpoint.
type QueryOptions struct {
	Granularity core.Granularity
	Coarse      bool
	Currency    string
	Years       []int
	Categories  []string
}

// ParseQueryOptions extracts the projection parameters from query values.
// time_period defaults to monthly when absent, currency to the base
// currency. Unknown granularities, currencies and non-numeric years are
// errors.
func ParseQueryOptions(query url.Values) (QueryOptions, error) {
	opts := QueryOptions{
		Coarse:   parseBoolParam(query.Get("use_higher_category")),
		Currency: core.BaseCurrency,
	}

	g, err := core.ParseGranularity(strings.TrimSpace(query.Get("time_period")))
	if err != nil {
		return QueryOptions{}, err
	}
	opts.Granularity = g

	if c := strings.TrimSpace(query.Get("currency")); c != "" {
		if _, err := core.Rate(c); err != nil {
			return QueryOptions{}, err
		}
		opts.Currency = c
	}

	for _, v := range query["years"] {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		year, err := strconv.Atoi(v)
		if err != nil {
			return QueryOptions{}, fmt.Errorf("invalid year %q", v)
		}
		opts.Years = append(opts.Years, year)
	}

	for _, v := range query["categories"] {
		if v = strings.TrimSpace(v); v != "" {
			opts.Categories = append(opts.Categories, v)
		}
	}

	return opts, nil
}

// parseBoolParam treats "true", "1" and "on" (the checkbox value) as true.
func parseBoolParam(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true
	}
	return false
}

// cacheKey derives a stable cache key from the session generation and the
// full query string. Multi-valued parameters are order-sensitive in raw
// form, so keys and values are sorted first.
func cacheKey(generation uint64, query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "g%d", generation)
	for _, k := range keys {
		vals := append([]string(nil), query[k]...)
		sort.Strings(vals)
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.Join(vals, ","))
	}
	return b.String()
}
