package core

import "sort"

// coarseCategories maps fine-grained transaction categories onto the smaller
// set used when the "higher category" option is on. Unmapped labels pass
// through unchanged (identity fallback), so the remap is total and never
// yields an empty category.
var coarseCategories = map[string]string{
	"Education":      "Others",
	"Travel":         "Travel",
	"Health":         "Others",
	"Miscellaneous":  "Others",
	"Entertainment":  "Entertainment & Shopping",
	"Shopping":       "Entertainment & Shopping",
	"Transportation": "Transportation",
	"Flight":         "Transportation",
	"Living":         "Living",
	"Rent":           "Living",
	"Home Setup":     "Living",
	"Restaurant":     "Restaurant",
	"Grocery":        "Grocery",
	"Gift":           "Gift",
	"Investment":     "Investment",
}

// CoarseCategory returns the higher-level label for a fine-grained category,
// or the input unchanged when no mapping exists.
func CoarseCategory(category string) string {
	if coarse, ok := coarseCategories[category]; ok {
		return coarse
	}
	return category
}

// RemapCategory applies the coarse mapping when enabled and is the identity
// otherwise.
func RemapCategory(category string, enabled bool) string {
	if !enabled {
		return category
	}
	return CoarseCategory(category)
}

// FineCategories returns the known fine-grained categories, sorted.
func FineCategories() []string {
	cats := make([]string, 0, len(coarseCategories))
	for cat := range coarseCategories {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}
