package services

import (
	"sort"

	"market-dss/models"
)

// categoryRow is one (record, category) pair of an exploded dataset. row
// indexes the source record.
type categoryRow struct {
	row      int
	category string
}

// explode duplicates every record once per category label. Records without
// labels produce no rows. Labels equal after trimming are the same category.
func explode(n int, labelsOf func(i int) string) []categoryRow {
	out := make([]categoryRow, 0, n)
	for i := 0; i < n; i++ {
		for _, c := range models.SplitCategories(labelsOf(i)) {
			out = append(out, categoryRow{row: i, category: c})
		}
	}
	return out
}

// sortedKeys returns the keys of m in ascending order, the base order on
// which ranked results are stable-sorted.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// countBy counts records per non-empty key.
func countBy(n int, keyOf func(i int) string) map[string]int {
	counts := make(map[string]int)
	for i := 0; i < n; i++ {
		if k := keyOf(i); k != "" {
			counts[k]++
		}
	}
	return counts
}
