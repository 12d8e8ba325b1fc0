package core

import "strings"

// NormalizeCategory derives the comparison key for a category: trimmed and
// lower-cased. "Food", " food " and "FOOD" all normalize to "food"; the
// display string keeps its original casing.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
