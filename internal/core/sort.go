package core

// SortOrder selects the total order for expense listings. Every option has a
// deterministic tie-break so equal primary keys still list identically on
// every call.
type SortOrder string

const (
	SortDateDesc     SortOrder = "date_desc"     // tx date desc, then created_at desc
	SortDateAsc      SortOrder = "date_asc"      // tx date asc, then created_at asc
	SortAmountDesc   SortOrder = "amount_desc"   // amount desc, then tx date desc
	SortAmountAsc    SortOrder = "amount_asc"    // amount asc, then tx date desc
	SortCategoryAsc  SortOrder = "category_asc"  // category key asc, then tx date desc
	SortCategoryDesc SortOrder = "category_desc" // category key desc, then tx date desc
	SortCreatedDesc  SortOrder = "created_desc"  // default
)

// ParseSortOrder maps a query-string value to a SortOrder. Unrecognized or
// empty input falls back to SortCreatedDesc rather than failing.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortDateDesc, SortDateAsc, SortAmountDesc, SortAmountAsc,
		SortCategoryAsc, SortCategoryDesc, SortCreatedDesc:
		return SortOrder(s)
	default:
		return SortCreatedDesc
	}
}
