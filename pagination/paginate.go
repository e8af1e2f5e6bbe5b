package pagination

// Paginate cuts one page out of items, which must already be ordered
// newest first. It returns the page and, when more items follow, the range
// for the next page.
func Paginate[T any](items []T, r RangeHeader, id func(T) uint64) ([]T, *RangeHeader) {
	if r.Max <= 0 {
		r.Max = DefaultLimit
	}

	page := make([]T, 0, min(r.Max, len(items)))
	for _, it := range items {
		if !r.Includes(id(it)) {
			continue
		}
		if len(page) == r.Max {
			last := id(page[len(page)-1])
			next := r
			next.From, next.HasFrom, next.FromExclusive = last, true, true
			return page, &next
		}
		page = append(page, it)
	}

	return page, nil
}
