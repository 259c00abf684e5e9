package grid

// TotalPages returns the number of pages needed to show n rows, never less
// than one. A non-positive page size counts as a single page.
func TotalPages(n, perPage int) int {
	if perPage <= 0 || n <= 0 {
		return 1
	}
	return (n + perPage - 1) / perPage
}

// ClampPage constrains page to [1, TotalPages(n, perPage)].
func ClampPage(page, n, perPage int) int {
	if page < 1 {
		return 1
	}
	if last := TotalPages(n, perPage); page > last {
		return last
	}
	return page
}

// PageBounds returns the half-open row range [start, end) covered by a
// 1-based page. Out-of-range pages yield an empty range at the boundary.
func PageBounds(n, page, perPage int) (start, end int) {
	if perPage <= 0 || page < 1 {
		return 0, 0
	}
	start = (page - 1) * perPage
	if start >= n {
		return n, n
	}
	end = min(start+perPage, n)
	return start, end
}

// Paginate returns a copy of the rows on a 1-based page. A page beyond the
// last one, or a non-positive page or page size, returns an empty slice.
func Paginate(rows []Row, page, perPage int) []Row {
	start, end := PageBounds(len(rows), page, perPage)
	out := make([]Row, end-start)
	copy(out, rows[start:end])
	return out
}
