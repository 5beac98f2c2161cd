package discover

const windowSize = 5

// PageWindow returns up to five page numbers around page for a pager.
// Near either end the window is pinned so it always shows five pages
// when there are at least that many.
func PageWindow(page, totalPages int) []int {
	if totalPages < 1 {
		return []int{}
	}

	var start, end int
	switch {
	case totalPages <= windowSize:
		start, end = 1, totalPages
	case page <= 3:
		start, end = 1, windowSize
	case page >= totalPages-2:
		start, end = totalPages-windowSize+1, totalPages
	default:
		start, end = page-2, page+2
	}

	pages := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}
