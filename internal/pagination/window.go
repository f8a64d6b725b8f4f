// Package pagination computes the bounded page-control row rendered under
// paginated listings: first and last page, the current page with its
// neighbors, and ellipsis markers for the gaps.
package pagination

// Item is one slot in the control row: either a clickable page number or a
// non-clickable ellipsis marker.
type Item struct {
	Page     int
	Ellipsis bool
}

// Window returns the control row for the given 1-based current page and total
// page count. It always includes page 1 and the last page, plus current ±1,
// deduplicated and ascending; any gap wider than one page collapses to a
// single ellipsis item. A total of one page or fewer yields no items.
func Window(page, pages int) []Item {
	if pages <= 1 {
		return nil
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	include := func(n int) bool {
		if n == 1 || n == pages {
			return true
		}
		return n >= page-1 && n <= page+1
	}

	var items []Item
	prev := 0
	for n := 1; n <= pages; n++ {
		if !include(n) {
			continue
		}
		if prev != 0 && n-prev > 1 {
			items = append(items, Item{Ellipsis: true})
		}
		items = append(items, Item{Page: n})
		prev = n
	}
	return items
}

// HasPrev reports whether a Previous control should be enabled.
func HasPrev(page int) bool {
	return page > 1
}

// HasNext reports whether a Next control should be enabled.
func HasNext(page, pages int) bool {
	return page < pages
}
