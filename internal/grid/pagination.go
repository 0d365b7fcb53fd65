package grid

// PageSize is the number of members shown per page.
const PageSize = 10

// Window is the 1-based inclusive display range for a page plus the total
// shown in the pager ("showing Start–End of Total").
type Window struct {
	Start int
	End   int
	Total int
}

// windowFor computes the display range for page against visibleTotal.
func windowFor(page, visibleTotal int) Window {
	start := page*PageSize + 1
	end := (page + 1) * PageSize
	if end > visibleTotal {
		end = visibleTotal
	}
	return Window{Start: start, End: end, Total: visibleTotal}
}

// Window returns the display range for the current page. It is not clamped:
// a page past the end yields Start > End.
func (s State) Window() Window {
	return windowFor(s.Page, s.VisibleTotal)
}

// lastPage is the index of the last page that still holds at least one row.
func lastPage(visibleTotal int) int {
	if visibleTotal <= 0 {
		return 0
	}
	return (visibleTotal - 1) / PageSize
}

// clampPage bounds page to [0, lastPage(visibleTotal)].
func clampPage(page, visibleTotal int) int {
	if page < 0 {
		return 0
	}
	if last := lastPage(visibleTotal); page > last {
		return last
	}
	return page
}

func (s State) totalChanged(total int) State {
	if total == s.AuthoritativeTotal {
		return s
	}
	s.AuthoritativeTotal = total
	s.VisibleTotal = total
	return s
}

func (s State) goToPage(page int) (State, []Effect) {
	s.Page = page
	s.Loading = true
	effects := []Effect{LoadPage{Page: page}}
	// The remote call is fire-and-forget; bookkeeping is done once it is issued.
	s.Loading = false
	return s, effects
}
