package paging

// PageInfo is a pure function of (total, pageSize, requested page).
// Recompute it whenever the total changes so the current page can never
// point past the end of a freshly narrowed result set.
type PageInfo struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

func New(total, pageSize, requested int) PageInfo {
	if pageSize < 1 {
		pageSize = 1
	}
	if total < 0 {
		total = 0
	}
	count := (total + pageSize - 1) / pageSize
	if count < 1 {
		count = 1
	}
	page := requested
	if page < 1 {
		page = 1
	}
	if page > count {
		page = count
	}
	return PageInfo{
		Page:      page,
		PageSize:  pageSize,
		PageCount: count,
		Total:     total,
	}
}

// GoTo reports false and leaves the info untouched when n falls outside
// the valid range. Callers treat false as "ignored", not as an error.
func (p PageInfo) GoTo(n int) (PageInfo, bool) {
	if n < 1 || n > p.PageCount {
		return p, false
	}
	p.Page = n
	return p, true
}

func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func (p PageInfo) HasPrev() bool {
	return p.Page > 1
}

func (p PageInfo) HasNext() bool {
	return p.Page < p.PageCount
}
