package pipeline

import "go-grid-engine/internal/model"

// Paginate returns rows [page*pageSize, page*pageSize+pageSize) clipped to
// bounds. A nil page or pageSize, or a pageSize below 1, returns everything.
// Out-of-range pages are empty, never an error.
func Paginate(rows []model.Row, page, pageSize *int) []model.Row {
	if page == nil || pageSize == nil || *pageSize <= 0 {
		return rows
	}
	// page*pageSize >= len(rows), checked without multiplying
	if *page < 0 || len(rows) == 0 || *page > (len(rows)-1) / *pageSize {
		return []model.Row{}
	}

	start := *page * *pageSize
	end := len(rows)
	if *pageSize < end-start {
		end = start + *pageSize
	}
	return rows[start:end]
}
