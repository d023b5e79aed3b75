package filter

import (
	"sort"

	"kiddeo/internal/models"
)

// PageResult is one page of ranked events.
type PageResult struct {
	Items      []*models.Event `json:"items"`
	TotalCount int             `json:"totalCount"`
	TotalPages int             `json:"totalPages"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	HasMore    bool            `json:"hasMore"`
}

// RankAndPaginate sorts the fully filtered events by RankingOrder and
// returns the requested page. page is 1-based; pageSize <= 0 means 20.
func RankAndPaginate(events []*models.Event, page, pageSize int) PageResult {
	page, pageSize = normalizePage(page, pageSize)

	sorted := make([]*models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareEvents(sorted[i], sorted[j], RankingOrder) < 0
	})

	start := pageOffset(page, pageSize, len(sorted))
	end := start + pageSize
	if end > len(sorted) {
		end = len(sorted)
	}

	return newPageResult(sorted[start:end], len(sorted), page, pageSize)
}

func newPageResult(items []*models.Event, total, page, pageSize int) PageResult {
	totalPages := (total + pageSize - 1) / pageSize
	if items == nil {
		items = []*models.Event{}
	}
	return PageResult{
		Items:      items,
		TotalCount: total,
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    page < totalPages,
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// pageOffset returns the index of the first item on page, clamped to limit.
// The comparison is done before multiplying so large pages cannot overflow.
func pageOffset(page, pageSize, limit int) int {
	if page-1 > limit/pageSize {
		return limit
	}
	start := (page - 1) * pageSize
	if start > limit {
		return limit
	}
	return start
}
