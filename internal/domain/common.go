package domain

type Meta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}

type ListResult[T any] struct {
	Data []T   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// CalculateMeta derives page numbers from an offset/limit window.
func CalculateMeta(total int64, offset, limit int) *Meta {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	lastPage := int(total) / limit
	if int(total)%limit != 0 {
		lastPage++
	}
	if lastPage == 0 {
		lastPage = 1
	}

	return &Meta{
		CurrentPage: offset/limit + 1,
		PerPage:     limit,
		Total:       total,
		LastPage:    lastPage,
	}
}
