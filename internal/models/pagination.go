package models

// PageRequest is a validated page window for list queries.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
	return p
}

// Offset returns the SQL offset for the page window.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}
