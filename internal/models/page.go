package models

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps Offset far below the int range on every platform.
	MaxPage = 100000
)

// Page is a 1-based page/limit pair.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// PagedResult wraps a listing with its total count.
type PagedResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func NewPagedResult[T any](items []T, total int, p Page) PagedResult[T] {
	n := p.Normalize()
	if items == nil {
		items = []T{}
	}
	return PagedResult[T]{Items: items, Total: total, Page: n.Page, Limit: n.Limit}
}
