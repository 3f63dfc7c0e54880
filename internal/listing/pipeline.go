package listing

import (
	"cmp"
	"slices"
)

// DefaultPageSize is the number of listings shown per page.
const DefaultPageSize = 10

// Page is one page of a filtered and ordered result.
type Page struct {
	Listings   []Listing `json:"listings"`
	Number     int       `json:"page"`
	Total      int       `json:"total"`
	TotalPages int       `json:"total_pages"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Ranked pairs a listing with its legacy score.
type Ranked struct {
	Listing
	Score int `json:"score"`
}

// RankedPage is one page of the score-ordered result.
type RankedPage struct {
	Listings   []Ranked `json:"listings"`
	Number     int      `json:"page"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
}

// SortByRecency orders listings newest first. Listings created at the same
// instant keep their relative order.
func SortByRecency(ls []Listing) {
	slices.SortStableFunc(ls, func(a, b Listing) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// SortByScore orders ranked listings by score, highest first, keeping input
// order among equal scores.
func SortByScore(rs []Ranked) {
	slices.SortStableFunc(rs, func(a, b Ranked) int {
		return cmp.Compare(b.Score, a.Score)
	})
}

// TotalPages returns how many pages n items fill at the given size. It is
// never less than one.
func TotalPages(n, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (n + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns the 1-based page of items. Pages outside the valid range
// yield an empty slice.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		size = DefaultPageSize
	}
	if page < 1 || page > TotalPages(len(items), size) {
		return []T{}
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}

// View runs the primary discovery flow: filter, order by recency, paginate.
func View(all []Listing, f Filters, p Preferences, page, pageSize int) Page {
	matched := Filter(all, f, p)
	SortByRecency(matched)
	return Page{
		Listings:   Paginate(matched, page, pageSize),
		Number:     page,
		Total:      len(matched),
		TotalPages: TotalPages(len(matched), pageSize),
	}
}

// RankedView runs the legacy flow: filter by f, score against p, order by
// score, paginate. Preferences only weigh listings here, they never exclude
// them.
func RankedView(all []Listing, f Filters, p Preferences, weights []Weight, page, pageSize int) RankedPage {
	matched := Filter(all, f, Preferences{})
	ranked := make([]Ranked, len(matched))
	for i, l := range matched {
		ranked[i] = Ranked{Listing: l, Score: Score(l, p, weights)}
	}
	SortByScore(ranked)
	return RankedPage{
		Listings:   Paginate(ranked, page, pageSize),
		Number:     page,
		Total:      len(ranked),
		TotalPages: TotalPages(len(ranked), pageSize),
	}
}
