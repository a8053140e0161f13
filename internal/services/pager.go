package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytloop/internal/shared"
)

// DefaultMaxPages bounds a listing that never reports its last page.
const DefaultMaxPages = 1000

// Page is one response of a cursor-paginated listing.
type Page[T any] struct {
	Items []T
	Next  string
}

// PageFunc fetches the page identified by cursor. The first call receives an empty cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Paginate requests pages until one arrives without a next cursor and returns every item in order.
//
// Any page error aborts the walk and nothing is returned. Hitting maxPages without reaching the
// last page returns [shared.ErrMalformedPagination].
func Paginate[T any](ctx context.Context, maxPages int, fetch PageFunc[T]) ([]T, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var all []T
	cursor := ""
	for range maxPages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.Next == "" {
			return all, nil
		}
		cursor = page.Next
	}
	return nil, fmt.Errorf("%w: still paging after %d pages", shared.ErrMalformedPagination, maxPages)
}
