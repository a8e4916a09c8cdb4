package repo

import (
	"context"
	"math"

	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/store"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = store.MaxQueryLimit
	// MaxPage keeps page*size within int for every allowed size.
	MaxPage = math.MaxInt / MaxPageSize
)

type PageRequest struct {
	Page int
	Size int
}

// Page is one window of a newest-first listing. Total and Pages count the
// items scanned to reach the window, not the whole listing.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func (r PageRequest) normalize() (page, size int) {
	page, size = r.Page, r.Size
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// paginate scans the type listing of kind newest first until the requested
// window is covered or the listing ends. Any failed read aborts the call.
func paginate[T any](ctx context.Context, d *deps, kind keys.Kind, req PageRequest, conv func(store.Item) (T, error)) (Page[T], error) {
	page, size := req.normalize()
	desired := page * size

	var scanned []store.Item
	cursor := ""
	for len(scanned) < desired {
		if err := ctx.Err(); err != nil {
			return Page[T]{}, storageErr("paginate "+string(kind), err)
		}
		res, err := d.table.Query(ctx, store.Query{
			Index:      store.IndexGSI1,
			Partition:  keys.IndexPartition(kind),
			Descending: true,
			Limit:      min(MaxPageSize, desired-len(scanned)),
			Cursor:     cursor,
		})
		if err != nil {
			return Page[T]{}, storageErr("paginate "+string(kind), err)
		}
		scanned = append(scanned, res.Items...)
		if res.Cursor == "" {
			break
		}
		cursor = res.Cursor
	}

	out := Page[T]{Items: []T{}, Page: page, Limit: size, Total: len(scanned)}
	out.Pages = (out.Total + size - 1) / size

	start := (page - 1) * size
	if start >= len(scanned) {
		return out, nil
	}
	end := min(page*size, len(scanned))
	for _, item := range scanned[start:end] {
		v, err := conv(item)
		if err != nil {
			return Page[T]{}, storageErr("decode "+string(kind), err)
		}
		out.Items = append(out.Items, v)
	}
	return out, nil
}
