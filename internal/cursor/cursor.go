// Package cursor provides client-side pagination over query results, plus an
// HTTP client for the access layer's API.
package cursor

// Implementation Plan:
// 1. Pager - anything that can fetch one page (HTTP Client, in-process LocalPager)
// 2. Cursor - tracks offset and hasMore; Next fetches the page at the current offset
// 3. All/Filter/Map - reset, then drain the cursor
// 4. Rows - range-over-func iterator over individual rows, no reset
// 5. Reset - rewinds to offset 0 for reuse

import (
	"context"
	"iter"

	"github.com/mvp-joe/neobridge/internal/protocol"
)

// DefaultPageSize is used when a cursor is created without a page size.
const DefaultPageSize = 20

// Row is one decoded result row.
type Row = map[string]any

// Page is one decoded page of results.
type Page struct {
	Rows     []Row             `json:"rows"`
	Metadata protocol.Metadata `json:"metadata"`
}

// Pager fetches a single page of a query.
type Pager interface {
	CursorQuery(ctx context.Context, query string, params map[string]any, opts protocol.CursorOptions) (*Page, error)
}

// Cursor walks a query result one page at a time. A Cursor is not safe for
// concurrent use.
type Cursor struct {
	pager        Pager
	query        string
	params       map[string]any
	pageSize     int
	includeTotal bool

	offset  int
	hasMore bool
	page    []Row
	total   *int
}

// CursorOption configures a Cursor.
type CursorOption func(*Cursor)

// WithTotal asks the server for the unpaginated row count on the first page.
// The server counts by re-running the query in read mode, so it only suits
// read queries that return rows; write statements fail the first page.
func WithTotal() CursorOption {
	return func(c *Cursor) { c.includeTotal = true }
}

// New creates a cursor positioned at the start of the result.
func New(pager Pager, query string, params map[string]any, pageSize int, opts ...CursorOption) *Cursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	c := &Cursor{
		pager:    pager,
		query:    query,
		params:   params,
		pageSize: pageSize,
		hasMore:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Next fetches the next page. Once a page shorter than the page size has
// been seen, Next returns done without contacting the server. A failed
// fetch exhausts the cursor; call Reset to start over.
func (c *Cursor) Next(ctx context.Context) (page []Row, done bool, err error) {
	if !c.hasMore {
		return nil, true, nil
	}

	limit, offset := c.pageSize, c.offset
	opts := protocol.CursorOptions{Limit: &limit, Offset: &offset}
	if c.includeTotal && c.total == nil {
		opts.IncludeTotal = true
	}

	p, err := c.pager.CursorQuery(ctx, c.query, c.params, opts)
	if err != nil {
		c.hasMore = false
		return nil, false, err
	}

	rows := p.Rows
	if rows == nil {
		rows = []Row{}
	}
	c.page = rows
	c.offset += c.pageSize
	c.hasMore = len(rows) == c.pageSize
	if p.Metadata.TotalCount != nil {
		total := *p.Metadata.TotalCount
		c.total = &total
	}
	return rows, false, nil
}

// Reset rewinds the cursor to the first page.
func (c *Cursor) Reset() *Cursor {
	c.offset = 0
	c.hasMore = true
	c.page = nil
	return c
}

// All resets the cursor, drains it and returns every row in fetch order.
// There is no size cap; use it for bounded results.
func (c *Cursor) All(ctx context.Context) ([]Row, error) {
	return c.Filter(ctx, func(Row) bool { return true })
}

// Filter resets and drains the cursor, returning the rows for which keep
// is true.
func (c *Cursor) Filter(ctx context.Context, keep func(Row) bool) ([]Row, error) {
	out := []Row{}
	for row, err := range c.Reset().Rows(ctx) {
		if err != nil {
			return nil, err
		}
		if keep(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Map resets and drains c, applying fn to every row.
func Map[T any](ctx context.Context, c *Cursor, fn func(Row) T) ([]T, error) {
	out := []T{}
	for row, err := range c.Reset().Rows(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, fn(row))
	}
	return out, nil
}

// Rows iterates over individual rows from the current position, fetching
// pages as needed. It does not reset; iteration stops after the first error.
func (c *Cursor) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			page, done, err := c.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if done {
				return
			}
			for _, row := range page {
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// Offset is the offset the next page will be fetched from.
func (c *Cursor) Offset() int { return c.offset }

// HasMore reports whether the last page was a full page.
func (c *Cursor) HasMore() bool { return c.hasMore }

// Page returns the most recently fetched page.
func (c *Cursor) Page() []Row { return c.page }

// PageSize returns the page size.
func (c *Cursor) PageSize() int { return c.pageSize }

// TotalCount returns the unpaginated row count when it was requested with
// WithTotal and reported by the server.
func (c *Cursor) TotalCount() (int, bool) {
	if c.total == nil {
		return 0, false
	}
	return *c.total, true
}
