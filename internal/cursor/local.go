package cursor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mvp-joe/neobridge/internal/protocol"
)

// PaginatedExecutor runs one page of a query in-process.
type PaginatedExecutor interface {
	ExecutePaginated(ctx context.Context, q string, params map[string]any, opts protocol.CursorOptions) (*protocol.Result, error)
}

// LocalPager adapts an in-process executor to Pager. Pages are decoded
// through the same JSON shape the HTTP API sends, so cursors behave
// identically against either.
type LocalPager struct {
	exec PaginatedExecutor
}

// NewLocalPager creates a LocalPager.
func NewLocalPager(exec PaginatedExecutor) *LocalPager {
	return &LocalPager{exec: exec}
}

func (p *LocalPager) CursorQuery(ctx context.Context, query string, params map[string]any, opts protocol.CursorOptions) (*Page, error) {
	result, err := p.exec.ExecutePaginated(ctx, query, params, opts)
	if err != nil {
		e := &Error{Message: err.Error(), Err: err}
		var perr *protocol.Error
		if errors.As(err, &perr) {
			e.Code, e.Message = perr.Code, perr.Message
		}
		return nil, e
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, &Error{Message: "failed to encode page", Err: err}
	}
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, &Error{Message: "failed to decode page", Err: err}
	}
	return &page, nil
}
