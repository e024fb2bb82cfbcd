// Package query runs Cypher against the database and shapes the results into
// response envelopes, with optional server-side pagination.
package query

// Implementation Plan:
// 1. Executor - wraps a graphdb.Runner with tracing, logging and history recording
// 2. Execute - run one statement, shape records, attach timing and non-zero counters
// 3. ExecutePaginated - rewrite the statement with LIMIT/SKIP, compute hasMore,
//    optionally count the unpaginated result
// 4. Shape - shared record-to-envelope conversion (also used inside transactions)

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mvp-joe/neobridge/internal/format"
	"github.com/mvp-joe/neobridge/internal/graphdb"
	"github.com/mvp-joe/neobridge/internal/history"
	"github.com/mvp-joe/neobridge/internal/protocol"
)

const tracerName = "github.com/mvp-joe/neobridge/internal/query"

// Recorder receives an entry for every executed statement.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Executor runs standalone statements.
type Executor struct {
	db       graphdb.Runner
	recorder Recorder
	tracer   trace.Tracer
	logger   *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithRecorder records every statement to r.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor creates an Executor on db.
func NewExecutor(db graphdb.Runner, opts ...Option) *Executor {
	e := &Executor{
		db:     db,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs q with params in its own auto-commit transaction.
// Failures are returned as *protocol.Error with code NEO4J_ERROR and the
// statement and parameters in the details.
func (e *Executor) Execute(ctx context.Context, q string, params map[string]any) (*protocol.Result, error) {
	params = normalize(params)

	ctx, span := e.tracer.Start(ctx, "query.execute", trace.WithAttributes(
		attribute.Int("db.query.parameter_count", len(params)),
	))
	defer span.End()

	start := time.Now()
	records, err := e.db.Run(ctx, q, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug("query failed", "error", err)

		perr := protocol.Wrap(protocol.CodeNeo4j, err).WithDetails(map[string]any{
			"query":  q,
			"params": params,
		})
		Record(ctx, e.recorder, e.logger, history.Entry{
			Query:    q,
			Params:   params,
			Duration: time.Since(start),
			Code:     string(perr.Code),
		})
		return nil, perr
	}

	result := Shape(records)
	span.SetAttributes(attribute.Int("db.response.returned_rows", result.Metadata.RowCount))
	Record(ctx, e.recorder, e.logger, history.Entry{
		Query:    q,
		Params:   params,
		Duration: records.Summary.Elapsed(),
		RowCount: result.Metadata.RowCount,
	})
	return result, nil
}

// ExecutePaginated runs q as one page. With opts.Limit set, hasMore is true
// when the page came back full. With opts.IncludeTotal, the unpaginated row
// count is reported as totalCount. The count runs first, so a statement the
// count rejects is not executed at all.
func (e *Executor) ExecutePaginated(ctx context.Context, q string, params map[string]any, opts protocol.CursorOptions) (*protocol.Result, error) {
	var total *int
	if opts.IncludeTotal {
		n, err := e.Count(ctx, q, params)
		if err != nil {
			return nil, err
		}
		total = &n
	}

	text, bound := Paginate(q, params, opts)
	result, err := e.Execute(ctx, text, bound)
	if err != nil {
		return nil, err
	}

	result.Metadata.HasMore = opts.Limit != nil && result.Metadata.RowCount == *opts.Limit
	result.Metadata.TotalCount = total
	return result, nil
}

// Count returns the number of rows q produces without pagination, by
// running it as CALL { q } RETURN count(*). q must be a read query that
// returns rows. When the database supports read-mode runs the count uses
// one, so write statements fail instead of being executed a second time.
func (e *Executor) Count(ctx context.Context, q string, params map[string]any) (int, error) {
	countQuery := "CALL { " + trimStatement(q) + " } RETURN count(*) AS total"
	params = normalize(params)

	run := e.db.Run
	if rr, ok := e.db.(graphdb.ReadRunner); ok {
		run = rr.RunRead
	}
	records, err := run(ctx, countQuery, params)
	if err != nil {
		return 0, protocol.Wrap(protocol.CodeNeo4j, err).WithDetails(map[string]any{
			"query":  countQuery,
			"params": params,
		})
	}
	if records.Len() == 0 || len(records.Values[0]) == 0 {
		return 0, nil
	}
	switch n := records.Values[0][0].(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, protocol.New(protocol.CodeNeo4j, fmt.Sprintf("unexpected count type %T", n))
	}
}

// Paginate appends LIMIT and SKIP clauses for the options that are set and
// returns a copy of params with the bound values. LIMIT precedes SKIP; the
// caller's map is never modified.
func Paginate(q string, params map[string]any, opts protocol.CursorOptions) (string, map[string]any) {
	bound := maps.Clone(normalize(params))
	text := q
	if opts.Limit != nil || opts.Offset != nil {
		text = trimStatement(q)
	}
	if opts.Limit != nil {
		text += " LIMIT $limit"
		bound["limit"] = *opts.Limit
	}
	if opts.Offset != nil {
		text += " SKIP $offset"
		bound["offset"] = *opts.Offset
	}
	return text, bound
}

// Shape converts collected records into a success envelope. hasMore is
// always false here; pagination decides it.
func Shape(records *graphdb.Records) *protocol.Result {
	rows := make([]format.Row, 0, records.Len())
	if records != nil {
		for _, values := range records.Values {
			rows = append(rows, format.Record(records.Keys, values))
		}
	}

	result := &protocol.Result{
		Rows: rows,
		Metadata: protocol.Metadata{
			RowCount: len(rows),
		},
	}
	if records != nil {
		result.Metadata.QueryTimeMs = records.Summary.Elapsed().Milliseconds()
		if len(records.Summary.Counters) > 0 {
			result.Metadata.Counters = maps.Clone(records.Summary.Counters)
		}
	}
	return result
}

// Record sends e to r, logging instead of failing when the write fails.
func Record(ctx context.Context, r Recorder, logger *slog.Logger, e history.Entry) {
	if r == nil {
		return
	}
	if err := r.Record(ctx, e); err != nil {
		logger.Warn("failed to record query history", "error", err)
	}
}

func normalize(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	return params
}

func trimStatement(q string) string {
	return strings.TrimRight(strings.TrimSpace(q), "; \t\n")
}
