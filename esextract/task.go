package esextract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/nonibytes/esextract/esextract/column"
	"github.com/nonibytes/esextract/esextract/engine"
	"github.com/nonibytes/esextract/esextract/filter"
	"github.com/nonibytes/esextract/esextract/flatten"
	"github.com/nonibytes/esextract/esextract/jsonv"
)

// IDColumn is the column added when TaskConfig.ContainsID is set.
const IDColumn = "_id"

type state int

const (
	stateInitial state = iota
	statePaging
	stateExhausted
)

func (s state) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case statePaging:
		return "paging"
	default:
		return "exhausted"
	}
}

// Stats summarises one run.
type Stats struct {
	Total    int64
	Pages    int
	Hits     int
	Rows     int
	Filtered int
	AllNull  int
	Dirty    int
	// QueryTime is spent waiting on the engine; TransportTime on decoding,
	// flattening and handing records to the sink.
	QueryTime     time.Duration
	TransportTime time.Duration
}

type Option func(*Task)

func WithLogger(l *slog.Logger) Option {
	return func(t *Task) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Task) { t.metrics = m }
}

func WithDirtyCollector(c DirtyCollector) Option {
	return func(t *Task) {
		if c != nil {
			t.dirty = c
		}
	}
}

// WithTaskID overrides the generated task id used in logs.
func WithTaskID(id string) Option {
	return func(t *Task) {
		if id != "" {
			t.id = id
		}
	}
}

// Task reads one query's result set from one index. A Task is single-use
// and not safe for concurrent use.
type Task struct {
	id      string
	cfg     TaskConfig
	eng     engine.Engine
	sink    Sink
	dirty   DirtyCollector
	logger  *slog.Logger
	metrics *Metrics

	flat    *flatten.Flattener
	eval    *filter.Evaluator
	limiter *rate.Limiter
	state   state
}

// NewTask validates cfg and compiles its table schema.
func NewTask(eng engine.Engine, cfg TaskConfig, sink Sink, opts ...Option) (*Task, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eng == nil {
		return nil, ConfigError("engine is required")
	}
	if sink == nil {
		return nil, ConfigError("sink is required")
	}
	t := &Task{
		id:     uuid.NewString(),
		cfg:    cfg.withDefaults(),
		eng:    eng,
		sink:   sink,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(t)
	}
	if t.dirty == nil {
		t.dirty = LogCollector{Logger: t.logger}
	}
	t.logger = t.logger.With("task", t.id, "index", t.cfg.Index)

	flat, err := t.cfg.Table.Flattener()
	if err != nil {
		return nil, withIndex(err, t.cfg.Index)
	}
	t.flat = flat

	names, err := t.cfg.rowNames()
	if err != nil {
		return nil, err
	}
	compile, err := t.cfg.Table.Compiler(names)
	if err != nil {
		return nil, withIndex(err, t.cfg.Index)
	}
	t.eval = filter.NewEvaluator(t.cfg.Table.Filter, t.cfg.Table.DeleteFilterKey,
		filter.WithCompiler(compile), filter.WithLogger(t.logger))

	if t.cfg.PageRate > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(t.cfg.PageRate), 1)
	}
	return t, nil
}

func (t *Task) ID() string { return t.id }

// OutputNames lists the columns the sink receives.
func (t *Task) OutputNames() []string {
	names, _ := t.cfg.OutputNames()
	return names
}

// FilterErr reports a filter that does not compile. Such a filter accepts
// every row; the error is informational.
func (t *Task) FilterErr() error {
	if err := t.eval.CompileErr(); err != nil {
		return &Error{Kind: ErrFilter, Message: "filter does not compile", Index: t.cfg.Index, Cause: err}
	}
	return nil
}

// Prepare checks that the index exists.
func (t *Task) Prepare(ctx context.Context) error {
	return checkIndex(ctx, t.eng, t.cfg.Index)
}

func checkIndex(ctx context.Context, eng engine.Engine, index string) error {
	ok, err := eng.IndexExists(ctx, index)
	if err != nil {
		return QueryExecutionError(index, err)
	}
	if !ok {
		return IndexNotFoundError(index)
	}
	return nil
}

// Run pages through the result set until it is exhausted. The first query
// tracks total hits: a total of zero ends the run without emitting, and a
// first page that already holds every hit ends it after that page.
// Otherwise the sort values of each page's last hit resume the next query
// until a page comes back empty. Any query failure ends the run.
func (t *Task) Run(ctx context.Context) (Stats, error) {
	var st Stats
	if t.state != stateInitial {
		return st, New(ErrCursor, "task already ran")
	}
	t.logger.Info("extraction started", "page_size", t.cfg.PageSize, "search_type", string(t.cfg.SearchType))

	var after []gojson.RawMessage
	for t.state != stateExhausted {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return st, QueryExecutionError(t.cfg.Index, err)
			}
		}
		req := t.request(after)
		start := time.Now()
		res, err := t.eng.Search(ctx, req)
		took := time.Since(start)
		st.QueryTime += took
		if err != nil {
			t.state = stateExhausted
			return st, QueryExecutionError(t.cfg.Index, err)
		}
		st.Pages++
		st.Hits += len(res.Hits)
		t.metrics.page(t.cfg.Index, len(res.Hits), took)
		if res.TimedOut {
			t.logger.Warn("page query timed out on some shards", "page", st.Pages)
		}

		if t.state == stateInitial {
			st.Total = res.Total
			t.logger.Info("search total", "total", res.Total, "size", t.cfg.PageSize)
			if res.Total == 0 {
				t.state = stateExhausted
				break
			}
		}

		start = time.Now()
		err = t.transport(ctx, res.Hits, &st)
		st.TransportTime += time.Since(start)
		if err != nil {
			t.state = stateExhausted
			return st, err
		}

		switch {
		case len(res.Hits) == 0:
			t.state = stateExhausted
		case t.state == stateInitial && int64(len(res.Hits)) >= res.Total:
			t.state = stateExhausted
		default:
			after = res.LastSort()
			if len(after) == 0 {
				t.state = stateExhausted
				return st, CursorError(t.cfg.Index, "last hit carries no sort values; the query needs a sort")
			}
			t.logger.Debug("cursor advanced", "page", st.Pages, "search_after", string(joinRaw(after)))
			t.state = statePaging
		}
	}

	t.logger.Info("extraction finished",
		"pages", st.Pages,
		"hits", st.Hits,
		"rows", st.Rows,
		"filtered", st.Filtered,
		"all_null", st.AllNull,
		"dirty", st.Dirty,
		"query_time", st.QueryTime,
		"transport_time", st.TransportTime,
	)
	return st, nil
}

func (t *Task) request(after []gojson.RawMessage) engine.SearchRequest {
	return engine.SearchRequest{
		Index:          t.cfg.Index,
		Query:          t.cfg.Query,
		Size:           t.cfg.PageSize,
		SearchAfter:    after,
		TrackTotalHits: t.state == stateInitial,
		Includes:       t.cfg.Includes,
		Excludes:       t.cfg.Excludes,
		Timeout:        t.cfg.Timeout,
		SearchType:     t.cfg.SearchType,
		Headers:        t.cfg.Headers,
	}
}

func (t *Task) transport(ctx context.Context, hits []engine.Hit, st *Stats) error {
	for _, hit := range hits {
		doc, err := jsonv.DecodeObject(hit.Source)
		if err != nil {
			return &Error{Kind: ErrQueryExecution, Message: "decode source of hit " + hit.ID, Index: t.cfg.Index, Cause: err}
		}
		for _, row := range t.flat.Flatten(doc) {
			if t.cfg.ContainsID {
				row.Set(IDColumn, jsonv.String(hit.ID))
			}
			if err := t.emit(ctx, hit.ID, row, st); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Task) emit(ctx context.Context, hitID string, row *flatten.Row, st *Stats) error {
	if !t.eval.Accept(row) {
		st.Filtered++
		t.metrics.dropped(t.cfg.Index, "filter")
		return nil
	}
	if row.AllNull() {
		st.AllNull++
		t.metrics.dropped(t.cfg.Index, "all_null")
		return nil
	}

	rec, errs := column.Build(row)
	if len(errs) > 0 {
		st.Dirty++
		t.metrics.dirty(t.cfg.Index)
		wrapped := make([]error, len(errs))
		for i, e := range errs {
			wrapped[i] = &Error{Kind: ErrUnsupportedValue, Message: "field not typed", Index: t.cfg.Index, Cause: e}
		}
		d := DirtyRecord{Index: t.cfg.Index, HitID: hitID, Record: rec, Errors: wrapped, Trace: column.Trace(errs)}
		if err := t.dirty.CollectDirty(ctx, d); err != nil {
			return &Error{Kind: ErrSink, Message: "collect dirty record", Index: t.cfg.Index, Cause: err}
		}
	}

	if err := t.sink.Send(ctx, rec); err != nil {
		return &Error{Kind: ErrSink, Message: "send record", Index: t.cfg.Index, Cause: err}
	}
	st.Rows++
	t.metrics.emitted(t.cfg.Index)
	return nil
}

func joinRaw(vals []gojson.RawMessage) []byte {
	b, err := gojson.Marshal(vals)
	if err != nil {
		return nil
	}
	return b
}

// RunTask acquires an engine session, runs one task on it and releases the
// session on every path.
func RunTask(ctx context.Context, connect engine.Connector, cfg TaskConfig, sink Sink, opts ...Option) (st Stats, err error) {
	if err := cfg.Validate(); err != nil {
		return st, err
	}
	eng, err := connect(ctx)
	if err != nil {
		return st, &Error{Kind: ErrQueryExecution, Message: "connect", Index: cfg.Index, Cause: err}
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil {
			err = errors.Join(err, &Error{Kind: ErrQueryExecution, Message: "close session", Index: cfg.Index, Cause: cerr})
		}
	}()

	t, err := NewTask(eng, cfg, sink, opts...)
	if err != nil {
		return st, err
	}
	if err := t.Prepare(ctx); err != nil {
		return st, err
	}
	return t.Run(ctx)
}
