package esextract_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/esextract/column"
	"github.com/nonibytes/esextract/esextract/engine"
)

// fakeEngine serves documents in a fixed order, using the position of the
// last hit as its sort value. Documents are keyed by query body so split
// jobs can address disjoint slices.
type fakeEngine struct {
	mu       sync.Mutex
	indices  map[string]bool
	docs     map[string][]string
	noSort   bool
	failOn   int
	requests []engine.SearchRequest
	closed   int
}

func newFakeEngine(docs ...string) *fakeEngine {
	return &fakeEngine{
		indices: map[string]bool{"logs": true},
		docs:    map[string][]string{"": docs},
	}
}

func (f *fakeEngine) IndexExists(ctx context.Context, index string) (bool, error) {
	return f.indices[index], nil
}

func (f *fakeEngine) Search(ctx context.Context, req engine.SearchRequest) (*engine.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.failOn > 0 && len(f.requests) == f.failOn {
		return nil, errors.New("connection reset by peer")
	}
	if _, err := engine.BuildBody(req); err != nil {
		return nil, err
	}
	docs := f.docs[string(req.Query)]
	start := 0
	if len(req.SearchAfter) > 0 {
		n, err := strconv.Atoi(string(req.SearchAfter[0]))
		if err != nil {
			return nil, err
		}
		start = n + 1
	}
	res := &engine.SearchResponse{Total: int64(len(docs))}
	for i := start; i < len(docs) && len(res.Hits) < req.Size; i++ {
		h := engine.Hit{Index: req.Index, ID: fmt.Sprintf("d%d", i), Source: gojson.RawMessage(docs[i])}
		if !f.noSort {
			h.Sort = []gojson.RawMessage{gojson.RawMessage(strconv.Itoa(i))}
		}
		res.Hits = append(res.Hits, h)
	}
	return res, nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) connector() engine.Connector {
	return func(ctx context.Context) (engine.Engine, error) { return f, nil }
}

type recordingSink struct {
	mu   sync.Mutex
	rows []string
	err  error
}

func (s *recordingSink) Send(ctx context.Context, rec column.Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.rows = append(s.rows, renderRecord(rec))
	s.mu.Unlock()
	return nil
}

func renderRecord(rec column.Record) string {
	parts := make([]string, rec.Len())
	for i, c := range rec.Columns {
		v := c.Text()
		if c.IsNull() {
			v = "<null>"
		}
		parts[i] = rec.Names[i] + "=" + v
	}
	return strings.Join(parts, " ")
}

type recordingCollector struct {
	mu    sync.Mutex
	dirty []esextract.DirtyRecord
}

func (c *recordingCollector) CollectDirty(ctx context.Context, d esextract.DirtyRecord) error {
	c.mu.Lock()
	c.dirty = append(c.dirty, d)
	c.mu.Unlock()
	return nil
}

func runTask(t *testing.T, eng *fakeEngine, cfg esextract.TaskConfig, opts ...esextract.Option) (*recordingSink, esextract.Stats) {
	t.Helper()
	sink := &recordingSink{}
	st, err := esextract.RunTask(context.Background(), eng.connector(), cfg, sink, opts...)
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	return sink, st
}
