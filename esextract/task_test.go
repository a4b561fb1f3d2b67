package esextract_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/esextract/flatten"
	"github.com/nonibytes/esextract/esextract/jsonv"
)

func tagsTable() esextract.TableSchema {
	return esextract.TableSchema{
		Columns: []flatten.FieldSpec{
			flatten.Leaf("id"),
			flatten.Branch("tags", flatten.Leaf("name")),
		},
	}
}

func taskConfig(size int) esextract.TaskConfig {
	return esextract.TaskConfig{Index: "logs", PageSize: size, Table: tagsTable()}
}

func TestRunEndToEndTags(t *testing.T) {
	eng := newFakeEngine(`{"id":"a1","tags":[{"name":"x"},{"name":"y"}]}`)
	sink, st := runTask(t, eng, taskConfig(10))

	want := []string{"id=a1 tags.name=x", "id=a1 tags.name=y"}
	if diff := cmp.Diff(want, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if st.Rows != 2 || st.Hits != 1 || st.Pages != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if eng.closed != 1 {
		t.Fatalf("engine closed %d times", eng.closed)
	}
}

func TestRunZeroTotalIssuesOneQuery(t *testing.T) {
	eng := newFakeEngine()
	sink, st := runTask(t, eng, taskConfig(10))
	if len(eng.requests) != 1 {
		t.Fatalf("expected 1 query, got %d", len(eng.requests))
	}
	if len(sink.rows) != 0 || st.Total != 0 {
		t.Fatalf("expected no rows, got %v (%+v)", sink.rows, st)
	}
}

func TestRunTotalEqualToPageSizeStopsAfterFirstPage(t *testing.T) {
	eng := newFakeEngine(`{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`)
	sink, _ := runTask(t, eng, taskConfig(3))
	if len(eng.requests) != 1 {
		t.Fatalf("expected 1 query, got %d", len(eng.requests))
	}
	if len(eng.requests[0].SearchAfter) != 0 || !eng.requests[0].TrackTotalHits {
		t.Fatalf("first query should track totals without a cursor: %+v", eng.requests[0])
	}
	if len(sink.rows) != 3 {
		t.Fatalf("expected 3 rows, got %v", sink.rows)
	}
}

func TestRunPagesUntilEmptyPage(t *testing.T) {
	eng := newFakeEngine(`{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`, `{"id":"d"}`, `{"id":"e"}`)
	sink, st := runTask(t, eng, taskConfig(2))

	if len(eng.requests) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(eng.requests))
	}
	var cursors []string
	for i, r := range eng.requests {
		if r.TrackTotalHits != (i == 0) {
			t.Fatalf("request %d TrackTotalHits=%v", i, r.TrackTotalHits)
		}
		if r.Size != 2 {
			t.Fatalf("request %d size=%d", i, r.Size)
		}
		c := ""
		for _, v := range r.SearchAfter {
			c += string(v)
		}
		cursors = append(cursors, c)
	}
	if diff := cmp.Diff([]string{"", "1", "3", "4"}, cursors); diff != "" {
		t.Fatalf("cursor sequence mismatch (-want +got):\n%s", diff)
	}
	want := []string{"id=a tags.name=<null>", "id=b tags.name=<null>", "id=c tags.name=<null>", "id=d tags.name=<null>", "id=e tags.name=<null>"}
	if diff := cmp.Diff(want, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if st.Pages != 4 || st.Total != 5 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestRunMissingSortValuesIsCursorError(t *testing.T) {
	eng := newFakeEngine(`{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`)
	eng.noSort = true
	_, err := esextract.RunTask(context.Background(), eng.connector(), taskConfig(2), &recordingSink{})
	if !esextract.IsKind(err, esextract.ErrCursor) {
		t.Fatalf("expected cursor error, got %v", err)
	}
}

func TestRunQueryFailureIsFatal(t *testing.T) {
	eng := newFakeEngine(`{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`)
	eng.failOn = 2
	sink := &recordingSink{}
	st, err := esextract.RunTask(context.Background(), eng.connector(), taskConfig(2), sink)
	if !esextract.IsKind(err, esextract.ErrQueryExecution) {
		t.Fatalf("expected query execution error, got %v", err)
	}
	if !strings.Contains(err.Error(), "index=logs") || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("error should carry index and cause: %v", err)
	}
	if len(eng.requests) != 2 || st.Rows != 2 {
		t.Fatalf("expected no retry after failure; requests=%d rows=%d", len(eng.requests), st.Rows)
	}
	if eng.closed != 1 {
		t.Fatalf("engine should be closed on failure, closed=%d", eng.closed)
	}
}

func TestRunIndexNotFound(t *testing.T) {
	eng := newFakeEngine(`{"id":"a"}`)
	cfg := taskConfig(10)
	cfg.Index = "nope"
	_, err := esextract.RunTask(context.Background(), eng.connector(), cfg, &recordingSink{})
	if !esextract.IsKind(err, esextract.ErrIndexNotFound) {
		t.Fatalf("expected index_not_found, got %v", err)
	}
	if len(eng.requests) != 0 {
		t.Fatalf("no query should run, got %d", len(eng.requests))
	}
	if eng.closed != 1 {
		t.Fatalf("engine should be closed, closed=%d", eng.closed)
	}
}

func TestNewTaskMissingSchema(t *testing.T) {
	eng := newFakeEngine()
	cfg := taskConfig(10)
	cfg.Table.Columns = nil
	_, err := esextract.NewTask(eng, cfg, &recordingSink{})
	if !esextract.IsKind(err, esextract.ErrMissingSchema) {
		t.Fatalf("expected missing_schema, got %v", err)
	}
}

func TestRunDefaultsAndAllNullRows(t *testing.T) {
	eng := newFakeEngine(`{}`, `{"id":null}`, `{"tags":[]}`, `{"other":1}`)
	cfg := taskConfig(10)
	cfg.Table.Columns = append(cfg.Table.Columns, flatten.Leaf("status").WithDefault(jsonv.String("new")))
	sink, st := runTask(t, eng, cfg)

	// {} keeps the seeded defaults; the others fill status from the default.
	want := []string{
		"id=<null> tags.name=<null> status=new",
		"id=<null> tags.name=<null> status=new",
		"id=<null> tags.name=<null> status=new",
		"id=<null> tags.name=<null> status=new",
	}
	if diff := cmp.Diff(want, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}

	eng = newFakeEngine(`{}`, `{"other":1}`, `{"id":"a"}`)
	sink, st = runTask(t, eng, taskConfig(10))
	if diff := cmp.Diff([]string{"id=a tags.name=<null>"}, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if st.AllNull != 2 {
		t.Fatalf("expected 2 all-null rows dropped, got %+v", st)
	}
}

func TestRunFilterAndBookkeepingKey(t *testing.T) {
	docs := []string{
		`{"id":"a1","tmp":1,"tags":[{"name":"x"},{"name":"y"}]}`,
		`{"id":"a2","tmp":2,"tags":[{"name":"x"}]}`,
	}
	cfg := taskConfig(10)
	cfg.Table.Columns = append(cfg.Table.Columns, flatten.Leaf("tmp"))
	cfg.Table.Filter = `tags.name == "x"`
	cfg.Table.DeleteFilterKey = "tmp"

	sink, st := runTask(t, newFakeEngine(docs...), cfg)
	want := []string{"id=a1 tags.name=x", "id=a2 tags.name=x"}
	if diff := cmp.Diff(want, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if st.Filtered != 1 {
		t.Fatalf("expected 1 filtered row, got %+v", st)
	}
	names, err := cfg.OutputNames()
	if err != nil {
		t.Fatalf("OutputNames: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "tags.name"}, names); diff != "" {
		t.Fatalf("output names mismatch (-want +got):\n%s", diff)
	}

	// The bookkeeping key is gone before the filter runs.
	cfg.Table.Filter = `tmp == null`
	sink, _ = runTask(t, newFakeEngine(docs...), cfg)
	want = []string{"id=a1 tags.name=x", "id=a1 tags.name=y", "id=a2 tags.name=x"}
	if diff := cmp.Diff(want, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFilterFailOpen(t *testing.T) {
	docs := []string{`{"id":"a1","tags":[{"name":"x"},{"name":"y"}]}`}
	for _, expr := range []string{`id ==`, `id > 3`, `id`} {
		cfg := taskConfig(10)
		cfg.Table.Filter = expr
		sink, _ := runTask(t, newFakeEngine(docs...), cfg)
		if len(sink.rows) != 2 {
			t.Fatalf("filter %q should accept every row, got %v", expr, sink.rows)
		}
	}
}

func TestRunCELFilter(t *testing.T) {
	cfg := taskConfig(10)
	cfg.Table.Filter = `row["tags.name"] != "x"`
	cfg.Table.FilterLanguage = esextract.FilterCEL
	sink, _ := runTask(t, newFakeEngine(`{"id":"a1","tags":[{"name":"x"},{"name":"y"}]}`), cfg)
	if diff := cmp.Diff([]string{"id=a1 tags.name=y"}, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRunDirtyRecord(t *testing.T) {
	cfg := taskConfig(10)
	cfg.Table.Columns = append(cfg.Table.Columns, flatten.Leaf("weird").WithDefault(jsonv.Opaque(struct{ X int }{1})))
	dirty := &recordingCollector{}
	sink, st := runTask(t, newFakeEngine(`{"id":"a1"}`), cfg, esextract.WithDirtyCollector(dirty))

	if diff := cmp.Diff([]string{"id=a1 tags.name=<null>"}, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if len(dirty.dirty) != 1 || st.Dirty != 1 {
		t.Fatalf("expected exactly one dirty report, got %d (%+v)", len(dirty.dirty), st)
	}
	d := dirty.dirty[0]
	if d.HitID != "d0" || len(d.Errors) != 1 || !strings.Contains(d.Trace, "weird") {
		t.Fatalf("unexpected dirty report: %+v", d)
	}
	if !esextract.IsKind(d.Errors[0], esextract.ErrUnsupportedValue) {
		t.Fatalf("dirty error kind: %v", d.Errors[0])
	}
}

func TestRunOverflowingFloatIsDirty(t *testing.T) {
	cfg := taskConfig(10)
	cfg.Table.Columns = []flatten.FieldSpec{flatten.Leaf("x"), flatten.Leaf("id")}
	dirty := &recordingCollector{}
	sink, st := runTask(t, newFakeEngine(`{"x":1e400,"id":"a"}`), cfg, esextract.WithDirtyCollector(dirty))

	if diff := cmp.Diff([]string{"id=a"}, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
	if len(dirty.dirty) != 1 || st.Dirty != 1 || st.Rows != 1 {
		t.Fatalf("expected one row and one dirty report, got %d (%+v)", len(dirty.dirty), st)
	}
	if d := dirty.dirty[0]; len(d.Errors) != 1 || !strings.Contains(d.Trace, "x") {
		t.Fatalf("unexpected dirty report: %+v", d)
	}
}

func TestRunContainsIDAndHugeIntegers(t *testing.T) {
	cfg := taskConfig(10)
	cfg.ContainsID = true
	cfg.Table.Columns = []flatten.FieldSpec{flatten.Leaf("n"), flatten.Leaf("f")}
	sink, _ := runTask(t, newFakeEngine(`{"n":99999999999999999999,"f":0.1}`, `{"n":7,"f":1e2}`), cfg)
	want := []string{
		"n=99999999999999999999 f=0.1 _id=d0",
		"n=7 f=100 _id=d1",
	}
	if diff := cmp.Diff(want, sink.rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSinkErrorIsFatal(t *testing.T) {
	eng := newFakeEngine(`{"id":"a"}`, `{"id":"b"}`)
	sink := &recordingSink{err: errors.New("disk full")}
	_, err := esextract.RunTask(context.Background(), eng.connector(), taskConfig(10), sink)
	if !esextract.IsKind(err, esextract.ErrSink) {
		t.Fatalf("expected sink error, got %v", err)
	}
}

func TestRunPassesRequestSettings(t *testing.T) {
	eng := newFakeEngine(`{"id":"a"}`)
	cfg := taskConfig(10)
	cfg.Includes = []string{"id"}
	cfg.Headers = map[string]string{"X-Tenant": "t1"}
	runTask(t, eng, cfg)
	r := eng.requests[0]
	if r.Index != "logs" || r.Timeout != esextract.DefaultTimeout || r.SearchType == "" {
		t.Fatalf("unexpected request: %+v", r)
	}
	if diff := cmp.Diff([]string{"id"}, r.Includes); diff != "" {
		t.Fatalf("includes mismatch: %s", diff)
	}
	if r.Headers["X-Tenant"] != "t1" {
		t.Fatalf("headers not passed: %v", r.Headers)
	}
}

func TestTaskRunsOnce(t *testing.T) {
	eng := newFakeEngine(`{"id":"a"}`)
	task, err := esextract.NewTask(eng, taskConfig(10), &recordingSink{})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if _, err := task.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := task.Run(context.Background()); err == nil {
		t.Fatalf("second Run should fail")
	}
}

func TestTaskFilterErr(t *testing.T) {
	cfg := taskConfig(10)
	cfg.Table.Filter = `id ==`
	task, err := esextract.NewTask(newFakeEngine(), cfg, &recordingSink{})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if !esextract.IsKind(task.FilterErr(), esextract.ErrFilter) {
		t.Fatalf("expected filter error, got %v", task.FilterErr())
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := esextract.NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	eng := newFakeEngine(`{"id":"a1","tags":[{"name":"x"},{"name":"y"}]}`, `{}`)
	runTask(t, eng, taskConfig(10), esextract.WithMetrics(m))

	if got := testutil.ToFloat64(m.Rows.WithLabelValues("logs")); got != 2 {
		t.Fatalf("rows emitted = %v", got)
	}
	if got := testutil.ToFloat64(m.Filtered.WithLabelValues("logs", "all_null")); got != 1 {
		t.Fatalf("all-null drops = %v", got)
	}
	if got := testutil.ToFloat64(m.Pages.WithLabelValues("logs")); got != 1 {
		t.Fatalf("pages = %v", got)
	}
	if _, err := esextract.NewMetrics(reg); err == nil {
		t.Fatalf("registering twice should fail")
	}
}
