package engine

import (
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func decodeBody(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	if err := gojson.Unmarshal(b, &m); err != nil {
		t.Fatalf("body is not JSON: %v (%s)", err, b)
	}
	return m
}

func TestBuildBodyFirstPage(t *testing.T) {
	b, err := BuildBody(SearchRequest{
		Index:          "logs",
		Query:          []byte(`{"query":{"match_all":{}},"sort":[{"ts":"asc"}],"size":9999}`),
		Size:           100,
		TrackTotalHits: true,
		Includes:       []string{"id", "tags"},
		Timeout:        1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("BuildBody: %v", err)
	}
	got := decodeBody(t, b)
	want := map[string]any{
		"query":            map[string]any{"match_all": map[string]any{}},
		"sort":             []any{map[string]any{"ts": "asc"}},
		"size":             float64(100),
		"track_total_hits": true,
		"_source":          map[string]any{"includes": []any{"id", "tags"}},
		"timeout":          "1500ms",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildBodySearchAfterKeepsRawValues(t *testing.T) {
	b, err := BuildBody(SearchRequest{
		Query:       []byte(`{"search_after":[1],"track_total_hits":true}`),
		Size:        10,
		SearchAfter: []gojson.RawMessage{gojson.RawMessage(`99999999999999999999`), gojson.RawMessage(`"doc#7"`)},
	})
	if err != nil {
		t.Fatalf("BuildBody: %v", err)
	}
	want := `{"search_after":[99999999999999999999,"doc#7"],"size":10}`
	if string(b) != want {
		t.Fatalf("body = %s, want %s", b, want)
	}
}

func TestBuildBodyEmptyQuery(t *testing.T) {
	b, err := BuildBody(SearchRequest{Size: 5})
	if err != nil {
		t.Fatalf("BuildBody: %v", err)
	}
	if string(b) != `{"size":5}` {
		t.Fatalf("body = %s", b)
	}
}

func TestBuildBodyRejectsNonObject(t *testing.T) {
	if _, err := BuildBody(SearchRequest{Query: []byte(`[1,2]`)}); err == nil {
		t.Fatalf("expected error for array query body")
	}
}

func TestParseSearchType(t *testing.T) {
	for in, want := range map[string]SearchType{
		"":                     SearchQueryThenFetch,
		"QUERY_THEN_FETCH":     SearchQueryThenFetch,
		"dfs_query_then_fetch": SearchDFSQueryThenFetch,
	} {
		got, ok := ParseSearchType(in)
		if !ok || got != want {
			t.Fatalf("ParseSearchType(%q) = %q,%v", in, got, ok)
		}
	}
	if _, ok := ParseSearchType("scan"); ok {
		t.Fatalf("scan should be rejected")
	}
}
