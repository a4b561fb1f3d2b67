package elastic

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nonibytes/esextract/esextract/engine"
)

type recorded struct {
	method, path, query, body string
	header                    http.Header
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(b), r.Header.Clone()})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c, err := New(Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, &reqs
}

func TestIndexExists(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	ok, err := c.IndexExists(context.Background(), "logs")
	if err != nil || !ok {
		t.Fatalf("logs: ok=%v err=%v", ok, err)
	}
	ok, err = c.IndexExists(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("missing: ok=%v err=%v", ok, err)
	}
}

func TestSearchDecodesHits(t *testing.T) {
	c, reqs := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"took":3,"timed_out":false,"hits":{"total":{"value":2,"relation":"eq"},"hits":[
			{"_index":"logs","_id":"a1","_source":{"n":99999999999999999999},"sort":[1,"a1"]},
			{"_index":"logs","_id":"a2","_source":{"n":1},"sort":[2,"a2"]}]}}`)
	})
	res, err := c.Search(context.Background(), engine.SearchRequest{
		Index:          "logs",
		Query:          []byte(`{"sort":["_doc"]}`),
		Size:           2,
		TrackTotalHits: true,
		SearchType:     engine.SearchDFSQueryThenFetch,
		Headers:        map[string]string{"X-Tenant": "t1"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 2 || len(res.Hits) != 2 {
		t.Fatalf("unexpected response: %+v", res)
	}
	if string(res.Hits[0].Source) != `{"n":99999999999999999999}` {
		t.Fatalf("source should be kept verbatim, got %s", res.Hits[0].Source)
	}
	if got := string(res.LastSort()[1]); got != `"a2"` {
		t.Fatalf("last sort = %s", got)
	}

	r := (*reqs)[len(*reqs)-1]
	if r.path != "/logs/_search" {
		t.Fatalf("path = %s", r.path)
	}
	if !strings.Contains(r.query, "search_type=dfs_query_then_fetch") {
		t.Fatalf("search type missing from query string %q", r.query)
	}
	if r.header.Get("X-Tenant") != "t1" {
		t.Fatalf("custom header not sent: %v", r.header)
	}
	if !strings.Contains(r.body, `"track_total_hits":true`) || !strings.Contains(r.body, `"size":2`) {
		t.Fatalf("body = %s", r.body)
	}
}

func TestSearchEngineError(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"parsing_exception","reason":"unknown query [nope]"},"status":400}`)
	})
	_, err := c.Search(context.Background(), engine.SearchRequest{Index: "logs", Size: 1})
	if err == nil || !strings.Contains(err.Error(), "parsing_exception") {
		t.Fatalf("expected parsing_exception, got %v", err)
	}
}
