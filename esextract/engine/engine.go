// Package engine describes the search engine an extraction task reads from.
package engine

import (
	"context"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
)

// SearchType selects how the engine scores across shards.
type SearchType string

const (
	SearchQueryThenFetch    SearchType = "query_then_fetch"
	SearchDFSQueryThenFetch SearchType = "dfs_query_then_fetch"
)

// ParseSearchType accepts the engine names plus the upper-case spellings
// used by older job files (QUERY_THEN_FETCH).
func ParseSearchType(s string) (SearchType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "query_then_fetch":
		return SearchQueryThenFetch, true
	case "dfs_query_then_fetch":
		return SearchDFSQueryThenFetch, true
	}
	return "", false
}

// Engine is an authenticated session against one cluster. Implementations
// are owned by a single task and need not be safe for concurrent use.
type Engine interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	Close() error
}

// Connector acquires a fresh Engine. Each task calls it once and closes the
// result when done.
type Connector func(ctx context.Context) (Engine, error)

// SearchRequest is one bounded page query.
type SearchRequest struct {
	Index string
	// Query is the caller's query body (engine DSL). It is never analysed;
	// paging keys are overlaid on top of it.
	Query []byte

	Size           int
	SearchAfter    []gojson.RawMessage
	TrackTotalHits bool
	Includes       []string
	Excludes       []string
	Timeout        time.Duration
	SearchType     SearchType
	Headers        map[string]string
}

// SearchResponse is the part of a page result the reader consumes.
type SearchResponse struct {
	Total    int64
	TimedOut bool
	Took     time.Duration
	Hits     []Hit
}

// Hit is one matched document. Source keeps the raw JSON text so the
// caller controls number decoding.
type Hit struct {
	Index  string
	ID     string
	Source gojson.RawMessage
	Sort   []gojson.RawMessage
}

// LastSort returns the sort values of the final hit on the page.
func (r *SearchResponse) LastSort() []gojson.RawMessage {
	if r == nil || len(r.Hits) == 0 {
		return nil
	}
	return r.Hits[len(r.Hits)-1].Sort
}
