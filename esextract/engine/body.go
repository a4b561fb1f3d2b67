package engine

import (
	"bytes"
	"fmt"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// BuildBody overlays the paging keys of req onto its query body. Keys the
// caller set that the reader owns (size, search_after, track_total_hits,
// _source, timeout) are replaced; everything else passes through untouched.
func BuildBody(req SearchRequest) ([]byte, error) {
	body := map[string]gojson.RawMessage{}
	if q := bytes.TrimSpace(req.Query); len(q) > 0 {
		if err := gojson.Unmarshal(q, &body); err != nil {
			return nil, fmt.Errorf("query body is not a JSON object: %w", err)
		}
		if body == nil {
			body = map[string]gojson.RawMessage{}
		}
	}

	if req.Size > 0 {
		body["size"] = gojson.RawMessage(strconv.Itoa(req.Size))
	}
	if req.TrackTotalHits {
		body["track_total_hits"] = gojson.RawMessage("true")
	} else {
		delete(body, "track_total_hits")
	}
	if len(req.SearchAfter) > 0 {
		b, err := gojson.Marshal(req.SearchAfter)
		if err != nil {
			return nil, fmt.Errorf("encode search_after: %w", err)
		}
		body["search_after"] = b
	} else {
		delete(body, "search_after")
	}
	if len(req.Includes) > 0 || len(req.Excludes) > 0 {
		src := struct {
			Includes []string `json:"includes,omitempty"`
			Excludes []string `json:"excludes,omitempty"`
		}{req.Includes, req.Excludes}
		b, err := gojson.Marshal(src)
		if err != nil {
			return nil, fmt.Errorf("encode _source: %w", err)
		}
		body["_source"] = b
	}
	if req.Timeout > 0 {
		body["timeout"] = gojson.RawMessage(strconv.Quote(strconv.FormatInt(req.Timeout.Milliseconds(), 10) + "ms"))
	}
	return gojson.Marshal(body)
}
