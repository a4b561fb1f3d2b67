// Package elastic implements engine.Engine on the official Elasticsearch
// client.
package elastic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	gojson "github.com/goccy/go-json"

	"github.com/nonibytes/esextract/esextract/engine"
)

// Config holds the connection settings for one cluster.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
	CloudID   string
	// Header is sent with every request; per-search headers are added on top.
	Header http.Header
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client is an engine.Engine backed by an elasticsearch.Client.
type Client struct {
	es *elasticsearch.Client
}

// New builds a client. No request is made until the first call.
func New(cfg Config) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		CloudID:   cfg.CloudID,
		Header:    cfg.Header,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Connector returns an engine.Connector that builds a new client per task.
func Connector(cfg Config) engine.Connector {
	return func(ctx context.Context) (engine.Engine, error) {
		return New(cfg)
	}
}

func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer drain(res)
	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	}
	return false, responseError(res)
}

func (c *Client) Search(ctx context.Context, req engine.SearchRequest) (*engine.SearchResponse, error) {
	body, err := engine.BuildBody(req)
	if err != nil {
		return nil, err
	}
	opts := []func(*esapi.SearchRequest){
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(req.Index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	}
	if req.SearchType != "" {
		opts = append(opts, c.es.Search.WithSearchType(string(req.SearchType)))
	}
	if len(req.Headers) > 0 {
		opts = append(opts, c.es.Search.WithHeader(req.Headers))
	}

	res, err := c.es.Search(opts...)
	if err != nil {
		return nil, err
	}
	defer drain(res)
	if res.IsError() {
		return nil, responseError(res)
	}
	return decodeSearch(res.Body)
}

// Close releases idle connections held by the transport.
func (c *Client) Close() error {
	if t, ok := c.es.Transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

type searchResult struct {
	Took     int64 `json:"took"`
	TimedOut bool  `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value    int64  `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		Hits []struct {
			Index  string              `json:"_index"`
			ID     string              `json:"_id"`
			Source gojson.RawMessage   `json:"_source"`
			Sort   []gojson.RawMessage `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

func decodeSearch(r io.Reader) (*engine.SearchResponse, error) {
	var sr searchResult
	if err := gojson.NewDecoder(r).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	out := &engine.SearchResponse{
		Total:    sr.Hits.Total.Value,
		TimedOut: sr.TimedOut,
		Took:     time.Duration(sr.Took) * time.Millisecond,
		Hits:     make([]engine.Hit, len(sr.Hits.Hits)),
	}
	for i, h := range sr.Hits.Hits {
		out.Hits[i] = engine.Hit{Index: h.Index, ID: h.ID, Source: h.Source, Sort: h.Sort}
	}
	return out, nil
}

type errorBody struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

func responseError(res *esapi.Response) error {
	var eb errorBody
	if res.Body != nil {
		_ = gojson.NewDecoder(res.Body).Decode(&eb)
	}
	if eb.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", res.Status(), eb.Error.Type, eb.Error.Reason)
	}
	return fmt.Errorf("unexpected response: %s", res.Status())
}

func drain(res *esapi.Response) {
	if res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
