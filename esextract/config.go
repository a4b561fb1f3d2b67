package esextract

import (
	"strings"
	"time"

	"github.com/nonibytes/esextract/esextract/engine"
	"github.com/nonibytes/esextract/esextract/filter"
	"github.com/nonibytes/esextract/esextract/filter/celfilter"
	"github.com/nonibytes/esextract/esextract/flatten"
)

const (
	DefaultPageSize = 1000
	DefaultTimeout  = time.Minute
)

// FilterLanguage selects the compiler for TableSchema.Filter.
type FilterLanguage string

const (
	FilterExpr FilterLanguage = "expr"
	FilterCEL  FilterLanguage = "cel"
)

// TableSchema describes the rows produced from each document.
type TableSchema struct {
	Columns         []flatten.FieldSpec
	Filter          string
	FilterLanguage  FilterLanguage
	DeleteFilterKey string
	NameCase        flatten.NameCase
}

// Flattener compiles the column tree.
func (s TableSchema) Flattener() (*flatten.Flattener, error) {
	if len(s.Columns) == 0 {
		return nil, MissingSchemaError("table has no columns")
	}
	f, err := flatten.New(s.Columns, s.NameCase)
	if err != nil {
		return nil, Wrap(ErrMissingSchema, "invalid column tree", err)
	}
	return f, nil
}

// Compiler returns the filter compiler for the schema's language. names are
// the output column names, which CEL needs declared up front.
func (s TableSchema) Compiler(names []string) (filter.CompileFunc, error) {
	switch FilterLanguage(strings.ToLower(string(s.FilterLanguage))) {
	case "", FilterExpr:
		return filter.Compile, nil
	case FilterCEL:
		return celfilter.Compiler(names)
	}
	return nil, ConfigError("unknown filter language " + string(s.FilterLanguage))
}

// TaskConfig is everything one extraction task needs besides its engine
// session and its sink.
type TaskConfig struct {
	Index string
	// Query is the engine-native query body. An empty body matches all.
	Query      []byte
	PageSize   int
	Timeout    time.Duration
	Includes   []string
	Excludes   []string
	SearchType engine.SearchType
	Headers    map[string]string
	// ContainsID adds the hit id as column "_id", before filtering.
	ContainsID bool
	Table      TableSchema
	// PageRate caps page queries per second. Zero means unlimited.
	PageRate float64
}

func (c TaskConfig) withDefaults() TaskConfig {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SearchType == "" {
		c.SearchType = engine.SearchQueryThenFetch
	}
	return c
}

// Validate reports configuration that would make the task fail before any
// query.
func (c TaskConfig) Validate() error {
	if strings.TrimSpace(c.Index) == "" {
		return ConfigError("index is required")
	}
	if len(c.Table.Columns) == 0 {
		return &Error{Kind: ErrMissingSchema, Message: "table has no columns", Index: c.Index}
	}
	if c.PageRate < 0 {
		return ConfigError("page rate must not be negative")
	}
	return nil
}

// OutputNames lists the columns a sink receives, in order. The filter
// bookkeeping key is stripped from every row and is not among them.
func (c TaskConfig) OutputNames() ([]string, error) {
	names, err := c.rowNames()
	if err != nil {
		return nil, err
	}
	if c.Table.DeleteFilterKey == "" {
		return names, nil
	}
	out := names[:0:0]
	for _, n := range names {
		if n != c.Table.DeleteFilterKey {
			out = append(out, n)
		}
	}
	return out, nil
}

// rowNames lists the keys every flattened row starts with, bookkeeping key
// included.
func (c TaskConfig) rowNames() ([]string, error) {
	f, err := c.Table.Flattener()
	if err != nil {
		return nil, withIndex(err, c.Index)
	}
	names := append([]string(nil), f.OutputNames()...)
	if c.ContainsID {
		names = append(names, IDColumn)
	}
	return names, nil
}

// CheckFilter compiles the table filter and reports why it does not
// compile. A task with such a filter still runs and accepts every row.
func (c TaskConfig) CheckFilter() error {
	if strings.TrimSpace(c.Table.Filter) == "" {
		return nil
	}
	names, err := c.rowNames()
	if err != nil {
		return err
	}
	compile, err := c.Table.Compiler(names)
	if err != nil {
		return err
	}
	if _, err := compile(c.Table.Filter); err != nil {
		return &Error{Kind: ErrFilter, Message: "filter does not compile", Index: c.Index, Cause: err}
	}
	return nil
}
