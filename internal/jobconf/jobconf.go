// Package jobconf reads extraction job files.
package jobconf

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/esextract/engine"
	"github.com/nonibytes/esextract/esextract/flatten"
	"github.com/nonibytes/esextract/esextract/jsonv"
)

//go:embed job.schema.json
var schemaJSON string

var jobSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("jobconf: invalid embedded schema: %v", err))
	}
	return s
}()

// File is a job file. YAML is the native format; JSON files parse too.
type File struct {
	Connection  Connection        `yaml:"connection"`
	Index       string            `yaml:"index"`
	Query       any               `yaml:"query"`
	Queries     []any             `yaml:"queries"`
	Size        int               `yaml:"size"`
	Timeout     any               `yaml:"timeout"`
	Includes    []string          `yaml:"includes"`
	Excludes    []string          `yaml:"excludes"`
	SearchType  string            `yaml:"searchType"`
	Headers     map[string]string `yaml:"headers"`
	ContainsID  bool              `yaml:"containsId"`
	PageRate    float64           `yaml:"pageRate"`
	Concurrency int               `yaml:"concurrency"`
	Table       Table             `yaml:"table"`
	Sink        Sink              `yaml:"sink"`
}

type Connection struct {
	Endpoints []string          `yaml:"endpoints"`
	Username  string            `yaml:"username"`
	Password  string            `yaml:"password"`
	APIKey    string            `yaml:"apiKey"`
	CloudID   string            `yaml:"cloudId"`
	Headers   map[string]string `yaml:"headers"`
}

type Table struct {
	Columns         []Column `yaml:"column"`
	Filter          string   `yaml:"filter"`
	FilterLanguage  string   `yaml:"filterLanguage"`
	DeleteFilterKey string   `yaml:"deleteFilterKey"`
	NameCase        string   `yaml:"nameCase"`
}

// Column mirrors flatten.FieldSpec. Value is the default used when the
// source key is absent.
type Column struct {
	Name  string   `yaml:"name"`
	Alias string   `yaml:"alias"`
	Value any      `yaml:"value"`
	Child []Column `yaml:"child"`
}

type Sink struct {
	Type      string `yaml:"type"`
	Path      string `yaml:"path"`
	DSN       string `yaml:"dsn"`
	Schema    string `yaml:"schema"`
	Table     string `yaml:"table"`
	BatchSize int    `yaml:"batchSize"`
	DirtyPath string `yaml:"dirtyPath"`
}

// Load reads and parses the job file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, esextract.Wrap(esextract.ErrConfig, "read job file", err)
	}
	return Parse(data)
}

// Parse validates data against the job schema and decodes it.
func Parse(data []byte) (*File, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, esextract.Wrap(esextract.ErrConfig, "parse job file", err)
	}
	if doc == nil {
		return nil, esextract.ConfigError("job file is empty")
	}
	res, err := jobSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, esextract.Wrap(esextract.ErrConfig, "validate job file", err)
	}
	if !res.Valid() {
		msgs := make([]string, len(res.Errors()))
		for i, e := range res.Errors() {
			msgs[i] = e.String()
		}
		return nil, esextract.ConfigError("invalid job file: " + strings.Join(msgs, "; "))
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, esextract.Wrap(esextract.ErrConfig, "decode job file", err)
	}
	return &f, nil
}

// Fields converts the column tree.
func (t Table) Fields() []flatten.FieldSpec {
	return fields(t.Columns)
}

func fields(cols []Column) []flatten.FieldSpec {
	if len(cols) == 0 {
		return nil
	}
	out := make([]flatten.FieldSpec, len(cols))
	for i, c := range cols {
		out[i] = flatten.FieldSpec{
			Name:     c.Name,
			Alias:    c.Alias,
			Default:  jsonv.FromAny(c.Value),
			Children: fields(c.Child),
		}
	}
	return out
}

// Schema converts the table section.
func (t Table) Schema() (esextract.TableSchema, error) {
	nc, err := flatten.ParseNameCase(t.NameCase)
	if err != nil {
		return esextract.TableSchema{}, esextract.Wrap(esextract.ErrConfig, "table.nameCase", err)
	}
	return esextract.TableSchema{
		Columns:         t.Fields(),
		Filter:          t.Filter,
		FilterLanguage:  esextract.FilterLanguage(t.FilterLanguage),
		DeleteFilterKey: t.DeleteFilterKey,
		NameCase:        nc,
	}, nil
}

// Job builds the extraction job described by the file.
func (f *File) Job() (esextract.Job, error) {
	table, err := f.Table.Schema()
	if err != nil {
		return esextract.Job{}, err
	}
	st, ok := engine.ParseSearchType(f.SearchType)
	if !ok {
		return esextract.Job{}, esextract.ConfigError("unknown searchType " + f.SearchType)
	}
	timeout, err := parseTimeout(f.Timeout)
	if err != nil {
		return esextract.Job{}, err
	}
	query, err := queryBody(f.Query)
	if err != nil {
		return esextract.Job{}, err
	}
	job := esextract.Job{
		Task: esextract.TaskConfig{
			Index:      f.Index,
			Query:      query,
			PageSize:   f.Size,
			Timeout:    timeout,
			Includes:   f.Includes,
			Excludes:   f.Excludes,
			SearchType: st,
			Headers:    f.Headers,
			ContainsID: f.ContainsID,
			Table:      table,
			PageRate:   f.PageRate,
		},
		Concurrency: f.Concurrency,
	}
	for i, q := range f.Queries {
		b, err := queryBody(q)
		if err != nil {
			return esextract.Job{}, esextract.Wrap(esextract.ErrConfig, fmt.Sprintf("queries[%d]", i), err)
		}
		job.Queries = append(job.Queries, b)
	}
	if err := job.Task.Validate(); err != nil {
		return esextract.Job{}, err
	}
	return job, nil
}

// queryBody accepts a query given as a mapping or as JSON text.
func queryBody(q any) ([]byte, error) {
	switch v := q.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		if !gojson.Valid([]byte(s)) {
			return nil, esextract.ConfigError("query is not valid JSON")
		}
		return []byte(s), nil
	}
	b, err := gojson.Marshal(q)
	if err != nil {
		return nil, esextract.Wrap(esextract.ErrConfig, "encode query", err)
	}
	return b, nil
}

// parseTimeout takes a duration string or a number of milliseconds.
func parseTimeout(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(t) * time.Millisecond, nil
	case string:
		if ms, err := strconv.ParseInt(t, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, esextract.Wrap(esextract.ErrConfig, "timeout", err)
		}
		return d, nil
	}
	return 0, esextract.ConfigError(fmt.Sprintf("timeout has unsupported type %T", v))
}
