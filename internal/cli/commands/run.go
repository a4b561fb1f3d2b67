package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/esextract/column"
	"github.com/nonibytes/esextract/esextract/sink/jsonl"
	"github.com/nonibytes/esextract/esextract/sink/sqlsink"
	"github.com/nonibytes/esextract/internal/cliopt"
	"github.com/nonibytes/esextract/internal/cliutil"
	"github.com/nonibytes/esextract/internal/jobconf"
)

type summary struct {
	Index         string `json:"index" yaml:"index"`
	Tasks         int    `json:"tasks" yaml:"tasks"`
	Total         int64  `json:"total" yaml:"total"`
	Pages         int    `json:"pages" yaml:"pages"`
	Hits          int    `json:"hits" yaml:"hits"`
	Rows          int    `json:"rows" yaml:"rows"`
	Filtered      int    `json:"filtered" yaml:"filtered"`
	AllNull       int    `json:"allNull" yaml:"allNull"`
	Dirty         int    `json:"dirty" yaml:"dirty"`
	QueryTime     string `json:"queryTime" yaml:"queryTime"`
	TransportTime string `json:"transportTime" yaml:"transportTime"`
}

func NewRunCmd(env *cliopt.Env) *cobra.Command {
	var concurrency int
	var pageRate float64
	var metricsFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the extraction job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, job, err := loadJob(env)
			if err != nil {
				return err
			}
			if concurrency > 0 {
				job.Concurrency = concurrency
			}
			if pageRate > 0 {
				job.Task.PageRate = pageRate
			}
			logger, err := newLogger(env)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			names, err := job.Task.OutputNames()
			if err != nil {
				return err
			}
			sink, closeSink, err := openSink(ctx, env, f, job.Task.Index, names, logger)
			if err != nil {
				return esextract.Wrap(esextract.ErrSink, "open sink", err)
			}
			dirty, closeDirty, err := openDirty(ctx, env, f, logger)
			if err != nil {
				_ = closeSink()
				return esextract.Wrap(esextract.ErrSink, "open dirty record file", err)
			}

			reg := prometheus.NewRegistry()
			metrics, err := esextract.NewMetrics(reg)
			if err != nil {
				return err
			}
			if err := job.Task.CheckFilter(); err != nil {
				logger.Warn("filter will accept every row", "error", err)
			}

			stats, runErr := esextract.RunJob(ctx, connector(env, f), job, sink,
				esextract.WithLogger(logger),
				esextract.WithMetrics(metrics),
				esextract.WithDirtyCollector(dirty),
			)
			err = errors.Join(runErr, closeSink(), closeDirty())
			if metricsFile != "" {
				if werr := prometheus.WriteToTextfile(metricsFile, reg); werr != nil {
					err = errors.Join(err, werr)
				}
			}
			if err != nil {
				return err
			}

			sum := stats.Sum()
			return cliutil.Print(env.Err, env.G.Format, summary{
				Index:         job.Task.Index,
				Tasks:         len(stats.Tasks),
				Total:         sum.Total,
				Pages:         sum.Pages,
				Hits:          sum.Hits,
				Rows:          sum.Rows,
				Filtered:      sum.Filtered,
				AllNull:       sum.AllNull,
				Dirty:         sum.Dirty,
				QueryTime:     sum.QueryTime.String(),
				TransportTime: sum.TransportTime.String(),
			})
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "tasks run at once (overrides the job file)")
	cmd.Flags().Float64Var(&pageRate, "page-rate", 0, "max page queries per second per task")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file when done")
	return cmd
}

func openSink(ctx context.Context, env *cliopt.Env, f *jobconf.File, index string, names []string, logger *slog.Logger) (esextract.Sink, func() error, error) {
	cfg := f.Sink
	table := cfg.Table
	if table == "" {
		table = index
	}
	switch cfg.Type {
	case "", "jsonl":
		path := cliutil.ResolvePath(env.G.JobFile, cfg.Path)
		if path == "" || path == "-" {
			s := &writerSink{w: env.Out}
			return s, func() error { return nil }, nil
		}
		s, err := jsonl.Open(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "sqlite", "sqlite3":
		path := cliutil.ResolvePath(env.G.JobFile, cfg.Path)
		if path == "" {
			return nil, nil, fmt.Errorf("sink.path is required for %s", cfg.Type)
		}
		s, err := sqlsink.Open(ctx, sqlsink.NewSQLiteWithDriver(path, cfg.Type),
			sqlsink.Table{Name: table, Columns: sqlsink.Columns(names)},
			sqlsink.WithBatchSize(cfg.BatchSize), sqlsink.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		schema := cfg.Schema
		if schema == "" {
			schema = "public"
		}
		s, err := sqlsink.Open(ctx, sqlsink.NewPostgres(cfg.DSN, schema),
			sqlsink.Table{Name: table, Columns: sqlsink.Columns(names)},
			sqlsink.WithBatchSize(cfg.BatchSize), sqlsink.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown sink type %q", cfg.Type)
}

func openDirty(ctx context.Context, env *cliopt.Env, f *jobconf.File, logger *slog.Logger) (esextract.DirtyCollector, func() error, error) {
	path := cliutil.ResolvePath(env.G.JobFile, f.Sink.DirtyPath)
	if path == "" {
		return esextract.LogCollector{Logger: logger}, func() error { return nil }, nil
	}
	s, err := jsonl.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// writerSink writes JSON lines to a plain writer such as stdout.
type writerSink struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

func (s *writerSink) Send(ctx context.Context, rec column.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := jsonl.AppendRecord(s.buf[:0], rec)
	if err != nil {
		return err
	}
	s.buf = append(b, '\n')
	_, err = s.w.Write(s.buf)
	return err
}
