package sqlsink

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/nonibytes/esextract/esextract/column"
)

const DefaultBatchSize = 500

type Option func(*Sink)

// WithBatchSize sets how many records are written per transaction.
func WithBatchSize(n int) Option {
	return func(s *Sink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// Sink buffers records and inserts them in batches. It is safe for
// concurrent use.
type Sink struct {
	adapter   Adapter
	db        *sql.DB
	table     string
	types     map[string]column.Type
	batchSize int
	logger    *slog.Logger

	mu       sync.Mutex
	pending  []column.Record
	inserted int64
	closed   bool
}

// Open connects and creates the table if it does not exist.
func Open(ctx context.Context, adapter Adapter, table Table, opts ...Option) (*Sink, error) {
	ddl, err := createTableSQL(adapter, table)
	if err != nil {
		return nil, err
	}
	s := &Sink{
		adapter:   adapter,
		batchSize: DefaultBatchSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		types:     make(map[string]column.Type, len(table.Columns)),
	}
	for _, o := range opts {
		o(s)
	}
	s.table, _ = quoteIdent(table.Name)
	for _, c := range table.Columns {
		s.types[c.Name] = c.Type
	}

	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", adapter.Target(), err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	s.db = db
	s.logger.Debug("sql sink ready", "backend", string(adapter.Backend()), "target", adapter.Target(), "table", table.Name)
	return s, nil
}

// Send queues rec and writes the queue once it reaches the batch size.
func (s *Sink) Send(ctx context.Context, rec column.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink is closed")
	}
	for _, n := range rec.Names {
		if _, ok := s.types[n]; !ok {
			return fmt.Errorf("column %q is not in table %s", n, s.table)
		}
	}
	s.pending = append(s.pending, rec)
	if len(s.pending) >= s.batchSize {
		return s.flushLocked(ctx)
	}
	return nil
}

// Flush writes all queued records.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Sink) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range s.pending {
		cols := make([]string, rec.Len())
		vals := make([]any, rec.Len())
		for i, c := range rec.Columns {
			cols[i], _ = quoteIdent(rec.Names[i])
			vals[i] = s.adapter.Arg(c, s.types[rec.Names[i]])
		}
		b := NewBuilder(s.adapter.PlaceholderStyle())
		q := insert(b, s.table, cols, vals)
		if _, err := tx.ExecContext(ctx, q, b.Args()...); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.inserted += int64(len(s.pending))
	s.logger.Debug("sql sink flushed", "records", len(s.pending), "total", s.inserted)
	s.pending = s.pending[:0]
	return nil
}

// Inserted counts committed records.
func (s *Sink) Inserted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted
}

// DB exposes the connection, mainly for inspection.
func (s *Sink) DB() *sql.DB { return s.db }

// Close flushes what is queued and releases the connection.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.flushLocked(context.Background())
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	if cerr := s.adapter.Close(); err == nil {
		err = cerr
	}
	return err
}
