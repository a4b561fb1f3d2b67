// Package jsonl writes records as JSON lines, one object per record with
// keys in column order.
package jsonl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	gojson "github.com/goccy/go-json"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/esextract/column"
)

// ErrLocked is returned when another process holds the output file.
var ErrLocked = errors.New("output file is locked by another process")

const lockRetry = 50 * time.Millisecond

// Sink appends to a file guarded by an OS lock on "<path>.lock". It is safe
// for concurrent use.
type Sink struct {
	path string
	lock *flock.Flock

	mu      sync.Mutex
	f       *os.File
	w       *bufio.Writer
	buf     []byte
	written int64
}

// Open acquires the lock, waiting until ctx is done, and opens path for
// appending.
func Open(ctx context.Context, path string) (*Sink, error) {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &Sink{path: path, lock: lock, f: f, w: bufio.NewWriter(f)}, nil
}

func (s *Sink) Send(ctx context.Context, rec column.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("sink %s is closed", s.path)
	}
	b, err := AppendRecord(s.buf[:0], rec)
	if err != nil {
		return err
	}
	s.buf = append(b, '\n')
	if _, err := s.w.Write(s.buf); err != nil {
		return err
	}
	s.written++
	return nil
}

// CollectDirty writes a dirty-record report as one line, so a Sink can
// serve as the dirty collector for a task.
func (s *Sink) CollectDirty(ctx context.Context, d esextract.DirtyRecord) error {
	recJSON, err := AppendRecord(nil, d.Record)
	if err != nil {
		return err
	}
	line, err := gojson.Marshal(struct {
		Index  string            `json:"index"`
		Hit    string            `json:"hit"`
		Trace  string            `json:"trace"`
		Record gojson.RawMessage `json:"record"`
	}{d.Index, d.HitID, d.Trace, recJSON})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("sink %s is closed", s.path)
	}
	if _, err := s.w.Write(append(line, '\n')); err != nil {
		return err
	}
	s.written++
	return nil
}

// Written counts lines written.
func (s *Sink) Written() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Close flushes, closes the file and releases the lock.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.w.Flush()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// AppendRecord appends rec as a JSON object. Decimals are written as JSON
// numbers with their exact digits, dates as RFC 3339 strings and bytes as
// base64.
func AppendRecord(dst []byte, rec column.Record) ([]byte, error) {
	dst = append(dst, '{')
	for i, c := range rec.Columns {
		if i > 0 {
			dst = append(dst, ',')
		}
		k, err := gojson.Marshal(rec.Names[i])
		if err != nil {
			return nil, err
		}
		dst = append(append(dst, k...), ':')
		v, err := columnJSON(c)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", rec.Names[i], err)
		}
		dst = append(dst, v...)
	}
	return append(dst, '}'), nil
}

func columnJSON(c column.Column) ([]byte, error) {
	if c.IsNull() {
		return []byte("null"), nil
	}
	switch v := c.(type) {
	case column.Decimal:
		return []byte(v.Digits), nil
	case column.Date:
		return gojson.Marshal(v.Value.Format(time.RFC3339Nano))
	}
	return gojson.Marshal(c.Raw())
}
