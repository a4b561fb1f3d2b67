package esextract

import (
	"context"
	"log/slog"

	"github.com/nonibytes/esextract/esextract/column"
)

// Sink receives finished records one at a time, in emission order.
type Sink interface {
	Send(ctx context.Context, rec column.Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec column.Record) error

func (f SinkFunc) Send(ctx context.Context, rec column.Record) error { return f(ctx, rec) }

// DirtyRecord is a record that was emitted even though some of its fields
// could not be typed. Record holds the fields that could.
type DirtyRecord struct {
	Index  string
	HitID  string
	Record column.Record
	Errors []error
	// Trace is the accumulated, human-readable error text.
	Trace string
}

// DirtyCollector receives dirty-record reports.
type DirtyCollector interface {
	CollectDirty(ctx context.Context, d DirtyRecord) error
}

// LogCollector reports dirty records as warnings. It is the default.
type LogCollector struct {
	Logger *slog.Logger
}

func (c LogCollector) CollectDirty(ctx context.Context, d DirtyRecord) error {
	l := c.Logger
	if l == nil {
		l = slog.Default()
	}
	l.WarnContext(ctx, "dirty record",
		"index", d.Index,
		"hit", d.HitID,
		"fields", d.Record.Len(),
		"errors", len(d.Errors),
		"trace", d.Trace,
	)
	return nil
}
