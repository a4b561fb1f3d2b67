package filter

import (
	"io"
	"log/slog"
	"strings"

	"github.com/nonibytes/esextract/esextract/flatten"
)

// CompileFunc turns expression text into a Predicate. Compile is the
// default; celfilter provides another.
type CompileFunc func(src string) (Predicate, error)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCompiler replaces the expression compiler.
func WithCompiler(fn CompileFunc) Option {
	return func(e *Evaluator) { e.compile = fn }
}

// WithLogger sets the logger used to report compile and evaluation failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

// Evaluator decides whether a row is kept. It never fails: a filter that
// does not compile, errors at runtime or yields a non-boolean accepts the
// row, so a bad filter cannot abort an extraction.
type Evaluator struct {
	expr           string
	bookkeepingKey string
	compile        CompileFunc
	logger         *slog.Logger

	pred       Predicate
	compileErr error
}

// NewEvaluator compiles expr once. bookkeepingKey, when set, is removed from
// every row before evaluation and never reaches the output.
func NewEvaluator(expr, bookkeepingKey string, opts ...Option) *Evaluator {
	e := &Evaluator{
		expr:           strings.TrimSpace(expr),
		bookkeepingKey: strings.TrimSpace(bookkeepingKey),
		compile:        Compile,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(e)
	}
	if e.expr != "" {
		e.pred, e.compileErr = e.compile(e.expr)
		if e.compileErr != nil {
			e.logger.Warn("filter does not compile; accepting all rows", "filter", e.expr, "error", e.compileErr)
		}
	}
	return e
}

// CompileErr reports why the expression was rejected, if it was.
func (e *Evaluator) CompileErr() error { return e.compileErr }

// Accept strips the bookkeeping key from row and evaluates the filter.
func (e *Evaluator) Accept(row *flatten.Row) bool {
	if e.bookkeepingKey != "" {
		row.Delete(e.bookkeepingKey)
	}
	if e.expr == "" || e.pred == nil {
		return true
	}
	v, err := e.pred.Eval(row)
	if err != nil {
		e.logger.Debug("filter evaluation failed; row accepted", "filter", e.expr, "error", err)
		return true
	}
	b, ok := v.AsBool()
	if !ok {
		e.logger.Debug("filter returned non-boolean; row accepted", "filter", e.expr, "kind", v.Kind().String())
		return true
	}
	return b
}
