package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nonibytes/esextract/esextract/flatten"
	"github.com/nonibytes/esextract/esextract/jsonv"
)

// ErrNotBoolean is returned when a logical operator meets a non-boolean
// operand.
var ErrNotBoolean = errors.New("operand is not a boolean")

// Predicate evaluates an expression against one row. The result is usually
// a boolean; callers treat anything else as "no decision".
type Predicate interface {
	Eval(row *flatten.Row) (jsonv.Value, error)
}

// Compile parses src into a Predicate.
func Compile(src string) (Predicate, error) {
	expr, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return exprPredicate{expr: expr}, nil
}

type exprPredicate struct {
	expr Expr
}

func (p exprPredicate) Eval(row *flatten.Row) (jsonv.Value, error) {
	return Eval(p.expr, row)
}

// Eval evaluates expr with row fields as named variables.
func Eval(expr Expr, row *flatten.Row) (jsonv.Value, error) {
	switch e := expr.(type) {
	case Literal:
		return e.Value, nil
	case Field:
		v, _ := row.Get(e.Name)
		return v, nil
	case Not:
		b, err := evalBool(e.Inner, row)
		if err != nil {
			return jsonv.Value{}, err
		}
		return jsonv.Bool(!b), nil
	case And:
		l, err := evalBool(e.Left, row)
		if err != nil || !l {
			return jsonv.Bool(false), err
		}
		r, err := evalBool(e.Right, row)
		return jsonv.Bool(r), err
	case Or:
		l, err := evalBool(e.Left, row)
		if err != nil {
			return jsonv.Value{}, err
		}
		if l {
			return jsonv.Bool(true), nil
		}
		r, err := evalBool(e.Right, row)
		return jsonv.Bool(r), err
	case Compare:
		l, err := Eval(e.Left, row)
		if err != nil {
			return jsonv.Value{}, err
		}
		r, err := Eval(e.Right, row)
		if err != nil {
			return jsonv.Value{}, err
		}
		b, err := compare(e.Op, l, r)
		return jsonv.Bool(b), err
	}
	return jsonv.Value{}, fmt.Errorf("unknown expression %T", expr)
}

func evalBool(expr Expr, row *flatten.Row) (bool, error) {
	v, err := Eval(expr, row)
	if err != nil {
		return false, err
	}
	b, ok := v.AsBool()
	if !ok {
		return false, fmt.Errorf("%w: got %s", ErrNotBoolean, v.Kind())
	}
	return b, nil
}

func compare(op CmpOp, l, r jsonv.Value) (bool, error) {
	if op == CmpEq {
		return equal(l, r), nil
	}
	if op == CmpNeq {
		return !equal(l, r), nil
	}

	c, err := order(l, r)
	if err != nil {
		return false, err
	}
	switch op {
	case CmpGt:
		return c > 0, nil
	case CmpGte:
		return c >= 0, nil
	case CmpLt:
		return c < 0, nil
	case CmpLte:
		return c <= 0, nil
	}
	return false, fmt.Errorf("unknown operator %v", op)
}

// equal compares numbers by value across integer and float kinds; other
// kinds must match exactly.
func equal(l, r jsonv.Value) bool {
	if ln, ok := l.Number(); ok {
		if rn, ok := r.Number(); ok {
			return ln == rn
		}
		return false
	}
	return l.Equal(r)
}

func order(l, r jsonv.Value) (int, error) {
	if ln, ok := l.Number(); ok {
		if rn, ok := r.Number(); ok {
			switch {
			case ln < rn:
				return -1, nil
			case ln > rn:
				return 1, nil
			}
			return 0, nil
		}
	}
	if ls, ok := l.AsString(); ok {
		if rs, ok := r.AsString(); ok {
			return strings.Compare(ls, rs), nil
		}
	}
	if lt, ok := l.AsTime(); ok {
		if rt, ok := r.AsTime(); ok {
			return lt.Compare(rt), nil
		}
	}
	return 0, fmt.Errorf("cannot order %s and %s", l.Kind(), r.Kind())
}
