package filter

import "github.com/nonibytes/esextract/esextract/jsonv"

// Expr represents a filter expression
type Expr interface {
	isExpr()
}

// And represents a boolean AND of two expressions
type And struct {
	Left  Expr
	Right Expr
}

func (And) isExpr() {}

// Or represents a boolean OR of two expressions
type Or struct {
	Left  Expr
	Right Expr
}

func (Or) isExpr() {}

// Not represents a boolean NOT of an expression
type Not struct {
	Inner Expr
}

func (Not) isExpr() {}

// Field references a row value by output name. Missing fields read as null.
type Field struct {
	Name string
}

func (Field) isExpr() {}

// Literal is a constant value
type Literal struct {
	Value jsonv.Value
}

func (Literal) isExpr() {}

// CmpOp is a comparison operator
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNeq
	CmpGt
	CmpGte
	CmpLt
	CmpLte
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "=="
	case CmpNeq:
		return "!="
	case CmpGt:
		return ">"
	case CmpGte:
		return ">="
	case CmpLt:
		return "<"
	case CmpLte:
		return "<="
	default:
		return "?"
	}
}

// Compare applies a comparison operator to two operands
type Compare struct {
	Op    CmpOp
	Left  Expr
	Right Expr
}

func (Compare) isExpr() {}
