package filter

import (
	"fmt"

	"github.com/nonibytes/esextract/esextract/jsonv"
)

// Parse parses a filter expression into an AST.
//
//	expr    := or
//	or      := and { ("||" | "or") and }
//	and     := not { ("&&" | "and") not }
//	not     := ("!" | "not") not | cmp
//	cmp     := operand [ op operand ]
//	operand := literal | field | "(" expr ")"
func Parse(input string) (Expr, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.match(TokEOF) {
		return nil, fmt.Errorf("unexpected %v at offset %d", p.current().Kind, p.current().Pos)
	}
	return expr, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.match(TokOr) {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.match(TokAnd) {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}

	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.match(TokNot) {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	op, ok := cmpOp(p.current().Kind)
	if !ok {
		return left, nil
	}
	p.advance()

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if _, chained := cmpOp(p.current().Kind); chained {
		return nil, fmt.Errorf("chained comparison at offset %d", p.current().Pos)
	}
	return Compare{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseOperand() (Expr, error) {
	tok := p.current()
	switch tok.Kind {
	case TokLParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.match(TokRParen) {
			return nil, fmt.Errorf("expected ')' at offset %d, got %v", p.current().Pos, p.current().Kind)
		}
		p.advance()
		return expr, nil
	case TokIdent:
		p.advance()
		return Field{Name: tok.Value}, nil
	case TokString:
		p.advance()
		return Literal{Value: jsonv.String(tok.Value)}, nil
	case TokNumber:
		p.advance()
		v, err := jsonv.ParseNumber(tok.Value)
		if err != nil {
			return nil, err
		}
		return Literal{Value: v}, nil
	case TokTrue:
		p.advance()
		return Literal{Value: jsonv.Bool(true)}, nil
	case TokFalse:
		p.advance()
		return Literal{Value: jsonv.Bool(false)}, nil
	case TokNull:
		p.advance()
		return Literal{Value: jsonv.Null()}, nil
	case TokEOF:
		return nil, fmt.Errorf("unexpected end of expression")
	}
	return nil, fmt.Errorf("expected operand at offset %d, got %v", tok.Pos, tok.Kind)
}

func cmpOp(k TokenKind) (CmpOp, bool) {
	switch k {
	case TokEq:
		return CmpEq, true
	case TokNeq:
		return CmpNeq, true
	case TokGt:
		return CmpGt, true
	case TokGte:
		return CmpGte, true
	case TokLt:
		return CmpLt, true
	case TokLte:
		return CmpLte, true
	}
	return 0, false
}

func (p *parser) current() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Kind: TokEOF}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) match(kind TokenKind) bool {
	return p.current().Kind == kind
}
