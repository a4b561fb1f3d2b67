package filter

import (
	"fmt"
	"strings"
	"unicode"
)

// Token represents a lexical token
type Token struct {
	Kind  TokenKind
	Value string
	Pos   int
}

// TokenKind is the type of token
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokString
	TokNumber
	TokTrue
	TokFalse
	TokNull
	TokAnd
	TokOr
	TokNot
	TokLParen
	TokRParen
	TokEq
	TokNeq
	TokGt
	TokGte
	TokLt
	TokLte
	TokEOF
)

func (k TokenKind) String() string {
	switch k {
	case TokIdent:
		return "Ident"
	case TokString:
		return "String"
	case TokNumber:
		return "Number"
	case TokTrue:
		return "True"
	case TokFalse:
		return "False"
	case TokNull:
		return "Null"
	case TokAnd:
		return "And"
	case TokOr:
		return "Or"
	case TokNot:
		return "Not"
	case TokLParen:
		return "LParen"
	case TokRParen:
		return "RParen"
	case TokEq:
		return "Eq"
	case TokNeq:
		return "Neq"
	case TokGt:
		return "Gt"
	case TokGte:
		return "Gte"
	case TokLt:
		return "Lt"
	case TokLte:
		return "Lte"
	case TokEOF:
		return "EOF"
	default:
		return "Unknown"
	}
}

// keywords are matched case-insensitively. The comparison words follow the
// spelling of OGNL-style filters so existing job files keep working.
var keywords = map[string]TokenKind{
	"and":   TokAnd,
	"or":    TokOr,
	"not":   TokNot,
	"true":  TokTrue,
	"false": TokFalse,
	"null":  TokNull,
	"eq":    TokEq,
	"neq":   TokNeq,
	"gt":    TokGt,
	"gte":   TokGte,
	"lt":    TokLt,
	"lte":   TokLte,
}

// Lexer tokenizes a filter expression
type Lexer struct {
	input []rune
	pos   int
}

// NewLexer creates a new lexer for the input string
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Lex tokenizes the entire input
func Lex(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok, err := lexer.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			break
		}
	}

	return tokens, nil
}

// Next returns the next token
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespace()

	start := l.pos
	if l.pos >= len(l.input) {
		return Token{Kind: TokEOF, Pos: start}, nil
	}

	ch := l.input[l.pos]

	switch ch {
	case '(':
		l.pos++
		return Token{Kind: TokLParen, Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: TokRParen, Pos: start}, nil
	case '&':
		if l.peek(1) == '&' {
			l.pos += 2
			return Token{Kind: TokAnd, Pos: start}, nil
		}
	case '|':
		if l.peek(1) == '|' {
			l.pos += 2
			return Token{Kind: TokOr, Pos: start}, nil
		}
	case '=':
		l.pos++
		if l.peek(0) == '=' {
			l.pos++
		}
		return Token{Kind: TokEq, Pos: start}, nil
	case '!':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Kind: TokNeq, Pos: start}, nil
		}
		l.pos++
		return Token{Kind: TokNot, Pos: start}, nil
	case '>':
		if l.peek(1) == '=' {
			l.pos += 2
			return Token{Kind: TokGte, Pos: start}, nil
		}
		l.pos++
		return Token{Kind: TokGt, Pos: start}, nil
	case '<':
		switch l.peek(1) {
		case '=':
			l.pos += 2
			return Token{Kind: TokLte, Pos: start}, nil
		case '>':
			l.pos += 2
			return Token{Kind: TokNeq, Pos: start}, nil
		}
		l.pos++
		return Token{Kind: TokLt, Pos: start}, nil
	case '"', '\'':
		return l.scanString(ch)
	case '`':
		return l.scanQuotedIdent()
	}

	if unicode.IsDigit(ch) || (ch == '-' && unicode.IsDigit(l.peek(1))) {
		return l.scanNumber()
	}

	if isIdentStart(ch) {
		return l.scanIdent(), nil
	}

	return Token{}, fmt.Errorf("unexpected character %q at offset %d", ch, start)
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos < len(l.input) {
		return l.input[pos]
	}
	return 0
}

func (l *Lexer) scanString(quote rune) (Token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == quote {
			l.pos++
			return Token{Kind: TokString, Value: sb.String(), Pos: start}, nil
		}
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			switch l.input[l.pos] {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(l.input[l.pos])
			}
			l.pos++
			continue
		}
		sb.WriteRune(ch)
		l.pos++
	}

	return Token{}, fmt.Errorf("unterminated string at offset %d", start)
}

func (l *Lexer) scanQuotedIdent() (Token, error) {
	start := l.pos
	l.pos++
	for i := l.pos; i < len(l.input); i++ {
		if l.input[i] == '`' {
			name := string(l.input[l.pos:i])
			l.pos = i + 1
			return Token{Kind: TokIdent, Value: name, Pos: start}, nil
		}
	}
	return Token{}, fmt.Errorf("unterminated quoted name at offset %d", start)
}

func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos

	if l.input[l.pos] == '-' {
		l.pos++
	}
	l.digits()

	if l.peek(0) == '.' && unicode.IsDigit(l.peek(1)) {
		l.pos++
		l.digits()
	}
	if c := l.peek(0); c == 'e' || c == 'E' {
		l.pos++
		if c := l.peek(0); c == '+' || c == '-' {
			l.pos++
		}
		if !unicode.IsDigit(l.peek(0)) {
			return Token{}, fmt.Errorf("invalid number at offset %d", start)
		}
		l.digits()
	}

	return Token{Kind: TokNumber, Value: string(l.input[start:l.pos]), Pos: start}, nil
}

func (l *Lexer) digits() {
	for l.pos < len(l.input) && unicode.IsDigit(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) scanIdent() Token {
	start := l.pos

	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}

	value := string(l.input[start:l.pos])
	if kind, ok := keywords[strings.ToLower(value)]; ok {
		return Token{Kind: kind, Pos: start}
	}
	return Token{Kind: TokIdent, Value: value, Pos: start}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_' || ch == '$' || ch == '@'
}

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '$' || ch == '@' || ch == '.'
}
