package column

import (
	"encoding/base64"
	"strconv"
	"time"
)

// Type names a column variant.
type Type string

const (
	TypeString  Type = "string"
	TypeLong    Type = "long"
	TypeDecimal Type = "decimal"
	TypeBool    Type = "bool"
	TypeDate    Type = "date"
	TypeBytes   Type = "bytes"
)

// Column is a typed cell of a Record. The set of implementations is closed.
type Column interface {
	Type() Type
	// IsNull reports a column that carries no value.
	IsNull() bool
	// Text renders the value as text, "" when null.
	Text() string
	// Raw returns the value as a database/sql friendly Go value, nil when
	// null.
	Raw() any
	sealed()
}

// String holds text. Null marks the empty column produced for null values.
type String struct {
	Value string
	Null  bool
}

// Long holds any integer widened to 64 bits.
type Long struct{ Value int64 }

// Decimal holds a floating-point value as its decimal text, so binary
// float artifacts never reach the sink.
type Decimal struct{ Digits string }

type Bool struct{ Value bool }

type Date struct{ Value time.Time }

type Bytes struct{ Value []byte }

func (String) Type() Type  { return TypeString }
func (Long) Type() Type    { return TypeLong }
func (Decimal) Type() Type { return TypeDecimal }
func (Bool) Type() Type    { return TypeBool }
func (Date) Type() Type    { return TypeDate }
func (Bytes) Type() Type   { return TypeBytes }

func (c String) IsNull() bool { return c.Null }
func (Long) IsNull() bool     { return false }
func (Decimal) IsNull() bool  { return false }
func (Bool) IsNull() bool     { return false }
func (Date) IsNull() bool     { return false }
func (c Bytes) IsNull() bool  { return c.Value == nil }

func (c String) Text() string  { return c.Value }
func (c Long) Text() string    { return strconv.FormatInt(c.Value, 10) }
func (c Decimal) Text() string { return c.Digits }
func (c Bool) Text() string    { return strconv.FormatBool(c.Value) }
func (c Date) Text() string    { return c.Value.Format(time.RFC3339Nano) }
func (c Bytes) Text() string   { return base64.StdEncoding.EncodeToString(c.Value) }

func (c String) Raw() any {
	if c.Null {
		return nil
	}
	return c.Value
}
func (c Long) Raw() any    { return c.Value }
func (c Decimal) Raw() any { return c.Digits }
func (c Bool) Raw() any    { return c.Value }
func (c Date) Raw() any    { return c.Value }
func (c Bytes) Raw() any {
	if c.Value == nil {
		return nil
	}
	return c.Value
}

func (String) sealed()  {}
func (Long) sealed()    {}
func (Decimal) sealed() {}
func (Bool) sealed()    {}
func (Date) sealed()    {}
func (Bytes) sealed()   {}
