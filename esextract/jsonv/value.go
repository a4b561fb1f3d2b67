package jsonv

import (
	"bytes"
	"fmt"
	"math"
	"time"
)

// Kind is the type tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt32
	KindInt64
	KindFloat
	KindBool
	KindArray
	KindObject
	KindTime   // never produced by Decode; enters rows through configured defaults
	KindBytes  // never produced by Decode
	KindOpaque // a Go value with no mapping into the model
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is a decoded JSON value. The zero Value is null.
type Value struct {
	kind   Kind
	str    string
	num    int64
	flt    float64
	b      bool
	arr    []Value
	obj    *Object
	t      time.Time
	raw    []byte
	opaque any
}

func Null() Value             { return Value{} }
func String(s string) Value   { return Value{kind: KindString, str: s} }
func Int32(i int32) Value     { return Value{kind: KindInt32, num: int64(i)} }
func Int64(i int64) Value     { return Value{kind: KindInt64, num: i} }
func Float(f float64) Value   { return Value{kind: KindFloat, flt: f} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }
func Time(t time.Time) Value  { return Value{kind: KindTime, t: t} }
func Bytes(b []byte) Value    { return Value{kind: KindBytes, raw: b} }
func Opaque(v any) Value      { return Value{kind: KindOpaque, opaque: v} }
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Int returns an Int32 value when i fits in 32 bits and an Int64 value
// otherwise.
func Int(i int64) Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return Int32(int32(i))
	}
	return Int64(i)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInt reports the integer for both Int32 and Int64 values.
func (v Value) AsInt() (int64, bool) {
	return v.num, v.kind == KindInt32 || v.kind == KindInt64
}

func (v Value) AsFloat() (float64, bool)  { return v.flt, v.kind == KindFloat }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsArray() ([]Value, bool)  { return v.arr, v.kind == KindArray }
func (v Value) AsObject() (*Object, bool) { return v.obj, v.kind == KindObject }
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }
func (v Value) AsBytes() ([]byte, bool)   { return v.raw, v.kind == KindBytes }
func (v Value) AsOpaque() (any, bool)     { return v.opaque, v.kind == KindOpaque }

// IsNumber reports whether v is an integer or a float.
func (v Value) IsNumber() bool {
	return v.kind == KindInt32 || v.kind == KindInt64 || v.kind == KindFloat
}

// Number returns v as a float64 for numeric comparisons.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt32, KindInt64:
		return float64(v.num), true
	case KindFloat:
		return v.flt, true
	}
	return 0, false
}

// Equal reports deep equality. Int32 and Int64 holding the same integer
// are not equal: the kind is part of the value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInt32, KindInt64:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt || (math.IsNaN(v.flt) && math.IsNaN(o.flt))
	case KindBool:
		return v.b == o.b
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.Equal(o.obj)
	case KindTime:
		return v.t.Equal(o.t)
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindOpaque:
		return fmt.Sprintf("%#v", v.opaque) == fmt.Sprintf("%#v", o.opaque)
	}
	return false
}

// GoString renders v for test failure messages.
func (v Value) GoString() string {
	switch v.kind {
	case KindOpaque:
		return fmt.Sprintf("opaque(%T)", v.opaque)
	case KindTime:
		return "time(" + v.t.Format(time.RFC3339Nano) + ")"
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return v.kind.String() + "(?)"
	}
	return v.kind.String() + "(" + string(b) + ")"
}

// Interface converts v into plain Go values: map[string]any, []any,
// string, int64, float64, bool, time.Time, []byte or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt32, KindInt64:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.b
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.obj.Len())
		for _, k := range v.obj.Keys() {
			e, _ := v.obj.Get(k)
			out[k] = e.Interface()
		}
		return out
	case KindTime:
		return v.t
	case KindBytes:
		return v.raw
	case KindOpaque:
		return v.opaque
	}
	return nil
}
