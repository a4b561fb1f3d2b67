package jsonv

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	gojson "github.com/goccy/go-json"
)

// MarshalJSON writes v as compact JSON, keeping object key order. Time values
// become RFC 3339 strings and Bytes become base64 strings. NaN and infinite
// floats have no encoding and fail.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.AppendJSON(nil)
}

// AppendJSON appends the compact JSON encoding of v to dst.
func (v Value) AppendJSON(dst []byte) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(dst, "null"...), nil
	case KindString:
		return appendString(dst, v.str)
	case KindInt32, KindInt64:
		return strconv.AppendInt(dst, v.num, 10), nil
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return dst, fmt.Errorf("jsonv: float %v has no JSON encoding", v.flt)
		}
		return strconv.AppendFloat(dst, v.flt, 'g', -1, 64), nil
	case KindBool:
		return strconv.AppendBool(dst, v.b), nil
	case KindArray:
		dst = append(dst, '[')
		for i, e := range v.arr {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = e.AppendJSON(dst); err != nil {
				return nil, err
			}
		}
		return append(dst, ']'), nil
	case KindObject:
		dst = append(dst, '{')
		for i, k := range v.obj.Keys() {
			if i > 0 {
				dst = append(dst, ',')
			}
			var err error
			if dst, err = appendString(dst, k); err != nil {
				return nil, err
			}
			dst = append(dst, ':')
			if dst, err = v.obj.vals[k].AppendJSON(dst); err != nil {
				return nil, err
			}
		}
		return append(dst, '}'), nil
	case KindTime:
		return appendString(dst, v.t.Format(time.RFC3339Nano))
	case KindBytes:
		return appendString(dst, base64.StdEncoding.EncodeToString(v.raw))
	case KindOpaque:
		b, err := gojson.Marshal(v.opaque)
		if err != nil {
			return nil, err
		}
		return append(dst, b...), nil
	}
	return append(dst, "null"...), nil
}

func appendString(dst []byte, s string) ([]byte, error) {
	b, err := gojson.Marshal(s)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

// MarshalJSON encodes the object with its keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return ObjectValue(o).MarshalJSON()
}
