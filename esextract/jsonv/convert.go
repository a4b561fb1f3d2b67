package jsonv

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// FromAny converts plain Go values, such as those produced by a YAML or JSON
// config decoder, into a Value. Map keys are sorted because Go maps carry no
// order. Types with no mapping become Opaque.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case *Object:
		return ObjectValue(t)
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int8:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t))
	case uint16:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case time.Time:
		return Time(t)
	case []byte:
		return Bytes(t)
	case []any:
		vals := make([]Value, len(t))
		for i, e := range t {
			vals[i] = FromAny(e)
		}
		return Array(vals...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			obj.Set(k, FromAny(t[k]))
		}
		return ObjectValue(obj)
	}
	return Opaque(x)
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return String(strconv.FormatUint(u, 10))
	}
	return Int(int64(u))
}
