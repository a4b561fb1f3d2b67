package column

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nonibytes/esextract/esextract/flatten"
	"github.com/nonibytes/esextract/esextract/jsonv"
)

// ErrUnsupportedType matches every *UnsupportedTypeError.
var ErrUnsupportedType = errors.New("unsupported value type")

// UnsupportedTypeError reports a value with no column variant.
type UnsupportedTypeError struct {
	Field  string
	GoType string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unsupported value type: %s", e.GoType)
	}
	return fmt.Sprintf("unsupported value type for field %s: %s", e.Field, e.GoType)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// Coerce maps a value onto its column variant:
//
//	null          -> String{Null: true}
//	string        -> String
//	int32, int64  -> Long
//	float         -> Decimal (shortest decimal text)
//	bool          -> Bool
//	time          -> Date
//	bytes         -> Bytes
//	array, object -> String holding compact JSON
//
// Opaque values and non-finite floats fail with *UnsupportedTypeError.
func Coerce(v jsonv.Value) (Column, error) {
	switch v.Kind() {
	case jsonv.KindNull:
		return String{Null: true}, nil
	case jsonv.KindString:
		s, _ := v.AsString()
		return String{Value: s}, nil
	case jsonv.KindInt32, jsonv.KindInt64:
		i, _ := v.AsInt()
		return Long{Value: i}, nil
	case jsonv.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &UnsupportedTypeError{GoType: "non-finite float " + strconv.FormatFloat(f, 'g', -1, 64)}
		}
		return Decimal{Digits: decimalText(f)}, nil
	case jsonv.KindBool:
		b, _ := v.AsBool()
		return Bool{Value: b}, nil
	case jsonv.KindTime:
		t, _ := v.AsTime()
		return Date{Value: t}, nil
	case jsonv.KindBytes:
		b, _ := v.AsBytes()
		return Bytes{Value: b}, nil
	case jsonv.KindArray, jsonv.KindObject:
		b, err := v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode nested value: %w", err)
		}
		return String{Value: string(b)}, nil
	case jsonv.KindOpaque:
		x, _ := v.AsOpaque()
		return nil, &UnsupportedTypeError{GoType: fmt.Sprintf("%T", x)}
	}
	return nil, &UnsupportedTypeError{GoType: v.Kind().String()}
}

// decimalText is the shortest decimal representation that parses back to f,
// written without an exponent. f must be finite.
func decimalText(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Record is one typed output row.
type Record struct {
	Names   []string
	Columns []Column
}

func (r Record) Len() int { return len(r.Columns) }

// Build coerces every field of row in key order. Fields that fail are left
// out of the record and their errors returned; the record is still usable.
func Build(row *flatten.Row) (Record, []error) {
	rec := Record{
		Names:   make([]string, 0, row.Len()),
		Columns: make([]Column, 0, row.Len()),
	}
	var errs []error
	row.Each(func(k string, v jsonv.Value) {
		c, err := Coerce(v)
		if err != nil {
			var ute *UnsupportedTypeError
			if errors.As(err, &ute) {
				ute.Field = k
			}
			errs = append(errs, err)
			return
		}
		rec.Names = append(rec.Names, k)
		rec.Columns = append(rec.Columns, c)
	})
	return rec, errs
}

// Trace renders accumulated coercion errors, one per line.
func Trace(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(err.Error())
	}
	return b.String()
}
