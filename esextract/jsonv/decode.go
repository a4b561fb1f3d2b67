package jsonv

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// ErrNotObject is returned by DecodeObject when the top-level value is not a
// JSON object.
var ErrNotObject = errors.New("jsonv: top-level value is not an object")

// Decode parses one JSON document into a Value. Numbers follow ParseNumber.
func Decode(data []byte) (Value, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, fmt.Errorf("jsonv: empty input")
		}
		return Value{}, fmt.Errorf("jsonv: %w", err)
	}
	v, err := decodeValue(dec, tok)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("jsonv: trailing data after top-level value")
	}
	return v, nil
}

// DecodeObject decodes a document whose top-level value must be an object,
// such as a search hit's _source.
func DecodeObject(data []byte) (*Object, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.AsObject()
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

// ParseNumber classifies a JSON numeral:
//   - text containing '.', 'e' or 'E' is a Float;
//   - an integer outside the int64 range is returned unchanged as a String,
//     so that huge identifiers are never rounded;
//   - otherwise Int32 when it fits in 32 bits, Int64 if not.
func ParseNumber(text string) (Value, error) {
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Value{}, fmt.Errorf("jsonv: invalid number %q", text)
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return String(text), nil
		}
		return Value{}, fmt.Errorf("jsonv: invalid number %q", text)
	}
	return Int(i), nil
}

func decodeValue(dec *gojson.Decoder, tok gojson.Token) (Value, error) {
	switch t := tok.(type) {
	case gojson.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return Value{}, fmt.Errorf("jsonv: unexpected delimiter %q", rune(t))
	case string:
		return String(t), nil
	case gojson.Number:
		return ParseNumber(string(t))
	case float64:
		return ParseNumber(strconv.FormatFloat(t, 'g', -1, 64))
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Value{}, fmt.Errorf("jsonv: unexpected token %T", tok)
}

func decodeObject(dec *gojson.Decoder) (Value, error) {
	obj := NewObject()
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("jsonv: %w", err)
		}
		if d, ok := tok.(gojson.Delim); ok && d == '}' {
			return ObjectValue(obj), nil
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("jsonv: expected object key, got %T", tok)
		}
		vt, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("jsonv: value for %q: %w", key, err)
		}
		v, err := decodeValue(dec, vt)
		if err != nil {
			return Value{}, err
		}
		obj.Set(key, v)
	}
}

func decodeArray(dec *gojson.Decoder) (Value, error) {
	vals := make([]Value, 0)
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, fmt.Errorf("jsonv: %w", err)
		}
		if d, ok := tok.(gojson.Delim); ok && d == ']' {
			return Array(vals...), nil
		}
		v, err := decodeValue(dec, tok)
		if err != nil {
			return Value{}, err
		}
		vals = append(vals, v)
	}
}
