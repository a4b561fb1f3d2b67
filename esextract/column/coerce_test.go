package column

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nonibytes/esextract/esextract/flatten"
	"github.com/nonibytes/esextract/esextract/jsonv"
)

func TestCoerceVariants(t *testing.T) {
	when := time.Date(2024, 12, 16, 16, 32, 0, 0, time.UTC)
	nested, err := jsonv.Decode([]byte(`{"b":[1,2.5,"x"],"a":null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	cases := []struct {
		in   jsonv.Value
		want Column
	}{
		{jsonv.Null(), String{Null: true}},
		{jsonv.String("hi"), String{Value: "hi"}},
		{jsonv.Int32(7), Long{Value: 7}},
		{jsonv.Int64(1 << 40), Long{Value: 1 << 40}},
		{jsonv.Float(0.1), Decimal{Digits: "0.1"}},
		{jsonv.Float(1e21), Decimal{Digits: "1000000000000000000000"}},
		{jsonv.Float(2), Decimal{Digits: "2"}},
		{jsonv.Bool(true), Bool{Value: true}},
		{jsonv.Time(when), Date{Value: when}},
		{jsonv.Bytes([]byte{1, 2}), Bytes{Value: []byte{1, 2}}},
		{nested, String{Value: `{"b":[1,2.5,"x"],"a":null}`}},
		{jsonv.Array(), String{Value: `[]`}},
	}
	for _, tc := range cases {
		got, err := Coerce(tc.in)
		if err != nil {
			t.Fatalf("Coerce(%#v): %v", tc.in, err)
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Coerce(%#v) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestCoerceUnsupported(t *testing.T) {
	_, err := Coerce(jsonv.Opaque(complex(1, 2)))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !strings.Contains(err.Error(), "complex128") {
		t.Fatalf("error should name the Go type: %v", err)
	}
}

func TestCoerceNonFiniteFloat(t *testing.T) {
	for _, f := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		c, err := Coerce(jsonv.Float(f))
		if !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("Coerce(%v) = %#v, %v; want ErrUnsupportedType", f, c, err)
		}
	}
}

func TestBuildKeepsGoodFields(t *testing.T) {
	row := flatten.NewRow(3)
	row.Set("id", jsonv.String("a1"))
	row.Set("weird", jsonv.Opaque(struct{ X int }{1}))
	row.Set("n", jsonv.Int32(3))

	rec, errs := Build(row)
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	var ute *UnsupportedTypeError
	if !errors.As(errs[0], &ute) || ute.Field != "weird" {
		t.Fatalf("expected error for field weird, got %v", errs[0])
	}
	if diff := cmp.Diff([]string{"id", "n"}, rec.Names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Column{String{Value: "a1"}, Long{Value: 3}}, rec.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(Trace(errs), "weird") {
		t.Fatalf("trace should mention the field: %q", Trace(errs))
	}
}

func TestColumnRawAndText(t *testing.T) {
	if (String{Null: true}).Raw() != nil {
		t.Fatalf("null string should have nil raw value")
	}
	if got := (Long{Value: -3}).Text(); got != "-3" {
		t.Fatalf("Long text = %q", got)
	}
	if got := (Decimal{Digits: "1.25"}).Raw(); got != "1.25" {
		t.Fatalf("Decimal raw = %v", got)
	}
}
