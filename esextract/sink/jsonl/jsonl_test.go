package jsonl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nonibytes/esextract/esextract"
	"github.com/nonibytes/esextract/esextract/column"
)

func TestSinkWritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	recs := []column.Record{
		{Names: []string{"id", "tags.name", "n"}, Columns: []column.Column{column.String{Value: "a1"}, column.String{Value: "x"}, column.Long{Value: 3}}},
		{Names: []string{"z", "a", "d", "b", "ok"}, Columns: []column.Column{
			column.String{Null: true}, column.Decimal{Digits: "0.1"}, column.Date{Value: when}, column.Bytes{Value: []byte("hi")}, column.Bool{Value: true},
		}},
	}
	for _, r := range recs {
		if err := s.Send(ctx, r); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if err := s.CollectDirty(ctx, esextract.DirtyRecord{Index: "logs", HitID: "h1", Record: recs[0], Trace: "boom"}); err != nil {
		t.Fatalf("CollectDirty: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := strings.Split(strings.TrimSpace(string(b)), "\n")
	want := []string{
		`{"id":"a1","tags.name":"x","n":3}`,
		`{"z":null,"a":0.1,"d":"2024-01-02T03:04:05Z","b":"aGk=","ok":true}`,
		`{"index":"logs","hit":"h1","trace":"boom","record":{"id":"a1","tags.name":"x","n":3}}`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
	if err := s.Send(ctx, recs[0]); err == nil {
		t.Fatalf("Send after Close should fail")
	}
}

func TestOpenRespectsLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	first, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer first.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = Open(ctx, path)
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open after release: %v", err)
	}
	_ = second.Close()
}
