package flatten

import "github.com/nonibytes/esextract/esextract/jsonv"

// Row is an ordered mapping from output name to value.
type Row struct {
	keys []string
	vals map[string]jsonv.Value
}

func NewRow(capacity int) *Row {
	return &Row{keys: make([]string, 0, capacity), vals: make(map[string]jsonv.Value, capacity)}
}

// Set stores v under k; a new key is appended to the key order.
func (r *Row) Set(k string, v jsonv.Value) {
	if _, ok := r.vals[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.vals[k] = v
}

func (r *Row) Get(k string) (jsonv.Value, bool) {
	v, ok := r.vals[k]
	return v, ok
}

func (r *Row) Has(k string) bool {
	_, ok := r.vals[k]
	return ok
}

// Delete removes k and reports whether it was present.
func (r *Row) Delete(k string) bool {
	if _, ok := r.vals[k]; !ok {
		return false
	}
	delete(r.vals, k)
	for i, key := range r.keys {
		if key == k {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	return true
}

func (r *Row) Keys() []string { return r.keys }
func (r *Row) Len() int       { return len(r.keys) }

// Clone copies the key order and values. Values are immutable so the copy
// is shallow.
func (r *Row) Clone() *Row {
	c := &Row{keys: make([]string, len(r.keys)), vals: make(map[string]jsonv.Value, len(r.vals))}
	copy(c.keys, r.keys)
	for k, v := range r.vals {
		c.vals[k] = v
	}
	return c
}

// AllNull reports whether every value is null. An empty row is all null.
func (r *Row) AllNull() bool {
	for _, k := range r.keys {
		if !r.vals[k].IsNull() {
			return false
		}
	}
	return true
}

// Each calls fn for every entry in key order.
func (r *Row) Each(fn func(k string, v jsonv.Value)) {
	for _, k := range r.keys {
		fn(k, r.vals[k])
	}
}

// Equal compares key order and values.
func (r *Row) Equal(o *Row) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k || !r.vals[k].Equal(o.vals[k]) {
			return false
		}
	}
	return true
}
