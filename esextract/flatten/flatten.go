package flatten

import (
	"errors"
	"fmt"

	"github.com/nonibytes/esextract/esextract/jsonv"
)

// ErrNoFields is returned by New for an empty field list.
var ErrNoFields = errors.New("flatten: no fields configured")

// Flattener expands decoded documents into rows according to a field tree.
// It is immutable after New and safe for concurrent use.
type Flattener struct {
	fields []node
	names  []string
}

type node struct {
	name     string
	out      string
	def      jsonv.Value
	children []node
}

// New compiles the field tree. Output names are resolved once here: a leaf's
// Alias wins, otherwise the dotted path of source names (a branch's Alias
// replaces its own path segment), then nameCase is applied.
func New(fields []FieldSpec, nameCase NameCase) (*Flattener, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}
	f := &Flattener{}
	seen := make(map[string]bool)
	nodes, err := f.compile(fields, "", nameCase, seen)
	if err != nil {
		return nil, err
	}
	f.fields = nodes
	return f, nil
}

func (f *Flattener) compile(fields []FieldSpec, prefix string, nameCase NameCase, seen map[string]bool) ([]node, error) {
	nodes := make([]node, 0, len(fields))
	for _, fs := range fields {
		if fs.Name == "" {
			return nil, fmt.Errorf("flatten: field under %q has no name", prefix)
		}
		segment := fs.Name
		if !fs.IsLeaf() && fs.Alias != "" {
			segment = fs.Alias
		}
		path := segment
		if prefix != "" {
			path = prefix + "." + segment
		}
		n := node{name: fs.Name, def: fs.Default}
		if fs.IsLeaf() {
			out := path
			if fs.Alias != "" {
				out = fs.Alias
			}
			n.out = nameCase.Apply(out)
			if seen[n.out] {
				return nil, fmt.Errorf("flatten: duplicate output name %q", n.out)
			}
			seen[n.out] = true
			f.names = append(f.names, n.out)
		} else {
			children, err := f.compile(fs.Children, path, nameCase, seen)
			if err != nil {
				return nil, err
			}
			n.children = children
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// OutputNames lists every leaf output name in depth-first schema order,
// which is also the key order of seeded rows.
func (f *Flattener) OutputNames() []string { return f.names }

// Seed returns a fresh row holding every leaf output name set to its
// default value.
func (f *Flattener) Seed() *Row {
	r := NewRow(len(f.names))
	seed(f.fields, r)
	return r
}

func seed(nodes []node, r *Row) {
	for _, n := range nodes {
		if n.children != nil {
			seed(n.children, r)
			continue
		}
		r.Set(n.out, n.def)
	}
}

// Flatten expands doc into rows, starting from a single seeded row.
func (f *Flattener) Flatten(doc *jsonv.Object) []*Row {
	return f.FlattenInto([]*Row{f.Seed()}, doc)
}

// FlattenInto expands doc into the given rows-in-progress. Leaves at each
// level are written into every current row. A nested object is expanded in
// place. A nested array of objects is the join point: every current row is
// copied once per element and each copy is populated from its element, so
// the row set becomes rows × elements. Sibling branches are handled in
// schema order, each folding into the row set left by the previous one. An
// empty array leaves the row set unchanged.
func (f *Flattener) FlattenInto(rows []*Row, doc *jsonv.Object) []*Row {
	return expand(rows, doc, f.fields)
}

func expand(rows []*Row, doc *jsonv.Object, nodes []node) []*Row {
	if doc.Len() == 0 {
		return rows
	}
	for _, n := range nodes {
		if n.children != nil {
			continue
		}
		v, ok := doc.Get(n.name)
		if !ok {
			v = n.def
		}
		for _, r := range rows {
			r.Set(n.out, v)
		}
	}
	for _, n := range nodes {
		if n.children == nil {
			continue
		}
		v, ok := doc.Get(n.name)
		if !ok {
			continue
		}
		if obj, ok := v.AsObject(); ok {
			rows = expand(rows, obj, n.children)
			continue
		}
		elems, ok := v.AsArray()
		if !ok || len(elems) == 0 {
			continue
		}
		joined := make([]*Row, 0, len(rows)*len(elems))
		for _, r := range rows {
			for _, e := range elems {
				c := r.Clone()
				if obj, ok := e.AsObject(); ok {
					joined = append(joined, expand([]*Row{c}, obj, n.children)...)
					continue
				}
				joined = append(joined, c)
			}
		}
		rows = joined
	}
	return rows
}
