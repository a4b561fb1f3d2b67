// Package celfilter compiles row filters written in the Common Expression
// Language. Every field is reachable as row["name"]; fields whose output
// name is a valid CEL identifier are also declared as top-level variables,
// so `status == "active" && row["tags.name"] != "x"` is valid.
package celfilter

import (
	"fmt"
	"regexp"

	"github.com/google/cel-go/cel"

	"github.com/nonibytes/esextract/esextract/filter"
	"github.com/nonibytes/esextract/esextract/flatten"
	"github.com/nonibytes/esextract/esextract/jsonv"
)

// RowVar is the variable holding the whole row.
const RowVar = "row"

var identRe = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

var reserved = map[string]bool{
	"as": true, "break": true, "const": true, "continue": true, "else": true,
	"false": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "let": true, "loop": true, "namespace": true, "null": true,
	"package": true, "return": true, "true": true, "var": true, "void": true,
	"while": true, RowVar: true,
}

// Compiler builds one CEL environment for the given output names and
// returns a filter.CompileFunc bound to it.
func Compiler(fieldNames []string) (filter.CompileFunc, error) {
	opts := []cel.EnvOption{cel.Variable(RowVar, cel.MapType(cel.StringType, cel.DynType))}
	var vars []string
	for _, name := range fieldNames {
		if identRe.MatchString(name) && !reserved[name] {
			opts = append(opts, cel.Variable(name, cel.DynType))
			vars = append(vars, name)
		}
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("celfilter: env: %w", err)
	}

	return func(src string) (filter.Predicate, error) {
		ast, iss := env.Compile(src)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("celfilter: compile: %w", iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("celfilter: program: %w", err)
		}
		return &predicate{prg: prg, vars: vars}, nil
	}, nil
}

type predicate struct {
	prg  cel.Program
	vars []string
}

func (p *predicate) Eval(row *flatten.Row) (jsonv.Value, error) {
	m := make(map[string]any, row.Len())
	row.Each(func(k string, v jsonv.Value) { m[k] = v.Interface() })

	activation := make(map[string]any, len(p.vars)+1)
	activation[RowVar] = m
	for _, name := range p.vars {
		activation[name] = m[name]
	}

	out, _, err := p.prg.Eval(activation)
	if err != nil {
		return jsonv.Value{}, err
	}
	if b, ok := out.Value().(bool); ok {
		return jsonv.Bool(b), nil
	}
	return jsonv.FromAny(out.Value()), nil
}
