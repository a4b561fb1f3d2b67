package flatten

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nonibytes/esextract/esextract/jsonv"
)

// NameCase is the case convention applied to every output name.
type NameCase string

const (
	CaseNormal NameCase = "normal"
	CaseUpper  NameCase = "upper"
	CaseLower  NameCase = "lower"
	CaseSnake  NameCase = "snake"
	CaseCamel  NameCase = "camel"
)

// ParseNameCase accepts the convention names case-insensitively; "" is
// CaseNormal.
func ParseNameCase(s string) (NameCase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "none":
		return CaseNormal, nil
	case "upper", "uppercase":
		return CaseUpper, nil
	case "lower", "lowercase":
		return CaseLower, nil
	case "snake", "snake_case":
		return CaseSnake, nil
	case "camel", "camelcase":
		return CaseCamel, nil
	}
	return "", fmt.Errorf("unknown name case %q", s)
}

// Apply converts name to the convention.
func (c NameCase) Apply(name string) string {
	switch c {
	case CaseUpper:
		return strings.ToUpper(name)
	case CaseLower:
		return strings.ToLower(name)
	case CaseSnake:
		return toSnake(name)
	case CaseCamel:
		return toCamel(name)
	default:
		return name
	}
}

func toSnake(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && rs[i-1] != '.' && rs[i-1] != '_' && !unicode.IsUpper(rs[i-1]) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toCamel(s string) string {
	var b strings.Builder
	upper := false
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ':
			upper = b.Len() > 0
		case r == '.':
			b.WriteRune(r)
			upper = false
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FieldSpec is one node of the configured field tree. A field with Children
// is a branch: it names a nested object or array of objects and contributes
// no key of its own. A field without Children is a leaf.
type FieldSpec struct {
	// Name is the source key at the field's nesting level.
	Name string `yaml:"name" json:"name"`
	// Alias overrides the emitted key. Without it the key is the dotted
	// path of source names from the root.
	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`
	// Default is used when Name is absent from the source level.
	Default jsonv.Value `yaml:"-" json:"-"`
	// Children make the field a branch.
	Children []FieldSpec `yaml:"child,omitempty" json:"child,omitempty"`
}

func (f FieldSpec) IsLeaf() bool { return len(f.Children) == 0 }

// Leaf and Branch are shorthands used mostly by tests and examples.
func Leaf(name string) FieldSpec { return FieldSpec{Name: name} }

func Branch(name string, children ...FieldSpec) FieldSpec {
	return FieldSpec{Name: name, Children: children}
}

// WithDefault returns a copy of f with Default set.
func (f FieldSpec) WithDefault(v jsonv.Value) FieldSpec {
	f.Default = v
	return f
}

// WithAlias returns a copy of f with Alias set.
func (f FieldSpec) WithAlias(alias string) FieldSpec {
	f.Alias = alias
	return f
}
