package model

import (
	"fmt"

	"spekt.dev/pkg/spekt/internal/ast"
)

// Spec is one specification: a named set of features plus the fixture
// methods that run around them.
type Spec struct {
	Name     string
	File     Path
	Fields   map[string]any
	Fixtures []*Method
	Features []*Feature
	Skipped  bool
	Pos      ast.Pos
}

// Fixture returns the fixture method of the given kind, or nil.
func (s *Spec) Fixture(kind MethodKind) *Method {
	for _, m := range s.Fixtures {
		if m.Kind == kind {
			return m
		}
	}

	return nil
}

// Methods returns every method of the spec, fixtures first.
func (s *Spec) Methods() []*Method {
	out := make([]*Method, 0, len(s.Fixtures)+len(s.Features))
	out = append(out, s.Fixtures...)

	for _, f := range s.Features {
		out = append(out, f.Method)
	}

	return out
}

// DataProvider feeds one data variable of a parameterized feature.
// Source evaluates to a list; row i of the feature takes element i.
type DataProvider struct {
	Var    string
	Source ast.Expr
}

// DerivedVar is a data variable computed from the other values of a row.
type DerivedVar struct {
	Var   string
	Value ast.Expr
}

// Feature is one declared test scenario.
type Feature struct {
	Name          string
	Method        *Method
	DataProviders []DataProvider
	Derived       []DerivedVar
	// Unroll reports every iteration as its own test.
	Unroll        bool
	UnrollPattern string
	Skipped       bool
}

// Parameterized reports whether the feature is data driven.
func (f *Feature) Parameterized() bool {
	return len(f.DataProviders) > 0
}

// DataVariables returns the names of all data variables in declaration order.
func (f *Feature) DataVariables() []string {
	out := make([]string, 0, len(f.DataProviders)+len(f.Derived))
	for _, p := range f.DataProviders {
		out = append(out, p.Var)
	}

	for _, d := range f.Derived {
		out = append(out, d.Var)
	}

	return out
}

// Iteration is one data-row execution of a feature.
type Iteration struct {
	Feature *Feature
	// Index is zero based.
	Index  int
	Values map[string]any
}

// Description identifies a reported test: the spec it belongs to and a
// human-readable name.
type Description struct {
	Class string `yaml:"class"`
	Name  string `yaml:"name"`
}

func (d Description) String() string {
	if d.Name == "" {
		return d.Class
	}

	return fmt.Sprintf("%s(%s)", d.Name, d.Class)
}

// SpecDescription identifies a whole spec.
func SpecDescription(s *Spec) Description {
	return Description{Class: s.Name}
}

// FeatureDescription identifies a feature of s.
func FeatureDescription(s *Spec, f *Feature) Description {
	return Description{Class: s.Name, Name: f.Name}
}
