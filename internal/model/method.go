package model

import (
	"fmt"
	"strings"

	"spekt.dev/pkg/spekt/internal/ast"
)

// abortScope is the part of the hierarchy a failing method brings down.
// The zero value is the most severe scope, so a MethodKind that was never
// assigned escalates to END_SPEC instead of passing silently.
type abortScope int

const (
	abortSpec abortScope = iota
	abortFeature
	abortIterationOrFeature
	abortIteration
)

// MethodKind classifies a method of a spec. The set is closed: values only
// come from the exported variables below or from ParseMethodKind.
type MethodKind struct {
	name  string
	scope abortScope
	// fixture kinds run automatically around features or specs.
	fixture bool
}

// Method kinds.
var (
	KindSetup            = MethodKind{name: "SETUP", scope: abortIterationOrFeature, fixture: true}
	KindCleanup          = MethodKind{name: "CLEANUP", scope: abortIterationOrFeature, fixture: true}
	KindSetupSpec        = MethodKind{name: "SETUP_SPEC", scope: abortSpec, fixture: true}
	KindCleanupSpec      = MethodKind{name: "CLEANUP_SPEC", scope: abortSpec, fixture: true}
	KindFeature          = MethodKind{name: "FEATURE", scope: abortIterationOrFeature}
	KindFeatureExecution = MethodKind{name: "FEATURE_EXECUTION", scope: abortFeature}
	KindDataProvider     = MethodKind{name: "DATA_PROVIDER", scope: abortFeature}
	KindDataProcessor    = MethodKind{name: "DATA_PROCESSOR", scope: abortIteration}
	KindSpecExecution    = MethodKind{name: "SPEC_EXECUTION", scope: abortSpec}
	KindFixture          = MethodKind{name: "FIXTURE", scope: abortSpec, fixture: true}
)

var methodKinds = []MethodKind{
	KindSetup, KindCleanup, KindSetupSpec, KindCleanupSpec, KindFeature,
	KindFeatureExecution, KindDataProvider, KindDataProcessor, KindSpecExecution, KindFixture,
}

// ParseMethodKind looks a kind up by name, case-insensitively. Both
// "setup_spec" and "setupSpec" are accepted.
func ParseMethodKind(name string) (MethodKind, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	for _, k := range methodKinds {
		if k.name == normalized || strings.ReplaceAll(k.name, "_", "") == normalized {
			return k, nil
		}
	}

	return MethodKind{}, fmt.Errorf("unknown method kind %q", name)
}

func (k MethodKind) String() string {
	if k.name == "" {
		return "UNKNOWN"
	}

	return k.name
}

// IsFixture reports whether methods of this kind run automatically.
func (k MethodKind) IsFixture() bool {
	return k.fixture
}

// Escalation maps a failure in a method of this kind to a run status.
// The mapping is total: every kind, including the zero value, yields one
// of END_ITERATION, END_FEATURE or END_SPEC.
func (k MethodKind) Escalation(parameterized bool) RunStatus {
	switch k.scope {
	case abortIteration:
		return EndIteration
	case abortIterationOrFeature:
		if parameterized {
			return EndIteration
		}

		return EndFeature
	case abortFeature:
		return EndFeature
	}

	return EndSpec
}

// BlockKind labels a block of a feature method.
type BlockKind string

// Block kinds. BlockMethod is the single block of a fixture method.
const (
	BlockSetup   BlockKind = "setup"
	BlockExpect  BlockKind = "expect"
	BlockWhen    BlockKind = "when"
	BlockThen    BlockKind = "then"
	BlockCleanup BlockKind = "cleanup"
	BlockMethod  BlockKind = "method"
)

// ParseBlockKind accepts the block labels used in spec files; "given" is an
// alias of "setup".
func ParseBlockKind(label string) (BlockKind, error) {
	switch strings.ToLower(label) {
	case "setup", "given":
		return BlockSetup, nil
	case "expect":
		return BlockExpect, nil
	case "when":
		return BlockWhen, nil
	case "then", "and":
		return BlockThen, nil
	case "cleanup":
		return BlockCleanup, nil
	}

	return "", fmt.Errorf("unknown block label %q", label)
}

// HasImplicitConditions reports whether top-level expression statements of
// this block are treated as conditions.
func (k BlockKind) HasImplicitConditions() bool {
	return k == BlockExpect || k == BlockThen
}

// Block is one labelled block of a method body.
type Block struct {
	Kind BlockKind
	Body *ast.Block
}

// Method is a named, classified unit of executable code in a spec.
type Method struct {
	Name string
	Kind MethodKind
	// Params lists the method parameters. For parameterized features they
	// are the data variables.
	Params []string
	// DeclaredParams is true when the author wrote the parameter list; when
	// false, Params were derived from the data table.
	DeclaredParams bool
	Blocks         []*Block
	Pos            ast.Pos

	// Set by rewriting.
	UsesValueRecorder  bool
	UsesMockController bool
}

// Statements returns all statements of the method in block order.
func (m *Method) Statements() []ast.Stmt {
	var out []ast.Stmt
	for _, b := range m.Blocks {
		if b.Body != nil {
			out = append(out, b.Body.Stmts...)
		}
	}

	return out
}
