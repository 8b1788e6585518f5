// Package rewriters holds the pure node-level rewrites applied by the
// statement rewriter: classification of built-in primitives, condition
// instrumentation, interaction registration and parameter scope fixup.
package rewriters

import (
	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

// Names of the built-in declarative primitives.
const (
	MockPrimitive = "Mock"
	OldPrimitive  = "old"
)

// BuiltinMemberCall returns e as a call of the named primitive when e is an
// implicit-this call with between minArgs and maxArgs arguments.
func BuiltinMemberCall(e ast.Expr, name string, minArgs, maxArgs int) (*ast.MethodCall, bool) {
	call, ok := e.(*ast.MethodCall)
	if !ok || call.Name != name || !ast.IsImplicitThis(call.Recv) {
		return nil, false
	}

	if len(call.Args) < minArgs || len(call.Args) > maxArgs {
		return nil, false
	}

	return call, true
}

// IsBuiltinMemberCall reports whether e calls the named primitive.
func IsBuiltinMemberCall(e ast.Expr, name string, minArgs, maxArgs int) bool {
	_, ok := BuiltinMemberCall(e, name, minArgs, maxArgs)
	return ok
}

// IsBuiltinMemberAssignment reports whether e assigns the result of the named
// primitive to a variable or property, either as "x = Mock()" or as a
// declaration "Type x = Mock()".
func IsBuiltinMemberAssignment(e ast.Expr, name string, minArgs, maxArgs int) bool {
	switch n := e.(type) {
	case *ast.Binary:
		if n.Op != "=" {
			return false
		}

		switch n.X.(type) {
		case *ast.Var, *ast.Property:
			return IsBuiltinMemberCall(n.Y, name, minArgs, maxArgs)
		}
	case *ast.Decl:
		return IsBuiltinMemberCall(n.Value, name, minArgs, maxArgs)
	}

	return false
}

// IsSuperFixtureCall reports whether call explicitly invokes the base class
// implementation of the fixture method currently being rewritten.
func IsSuperFixtureCall(call *ast.MethodCall, current *m.Method) bool {
	if current == nil || !current.Kind.IsFixture() {
		return false
	}

	if _, ok := call.Recv.(*ast.Super); !ok {
		return false
	}

	return call.Name == current.Name
}

// IsInteraction reports whether stmt has the shape of an interaction
// declaration:
//
//	[cardinality *] target.method(args) [>> response]
//
// A bare call is not an interaction; at least a cardinality or a response
// must be declared.
func IsInteraction(stmt ast.Stmt) bool {
	_, ok := matchInteraction(stmt)
	return ok
}

type interactionShape struct {
	cardinality ast.Expr
	call        *ast.MethodCall
	response    ast.Expr
}

func matchInteraction(stmt ast.Stmt) (interactionShape, bool) {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return interactionShape{}, false
	}

	var shape interactionShape

	x := es.X
	if b, ok := x.(*ast.Binary); ok && b.Op == ">>" {
		shape.response = b.Y
		x = b.X
	}

	if b, ok := x.(*ast.Binary); ok && b.Op == "*" {
		shape.cardinality = b.X
		x = b.Y
	}

	call, ok := x.(*ast.MethodCall)
	if !ok || call.Recv == nil {
		return interactionShape{}, false
	}

	switch call.Recv.(type) {
	case *ast.Var, *ast.Wildcard, *ast.Property:
	default:
		return interactionShape{}, false
	}

	if shape.cardinality == nil && shape.response == nil {
		return interactionShape{}, false
	}

	shape.call = call

	return shape, true
}
