package rewriters

import (
	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

// NeedsParameterFixup reports whether method is a parameterized feature
// whose parameters were derived from its data variables rather than
// declared. References to such parameters were recorded as dynamic before
// the parameters existed.
func NeedsParameterFixup(method *m.Method) bool {
	return method != nil &&
		method.Kind == m.KindFeature &&
		len(method.Params) > 0 &&
		!method.DeclaredParams
}

// FixupParameters returns scope with every parameter of method that is
// still recorded as a dynamic reference rebound as a parameter. Inside a
// closure the binding is also marked closure shared. When nothing needs
// repair, scope itself is returned.
func FixupParameters(scope *ast.Scope, method *m.Method, inClosure bool) *ast.Scope {
	if !NeedsParameterFixup(method) {
		return scope
	}

	for _, p := range method.Params {
		b, ok := scope.Lookup(p)
		if !ok || b.Kind != ast.BindDynamic {
			continue
		}

		scope = scope.With(p, ast.Binding{Kind: ast.BindParam, ClosureShared: inClosure})
	}

	return scope
}
