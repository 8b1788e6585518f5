package rewriters

import (
	"spekt.dev/pkg/spekt/internal/ast"
)

// RewriteInteraction turns an interaction declaration into an explicit
// registration against controller. It returns false, and no statement, when
// stmt does not match the interaction grammar.
//
// The argument list follows the interaction grammar: "_" matches any single
// argument and a lone "*_" matches any argument list.
func RewriteInteraction(stmt ast.Stmt, controller ast.Expr) (*ast.InteractionStmt, bool) {
	shape, ok := matchInteraction(stmt)
	if !ok {
		return nil, false
	}

	args := shape.call.Args
	anyArgs := false

	if len(args) == 1 && isSpreadWildcard(args[0]) {
		args = nil
		anyArgs = true
	}

	return &ast.InteractionStmt{
		Text:        ast.Format(stmt),
		Controller:  controller,
		Cardinality: shape.cardinality,
		Target:      shape.call.Recv,
		Method:      shape.call.Name,
		Args:        args,
		AnyArgs:     anyArgs,
		Response:    shape.response,
		Pos:         stmt.Position(),
	}, true
}

func isSpreadWildcard(e ast.Expr) bool {
	u, ok := e.(*ast.Unary)
	if !ok || u.Op != "*" {
		return false
	}

	_, ok = u.X.(*ast.Wildcard)

	return ok
}
