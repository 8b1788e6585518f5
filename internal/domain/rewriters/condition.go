package rewriters

import (
	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

const assignmentInCondition = "Expected a condition, but found an assignment. Did you intend to write '==' ?"

// RewriteExplicitCondition turns an assertion into a ConditionStmt whose
// condition records the value of every operand while it is evaluated.
// Slots are numbered pre-order, so the outermost expression has slot 0.
//
// An assertion that is really an assignment is reported and returned as is.
func RewriteExplicitCondition(stmt *ast.AssertStmt) (ast.Stmt, []m.Diagnostic) {
	if ast.IsAssignment(stmt.Cond) {
		return stmt, []m.Diagnostic{{Pos: stmt.Cond.Position(), Message: assignmentInCondition}}
	}

	if _, ok := stmt.Cond.(*ast.Decl); ok {
		return stmt, []m.Diagnostic{{Pos: stmt.Cond.Position(), Message: assignmentInCondition}}
	}

	slot := 0

	return &ast.ConditionStmt{
		Text:     ast.Format(stmt.Cond),
		Cond:     record(stmt.Cond, &slot),
		Message:  stmt.Message,
		Recorder: &ast.Var{Name: ast.ValueRecorderName, Binding: ast.BindLocal, Pos: stmt.Pos},
		Pos:      stmt.Pos,
	}, nil
}

// IsImplicitCondition reports whether a top-level statement of a then or
// expect block is treated as a condition.
func IsImplicitCondition(stmt ast.Stmt) bool {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok || IsInteraction(stmt) {
		return false
	}

	switch es.X.(type) {
	case *ast.Decl, *ast.Closure, *ast.MockCreate:
		return false
	}

	if ast.IsAssignment(es.X) || IsBuiltinMemberCall(es.X, MockPrimitive, 0, 1) {
		return false
	}

	return true
}

// ImplicitCondition turns a bare expression statement into an assertion.
func ImplicitCondition(stmt ast.Stmt) ast.Stmt {
	es, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return stmt
	}

	return &ast.AssertStmt{Cond: es.X, Pos: es.Pos}
}

func record(e ast.Expr, slot *int) ast.Expr {
	switch e.(type) {
	case *ast.Var, *ast.Binary, *ast.Unary, *ast.MethodCall, *ast.Property,
		*ast.List, *ast.Const, *ast.OldValue:
	default:
		return e
	}

	n := *slot
	*slot++

	inner := e
	if _, ok := e.(*ast.OldValue); !ok {
		inner = ast.MapChildren(e, func(c ast.Expr) ast.Expr { return record(c, slot) })
	}

	return &ast.Record{Slot: n, X: inner, Pos: e.Position()}
}
