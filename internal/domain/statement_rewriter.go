package domain

import (
	"fmt"

	"spekt.dev/pkg/spekt/internal/ast"
	"spekt.dev/pkg/spekt/internal/domain/rewriters"
	m "spekt.dev/pkg/spekt/internal/model"
)

const (
	superFixtureCall = "A base class fixture method should not be called explicitly " +
		"because it is always run automatically by the framework"
	oldOutsideThen = "old() may only be used in a 'then' block"
)

// RewriteResources are the collaborators the statement rewriter calls back
// into while rewriting one block of a method.
type RewriteResources interface {
	CurrentMethod() *m.Method
	CurrentBlock() *m.Block
	MockControllerRef() ast.Expr
	// CaptureOldValue arranges for src to be evaluated before the preceding
	// when block runs and returns the variable holding the snapshot.
	CaptureOldValue(src ast.Expr) *ast.Var
	// DefineValueRecorder returns stmts preceded by a value recorder declaration.
	DefineValueRecorder(stmts []ast.Stmt) []ast.Stmt
}

// RewriteResult is the outcome of rewriting one block.
type RewriteResult struct {
	Block            *ast.Block
	ConditionFound   bool
	InteractionFound bool
	Diagnostics      []m.Diagnostic
}

// StatementRewriter rewrites the conditions, interactions and built-in
// primitives of a block into their executable form.
type StatementRewriter interface {
	Rewrite(block *ast.Block) RewriteResult
}

type statementRewriter struct {
	res RewriteResources
}

// NewStatementRewriter creates a StatementRewriter calling back into res.
func NewStatementRewriter(res RewriteResources) StatementRewriter {
	return &statementRewriter{res: res}
}

func (sr *statementRewriter) Rewrite(block *ast.Block) RewriteResult {
	w := &walk{res: sr.res, method: sr.res.CurrentMethod()}
	root := &frame{}
	w.frames = []*frame{root}

	out := w.block(block)

	return RewriteResult{
		Block:            out,
		ConditionFound:   root.conditionFound,
		InteractionFound: root.interactionFound,
		Diagnostics:      w.diags,
	}
}

// frame is the rewriting state of the method body or of one closure.
// A closure may run later than the code declaring it, so what it contains
// never counts as found for its enclosing frame.
type frame struct {
	conditionFound   bool
	interactionFound bool
	closure          bool
	// scope of the closure; old value snapshots used inside are added to it.
	scope *ast.Scope
}

// walk holds the state of one Rewrite call.
type walk struct {
	res    RewriteResources
	method *m.Method
	frames []*frame
	diags  []m.Diagnostic
}

func (w *walk) current() *frame {
	return w.frames[len(w.frames)-1]
}

func (w *walk) report(pos ast.Pos, format string, args ...any) {
	w.diags = append(w.diags, m.Diagnostic{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (w *walk) reportDiag(d m.Diagnostic) {
	w.diags = append(w.diags, d)
}

func (w *walk) block(b *ast.Block) *ast.Block {
	if b == nil {
		return nil
	}

	stmts, changed := w.stmts(b.Stmts)
	scope := rewriters.FixupParameters(b.Scope, w.method, false)

	if !changed && scope == b.Scope {
		return b
	}

	return &ast.Block{Stmts: stmts, Scope: scope, Pos: b.Pos}
}

func (w *walk) stmts(in []ast.Stmt) ([]ast.Stmt, bool) {
	out := make([]ast.Stmt, len(in))
	changed := false

	for i, s := range in {
		out[i] = w.stmt(s)
		if out[i] != s {
			changed = true
		}
	}

	return out, changed
}

func (w *walk) stmt(s ast.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ast.Block:
		return w.block(s)
	case *ast.AssertStmt:
		return w.assert(s)
	case *ast.ExprStmt:
		return w.exprStmt(s)
	case *ast.IfStmt:
		cond := w.expr(s.Cond)
		then := w.block(s.Then)
		els := w.block(s.Else)

		if cond == s.Cond && then == s.Then && els == s.Else {
			return s
		}

		return &ast.IfStmt{Cond: cond, Then: then, Else: els, Pos: s.Pos}
	}

	return s
}

func (w *walk) assert(s *ast.AssertStmt) ast.Stmt {
	cond := w.expr(s.Cond)
	msg := w.expr(s.Message)

	visited := s
	if cond != s.Cond || msg != s.Message {
		visited = &ast.AssertStmt{Cond: cond, Message: msg, Pos: s.Pos}
	}

	w.current().conditionFound = true

	out, diags := rewriters.RewriteExplicitCondition(visited)
	w.diags = append(w.diags, diags...)

	return out
}

func (w *walk) exprStmt(s *ast.ExprStmt) ast.Stmt {
	visited := s
	if x := w.expr(s.X); x != s.X {
		visited = &ast.ExprStmt{X: x, Pos: s.Pos}
	}

	interaction, ok := rewriters.RewriteInteraction(visited, w.res.MockControllerRef())
	if !ok {
		return visited
	}

	w.current().interactionFound = true

	return interaction
}

func (w *walk) expr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *ast.Binary, *ast.Decl:
		// Expand before descending so Mock() is not handled as a plain call.
		if rewriters.IsBuiltinMemberAssignment(n, rewriters.MockPrimitive, 0, 1) {
			expanded, diag := rewriters.ExpandMockAssignment(n, w.res.MockControllerRef())
			if diag != nil {
				w.reportDiag(*diag)
				return e
			}

			e = expanded
		}

		return ast.MapChildren(e, w.expr)
	case *ast.Closure:
		return w.closure(n)
	case *ast.MethodCall:
		visited, _ := ast.MapChildren(n, w.expr).(*ast.MethodCall)
		return w.call(visited)
	}

	return ast.MapChildren(e, w.expr)
}

func (w *walk) call(c *ast.MethodCall) ast.Expr {
	if rewriters.IsSuperFixtureCall(c, w.method) {
		w.report(c.Pos, superFixtureCall)
	}

	switch {
	case rewriters.IsBuiltinMemberCall(c, rewriters.MockPrimitive, 0, 1):
		expanded, diag := rewriters.ExpandMockCall(c, w.res.MockControllerRef())
		if diag != nil {
			w.reportDiag(*diag)
		}

		return expanded
	case rewriters.IsBuiltinMemberCall(c, rewriters.OldPrimitive, 1, 1):
		return w.old(c)
	}

	return c
}

func (w *walk) old(c *ast.MethodCall) ast.Expr {
	if b := w.res.CurrentBlock(); b == nil || b.Kind != m.BlockThen {
		w.report(c.Pos, oldOutsideThen)
		return c
	}

	snapshot := w.res.CaptureOldValue(c.Args[0])

	if f := w.current(); f.closure {
		snapshot = &ast.Var{Name: snapshot.Name, Binding: ast.BindLocal, ClosureShared: true, Pos: snapshot.Pos}
		f.scope = f.scope.With(snapshot.Name, ast.Binding{Kind: ast.BindLocal, ClosureShared: true})
	}

	return &ast.OldValue{Var: snapshot, Source: c.Args[0], Pos: c.Pos}
}

func (w *walk) closure(c *ast.Closure) ast.Expr {
	if c.Body == nil {
		return c
	}

	f := &frame{
		closure: true,
		scope:   rewriters.FixupParameters(c.Body.Scope, w.method, true),
	}

	w.frames = append(w.frames, f)
	stmts, changed := w.stmts(c.Body.Stmts)
	w.frames = w.frames[:len(w.frames)-1]

	if f.conditionFound {
		stmts = w.res.DefineValueRecorder(stmts)
		changed = true
	}

	scope := rewriters.FixupParameters(f.scope, w.method, false)
	if !changed && scope == c.Body.Scope {
		return c
	}

	return &ast.Closure{
		Params: c.Params,
		Body:   &ast.Block{Stmts: stmts, Scope: scope, Pos: c.Body.Pos},
		Pos:    c.Pos,
	}
}
