package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

type fakeResources struct {
	method   *m.Method
	block    *m.Block
	captured []ast.Expr
	defined  int
}

func (f *fakeResources) CurrentMethod() *m.Method { return f.method }

func (f *fakeResources) CurrentBlock() *m.Block { return f.block }

func (f *fakeResources) MockControllerRef() ast.Expr {
	return &ast.Var{Name: ast.MockControllerName}
}

func (f *fakeResources) CaptureOldValue(src ast.Expr) *ast.Var {
	f.captured = append(f.captured, src)
	return &ast.Var{Name: fmt.Sprintf("%s%d", ast.OldValuePrefix, len(f.captured)-1), Binding: ast.BindLocal}
}

func (f *fakeResources) DefineValueRecorder(stmts []ast.Stmt) []ast.Stmt {
	f.defined++
	decl := &ast.ExprStmt{X: &ast.Decl{Name: ast.ValueRecorderName, Value: &ast.NewValueRecorder{}}}

	return append([]ast.Stmt{decl}, stmts...)
}

func newFake(kind m.MethodKind, name string, block m.BlockKind) *fakeResources {
	return &fakeResources{
		method: &m.Method{Name: name, Kind: kind},
		block:  &m.Block{Kind: block},
	}
}

func vr(name string) *ast.Var { return &ast.Var{Name: name} }

func cst(v any) *ast.Const { return &ast.Const{Value: v} }

func mcall(recv ast.Expr, name string, args ...ast.Expr) *ast.MethodCall {
	return &ast.MethodCall{Recv: recv, Name: name, Args: args}
}

func binop(op string, x, y ast.Expr) *ast.Binary { return &ast.Binary{Op: op, X: x, Y: y} }

func blockOf(stmts ...ast.Stmt) *ast.Block {
	return &ast.Block{Stmts: stmts, Scope: ast.NewScope()}
}

func exprStmt(e ast.Expr) *ast.ExprStmt { return &ast.ExprStmt{X: e} }

func closureOf(stmts ...ast.Stmt) *ast.Closure {
	return &ast.Closure{Body: blockOf(stmts...)}
}

func TestStatementRewriterConditions(t *testing.T) {
	t.Run("assertion becomes a condition", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockThen)
		in := blockOf(&ast.AssertStmt{Cond: binop("==", vr("a"), vr("b"))})

		out := NewStatementRewriter(res).Rewrite(in)

		assert.True(t, out.ConditionFound)
		assert.False(t, out.InteractionFound)
		assert.Empty(t, out.Diagnostics)
		require.Len(t, out.Block.Stmts, 1)
		assert.IsType(t, &ast.ConditionStmt{}, out.Block.Stmts[0])
		assert.IsType(t, &ast.AssertStmt{}, in.Stmts[0], "input must not change")
	})

	t.Run("nested block assertions count", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockWhen)
		in := blockOf(&ast.IfStmt{
			Cond: vr("x"),
			Then: blockOf(&ast.AssertStmt{Cond: vr("y")}),
		})

		out := NewStatementRewriter(res).Rewrite(in)
		assert.True(t, out.ConditionFound)
		assert.IsType(t, &ast.ConditionStmt{}, out.Block.Stmts[0].(*ast.IfStmt).Then.Stmts[0])
	})

	t.Run("unchanged block is returned as is", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockSetup)
		in := blockOf(exprStmt(mcall(vr("list"), "clear")))

		out := NewStatementRewriter(res).Rewrite(in)
		assert.Same(t, in, out.Block)
		assert.False(t, out.ConditionFound)
	})
}

func TestStatementRewriterInteractions(t *testing.T) {
	res := newFake(m.KindFeature, "f", m.BlockThen)
	interaction := exprStmt(binop("*", cst(int64(1)), mcall(vr("sub"), "receive", cst("hi"))))
	plain := exprStmt(mcall(vr("sub"), "receive", cst("hi")))

	out := NewStatementRewriter(res).Rewrite(blockOf(interaction, plain))

	assert.True(t, out.InteractionFound)
	assert.False(t, out.ConditionFound)

	reg, ok := out.Block.Stmts[0].(*ast.InteractionStmt)
	require.True(t, ok)
	assert.Equal(t, `1 * sub.receive("hi")`, reg.Text)
	assert.Same(t, plain, out.Block.Stmts[1], "non-matching statements are returned unchanged")
}

func TestStatementRewriterClosures(t *testing.T) {
	t.Run("found flags do not leak out of a closure", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockWhen)
		cl := closureOf(
			&ast.AssertStmt{Cond: binop(">", vr("it"), cst(int64(0)))},
			exprStmt(binop(">>", mcall(vr("repo"), "find"), cst(int64(1)))),
		)
		in := blockOf(exprStmt(mcall(vr("list"), "each", cl)))

		out := NewStatementRewriter(res).Rewrite(in)

		assert.False(t, out.ConditionFound)
		assert.False(t, out.InteractionFound)
		assert.Equal(t, 1, res.defined)

		rewritten := out.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.MethodCall).Args[0].(*ast.Closure)
		require.Len(t, rewritten.Body.Stmts, 3)
		decl := rewritten.Body.Stmts[0].(*ast.ExprStmt).X.(*ast.Decl)
		assert.Equal(t, ast.ValueRecorderName, decl.Name)
		assert.IsType(t, &ast.ConditionStmt{}, rewritten.Body.Stmts[1])
		assert.IsType(t, &ast.InteractionStmt{}, rewritten.Body.Stmts[2])
	})

	t.Run("outer flags survive a closure", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockThen)
		in := blockOf(
			&ast.AssertStmt{Cond: vr("ready")},
			exprStmt(mcall(vr("list"), "each", closureOf(exprStmt(vr("it"))))),
		)

		out := NewStatementRewriter(res).Rewrite(in)
		assert.True(t, out.ConditionFound)
		assert.Equal(t, 0, res.defined)
	})

	t.Run("nested closures get their own recorder", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockWhen)
		inner := closureOf(&ast.AssertStmt{Cond: vr("it")})
		outer := closureOf(
			&ast.AssertStmt{Cond: vr("it")},
			exprStmt(mcall(vr("it"), "each", inner)),
		)

		out := NewStatementRewriter(res).Rewrite(blockOf(exprStmt(mcall(vr("xs"), "each", outer))))
		assert.False(t, out.ConditionFound)
		assert.Equal(t, 2, res.defined)
	})
}

func TestStatementRewriterMock(t *testing.T) {
	t.Run("typed declaration", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockSetup)
		in := blockOf(exprStmt(&ast.Decl{Name: "sub", Type: "Subscriber", Value: mcall(nil, "Mock")}))

		out := NewStatementRewriter(res).Rewrite(in)
		require.Empty(t, out.Diagnostics)

		decl := out.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.Decl)
		create, ok := decl.Value.(*ast.MockCreate)
		require.True(t, ok)
		assert.Equal(t, "sub", create.Name)
		assert.Equal(t, "Subscriber", create.Type)
	})

	t.Run("untyped assignment is reported and kept", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockSetup)
		assign := binop("=", vr("sub"), mcall(nil, "Mock"))
		stmt := exprStmt(assign)

		out := NewStatementRewriter(res).Rewrite(blockOf(stmt))
		require.Len(t, out.Diagnostics, 1)
		assert.Contains(t, out.Diagnostics[0].Message, "cannot be inferred")
		assert.Same(t, stmt, out.Block.Stmts[0])
	})

	t.Run("errors in separate statements are all reported", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockSetup)
		in := blockOf(
			exprStmt(binop("=", vr("a"), mcall(nil, "Mock"))),
			exprStmt(binop("=", vr("b"), mcall(nil, "Mock"))),
			exprStmt(mcall(nil, "Mock")),
		)

		out := NewStatementRewriter(res).Rewrite(in)
		assert.Len(t, out.Diagnostics, 3)
	})
}

func TestStatementRewriterOld(t *testing.T) {
	t.Run("then block captures a snapshot", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockThen)
		in := blockOf(&ast.AssertStmt{Cond: binop("==", vr("count"), binop("+", mcall(nil, "old", vr("count")), cst(int64(1))))})

		out := NewStatementRewriter(res).Rewrite(in)
		require.Empty(t, out.Diagnostics)
		require.Len(t, res.captured, 1)

		cond := out.Block.Stmts[0].(*ast.ConditionStmt)
		assert.Equal(t, "count == old(count) + 1", cond.Text)

		var old *ast.OldValue

		ast.Inspect(cond.Cond, func(e ast.Expr) bool {
			if o, ok := e.(*ast.OldValue); ok {
				old = o
			}

			return true
		})
		require.NotNil(t, old)
		assert.Equal(t, ast.OldValuePrefix+"0", old.Var.Name)
		assert.False(t, old.Var.ClosureShared)
	})

	t.Run("outside then is reported once and left alone", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockSetup)
		stmt := exprStmt(&ast.Decl{Name: "x", Value: mcall(nil, "old", vr("count"))})

		out := NewStatementRewriter(res).Rewrite(blockOf(stmt))
		require.Len(t, out.Diagnostics, 1)
		assert.Equal(t, "old() may only be used in a 'then' block", out.Diagnostics[0].Message)
		assert.Same(t, stmt, out.Block.Stmts[0])
		assert.Empty(t, res.captured)
	})

	t.Run("inside a closure the snapshot is closure shared", func(t *testing.T) {
		res := newFake(m.KindFeature, "f", m.BlockThen)
		cl := closureOf(&ast.AssertStmt{Cond: binop("==", vr("it"), mcall(nil, "old", vr("x")))})

		out := NewStatementRewriter(res).Rewrite(blockOf(exprStmt(mcall(vr("xs"), "every", cl))))

		got := out.Block.Stmts[0].(*ast.ExprStmt).X.(*ast.MethodCall).Args[0].(*ast.Closure)
		b, ok := got.Body.Scope.Lookup(ast.OldValuePrefix + "0")
		require.True(t, ok)
		assert.Equal(t, ast.Binding{Kind: ast.BindLocal, ClosureShared: true}, b)
		assert.Equal(t, 0, cl.Body.Scope.Len(), "input closure scope must not change")
	})
}

func TestStatementRewriterSuperFixtureCall(t *testing.T) {
	res := newFake(m.KindSetup, "setup", m.BlockMethod)
	stmt := exprStmt(mcall(&ast.Super{}, "setup"))
	other := exprStmt(mcall(&ast.Super{}, "helper"))

	out := NewStatementRewriter(res).Rewrite(blockOf(stmt, other))

	require.Len(t, out.Diagnostics, 1)
	assert.Contains(t, out.Diagnostics[0].Message, "always run automatically")
	assert.Same(t, stmt, out.Block.Stmts[0])

	feature := newFake(m.KindFeature, "setup", m.BlockWhen)
	assert.Empty(t, NewStatementRewriter(feature).Rewrite(blockOf(stmt)).Diagnostics)
}

func TestStatementRewriterScopeFixup(t *testing.T) {
	dynamic := ast.NewScope().With("a", ast.Binding{Kind: ast.BindDynamic})

	newRes := func(declared bool) *fakeResources {
		return &fakeResources{
			method: &m.Method{Name: "f", Kind: m.KindFeature, Params: []string{"a"}, DeclaredParams: declared},
			block:  &m.Block{Kind: m.BlockExpect},
		}
	}

	t.Run("block and closure scopes are repaired", func(t *testing.T) {
		cl := &ast.Closure{Body: &ast.Block{Stmts: []ast.Stmt{exprStmt(vr("a"))}, Scope: dynamic}}
		in := &ast.Block{Stmts: []ast.Stmt{exprStmt(vr("a")), exprStmt(cl)}, Scope: dynamic}

		out := NewStatementRewriter(newRes(false)).Rewrite(in)

		b, _ := out.Block.Scope.Lookup("a")
		assert.Equal(t, ast.Binding{Kind: ast.BindParam}, b)

		got := out.Block.Stmts[1].(*ast.ExprStmt).X.(*ast.Closure)
		b, _ = got.Body.Scope.Lookup("a")
		assert.Equal(t, ast.Binding{Kind: ast.BindParam, ClosureShared: true}, b)
	})

	t.Run("declared parameters are not touched", func(t *testing.T) {
		in := &ast.Block{Stmts: []ast.Stmt{exprStmt(vr("a"))}, Scope: dynamic}

		out := NewStatementRewriter(newRes(true)).Rewrite(in)
		assert.Same(t, in, out.Block)
	})
}
