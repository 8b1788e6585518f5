package rewriters

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

func v(name string) *ast.Var { return &ast.Var{Name: name} }

func c(value any) *ast.Const { return &ast.Const{Value: value} }

func call(recv ast.Expr, name string, args ...ast.Expr) *ast.MethodCall {
	return &ast.MethodCall{Recv: recv, Name: name, Args: args}
}

func bin(op string, x, y ast.Expr) *ast.Binary { return &ast.Binary{Op: op, X: x, Y: y} }

func TestBuiltinMemberClassification(t *testing.T) {
	tests := []struct {
		name       string
		expr       ast.Expr
		call       bool
		assignment bool
	}{
		{"bare Mock()", call(nil, "Mock"), true, false},
		{"Mock with type", call(nil, "Mock", v("Person")), true, false},
		{"this.Mock()", call(&ast.This{}, "Mock"), true, false},
		{"Mock on other receiver", call(v("factory"), "Mock"), false, false},
		{"too many arguments", call(nil, "Mock", v("A"), v("B")), false, false},
		{"assignment", bin("=", v("p"), call(nil, "Mock")), false, true},
		{"property assignment", bin("=", &ast.Property{X: v("a"), Name: "b"}, call(nil, "Mock")), false, true},
		{"declaration", &ast.Decl{Name: "p", Type: "Person", Value: call(nil, "Mock")}, false, true},
		{"comparison", bin("==", v("p"), call(nil, "Mock")), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.call, IsBuiltinMemberCall(tt.expr, MockPrimitive, 0, 1))
			assert.Equal(t, tt.assignment, IsBuiltinMemberAssignment(tt.expr, MockPrimitive, 0, 1))
		})
	}

	assert.False(t, IsBuiltinMemberCall(call(nil, "old"), OldPrimitive, 1, 1))
	assert.True(t, IsBuiltinMemberCall(call(nil, "old", v("x")), OldPrimitive, 1, 1))
}

func TestIsSuperFixtureCall(t *testing.T) {
	setup := &m.Method{Name: "setup", Kind: m.KindSetup}
	feature := &m.Method{Name: "setup", Kind: m.KindFeature}

	assert.True(t, IsSuperFixtureCall(call(&ast.Super{}, "setup"), setup))
	assert.False(t, IsSuperFixtureCall(call(&ast.Super{}, "cleanup"), setup))
	assert.False(t, IsSuperFixtureCall(call(&ast.This{}, "setup"), setup))
	assert.False(t, IsSuperFixtureCall(call(&ast.Super{}, "setup"), feature))
	assert.False(t, IsSuperFixtureCall(call(&ast.Super{}, "setup"), nil))
}

func TestRewriteExplicitCondition(t *testing.T) {
	t.Run("instruments operands pre-order", func(t *testing.T) {
		stmt := &ast.AssertStmt{Cond: bin("==", v("a"), bin("+", v("b"), c(int64(1))))}

		got, diags := RewriteExplicitCondition(stmt)
		require.Empty(t, diags)

		cond, ok := got.(*ast.ConditionStmt)
		require.True(t, ok)
		assert.Equal(t, "a == b + 1", cond.Text)
		assert.Equal(t, ast.ValueRecorderName, cond.Recorder.Name)

		want := &ast.Record{Slot: 0, X: bin("==",
			&ast.Record{Slot: 1, X: v("a")},
			&ast.Record{Slot: 2, X: bin("+",
				&ast.Record{Slot: 3, X: v("b")},
				&ast.Record{Slot: 4, X: c(int64(1))},
			)},
		)}
		assert.Empty(t, cmp.Diff(want, cond.Cond))
	})

	t.Run("closures are not instrumented", func(t *testing.T) {
		cl := &ast.Closure{Body: &ast.Block{}}
		stmt := &ast.AssertStmt{Cond: call(v("list"), "every", cl)}

		got, _ := RewriteExplicitCondition(stmt)
		rec := got.(*ast.ConditionStmt).Cond.(*ast.Record)
		mc := rec.X.(*ast.MethodCall)
		assert.Same(t, cl, mc.Args[0])
	})

	t.Run("input is not mutated", func(t *testing.T) {
		cond := bin("!=", v("x"), v("y"))
		stmt := &ast.AssertStmt{Cond: cond}
		_, _ = RewriteExplicitCondition(stmt)
		assert.Same(t, cond, stmt.Cond)
		assert.IsType(t, &ast.Var{}, cond.X)
	})

	t.Run("assignment is reported", func(t *testing.T) {
		stmt := &ast.AssertStmt{Cond: bin("=", v("x"), c(int64(1))), Pos: ast.Pos{Line: 4, Column: 3}}

		got, diags := RewriteExplicitCondition(stmt)
		assert.Same(t, stmt, got)
		require.Len(t, diags, 1)
		assert.Contains(t, diags[0].Message, "Did you intend to write '==' ?")
	})
}

func TestImplicitCondition(t *testing.T) {
	tests := []struct {
		name string
		stmt ast.Stmt
		want bool
	}{
		{"comparison", &ast.ExprStmt{X: bin("==", v("a"), v("b"))}, true},
		{"call", &ast.ExprStmt{X: call(v("list"), "isEmpty")}, true},
		{"assignment", &ast.ExprStmt{X: bin("=", v("a"), v("b"))}, false},
		{"declaration", &ast.ExprStmt{X: &ast.Decl{Name: "a"}}, false},
		{"interaction", &ast.ExprStmt{X: bin("*", c(int64(1)), call(v("sub"), "receive", &ast.Wildcard{}))}, false},
		{"if", &ast.IfStmt{Cond: v("a")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImplicitCondition(tt.stmt))
		})
	}

	got := ImplicitCondition(&ast.ExprStmt{X: v("ok")})
	assert.IsType(t, &ast.AssertStmt{}, got)
}

func TestRewriteInteraction(t *testing.T) {
	ctrl := v(ast.MockControllerName)

	tests := []struct {
		name    string
		expr    ast.Expr
		match   bool
		method  string
		args    int
		anyArgs bool
		card    bool
		resp    bool
	}{
		{"cardinality and call", bin("*", c(int64(1)), call(v("sub"), "receive", c("hi"))), true, "receive", 1, false, true, false},
		{"response only", bin(">>", call(v("repo"), "find", &ast.Wildcard{}), c(int64(5))), true, "find", 1, false, false, true},
		{"both", bin(">>", bin("*", c(int64(2)), call(v("repo"), "find", &ast.Unary{Op: "*", X: &ast.Wildcard{}})), c("x")), true, "find", 0, true, true, true},
		{"range cardinality", bin("*", bin("..", c(int64(1)), &ast.Wildcard{}), call(&ast.Wildcard{}, "close")), true, "close", 0, false, true, false},
		{"plain call", call(v("sub"), "receive"), false, "", 0, false, false, false},
		{"implicit this", bin("*", c(int64(1)), call(nil, "receive")), false, "", 0, false, false, false},
		{"arithmetic", bin("*", v("a"), v("b")), false, "", 0, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := &ast.ExprStmt{X: tt.expr}

			got, ok := RewriteInteraction(stmt, ctrl)
			require.Equal(t, tt.match, ok)
			assert.Equal(t, tt.match, IsInteraction(stmt))

			if !tt.match {
				assert.Nil(t, got)
				return
			}

			assert.Equal(t, tt.method, got.Method)
			assert.Len(t, got.Args, tt.args)
			assert.Equal(t, tt.anyArgs, got.AnyArgs)
			assert.Equal(t, tt.card, got.Cardinality != nil)
			assert.Equal(t, tt.resp, got.Response != nil)
			assert.Same(t, ctrl, got.Controller)
			assert.Equal(t, ast.Format(tt.expr), got.Text)
		})
	}
}

func TestExpandMock(t *testing.T) {
	ctrl := v(ast.MockControllerName)

	t.Run("declared type is inferred", func(t *testing.T) {
		got, diag := ExpandMockAssignment(&ast.Decl{Name: "sub", Type: "Subscriber", Value: call(nil, "Mock")}, ctrl)
		require.Nil(t, diag)

		decl := got.(*ast.Decl)
		assert.Equal(t, &ast.MockCreate{Controller: ctrl, Name: "sub", Type: "Subscriber"}, decl.Value)
	})

	t.Run("explicit type wins", func(t *testing.T) {
		got, diag := ExpandMockAssignment(bin("=", v("sub"), call(nil, "Mock", v("Subscriber"))), ctrl)
		require.Nil(t, diag)
		assert.Equal(t, "Subscriber", got.(*ast.Binary).Y.(*ast.MockCreate).Type)
	})

	t.Run("def without type is reported", func(t *testing.T) {
		decl := &ast.Decl{Name: "sub", Type: "def", Value: call(nil, "Mock")}

		got, diag := ExpandMockAssignment(decl, ctrl)
		require.NotNil(t, diag)
		assert.Same(t, decl, got)
		assert.Contains(t, diag.Message, "cannot be inferred")
	})

	t.Run("standalone call", func(t *testing.T) {
		got, diag := ExpandMockCall(call(nil, "Mock", c("Subscriber")), ctrl)
		require.Nil(t, diag)
		assert.Equal(t, "", got.(*ast.MockCreate).Name)

		_, diag = ExpandMockCall(call(nil, "Mock"), ctrl)
		assert.NotNil(t, diag)

		_, diag = ExpandMockCall(call(nil, "Mock", c(int64(3))), ctrl)
		assert.NotNil(t, diag)
	})
}

func TestFixupParameters(t *testing.T) {
	derived := &m.Method{Name: "f", Kind: m.KindFeature, Params: []string{"a", "b"}}
	declared := &m.Method{Name: "f", Kind: m.KindFeature, Params: []string{"a"}, DeclaredParams: true}

	scope := ast.NewScope().
		With("a", ast.Binding{Kind: ast.BindDynamic}).
		With("b", ast.Binding{Kind: ast.BindLocal}).
		With("field", ast.Binding{Kind: ast.BindDynamic})

	t.Run("block scope", func(t *testing.T) {
		got := FixupParameters(scope, derived, false)
		b, _ := got.Lookup("a")
		assert.Equal(t, ast.Binding{Kind: ast.BindParam}, b)

		b, _ = got.Lookup("b")
		assert.Equal(t, ast.BindLocal, b.Kind)

		b, _ = got.Lookup("field")
		assert.Equal(t, ast.BindDynamic, b.Kind)

		orig, _ := scope.Lookup("a")
		assert.Equal(t, ast.BindDynamic, orig.Kind, "input scope must not change")
	})

	t.Run("closure scope", func(t *testing.T) {
		b, _ := FixupParameters(scope, derived, true).Lookup("a")
		assert.Equal(t, ast.Binding{Kind: ast.BindParam, ClosureShared: true}, b)
	})

	t.Run("declared parameters are left alone", func(t *testing.T) {
		assert.Same(t, scope, FixupParameters(scope, declared, false))
		assert.Same(t, scope, FixupParameters(scope, &m.Method{Kind: m.KindSetup, Params: []string{"a"}}, false))
	})
}
