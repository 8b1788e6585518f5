package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

const stackSpec = `
spec: StackSpec
fields:
  limit: 3
fixtures:
  setup:
    - "=": [stack, []]
  cleanupSpec:
    - {call: println, args: ["done"]}
features:
  - name: pushes an element
    blocks:
      - given:
          - def: element
            value: "push me"
      - when:
          - "=": [stack, {call: plus, on: stack, args: [element]}]
      - then:
          - "==": [{prop: size, on: stack}, 1]
      - and:
          - assert: {"==": [{call: last, on: stack}, element]}
            message: "last element"
  - name: maximum
    unroll: "#a and #b"
    params: [a, b, c]
    blocks:
      - expect:
          - "==": [{call: max, args: [a, b]}, c]
    where:
      - [a, b, c]
      - [1, 3, 3]
      - [7, 4, 7]
    derived:
      d: {"+": [a, b]}
  - name: pending
    skip: true
    unroll: true
    blocks:
      - expect:
          - _
          - {"*": _}
          - this
          - {"!": [true]}
          - {closure: [{"==": [it, 1]}], params: [it]}
          - {old: x}
          - 2.5
          - null
          - "quoted"
          - bare words
`

func TestLocalSpecFileAdapter_Parse(t *testing.T) {
	spec, err := NewLocalSpecFileAdapter().Parse("stack.spec.yaml", []byte(stackSpec))
	require.NoError(t, err)

	assert.Equal(t, "StackSpec", spec.Name)
	assert.Equal(t, m.Path("stack.spec.yaml"), spec.File)
	assert.Equal(t, 3, spec.Fields["limit"])

	require.Len(t, spec.Fixtures, 2)
	assert.Equal(t, m.KindSetup, spec.Fixtures[0].Kind)
	assert.Equal(t, m.KindCleanupSpec, spec.Fixtures[1].Kind)
	assert.Equal(t, m.BlockMethod, spec.Fixtures[0].Blocks[0].Kind)
	assert.NotNil(t, spec.Fixtures[0].Blocks[0].Body.Scope)

	require.Len(t, spec.Features, 3)

	t.Run("blocks", func(t *testing.T) {
		push := spec.Features[0]
		assert.Equal(t, "pushes an element", push.Name)
		assert.Equal(t, m.KindFeature, push.Method.Kind)
		assert.False(t, push.Parameterized())

		require.Len(t, push.Method.Blocks, 3, "an 'and' block continues the block before it")
		assert.Equal(t, m.BlockSetup, push.Method.Blocks[0].Kind)
		assert.Equal(t, m.BlockWhen, push.Method.Blocks[1].Kind)
		assert.Equal(t, m.BlockThen, push.Method.Blocks[2].Kind)

		then := push.Method.Blocks[2].Body.Stmts
		require.Len(t, then, 2)
		assert.Equal(t, "stack.size == 1", ast.Format(then[0].(*ast.ExprStmt).X))

		assertion, ok := then[1].(*ast.AssertStmt)
		require.True(t, ok)
		assert.Equal(t, "stack.last() == element", ast.Format(assertion.Cond))
		assert.Equal(t, "last element", assertion.Message.(*ast.Const).Value)

		decl := push.Method.Blocks[0].Body.Stmts[0].(*ast.ExprStmt).X.(*ast.Decl)
		assert.Equal(t, "element", decl.Name)
		assert.Equal(t, "push me", decl.Value.(*ast.Const).Value)
	})

	t.Run("data table", func(t *testing.T) {
		maximum := spec.Features[1]
		assert.True(t, maximum.Parameterized())
		assert.True(t, maximum.Unroll)
		assert.Equal(t, "#a and #b", maximum.UnrollPattern)
		assert.True(t, maximum.Method.DeclaredParams)
		assert.Equal(t, []string{"a", "b", "c"}, maximum.Method.Params)
		assert.Equal(t, []string{"a", "b", "c", "d"}, maximum.DataVariables())

		require.Len(t, maximum.DataProviders, 3)
		assert.Equal(t, "[1, 7]", ast.Format(maximum.DataProviders[0].Source))
		assert.Equal(t, "[3, 7]", ast.Format(maximum.DataProviders[2].Source))
		assert.Equal(t, "a + b", ast.Format(maximum.Derived[0].Value))
	})

	t.Run("scalars and compound expressions", func(t *testing.T) {
		pending := spec.Features[2]
		assert.True(t, pending.Skipped)
		assert.True(t, pending.Unroll)
		assert.Empty(t, pending.UnrollPattern)

		exprs := make([]ast.Expr, 0)
		for _, s := range pending.Method.Statements() {
			exprs = append(exprs, s.(*ast.ExprStmt).X)
		}

		require.Len(t, exprs, 10)
		assert.IsType(t, &ast.Wildcard{}, exprs[0])
		assert.IsType(t, &ast.Unary{}, exprs[1])
		assert.IsType(t, &ast.This{}, exprs[2])
		assert.Equal(t, "!", exprs[3].(*ast.Unary).Op)
		assert.Equal(t, []string{"it"}, exprs[4].(*ast.Closure).Params)
		assert.Equal(t, "old", exprs[5].(*ast.MethodCall).Name)
		assert.Equal(t, 2.5, exprs[6].(*ast.Const).Value)
		assert.Nil(t, exprs[7].(*ast.Const).Value)
		assert.Equal(t, "quoted", exprs[8].(*ast.Const).Value)
		assert.Equal(t, "bare words", exprs[9].(*ast.Const).Value)
	})
}

func TestLocalSpecFileAdapter_UndeclaredParamsComeFromData(t *testing.T) {
	spec, err := NewLocalSpecFileAdapter().Parse("t.spec.yaml", []byte(`
spec: T
features:
  - name: f
    blocks:
      - expect: [a]
    where:
      a: [true]
`))
	require.NoError(t, err)

	method := spec.Features[0].Method
	assert.False(t, method.DeclaredParams)
	assert.Equal(t, []string{"a"}, method.Params)
}

func TestLocalSpecFileAdapter_ParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"empty file", "", "empty spec file"},
		{"missing name", "features: []\n", "spec name is required"},
		{"unknown key", "spec: S\nbogus: 1\n", `unknown spec key "bogus"`},
		{"unknown fixture", "spec: S\nfixtures:\n  teardown: []\n", `unknown fixture "teardown"`},
		{"feature is not a fixture", "spec: S\nfixtures:\n  feature: []\n", `unknown fixture "feature"`},
		{"features not a list", "spec: S\nfeatures: {}\n", "features must be a list"},
		{"feature without name", "spec: S\nfeatures:\n  - blocks: []\n", "feature name is required"},
		{"unknown block", "spec: S\nfeatures:\n  - name: f\n    blocks:\n      - finally: []\n", `unknown block label "finally"`},
		{"two labels", "spec: S\nfeatures:\n  - name: f\n    blocks:\n      - {when: [], then: []}\n", "a block has exactly one label"},
		{"ragged table", "spec: S\nfeatures:\n  - name: f\n    where:\n      - [a, b]\n      - [1]\n", "data table row has 1 cells, expected 2"},
		{"unknown operator", "spec: S\nfeatures:\n  - name: f\n    blocks:\n      - expect:\n          - {\"<=>\": [1, 2]}\n", `unknown operator "<=>"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLocalSpecFileAdapter().Parse("bad.spec.yaml", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLocalSpecFileAdapter_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(stackSpec), 0o600))

	spec, err := NewLocalSpecFileAdapter().Load(m.Path(path))
	require.NoError(t, err)
	assert.Equal(t, "StackSpec", spec.Name)

	_, err = NewLocalSpecFileAdapter().Load(m.Path(filepath.Join(dir, "missing.spec.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read spec file")
}
