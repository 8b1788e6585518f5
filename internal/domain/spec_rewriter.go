package domain

import (
	"fmt"
	"log/slog"

	"spekt.dev/pkg/spekt/internal/ast"
	"spekt.dev/pkg/spekt/internal/domain/rewriters"
	m "spekt.dev/pkg/spekt/internal/model"
)

// SpecRewriter rewrites every method of a spec into its executable form.
type SpecRewriter interface {
	// Rewrite returns a rewritten copy of spec and the static errors found.
	// The input spec is not modified.
	Rewrite(spec *m.Spec) (*m.Spec, []m.Diagnostic)
}

type specRewriter struct{}

// NewSpecRewriter creates a new SpecRewriter.
func NewSpecRewriter() SpecRewriter {
	return &specRewriter{}
}

func (sr *specRewriter) Rewrite(spec *m.Spec) (*m.Spec, []m.Diagnostic) {
	out := *spec
	out.Fixtures = make([]*m.Method, len(spec.Fixtures))
	out.Features = make([]*m.Feature, len(spec.Features))

	var diags []m.Diagnostic

	for i, fx := range spec.Fixtures {
		rewritten, d := rewriteMethod(fx)
		out.Fixtures[i] = rewritten
		diags = append(diags, d...)
	}

	for i, f := range spec.Features {
		feature := *f
		rewritten, d := rewriteMethod(f.Method)
		feature.Method = rewritten
		out.Features[i] = &feature
		diags = append(diags, d...)
	}

	for i := range diags {
		diags[i].File = spec.File
	}

	slog.Debug("spec rewritten", "spec", spec.Name, "methods", len(out.Fixtures)+len(out.Features), "diagnostics", len(diags))

	return &out, diags
}

// methodResources implements RewriteResources for one method.
type methodResources struct {
	method    *m.Method
	blocks    []*m.Block
	current   int
	oldValues []oldValue
	next      int
}

// oldValue is a snapshot declaration captured in block from and evaluated
// at the start of block target.
type oldValue struct {
	decl         ast.Stmt
	from, target int
}

func (r *methodResources) CurrentMethod() *m.Method {
	return r.method
}

func (r *methodResources) CurrentBlock() *m.Block {
	if r.current < 0 || r.current >= len(r.blocks) {
		return nil
	}

	return r.blocks[r.current]
}

func (r *methodResources) MockControllerRef() ast.Expr {
	return &ast.Var{Name: ast.MockControllerName, Binding: ast.BindDynamic}
}

func (r *methodResources) CaptureOldValue(src ast.Expr) *ast.Var {
	name := fmt.Sprintf("%s%d", ast.OldValuePrefix, r.next)
	r.next++

	r.oldValues = append(r.oldValues, oldValue{
		decl: &ast.ExprStmt{
			X:   &ast.Decl{Name: name, Value: src, Pos: src.Position()},
			Pos: src.Position(),
		},
		from:   r.current,
		target: r.snapshotTarget(),
	})

	return &ast.Var{Name: name, Binding: ast.BindLocal, Pos: src.Position()}
}

// snapshotTarget is the nearest when block before the current block, or
// the block right before it when there is no when block.
func (r *methodResources) snapshotTarget() int {
	for i := r.current - 1; i >= 0; i-- {
		if r.blocks[i].Kind == m.BlockWhen {
			return i
		}
	}

	if r.current > 0 {
		return r.current - 1
	}

	return r.current
}

func (r *methodResources) DefineValueRecorder(stmts []ast.Stmt) []ast.Stmt {
	decl := &ast.ExprStmt{X: &ast.Decl{Name: ast.ValueRecorderName, Value: &ast.NewValueRecorder{}}}

	return append([]ast.Stmt{decl}, stmts...)
}

func rewriteMethod(method *m.Method) (*m.Method, []m.Diagnostic) {
	blocks := make([]*m.Block, len(method.Blocks))
	for i, b := range method.Blocks {
		blocks[i] = &m.Block{Kind: b.Kind, Body: implicitConditions(b)}
	}

	res := &methodResources{method: method, blocks: blocks}
	engine := NewStatementRewriter(res)

	var (
		diags            []m.Diagnostic
		conditionFound   bool
		interactionFound bool
	)

	for i, b := range blocks {
		res.current = i

		result := engine.Rewrite(b.Body)
		blocks[i] = &m.Block{Kind: b.Kind, Body: result.Block}
		conditionFound = conditionFound || result.ConditionFound
		interactionFound = interactionFound || result.InteractionFound
		diags = append(diags, result.Diagnostics...)
	}

	// Names are resolved against the block they were written in, before
	// snapshots and interactions move to other blocks.
	scopes := make([]*ast.Scope, len(blocks))
	bodies := make([]*ast.Block, len(blocks))

	for i, b := range blocks {
		scopes[i] = b.Body.Scope
		bodies[i] = b.Body
	}

	for i, body := range ast.Resolve(bodies) {
		blocks[i] = &m.Block{Kind: blocks[i].Kind, Body: body}
	}

	snapshots := map[int][]ast.Stmt{}

	for _, ov := range res.oldValues {
		resolved := ast.Resolve([]*ast.Block{{Stmts: []ast.Stmt{ov.decl}, Scope: scopes[ov.from]}})[0]
		snapshots[ov.target] = append(snapshots[ov.target], resolved.Stmts...)
	}

	for target, decls := range snapshots {
		body := blocks[target].Body
		blocks[target] = &m.Block{Kind: blocks[target].Kind, Body: prepend(body, decls...)}
	}

	blocks = moveThenInteractions(blocks)

	if conditionFound && len(blocks) > 0 {
		first := blocks[0]
		blocks[0] = &m.Block{Kind: first.Kind, Body: &ast.Block{
			Stmts: res.DefineValueRecorder(first.Body.Stmts),
			Scope: first.Body.Scope,
			Pos:   first.Body.Pos,
		}}
	}

	out := *method
	out.Blocks = blocks
	out.UsesValueRecorder = conditionFound
	out.UsesMockController = interactionFound

	return &out, diags
}

// implicitConditions turns the bare expression statements of a then or
// expect block into assertions.
func implicitConditions(b *m.Block) *ast.Block {
	if b.Body == nil {
		return &ast.Block{Scope: ast.NewScope()}
	}

	if !b.Kind.HasImplicitConditions() {
		return b.Body
	}

	stmts := make([]ast.Stmt, len(b.Body.Stmts))
	for i, s := range b.Body.Stmts {
		if rewriters.IsImplicitCondition(s) {
			stmts[i] = rewriters.ImplicitCondition(s)
			continue
		}

		stmts[i] = s
	}

	return &ast.Block{Stmts: stmts, Scope: b.Body.Scope, Pos: b.Body.Pos}
}

// moveThenInteractions registers the interactions of each then block before
// its when block runs, inside a mock scope that is verified when the then
// block starts. A then block without a when block registers its
// interactions itself, right before the scope is verified.
func moveThenInteractions(blocks []*m.Block) []*m.Block {
	for i, b := range blocks {
		if b.Kind != m.BlockThen {
			continue
		}

		var interactions, rest []ast.Stmt

		var ctrl ast.Expr

		for _, s := range b.Body.Stmts {
			if in, ok := s.(*ast.InteractionStmt); ok {
				interactions = append(interactions, s)
				ctrl = in.Controller

				continue
			}

			rest = append(rest, s)
		}

		if len(interactions) == 0 {
			continue
		}

		head := append([]ast.Stmt{&ast.MockScopeStmt{Controller: ctrl, Enter: true}}, interactions...)
		leave := []ast.Stmt{&ast.MockScopeStmt{Controller: ctrl, Enter: false}}

		if when := precedingWhen(blocks, i); when >= 0 {
			blocks[when] = &m.Block{Kind: blocks[when].Kind, Body: prepend(blocks[when].Body, head...)}
		} else {
			leave = append(head, leave...)
		}

		rest = append(leave, rest...)
		blocks[i] = &m.Block{Kind: b.Kind, Body: &ast.Block{Stmts: rest, Scope: b.Body.Scope, Pos: b.Body.Pos}}
	}

	return blocks
}

// precedingWhen returns the index of the nearest when block before block i,
// or -1.
func precedingWhen(blocks []*m.Block, i int) int {
	for j := i - 1; j >= 0; j-- {
		if blocks[j].Kind == m.BlockWhen {
			return j
		}
	}

	return -1
}

func prepend(b *ast.Block, stmts ...ast.Stmt) *ast.Block {
	out := make([]ast.Stmt, 0, len(stmts)+len(b.Stmts))
	out = append(out, stmts...)
	out = append(out, b.Stmts...)

	return &ast.Block{Stmts: out, Scope: b.Scope, Pos: b.Pos}
}
