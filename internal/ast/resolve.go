package ast

// Resolve is the second resolution pass. Every Var is bound against the
// nearest enclosing scope that references it. A local or parameter that is
// reached from inside a closure which does not own it is marked closure
// shared; this is computed from the tree shape alone.
//
// Vars that no scope references (framework-introduced names) keep the
// binding they were created with.
func Resolve(blocks []*Block) []*Block {
	r := &resolver{}

	out := make([]*Block, len(blocks))
	for i, b := range blocks {
		out[i] = r.block(b)
	}

	return out
}

type resolver struct {
	scopes   []*Scope
	closures []map[string]bool
}

func (r *resolver) lookup(name string) (Binding, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if b, ok := r.scopes[i].Lookup(name); ok {
			return b, true
		}
	}

	return Binding{}, false
}

func (r *resolver) block(b *Block) *Block {
	if b == nil {
		return nil
	}

	r.scopes = append(r.scopes, b.Scope)

	stmts := make([]Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		stmts[i] = r.stmt(s)
	}

	r.scopes = r.scopes[:len(r.scopes)-1]

	return &Block{Stmts: stmts, Scope: b.Scope, Pos: b.Pos}
}

func (r *resolver) stmt(s Stmt) Stmt {
	switch s := s.(type) {
	case *Block:
		return r.block(s)
	case *ExprStmt:
		return &ExprStmt{X: r.expr(s.X), Pos: s.Pos}
	case *AssertStmt:
		return &AssertStmt{Cond: r.expr(s.Cond), Message: r.expr(s.Message), Pos: s.Pos}
	case *IfStmt:
		return &IfStmt{Cond: r.expr(s.Cond), Then: r.block(s.Then), Else: r.block(s.Else), Pos: s.Pos}
	case *ConditionStmt:
		return &ConditionStmt{
			Text:     s.Text,
			Cond:     r.expr(s.Cond),
			Message:  r.expr(s.Message),
			Recorder: s.Recorder,
			Pos:      s.Pos,
		}
	case *InteractionStmt:
		args := make([]Expr, len(s.Args))
		for i, a := range s.Args {
			args[i] = r.expr(a)
		}

		return &InteractionStmt{
			Text:        s.Text,
			Controller:  s.Controller,
			Cardinality: r.expr(s.Cardinality),
			Target:      r.expr(s.Target),
			Method:      s.Method,
			Args:        args,
			AnyArgs:     s.AnyArgs,
			Response:    r.expr(s.Response),
			Pos:         s.Pos,
		}
	}

	return s
}

func (r *resolver) expr(e Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *Var:
		b, ok := r.lookup(n.Name)
		if !ok {
			return n
		}

		shared := b.ClosureShared
		if len(r.closures) > 0 && b.Kind != BindDynamic && !r.closures[len(r.closures)-1][n.Name] {
			shared = true
		}

		return &Var{Name: n.Name, Binding: b.Kind, ClosureShared: shared, Pos: n.Pos}
	case *Decl:
		value := r.expr(n.Value)
		if len(r.closures) > 0 {
			r.closures[len(r.closures)-1][n.Name] = true
		}

		return &Decl{Name: n.Name, Type: n.Type, Value: value, Pos: n.Pos}
	case *Closure:
		owned := map[string]bool{}

		params := n.Params
		if len(params) == 0 {
			params = []string{"it"}
		}

		for _, p := range params {
			owned[p] = true
		}

		r.closures = append(r.closures, owned)
		body := r.block(n.Body)
		r.closures = r.closures[:len(r.closures)-1]

		return &Closure{Params: n.Params, Body: body, Pos: n.Pos}
	}

	return MapChildren(e, r.expr)
}
