package ast

import "sort"

// BindingKind says how a variable reference resolves.
type BindingKind int

const (
	// BindDynamic resolves against the spec instance at run time.
	BindDynamic BindingKind = iota
	// BindLocal resolves to a local variable declared in an enclosing block.
	BindLocal
	// BindParam resolves to a method or closure parameter.
	BindParam
)

func (k BindingKind) String() string {
	switch k {
	case BindLocal:
		return "local"
	case BindParam:
		return "param"
	default:
		return "dynamic"
	}
}

// Binding is the resolution of one name inside a Scope.
type Binding struct {
	Kind          BindingKind
	ClosureShared bool
}

// Scope is the symbol table of a block or closure body: every name
// referenced directly inside it and what that name binds to.
//
// Scopes are copy-on-write. With returns a new Scope and never changes the
// receiver, so a rewritten tree can hold a different Scope than its input.
type Scope struct {
	refs map[string]Binding
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{refs: map[string]Binding{}}
}

// Lookup returns the binding recorded for name. It is safe on a nil Scope.
func (s *Scope) Lookup(name string) (Binding, bool) {
	if s == nil {
		return Binding{}, false
	}

	b, ok := s.refs[name]

	return b, ok
}

// With returns a copy of s where name is bound to b.
func (s *Scope) With(name string, b Binding) *Scope {
	next := NewScope()

	if s != nil {
		for k, v := range s.refs {
			next.refs[k] = v
		}
	}

	next.refs[name] = b

	return next
}

// Names returns the referenced names in sorted order.
func (s *Scope) Names() []string {
	if s == nil {
		return nil
	}

	names := make([]string, 0, len(s.refs))
	for name := range s.refs {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of referenced names.
func (s *Scope) Len() int {
	if s == nil {
		return 0
	}

	return len(s.refs)
}

func (s *Scope) put(name string, b Binding) {
	if _, ok := s.refs[name]; ok {
		return
	}

	s.refs[name] = b
}

// BuildScopes is the first resolution pass. It walks the blocks of one
// method in order, tracking declarations, and returns copies of the blocks
// whose scopes record every referenced name. Names that are neither
// declared nor listed in params are recorded as dynamic.
func BuildScopes(blocks []*Block, params []string) []*Block {
	b := &scopeBuilder{}
	b.push(params, BindParam)
	// Labelled blocks of one method share its locals.
	b.push(nil, BindLocal)

	out := make([]*Block, len(blocks))
	for i, block := range blocks {
		out[i] = b.scoped(block, false)
	}

	return out
}

type scopeBuilder struct {
	decls  []map[string]BindingKind
	owners []*Scope
}

func (b *scopeBuilder) push(names []string, kind BindingKind) {
	frame := map[string]BindingKind{}
	for _, n := range names {
		frame[n] = kind
	}

	b.decls = append(b.decls, frame)
}

func (b *scopeBuilder) pop() {
	b.decls = b.decls[:len(b.decls)-1]
}

func (b *scopeBuilder) declare(name string) {
	b.decls[len(b.decls)-1][name] = BindLocal
}

func (b *scopeBuilder) reference(name string) {
	if len(b.owners) == 0 {
		return
	}

	binding := Binding{Kind: BindDynamic}

	for i := len(b.decls) - 1; i >= 0; i-- {
		if kind, ok := b.decls[i][name]; ok {
			binding.Kind = kind
			break
		}
	}

	b.owners[len(b.owners)-1].put(name, binding)
}

func (b *scopeBuilder) block(block *Block) *Block {
	return b.scoped(block, true)
}

func (b *scopeBuilder) scoped(block *Block, ownLocals bool) *Block {
	if block == nil {
		return nil
	}

	scope := NewScope()
	b.owners = append(b.owners, scope)

	if ownLocals {
		b.push(nil, BindLocal)
	}

	stmts := make([]Stmt, len(block.Stmts))
	for i, s := range block.Stmts {
		stmts[i] = b.stmt(s)
	}

	if ownLocals {
		b.pop()
	}

	b.owners = b.owners[:len(b.owners)-1]

	return &Block{Stmts: stmts, Scope: scope, Pos: block.Pos}
}

func (b *scopeBuilder) stmt(s Stmt) Stmt {
	switch s := s.(type) {
	case *Block:
		return b.block(s)
	case *ExprStmt:
		return &ExprStmt{X: b.expr(s.X), Pos: s.Pos}
	case *AssertStmt:
		return &AssertStmt{Cond: b.expr(s.Cond), Message: b.expr(s.Message), Pos: s.Pos}
	case *IfStmt:
		return &IfStmt{Cond: b.expr(s.Cond), Then: b.block(s.Then), Else: b.block(s.Else), Pos: s.Pos}
	}

	return s
}

func (b *scopeBuilder) expr(e Expr) Expr {
	switch n := e.(type) {
	case nil:
		return nil
	case *Var:
		b.reference(n.Name)
		return n
	case *Decl:
		value := b.expr(n.Value)
		b.declare(n.Name)

		return &Decl{Name: n.Name, Type: n.Type, Value: value, Pos: n.Pos}
	case *Closure:
		params := n.Params
		if len(params) == 0 {
			params = []string{"it"}
		}

		b.push(params, BindParam)
		body := b.block(n.Body)
		b.pop()

		return &Closure{Params: n.Params, Body: body, Pos: n.Pos}
	}

	return MapChildren(e, b.expr)
}
