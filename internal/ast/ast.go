// Package ast defines the statement and expression tree that spec method
// bodies are written in.
//
// Nodes form a closed tagged union: every statement implements Stmt and
// every expression implements Expr, and no other package can add variants.
// Rewrites never mutate a node in place; they build a new node and leave
// the input untouched, so subtrees may be shared freely.
package ast

import "fmt"

// Pos is a line/column position in a spec file. The zero Pos is unknown.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return "-"
	}

	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Node is implemented by every statement and expression.
type Node interface {
	Position() Pos
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Names reserved for framework-introduced variables.
const (
	MockControllerName = "$spekt_mockController"
	ValueRecorderName  = "$spekt_valueRecorder"
	OldValuePrefix     = "$spekt_oldValue"
)

// Statements.

// Block is a braced statement list with its own variable scope.
type Block struct {
	Stmts []Stmt
	Scope *Scope
	Pos   Pos
}

// ExprStmt evaluates an expression for its side effect.
type ExprStmt struct {
	X   Expr
	Pos Pos
}

// AssertStmt is an explicit or implicit boolean assertion as written by the author.
type AssertStmt struct {
	Cond    Expr
	Message Expr // optional
	Pos     Pos
}

// IfStmt is a conditional statement. Else may be nil.
type IfStmt struct {
	Cond Expr
	Then *Block
	Else *Block
	Pos  Pos
}

// ConditionStmt is an AssertStmt after rewriting: Cond is instrumented with
// Record nodes so every operand value is captured while it is evaluated.
type ConditionStmt struct {
	Text     string
	Cond     Expr
	Message  Expr
	Recorder *Var
	Pos      Pos
}

// InteractionStmt registers an expected mock interaction with a controller.
type InteractionStmt struct {
	Text        string
	Controller  Expr
	Cardinality Expr // nil when no cardinality was declared
	Target      Expr
	Method      string
	Args        []Expr
	AnyArgs     bool
	Response    Expr // nil when no response was declared
	Pos         Pos
}

// MockScopeStmt opens or closes an interaction scope on a mock controller.
type MockScopeStmt struct {
	Controller Expr
	Enter      bool
	Pos        Pos
}

func (s *Block) Position() Pos           { return s.Pos }
func (s *ExprStmt) Position() Pos        { return s.Pos }
func (s *AssertStmt) Position() Pos      { return s.Pos }
func (s *IfStmt) Position() Pos          { return s.Pos }
func (s *ConditionStmt) Position() Pos   { return s.Pos }
func (s *InteractionStmt) Position() Pos { return s.Pos }
func (s *MockScopeStmt) Position() Pos   { return s.Pos }

func (*Block) stmtNode()           {}
func (*ExprStmt) stmtNode()        {}
func (*AssertStmt) stmtNode()      {}
func (*IfStmt) stmtNode()          {}
func (*ConditionStmt) stmtNode()   {}
func (*InteractionStmt) stmtNode() {}
func (*MockScopeStmt) stmtNode()   {}

// Expressions.

// Const is a literal value: int64, float64, string, bool or nil.
type Const struct {
	Value any
	Pos   Pos
}

// Var is a reference to a variable. Binding is filled in by Resolve.
type Var struct {
	Name          string
	Binding       BindingKind
	ClosureShared bool
	Pos           Pos
}

// This is an explicit reference to the running spec instance.
type This struct {
	Pos Pos
}

// Super is an explicit reference to the base class implementation.
type Super struct {
	Pos Pos
}

// Wildcard is the "_" placeholder of the interaction grammar.
type Wildcard struct {
	Pos Pos
}

// Binary is a binary operation. Op "=" is assignment and ".." builds a range.
type Binary struct {
	Op  string
	X   Expr
	Y   Expr
	Pos Pos
}

// Unary is a prefix operation ("!", "-", or "*" for a spread wildcard).
type Unary struct {
	Op  string
	X   Expr
	Pos Pos
}

// Decl declares a local variable: "def name = value" or "Type name = value".
type Decl struct {
	Name  string
	Type  string
	Value Expr // optional
	Pos   Pos
}

// MethodCall invokes Name on Recv. A nil Recv is an implicit-this call.
type MethodCall struct {
	Recv Expr
	Name string
	Args []Expr
	Pos  Pos
}

// Property reads a named property of X.
type Property struct {
	X    Expr
	Name string
	Pos  Pos
}

// List is a list literal.
type List struct {
	Elems []Expr
	Pos   Pos
}

// Closure is a deferred block: it may run later than, or concurrently
// with, the code that declares it. Body.Scope is the closure's scope.
type Closure struct {
	Params []string
	Body   *Block
	Pos    Pos
}

// Record captures the value of X in slot Slot of the active value recorder.
type Record struct {
	Slot int
	X    Expr
	Pos  Pos
}

// NewValueRecorder allocates a fresh value recorder.
type NewValueRecorder struct {
	Pos Pos
}

// MockCreate creates a named mock of Type through Controller.
type MockCreate struct {
	Controller Expr
	Name       string
	Type       string
	Pos        Pos
}

// OldValue reads the snapshot that was taken of Source before the
// preceding when block ran.
type OldValue struct {
	Var    *Var
	Source Expr
	Pos    Pos
}

func (e *Const) Position() Pos            { return e.Pos }
func (e *Var) Position() Pos              { return e.Pos }
func (e *This) Position() Pos             { return e.Pos }
func (e *Super) Position() Pos            { return e.Pos }
func (e *Wildcard) Position() Pos         { return e.Pos }
func (e *Binary) Position() Pos           { return e.Pos }
func (e *Unary) Position() Pos            { return e.Pos }
func (e *Decl) Position() Pos             { return e.Pos }
func (e *MethodCall) Position() Pos       { return e.Pos }
func (e *Property) Position() Pos         { return e.Pos }
func (e *List) Position() Pos             { return e.Pos }
func (e *Closure) Position() Pos          { return e.Pos }
func (e *Record) Position() Pos           { return e.Pos }
func (e *NewValueRecorder) Position() Pos { return e.Pos }
func (e *MockCreate) Position() Pos       { return e.Pos }
func (e *OldValue) Position() Pos         { return e.Pos }

func (*Const) exprNode()            {}
func (*Var) exprNode()              {}
func (*This) exprNode()             {}
func (*Super) exprNode()            {}
func (*Wildcard) exprNode()         {}
func (*Binary) exprNode()           {}
func (*Unary) exprNode()            {}
func (*Decl) exprNode()             {}
func (*MethodCall) exprNode()       {}
func (*Property) exprNode()         {}
func (*List) exprNode()             {}
func (*Closure) exprNode()          {}
func (*Record) exprNode()           {}
func (*NewValueRecorder) exprNode() {}
func (*MockCreate) exprNode()       {}
func (*OldValue) exprNode()         {}

// IsAssignment reports whether e is a plain assignment.
func IsAssignment(e Expr) bool {
	b, ok := e.(*Binary)
	return ok && b.Op == "="
}

// IsImplicitThis reports whether a call receiver refers to the spec itself
// without naming a different object.
func IsImplicitThis(recv Expr) bool {
	if recv == nil {
		return true
	}

	_, ok := recv.(*This)

	return ok
}
