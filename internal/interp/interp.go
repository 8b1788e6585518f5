package interp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

// Instance is one running instance of a spec: its field values and the
// mock controller of the current run.
type Instance struct {
	spec   *m.Spec
	fields map[string]any
	ctrl   *MockController
}

// NewInstance creates an instance of spec. Fields start from the values
// declared in the spec, overridden by shared.
func NewInstance(spec *m.Spec, shared map[string]any) *Instance {
	fields := map[string]any{}
	for k, v := range spec.Fields {
		fields[k] = Normalize(v)
	}

	for k, v := range shared {
		fields[k] = v
	}

	ctrl := NewMockController()
	fields[ast.MockControllerName] = ctrl

	return &Instance{spec: spec, fields: fields, ctrl: ctrl}
}

// Controller returns the mock controller of the instance.
func (in *Instance) Controller() *MockController {
	return in.ctrl
}

// Field returns the value of a field.
func (in *Instance) Field(name string) (any, bool) {
	v, ok := in.fields[name]
	return v, ok
}

// Fields returns a copy of the user-visible fields.
func (in *Instance) Fields() map[string]any {
	out := make(map[string]any, len(in.fields))
	for k, v := range in.fields {
		if strings.HasPrefix(k, "$spekt_") {
			continue
		}

		out[k] = v
	}

	return out
}

func (in *Instance) String() string {
	return in.spec.Name
}

// Invoke runs method with its parameters bound to args. Blocks run in
// order and share one set of locals. Cleanup blocks run even when an
// earlier block failed; when both fail the failures are bundled.
func (in *Instance) Invoke(ctx context.Context, method *m.Method, args map[string]any) error {
	mc := &machine{ctx: ctx, inst: in}
	mc.push(method.Name, method.Pos)

	params := newEnv(nil)
	for k, v := range args {
		params.define(k, v)
	}

	locals := newEnv(params)

	var failures []error

	for _, b := range method.Blocks {
		if b.Body == nil {
			continue
		}

		if len(failures) > 0 && b.Kind != m.BlockCleanup {
			continue
		}

		if err := mc.stmts(b.Body.Stmts, locals); err != nil {
			failures = append(failures, err)
		}
	}

	switch len(failures) {
	case 0:
		return nil
	case 1:
		return failures[0]
	}

	return &m.MultipleFailureError{Failures: failures}
}

// Evaluate computes e with vars in scope as parameters. It is used for
// data providers and derived data variables.
func (in *Instance) Evaluate(ctx context.Context, e ast.Expr, vars map[string]any) (any, error) {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}

	sort.Strings(names)

	block := &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{X: e, Pos: e.Position()}}}
	resolved := ast.Resolve(ast.BuildScopes([]*ast.Block{block}, names))[0]

	env := newEnv(nil)
	for k, v := range vars {
		env.define(k, v)
	}

	mc := &machine{ctx: ctx, inst: in}
	mc.push("data", e.Position())

	v, err := mc.eval(resolved.Stmts[0].(*ast.ExprStmt).X, env)

	return v, mc.locate(err)
}

type env struct {
	vars   map[string]any
	parent *env
}

func newEnv(parent *env) *env {
	return &env{vars: map[string]any{}, parent: parent}
}

func (e *env) lookup(name string) (any, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

func (e *env) define(name string, v any) {
	e.vars[name] = v
}

func (e *env) set(name string, v any) bool {
	for cur := e; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return true
		}
	}

	return false
}

// Closure is a closure value: its body and the environment it was
// declared in.
type Closure struct {
	Params []string
	body   *ast.Block
	env    *env
	pos    ast.Pos
}

func (c *Closure) String() string {
	return fmt.Sprintf("Closure(%s)", strings.Join(c.Params, ", "))
}

// machine evaluates statements for one method or data provider run.
type machine struct {
	ctx      context.Context
	inst     *Instance
	stack    []m.StackFrame
	recorder *ValueRecorder
}

func (mc *machine) push(name string, pos ast.Pos) {
	mc.stack = append(mc.stack, m.StackFrame{Method: name, Pos: pos})
}

func (mc *machine) pop() {
	mc.stack = mc.stack[:len(mc.stack)-1]
}

func (mc *machine) at(pos ast.Pos) {
	if pos.Line != 0 {
		mc.stack[len(mc.stack)-1].Pos = pos
	}
}

// snapshot returns the stack innermost frame first.
func (mc *machine) snapshot() []m.StackFrame {
	out := make([]m.StackFrame, len(mc.stack))
	for i, f := range mc.stack {
		out[len(mc.stack)-1-i] = f
	}

	return out
}

// locate attaches the current stack to err unless it already carries one.
func (mc *machine) locate(err error) error {
	if err == nil {
		return nil
	}

	var (
		exec  *m.ExecutionError
		cond  *m.ConditionNotSatisfiedError
		multi *m.MultipleFailureError
	)

	if errors.As(err, &exec) || errors.As(err, &cond) || errors.As(err, &multi) {
		return err
	}

	return &m.ExecutionError{Err: err, Stack: mc.snapshot()}
}

func (mc *machine) stmts(list []ast.Stmt, e *env) error {
	for _, s := range list {
		if err := mc.ctx.Err(); err != nil {
			return mc.locate(err)
		}

		if err := mc.stmt(s, e); err != nil {
			return err
		}
	}

	return nil
}

func (mc *machine) stmt(s ast.Stmt, e *env) error {
	mc.at(s.Position())

	switch s := s.(type) {
	case *ast.Block:
		return mc.stmts(s.Stmts, newEnv(e))
	case *ast.ExprStmt:
		_, err := mc.eval(s.X, e)
		return mc.locate(err)
	case *ast.AssertStmt:
		return mc.assert(s, e)
	case *ast.IfStmt:
		v, err := mc.eval(s.Cond, e)
		if err != nil {
			return mc.locate(err)
		}

		if Truthy(v) && s.Then != nil {
			return mc.stmt(s.Then, e)
		}

		if s.Else != nil {
			return mc.stmt(s.Else, e)
		}

		return nil
	case *ast.ConditionStmt:
		return mc.condition(s, e)
	case *ast.InteractionStmt:
		return mc.locate(mc.interaction(s, e))
	case *ast.MockScopeStmt:
		ctrl, err := mc.controller(s.Controller, e)
		if err != nil {
			return mc.locate(err)
		}

		if s.Enter {
			ctrl.EnterScope()
			return nil
		}

		return mc.locate(ctrl.LeaveScope())
	}

	return mc.locate(fmt.Errorf("unsupported statement %T", s))
}

func (mc *machine) assert(s *ast.AssertStmt, e *env) error {
	v, err := mc.eval(s.Cond, e)
	if err != nil {
		return mc.locate(err)
	}

	if Truthy(v) {
		return nil
	}

	return &m.ConditionNotSatisfiedError{
		Condition: &m.Condition{Text: ast.Format(s.Cond), Pos: s.Pos, Message: mc.message(s.Message, e)},
		Stack:     mc.snapshot(),
	}
}

func (mc *machine) condition(s *ast.ConditionStmt, e *env) error {
	rec, _ := mc.lookupRecorder(s.Recorder, e)
	rec.Reset()

	prev := mc.recorder
	mc.recorder = rec
	v, err := mc.eval(s.Cond, e)
	mc.recorder = prev

	if err != nil {
		return mc.locate(err)
	}

	if Truthy(v) {
		return nil
	}

	return &m.ConditionNotSatisfiedError{
		Condition: &m.Condition{
			Text:       s.Text,
			Pos:        s.Pos,
			Expression: rec.ExpressionInfo(s.Cond),
			Message:    mc.message(s.Message, e),
		},
		Stack: mc.snapshot(),
	}
}

func (mc *machine) lookupRecorder(v *ast.Var, e *env) (*ValueRecorder, bool) {
	if v != nil {
		if found, ok := e.lookup(v.Name); ok {
			if rec, ok := found.(*ValueRecorder); ok {
				return rec, true
			}
		}
	}

	return NewValueRecorder(), false
}

func (mc *machine) message(msg ast.Expr, e *env) string {
	if msg == nil {
		return ""
	}

	v, err := mc.eval(msg, e)
	if err != nil {
		return fmt.Sprintf("<message failed: %v>", err)
	}

	return display(v)
}

func (mc *machine) controller(x ast.Expr, e *env) (*MockController, error) {
	v, err := mc.eval(x, e)
	if err != nil {
		return nil, err
	}

	ctrl, ok := v.(*MockController)
	if !ok {
		return nil, fmt.Errorf("expected a mock controller, found %s", typeName(v))
	}

	return ctrl, nil
}

func (mc *machine) interaction(s *ast.InteractionStmt, e *env) error {
	ctrl, err := mc.controller(s.Controller, e)
	if err != nil {
		return err
	}

	card, err := mc.cardinality(s.Cardinality, e)
	if err != nil {
		return err
	}

	in := &m.Interaction{Text: s.Text, Pos: s.Pos, Cardinality: card, Method: s.Method, AnyArgs: s.AnyArgs}

	if _, ok := s.Target.(*ast.Wildcard); !ok {
		target, err := mc.eval(s.Target, e)
		if err != nil {
			return err
		}

		mock, ok := target.(*Mock)
		if !ok {
			return fmt.Errorf("interaction target '%s' is not a mock but %s", ast.Format(s.Target), typeName(target))
		}

		in.Target = mock.Name
	}

	for _, a := range s.Args {
		if _, ok := a.(*ast.Wildcard); ok {
			in.Args = append(in.Args, m.ArgConstraint{Any: true})
			continue
		}

		v, err := mc.eval(a, e)
		if err != nil {
			return err
		}

		in.Args = append(in.Args, m.ArgConstraint{Value: v})
	}

	if s.Response != nil {
		in.Response, err = mc.eval(s.Response, e)
		if err != nil {
			return err
		}
	}

	ctrl.AddInteraction(in)

	return nil
}

func (mc *machine) cardinality(x ast.Expr, e *env) (m.Cardinality, error) {
	switch n := x.(type) {
	case nil, *ast.Wildcard:
		return m.AnyTimes, nil
	case *ast.Binary:
		if n.Op == ".." {
			lo, err := mc.bound(n.X, 0, e)
			if err != nil {
				return m.Cardinality{}, err
			}

			hi, err := mc.bound(n.Y, m.Unbounded, e)
			if err != nil {
				return m.Cardinality{}, err
			}

			return m.Cardinality{Min: lo, Max: hi}, nil
		}
	}

	n, err := mc.bound(x, 0, e)
	if err != nil {
		return m.Cardinality{}, err
	}

	return m.Exactly(n), nil
}

func (mc *machine) bound(x ast.Expr, wildcard int, e *env) (int, error) {
	if _, ok := x.(*ast.Wildcard); ok {
		return wildcard, nil
	}

	v, err := mc.eval(x, e)
	if err != nil {
		return 0, err
	}

	n, ok := v.(int64)
	if !ok || n < 0 {
		return 0, fmt.Errorf("cardinality must be a non-negative integer, found %s", m.FormatValue(v))
	}

	return int(n), nil
}

func (mc *machine) eval(x ast.Expr, e *env) (any, error) {
	switch n := x.(type) {
	case nil:
		return nil, nil
	case *ast.Const:
		return Normalize(n.Value), nil
	case *ast.Var:
		return mc.variable(n, e)
	case *ast.This, *ast.Super:
		return mc.inst, nil
	case *ast.Wildcard:
		return nil, fmt.Errorf("'_' may only be used in an interaction")
	case *ast.Binary:
		return mc.binary(n, e)
	case *ast.Unary:
		return mc.unary(n, e)
	case *ast.Decl:
		v, err := mc.eval(n.Value, e)
		if err != nil {
			return nil, err
		}

		e.define(n.Name, v)

		return v, nil
	case *ast.MethodCall:
		return mc.call(n, e)
	case *ast.Property:
		obj, err := mc.eval(n.X, e)
		if err != nil {
			return nil, err
		}

		return property(obj, n.Name)
	case *ast.List:
		out := make([]any, len(n.Elems))
		for i, el := range n.Elems {
			v, err := mc.eval(el, e)
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	case *ast.Closure:
		return &Closure{Params: n.Params, body: n.Body, env: e, pos: n.Pos}, nil
	case *ast.Record:
		v, err := mc.eval(n.X, e)
		if err != nil {
			return nil, err
		}

		if mc.recorder != nil {
			mc.recorder.Record(n.Slot, v)
		}

		return v, nil
	case *ast.NewValueRecorder:
		return NewValueRecorder(), nil
	case *ast.MockCreate:
		ctrl, err := mc.controller(n.Controller, e)
		if err != nil {
			return nil, err
		}

		return ctrl.CreateMock(n.Name, n.Type), nil
	case *ast.OldValue:
		return mc.eval(n.Var, e)
	}

	return nil, fmt.Errorf("unsupported expression %T", x)
}

func (mc *machine) variable(v *ast.Var, e *env) (any, error) {
	if v.Binding != ast.BindDynamic {
		if val, ok := e.lookup(v.Name); ok {
			return val, nil
		}

		return nil, fmt.Errorf("variable '%s' is used before it is defined", v.Name)
	}

	if val, ok := mc.inst.fields[v.Name]; ok {
		return val, nil
	}

	return nil, fmt.Errorf("No such property: %s for class: %s", v.Name, mc.inst.spec.Name)
}

func (mc *machine) assign(target ast.Expr, v any, e *env) error {
	switch t := target.(type) {
	case *ast.Var:
		if t.Binding == ast.BindDynamic {
			mc.inst.fields[t.Name] = v
			return nil
		}

		if !e.set(t.Name, v) {
			e.define(t.Name, v)
		}

		return nil
	case *ast.Property:
		obj, err := mc.eval(t.X, e)
		if err != nil {
			return err
		}

		switch o := obj.(type) {
		case *Instance:
			o.fields[t.Name] = v
			return nil
		case map[string]any:
			next := make(map[string]any, len(o)+1)
			for k, val := range o {
				next[k] = val
			}

			next[t.Name] = v

			return mc.assign(t.X, next, e)
		}

		return fmt.Errorf("cannot set property '%s' on %s", t.Name, typeName(obj))
	}

	return fmt.Errorf("cannot assign to '%s'", ast.Format(target))
}

func (mc *machine) binary(n *ast.Binary, e *env) (any, error) {
	switch n.Op {
	case "=":
		v, err := mc.eval(n.Y, e)
		if err != nil {
			return nil, err
		}

		return v, mc.assign(n.X, v, e)
	case "&&", "||":
		x, err := mc.eval(n.X, e)
		if err != nil {
			return nil, err
		}

		if Truthy(x) == (n.Op == "||") {
			return Truthy(x), nil
		}

		y, err := mc.eval(n.Y, e)
		if err != nil {
			return nil, err
		}

		return Truthy(y), nil
	case ">>":
		return nil, fmt.Errorf("'>>' may only be used in an interaction")
	}

	x, err := mc.eval(n.X, e)
	if err != nil {
		return nil, err
	}

	y, err := mc.eval(n.Y, e)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "==":
		return Equal(x, y), nil
	case "!=":
		return !Equal(x, y), nil
	case "<", "<=", ">", ">=":
		c, err := compare(x, y)
		if err != nil {
			return nil, err
		}

		switch n.Op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		}

		return c >= 0, nil
	case "in":
		return contains(y, x)
	case "..":
		return rangeOf(x, y)
	}

	return arithmetic(n.Op, x, y)
}

func (mc *machine) unary(n *ast.Unary, e *env) (any, error) {
	x, err := mc.eval(n.X, e)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "!":
		return !Truthy(x), nil
	case "-":
		switch v := x.(type) {
		case int64:
			return -v, nil
		case float64:
			return -v, nil
		}

		return nil, fmt.Errorf("cannot negate %s", typeName(x))
	}

	return nil, fmt.Errorf("operator '%s' may only be used in an interaction", n.Op)
}

func (mc *machine) call(n *ast.MethodCall, e *env) (any, error) {
	if _, ok := n.Recv.(*ast.Super); ok {
		// There is no base spec; explicit super calls do nothing.
		return nil, nil
	}

	args := make([]any, len(n.Args))

	for i, a := range n.Args {
		v, err := mc.eval(a, e)
		if err != nil {
			return nil, err
		}

		args[i] = v
	}

	if ast.IsImplicitThis(n.Recv) {
		return mc.callThis(n.Name, args, e)
	}

	recv, err := mc.eval(n.Recv, e)
	if err != nil {
		return nil, err
	}

	switch r := recv.(type) {
	case *Mock:
		resp, err := r.ctrl.Invoke(r, n.Name, args)
		if err != nil {
			return nil, err
		}

		if c, ok := resp.(*Closure); ok {
			return mc.callClosure(c, args)
		}

		return resp, nil
	case *Instance:
		return mc.callThis(n.Name, args, e)
	}

	return mc.builtin(recv, n.Name, args)
}

func (mc *machine) callThis(name string, args []any, e *env) (any, error) {
	if v, ok := e.lookup(name); ok {
		if c, ok := v.(*Closure); ok {
			return mc.callClosure(c, args)
		}
	}

	if v, ok := mc.inst.fields[name]; ok {
		if c, ok := v.(*Closure); ok {
			return mc.callClosure(c, args)
		}
	}

	return global(name, args)
}

func (mc *machine) callClosure(c *Closure, args []any) (any, error) {
	e := newEnv(c.env)

	if len(c.Params) == 0 {
		var it any
		if len(args) > 0 {
			it = args[0]
		}

		e.define("it", it)
	}

	for i, p := range c.Params {
		var v any
		if i < len(args) {
			v = args[i]
		}

		e.define(p, v)
	}

	prev := mc.recorder
	mc.recorder = nil
	mc.push("closure", c.pos)

	defer func() {
		mc.pop()
		mc.recorder = prev
	}()

	var last any

	if c.body == nil {
		return nil, nil
	}

	for _, s := range c.body.Stmts {
		if err := mc.ctx.Err(); err != nil {
			return nil, mc.locate(err)
		}

		if es, ok := s.(*ast.ExprStmt); ok {
			mc.at(es.Pos)

			v, err := mc.eval(es.X, e)
			if err != nil {
				return nil, mc.locate(err)
			}

			last = v

			continue
		}

		if err := mc.stmt(s, e); err != nil {
			return nil, err
		}

		switch s.(type) {
		case *ast.ConditionStmt, *ast.AssertStmt:
			last = true
		default:
			last = nil
		}
	}

	return last, nil
}
