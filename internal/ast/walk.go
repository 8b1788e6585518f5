package ast

// Children returns the direct child expressions of e in evaluation order.
// Closure bodies are statements and are not included.
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *Binary:
		return []Expr{n.X, n.Y}
	case *Unary:
		return []Expr{n.X}
	case *Decl:
		if n.Value == nil {
			return nil
		}

		return []Expr{n.Value}
	case *MethodCall:
		out := make([]Expr, 0, len(n.Args)+1)
		if n.Recv != nil {
			out = append(out, n.Recv)
		}

		return append(out, n.Args...)
	case *Property:
		return []Expr{n.X}
	case *List:
		return n.Elems
	case *Record:
		return []Expr{n.X}
	case *MockCreate:
		return []Expr{n.Controller}
	case *OldValue:
		return []Expr{n.Var}
	}

	return nil
}

// Inspect calls fn for e and then, if fn returns true, for each of its
// descendants. Closure bodies are not entered.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}

	for _, c := range Children(e) {
		Inspect(c, fn)
	}
}

// MapChildren returns e with every direct child expression replaced by
// fn(child). When fn returns every child unchanged, e itself is returned.
// Closure bodies are not children and are left alone.
func MapChildren(e Expr, fn func(Expr) Expr) Expr {
	switch n := e.(type) {
	case *Binary:
		x, y := fn(n.X), fn(n.Y)
		if x == n.X && y == n.Y {
			return n
		}

		return &Binary{Op: n.Op, X: x, Y: y, Pos: n.Pos}
	case *Unary:
		x := fn(n.X)
		if x == n.X {
			return n
		}

		return &Unary{Op: n.Op, X: x, Pos: n.Pos}
	case *Decl:
		if n.Value == nil {
			return n
		}

		v := fn(n.Value)
		if v == n.Value {
			return n
		}

		return &Decl{Name: n.Name, Type: n.Type, Value: v, Pos: n.Pos}
	case *MethodCall:
		var recv Expr
		if n.Recv != nil {
			recv = fn(n.Recv)
		}

		args, changed := mapList(n.Args, fn)
		if recv == n.Recv && !changed {
			return n
		}

		return &MethodCall{Recv: recv, Name: n.Name, Args: args, Pos: n.Pos}
	case *Property:
		x := fn(n.X)
		if x == n.X {
			return n
		}

		return &Property{X: x, Name: n.Name, Pos: n.Pos}
	case *List:
		elems, changed := mapList(n.Elems, fn)
		if !changed {
			return n
		}

		return &List{Elems: elems, Pos: n.Pos}
	case *Record:
		x := fn(n.X)
		if x == n.X {
			return n
		}

		return &Record{Slot: n.Slot, X: x, Pos: n.Pos}
	case *MockCreate:
		c := fn(n.Controller)
		if c == n.Controller {
			return n
		}

		return &MockCreate{Controller: c, Name: n.Name, Type: n.Type, Pos: n.Pos}
	case *OldValue:
		v, ok := fn(n.Var).(*Var)
		if !ok || v == n.Var {
			return n
		}

		return &OldValue{Var: v, Source: n.Source, Pos: n.Pos}
	}

	return e
}

func mapList(in []Expr, fn func(Expr) Expr) ([]Expr, bool) {
	if len(in) == 0 {
		return in, false
	}

	out := make([]Expr, len(in))
	changed := false

	for i, e := range in {
		out[i] = fn(e)
		if out[i] != e {
			changed = true
		}
	}

	if !changed {
		return in, false
	}

	return out, true
}
