package interp

import (
	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

// ValueRecorder captures the value of every instrumented operand while a
// condition is evaluated.
type ValueRecorder struct {
	values map[int]any
}

// NewValueRecorder returns an empty recorder.
func NewValueRecorder() *ValueRecorder {
	return &ValueRecorder{values: map[int]any{}}
}

// Reset forgets all recorded values.
func (r *ValueRecorder) Reset() {
	r.values = map[int]any{}
}

// Record stores v in slot and returns it.
func (r *ValueRecorder) Record(slot int, v any) any {
	r.values[slot] = v
	return v
}

// Value returns the value recorded in slot, if any.
func (r *ValueRecorder) Value(slot int) (any, bool) {
	v, ok := r.values[slot]
	return v, ok
}

func (r *ValueRecorder) String() string {
	return "ValueRecorder"
}

// ExpressionInfo folds the recorded values into the tree of an instrumented
// condition. It returns nil when cond is not instrumented.
func (r *ValueRecorder) ExpressionInfo(cond ast.Expr) *m.ExpressionInfo {
	rec, ok := cond.(*ast.Record)
	if !ok {
		return nil
	}

	_, columns := ast.FormatColumns(rec)

	return r.info(rec, columns)
}

func (r *ValueRecorder) info(rec *ast.Record, columns map[int]int) *m.ExpressionInfo {
	value, evaluated := r.Value(rec.Slot)

	_, literal := rec.X.(*ast.Const)

	info := &m.ExpressionInfo{
		Text:      ast.Format(rec.X),
		Operation: operation(rec.X),
		Value:     value,
		Column:    columns[rec.Slot],
		Relevant:  !literal,
		Evaluated: evaluated,
	}

	for _, child := range nestedRecords(rec.X) {
		info.Children = append(info.Children, r.info(child, columns))
	}

	return info
}

// nestedRecords returns the outermost Record nodes below e.
func nestedRecords(e ast.Expr) []*ast.Record {
	var out []*ast.Record

	for _, c := range ast.Children(e) {
		if rec, ok := c.(*ast.Record); ok {
			out = append(out, rec)
			continue
		}

		out = append(out, nestedRecords(c)...)
	}

	return out
}

func operation(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Binary:
		return n.Op
	case *ast.Unary:
		return n.Op
	case *ast.MethodCall:
		return n.Name + "()"
	case *ast.Property:
		return "." + n.Name
	case *ast.List:
		return "[]"
	case *ast.OldValue:
		return "old()"
	}

	return ""
}
