package model

import (
	"fmt"
	"sort"
	"strings"

	"spekt.dev/pkg/spekt/internal/ast"
)

// ExpressionInfo is one node of an evaluated condition: the source text of
// a sub-expression, the operation it performs and the value it produced.
type ExpressionInfo struct {
	Text      string
	Operation string
	Value     any
	// Column is where the value is drawn under the condition text.
	Column int
	// Relevant is false for literals; their values are not worth showing.
	Relevant bool
	// Evaluated is false when evaluation short-circuited before this node.
	Evaluated bool
	Children  []*ExpressionInfo
}

// IsEqualityComparison reports whether the node compares two values with ==.
func (e *ExpressionInfo) IsEqualityComparison() bool {
	return e != nil && e.Operation == "==" && len(e.Children) == 2
}

// Walk calls fn for e and all of its descendants, pre-order.
func (e *ExpressionInfo) Walk(fn func(*ExpressionInfo)) {
	if e == nil {
		return
	}

	fn(e)

	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Condition is a captured diagnostic for one evaluated assertion.
type Condition struct {
	Text       string
	Pos        ast.Pos
	Expression *ExpressionInfo
	Message    string
}

// Render draws the condition text with the value of every relevant operand
// underneath it, each pointing at the column of its node.
func (c *Condition) Render() string {
	var sb strings.Builder

	sb.WriteString(c.Text)

	if c.Expression != nil {
		type mark struct {
			col   int
			value string
		}

		var marks []mark

		c.Expression.Walk(func(e *ExpressionInfo) {
			if !e.Relevant || !e.Evaluated {
				return
			}

			marks = append(marks, mark{col: e.Column, value: FormatValue(e.Value)})
		})

		for _, m := range marks {
			sb.WriteByte('\n')
			sb.WriteString(strings.Repeat(" ", m.col))
			sb.WriteString("| ")
			sb.WriteString(m.value)
		}
	}

	if c.Message != "" {
		sb.WriteString("\n\n")
		sb.WriteString(c.Message)
	}

	return sb.String()
}

// FormatValue renders a run-time value the way it is shown in condition
// output: strings are quoted, nil is "null".
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", v)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = FormatValue(e)
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + FormatValue(v[k])
		}

		return "[" + strings.Join(parts, ", ") + "]"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
