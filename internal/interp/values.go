// Package interp executes rewritten spec methods.
//
// Values are int64, float64, string, bool, nil, []any, map[string]any,
// *Mock, *Closure and *ValueRecorder. Lists and maps are never changed in
// place; operations that "modify" them return new values.
package interp

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	m "spekt.dev/pkg/spekt/internal/model"
)

// Truthy applies the usual scripting truth rules: nil, false, zero, empty
// strings and empty collections are false.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}

	return true
}

// Normalize converts values decoded from YAML or produced by Go code into
// the interpreter's value set.
func Normalize(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return float64(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Normalize(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = Normalize(e)
		}

		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = Normalize(e)
		}

		return out
	}

	return v
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}

	return 0, false
}

// Equal compares two values. Numbers compare by value regardless of their
// representation; lists and maps compare element-wise.
func Equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}

		return false
	}

	switch a := a.(type) {
	case []any:
		b, ok := b.([]any)
		if !ok || len(a) != len(b) {
			return false
		}

		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}

		return true
	case map[string]any:
		b, ok := b.(map[string]any)
		if !ok || len(a) != len(b) {
			return false
		}

		for k, va := range a {
			vb, ok := b[k]
			if !ok || !Equal(va, vb) {
				return false
			}
		}

		return true
	case *Mock, *Closure:
		return a == b
	}

	return reflect.DeepEqual(a, b)
}

func compare(a, b any) (int, error) {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}

			return 0, nil
		}
	}

	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	}

	return 0, fmt.Errorf("cannot compare %s with %s", typeName(a), typeName(b))
}

func arithmetic(op string, a, b any) (any, error) {
	if op == "+" {
		switch x := a.(type) {
		case string:
			return x + display(b), nil
		case []any:
			if y, ok := b.([]any); ok {
				return append(append([]any{}, x...), y...), nil
			}

			return append(append([]any{}, x...), b), nil
		}
	}

	if op == "*" {
		if s, ok := a.(string); ok {
			if n, ok := b.(int64); ok && n >= 0 {
				return strings.Repeat(s, int(n)), nil
			}
		}
	}

	xi, xInt := a.(int64)
	yi, yInt := b.(int64)

	if xInt && yInt {
		switch op {
		case "+":
			return xi + yi, nil
		case "-":
			return xi - yi, nil
		case "*":
			return xi * yi, nil
		case "/":
			if yi == 0 {
				return nil, fmt.Errorf("division by zero")
			}

			if xi%yi == 0 {
				return xi / yi, nil
			}

			return float64(xi) / float64(yi), nil
		case "%":
			if yi == 0 {
				return nil, fmt.Errorf("division by zero")
			}

			return xi % yi, nil
		}
	}

	x, ok1 := number(a)
	y, ok2 := number(b)

	if !ok1 || !ok2 {
		return nil, fmt.Errorf("cannot apply '%s' to %s and %s", op, typeName(a), typeName(b))
	}

	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}

		return x / y, nil
	case "%":
		return math.Mod(x, y), nil
	}

	return nil, fmt.Errorf("unknown operator '%s'", op)
}

func contains(collection, v any) (bool, error) {
	switch c := collection.(type) {
	case []any:
		for _, e := range c {
			if Equal(e, v) {
				return true, nil
			}
		}

		return false, nil
	case map[string]any:
		k, ok := v.(string)
		if !ok {
			return false, nil
		}

		_, found := c[k]

		return found, nil
	case string:
		s, ok := v.(string)
		if !ok {
			return false, fmt.Errorf("cannot search string for %s", typeName(v))
		}

		return strings.Contains(c, s), nil
	}

	return false, fmt.Errorf("%s is not a collection", typeName(collection))
}

func rangeOf(from, to any) ([]any, error) {
	x, ok1 := from.(int64)
	y, ok2 := to.(int64)

	if !ok1 || !ok2 {
		return nil, fmt.Errorf("range bounds must be integers, got %s..%s", typeName(from), typeName(to))
	}

	step := int64(1)
	if y < x {
		step = -1
	}

	out := make([]any, 0, abs(y-x)+1)
	for i := x; ; i += step {
		out = append(out, i)
		if i == y {
			break
		}
	}

	return out, nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}

	return n
}

// display renders a value for string concatenation: strings unquoted.
func display(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return m.FormatValue(v)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case int64:
		return "Integer"
	case float64:
		return "Double"
	case string:
		return "String"
	case bool:
		return "Boolean"
	case []any:
		return "List"
	case map[string]any:
		return "Map"
	case *Mock:
		return "Mock"
	case *Closure:
		return "Closure"
	}

	return fmt.Sprintf("%T", v)
}
