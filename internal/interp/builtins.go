package interp

import (
	"fmt"
	"sort"
	"strings"
)

func property(obj any, name string) (any, error) {
	switch o := obj.(type) {
	case *Instance:
		v, ok := o.fields[name]
		if !ok {
			return nil, fmt.Errorf("No such property: %s for class: %s", name, o.spec.Name)
		}

		return v, nil
	case map[string]any:
		return o[name], nil
	case []any:
		switch name {
		case "size":
			return int64(len(o)), nil
		case "empty":
			return len(o) == 0, nil
		}

		// Spread: the property of every element.
		out := make([]any, len(o))
		for i, el := range o {
			v, err := property(el, name)
			if err != nil {
				return nil, err
			}

			out[i] = v
		}

		return out, nil
	case string:
		switch name {
		case "length", "size":
			return int64(len(o)), nil
		case "empty":
			return o == "", nil
		}
	case *Mock:
		switch name {
		case "name":
			return o.Name, nil
		case "type":
			return o.Type, nil
		}
	case nil:
		return nil, fmt.Errorf("Cannot get property '%s' on null object", name)
	}

	return nil, fmt.Errorf("No such property: %s for class: %s", name, typeName(obj))
}

// global implements the functions callable without a receiver.
func global(name string, args []any) (any, error) {
	switch name {
	case "max", "min":
		if len(args) == 1 {
			if list, ok := args[0].([]any); ok {
				args = list
			}
		}

		return extreme(name, args)
	case "abs":
		if len(args) == 1 {
			switch v := args[0].(type) {
			case int64:
				return abs(v), nil
			case float64:
				if v < 0 {
					return -v, nil
				}

				return v, nil
			}
		}
	case "list":
		return append([]any{}, args...), nil
	case "str":
		if len(args) == 1 {
			return display(args[0]), nil
		}
	}

	return nil, noMethod(name, "Spec", args)
}

func extreme(name string, values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}

	best := values[0]

	for _, v := range values[1:] {
		c, err := compare(v, best)
		if err != nil {
			return nil, err
		}

		if (name == "max" && c > 0) || (name == "min" && c < 0) {
			best = v
		}
	}

	return best, nil
}

func noMethod(name, class string, args []any) error {
	types := make([]string, len(args))
	for i, a := range args {
		types[i] = typeName(a)
	}

	return fmt.Errorf("No signature of method: %s.%s() is applicable for argument types: (%s)",
		class, name, strings.Join(types, ", "))
}

func (mc *machine) builtin(recv any, name string, args []any) (any, error) {
	switch r := recv.(type) {
	case []any:
		return mc.listMethod(r, name, args)
	case string:
		return stringMethod(r, name, args)
	case map[string]any:
		return mapMethod(r, name, args)
	case *Closure:
		if name == "call" {
			return mc.callClosure(r, args)
		}
	case nil:
		return nil, fmt.Errorf("Cannot invoke method %s() on null object", name)
	}

	switch name {
	case "toString":
		return display(recv), nil
	case "equals":
		if len(args) == 1 {
			return Equal(recv, args[0]), nil
		}
	case "abs":
		return global("abs", []any{recv})
	}

	return nil, noMethod(name, typeName(recv), args)
}

func (mc *machine) listMethod(list []any, name string, args []any) (any, error) {
	switch name {
	case "size":
		return int64(len(list)), nil
	case "isEmpty":
		return len(list) == 0, nil
	case "contains":
		if len(args) == 1 {
			return contains(list, args[0])
		}
	case "get", "getAt":
		if len(args) == 1 {
			i, ok := args[0].(int64)
			if !ok {
				break
			}

			if i < 0 {
				i += int64(len(list))
			}

			if i < 0 || i >= int64(len(list)) {
				return nil, fmt.Errorf("index %d out of range for list of size %d", args[0], len(list))
			}

			return list[i], nil
		}
	case "first", "last":
		if len(list) == 0 {
			return nil, fmt.Errorf("Cannot access %s() element from an empty List", name)
		}

		if name == "first" {
			return list[0], nil
		}

		return list[len(list)-1], nil
	case "plus":
		if len(args) == 1 {
			return arithmetic("+", list, args[0])
		}
	case "sum":
		var total any = int64(0)

		for _, v := range list {
			next, err := arithmetic("+", total, v)
			if err != nil {
				return nil, err
			}

			total = next
		}

		return total, nil
	case "max", "min":
		return extreme(name, list)
	case "join":
		sep := ""
		if len(args) == 1 {
			sep = display(args[0])
		}

		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = display(v)
		}

		return strings.Join(parts, sep), nil
	case "sort":
		out := append([]any{}, list...)

		var sortErr error

		sort.SliceStable(out, func(i, j int) bool {
			c, err := compare(out[i], out[j])
			if err != nil {
				sortErr = err
			}

			return c < 0
		})

		return out, sortErr
	case "reverse":
		out := make([]any, len(list))
		for i, v := range list {
			out[len(list)-1-i] = v
		}

		return out, nil
	case "each", "every", "any", "collect", "findAll", "find", "count":
		if len(args) != 1 {
			break
		}

		c, ok := args[0].(*Closure)
		if !ok {
			break
		}

		return mc.iterate(list, name, c)
	}

	return nil, noMethod(name, "List", args)
}

func (mc *machine) iterate(list []any, name string, c *Closure) (any, error) {
	var out []any

	count := int64(0)

	for _, el := range list {
		v, err := mc.callClosure(c, []any{el})
		if err != nil {
			return nil, err
		}

		switch name {
		case "every":
			if !Truthy(v) {
				return false, nil
			}
		case "any":
			if Truthy(v) {
				return true, nil
			}
		case "collect":
			out = append(out, v)
		case "findAll":
			if Truthy(v) {
				out = append(out, el)
			}
		case "find":
			if Truthy(v) {
				return el, nil
			}
		case "count":
			if Truthy(v) {
				count++
			}
		}
	}

	switch name {
	case "every":
		return true, nil
	case "any":
		return false, nil
	case "collect", "findAll":
		if out == nil {
			out = []any{}
		}

		return out, nil
	case "count":
		return count, nil
	case "each":
		return list, nil
	}

	return nil, nil
}

func stringMethod(s, name string, args []any) (any, error) {
	arg := func() (string, bool) {
		if len(args) != 1 {
			return "", false
		}

		a, ok := args[0].(string)

		return a, ok
	}

	switch name {
	case "size", "length":
		return int64(len(s)), nil
	case "isEmpty":
		return s == "", nil
	case "toUpperCase":
		return strings.ToUpper(s), nil
	case "toLowerCase":
		return strings.ToLower(s), nil
	case "trim":
		return strings.TrimSpace(s), nil
	case "reverse":
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}

		return string(r), nil
	case "contains":
		if a, ok := arg(); ok {
			return strings.Contains(s, a), nil
		}
	case "startsWith":
		if a, ok := arg(); ok {
			return strings.HasPrefix(s, a), nil
		}
	case "endsWith":
		if a, ok := arg(); ok {
			return strings.HasSuffix(s, a), nil
		}
	case "split":
		sep := " "
		if a, ok := arg(); ok {
			sep = a
		}

		parts := strings.Split(s, sep)
		out := make([]any, len(parts))

		for i, p := range parts {
			out[i] = p
		}

		return out, nil
	}

	return nil, noMethod(name, "String", args)
}

func mapMethod(mp map[string]any, name string, args []any) (any, error) {
	switch name {
	case "size":
		return int64(len(mp)), nil
	case "isEmpty":
		return len(mp) == 0, nil
	case "containsKey":
		if len(args) == 1 {
			return contains(mp, args[0])
		}
	case "get":
		if len(args) == 1 {
			return mp[display(args[0])], nil
		}
	case "keySet":
		keys := make([]string, 0, len(mp))
		for k := range mp {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}

		return out, nil
	}

	return nil, noMethod(name, "Map", args)
}

// Property reads the named property of v the way a spec expression would.
func Property(v any, name string) (any, error) {
	return property(v, name)
}

// Display renders v as it appears in failure messages and iteration names.
func Display(v any) string {
	return display(v)
}
