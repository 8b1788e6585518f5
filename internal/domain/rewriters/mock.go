package rewriters

import (
	"fmt"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

const mockTypeNotInferred = "Mock object type cannot be inferred automatically. " +
	"Please specify a type explicitly (e.g. 'Mock(Person)')."

// ExpandMockAssignment rewrites "x = Mock()" or "Type x = Mock()" into a
// named mock creation against controller. The mock takes the name of the
// assigned variable and, without an explicit type argument, the declared
// type of the variable.
func ExpandMockAssignment(e ast.Expr, controller ast.Expr) (ast.Expr, *m.Diagnostic) {
	switch n := e.(type) {
	case *ast.Binary:
		call, _ := BuiltinMemberCall(n.Y, MockPrimitive, 0, 1)

		create, diag := mockCreate(call, controller, assignedName(n.X), "")
		if diag != nil {
			return e, diag
		}

		return &ast.Binary{Op: n.Op, X: n.X, Y: create, Pos: n.Pos}, nil
	case *ast.Decl:
		call, _ := BuiltinMemberCall(n.Value, MockPrimitive, 0, 1)

		create, diag := mockCreate(call, controller, n.Name, n.Type)
		if diag != nil {
			return e, diag
		}

		return &ast.Decl{Name: n.Name, Type: n.Type, Value: create, Pos: n.Pos}, nil
	}

	return e, nil
}

// ExpandMockCall rewrites a standalone "Mock(Type)" into an unnamed mock
// creation against controller.
func ExpandMockCall(call *ast.MethodCall, controller ast.Expr) (ast.Expr, *m.Diagnostic) {
	create, diag := mockCreate(call, controller, "", "")
	if diag != nil {
		return call, diag
	}

	return create, nil
}

func mockCreate(call *ast.MethodCall, controller ast.Expr, name, declared string) (*ast.MockCreate, *m.Diagnostic) {
	typ := declared
	if typ == "def" {
		typ = ""
	}

	if len(call.Args) == 1 {
		t, ok := typeName(call.Args[0])
		if !ok {
			return nil, &m.Diagnostic{
				Pos:     call.Args[0].Position(),
				Message: fmt.Sprintf("Mock() expects a type argument, but found '%s'", ast.Format(call.Args[0])),
			}
		}

		typ = t
	}

	if typ == "" {
		return nil, &m.Diagnostic{Pos: call.Pos, Message: mockTypeNotInferred}
	}

	return &ast.MockCreate{Controller: controller, Name: name, Type: typ, Pos: call.Pos}, nil
}

func typeName(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.Var:
		return n.Name, true
	case *ast.Const:
		s, ok := n.Value.(string)
		return s, ok && s != ""
	}

	return "", false
}

func assignedName(lhs ast.Expr) string {
	switch n := lhs.(type) {
	case *ast.Var:
		return n.Name
	case *ast.Property:
		return n.Name
	}

	return ""
}
