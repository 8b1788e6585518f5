package interp

import (
	"fmt"
	"strings"
	"sync"

	m "spekt.dev/pkg/spekt/internal/model"
)

// Mock is a mock object created through a MockController.
type Mock struct {
	Name string
	Type string
	ctrl *MockController
}

func (mk *Mock) String() string {
	return fmt.Sprintf("Mock for type '%s' named '%s'", mk.Type, mk.Name)
}

// MockController owns the mocks and expected interactions of one method
// run. Interactions are registered into scopes; leaving a scope verifies
// that every interaction in it was invoked often enough.
//
// A controller may be called from closures running on other goroutines.
type MockController struct {
	mu     sync.Mutex
	scopes [][]*m.Interaction
	mocks  int
}

// NewMockController returns a controller with an open root scope.
func NewMockController() *MockController {
	return &MockController{scopes: [][]*m.Interaction{nil}}
}

func (c *MockController) String() string {
	return "MockController"
}

// CreateMock creates a mock. Unnamed mocks are named after their type.
func (c *MockController) CreateMock(name, typ string) *Mock {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mocks++
	if name == "" {
		name = fmt.Sprintf("%s#%d", strings.ToLower(typ), c.mocks)
	}

	return &Mock{Name: name, Type: typ, ctrl: c}
}

// AddInteraction registers in with the innermost scope.
func (c *MockController) AddInteraction(in *m.Interaction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	top := len(c.scopes) - 1
	c.scopes[top] = append(c.scopes[top], in)
}

// EnterScope opens a nested interaction scope.
func (c *MockController) EnterScope() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scopes = append(c.scopes, nil)
}

// LeaveScope closes the innermost scope and verifies its interactions. The
// root scope is verified but stays open.
func (c *MockController) LeaveScope() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	top := len(c.scopes) - 1
	scope := c.scopes[top]

	if top > 0 {
		c.scopes = c.scopes[:top]
	} else {
		c.scopes[0] = nil
	}

	return verify(scope)
}

func verify(scope []*m.Interaction) error {
	var unsatisfied []*m.Interaction

	for _, in := range scope {
		if !in.Cardinality.Satisfied(in.Count) {
			unsatisfied = append(unsatisfied, in)
		}
	}

	if len(unsatisfied) > 0 {
		return &m.TooFewInvocationsError{Unsatisfied: unsatisfied}
	}

	return nil
}

// Invoke dispatches a call on mock. The innermost matching interaction
// that still accepts invocations answers; when every matching interaction
// is exhausted the call fails. Unmatched calls return nil.
func (c *MockController) Invoke(mock *Mock, method string, args []any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var exhausted *m.Interaction

	for i := len(c.scopes) - 1; i >= 0; i-- {
		for _, in := range c.scopes[i] {
			if !matches(in, mock, method, args) {
				continue
			}

			if !in.Cardinality.Allows(in.Count + 1) {
				if exhausted == nil {
					exhausted = in
				}

				continue
			}

			in.Count++

			return in.Response, nil
		}
	}

	if exhausted != nil {
		exhausted.Count++

		return nil, &m.TooManyInvocationsError{
			Interaction: exhausted,
			Invocation:  m.Invocation{Mock: mock.Name, Method: method, Args: args},
		}
	}

	return nil, nil
}

func matches(in *m.Interaction, mock *Mock, method string, args []any) bool {
	if in.Target != "" && in.Target != mock.Name {
		return false
	}

	if in.Method != "_" && in.Method != method {
		return false
	}

	if in.AnyArgs {
		return true
	}

	if len(in.Args) != len(args) {
		return false
	}

	for i, a := range in.Args {
		if !a.Any && !Equal(a.Value, args[i]) {
			return false
		}
	}

	return true
}
