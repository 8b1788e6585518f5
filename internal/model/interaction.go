package model

import (
	"fmt"
	"strings"

	"spekt.dev/pkg/spekt/internal/ast"
)

// Unbounded is the Max of a cardinality without an upper limit.
const Unbounded = -1

// Cardinality bounds how often an interaction is expected to happen.
type Cardinality struct {
	Min int
	Max int
}

// AnyTimes is the cardinality of an interaction declared without one.
var AnyTimes = Cardinality{Min: 0, Max: Unbounded}

// Exactly returns the cardinality n..n.
func Exactly(n int) Cardinality {
	return Cardinality{Min: n, Max: n}
}

// Allows reports whether count invocations stay within the upper bound.
func (c Cardinality) Allows(count int) bool {
	return c.Max == Unbounded || count <= c.Max
}

// Satisfied reports whether count invocations meet the lower bound.
func (c Cardinality) Satisfied(count int) bool {
	return count >= c.Min
}

func (c Cardinality) String() string {
	switch {
	case c.Min == c.Max:
		return fmt.Sprint(c.Min)
	case c.Max == Unbounded && c.Min == 0:
		return "_"
	case c.Max == Unbounded:
		return fmt.Sprintf("(%d.._)", c.Min)
	case c.Min == 0:
		return fmt.Sprintf("(_..%d)", c.Max)
	default:
		return fmt.Sprintf("(%d..%d)", c.Min, c.Max)
	}
}

// ArgConstraint matches one argument of an invocation. A nil Value with
// Any set matches everything.
type ArgConstraint struct {
	Any   bool
	Value any
}

// Interaction is an expected mock interaction as registered with a
// controller at run time.
type Interaction struct {
	Text        string
	Pos         ast.Pos
	Cardinality Cardinality
	// Target is the mock name; empty matches any mock.
	Target   string
	Method   string
	Args     []ArgConstraint
	AnyArgs  bool
	Response any
	Count    int
}

// Invocation is one call made on a mock.
type Invocation struct {
	Mock   string
	Method string
	Args   []any
}

func (i Invocation) String() string {
	parts := make([]string, len(i.Args))
	for n, a := range i.Args {
		parts[n] = FormatValue(a)
	}

	return fmt.Sprintf("%s.%s(%s)", i.Mock, i.Method, strings.Join(parts, ", "))
}

// TooFewInvocationsError reports interactions that did not reach their
// minimum cardinality when their scope was left.
type TooFewInvocationsError struct {
	Unsatisfied []*Interaction
}

func (e *TooFewInvocationsError) Error() string {
	var sb strings.Builder

	sb.WriteString("Too few invocations for:\n")

	for _, in := range e.Unsatisfied {
		fmt.Fprintf(&sb, "\n%s   (%d %s)", in.Text, in.Count, invocationWord(in.Count))
	}

	return sb.String()
}

// TooManyInvocationsError reports a call that exceeded the maximum
// cardinality of the interaction it matched.
type TooManyInvocationsError struct {
	Interaction *Interaction
	Invocation  Invocation
}

func (e *TooManyInvocationsError) Error() string {
	return fmt.Sprintf("Too many invocations for:\n\n%s   (%d %s)\n\nMatching invocations:\n\n%s",
		e.Interaction.Text, e.Interaction.Count, invocationWord(e.Interaction.Count), e.Invocation)
}

func invocationWord(n int) string {
	if n == 1 {
		return "invocation"
	}

	return "invocations"
}
