package ast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var precedence = map[string]int{
	"=":  1,
	"||": 2,
	"&&": 3,
	"==": 4, "!=": 4,
	"<": 5, "<=": 5, ">": 5, ">=": 5, "in": 5,
	"..": 6,
	">>": 7,
	"+":  8, "-": 8,
	"*": 9, "/": 9, "%": 9,
}

const unaryPrecedence = 10

// Format renders a node as source text. Framework-introduced nodes render
// as the source they stand for where one exists (Record and OldValue) and
// as explicit runtime calls otherwise.
func Format(n Node) string {
	var sb strings.Builder

	p := &printer{sb: &sb}

	switch n := n.(type) {
	case Stmt:
		p.stmt(n)
	case Expr:
		p.expr(n, 0)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// FormatStmts renders a statement list, one statement per line.
func FormatStmts(stmts []Stmt) string {
	var sb strings.Builder

	p := &printer{sb: &sb}
	for _, s := range stmts {
		p.stmt(s)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// FormatColumns renders e like Format and also returns the column each
// record slot's value is drawn under. A binary expression is anchored at its
// operator and a method call or property at its name.
func FormatColumns(e Expr) (string, map[int]int) {
	var sb strings.Builder

	p := &printer{sb: &sb, columns: map[int]int{}, anchors: map[Expr]int{}}
	p.expr(e, 0)

	return sb.String(), p.columns
}

type printer struct {
	sb        *strings.Builder
	indent    int
	showSlots bool

	// Only set by FormatColumns. anchors holds byte offsets into sb.
	columns map[int]int
	anchors map[Expr]int
}

func (p *printer) anchor(e Expr) {
	if p.anchors != nil {
		p.anchors[e] = p.sb.Len()
	}
}

// column converts a byte offset into sb to a rune column on its line.
func (p *printer) column(offset int) int {
	text := p.sb.String()[:offset]
	if nl := strings.LastIndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}

	return utf8.RuneCountInString(text)
}

func (p *printer) line(format string, args ...any) {
	p.sb.WriteString(strings.Repeat("    ", p.indent))
	fmt.Fprintf(p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *Block:
		p.line("{")
		p.indent++

		for _, c := range s.Stmts {
			p.stmt(c)
		}

		p.indent--
		p.line("}")
	case *ExprStmt:
		p.line("%s", exprString(s.X, p.indent))
	case *AssertStmt:
		if s.Message != nil {
			p.line("assert %s : %s", exprString(s.Cond, p.indent), exprString(s.Message, p.indent))
			return
		}

		p.line("assert %s", exprString(s.Cond, p.indent))
	case *IfStmt:
		p.line("if (%s) {", exprString(s.Cond, p.indent))
		p.body(s.Then)

		if s.Else != nil {
			p.line("} else {")
			p.body(s.Else)
		}

		p.line("}")
	case *ConditionStmt:
		msg := "null"
		if s.Message != nil {
			msg = exprString(s.Message, p.indent)
		}

		p.line("SpektRuntime.verifyCondition(%s, %s, %s, %s)",
			s.Recorder.Name, strconv.Quote(s.Text), instrumented(s.Cond, p.indent), msg)
	case *InteractionStmt:
		p.line("%s.addInteraction(%s)", exprString(s.Controller, p.indent), strconv.Quote(s.Text))
	case *MockScopeStmt:
		if s.Enter {
			p.line("%s.enterScope()", exprString(s.Controller, p.indent))
			return
		}

		p.line("%s.leaveScope()", exprString(s.Controller, p.indent))
	}
}

func (p *printer) body(b *Block) {
	if b == nil {
		return
	}

	p.indent++

	for _, c := range b.Stmts {
		p.stmt(c)
	}

	p.indent--
}

func exprString(e Expr, indent int) string {
	var sb strings.Builder

	p := &printer{sb: &sb, indent: indent}
	p.expr(e, 0)

	return sb.String()
}

// instrumented renders an instrumented condition showing its record slots.
func instrumented(e Expr, indent int) string {
	var sb strings.Builder

	p := &printer{sb: &sb, indent: indent}
	p.showSlots = true
	p.expr(e, 0)

	return sb.String()
}

func (p *printer) expr(e Expr, outer int) {
	switch e := e.(type) {
	case nil:
		p.sb.WriteString("null")
	case *Const:
		p.sb.WriteString(constString(e.Value))
	case *Var:
		p.sb.WriteString(e.Name)
	case *This:
		p.sb.WriteString("this")
	case *Super:
		p.sb.WriteString("super")
	case *Wildcard:
		p.sb.WriteString("_")
	case *Binary:
		prec := precedence[e.Op]
		if prec < outer {
			p.sb.WriteByte('(')
		}

		p.expr(e.X, prec)

		if e.Op == ".." {
			p.anchor(e)
			p.sb.WriteString("..")
		} else {
			p.sb.WriteByte(' ')
			p.anchor(e)
			fmt.Fprintf(p.sb, "%s ", e.Op)
		}

		p.expr(e.Y, prec+1)

		if prec < outer {
			p.sb.WriteByte(')')
		}
	case *Unary:
		p.sb.WriteString(e.Op)
		p.expr(e.X, unaryPrecedence)
	case *Decl:
		if e.Type != "" {
			fmt.Fprintf(p.sb, "%s %s", e.Type, e.Name)
		} else {
			fmt.Fprintf(p.sb, "def %s", e.Name)
		}

		if e.Value != nil {
			p.sb.WriteString(" = ")
			p.expr(e.Value, 0)
		}
	case *MethodCall:
		if !IsImplicitThis(e.Recv) {
			p.expr(e.Recv, unaryPrecedence+1)
			p.sb.WriteByte('.')
		}

		p.anchor(e)
		p.sb.WriteString(e.Name)
		p.sb.WriteByte('(')
		p.list(e.Args)
		p.sb.WriteByte(')')
	case *Property:
		p.expr(e.X, unaryPrecedence+1)
		p.sb.WriteByte('.')
		p.anchor(e)
		p.sb.WriteString(e.Name)
	case *List:
		p.sb.WriteByte('[')
		p.list(e.Elems)
		p.sb.WriteByte(']')
	case *Closure:
		p.sb.WriteString("{ ")

		if len(e.Params) > 0 {
			p.sb.WriteString(strings.Join(e.Params, ", "))
			p.sb.WriteString(" ->")
		}

		if e.Body != nil && len(e.Body.Stmts) > 0 {
			p.sb.WriteByte('\n')
			p.body(e.Body)
			p.sb.WriteString(strings.Repeat("    ", p.indent))
		}

		p.sb.WriteString("}")
	case *Record:
		if p.showSlots {
			fmt.Fprintf(p.sb, "$%d:", e.Slot)
		}

		start := p.sb.Len()
		p.expr(e.X, outer)

		if p.columns != nil {
			offset, ok := p.anchors[e.X]
			if !ok {
				offset = start
			}

			p.columns[e.Slot] = p.column(offset)
		}
	case *NewValueRecorder:
		p.sb.WriteString("new ValueRecorder()")
	case *MockCreate:
		p.expr(e.Controller, 0)
		fmt.Fprintf(p.sb, ".createMock(%s, %s)", strconv.Quote(e.Name), e.Type)
	case *OldValue:
		p.sb.WriteString("old(")
		p.expr(e.Source, 0)
		p.sb.WriteByte(')')
	default:
		fmt.Fprintf(p.sb, "<%T>", e)
	}
}

func (p *printer) list(items []Expr) {
	for i, a := range items {
		if i > 0 {
			p.sb.WriteString(", ")
		}

		p.expr(a, 0)
	}
}

func constString(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}
