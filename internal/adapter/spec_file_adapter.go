package adapter

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"spekt.dev/pkg/spekt/internal/ast"
	m "spekt.dev/pkg/spekt/internal/model"
)

// SpecFileAdapter reads spec files into the model. The tree it returns has
// been through the first resolution pass: every block carries its scope.
type SpecFileAdapter interface {
	Load(path m.Path) (*m.Spec, error)
	Parse(path m.Path, content []byte) (*m.Spec, error)
}

// ParseError is a malformed spec file.
type ParseError struct {
	File    m.Path
	Pos     ast.Pos
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%s: %s", e.File, e.Pos, e.Message)
}

// LocalSpecFileAdapter parses YAML spec files from disk.
type LocalSpecFileAdapter struct{}

// NewLocalSpecFileAdapter constructs a LocalSpecFileAdapter.
func NewLocalSpecFileAdapter() *LocalSpecFileAdapter {
	return &LocalSpecFileAdapter{}
}

// Load reads and parses the spec file at path.
func (a *LocalSpecFileAdapter) Load(path m.Path) (*m.Spec, error) {
	content, err := os.ReadFile(string(path))
	if err != nil {
		return nil, fmt.Errorf("read spec file: %w", err)
	}

	return a.Parse(path, content)
}

// Parse builds a spec from YAML content.
func (a *LocalSpecFileAdapter) Parse(path m.Path, content []byte) (*m.Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if len(doc.Content) == 0 {
		return nil, &ParseError{File: path, Message: "empty spec file"}
	}

	p := &specParser{file: path}

	return p.spec(doc.Content[0])
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)

var binaryOps = map[string]bool{
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true, "%": true,
	"&&": true, "||": true, "..": true, ">>": true, "=": true, "in": true,
}

var unaryOps = map[string]bool{"!": true, "-": true, "*": true}

type specParser struct {
	file m.Path
}

func (p *specParser) errorf(n *yaml.Node, format string, args ...any) error {
	return &ParseError{File: p.file, Pos: pos(n), Message: fmt.Sprintf(format, args...)}
}

func pos(n *yaml.Node) ast.Pos {
	return ast.Pos{Line: n.Line, Column: n.Column}
}

// fields returns the key/value pairs of a mapping node in document order.
func (p *specParser) fields(n *yaml.Node) ([][2]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, p.errorf(n, "expected a mapping")
	}

	out := make([][2]*yaml.Node, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
	}

	return out, nil
}

func (p *specParser) lookup(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}

	return nil
}

func (p *specParser) spec(root *yaml.Node) (*m.Spec, error) {
	kvs, err := p.fields(root)
	if err != nil {
		return nil, err
	}

	spec := &m.Spec{File: p.file, Pos: pos(root)}

	for _, kv := range kvs {
		key, value := kv[0], kv[1]

		switch key.Value {
		case "spec":
			spec.Name = value.Value
		case "skip":
			spec.Skipped = value.Value == "true"
		case "fields":
			var fields map[string]any
			if err := value.Decode(&fields); err != nil {
				return nil, p.errorf(value, "fields: %v", err)
			}

			spec.Fields = fields
		case "fixtures":
			fixtures, err := p.fixtures(value)
			if err != nil {
				return nil, err
			}

			spec.Fixtures = fixtures
		case "features":
			if value.Kind != yaml.SequenceNode {
				return nil, p.errorf(value, "features must be a list")
			}

			for _, fn := range value.Content {
				feature, err := p.feature(fn)
				if err != nil {
					return nil, err
				}

				spec.Features = append(spec.Features, feature)
			}
		default:
			return nil, p.errorf(key, "unknown spec key %q", key.Value)
		}
	}

	if spec.Name == "" {
		return nil, p.errorf(root, "spec name is required")
	}

	return spec, nil
}

func (p *specParser) fixtures(n *yaml.Node) ([]*m.Method, error) {
	kvs, err := p.fields(n)
	if err != nil {
		return nil, err
	}

	var out []*m.Method

	for _, kv := range kvs {
		kind, err := m.ParseMethodKind(kv[0].Value)
		if err != nil || !kind.IsFixture() {
			return nil, p.errorf(kv[0], "unknown fixture %q", kv[0].Value)
		}

		stmts, err := p.stmts(kv[1])
		if err != nil {
			return nil, err
		}

		body := ast.BuildScopes([]*ast.Block{{Stmts: stmts, Pos: pos(kv[1])}}, nil)[0]

		out = append(out, &m.Method{
			Name:   kv[0].Value,
			Kind:   kind,
			Blocks: []*m.Block{{Kind: m.BlockMethod, Body: body}},
			Pos:    pos(kv[0]),
		})
	}

	return out, nil
}

func (p *specParser) feature(n *yaml.Node) (*m.Feature, error) {
	kvs, err := p.fields(n)
	if err != nil {
		return nil, err
	}

	feature := &m.Feature{}
	method := &m.Method{Kind: m.KindFeature, Pos: pos(n)}

	for _, kv := range kvs {
		key, value := kv[0], kv[1]

		switch key.Value {
		case "name":
			feature.Name = value.Value
		case "skip":
			feature.Skipped = value.Value == "true"
		case "unroll":
			switch value.Value {
			case "true":
				feature.Unroll = true
			case "false", "":
			default:
				feature.Unroll = true
				feature.UnrollPattern = value.Value
			}
		case "params":
			if err := value.Decode(&method.Params); err != nil {
				return nil, p.errorf(value, "params: %v", err)
			}

			method.DeclaredParams = true
		case "blocks":
			blocks, err := p.blocks(value)
			if err != nil {
				return nil, err
			}

			method.Blocks = blocks
		case "where":
			providers, err := p.where(value)
			if err != nil {
				return nil, err
			}

			feature.DataProviders = providers
		case "derived":
			derived, err := p.derived(value)
			if err != nil {
				return nil, err
			}

			feature.Derived = derived
		default:
			return nil, p.errorf(key, "unknown feature key %q", key.Value)
		}
	}

	if feature.Name == "" {
		return nil, p.errorf(n, "feature name is required")
	}

	method.Name = feature.Name
	feature.Method = method

	if !method.DeclaredParams {
		method.Params = feature.DataVariables()
	}

	var known []string
	if method.DeclaredParams {
		known = method.Params
	}

	bodies := make([]*ast.Block, len(method.Blocks))
	for i, b := range method.Blocks {
		bodies[i] = b.Body
	}

	for i, body := range ast.BuildScopes(bodies, known) {
		method.Blocks[i].Body = body
	}

	return feature, nil
}

// blocks reads the labelled blocks of a feature. An "and" block continues
// the block before it.
func (p *specParser) blocks(n *yaml.Node) ([]*m.Block, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, p.errorf(n, "blocks must be a list")
	}

	var out []*m.Block

	for _, item := range n.Content {
		kvs, err := p.fields(item)
		if err != nil {
			return nil, err
		}

		if len(kvs) != 1 {
			return nil, p.errorf(item, "a block has exactly one label")
		}

		label, body := kvs[0][0], kvs[0][1]

		stmts, err := p.stmts(body)
		if err != nil {
			return nil, err
		}

		if label.Value == "and" && len(out) > 0 {
			last := out[len(out)-1]
			last.Body.Stmts = append(last.Body.Stmts, stmts...)

			continue
		}

		kind, err := m.ParseBlockKind(label.Value)
		if err != nil {
			return nil, p.errorf(label, "%v", err)
		}

		out = append(out, &m.Block{Kind: kind, Body: &ast.Block{Stmts: stmts, Pos: pos(label)}})
	}

	return out, nil
}

// where reads data providers. A mapping binds each variable to a list or to
// an expression producing one; a sequence is a data table whose first row
// names the variables.
func (p *specParser) where(n *yaml.Node) ([]m.DataProvider, error) {
	if n.Kind == yaml.SequenceNode {
		return p.table(n)
	}

	kvs, err := p.fields(n)
	if err != nil {
		return nil, err
	}

	out := make([]m.DataProvider, 0, len(kvs))

	for _, kv := range kvs {
		source, err := p.expr(kv[1])
		if err != nil {
			return nil, err
		}

		out = append(out, m.DataProvider{Var: kv[0].Value, Source: source})
	}

	return out, nil
}

func (p *specParser) table(n *yaml.Node) ([]m.DataProvider, error) {
	if len(n.Content) == 0 {
		return nil, nil
	}

	header := n.Content[0]
	if header.Kind != yaml.SequenceNode {
		return nil, p.errorf(header, "the first row of a data table names its columns")
	}

	columns := make([]*ast.List, len(header.Content))
	out := make([]m.DataProvider, len(header.Content))

	for i, h := range header.Content {
		columns[i] = &ast.List{Pos: pos(h)}
		out[i] = m.DataProvider{Var: h.Value, Source: columns[i]}
	}

	for _, row := range n.Content[1:] {
		if row.Kind != yaml.SequenceNode || len(row.Content) != len(columns) {
			return nil, p.errorf(row, "data table row has %d cells, expected %d", len(row.Content), len(columns))
		}

		for i, cell := range row.Content {
			x, err := p.expr(cell)
			if err != nil {
				return nil, err
			}

			columns[i].Elems = append(columns[i].Elems, x)
		}
	}

	return out, nil
}

func (p *specParser) derived(n *yaml.Node) ([]m.DerivedVar, error) {
	kvs, err := p.fields(n)
	if err != nil {
		return nil, err
	}

	out := make([]m.DerivedVar, 0, len(kvs))

	for _, kv := range kvs {
		x, err := p.expr(kv[1])
		if err != nil {
			return nil, err
		}

		out = append(out, m.DerivedVar{Var: kv[0].Value, Value: x})
	}

	return out, nil
}

func (p *specParser) stmts(n *yaml.Node) ([]ast.Stmt, error) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" {
		return nil, nil
	}

	if n.Kind != yaml.SequenceNode {
		return nil, p.errorf(n, "expected a list of statements")
	}

	out := make([]ast.Stmt, 0, len(n.Content))

	for _, item := range n.Content {
		s, err := p.stmt(item)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}

func (p *specParser) stmt(n *yaml.Node) (ast.Stmt, error) {
	if n.Kind == yaml.MappingNode {
		if cond := p.lookup(n, "assert"); cond != nil {
			return p.assert(n, cond)
		}

		if cond := p.lookup(n, "if"); cond != nil {
			return p.ifStmt(n, cond)
		}
	}

	x, err := p.expr(n)
	if err != nil {
		return nil, err
	}

	return &ast.ExprStmt{X: x, Pos: pos(n)}, nil
}

func (p *specParser) assert(n, cond *yaml.Node) (ast.Stmt, error) {
	x, err := p.expr(cond)
	if err != nil {
		return nil, err
	}

	stmt := &ast.AssertStmt{Cond: x, Pos: pos(n)}

	if msg := p.lookup(n, "message"); msg != nil {
		if stmt.Message, err = p.expr(msg); err != nil {
			return nil, err
		}
	}

	return stmt, nil
}

func (p *specParser) ifStmt(n, cond *yaml.Node) (ast.Stmt, error) {
	x, err := p.expr(cond)
	if err != nil {
		return nil, err
	}

	stmt := &ast.IfStmt{Cond: x, Pos: pos(n)}

	if then := p.lookup(n, "then"); then != nil {
		stmts, err := p.stmts(then)
		if err != nil {
			return nil, err
		}

		stmt.Then = &ast.Block{Stmts: stmts, Pos: pos(then)}
	}

	if els := p.lookup(n, "else"); els != nil {
		stmts, err := p.stmts(els)
		if err != nil {
			return nil, err
		}

		stmt.Else = &ast.Block{Stmts: stmts, Pos: pos(els)}
	}

	return stmt, nil
}

func (p *specParser) exprs(n *yaml.Node) ([]ast.Expr, error) {
	if n.Kind != yaml.SequenceNode {
		x, err := p.expr(n)
		if err != nil {
			return nil, err
		}

		return []ast.Expr{x}, nil
	}

	out := make([]ast.Expr, 0, len(n.Content))

	for _, item := range n.Content {
		x, err := p.expr(item)
		if err != nil {
			return nil, err
		}

		out = append(out, x)
	}

	return out, nil
}

func (p *specParser) expr(n *yaml.Node) (ast.Expr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return p.scalar(n)
	case yaml.SequenceNode:
		elems, err := p.exprs(n)
		if err != nil {
			return nil, err
		}

		return &ast.List{Elems: elems, Pos: pos(n)}, nil
	case yaml.MappingNode:
		return p.compound(n)
	case yaml.AliasNode:
		return p.expr(n.Alias)
	}

	return nil, p.errorf(n, "unsupported expression")
}

func (p *specParser) scalar(n *yaml.Node) (ast.Expr, error) {
	at := pos(n)

	switch n.Tag {
	case "!!null":
		return &ast.Const{Pos: at}, nil
	case "!!bool":
		return &ast.Const{Value: n.Value == "true", Pos: at}, nil
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, p.errorf(n, "invalid integer %q", n.Value)
		}

		return &ast.Const{Value: v, Pos: at}, nil
	case "!!float":
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, p.errorf(n, "invalid number %q", n.Value)
		}

		return &ast.Const{Value: v, Pos: at}, nil
	}

	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		return &ast.Const{Value: n.Value, Pos: at}, nil
	}

	switch n.Value {
	case "_":
		return &ast.Wildcard{Pos: at}, nil
	case "*_":
		return &ast.Unary{Op: "*", X: &ast.Wildcard{Pos: at}, Pos: at}, nil
	case "this":
		return &ast.This{Pos: at}, nil
	case "super":
		return &ast.Super{Pos: at}, nil
	}

	if identifier.MatchString(n.Value) {
		return &ast.Var{Name: n.Value, Pos: at}, nil
	}

	return &ast.Const{Value: n.Value, Pos: at}, nil
}

func (p *specParser) compound(n *yaml.Node) (ast.Expr, error) {
	at := pos(n)

	switch {
	case p.lookup(n, "call") != nil:
		return p.call(n)
	case p.lookup(n, "prop") != nil:
		recv, err := p.receiver(n)
		if err != nil {
			return nil, err
		}

		return &ast.Property{X: recv, Name: p.lookup(n, "prop").Value, Pos: at}, nil
	case p.lookup(n, "def") != nil:
		decl := &ast.Decl{Name: p.lookup(n, "def").Value, Pos: at}

		if typ := p.lookup(n, "type"); typ != nil {
			decl.Type = typ.Value
		}

		if value := p.lookup(n, "value"); value != nil {
			x, err := p.expr(value)
			if err != nil {
				return nil, err
			}

			decl.Value = x
		}

		return decl, nil
	case p.lookup(n, "closure") != nil:
		return p.closure(n)
	case p.lookup(n, "old") != nil:
		x, err := p.expr(p.lookup(n, "old"))
		if err != nil {
			return nil, err
		}

		return &ast.MethodCall{Recv: &ast.This{Pos: at}, Name: "old", Args: []ast.Expr{x}, Pos: at}, nil
	}

	if len(n.Content) != 2 {
		return nil, p.errorf(n, "an operator expression has exactly one key")
	}

	op, operands := n.Content[0].Value, n.Content[1]

	if operands.Kind == yaml.SequenceNode && len(operands.Content) == 2 && binaryOps[op] {
		x, err := p.expr(operands.Content[0])
		if err != nil {
			return nil, err
		}

		y, err := p.expr(operands.Content[1])
		if err != nil {
			return nil, err
		}

		return &ast.Binary{Op: op, X: x, Y: y, Pos: at}, nil
	}

	if unaryOps[op] {
		if operands.Kind == yaml.SequenceNode && len(operands.Content) == 1 {
			operands = operands.Content[0]
		}

		x, err := p.expr(operands)
		if err != nil {
			return nil, err
		}

		return &ast.Unary{Op: op, X: x, Pos: at}, nil
	}

	return nil, p.errorf(n, "unknown operator %q", op)
}

func (p *specParser) receiver(n *yaml.Node) (ast.Expr, error) {
	on := p.lookup(n, "on")
	if on == nil {
		return &ast.This{Pos: pos(n)}, nil
	}

	return p.expr(on)
}

func (p *specParser) call(n *yaml.Node) (ast.Expr, error) {
	recv, err := p.receiver(n)
	if err != nil {
		return nil, err
	}

	call := &ast.MethodCall{Recv: recv, Name: p.lookup(n, "call").Value, Pos: pos(n)}

	if args := p.lookup(n, "args"); args != nil {
		if call.Args, err = p.exprs(args); err != nil {
			return nil, err
		}
	}

	return call, nil
}

func (p *specParser) closure(n *yaml.Node) (ast.Expr, error) {
	body := p.lookup(n, "closure")

	stmts, err := p.stmts(body)
	if err != nil {
		return nil, err
	}

	c := &ast.Closure{Body: &ast.Block{Stmts: stmts, Pos: pos(body)}, Pos: pos(n)}

	if params := p.lookup(n, "params"); params != nil {
		if err := params.Decode(&c.Params); err != nil {
			return nil, p.errorf(params, "params: %v", err)
		}
	}

	return c, nil
}
