package parser

import (
	"fmt"
	"strings"

	"slang/internal/ast"
)

// Node types of the JSON IR.
const (
	COMPILATION       = "COMPILATION"
	DECLARATION_LIST  = "DECLARATION_LIST"
	ROUTINE           = "ROUTINE"
	FOREIGN_SPEC      = "FOREIGN_SPEC"
	PARAMETER_LIST    = "PARAMETER_LIST"
	PARAMETER         = "PARAMETER"
	IDENTIFIER        = "IDENTIFIER"
	ENTITY_LIST       = "ENTITY_LIST"
	UNIT_REF          = "UNIT_REF"
	EXPRESSION_LIST   = "EXPRESSION_LIST"
	PRECONDITION      = "PRECONDITION"
	POSTCONDITION     = "POSTCONDITION"
	RETURN            = "RETURN"
	LITERAL           = "LITERAL"
	CALL              = "CALL"
	CALLEE            = "CALLEE"
	REFERENCE         = "REFERENCE"
	VARIABLE          = "VARIABLE"
	ASSIGNMENT        = "ASSIGNMENT"
	UNIT              = "UNIT"
	REF_VAL_SPEC      = "REF_VAL_SPEC"
	CONCURRENT_SPEC   = "CONCURRENT_SPEC"
	IF                = "IF"
	STMT_IF_THEN_LIST = "STMT_IF_THEN_LIST"
	STMT_IF_THEN      = "STMT_IF_THEN"
)

// Intermediate results for node types that have no ast counterpart.
type (
	declarationList []ast.Declaration
	parameterList   []ast.Param
	entityList      []any
	expressionList  []ast.Expr
	precondition    []ast.Expr
	postcondition   []ast.Expr
	ifThenList      []ast.IfBranch
	foreignSpec     bool
	refValSpec      bool
	concurrentSpec  bool
)

// Parser converts a JSON IR tree into ast entities. Like a source parser it
// keeps going after a malformed node and collects every error it finds.
type Parser struct {
	path   []string
	errors []*FormatError
}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) Errors() []*FormatError {
	return p.errors
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, &FormatError{
		Path: strings.Join(p.path, "/"),
		Msg:  fmt.Sprintf(format, args...),
	})
}

// ---------- Top-level ----------

// ParseCompilation parses the root node. The result is only meaningful when
// Errors is empty.
func (p *Parser) ParseCompilation(root *Node) *ast.Compilation {
	if root == nil {
		p.errorf("empty IR")
		return nil
	}
	if root.Type != COMPILATION {
		p.path = append(p.path, root.Type)
		p.errorf("root must be %s", COMPILATION)
		p.path = p.path[:len(p.path)-1]
		return nil
	}
	comp, _ := p.parse(root).(*ast.Compilation)
	return comp
}

// parse dispatches on the node type. A nil node parses to nil.
func (p *Parser) parse(n *Node) any {
	if n == nil {
		return nil
	}
	if n.Type == "" {
		p.errorf("node without type")
		return nil
	}
	p.path = append(p.path, n.Type)
	defer func() { p.path = p.path[:len(p.path)-1] }()

	switch n.Type {
	case COMPILATION:
		return p.parseCompilation(n)
	case DECLARATION_LIST:
		return p.parseDeclarationList(n)
	case ROUTINE:
		return p.parseRoutine(n)
	case FOREIGN_SPEC:
		return p.parseForeignSpec(n)
	case PARAMETER_LIST:
		return p.parseParameterList(n)
	case PARAMETER:
		return p.parseParameter(n)
	case IDENTIFIER:
		return p.parseIdentifier(n)
	case ENTITY_LIST:
		p.valueMustBeNull(n)
		return entityList(p.parseChildren(n))
	case UNIT_REF:
		return p.parseUnitRef(n)
	case EXPRESSION_LIST:
		return p.parseExpressionList(n)
	case PRECONDITION:
		return precondition(p.parseCondition(n))
	case POSTCONDITION:
		return postcondition(p.parseCondition(n))
	case RETURN:
		return p.parseReturn(n)
	case LITERAL:
		return p.parseLiteral(n)
	case CALL:
		return p.parseCall(n)
	case CALLEE:
		return p.parseCallee(n)
	case REFERENCE:
		return p.parseReference(n)
	case VARIABLE:
		return p.parseVariable(n)
	case ASSIGNMENT:
		return p.parseAssignment(n)
	case UNIT:
		return p.parseUnit(n)
	case REF_VAL_SPEC:
		return p.parseRefValSpec(n)
	case CONCURRENT_SPEC:
		return p.parseConcurrentSpec(n)
	case IF:
		return p.parseIf(n)
	case STMT_IF_THEN_LIST:
		return p.parseIfThenList(n)
	case STMT_IF_THEN:
		return p.parseIfThen(n)
	default:
		p.errorf("unknown node type %q", n.Type)
		return nil
	}
}

func (p *Parser) parseChildren(n *Node) []any {
	out := make([]any, 0, len(n.Children))
	for _, c := range n.Children {
		if v := p.parse(c); v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (p *Parser) valueMustBeNull(n *Node) {
	if n.Value != nil {
		p.errorf("value must be null")
	}
}

func (p *Parser) valueMustNotBeNull(n *Node) bool {
	if n.Value == nil {
		p.errorf("value must not be null")
		return false
	}
	return true
}

// ---------- Child selection ----------

func ofType[T any](children []any) []T {
	var out []T
	for _, c := range children {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// single requires exactly one child of type T.
func single[T any](p *Parser, children []any, what string) (T, bool) {
	found := ofType[T](children)
	if len(found) != 1 {
		p.errorf("expected exactly one %s, got %d", what, len(found))
		var zero T
		return zero, false
	}
	return found[0], true
}

// optional allows at most one child of type T.
func optional[T any](p *Parser, children []any, what string) (T, bool) {
	found := ofType[T](children)
	var zero T
	switch len(found) {
	case 0:
		return zero, false
	case 1:
		return found[0], true
	default:
		p.errorf("expected at most one %s, got %d", what, len(found))
		return zero, false
	}
}

func first[T any](children []any) (T, bool) {
	found := ofType[T](children)
	if len(found) == 0 {
		var zero T
		return zero, false
	}
	return found[0], true
}

// ---------- Declarations ----------

func (p *Parser) parseCompilation(n *Node) *ast.Compilation {
	p.valueMustBeNull(n)
	children := p.parseChildren(n)
	comp := &ast.Compilation{}
	if decls, ok := first[declarationList](children); ok {
		comp.Declarations = decls
	}
	if anon, ok := first[*ast.RoutineDecl](children); ok {
		comp.Anonymous = anon
	}
	return comp
}

func (p *Parser) parseDeclarationList(n *Node) declarationList {
	p.valueMustBeNull(n)
	return ofType[ast.Declaration](p.parseChildren(n))
}

func (p *Parser) parseRoutine(n *Node) *ast.RoutineDecl {
	p.valueMustBeNull(n)
	children := p.parseChildren(n)

	decl := &ast.RoutineDecl{ReturnType: ast.VoidRef}
	decl.Name, _ = single[ast.Identifier](p, children, "routine name")
	if spec, ok := optional[foreignSpec](p, children, FOREIGN_SPEC); ok {
		decl.IsForeign = bool(spec)
	}
	params, _ := single[parameterList](p, children, PARAMETER_LIST)
	decl.Params = params
	if ret, ok := optional[ast.UnitRef](p, children, "return type"); ok {
		decl.ReturnType = ret
	}
	if pre, ok := optional[precondition](p, children, PRECONDITION); ok {
		decl.Pre = pre
	}
	if body, ok := single[entityList](p, children, "routine body"); ok {
		decl.Body = p.statements(body)
	}
	if post, ok := optional[postcondition](p, children, POSTCONDITION); ok {
		decl.Post = post
	}
	return decl
}

func (p *Parser) parseForeignSpec(n *Node) foreignSpec {
	switch {
	case n.Value == nil:
		return false
	case *n.Value == "foreign":
		return true
	default:
		p.errorf("value must be either null or \"foreign\"")
		return false
	}
}

func (p *Parser) parseParameterList(n *Node) parameterList {
	p.valueMustBeNull(n)
	return ofType[ast.Param](p.parseChildren(n))
}

func (p *Parser) parseParameter(n *Node) any {
	p.valueMustBeNull(n)
	children := p.parseChildren(n)
	typ, ok1 := single[ast.UnitRef](p, children, "parameter type")
	name, ok2 := single[ast.Identifier](p, children, "parameter name")
	if !ok1 || !ok2 {
		return nil
	}
	return ast.Param{Type: typ, Name: name}
}

func (p *Parser) parseUnit(n *Node) any {
	p.valueMustBeNull(n)
	children := p.parseChildren(n)

	name, ok := single[ast.Identifier](p, children, "unit name")
	if !ok {
		return nil
	}
	decl := &ast.UnitDecl{Name: name}
	if spec, ok := single[refValSpec](p, children, REF_VAL_SPEC); ok {
		decl.IsRef = bool(spec)
	}
	if spec, ok := optional[concurrentSpec](p, children, CONCURRENT_SPEC); ok {
		decl.IsConcurrent = bool(spec)
	}
	if spec, ok := optional[foreignSpec](p, children, FOREIGN_SPEC); ok {
		decl.IsForeign = bool(spec)
	}
	if decls, ok := optional[declarationList](p, children, DECLARATION_LIST); ok {
		decl.Declarations = decls
	}
	if inv, ok := optional[expressionList](p, children, "invariant list"); ok {
		decl.Invariants = inv
	}
	return decl
}

func (p *Parser) parseRefValSpec(n *Node) any {
	if !p.valueMustNotBeNull(n) {
		return nil
	}
	switch *n.Value {
	case "ref":
		return refValSpec(true)
	case "val":
		return refValSpec(false)
	}
	p.errorf("value must be either ref or val")
	return nil
}

func (p *Parser) parseConcurrentSpec(n *Node) concurrentSpec {
	switch {
	case n.Value == nil:
		return false
	case *n.Value == "concurrent":
		return true
	default:
		p.errorf("value must be either \"concurrent\" or null")
		return false
	}
}

// ---------- Names ----------

func (p *Parser) parseIdentifier(n *Node) any {
	if !p.valueMustNotBeNull(n) {
		return nil
	}
	if *n.Value == "" {
		p.errorf("identifier must not be empty")
		return nil
	}
	return ast.Ident(*n.Value)
}

func (p *Parser) parseUnitRef(n *Node) any {
	if !p.valueMustNotBeNull(n) {
		return nil
	}
	if *n.Value == "" {
		p.errorf("unit reference must not be empty")
		return nil
	}
	return ast.UnitRef{Name: ast.Ident(*n.Value)}
}

// ---------- Statements ----------

// statements converts a body entity list. Nested entity lists become blocks.
func (p *Parser) statements(list entityList) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(list))
	for _, e := range list {
		switch st := e.(type) {
		case ast.Stmt:
			out = append(out, st)
		case entityList:
			out = append(out, p.block(st))
		default:
			p.errorf("%T is not a statement", e)
		}
	}
	return out
}

func (p *Parser) block(list entityList) *ast.Block {
	return &ast.Block{Stmts: p.statements(list)}
}

func (p *Parser) parseReturn(n *Node) *ast.Return {
	p.valueMustBeNull(n)
	ret := &ast.Return{}
	if e, ok := first[ast.Expr](p.parseChildren(n)); ok {
		ret.Value = e
	}
	return ret
}

func (p *Parser) parseVariable(n *Node) any {
	p.valueMustBeNull(n)
	children := p.parseChildren(n)

	name, ok := single[ast.Identifier](p, children, "variable name")
	if !ok {
		return nil
	}
	decl := &ast.VariableDecl{Name: name}
	if typ, ok := optional[ast.UnitRef](p, children, "variable type"); ok {
		decl.Type = &typ
	}
	if init, ok := optional[ast.Expr](p, children, "initializer"); ok {
		decl.Init = init
	}
	if decl.Type == nil && decl.Init == nil {
		p.errorf("variable %s has no type nor initializer", name)
		return nil
	}
	return decl
}

func (p *Parser) parseAssignment(n *Node) any {
	p.valueMustBeNull(n)
	exprs := ofType[ast.Expr](p.parseChildren(n))
	if len(exprs) != 2 {
		p.errorf("expected target and value, got %d expressions", len(exprs))
		return nil
	}
	return &ast.Assignment{Target: exprs[0], Value: exprs[1]}
}

func (p *Parser) parseIf(n *Node) any {
	p.valueMustBeNull(n)
	children := p.parseChildren(n)

	branches, ok := single[ifThenList](p, children, STMT_IF_THEN_LIST)
	if !ok {
		return nil
	}
	st := &ast.If{Branches: branches}
	if els, ok := optional[entityList](p, children, "else body"); ok {
		st.Else = p.block(els)
	}
	return st
}

func (p *Parser) parseIfThenList(n *Node) ifThenList {
	p.valueMustBeNull(n)
	return ofType[ast.IfBranch](p.parseChildren(n))
}

func (p *Parser) parseIfThen(n *Node) any {
	p.valueMustBeNull(n)
	children := p.parseChildren(n)
	cond, ok1 := single[ast.Expr](p, children, "condition")
	body, ok2 := single[entityList](p, children, "branch body")
	if !ok1 || !ok2 {
		return nil
	}
	return ast.IfBranch{Cond: cond, Body: p.block(body)}
}

// ---------- Expressions ----------

func (p *Parser) parseExpressionList(n *Node) expressionList {
	p.valueMustBeNull(n)
	return ofType[ast.Expr](p.parseChildren(n))
}

// parseCondition reads the expression list of a pre- or postcondition.
func (p *Parser) parseCondition(n *Node) []ast.Expr {
	p.valueMustBeNull(n)
	list, _ := first[expressionList](p.parseChildren(n))
	return list
}

func (p *Parser) parseLiteral(n *Node) any {
	if !p.valueMustNotBeNull(n) {
		return nil
	}
	typ, ok := first[ast.UnitRef](p.parseChildren(n))
	if !ok {
		p.errorf("literal unit reference not found")
		return nil
	}
	return &ast.Literal{Value: *n.Value, Type: typ}
}

func (p *Parser) parseCall(n *Node) any {
	p.valueMustBeNull(n)
	children := p.parseChildren(n)
	callee, ok := single[ast.Callee](p, children, CALLEE)
	if !ok {
		return nil
	}
	call := &ast.Call{Callee: callee}
	if args, ok := optional[expressionList](p, children, "argument list"); ok {
		call.Args = args
	}
	return call
}

// parseCallee reads [unit or null, routine].
func (p *Parser) parseCallee(n *Node) any {
	p.valueMustBeNull(n)
	if len(n.Children) != 2 {
		p.errorf("expected unit and routine, got %d children", len(n.Children))
		return nil
	}
	var callee ast.Callee
	if n.Children[0] != nil {
		unit, ok := p.parse(n.Children[0]).(ast.Identifier)
		if !ok {
			p.errorf("callee unit must be an %s", IDENTIFIER)
			return nil
		}
		callee.Unit = unit
	}
	routine, ok := p.parse(n.Children[1]).(ast.Identifier)
	if !ok {
		p.errorf("callee routine must be an %s", IDENTIFIER)
		return nil
	}
	callee.Routine = routine
	return callee
}

func (p *Parser) parseReference(n *Node) any {
	p.valueMustBeNull(n)
	name, ok := single[ast.Identifier](p, p.parseChildren(n), "referenced name")
	if !ok {
		return nil
	}
	return &ast.Reference{Name: name}
}
