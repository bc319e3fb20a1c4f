package ast

import "unique"

// Identifier is an interned name. Two identifiers are equal iff their text
// is equal, so they can be compared with == and used as map keys.
type Identifier struct {
	h unique.Handle[string]
}

// Ident interns s.
func Ident(s string) Identifier {
	if s == "" {
		return Identifier{}
	}
	return Identifier{h: unique.Make(s)}
}

func (id Identifier) String() string {
	if id.IsEmpty() {
		return ""
	}
	return id.h.Value()
}

func (id Identifier) IsEmpty() bool { return id == Identifier{} }

// Basic interfaces

// Entity is any node of the typed IR tree.
type Entity interface {
	entityNode()
}

type Declaration interface {
	Entity
	DeclName() Identifier
	declNode()
}

type Stmt interface {
	Entity
	stmtNode()
}

type Expr interface {
	Entity
	exprNode()
}

// Compilation is the IR root: top-level declarations plus the anonymous
// entry routine.
type Compilation struct {
	Declarations []Declaration
	Anonymous    *RoutineDecl
}

func (*Compilation) entityNode() {}

// UnitRef names a unit by identifier. Units are not namespaced.
type UnitRef struct {
	Name Identifier
}

// VoidName is the sentinel unit name used for "no value".
var VoidName = Ident("$void")

// VoidRef is the unit reference used when a routine declares no return type.
var VoidRef = UnitRef{Name: VoidName}

func (r UnitRef) String() string { return r.Name.String() }

// Routines

type Param struct {
	Type UnitRef
	Name Identifier
}

type RoutineDecl struct {
	Name       Identifier
	IsForeign  bool
	Params     []Param
	ReturnType UnitRef
	Pre        []Expr // accepted, not evaluated
	Body       []Stmt
	Post       []Expr // accepted, not evaluated
}

func (*RoutineDecl) entityNode()            {}
func (*RoutineDecl) declNode()              {}
func (d *RoutineDecl) DeclName() Identifier { return d.Name }

// Units

type UnitDecl struct {
	Name         Identifier
	IsRef        bool
	IsConcurrent bool // accepted, unused
	IsForeign    bool
	Declarations []Declaration
	Invariants   []Expr // accepted, unused
}

func (*UnitDecl) entityNode()            {}
func (*UnitDecl) declNode()              {}
func (d *UnitDecl) DeclName() Identifier { return d.Name }

// Statements

// Block is a nested statement list with its own lexical scope.
type Block struct {
	Stmts []Stmt
}

func (*Block) entityNode() {}
func (*Block) stmtNode()   {}

type Return struct {
	Value Expr // nil for a bare return
}

func (*Return) entityNode() {}
func (*Return) stmtNode()   {}

// VariableDecl declares a local. At least one of Type and Init is set.
type VariableDecl struct {
	Name Identifier
	Type *UnitRef
	Init Expr
}

func (*VariableDecl) entityNode() {}
func (*VariableDecl) stmtNode()   {}

type Assignment struct {
	Target Expr
	Value  Expr
}

func (*Assignment) entityNode() {}
func (*Assignment) stmtNode()   {}

type IfBranch struct {
	Cond Expr
	Body *Block
}

// If is an if / elsif* / else? chain. Else is nil when absent.
type If struct {
	Branches []IfBranch
	Else     *Block
}

func (*If) entityNode() {}
func (*If) stmtNode()   {}

// Expressions

type Literal struct {
	Value string
	Type  UnitRef
}

func (*Literal) entityNode() {}
func (*Literal) exprNode()   {}

type Reference struct {
	Name Identifier
}

func (*Reference) entityNode() {}
func (*Reference) exprNode()   {}

// Callee names a routine, optionally qualified by its unit.
type Callee struct {
	Unit    Identifier // empty when unqualified
	Routine Identifier
}

func (c Callee) String() string {
	if c.Unit.IsEmpty() {
		return c.Routine.String()
	}
	return c.Unit.String() + "." + c.Routine.String()
}

// Call is both an expression and, standing alone, a statement.
type Call struct {
	Callee Callee
	Args   []Expr
}

func (*Call) entityNode() {}
func (*Call) exprNode()   {}
func (*Call) stmtNode()   {}
