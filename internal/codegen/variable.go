package codegen

import (
	"slang/internal/ast"
	"slang/internal/ir"
)

// Typed is anything with a static unit type.
type Typed interface {
	Type() *UnitDefinition
}

// Variable is a typed storage location in a routine body. Load pushes its
// value, Store pops into it and LoadAddress pushes its address.
type Variable interface {
	Typed
	Name() ast.Identifier
	Load(c *ir.Chunk)
	Store(c *ir.Chunk)
	LoadAddress(c *ir.Chunk)
}

// ArgumentVariable is a routine parameter, addressed by declaration order.
type ArgumentVariable struct {
	typ   *UnitDefinition
	name  ast.Identifier
	Index int
}

func NewArgumentVariable(typ *UnitDefinition, name ast.Identifier, index int) *ArgumentVariable {
	return &ArgumentVariable{typ: typ, name: name, Index: index}
}

func (v *ArgumentVariable) Type() *UnitDefinition { return v.typ }
func (v *ArgumentVariable) Name() ast.Identifier  { return v.name }

func (v *ArgumentVariable) Load(c *ir.Chunk)        { c.Emit(ir.OpLoadArg, v.Index, 0) }
func (v *ArgumentVariable) Store(c *ir.Chunk)       { c.Emit(ir.OpStoreArg, v.Index, 0) }
func (v *ArgumentVariable) LoadAddress(c *ir.Chunk) { c.Emit(ir.OpLoadArgAddr, v.Index, 0) }

// LocalVariable is a body local. Its slot is allocated in the chunk on first
// use, so declared-but-unused variables cost nothing.
type LocalVariable struct {
	typ  *UnitDefinition
	name ast.Identifier
	slot int
}

func NewLocalVariable(typ *UnitDefinition, name ast.Identifier) *LocalVariable {
	return &LocalVariable{typ: typ, name: name, slot: -1}
}

func (v *LocalVariable) Type() *UnitDefinition { return v.typ }
func (v *LocalVariable) Name() ast.Identifier  { return v.name }

// Slot returns the allocated slot index, or -1 if the variable was never used.
func (v *LocalVariable) Slot() int { return v.slot }

func (v *LocalVariable) ensure(c *ir.Chunk) int {
	if v.slot < 0 {
		v.slot = c.AddLocal(v.typ.NativeType())
	}
	return v.slot
}

// void variables hold nothing
func (v *LocalVariable) isVoid() bool { return v.typ.NativeType().IsVoid() }

func (v *LocalVariable) Load(c *ir.Chunk) {
	if v.isVoid() {
		return
	}
	c.Emit(ir.OpLoadLocal, v.ensure(c), 0)
}

func (v *LocalVariable) Store(c *ir.Chunk) {
	if v.isVoid() {
		return
	}
	c.Emit(ir.OpStoreLocal, v.ensure(c), 0)
}

func (v *LocalVariable) LoadAddress(c *ir.Chunk) {
	c.Emit(ir.OpLoadLocalAddr, v.ensure(c), 0)
}
