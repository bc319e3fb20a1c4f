package codegen

import (
	"fmt"

	"slang/internal/ast"
	"slang/internal/ir"
)

const (
	unitNamespace    = "SLang"
	builtInNamespace = "SLang.BuiltIn"
	valueFieldName   = "value"
)

// UnitReference names a unit of one Context. It resolves lazily.
type UnitReference struct {
	Name ast.Identifier
	ctx  *Context
}

func (r UnitReference) Resolve() (*UnitDefinition, error) {
	return r.ctx.ResolveUnit(r)
}

// Equal compares by name; units are not namespaced.
func (r UnitReference) Equal(o UnitReference) bool { return r.Name == o.Name }

func (r UnitReference) IsVoid() bool { return r.Name == ast.VoidName }

func (r UnitReference) String() string { return r.Name.String() }

// literalLoader parses a literal token and emits the load of its raw value.
type literalLoader func(literal string, c *ir.Chunk) error

// wrapper describes a built-in value unit holding one native field.
type wrapper struct {
	raw       ir.TypeRef
	ctor      *ir.Function
	ctorIndex int
}

// UnitDefinition is a nominal type: a named set of routines with a native
// representation.
type UnitDefinition struct {
	UnitReference

	IsForeign bool

	namespace string
	native    ir.TypeRef
	typeIndex int // -1 for foreign units

	routines []*RoutineDefinition
	byName   map[ast.Identifier]*RoutineDefinition

	literal literalLoader
	wrapped *wrapper

	// synthesized bodies for native routines, emitted in stage 2
	stage2 func() error
}

func newUnit(ctx *Context, name ast.Identifier) *UnitDefinition {
	return &UnitDefinition{
		UnitReference: UnitReference{Name: name, ctx: ctx},
		namespace:     unitNamespace,
		typeIndex:     -1,
		byName:        make(map[ast.Identifier]*RoutineDefinition),
	}
}

// newClassUnit creates a source-level unit represented as a reference type.
func newClassUnit(ctx *Context, name ast.Identifier) *UnitDefinition {
	u := newUnit(ctx, name)
	u.native = ir.ClassRef(-1)
	return u
}

// newForeignUnit proxies an existing native type directly.
func newForeignUnit(ctx *Context, name ast.Identifier, native ir.TypeRef) *UnitDefinition {
	u := newUnit(ctx, name)
	u.IsForeign = true
	u.native = native
	return u
}

// newWrapperUnit creates a built-in value type with a single field of raw.
func newWrapperUnit(ctx *Context, name ast.Identifier, raw ir.TypeRef, load literalLoader) *UnitDefinition {
	u := newUnit(ctx, name)
	u.namespace = builtInNamespace
	u.native = ir.StructRef(-1)
	u.wrapped = &wrapper{raw: raw, ctorIndex: -1}
	u.literal = load
	return u
}

// Resolve returns u itself.
func (u *UnitDefinition) Resolve() (*UnitDefinition, error) { return u, nil }

// Type makes a unit usable wherever a Typed value is expected.
func (u *UnitDefinition) Type() *UnitDefinition { return u }

func (u *UnitDefinition) Context() *Context { return u.ctx }

// NativeType returns the host-level representation of u's values.
func (u *UnitDefinition) NativeType() ir.TypeRef { return u.native }

// WrappedNativeType returns the raw type held by a value wrapper, or the
// native type itself for every other unit.
func (u *UnitDefinition) WrappedNativeType() ir.TypeRef {
	if u.wrapped != nil {
		return u.wrapped.raw
	}
	return u.native
}

// TypeIndex is the index of u's TypeInfo in the output module, -1 if foreign.
func (u *UnitDefinition) TypeIndex() int { return u.typeIndex }

func (u *UnitDefinition) typeInfo() ir.TypeInfo {
	ti := ir.TypeInfo{
		Namespace: u.namespace,
		Name:      u.Name.String(),
		IsValue:   u.native.Kind == ir.NativeStruct,
	}
	if u.wrapped != nil {
		ti.Fields = []ir.FieldInfo{{Name: valueFieldName, Type: u.wrapped.raw}}
	}
	return ti
}

// Routines returns the routines of u in registration order.
func (u *UnitDefinition) Routines() []*RoutineDefinition { return u.routines }

// RegisterRoutine adds r to u. Names are unique within a unit.
func (u *UnitDefinition) RegisterRoutine(r *RoutineDefinition) error {
	if _, exists := u.byName[r.Name]; exists {
		return &DuplicateRoutineError{Unit: u.Name, Routine: r.Name}
	}
	r.unit = u
	unitRef := u.UnitReference
	r.Unit = &unitRef
	u.routines = append(u.routines, r)
	u.byName[r.Name] = r
	return nil
}

// ResolveRoutine finds a routine of u by name.
func (u *UnitDefinition) ResolveRoutine(ref RoutineReference) (*RoutineDefinition, error) {
	if r, ok := u.byName[ref.Name]; ok {
		return r, nil
	}
	return nil, &RoutineNotFoundError{Unit: u.Name, Routine: ref.Name}
}

// IsAssignableFrom reports whether a value of other's type may be stored in
// a u-typed location. Only identical units are assignable.
func (u *UnitDefinition) IsAssignableFrom(other Typed) bool {
	return u.UnitReference.Equal(other.Type().UnitReference)
}

func (u *UnitDefinition) IsAssignableTo(other Typed) bool {
	return other.Type().IsAssignableFrom(u)
}

func (u *UnitDefinition) AssertIsAssignableFrom(other Typed) error {
	if !u.IsAssignableFrom(other) {
		return &TypeMismatchError{Expected: u.Name, Actual: other.Type().Name}
	}
	return nil
}

func (u *UnitDefinition) AssertIsAssignableTo(other Typed) error {
	return other.Type().AssertIsAssignableFrom(u)
}

// Stage1RoutineStubs resolves the signature of every routine of u and
// creates its method stub. Value wrappers also get their constructor.
func (u *UnitDefinition) Stage1RoutineStubs() error {
	if u.wrapped != nil && u.wrapped.ctor == nil {
		ctor := &ir.Function{
			Name:  ".ctor",
			Owner: u.typeIndex,
			Params: []ir.Param{
				{Name: "self", Type: ir.Addr},
				{Name: valueFieldName, Type: u.wrapped.raw},
			},
			Return: ir.Void,
			IsCtor: true,
		}
		u.wrapped.ctor = ctor
		u.wrapped.ctorIndex = u.ctx.module.AddFunction(ctor)
	}
	for _, r := range u.routines {
		if err := r.Stage1RoutineStub(); err != nil {
			return fmt.Errorf("%s: %w", r.QualifiedName(), err)
		}
	}
	return nil
}

// Stage2RoutineBody emits the body of every routine of u. It requires
// Stage1RoutineStubs of every unit to have completed.
func (u *UnitDefinition) Stage2RoutineBody() error {
	if u.wrapped != nil {
		if u.wrapped.ctor == nil {
			return &CompilationStageError{Routine: u.Name.String() + "::.ctor", Stage: 1}
		}
		c := &u.wrapped.ctor.Chunk
		if len(c.Code) == 0 {
			c.Emit(ir.OpLoadArg, 0, 0)
			c.Emit(ir.OpLoadArg, 1, 0)
			c.Emit(ir.OpStoreField, 0, 0)
			c.Emit(ir.OpReturn, 0, 0)
		}
	}
	if u.stage2 != nil {
		if err := u.stage2(); err != nil {
			return fmt.Errorf("%s: %w", u.Name, err)
		}
	}
	for _, r := range u.routines {
		if err := r.Stage2RoutineBody(); err != nil {
			return fmt.Errorf("%s: %w", r.QualifiedName(), err)
		}
	}
	return nil
}

func (u *UnitDefinition) CanLoadFromLiteral() bool { return u.literal != nil }

// LoadFromLiteral parses literal as a value of u and emits the load of the
// raw native value.
func (u *UnitDefinition) LoadFromLiteral(literal string, c *ir.Chunk) error {
	if u.literal == nil {
		return &LiteralsNotSupportedError{Unit: u.Name}
	}
	if err := u.literal(literal, c); err != nil {
		return &LoadFromLiteralError{Unit: u.Name, Literal: literal, Err: err}
	}
	return nil
}

// Boxed wraps the raw value on top of the stack into a fresh instance of u.
// The stack is left as it was before the raw value was pushed; the returned
// variable is the only handle on the new instance.
func (u *UnitDefinition) Boxed(c *ir.Chunk) (Variable, error) {
	if u.wrapped == nil {
		return nil, &UnsupportedError{What: fmt.Sprintf("boxing into %s", u.Name)}
	}
	if u.wrapped.ctor == nil {
		return nil, &CompilationStageError{Routine: u.Name.String() + "::.ctor", Stage: 1}
	}
	raw := c.AddLocal(u.wrapped.raw)
	boxed := NewLocalVariable(u, ast.Identifier{})

	c.Emit(ir.OpStoreLocal, raw, 0)
	boxed.LoadAddress(c)
	c.Emit(ir.OpLoadLocal, raw, 0)
	c.Emit(ir.OpCall, u.wrapped.ctorIndex, 2)
	return boxed, nil
}

// Unboxed replaces the instance of u on top of the stack by its raw value.
// It accepts an address of an instance as well.
func (u *UnitDefinition) Unboxed(c *ir.Chunk) {
	if u.wrapped != nil {
		c.Emit(ir.OpLoadField, 0, 0)
	}
}
