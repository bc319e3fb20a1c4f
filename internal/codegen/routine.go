package codegen

import (
	"fmt"

	"slang/internal/ast"
	"slang/internal/ir"
	"slang/internal/runtime"
	"slang/internal/runtime/builtins"
)

// RoutineReference names a routine. A nil Unit means "global unit, then
// runtime unit".
type RoutineReference struct {
	Name ast.Identifier
	Unit *UnitReference
	ctx  *Context
}

func (r RoutineReference) Resolve() (*RoutineDefinition, error) {
	return r.ctx.ResolveRoutine(r)
}

func (r RoutineReference) String() string {
	if r.Unit == nil {
		return r.Name.String()
	}
	return r.Unit.Name.String() + "." + r.Name.String()
}

// RoutineStub is what stage 1 produces for a routine: its resolved
// signature and the method it compiles into.
type RoutineStub struct {
	Signature *SignatureDefinition
	Method    *ir.Function
	Index     int
}

// nativeBody emits the body of a native routine into the method chunk.
type nativeBody func(c *ir.Chunk) error

// RoutineDefinition is a routine registered in a unit. Source-defined
// routines own an IR declaration; native ones either synthesize their body
// or bind to a host method.
type RoutineDefinition struct {
	RoutineReference
	Signature SignatureReference

	unit *UnitDefinition
	stub *RoutineStub // nil until stage 1

	decl *ast.RoutineDecl
	emit nativeBody
	host string

	// the entry routine returns the raw value of its result unit
	unboxedReturn bool
	// lower without a scope chain, resolving names by parameter position
	positional bool
}

// NewRoutine creates a source-defined routine from its declaration. Foreign
// declarations become host-bound native routines.
func NewRoutine(ctx *Context, decl *ast.RoutineDecl) *RoutineDefinition {
	r := &RoutineDefinition{
		RoutineReference: RoutineReference{Name: decl.Name, ctx: ctx},
		Signature:        signatureOf(ctx, decl),
	}
	if decl.IsForeign {
		r.host = decl.Name.String()
	} else {
		r.decl = decl
	}
	return r
}

// NewNativeRoutine creates a routine whose body is synthesized by emit.
func NewNativeRoutine(ctx *Context, name ast.Identifier, sig SignatureReference, emit func(c *ir.Chunk) error) *RoutineDefinition {
	return &RoutineDefinition{
		RoutineReference: RoutineReference{Name: name, ctx: ctx},
		Signature:        sig,
		emit:             emit,
	}
}

func (r *RoutineDefinition) IsNative() bool { return r.decl == nil }

func (r *RoutineDefinition) IsForeign() bool { return r.host != "" }

func (r *RoutineDefinition) Owner() *UnitDefinition { return r.unit }

func (r *RoutineDefinition) Decl() *ast.RoutineDecl { return r.decl }

func (r *RoutineDefinition) QualifiedName() string {
	if r.unit == nil {
		return r.Name.String()
	}
	return r.unit.Name.String() + "." + r.Name.String()
}

// Stub returns the stage 1 product, failing if stage 1 has not run.
func (r *RoutineDefinition) Stub() (*RoutineStub, error) {
	if r.stub == nil {
		return nil, &CompilationStageError{Routine: r.QualifiedName(), Stage: 1}
	}
	return r.stub, nil
}

// Stage1RoutineStub resolves the signature and adds the empty method to the
// output module. Calling it again is a no-op.
func (r *RoutineDefinition) Stage1RoutineStub() error {
	if r.stub != nil {
		return nil
	}
	sig, err := ResolveSignature(r.Signature)
	if err != nil {
		return err
	}
	fn := &ir.Function{
		Name:     r.Name.String(),
		Owner:    -1,
		Params:   nativeParams(sig),
		Return:   sig.Return.NativeType(),
		HostName: r.host,
	}
	if r.unit != nil {
		fn.Owner = r.unit.typeIndex
	}
	if r.unboxedReturn {
		fn.Return = sig.Return.WrappedNativeType()
	}
	if r.host != "" {
		if err := bindForeign(r.Name, sig); err != nil {
			return err
		}
	}
	idx := r.ctx.module.AddFunction(fn)
	r.stub = &RoutineStub{Signature: sig, Method: fn, Index: idx}
	r.ctx.log.Printf("stage1: %s -> function %d", r.QualifiedName(), idx)
	return nil
}

// Stage2RoutineBody lowers the routine body into its method.
func (r *RoutineDefinition) Stage2RoutineBody() error {
	stub, err := r.Stub()
	if err != nil {
		return err
	}
	switch {
	case r.host != "":
		return nil
	case r.emit != nil:
		if len(stub.Method.Chunk.Code) > 0 {
			return nil
		}
		if err := r.emit(&stub.Method.Chunk); err != nil {
			return err
		}
		return stub.Method.Chunk.Link()
	}
	if len(stub.Method.Chunk.Code) > 0 {
		return nil
	}
	rc := newRoutineCompiler(r, stub)
	if err := rc.compile(); err != nil {
		return err
	}
	r.ctx.log.Printf("stage2: %s (%d instructions)", r.QualifiedName(), len(stub.Method.Chunk.Code))
	return nil
}

// bindForeign checks that a host method named like the routine exists and
// agrees with its signature.
func bindForeign(name ast.Identifier, sig *SignatureDefinition) error {
	meta, ok := runtime.LookupHost(name.String())
	if !ok {
		return &ForeignBindingError{Routine: name, Msg: "no host method with this name"}
	}
	if meta.Arity != sig.Arity() {
		return &ForeignBindingError{
			Routine: name,
			Msg:     fmt.Sprintf("host method takes %d arguments, routine declares %d", meta.Arity, sig.Arity()),
		}
	}
	for i, p := range sig.Params {
		if want := hostKind(p.Type); want != meta.Params[i].Kind {
			return &ForeignBindingError{
				Routine: name,
				Msg:     fmt.Sprintf("parameter %d is %s, host method expects another type", i, p.Type.Name),
			}
		}
	}
	if hostKind(sig.Return) != meta.Result.Kind {
		return &ForeignBindingError{Routine: name, Msg: fmt.Sprintf("host method does not return %s", sig.Return.Name)}
	}
	return nil
}

func hostKind(u *UnitDefinition) builtins.TypeKind {
	switch u.WrappedNativeType().Kind {
	case ir.NativeInt32:
		return builtins.TypeInt
	case ir.NativeFloat64:
		return builtins.TypeFloat
	case ir.NativeString:
		return builtins.TypeString
	case ir.NativeVoid:
		return builtins.TypeVoid
	}
	return builtins.TypeAny
}
