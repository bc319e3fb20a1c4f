package codegen

import (
	"slang/internal/ast"
	"slang/internal/ir"
)

var (
	RuntimeUnitName = ast.Ident("$Intrinsics")
	GlobalUnitName  = ast.Ident("$GlobalUnit")
)

// host methods the console intrinsics forward to
const (
	hostPutInteger = "putInteger"
	hostPutReal    = "putReal"
	hostPutString  = "putString"
)

// newIntrinsicsUnit creates the runtime unit: the fixed catalog of native
// operations that built-in operators and the standard library delegate to.
func newIntrinsicsUnit(ctx *Context) *UnitDefinition {
	u := newClassUnit(ctx, RuntimeUnitName)
	ts := &ctx.TypeSystem
	integer := ctx.UnitRef(IntegerUnitName)
	void := ctx.UnitRef(VoidUnitName)

	unary := NewSignatureReference(integer, integer)
	binary := NewSignatureReference(integer, integer, integer)

	add := func(name string, sig SignatureReference, emit nativeBody) {
		// the catalog has no duplicates
		_ = u.RegisterRoutine(NewNativeRoutine(ctx, ast.Ident(name), sig, emit))
	}

	// arithmetic keeps the result in a local and constructs it in place
	arith := func(op ir.OpCode, arity int) nativeBody {
		return func(c *ir.Chunk) error {
			result := NewLocalVariable(ts.Integer, ast.Identifier{})
			result.LoadAddress(c)
			for i := 0; i < arity; i++ {
				c.Emit(ir.OpLoadArg, i, 0)
				ts.Integer.Unboxed(c)
			}
			c.Emit(op, 0, 0)
			if err := ts.Integer.emitCtorCall(c); err != nil {
				return err
			}
			result.Load(c)
			c.Emit(ir.OpReturn, 0, 1)
			return nil
		}
	}

	// comparisons box the 0/1 produced by op
	compare := func(op ir.OpCode) nativeBody {
		return func(c *ir.Chunk) error {
			c.Emit(ir.OpLoadArg, 0, 0)
			ts.Integer.Unboxed(c)
			c.Emit(ir.OpLoadArg, 1, 0)
			ts.Integer.Unboxed(c)
			c.Emit(op, 0, 0)
			return boxAndReturn(ts.Integer, c)
		}
	}

	// put forwards the raw argument to a host console method
	put := func(unit *UnitDefinition, host string) nativeBody {
		return func(c *ir.Chunk) error {
			idx, err := ctx.hostImport(host)
			if err != nil {
				return err
			}
			c.Emit(ir.OpLoadArg, 0, 0)
			unit.Unboxed(c)
			c.Emit(ir.OpCall, idx, 1)
			c.Emit(ir.OpReturn, 0, 0)
			return nil
		}
	}

	add("add", binary, arith(ir.OpAdd, 2))
	add("sub", binary, arith(ir.OpSub, 2))
	add("neg", unary, arith(ir.OpNeg, 1))
	add("not", unary, func(c *ir.Chunk) error {
		c.Emit(ir.OpLoadArg, 0, 0)
		ts.Integer.Unboxed(c)
		c.Emit(ir.OpConst, c.AddConstInt(0), 0)
		c.Emit(ir.OpCeq, 0, 0)
		return boxAndReturn(ts.Integer, c)
	})
	add("clt", binary, compare(ir.OpClt))
	add("cgt", binary, compare(ir.OpCgt))
	add("ceq", binary, compare(ir.OpCeq))

	add("StandardIO$put$Integer", NewSignatureReference(void, integer), put(ts.Integer, hostPutInteger))
	add("StandardIO$put$Real", NewSignatureReference(void, ctx.UnitRef(RealUnitName)), put(ts.Real, hostPutReal))
	add("StandardIO$put$String", NewSignatureReference(void, ctx.UnitRef(StringUnitName)), put(ts.String, hostPutString))
	return u
}

func boxAndReturn(u *UnitDefinition, c *ir.Chunk) error {
	v, err := u.Boxed(c)
	if err != nil {
		return err
	}
	v.Load(c)
	c.Emit(ir.OpReturn, 0, 1)
	return nil
}

// emitCtorCall calls the wrapper constructor; the stack must hold the target
// address and the raw value.
func (u *UnitDefinition) emitCtorCall(c *ir.Chunk) error {
	if u.wrapped == nil || u.wrapped.ctor == nil {
		return &CompilationStageError{Routine: u.Name.String() + "::.ctor", Stage: 1}
	}
	c.Emit(ir.OpCall, u.wrapped.ctorIndex, 2)
	return nil
}
