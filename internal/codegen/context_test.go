package codegen

import (
	"errors"
	"math"
	"testing"

	"slang/internal/ast"
	"slang/internal/ir"
)

func TestNewContext_RegistersBuiltIns(t *testing.T) {
	ctx := NewContext()
	var names []string
	for _, u := range ctx.Units() {
		names = append(names, u.Name.String())
	}
	want := []string{"$void", "Integer", "Real", "String", "$Intrinsics", "$GlobalUnit"}
	if len(names) != len(want) {
		t.Fatalf("expected units %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected units %v, got %v", want, names)
		}
	}

	// every unit but the foreign void proxy owns a module type
	mod := ctx.Module()
	if len(mod.Types) != 5 {
		t.Fatalf("expected 5 module types, got %d", len(mod.Types))
	}
	if ctx.TypeSystem.Void.TypeIndex() != -1 || !ctx.TypeSystem.Void.IsForeign {
		t.Fatalf("expected void to be foreign with no module type")
	}
	integer := ctx.TypeSystem.Integer
	ti := mod.Types[integer.TypeIndex()]
	if ti.FullName() != "SLang.BuiltIn.Integer" || !ti.IsValue || ti.Fields[0].Type != ir.Int32 {
		t.Fatalf("unexpected Integer type info: %+v", ti)
	}
	if integer.NativeType() != ir.StructRef(integer.TypeIndex()) {
		t.Fatalf("expected Integer to be a value type, got %s", integer.NativeType())
	}
	if g := mod.Types[ctx.Global.TypeIndex()]; g.IsValue || g.Name != "$GlobalUnit" {
		t.Fatalf("unexpected global unit type: %+v", g)
	}
}

func TestContext_ResolveUnit(t *testing.T) {
	ctx := NewContext()
	u, err := ctx.ResolveUnit(ctx.UnitRef(ast.Ident("Real")))
	if err != nil || u != ctx.TypeSystem.Real {
		t.Fatalf("expected Real, got %v, %v", u, err)
	}
	if !ctx.UnitRef(ast.VoidName).IsVoid() {
		t.Fatalf("expected $void reference to be void")
	}

	_, err = ctx.ResolveUnit(ctx.UnitRef(ast.Ident("Missing")))
	var nf *UnitNotFoundError
	if !errors.As(err, &nf) || nf.Unit != ast.Ident("Missing") {
		t.Fatalf("expected *UnitNotFoundError for Missing, got %v", err)
	}
}

func TestContext_ResolveRoutine_GlobalThenRuntime(t *testing.T) {
	ctx := NewContext()

	r, err := ctx.ResolveRoutine(ctx.RoutineRef(ast.Ident("add")))
	if err != nil {
		t.Fatalf("ResolveRoutine error: %v", err)
	}
	if r.Owner() != ctx.Runtime {
		t.Fatalf("expected add from the runtime unit, got %s", r.QualifiedName())
	}

	shadow, err := ctx.DeclareRoutine(&ast.RoutineDecl{Name: ast.Ident("add")})
	if err != nil {
		t.Fatalf("DeclareRoutine error: %v", err)
	}
	r, err = ctx.ResolveRoutine(ctx.RoutineRef(ast.Ident("add")))
	if err != nil || r != shadow {
		t.Fatalf("expected global add to win, got %v, %v", r, err)
	}

	_, err = ctx.ResolveRoutine(ctx.RoutineRef(ast.Ident("nothing")))
	var nf *RoutineNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *RoutineNotFoundError, got %v", err)
	}

	unit := ctx.UnitRef(IntegerUnitName)
	op, err := ctx.ResolveRoutine(RoutineReference{Name: ast.Ident("operator+"), Unit: &unit, ctx: ctx})
	if err != nil || op.Owner() != ctx.TypeSystem.Integer {
		t.Fatalf("expected Integer.operator+, got %v, %v", op, err)
	}
	missing := ctx.UnitRef(ast.Ident("Nope"))
	_, err = ctx.ResolveRoutine(RoutineReference{Name: ast.Ident("x"), Unit: &missing, ctx: ctx})
	var unf *UnitNotFoundError
	if !errors.As(err, &unf) {
		t.Fatalf("expected *UnitNotFoundError, got %v", err)
	}
}

func TestContext_Duplicates(t *testing.T) {
	ctx := NewContext()
	if _, err := ctx.DeclareRoutine(&ast.RoutineDecl{Name: ast.Ident("f")}); err != nil {
		t.Fatalf("DeclareRoutine error: %v", err)
	}
	_, err := ctx.DeclareRoutine(&ast.RoutineDecl{Name: ast.Ident("f")})
	var dr *DuplicateRoutineError
	if !errors.As(err, &dr) {
		t.Fatalf("expected *DuplicateRoutineError, got %v", err)
	}

	_, err = ctx.DeclareUnit(&ast.UnitDecl{Name: IntegerUnitName, IsRef: true})
	var du *DuplicateUnitError
	if !errors.As(err, &du) {
		t.Fatalf("expected *DuplicateUnitError, got %v", err)
	}
}

func TestContext_DeclareUnit(t *testing.T) {
	ctx := NewContext()
	before := len(ctx.Module().Types)
	u, err := ctx.DeclareUnit(&ast.UnitDecl{
		Name:  ast.Ident("Point"),
		IsRef: false,
		Declarations: []ast.Declaration{
			&ast.RoutineDecl{Name: ast.Ident("origin")},
		},
	})
	if err != nil {
		t.Fatalf("DeclareUnit error: %v", err)
	}
	if len(ctx.Module().Types) != before+1 {
		t.Fatalf("expected user unit type to be added immediately")
	}
	if u.NativeType().Kind != ir.NativeStruct || !ctx.Module().Types[u.TypeIndex()].IsValue {
		t.Fatalf("expected val unit to be a value type, got %s", u.NativeType())
	}
	if len(u.Routines()) != 1 || u.Routines()[0].Owner() != u {
		t.Fatalf("expected routine origin owned by Point")
	}

	_, err = ctx.DeclareUnit(&ast.UnitDecl{Name: ast.Ident("Bad"), IsForeign: true})
	var unsup *UnsupportedError
	if !errors.As(err, &unsup) {
		t.Fatalf("expected *UnsupportedError for foreign unit, got %v", err)
	}
}

func TestAssignability_IsNominal(t *testing.T) {
	ctx := NewContext()
	ts := ctx.TypeSystem
	if !ts.Integer.IsAssignableFrom(ts.Integer) {
		t.Fatalf("expected Integer to be assignable from Integer")
	}
	if ts.Integer.IsAssignableFrom(ts.Real) || ts.Real.IsAssignableFrom(ts.Integer) {
		t.Fatalf("expected no numeric coercion between Integer and Real")
	}
	if !ts.String.IsAssignableTo(ts.String) || ts.String.IsAssignableTo(ts.Void) {
		t.Fatalf("unexpected IsAssignableTo results")
	}

	err := ts.Integer.AssertIsAssignableFrom(ts.Real)
	var tm *TypeMismatchError
	if !errors.As(err, &tm) || tm.Expected != IntegerUnitName || tm.Actual != RealUnitName {
		t.Fatalf("expected Integer/Real mismatch, got %v", err)
	}
	err = ts.Real.AssertIsAssignableTo(ts.Integer)
	if !errors.As(err, &tm) || tm.Expected != IntegerUnitName {
		t.Fatalf("expected mismatch with Integer expected, got %v", err)
	}

	v := NewLocalVariable(ts.Integer, ast.Ident("x"))
	if !ts.Integer.IsAssignableFrom(v) {
		t.Fatalf("expected variables to carry their unit type")
	}
}

func TestStage2BeforeStage1(t *testing.T) {
	ctx := NewContext()
	r, err := ctx.DeclareRoutine(&ast.RoutineDecl{Name: ast.Ident("f")})
	if err != nil {
		t.Fatalf("DeclareRoutine error: %v", err)
	}

	err = ctx.Stage2()
	var se *CompilationStageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *CompilationStageError, got %v", err)
	}
	if _, err := r.Stub(); !errors.As(err, &se) {
		t.Fatalf("expected stub access to fail before stage 1, got %v", err)
	}
}

// A unit whose peers have not completed stage 1 cannot lower calls into them.
func TestStage2_CalleeNotStubbed(t *testing.T) {
	ctx := NewContext()
	_, err := ctx.DeclareRoutine(&ast.RoutineDecl{
		Name: ast.Ident("f"),
		Body: []ast.Stmt{
			&ast.Call{Callee: ast.Callee{Routine: ast.Ident("StandardIO$put$String")}, Args: []ast.Expr{
				&ast.Literal{Value: "x", Type: ast.UnitRef{Name: StringUnitName}},
			}},
		},
	})
	if err != nil {
		t.Fatalf("DeclareRoutine error: %v", err)
	}
	if err := ctx.Global.Stage1RoutineStubs(); err != nil {
		t.Fatalf("Stage1RoutineStubs error: %v", err)
	}

	err = ctx.Global.Stage2RoutineBody()
	var se *CompilationStageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *CompilationStageError, got %v", err)
	}
}

func TestContext_CompileMutualRecursion(t *testing.T) {
	ctx := NewContext()
	integer := ast.UnitRef{Name: IntegerUnitName}
	n := ast.Ident("n")
	callOther := func(self, other string) *ast.RoutineDecl {
		return &ast.RoutineDecl{
			Name:       ast.Ident(self),
			Params:     []ast.Param{{Type: integer, Name: n}},
			ReturnType: integer,
			Body: []ast.Stmt{
				&ast.Return{Value: &ast.Call{
					Callee: ast.Callee{Routine: ast.Ident(other)},
					Args:   []ast.Expr{&ast.Reference{Name: n}},
				}},
			},
		}
	}
	a, err := ctx.DeclareRoutine(callOther("a", "b"))
	if err != nil {
		t.Fatalf("DeclareRoutine error: %v", err)
	}
	b, err := ctx.DeclareRoutine(callOther("b", "a"))
	if err != nil {
		t.Fatalf("DeclareRoutine error: %v", err)
	}
	if err := ctx.Compile(); err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	sa, _ := a.Stub()
	sb, _ := b.Stub()
	if !callsFunction(sa.Method, sb.Index) || !callsFunction(sb.Method, sa.Index) {
		t.Fatalf("expected a and b to call each other")
	}
}

func callsFunction(fn *ir.Function, index int) bool {
	for _, in := range fn.Chunk.Code {
		if in.Op == ir.OpCall && in.A == index {
			return true
		}
	}
	return false
}

func TestLoadFromLiteral(t *testing.T) {
	ctx := NewContext()
	ts := ctx.TypeSystem

	tests := []struct {
		unit    *UnitDefinition
		literal string
		want    ir.Constant
	}{
		{ts.Integer, "42", ir.Constant{Kind: ir.ConstInt, Int: 42}},
		{ts.Integer, " -7 ", ir.Constant{Kind: ir.ConstInt, Int: -7}},
		{ts.Integer, "+2147483647", ir.Constant{Kind: ir.ConstInt, Int: 2147483647}},
		{ts.Integer, "-2147483648", ir.Constant{Kind: ir.ConstInt, Int: -2147483648}},
		{ts.Real, "2.5", ir.Constant{Kind: ir.ConstFloat, Float: 2.5}},
		{ts.Real, "1e3", ir.Constant{Kind: ir.ConstFloat, Float: 1000}},
		{ts.Real, "-Infinity", ir.Constant{Kind: ir.ConstFloat, Float: math.Inf(-1)}},
		{ts.String, " raw text ", ir.Constant{Kind: ir.ConstString, String: " raw text "}},
	}
	for _, tt := range tests {
		var c ir.Chunk
		if err := tt.unit.LoadFromLiteral(tt.literal, &c); err != nil {
			t.Fatalf("%s %q: unexpected error %v", tt.unit, tt.literal, err)
		}
		if len(c.Code) != 1 || c.Code[0].Op != ir.OpConst {
			t.Fatalf("%s %q: expected a single const load, got %v", tt.unit, tt.literal, c.Code)
		}
		if got := c.Consts[c.Code[0].A]; got != tt.want {
			t.Fatalf("%s %q: expected %+v, got %+v", tt.unit, tt.literal, tt.want, got)
		}
	}

	for _, bad := range []struct {
		unit    *UnitDefinition
		literal string
	}{
		{ts.Integer, "9999999999999999999"},
		{ts.Integer, "2147483648"},
		{ts.Integer, "1.5"},
		{ts.Integer, ""},
		{ts.Real, "abc"},
		{ts.Real, "0x1p-2"},
		{ts.Real, "1,5"},
		{ts.Real, "Inf"},
		{ts.Real, "+inf"},
		{ts.Real, "infinity"},
		{ts.Real, "nan"},
	} {
		var c ir.Chunk
		err := bad.unit.LoadFromLiteral(bad.literal, &c)
		var le *LoadFromLiteralError
		if !errors.As(err, &le) {
			t.Fatalf("%s %q: expected *LoadFromLiteralError, got %v", bad.unit, bad.literal, err)
		}
		if len(c.Code) != 0 {
			t.Fatalf("%s %q: expected nothing emitted on failure", bad.unit, bad.literal)
		}
	}

	var c ir.Chunk
	err := ts.Void.LoadFromLiteral("1", &c)
	var ns *LiteralsNotSupportedError
	if !errors.As(err, &ns) {
		t.Fatalf("expected *LiteralsNotSupportedError for void, got %v", err)
	}
	if ctx.Global.CanLoadFromLiteral() || !ts.String.CanLoadFromLiteral() {
		t.Fatalf("unexpected CanLoadFromLiteral results")
	}
}

func TestBoxedUnboxed(t *testing.T) {
	ctx := NewContext()
	integer := ctx.TypeSystem.Integer

	var c ir.Chunk
	if _, err := integer.Boxed(&c); err == nil {
		t.Fatalf("expected boxing to fail before the constructor exists")
	}

	if err := integer.Stage1RoutineStubs(); err != nil {
		t.Fatalf("Stage1RoutineStubs error: %v", err)
	}
	c.Emit(ir.OpConst, c.AddConstInt(3), 0)
	v, err := integer.Boxed(&c)
	if err != nil {
		t.Fatalf("Boxed error: %v", err)
	}
	if v.Type() != integer {
		t.Fatalf("expected boxed variable of Integer, got %s", v.Type())
	}
	v.Load(&c)
	integer.Unboxed(&c)

	want := []ir.OpCode{ir.OpConst, ir.OpStoreLocal, ir.OpLoadLocalAddr, ir.OpLoadLocal, ir.OpCall, ir.OpLoadLocal, ir.OpLoadField}
	if len(c.Code) != len(want) {
		t.Fatalf("expected %v, got %v", want, c.Code)
	}
	for i, op := range want {
		if c.Code[i].Op != op {
			t.Fatalf("expected %v, got %v", want, c.Code)
		}
	}
	if c.Locals[0] != ir.Int32 || c.Locals[1] != integer.NativeType() {
		t.Fatalf("expected raw and boxed locals, got %v", c.Locals)
	}
}

func TestBoxed_NonWrapperUnits(t *testing.T) {
	ctx := NewContext()
	for _, u := range []*UnitDefinition{ctx.TypeSystem.Void, ctx.Runtime} {
		var c ir.Chunk
		v, err := u.Boxed(&c)
		var ue *UnsupportedError
		if !errors.As(err, &ue) {
			t.Fatalf("%s: expected UnsupportedError, got %v", u.Name, err)
		}
		if v != nil || len(c.Code) != 0 {
			t.Fatalf("%s: expected no variable and no code, got %v, %v", u.Name, v, c.Code)
		}
	}
}
