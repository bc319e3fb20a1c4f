package codegen

import (
	"fmt"

	"slang/internal/ast"
	"slang/internal/ir"
)

// routineCompiler lowers one source-defined routine body.
type routineCompiler struct {
	ctx     *Context
	routine *RoutineDefinition
	sig     *SignatureDefinition
	chunk   *ir.Chunk

	// nil for positional routines
	scope *Scope
}

func newRoutineCompiler(r *RoutineDefinition, stub *RoutineStub) *routineCompiler {
	return &routineCompiler{
		ctx:     r.ctx,
		routine: r,
		sig:     stub.Signature,
		chunk:   &stub.Method.Chunk,
	}
}

func (rc *routineCompiler) name() string { return rc.routine.QualifiedName() }

func (rc *routineCompiler) compile() error {
	if !rc.routine.positional {
		rc.scope = NewScope()
		for i, p := range rc.sig.Params {
			if p.Name.IsEmpty() {
				continue
			}
			if err := rc.scope.Declare(NewArgumentVariable(p.Type, p.Name, i)); err != nil {
				return fmt.Errorf("parameters of %s: %w", rc.name(), err)
			}
		}
	}

	for _, st := range rc.routine.decl.Body {
		if err := rc.compileStmt(st); err != nil {
			return err
		}
	}

	// routines that fall off the end get an implicit return
	code := rc.chunk.Code
	if len(code) == 0 || code[len(code)-1].Op != ir.OpReturn || rc.chunk.LabelAtEnd() {
		if rc.sig.Return.NativeType().IsVoid() {
			rc.chunk.Emit(ir.OpReturn, 0, 0)
		} else {
			// only valid when unreachable; the verifier rejects it otherwise
			rc.chunk.Emit(ir.OpReturn, 0, 1)
		}
	}
	return rc.chunk.Link()
}

func (rc *routineCompiler) compileBlock(b *ast.Block) error {
	prev := rc.scope
	if prev != nil {
		rc.scope = prev.Child()
	}
	defer func() { rc.scope = prev }()

	for _, st := range b.Stmts {
		if err := rc.compileStmt(st); err != nil {
			return err
		}
	}
	return nil
}

func (rc *routineCompiler) compileStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Block:
		return rc.compileBlock(st)

	case *ast.Call:
		ret, err := rc.compileCall(st)
		if err != nil {
			return err
		}
		if !ret.NativeType().IsVoid() {
			rc.chunk.Emit(ir.OpPop, 0, 0)
		}
		return nil

	case *ast.Return:
		return rc.compileReturn(st)

	case *ast.VariableDecl:
		return rc.compileVariableDecl(st)

	case *ast.Assignment:
		return rc.compileAssignment(st)

	case *ast.If:
		return rc.compileIf(st)

	default:
		return &UnsupportedError{What: fmt.Sprintf("statement %T in %s", s, rc.name())}
	}
}

func (rc *routineCompiler) compileReturn(st *ast.Return) error {
	typ := rc.ctx.TypeSystem.Void
	if st.Value != nil {
		var err error
		if typ, err = rc.compileExpr(st.Value); err != nil {
			return err
		}
	}
	if err := rc.sig.Return.AssertIsAssignableFrom(typ); err != nil {
		return fmt.Errorf("return in %s: %w", rc.name(), err)
	}
	if rc.sig.Return.NativeType().IsVoid() {
		rc.chunk.Emit(ir.OpReturn, 0, 0)
		return nil
	}
	if rc.routine.unboxedReturn {
		rc.sig.Return.Unboxed(rc.chunk)
	}
	rc.chunk.Emit(ir.OpReturn, 0, 1)
	return nil
}

func (rc *routineCompiler) compileVariableDecl(st *ast.VariableDecl) error {
	if rc.scope == nil {
		return &UnsupportedError{What: fmt.Sprintf("variable declaration in %s", rc.name())}
	}
	var declared *UnitDefinition
	if st.Type != nil {
		u, err := rc.ctx.ResolveUnit(rc.ctx.UnitRef(st.Type.Name))
		if err != nil {
			return err
		}
		declared = u
	}

	var v *LocalVariable
	switch {
	case st.Init != nil:
		typ, err := rc.compileExpr(st.Init)
		if err != nil {
			return err
		}
		if declared == nil {
			declared = typ
		} else if err := declared.AssertIsAssignableFrom(typ); err != nil {
			return fmt.Errorf("variable %s in %s: %w", st.Name, rc.name(), err)
		}
		v = NewLocalVariable(declared, st.Name)
		v.Store(rc.chunk)
	case declared != nil:
		v = NewLocalVariable(declared, st.Name)
	default:
		return &UnsupportedError{What: fmt.Sprintf("variable %s without type and initializer", st.Name)}
	}
	return rc.scope.Declare(v)
}

func (rc *routineCompiler) compileAssignment(st *ast.Assignment) error {
	target, ok := st.Target.(*ast.Reference)
	if !ok {
		return &UnsupportedError{What: fmt.Sprintf("assignment to %T in %s", st.Target, rc.name())}
	}
	typ, err := rc.compileExpr(st.Value)
	if err != nil {
		return err
	}
	v, err := rc.lookup(target.Name)
	if err != nil {
		return err
	}
	if err := v.Type().AssertIsAssignableFrom(typ); err != nil {
		return fmt.Errorf("assignment to %s in %s: %w", target.Name, rc.name(), err)
	}
	v.Store(rc.chunk)
	return nil
}

// compileIf lowers "if c1 then b1 elsif c2 then b2 ... else bN end". Every
// condition but the first is reached from the previous condition's
// branch-if-false; every body jumps to the shared join point.
func (rc *routineCompiler) compileIf(st *ast.If) error {
	if len(st.Branches) == 0 {
		return &EmptyConditionalsError{Routine: rc.name()}
	}
	cond := rc.ctx.TypeSystem.Integer
	join := rc.chunk.NewLabel()

	var next ir.Label
	for i, br := range st.Branches {
		if i > 0 {
			rc.chunk.MarkLabel(next)
		}
		typ, err := rc.compileExpr(br.Cond)
		if err != nil {
			return err
		}
		if err := cond.AssertIsAssignableFrom(typ); err != nil {
			return fmt.Errorf("condition in %s: %w", rc.name(), err)
		}
		typ.Unboxed(rc.chunk)

		next = rc.chunk.NewLabel()
		rc.chunk.EmitJump(ir.OpJumpIfFalse, next)

		if err := rc.compileBlock(br.Body); err != nil {
			return err
		}
		rc.chunk.EmitJump(ir.OpJump, join)
	}

	rc.chunk.MarkLabel(next)
	if st.Else != nil {
		if err := rc.compileBlock(st.Else); err != nil {
			return err
		}
	}
	rc.chunk.MarkLabel(join)
	return nil
}

// compileExpr leaves the value of e on the stack (nothing for void) and
// returns its unit.
func (rc *routineCompiler) compileExpr(e ast.Expr) (*UnitDefinition, error) {
	switch ex := e.(type) {
	case *ast.Literal:
		return rc.compileLiteral(ex)

	case *ast.Reference:
		v, err := rc.lookup(ex.Name)
		if err != nil {
			return nil, err
		}
		v.Load(rc.chunk)
		return v.Type(), nil

	case *ast.Call:
		return rc.compileCall(ex)

	default:
		return nil, &UnsupportedError{What: fmt.Sprintf("expression %T in %s", e, rc.name())}
	}
}

func (rc *routineCompiler) compileLiteral(lit *ast.Literal) (*UnitDefinition, error) {
	u, err := rc.ctx.ResolveUnit(rc.ctx.UnitRef(lit.Type.Name))
	if err != nil {
		return nil, err
	}
	if err := u.LoadFromLiteral(lit.Value, rc.chunk); err != nil {
		return nil, err
	}
	if u.wrapped != nil && !u.IsForeign {
		v, err := u.Boxed(rc.chunk)
		if err != nil {
			return nil, err
		}
		v.Load(rc.chunk)
	}
	return u, nil
}

func (rc *routineCompiler) compileCall(call *ast.Call) (*UnitDefinition, error) {
	ref := RoutineReference{Name: call.Callee.Routine, ctx: rc.ctx}
	switch call.Callee.Unit {
	case ast.Identifier{}:
	case RuntimeUnitName:
		// only intrinsics may be named by unit
		unit := rc.ctx.UnitRef(RuntimeUnitName)
		ref.Unit = &unit
	default:
		return nil, &UnsupportedError{What: fmt.Sprintf("qualified callee %s in %s", call.Callee, rc.name())}
	}
	routine, err := rc.ctx.ResolveRoutine(ref)
	if err != nil {
		return nil, err
	}
	if routine.unboxedReturn {
		return nil, &UnsupportedError{What: fmt.Sprintf("call to entry routine %s", routine.QualifiedName())}
	}
	stub, err := routine.Stub()
	if err != nil {
		return nil, err
	}

	args := make([]Typed, 0, len(call.Args))
	for _, a := range call.Args {
		typ, err := rc.compileExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, typ)
	}
	if err := VerifyCallArguments(routine.QualifiedName(), stub.Signature, args); err != nil {
		return nil, fmt.Errorf("call in %s: %w", rc.name(), err)
	}

	rc.chunk.Emit(ir.OpCall, stub.Index, len(args))
	return stub.Signature.Return, nil
}

// lookup resolves a name through the scope chain, or by parameter position
// for routines lowered without one.
func (rc *routineCompiler) lookup(name ast.Identifier) (Variable, error) {
	if rc.scope == nil {
		if i := rc.sig.ParamIndex(name); i >= 0 {
			return NewArgumentVariable(rc.sig.Params[i].Type, name, i), nil
		}
		return nil, &UnresolvedReferenceError{
			Routine: rc.name(),
			Name:    name,
			Err:     &VariableNotFoundError{Name: name},
		}
	}
	v, err := rc.scope.Get(name)
	if err != nil {
		return nil, &UnresolvedReferenceError{Routine: rc.name(), Name: name, Err: err}
	}
	return v, nil
}
