package codegen

import (
	"fmt"

	"slang/internal/ast"
	"slang/internal/ir"
)

// EntryRoutineName names the anonymous routine of a compilation.
var EntryRoutineName = ast.Ident("$Anonymous")

// Compile lowers a whole compilation into a verified module whose entry
// point is the anonymous routine. On error no module is returned.
func Compile(comp *ast.Compilation, opts ...Option) (*ir.Module, error) {
	ctx := NewContext(opts...)

	anon := comp.Anonymous
	if anon == nil {
		anon = &ast.RoutineDecl{}
	}
	entryDecl := *anon
	entryDecl.Name = EntryRoutineName
	entry := NewRoutine(ctx, &entryDecl)
	entry.unboxedReturn = true
	if err := ctx.Global.RegisterRoutine(entry); err != nil {
		return nil, err
	}

	for _, d := range comp.Declarations {
		switch decl := d.(type) {
		case *ast.RoutineDecl:
			if _, err := ctx.DeclareRoutine(decl); err != nil {
				return nil, err
			}
		case *ast.UnitDecl:
			if _, err := ctx.DeclareUnit(decl); err != nil {
				return nil, err
			}
		default:
			return nil, &UnsupportedError{What: fmt.Sprintf("declaration %T", d)}
		}
	}

	if err := ctx.Compile(); err != nil {
		return nil, err
	}

	stub, err := entry.Stub()
	if err != nil {
		return nil, err
	}
	mod := ctx.Module()
	mod.MainIndex = stub.Index

	if err := ir.Verify(mod); err != nil {
		return nil, err
	}
	return mod, nil
}
