package codegen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"slang/internal/ast"
	"slang/internal/ir"
)

var (
	VoidUnitName    = ast.VoidName
	IntegerUnitName = ast.Ident("Integer")
	RealUnitName    = ast.Ident("Real")
	StringUnitName  = ast.Ident("String")
)

// TypeSystem holds the built-in units of a Context.
type TypeSystem struct {
	Void    *UnitDefinition
	Integer *UnitDefinition
	Real    *UnitDefinition
	String  *UnitDefinition
}

func newVoidUnit(ctx *Context) *UnitDefinition {
	return newForeignUnit(ctx, VoidUnitName, ir.Void)
}

func newIntegerUnit(ctx *Context) *UnitDefinition {
	u := newWrapperUnit(ctx, IntegerUnitName, ir.Int32, func(literal string, c *ir.Chunk) error {
		n, err := strconv.ParseInt(strings.TrimSpace(literal), 10, 32)
		if err != nil {
			return err
		}
		c.Emit(ir.OpConst, c.AddConstInt(int32(n)), 0)
		return nil
	})
	for _, op := range []struct{ name, intrinsic string }{
		{"operator+", "add"},
		{"operator-", "sub"},
	} {
		r := NewRoutine(ctx, integerOperator(op.name, op.intrinsic))
		r.positional = true
		// names are distinct by construction
		_ = u.RegisterRoutine(r)
	}
	return u
}

// integerOperator builds "routine op(lhs: Integer, rhs: Integer): Integer
// do return $Intrinsics.intrinsic(lhs, rhs) end".
func integerOperator(name, intrinsic string) *ast.RoutineDecl {
	integer := ast.UnitRef{Name: IntegerUnitName}
	lhs, rhs := ast.Ident("lhs"), ast.Ident("rhs")
	return &ast.RoutineDecl{
		Name:       ast.Ident(name),
		Params:     []ast.Param{{Type: integer, Name: lhs}, {Type: integer, Name: rhs}},
		ReturnType: integer,
		Body: []ast.Stmt{
			&ast.Return{Value: &ast.Call{
				Callee: ast.Callee{Unit: RuntimeUnitName, Routine: ast.Ident(intrinsic)},
				Args:   []ast.Expr{&ast.Reference{Name: lhs}, &ast.Reference{Name: rhs}},
			}},
		},
	}
}

var errHexFloat = errors.New("hexadecimal and digit-separated reals are not allowed")

func newRealUnit(ctx *Context) *UnitDefinition {
	return newWrapperUnit(ctx, RealUnitName, ir.Float64, func(literal string, c *ir.Chunk) error {
		s := strings.TrimSpace(literal)
		if strings.ContainsAny(s, "xX_") {
			return errHexFloat
		}
		if word := strings.TrimLeft(s, "+-"); word != "" && !strings.ContainsAny(word[:1], "0123456789.") {
			if word != "Infinity" && word != "NaN" {
				return fmt.Errorf("%q is not a real number", s)
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		c.Emit(ir.OpConst, c.AddConstFloat(f), 0)
		return nil
	})
}

func newStringUnit(ctx *Context) *UnitDefinition {
	return newWrapperUnit(ctx, StringUnitName, ir.String, func(literal string, c *ir.Chunk) error {
		c.Emit(ir.OpConst, c.AddConstString(literal), 0)
		return nil
	})
}
