package codegen

import (
	"fmt"
	"io"
	"log"

	"slang/internal/ast"
	"slang/internal/ir"
	"slang/internal/runtime"
	"slang/internal/runtime/builtins"
)

// Option configures a Context.
type Option func(*Context)

// WithLogger traces registration and compilation stages to l.
func WithLogger(l *log.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.log = l
		}
	}
}

// Context is the symbol table of one compilation. It owns every unit,
// resolves unit and routine references and drives the two compilation
// stages. A Context is not safe for concurrent use.
type Context struct {
	module *ir.Module

	units  []*UnitDefinition
	byName map[ast.Identifier]*UnitDefinition

	TypeSystem TypeSystem
	Runtime    *UnitDefinition
	Global     *UnitDefinition

	hostStubs map[string]int
	log       *log.Logger
}

// NewContext creates a context with the built-in units, the runtime unit and
// an empty global unit registered, in that order.
func NewContext(opts ...Option) *Context {
	c := &Context{
		module:    ir.NewModule(),
		byName:    make(map[ast.Identifier]*UnitDefinition),
		hostStubs: make(map[string]int),
		log:       log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.TypeSystem = TypeSystem{
		Void:    c.mustRegister(newVoidUnit(c)),
		Integer: c.mustRegister(newIntegerUnit(c)),
		Real:    c.mustRegister(newRealUnit(c)),
		String:  c.mustRegister(newStringUnit(c)),
	}
	c.Runtime = c.mustRegister(newIntrinsicsUnit(c))
	c.Global = c.mustRegister(newClassUnit(c, GlobalUnitName))
	return c
}

func (c *Context) mustRegister(u *UnitDefinition) *UnitDefinition {
	if err := c.RegisterUnit(u); err != nil {
		panic(err)
	}
	return u
}

// Module returns the output module being assembled.
func (c *Context) Module() *ir.Module { return c.module }

// Units returns all units in registration order.
func (c *Context) Units() []*UnitDefinition { return c.units }

// UnitRef makes a reference to the unit named name in c.
func (c *Context) UnitRef(name ast.Identifier) UnitReference {
	return UnitReference{Name: name, ctx: c}
}

// RoutineRef makes an unqualified routine reference.
func (c *Context) RoutineRef(name ast.Identifier) RoutineReference {
	return RoutineReference{Name: name, ctx: c}
}

// RegisterUnit adds u to the symbol table. Non-foreign units get their type
// added to the output module right away.
func (c *Context) RegisterUnit(u *UnitDefinition) error {
	if _, exists := c.byName[u.Name]; exists {
		return &DuplicateUnitError{Unit: u.Name}
	}
	if !u.IsForeign {
		u.typeIndex = c.module.AddType(u.typeInfo())
		u.native.Index = u.typeIndex
	}
	c.units = append(c.units, u)
	c.byName[u.Name] = u
	c.log.Printf("unit %s registered (type %d)", u.Name, u.typeIndex)
	return nil
}

// DeclareUnit registers a user unit and its routines.
func (c *Context) DeclareUnit(decl *ast.UnitDecl) (*UnitDefinition, error) {
	if decl.IsForeign {
		return nil, &UnsupportedError{What: fmt.Sprintf("foreign unit %s", decl.Name)}
	}
	u := newClassUnit(c, decl.Name)
	if !decl.IsRef {
		u.native = ir.StructRef(-1)
	}
	for _, d := range decl.Declarations {
		rd, ok := d.(*ast.RoutineDecl)
		if !ok {
			return nil, &UnsupportedError{What: fmt.Sprintf("declaration %T in unit %s", d, decl.Name)}
		}
		if err := u.RegisterRoutine(NewRoutine(c, rd)); err != nil {
			return nil, err
		}
	}
	if err := c.RegisterUnit(u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeclareRoutine registers a top-level routine in the global unit.
func (c *Context) DeclareRoutine(decl *ast.RoutineDecl) (*RoutineDefinition, error) {
	r := NewRoutine(c, decl)
	if err := c.Global.RegisterRoutine(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Context) ResolveUnit(ref UnitReference) (*UnitDefinition, error) {
	if u, ok := c.byName[ref.Name]; ok {
		return u, nil
	}
	return nil, &UnitNotFoundError{Unit: ref.Name}
}

// ResolveRoutine resolves a qualified reference inside its unit, and an
// unqualified one in the global unit, then in the runtime unit.
func (c *Context) ResolveRoutine(ref RoutineReference) (*RoutineDefinition, error) {
	if ref.Unit != nil {
		u, err := c.ResolveUnit(*ref.Unit)
		if err != nil {
			return nil, err
		}
		return u.ResolveRoutine(ref)
	}
	if r, err := c.Global.ResolveRoutine(ref); err == nil {
		return r, nil
	}
	if r, err := c.Runtime.ResolveRoutine(ref); err == nil {
		return r, nil
	}
	return nil, &RoutineNotFoundError{Routine: ref.Name}
}

// Stage1 creates the routine stubs of every unit.
func (c *Context) Stage1() error {
	for _, u := range c.units {
		if err := u.Stage1RoutineStubs(); err != nil {
			return err
		}
	}
	return nil
}

// Stage2 lowers the routine bodies of every unit.
func (c *Context) Stage2() error {
	for _, u := range c.units {
		if err := u.Stage2RoutineBody(); err != nil {
			return err
		}
	}
	return nil
}

// Compile runs stage 1 over all units, then stage 2 over all units. Any
// routine body may thus call any routine regardless of declaration order.
func (c *Context) Compile() error {
	if err := c.Stage1(); err != nil {
		return err
	}
	return c.Stage2()
}

// hostImport returns the index of the host function stub for the host
// method name, creating it on first use.
func (c *Context) hostImport(name string) (int, error) {
	if idx, ok := c.hostStubs[name]; ok {
		return idx, nil
	}
	meta, ok := runtime.LookupHost(name)
	if !ok {
		return -1, &ForeignBindingError{Routine: ast.Ident(name), Msg: "no host method with this name"}
	}
	fn := &ir.Function{
		Name:     name,
		Owner:    -1,
		Return:   hostType(meta.Result.Kind),
		HostName: name,
	}
	for i, p := range meta.Params {
		fn.Params = append(fn.Params, ir.Param{Name: meta.ParamNames[i], Type: hostType(p.Kind)})
	}
	idx := c.module.AddFunction(fn)
	c.hostStubs[name] = idx
	return idx, nil
}

func hostType(k builtins.TypeKind) ir.TypeRef {
	switch k {
	case builtins.TypeInt:
		return ir.Int32
	case builtins.TypeFloat:
		return ir.Float64
	case builtins.TypeString:
		return ir.String
	}
	return ir.Void
}
