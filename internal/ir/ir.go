package ir

import "fmt"

// OpCode is an opcode for the SLang VM bytecode
type OpCode byte

const (
	OpNop OpCode = iota

	OpConst         // A = const index; push const[A]
	OpLoadArg       // A = argument index; push arg[A]
	OpStoreArg      // A = argument index; pop into arg[A]
	OpLoadArgAddr   // A = argument index; push address of arg[A]
	OpLoadLocal     // A = local index; push local[A]
	OpStoreLocal    // A = local index; pop into local[A]
	OpLoadLocalAddr // A = local index; push address of local[A]
	OpPop

	// Value-type fields
	OpLoadField  // A = field index; pop struct or address, push field
	OpStoreField // A = field index; pop value, pop address, store field

	// Int32 math and comparisons; comparisons push 1 or 0
	OpAdd
	OpSub
	OpNeg
	OpCeq
	OpClt
	OpCgt

	// Control flow
	OpJump        // A = absolute ip
	OpJumpIfFalse // A = absolute ip, pop int32 cond (0 is false)

	// Calls / returns
	OpCall   // A = function index, B = number of arguments
	OpReturn // B = 0 (without result) or 1 (with result returning)
)

var opNames = [...]string{
	OpNop:           "nop",
	OpConst:         "const",
	OpLoadArg:       "ldarg",
	OpStoreArg:      "starg",
	OpLoadArgAddr:   "ldarga",
	OpLoadLocal:     "ldloc",
	OpStoreLocal:    "stloc",
	OpLoadLocalAddr: "ldloca",
	OpPop:           "pop",
	OpLoadField:     "ldfld",
	OpStoreField:    "stfld",
	OpAdd:           "add",
	OpSub:           "sub",
	OpNeg:           "neg",
	OpCeq:           "ceq",
	OpClt:           "clt",
	OpCgt:           "cgt",
	OpJump:          "br",
	OpJumpIfFalse:   "brfalse",
	OpCall:          "call",
	OpReturn:        "ret",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// Instruction is one bytecode instruction
// A and B are operands (semantics depend on Op)
type Instruction struct {
	Op OpCode
	A  int
	B  int
}

func (in Instruction) String() string {
	switch in.Op {
	case OpCall:
		return fmt.Sprintf("%s %d %d", in.Op, in.A, in.B)
	case OpReturn:
		return fmt.Sprintf("%s %d", in.Op, in.B)
	case OpNop, OpPop, OpAdd, OpSub, OpNeg, OpCeq, OpClt, OpCgt:
		return in.Op.String()
	}
	return fmt.Sprintf("%s %d", in.Op, in.A)
}

// NativeKind classifies the host-level representation of a value.
type NativeKind uint8

const (
	NativeVoid NativeKind = iota
	NativeInt32
	NativeFloat64
	NativeString
	NativeStruct // value type, Index into Module.Types
	NativeClass  // reference type, Index into Module.Types
	NativeAddr   // managed address of a slot
)

// TypeRef is a native type handle.
type TypeRef struct {
	Kind  NativeKind
	Index int // only for NativeStruct and NativeClass
}

var (
	Void    = TypeRef{Kind: NativeVoid}
	Int32   = TypeRef{Kind: NativeInt32}
	Float64 = TypeRef{Kind: NativeFloat64}
	String  = TypeRef{Kind: NativeString}
	Addr    = TypeRef{Kind: NativeAddr}
)

func StructRef(index int) TypeRef { return TypeRef{Kind: NativeStruct, Index: index} }
func ClassRef(index int) TypeRef  { return TypeRef{Kind: NativeClass, Index: index} }

func (t TypeRef) IsVoid() bool { return t.Kind == NativeVoid }

func (t TypeRef) String() string {
	switch t.Kind {
	case NativeVoid:
		return "void"
	case NativeInt32:
		return "int32"
	case NativeFloat64:
		return "float64"
	case NativeString:
		return "string"
	case NativeStruct:
		return fmt.Sprintf("valuetype#%d", t.Index)
	case NativeClass:
		return fmt.Sprintf("class#%d", t.Index)
	case NativeAddr:
		return "&"
	}
	return fmt.Sprintf("kind(%d)", t.Kind)
}

type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
)

// Constant is written to the function's constant table
type Constant struct {
	Kind   ConstKind
	Int    int32
	Float  float64
	String string
}

// Label is a forward-referencable position in a chunk.
type Label int

type fixup struct {
	at    int // index of the jump instruction
	label Label
}

// Chunk is a sequence of instructions plus a constant table and the types
// of its local slots.
type Chunk struct {
	Code   []Instruction
	Consts []Constant
	Locals []TypeRef

	labels []int // label -> bound position, -1 while unbound
	fixups []fixup
}

// FieldInfo describes a single field of a value type.
type FieldInfo struct {
	Name string
	Type TypeRef
}

// TypeInfo is a named native type emitted into the module.
type TypeInfo struct {
	Namespace string
	Name      string
	IsValue   bool
	Fields    []FieldInfo
}

func (t *TypeInfo) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Param is a named, typed function parameter.
type Param struct {
	Name string
	Type TypeRef
}

// Function represents a single static procedure in a module.
// Host functions have no chunk; calls to them are dispatched to the host
// method registry by HostName.
type Function struct {
	Name     string
	Owner    int // index into Module.Types, -1 when the owning unit is foreign
	Params   []Param
	Return   TypeRef
	IsCtor   bool
	HostName string
	Chunk    Chunk
}

func (f *Function) IsHost() bool { return f.HostName != "" }

func (f *Function) NumParams() int { return len(f.Params) }

// Module represents a compiled SLang program.
type Module struct {
	Types     []TypeInfo
	Functions []*Function
	MainIndex int // Index of the entry function in the Functions array
}

// NewModule returns an empty module with no entry point.
func NewModule() *Module {
	return &Module{MainIndex: -1}
}

// AddType appends a type and returns its index.
func (m *Module) AddType(t TypeInfo) int {
	m.Types = append(m.Types, t)
	return len(m.Types) - 1
}

// AddFunction appends a function and returns its index.
func (m *Module) AddFunction(fn *Function) int {
	m.Functions = append(m.Functions, fn)
	return len(m.Functions) - 1
}

// QualifiedName returns "Owner.Name" for fn.
func (m *Module) QualifiedName(fn *Function) string {
	if fn.Owner >= 0 && fn.Owner < len(m.Types) {
		return m.Types[fn.Owner].FullName() + "::" + fn.Name
	}
	return fn.Name
}

// AddConstInt adds an integer constant and returns its index.
func (c *Chunk) AddConstInt(v int32) int {
	c.Consts = append(c.Consts, Constant{
		Kind: ConstInt,
		Int:  v,
	})
	return len(c.Consts) - 1
}

// AddConstFloat adds a float constant and returns its index.
func (c *Chunk) AddConstFloat(v float64) int {
	c.Consts = append(c.Consts, Constant{
		Kind:  ConstFloat,
		Float: v,
	})
	return len(c.Consts) - 1
}

// AddConstString adds a string constant and returns its index.
func (c *Chunk) AddConstString(s string) int {
	c.Consts = append(c.Consts, Constant{
		Kind:   ConstString,
		String: s,
	})
	return len(c.Consts) - 1
}

// AddLocal declares a new local slot of type t and returns its index.
func (c *Chunk) AddLocal(t TypeRef) int {
	c.Locals = append(c.Locals, t)
	return len(c.Locals) - 1
}

// Emit appends an instruction to the end of the chunk.
func (c *Chunk) Emit(op OpCode, a, b int) int {
	c.Code = append(c.Code, Instruction{
		Op: op,
		A:  a,
		B:  b,
	})
	return len(c.Code) - 1
}

// NewLabel allocates an unbound label.
func (c *Chunk) NewLabel() Label {
	c.labels = append(c.labels, -1)
	return Label(len(c.labels) - 1)
}

// MarkLabel binds l to the position of the next emitted instruction.
func (c *Chunk) MarkLabel(l Label) {
	c.labels[l] = len(c.Code)
}

// EmitJump appends a jump whose target is l; the target is filled in by Link.
func (c *Chunk) EmitJump(op OpCode, l Label) int {
	idx := c.Emit(op, -1, 0)
	c.fixups = append(c.fixups, fixup{at: idx, label: l})
	return idx
}

// LabelAtEnd reports whether some label is bound past the last instruction.
func (c *Chunk) LabelAtEnd() bool {
	for _, pos := range c.labels {
		if pos == len(c.Code) {
			return true
		}
	}
	return false
}

// Link resolves all pending jump fixups. It fails if a jump refers to a
// label that was never bound.
func (c *Chunk) Link() error {
	for _, f := range c.fixups {
		pos := c.labels[f.label]
		if pos < 0 {
			return fmt.Errorf("jump at %d refers to unbound label %d", f.at, f.label)
		}
		c.Code[f.at].A = pos
	}
	c.fixups = nil
	c.labels = nil
	return nil
}
