package vm

import (
	"errors"
	"fmt"

	"slang/internal/ir"
	"slang/internal/runtime"
	"slang/internal/value"
)

// MaxFrames bounds the call depth of a single run.
const MaxFrames = 10000

// Frame represents a function call frame.
type Frame struct {
	Fn   *ir.Function
	IP   int // Instruction pointer: index into Fn.Chunk.Code
	Base int // Stack index of the first argument; locals follow the arguments
}

// VM is a stack-based virtual machine for SLang modules.
type VM struct {
	mod    *ir.Module
	stack  []value.Value
	sp     int // Stack pointer: next free index
	frames []Frame

	env *runtime.Env
}

// RuntimeError is a failure while executing bytecode.
type RuntimeError struct {
	Function string
	IP       int
	Err      error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s at %d: %v", e.Function, e.IP, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// NewVM creates a VM for the given module.
func NewVM(m *ir.Module, env *runtime.Env) *VM {
	if env == nil {
		env = runtime.DefaultEnv()
	}
	return &VM{
		mod:    m,
		stack:  make([]value.Value, 0, 1024),
		frames: make([]Frame, 0, 16),
		env:    env,
	}
}

// push/pop

func (vm *VM) push(v value.Value) {
	if vm.sp >= len(vm.stack) {
		vm.stack = append(vm.stack, v)
	} else {
		vm.stack[vm.sp] = v
	}
	vm.sp++
}

func (vm *VM) pop() (value.Value, error) {
	if vm.sp == 0 {
		return value.Value{}, errors.New("stack underflow")
	}
	vm.sp--
	return vm.stack[vm.sp], nil
}

func (vm *VM) popInt() (int32, error) {
	v, err := vm.pop()
	if err != nil {
		return 0, err
	}
	if v.Kind != value.KindInt {
		return 0, fmt.Errorf("expected int32, got %s", v.Kind)
	}
	return v.Int, nil
}

// RunMain runs the entry function of the module and returns its result.
// A void entry point yields an invalid value.
func (vm *VM) RunMain() (value.Value, error) {
	if vm.mod.MainIndex < 0 || vm.mod.MainIndex >= len(vm.mod.Functions) {
		return value.Value{}, fmt.Errorf("invalid main index %d", vm.mod.MainIndex)
	}
	return vm.Call(vm.mod.MainIndex)
}

// Call runs the function at index with args and returns its result.
func (vm *VM) Call(index int, args ...value.Value) (value.Value, error) {
	vm.sp = 0
	vm.frames = vm.frames[:0]
	for _, a := range args {
		vm.push(a)
	}
	done, err := vm.enter(index, len(args))
	if err != nil {
		return value.Value{}, err
	}
	if done {
		if vm.sp > 0 {
			return vm.pop()
		}
		return value.Value{}, nil
	}
	return vm.run()
}

// enter sets up a frame for the function at index whose numArgs arguments
// are on the stack. Host functions run immediately and report done.
func (vm *VM) enter(index, numArgs int) (bool, error) {
	if index < 0 || index >= len(vm.mod.Functions) {
		return false, fmt.Errorf("function index %d out of range", index)
	}
	fn := vm.mod.Functions[index]
	if numArgs != fn.NumParams() {
		return false, fmt.Errorf("function %s expects %d args, got %d", fn.Name, fn.NumParams(), numArgs)
	}
	base := vm.sp - numArgs
	if base < 0 {
		return false, errors.New("stack underflow before call")
	}

	if fn.IsHost() {
		args := make([]value.Value, numArgs)
		copy(args, vm.stack[base:vm.sp])
		vm.sp = base
		ret, err := runtime.CallHost(vm.env, fn.HostName, args)
		if err != nil {
			return false, err
		}
		if !fn.Return.IsVoid() {
			vm.push(vm.wrapHostResult(fn.Return, ret))
		}
		return true, nil
	}

	if len(vm.frames) >= MaxFrames {
		return false, errors.New("stack overflow")
	}
	for _, t := range fn.Chunk.Locals {
		vm.push(value.Zero(t, vm.mod.Types))
	}
	vm.frames = append(vm.frames, Frame{
		Fn:   fn,
		IP:   0,
		Base: base,
	})
	return false, nil
}

// wrapHostResult boxes a raw host result into a one-field value type.
func (vm *VM) wrapHostResult(t ir.TypeRef, raw value.Value) value.Value {
	if t.Kind != ir.NativeStruct || raw.Kind == value.KindStruct {
		return raw
	}
	return value.Struct(t.Index, []value.Value{raw})
}

func (vm *VM) run() (value.Value, error) {
	for {
		fr := &vm.frames[len(vm.frames)-1]
		if fr.IP < 0 || fr.IP >= len(fr.Fn.Chunk.Code) {
			return value.Value{}, vm.fail(fr, fmt.Errorf("instruction pointer out of range: %d", fr.IP))
		}
		inst := fr.Fn.Chunk.Code[fr.IP]
		fr.IP++

		switch inst.Op {
		case ir.OpNop:

		case ir.OpConst:
			if inst.A < 0 || inst.A >= len(fr.Fn.Chunk.Consts) {
				return value.Value{}, vm.fail(fr, fmt.Errorf("const index out of range: %d", inst.A))
			}
			c := fr.Fn.Chunk.Consts[inst.A]
			switch c.Kind {
			case ir.ConstInt:
				vm.push(value.Int(c.Int))
			case ir.ConstFloat:
				vm.push(value.Float(c.Float))
			case ir.ConstString:
				vm.push(value.Str(c.String))
			default:
				return value.Value{}, vm.fail(fr, fmt.Errorf("unsupported const kind %d", c.Kind))
			}

		case ir.OpLoadArg, ir.OpLoadLocal:
			slot, err := vm.slot(fr, inst)
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			vm.push(vm.stack[slot].Copy())

		case ir.OpLoadArgAddr, ir.OpLoadLocalAddr:
			slot, err := vm.slot(fr, inst)
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			vm.push(value.Addr(slot))

		case ir.OpStoreArg, ir.OpStoreLocal:
			slot, err := vm.slot(fr, inst)
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			vm.stack[slot] = v

		case ir.OpPop:
			if _, err := vm.pop(); err != nil {
				return value.Value{}, vm.fail(fr, err)
			}

		case ir.OpLoadField:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			st, err := vm.structOf(v)
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			if inst.A < 0 || inst.A >= len(st.Fields) {
				return value.Value{}, vm.fail(fr, fmt.Errorf("field index %d out of range", inst.A))
			}
			vm.push(st.Fields[inst.A].Copy())

		case ir.OpStoreField:
			v, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			target, err := vm.pop()
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			if target.Kind != value.KindAddr {
				return value.Value{}, vm.fail(fr, fmt.Errorf("stfld expects an address, got %s", target.Kind))
			}
			st, err := vm.structOf(target)
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			if inst.A < 0 || inst.A >= len(st.Fields) {
				return value.Value{}, vm.fail(fr, fmt.Errorf("field index %d out of range", inst.A))
			}
			st.Fields[inst.A] = v

		// Int32 math wraps around like the host machine's
		case ir.OpAdd, ir.OpSub, ir.OpCeq, ir.OpClt, ir.OpCgt:
			b, err := vm.popInt()
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			a, err := vm.popInt()
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			vm.push(value.Int(intBinary(inst.Op, a, b)))

		case ir.OpNeg:
			a, err := vm.popInt()
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			vm.push(value.Int(-a))

		case ir.OpJump:
			fr.IP = inst.A

		case ir.OpJumpIfFalse:
			cond, err := vm.popInt()
			if err != nil {
				return value.Value{}, vm.fail(fr, err)
			}
			if cond == 0 {
				fr.IP = inst.A
			}

		case ir.OpCall:
			if _, err := vm.enter(inst.A, inst.B); err != nil {
				return value.Value{}, vm.fail(fr, err)
			}

		case ir.OpReturn:
			var ret value.Value
			if inst.B == 1 {
				v, err := vm.pop()
				if err != nil {
					return value.Value{}, vm.fail(fr, err)
				}
				ret = v
			}
			base := fr.Base
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.sp = base
			if len(vm.frames) == 0 {
				return ret, nil
			}
			if inst.B == 1 {
				vm.push(ret)
			}

		default:
			return value.Value{}, vm.fail(fr, fmt.Errorf("unknown opcode %s", inst.Op))
		}
	}
}

func intBinary(op ir.OpCode, a, b int32) int32 {
	switch op {
	case ir.OpAdd:
		return a + b
	case ir.OpSub:
		return a - b
	case ir.OpCeq:
		return boolInt(a == b)
	case ir.OpClt:
		return boolInt(a < b)
	case ir.OpCgt:
		return boolInt(a > b)
	}
	return 0
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// slot maps an argument or local operand to an absolute stack index.
func (vm *VM) slot(fr *Frame, inst ir.Instruction) (int, error) {
	n := inst.A
	switch inst.Op {
	case ir.OpLoadArg, ir.OpLoadArgAddr, ir.OpStoreArg:
		if n < 0 || n >= fr.Fn.NumParams() {
			return 0, fmt.Errorf("invalid argument %d", n)
		}
	default:
		if n < 0 || n >= len(fr.Fn.Chunk.Locals) {
			return 0, fmt.Errorf("invalid local %d", n)
		}
		n += fr.Fn.NumParams()
	}
	slot := fr.Base + n
	if slot >= vm.sp {
		return 0, fmt.Errorf("invalid slot %d", slot)
	}
	return slot, nil
}

// structOf returns the struct held by v, or by the slot v points to.
func (vm *VM) structOf(v value.Value) (*value.StructValue, error) {
	if v.Kind == value.KindAddr {
		if v.Addr < 0 || v.Addr >= vm.sp {
			return nil, fmt.Errorf("dangling address %d", v.Addr)
		}
		v = vm.stack[v.Addr]
	}
	if v.Kind != value.KindStruct || v.Struct == nil {
		return nil, fmt.Errorf("expected struct, got %s", v.Kind)
	}
	return v.Struct, nil
}

func (vm *VM) fail(fr *Frame, err error) error {
	return &RuntimeError{Function: vm.mod.QualifiedName(fr.Fn), IP: fr.IP - 1, Err: err}
}
