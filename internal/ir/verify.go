package ir

import "fmt"

// VerifyError reports malformed bytecode in one function.
type VerifyError struct {
	Function string
	IP       int
	Msg      string
}

func (e *VerifyError) Error() string {
	if e.IP < 0 {
		return fmt.Sprintf("verify %s: %s", e.Function, e.Msg)
	}
	return fmt.Sprintf("verify %s at %d: %s", e.Function, e.IP, e.Msg)
}

// Verify checks every function body of m: operand index ranges, call
// arities, stack balance at merge points, no underflow and an empty stack
// (apart from the result) at every return.
func Verify(m *Module) error {
	if m.MainIndex < 0 || m.MainIndex >= len(m.Functions) {
		return &VerifyError{Function: "<module>", IP: -1, Msg: fmt.Sprintf("entry index %d out of range", m.MainIndex)}
	}
	main := m.Functions[m.MainIndex]
	if main.NumParams() != 0 {
		return &VerifyError{Function: m.QualifiedName(main), IP: -1, Msg: "entry point must not take parameters"}
	}

	maxFields := 0
	for _, t := range m.Types {
		if len(t.Fields) > maxFields {
			maxFields = len(t.Fields)
		}
	}

	for _, fn := range m.Functions {
		if fn.Owner >= len(m.Types) {
			return &VerifyError{Function: fn.Name, IP: -1, Msg: fmt.Sprintf("owner type %d out of range", fn.Owner)}
		}
		if fn.IsHost() {
			if len(fn.Chunk.Code) != 0 {
				return &VerifyError{Function: m.QualifiedName(fn), IP: -1, Msg: "host function has a body"}
			}
			continue
		}
		if err := verifyFunction(m, fn, maxFields); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunction(m *Module, fn *Function, maxFields int) error {
	name := m.QualifiedName(fn)
	code := fn.Chunk.Code
	fail := func(ip int, format string, args ...any) error {
		return &VerifyError{Function: name, IP: ip, Msg: fmt.Sprintf(format, args...)}
	}
	if len(code) == 0 {
		return fail(-1, "empty body")
	}

	depth := make([]int, len(code))
	for i := range depth {
		depth[i] = -1
	}
	depth[0] = 0
	work := []int{0}

	merge := func(from, to, d int) error {
		if to < 0 || to >= len(code) {
			return fail(from, "jump target %d out of range", to)
		}
		switch depth[to] {
		case -1:
			depth[to] = d
			work = append(work, to)
		case d:
		default:
			return fail(from, "stack depth %d at %d, previously %d", d, to, depth[to])
		}
		return nil
	}

	for len(work) > 0 {
		ip := work[len(work)-1]
		work = work[:len(work)-1]
		d := depth[ip]
		in := code[ip]

		need, push := 0, 0
		switch in.Op {
		case OpNop:
		case OpConst:
			if in.A < 0 || in.A >= len(fn.Chunk.Consts) {
				return fail(ip, "const index %d out of range", in.A)
			}
			push = 1
		case OpLoadArg, OpLoadArgAddr:
			if in.A < 0 || in.A >= len(fn.Params) {
				return fail(ip, "argument index %d out of range", in.A)
			}
			push = 1
		case OpStoreArg:
			if in.A < 0 || in.A >= len(fn.Params) {
				return fail(ip, "argument index %d out of range", in.A)
			}
			need = 1
		case OpLoadLocal, OpLoadLocalAddr:
			if in.A < 0 || in.A >= len(fn.Chunk.Locals) {
				return fail(ip, "local index %d out of range", in.A)
			}
			push = 1
		case OpStoreLocal:
			if in.A < 0 || in.A >= len(fn.Chunk.Locals) {
				return fail(ip, "local index %d out of range", in.A)
			}
			need = 1
		case OpPop:
			need = 1
		case OpLoadField, OpStoreField:
			if in.A < 0 || in.A >= maxFields {
				return fail(ip, "field index %d out of range", in.A)
			}
			need, push = 1, 1
			if in.Op == OpStoreField {
				need, push = 2, 0
			}
		case OpAdd, OpSub, OpCeq, OpClt, OpCgt:
			need, push = 2, 1
		case OpNeg:
			need, push = 1, 1
		case OpJump:
			if err := merge(ip, in.A, d); err != nil {
				return err
			}
			continue
		case OpJumpIfFalse:
			if d < 1 {
				return fail(ip, "stack underflow")
			}
			if err := merge(ip, in.A, d-1); err != nil {
				return err
			}
			need = 1
		case OpCall:
			if in.A < 0 || in.A >= len(m.Functions) {
				return fail(ip, "function index %d out of range", in.A)
			}
			callee := m.Functions[in.A]
			if in.B != callee.NumParams() {
				return fail(ip, "call to %s with %d arguments, want %d", m.QualifiedName(callee), in.B, callee.NumParams())
			}
			need = in.B
			if !callee.Return.IsVoid() {
				push = 1
			}
		case OpReturn:
			want := 0
			if !fn.Return.IsVoid() {
				want = 1
			}
			if in.B != want {
				return fail(ip, "return with %d values from function returning %s", in.B, fn.Return)
			}
			if d != want {
				return fail(ip, "stack depth %d at return, want %d", d, want)
			}
			continue
		default:
			return fail(ip, "unknown opcode %s", in.Op)
		}

		if d < need {
			return fail(ip, "stack underflow")
		}
		if ip+1 >= len(code) {
			return fail(ip, "control falls off the end of the body")
		}
		if err := merge(ip, ip+1, d-need+push); err != nil {
			return err
		}
	}
	return nil
}
