package ir

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestChunk_LinkForwardLabels(t *testing.T) {
	var c Chunk
	c.AddLocal(Int32)
	k := c.AddConstInt(0)

	elseLabel := c.NewLabel()
	end := c.NewLabel()

	c.Emit(OpConst, k, 0)
	jf := c.EmitJump(OpJumpIfFalse, elseLabel)
	c.Emit(OpNop, 0, 0)
	jmp := c.EmitJump(OpJump, end)
	c.MarkLabel(elseLabel)
	c.Emit(OpNop, 0, 0)
	c.MarkLabel(end)
	if !c.LabelAtEnd() {
		t.Fatalf("expected a label bound at the end of the chunk")
	}
	c.Emit(OpReturn, 0, 0)

	if err := c.Link(); err != nil {
		t.Fatalf("Link error: %v", err)
	}
	if c.Code[jf].A != 4 {
		t.Fatalf("expected brfalse target 4, got %d", c.Code[jf].A)
	}
	if c.Code[jmp].A != 5 {
		t.Fatalf("expected br target 5, got %d", c.Code[jmp].A)
	}
}

func TestChunk_LinkUnboundLabel(t *testing.T) {
	var c Chunk
	c.EmitJump(OpJump, c.NewLabel())
	if err := c.Link(); err == nil {
		t.Fatalf("expected error for unbound label")
	}
}

func sampleModule() *Module {
	m := NewModule()
	ti := m.AddType(TypeInfo{
		Namespace: "SLang",
		Name:      "Integer",
		IsValue:   true,
		Fields:    []FieldInfo{{Name: "value", Type: Int32}},
	})

	put := m.AddFunction(&Function{
		Name:     "StandardIO$put$String",
		Owner:    -1,
		Params:   []Param{{Name: "s", Type: String}},
		Return:   Void,
		HostName: "StandardIO$put$String",
	})

	main := &Function{Name: "$Anonymous", Owner: ti, Return: Int32}
	s := main.Chunk.AddConstString("hi")
	f := main.Chunk.AddConstFloat(2.5)
	n := main.Chunk.AddConstInt(7)
	main.Chunk.AddLocal(StructRef(ti))
	main.Chunk.Emit(OpConst, s, 0)
	main.Chunk.Emit(OpCall, put, 1)
	main.Chunk.Emit(OpConst, f, 0)
	main.Chunk.Emit(OpPop, 0, 0)
	main.Chunk.Emit(OpConst, n, 0)
	main.Chunk.Emit(OpReturn, 0, 1)
	m.MainIndex = m.AddFunction(main)
	return m
}

func TestSerialize_RoundTrip(t *testing.T) {
	m := sampleModule()

	var buf bytes.Buffer
	if err := WriteModule(&buf, m); err != nil {
		t.Fatalf("WriteModule error: %v", err)
	}
	got, err := ReadModule(&buf)
	if err != nil {
		t.Fatalf("ReadModule error: %v", err)
	}

	if got.MainIndex != m.MainIndex {
		t.Fatalf("expected main index %d, got %d", m.MainIndex, got.MainIndex)
	}
	if len(got.Types) != 1 || got.Types[0].FullName() != "SLang.Integer" {
		t.Fatalf("expected type SLang.Integer, got %+v", got.Types)
	}
	if got.Types[0].Fields[0].Type != Int32 {
		t.Fatalf("expected int32 field, got %s", got.Types[0].Fields[0].Type)
	}
	put := got.Functions[0]
	if !put.IsHost() || put.HostName != "StandardIO$put$String" || put.Owner != -1 {
		t.Fatalf("expected host import, got %+v", put)
	}
	main := got.Functions[got.MainIndex]
	if main.Return != Int32 {
		t.Fatalf("expected int32 return, got %s", main.Return)
	}
	if main.Chunk.Consts[0].String != "hi" || main.Chunk.Consts[1].Float != 2.5 || main.Chunk.Consts[2].Int != 7 {
		t.Fatalf("constants not preserved: %+v", main.Chunk.Consts)
	}
	if len(main.Chunk.Code) != 6 || main.Chunk.Code[1] != (Instruction{Op: OpCall, A: 0, B: 1}) {
		t.Fatalf("code not preserved: %v", main.Chunk.Code)
	}
	if main.Chunk.Locals[0] != StructRef(0) {
		t.Fatalf("expected local of struct type 0, got %s", main.Chunk.Locals[0])
	}
}

func TestSerialize_ChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteModule(&buf, sampleModule()); err != nil {
		t.Fatalf("WriteModule error: %v", err)
	}
	data := buf.Bytes()
	data[10] ^= 0xFF

	_, err := ReadModule(bytes.NewReader(data))
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
}

func TestSerialize_BadMagic(t *testing.T) {
	_, err := ReadModule(strings.NewReader("AVC2"))
	if err == nil {
		t.Fatalf("expected error for truncated input")
	}
}

func TestVerify_Valid(t *testing.T) {
	if err := Verify(sampleModule()); err != nil {
		t.Fatalf("expected module to verify, got %v", err)
	}
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Module)
		want   string
	}{
		{"missing entry", func(m *Module) { m.MainIndex = -1 }, "entry index"},
		{"bad const", func(m *Module) { m.Functions[1].Chunk.Code[0].A = 9 }, "const index"},
		{"bad arity", func(m *Module) { m.Functions[1].Chunk.Code[1].B = 2 }, "arguments"},
		{"underflow", func(m *Module) { m.Functions[1].Chunk.Code[0].Op = OpNop }, "underflow"},
		{"dirty return", func(m *Module) { m.Functions[1].Chunk.Code[3].Op = OpNop }, "stack depth 2 at return"},
		{"fall off", func(m *Module) {
			c := &m.Functions[1].Chunk
			c.Code = c.Code[:len(c.Code)-1]
		}, "falls off"},
		{"bad jump", func(m *Module) { m.Functions[1].Chunk.Code[3] = Instruction{Op: OpJump, A: 40} }, "jump target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sampleModule()
			tt.mutate(m)
			err := Verify(m)
			if err == nil {
				t.Fatalf("expected verify error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestVerify_MergeDepthMismatch(t *testing.T) {
	m := NewModule()
	fn := &Function{Name: "f", Owner: -1, Return: Void}
	c := &fn.Chunk
	one := c.AddConstInt(1)
	join := c.NewLabel()
	c.Emit(OpConst, one, 0)
	c.EmitJump(OpJumpIfFalse, join)
	c.Emit(OpConst, one, 0)
	c.MarkLabel(join)
	c.Emit(OpReturn, 0, 0)
	if err := c.Link(); err != nil {
		t.Fatalf("Link error: %v", err)
	}
	m.MainIndex = m.AddFunction(fn)

	err := Verify(m)
	var ve *VerifyError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *VerifyError, got %v", err)
	}
}
