package ir

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

var magicV1 = [4]byte{'S', 'L', 'C', '1'}

// ErrChecksum is returned by ReadModule when the payload does not match the
// trailing BLAKE2b-256 sum.
var ErrChecksum = errors.New("module checksum mismatch")

func WriteModuleToFile(filename string, m *Module) error {
	var buf bytes.Buffer
	if err := WriteModule(&buf, m); err != nil {
		return err
	}
	return os.WriteFile(filename, buf.Bytes(), 0o644)
}

func ReadModuleFromFile(filename string) (*Module, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadModule(f)
}

// Checksum returns the BLAKE2b-256 digest of the serialized form of m,
// excluding the trailing checksum itself.
func Checksum(m *Module) ([blake2b.Size256]byte, error) {
	var buf bytes.Buffer
	if err := writePayload(&buf, m); err != nil {
		return [blake2b.Size256]byte{}, err
	}
	return blake2b.Sum256(buf.Bytes()), nil
}

func WriteModule(w io.Writer, m *Module) error {
	var buf bytes.Buffer
	if err := writePayload(&buf, m); err != nil {
		return err
	}
	sum := blake2b.Sum256(buf.Bytes())
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(sum[:])
	return err
}

func ReadModule(r io.Reader) (*Module, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < len(magicV1)+blake2b.Size256 {
		return nil, fmt.Errorf("module too short: %d bytes", len(data))
	}
	payload, tail := data[:len(data)-blake2b.Size256], data[len(data)-blake2b.Size256:]
	if sum := blake2b.Sum256(payload); !bytes.Equal(sum[:], tail) {
		return nil, ErrChecksum
	}
	return readPayload(bytes.NewReader(payload))
}

type writer struct {
	w   io.Writer
	err error
}

func (w *writer) put(v any) {
	if w.err != nil {
		return
	}
	w.err = binary.Write(w.w, binary.LittleEndian, v)
}

func (w *writer) str(s string) {
	if w.err != nil {
		return
	}
	if len(s) > 0xFFFF {
		w.err = fmt.Errorf("name too long: %s", s)
		return
	}
	w.put(uint16(len(s)))
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s)
	}
}

func (w *writer) typeRef(t TypeRef) {
	w.put(uint8(t.Kind))
	w.put(int32(t.Index))
}

func writePayload(out io.Writer, m *Module) error {
	w := &writer{w: out}
	w.put(magicV1)

	w.put(uint32(len(m.Types)))
	for _, t := range m.Types {
		w.str(t.Namespace)
		w.str(t.Name)
		w.put(t.IsValue)
		w.put(uint32(len(t.Fields)))
		for _, f := range t.Fields {
			w.str(f.Name)
			w.typeRef(f.Type)
		}
	}

	w.put(uint32(len(m.Functions)))
	for _, fn := range m.Functions {
		w.str(fn.Name)
		w.put(int32(fn.Owner))
		w.put(fn.IsCtor)
		w.str(fn.HostName)
		w.put(uint32(len(fn.Params)))
		for _, p := range fn.Params {
			w.str(p.Name)
			w.typeRef(p.Type)
		}
		w.typeRef(fn.Return)

		// locals
		w.put(uint32(len(fn.Chunk.Locals)))
		for _, l := range fn.Chunk.Locals {
			w.typeRef(l)
		}

		// consts
		w.put(uint32(len(fn.Chunk.Consts)))
		for _, c := range fn.Chunk.Consts {
			w.put(uint8(c.Kind))
			switch c.Kind {
			case ConstInt:
				w.put(c.Int)
			case ConstFloat:
				w.put(c.Float)
			case ConstString:
				bs := []byte(c.String)
				w.put(uint32(len(bs)))
				if w.err == nil {
					_, w.err = w.w.Write(bs)
				}
			default:
				return fmt.Errorf("unknown const kind %d", c.Kind)
			}
		}

		// code
		w.put(uint32(len(fn.Chunk.Code)))
		for _, inst := range fn.Chunk.Code {
			w.put(uint8(inst.Op))
			w.put(int32(inst.A))
			w.put(int32(inst.B))
		}
	}

	// main index
	w.put(int32(m.MainIndex))
	return w.err
}

type reader struct {
	r   io.Reader
	err error
}

func (r *reader) get(v any) {
	if r.err != nil {
		return
	}
	r.err = binary.Read(r.r, binary.LittleEndian, v)
}

func (r *reader) u32() int {
	var n uint32
	r.get(&n)
	return int(n)
}

func (r *reader) i32() int {
	var n int32
	r.get(&n)
	return int(n)
}

func (r *reader) str() string {
	var n uint16
	r.get(&n)
	if r.err != nil {
		return ""
	}
	bs := make([]byte, n)
	_, r.err = io.ReadFull(r.r, bs)
	return string(bs)
}

func (r *reader) typeRef() TypeRef {
	var k uint8
	r.get(&k)
	return TypeRef{Kind: NativeKind(k), Index: r.i32()}
}

func readPayload(in io.Reader) (*Module, error) {
	r := &reader{r: in}

	var hdr [4]byte
	r.get(&hdr)
	if r.err != nil {
		return nil, r.err
	}
	if hdr != magicV1 {
		return nil, fmt.Errorf("invalid magic header: %q", string(hdr[:]))
	}

	mod := NewModule()

	numTypes := r.u32()
	for i := 0; i < numTypes && r.err == nil; i++ {
		t := TypeInfo{
			Namespace: r.str(),
			Name:      r.str(),
		}
		r.get(&t.IsValue)
		numFields := r.u32()
		for j := 0; j < numFields && r.err == nil; j++ {
			t.Fields = append(t.Fields, FieldInfo{Name: r.str(), Type: r.typeRef()})
		}
		mod.Types = append(mod.Types, t)
	}

	numFuncs := r.u32()
	for i := 0; i < numFuncs && r.err == nil; i++ {
		fn := &Function{
			Name:  r.str(),
			Owner: r.i32(),
		}
		r.get(&fn.IsCtor)
		fn.HostName = r.str()
		numParams := r.u32()
		for j := 0; j < numParams && r.err == nil; j++ {
			fn.Params = append(fn.Params, Param{Name: r.str(), Type: r.typeRef()})
		}
		fn.Return = r.typeRef()

		numLocals := r.u32()
		for j := 0; j < numLocals && r.err == nil; j++ {
			fn.Chunk.Locals = append(fn.Chunk.Locals, r.typeRef())
		}

		numConsts := r.u32()
		for j := 0; j < numConsts && r.err == nil; j++ {
			var kind uint8
			r.get(&kind)
			c := Constant{Kind: ConstKind(kind)}
			switch c.Kind {
			case ConstInt:
				r.get(&c.Int)
			case ConstFloat:
				r.get(&c.Float)
			case ConstString:
				n := r.u32()
				if r.err != nil {
					break
				}
				sb := make([]byte, n)
				_, r.err = io.ReadFull(r.r, sb)
				c.String = string(sb)
			default:
				return nil, fmt.Errorf("unknown const kind %d", c.Kind)
			}
			fn.Chunk.Consts = append(fn.Chunk.Consts, c)
		}

		numInstr := r.u32()
		for j := 0; j < numInstr && r.err == nil; j++ {
			var op uint8
			r.get(&op)
			a := r.i32()
			b := r.i32()
			fn.Chunk.Code = append(fn.Chunk.Code, Instruction{
				Op: OpCode(op),
				A:  a,
				B:  b,
			})
		}
		mod.Functions = append(mod.Functions, fn)
	}

	mod.MainIndex = r.i32()
	if r.err != nil {
		return nil, r.err
	}
	return mod, nil
}
