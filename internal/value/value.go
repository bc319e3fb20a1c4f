package value

import (
	"fmt"
	"strconv"
	"strings"

	"slang/internal/ir"
)

// Kind is the type of a value at runtime.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindString
	KindStruct
	KindAddr
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int32"
	case KindFloat:
		return "float64"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindAddr:
		return "address"
	case KindNull:
		return "null"
	}
	return "invalid"
}

// StructValue represents an instance of a value type.
type StructValue struct {
	TypeIndex int     // index into Module.Types
	Fields    []Value // field values in declaration order
}

// Value is a universal value for the VM/runtime.
type Value struct {
	Kind   Kind
	Int    int32
	Float  float64
	Str    string
	Struct *StructValue // for KindStruct
	Addr   int          // absolute stack slot for KindAddr
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindStruct:
		if v.Struct == nil {
			return "<nil struct>"
		}
		var b strings.Builder
		b.WriteString("{")
		for i, f := range v.Struct.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.String())
		}
		b.WriteString("}")
		return b.String()
	case KindAddr:
		return fmt.Sprintf("&%d", v.Addr)
	case KindNull:
		return "null"
	default:
		return "<invalid>"
	}
}

// Copy returns v with value-type contents duplicated, so that mutating the
// copy's fields never affects v.
func (v Value) Copy() Value {
	if v.Kind != KindStruct || v.Struct == nil {
		return v
	}
	fields := make([]Value, len(v.Struct.Fields))
	for i, f := range v.Struct.Fields {
		fields[i] = f.Copy()
	}
	return Struct(v.Struct.TypeIndex, fields)
}

// Unwrapped returns the single field of a one-field struct, and v otherwise.
func (v Value) Unwrapped() Value {
	if v.Kind == KindStruct && v.Struct != nil && len(v.Struct.Fields) == 1 {
		return v.Struct.Fields[0]
	}
	return v
}

// Helpers

func Int(v int32) Value {
	return Value{Kind: KindInt, Int: v}
}

func Float(v float64) Value {
	return Value{Kind: KindFloat, Float: v}
}

func Str(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func Addr(slot int) Value {
	return Value{Kind: KindAddr, Addr: slot}
}

func Null() Value {
	return Value{Kind: KindNull}
}

// Struct creates a struct value with the given type index and fields.
func Struct(typeIndex int, fields []Value) Value {
	return Value{
		Kind: KindStruct,
		Struct: &StructValue{
			TypeIndex: typeIndex,
			Fields:    fields,
		},
	}
}

// Zero returns the default value of a slot of type t.
func Zero(t ir.TypeRef, types []ir.TypeInfo) Value {
	switch t.Kind {
	case ir.NativeInt32:
		return Int(0)
	case ir.NativeFloat64:
		return Float(0)
	case ir.NativeString:
		return Str("")
	case ir.NativeClass:
		return Null()
	case ir.NativeStruct:
		if t.Index < 0 || t.Index >= len(types) {
			return Struct(t.Index, nil)
		}
		fields := make([]Value, len(types[t.Index].Fields))
		for i, f := range types[t.Index].Fields {
			fields[i] = Zero(f.Type, types)
		}
		return Struct(t.Index, fields)
	}
	return Value{}
}
