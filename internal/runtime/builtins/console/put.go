package console

import (
	"fmt"

	"slang/internal/runtime/builtins"
	"slang/internal/value"
)

func init() {
	registerPut(builtins.PutInteger, "putInteger", builtins.TypeInt)
	registerPut(builtins.PutReal, "putReal", builtins.TypeFloat)
	registerPut(builtins.PutString, "putString", builtins.TypeString)

	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			ID:         builtins.PutLine,
			Name:       "putLine",
			Arity:      1,
			ParamNames: []string{"value"},
			Params:     []builtins.TypeRef{{Kind: builtins.TypeString}},
			Result:     builtins.TypeRef{Kind: builtins.TypeVoid},
		},
		Call: func(env builtins.Env, args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return value.Value{}, fmt.Errorf("putLine expects 1 argument, got %d", len(args))
			}
			if env == nil || env.IO() == nil {
				return value.Value{}, fmt.Errorf("runtime env IO is nil")
			}
			env.IO().Write(args[0].(value.Value).String() + "\n")
			return value.Value{}, nil
		},
	})
}

// registerPut registers a host method writing its single argument to the
// console without a trailing newline.
func registerPut(id builtins.ID, name string, kind builtins.TypeKind) {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			ID:         id,
			Name:       name,
			Arity:      1,
			ParamNames: []string{"value"},
			Params:     []builtins.TypeRef{{Kind: kind}},
			Result:     builtins.TypeRef{Kind: builtins.TypeVoid},
		},
		Call: func(env builtins.Env, args []interface{}) (interface{}, error) {
			if len(args) != 1 {
				return value.Value{}, fmt.Errorf("%s expects 1 argument, got %d", name, len(args))
			}
			if env == nil || env.IO() == nil {
				return value.Value{}, fmt.Errorf("runtime env IO is nil")
			}
			val := args[0].(value.Value)
			if want := kindOf(kind); val.Kind != want {
				return value.Value{}, fmt.Errorf("%s expects %s, got %s", name, want, val.Kind)
			}
			env.IO().Write(val.String())
			return value.Value{}, nil
		},
	})
}

func kindOf(k builtins.TypeKind) value.Kind {
	switch k {
	case builtins.TypeInt:
		return value.KindInt
	case builtins.TypeFloat:
		return value.KindFloat
	case builtins.TypeString:
		return value.KindString
	}
	return value.KindInvalid
}
