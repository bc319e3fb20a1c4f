// Package strings registers host methods over String values. Foreign
// routines bind to them by name, for example
//
//	routine length(s: String): Integer foreign
package strings

import (
	"fmt"

	"slang/internal/runtime/builtins"
	"slang/internal/value"
)

// register adds a host method whose parameters are all strings.
func register(id builtins.ID, name string, paramNames []string, result builtins.TypeKind, fn func(args []string) (value.Value, error)) {
	params := make([]builtins.TypeRef, len(paramNames))
	for i := range params {
		params[i] = builtins.TypeRef{Kind: builtins.TypeString}
	}
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			ID:         id,
			Name:       name,
			Arity:      len(paramNames),
			ParamNames: paramNames,
			Params:     params,
			Result:     builtins.TypeRef{Kind: result},
		},
		Call: func(env builtins.Env, args []interface{}) (interface{}, error) {
			if len(args) != len(paramNames) {
				return value.Value{}, fmt.Errorf("%s expects %d arguments, got %d", name, len(paramNames), len(args))
			}
			strs := make([]string, len(args))
			for i, a := range args {
				v := a.(value.Value)
				if v.Kind != value.KindString {
					return value.Value{}, fmt.Errorf("%s: %s argument must be string, got %v", name, paramNames[i], v.Kind)
				}
				strs[i] = v.Str
			}
			return fn(strs)
		},
	})
}

// boolInt is the Integer encoding of a truth value used by conditions.
func boolInt(b bool) value.Value {
	if b {
		return value.Int(1)
	}
	return value.Int(0)
}
