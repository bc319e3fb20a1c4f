package console

import (
	"fmt"

	"slang/internal/runtime/builtins"
	"slang/internal/value"
)

func init() {
	builtins.Register(builtins.Builtin{
		Meta: builtins.Meta{
			ID:         builtins.ReadLine,
			Name:       "readLine",
			Arity:      0,
			ParamNames: []string{},
			Params:     []builtins.TypeRef{},
			Result:     builtins.TypeRef{Kind: builtins.TypeString},
		},
		Call: func(env builtins.Env, args []interface{}) (interface{}, error) {
			if len(args) != 0 {
				return value.Value{}, fmt.Errorf("readLine expects 0 arguments, got %d", len(args))
			}
			if env == nil || env.IO() == nil {
				return value.Value{}, fmt.Errorf("runtime env IO is nil")
			}
			line, err := env.IO().ReadLine()
			if err != nil {
				return value.Value{}, fmt.Errorf("readLine failed: %w", err)
			}
			return value.Str(line), nil
		},
	})
}
