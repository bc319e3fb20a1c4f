package runtime

import (
	"fmt"

	"slang/internal/runtime/builtins"
	// Import all builtin packages to trigger their init() functions for self-registration
	_ "slang/internal/runtime/builtins/console"
	_ "slang/internal/runtime/builtins/strings"
	"slang/internal/value"
)

// LookupHost returns the metadata of the host method called name.
func LookupHost(name string) (builtins.Meta, bool) {
	b := builtins.LookupByName(name)
	if b == nil {
		return builtins.Meta{}, false
	}
	return b.Meta, true
}

// CallHost executes the host method called name with args. Single-field
// value wrappers are passed as their raw field.
func CallHost(env *Env, name string, args []value.Value) (value.Value, error) {
	builtin := builtins.LookupByName(name)
	if builtin == nil {
		return value.Value{}, fmt.Errorf("unknown host method %q", name)
	}
	return call(env, builtin, args)
}

// HostMethods lists the host methods foreign routines can bind to.
func HostMethods() []builtins.Meta {
	return builtins.All()
}

func call(env *Env, builtin *builtins.Builtin, args []value.Value) (value.Value, error) {
	if len(args) != builtin.Meta.Arity {
		return value.Value{}, fmt.Errorf("host method %s expects %d args, got %d",
			builtin.Meta.Name, builtin.Meta.Arity, len(args))
	}

	if env == nil {
		env = DefaultEnv()
	}

	// Convert []value.Value to []interface{} for the Call function
	argsIface := make([]interface{}, len(args))
	for i, arg := range args {
		argsIface[i] = arg.Unwrapped()
	}

	resultIface, err := builtin.Call(env, argsIface)
	if err != nil {
		return value.Value{}, err
	}

	result, ok := resultIface.(value.Value)
	if !ok {
		return value.Value{}, fmt.Errorf("builtin %s returned non-Value type", builtin.Meta.Name)
	}
	return result, nil
}
