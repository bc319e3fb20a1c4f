package strings

import (
	"strings"

	"slang/internal/runtime/builtins"
	"slang/internal/value"
)

// Indexes are byte offsets, -1 when substr does not occur.
func init() {
	register(builtins.StringIndexOf, "indexOf", []string{"self", "substr"}, builtins.TypeInt,
		func(args []string) (value.Value, error) {
			return value.Int(int32(strings.Index(args[0], args[1]))), nil
		})
	register(builtins.StringLastIndexOf, "lastIndexOf", []string{"self", "substr"}, builtins.TypeInt,
		func(args []string) (value.Value, error) {
			return value.Int(int32(strings.LastIndex(args[0], args[1]))), nil
		})
}
