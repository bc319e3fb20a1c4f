package strings

import (
	"strings"

	"slang/internal/runtime/builtins"
	"slang/internal/value"
)

func init() {
	register(builtins.StringContains, "contains", []string{"self", "substr"}, builtins.TypeInt,
		func(args []string) (value.Value, error) {
			return boolInt(strings.Contains(args[0], args[1])), nil
		})
	register(builtins.StringStartsWith, "startsWith", []string{"self", "prefix"}, builtins.TypeInt,
		func(args []string) (value.Value, error) {
			return boolInt(strings.HasPrefix(args[0], args[1])), nil
		})
	register(builtins.StringEndsWith, "endsWith", []string{"self", "suffix"}, builtins.TypeInt,
		func(args []string) (value.Value, error) {
			return boolInt(strings.HasSuffix(args[0], args[1])), nil
		})
}
