package strings

import (
	"strings"
	"unicode/utf8"

	"slang/internal/runtime/builtins"
	"slang/internal/value"
)

func init() {
	register(builtins.StringLength, "length", []string{"self"}, builtins.TypeInt,
		func(args []string) (value.Value, error) {
			return value.Int(int32(utf8.RuneCountInString(args[0]))), nil
		})
	register(builtins.StringConcat, "concat", []string{"self", "other"}, builtins.TypeString,
		func(args []string) (value.Value, error) {
			return value.Str(args[0] + args[1]), nil
		})
	register(builtins.StringReplace, "replace", []string{"self", "old", "new"}, builtins.TypeString,
		func(args []string) (value.Value, error) {
			return value.Str(strings.ReplaceAll(args[0], args[1], args[2])), nil
		})

	unary := []struct {
		id   builtins.ID
		name string
		fn   func(string) string
	}{
		{builtins.StringToUpper, "toUpper", strings.ToUpper},
		{builtins.StringToLower, "toLower", strings.ToLower},
		{builtins.StringTrim, "trim", strings.TrimSpace},
		{builtins.StringTrimLeft, "trimLeft", func(s string) string { return strings.TrimLeft(s, " \t\r\n") }},
		{builtins.StringTrimRight, "trimRight", func(s string) string { return strings.TrimRight(s, " \t\r\n") }},
	}
	for _, u := range unary {
		fn := u.fn
		register(u.id, u.name, []string{"self"}, builtins.TypeString,
			func(args []string) (value.Value, error) {
				return value.Str(fn(args[0])), nil
			})
	}
}
