package strings

import (
	"fmt"
	"strconv"
	"strings"

	"slang/internal/runtime/builtins"
	"slang/internal/value"
)

func init() {
	register(builtins.StringToInteger, "toInteger", []string{"value"}, builtins.TypeInt,
		func(args []string) (value.Value, error) {
			parsed, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 32)
			if err != nil {
				return value.Value{}, fmt.Errorf("toInteger: invalid integer %q", args[0])
			}
			return value.Int(int32(parsed)), nil
		})
}
