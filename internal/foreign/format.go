package foreign

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"garnet/internal/object"
)

// format implements Kernel#format and String#%. Directives follow
// `%[flags][width][.precision]type`, plus `%<name>type` and `%{name}`
// reading from a hash argument.
func format(ctx object.EvaluatorContext, pattern string, args []object.Object) (string, error) {
	var out strings.Builder
	next := 0
	nextArg := func() (object.Object, error) {
		if next >= len(args) {
			return nil, ctx.NewError("ArgumentError", "too few arguments")
		}
		next++
		return args[next-1], nil
	}
	named := func(name string) (object.Object, error) {
		if len(args) != 1 {
			return nil, ctx.NewError("ArgumentError", "one hash required")
		}
		h, ok := args[0].(*object.Hash)
		if !ok {
			return nil, ctx.NewError("ArgumentError", "one hash required")
		}
		v, found := h.Get(sym(name))
		if !found {
			return nil, ctx.NewError("KeyError", "key<%s> not found", name)
		}
		return v, nil
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(pattern) {
			return "", ctx.NewError("ArgumentError", "incomplete format specifier; use %%%% (double %%) instead")
		}
		if pattern[i] == '%' {
			out.WriteByte('%')
			continue
		}

		if pattern[i] == '{' {
			end := strings.IndexByte(pattern[i:], '}')
			if end < 0 {
				return "", ctx.NewError("ArgumentError", "malformed name - unmatched parenthesis")
			}
			v, err := named(pattern[i+1 : i+end])
			if err != nil {
				return "", err
			}
			s, err := ctx.ToS(v)
			if err != nil {
				return "", err
			}
			out.WriteString(s)
			i += end
			continue
		}

		start := i
		var arg object.Object
		if pattern[i] == '<' {
			end := strings.IndexByte(pattern[i:], '>')
			if end < 0 {
				return "", ctx.NewError("ArgumentError", "malformed name - unmatched parenthesis")
			}
			v, err := named(pattern[i+1 : i+end])
			if err != nil {
				return "", err
			}
			arg = v
			i += end + 1
			start = i
		}
		for i < len(pattern) && strings.IndexByte("-+ 0#", pattern[i]) >= 0 {
			i++
		}
		for i < len(pattern) && (pattern[i] >= '0' && pattern[i] <= '9' || pattern[i] == '.') {
			i++
		}
		if i >= len(pattern) {
			return "", ctx.NewError("ArgumentError", "malformed format string - %%%s", pattern[start:])
		}
		spec, verb := pattern[start:i], pattern[i]
		if arg == nil {
			var err error
			if arg, err = nextArg(); err != nil {
				return "", err
			}
		}
		s, err := formatDirective(ctx, spec, verb, arg)
		if err != nil {
			return "", err
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

func formatDirective(ctx object.EvaluatorContext, spec string, verb byte, arg object.Object) (string, error) {
	switch verb {
	case 'd', 'i', 'u':
		n, err := formatInt(ctx, arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%"+spec+"d", n), nil
	case 'x', 'X', 'o', 'b', 'B':
		n, err := formatInt(ctx, arg)
		if err != nil {
			return "", err
		}
		if verb == 'B' {
			verb = 'b'
		}
		return fmt.Sprintf("%"+spec+string(verb), n), nil
	case 'f', 'e', 'E', 'g', 'G':
		f, err := formatFloat(ctx, arg)
		if err != nil {
			return "", err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Sprintf("%"+strings.Split(spec, ".")[0]+"s", object.FormatFloat(f)), nil
		}
		return fmt.Sprintf("%"+spec+string(verb), f), nil
	case 's':
		s, err := ctx.ToS(arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%"+spec+"s", s), nil
	case 'p':
		s, err := ctx.Inspect(arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%"+spec+"s", s), nil
	case 'c':
		if s, ok := arg.(*object.String); ok {
			r := []rune(s.Value)
			if len(r) == 0 {
				return "", ctx.NewError("ArgumentError", "%%c requires a character")
			}
			return fmt.Sprintf("%"+spec+"c", r[0]), nil
		}
		n, err := formatInt(ctx, arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%"+spec+"c", rune(n)), nil
	}
	return "", ctx.NewError("ArgumentError", "malformed format string - %%%c", verb)
}

func formatInt(ctx object.EvaluatorContext, arg object.Object) (int64, error) {
	switch v := arg.(type) {
	case *object.Integer:
		return v.Value, nil
	case *object.Float:
		return int64(math.Floor(v.Value)), nil
	case *object.String:
		n, err := cast.ToInt64E(strings.ReplaceAll(v.Value, "_", ""))
		if err != nil {
			return 0, ctx.NewError("ArgumentError", "invalid value for Integer(): %s", v.Inspect())
		}
		return n, nil
	case *object.Nil:
		return 0, ctx.NewError("TypeError", "can't convert nil into Integer")
	}
	return 0, typeError(ctx, arg, "Integer")
}

func formatFloat(ctx object.EvaluatorContext, arg object.Object) (float64, error) {
	switch v := arg.(type) {
	case *object.Integer:
		return float64(v.Value), nil
	case *object.Float:
		return v.Value, nil
	case *object.String:
		f, err := cast.ToFloat64E(v.Value)
		if err != nil {
			return 0, ctx.NewError("ArgumentError", "invalid value for Float(): %s", v.Inspect())
		}
		return f, nil
	case *object.Nil:
		return 0, ctx.NewError("TypeError", "can't convert nil into Float")
	}
	return 0, typeError(ctx, arg, "Float")
}

// parseIntBase parses s in base, accepting the matching 0x/0o/0b prefix.
func parseIntBase(s string, base int) (int64, error) {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")
	lower := strings.ToLower(s)
	for prefix, b := range map[string]int{"0x": 16, "0o": 8, "0b": 2} {
		if b == base && strings.HasPrefix(lower, prefix) {
			s = s[2:]
		}
	}
	n, err := strconv.ParseInt(s, base, 64)
	if neg {
		n = -n
	}
	return n, err
}
