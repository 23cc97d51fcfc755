package foreign

import (
	"strings"
	"unicode/utf8"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerSymbol(reg *registry.Registry) {
	reg.Method("Symbol", fnSymToProc(), "to_proc")
	reg.Method("Symbol", fnSymToS(), "to_s", "id2name", "name")
	reg.Method("Symbol", fnObjectItself(), "to_sym")
	reg.Method("Symbol", fnSymInspect(), "inspect")
	reg.Method("Symbol", fnSymLength(), "length", "size")
	reg.Method("Symbol", fnSymCompare(), "<=>")
	reg.Method("Symbol", fnSymEmpty(), "empty?")
	reg.Method("Symbol", fnSymDelegate("[]"), "[]")
	reg.Method("Symbol", fnSymDelegate("start_with?"), "start_with?")
	reg.Method("Symbol", fnSymDelegate("end_with?"), "end_with?")
	for _, name := range []string{"upcase", "downcase", "capitalize", "swapcase", "succ"} {
		reg.Method("Symbol", fnSymTransform(name), name)
	}
	reg.Method("Symbol", fnSymTransform("succ"), "next")
}

func selfSym(ctx object.EvaluatorContext) *object.Symbol {
	return ctx.Self().(*object.Symbol)
}

// fnSymToProc makes :name.to_proc, a lambda that sends name to its first
// argument.
func fnSymToProc() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		name := selfSym(ctx).Name
		return object.NewNativeProc(func(inner object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			if len(args) == 0 {
				return nil, inner.NewError("ArgumentError", "no receiver given")
			}
			return inner.CallMethod(args[0], name, args[1:], inner.Block())
		}, true), nil
	}
}

func fnSymToS() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(selfSym(ctx).Name), nil
	}
}

func fnSymInspect() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(selfSym(ctx).Inspect()), nil
	}
}

func fnSymLength() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(int64(utf8.RuneCountInString(selfSym(ctx).Name))), nil
	}
}

func fnSymCompare() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, ok := args[0].(*object.Symbol)
		if !ok {
			return object.NIL, nil
		}
		return integer(int64(strings.Compare(selfSym(ctx).Name, other.Name))), nil
	}
}

func fnSymEmpty() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(selfSym(ctx).Name == ""), nil
	}
}

// fnSymDelegate answers through the String method of the same name.
func fnSymDelegate(name string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return ctx.CallMethod(str(selfSym(ctx).Name), name, args, ctx.Block())
	}
}

func fnSymTransform(name string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		out, err := ctx.CallMethod(str(selfSym(ctx).Name), name, nil, nil)
		if err != nil {
			return nil, err
		}
		s, err := toStr(ctx, out)
		if err != nil {
			return nil, err
		}
		return sym(s), nil
	}
}
