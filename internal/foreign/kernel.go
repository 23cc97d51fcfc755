package foreign

import (
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cast"

	"garnet/internal/object"
	"garnet/internal/registry"
)

// Kernel functions are global: they answer receiverless calls from any
// self.
func registerKernel(reg *registry.Registry) {
	reg.Func(fnKernelPuts(), "puts")
	reg.Func(fnKernelPrint(), "print")
	reg.Func(fnKernelP(), "p", "pp")
	reg.Func(fnKernelFormat(), "format", "sprintf")
	reg.Func(fnKernelPrintf(), "printf")
	reg.Func(fnKernelRequire(false), "require")
	reg.Func(fnKernelRequire(true), "require_relative")
	reg.Func(fnKernelLoad(), "load")
	reg.Func(fnKernelLoop(), "loop")
	reg.Func(fnKernelBlockGiven(), "block_given?")
	reg.Func(fnKernelLambda(), "lambda")
	reg.Func(fnKernelProc(), "proc")
	reg.Func(fnKernelInteger(), "Integer")
	reg.Func(fnKernelFloat(), "Float")
	reg.Func(fnKernelString(), "String")
	reg.Func(fnKernelArray(), "Array")
	reg.Func(fnKernelRand(), "rand")
	reg.Func(fnKernelSleep(), "sleep")
	reg.Func(fnKernelEval(), "eval")
	reg.Func(fnKernelLocalVariables(), "local_variables")
	reg.Func(fnKernelMethodName(), "__method__")
}

func writeLine(w io.Writer, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

// putsLines expands arrays one element per line, recursively.
func putsLines(ctx object.EvaluatorContext, obj object.Object, out *[]string) error {
	if arr, ok := obj.(*object.Array); ok {
		for _, e := range arr.Elements {
			if err := putsLines(ctx, e, out); err != nil {
				return err
			}
		}
		return nil
	}
	s, err := ctx.ToS(obj)
	if err != nil {
		return err
	}
	*out = append(*out, s)
	return nil
}

func fnKernelPuts() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if len(args) == 0 {
			_, err := io.WriteString(ctx.Output(), "\n")
			return object.NIL, err
		}
		var lines []string
		for _, arg := range args {
			if arr, ok := arg.(*object.Array); ok && len(arr.Elements) == 0 {
				lines = append(lines, "")
				continue
			}
			if err := putsLines(ctx, arg, &lines); err != nil {
				return nil, err
			}
		}
		for _, line := range lines {
			if err := writeLine(ctx.Output(), line); err != nil {
				return nil, err
			}
		}
		return object.NIL, nil
	}
}

func fnKernelPrint() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		for _, arg := range args {
			s, err := ctx.ToS(arg)
			if err != nil {
				return nil, err
			}
			if _, err := io.WriteString(ctx.Output(), s); err != nil {
				return nil, err
			}
		}
		return object.NIL, nil
	}
}

func fnKernelP() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		for _, arg := range args {
			s, err := ctx.Inspect(arg)
			if err != nil {
				return nil, err
			}
			if err := writeLine(ctx.Output(), s); err != nil {
				return nil, err
			}
		}
		switch len(args) {
		case 0:
			return object.NIL, nil
		case 1:
			return args[0], nil
		}
		return object.NewArray(args...), nil
	}
}

func fnKernelFormat() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, -1); err != nil {
			return nil, err
		}
		pattern, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		s, err := format(ctx, pattern, args[1:])
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

func fnKernelPrintf() object.ForeignFunction {
	formatFn := fnKernelFormat()
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		s, err := formatFn(ctx, args...)
		if err != nil {
			return nil, err
		}
		_, err = io.WriteString(ctx.Output(), s.(*object.String).Value)
		return object.NIL, err
	}
}

func fnKernelRequire(relative bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		path, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		loaded, err := ctx.Require(path, relative)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(loaded), nil
	}
}

func fnKernelLoad() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		path, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		loaded, err := ctx.Load(path)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(loaded), nil
	}
}

// fnKernelLoop repeats the block until it breaks or raises StopIteration.
func fnKernelLoop() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		stop, _ := ctx.ResolveConstant("StopIteration")
		stopClass, _ := stop.(*object.DynamicClass)
		for {
			if _, err := ctx.CallProc(blk); err != nil {
				if stopClass != nil {
					if exc, ok := ctx.Rescue(err, stopClass); ok {
						if result, ok := exc.GetIvar("@result"); ok {
							return result, nil
						}
						return object.NIL, nil
					}
				}
				return nil, err
			}
		}
	}
}

func fnKernelBlockGiven() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(ctx.Frame().Block != nil), nil
	}
}

func fnKernelLambda() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, ctx.NewError("ArgumentError", "tried to create Proc object without a block")
		}
		if blk.Lambda || blk.Fn != nil {
			return blk, nil
		}
		l := object.NewProc(blk.Parameters, blk.Body, blk.Context, true)
		l.Self = blk.Self
		return l, nil
	}
}

func fnKernelProc() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, ctx.NewError("ArgumentError", "tried to create Proc object without a block")
		}
		return blk, nil
	}
}

func fnKernelInteger() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case *object.Integer:
			return v, nil
		case *object.Float:
			return integer(int64(v.Value)), nil
		case *object.String:
			s := strings.ReplaceAll(strings.TrimSpace(v.Value), "_", "")
			if base := optArg(args, 1); base != nil {
				b, err := toInt(ctx, base)
				if err != nil {
					return nil, err
				}
				i, err := parseIntBase(s, int(b))
				if err != nil {
					return nil, ctx.NewError("ArgumentError", "invalid value for Integer(): %s", v.Inspect())
				}
				return integer(i), nil
			}
			i, err := cast.ToInt64E(s)
			if err != nil || s == "" {
				return nil, ctx.NewError("ArgumentError", "invalid value for Integer(): %s", v.Inspect())
			}
			return integer(i), nil
		case *object.Nil:
			return nil, ctx.NewError("TypeError", "can't convert nil into Integer")
		}
		return ctx.CallMethod(args[0], "to_i", nil, nil)
	}
}

func fnKernelFloat() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case *object.Float:
			return v, nil
		case *object.Integer:
			return float(float64(v.Value)), nil
		case *object.String:
			s := strings.ReplaceAll(strings.TrimSpace(v.Value), "_", "")
			f, err := cast.ToFloat64E(s)
			if err != nil || s == "" {
				return nil, ctx.NewError("ArgumentError", "invalid value for Float(): %s", v.Inspect())
			}
			return float(f), nil
		case *object.Nil:
			return nil, ctx.NewError("TypeError", "can't convert nil into Float")
		}
		return ctx.CallMethod(args[0], "to_f", nil, nil)
	}
}

func fnKernelString() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		s, err := ctx.ToS(args[0])
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

func fnKernelArray() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		switch v := args[0].(type) {
		case *object.Array:
			return v, nil
		case *object.Nil:
			return object.NewArray(), nil
		}
		if ctx.RespondTo(args[0], "to_a", true) {
			return ctx.CallMethod(args[0], "to_a", nil, nil)
		}
		return object.NewArray(args[0]), nil
	}
}

func fnKernelRand() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 || isNil(args[0]) {
			return float(rand.Float64()), nil
		}
		switch v := args[0].(type) {
		case *object.Integer:
			if v.Value <= 0 {
				return float(rand.Float64()), nil
			}
			return integer(rand.Int64N(v.Value)), nil
		case *object.Float:
			return float(rand.Float64() * v.Value), nil
		case *object.Range:
			low, high, ok := v.IntBounds()
			if !ok || high < low {
				return object.NIL, nil
			}
			return integer(low + rand.Int64N(high-low+1)), nil
		}
		return nil, typeError(ctx, args[0], "Integer")
	}
}

func fnKernelSleep() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		seconds := 0.0
		if len(args) == 1 {
			var err error
			if seconds, err = toFloat(ctx, args[0]); err != nil {
				return nil, err
			}
			if seconds < 0 {
				return nil, ctx.NewError("ArgumentError", "time interval must not be negative")
			}
		}
		start := time.Now()
		time.Sleep(time.Duration(seconds * float64(time.Second)))
		return integer(int64(time.Since(start).Round(time.Second) / time.Second)), nil
	}
}

func fnKernelEval() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		src, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return ctx.EvalString(src, ctx.Frame().Self, nil)
	}
}

func fnKernelLocalVariables() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		names := ctx.Frame().LocalNames()
		out := make([]object.Object, len(names))
		for i, name := range names {
			out[i] = sym(name)
		}
		return object.NewArray(out...), nil
	}
}

func fnKernelMethodName() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if m := ctx.Frame().Method; m != nil {
			return sym(m.Name), nil
		}
		return object.NIL, nil
	}
}
