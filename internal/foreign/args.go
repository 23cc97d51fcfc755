package foreign

import (
	"garnet/internal/object"
)

// Argument helpers. Errors are language exceptions built through ctx so
// scripts can rescue them.

func checkArgs(ctx object.EvaluatorContext, args []object.Object, min, max int) error {
	if len(args) >= min && (max < 0 || len(args) <= max) {
		return nil
	}
	switch {
	case max < 0:
		return ctx.NewError("ArgumentError", "wrong number of arguments (given %d, expected %d+)", len(args), min)
	case min == max:
		return ctx.NewError("ArgumentError", "wrong number of arguments (given %d, expected %d)", len(args), min)
	}
	return ctx.NewError("ArgumentError", "wrong number of arguments (given %d, expected %d..%d)", len(args), min, max)
}

func typeError(ctx object.EvaluatorContext, obj object.Object, want string) error {
	return ctx.NewError("TypeError", "no implicit conversion of %s into %s", className(ctx, obj), want)
}

func className(ctx object.EvaluatorContext, obj object.Object) string {
	if _, ok := obj.(*object.Nil); ok {
		return "nil"
	}
	return ctx.ClassOf(obj).Name
}

func toInt(ctx object.EvaluatorContext, obj object.Object) (int64, error) {
	switch v := obj.(type) {
	case *object.Integer:
		return v.Value, nil
	case *object.Float:
		return int64(v.Value), nil
	}
	return 0, typeError(ctx, obj, "Integer")
}

func toFloat(ctx object.EvaluatorContext, obj object.Object) (float64, error) {
	switch v := obj.(type) {
	case *object.Integer:
		return float64(v.Value), nil
	case *object.Float:
		return v.Value, nil
	}
	return 0, typeError(ctx, obj, "Float")
}

func toStr(ctx object.EvaluatorContext, obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value, nil
	}
	return "", typeError(ctx, obj, "String")
}

// toName accepts the symbol or string naming a method, variable or
// constant.
func toName(ctx object.EvaluatorContext, obj object.Object) (string, error) {
	switch v := obj.(type) {
	case *object.Symbol:
		return v.Name, nil
	case *object.String:
		return v.Value, nil
	}
	return "", ctx.NewError("TypeError", "%s is not a symbol nor a string", obj.Inspect())
}

func intArg(ctx object.EvaluatorContext, args []object.Object, i int, fallback int64) (int64, error) {
	if i >= len(args) {
		return fallback, nil
	}
	return toInt(ctx, args[i])
}

func optArg(args []object.Object, i int) object.Object {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func str(s string) *object.String { return &object.String{Value: s} }

func integer(i int64) *object.Integer { return &object.Integer{Value: i} }

func float(f float64) *object.Float { return &object.Float{Value: f} }

func sym(name string) *object.Symbol { return object.InternSymbol(name) }

func isNil(obj object.Object) bool {
	_, ok := obj.(*object.Nil)
	return ok || obj == nil
}

// checkFrozen rejects mutation of a frozen receiver.
func checkFrozen(ctx object.EvaluatorContext, obj object.Object) error {
	if ctx.Root().IsFrozen(obj) {
		inspected, err := ctx.Inspect(obj)
		if err != nil {
			inspected = obj.Inspect()
		}
		return ctx.NewError("FrozenError", "can't modify frozen %s: %s", ctx.ClassOf(obj).Name, inspected)
	}
	return nil
}

func requireBlock(ctx object.EvaluatorContext) (*object.Proc, error) {
	if b := ctx.Block(); b != nil {
		return b, nil
	}
	return nil, ctx.NewError("LocalJumpError", "no block given (yield)")
}

func classArg(ctx object.EvaluatorContext, obj object.Object) (*object.DynamicClass, error) {
	if c, ok := obj.(*object.DynamicClass); ok {
		return c, nil
	}
	return nil, ctx.NewError("TypeError", "class or module required")
}

// normalizeIndex maps a possibly negative index into [0, n]; ok is false
// when it falls outside.
func normalizeIndex(i int64, n int) (int, bool) {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i > int64(n) {
		return 0, false
	}
	return int(i), true
}

// rangeSpan resolves a range against a sequence of length n into a start
// and count.
func rangeSpan(ctx object.EvaluatorContext, r *object.Range, n int) (start, count int, ok bool, err error) {
	low, err := toInt(ctx, r.Low)
	if err != nil {
		return 0, 0, false, err
	}
	high := int64(n - 1)
	if !isNil(r.High) {
		if high, err = toInt(ctx, r.High); err != nil {
			return 0, 0, false, err
		}
		if high < 0 {
			high += int64(n)
		}
		if r.Exclusive {
			high--
		}
	}
	s, inside := normalizeIndex(low, n)
	if !inside {
		return 0, 0, false, nil
	}
	if high >= int64(n) {
		high = int64(n - 1)
	}
	return s, max(int(high)-s+1, 0), true, nil
}
