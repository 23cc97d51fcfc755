package foreign

import (
	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerComparable(reg *registry.Registry) {
	reg.Method("Comparable", fnComparableOp(func(c int) bool { return c < 0 }), "<")
	reg.Method("Comparable", fnComparableOp(func(c int) bool { return c <= 0 }), "<=")
	reg.Method("Comparable", fnComparableOp(func(c int) bool { return c > 0 }), ">")
	reg.Method("Comparable", fnComparableOp(func(c int) bool { return c >= 0 }), ">=")
	reg.Method("Comparable", fnComparableEqual(), "==")
	reg.Method("Comparable", fnComparableBetween(), "between?")
	reg.Method("Comparable", fnComparableClamp(), "clamp")
}

func fnComparableOp(test func(int) bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		c, err := ctx.Compare(ctx.Self(), args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(test(c)), nil
	}
}

// == through <=> is false, not an error, for incomparable values.
func fnComparableEqual() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		if identical(ctx.Self(), args[0]) {
			return object.TRUE, nil
		}
		if !ctx.RespondTo(ctx.Self(), "<=>", true) {
			return object.FALSE, nil
		}
		out, err := ctx.CallMethod(ctx.Self(), "<=>", []object.Object{args[0]}, nil)
		if err != nil {
			return nil, err
		}
		i, ok := out.(*object.Integer)
		return object.NativeBool(ok && i.Value == 0), nil
	}
}

func fnComparableBetween() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		low, err := ctx.Compare(ctx.Self(), args[0])
		if err != nil {
			return nil, err
		}
		high, err := ctx.Compare(ctx.Self(), args[1])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(low >= 0 && high <= 0), nil
	}
}

// fnComparableClamp accepts clamp(min, max) or clamp(range).
func fnComparableClamp() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		low, high := optArg(args, 0), optArg(args, 1)
		if r, ok := low.(*object.Range); ok && len(args) == 1 {
			if r.Exclusive && !isNil(r.High) {
				return nil, ctx.NewError("ArgumentError", "cannot clamp with an exclusive range")
			}
			low, high = r.Low, r.High
		} else if len(args) == 1 {
			return nil, ctx.NewError("TypeError", "wrong argument type %s (expected Range)", className(ctx, low))
		}
		if !isNil(low) && !isNil(high) {
			c, err := ctx.Compare(low, high)
			if err != nil {
				return nil, err
			}
			if c > 0 {
				return nil, ctx.NewError("ArgumentError", "min argument must be less than or equal to max argument")
			}
		}
		self := ctx.Self()
		if !isNil(low) {
			c, err := ctx.Compare(self, low)
			if err != nil {
				return nil, err
			}
			if c < 0 {
				return low, nil
			}
		}
		if !isNil(high) {
			c, err := ctx.Compare(self, high)
			if err != nil {
				return nil, err
			}
			if c > 0 {
				return high, nil
			}
		}
		return self, nil
	}
}
