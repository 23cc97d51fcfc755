package foreign

import (
	"math"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerRange(reg *registry.Registry) {
	reg.Method("Range", fnRangeBound(true), "begin")
	reg.Method("Range", fnRangeBound(false), "end")
	reg.Method("Range", fnRangeFirst(), "first")
	reg.Method("Range", fnRangeLast(), "last")
	reg.Method("Range", fnRangeMinMax(-1), "min")
	reg.Method("Range", fnRangeMinMax(1), "max")
	reg.Method("Range", fnRangeEach(), "each")
	reg.Method("Range", fnRangeToA(), "to_a", "entries", "to_ary")
	reg.Method("Range", fnRangeCover(), "include?", "member?", "cover?", "===")
	reg.Method("Range", fnRangeStep(), "step", "%")
	reg.Method("Range", fnRangeSize(), "size")
	reg.Method("Range", fnRangeCount(), "count")
	reg.Method("Range", fnRangeSum(), "sum")
	reg.Method("Range", fnRangeExcludeEnd(), "exclude_end?")
	reg.Method("Range", fnValueEqual(), "==", "eql?")
	reg.Method("Range", fnValueInspect(), "inspect")
	reg.Method("Range", fnRangeToS(), "to_s")
}

func selfRange(ctx object.EvaluatorContext) *object.Range {
	return ctx.Self().(*object.Range)
}

func fnRangeBound(low bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if low {
			return selfRange(ctx).Low, nil
		}
		return selfRange(ctx).High, nil
	}
}

// rangeValues lists the elements of a finite range: integers, or strings
// stepped by succ.
func rangeValues(ctx object.EvaluatorContext, r *object.Range) ([]object.Object, error) {
	if isNil(r.High) {
		return nil, ctx.NewError("RangeError", "cannot convert endless range to an array")
	}
	if low, high, ok := r.IntBounds(); ok {
		var out []object.Object
		for i := low; i <= high; i++ {
			out = append(out, integer(i))
		}
		return out, nil
	}
	if low, ok := r.Low.(*object.String); ok {
		high, err := toStr(ctx, r.High)
		if err != nil {
			return nil, err
		}
		return strRange(low.Value, high, r.Exclusive), nil
	}
	return nil, ctx.NewError("TypeError", "can't iterate from %s", className(ctx, r.Low))
}

func fnRangeEach() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		r := selfRange(ctx)
		if low, ok := r.Low.(*object.Integer); ok {
			switch high := r.High.(type) {
			case *object.Float:
				for i := low.Value; float64(i) < high.Value || (!r.Exclusive && float64(i) == high.Value); i++ {
					if _, err := ctx.CallProc(blk, integer(i)); err != nil {
						return nil, err
					}
				}
				return r, nil
			case *object.Integer, *object.Nil:
				err := each(ctx, r, func(item object.Object) (bool, error) {
					_, err := ctx.CallProc(blk, item)
					return false, err
				})
				if err != nil {
					return nil, err
				}
				return r, nil
			}
		}
		values, err := rangeValues(ctx, r)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			if _, err := ctx.CallProc(blk, v); err != nil {
				return nil, err
			}
		}
		return r, nil
	}
}

func fnRangeToA() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		r := selfRange(ctx)
		if _, ok := r.Low.(*object.Integer); ok && !isNil(r.High) {
			items, err := collect(ctx, r)
			if err != nil {
				return nil, err
			}
			return object.NewArray(items...), nil
		}
		values, err := rangeValues(ctx, r)
		if err != nil {
			return nil, err
		}
		return object.NewArray(values...), nil
	}
}

func fnRangeFirst() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		r := selfRange(ctx)
		if len(args) == 0 {
			if isNil(r.Low) {
				return nil, ctx.NewError("RangeError", "cannot get the first element of beginless range")
			}
			return r.Low, nil
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, ctx.NewError("ArgumentError", "negative array size (or size too big)")
		}
		return takeN(ctx, r, n)
	}
}

func fnRangeLast() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		r := selfRange(ctx)
		if len(args) == 0 {
			if isNil(r.High) {
				return nil, ctx.NewError("RangeError", "cannot get the last element of endless range")
			}
			return r.High, nil
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		values, err := rangeValues(ctx, r)
		if err != nil {
			return nil, err
		}
		from := max(len(values)-int(n), 0)
		return object.NewArray(values[from:]...), nil
	}
}

// fnRangeMinMax answers the bounds directly for numeric ranges without a
// block; anything else goes through Enumerable.
func fnRangeMinMax(dir int) object.ForeignFunction {
	generic := fnEnumExtreme(dir)
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		r := selfRange(ctx)
		if ctx.Block() != nil || len(args) > 0 {
			return generic(ctx, args...)
		}
		if isNil(r.High) {
			if dir < 0 {
				return r.Low, nil
			}
			return nil, ctx.NewError("RangeError", "cannot get the maximum of endless range")
		}
		c, err := ctx.Compare(r.Low, r.High)
		if err != nil {
			return nil, err
		}
		if c > 0 || (c == 0 && r.Exclusive) {
			return object.NIL, nil
		}
		if dir < 0 {
			return r.Low, nil
		}
		if _, _, ok := r.IntBounds(); ok && r.Exclusive {
			return integer(r.High.(*object.Integer).Value - 1), nil
		}
		if r.Exclusive {
			return nil, ctx.NewError("TypeError", "cannot exclude non Integer end value")
		}
		return r.High, nil
	}
}

// compareOK is Compare with incomparable values reported as ok=false
// rather than raised.
func compareOK(ctx object.EvaluatorContext, a, b object.Object) (int, bool, error) {
	c, err := ctx.Compare(a, b)
	if err == nil {
		return c, true, nil
	}
	if cls, cerr := ctx.ResolveConstant("ArgumentError"); cerr == nil {
		if argErr, ok := cls.(*object.DynamicClass); ok {
			if _, rescued := ctx.Rescue(err, argErr); rescued {
				return 0, false, nil
			}
		}
	}
	return 0, false, err
}

// covers reports low <= v < high (or <= high), with nil bounds open.
func covers(ctx object.EvaluatorContext, r *object.Range, v object.Object) (bool, error) {
	if !isNil(r.Low) {
		c, ok, err := compareOK(ctx, r.Low, v)
		if err != nil || !ok || c > 0 {
			return false, err
		}
	}
	if !isNil(r.High) {
		c, ok, err := compareOK(ctx, v, r.High)
		if err != nil || !ok {
			return false, err
		}
		if c > 0 || (c == 0 && r.Exclusive) {
			return false, nil
		}
	}
	return true, nil
}

func fnRangeCover() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		outer := selfRange(ctx)
		if inner, ok := args[0].(*object.Range); ok && ctx.MethodName() == "cover?" {
			lowIn, err := covers(ctx, outer, inner.Low)
			if err != nil || !lowIn {
				return object.FALSE, err
			}
			highIn, err := covers(ctx, outer, inner.High)
			if err != nil || highIn {
				return object.NativeBool(highIn), err
			}
			// a...5 covers b...5
			if inner.Exclusive && outer.Exclusive {
				eq, err := ctx.Equal(inner.High, outer.High)
				return object.NativeBool(eq), err
			}
			return object.FALSE, nil
		}
		ok, err := covers(ctx, outer, args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(ok), nil
	}
}

// fnRangeStep walks numeric ranges by n. Integer steps of integer ranges
// yield integers; anything involving a float yields floats.
func fnRangeStep() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		r := selfRange(ctx)
		step, stepInt, err := number(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if step == 0 {
			return nil, ctx.NewError("ArgumentError", "step can't be 0")
		}
		if step < 0 {
			return nil, ctx.NewError("ArgumentError", "step can't be negative")
		}
		low, lowInt, err := number(ctx, r.Low)
		if err != nil {
			return nil, err
		}
		high := math.Inf(1)
		highInt := true
		if !isNil(r.High) {
			if high, highInt, err = number(ctx, r.High); err != nil {
				return nil, err
			}
		}
		ints := stepInt && lowInt && highInt
		blk := ctx.Block()
		if blk == nil && math.IsInf(high, 1) {
			return nil, ctx.NewError("RangeError", "cannot convert endless range to an array")
		}
		var out []object.Object
		for i := 0; ; i++ {
			v := low + float64(i)*step
			if v > high || (r.Exclusive && v == high) {
				break
			}
			var item object.Object = float(v)
			if ints {
				item = integer(int64(v))
			}
			if blk == nil {
				out = append(out, item)
				continue
			}
			if _, err := ctx.CallProc(blk, item); err != nil {
				return nil, err
			}
		}
		if blk != nil {
			return r, nil
		}
		return object.NewArray(out...), nil
	}
}

func fnRangeSize() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		r := selfRange(ctx)
		low, _, err := number(ctx, r.Low)
		if err != nil {
			if _, isInt := r.Low.(*object.Integer); !isInt {
				return object.NIL, nil
			}
			return nil, err
		}
		if isNil(r.High) {
			return float(math.Inf(1)), nil
		}
		high, _, err := number(ctx, r.High)
		if err != nil {
			return object.NIL, nil
		}
		n := math.Floor(high-low) + 1
		if r.Exclusive && math.Floor(high-low) == high-low {
			n--
		}
		return integer(int64(max(n, 0))), nil
	}
}

// fnRangeCount answers the size directly when there is nothing to match.
func fnRangeCount() object.ForeignFunction {
	generic := fnEnumCount()
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if len(args) == 0 && ctx.Block() == nil {
			if _, _, ok := selfRange(ctx).IntBounds(); ok || isNil(selfRange(ctx).High) {
				return fnRangeSize()(ctx)
			}
		}
		return generic(ctx, args...)
	}
}

// fnRangeSum uses the arithmetic series for plain integer ranges.
func fnRangeSum() object.ForeignFunction {
	generic := fnEnumSum()
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		low, high, ok := selfRange(ctx).IntBounds()
		if !ok || ctx.Block() != nil || len(args) > 0 {
			return generic(ctx, args...)
		}
		if high < low {
			return integer(0), nil
		}
		return integer((low + high) * (high - low + 1) / 2), nil
	}
}

func fnRangeExcludeEnd() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(selfRange(ctx).Exclusive), nil
	}
}

func fnRangeToS() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		r := selfRange(ctx)
		low, err := ctx.ToS(r.Low)
		if err != nil {
			return nil, err
		}
		high, err := ctx.ToS(r.High)
		if err != nil {
			return nil, err
		}
		op := ".."
		if r.Exclusive {
			op = "..."
		}
		return str(low + op + high), nil
	}
}
