package foreign

import (
	"math"
	"strconv"
	"strings"

	"garnet/internal/object"
	"garnet/internal/registry"
)

// Namespace is a class or module the library adds constants to. Module
// namespaces are created by the machine; the others already exist.
type Namespace struct {
	Name      string
	Module    bool
	Constants map[string]object.Object
}

func Namespaces() []Namespace {
	return []Namespace{
		{Name: "Digest", Module: true},
		{Name: "Math", Module: true, Constants: map[string]object.Object{
			"PI": float(math.Pi),
			"E":  float(math.E),
		}},
		{Name: "Float", Constants: map[string]object.Object{
			"INFINITY": float(math.Inf(1)),
			"NAN":      float(math.NaN()),
			"EPSILON":  float(2.220446049250313e-16),
			"MAX":      float(math.MaxFloat64),
			"MIN":      float(math.SmallestNonzeroFloat64),
		}},
		{Name: "Integer", Constants: map[string]object.Object{
			"MAX": integer(math.MaxInt64),
			"MIN": integer(math.MinInt64),
		}},
	}
}

func registerNumeric(reg *registry.Registry) {
	reg.Method("Numeric", fnNumAbs(), "abs", "magnitude")
	reg.Method("Numeric", fnNumSign(func(f float64) bool { return f == 0 }), "zero?")
	reg.Method("Numeric", fnNumSign(func(f float64) bool { return f > 0 }), "positive?")
	reg.Method("Numeric", fnNumSign(func(f float64) bool { return f < 0 }), "negative?")
	reg.Method("Numeric", fnNumNonzero(), "nonzero?")
	reg.Method("Numeric", fnNumStep(), "step")
	reg.Method("Numeric", fnNumDivmod(), "divmod")
	reg.Method("Numeric", fnNumFdiv(), "fdiv")
	reg.Method("Numeric", fnNumDiv(), "div")
	reg.Method("Numeric", fnNumModulo(), "modulo")
	reg.Method("Numeric", fnNumRemainder(), "remainder")
	reg.Method("Numeric", fnNumCoerce(), "coerce")

	reg.Method("Integer", fnIntToS(), "to_s", "inspect")
	reg.Method("Integer", fnObjectItself(), "to_i", "to_int", "floor", "ceil", "truncate")
	reg.Method("Integer", fnIntRound(), "round")
	reg.Method("Integer", fnIntToF(), "to_f")
	reg.Method("Integer", fnIntChr(), "chr")
	reg.Method("Integer", fnObjectItself(), "ord")
	reg.Method("Integer", fnIntTimes(), "times")
	reg.Method("Integer", fnIntUpto(1), "upto")
	reg.Method("Integer", fnIntUpto(-1), "downto")
	reg.Method("Integer", fnIntAdd(1), "succ", "next")
	reg.Method("Integer", fnIntAdd(-1), "pred")
	reg.Method("Integer", fnIntParity(0), "even?")
	reg.Method("Integer", fnIntParity(1), "odd?")
	reg.Method("Integer", fnIntPow(), "pow")
	reg.Method("Integer", fnIntGcd(false), "gcd")
	reg.Method("Integer", fnIntGcd(true), "lcm")
	reg.Method("Integer", fnIntDigits(), "digits")
	reg.Method("Integer", fnIntBitLength(), "bit_length")
	reg.Method("Integer", fnConst(object.TRUE), "integer?", "finite?")
	reg.Method("Integer", fnConst(object.NIL), "infinite?")
	reg.Method("Integer", fnConst(object.FALSE), "nan?")
	reg.Method("Integer", fnConst(integer(8)), "size")

	reg.Method("Float", fnFloatToS(), "to_s", "inspect")
	reg.Method("Float", fnFloatToI(), "to_i", "to_int", "truncate")
	reg.Method("Float", fnObjectItself(), "to_f")
	reg.Method("Float", fnFloatRound(math.Round), "round")
	reg.Method("Float", fnFloatRound(math.Floor), "floor")
	reg.Method("Float", fnFloatRound(math.Ceil), "ceil")
	reg.Method("Float", fnFloatNaN(), "nan?")
	reg.Method("Float", fnFloatInfinite(), "infinite?")
	reg.Method("Float", fnFloatFinite(), "finite?")
	reg.Method("Float", fnConst(object.FALSE), "integer?")
	reg.Method("Float", fnFloatNext(1), "next_float")
	reg.Method("Float", fnFloatNext(-1), "prev_float")

	reg.StaticMethod("Math", fnMath1(math.Sqrt, "sqrt"), "sqrt")
	reg.StaticMethod("Math", fnMath1(math.Cbrt, ""), "cbrt")
	reg.StaticMethod("Math", fnMath1(math.Sin, ""), "sin")
	reg.StaticMethod("Math", fnMath1(math.Cos, ""), "cos")
	reg.StaticMethod("Math", fnMath1(math.Tan, ""), "tan")
	reg.StaticMethod("Math", fnMath1(math.Asin, ""), "asin")
	reg.StaticMethod("Math", fnMath1(math.Acos, ""), "acos")
	reg.StaticMethod("Math", fnMath1(math.Atan, ""), "atan")
	reg.StaticMethod("Math", fnMath1(math.Exp, ""), "exp")
	reg.StaticMethod("Math", fnMath1(math.Log2, "log2"), "log2")
	reg.StaticMethod("Math", fnMath1(math.Log10, "log10"), "log10")
	reg.StaticMethod("Math", fnMathLog(), "log")
	reg.StaticMethod("Math", fnMath2(math.Atan2), "atan2")
	reg.StaticMethod("Math", fnMath2(math.Hypot), "hypot")
	reg.StaticMethod("Math", fnMath2(math.Pow), "pow")
}

func fnConst(v object.Object) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return v, nil
	}
}

// number returns the receiver or argument as float64, keeping note of
// whether it was an Integer.
func number(ctx object.EvaluatorContext, obj object.Object) (float64, bool, error) {
	switch v := obj.(type) {
	case *object.Integer:
		return float64(v.Value), true, nil
	case *object.Float:
		return v.Value, false, nil
	}
	return 0, false, ctx.NewError("TypeError", "%s can't be coerced into %s", className(ctx, obj), className(ctx, ctx.Self()))
}

func fnNumAbs() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		switch v := ctx.Self().(type) {
		case *object.Integer:
			if v.Value < 0 {
				return integer(-v.Value), nil
			}
			return v, nil
		case *object.Float:
			return float(math.Abs(v.Value)), nil
		}
		return ctx.CallMethod(ctx.Self(), "-@", nil, nil)
	}
}

func fnNumSign(test func(float64) bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		f, _, err := number(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		return object.NativeBool(test(f)), nil
	}
}

func fnNumNonzero() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		f, _, err := number(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		if f == 0 {
			return object.NIL, nil
		}
		return ctx.Self(), nil
	}
}

// fnNumStep is step(limit, step = 1). Float steps are computed from the
// start each time so error does not accumulate.
func fnNumStep() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		var by object.Object = integer(1)
		if len(args) == 2 {
			by = args[1]
		}
		start, startInt, err := number(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		limit, limitInt, err := number(ctx, args[0])
		if err != nil {
			return nil, err
		}
		step, stepInt, err := number(ctx, by)
		if err != nil {
			return nil, err
		}
		if step == 0 {
			return nil, ctx.NewError("ArgumentError", "step can't be 0")
		}
		var values []object.Object
		if startInt && limitInt && stepInt {
			a, b, s := int64(start), int64(limit), int64(step)
			for i := a; (s > 0 && i <= b) || (s < 0 && i >= b); i += s {
				values = append(values, integer(i))
			}
		} else {
			n := math.Floor((limit-start)/step + 1e-9)
			for i := 0.0; i <= n; i++ {
				values = append(values, float(start+i*step))
			}
		}
		blk := ctx.Block()
		if blk == nil {
			return object.NewArray(values...), nil
		}
		for _, v := range values {
			if _, err := ctx.CallProc(blk, v); err != nil {
				return nil, err
			}
		}
		return ctx.Self(), nil
	}
}

func arith(ctx object.EvaluatorContext, op string, a, b object.Object) (object.Object, error) {
	return ctx.CallMethod(a, op, []object.Object{b}, nil)
}

func fnNumDivmod() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		q, err := divide(ctx, ctx.Self(), args[0])
		if err != nil {
			return nil, err
		}
		m, err := arith(ctx, "%", ctx.Self(), args[0])
		if err != nil {
			return nil, err
		}
		return object.NewArray(q, m), nil
	}
}

// divide is floored division that always yields an Integer.
func divide(ctx object.EvaluatorContext, a, b object.Object) (object.Object, error) {
	q, err := arith(ctx, "/", a, b)
	if err != nil {
		return nil, err
	}
	if f, ok := q.(*object.Float); ok {
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			return nil, ctx.NewError("ZeroDivisionError", "divided by 0")
		}
		return integer(int64(math.Floor(f.Value))), nil
	}
	return q, nil
}

func fnNumDiv() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		return divide(ctx, ctx.Self(), args[0])
	}
}

func fnNumModulo() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		return arith(ctx, "%", ctx.Self(), args[0])
	}
}

// remainder truncates toward zero, unlike %.
func fnNumRemainder() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		a, aInt, err := number(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		b, bInt, err := number(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if aInt && bInt {
			if b == 0 {
				return nil, ctx.NewError("ZeroDivisionError", "divided by 0")
			}
			return integer(int64(a) % int64(b)), nil
		}
		return float(math.Mod(a, b)), nil
	}
}

func fnNumFdiv() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		a, _, err := number(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		b, _, err := number(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return float(a / b), nil
	}
}

func fnNumCoerce() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		if a, ok := ctx.Self().(*object.Integer); ok {
			if b, ok := args[0].(*object.Integer); ok {
				return object.NewArray(b, a), nil
			}
		}
		a, _, err := number(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		b, _, err := number(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return object.NewArray(float(b), float(a)), nil
	}
}

func selfInt(ctx object.EvaluatorContext) int64 {
	return ctx.Self().(*object.Integer).Value
}

func fnIntToS() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		base, err := intArg(ctx, args, 0, 10)
		if err != nil {
			return nil, err
		}
		if base < 2 || base > 36 {
			return nil, ctx.NewError("ArgumentError", "invalid radix %d", base)
		}
		return str(strconv.FormatInt(selfInt(ctx), int(base))), nil
	}
}

// fnIntRound rounds to a power of ten for negative digits, halves away
// from zero.
func fnIntRound() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		digits, err := intArg(ctx, args, 0, 0)
		if err != nil {
			return nil, err
		}
		n := selfInt(ctx)
		if digits >= 0 {
			return integer(n), nil
		}
		if digits < -18 {
			return integer(0), nil
		}
		p := ipow10(-digits)
		r := n % p
		if r < 0 {
			r = -r
		}
		down := n - n%p
		if r*2 >= p {
			if n < 0 {
				return integer(down - p), nil
			}
			return integer(down + p), nil
		}
		return integer(down), nil
	}
}

func ipow10(n int64) int64 {
	p := int64(1)
	for ; n > 0; n-- {
		p *= 10
	}
	return p
}

func fnIntToF() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return float(float64(selfInt(ctx))), nil
	}
}

func fnIntChr() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		n := selfInt(ctx)
		if n < 0 || n > 0x10FFFF {
			return nil, ctx.NewError("RangeError", "%d out of char range", n)
		}
		return str(string(rune(n))), nil
	}
}

func fnIntTimes() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		n := selfInt(ctx)
		blk := ctx.Block()
		if blk == nil {
			out := make([]object.Object, 0, max(n, 0))
			for i := int64(0); i < n; i++ {
				out = append(out, integer(i))
			}
			return object.NewArray(out...), nil
		}
		for i := int64(0); i < n; i++ {
			if _, err := ctx.CallProc(blk, integer(i)); err != nil {
				return nil, err
			}
		}
		return ctx.Self(), nil
	}
}

func fnIntUpto(dir int64) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		limit, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		blk := ctx.Block()
		var out []object.Object
		for i := selfInt(ctx); (dir > 0 && i <= limit) || (dir < 0 && i >= limit); i += dir {
			if blk == nil {
				out = append(out, integer(i))
				continue
			}
			if _, err := ctx.CallProc(blk, integer(i)); err != nil {
				return nil, err
			}
		}
		if blk == nil {
			return object.NewArray(out...), nil
		}
		return ctx.Self(), nil
	}
}

func fnIntAdd(delta int64) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(selfInt(ctx) + delta), nil
	}
}

func fnIntParity(rem int64) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		n := selfInt(ctx) % 2
		if n < 0 {
			n = -n
		}
		return object.NativeBool(n == rem), nil
	}
}

// fnIntPow is pow(exp) or the modular pow(exp, mod).
func fnIntPow() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return arith(ctx, "**", ctx.Self(), args[0])
		}
		exp, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		mod, err := toInt(ctx, args[1])
		if err != nil {
			return nil, err
		}
		if mod == 0 {
			return nil, ctx.NewError("ZeroDivisionError", "divided by 0")
		}
		if exp < 0 {
			return nil, ctx.NewError("RangeError", "Integer#pow() 2nd argument not allowed to be negative when 3rd argument specified")
		}
		base, result := selfInt(ctx)%mod, int64(1)
		for ; exp > 0; exp >>= 1 {
			if exp&1 == 1 {
				result = result * base % mod
			}
			base = base * base % mod
		}
		if result < 0 && mod > 0 || result > 0 && mod < 0 {
			result += mod
		}
		return integer(result), nil
	}
}

func gcd(a, b int64) int64 {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func fnIntGcd(lcm bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		b, ok := args[0].(*object.Integer)
		if !ok {
			return nil, ctx.NewError("TypeError", "not an integer")
		}
		a := selfInt(ctx)
		g := gcd(a, b.Value)
		if !lcm {
			return integer(g), nil
		}
		if g == 0 {
			return integer(0), nil
		}
		l := a / g * b.Value
		if l < 0 {
			l = -l
		}
		return integer(l), nil
	}
}

func fnIntDigits() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		base, err := intArg(ctx, args, 0, 10)
		if err != nil {
			return nil, err
		}
		if base < 2 {
			return nil, ctx.NewError("ArgumentError", "invalid radix %d", base)
		}
		n := selfInt(ctx)
		if n < 0 {
			return nil, ctx.NewError("ArgumentError", "out of domain")
		}
		out := []object.Object{integer(n % base)}
		for n /= base; n > 0; n /= base {
			out = append(out, integer(n%base))
		}
		return object.NewArray(out...), nil
	}
}

func fnIntBitLength() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		n := selfInt(ctx)
		if n < 0 {
			n = ^n
		}
		return integer(int64(len(strconv.FormatInt(n, 2)) - boolInt(n == 0))), nil
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func selfFloat(ctx object.EvaluatorContext) float64 {
	return ctx.Self().(*object.Float).Value
}

func fnFloatToS() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(object.FormatFloat(selfFloat(ctx))), nil
	}
}

func floatToInt(ctx object.EvaluatorContext, f float64) (object.Object, error) {
	switch {
	case math.IsNaN(f):
		return nil, ctx.NewError("FloatDomainError", "NaN")
	case math.IsInf(f, 1):
		return nil, ctx.NewError("FloatDomainError", "Infinity")
	case math.IsInf(f, -1):
		return nil, ctx.NewError("FloatDomainError", "-Infinity")
	case f >= math.MaxInt64 || f < math.MinInt64:
		return nil, ctx.NewError("RangeError", "float %s out of range of integer", object.FormatFloat(f))
	}
	return integer(int64(f)), nil
}

func fnFloatToI() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return floatToInt(ctx, math.Trunc(selfFloat(ctx)))
	}
}

// fnFloatRound applies round, floor or ceil at a number of decimal digits.
// With no digits or fewer the result is an Integer.
func fnFloatRound(fn func(float64) float64) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 2); err != nil {
			return nil, err
		}
		digits := int64(0)
		if len(args) > 0 {
			if _, isHash := args[0].(*object.Hash); !isHash {
				d, err := toInt(ctx, args[0])
				if err != nil {
					return nil, err
				}
				digits = d
			}
		}
		f := selfFloat(ctx)
		if digits > 0 {
			if math.IsNaN(f) || math.IsInf(f, 0) || digits > 15 {
				return float(f), nil
			}
			p := math.Pow(10, float64(digits))
			rounded := fn(f*p) / p
			// snap to the float nearest the printed decimal
			if s := strconv.FormatFloat(rounded, 'f', int(digits), 64); s != "" {
				if v, err := strconv.ParseFloat(s, 64); err == nil {
					rounded = v
				}
			}
			return float(rounded), nil
		}
		p := math.Pow(10, float64(-digits))
		return floatToInt(ctx, fn(f/p)*p)
	}
}

func fnFloatNaN() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(math.IsNaN(selfFloat(ctx))), nil
	}
}

func fnFloatInfinite() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		f := selfFloat(ctx)
		switch {
		case math.IsInf(f, 1):
			return integer(1), nil
		case math.IsInf(f, -1):
			return integer(-1), nil
		}
		return object.NIL, nil
	}
}

func fnFloatFinite() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		f := selfFloat(ctx)
		return object.NativeBool(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
	}
}

func fnFloatNext(dir float64) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return float(math.Nextafter(selfFloat(ctx), math.Inf(int(dir)))), nil
	}
}

func mathArg(ctx object.EvaluatorContext, obj object.Object) (float64, error) {
	f, _, err := number(ctx, obj)
	if err != nil {
		return 0, ctx.NewError("TypeError", "can't convert %s into Float", className(ctx, obj))
	}
	return f, nil
}

// fnMath1 wraps a one-argument function. A non-empty domain names a
// function that rejects negative input.
func fnMath1(fn func(float64) float64, domain string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		x, err := mathArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if domain != "" && x < 0 {
			return nil, ctx.NewError("ArgumentError", "Numerical argument is out of domain - \"%s\"", domain)
		}
		return float(fn(x)), nil
	}
}

func fnMath2(fn func(float64, float64) float64) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		a, err := mathArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		b, err := mathArg(ctx, args[1])
		if err != nil {
			return nil, err
		}
		return float(fn(a, b)), nil
	}
}

func fnMathLog() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		x, err := mathArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if x < 0 {
			return nil, ctx.NewError("ArgumentError", "Numerical argument is out of domain - \"log\"")
		}
		if len(args) == 2 {
			base, err := mathArg(ctx, args[1])
			if err != nil {
				return nil, err
			}
			return float(math.Log(x) / math.Log(base)), nil
		}
		return float(math.Log(x)), nil
	}
}

// trimNumber strips underscores between digits, as numeric literals allow.
func trimNumber(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "_", "")
}
