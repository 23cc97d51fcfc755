package evaluator

import (
	"math"
	"strings"

	"garnet/internal/ast"
	"garnet/internal/object"
	"garnet/internal/registry"
)

func (e *Evaluator) evalLogical(node *ast.LogicalExpression, ctx *object.Context) (object.Object, error) {
	left, err := e.Eval(node.Left, ctx)
	if err != nil {
		return nil, err
	}
	truthy := object.IsTruthy(left)
	if (node.Operator == "&&" && !truthy) || (node.Operator == "||" && truthy) {
		return left, nil
	}
	return e.Eval(node.Right, ctx)
}

func (e *Evaluator) evalUnary(node *ast.UnaryExpression, ctx *object.Context) (object.Object, error) {
	right, err := e.Eval(node.Right, ctx)
	if err != nil {
		return nil, err
	}
	switch node.Operator {
	case "!":
		if _, ok := right.(*object.DynamicObject); ok && e.respondTo(right, "!", false) {
			return e.send(ctx, right, "!", nil, nil, false, node.Pos())
		}
		return object.NativeBool(!object.IsTruthy(right)), nil
	case "-":
		switch r := right.(type) {
		case *object.Integer:
			if r.Value == math.MinInt64 {
				return nil, e.errorAt(node.Pos(), "RangeError", "integer overflow in -%d", r.Value)
			}
			return &object.Integer{Value: -r.Value}, nil
		case *object.Float:
			return &object.Float{Value: -r.Value}, nil
		}
		return e.send(ctx, right, "-@", nil, nil, false, node.Pos())
	case "+":
		switch right.(type) {
		case *object.Integer, *object.Float:
			return right, nil
		}
		return e.send(ctx, right, "+@", nil, nil, false, node.Pos())
	case "~":
		if r, ok := right.(*object.Integer); ok {
			return &object.Integer{Value: ^r.Value}, nil
		}
		return e.send(ctx, right, "~", nil, nil, false, node.Pos())
	}
	return nil, e.errorAt(node.Pos(), "SyntaxError", "unknown operator %s", node.Operator)
}

// evalBinary computes operators on numbers and strings directly; every
// other operand pair becomes a method call on the left operand.
func (e *Evaluator) evalBinary(node *ast.BinaryExpression, ctx *object.Context) (object.Object, error) {
	left, err := e.Eval(node.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(node.Right, ctx)
	if err != nil {
		return nil, err
	}
	return e.binaryOp(ctx, node.Operator, left, right, node.Pos())
}

func (e *Evaluator) binaryOp(ctx *object.Context, op string, left, right object.Object, pos int) (object.Object, error) {
	if out, ok, err := e.primitiveOp(op, left, right, pos); ok || err != nil {
		return out, err
	}
	switch op {
	case "!=":
		if r, ok := e.findMethod(left, "!=", nil); ok && r.method != nil {
			return e.invoke(ctx, r, left, "!=", []object.Object{right}, nil, pos)
		}
		eq, err := e.equal(ctx, left, right, pos)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(!eq), nil
	case "==":
		eq, err := e.equal(ctx, left, right, pos)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(eq), nil
	case "===":
		ok, err := e.caseEqual(ctx, left, right, pos)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(ok), nil
	}
	return e.send(ctx, left, op, []object.Object{right}, nil, false, pos)
}

// primitiveOp handles Integer, Float and String operands. ok is false when
// the operands are not primitives the operator applies to.
func (e *Evaluator) primitiveOp(op string, left, right object.Object, pos int) (object.Object, bool, error) {
	switch l := left.(type) {
	case *object.Integer:
		switch r := right.(type) {
		case *object.Integer:
			return e.integerOp(op, l.Value, r.Value, pos)
		case *object.Float:
			return e.floatOp(op, float64(l.Value), r.Value, pos)
		}
	case *object.Float:
		switch r := right.(type) {
		case *object.Integer:
			return e.floatOp(op, l.Value, float64(r.Value), pos)
		case *object.Float:
			return e.floatOp(op, l.Value, r.Value, pos)
		}
	case *object.String:
		if r, ok := right.(*object.String); ok {
			return stringOp(op, l.Value, r.Value)
		}
	}
	return nil, false, nil
}

func (e *Evaluator) integerOp(op string, a, b int64, pos int) (object.Object, bool, error) {
	integer := func(v int64) (object.Object, bool, error) { return &object.Integer{Value: v}, true, nil }
	boolean := func(v bool) (object.Object, bool, error) { return object.NativeBool(v), true, nil }
	checked := func(v int64, ok bool) (object.Object, bool, error) {
		if !ok {
			return nil, true, e.errorAt(pos, "RangeError", "integer overflow in %d %s %d", a, op, b)
		}
		return integer(v)
	}
	switch op {
	case "+":
		return checked(addInt(a, b))
	case "-":
		return checked(subInt(a, b))
	case "*":
		return checked(mulInt(a, b))
	case "/":
		if b == 0 {
			return nil, true, e.errorAt(pos, "ZeroDivisionError", "divided by 0")
		}
		return checked(floorDiv(a, b), a != math.MinInt64 || b != -1)
	case "%":
		if b == 0 {
			return nil, true, e.errorAt(pos, "ZeroDivisionError", "divided by 0")
		}
		return integer(floorMod(a, b))
	case "**":
		if b < 0 {
			return &object.Float{Value: math.Pow(float64(a), float64(b))}, true, nil
		}
		return checked(ipow(a, b))
	case "&":
		return integer(a & b)
	case "|":
		return integer(a | b)
	case "^":
		return integer(a ^ b)
	case "<<":
		return checked(shiftInt(a, b, true))
	case ">>":
		return checked(shiftInt(a, b, false))
	case "==", "===":
		return boolean(a == b)
	case "!=":
		return boolean(a != b)
	case "<":
		return boolean(a < b)
	case "<=":
		return boolean(a <= b)
	case ">":
		return boolean(a > b)
	case ">=":
		return boolean(a >= b)
	case "<=>":
		return integer(int64(cmp3(a < b, a > b)))
	}
	return nil, false, nil
}

func (e *Evaluator) floatOp(op string, a, b float64, pos int) (object.Object, bool, error) {
	float := func(v float64) (object.Object, bool, error) { return &object.Float{Value: v}, true, nil }
	boolean := func(v bool) (object.Object, bool, error) { return object.NativeBool(v), true, nil }
	switch op {
	case "+":
		return float(a + b)
	case "-":
		return float(a - b)
	case "*":
		return float(a * b)
	case "/":
		return float(a / b)
	case "%":
		if b == 0 {
			return float(math.NaN())
		}
		m := math.Mod(a, b)
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return float(m)
	case "**":
		return float(math.Pow(a, b))
	case "==", "===":
		return boolean(a == b)
	case "!=":
		return boolean(a != b)
	case "<":
		return boolean(a < b)
	case "<=":
		return boolean(a <= b)
	case ">":
		return boolean(a > b)
	case ">=":
		return boolean(a >= b)
	case "<=>":
		if math.IsNaN(a) || math.IsNaN(b) {
			return object.NIL, true, nil
		}
		return &object.Integer{Value: int64(cmp3(a < b, a > b))}, true, nil
	}
	return nil, false, nil
}

func stringOp(op, a, b string) (object.Object, bool, error) {
	switch op {
	case "+":
		return &object.String{Value: a + b}, true, nil
	case "==", "===":
		return object.NativeBool(a == b), true, nil
	case "!=":
		return object.NativeBool(a != b), true, nil
	case "<":
		return object.NativeBool(a < b), true, nil
	case "<=":
		return object.NativeBool(a <= b), true, nil
	case ">":
		return object.NativeBool(a > b), true, nil
	case ">=":
		return object.NativeBool(a >= b), true, nil
	case "<=>":
		return &object.Integer{Value: int64(strings.Compare(a, b))}, true, nil
	}
	return nil, false, nil
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

// Integer helpers report false instead of wrapping around.

func addInt(a, b int64) (int64, bool) {
	s := a + b
	return s, (s > a) == (b > 0)
}

func subInt(a, b int64) (int64, bool) {
	d := a - b
	return d, (d < a) == (b > 0)
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, p/b == a
}

func ipow(base, exp int64) (int64, bool) {
	result := int64(1)
	for exp > 0 {
		var ok bool
		if exp&1 == 1 {
			if result, ok = mulInt(result, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp > 0 {
			if base, ok = mulInt(base, base); !ok {
				return 0, false
			}
		}
	}
	return result, true
}

// shiftInt shifts a by n bits; a negative n shifts the other way. Left
// shifts that lose bits overflow, right shifts saturate at 0 or -1.
func shiftInt(a, n int64, left bool) (int64, bool) {
	if n < 0 {
		left = !left
		if n == math.MinInt64 {
			n = math.MaxInt64
		} else {
			n = -n
		}
	}
	if !left {
		if n >= 63 {
			return a >> 63, true
		}
		return a >> uint(n), true
	}
	if a == 0 {
		return 0, true
	}
	if n >= 63 {
		return 0, false
	}
	r := a << uint(n)
	return r, r>>uint(n) == a
}

// Protocol helpers shared by the evaluator and host functions.

func (e *Evaluator) equal(ctx *object.Context, a, b object.Object, pos int) (bool, error) {
	if a == b {
		return true, nil
	}
	if out, ok, err := e.primitiveOp("==", a, b, pos); ok || err != nil {
		if err != nil {
			return false, err
		}
		return object.IsTruthy(out), nil
	}
	switch l := a.(type) {
	case *object.Nil, *object.Boolean, *object.Symbol, *object.Integer, *object.Float, *object.String:
		return false, nil
	case *object.Array:
		r, ok := b.(*object.Array)
		if !ok || len(l.Elements) != len(r.Elements) {
			return false, nil
		}
		for i := range l.Elements {
			eq, err := e.equal(ctx, l.Elements[i], r.Elements[i], pos)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *object.Hash:
		r, ok := b.(*object.Hash)
		if !ok || l.Len() != r.Len() {
			return false, nil
		}
		for _, pair := range l.Entries() {
			other, found := r.Get(pair.Key)
			if !found {
				return false, nil
			}
			eq, err := e.equal(ctx, pair.Value, other, pos)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *object.Range:
		r, ok := b.(*object.Range)
		if !ok || l.Exclusive != r.Exclusive {
			return false, nil
		}
		lowEq, err := e.equal(ctx, l.Low, r.Low, pos)
		if err != nil || !lowEq {
			return false, err
		}
		return e.equal(ctx, l.High, r.High, pos)
	case *object.BoundMethod:
		r, ok := b.(*object.BoundMethod)
		return ok && r.Receiver == l.Receiver && r.Name == l.Name, nil
	}
	if r, ok := e.findMethod(a, "==", nil); ok {
		out, err := e.invoke(ctx, r, a, "==", []object.Object{b}, nil, pos)
		if err != nil {
			return false, err
		}
		return object.IsTruthy(out), nil
	}
	return false, nil
}

// compare orders two values through <=>, raising ArgumentError when they
// are not comparable.
func (e *Evaluator) compare(ctx *object.Context, a, b object.Object, pos int) (int, error) {
	var out object.Object
	if res, ok, err := e.primitiveOp("<=>", a, b, pos); ok || err != nil {
		if err != nil {
			return 0, err
		}
		out = res
	} else {
		if !e.respondTo(a, "<=>", true) {
			return 0, e.errorAt(pos, "ArgumentError", "comparison of %s with %s failed", e.ClassOf(a).Name, e.describeValue(b))
		}
		res, err := e.send(ctx, a, "<=>", []object.Object{b}, nil, true, pos)
		if err != nil {
			return 0, err
		}
		out = res
	}
	i, ok := out.(*object.Integer)
	if !ok {
		return 0, e.errorAt(pos, "ArgumentError", "comparison of %s with %s failed", e.ClassOf(a).Name, e.describeValue(b))
	}
	return cmp3(i.Value < 0, i.Value > 0), nil
}

func (e *Evaluator) describeValue(v object.Object) string {
	switch v.(type) {
	case *object.Nil, *object.Boolean, *object.Integer, *object.Float:
		return v.Inspect()
	}
	return e.ClassOf(v).Name
}

// caseEqual is `pattern === value`, the test behind case/when.
func (e *Evaluator) caseEqual(ctx *object.Context, pattern, value object.Object, pos int) (bool, error) {
	switch p := pattern.(type) {
	case *object.DynamicClass:
		if r, ok := e.findMethod(p, "===", nil); ok && r.method != nil {
			break
		}
		return e.IsA(value, p), nil
	case *object.Range:
		out, err := e.send(ctx, p, "include?", []object.Object{value}, nil, true, pos)
		if err != nil {
			if _, raised := err.(*RaisedError); raised {
				return false, nil
			}
			return false, err
		}
		return object.IsTruthy(out), nil
	case *object.Proc:
		out, err := e.callBlock(p, []object.Object{value}, nil, nil, nil)
		if err != nil {
			return false, err
		}
		return object.IsTruthy(out), nil
	case *object.DynamicObject:
		if r, ok := e.findMethod(p, "===", nil); ok && r.method != nil {
			out, err := e.invoke(ctx, r, p, "===", []object.Object{value}, nil, pos)
			if err != nil {
				return false, err
			}
			return object.IsTruthy(out), nil
		}
	}
	return e.equal(ctx, pattern, value, pos)
}

func (e *Evaluator) toS(ctx *object.Context, obj object.Object, pos int) (string, error) {
	switch o := obj.(type) {
	case *object.String:
		return o.Value, nil
	case *object.Symbol:
		return o.Name, nil
	case *object.Integer, *object.Float:
		return o.Inspect(), nil
	case *object.Nil:
		return "", nil
	}
	out, err := e.send(ctx, obj, "to_s", nil, nil, true, pos)
	if err != nil {
		return "", err
	}
	if s, ok := out.(*object.String); ok {
		return s.Value, nil
	}
	return obj.Inspect(), nil
}

func (e *Evaluator) inspect(ctx *object.Context, obj object.Object, pos int) (string, error) {
	out, err := e.send(ctx, obj, "inspect", nil, nil, true, pos)
	if err != nil {
		return "", err
	}
	if s, ok := out.(*object.String); ok {
		return s.Value, nil
	}
	return obj.Inspect(), nil
}

var (
	integerOperators = []string{"+", "-", "*", "/", "%", "**", "&", "|", "^", "<<", ">>", "==", "!=", "<", "<=", ">", ">=", "<=>", "==="}
	floatOperators   = []string{"+", "-", "*", "/", "%", "**", "==", "!=", "<", "<=", ">", ">=", "<=>", "==="}
	stringOperators  = []string{"+", "==", "!=", "<", "<=", ">", ">=", "<=>", "==="}
)

// registerOperators exposes the primitive operators as registry methods so
// `1.send(:+, 2)`, `reduce(:+)` and respond_to? see them. The functions
// reach the evaluator through their call context, which keeps a registry
// shared between evaluators free of per-evaluator state.
func (e *Evaluator) registerOperators() {
	binary := func(op string) object.ForeignFunction {
		return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			call := ctx.(*callContext)
			if len(args) != 1 {
				return nil, call.e.errorAt(call.pos, "ArgumentError", "wrong number of arguments (given %d, expected 1)", len(args))
			}
			out, ok, err := call.e.primitiveOp(op, call.self, args[0], call.pos)
			if err != nil || ok {
				return out, err
			}
			switch op {
			case "==", "===":
				return object.FALSE, nil
			case "!=":
				return object.TRUE, nil
			case "<=>":
				return object.NIL, nil
			}
			return nil, call.e.errorAt(call.pos, "TypeError", "%s can't be coerced into %s", call.e.describeValue(args[0]), call.e.ClassOf(call.self).Name)
		}
	}
	for typ, ops := range map[string][]string{"Integer": integerOperators, "Float": floatOperators, "String": stringOperators} {
		for _, op := range ops {
			e.Registry.Method(typ, binary(op), op)
		}
	}

	negate := func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		switch v := ctx.Self().(type) {
		case *object.Integer:
			return &object.Integer{Value: -v.Value}, nil
		case *object.Float:
			return &object.Float{Value: -v.Value}, nil
		}
		return nil, ctx.NewError("NoMethodError", "undefined method '-@'")
	}
	identity := func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return ctx.Self(), nil
	}
	e.Registry.Register(registry.Entry{Names: []string{"-@"}, Types: []string{"Integer", "Float"}, Fn: negate})
	e.Registry.Register(registry.Entry{Names: []string{"+@"}, Types: []string{"Integer", "Float"}, Fn: identity})
	e.Registry.Method("Integer", func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return &object.Integer{Value: ^ctx.Self().(*object.Integer).Value}, nil
	}, "~")
}
