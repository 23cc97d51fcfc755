package foreign

import (
	"garnet/internal/ast"
	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerProc(reg *registry.Registry) {
	reg.StaticMethod("Proc", fnProcNew(), "new")
	reg.Method("Proc", fnProcCall(), "call", "yield", "[]", "===")
	reg.Method("Proc", fnObjectItself(), "to_proc")
	reg.Method("Proc", fnProcArity(), "arity")
	reg.Method("Proc", fnProcLambda(), "lambda?")
	reg.Method("Proc", fnProcParameters(), "parameters")
	reg.Method("Proc", fnProcCurry(), "curry")
	reg.Method("Proc", fnCompose(true), ">>")
	reg.Method("Proc", fnCompose(false), "<<")

	reg.Method("Method", fnMethodCall(), "call", "[]", "===")
	reg.Method("Method", fnMethodToProc(), "to_proc")
	reg.Method("Method", fnMethodArity(reg), "arity")
	reg.Method("Method", fnMethodName(), "name")
	reg.Method("Method", fnMethodReceiver(), "receiver")
	reg.Method("Method", fnMethodOwner(reg), "owner")
	reg.Method("Method", fnCompose(true), ">>")
	reg.Method("Method", fnCompose(false), "<<")
}

func selfProc(ctx object.EvaluatorContext) *object.Proc {
	return ctx.Self().(*object.Proc)
}

func fnProcNew() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk := ctx.Block()
		if blk == nil {
			return nil, ctx.NewError("ArgumentError", "tried to create Proc object without a block")
		}
		return blk, nil
	}
}

func fnProcCall() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return ctx.CallProc(selfProc(ctx), args...)
	}
}

func fnProcArity() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(int64(selfProc(ctx).Arity())), nil
	}
}

func fnProcLambda() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(selfProc(ctx).Lambda), nil
	}
}

var paramKinds = map[ast.ParameterKind]string{
	ast.RequiredParam:    "req",
	ast.OptionalParam:    "opt",
	ast.RestParam:        "rest",
	ast.KeywordParam:     "key",
	ast.KeywordRestParam: "keyrest",
	ast.BlockParam:       "block",
}

// paramList describes parameters as [[:req, :a], [:opt, :b], ...]. Block
// parameters of plain procs are all optional.
func paramList(params []*ast.Parameter, lambda bool) *object.Array {
	out := make([]object.Object, len(params))
	for i, p := range params {
		kind := paramKinds[p.Kind]
		switch {
		case p.Kind == ast.RequiredParam && !lambda:
			kind = "opt"
		case p.Kind == ast.KeywordParam && p.Default == nil:
			kind = "keyreq"
		}
		out[i] = object.NewArray(sym(kind), sym(p.Name))
	}
	return object.NewArray(out...)
}

func fnProcParameters() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		p := selfProc(ctx)
		if p.Fn != nil {
			return object.NewArray(object.NewArray(sym("rest"))), nil
		}
		return paramList(p.Parameters, p.Lambda), nil
	}
}

// fnProcCurry collects arguments until arity of them have been given,
// then calls the proc.
func fnProcCurry() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		p := selfProc(ctx)
		arity := p.Arity()
		if arity < 0 {
			arity = -arity - 1
		}
		if len(args) > 0 {
			n, err := toInt(ctx, args[0])
			if err != nil {
				return nil, err
			}
			if p.Lambda && p.Arity() >= 0 && int(n) != arity {
				return nil, ctx.NewError("ArgumentError", "wrong number of arguments (given %d, expected %d)", n, arity)
			}
			arity = int(n)
		}
		if arity == 0 {
			return p, nil
		}
		return curried(p, arity, nil), nil
	}
}

func curried(p *object.Proc, arity int, given []object.Object) *object.Proc {
	return object.NewNativeProc(func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		all := append(append([]object.Object(nil), given...), args...)
		if len(all) >= arity {
			return ctx.CallProc(p, all...)
		}
		return curried(p, arity, all), nil
	}, true)
}

// fnCompose builds f >> g (g after f) or f << g (f after g) for procs and
// methods, or anything answering call.
func fnCompose(forward bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		self, other := ctx.Self(), args[0]
		if !ctx.RespondTo(other, "call", false) {
			return nil, ctx.NewError("TypeError", "callable object is expected")
		}
		first, second := self, other
		if !forward {
			first, second = other, self
		}
		lambda := true
		if p, ok := self.(*object.Proc); ok {
			lambda = p.Lambda
		}
		return object.NewNativeProc(func(inner object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			mid, err := inner.CallMethod(first, "call", args, nil)
			if err != nil {
				return nil, err
			}
			return inner.CallMethod(second, "call", []object.Object{mid}, nil)
		}, lambda), nil
	}
}

func selfMethod(ctx object.EvaluatorContext) *object.BoundMethod {
	return ctx.Self().(*object.BoundMethod)
}

func fnMethodCall() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		m := selfMethod(ctx)
		return ctx.CallMethod(m.Receiver, m.Name, args, ctx.Block())
	}
}

func fnMethodToProc() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		m := selfMethod(ctx)
		return object.NewNativeProc(func(inner object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			return inner.CallMethod(m.Receiver, m.Name, args, inner.Block())
		}, true), nil
	}
}

// resolveMethod finds the definition behind a bound method, singleton
// methods first.
func resolveMethod(ctx object.EvaluatorContext, reg *registry.Registry, m *object.BoundMethod) (*object.Method, bool) {
	cls := object.SingletonOf(m.Receiver, false)
	if cls == nil {
		cls = ctx.ClassOf(m.Receiver)
	}
	return findInherited(reg, cls, m.Name)
}

func fnMethodArity(reg *registry.Registry) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		def, ok := resolveMethod(ctx, reg, selfMethod(ctx))
		if !ok {
			return integer(-1), nil
		}
		return integer(int64(def.Arity())), nil
	}
}

func fnMethodName() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return sym(selfMethod(ctx).Name), nil
	}
}

func fnMethodReceiver() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return selfMethod(ctx).Receiver, nil
	}
}

func fnMethodOwner(reg *registry.Registry) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		def, ok := resolveMethod(ctx, reg, selfMethod(ctx))
		if !ok || def.Owner == nil {
			return ctx.ResolveConstant("Kernel")
		}
		return def.Owner, nil
	}
}
