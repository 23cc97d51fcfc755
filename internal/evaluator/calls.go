package evaluator

import (
	"strconv"

	"garnet/internal/ast"
	"garnet/internal/object"
)

func (e *Evaluator) evalCall(node *ast.CallExpression, ctx *object.Context) (object.Object, error) {
	var recv object.Object
	privateOK := true
	if node.Receiver == nil {
		recv = ctx.Self
	} else {
		var err error
		if recv, err = e.Eval(node.Receiver, ctx); err != nil {
			return nil, err
		}
		_, privateOK = node.Receiver.(*ast.SelfExpression)
	}

	args, err := e.evalList(node.Arguments, ctx)
	if err != nil {
		return nil, err
	}

	var block *object.Proc
	literal := false
	switch {
	case node.Block != nil:
		block = object.NewProc(node.Block.Parameters, node.Block.Body, ctx, false)
		literal = true
	case node.BlockArg != nil:
		if block, err = e.blockArgument(node.BlockArg, ctx); err != nil {
			return nil, err
		}
	}

	result, err := e.send(ctx, recv, node.Name, args, block, privateOK, node.Pos())
	if sig, ok := err.(*breakSignal); ok && literal && sig.proc == block {
		return sig.value, nil
	}
	return result, err
}

// blockArgument converts `&value` into a proc.
func (e *Evaluator) blockArgument(node ast.Expression, ctx *object.Context) (*object.Proc, error) {
	val, err := e.Eval(node, ctx)
	if err != nil {
		return nil, err
	}
	switch v := val.(type) {
	case *object.Nil:
		return nil, nil
	case *object.Proc:
		return v, nil
	case *object.Symbol:
		return e.symbolProc(v.Name), nil
	case *object.BoundMethod:
		return object.NewNativeProc(func(c object.EvaluatorContext, args ...object.Object) (object.Object, error) {
			return c.CallMethod(v.Receiver, v.Name, args, c.Block())
		}, true), nil
	}
	converted, err := e.send(ctx, val, "to_proc", nil, nil, false, node.Pos())
	if err != nil {
		return nil, err
	}
	p, ok := converted.(*object.Proc)
	if !ok {
		return nil, e.errorAt(node.Pos(), "TypeError", "wrong argument type %s (expected Proc)", e.ClassOf(val).Name)
	}
	return p, nil
}

// symbolProc is `&:name`: a proc calling name on its first argument.
func (e *Evaluator) symbolProc(name string) *object.Proc {
	return object.NewNativeProc(func(c object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if len(args) == 0 {
			return nil, c.NewError("ArgumentError", "no receiver given")
		}
		return c.CallMethod(args[0], name, args[1:], c.Block())
	}, false)
}

// invoke runs a resolved method with a call-site frame on the backtrace
// stack.
func (e *Evaluator) invoke(ctx *object.Context, r resolved, recv object.Object, name string, args []object.Object, block *object.Proc, pos int) (object.Object, error) {
	if len(e.stack) >= e.MaxDepth {
		return nil, e.errorAt(pos, "SystemStackError", "stack level too deep")
	}
	e.stack = append(e.stack, object.Frame{Function: name, File: ctx.File, Src: e.sources[ctx.File], Position: pos})
	defer func() { e.stack = e.stack[:len(e.stack)-1] }()

	switch {
	case r.fn != nil:
		return e.callForeign(ctx, r.fn, recv, name, args, block, pos)
	case r.method.Fn != nil:
		return e.callForeign(ctx, r.method.Fn, recv, name, args, block, pos)
	case r.method.Proc != nil:
		return e.callProcAsMethod(r.method, recv, args, block)
	}
	return e.callMethod(r.method, recv, args, block)
}

func (e *Evaluator) callForeign(ctx *object.Context, fn object.ForeignFunction, recv object.Object, name string, args []object.Object, block *object.Proc, pos int) (object.Object, error) {
	call := &callContext{e: e, frame: ctx, self: recv, block: block, name: name, pos: pos}
	out, err := fn(call, args...)
	if err != nil {
		return nil, e.hostError(err, pos)
	}
	if out == nil {
		return object.NIL, nil
	}
	return out, nil
}

// callMethod runs a method defined with `def`.
func (e *Evaluator) callMethod(m *object.Method, recv object.Object, args []object.Object, block *object.Proc) (object.Object, error) {
	frame := e.root.NewFrame(object.MethodFrame)
	frame.Self = recv
	frame.Module = m.Lexical
	if frame.Module == nil {
		frame.Module = m.Owner
	}
	frame.Method = m
	frame.Args = args
	frame.Block = block
	frame.File = m.File
	defer e.EnterFile(m.File)()

	if err := e.bindParams(frame, m.Parameters, args, block, true, m.Name); err != nil {
		return nil, err
	}
	result, err := e.Eval(m.Body, frame)
	return e.methodExit(frame, result, err)
}

// callProcAsMethod runs a method created by define_method. The proc body
// keeps its closure but self is the receiver, and it returns like a lambda.
func (e *Evaluator) callProcAsMethod(m *object.Method, recv object.Object, args []object.Object, block *object.Proc) (object.Object, error) {
	p := m.Proc
	if p.Fn != nil {
		call := &callContext{e: e, frame: e.root, self: recv, block: block, name: m.Name}
		return p.Fn(call, args...)
	}
	frame := p.Context.NewFrame(object.LambdaFrame)
	frame.Self = recv
	frame.Module = m.Owner
	frame.Method = m
	frame.Args = args
	frame.Block = block
	frame.Proc = p

	if err := e.bindParams(frame, p.Parameters, args, block, true, m.Name); err != nil {
		return nil, err
	}
	result, err := e.Eval(p.Body, frame)
	return e.methodExit(frame, result, err)
}

// methodExit intercepts the signals a method boundary owns.
func (e *Evaluator) methodExit(frame *object.Context, result object.Object, err error) (object.Object, error) {
	switch sig := err.(type) {
	case nil:
		return result, nil
	case *returnSignal:
		if sig.frame == frame {
			return sig.value, nil
		}
	case *breakSignal:
		if sig.proc == nil {
			return nil, e.error("LocalJumpError", "break from proc-closure")
		}
	case *nextSignal:
		if frame.Kind == object.LambdaFrame {
			return sig.value, nil
		}
		return nil, e.error("LocalJumpError", "next used outside of a block or loop")
	case *redoSignal:
		return nil, e.error("LocalJumpError", "redo used outside of a block or loop")
	}
	return nil, err
}

// callBlock invokes a proc. Blocks bind arguments leniently and answer
// next and redo themselves; lambdas check arity and also own return.
func (e *Evaluator) callBlock(p *object.Proc, args []object.Object, self object.Object, module *object.DynamicClass, block *object.Proc) (object.Object, error) {
	if p.Fn != nil {
		if self == nil {
			self = p.Self
		}
		call := &callContext{e: e, frame: e.root, self: self, block: block, name: "call"}
		return p.Fn(call, args...)
	}

	kind := object.BlockFrame
	if p.Lambda {
		kind = object.LambdaFrame
	}
	frame := p.Context.NewFrame(kind)
	frame.Proc = p
	frame.Self = p.Self
	if self != nil {
		frame.Self = self
	}
	if module != nil {
		frame.Module = module
	}
	defer e.EnterFile(frame.File)()

	if err := e.bindParams(frame, p.Parameters, args, block, p.Lambda, "block"); err != nil {
		return nil, err
	}
	for {
		result, err := e.Eval(p.Body, frame)
		switch sig := err.(type) {
		case nil:
			return result, nil
		case *nextSignal:
			return sig.value, nil
		case *redoSignal:
			continue
		case *returnSignal:
			if p.Lambda && sig.frame == frame {
				return sig.value, nil
			}
		}
		return nil, err
	}
}

// bindParams binds call arguments to parameters in frame. Methods and
// lambdas are strict about arity. Blocks are lenient: missing arguments are
// nil and a single array argument is spread over several parameters.
func (e *Evaluator) bindParams(frame *object.Context, params []*ast.Parameter, args []object.Object, block *object.Proc, strict bool, name string) error {
	var required, optional, positional int
	rest, keywords := false, false
	for _, p := range params {
		switch p.Kind {
		case ast.RequiredParam:
			required++
			positional++
		case ast.OptionalParam:
			optional++
			positional++
		case ast.RestParam:
			rest = true
			positional++
		case ast.KeywordParam, ast.KeywordRestParam:
			keywords = true
		}
	}

	var kwargs *object.Hash
	if keywords && len(args) > 0 {
		if h, ok := args[len(args)-1].(*object.Hash); ok && symbolKeys(h) {
			kwargs = h
			args = args[:len(args)-1]
		}
	}

	if strict {
		if len(args) < required || (!rest && len(args) > required+optional) {
			return e.error("ArgumentError", "wrong number of arguments (given %d, expected %s)", len(args), arityText(required, optional, rest))
		}
	} else {
		if len(args) == 1 && (positional > 1 || (positional == 1 && rest && required > 0)) {
			if arr, ok := args[0].(*object.Array); ok {
				args = arr.Elements
			}
		}
		for len(args) < required {
			args = append(args, object.NIL)
		}
	}

	optionalAvailable := max(len(args)-required, 0)
	restCount := max(len(args)-required-min(optionalAvailable, optional), 0)
	idx := 0
	used := map[string]bool{}
	for _, p := range params {
		switch p.Kind {
		case ast.RequiredParam:
			frame.SetLocal(p.Name, argAt(args, idx))
			idx++
		case ast.OptionalParam:
			if optionalAvailable > 0 {
				frame.SetLocal(p.Name, argAt(args, idx))
				idx++
				optionalAvailable--
				continue
			}
			val, err := e.Eval(p.Default, frame)
			if err != nil {
				return err
			}
			frame.SetLocal(p.Name, val)
		case ast.RestParam:
			n := min(restCount, max(len(args)-idx, 0))
			collected := append([]object.Object{}, args[idx:idx+n]...)
			idx += n
			if p.Name != "" {
				frame.SetLocal(p.Name, object.NewArray(collected...))
			}
		case ast.KeywordParam:
			key := object.InternSymbol(p.Name)
			if kwargs != nil {
				if v, ok := kwargs.Get(key); ok {
					frame.SetLocal(p.Name, v)
					used[p.Name] = true
					continue
				}
			}
			if p.Default == nil {
				return e.error("ArgumentError", "missing keyword: :%s", p.Name)
			}
			val, err := e.Eval(p.Default, frame)
			if err != nil {
				return err
			}
			frame.SetLocal(p.Name, val)
		case ast.KeywordRestParam:
			extra := object.NewHash()
			if kwargs != nil {
				for _, pair := range kwargs.Entries() {
					if sym, ok := pair.Key.(*object.Symbol); ok && !used[sym.Name] && !hasKeyword(params, sym.Name) {
						extra.Set(pair.Key, pair.Value)
					}
				}
			}
			if p.Name != "" {
				frame.SetLocal(p.Name, extra)
			}
			used["**"] = true
		case ast.BlockParam:
			if block == nil {
				frame.SetLocal(p.Name, object.NIL)
			} else {
				frame.SetLocal(p.Name, block)
			}
		}
	}

	if strict && kwargs != nil && !used["**"] {
		for _, pair := range kwargs.Entries() {
			if sym := pair.Key.(*object.Symbol); !hasKeyword(params, sym.Name) {
				return e.error("ArgumentError", "unknown keyword: :%s", sym.Name)
			}
		}
	}
	return nil
}

func argAt(args []object.Object, i int) object.Object {
	if i < len(args) {
		return args[i]
	}
	return object.NIL
}

func symbolKeys(h *object.Hash) bool {
	for _, pair := range h.Entries() {
		if _, ok := pair.Key.(*object.Symbol); !ok {
			return false
		}
	}
	return true
}

func hasKeyword(params []*ast.Parameter, name string) bool {
	for _, p := range params {
		if p.Kind == ast.KeywordParam && p.Name == name {
			return true
		}
	}
	return false
}

func arityText(required, optional int, rest bool) string {
	switch {
	case rest:
		return strconv.Itoa(required) + "+"
	case optional > 0:
		return strconv.Itoa(required) + ".." + strconv.Itoa(required+optional)
	}
	return strconv.Itoa(required)
}

func (e *Evaluator) evalYield(node *ast.YieldExpression, ctx *object.Context) (object.Object, error) {
	if ctx.Block == nil {
		return nil, e.errorAt(node.Pos(), "LocalJumpError", "no block given (yield)")
	}
	args, err := e.evalList(node.Arguments, ctx)
	if err != nil {
		return nil, err
	}
	return e.callBlock(ctx.Block, args, nil, nil, nil)
}

func (e *Evaluator) evalSuper(node *ast.SuperExpression, ctx *object.Context) (object.Object, error) {
	m := ctx.Method
	if m == nil {
		return nil, e.errorAt(node.Pos(), "RuntimeError", "super called outside of method")
	}

	var args []object.Object
	if node.Implicit {
		args = ctx.Args
	} else {
		var err error
		if args, err = e.evalList(node.Arguments, ctx); err != nil {
			return nil, err
		}
	}

	block := ctx.Block
	literal := false
	switch {
	case node.Block != nil:
		block = object.NewProc(node.Block.Parameters, node.Block.Body, ctx, false)
		literal = true
	case node.BlockArg != nil:
		var err error
		if block, err = e.blockArgument(node.BlockArg, ctx); err != nil {
			return nil, err
		}
	}

	r, ok := e.findMethod(ctx.Self, m.Name, m.Owner)
	if !ok {
		return nil, e.errorAt(node.Pos(), "NoMethodError", "super: no superclass method '%s' for %s", m.Name, e.describe(ctx.Self))
	}
	result, err := e.invoke(ctx, r, ctx.Self, m.Name, args, block, node.Pos())
	if sig, ok := err.(*breakSignal); ok && literal && sig.proc == block {
		return sig.value, nil
	}
	return result, err
}
