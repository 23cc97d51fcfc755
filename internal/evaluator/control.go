package evaluator

import (
	"garnet/internal/ast"
	"garnet/internal/object"
)

// loopBody runs one iteration, repeating it on redo. done reports a break
// out of the loop, with its value.
func (e *Evaluator) loopBody(body ast.Expression, ctx *object.Context) (value object.Object, done bool, err error) {
	for {
		_, err := e.Eval(body, ctx)
		switch sig := err.(type) {
		case nil, *nextSignal:
			return nil, false, nil
		case *redoSignal:
			continue
		case *breakSignal:
			if sig.proc == nil {
				return sig.value, true, nil
			}
		}
		return nil, false, err
	}
}

func (e *Evaluator) evalWhile(node *ast.WhileExpression, ctx *object.Context) (object.Object, error) {
	ctx.LoopDepth++
	defer func() { ctx.LoopDepth-- }()

	for {
		cond, err := e.Eval(node.Condition, ctx)
		if err != nil {
			return nil, err
		}
		if object.IsTruthy(cond) == node.Negate {
			return object.NIL, nil
		}
		value, done, err := e.loopBody(node.Body, ctx)
		if err != nil {
			return nil, err
		}
		if done {
			return value, nil
		}
	}
}

// evalFor iterates arrays, ranges and hashes directly and anything else
// through to_a. Loop variables live in the enclosing scope.
func (e *Evaluator) evalFor(node *ast.ForExpression, ctx *object.Context) (object.Object, error) {
	iterable, err := e.Eval(node.Iterable, ctx)
	if err != nil {
		return nil, err
	}

	ctx.LoopDepth++
	defer func() { ctx.LoopDepth-- }()

	step := func(item object.Object) (object.Object, bool, error) {
		e.bindForVariables(node.Variables, item, ctx)
		return e.loopBody(node.Body, ctx)
	}

	switch it := iterable.(type) {
	case *object.Array:
		for i := 0; i < len(it.Elements); i++ {
			value, done, err := step(it.Elements[i])
			if err != nil || done {
				return value, err
			}
		}
		return iterable, nil
	case *object.Range:
		if low, high, ok := it.IntBounds(); ok {
			for i := low; i <= high; i++ {
				value, done, err := step(&object.Integer{Value: i})
				if err != nil || done {
					return value, err
				}
			}
			return iterable, nil
		}
	case *object.Hash:
		for _, pair := range it.Entries() {
			value, done, err := step(object.NewArray(pair.Key, pair.Value))
			if err != nil || done {
				return value, err
			}
		}
		return iterable, nil
	}

	if !e.respondTo(iterable, "to_a", true) {
		return nil, e.errorAt(node.Pos(), "NoMethodError", "undefined method 'each' for %s", e.describe(iterable))
	}
	items, err := e.splat(ctx, iterable, node.Pos())
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		value, done, err := step(item)
		if err != nil || done {
			return value, err
		}
	}
	return iterable, nil
}

func (e *Evaluator) bindForVariables(names []string, item object.Object, ctx *object.Context) {
	if len(names) == 1 {
		ctx.Set(names[0], item)
		return
	}
	var values []object.Object
	if arr, ok := item.(*object.Array); ok {
		values = arr.Elements
	} else {
		values = []object.Object{item}
	}
	for i, name := range names {
		ctx.Set(name, argAt(values, i))
	}
}

func (e *Evaluator) evalCase(node *ast.CaseExpression, ctx *object.Context) (object.Object, error) {
	var subject object.Object
	if node.Subject != nil {
		var err error
		if subject, err = e.Eval(node.Subject, ctx); err != nil {
			return nil, err
		}
	}

	for _, when := range node.Whens {
		values, err := e.evalList(when.Values, ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			matched := object.IsTruthy(v)
			if subject != nil {
				if matched, err = e.caseEqual(ctx, v, subject, when.Token.Position); err != nil {
					return nil, err
				}
			}
			if matched {
				return e.Eval(when.Body, ctx)
			}
		}
	}
	return e.Eval(node.Alternative, ctx)
}

func (e *Evaluator) jumpValue(node ast.Expression, ctx *object.Context) (object.Object, error) {
	if node == nil {
		return object.NIL, nil
	}
	return e.Eval(node, ctx)
}

// evalReturn unwinds to the enclosing method or lambda. A proc returns from
// the method it was created in.
func (e *Evaluator) evalReturn(node *ast.ReturnExpression, ctx *object.Context) (object.Object, error) {
	value, err := e.jumpValue(node.Value, ctx)
	if err != nil {
		return nil, err
	}
	frame := ctx.MethodFrame()
	if frame.Kind == object.RootFrame || frame.Kind == object.ClassFrame {
		return nil, e.errorAt(node.Pos(), "LocalJumpError", "unexpected return")
	}
	return nil, &returnSignal{frame: frame, value: value}
}

func (e *Evaluator) evalBreak(node *ast.BreakExpression, ctx *object.Context) (object.Object, error) {
	value, err := e.jumpValue(node.Value, ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case ctx.InLoop():
		return nil, &breakSignal{value: value}
	case ctx.Kind == object.BlockFrame:
		return nil, &breakSignal{proc: ctx.Proc, value: value}
	case ctx.Kind == object.LambdaFrame:
		return nil, &returnSignal{frame: ctx, value: value}
	}
	return nil, e.errorAt(node.Pos(), "LocalJumpError", "break used outside of a block or loop")
}

func (e *Evaluator) evalNext(node *ast.NextExpression, ctx *object.Context) (object.Object, error) {
	value, err := e.jumpValue(node.Value, ctx)
	if err != nil {
		return nil, err
	}
	if ctx.InLoop() || ctx.Kind == object.BlockFrame || ctx.Kind == object.LambdaFrame {
		return nil, &nextSignal{value: value}
	}
	return nil, e.errorAt(node.Pos(), "LocalJumpError", "next used outside of a block or loop")
}
