package evaluator

import (
	"fmt"
	"io/fs"

	"github.com/pkg/errors"

	"garnet/internal/ast"
	"garnet/internal/lexer"
	"garnet/internal/object"
	"garnet/internal/security"
)

// newException builds an exception without running initialize, for errors
// raised by the runtime itself.
func (e *Evaluator) newException(class, msg string) *object.DynamicObject {
	cls := e.classNamed(class)
	if cls == nil || !cls.IsSubclassOf(e.core.Exception) {
		cls = e.classNamed("RuntimeError")
	}
	exc := object.NewObject(cls)
	exc.SetIvar("@message", &object.String{Value: msg})
	return exc
}

func (e *Evaluator) error(class, format string, a ...any) *RaisedError {
	pos := 0
	if n := len(e.stack); n > 0 {
		pos = e.stack[n-1].Position
	}
	return e.errorAt(pos, class, format, a...)
}

// NewError builds an exception raised at the current call site, for hosts
// such as file loaders that run outside a host function.
func (e *Evaluator) NewError(class, format string, a ...any) *RaisedError {
	return e.error(class, format, a...)
}

func (e *Evaluator) errorAt(pos int, class, format string, a ...any) *RaisedError {
	return e.raise(e.newException(class, fmt.Sprintf(format, a...)), pos)
}

// raise wraps exc for propagation, recording the backtrace on first raise.
func (e *Evaluator) raise(exc *object.DynamicObject, pos int) *RaisedError {
	frames := e.backtrace(pos)
	if _, ok := exc.GetIvar("@backtrace"); !ok {
		lines := make([]object.Object, len(frames))
		for i, f := range frames {
			lines[i] = &object.String{Value: f.String()}
		}
		exc.SetIvar("@backtrace", object.NewArray(lines...))
	}
	return &RaisedError{Exception: exc, Message: exceptionMessage(exc), Backtrace: frames}
}

func exceptionMessage(exc *object.DynamicObject) string {
	if v, ok := exc.GetIvar("@message"); ok {
		switch m := v.(type) {
		case *object.String:
			return m.Value
		case *object.Nil:
		default:
			return m.Inspect()
		}
	}
	return exc.Class.Name
}

// backtrace lists frames innermost first. Each stack entry records a call
// site, which belongs to the function of the entry below it.
func (e *Evaluator) backtrace(pos int) []object.Frame {
	name := func(i int) string {
		if i < 0 {
			return "<main>"
		}
		return e.stack[i].Function
	}
	n := len(e.stack)
	frames := make([]object.Frame, 0, n+1)
	frames = append(frames, object.Frame{Function: name(n - 1), File: e.file, Src: e.sources[e.file], Position: pos})
	for i := n - 1; i >= 0; i-- {
		f := e.stack[i]
		f.Function = name(i - 1)
		frames = append(frames, f)
	}
	return frames
}

// hostError converts errors returned by host functions into exceptions
// scripts can rescue. Exceptions and signals pass through unchanged.
func (e *Evaluator) hostError(err error, pos int) error {
	if _, ok := err.(*RaisedError); ok || isSignal(err) {
		return err
	}
	if _, ok := err.(*object.Unwind); ok {
		return err
	}
	var denied *security.AccessDenied
	var syntaxErr *lexer.SyntaxError
	switch {
	case errors.As(err, &denied):
		return e.errorAt(pos, "AccessDeniedError", "%s", denied.Error())
	case errors.As(err, &syntaxErr):
		return e.errorAt(pos, "SyntaxError", "%s", syntaxErr.Error())
	case errors.Is(err, fs.ErrNotExist):
		return e.errorAt(pos, "IOError", "%s", err.Error())
	}
	return e.errorAt(pos, "RuntimeError", "%s", err.Error())
}

// Escaped converts what reaches the top level into the error a host sees:
// signals nobody intercepted become LocalJumpError.
func (e *Evaluator) Escaped(err error) error {
	switch sig := err.(type) {
	case *returnSignal:
		return e.error("LocalJumpError", "unexpected return")
	case *breakSignal:
		if sig.proc != nil {
			return e.error("LocalJumpError", "break from proc-closure")
		}
		return e.error("LocalJumpError", "break used outside of a block or loop")
	case *nextSignal, *redoSignal:
		return e.error("LocalJumpError", "%s used outside of a block or loop", err.Error())
	case *object.Unwind:
		return e.error("LocalJumpError", "break from proc-closure")
	}
	return err
}

func (e *Evaluator) evalRaise(node *ast.RaiseExpression, ctx *object.Context) (object.Object, error) {
	args, err := e.evalList(node.Arguments, ctx)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		if current, ok := ctx.Root().Globals["$!"].(*object.DynamicObject); ok {
			return nil, e.raise(current, node.Pos())
		}
		return nil, e.errorAt(node.Pos(), "RuntimeError", "unhandled exception")
	}

	if msg, ok := args[0].(*object.String); ok && len(args) == 1 {
		return nil, e.raise(e.newException("RuntimeError", msg.Value), node.Pos())
	}

	exc, err := e.makeException(ctx, args[0], args[1:], node.Pos())
	if err != nil {
		return nil, err
	}
	return nil, e.raise(exc, node.Pos())
}

// makeException turns `raise Class, msg` or `raise instance` arguments into
// an exception object.
func (e *Evaluator) makeException(ctx *object.Context, target object.Object, rest []object.Object, pos int) (*object.DynamicObject, error) {
	switch t := target.(type) {
	case *object.DynamicClass:
		if !t.IsSubclassOf(e.core.Exception) {
			break
		}
		val, err := e.send(ctx, t, "new", rest, nil, true, pos)
		if err != nil {
			return nil, err
		}
		if exc, ok := val.(*object.DynamicObject); ok && e.IsA(exc, e.core.Exception) {
			return exc, nil
		}
	case *object.DynamicObject:
		if e.IsA(t, e.core.Exception) {
			if len(rest) > 0 {
				t.SetIvar("@message", rest[0])
			}
			return t, nil
		}
	}
	return nil, e.errorAt(pos, "TypeError", "exception class/object expected")
}

func (e *Evaluator) evalBegin(node *ast.BeginExpression, ctx *object.Context) (result object.Object, err error) {
	if node.Ensure != nil {
		defer func() {
			if _, ensureErr := e.Eval(node.Ensure, ctx); ensureErr != nil {
				result, err = nil, ensureErr
			}
		}()
	}

	result, err = e.Eval(node.Body, ctx)
	if err == nil {
		if node.Else != nil {
			return e.Eval(node.Else, ctx)
		}
		return result, nil
	}

	raised, ok := err.(*RaisedError)
	if !ok {
		return nil, err
	}
	for _, clause := range node.Rescues {
		matched, matchErr := e.rescueMatches(clause, raised, ctx)
		if matchErr != nil {
			return nil, matchErr
		}
		if !matched {
			continue
		}
		if clause.Variable != "" {
			ctx.Set(clause.Variable, raised.Exception)
		}
		globals := ctx.Root().Globals
		previous, had := globals["$!"]
		globals["$!"] = raised.Exception
		result, err = e.Eval(clause.Body, ctx)
		if had {
			globals["$!"] = previous
		} else {
			delete(globals, "$!")
		}
		return result, err
	}
	return nil, err
}

func (e *Evaluator) rescueMatches(clause *ast.RescueClause, raised *RaisedError, ctx *object.Context) (bool, error) {
	if len(clause.Exceptions) == 0 {
		return e.IsA(raised.Exception, e.core.StandardError), nil
	}
	classes, err := e.evalList(clause.Exceptions, ctx)
	if err != nil {
		return false, err
	}
	for _, c := range classes {
		cls, ok := c.(*object.DynamicClass)
		if !ok {
			return false, e.errorAt(clause.Token.Position, "TypeError", "class or module required for rescue clause")
		}
		if e.IsA(raised.Exception, cls) {
			return true, nil
		}
	}
	return false, nil
}
