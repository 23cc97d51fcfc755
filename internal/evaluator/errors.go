package evaluator

import (
	"fmt"

	"garnet/internal/object"
)

// RaisedError carries a language exception through Go code. Machine.Execute
// returns it for uncaught exceptions.
type RaisedError struct {
	Exception *object.DynamicObject
	Message   string
	Backtrace []object.Frame
}

func (e *RaisedError) Error() string {
	return fmt.Sprintf("%s: %s", e.ClassName(), e.Message)
}

func (e *RaisedError) ClassName() string {
	if e.Exception == nil || e.Exception.Class == nil {
		return "Exception"
	}
	return e.Exception.Class.Name
}

// Render formats the exception with a source excerpt and the backtrace.
func (e *RaisedError) Render() string {
	return object.RenderBacktrace(e.ClassName(), e.Message, e.Backtrace)
}

// The signals below implement non-local exits. They never leave the
// evaluator: loops, block calls and method calls intercept them, and
// Escaped converts the ones that reach the top level.

// returnSignal unwinds to the method or lambda frame it names.
type returnSignal struct {
	frame *object.Context
	value object.Object
}

func (s *returnSignal) Error() string { return "return" }

// breakSignal with a nil proc belongs to the innermost loop; otherwise it
// unwinds to the call that passed proc as its literal block.
type breakSignal struct {
	proc  *object.Proc
	value object.Object
}

func (s *breakSignal) Error() string { return "break" }

type nextSignal struct {
	value object.Object
}

func (s *nextSignal) Error() string { return "next" }

type redoSignal struct{}

func (s *redoSignal) Error() string { return "redo" }

func isSignal(err error) bool {
	switch err.(type) {
	case *returnSignal, *breakSignal, *nextSignal, *redoSignal:
		return true
	}
	return false
}
