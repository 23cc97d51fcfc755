package object

import (
	"io"
)

// ForeignFunction is the signature of every host-implemented method. The
// receiver and block come from ctx.
type ForeignFunction func(ctx EvaluatorContext, args ...Object) (Object, error)

// EvaluatorContext is what a host function sees of the running evaluator
// during one call.
type EvaluatorContext interface {
	Self() Object
	Block() *Proc
	MethodName() string
	// Frame is the caller's scope.
	Frame() *Context
	Root() *Root
	Output() io.Writer

	CallMethod(recv Object, name string, args []Object, block *Proc) (Object, error)
	CallProc(p *Proc, args ...Object) (Object, error)
	// Yield calls the bound block, raising LocalJumpError without one.
	Yield(args ...Object) (Object, error)
	RespondTo(obj Object, name string, includePrivate bool) bool
	InstanceExec(self Object, module *DynamicClass, p *Proc, args ...Object) (Object, error)
	EvalString(src string, self Object, module *DynamicClass) (Object, error)

	ClassOf(obj Object) *DynamicClass
	IsA(obj Object, class *DynamicClass) bool
	// ResolveConstant resolves a possibly scoped name such as `Sql::Database`.
	ResolveConstant(path string) (Object, error)
	// NewError builds an exception of the named class for a host function to
	// return.
	NewError(class string, format string, a ...any) error
	// Wrap converts a host value, using the registered native class of its
	// Go type when there is one.
	Wrap(value any) Object

	Inspect(obj Object) (string, error)
	ToS(obj Object) (string, error)
	Equal(a, b Object) (bool, error)
	Compare(a, b Object) (int, error)

	Require(path string, relative bool) (bool, error)
	Load(path string) (bool, error)

	// Rescue reports the exception carried by err when it is an instance of
	// class, the way a rescue clause would match it.
	Rescue(err error, class *DynamicClass) (*DynamicObject, bool)
	// Raise returns an error that raises exc.
	Raise(exc *DynamicObject) error
}

// Unwind is returned by a host-built proc to stop the iteration that called
// it. The evaluator passes it through unchanged; the function that created
// it compares by identity to catch its own.
type Unwind struct {
	Value Object
}

func (u *Unwind) Error() string { return "unwind" }

// IsTruthy: only nil and false are false.
func IsTruthy(obj Object) bool {
	switch o := obj.(type) {
	case nil, *Nil:
		return false
	case *Boolean:
		return o.Value
	}
	return true
}
