package evaluator

import (
	"io"
	"strings"

	"garnet/internal/lexer"
	"garnet/internal/object"
	"garnet/internal/parser"
)

// callContext is the object.EvaluatorContext handed to one host call.
type callContext struct {
	e     *Evaluator
	frame *object.Context
	self  object.Object
	block *object.Proc
	name  string
	pos   int
}

func (c *callContext) Self() object.Object      { return c.self }
func (c *callContext) Block() *object.Proc      { return c.block }
func (c *callContext) MethodName() string       { return c.name }
func (c *callContext) Frame() *object.Context   { return c.frame }
func (c *callContext) Root() *object.Root       { return c.e.root.Root() }
func (c *callContext) Output() io.Writer        { return c.e.out }
func (c *callContext) Wrap(v any) object.Object { return c.e.Wrap(v) }

func (c *callContext) CallMethod(recv object.Object, name string, args []object.Object, block *object.Proc) (object.Object, error) {
	return c.e.send(c.frame, recv, name, args, block, true, c.pos)
}

func (c *callContext) CallProc(p *object.Proc, args ...object.Object) (object.Object, error) {
	return c.e.callBlock(p, args, nil, nil, nil)
}

func (c *callContext) Yield(args ...object.Object) (object.Object, error) {
	if c.block == nil {
		return nil, c.e.errorAt(c.pos, "LocalJumpError", "no block given (yield)")
	}
	return c.e.callBlock(c.block, args, nil, nil, nil)
}

func (c *callContext) RespondTo(obj object.Object, name string, includePrivate bool) bool {
	if c.e.respondTo(obj, name, includePrivate) {
		return true
	}
	if _, ok := c.e.findMethod(obj, "respond_to_missing?", nil); ok {
		out, err := c.CallMethod(obj, "respond_to_missing?", []object.Object{object.InternSymbol(name), object.NativeBool(includePrivate)}, nil)
		return err == nil && object.IsTruthy(out)
	}
	return false
}

func (c *callContext) InstanceExec(self object.Object, module *object.DynamicClass, p *object.Proc, args ...object.Object) (object.Object, error) {
	return c.e.callBlock(p, args, self, module, nil)
}

// EvalString evaluates src with access to the caller's locals.
func (c *callContext) EvalString(src string, self object.Object, module *object.DynamicClass) (object.Object, error) {
	frame := c.frame.NewFrame(object.BlockFrame)
	frame.Self = self
	if module != nil {
		frame.Module = module
	}
	p := parser.New(lexer.New(src))
	p.DeclareLocals(c.frame.LocalNames()...)
	program, err := p.ParseProgram()
	if err != nil {
		return nil, c.e.errorAt(c.pos, "SyntaxError", "%s", err.Error())
	}
	return c.e.Eval(program, frame)
}

func (c *callContext) ClassOf(obj object.Object) *object.DynamicClass { return c.e.ClassOf(obj) }

func (c *callContext) IsA(obj object.Object, class *object.DynamicClass) bool {
	return c.e.IsA(obj, class)
}

func (c *callContext) ResolveConstant(path string) (object.Object, error) {
	parts := strings.Split(strings.TrimPrefix(path, "::"), "::")
	cur, err := c.e.lookupConstant(c.frame, parts[0], c.pos)
	if err != nil {
		return nil, err
	}
	for _, part := range parts[1:] {
		ns, ok := cur.(*object.DynamicClass)
		if !ok {
			return nil, c.e.errorAt(c.pos, "TypeError", "%s is not a class/module", cur.Inspect())
		}
		if cur, err = c.e.constantIn(ns, part, c.pos); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (c *callContext) NewError(class string, format string, a ...any) error {
	return c.e.errorAt(c.pos, class, format, a...)
}

func (c *callContext) Inspect(obj object.Object) (string, error) {
	return c.e.inspect(c.frame, obj, c.pos)
}

func (c *callContext) ToS(obj object.Object) (string, error) {
	return c.e.toS(c.frame, obj, c.pos)
}

func (c *callContext) Equal(a, b object.Object) (bool, error) {
	return c.e.equal(c.frame, a, b, c.pos)
}

func (c *callContext) Compare(a, b object.Object) (int, error) {
	return c.e.compare(c.frame, a, b, c.pos)
}

func (c *callContext) Require(path string, relative bool) (bool, error) {
	if c.e.Loader == nil {
		return false, c.e.errorAt(c.pos, "LoadError", "cannot load such file -- %s", path)
	}
	return c.e.Loader.Require(c.frame, path, relative)
}

func (c *callContext) Load(path string) (bool, error) {
	if c.e.Loader == nil {
		return false, c.e.errorAt(c.pos, "LoadError", "cannot load such file -- %s", path)
	}
	return c.e.Loader.Load(c.frame, path)
}

func (c *callContext) Rescue(err error, class *object.DynamicClass) (*object.DynamicObject, bool) {
	raised, ok := err.(*RaisedError)
	if !ok || !c.e.IsA(raised.Exception, class) {
		return nil, false
	}
	return raised.Exception, true
}

func (c *callContext) Raise(exc *object.DynamicObject) error {
	return c.e.raise(exc, c.pos)
}
