package object

import (
	"sort"
)

type FrameKind int

const (
	RootFrame FrameKind = iota
	ClassFrame
	MethodFrame
	BlockFrame
	LambdaFrame
	// NamespaceFrame contexts hold the constants of a class or module.
	NamespaceFrame
)

func (k FrameKind) String() string {
	switch k {
	case RootFrame:
		return "root"
	case ClassFrame:
		return "class"
	case MethodFrame:
		return "method"
	case BlockFrame:
		return "block"
	case LambdaFrame:
		return "lambda"
	default:
		return "namespace"
	}
}

// Root holds the state shared by every frame of one machine.
type Root struct {
	Globals map[string]Object
	Context *Context

	frozen    map[Object]struct{}
	missing   map[string]int
	recursing map[Object]bool
}

func (r *Root) Freeze(obj Object) {
	r.frozen[obj] = struct{}{}
}

// IsFrozen reports whether obj rejects mutation. Immediate values are always
// frozen.
func (r *Root) IsFrozen(obj Object) bool {
	switch obj.(type) {
	case *Nil, *Boolean, *Integer, *Float, *Symbol:
		return true
	}
	_, ok := r.frozen[obj]
	return ok
}

// EnterMissing marks a method_missing dispatch for name as running. It
// returns false when one is already running for the same name.
func (r *Root) EnterMissing(name string) bool {
	if r.missing[name] > 0 {
		return false
	}
	r.missing[name]++
	return true
}

func (r *Root) LeaveMissing(name string) {
	if r.missing[name]--; r.missing[name] <= 0 {
		delete(r.missing, name)
	}
}

// Context is one frame of the scope chain.
type Context struct {
	Parent *Context
	Kind   FrameKind

	locals map[string]Object
	root   *Root

	Self   Object
	Module *DynamicClass
	Block  *Proc
	// Method, Args and Proc describe the running callable: Method and Args
	// for `super` forwarding, Proc for block and lambda frames.
	Method *Method
	Args   []Object
	Proc   *Proc

	File       string
	LoopDepth  int
	Visibility Visibility
	// ModuleFunction is set by a bare `module_function` in a module body.
	ModuleFunction bool
}

// EnterRecursion marks obj as being walked by inspect, join or flatten. It
// returns false when obj is already being walked further up the stack.
func (r *Root) EnterRecursion(obj Object) bool {
	if r.recursing[obj] {
		return false
	}
	r.recursing[obj] = true
	return true
}

func (r *Root) LeaveRecursion(obj Object) {
	delete(r.recursing, obj)
}

func NewRootContext(self Object, module *DynamicClass) *Context {
	root := &Root{
		Globals:   map[string]Object{},
		frozen:    map[Object]struct{}{},
		missing:   map[string]int{},
		recursing: map[Object]bool{},
	}
	ctx := &Context{Kind: RootFrame, locals: map[string]Object{}, root: root, Self: self, Module: module}
	root.Context = ctx
	return ctx
}

// NewNamespace creates the constant table of class c.
func NewNamespace(c *DynamicClass) *Context {
	return &Context{Kind: NamespaceFrame, locals: map[string]Object{}, Self: c, Module: c}
}

// NewFrame opens a child frame. Block and lambda frames inherit self, the
// open module and the bound block; plain frames start empty and are
// configured by the caller.
func (c *Context) NewFrame(kind FrameKind) *Context {
	frame := &Context{
		Parent: c,
		Kind:   kind,
		locals: map[string]Object{},
		root:   c.root,
		Self:   c.Self,
		Module: c.Module,
		File:   c.File,
	}
	if kind == BlockFrame || kind == LambdaFrame {
		frame.Block = c.Block
		frame.Method = c.Method
		frame.Args = c.Args
		frame.Visibility = c.Visibility
	}
	return frame
}

func (c *Context) Root() *Root { return c.root }

func (c *Context) delegates() bool {
	return c.Kind == BlockFrame || c.Kind == LambdaFrame
}

// owner finds the frame that holds name, walking through block frames up to
// the first plain frame.
func (c *Context) owner(name string) *Context {
	for cur := c; cur != nil; cur = cur.Parent {
		if _, ok := cur.locals[name]; ok {
			return cur
		}
		if !cur.delegates() {
			break
		}
	}
	return nil
}

func (c *Context) Get(name string) (Object, bool) {
	if o := c.owner(name); o != nil {
		return o.locals[name], true
	}
	return nil, false
}

// Set assigns to the frame that already holds name, or creates it here.
func (c *Context) Set(name string, value Object) {
	if o := c.owner(name); o != nil {
		o.locals[name] = value
		return
	}
	c.locals[name] = value
}

// SetLocal binds name in this frame only, shadowing any outer binding.
func (c *Context) SetLocal(name string, value Object) {
	c.locals[name] = value
}

func (c *Context) Has(name string) bool {
	return c.owner(name) != nil
}

// LocalNames lists the names visible from this frame, sorted.
func (c *Context) LocalNames() []string {
	seen := map[string]bool{}
	var names []string
	for cur := c; cur != nil; cur = cur.Parent {
		for name := range cur.locals {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		if !cur.delegates() {
			break
		}
	}
	sort.Strings(names)
	return names
}

// MethodFrame returns the nearest enclosing plain frame, the one a `return`
// or `yield` inside a block refers to.
func (c *Context) MethodFrame() *Context {
	cur := c
	for cur.Kind == BlockFrame && cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// InLoop reports whether an untagged break or next has a loop to target in
// this frame.
func (c *Context) InLoop() bool {
	return c.LoopDepth > 0
}
