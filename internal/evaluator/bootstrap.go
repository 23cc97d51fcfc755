package evaluator

import (
	"reflect"
	"strings"

	"garnet/internal/object"
)

type core struct {
	BasicObject *object.DynamicClass
	Object      *object.DynamicClass
	Module      *object.DynamicClass
	Class       *object.DynamicClass
	Kernel      *object.DynamicClass
	Comparable  *object.DynamicClass
	Enumerable  *object.DynamicClass

	NilClass   *object.DynamicClass
	TrueClass  *object.DynamicClass
	FalseClass *object.DynamicClass
	Numeric    *object.DynamicClass
	Integer    *object.DynamicClass
	Float      *object.DynamicClass
	String     *object.DynamicClass
	Symbol     *object.DynamicClass
	Array      *object.DynamicClass
	Hash       *object.DynamicClass
	Range      *object.DynamicClass
	Proc       *object.DynamicClass
	Method     *object.DynamicClass

	Exception     *object.DynamicClass
	StandardError *object.DynamicClass
}

// exceptionTree lists the built-in exception classes, parents first.
var exceptionTree = [][2]string{
	{"ScriptError", "Exception"},
	{"LoadError", "ScriptError"},
	{"UnsupportedExtensionError", "LoadError"},
	{"FileNotFoundError", "LoadError"},
	{"NotImplementedError", "ScriptError"},
	{"SyntaxError", "ScriptError"},
	{"SecurityError", "Exception"},
	{"AccessDeniedError", "SecurityError"},
	{"SystemStackError", "Exception"},
	{"ArgumentError", "StandardError"},
	{"IOError", "StandardError"},
	{"IndexError", "StandardError"},
	{"KeyError", "IndexError"},
	{"StopIteration", "IndexError"},
	{"LocalJumpError", "StandardError"},
	{"NameError", "StandardError"},
	{"NoMethodError", "NameError"},
	{"RangeError", "StandardError"},
	{"FloatDomainError", "RangeError"},
	{"RuntimeError", "StandardError"},
	{"FrozenError", "RuntimeError"},
	{"TypeError", "StandardError"},
	{"ZeroDivisionError", "StandardError"},
}

func (e *Evaluator) bootstrap() {
	c := &e.core

	c.BasicObject = object.NewClass("BasicObject", nil, nil)
	c.Object = object.NewClass("Object", c.BasicObject, nil)
	c.Module = object.NewClass("Module", c.Object, nil)
	c.Class = object.NewClass("Class", c.Module, nil)
	for _, cls := range []*object.DynamicClass{c.BasicObject, c.Object, c.Module, c.Class} {
		cls.Class = c.Class
	}

	main := object.NewObject(c.Object)
	e.root = object.NewRootContext(main, c.Object)

	for _, cls := range []*object.DynamicClass{c.BasicObject, c.Object, c.Module, c.Class} {
		c.Object.SetConstant(cls.Name, cls)
	}

	c.Kernel = e.defineModule("Kernel")
	c.Comparable = e.defineModule("Comparable")
	c.Enumerable = e.defineModule("Enumerable")
	c.Object.Include(c.Kernel)

	native := func(name string, super *object.DynamicClass, mixins ...*object.DynamicClass) *object.DynamicClass {
		cls := e.DefineClass(name, super)
		cls.Native = true
		for _, m := range mixins {
			cls.Include(m)
		}
		return cls
	}
	c.NilClass = native("NilClass", c.Object)
	c.TrueClass = native("TrueClass", c.Object)
	c.FalseClass = native("FalseClass", c.Object)
	c.Numeric = native("Numeric", c.Object, c.Comparable)
	c.Integer = native("Integer", c.Numeric)
	c.Float = native("Float", c.Numeric)
	c.String = native("String", c.Object, c.Comparable)
	c.Symbol = native("Symbol", c.Object, c.Comparable)
	c.Array = native("Array", c.Object, c.Enumerable)
	c.Hash = native("Hash", c.Object, c.Enumerable)
	c.Range = native("Range", c.Object, c.Enumerable)
	c.Proc = native("Proc", c.Object)
	c.Method = native("Method", c.Object)

	c.Exception = e.DefineClass("Exception", c.Object)
	c.StandardError = e.DefineClass("StandardError", c.Exception)
	for _, pair := range exceptionTree {
		e.DefineClass(pair[0], e.classNamed(pair[1]))
	}

	e.registerOperators()

	// main prints as "main"
	singleton := object.SingletonOf(main, true)
	mainName := func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return &object.String{Value: "main"}, nil
	}
	singleton.Methods["to_s"] = &object.Method{Name: "to_s", Owner: singleton, Fn: mainName}
	singleton.Methods["inspect"] = &object.Method{Name: "inspect", Owner: singleton, Fn: mainName}
}

func (e *Evaluator) defineModule(name string) *object.DynamicClass {
	m := object.NewModule(name, e.core.Module)
	e.core.Object.SetConstant(name, m)
	return m
}

// DefineClass creates a class under Object, or returns the existing one.
func (e *Evaluator) DefineClass(name string, super *object.DynamicClass) *object.DynamicClass {
	if existing := e.classNamed(name); existing != nil {
		return existing
	}
	if super == nil {
		super = e.core.Object
	}
	cls := object.NewClass(name, super, e.core.Class)
	cls.Lexical = e.core.Object
	e.core.Object.SetConstant(name, cls)
	return cls
}

// DefineModule creates a module under Object, or returns the existing one.
func (e *Evaluator) DefineModule(name string) *object.DynamicClass {
	if existing := e.classNamed(name); existing != nil {
		return existing
	}
	return e.defineModule(name)
}

// RegisterNative declares a host type. Native types are not constants: every
// resolution by name goes through the security policy. goType, when set,
// lets Wrap find the class of host values.
func (e *Evaluator) RegisterNative(name string, goType reflect.Type, super *object.DynamicClass) *object.DynamicClass {
	if cls, ok := e.natives[name]; ok {
		return cls
	}
	if super == nil {
		super = e.core.Object
	}
	cls := object.NewClass(name, super, e.core.Class)
	cls.Native = true

	// the enclosing namespaces of `A::B::Type` are plain modules
	parts := strings.Split(name, "::")
	ns := e.core.Object
	for _, part := range parts[:len(parts)-1] {
		v, ok := ns.Constant(part)
		m, isClass := v.(*object.DynamicClass)
		if !ok || !isClass {
			m = object.NewModule("", e.core.Module)
			ns.SetConstant(part, m)
		}
		ns = m
	}
	cls.Lexical = ns

	e.natives[name] = cls
	if goType != nil {
		e.goTypes[goType] = cls
	}
	e.Logger.Debug("registered native type", "name", name)
	return cls
}

// Core returns a bootstrap class by name, bypassing the security policy.
func (e *Evaluator) Core(name string) *object.DynamicClass {
	if cls := e.classNamed(name); cls != nil {
		return cls
	}
	return e.natives[name]
}

func (e *Evaluator) classNamed(name string) *object.DynamicClass {
	v, ok := e.core.Object.Constant(name)
	if !ok {
		return nil
	}
	cls, _ := v.(*object.DynamicClass)
	return cls
}

// ClassOf returns the class that answers method calls on obj, not counting
// its singleton class.
func (e *Evaluator) ClassOf(obj object.Object) *object.DynamicClass {
	c := &e.core
	switch o := obj.(type) {
	case *object.Nil:
		return c.NilClass
	case *object.Boolean:
		if o.Value {
			return c.TrueClass
		}
		return c.FalseClass
	case *object.Integer:
		return c.Integer
	case *object.Float:
		return c.Float
	case *object.String:
		return c.String
	case *object.Symbol:
		return c.Symbol
	case *object.Array:
		return c.Array
	case *object.Hash:
		return c.Hash
	case *object.Range:
		return c.Range
	case *object.Proc:
		return c.Proc
	case *object.BoundMethod:
		return c.Method
	case *object.NativeObject:
		return o.Class
	case *object.DynamicClass:
		if o.Class != nil {
			return o.Class
		}
		return c.Class
	case *object.DynamicObject:
		return o.Class
	}
	return c.Object
}

// IsA reports whether obj is an instance of cls or of one of its
// descendants, mixins included.
func (e *Evaluator) IsA(obj object.Object, cls *object.DynamicClass) bool {
	if s := object.SingletonOf(obj, false); s != nil && s.IsSubclassOf(cls) {
		return true
	}
	return e.ClassOf(obj).IsSubclassOf(cls)
}

// Wrap converts a host value into a script value.
func (e *Evaluator) Wrap(v any) object.Object {
	if obj, ok := object.FromNative(v); ok {
		return obj
	}
	if cls, ok := e.goTypes[reflect.TypeOf(v)]; ok {
		return object.NewNativeObject(cls, v)
	}
	return object.NewNativeObject(e.core.Object, v)
}
