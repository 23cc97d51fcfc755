package object

import (
	"fmt"
	"sort"
	"strings"

	"garnet/internal/ast"
)

type Visibility int

const (
	Public Visibility = iota
	Private
	Protected
)

func (v Visibility) String() string {
	switch v {
	case Private:
		return "private"
	case Protected:
		return "protected"
	default:
		return "public"
	}
}

// Method is a callable stored in a class method table. Exactly one of Body,
// Proc or Fn is set.
type Method struct {
	Name       string
	Owner      *DynamicClass
	Parameters []*ast.Parameter
	Body       ast.Expression
	Proc       *Proc
	Fn         ForeignFunction
	Visibility Visibility
	// Lexical is the class or module whose body contains the definition; it
	// anchors constant lookup while the method runs.
	Lexical *DynamicClass
	File    string
}

func (m *Method) Arity() int {
	switch {
	case m.Fn != nil:
		return -1
	case m.Proc != nil:
		return paramArity(m.Proc.Parameters, true)
	}
	return paramArity(m.Parameters, true)
}

// DynamicObject is an instance of a script-defined class.
type DynamicObject struct {
	id        uint64
	Class     *DynamicClass
	ivars     map[string]Object
	ivarOrder []string
	singleton *DynamicClass
}

func NewObject(class *DynamicClass) *DynamicObject {
	return &DynamicObject{id: newID(), Class: class}
}

func (o *DynamicObject) ID() uint64       { return o.id }
func (o *DynamicObject) Type() ObjectType { return OBJECT_OBJ }
func (o *DynamicObject) MapKey() MapKey   { return MapKey{Type: OBJECT_OBJ, Value: o.id} }

func (o *DynamicObject) Inspect() string {
	name := "Object"
	if o.Class != nil {
		name = o.Class.Name
	}
	if len(o.ivarOrder) == 0 {
		return fmt.Sprintf("#<%s>", name)
	}
	parts := make([]string, len(o.ivarOrder))
	for i, k := range o.ivarOrder {
		parts[i] = k + "=" + o.ivars[k].Inspect()
	}
	return fmt.Sprintf("#<%s %s>", name, strings.Join(parts, ", "))
}

func (o *DynamicObject) GetIvar(name string) (Object, bool) {
	v, ok := o.ivars[name]
	return v, ok
}

func (o *DynamicObject) SetIvar(name string, value Object) {
	if o.ivars == nil {
		o.ivars = map[string]Object{}
	}
	if _, ok := o.ivars[name]; !ok {
		o.ivarOrder = append(o.ivarOrder, name)
	}
	o.ivars[name] = value
}

// IvarNames returns instance variable names in assignment order.
func (o *DynamicObject) IvarNames() []string {
	return append([]string(nil), o.ivarOrder...)
}

// Singleton returns the singleton class if one was created.
func (o *DynamicObject) Singleton() *DynamicClass {
	return o.singleton
}

func (o *DynamicObject) setSingleton(c *DynamicClass) {
	o.singleton = c
}

// DynamicClass is a class or module. Classes and modules are objects
// themselves, so it embeds DynamicObject for ivars and singleton methods.
type DynamicClass struct {
	DynamicObject
	Name       string
	Superclass *DynamicClass
	Mixins     []*DynamicClass
	Methods    map[string]*Method
	Constants  *Context
	ClassVars  map[string]Object
	IsModule   bool
	// IsSingleton classes hold the per-object methods of Attached.
	IsSingleton bool
	Attached    Object
	// Lexical is the namespace the class was defined in.
	Lexical *DynamicClass
	// Native classes describe host values; their methods live in the registry.
	Native bool
}

// NewClass creates a class whose own class is meta (normally the bootstrap
// Class).
func NewClass(name string, super, meta *DynamicClass) *DynamicClass {
	c := &DynamicClass{
		Name:       name,
		Superclass: super,
		Methods:    map[string]*Method{},
		ClassVars:  map[string]Object{},
	}
	c.id = newID()
	c.Class = meta
	c.Constants = NewNamespace(c)
	return c
}

func NewModule(name string, meta *DynamicClass) *DynamicClass {
	m := NewClass(name, nil, meta)
	m.IsModule = true
	return m
}

func (c *DynamicClass) Type() ObjectType {
	if c.IsModule {
		return MODULE_OBJ
	}
	return CLASS_OBJ
}

func (c *DynamicClass) Inspect() string {
	if c.IsSingleton {
		if c.Attached != nil {
			return "#<Class:" + c.Attached.Inspect() + ">"
		}
		return "#<Class:?>"
	}
	if c.Name == "" {
		return fmt.Sprintf("#<Class:0x%04x>", c.id)
	}
	return c.Name
}

func (c *DynamicClass) MapKey() MapKey { return MapKey{Type: c.Type(), Value: c.id} }

// Include appends a mixin. Re-including a module already present is a no-op.
func (c *DynamicClass) Include(m *DynamicClass) bool {
	for _, existing := range c.Mixins {
		if existing == m {
			return false
		}
	}
	c.Mixins = append(c.Mixins, m)
	return true
}

// Ancestors is the method resolution order: the class, its mixins in
// reverse inclusion order (each flattened with its own mixins), then the
// same for every superclass.
func (c *DynamicClass) Ancestors() []*DynamicClass {
	var out []*DynamicClass
	seen := map[*DynamicClass]bool{}
	var add func(m *DynamicClass)
	add = func(m *DynamicClass) {
		if seen[m] {
			return
		}
		seen[m] = true
		out = append(out, m)
		for i := len(m.Mixins) - 1; i >= 0; i-- {
			add(m.Mixins[i])
		}
	}
	for cur := c; cur != nil; cur = cur.Superclass {
		add(cur)
	}
	return out
}

// IsSubclassOf reports whether other appears in the ancestors of c.
func (c *DynamicClass) IsSubclassOf(other *DynamicClass) bool {
	for _, a := range c.Ancestors() {
		if a == other {
			return true
		}
	}
	return false
}

// SetConstant stores a constant and names anonymous classes after it.
func (c *DynamicClass) SetConstant(name string, value Object) {
	if cls, ok := value.(*DynamicClass); ok && cls.Name == "" {
		cls.Name = c.qualify(name)
		cls.Lexical = c
	}
	c.Constants.SetLocal(name, value)
}

func (c *DynamicClass) Constant(name string) (Object, bool) {
	return c.Constants.Get(name)
}

// ConstantNames lists the constants defined directly in c, sorted.
func (c *DynamicClass) ConstantNames() []string {
	names := c.Constants.LocalNames()
	sort.Strings(names)
	return names
}

func (c *DynamicClass) qualify(name string) string {
	if c.Name == "" || c.Name == "Object" {
		return name
	}
	return c.Name + "::" + name
}

// MethodNames lists the methods defined directly in c, sorted.
func (c *DynamicClass) MethodNames() []string {
	names := make([]string, 0, len(c.Methods))
	for name := range c.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SingletonOf returns the singleton class of obj, creating it when create
// is set. Only DynamicObject-backed values can carry one.
func SingletonOf(obj Object, create bool) *DynamicClass {
	var holder *DynamicObject
	switch o := obj.(type) {
	case *DynamicObject:
		holder = o
	case *DynamicClass:
		holder = &o.DynamicObject
	default:
		return nil
	}
	if s := holder.Singleton(); s != nil || !create {
		return s
	}
	var super *DynamicClass
	if cls, ok := obj.(*DynamicClass); ok {
		// class methods inherit: the singleton of a subclass continues at the
		// singleton of its superclass.
		if cls.Superclass != nil {
			super = SingletonOf(cls.Superclass, true)
		}
	} else {
		super = holder.Class
	}
	s := NewClass("", super, holder.Class)
	s.IsSingleton = true
	s.Attached = obj
	if cls, ok := obj.(*DynamicClass); ok {
		s.Lexical = cls
	}
	holder.setSingleton(s)
	return s
}
