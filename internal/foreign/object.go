package foreign

import (
	"sort"
	"strings"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerObject(reg *registry.Registry) {
	reg.Method("BasicObject", fnObjectInitialize(), "initialize")
	reg.Method("BasicObject", fnObjectIdentical(), "equal?")
	reg.Method("BasicObject", fnObjectNot(), "!")
	reg.Method("BasicObject", fnObjectInstanceEval(), "instance_eval")
	reg.Method("BasicObject", fnObjectInstanceExec(), "instance_exec")
	reg.Method("BasicObject", fnObjectSend(false), "__send__")
	reg.Method("BasicObject", fnObjectID(), "__id__")

	reg.Method("Kernel", fnObjectClass(), "class")
	reg.Method("Kernel", fnObjectSingletonClass(), "singleton_class")
	reg.Method("Kernel", fnObjectInspect(), "inspect")
	reg.Method("Kernel", fnObjectToS(), "to_s")
	reg.Method("Kernel", fnObjectIdentical(), "==")
	reg.Method("Kernel", fnObjectEql(), "eql?", "===")
	reg.Method("Kernel", fnObjectMatch(), "=~")
	reg.Method("Kernel", fnObjectIsNil(), "nil?")
	reg.Method("Kernel", fnObjectHash(), "hash")
	reg.Method("Kernel", fnObjectID(), "object_id")
	reg.Method("Kernel", fnObjectFreeze(), "freeze")
	reg.Method("Kernel", fnObjectFrozen(), "frozen?")
	reg.Method("Kernel", fnObjectDup(false), "dup")
	reg.Method("Kernel", fnObjectDup(true), "clone")
	reg.Method("Kernel", fnObjectRespondTo(), "respond_to?")
	reg.Method("Kernel", fnObjectSend(false), "send")
	reg.Method("Kernel", fnObjectSend(true), "public_send")
	reg.Method("Kernel", fnObjectMethod(), "method")
	reg.Method("Kernel", fnObjectMethods(reg), "methods", "public_methods")
	reg.Method("Kernel", fnObjectSingletonMethods(), "singleton_methods")
	reg.Method("Kernel", fnObjectDefineSingletonMethod(), "define_singleton_method")
	reg.Method("Kernel", fnObjectIvarGet(), "instance_variable_get")
	reg.Method("Kernel", fnObjectIvarSet(), "instance_variable_set")
	reg.Method("Kernel", fnObjectIvarDefined(), "instance_variable_defined?")
	reg.Method("Kernel", fnObjectIvars(), "instance_variables")
	reg.Method("Kernel", fnObjectIsA(), "is_a?", "kind_of?")
	reg.Method("Kernel", fnObjectInstanceOf(), "instance_of?")
	reg.Method("Kernel", fnObjectTap(), "tap")
	reg.Method("Kernel", fnObjectThen(), "then", "yield_self")
	reg.Method("Kernel", fnObjectItself(), "itself")
	reg.Method("Kernel", fnObjectExtend(), "extend")
	reg.Method("Kernel", fnObjectDisplay(), "display")

	reg.Method("NilClass", fnNilToS(), "to_s")
	reg.Method("NilClass", fnNilToA(), "to_a")
	reg.Method("NilClass", fnNilToI(), "to_i")
	reg.Method("NilClass", fnNilToF(), "to_f")
	reg.Method("NilClass", fnNilToH(), "to_h")
	reg.Register(registry.Entry{Names: []string{"&"}, Types: []string{"NilClass", "FalseClass"}, Fn: fnBoolAnd()})
	reg.Register(registry.Entry{Names: []string{"|"}, Types: []string{"NilClass", "FalseClass"}, Fn: fnBoolOr()})
	reg.Method("TrueClass", fnBoolAnd(), "&")
	reg.Method("TrueClass", fnBoolOr(), "|")
	reg.Register(registry.Entry{Names: []string{"^"}, Types: []string{"NilClass", "TrueClass", "FalseClass"}, Fn: fnBoolXor()})
}

func fnObjectInitialize() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 0); err != nil {
			return nil, err
		}
		return object.NIL, nil
	}
}

func fnObjectIdentical() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		return object.NativeBool(identical(ctx.Self(), args[0])), nil
	}
}

// identical compares identity. Immediates are identical when equal.
func identical(a, b object.Object) bool {
	switch a.(type) {
	case *object.Integer, *object.Float, *object.Symbol, *object.Nil, *object.Boolean:
		return a.Type() == b.Type() && object.KeyOf(a) == object.KeyOf(b)
	}
	return a == b
}

func fnObjectEql() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		eq, err := ctx.Equal(ctx.Self(), args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(eq), nil
	}
}

func fnObjectMatch() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NIL, nil
	}
}

func fnObjectNot() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(!object.IsTruthy(ctx.Self())), nil
	}
}

func fnObjectIsNil() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(isNil(ctx.Self())), nil
	}
}

func fnObjectClass() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return ctx.ClassOf(ctx.Self()), nil
	}
}

func fnObjectSingletonClass() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		s := object.SingletonOf(ctx.Self(), true)
		if s == nil {
			return nil, ctx.NewError("TypeError", "can't define singleton")
		}
		return s, nil
	}
}

// inspectValue renders the built-in types, going back through ctx for
// elements so script-defined inspect methods are honoured.
func inspectValue(ctx object.EvaluatorContext, obj object.Object) (string, error) {
	switch v := obj.(type) {
	case *object.Array, *object.Hash:
		root := ctx.Root()
		if !root.EnterRecursion(v) {
			if _, ok := v.(*object.Array); ok {
				return "[...]", nil
			}
			return "{...}", nil
		}
		defer root.LeaveRecursion(v)
	}
	switch v := obj.(type) {
	case *object.Array:
		parts := make([]string, len(v.Elements))
		for i, e := range v.Elements {
			s, err := ctx.Inspect(e)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case *object.Hash:
		entries := v.Entries()
		parts := make([]string, len(entries))
		for i, pair := range entries {
			val, err := ctx.Inspect(pair.Value)
			if err != nil {
				return "", err
			}
			if s, ok := pair.Key.(*object.Symbol); ok {
				parts[i] = s.Inspect() + "=>" + val
				continue
			}
			key, err := ctx.Inspect(pair.Key)
			if err != nil {
				return "", err
			}
			parts[i] = key + "=>" + val
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	case *object.Range:
		low, err := inspectBound(ctx, v.Low)
		if err != nil {
			return "", err
		}
		high, err := inspectBound(ctx, v.High)
		if err != nil {
			return "", err
		}
		if v.Exclusive {
			return low + "..." + high, nil
		}
		return low + ".." + high, nil
	case *object.DynamicObject:
		var b strings.Builder
		b.WriteString("#<" + v.Class.Name)
		for i, name := range v.IvarNames() {
			val, _ := v.GetIvar(name)
			s, err := ctx.Inspect(val)
			if err != nil {
				return "", err
			}
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(" " + name + "=" + s)
		}
		b.WriteByte('>')
		return b.String(), nil
	}
	return obj.Inspect(), nil
}

func inspectBound(ctx object.EvaluatorContext, obj object.Object) (string, error) {
	if isNil(obj) {
		return "", nil
	}
	return ctx.Inspect(obj)
}

func fnObjectInspect() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		s, err := inspectValue(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

func fnObjectToS() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		switch v := ctx.Self().(type) {
		case *object.String:
			return v, nil
		case *object.Symbol:
			return str(v.Name), nil
		case *object.DynamicObject:
			return str("#<" + v.Class.Name + ">"), nil
		case *object.Array, *object.Hash, *object.Range:
			s, err := inspectValue(ctx, v)
			if err != nil {
				return nil, err
			}
			return str(s), nil
		}
		return str(ctx.Self().Inspect()), nil
	}
}

func fnObjectHash() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(int64(object.KeyOf(ctx.Self()).Value >> 2)), nil
	}
}

func fnObjectID() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		switch v := ctx.Self().(type) {
		case *object.DynamicObject:
			return integer(int64(v.ID())), nil
		case *object.DynamicClass:
			return integer(int64(v.ID())), nil
		case *object.Integer:
			return integer(2*v.Value + 1), nil
		}
		return integer(int64(object.KeyOf(ctx.Self()).Value >> 2)), nil
	}
}

func fnObjectFreeze() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		ctx.Root().Freeze(ctx.Self())
		return ctx.Self(), nil
	}
}

func fnObjectFrozen() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(ctx.Root().IsFrozen(ctx.Self())), nil
	}
}

// fnObjectDup copies the receiver shallowly. clone also keeps the frozen
// state and singleton methods.
func fnObjectDup(clone bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self := ctx.Self()
		var copied object.Object
		switch v := self.(type) {
		case *object.String:
			copied = str(v.Value)
		case *object.Array:
			copied = object.NewArray(append([]object.Object(nil), v.Elements...)...)
		case *object.Hash:
			h := object.NewHash()
			for _, pair := range v.Entries() {
				h.Set(pair.Key, pair.Value)
			}
			h.Default, h.DefaultProc = v.Default, v.DefaultProc
			copied = h
		case *object.DynamicObject:
			o := object.NewObject(v.Class)
			for _, name := range v.IvarNames() {
				val, _ := v.GetIvar(name)
				o.SetIvar(name, val)
			}
			if clone {
				if s := v.Singleton(); s != nil {
					os := object.SingletonOf(o, true)
					for name, m := range s.Methods {
						os.Methods[name] = m
					}
					os.Mixins = append(os.Mixins, s.Mixins...)
				}
			}
			copied = o
		default:
			return self, nil
		}
		if ctx.RespondTo(copied, "initialize_copy", true) {
			if _, isObj := copied.(*object.DynamicObject); isObj {
				if _, err := ctx.CallMethod(copied, "initialize_copy", []object.Object{self}, nil); err != nil {
					return nil, err
				}
			}
		}
		if clone && ctx.Root().IsFrozen(self) {
			ctx.Root().Freeze(copied)
		}
		return copied, nil
	}
}

func fnObjectRespondTo() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		name, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		includeAll := len(args) == 2 && object.IsTruthy(args[1])
		return object.NativeBool(ctx.RespondTo(ctx.Self(), name, includeAll)), nil
	}
}

func fnObjectSend(public bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, -1); err != nil {
			return nil, err
		}
		name, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if public && ctx.RespondTo(ctx.Self(), name, true) && !ctx.RespondTo(ctx.Self(), name, false) {
			return nil, ctx.NewError("NoMethodError", "private method '%s' called for an instance of %s", name, ctx.ClassOf(ctx.Self()).Name)
		}
		return ctx.CallMethod(ctx.Self(), name, args[1:], ctx.Block())
	}
}

func fnObjectMethod() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		name, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if !ctx.RespondTo(ctx.Self(), name, true) {
			return nil, ctx.NewError("NameError", "undefined method '%s' for %s", name, className(ctx, ctx.Self()))
		}
		return &object.BoundMethod{Receiver: ctx.Self(), Name: name}, nil
	}
}

// methodNamesOf lists public method names along cls's ancestors, including
// registry methods of the built-in types.
func methodNamesOf(reg *registry.Registry, chain []*object.DynamicClass) []object.Object {
	seen := map[string]bool{}
	for _, c := range chain {
		for name, m := range c.Methods {
			if m.Visibility != object.Private {
				seen[name] = true
			}
		}
		if c.Name != "" && !c.IsSingleton {
			for _, name := range reg.Names(c.Name) {
				seen[name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]object.Object, len(names))
	for i, name := range names {
		out[i] = sym(name)
	}
	return out
}

func fnObjectMethods(reg *registry.Registry) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		var chain []*object.DynamicClass
		if s := object.SingletonOf(ctx.Self(), false); s != nil {
			chain = s.Ancestors()
		} else {
			chain = ctx.ClassOf(ctx.Self()).Ancestors()
		}
		return object.NewArray(methodNamesOf(reg, chain)...), nil
	}
}

func fnObjectSingletonMethods() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		s := object.SingletonOf(ctx.Self(), false)
		if s == nil {
			return object.NewArray(), nil
		}
		names := s.MethodNames()
		out := make([]object.Object, len(names))
		for i, name := range names {
			out[i] = sym(name)
		}
		return object.NewArray(out...), nil
	}
}

func fnObjectDefineSingletonMethod() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		name, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		body, err := methodBody(ctx, args[1:])
		if err != nil {
			return nil, err
		}
		s := object.SingletonOf(ctx.Self(), true)
		if s == nil {
			return nil, ctx.NewError("TypeError", "can't define singleton")
		}
		s.Methods[name] = &object.Method{Name: name, Owner: s, Proc: body, Lexical: s}
		return sym(name), nil
	}
}

// methodBody picks the proc of define_method: an explicit argument or the
// block.
func methodBody(ctx object.EvaluatorContext, args []object.Object) (*object.Proc, error) {
	if len(args) > 0 {
		switch v := args[0].(type) {
		case *object.Proc:
			return v, nil
		case *object.BoundMethod:
			return object.NewNativeProc(func(c object.EvaluatorContext, a ...object.Object) (object.Object, error) {
				return c.CallMethod(v.Receiver, v.Name, a, c.Block())
			}, true), nil
		}
		return nil, ctx.NewError("TypeError", "wrong argument type %s (expected Proc/Method)", className(ctx, args[0]))
	}
	blk := ctx.Block()
	if blk == nil {
		return nil, ctx.NewError("ArgumentError", "tried to create Proc object without a block")
	}
	return blk, nil
}

func ivarTarget(ctx object.EvaluatorContext) (*object.DynamicObject, error) {
	switch v := ctx.Self().(type) {
	case *object.DynamicObject:
		return v, nil
	case *object.DynamicClass:
		return &v.DynamicObject, nil
	}
	return nil, nil
}

func ivarName(ctx object.EvaluatorContext, obj object.Object) (string, error) {
	name, err := toName(ctx, obj)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(name, "@") || strings.HasPrefix(name, "@@") || len(name) < 2 {
		return "", ctx.NewError("NameError", "'%s' is not allowed as an instance variable name", name)
	}
	return name, nil
}

func fnObjectIvarGet() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		name, err := ivarName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		holder, _ := ivarTarget(ctx)
		if holder == nil {
			return object.NIL, nil
		}
		if v, ok := holder.GetIvar(name); ok {
			return v, nil
		}
		return object.NIL, nil
	}
}

func fnObjectIvarSet() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		name, err := ivarName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if err := checkFrozen(ctx, ctx.Self()); err != nil {
			return nil, err
		}
		holder, _ := ivarTarget(ctx)
		if holder == nil {
			return nil, ctx.NewError("FrozenError", "can't modify frozen %s", ctx.ClassOf(ctx.Self()).Name)
		}
		holder.SetIvar(name, args[1])
		return args[1], nil
	}
}

func fnObjectIvarDefined() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		name, err := ivarName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		holder, _ := ivarTarget(ctx)
		if holder == nil {
			return object.FALSE, nil
		}
		_, ok := holder.GetIvar(name)
		return object.NativeBool(ok), nil
	}
}

func fnObjectIvars() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		holder, _ := ivarTarget(ctx)
		if holder == nil {
			return object.NewArray(), nil
		}
		names := holder.IvarNames()
		out := make([]object.Object, len(names))
		for i, name := range names {
			out[i] = sym(name)
		}
		return object.NewArray(out...), nil
	}
}

func fnObjectIsA() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		cls, err := classArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(ctx.IsA(ctx.Self(), cls)), nil
	}
}

func fnObjectInstanceOf() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		cls, err := classArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(ctx.ClassOf(ctx.Self()) == cls), nil
	}
}

func fnObjectTap() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if _, err := ctx.Yield(ctx.Self()); err != nil {
			return nil, err
		}
		return ctx.Self(), nil
	}
}

func fnObjectThen() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return ctx.Yield(ctx.Self())
	}
}

func fnObjectItself() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return ctx.Self(), nil
	}
}

// fnObjectExtend mixes modules into the receiver's singleton class and
// runs their `extended` hooks.
func fnObjectExtend() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, -1); err != nil {
			return nil, err
		}
		s := object.SingletonOf(ctx.Self(), true)
		if s == nil {
			return nil, ctx.NewError("TypeError", "can't define singleton")
		}
		if err := checkFrozen(ctx, ctx.Self()); err != nil {
			return nil, err
		}
		for _, arg := range args {
			m, ok := arg.(*object.DynamicClass)
			if !ok || !m.IsModule {
				return nil, ctx.NewError("TypeError", "wrong argument type %s (expected Module)", className(ctx, arg))
			}
			if s.Include(m) && ctx.RespondTo(m, "extended", true) {
				if _, err := ctx.CallMethod(m, "extended", []object.Object{ctx.Self()}, nil); err != nil {
					return nil, err
				}
			}
		}
		return ctx.Self(), nil
	}
}

func fnObjectInstanceEval() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		module := object.SingletonOf(ctx.Self(), true)
		if len(args) > 0 {
			src, err := toStr(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return ctx.EvalString(src, ctx.Self(), module)
		}
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		return ctx.InstanceExec(ctx.Self(), module, blk, ctx.Self())
	}
}

func fnObjectInstanceExec() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		return ctx.InstanceExec(ctx.Self(), object.SingletonOf(ctx.Self(), true), blk, args...)
	}
}

func fnObjectDisplay() object.ForeignFunction {
	print := fnKernelPrint()
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return print(ctx, ctx.Self())
	}
}

func fnNilToS() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(""), nil
	}
}

func fnNilToA() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NewArray(), nil
	}
}

func fnNilToI() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(0), nil
	}
}

func fnNilToF() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return float(0), nil
	}
}

func fnNilToH() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NewHash(), nil
	}
}

func fnBoolAnd() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		return object.NativeBool(object.IsTruthy(ctx.Self()) && object.IsTruthy(args[0])), nil
	}
}

func fnBoolOr() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		return object.NativeBool(object.IsTruthy(ctx.Self()) || object.IsTruthy(args[0])), nil
	}
}

func fnBoolXor() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		return object.NativeBool(object.IsTruthy(ctx.Self()) != object.IsTruthy(args[0])), nil
	}
}
