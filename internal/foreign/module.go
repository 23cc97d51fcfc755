package foreign

import (
	"strings"
	"unicode"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerModule(reg *registry.Registry) {
	reg.Method("Module", fnModuleName(), "name")
	reg.Method("Module", fnModuleToS(), "to_s", "inspect")
	reg.Method("Module", fnModuleCaseEqual(), "===")
	reg.Method("Module", fnObjectIdentical(), "==")
	reg.Method("Module", fnModuleCompare("<"), "<")
	reg.Method("Module", fnModuleCompare("<="), "<=")
	reg.Method("Module", fnModuleCompare(">"), ">")
	reg.Method("Module", fnModuleCompare(">="), ">=")
	reg.Method("Module", fnModuleAncestors(), "ancestors")
	reg.Method("Module", fnModuleInclude(), "include")
	reg.Method("Module", fnModuleIncludes(), "include?")
	reg.Method("Module", fnModuleIncludedModules(), "included_modules")
	reg.Method("Module", fnModuleAttr(true, false), "attr_reader", "attr")
	reg.Method("Module", fnModuleAttr(false, true), "attr_writer")
	reg.Method("Module", fnModuleAttr(true, true), "attr_accessor")
	reg.Method("Module", fnModuleDefineMethod(), "define_method")
	reg.Method("Module", fnModuleAliasMethod(reg), "alias_method")
	reg.Method("Module", fnModuleRemoveMethod(), "remove_method")
	reg.Method("Module", fnModuleUndefMethod(), "undef_method")
	reg.Method("Module", fnModuleVisibility(reg, object.Public), "public")
	reg.Method("Module", fnModuleVisibility(reg, object.Private), "private")
	reg.Method("Module", fnModuleVisibility(reg, object.Protected), "protected")
	reg.Method("Module", fnModuleClassMethodVisibility(object.Private), "private_class_method")
	reg.Method("Module", fnModuleClassMethodVisibility(object.Public), "public_class_method")
	reg.Method("Module", fnModuleFunction(reg), "module_function")
	reg.Method("Module", fnModulePrivateConstant(), "private_constant")
	reg.Method("Module", fnModuleInstanceMethods(reg), "instance_methods", "public_instance_methods")
	reg.Method("Module", fnModulePrivateInstanceMethods(), "private_instance_methods")
	reg.Method("Module", fnModuleMethodDefined(reg, false), "method_defined?", "public_method_defined?")
	reg.Method("Module", fnModuleMethodDefined(reg, true), "private_method_defined?")
	reg.Method("Module", fnModuleConstGet(), "const_get")
	reg.Method("Module", fnModuleConstSet(), "const_set")
	reg.Method("Module", fnModuleConstDefined(), "const_defined?")
	reg.Method("Module", fnModuleConstants(), "constants")
	reg.Method("Module", fnModuleClassEval(), "class_eval", "module_eval")
	reg.Method("Module", fnModuleClassExec(), "class_exec", "module_exec")
	reg.Method("Module", fnModuleClassVarGet(), "class_variable_get")
	reg.Method("Module", fnModuleClassVarSet(), "class_variable_set")
	reg.Method("Module", fnModuleClassVarDefined(), "class_variable_defined?")
	reg.Method("Module", fnModuleClassVars(), "class_variables")

	reg.Method("Class", fnClassNew(), "new")
	reg.Method("Class", fnClassAllocate(), "allocate")
	reg.Method("Class", fnClassSuperclass(), "superclass")
	reg.StaticMethod("Class", fnClassAnonymous(), "new")
	reg.StaticMethod("Module", fnModuleAnonymous(), "new")
}

func selfClass(ctx object.EvaluatorContext) *object.DynamicClass {
	return ctx.Self().(*object.DynamicClass)
}

// names flattens symbol, string and array arguments into method names.
func names(ctx object.EvaluatorContext, args []object.Object) ([]string, error) {
	var out []string
	for _, arg := range args {
		if arr, ok := arg.(*object.Array); ok {
			nested, err := names(ctx, arr.Elements)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
			continue
		}
		name, err := toName(ctx, arg)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

func fnModuleName() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		cls := selfClass(ctx)
		if cls.Name == "" || cls.IsSingleton {
			return object.NIL, nil
		}
		return str(cls.Name), nil
	}
}

func fnModuleToS() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(selfClass(ctx).Inspect()), nil
	}
}

func fnModuleCaseEqual() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		return object.NativeBool(ctx.IsA(args[0], selfClass(ctx))), nil
	}
}

// fnModuleCompare orders modules by ancestry; unrelated modules compare as
// nil.
func fnModuleCompare(op string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, ok := args[0].(*object.DynamicClass)
		if !ok {
			return nil, ctx.NewError("TypeError", "compared with non class/module")
		}
		cls := selfClass(ctx)
		switch {
		case cls == other:
			return object.NativeBool(op == "<=" || op == ">="), nil
		case cls.IsSubclassOf(other):
			return object.NativeBool(op[0] == '<'), nil
		case other.IsSubclassOf(cls):
			return object.NativeBool(op[0] == '>'), nil
		}
		return object.NIL, nil
	}
}

func fnModuleAncestors() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		chain := selfClass(ctx).Ancestors()
		out := make([]object.Object, len(chain))
		for i, c := range chain {
			out[i] = c
		}
		return object.NewArray(out...), nil
	}
}

// fnModuleInclude mixes modules in. With several arguments the first ends
// up nearest the class, so they are included last to first.
func fnModuleInclude() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, -1); err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		if err := checkFrozen(ctx, cls); err != nil {
			return nil, err
		}
		for i := len(args) - 1; i >= 0; i-- {
			m, ok := args[i].(*object.DynamicClass)
			if !ok || !m.IsModule {
				return nil, ctx.NewError("TypeError", "wrong argument type %s (expected Module)", className(ctx, args[i]))
			}
			if m == cls || m.IsSubclassOf(cls) {
				return nil, ctx.NewError("ArgumentError", "cyclic include detected")
			}
			if !cls.Include(m) {
				continue
			}
			if ctx.RespondTo(m, "included", true) {
				if _, err := ctx.CallMethod(m, "included", []object.Object{cls}, nil); err != nil {
					return nil, err
				}
			}
		}
		return cls, nil
	}
}

func fnModuleIncludes() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		m, err := classArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		return object.NativeBool(m.IsModule && m != cls && cls.IsSubclassOf(m)), nil
	}
}

func fnModuleIncludedModules() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		var out []object.Object
		for _, c := range selfClass(ctx).Ancestors() {
			if c.IsModule && c != selfClass(ctx) {
				out = append(out, c)
			}
		}
		return object.NewArray(out...), nil
	}
}

// fnModuleAttr defines ivar accessors. They take the visibility currently
// open in the class body.
func fnModuleAttr(reader, writer bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		cls := selfClass(ctx)
		if err := checkFrozen(ctx, cls); err != nil {
			return nil, err
		}
		attrs, err := names(ctx, args)
		if err != nil {
			return nil, err
		}
		visibility := object.Public
		if ctx.Frame().Self == object.Object(cls) {
			visibility = ctx.Frame().Visibility
		}
		var defined []object.Object
		for _, attr := range attrs {
			if !isIdentifier(attr) {
				return nil, ctx.NewError("NameError", "invalid attribute name '%s'", attr)
			}
			ivar := "@" + attr
			if reader {
				cls.Methods[attr] = &object.Method{Name: attr, Owner: cls, Visibility: visibility, Lexical: cls, Fn: attrReader(ivar)}
				defined = append(defined, sym(attr))
			}
			if writer {
				cls.Methods[attr+"="] = &object.Method{Name: attr + "=", Owner: cls, Visibility: visibility, Lexical: cls, Fn: attrWriter(ivar)}
				defined = append(defined, sym(attr+"="))
			}
		}
		return object.NewArray(defined...), nil
	}
}

func attrReader(ivar string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 0); err != nil {
			return nil, err
		}
		holder, _ := ivarTarget(ctx)
		if holder == nil {
			return object.NIL, nil
		}
		if v, ok := holder.GetIvar(ivar); ok {
			return v, nil
		}
		return object.NIL, nil
	}
}

func attrWriter(ivar string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		if err := checkFrozen(ctx, ctx.Self()); err != nil {
			return nil, err
		}
		holder, _ := ivarTarget(ctx)
		if holder == nil {
			return nil, ctx.NewError("FrozenError", "can't modify frozen %s", ctx.ClassOf(ctx.Self()).Name)
		}
		holder.SetIvar(ivar, args[0])
		return args[0], nil
	}
}

func isIdentifier(name string) bool {
	for i, r := range name {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return name != ""
}

func fnModuleDefineMethod() object.ForeignFunction {
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
		cls := selfClass(ctx)
		if err := checkFrozen(ctx, cls); err != nil {
			return nil, err
		}
		visibility := object.Public
		if ctx.Frame().Self == object.Object(cls) {
			visibility = ctx.Frame().Visibility
		}
		cls.Methods[name] = &object.Method{Name: name, Owner: cls, Proc: body, Visibility: visibility, Lexical: cls}
		return sym(name), nil
	}
}

// findInherited resolves name from cls upward: a method-table entry, or a
// registry function wrapped as a method.
func findInherited(reg *registry.Registry, cls *object.DynamicClass, name string) (*object.Method, bool) {
	for _, c := range cls.Ancestors() {
		if m, ok := c.Methods[name]; ok {
			return m, true
		}
		var fn object.ForeignFunction
		var ok bool
		if c.IsSingleton {
			if attached, isClass := c.Attached.(*object.DynamicClass); isClass && attached.Name != "" {
				fn, ok = reg.LookupStatic(attached.Name, name)
			}
		} else if c.Name != "" {
			fn, ok = reg.Lookup(c.Name, name)
		}
		if ok {
			return &object.Method{Name: name, Owner: c, Fn: fn, Lexical: c}, true
		}
	}
	if fn, ok := reg.LookupGlobal(name); ok {
		return &object.Method{Name: name, Fn: fn}, true
	}
	return nil, false
}

func fnModuleAliasMethod(reg *registry.Registry) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		pair, err := names(ctx, args)
		if err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		if err := checkFrozen(ctx, cls); err != nil {
			return nil, err
		}
		m, ok := findInherited(reg, cls, pair[1])
		if !ok {
			return nil, ctx.NewError("NameError", "undefined method '%s' for class '%s'", pair[1], cls.Inspect())
		}
		aliased := *m
		aliased.Name, aliased.Owner = pair[0], cls
		if aliased.Lexical == nil {
			aliased.Lexical = cls
		}
		cls.Methods[pair[0]] = &aliased
		return sym(pair[0]), nil
	}
}

func fnModuleRemoveMethod() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		methods, err := names(ctx, args)
		if err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		if err := checkFrozen(ctx, cls); err != nil {
			return nil, err
		}
		for _, name := range methods {
			if _, ok := cls.Methods[name]; !ok {
				return nil, ctx.NewError("NameError", "method '%s' not defined in %s", name, cls.Inspect())
			}
			delete(cls.Methods, name)
		}
		return cls, nil
	}
}

// fnModuleUndefMethod blocks lookup of a name for the class and its
// descendants, inherited definitions included.
func fnModuleUndefMethod() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		methods, err := names(ctx, args)
		if err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		if err := checkFrozen(ctx, cls); err != nil {
			return nil, err
		}
		for _, name := range methods {
			undefined := name
			cls.Methods[name] = &object.Method{Name: name, Owner: cls, Lexical: cls, Fn: func(c object.EvaluatorContext, a ...object.Object) (object.Object, error) {
				return nil, c.NewError("NoMethodError", "undefined method '%s' for an instance of %s", undefined, c.ClassOf(c.Self()).Name)
			}}
		}
		return cls, nil
	}
}

// setVisibility changes the visibility of named methods. Inherited methods
// are copied into cls first so the change stays local to it.
func setVisibility(ctx object.EvaluatorContext, reg *registry.Registry, cls *object.DynamicClass, methods []string, v object.Visibility) error {
	for _, name := range methods {
		if m, ok := cls.Methods[name]; ok {
			m.Visibility = v
			continue
		}
		m, ok := findInherited(reg, cls, name)
		if !ok {
			return ctx.NewError("NameError", "undefined method '%s' for class '%s'", name, cls.Inspect())
		}
		copied := *m
		copied.Owner, copied.Visibility = cls, v
		if copied.Lexical == nil {
			copied.Lexical = cls
		}
		cls.Methods[name] = &copied
	}
	return nil
}

func fnModuleVisibility(reg *registry.Registry, v object.Visibility) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if len(args) == 0 {
			ctx.Frame().Visibility = v
			ctx.Frame().ModuleFunction = false
			return object.NIL, nil
		}
		methods, err := names(ctx, args)
		if err != nil {
			return nil, err
		}
		if err := setVisibility(ctx, reg, selfClass(ctx), methods, v); err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return args[0], nil
		}
		return object.NewArray(args...), nil
	}
}

func fnModuleClassMethodVisibility(v object.Visibility) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		methods, err := names(ctx, args)
		if err != nil {
			return nil, err
		}
		s := object.SingletonOf(ctx.Self(), true)
		for _, name := range methods {
			m, ok := s.Methods[name]
			if !ok {
				return nil, ctx.NewError("NameError", "undefined method '%s' for class '%s'", name, s.Inspect())
			}
			m.Visibility = v
		}
		return object.NIL, nil
	}
}

// fnModuleFunction makes methods callable on the module itself and private
// on includers. Without arguments it applies to the defs that follow.
func fnModuleFunction(reg *registry.Registry) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		cls := selfClass(ctx)
		if !cls.IsModule {
			return nil, ctx.NewError("TypeError", "module_function must be called for modules")
		}
		if len(args) == 0 {
			ctx.Frame().ModuleFunction = true
			return object.NIL, nil
		}
		methods, err := names(ctx, args)
		if err != nil {
			return nil, err
		}
		s := object.SingletonOf(cls, true)
		for _, name := range methods {
			m, ok := findInherited(reg, cls, name)
			if !ok {
				return nil, ctx.NewError("NameError", "undefined method '%s' for module '%s'", name, cls.Inspect())
			}
			copied := *m
			copied.Owner, copied.Visibility = s, object.Public
			s.Methods[name] = &copied
		}
		return object.NIL, setVisibility(ctx, reg, cls, methods, object.Private)
	}
}

func fnModulePrivateConstant() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NIL, nil
	}
}

func fnModuleInstanceMethods(reg *registry.Registry) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		cls := selfClass(ctx)
		if len(args) > 0 && !object.IsTruthy(args[0]) {
			var out []object.Object
			for _, name := range cls.MethodNames() {
				if cls.Methods[name].Visibility != object.Private {
					out = append(out, sym(name))
				}
			}
			return object.NewArray(out...), nil
		}
		return object.NewArray(methodNamesOf(reg, cls.Ancestors())...), nil
	}
}

func fnModulePrivateInstanceMethods() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		var out []object.Object
		seen := map[string]bool{}
		for _, c := range selfClass(ctx).Ancestors() {
			for _, name := range c.MethodNames() {
				if !seen[name] && c.Methods[name].Visibility == object.Private {
					out = append(out, sym(name))
				}
				seen[name] = true
			}
		}
		return object.NewArray(out...), nil
	}
}

func fnModuleMethodDefined(reg *registry.Registry, private bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		name, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		for _, c := range selfClass(ctx).Ancestors() {
			if m, ok := c.Methods[name]; ok {
				return object.NativeBool((m.Visibility == object.Private) == private), nil
			}
			if !c.IsSingleton && c.Name != "" {
				if _, ok := reg.Lookup(c.Name, name); ok {
					return object.NativeBool(!private), nil
				}
			}
		}
		return object.FALSE, nil
	}
}

// constLookup finds a constant in cls or its ancestors, falling back to a
// resolution from the caller's scope for Object.
func constLookup(ctx object.EvaluatorContext, cls *object.DynamicClass, path string) (object.Object, bool) {
	parts := strings.Split(strings.TrimPrefix(path, "::"), "::")
	cur := cls
	var found object.Object
	for i, part := range parts {
		found = nil
		for _, c := range cur.Ancestors() {
			if v, ok := c.Constant(part); ok {
				found = v
				break
			}
		}
		if found == nil && i == 0 && cur.Name == "Object" {
			if v, err := ctx.ResolveConstant(part); err == nil {
				found = v
			}
		}
		if found == nil {
			return nil, false
		}
		if i < len(parts)-1 {
			next, ok := found.(*object.DynamicClass)
			if !ok {
				return nil, false
			}
			cur = next
		}
	}
	return found, true
}

func fnModuleConstGet() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		name, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		if v, ok := constLookup(ctx, cls, name); ok {
			return v, nil
		}
		if cls.Name == "Object" {
			return nil, ctx.NewError("NameError", "uninitialized constant %s", name)
		}
		return nil, ctx.NewError("NameError", "uninitialized constant %s::%s", cls.Inspect(), name)
	}
}

func fnModuleConstSet() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		name, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if name == "" || !unicode.IsUpper([]rune(name)[0]) || !isIdentifier(name) {
			return nil, ctx.NewError("NameError", "wrong constant name %s", name)
		}
		cls := selfClass(ctx)
		if err := checkFrozen(ctx, cls); err != nil {
			return nil, err
		}
		cls.SetConstant(name, args[1])
		return args[1], nil
	}
}

func fnModuleConstDefined() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		name, err := toName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		_, ok := constLookup(ctx, selfClass(ctx), name)
		return object.NativeBool(ok), nil
	}
}

func fnModuleConstants() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		list := selfClass(ctx).ConstantNames()
		out := make([]object.Object, len(list))
		for i, name := range list {
			out[i] = sym(name)
		}
		return object.NewArray(out...), nil
	}
}

func fnModuleClassEval() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		cls := selfClass(ctx)
		if len(args) > 0 {
			src, err := toStr(ctx, args[0])
			if err != nil {
				return nil, err
			}
			return ctx.EvalString(src, cls, cls)
		}
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		return ctx.InstanceExec(cls, cls, blk, cls)
	}
}

func fnModuleClassExec() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		return ctx.InstanceExec(cls, cls, blk, args...)
	}
}

func classVarName(ctx object.EvaluatorContext, obj object.Object) (string, error) {
	name, err := toName(ctx, obj)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(name, "@@") || len(name) < 3 {
		return "", ctx.NewError("NameError", "'%s' is not allowed as a class variable name", name)
	}
	return name, nil
}

// classVarOwner finds the class along the superclass chain holding name.
func classVarOwner(cls *object.DynamicClass, name string) *object.DynamicClass {
	for _, c := range cls.Ancestors() {
		if _, ok := c.ClassVars[name]; ok {
			return c
		}
	}
	return nil
}

func fnModuleClassVarGet() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		name, err := classVarName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		owner := classVarOwner(cls, name)
		if owner == nil {
			return nil, ctx.NewError("NameError", "uninitialized class variable %s in %s", name, cls.Inspect())
		}
		return owner.ClassVars[name], nil
	}
}

func fnModuleClassVarSet() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		name, err := classVarName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		cls := selfClass(ctx)
		if err := checkFrozen(ctx, cls); err != nil {
			return nil, err
		}
		owner := classVarOwner(cls, name)
		if owner == nil {
			owner = cls
		}
		owner.ClassVars[name] = args[1]
		return args[1], nil
	}
}

func fnModuleClassVarDefined() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		name, err := classVarName(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(classVarOwner(selfClass(ctx), name) != nil), nil
	}
}

func fnModuleClassVars() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		var out []object.Object
		seen := map[string]bool{}
		for _, c := range selfClass(ctx).Ancestors() {
			for name := range c.ClassVars {
				if !seen[name] {
					seen[name] = true
					out = append(out, sym(name))
				}
			}
		}
		return object.NewArray(out...), nil
	}
}

// nativeLineage reports whether cls descends from a built-in value class,
// whose instances cannot be allocated as plain objects.
func nativeLineage(cls *object.DynamicClass) (*object.DynamicClass, bool) {
	for c := cls; c != nil; c = c.Superclass {
		if c.Native {
			return c, true
		}
	}
	return nil, false
}

func allocate(ctx object.EvaluatorContext) (*object.DynamicObject, error) {
	cls := selfClass(ctx)
	switch {
	case cls.IsModule:
		return nil, ctx.NewError("NoMethodError", "undefined method 'new' for module %s", cls.Inspect())
	case cls.IsSingleton:
		return nil, ctx.NewError("TypeError", "can't create instance of singleton class")
	}
	if native, ok := nativeLineage(cls); ok {
		return nil, ctx.NewError("TypeError", "allocator undefined for %s", native.Name)
	}
	return object.NewObject(cls), nil
}

func fnClassNew() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		obj, err := allocate(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := ctx.CallMethod(obj, "initialize", args, ctx.Block()); err != nil {
			return nil, err
		}
		return obj, nil
	}
}

func fnClassAllocate() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return allocate(ctx)
	}
}

func fnClassSuperclass() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		cls := selfClass(ctx)
		if cls.IsModule || cls.Superclass == nil {
			return object.NIL, nil
		}
		return cls.Superclass, nil
	}
}

// fnClassAnonymous is `Class.new(super) { body }`. The class is named when
// first assigned to a constant.
func fnClassAnonymous() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		meta := selfClass(ctx)
		var super *object.DynamicClass
		if len(args) == 1 {
			parent, ok := args[0].(*object.DynamicClass)
			if !ok || parent.IsModule {
				return nil, ctx.NewError("TypeError", "superclass must be a Class (%s given)", className(ctx, args[0]))
			}
			if parent.IsSingleton {
				return nil, ctx.NewError("TypeError", "can't make subclass of singleton class")
			}
			if parent == meta {
				return nil, ctx.NewError("TypeError", "can't make subclass of Class")
			}
			super = parent
		}
		if super == nil {
			v, err := ctx.ResolveConstant("Object")
			if err != nil {
				return nil, err
			}
			super = v.(*object.DynamicClass)
		}
		cls := object.NewClass("", super, meta)
		if ctx.RespondTo(super, "inherited", true) {
			if _, err := ctx.CallMethod(super, "inherited", []object.Object{cls}, nil); err != nil {
				return nil, err
			}
		}
		if blk := ctx.Block(); blk != nil {
			if _, err := ctx.InstanceExec(cls, cls, blk, cls); err != nil {
				return nil, err
			}
		}
		return cls, nil
	}
}

func fnModuleAnonymous() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		m := object.NewModule("", selfClass(ctx))
		if blk := ctx.Block(); blk != nil {
			if _, err := ctx.InstanceExec(m, m, blk, m); err != nil {
				return nil, err
			}
		}
		return m, nil
	}
}
