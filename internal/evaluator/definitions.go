package evaluator

import (
	"garnet/internal/ast"
	"garnet/internal/object"
)

// evalDef adds a method to the open class, or to the singleton class of an
// explicit receiver, and returns its name as a symbol.
func (e *Evaluator) evalDef(node *ast.MethodDefinition, ctx *object.Context) (object.Object, error) {
	lexical := ctx.Module
	if lexical == nil {
		lexical = e.core.Object
	}
	target, visibility := lexical, ctx.Visibility

	if node.Singleton != nil {
		recv, err := e.Eval(node.Singleton, ctx)
		if err != nil {
			return nil, err
		}
		if target = object.SingletonOf(recv, true); target == nil {
			return nil, e.errorAt(node.Pos(), "TypeError", "can't define singleton method '%s' for %s", node.Name, e.ClassOf(recv).Name)
		}
		visibility = object.Public
	}
	if ctx.Kind == object.RootFrame {
		visibility = object.Public
	}
	if e.root.Root().IsFrozen(target) {
		return nil, e.errorAt(node.Pos(), "FrozenError", "can't modify frozen %s: %s", e.ClassOf(target).Name, target.Inspect())
	}

	target.Methods[node.Name] = &object.Method{
		Name:       node.Name,
		Owner:      target,
		Parameters: node.Parameters,
		Body:       node.Body,
		Visibility: visibility,
		Lexical:    lexical,
		File:       ctx.File,
	}
	if ctx.ModuleFunction && node.Singleton == nil {
		target.Methods[node.Name].Visibility = object.Private
		s := object.SingletonOf(target, true)
		copied := *target.Methods[node.Name]
		copied.Owner, copied.Visibility = s, object.Public
		s.Methods[node.Name] = &copied
	}
	e.methodAdded(ctx, target, node.Name, node.Pos())
	return object.InternSymbol(node.Name), nil
}

// methodAdded runs the method_added or singleton_method_added hook when the
// script defines one.
func (e *Evaluator) methodAdded(ctx *object.Context, target *object.DynamicClass, name string, pos int) {
	recv, hook := object.Object(target), "method_added"
	if target.IsSingleton {
		recv, hook = target.Attached, "singleton_method_added"
	}
	if r, ok := e.findMethod(recv, hook, nil); ok && r.method != nil {
		if _, err := e.invoke(ctx, r, recv, hook, []object.Object{object.InternSymbol(name)}, nil, pos); err != nil {
			e.Logger.Debug("method hook failed", "hook", hook, "method", name, "err", err)
		}
	}
}

// definitionTarget splits a class or module path into the namespace it is
// defined in and its last name.
func (e *Evaluator) definitionTarget(path ast.Expression, ctx *object.Context) (*object.DynamicClass, string, error) {
	switch p := path.(type) {
	case *ast.NameExpression:
		ns := ctx.Module
		if ns == nil || ns.IsSingleton {
			ns = e.core.Object
		}
		return ns, p.Name, nil
	case *ast.ScopedConstant:
		if p.Scope == nil {
			return e.core.Object, p.Name, nil
		}
		scope, err := e.Eval(p.Scope, ctx)
		if err != nil {
			return nil, "", err
		}
		ns, ok := scope.(*object.DynamicClass)
		if !ok {
			return nil, "", e.errorAt(p.Pos(), "TypeError", "%s is not a class/module", scope.Inspect())
		}
		return ns, p.Name, nil
	}
	return nil, "", e.errorAt(path.Pos(), "TypeError", "class/module name must be a constant")
}

// existingDefinition finds what a class or module statement reopens: a
// constant of ns itself or a registered native type.
func (e *Evaluator) existingDefinition(ns *object.DynamicClass, name string, pos int) (object.Object, bool, error) {
	if v, ok := ns.Constant(name); ok {
		return v, true, nil
	}
	qualified := name
	if ns != e.core.Object {
		qualified = ns.Name + "::" + name
	}
	if cls, ok := e.natives[qualified]; ok {
		v, err := e.resolveNative(cls, pos)
		return v, err == nil, err
	}
	return nil, false, nil
}

func (e *Evaluator) evalClass(node *ast.ClassDefinition, ctx *object.Context) (object.Object, error) {
	ns, name, err := e.definitionTarget(node.Path, ctx)
	if err != nil {
		return nil, err
	}

	var super *object.DynamicClass
	if node.Superclass != nil {
		v, err := e.Eval(node.Superclass, ctx)
		if err != nil {
			return nil, err
		}
		cls, ok := v.(*object.DynamicClass)
		if !ok || cls.IsModule {
			return nil, e.errorAt(node.Superclass.Pos(), "TypeError", "superclass must be an instance of Class (given an instance of %s)", e.ClassOf(v).Name)
		}
		super = cls
	}

	existing, found, err := e.existingDefinition(ns, name, node.Pos())
	if err != nil {
		return nil, err
	}
	var cls *object.DynamicClass
	if found {
		c, ok := existing.(*object.DynamicClass)
		if !ok || c.IsModule {
			return nil, e.errorAt(node.Pos(), "TypeError", "%s is not a class", name)
		}
		if super != nil && c.Superclass != super {
			return nil, e.errorAt(node.Pos(), "TypeError", "superclass mismatch for class %s", name)
		}
		cls = c
	} else {
		if super == nil {
			super = e.core.Object
		}
		cls = object.NewClass("", super, e.core.Class)
		ns.SetConstant(name, cls)
		if r, ok := e.findMethod(super, "inherited", nil); ok && r.method != nil {
			if _, err := e.invoke(ctx, r, super, "inherited", []object.Object{cls}, nil, node.Pos()); err != nil {
				return nil, err
			}
		}
	}
	return e.evalBody(cls, node.Body, ctx)
}

func (e *Evaluator) evalModule(node *ast.ModuleDefinition, ctx *object.Context) (object.Object, error) {
	ns, name, err := e.definitionTarget(node.Path, ctx)
	if err != nil {
		return nil, err
	}
	existing, found, err := e.existingDefinition(ns, name, node.Pos())
	if err != nil {
		return nil, err
	}
	var m *object.DynamicClass
	if found {
		c, ok := existing.(*object.DynamicClass)
		if !ok || !c.IsModule {
			return nil, e.errorAt(node.Pos(), "TypeError", "%s is not a module", name)
		}
		m = c
	} else {
		m = object.NewModule("", e.core.Module)
		ns.SetConstant(name, m)
	}
	return e.evalBody(m, node.Body, ctx)
}

// evalSingletonClass is `class << target`.
func (e *Evaluator) evalSingletonClass(node *ast.SingletonClassDefinition, ctx *object.Context) (object.Object, error) {
	target, err := e.Eval(node.Target, ctx)
	if err != nil {
		return nil, err
	}
	s := object.SingletonOf(target, true)
	if s == nil {
		return nil, e.errorAt(node.Pos(), "TypeError", "can't define singleton")
	}
	return e.evalBody(s, node.Body, ctx)
}

// evalBody runs a class or module body with self and the open module set
// to cls.
func (e *Evaluator) evalBody(cls *object.DynamicClass, body ast.Expression, ctx *object.Context) (object.Object, error) {
	frame := ctx.NewFrame(object.ClassFrame)
	frame.Self = cls
	frame.Module = cls
	frame.Visibility = object.Public
	return e.Eval(body, frame)
}
