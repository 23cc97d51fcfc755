package evaluator

import (
	"unicode"
	"unicode/utf8"

	"garnet/internal/ast"
	"garnet/internal/object"
)

func isConstant(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func (e *Evaluator) evalName(node *ast.NameExpression, ctx *object.Context) (object.Object, error) {
	if v, ok := ctx.Get(node.Name); ok {
		return v, nil
	}
	if isConstant(node.Name) {
		v, err := e.lookupConstant(ctx, node.Name, node.Pos())
		if err != nil && node.Lenient {
			return object.NIL, nil
		}
		return v, err
	}
	if node.Lenient || node.Local {
		return object.NIL, nil
	}
	if r, ok := e.findMethod(ctx.Self, node.Name, nil); ok {
		return e.invoke(ctx, r, ctx.Self, node.Name, nil, nil, node.Pos())
	}
	if _, ok := e.findMethod(ctx.Self, "method_missing", nil); ok {
		return e.methodMissing(ctx, ctx.Self, node.Name, nil, nil, node.Pos())
	}
	msg := "undefined local variable or method '" + node.Name + "' for " + e.describe(ctx.Self)
	candidates := append(ctx.LocalNames(), e.methodNames(ctx.Self)...)
	if hint := closest(node.Name, candidates); hint != "" {
		msg += "\nDid you mean?  " + hint
	}
	return nil, e.errorAt(node.Pos(), "NameError", "%s", msg)
}

// Constants

// lookupConstant resolves a bare constant: the lexical namespaces, then the
// ancestors of the innermost one, then Object, then the registered native
// types, which the security policy must allow.
func (e *Evaluator) lookupConstant(ctx *object.Context, name string, pos int) (object.Object, error) {
	for m := ctx.Module; m != nil; m = m.Lexical {
		if v, ok := m.Constant(name); ok {
			return v, nil
		}
	}
	if ctx.Module != nil {
		for _, a := range ctx.Module.Ancestors() {
			if v, ok := a.Constant(name); ok {
				return v, nil
			}
		}
	}
	if v, ok := e.core.Object.Constant(name); ok {
		return v, nil
	}
	for m := ctx.Module; m != nil; m = m.Lexical {
		if m.Name != "" && m != e.core.Object {
			if cls, ok := e.natives[m.Name+"::"+name]; ok {
				return e.resolveNative(cls, pos)
			}
		}
	}
	if cls, ok := e.natives[name]; ok {
		return e.resolveNative(cls, pos)
	}
	return nil, e.uninitializedConstant(name, e.core.Object, pos)
}

// constantIn resolves `ns::name`.
func (e *Evaluator) constantIn(ns *object.DynamicClass, name string, pos int) (object.Object, error) {
	for _, a := range ns.Ancestors() {
		if v, ok := a.Constant(name); ok {
			return v, nil
		}
	}
	qualified := name
	if ns != e.core.Object {
		qualified = ns.Name + "::" + name
	}
	if cls, ok := e.natives[qualified]; ok {
		return e.resolveNative(cls, pos)
	}
	return nil, e.uninitializedConstant(qualified, ns, pos)
}

func (e *Evaluator) resolveNative(cls *object.DynamicClass, pos int) (object.Object, error) {
	if err := e.Policy.Check(cls.Name); err != nil {
		e.Logger.Warn("native type access denied", "type", cls.Name, "mode", e.Policy.Mode().String())
		return nil, e.errorAt(pos, "AccessDeniedError", "%s", err.Error())
	}
	return cls, nil
}

func (e *Evaluator) uninitializedConstant(name string, ns *object.DynamicClass, pos int) error {
	msg := "uninitialized constant " + name
	if hint := closest(name, ns.ConstantNames()); hint != "" {
		msg += "\nDid you mean?  " + hint
	}
	return e.errorAt(pos, "NameError", "%s", msg)
}

func (e *Evaluator) evalScopedConstant(node *ast.ScopedConstant, ctx *object.Context) (object.Object, error) {
	if node.Scope == nil {
		return e.constantIn(e.core.Object, node.Name, node.Pos())
	}
	scope, err := e.Eval(node.Scope, ctx)
	if err != nil {
		return nil, err
	}
	ns, ok := scope.(*object.DynamicClass)
	if !ok {
		return nil, e.errorAt(node.Pos(), "TypeError", "%s is not a class/module", scope.Inspect())
	}
	return e.constantIn(ns, node.Name, node.Pos())
}

// Instance and class variables

// ivarHolder returns the object storing instance variables for obj, or nil
// for values that cannot have any.
func ivarHolder(obj object.Object) *object.DynamicObject {
	switch o := obj.(type) {
	case *object.DynamicObject:
		return o
	case *object.DynamicClass:
		return &o.DynamicObject
	}
	return nil
}

func (e *Evaluator) evalInstanceVariable(node *ast.InstanceVariable, ctx *object.Context) object.Object {
	if holder := ivarHolder(ctx.Self); holder != nil {
		if v, ok := holder.GetIvar(node.Name); ok {
			return v
		}
	}
	return object.NIL
}

// classVarBase is the class whose class variables the current frame sees.
func (e *Evaluator) classVarBase(ctx *object.Context) *object.DynamicClass {
	m := ctx.Module
	if m == nil {
		return e.core.Object
	}
	if m.IsSingleton {
		if attached, ok := m.Attached.(*object.DynamicClass); ok {
			return attached
		}
	}
	return m
}

func findClassVar(base *object.DynamicClass, name string) (*object.DynamicClass, object.Object) {
	for c := base; c != nil; c = c.Superclass {
		if v, ok := c.ClassVars[name]; ok {
			return c, v
		}
	}
	return nil, nil
}

func (e *Evaluator) evalClassVariable(node *ast.ClassVariable, ctx *object.Context) (object.Object, error) {
	base := e.classVarBase(ctx)
	if owner, v := findClassVar(base, node.Name); owner != nil {
		return v, nil
	}
	if node.Lenient {
		return object.NIL, nil
	}
	return nil, e.errorAt(node.Pos(), "NameError", "uninitialized class variable %s in %s", node.Name, base.Name)
}

// Assignment

func (e *Evaluator) assign(target ast.Expression, val object.Object, ctx *object.Context) error {
	switch t := target.(type) {
	case *ast.NameExpression:
		if isConstant(t.Name) {
			ns := ctx.Module
			if ns == nil {
				ns = e.core.Object
			}
			ns.SetConstant(t.Name, val)
			return nil
		}
		ctx.Set(t.Name, val)
		return nil

	case *ast.InstanceVariable:
		holder := ivarHolder(ctx.Self)
		if holder == nil {
			return e.errorAt(t.Pos(), "RuntimeError", "can't modify instance variables of %s", e.ClassOf(ctx.Self).Name)
		}
		if ctx.Root().IsFrozen(ctx.Self) {
			return e.errorAt(t.Pos(), "FrozenError", "can't modify frozen %s: %s", e.ClassOf(ctx.Self).Name, ctx.Self.Inspect())
		}
		holder.SetIvar(t.Name, val)
		return nil

	case *ast.ClassVariable:
		base := e.classVarBase(ctx)
		if owner, _ := findClassVar(base, t.Name); owner != nil {
			owner.ClassVars[t.Name] = val
		} else {
			base.ClassVars[t.Name] = val
		}
		return nil

	case *ast.GlobalVariable:
		ctx.Root().Globals[t.Name] = val
		return nil

	case *ast.ScopedConstant:
		ns := e.core.Object
		if t.Scope != nil {
			scope, err := e.Eval(t.Scope, ctx)
			if err != nil {
				return err
			}
			cls, ok := scope.(*object.DynamicClass)
			if !ok {
				return e.errorAt(t.Pos(), "TypeError", "%s is not a class/module", scope.Inspect())
			}
			ns = cls
		}
		ns.SetConstant(t.Name, val)
		return nil

	case *ast.CallExpression:
		recv := ctx.Self
		privateOK := true
		if t.Receiver != nil {
			var err error
			if recv, err = e.Eval(t.Receiver, ctx); err != nil {
				return err
			}
			_, privateOK = t.Receiver.(*ast.SelfExpression)
		}
		args, err := e.evalList(t.Arguments, ctx)
		if err != nil {
			return err
		}
		_, err = e.send(ctx, recv, t.Name+"=", append(args, val), nil, privateOK, t.Pos())
		return err

	case *ast.IndexExpression:
		recv, err := e.Eval(t.Receiver, ctx)
		if err != nil {
			return err
		}
		args, err := e.evalList(t.Arguments, ctx)
		if err != nil {
			return err
		}
		_, err = e.send(ctx, recv, "[]=", append(args, val), nil, false, t.Pos())
		return err

	case *ast.SplatExpression:
		return e.assign(t.Value, val, ctx)
	}
	return e.errorAt(target.Pos(), "SyntaxError", "cannot assign to %s", target.String())
}

func (e *Evaluator) evalMultipleAssignment(node *ast.MultipleAssignment, ctx *object.Context) (object.Object, error) {
	val, err := e.Eval(node.Value, ctx)
	if err != nil {
		return nil, err
	}
	arr, ok := val.(*object.Array)
	if !ok {
		arr = object.NewArray(val)
	}
	values := arr.Elements

	splatAt := -1
	for i, t := range node.Targets {
		if _, ok := t.(*ast.SplatExpression); ok {
			splatAt = i
			break
		}
	}

	if splatAt < 0 {
		for i, t := range node.Targets {
			if err := e.assign(t, argAt(values, i), ctx); err != nil {
				return nil, err
			}
		}
		return arr, nil
	}

	post := len(node.Targets) - splatAt - 1
	for i := 0; i < splatAt; i++ {
		if err := e.assign(node.Targets[i], argAt(values, i), ctx); err != nil {
			return nil, err
		}
	}
	restEnd := max(len(values)-post, splatAt)
	var rest []object.Object
	if splatAt < restEnd && splatAt < len(values) {
		rest = append(rest, values[splatAt:min(restEnd, len(values))]...)
	}
	if err := e.assign(node.Targets[splatAt], object.NewArray(rest...), ctx); err != nil {
		return nil, err
	}
	for i := 0; i < post; i++ {
		if err := e.assign(node.Targets[splatAt+1+i], argAt(values, restEnd+i), ctx); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// defined? never raises: failures while probing mean "not defined".
func (e *Evaluator) evalDefined(node *ast.DefinedExpression, ctx *object.Context) object.Object {
	desc := func(s string) object.Object { return &object.String{Value: s} }

	switch n := node.Expression.(type) {
	case *ast.NameExpression:
		if ctx.Has(n.Name) {
			return desc("local-variable")
		}
		if isConstant(n.Name) {
			if _, err := e.lookupConstant(ctx, n.Name, n.Pos()); err == nil {
				return desc("constant")
			}
			return object.NIL
		}
		if e.respondTo(ctx.Self, n.Name, true) {
			return desc("method")
		}
	case *ast.InstanceVariable:
		if holder := ivarHolder(ctx.Self); holder != nil {
			if _, ok := holder.GetIvar(n.Name); ok {
				return desc("instance-variable")
			}
		}
	case *ast.ClassVariable:
		if owner, _ := findClassVar(e.classVarBase(ctx), n.Name); owner != nil {
			return desc("class variable")
		}
	case *ast.GlobalVariable:
		if _, ok := ctx.Root().Globals[n.Name]; ok {
			return desc("global-variable")
		}
	case *ast.ScopedConstant:
		if _, err := e.Eval(n, ctx); err == nil {
			return desc("constant")
		}
	case *ast.CallExpression:
		if n.Receiver == nil {
			if e.respondTo(ctx.Self, n.Name, true) {
				return desc("method")
			}
			return object.NIL
		}
		recv, err := e.Eval(n.Receiver, ctx)
		if err == nil && e.respondTo(recv, n.Name, false) {
			return desc("method")
		}
	case *ast.YieldExpression:
		if ctx.Block != nil {
			return desc("yield")
		}
	case *ast.SuperExpression:
		if ctx.Method != nil {
			if _, ok := e.findMethod(ctx.Self, ctx.Method.Name, ctx.Method.Owner); ok {
				return desc("super")
			}
		}
	case *ast.SelfExpression:
		return desc("self")
	case *ast.NilLiteral:
		return desc("nil")
	case *ast.BooleanLiteral:
		if n.Value {
			return desc("true")
		}
		return desc("false")
	case *ast.AssignExpression, *ast.MultipleAssignment:
		return desc("assignment")
	default:
		return desc("expression")
	}
	return object.NIL
}
