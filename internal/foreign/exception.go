package foreign

import (
	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerException(reg *registry.Registry) {
	reg.Method("Exception", fnExceptionInitialize(), "initialize")
	reg.Method("Exception", fnExceptionMessage(), "message")
	reg.Method("Exception", fnExceptionToS(), "to_s")
	reg.Method("Exception", fnExceptionFullMessage(), "full_message")
	reg.Method("Exception", fnExceptionInspect(), "inspect")
	reg.Method("Exception", fnExceptionEqual(), "==")
	reg.Method("Exception", fnExceptionBacktrace(), "backtrace")
	reg.Method("Exception", fnExceptionSetBacktrace(), "set_backtrace")
	reg.Method("Exception", fnExceptionWithMessage(), "exception")
	reg.StaticMethod("Exception", fnExceptionNew(), "exception")
	reg.Method("StopIteration", fnStopIterationResult(), "result")
}

func exceptionSelf(ctx object.EvaluatorContext) *object.DynamicObject {
	return ctx.Self().(*object.DynamicObject)
}

func fnExceptionInitialize() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 1 {
			exceptionSelf(ctx).SetIvar("@message", args[0])
		}
		return object.NIL, nil
	}
}

// message goes through to_s so subclasses overriding to_s are honoured.
func fnExceptionMessage() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		s, err := ctx.ToS(ctx.Self())
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

func fnExceptionToS() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		exc := exceptionSelf(ctx)
		msg, ok := exc.GetIvar("@message")
		if !ok || isNil(msg) {
			return str(exc.Class.Name), nil
		}
		s, err := ctx.ToS(msg)
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

func messageOf(ctx object.EvaluatorContext) (string, error) {
	out, err := ctx.CallMethod(ctx.Self(), "message", nil, nil)
	if err != nil {
		return "", err
	}
	return ctx.ToS(out)
}

func fnExceptionFullMessage() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		msg, err := messageOf(ctx)
		if err != nil {
			return nil, err
		}
		full := msg + " (" + exceptionSelf(ctx).Class.Name + ")"
		if bt, ok := exceptionSelf(ctx).GetIvar("@backtrace"); ok {
			if lines, isArray := bt.(*object.Array); isArray && len(lines.Elements) > 0 {
				first, err := ctx.ToS(lines.Elements[0])
				if err != nil {
					return nil, err
				}
				full = first + ": " + full
				for _, line := range lines.Elements[1:] {
					s, err := ctx.ToS(line)
					if err != nil {
						return nil, err
					}
					full += "\n\tfrom " + s
				}
			}
		}
		return str(full), nil
	}
}

func fnExceptionInspect() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		name := exceptionSelf(ctx).Class.Name
		msg, err := messageOf(ctx)
		if err != nil {
			return nil, err
		}
		if msg == "" || msg == name {
			return str(name), nil
		}
		return str("#<" + name + ": " + msg + ">"), nil
	}
}

func fnExceptionEqual() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, ok := args[0].(*object.DynamicObject)
		if !ok || other.Class != exceptionSelf(ctx).Class {
			return object.FALSE, nil
		}
		if other == exceptionSelf(ctx) {
			return object.TRUE, nil
		}
		mine, err := messageOf(ctx)
		if err != nil {
			return nil, err
		}
		theirs, err := ctx.CallMethod(other, "message", nil, nil)
		if err != nil {
			return nil, err
		}
		s, err := ctx.ToS(theirs)
		if err != nil {
			return nil, err
		}
		return object.NativeBool(mine == s), nil
	}
}

func fnExceptionBacktrace() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if bt, ok := exceptionSelf(ctx).GetIvar("@backtrace"); ok {
			return bt, nil
		}
		return object.NIL, nil
	}
}

func fnExceptionSetBacktrace() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		bt := args[0]
		if s, ok := bt.(*object.String); ok {
			bt = object.NewArray(s)
		}
		exceptionSelf(ctx).SetIvar("@backtrace", bt)
		return bt, nil
	}
}

// fnExceptionWithMessage is Exception#exception: the receiver itself, or a
// copy carrying a new message.
func fnExceptionWithMessage() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		exc := exceptionSelf(ctx)
		if len(args) == 0 {
			return exc, nil
		}
		copied := object.NewObject(exc.Class)
		for _, name := range exc.IvarNames() {
			if name == "@backtrace" {
				continue
			}
			v, _ := exc.GetIvar(name)
			copied.SetIvar(name, v)
		}
		copied.SetIvar("@message", args[0])
		return copied, nil
	}
}

func fnExceptionNew() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return ctx.CallMethod(ctx.Self(), "new", args, nil)
	}
}

func fnStopIterationResult() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if v, ok := exceptionSelf(ctx).GetIvar("@result"); ok {
			return v, nil
		}
		return object.NIL, nil
	}
}
