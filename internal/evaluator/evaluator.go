package evaluator

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"

	"garnet/internal/ast"
	"garnet/internal/object"
	"garnet/internal/registry"
	"garnet/internal/security"
)

// DefaultMaxDepth bounds nested method calls before SystemStackError.
const DefaultMaxDepth = 4096

// FileLoader resolves and evaluates other source files for require and load.
type FileLoader interface {
	Require(ctx *object.Context, path string, relative bool) (bool, error)
	Load(ctx *object.Context, path string) (bool, error)
}

type Evaluator struct {
	Registry *registry.Registry
	Policy   *security.Policy
	Loader   FileLoader
	Logger   *slog.Logger
	MaxDepth int

	out     io.Writer
	root    *object.Context
	core    core
	natives map[string]*object.DynamicClass
	goTypes map[reflect.Type]*object.DynamicClass
	sources map[string]string
	stack   []object.Frame
	file    string
}

// New bootstraps the core classes into a fresh root context.
func New(reg *registry.Registry, policy *security.Policy, out io.Writer, logger *slog.Logger) *Evaluator {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if policy == nil {
		policy = security.NewPolicy(security.Unrestricted)
	}
	if reg == nil {
		reg = registry.New()
	}
	e := &Evaluator{
		Registry: reg,
		Policy:   policy,
		Logger:   logger,
		MaxDepth: DefaultMaxDepth,
		out:      out,
		natives:  map[string]*object.DynamicClass{},
		goTypes:  map[reflect.Type]*object.DynamicClass{},
		sources:  map[string]string{},
	}
	e.bootstrap()
	return e
}

func (e *Evaluator) Root() *object.Context { return e.root }

func (e *Evaluator) Output() io.Writer { return e.out }

// SetSource records the text of file for backtraces.
func (e *Evaluator) SetSource(file, src string) {
	e.sources[file] = src
}

// EnterFile makes file the current source for backtraces until the
// returned function is called.
func (e *Evaluator) EnterFile(file string) (restore func()) {
	prev := e.file
	e.file = file
	return func() { e.file = prev }
}

func (e *Evaluator) Eval(node ast.Node, ctx *object.Context) (object.Object, error) {
	switch node := node.(type) {
	case nil:
		return object.NIL, nil

	case *ast.Program:
		var result object.Object = object.NIL
		for _, cmd := range node.Commands {
			val, err := e.Eval(cmd, ctx)
			if err != nil {
				return nil, err
			}
			result = val
		}
		return result, nil

	case *ast.Sequence:
		var result object.Object = object.NIL
		for _, cmd := range node.Commands {
			val, err := e.Eval(cmd, ctx)
			if err != nil {
				return nil, err
			}
			result = val
		}
		return result, nil

	// Literals
	case *ast.IntegerLiteral:
		return &object.Integer{Value: node.Value}, nil
	case *ast.FloatLiteral:
		return &object.Float{Value: node.Value}, nil
	case *ast.StringLiteral:
		return &object.String{Value: node.Value}, nil
	case *ast.InterpolatedString:
		return e.evalInterpolated(node, ctx)
	case *ast.SymbolLiteral:
		return object.InternSymbol(node.Value), nil
	case *ast.ArrayLiteral:
		elements, err := e.evalList(node.Elements, ctx)
		if err != nil {
			return nil, err
		}
		return object.NewArray(elements...), nil
	case *ast.HashLiteral:
		return e.evalHash(node, ctx)
	case *ast.RangeLiteral:
		return e.evalRange(node, ctx)
	case *ast.NilLiteral:
		return object.NIL, nil
	case *ast.BooleanLiteral:
		return object.NativeBool(node.Value), nil
	case *ast.SelfExpression:
		return ctx.Self, nil

	// Names and variables
	case *ast.NameExpression:
		return e.evalName(node, ctx)
	case *ast.InstanceVariable:
		return e.evalInstanceVariable(node, ctx), nil
	case *ast.ClassVariable:
		return e.evalClassVariable(node, ctx)
	case *ast.GlobalVariable:
		if v, ok := ctx.Root().Globals[node.Name]; ok {
			return v, nil
		}
		return object.NIL, nil
	case *ast.ScopedConstant:
		return e.evalScopedConstant(node, ctx)

	// Operators
	case *ast.UnaryExpression:
		return e.evalUnary(node, ctx)
	case *ast.BinaryExpression:
		return e.evalBinary(node, ctx)
	case *ast.LogicalExpression:
		return e.evalLogical(node, ctx)
	case *ast.DefinedExpression:
		return e.evalDefined(node, ctx), nil

	// Calls
	case *ast.CallExpression:
		return e.evalCall(node, ctx)
	case *ast.IndexExpression:
		recv, err := e.Eval(node.Receiver, ctx)
		if err != nil {
			return nil, err
		}
		args, err := e.evalList(node.Arguments, ctx)
		if err != nil {
			return nil, err
		}
		return e.send(ctx, recv, "[]", args, nil, false, node.Pos())
	case *ast.SplatExpression:
		val, err := e.Eval(node.Value, ctx)
		if err != nil {
			return nil, err
		}
		elements, err := e.splat(ctx, val, node.Pos())
		if err != nil {
			return nil, err
		}
		return object.NewArray(elements...), nil
	case *ast.YieldExpression:
		return e.evalYield(node, ctx)
	case *ast.SuperExpression:
		return e.evalSuper(node, ctx)

	// Assignment
	case *ast.AssignExpression:
		val, err := e.Eval(node.Value, ctx)
		if err != nil {
			return nil, err
		}
		if err := e.assign(node.Target, val, ctx); err != nil {
			return nil, err
		}
		return val, nil
	case *ast.MultipleAssignment:
		return e.evalMultipleAssignment(node, ctx)

	// Control flow
	case *ast.IfExpression:
		cond, err := e.Eval(node.Condition, ctx)
		if err != nil {
			return nil, err
		}
		if object.IsTruthy(cond) != node.Negate {
			return e.Eval(node.Consequence, ctx)
		}
		return e.Eval(node.Alternative, ctx)
	case *ast.WhileExpression:
		return e.evalWhile(node, ctx)
	case *ast.ForExpression:
		return e.evalFor(node, ctx)
	case *ast.CaseExpression:
		return e.evalCase(node, ctx)
	case *ast.ReturnExpression:
		return e.evalReturn(node, ctx)
	case *ast.BreakExpression:
		return e.evalBreak(node, ctx)
	case *ast.NextExpression:
		return e.evalNext(node, ctx)
	case *ast.RedoExpression:
		if ctx.InLoop() || ctx.Kind == object.BlockFrame || ctx.Kind == object.LambdaFrame {
			return nil, &redoSignal{}
		}
		return nil, e.errorAt(node.Pos(), "LocalJumpError", "redo used outside of a block or loop")
	case *ast.BeginExpression:
		return e.evalBegin(node, ctx)
	case *ast.RaiseExpression:
		return e.evalRaise(node, ctx)

	// Definitions
	case *ast.MethodDefinition:
		return e.evalDef(node, ctx)
	case *ast.ClassDefinition:
		return e.evalClass(node, ctx)
	case *ast.SingletonClassDefinition:
		return e.evalSingletonClass(node, ctx)
	case *ast.ModuleDefinition:
		return e.evalModule(node, ctx)
	case *ast.ProcLiteral:
		return object.NewProc(node.Block.Parameters, node.Block.Body, ctx, node.Lambda), nil
	case *ast.BlockLiteral:
		return object.NewProc(node.Parameters, node.Body, ctx, false), nil
	}

	return nil, fmt.Errorf("unknown node type %T", node)
}

// evalList evaluates expressions in order, expanding splats.
func (e *Evaluator) evalList(nodes []ast.Expression, ctx *object.Context) ([]object.Object, error) {
	out := make([]object.Object, 0, len(nodes))
	for _, n := range nodes {
		if s, ok := n.(*ast.SplatExpression); ok {
			val, err := e.Eval(s.Value, ctx)
			if err != nil {
				return nil, err
			}
			elements, err := e.splat(ctx, val, s.Pos())
			if err != nil {
				return nil, err
			}
			out = append(out, elements...)
			continue
		}
		val, err := e.Eval(n, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

// splat expands `*value`: arrays and ranges spread, hashes become pairs,
// nil vanishes and anything else stands for itself unless it has to_a.
func (e *Evaluator) splat(ctx *object.Context, val object.Object, pos int) ([]object.Object, error) {
	switch v := val.(type) {
	case *object.Array:
		return append([]object.Object(nil), v.Elements...), nil
	case *object.Nil:
		return nil, nil
	case *object.Range, *object.Hash:
		arr, err := e.send(ctx, val, "to_a", nil, nil, true, pos)
		if err != nil {
			return nil, err
		}
		if a, ok := arr.(*object.Array); ok {
			return a.Elements, nil
		}
	}
	if e.respondTo(val, "to_a", true) {
		arr, err := e.send(ctx, val, "to_a", nil, nil, true, pos)
		if err != nil {
			return nil, err
		}
		if a, ok := arr.(*object.Array); ok {
			return a.Elements, nil
		}
	}
	return []object.Object{val}, nil
}

func (e *Evaluator) evalInterpolated(node *ast.InterpolatedString, ctx *object.Context) (object.Object, error) {
	var out []byte
	for _, part := range node.Parts {
		if lit, ok := part.(*ast.StringLiteral); ok {
			out = append(out, lit.Value...)
			continue
		}
		val, err := e.Eval(part, ctx)
		if err != nil {
			return nil, err
		}
		s, err := e.toS(ctx, val, part.Pos())
		if err != nil {
			return nil, err
		}
		out = append(out, s...)
	}
	return &object.String{Value: string(out)}, nil
}

func (e *Evaluator) evalHash(node *ast.HashLiteral, ctx *object.Context) (object.Object, error) {
	h := object.NewHash()
	for _, pair := range node.Pairs {
		if pair.Key == nil {
			val, err := e.Eval(pair.Value, ctx)
			if err != nil {
				return nil, err
			}
			other, ok := val.(*object.Hash)
			if !ok {
				if _, isNil := val.(*object.Nil); isNil {
					continue
				}
				return nil, e.errorAt(pair.Value.Pos(), "TypeError", "no implicit conversion of %s into Hash", e.ClassOf(val).Name)
			}
			for _, p := range other.Entries() {
				h.Set(p.Key, p.Value)
			}
			continue
		}
		k, err := e.Eval(pair.Key, ctx)
		if err != nil {
			return nil, err
		}
		if s, ok := k.(*object.String); ok {
			// string keys are copied so later mutation cannot corrupt the table
			k = &object.String{Value: s.Value}
		}
		v, err := e.Eval(pair.Value, ctx)
		if err != nil {
			return nil, err
		}
		h.Set(k, v)
	}
	return h, nil
}

func (e *Evaluator) evalRange(node *ast.RangeLiteral, ctx *object.Context) (object.Object, error) {
	low, err := e.Eval(node.Low, ctx)
	if err != nil {
		return nil, err
	}
	var high object.Object = object.NIL
	if node.High != nil {
		if high, err = e.Eval(node.High, ctx); err != nil {
			return nil, err
		}
	}
	if _, ok := low.(*object.Integer); ok {
		if _, ok := high.(*object.Integer); !ok {
			if _, isNil := high.(*object.Nil); !isNil {
				if _, isFloat := high.(*object.Float); !isFloat {
					return nil, e.errorAt(node.Pos(), "ArgumentError", "bad value for range")
				}
			}
		}
	}
	return &object.Range{Low: low, High: high, Exclusive: node.Exclusive}, nil
}
