// Package machine embeds the interpreter: one Machine owns a root context,
// the core library, a security policy and a file loader.
package machine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"garnet/internal/ast"
	"garnet/internal/config"
	"garnet/internal/evaluator"
	"garnet/internal/foreign"
	"garnet/internal/lexer"
	"garnet/internal/object"
	"garnet/internal/parser"
	"garnet/internal/registry"
	"garnet/internal/security"
)

// EvalFile names source passed to Execute in backtraces.
const EvalFile = "(eval)"

type Option func(*Machine)

// WithOutput sends puts, print and p to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) { m.out = w }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithPolicy shares a policy between machines or with the host.
func WithPolicy(p *security.Policy) Option {
	return func(m *Machine) { m.policy = p }
}

// WithASTOutput sets where the JSON syntax tree goes when DebugAST is on.
func WithASTOutput(w io.Writer) Option {
	return func(m *Machine) { m.astOut = w }
}

type Machine struct {
	// Globals are the $-variables shared by every frame.
	Globals map[string]object.Object

	id     uuid.UUID
	cfg    config.Configuration
	out    io.Writer
	astOut io.Writer
	logger *slog.Logger
	policy *security.Policy
	reg    *registry.Registry
	eval   *evaluator.Evaluator
	loader *Loader
}

// New builds a machine with the core library installed and the error
// classes from cfg declared.
func New(cfg config.Configuration, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	mode, _ := cfg.SecurityMode()
	id, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "machine id")
	}

	m := &Machine{
		id:     id,
		cfg:    cfg,
		out:    os.Stdout,
		astOut: os.Stderr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.policy == nil {
		m.policy = security.NewPolicy(mode, cfg.Security.Allow...)
	}
	m.logger = m.logger.With("machine", id.String())

	m.reg = registry.New()
	foreign.Register(m.reg)
	m.eval = evaluator.New(m.reg, m.policy, m.out, m.logger)

	for _, nt := range foreign.NativeTypes() {
		m.eval.RegisterNative(nt.Name, nt.GoType, nil)
	}
	for _, ns := range foreign.Namespaces() {
		var cls *object.DynamicClass
		if ns.Module {
			cls = m.eval.DefineModule(ns.Name)
		} else {
			cls = m.eval.Core(ns.Name)
		}
		for name, value := range ns.Constants {
			cls.SetConstant(name, value)
		}
	}
	for _, ec := range foreign.ErrorClasses() {
		if _, err := m.DefineErrorClass(ec.Name, ec.Parent); err != nil {
			return nil, err
		}
	}
	for _, ec := range cfg.ErrorClasses {
		if _, err := m.DefineErrorClass(ec.Name, ec.Parent); err != nil {
			return nil, err
		}
	}

	m.loader = NewLoader(m.eval, cfg.Paths(), cfg.Extensions, m.logger)
	m.eval.Loader = m.loader
	m.Globals = m.eval.Root().Root().Globals
	m.Globals["$PROGRAM_NAME"] = &object.String{Value: EvalFile}

	m.logger.Debug("machine ready", "security", mode.String(), "paths", m.loader.SearchPaths())
	return m, nil
}

func (m *Machine) ID() string { return m.id.String() }

func (m *Machine) Registry() *registry.Registry { return m.reg }

func (m *Machine) Policy() *security.Policy { return m.policy }

func (m *Machine) Loader() *Loader { return m.loader }

func (m *Machine) Root() *object.Context { return m.eval.Root() }

func (m *Machine) Config() config.Configuration { return m.cfg }

// DefineErrorClass declares an exception class under parent, StandardError
// when parent is empty.
func (m *Machine) DefineErrorClass(name, parent string) (*object.DynamicClass, error) {
	if parent == "" {
		parent = "StandardError"
	}
	super := m.eval.Core(parent)
	if super == nil {
		return nil, errors.Errorf("error class %s: unknown parent %s", name, parent)
	}
	if !super.IsSubclassOf(m.eval.Core("Exception")) {
		return nil, errors.Errorf("error class %s: %s is not an exception class", name, parent)
	}
	if existing := m.eval.Core(name); existing != nil && !existing.IsSubclassOf(super) {
		return nil, errors.Errorf("error class %s already defined", name)
	}
	return m.eval.DefineClass(name, super), nil
}

// RegisterType declares a host type scripts resolve by name, subject to the
// security policy. Values of goType, when given, wrap as instances of it.
func (m *Machine) RegisterType(name, parent string, goType reflect.Type) (*object.DynamicClass, error) {
	var super *object.DynamicClass
	if parent != "" {
		if super = m.eval.Core(parent); super == nil {
			return nil, errors.Errorf("type %s: unknown parent %s", name, parent)
		}
	}
	return m.eval.RegisterNative(name, goType, super), nil
}

// SetArgs exposes the command-line arguments to scripts as ARGV.
func (m *Machine) SetArgs(args []string) {
	elems := make([]object.Object, len(args))
	for i, a := range args {
		elems[i] = &object.String{Value: a}
	}
	m.eval.Core("Object").SetConstant("ARGV", object.NewArray(elems...))
}

// Wrap converts a host value for use as a script value.
func (m *Machine) Wrap(v any) object.Object { return m.eval.Wrap(v) }

// Execute parses src and evaluates its commands in the root context,
// returning the value of the last one. ctx is checked between top-level
// commands only; a running command is never interrupted.
func (m *Machine) Execute(ctx context.Context, src string) (object.Object, error) {
	return m.run(ctx, EvalFile, src)
}

// ExecuteFile runs path as the main script.
func (m *Machine) ExecuteFile(ctx context.Context, path string) (object.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "read script")
	}
	m.Globals["$PROGRAM_NAME"] = &object.String{Value: path}

	m.loader.paths = slices.Insert(m.loader.paths, 0, filepath.Dir(abs))
	defer func() { m.loader.paths = m.loader.paths[1:] }()
	return m.run(ctx, abs, string(data))
}

// Require loads path once per machine, as the script's require does.
func (m *Machine) Require(path string) (bool, error) {
	loaded, err := m.loader.Require(m.eval.Root(), path, false)
	return loaded, m.eval.Escaped(err)
}

// Load evaluates path unconditionally.
func (m *Machine) Load(path string) (bool, error) {
	return m.loader.Load(m.eval.Root(), path)
}

func (m *Machine) run(ctx context.Context, file, src string) (object.Object, error) {
	root := m.eval.Root()
	p := parser.New(lexer.New(src))
	p.DeclareLocals(root.LocalNames()...)
	program, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}
	if m.cfg.DebugAST {
		m.dumpAST(program)
	}

	m.eval.SetSource(file, src)
	defer m.eval.EnterFile(file)()
	prev := root.File
	root.File = file
	defer func() { root.File = prev }()

	var result object.Object = object.NIL
	for i, cmd := range program.Commands {
		if err := ctx.Err(); err != nil {
			m.logger.Info("execution cancelled", "file", file, "command", i)
			return nil, errors.Wrapf(err, "cancelled before command %d", i+1)
		}
		val, err := m.eval.Eval(cmd, root)
		if err != nil {
			err = m.eval.Escaped(err)
			m.logger.Debug("execution failed", "file", file, "command", i, "error", err)
			return nil, err
		}
		result = val
	}
	return result, nil
}

func (m *Machine) dumpAST(program *ast.Program) {
	out, err := ast.RenderASTAsJSON(program)
	if err != nil {
		m.logger.Warn("rendering syntax tree", "error", err)
		return
	}
	fmt.Fprint(m.astOut, out)
}
