package machine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/config"
	"garnet/internal/evaluator"
	"garnet/internal/lexer"
	"garnet/internal/object"
	"garnet/internal/security"
)

func newMachine(t *testing.T, cfg config.Configuration, opts ...Option) (*Machine, *bytes.Buffer) {
	t.Helper()
	out := new(bytes.Buffer)
	m, err := New(cfg, append([]Option{WithOutput(out)}, opts...)...)
	require.NoError(t, err)
	return m, out
}

func run(t *testing.T, m *Machine, src string) string {
	t.Helper()
	val, err := m.Execute(context.Background(), src)
	require.NoError(t, err)
	return val.Inspect()
}

func raised(t *testing.T, err error) *evaluator.RaisedError {
	t.Helper()
	var re *evaluator.RaisedError
	require.ErrorAs(t, err, &re)
	return re
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExecuteReturnsLastValue(t *testing.T) {
	m, out := newMachine(t, config.Default())

	assert.Equal(t, "6", run(t, m, "x = 1\ny = 2\nputs x + y\nx + y * 2 + 1"))
	assert.Equal(t, "3\n", out.String())

	// locals survive between calls, so `x -1` stays a subtraction
	assert.Equal(t, "0", run(t, m, "x -1"))
	assert.Equal(t, "nil", run(t, m, ""))
	assert.NotEmpty(t, m.ID())
	assert.Equal(t, `"(eval)"`, run(t, m, "$PROGRAM_NAME"))
}

func TestExecuteErrors(t *testing.T) {
	m, _ := newMachine(t, config.Default())

	_, err := m.Execute(context.Background(), "x = 5\ndef broken(")
	var syntaxErr *lexer.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)

	_, err = m.Execute(context.Background(), "x = 1\nraise ArgumentError, 'bad'\nx = 2")
	re := raised(t, err)
	assert.Equal(t, "ArgumentError", re.ClassName())
	assert.Equal(t, "bad", re.Message)
	assert.Equal(t, "1", run(t, m, "x"), "no command after the raise ran")

	_, err = m.Execute(context.Background(), "return 5")
	assert.Equal(t, "LocalJumpError", raised(t, err).ClassName())

	_, err = m.Execute(context.Background(), "break")
	assert.Equal(t, "LocalJumpError", raised(t, err).ClassName())
}

func TestCancellationBetweenCommands(t *testing.T) {
	m, _ := newMachine(t, config.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Registry().Func(func(c object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		cancel()
		return object.NIL, nil
	}, "halt")

	// the command that cancels runs to completion, the next one never starts
	_, err := m.Execute(ctx, "x = 1\nx = [halt, 2].last\nx = 3")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "2", run(t, m, "x"))

	_, err = m.Execute(ctx, "x = 10")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "2", run(t, m, "x"))
}

func TestRequireOnce(t *testing.T) {
	dir := t.TempDir()
	lib := writeFile(t, dir, "lib/counter.rb", "$loads = ($loads || 0) + 1\ndef counter_loaded; $loads; end\n")
	require.NoError(t, os.Symlink(lib, filepath.Join(dir, "lib", "alias.rb")))

	cfg := config.Default()
	cfg.SearchPaths = []string{filepath.Join(dir, "lib")}
	m, _ := newMachine(t, cfg)

	assert.Equal(t, "true", run(t, m, `require "counter"`))
	assert.Equal(t, "false", run(t, m, `require "counter.rb"`))
	assert.Equal(t, "false", run(t, m, `require "alias"`), "a symlink resolves to the loaded file")
	assert.Equal(t, "1", run(t, m, "counter_loaded"))

	loaded, err := m.Require(lib)
	require.NoError(t, err)
	assert.False(t, loaded)

	ok, err := m.Load(lib)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", run(t, m, "counter_loaded"), "load always evaluates")
	assert.Len(t, m.Loader().Loaded(), 1)
}

func TestRequireErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "hello")
	writeFile(t, dir, "broken.rb", "def oops(\n")
	writeFile(t, dir, "raises.rb", "raise 'boom'\n")

	cfg := config.Default()
	cfg.RootPath = dir
	m, _ := newMachine(t, cfg)

	_, err := m.Execute(context.Background(), `require "notes.txt"`)
	assert.Equal(t, "UnsupportedExtensionError", raised(t, err).ClassName())

	_, err = m.Execute(context.Background(), `require "missing"`)
	re := raised(t, err)
	assert.Equal(t, "FileNotFoundError", re.ClassName())
	assert.Contains(t, re.Message, "cannot load such file -- missing")

	_, err = m.Execute(context.Background(), `require "broken"`)
	assert.Equal(t, "SyntaxError", raised(t, err).ClassName())

	assert.Equal(t, `"FileNotFoundError"`, run(t, m, `
begin
  require "missing"
rescue LoadError => e
  e.class.name
end`))

	// a file that raises is not recorded, so a later require tries again
	_, err = m.Execute(context.Background(), `require "raises"`)
	assert.Equal(t, "RuntimeError", raised(t, err).ClassName())
	_, err = m.Execute(context.Background(), `require "raises"`)
	assert.Equal(t, "RuntimeError", raised(t, err).ClassName())

	m.Loader().AddExtension("txt")
	assert.Equal(t, []string{".rb", ".gt", ".txt"}, m.Loader().Extensions())
}

func TestSearchPathDuringLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app/main.rb", "require 'helper'\nrequire_relative 'sub/leaf'\ndef main_loaded; [helper, leaf]; end\n")
	writeFile(t, dir, "app/helper.rb", "def helper; :helper; end\n")
	writeFile(t, dir, "app/sub/leaf.rb", "require_relative '../helper'\ndef leaf; :leaf; end\n")

	cfg := config.Default()
	cfg.RootPath = dir
	m, _ := newMachine(t, cfg)
	before := m.Loader().SearchPaths()

	assert.Equal(t, "true", run(t, m, `require "app/main"`))
	assert.Equal(t, "[:helper, :leaf]", run(t, m, "main_loaded"))
	assert.Equal(t, before, m.Loader().SearchPaths(), "the file's directory is popped afterwards")
	assert.Len(t, m.Loader().Loaded(), 3)

	_, err := m.Execute(context.Background(), `require "helper"`)
	assert.Equal(t, "FileNotFoundError", raised(t, err).ClassName(), "app/ is no longer searched")
}

func TestExecuteFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.rb", "def twice(x)\n  x * 2\nend\n")
	script := writeFile(t, dir, "main.rb", "require_relative 'util'\nputs twice(21)\n$PROGRAM_NAME\n")

	m, out := newMachine(t, config.Default())
	val, err := m.ExecuteFile(context.Background(), script)
	require.NoError(t, err)
	assert.Equal(t, "42\n", out.String())
	assert.Equal(t, script, val.(*object.String).Value)

	_, err = m.ExecuteFile(context.Background(), filepath.Join(dir, "absent.rb"))
	assert.ErrorContains(t, err, "read script")
}

func TestSecurityPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Security = config.Security{Mode: "allow-list", Allow: []string{"Time"}}
	m, _ := newMachine(t, cfg)

	assert.Equal(t, "true", run(t, m, "Time.now.is_a?(Time)"))

	_, err := m.Execute(context.Background(), `Sql::Database.open("sqlite3", ":memory:")`)
	re := raised(t, err)
	assert.Equal(t, "AccessDeniedError", re.ClassName())
	assert.Contains(t, re.Message, "Sql::Database")

	assert.Equal(t, `"denied"`, run(t, m, `
begin
  Sql::Database
rescue SecurityError
  "denied"
end`))

	// a bare rescue only covers StandardError
	_, err = m.Execute(context.Background(), "begin\n  Sql::Database\nrescue\n  :caught\nend")
	assert.Equal(t, "AccessDeniedError", raised(t, err).ClassName())

	m.Policy().SetMode(security.DenyAll)
	_, err = m.Execute(context.Background(), "Time")
	assert.Equal(t, "AccessDeniedError", raised(t, err).ClassName())

	m.Policy().SetMode(security.Unrestricted)
	assert.Equal(t, "Sql::Database", run(t, m, "Sql::Database"))
}

func TestErrorClasses(t *testing.T) {
	cfg := config.Default()
	cfg.ErrorClasses = []config.ErrorClass{
		{Name: "PaymentError", Parent: "RuntimeError"},
		{Name: "QuotaError"},
	}
	m, _ := newMachine(t, cfg)

	assert.Equal(t, `"declined"`, run(t, m, `
begin
  raise PaymentError, "declined"
rescue RuntimeError => e
  e.message
end`))
	assert.Equal(t, "StandardError", run(t, m, "QuotaError.superclass"))
	assert.Equal(t, "StandardError", run(t, m, "SQLError.superclass"))

	_, err := m.DefineErrorClass("Odd", "String")
	assert.ErrorContains(t, err, "not an exception class")
	_, err = m.DefineErrorClass("Odd", "Nope")
	assert.ErrorContains(t, err, "unknown parent")

	bad := config.Default()
	bad.ErrorClasses = []config.ErrorClass{{Name: "Bad", Parent: "Integer"}}
	_, err = New(bad)
	assert.ErrorContains(t, err, "not an exception class")

	bad = config.Default()
	bad.Security.Mode = "sometimes"
	_, err = New(bad)
	assert.ErrorContains(t, err, "invalid configuration")
}

type point struct{ X, Y int }

func TestRegisterType(t *testing.T) {
	m, _ := newMachine(t, config.Default())
	_, err := m.RegisterType("Geo::Point", "", reflect.TypeOf(point{}))
	require.NoError(t, err)
	m.Registry().Method("Geo::Point", func(c object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		p := c.Self().(*object.NativeObject).Value.(point)
		return &object.Integer{Value: int64(p.X + p.Y)}, nil
	}, "sum")

	_, err = m.RegisterType("Geo::Point3", "Geo::Point", nil)
	require.NoError(t, err)
	_, err = m.RegisterType("Geo::Bad", "Missing", nil)
	assert.Error(t, err)

	m.Globals["$origin"] = m.Wrap(point{X: 1, Y: 2})
	assert.Equal(t, "3", run(t, m, "$origin.sum"))
	assert.Equal(t, "true", run(t, m, "$origin.is_a?(Geo::Point)"))
	assert.Equal(t, "Geo::Point", run(t, m, "Geo::Point3.superclass"))

	m.Policy().SetMode(security.DenyAll)
	_, err = m.Execute(context.Background(), "Geo::Point")
	assert.Equal(t, "AccessDeniedError", raised(t, err).ClassName())
}

func TestDebugAST(t *testing.T) {
	cfg := config.Default()
	cfg.DebugAST = true
	ast := new(bytes.Buffer)
	m, _ := newMachine(t, cfg, WithASTOutput(ast))

	run(t, m, "1 + 2")
	assert.Contains(t, ast.String(), `"type": "Program"`)
}

func TestSetArgs(t *testing.T) {
	m, _ := newMachine(t, config.Default())
	m.SetArgs([]string{"a", "b"})
	assert.Equal(t, `["a", "b"]`, run(t, m, "ARGV"))

	m.SetArgs(nil)
	assert.Equal(t, "[]", run(t, m, "ARGV"))
}
