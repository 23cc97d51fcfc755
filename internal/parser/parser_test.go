package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"garnet/internal/ast"
	"garnet/internal/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := Parse(input)
	require.NoError(t, err, "input %q", input)
	return program
}

func parseError(t *testing.T, input string) *lexer.SyntaxError {
	t.Helper()
	_, err := Parse(input)
	require.Error(t, err, "input %q", input)
	syntaxErr, ok := err.(*lexer.SyntaxError)
	require.True(t, ok, "expected *lexer.SyntaxError, got %T", err)
	return syntaxErr
}

type parseCase struct {
	input    string
	expected string
}

func runParseCases(t *testing.T, tests []parseCase) {
	t.Helper()
	for _, tt := range tests {
		program := parse(t, tt.input)
		assert.Equal(t, tt.expected, program.String(), "input %q", tt.input)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	runParseCases(t, []parseCase{
		{"1 + 3 * 2", "(1 + (3 * 2))"},
		{"1 * 3 + 2", "((1 * 3) + 2)"},
		{"1 - 2 - 3", "((1 - 2) - 3)"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"-2 ** 2", "(-(2 ** 2))"},
		{"-2.abs", "-2.abs()"},
		{"!a && b", "((!a) && b)"},
		{"a || b && c", "(a || (b && c))"},
		{"a == b || c < d", "((a == b) || (c < d))"},
		{"1 + 2 <=> 3", "((1 + 2) <=> 3)"},
		{"a | b & c", "(a | (b & c))"},
		{"1 << 2 + 3", "(1 << (2 + 3))"},
		{"not a and b", "((!a) && b)"},
		{"a or b and c", "((a || b) && c)"},
		{"1..n + 1", "(1..(n + 1))"},
		{"1...3", "(1...3)"},
		{"(1..)", "(1..)"},
		{"x = 1 + 2", "(x = (1 + 2))"},
		{"defined?(@a)", "defined?(@a)"},
	})
}

func TestPostfixChains(t *testing.T) {
	runParseCases(t, []parseCase{
		{"a.b[0]::C.d", "a.b()[0]::C.d()"},
		{"Foo::Bar.new(1)", "Foo::Bar.new(1)"},
		{"::Top", "::Top"},
		{"a.b(1, 2).c", "a.b(1, 2).c()"},
		{"x.class", "x.class()"},
		{"list[]", "list[]"},
		{"a\n  .b\n  .c", "a.b().c()"},
		{"1.+(2)", "1.+(2)"},
	})
}

func TestCommandCalls(t *testing.T) {
	runParseCases(t, []parseCase{
		{"puts 1, 2", "puts(1, 2)"},
		{"attr_accessor :a, :b", "attr_accessor(:a, :b)"},
		{"foo -1", "foo(-1)"},
		{"foo - 1", "(foo - 1)"},
		{"foo *args", "foo(*args)"},
		{"foo a: 1, 'b' => 2", "foo({:a => 1, \"b\" => 2})"},
		{"foo(&blk)", "foo(&blk)"},
		{"obj.send :x, 1", "obj.send(:x, 1)"},
		{"puts [1]", "puts([1])"},
		{"foo(1)[0]", "foo(1)[0]"},
	})
}

func TestLocalsChangeCommandParsing(t *testing.T) {
	runParseCases(t, []parseCase{
		{"x = 5\nx -1", "(x = 5)\n(x - 1)"},
		{"x -1", "x(-1)"},
		{"def m(x)\n  x [1]\nend", "def m(x) (x[1]) end"},
	})
}

func TestAssignments(t *testing.T) {
	runParseCases(t, []parseCase{
		{"a.b = 1", "(a.b() = 1)"},
		{"a[0] = 1", "(a[0] = 1)"},
		{"@a = @@b = $c = 1", "(@a = (@@b = ($c = 1)))"},
		{"X = 1", "(X = 1)"},
		{"Foo::X = 1", "(Foo::X = 1)"},
		{"x += 1", "(x = (x + 1))"},
		{"x ||= 5", "(x = (x || 5))"},
		{"@y &&= 2", "(@y = (@y && 2))"},
		{"a.b **= 2", "(a.b() = (a.b() ** 2))"},
		{"a, b = 1, 2", "(a, b = [1, 2])"},
		{"a, *b = list", "(a, *b = list)"},
		{"a, b = b, a", "(a, b = [b, a])"},
	})

	program := parse(t, "x ||= 5")
	assign := program.Commands[0].(*ast.AssignExpression)
	read := assign.Value.(*ast.LogicalExpression).Left.(*ast.NameExpression)
	assert.True(t, read.Lenient)
	assert.False(t, assign.Target.(*ast.NameExpression).Lenient)

	for _, input := range []string{"1 = 2", "foo() = 1", "a.b(1) = 2", "empty? = 1", "x + 1 = 2"} {
		err := parseError(t, input)
		assert.Contains(t, err.Message, "cannot assign to", "input %q", input)
	}
}

func TestTernaryAndModifiers(t *testing.T) {
	runParseCases(t, []parseCase{
		{"a ? b : c", "if a then b else c end"},
		{"a ? b : c if d", "if d then if a then b else c end end"},
		{"x = 1 if y", "if y then (x = 1) end"},
		{"x = 1 unless y", "unless y then (x = 1) end"},
		{"i += 1 while i < 10", "while (i < 10) do (i = (i + 1)) end"},
		{"x = y rescue z", "begin (x = y) rescue then z end"},
		{"a ? (b ? 1 : 2) : 3", "if a then if b then 1 else 2 end else 3 end"},
		{"return 1 if done", "if done then return 1 end"},
	})

	err := parseError(t, "a ? b ? 1 : 2 : 3")
	assert.Contains(t, err.Message, "expected ':'")
}

func TestBlocks(t *testing.T) {
	runParseCases(t, []parseCase{
		{"[1, 2].each { |x| puts x }", "[1, 2].each() { |x| (puts(x)) }"},
		{"foo 1 do |x| x end", "foo(1) { |x| (x) }"},
		{"foo bar { 1 }", "foo(bar() { (1) })"},
		{"foo bar do 1 end", "foo(bar) { (1) }"},
		{"foo(bar) do 1 end", "foo(bar) { (1) }"},
		{"map { |a, b = 1, *c, &d| a }", "map() { |a, b = 1, *c, &d| (a) }"},
		{"x.tap { || 1 }", "x.tap() { (1) }"},
		{"each do |x|\n  next if x\nend", "each() { |x| (if x then next end) }"},
	})

	err := parseError(t, "foo(&b) { 1 }")
	assert.Equal(t, "both block argument and literal block given", err.Message)
}

func TestBlockParametersAreLocal(t *testing.T) {
	program := parse(t, "each { |x| x -1 }")
	block := program.Commands[0].(*ast.CallExpression).Block
	seq := block.Body.(*ast.Sequence)
	assert.Equal(t, "(x - 1)", seq.Commands[0].String())

	// the enclosing scope does not see block parameters
	program = parse(t, "each { |x| x }\nx -1")
	assert.Equal(t, "x(-1)", program.Commands[1].String())

	// but blocks see the enclosing locals
	program = parse(t, "y = 1\neach { y -1 }")
	assert.Equal(t, "each() { ((y - 1)) }", program.Commands[1].String())
}

func TestLambdas(t *testing.T) {
	runParseCases(t, []parseCase{
		{"->(x) { x * 2 }", "lambda { |x| ((x * 2)) }"},
		{"-> x, y do x end", "lambda { |x, y| (x) }"},
		{"-> { 1 }", "lambda { (1) }"},
		{"lambda { |x| x }", "lambda { |x| (x) }"},
		{"proc { 1 }", "proc { (1) }"},
	})

	err := parseError(t, "lambda")
	assert.Equal(t, "tried to create lambda without a block", err.Message)
}

func TestStringsAndInterpolation(t *testing.T) {
	runParseCases(t, []parseCase{
		{`"a#{b}c"`, `"a#{b}c"`},
		{`"#{1 + 2}"`, `"#{(1 + 2)}"`},
		{`"x\n#{y}"`, `"x\n#{y}"`},
		{`"#{}"`, `""`},
		{`'#{not}'`, `"#{not}"`},
		{"x = <<~EOS\n  hi\n    there\nEOS", `(x = "hi\n  there\n")`},
		{"foo(<<-A, 1)\n  body\n  A", `foo("  body\n", 1)`},
		{"s = 1\n\"#{s -1}\"", "(s = 1)\n\"#{(s - 1)}\""},
	})

	err := parseError(t, `"#{1 +}"`)
	assert.Contains(t, err.Message, "in string interpolation")
}

func TestHashAndArrayLiterals(t *testing.T) {
	runParseCases(t, []parseCase{
		{"{}", "{}"},
		{"{a: 1, 'b' => 2, \"c\": 3}", `{:a => 1, "b" => 2, :c => 3}`},
		{"{**opts, k: 1}", "{**opts, :k => 1}"},
		{"[1,\n 2,\n]", "[1, 2]"},
		{"[*a, 1]", "[*a, 1]"},
		{"()", "nil"},
		{"(1; 2)", "(1; 2)"},
	})
}

func TestControlFlow(t *testing.T) {
	runParseCases(t, []parseCase{
		{"if a then 1 elsif b then 2 else 3 end", "if a then (1) else if b then (2) else (3) end end"},
		{"if a\n  1\nend", "if a then (1) end"},
		{"unless a; 1; end", "unless a then (1) end"},
		{"while x do x -= 1 end", "while x do ((x = (x - 1))) end"},
		{"until done\n  step\nend", "until done do (step) end"},
		{"for a, b in pairs do a end", "for a, b in pairs do (a) end"},
		{"case x\nwhen 1, 2 then :low\nwhen *big then :big\nelse :other\nend",
			"case x when 1, 2 then (:low) when *big then (:big) else (:other) end"},
		{"case\nwhen a then 1\nend", "case when a then (1) end"},
		{"loop do\n  break 1, 2\nend", "loop() { (break [1, 2]) }"},
		{"while true do redo end", "while true do (redo) end"},
	})

	err := parseError(t, "case x\nelse 1\nend")
	assert.Contains(t, err.Message, "expected 'when'")
	err = parseError(t, "unless a\n1\nelsif b\n2\nend")
	assert.Equal(t, "elsif is not allowed in unless", err.Message)
}

func TestDefinitions(t *testing.T) {
	runParseCases(t, []parseCase{
		{"def foo; end", "def foo() () end"},
		{"def foo(a, b = 1, *c, d:, e: 2, **f, &g)\n  a\nend", "def foo(a, b = 1, *c, d:, e: 2, **f, &g) (a) end"},
		{"def self.create(x) new(x) end", "def self.create(x) (new(x)) end"},
		{"def Util.helper; end", "def Util.helper() () end"},
		{"s = 1\ndef s.who; :me; end", "(s = 1)\ndef s.who() (:me) end"},
		{"def registry.add(x) x end", "def registry.add(x) (x) end"},
		{"def name=(v); @name = v; end", "def name=(v) ((@name = v)) end"},
		{"def ==(o) true end", "def ==(o) (true) end"},
		{"def [](i) end", "def [](i) () end"},
		{"def []=(i, v) end", "def []=(i, v) () end"},
		{"def <=>(o) 0 end", "def <=>(o) (0) end"},
		{"def add a, b\n  a + b\nend", "def add(a, b) ((a + b)) end"},
		{"class Foo < Bar\n  include M\nend", "class Foo < Bar (include(M)) end"},
		{"class A::B; end", "class A::B () end"},
		{"class << self\n  def x; end\nend", "class << self (def x() () end) end"},
		{"module M\n  X = 1\nend", "module M ((X = 1)) end"},
	})

	err := parseError(t, "class foo\nend")
	assert.Equal(t, "class/module name must be CONSTANT", err.Message)
	err = parseError(t, "module Outer::inner; end")
	assert.Equal(t, "class/module name must be CONSTANT", err.Message)
	err = parseError(t, "def f(a, a) end")
	assert.Equal(t, "duplicated argument name a", err.Message)
}

func TestMethodLocalsDoNotLeak(t *testing.T) {
	program := parse(t, "x = 1\ndef m\n  x -1\nend")
	assert.Equal(t, "def m() (x(-1)) end", program.Commands[1].String())
}

func TestRescue(t *testing.T) {
	runParseCases(t, []parseCase{
		{"begin; raise TypeError; rescue TypeError => e; 1; end",
			"begin (raise(TypeError)) rescue TypeError => e then (1) end"},
		{"begin\n  x\nrescue A, B\n  1\nrescue => e\n  2\nelse\n  3\nensure\n  4\nend",
			"begin (x) rescue A, B then (1) rescue => e then (2) else (3) ensure (4) end"},
		{"begin\n  x\nrescue err\n  err\nend", "begin (x) rescue => err then (err) end"},
		{"begin\n  1\nend", "begin (1) end"},
		{"def f\n  x\nrescue\n  y\nensure\n  z\nend", "def f() begin (x) rescue then (y) ensure (z) end end"},
		{"each do\n  x\nensure\n  y\nend", "each() { begin (x) ensure (y) end }"},
		{"raise", "raise"},
		{"raise ArgumentError, 'bad'", `raise(ArgumentError, "bad")`},
	})

	err := parseError(t, "begin\n  1\nelse\n  2\nend")
	assert.Equal(t, "else without rescue is useless", err.Message)
}

func TestYieldAndSuper(t *testing.T) {
	runParseCases(t, []parseCase{
		{"yield", "yield()"},
		{"yield 1, 2", "yield(1, 2)"},
		{"yield(x) + 1", "(yield(x) + 1)"},
		{"super", "super"},
		{"super()", "super()"},
		{"super a, b", "super(a, b)"},
		{"super { 1 }", "super"},
	})

	program := parse(t, "super { 1 }")
	sup := program.Commands[0].(*ast.SuperExpression)
	assert.True(t, sup.Implicit)
	require.NotNil(t, sup.Block)
}

func TestJumps(t *testing.T) {
	runParseCases(t, []parseCase{
		{"return", "return"},
		{"return 1", "return 1"},
		{"return a, b", "return [a, b]"},
		{"next x unless y", "unless y then next x end"},
		{"break", "break"},
	})
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input      string
		message    string
		incomplete bool
	}{
		{"1 + )", `unexpected ")", expected expression`, false},
		{"1 +", "unexpected end of input, expected expression", true},
		{"def foo\n", "unexpected end of input, expected 'end'", true},
		{"foo(1,", "unexpected end of input, expected expression", true},
		{"if x\n  1\n", "unexpected end of input, expected 'end'", true},
		{"[1, 2", "unexpected end of input, expected ','", true},
		{`"abc`, "unterminated string", true},
		{"x = 1 2", `unexpected "2", expected end of command`, false},
		{"1 + @1", "invalid instance variable name", false},
	}
	for _, tt := range tests {
		_, err := Parse(tt.input)
		require.Error(t, err, "input %q", tt.input)
		var syntaxErr *lexer.SyntaxError
		require.ErrorAs(t, err, &syntaxErr, "input %q", tt.input)
		assert.Contains(t, syntaxErr.Message, tt.message, "input %q", tt.input)
		assert.Equal(t, tt.incomplete, IsIncomplete(err), "input %q", tt.input)
	}
}

func TestSyntaxErrorLocation(t *testing.T) {
	err := parseError(t, "x = 1\ny = (2 +\n  ]")
	assert.Equal(t, 3, err.Line)
	assert.Equal(t, 3, err.Column)
	assert.Contains(t, err.Excerpt, "^ unexpected here")
}

func TestParseCommandIsIncremental(t *testing.T) {
	p := New(lexer.New("a = 1\n\nb = a + 1; c"))
	var got []string
	for {
		cmd, err := p.ParseCommand()
		require.NoError(t, err)
		if cmd == nil {
			break
		}
		got = append(got, cmd.String())
	}
	assert.Equal(t, []string{"(a = 1)", "(b = (a + 1))", "c"}, got)
}

func TestSingletonDefOnLocal(t *testing.T) {
	program := parse(t, "obj = 1\ndef obj.who; end\ndef other.who; end")
	local := program.Commands[1].(*ast.MethodDefinition).Singleton.(*ast.NameExpression)
	assert.True(t, local.Local)
	method := program.Commands[2].(*ast.MethodDefinition).Singleton.(*ast.NameExpression)
	assert.False(t, method.Local)
}

func TestUnassignedLocalIsStillLocal(t *testing.T) {
	program := parse(t, "x = 1 if false\nx")
	read, ok := program.Commands[1].(*ast.NameExpression)
	require.True(t, ok)
	assert.True(t, read.Local)
}

func TestDeclareLocals(t *testing.T) {
	p := New(lexer.New("x -1"))
	p.DeclareLocals("x")
	program, err := p.ParseProgram()
	require.NoError(t, err)
	assert.Equal(t, "(x - 1)", program.String())
}

func TestMixinClosureRescueParse(t *testing.T) {
	inputs := []string{
		"module M; def foo; 'm'; end; end; class C; include M; end; C.new.foo",
		"total = 0; [1,2,3].each { |x| total = total + x }; total",
		"begin; raise TypeError; rescue TypeError => e; 1; end",
		"begin\n  raise 'x'\nensure\n  $ran = true\nend",
	}
	for _, input := range inputs {
		parse(t, input)
	}
}

// genExpr builds random but valid expressions over a small grammar.
func genExpr(depth int) *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		if depth <= 0 {
			return rapid.SampledFrom([]string{"1", "2.5", "x", "@a", ":s", `"str"`, "nil", "true", "[1, 2]"}).Draw(t, "leaf")
		}
		sub := genExpr(depth - 1)
		switch rapid.IntRange(0, 5).Draw(t, "shape") {
		case 0:
			op := rapid.SampledFrom([]string{"+", "-", "*", "/", "%", "**", "==", "<", "<=>", "&&", "||", "|", "&", "<<"}).Draw(t, "op")
			return sub.Draw(t, "l") + " " + op + " " + sub.Draw(t, "r")
		case 1:
			return "(" + sub.Draw(t, "inner") + ")"
		case 2:
			return "foo(" + sub.Draw(t, "arg") + ")"
		case 3:
			return "(" + sub.Draw(t, "c") + " ? " + sub.Draw(t, "a") + " : " + sub.Draw(t, "b") + ")"
		case 4:
			return "!" + sub.Draw(t, "neg")
		default:
			return fmt.Sprintf("[%s].map { |v| v + %s }", sub.Draw(t, "e"), sub.Draw(t, "body"))
		}
	})
}

func TestParsingIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		src := "x = 1\n" + genExpr(3).Draw(t, "src")
		first, err := Parse(src)
		if err != nil {
			t.Fatalf("parse %q: %v", src, err)
		}
		second, err := Parse(src)
		if err != nil {
			t.Fatalf("reparse %q: %v", src, err)
		}
		if first.String() != second.String() {
			t.Fatalf("different trees for %q", src)
		}
		a, _ := ast.RenderASTAsJSON(first)
		b, _ := ast.RenderASTAsJSON(second)
		if a != b || !strings.Contains(a, `"type": "AssignExpression"`) {
			t.Fatalf("different JSON for %q", src)
		}
	})
}
