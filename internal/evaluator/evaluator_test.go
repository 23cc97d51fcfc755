package evaluator_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/evaluator"
	"garnet/internal/foreign"
	"garnet/internal/object"
	"garnet/internal/parser"
	"garnet/internal/registry"
	"garnet/internal/security"
)

type harness struct {
	e   *evaluator.Evaluator
	out *bytes.Buffer
}

func newHarness(policy *security.Policy) *harness {
	reg := registry.New()
	foreign.Register(reg)
	out := new(bytes.Buffer)
	e := evaluator.New(reg, policy, out, nil)
	for _, nt := range foreign.NativeTypes() {
		e.RegisterNative(nt.Name, nt.GoType, nil)
	}
	return &harness{e: e, out: out}
}

func (h *harness) run(t *testing.T, src string) (object.Object, error) {
	t.Helper()
	program, err := parser.Parse(src)
	require.NoError(t, err, src)
	val, err := h.e.Eval(program, h.e.Root())
	return val, h.e.Escaped(err)
}

func testEval(t *testing.T, src string) string {
	t.Helper()
	val, err := newHarness(nil).run(t, src)
	require.NoError(t, err, src)
	return val.Inspect()
}

func testRaise(t *testing.T, src string) *evaluator.RaisedError {
	t.Helper()
	_, err := newHarness(nil).run(t, src)
	var re *evaluator.RaisedError
	require.ErrorAs(t, err, &re, src)
	return re
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"-2 ** 2", "-4"},
		{"2 ** 3 ** 2", "512"},
		{"10 - 4 - 3", "3"},
		{"7 % 3", "1"},
		{"1 + 2.5", "3.5"},
		{"10 / 4.0", "2.5"},
		{"1 < 2 && 2 < 3", "true"},
		{"nil || :default", ":default"},
		{"x = 5; x += 2; x *= 3; x", "21"},
		{"a = nil; a ||= 4; a ||= 5; a", "4"},
		{`"a" + "b" * 2`, `"abb"`},
		{`"#{1 + 1} items"`, `"2 items"`},
		{"1 == 1.0", "true"},
		{"3 <=> 4", "-1"},
		{"5 & 3 | 8", "9"},
		{"1 << 4", "16"},
		{"!true", "false"},
		{"true ? :yes : :no", ":yes"},
		{"a, b = 1, 2; a, b = b, a; [a, b]", "[2, 1]"},
		{"2 ** 62", "4611686018427387904"},
		{"9223372036854775806 + 1", "9223372036854775807"},
		{"-9223372036854775807 - 1", "-9223372036854775808"},
		{"8 << -1", "4"},
		{"8 >> -2", "32"},
		{"1 >> 70", "0"},
		{"-8 >> 70", "-1"},
		{"-7 / 2", "-4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, testEval(t, tt.input), tt.input)
	}
}

func TestIntegerOverflow(t *testing.T) {
	for _, src := range []string{
		"2 ** 64",
		"9223372036854775807 + 1",
		"-9223372036854775807 - 2",
		"4611686018427387904 * 4",
		"x = -9223372036854775807 - 1; x / -1",
		"1 << 63",
		"3 << 62",
		"x = -9223372036854775807 - 1; -x",
	} {
		re := testRaise(t, src)
		assert.Equal(t, "RangeError", re.ClassName(), src)
		assert.Contains(t, re.Message, "integer overflow", src)
	}
}

func TestControlFlow(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"if 1 > 2\n  :a\nelsif 2 > 1\n  :b\nelse\n  :c\nend", ":b"},
		{"unless false\n  :ran\nend", ":ran"},
		{":x if false", "nil"},
		{"x = 1 if false; x", "nil"},
		{"if false\n  y = 2\nend\n[y, y.nil?]", "[nil, true]"},
		{"i = 0; i += 1 while i < 5; i", "5"},
		{"i = 0\nuntil i >= 3\n  i += 1\nend\ni", "3"},
		{"sum = 0; for x in [1, 2, 3] do sum += x end; sum", "6"},
		{"r = []; [1, 2, 3, 4].each { |x| next if x.even?; r << x }; r", "[1, 3]"},
		{"[1, 2, 3, 4].each { |x| break x * 10 if x == 3 }", "30"},
		{"i = 0; while true; i += 1; break if i == 4; end; i", "4"},
		{"case 5\nwhen Integer then :int\nelse :other\nend", ":int"},
		{"case \"b\"\nwhen \"a\", \"b\" then :ab\nend", ":ab"},
		{"x = case 1\nwhen 2 then :two\nend\nx", "nil"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, testEval(t, tt.input), tt.input)
	}
}

func TestClosures(t *testing.T) {
	assert.Equal(t, "3", testEval(t, `
def counter
  count = 0
  increment = -> { count += 1 }
  3.times { increment.call }
  count
end
counter`))

	assert.Equal(t, "[1, 2]", testEval(t, `
def make
  n = 0
  [-> { n += 1 }, -> { n }]
end
inc, get = make
inc.call
[get.call, inc.call]`))

	// a block parameter shadows the outer local
	assert.Equal(t, "[10, [1, 2]]", testEval(t, "x = 10; seen = []; [1, 2].each { |x| seen << x }; [x, seen]"))

	// names first assigned in a block stay in the block
	re := testRaise(t, "[1].each { |v| inner = v }; inner")
	assert.Equal(t, "NameError", re.ClassName())
}

func TestBlocksAndYield(t *testing.T) {
	assert.Equal(t, "[2, 4]", testEval(t, `
def twice
  [yield(1), yield(2)]
end
twice { |x| x * 2 }`))

	assert.Equal(t, "false", testEval(t, "def probe; block_given?; end; probe"))
	assert.Equal(t, "3", testEval(t, "def take(&b); b.call(1, 2); end; take { |a, b| a + b }"))

	re := testRaise(t, "def needs; yield; end; needs")
	assert.Equal(t, "LocalJumpError", re.ClassName())

	// a proc's return leaves the method that created it
	assert.Equal(t, ":early", testEval(t, `
def find_it
  [1, 2, 3].each { |x| return :early if x == 2 }
  :late
end
find_it`))

	// a lambda's return only leaves the lambda
	assert.Equal(t, ":after", testEval(t, "def m; l = -> { return 1 }; l.call; :after; end; m"))

	re = testRaise(t, "pr = proc { return 1 }; pr.call")
	assert.Equal(t, "LocalJumpError", re.ClassName())
}

func TestKeywordArguments(t *testing.T) {
	assert.Equal(t, `[1, 2, 3, {:extra=>4}]`, testEval(t, `
def kw(a, b: 2, c:, **rest)
  [a, b, c, rest]
end
kw(1, c: 3, extra: 4)`))

	assert.Equal(t, "[1, [2, 3], :blk]", testEval(t, `
def mix(a, *rest, &blk)
  [a, rest, blk.call]
end
mix(1, 2, 3) { :blk }`))

	re := testRaise(t, "def kw(c:); c; end; kw")
	assert.Equal(t, "ArgumentError", re.ClassName())
	assert.Contains(t, re.Message, "c")

	re = testRaise(t, "def two(a, b); end; two(1)")
	assert.Equal(t, "ArgumentError", re.ClassName())
	assert.Contains(t, re.Message, "given 1, expected 2")
}

func TestClassesAndMixins(t *testing.T) {
	assert.Equal(t, `"Rex says Woof"`, testEval(t, `
class Animal
  attr_reader :name
  def initialize(name)
    @name = name
  end
  def speak
    "#{name} says #{sound}"
  end
end
class Dog < Animal
  def sound
    "Woof"
  end
end
Dog.new("Rex").speak`))

	// later includes win, and super walks the ancestors in order
	assert.Equal(t, "[:B, :A, :Base]", testEval(t, `
module A
  def trail
    [:A] + super
  end
end
module B
  def trail
    [:B] + super
  end
end
class Base
  def trail
    [:Base]
  end
end
class Thing < Base
  include A
  include B
end
Thing.new.trail`))

	assert.Equal(t, "[Thing, B, A, Base]", testEval(t, `
module A; end
module B; end
class Base; end
class Thing < Base
  include A
  include B
end
Thing.ancestors.take(4)`))

	assert.Equal(t, ":hi", testEval(t, `
module Greeter
  def greet
    :hi
  end
end
obj = Object.new
obj.extend(Greeter)
obj.greet`))

	assert.Equal(t, ":singleton", testEval(t, "s = Object.new\ndef s.who\n  :singleton\nend\ns.who"))
	assert.Equal(t, "[:singleton, false]", testEval(t, "s = Object.new\nt = Object.new\ndef s.who; :singleton; end\n[s.who, t.respond_to?(:who)]"))

	assert.Equal(t, "2", testEval(t, `
class Counter
  @@count = 0
  def self.bump
    @@count += 1
  end
end
Counter.bump
Counter.bump`))

	assert.Equal(t, "[true, false]", testEval(t, `
class Pt
  include Comparable
  attr_reader :v
  def initialize(v)
    @v = v
  end
  def <=>(o)
    v <=> o.v
  end
end
[Pt.new(1) < Pt.new(2), Pt.new(3) == Pt.new(4)]`))
}

func TestMethodMissing(t *testing.T) {
	assert.Equal(t, `"ghost(1, 2)"`, testEval(t, `
class Proxy
  def method_missing(name, *args)
    "#{name}(#{args.join(', ')})"
  end
  def respond_to_missing?(name, include_private = false)
    true
  end
end
Proxy.new.ghost(1, 2)`))

	// method_missing that calls the same missing method raises rather than
	// recursing forever
	re := testRaise(t, `
class Loop
  def method_missing(name, *args)
    send(name)
  end
end
Loop.new.spin`)
	assert.Equal(t, "NoMethodError", re.ClassName())
	assert.Contains(t, re.Message, "spin")

	re = testRaise(t, "class Typo; def length; end; end; Typo.new.lenght")
	assert.Equal(t, "NoMethodError", re.ClassName())
	assert.Contains(t, re.Message, "Did you mean?")
}

func TestExceptions(t *testing.T) {
	assert.Equal(t, "[:rescued, :ensured]", testEval(t, `
log = []
begin
  raise ArgumentError, "bad"
rescue TypeError
  log << :wrong
rescue ArgumentError => e
  log << :rescued
ensure
  log << :ensured
end
log`))

	assert.Equal(t, `"custom: 42"`, testEval(t, `
class AppError < StandardError
  def initialize(code)
    super("custom: #{code}")
  end
end
begin
  raise AppError.new(42)
rescue => e
  e.message
end`))

	// ensure runs when a method returns through it
	assert.Equal(t, "[:body, :ensure]", testEval(t, `
$trail = []
def guarded
  $trail << :body
  return 1
ensure
  $trail << :ensure
end
guarded
$trail`))

	assert.Equal(t, "0", testEval(t, "Integer('x') rescue 0"))
	assert.Equal(t, `"RuntimeError"`, testEval(t, "begin; raise 'plain'; rescue => e; e.class.name; end"))
	assert.Equal(t, "true", testEval(t, "begin; [].fetch(3); rescue IndexError => e; $!.equal?(e); end"))

	re := testRaise(t, "begin\n  raise 'uncaught'\nrescue TypeError\nend")
	assert.Equal(t, "RuntimeError", re.ClassName())
	assert.Equal(t, "uncaught", re.Message)

	re = testRaise(t, "begin\n  raise 'boom'\nensure\n  x = 1\nend")
	assert.Equal(t, "boom", re.Message)

	re = testRaise(t, "def deep(n); deep(n + 1); end; deep(0)")
	assert.Equal(t, "SystemStackError", re.ClassName())
}

func TestFrozen(t *testing.T) {
	tests := []string{
		`s = "abc".freeze; s << "d"`,
		`a = [1].freeze; a << 2`,
		`h = {a: 1}.freeze; h[:b] = 2`,
		"class P; attr_accessor :x; end; p = P.new.freeze; p.x = 1",
		"class P; def set; @x = 1; end; end; P.new.freeze.set",
	}
	for _, src := range tests {
		re := testRaise(t, src)
		assert.Equal(t, "FrozenError", re.ClassName(), src)
	}
	assert.Equal(t, "[true, false]", testEval(t, `s = "x".freeze; [s.frozen?, s.dup.frozen?]`))
	assert.Equal(t, "true", testEval(t, ":sym.frozen? && 1.frozen? && nil.frozen?"))
}

func TestAccessDenied(t *testing.T) {
	h := newHarness(security.NewPolicy(security.AllowList, "Time"))

	val, err := h.run(t, "Time.at(0).to_i")
	require.NoError(t, err)
	assert.Equal(t, "0", val.Inspect())

	_, err = h.run(t, "Sql::Database")
	var re *evaluator.RaisedError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "AccessDeniedError", re.ClassName())

	val, err = h.run(t, "begin\n  Sql::Database\nrescue SecurityError => e\n  e.class\nend")
	require.NoError(t, err)
	assert.Equal(t, "AccessDeniedError", val.Inspect())

	h.e.Policy.Add("Sql::*")
	val, err = h.run(t, "Sql::Database.name")
	require.NoError(t, err)
	assert.Equal(t, `"Sql::Database"`, val.Inspect())
}

func TestOutputAndGlobals(t *testing.T) {
	h := newHarness(nil)
	_, err := h.run(t, "$greeting = 'hi'\nputs $greeting.upcase")
	require.NoError(t, err)
	assert.Equal(t, "HI\n", h.out.String())

	g := h.e.Root().Root().Globals["$greeting"]
	assert.Equal(t, `"hi"`, g.Inspect())
}
