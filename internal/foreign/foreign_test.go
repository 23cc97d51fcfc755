package foreign_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/config"
	"garnet/internal/evaluator"
	"garnet/internal/foreign"
	"garnet/internal/machine"
	"garnet/internal/object"
)

type scriptCase struct {
	input    string
	expected string
}

func newMachine(t *testing.T) (*machine.Machine, *bytes.Buffer) {
	t.Helper()
	out := new(bytes.Buffer)
	m, err := machine.New(config.Default(), machine.WithOutput(out))
	require.NoError(t, err)
	return m, out
}

func eval(t *testing.T, m *machine.Machine, src string) object.Object {
	t.Helper()
	val, err := m.Execute(context.Background(), src)
	require.NoError(t, err, src)
	return val
}

func runCases(t *testing.T, tests []scriptCase) {
	t.Helper()
	for _, tt := range tests {
		m, _ := newMachine(t)
		assert.Equal(t, tt.expected, eval(t, m, tt.input).Inspect(), tt.input)
	}
}

func raises(t *testing.T, src, class string) {
	t.Helper()
	m, _ := newMachine(t)
	_, err := m.Execute(context.Background(), src)
	var re *evaluator.RaisedError
	if assert.ErrorAs(t, err, &re, src) {
		assert.Equal(t, class, re.ClassName(), src)
	}
}

func TestKernel(t *testing.T) {
	m, out := newMachine(t)
	eval(t, m, `puts 1, [2, [3]], nil
print "a", "b"
p :sym, "str"
printf("%05.1f|%-3s|%x\n", 3.14159, "ab", 255)`)
	assert.Equal(t, "1\n2\n3\n\nab:sym\n\"str\"\n003.1|ab |ff\n", out.String())

	runCases(t, []scriptCase{
		{`format("%d-%s", 7, :x)`, `"7-x"`},
		{`Integer("42")`, "42"},
		{`Float("1.5")`, "1.5"},
		{`Array(nil)`, "[]"},
		{`Array([1])`, "[1]"},
		{`String(12)`, `"12"`},
		{`block_given?`, "false"},
		{`x = 3; eval("x * 2")`, "6"},
		{`loop do break 9 end`, "9"},
		{`rand(1..1)`, "1"},
	})
	raises(t, `Integer("4x")`, "ArgumentError")
}

func TestNumeric(t *testing.T) {
	runCases(t, []scriptCase{
		{"7 / 2", "3"},
		{"-7 / 2", "-4"},
		{"-7 % 3", "2"},
		{"7.divmod(-2)", "[-4, -1]"},
		{"2 ** 10", "1024"},
		{"10.fdiv(4)", "2.5"},
		{"-5.abs", "5"},
		{"3.7.floor", "3"},
		{"3.2.ceil", "4"},
		{"2.5.round", "3"},
		{"1234.round(-2)", "1200"},
		{"12.gcd(18)", "6"},
		{"4.lcm(6)", "12"},
		{"123.digits", "[3, 2, 1]"},
		{"255.to_s(2)", `"11111111"`},
		{"65.chr", `"A"`},
		{"3.times.to_a", "[0, 1, 2]"},
		{"1.upto(3).to_a", "[1, 2, 3]"},
		{"0.zero?", "true"},
		{"4.even?", "true"},
		{"1.0 / 0", "Infinity"},
		{"Math::PI.floor", "3"},
		{"Integer::MAX", "9223372036854775807"},
		{"5.clamp(1, 3)", "3"},
		{"5.between?(1, 10)", "true"},
	})
	raises(t, "1 / 0", "ZeroDivisionError")
}

func TestString(t *testing.T) {
	runCases(t, []scriptCase{
		{`"héllo".length`, "5"},
		{`"héllo".bytesize`, "6"},
		{`"hello world".split`, `["hello", "world"]`},
		{`"a,b,,c,,".split(",")`, `["a", "b", "", "c"]`},
		{`"a,b,c".split(",", 2)`, `["a", "b,c"]`},
		{`"abc".chars`, `["a", "b", "c"]`},
		{`"hello"[1]`, `"e"`},
		{`"hello"[1, 3]`, `"ell"`},
		{`"hello"[1..-1]`, `"ello"`},
		{`"hello"[1..]`, `"ello"`},
		{`"hello"[-3..-2]`, `"ll"`},
		{`"hello".index("l")`, "2"},
		{`"hello".rindex("l")`, "3"},
		{`"hello".sub("l", "L")`, `"heLlo"`},
		{`"hello".gsub("l", "L")`, `"heLLo"`},
		{`"hello".gsub("l") { |m| m.upcase + "!" }`, `"heL!L!o"`},
		{`"cat hat".gsub("at", {"a" => "1", "at" => "og"})`, `"cog hog"`},
		{`"hello".tr("el", "ip")`, `"hippo"`},
		{`"hello".tr("a-y", "b-z")`, `"ifmmp"`},
		{`"hello".delete("l")`, `"heo"`},
		{`"aaabbb".squeeze`, `"ab"`},
		{`"hello world".count("lo")`, "5"},
		{`"hi".center(6, "*")`, `"**hi**"`},
		{`"hi".ljust(4, ".")`, `"hi.."`},
		{`"hi".rjust(4)`, `"  hi"`},
		{`"a-b-c".partition("-")`, `["a", "-", "b-c"]`},
		{`"a-b-c".rpartition("-")`, `["a-b", "-", "c"]`},
		{`"az".succ`, `"ba"`},
		{`"zz".succ`, `"aaa"`},
		{`"a9".succ`, `"b0"`},
		{`"hello world".capitalize`, `"Hello world"`},
		{`"Hello".swapcase`, `"hELLO"`},
		{`"  x  ".strip`, `"x"`},
		{`"line\n".chomp`, `"line"`},
		{`"abc".chop`, `"ab"`},
		{`"12abc".to_i`, "12"},
		{`"ff".hex`, "255"},
		{`"0x1A".hex`, "26"},
		{`"3.5kg".to_f`, "3.5"},
		{`"abc" * 2`, `"abcabc"`},
		{`"%s=%d" % ["a", 1]`, `"a=1"`},
		{`s = "ab"; s << "c" << 100; s`, `"abcd"`},
		{`s = "abc"; s[1] = "XY"; s`, `"aXYc"`},
		{`"abc".upcase!`, `"ABC"`},
		{`"ABC".upcase!`, "nil"},
		{`"aAbB".casecmp?("AABB")`, "true"},
		{`"a".upto("e").to_a.join`, `"abcde"`},
		{`"prefix_name".delete_prefix("prefix_")`, `"name"`},
		{`"hello".start_with?("he", "x")`, "true"},
		{`"ab\ncd".lines`, `["ab\n", "cd"]`},
		{`"a1b22".scan("2")`, `["2", "2"]`},
		{`"abc" <=> "abd"`, "-1"},
		{`"b".between?("a", "c")`, "true"},
		{`"name".to_sym`, ":name"},
	})
	raises(t, `s = "x".freeze; s << "y"`, "FrozenError")
	raises(t, `"x" + 1`, "TypeError")
}

func TestSymbol(t *testing.T) {
	runCases(t, []scriptCase{
		{`[1, 2, 3].map(&:to_s)`, `["1", "2", "3"]`},
		{`:upcase.to_proc.call("x")`, `"X"`},
		{`:abc.length`, "3"},
		{`:a <=> :b`, "-1"},
		{`:abc.upcase`, ":ABC"},
		{`:abc[1]`, `"b"`},
		{`:a.to_proc.lambda?`, "true"},
	})
}

func TestArray(t *testing.T) {
	runCases(t, []scriptCase{
		{"Array.new(3, 0)", "[0, 0, 0]"},
		{"Array.new(3) { |i| i * i }", "[0, 1, 4]"},
		{"[1, 2, 3, 4][1..2]", "[2, 3]"},
		{"[1, 2, 3, 4][1..]", "[2, 3, 4]"},
		{"[1, 2, 3, 4][-1]", "4"},
		{"[1, 2, 3][5]", "nil"},
		{"[1, 2, 3, 4].first(2)", "[1, 2]"},
		{"[1, 2, 3, 4].last(2)", "[3, 4]"},
		{"a = [1, 2]; a << 3; a.push(4, 5); a", "[1, 2, 3, 4, 5]"},
		{"a = [1, 2, 3]; [a.pop, a.shift, a]", "[3, 1, [2]]"},
		{"a = [1, 2, 3]; a[5] = 6; a", "[1, 2, 3, nil, nil, 6]"},
		{"[3, 1, 2].sort", "[1, 2, 3]"},
		{"[3, 1, 2].sort { |a, b| b <=> a }", "[3, 2, 1]"},
		{`["bb", "a", "ccc"].sort_by(&:size)`, `["a", "bb", "ccc"]`},
		{"[1, [2, [3, [4]]]].flatten", "[1, 2, 3, 4]"},
		{"[1, [2, [3, [4]]]].flatten(1)", "[1, 2, [3, [4]]]"},
		{"[1, 2, 2, 3, 1].uniq", "[1, 2, 3]"},
		{"[1, nil, 2, nil].compact", "[1, 2]"},
		{"[1, 2, 3] + [4]", "[1, 2, 3, 4]"},
		{"[1, 2, 3, 2] - [2]", "[1, 3]"},
		{"[1, 2, 3] & [2, 3, 4]", "[2, 3]"},
		{"[1, 2] | [2, 3]", "[1, 2, 3]"},
		{"[1, 2] * 2", "[1, 2, 1, 2]"},
		{`[1, 2] * ","`, `"1,2"`},
		{`[1, [2, 3]].join("-")`, `"1-2-3"`},
		{"[1, 2, 3].reverse", "[3, 2, 1]"},
		{"[1, 2, 3].rotate", "[2, 3, 1]"},
		{"[1, 2, 3].include?(2)", "true"},
		{"[1, 2, 3].index(3)", "2"},
		{"[1, 2, 3].find_index { |x| x > 1 }", "1"},
		{"a = [1, 2, 3, 2]; a.delete(2); a", "[1, 3]"},
		{"a = [1, 2, 3]; a.delete_at(1); a", "[1, 3]"},
		{"a = [1, 2, 3]; a.insert(1, :x); a", "[1, :x, 2, 3]"},
		{"[1, 2].product([3, 4])", "[[1, 3], [1, 4], [2, 3], [2, 4]]"},
		{"[1, 2, 3].combination(2).to_a", "[[1, 2], [1, 3], [2, 3]]"},
		{"[1, 2, 3].permutation(2).to_a.length", "6"},
		{"[[1, 2], [3, 4]].transpose", "[[1, 3], [2, 4]]"},
		{"[[1, :a], [2, :b]].assoc(2)", "[2, :b]"},
		{"[1, 3, 5, 7].bsearch { |x| x >= 4 }", "5"},
		{"[[1, [2]]].dig(0, 1, 0)", "2"},
		{"[1, 2, 3].values_at(0, 2, 4)", "[1, 3, nil]"},
		{"a = [1, 2, 3]; a.map! { |x| x * 2 }; a", "[2, 4, 6]"},
		{"[1, 2].select! { |x| x > 0 }", "nil"},
		{"a = [1, 2, 3, 4]; a.reject! { |x| x.even? }; a", "[1, 3]"},
		{"[1, 2, 3].each_slice(2).to_a", "[[1, 2], [3]]"},
		{"[1, 2, 3].each_cons(2).to_a", "[[1, 2], [2, 3]]"},
		{"[1, 2, 3].inject(:+)", "6"},
		{"[1, 2, 3].reduce(10) { |s, x| s + x }", "16"},
		{"[1, 2, 3].sum", "6"},
		{"[3, 1, 2].minmax", "[1, 3]"},
		{`["a", "bb", "c"].group_by(&:size)`, `{1=>["a", "c"], 2=>["bb"]}`},
		{"[1, 2, 3, 4].partition(&:even?)", "[[2, 4], [1, 3]]"},
		{`["a", "b", "a"].tally`, `{"a"=>2, "b"=>1}`},
		{"[1, 2].zip([3, 4], [5])", "[[1, 3, 5], [2, 4, nil]]"},
		{"[[1, 2], [3, 4]].to_h", "{1=>2, 3=>4}"},
		{"[1, 2, 3].each_with_index.map { |x, i| x * i }", "[0, 2, 6]"},
		{"[1, 2, 3].each_with_object([]) { |x, acc| acc << x * 2 }", "[2, 4, 6]"},
		{"[1, 2, 4, 9, 10, 11].chunk_while { |a, b| b == a + 1 }.to_a", "[[1, 2], [4], [9, 10, 11]]"},
		{"[1, 2, 3].take_while { |x| x < 3 }", "[1, 2]"},
		{"[1, 2, 3].filter_map { |x| x * 2 if x.odd? }", "[2, 6]"},
		{"[1, 2, 3].any? { |x| x > 2 }", "true"},
		{"[].all?", "true"},
		{"[1, 2] <=> [1, 3]", "-1"},
		{"[1, [2]] == [1, [2]]", "true"},
		{"a = [1]; a << a; a.inspect", `"[1, [...]]"`},
	})
	raises(t, "[1].fetch(5)", "IndexError")
	raises(t, "[1].freeze << 2", "FrozenError")
	raises(t, "a = [1]; a << a; a.flatten", "ArgumentError")
}

func TestHash(t *testing.T) {
	runCases(t, []scriptCase{
		{`{a: 1, "b" => 2}`, `{:a=>1, "b"=>2}`},
		{`h = {a: 1}; h[:b] = 2; h`, "{:a=>1, :b=>2}"},
		{`{a: 1}[:z]`, "nil"},
		{`Hash.new(0)[:z]`, "0"},
		{`h = Hash.new { |hash, k| hash[k] = k.to_s * 2 }; h[:ab]; h`, `{:ab=>"abab"}`},
		{`{a: 1}.fetch(:z, 5)`, "5"},
		{`{a: 1}.fetch(:z) { |k| k }`, ":z"},
		{`{a: 1, b: 2}.keys`, "[:a, :b]"},
		{`{a: 1, b: 2}.values`, "[1, 2]"},
		{`{a: 1, b: 2}.map { |k, v| [k, v * 10] }.to_h`, "{:a=>10, :b=>20}"},
		{`{a: 1, b: 2}.select { |k, v| v > 1 }`, "{:b=>2}"},
		{`{a: 1, b: 2}.reject { |k, v| v > 1 }`, "{:a=>1}"},
		{`{a: 1}.merge({b: 2})`, "{:a=>1, :b=>2}"},
		{`{a: 1, b: 2}.merge({a: 5}) { |k, old, new| old + new }`, "{:a=>6, :b=>2}"},
		{`{a: 1}.transform_values { |v| v + 1 }`, "{:a=>2}"},
		{`{a: 1}.transform_keys(&:to_s)`, `{"a"=>1}`},
		{`{a: 1, b: 2}.invert`, "{1=>:a, 2=>:b}"},
		{`{a: 1, b: 2, c: 3}.slice(:a, :c)`, "{:a=>1, :c=>3}"},
		{`{a: 1, b: 2}.except(:a)`, "{:b=>2}"},
		{`{a: nil, b: 1}.compact`, "{:b=>1}"},
		{`{a: {b: {c: 1}}}.dig(:a, :b, :c)`, "1"},
		{`{a: 1}.key?(:a)`, "true"},
		{`{a: 1}.value?(1)`, "true"},
		{`{a: 1, b: 2}.key(2)`, ":b"},
		{`h = {a: 1, b: 2}; h.delete(:a); h`, "{:b=>2}"},
		{`{a: 1}.delete(:z) { |k| "no #{k}" }`, `"no z"`},
		{`{b: 1, a: 2}.sort_by { |k, v| v }.to_h`, "{:b=>1, :a=>2}"},
		{`{a: 1, b: 2}.sum { |k, v| v }`, "3"},
		{`{a: 1, b: 2}.count { |k, v| v.odd? }`, "1"},
		{`{a: 1, b: 2}.min_by { |k, v| v }`, "[:a, 1]"},
		{`{a: 1, b: 2}.to_a`, "[[:a, 1], [:b, 2]]"},
		{`acc = []; {a: 1}.each { |k, v| acc << k << v }; acc`, "[:a, 1]"},
		{`{a: 1}.each_with_object({}) { |pair, out| out[pair[1]] = pair[0] }`, "{1=>:a}"},
		{`{a: 1} == {a: 1}`, "true"},
		{`h = {a: 1}; h.default = 7; h[:q]`, "7"},
		{`k = "key"; h = {k => 1}; k << "!"; h.keys`, `["key"]`},
	})
	raises(t, `{a: 1}.fetch(:z)`, "KeyError")
	raises(t, `h = {}.freeze; h[:a] = 1`, "FrozenError")
}

func TestInstanceVariableReflection(t *testing.T) {
	runCases(t, []scriptCase{
		{"class Box\n  def initialize; @q = 5; end\nend\nBox.new.instance_variable_get(:@q)", "5"},
		{"b = Object.new\nb.instance_variable_set(:@q, 7)\n[b.instance_variable_get(:@q), b.instance_variable_defined?(:@r)]", "[7, false]"},
		{":@q", ":@q"},
	})
}

func TestRange(t *testing.T) {
	runCases(t, []scriptCase{
		{"(1..5).to_a", "[1, 2, 3, 4, 5]"},
		{"(1...5).to_a", "[1, 2, 3, 4]"},
		{`("a".."e").to_a.join`, `"abcde"`},
		{"(1..10).step(3).to_a", "[1, 4, 7, 10]"},
		{"(1.0..2.0).step(0.5).to_a", "[1.0, 1.5, 2.0]"},
		{"(1..10).include?(5.5)", "true"},
		{"(1...10).include?(10)", "false"},
		{"(1..10) === 3", "true"},
		{"(1..10).cover?(2..4)", "true"},
		{"(1..10).sum", "55"},
		{"(1..10).size", "10"},
		{"(1...10).max", "9"},
		{"(1..10).min", "1"},
		{"(1..10).first(3)", "[1, 2, 3]"},
		{"(1..10).last(3)", "[8, 9, 10]"},
		{"(1..4).select(&:even?)", "[2, 4]"},
		{"(1..3).map { |x| x * x }", "[1, 4, 9]"},
		{"(1..3).exclude_end?", "false"},
		{"(1..3) == (1..3)", "true"},
		{"case 7\nwhen 1..5 then :low\nwhen 6..10 then :high\nend", ":high"},
		{"(1..3).each_slice(2).to_a", "[[1, 2], [3]]"},
	})
	raises(t, "(1.5..3).each { }", "TypeError")
}

func TestProcAndMethod(t *testing.T) {
	runCases(t, []scriptCase{
		{"add = ->(a, b) { a + b }; add[1, 2]", "3"},
		{"->(a, b = 1, *c, d:, e: 2, **f, &g) {}.parameters",
			"[[:req, :a], [:opt, :b], [:rest, :c], [:keyreq, :d], [:key, :e], [:keyrest, :f], [:block, :g]]"},
		{"proc { |a, b| }.parameters", "[[:opt, :a], [:opt, :b]]"},
		{"proc { |a, b| }.arity", "2"},
		{"->(*a) {}.arity", "-1"},
		{"proc { |a, b| [a, b] }.call(1)", "[1, nil]"},
		{"proc { |a, b| [a, b] }.call([1, 2])", "[1, 2]"},
		{"->(a, b, c) { a + b + c }.curry[1][2][3]", "6"},
		{"f = ->(x) { x + 1 }; g = ->(x) { x * 2 }; (f >> g).call(3)", "8"},
		{"f = ->(x) { x + 1 }; g = ->(x) { x * 2 }; (f << g).call(3)", "7"},
		{"Proc.new { |x| x }.lambda?", "false"},
		{"m = 5.method(:+); m.call(3)", "8"},
		{"method(:puts).name", ":puts"},
		{"class Foo; def bar(a, b); end; end; Foo.new.method(:bar).arity", "2"},
		{"class Foo; def bar; end; end; Foo.new.method(:bar).owner", "Foo"},
		{"m = 2.method(:+) >> ->(x) { x * 10 }; m.call(1)", "30"},
	})
	raises(t, "Proc.new", "ArgumentError")
	raises(t, "->(a) { a }.call", "ArgumentError")
}

func TestTime(t *testing.T) {
	runCases(t, []scriptCase{
		{"Time.at(0).utc.year", "1970"},
		{"Time.utc(2024, 2, 29, 13, 5, 9).strftime('%Y-%m-%d %H:%M:%S %a %b %j')", `"2024-02-29 13:05:09 Thu Feb 060"`},
		{"Time.utc(2024, 2, 29).iso8601", `"2024-02-29T00:00:00Z"`},
		{"(Time.utc(2024, 1, 1) + 86400).day", "2"},
		{"Time.utc(2024, 1, 2) - Time.utc(2024, 1, 1)", "86400.0"},
		{"Time.utc(2024, 1, 1) < Time.utc(2024, 1, 2)", "true"},
		{"Time.utc(2024, 1, 1).monday?", "true"},
		{"Time.utc(2024, 3, 1).yday", "61"},
		{"Time.utc(2024, 1, 1).to_i", "1704067200"},
		{"Time.parse('2024-05-06T07:08:09Z').utc.hour", "7"},
		{"Time.utc(2024, 1, 5).strftime('%-d/%-m')", `"5/1"`},
	})
	raises(t, "Time.parse('not a time')", "ArgumentError")

	m, _ := newMachine(t)
	before := time.Now().Unix()
	now := eval(t, m, "Time.now.to_i").(*object.Integer).Value
	assert.GreaterOrEqual(t, now, before)
}

func TestSQLite(t *testing.T) {
	m, _ := newMachine(t)
	script := `
db = Sql::Database.open("sqlite", ":memory:")
db.execute("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)")
first = db.insert("INSERT INTO users (name, age) VALUES (?, ?)", "ada", 36)
db.insert("INSERT INTO users (name, age) VALUES (?, ?)", ["grace", 45])
names = []
db.each_row("SELECT name FROM users ORDER BY id") { |row| names << row["name"] }
begin
  db.transaction do |tx|
    tx.execute("UPDATE users SET age = 0")
    raise "abort"
  end
rescue RuntimeError
end
updated = db.transaction { |tx| tx.execute("UPDATE users SET age = age + 1 WHERE name = ?", "ada") }
rows = db.query("SELECT name, age FROM users ORDER BY id")
result = [first, names, updated, rows, db.first("SELECT count(*) AS n FROM users")["n"], db.driver]
db.close
result << db.closed?
result
`
	assert.Equal(t,
		`[1, ["ada", "grace"], 1, [{"name"=>"ada", "age"=>37}, {"name"=>"grace", "age"=>45}], 2, "sqlite3", true]`,
		eval(t, m, script).Inspect())

	raises(t, `Sql::Database.open("oracle", "x")`, "SQLError")
	raises(t, `Sql::Database.open("sqlite3", ":memory:") { |db| db.execute("SELEC 1") }`, "SQLError")
	raises(t, `db = Sql::Database.open("sqlite3", ":memory:"); db.close; db.query("SELECT 1")`, "SQLError")
	assert.Equal(t, "StandardError", eval(t, m, "SQLError.superclass").Inspect())
}

func TestOpenDatabase(t *testing.T) {
	db, err := foreign.OpenDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3 (open)", db.String())

	_, err = foreign.OpenDatabase("nope", "")
	assert.ErrorContains(t, err, `unknown database driver "nope"`)
}

func TestNativeTypes(t *testing.T) {
	names := []string{}
	for _, nt := range foreign.NativeTypes() {
		names = append(names, nt.Name)
	}
	assert.Equal(t, []string{"Time", "Sql::Database", "File"}, names)
}

func TestDigest(t *testing.T) {
	runCases(t, []scriptCase{
		{`Digest.md5("abc")`, `"900150983cd24fb0d6963f7d28e17f72"`},
		{`Digest.sha1("abc")`, `"a9993e364706816aba3e25717850c26c9cd0d89d"`},
		{`Digest.sha256("")`, `"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"`},
		{`Digest.hmac_sha256("The quick brown fox jumps over the lazy dog", "key")`, `"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"`},
		{`Digest.base64("hello")`, `"aGVsbG8="`},
		{`Digest.unbase64(Digest.base64("round trip"))`, `"round trip"`},
	})
	raises(t, `Digest.unbase64("@@")`, "ArgumentError")
	raises(t, `Digest.md5(1)`, "TypeError")
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	m, _ := newMachine(t)
	m.Globals["$dir"] = &object.String{Value: dir}

	assert.Equal(t, "4", eval(t, m, `path = File.join($dir, "notes.txt")
File.write(path, "one\n")
File.append(path, "two\n")`).Inspect())
	assert.Equal(t, `["one\n", "two\n"]`, eval(t, m, "File.readlines(path)").Inspect())
	assert.Equal(t, `"one\ntwo\n"`, eval(t, m, "File.read(path)").Inspect())
	assert.Equal(t, "8", eval(t, m, "File.size(path)").Inspect())
	assert.Equal(t, `["notes.txt", ".txt"]`, eval(t, m, "[File.basename(path), File.extname(path)]").Inspect())
	assert.Equal(t, "[true, false, true]", eval(t, m, "[File.exist?(path), File.directory?(path), File.directory?($dir)]").Inspect())

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))

	assert.Equal(t, "1", eval(t, m, "File.delete(path)").Inspect())
	assert.Equal(t, "false", eval(t, m, "File.exist?(path)").Inspect())
	assert.Equal(t, `"IOError"`, eval(t, m, `begin
  File.read(path)
rescue IOError => e
  e.class.name
end`).Inspect())
}
