package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringMapKey(t *testing.T) {
	hello1 := &String{Value: "Hello World"}
	hello2 := &String{Value: "Hello World"}
	diff := &String{Value: "My name is johnny"}

	assert.Equal(t, hello1.MapKey(), hello2.MapKey(), "strings with same content have different map keys")
	assert.NotEqual(t, hello1.MapKey(), diff.MapKey(), "strings with different content have same map keys")
}

func TestBooleanAndIntegerMapKeys(t *testing.T) {
	assert.Equal(t, (&Boolean{Value: true}).MapKey(), TRUE.MapKey())
	assert.NotEqual(t, TRUE.MapKey(), FALSE.MapKey())
	assert.Equal(t, (&Integer{Value: 1}).MapKey(), (&Integer{Value: 1}).MapKey())
	assert.NotEqual(t, (&Integer{Value: 1}).MapKey(), (&Integer{Value: 2}).MapKey())
	assert.NotEqual(t, (&Integer{Value: 1}).MapKey(), (&Float{Value: 1}).MapKey(), "1 and 1.0 are distinct keys")
}

func TestCompositeMapKeys(t *testing.T) {
	a := NewArray(&Integer{Value: 1}, &String{Value: "x"})
	b := NewArray(&Integer{Value: 1}, &String{Value: "x"})
	assert.Equal(t, a.MapKey(), b.MapKey())

	o1, o2 := NewObject(nil), NewObject(nil)
	assert.NotEqual(t, o1.MapKey(), o2.MapKey(), "objects hash by identity")
}

func TestSymbolsAreInterned(t *testing.T) {
	assert.Same(t, InternSymbol("name"), InternSymbol("name"))
	assert.NotSame(t, InternSymbol("name"), InternSymbol("other"))
	assert.Equal(t, ":name", InternSymbol("name").Inspect())
	assert.Equal(t, ":<=>", InternSymbol("<=>").Inspect())
	assert.Equal(t, `:"with space"`, InternSymbol("with space").Inspect())
	assert.Equal(t, ":@q", InternSymbol("@q").Inspect())
	assert.Equal(t, ":$g", InternSymbol("$g").Inspect())
}

func TestHashKeepsInsertionOrder(t *testing.T) {
	h := NewHash()
	h.Set(InternSymbol("b"), &Integer{Value: 2})
	h.Set(InternSymbol("a"), &Integer{Value: 1})
	h.Set(&String{Value: "c"}, &Integer{Value: 3})
	h.Set(InternSymbol("b"), &Integer{Value: 20})

	assert.Equal(t, `{:b=>20, :a=>1, "c"=>3}`, h.Inspect())

	v, ok := h.Delete(InternSymbol("a"))
	require.True(t, ok)
	assert.Equal(t, int64(1), v.(*Integer).Value)
	assert.Equal(t, 2, h.Len())

	_, ok = h.Get(InternSymbol("a"))
	assert.False(t, ok)
	got, ok := h.Get(&String{Value: "c"})
	require.True(t, ok)
	assert.Equal(t, "3", got.Inspect())
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		1:         "1.0",
		2.5:       "2.5",
		-0.125:    "-0.125",
		1234567:   "1234567.0",
		1e20:      "1.0e+20",
		0.00001:   "1.0e-05",
		1.5e-7:    "1.5e-07",
		0:         "0.0",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatFloat(in), "FormatFloat(%v)", in)
	}
}

func TestBlockFramesDelegateToParent(t *testing.T) {
	root := NewRootContext(NIL, nil)
	root.Set("x", &Integer{Value: 1})

	block := root.NewFrame(BlockFrame)
	block.Set("x", &Integer{Value: 2})
	block.Set("y", &Integer{Value: 3})

	x, ok := root.Get("x")
	require.True(t, ok)
	assert.Equal(t, "2", x.Inspect(), "block assignment reaches the enclosing local")
	assert.False(t, root.Has("y"), "new names stay in the block")

	block.SetLocal("x", &Integer{Value: 9})
	x, _ = root.Get("x")
	assert.Equal(t, "2", x.Inspect(), "block parameters shadow")

	method := root.NewFrame(MethodFrame)
	assert.False(t, method.Has("x"), "method frames isolate locals")
	nested := method.NewFrame(BlockFrame)
	nested.Set("z", TRUE)
	assert.False(t, method.Has("z"))
	assert.Equal(t, []string{"z"}, nested.LocalNames())
	assert.Same(t, method, nested.MethodFrame())
}

func TestFrozenTableAndMissingGuard(t *testing.T) {
	root := NewRootContext(NIL, nil).Root()
	s := &String{Value: "a"}
	assert.False(t, root.IsFrozen(s))
	root.Freeze(s)
	assert.True(t, root.IsFrozen(s))
	assert.False(t, root.IsFrozen(&String{Value: "a"}), "frozen by identity")
	assert.True(t, root.IsFrozen(&Integer{Value: 1}))

	require.True(t, root.EnterMissing("foo"))
	assert.False(t, root.EnterMissing("foo"))
	assert.True(t, root.EnterMissing("bar"))
	root.LeaveMissing("foo")
	assert.True(t, root.EnterMissing("foo"))
}

func TestAncestorsFlattenMixins(t *testing.T) {
	base := NewClass("Base", nil, nil)
	a := NewModule("A", nil)
	b := NewModule("B", nil)
	inner := NewModule("Inner", nil)
	b.Include(inner)

	c := NewClass("C", base, nil)
	c.Include(a)
	c.Include(b)
	assert.False(t, c.Include(a))

	var names []string
	for _, anc := range c.Ancestors() {
		names = append(names, anc.Name)
	}
	assert.Equal(t, []string{"C", "B", "Inner", "A", "Base"}, names)
}

func TestSingletonClasses(t *testing.T) {
	base := NewClass("Base", nil, nil)
	sub := NewClass("Sub", base, nil)
	s := SingletonOf(sub, true)
	require.NotNil(t, s)
	assert.True(t, s.IsSingleton)
	assert.Same(t, SingletonOf(base, false), s.Superclass, "class singletons chain along superclasses")

	obj := NewObject(sub)
	assert.Nil(t, SingletonOf(obj, false))
	os := SingletonOf(obj, true)
	assert.Same(t, sub, os.Superclass)
	assert.Nil(t, SingletonOf(&Integer{Value: 1}, true))
}

func TestConstantsNameAnonymousClasses(t *testing.T) {
	outer := NewModule("Outer", nil)
	anon := NewClass("", nil, nil)
	outer.SetConstant("Inner", anon)
	assert.Equal(t, "Outer::Inner", anon.Name)
	got, ok := outer.Constant("Inner")
	require.True(t, ok)
	assert.Same(t, anon, got)
}

func TestFromNative(t *testing.T) {
	o, ok := FromNative(map[string]any{"n": int32(4), "list": []any{1.5, "s", nil, true}})
	require.True(t, ok)
	h := o.(*Hash)
	n, _ := h.Get(&String{Value: "n"})
	assert.Equal(t, "4", n.Inspect())
	list, _ := h.Get(&String{Value: "list"})
	assert.Equal(t, `[1.5, "s", nil, true]`, list.Inspect())

	_, ok = FromNative(struct{}{})
	assert.False(t, ok)

	assert.Equal(t, []any{int64(1), "a"}, ToNative(NewArray(&Integer{Value: 1}, InternSymbol("a"))))
}
