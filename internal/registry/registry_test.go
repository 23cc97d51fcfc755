package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/object"
)

func constant(v int64) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return &object.Integer{Value: v}, nil
	}
}

func call(t *testing.T, fn object.ForeignFunction) int64 {
	t.Helper()
	out, err := fn(nil)
	require.NoError(t, err)
	return out.(*object.Integer).Value
}

func TestTypedGlobalAndStaticBuckets(t *testing.T) {
	r := New()
	r.Func(constant(1), "puts", "print")
	r.Method("String", constant(2), "length", "size")
	r.StaticMethod("Time", constant(3), "now")
	r.Register(Entry{Names: []string{"to_s"}, Types: []string{"Integer", "Float"}, Fn: constant(4)})

	fn, ok := r.LookupGlobal("print")
	require.True(t, ok)
	assert.Equal(t, int64(1), call(t, fn))

	fn, ok = r.Lookup("String", "size")
	require.True(t, ok)
	assert.Equal(t, int64(2), call(t, fn))

	_, ok = r.Lookup("Time", "now")
	assert.False(t, ok, "static entries are not instance methods")
	fn, ok = r.LookupStatic("Time", "now")
	require.True(t, ok)
	assert.Equal(t, int64(3), call(t, fn))

	fn, ok = r.Lookup("Float", "to_s")
	require.True(t, ok)
	assert.Equal(t, int64(4), call(t, fn))

	_, ok = r.Lookup("String", "puts")
	assert.False(t, ok, "global functions are not typed entries")
}

func TestRegisterReplaces(t *testing.T) {
	r := New()
	r.Method("Array", constant(1), "first")
	r.Method("Array", constant(2), "first")
	fn, _ := r.Lookup("Array", "first")
	assert.Equal(t, int64(2), call(t, fn))
}

func TestNamesAndTypes(t *testing.T) {
	r := New()
	r.Method("Hash", constant(1), "keys", "each")
	r.StaticMethod("Hash", constant(1), "new")
	r.Func(constant(1), "require", "p")

	assert.Equal(t, []string{"each", "keys", "new"}, r.Names("Hash"))
	assert.Equal(t, []string{"p", "require"}, r.Names(""))
	assert.Equal(t, []string{"Hash"}, r.Types())
	assert.Empty(t, r.Names("Missing"))
}
