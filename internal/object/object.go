package object

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"garnet/internal/ast"
)

const (
	NIL_OBJ     = "NIL"
	BOOLEAN_OBJ = "BOOLEAN"
	INTEGER_OBJ = "INTEGER"
	FLOAT_OBJ   = "FLOAT"
	STRING_OBJ  = "STRING"
	SYMBOL_OBJ  = "SYMBOL"

	ARRAY_OBJ = "ARRAY"
	HASH_OBJ  = "HASH"
	RANGE_OBJ = "RANGE"

	PROC_OBJ   = "PROC"
	METHOD_OBJ = "METHOD"
	OBJECT_OBJ = "OBJECT"
	CLASS_OBJ  = "CLASS"
	MODULE_OBJ = "MODULE"
	NATIVE_OBJ = "NATIVE"
)

var (
	NIL   = &Nil{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

var nextID atomic.Uint64

func newID() uint64 {
	return nextID.Add(1)
}

// NativeBool maps a Go bool onto the shared true/false singletons.
func NativeBool(b bool) *Boolean {
	if b {
		return TRUE
	}
	return FALSE
}

type ObjectType string

type Object interface {
	Type() ObjectType
	Inspect() string
}

// Hashable values can be hash keys. Every value type implements it; value
// types hash by content and reference types by identity.
type Hashable interface {
	Object
	MapKey() MapKey
}

type MapKey struct {
	Type  ObjectType
	Value uint64
}

type Nil struct{}

func (n *Nil) Type() ObjectType { return NIL_OBJ }
func (n *Nil) Inspect() string  { return "nil" }
func (n *Nil) MapKey() MapKey   { return MapKey{Type: NIL_OBJ} }

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) MapKey() MapKey {
	var value uint64
	if b.Value {
		value = 1
	}
	return MapKey{Type: b.Type(), Value: value}
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) MapKey() MapKey   { return MapKey{Type: i.Type(), Value: uint64(i.Value)} }

type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType { return FLOAT_OBJ }
func (f *Float) Inspect() string  { return FormatFloat(f.Value) }
func (f *Float) MapKey() MapKey   { return MapKey{Type: f.Type(), Value: math.Float64bits(f.Value)} }

// FormatFloat renders floats the way scripts print them: always with a
// fractional part, exponent form outside [1e-4, 1e16).
func FormatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	if abs := math.Abs(v); v == 0 || (abs >= 1e-4 && abs < 1e16) {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	if i := strings.IndexByte(s, 'e'); i >= 0 && !strings.Contains(s[:i], ".") {
		s = s[:i] + ".0" + s[i:]
	}
	return s
}

// String is mutable in place (`<<`), so it is always handled by pointer.
type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return strconv.Quote(s.Value) }
func (s *String) MapKey() MapKey {
	h := fnv.New64a()
	h.Write([]byte(s.Value))
	return MapKey{Type: s.Type(), Value: h.Sum64()}
}

type Array struct {
	Elements []Object
}

func NewArray(elements ...Object) *Array {
	if elements == nil {
		elements = []Object{}
	}
	return &Array{Elements: elements}
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string {
	elements := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		elements[i] = e.Inspect()
	}
	return "[" + strings.Join(elements, ", ") + "]"
}
func (a *Array) MapKey() MapKey {
	h := fnv.New64a()
	for _, e := range a.Elements {
		writeKey(h, KeyOf(e))
	}
	return MapKey{Type: a.Type(), Value: h.Sum64()}
}

type HashPair struct {
	Key   Object
	Value Object
}

// Hash keeps insertion order, as scripts iterate hashes in the order their
// keys were added.
type Hash struct {
	Pairs   map[MapKey]HashPair
	order   []MapKey
	Default Object
	// DefaultProc, when set, computes missing values as |hash, key|.
	DefaultProc *Proc
}

func NewHash() *Hash {
	return &Hash{Pairs: map[MapKey]HashPair{}}
}

func (h *Hash) Type() ObjectType { return HASH_OBJ }
func (h *Hash) Inspect() string {
	pairs := make([]string, 0, len(h.order))
	for _, k := range h.order {
		pair := h.Pairs[k]
		pairs = append(pairs, pair.Key.Inspect()+"=>"+pair.Value.Inspect())
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}
func (h *Hash) MapKey() MapKey {
	hasher := fnv.New64a()
	for _, k := range h.order {
		writeKey(hasher, k)
		writeKey(hasher, KeyOf(h.Pairs[k].Value))
	}
	return MapKey{Type: h.Type(), Value: hasher.Sum64()}
}

func (h *Hash) Set(k, v Object) {
	key := KeyOf(k)
	if _, ok := h.Pairs[key]; !ok {
		h.order = append(h.order, key)
	}
	h.Pairs[key] = HashPair{Key: k, Value: v}
}

func (h *Hash) Get(k Object) (Object, bool) {
	pair, ok := h.Pairs[KeyOf(k)]
	return pair.Value, ok
}

func (h *Hash) Delete(k Object) (Object, bool) {
	key := KeyOf(k)
	pair, ok := h.Pairs[key]
	if !ok {
		return nil, false
	}
	delete(h.Pairs, key)
	for i, existing := range h.order {
		if existing == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return pair.Value, true
}

func (h *Hash) Len() int { return len(h.order) }

// Entries returns a snapshot of the pairs in insertion order, so callers may
// modify the hash while iterating.
func (h *Hash) Entries() []HashPair {
	out := make([]HashPair, len(h.order))
	for i, k := range h.order {
		out[i] = h.Pairs[k]
	}
	return out
}

type Range struct {
	Low       Object
	High      Object
	Exclusive bool
}

func (r *Range) Type() ObjectType { return RANGE_OBJ }
func (r *Range) Inspect() string {
	op := ".."
	if r.Exclusive {
		op = "..."
	}
	return r.Low.Inspect() + op + r.High.Inspect()
}
func (r *Range) MapKey() MapKey {
	h := fnv.New64a()
	writeKey(h, KeyOf(r.Low))
	writeKey(h, KeyOf(r.High))
	if r.Exclusive {
		h.Write([]byte{1})
	}
	return MapKey{Type: r.Type(), Value: h.Sum64()}
}

// IntBounds returns the integer bounds of the range with High made
// inclusive.
func (r *Range) IntBounds() (low, high int64, ok bool) {
	l, ok1 := r.Low.(*Integer)
	h, ok2 := r.High.(*Integer)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	high = h.Value
	if r.Exclusive {
		high--
	}
	return l.Value, high, true
}

// Proc is a closure: a block, a lambda, or a native callable wrapped as one.
type Proc struct {
	id         uint64
	Parameters []*ast.Parameter
	Body       ast.Expression
	Context    *Context
	Self       Object
	Lambda     bool
	Fn         ForeignFunction
}

func NewProc(params []*ast.Parameter, body ast.Expression, ctx *Context, lambda bool) *Proc {
	return &Proc{id: newID(), Parameters: params, Body: body, Context: ctx, Self: ctx.Self, Lambda: lambda}
}

// NewNativeProc wraps a Go function, as used by Symbol#to_proc.
func NewNativeProc(fn ForeignFunction, lambda bool) *Proc {
	return &Proc{id: newID(), Fn: fn, Lambda: lambda}
}

func (p *Proc) Type() ObjectType { return PROC_OBJ }
func (p *Proc) Inspect() string {
	if p.Lambda {
		return fmt.Sprintf("#<Proc:0x%04x (lambda)>", p.id)
	}
	return fmt.Sprintf("#<Proc:0x%04x>", p.id)
}
func (p *Proc) MapKey() MapKey { return MapKey{Type: p.Type(), Value: p.id} }

// Arity follows the usual convention: required count, or -(required+1) when
// optional or rest parameters exist.
func (p *Proc) Arity() int {
	if p.Fn != nil {
		return -1
	}
	return paramArity(p.Parameters, p.Lambda)
}

func paramArity(params []*ast.Parameter, strict bool) int {
	required, optional := 0, false
	for _, param := range params {
		switch param.Kind {
		case ast.RequiredParam:
			required++
		case ast.OptionalParam, ast.RestParam:
			optional = true
		}
	}
	if optional || (!strict && required == 0 && len(params) > 0) {
		return -(required + 1)
	}
	return required
}

// BoundMethod is `obj.method(:name)`.
type BoundMethod struct {
	Receiver Object
	Name     string
}

func (m *BoundMethod) Type() ObjectType { return METHOD_OBJ }
func (m *BoundMethod) Inspect() string  { return "#<Method: " + m.Name + ">" }
func (m *BoundMethod) MapKey() MapKey {
	h := fnv.New64a()
	writeKey(h, KeyOf(m.Receiver))
	h.Write([]byte(m.Name))
	return MapKey{Type: m.Type(), Value: h.Sum64()}
}

// NativeObject wraps a host Go value whose methods come from the registry
// entries of Class.
type NativeObject struct {
	id    uint64
	Class *DynamicClass
	Value any
}

func NewNativeObject(class *DynamicClass, value any) *NativeObject {
	return &NativeObject{id: newID(), Class: class, Value: value}
}

func (n *NativeObject) Type() ObjectType { return NATIVE_OBJ }
func (n *NativeObject) Inspect() string {
	if s, ok := n.Value.(fmt.Stringer); ok {
		return "#<" + n.Class.Name + " " + s.String() + ">"
	}
	return fmt.Sprintf("#<%s:0x%04x>", n.Class.Name, n.id)
}
func (n *NativeObject) MapKey() MapKey { return MapKey{Type: n.Type(), Value: n.id} }

// KeyOf returns the hash key of any value.
func KeyOf(obj Object) MapKey {
	if h, ok := obj.(Hashable); ok {
		return h.MapKey()
	}
	h := fnv.New64a()
	h.Write([]byte(fmt.Sprintf("%p", obj)))
	return MapKey{Type: obj.Type(), Value: h.Sum64()}
}

func writeKey(h interface{ Write([]byte) (int, error) }, k MapKey) {
	var buf bytes.Buffer
	buf.WriteString(string(k.Type))
	buf.WriteString(strconv.FormatUint(k.Value, 16))
	buf.WriteByte(0)
	h.Write(buf.Bytes())
}
