package foreign

import (
	"math/rand/v2"
	"slices"
	"strings"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerArray(reg *registry.Registry) {
	reg.StaticMethod("Array", fnArrayNew(), "new")

	reg.Method("Array", fnArrayEach(), "each")
	reg.Method("Array", fnArrayEachIndex(), "each_index")
	reg.Method("Array", fnArrayWithIndex(), "with_index")
	reg.Method("Array", fnArrayLength(), "length", "size")
	reg.Method("Array", fnArrayEmpty(), "empty?")
	reg.Method("Array", fnValueEqual(), "==", "eql?")
	reg.Method("Array", fnArrayCompare(), "<=>")
	reg.Method("Array", fnObjectItself(), "to_a", "entries")
	reg.Method("Array", fnValueInspect(), "inspect", "to_s")
	reg.Method("Array", fnArrayIndex(), "[]", "slice")
	reg.Method("Array", fnArraySetIndex(), "[]=")
	reg.Method("Array", fnArrayAt(), "at")
	reg.Method("Array", fnDig(), "dig")
	reg.Method("Array", fnArrayFetch(), "fetch")
	reg.Method("Array", fnArrayLast(), "last")
	reg.Method("Array", fnArrayValuesAt(), "values_at")
	reg.Method("Array", fnArrayPush(), "push", "append", "<<")
	reg.Method("Array", fnArrayPop(), "pop")
	reg.Method("Array", fnArrayShift(), "shift")
	reg.Method("Array", fnArrayUnshift(), "unshift", "prepend")
	reg.Method("Array", fnArrayInsert(), "insert")
	reg.Method("Array", fnArrayConcat(), "concat")
	reg.Method("Array", fnArrayPlus(), "+")
	reg.Method("Array", fnArraySetOp(setDifference), "-", "difference")
	reg.Method("Array", fnArraySetOp(setIntersection), "&", "intersection")
	reg.Method("Array", fnArraySetOp(setUnion), "|", "union")
	reg.Method("Array", fnArrayIntersect(), "intersect?")
	reg.Method("Array", fnArrayTimes(), "*")
	reg.Method("Array", fnArrayJoin(), "join")
	reg.Method("Array", fnArrayReverse(), "reverse")
	reg.Method("Array", fnArrayRotate(), "rotate")
	reg.Method("Array", fnArrayCompact(), "compact")
	reg.Method("Array", fnArrayFlatten(), "flatten")
	reg.Method("Array", fnArrayIndexOf(false), "index", "find_index")
	reg.Method("Array", fnArrayIndexOf(true), "rindex")
	reg.Method("Array", fnArrayDelete(), "delete")
	reg.Method("Array", fnArrayDeleteAt(), "delete_at")
	reg.Method("Array", fnArrayClear(), "clear")
	reg.Method("Array", fnArrayReplace(), "replace")
	reg.Method("Array", fnArrayFill(), "fill")
	reg.Method("Array", fnArraySample(), "sample")
	reg.Method("Array", fnArrayShuffle(), "shuffle")
	reg.Method("Array", fnArrayProduct(), "product")
	reg.Method("Array", fnArrayCombination(false), "combination")
	reg.Method("Array", fnArrayCombination(true), "permutation")
	reg.Method("Array", fnArrayTranspose(), "transpose")
	reg.Method("Array", fnArrayAssoc(), "assoc")
	reg.Method("Array", fnArrayBsearch(), "bsearch")
	reg.Method("Array", fnArrayKeepIf(true), "keep_if")
	reg.Method("Array", fnArrayKeepIf(false), "delete_if")

	// in-place forms of the copying methods; the ones marked true answer
	// nil when nothing changed
	bangs := map[string]bool{
		"map": false, "collect": false, "sort": false, "sort_by": false, "reverse": false,
		"rotate": false, "shuffle": false, "select": true, "filter": true, "reject": true,
		"uniq": true, "compact": true, "flatten": true,
	}
	for name, nilIfSame := range bangs {
		reg.Method("Array", fnArrayBang(name, nilIfSame), name+"!")
	}
}

func selfArray(ctx object.EvaluatorContext) *object.Array {
	return ctx.Self().(*object.Array)
}

func mutableArray(ctx object.EvaluatorContext) (*object.Array, error) {
	self := selfArray(ctx)
	return self, checkFrozen(ctx, self)
}

// fnArrayNew is Array.new(size, default), Array.new(size) { |i| } or
// Array.new(array).
func fnArrayNew() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 2); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return object.NewArray(), nil
		}
		if src, ok := args[0].(*object.Array); ok && len(args) == 1 {
			return object.NewArray(slices.Clone(src.Elements)...), nil
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, ctx.NewError("ArgumentError", "negative array size")
		}
		fill := object.Object(object.NIL)
		if len(args) == 2 {
			fill = args[1]
		}
		out := make([]object.Object, n)
		for i := range out {
			if blk := ctx.Block(); blk != nil {
				if out[i], err = ctx.CallProc(blk, integer(int64(i))); err != nil {
					return nil, err
				}
				continue
			}
			out[i] = fill
		}
		return object.NewArray(out...), nil
	}
}

func fnArrayEach() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk := ctx.Block()
		if blk == nil {
			return ctx.Self(), nil
		}
		self := selfArray(ctx)
		for i := 0; i < len(self.Elements); i++ {
			if _, err := ctx.CallProc(blk, self.Elements[i]); err != nil {
				return nil, err
			}
		}
		return self, nil
	}
}

func fnArrayEachIndex() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		self := selfArray(ctx)
		for i := 0; i < len(self.Elements); i++ {
			if _, err := ctx.CallProc(blk, integer(int64(i))); err != nil {
				return nil, err
			}
		}
		return self, nil
	}
}

// fnArrayWithIndex maps with |element, index|. Blockless iterators return
// arrays, so this is what each.with_index and map.with_index reach.
func fnArrayWithIndex() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		offset, err := intArg(ctx, args, 0, 0)
		if err != nil {
			return nil, err
		}
		self := selfArray(ctx)
		blk := ctx.Block()
		out := make([]object.Object, 0, len(self.Elements))
		for i := 0; i < len(self.Elements); i++ {
			idx := integer(int64(i) + offset)
			if blk == nil {
				out = append(out, object.NewArray(self.Elements[i], idx))
				continue
			}
			v, err := ctx.CallProc(blk, self.Elements[i], idx)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return object.NewArray(out...), nil
	}
}

func fnArrayLength() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(int64(len(selfArray(ctx).Elements))), nil
	}
}

func fnArrayEmpty() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(len(selfArray(ctx).Elements) == 0), nil
	}
}

// fnValueEqual is structural == for the container types.
func fnValueEqual() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		eq, err := ctx.Equal(ctx.Self(), args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(eq), nil
	}
}

func fnArrayCompare() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, ok := args[0].(*object.Array)
		if !ok {
			return object.NIL, nil
		}
		mine := selfArray(ctx).Elements
		for i := 0; i < len(mine) && i < len(other.Elements); i++ {
			c, err := ctx.Compare(mine[i], other.Elements[i])
			if err != nil {
				return nil, err
			}
			if c != 0 {
				return integer(int64(c)), nil
			}
		}
		return integer(int64(boolInt(len(mine) > len(other.Elements)) - boolInt(len(mine) < len(other.Elements)))), nil
	}
}

func fnValueInspect() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		s, err := inspectValue(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

// arraySpan resolves arr[i, len] and arr[range]; ok is false for nil.
func arraySpan(ctx object.EvaluatorContext, n int, args []object.Object) (start, count int, ok bool, err error) {
	if r, isRange := args[0].(*object.Range); isRange {
		return rangeSpan(ctx, r, n)
	}
	i, err := toInt(ctx, args[0])
	if err != nil {
		return 0, 0, false, err
	}
	length, err := toInt(ctx, args[1])
	if err != nil {
		return 0, 0, false, err
	}
	from, inside := normalizeIndex(i, n)
	if !inside || length < 0 {
		return 0, 0, false, nil
	}
	return from, int(min(length, int64(n-from))), true, nil
}

func fnArrayIndex() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		elems := selfArray(ctx).Elements
		_, isRange := args[0].(*object.Range)
		if len(args) == 2 || isRange {
			start, count, ok, err := arraySpan(ctx, len(elems), args)
			if err != nil || !ok {
				return object.NIL, err
			}
			return object.NewArray(slices.Clone(elems[start : start+count])...), nil
		}
		i, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return elementAt(elems, i), nil
	}
}

func elementAt(elems []object.Object, i int64) object.Object {
	if idx, ok := normalizeIndex(i, len(elems)); ok && idx < len(elems) {
		return elems[idx]
	}
	return object.NIL
}

func fnArraySetIndex() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 3); err != nil {
			return nil, err
		}
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		value := args[len(args)-1]
		n := len(self.Elements)
		_, isRange := args[0].(*object.Range)
		if len(args) == 3 || isRange {
			start, count, ok, err := arraySpan(ctx, n, args[:len(args)-1])
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, ctx.NewError("IndexError", "index %s out of array", args[0].Inspect())
			}
			repl := []object.Object{value}
			if arr, isArr := value.(*object.Array); isArr {
				repl = arr.Elements
			}
			self.Elements = slices.Concat(self.Elements[:start], repl, self.Elements[start+count:])
			return value, nil
		}
		i, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if i < 0 {
			i += int64(n)
			if i < 0 {
				return nil, ctx.NewError("IndexError", "index %d too small for array; minimum: -%d", i-int64(n), n)
			}
		}
		for int64(len(self.Elements)) <= i {
			self.Elements = append(self.Elements, object.NIL)
		}
		self.Elements[i] = value
		return value, nil
	}
}

func fnArrayAt() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		i, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return elementAt(selfArray(ctx).Elements, i), nil
	}
}

// fnDig follows the keys through nested containers with their own
// dig, stopping at nil.
func fnDig() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, -1); err != nil {
			return nil, err
		}
		next, err := ctx.CallMethod(ctx.Self(), "[]", args[:1], nil)
		if err != nil || len(args) == 1 || isNil(next) {
			return next, err
		}
		if !ctx.RespondTo(next, "dig", false) {
			return nil, ctx.NewError("TypeError", "%s does not have #dig method", className(ctx, next))
		}
		return ctx.CallMethod(next, "dig", args[1:], nil)
	}
}

func fnArrayFetch() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		elems := selfArray(ctx).Elements
		i, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if idx, ok := normalizeIndex(i, len(elems)); ok && idx < len(elems) {
			return elems[idx], nil
		}
		if blk := ctx.Block(); blk != nil {
			return ctx.CallProc(blk, args[0])
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, ctx.NewError("IndexError", "index %d outside of array bounds: %d...%d", i, -len(elems), len(elems))
	}
}

func fnArrayLast() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		elems := selfArray(ctx).Elements
		if len(args) == 0 {
			if len(elems) == 0 {
				return object.NIL, nil
			}
			return elems[len(elems)-1], nil
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, ctx.NewError("ArgumentError", "negative array size")
		}
		from := max(len(elems)-int(n), 0)
		return object.NewArray(slices.Clone(elems[from:])...), nil
	}
}

func fnArrayValuesAt() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		elems := selfArray(ctx).Elements
		out := make([]object.Object, 0, len(args))
		for _, arg := range args {
			i, err := toInt(ctx, arg)
			if err != nil {
				return nil, err
			}
			out = append(out, elementAt(elems, i))
		}
		return object.NewArray(out...), nil
	}
}

func fnArrayPush() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		self.Elements = append(self.Elements, args...)
		return self, nil
	}
}

// takeEnd removes n elements from the front or back. Without a count it
// answers the element itself, or nil when empty.
func takeEnd(ctx object.EvaluatorContext, args []object.Object, front bool) (object.Object, error) {
	if err := checkArgs(ctx, args, 0, 1); err != nil {
		return nil, err
	}
	self, err := mutableArray(ctx)
	if err != nil {
		return nil, err
	}
	n := len(self.Elements)
	if len(args) == 0 {
		if n == 0 {
			return object.NIL, nil
		}
		if front {
			v := self.Elements[0]
			self.Elements = slices.Delete(self.Elements, 0, 1)
			return v, nil
		}
		v := self.Elements[n-1]
		self.Elements = self.Elements[:n-1]
		return v, nil
	}
	count, err := toInt(ctx, args[0])
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, ctx.NewError("ArgumentError", "negative array size")
	}
	k := min(int(count), n)
	if front {
		taken := slices.Clone(self.Elements[:k])
		self.Elements = slices.Delete(self.Elements, 0, k)
		return object.NewArray(taken...), nil
	}
	taken := slices.Clone(self.Elements[n-k:])
	self.Elements = self.Elements[:n-k]
	return object.NewArray(taken...), nil
}

func fnArrayPop() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return takeEnd(ctx, args, false)
	}
}

func fnArrayShift() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return takeEnd(ctx, args, true)
	}
}

func fnArrayUnshift() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		self.Elements = slices.Insert(self.Elements, 0, args...)
		return self, nil
	}
}

func fnArrayInsert() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, -1); err != nil {
			return nil, err
		}
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		i, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		n := int64(len(self.Elements))
		if i < 0 {
			i += n + 1
			if i < 0 {
				return nil, ctx.NewError("IndexError", "index %d too small for array; minimum: -%d", i-n-1, n+1)
			}
		}
		for int64(len(self.Elements)) < i {
			self.Elements = append(self.Elements, object.NIL)
		}
		self.Elements = slices.Insert(self.Elements, int(i), args[1:]...)
		return self, nil
	}
}

func arrayArg(ctx object.EvaluatorContext, obj object.Object) ([]object.Object, error) {
	if arr, ok := obj.(*object.Array); ok {
		return arr.Elements, nil
	}
	return nil, typeError(ctx, obj, "Array")
}

func fnArrayConcat() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		var added []object.Object
		for _, arg := range args {
			elems, err := arrayArg(ctx, arg)
			if err != nil {
				return nil, err
			}
			added = append(added, elems...)
		}
		self.Elements = append(self.Elements, added...)
		return self, nil
	}
}

func fnArrayPlus() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, err := arrayArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return object.NewArray(slices.Concat(selfArray(ctx).Elements, other)...), nil
	}
}

type setOp int

const (
	setDifference setOp = iota
	setIntersection
	setUnion
)

// fnArraySetOp keeps the receiver's order and drops duplicates, except
// that difference keeps duplicates of retained elements.
func fnArraySetOp(op setOp) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		result := slices.Clone(selfArray(ctx).Elements)
		if op != setDifference {
			result = uniqSet(result, nil)
		}
		for _, arg := range args {
			other, err := arrayArg(ctx, arg)
			if err != nil {
				return nil, err
			}
			members := object.NewHash()
			for _, v := range other {
				members.Set(v, object.TRUE)
			}
			switch op {
			case setDifference:
				result = slices.DeleteFunc(result, func(v object.Object) bool {
					_, found := members.Get(v)
					return found
				})
			case setIntersection:
				result = slices.DeleteFunc(result, func(v object.Object) bool {
					_, found := members.Get(v)
					return !found
				})
			case setUnion:
				result = uniqSet(result, other)
			}
		}
		return object.NewArray(result...), nil
	}
}

func uniqSet(items, extra []object.Object) []object.Object {
	seen := object.NewHash()
	out := []object.Object{}
	for _, v := range slices.Concat(items, extra) {
		if _, dup := seen.Get(v); dup {
			continue
		}
		seen.Set(v, object.TRUE)
		out = append(out, v)
	}
	return out
}

func fnArrayIntersect() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, err := arrayArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		members := object.NewHash()
		for _, v := range other {
			members.Set(v, object.TRUE)
		}
		for _, v := range selfArray(ctx).Elements {
			if _, found := members.Get(v); found {
				return object.TRUE, nil
			}
		}
		return object.FALSE, nil
	}
}

func fnArrayTimes() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		if _, ok := args[0].(*object.String); ok {
			return ctx.CallMethod(ctx.Self(), "join", args, nil)
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, ctx.NewError("ArgumentError", "negative argument")
		}
		elems := selfArray(ctx).Elements
		out := make([]object.Object, 0, len(elems)*int(n))
		for range n {
			out = append(out, elems...)
		}
		return object.NewArray(out...), nil
	}
}

func joinArray(ctx object.EvaluatorContext, arr *object.Array, sep string, seen map[*object.Array]bool) (string, error) {
	if seen[arr] {
		return "", ctx.NewError("ArgumentError", "recursive array join")
	}
	seen[arr] = true
	defer delete(seen, arr)
	parts := make([]string, len(arr.Elements))
	for i, e := range arr.Elements {
		if nested, ok := e.(*object.Array); ok {
			s, err := joinArray(ctx, nested, sep, seen)
			if err != nil {
				return "", err
			}
			parts[i] = s
			continue
		}
		s, err := ctx.ToS(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func fnArrayJoin() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		sep := ""
		if arg := optArg(args, 0); arg != nil && !isNil(arg) {
			var err error
			if sep, err = toStr(ctx, arg); err != nil {
				return nil, err
			}
		}
		s, err := joinArray(ctx, selfArray(ctx), sep, map[*object.Array]bool{})
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

func fnArrayReverse() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		out := slices.Clone(selfArray(ctx).Elements)
		slices.Reverse(out)
		return object.NewArray(out...), nil
	}
}

func fnArrayRotate() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		n, err := intArg(ctx, args, 0, 1)
		if err != nil {
			return nil, err
		}
		elems := selfArray(ctx).Elements
		if len(elems) == 0 {
			return object.NewArray(), nil
		}
		k := int(((n % int64(len(elems))) + int64(len(elems))) % int64(len(elems)))
		return object.NewArray(slices.Concat(elems[k:], elems[:k])...), nil
	}
}

func fnArrayCompact() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		out := slices.DeleteFunc(slices.Clone(selfArray(ctx).Elements), isNil)
		return object.NewArray(out...), nil
	}
}

func flatten(ctx object.EvaluatorContext, elems []object.Object, depth int64, seen map[*object.Array]bool) ([]object.Object, error) {
	out := make([]object.Object, 0, len(elems))
	for _, e := range elems {
		nested, ok := e.(*object.Array)
		if !ok || depth == 0 {
			out = append(out, e)
			continue
		}
		if seen[nested] {
			return nil, ctx.NewError("ArgumentError", "tried to flatten recursive array")
		}
		seen[nested] = true
		inner, err := flatten(ctx, nested.Elements, depth-1, seen)
		delete(seen, nested)
		if err != nil {
			return nil, err
		}
		out = append(out, inner...)
	}
	return out, nil
}

func fnArrayFlatten() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		depth := int64(-1)
		if arg := optArg(args, 0); arg != nil && !isNil(arg) {
			var err error
			if depth, err = toInt(ctx, arg); err != nil {
				return nil, err
			}
		}
		self := selfArray(ctx)
		out, err := flatten(ctx, self.Elements, depth, map[*object.Array]bool{self: true})
		if err != nil {
			return nil, err
		}
		return object.NewArray(out...), nil
	}
}

// fnArrayIndexOf finds the first (or last) element equal to the argument
// or accepted by the block.
func fnArrayIndexOf(last bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		elems := selfArray(ctx).Elements
		match := func(v object.Object) (bool, error) {
			if len(args) == 1 {
				return ctx.Equal(v, args[0])
			}
			blk, err := requireBlock(ctx)
			if err != nil {
				return false, err
			}
			out, err := ctx.CallProc(blk, v)
			return object.IsTruthy(out), err
		}
		for k := range elems {
			i := k
			if last {
				i = len(elems) - 1 - k
			}
			ok, err := match(elems[i])
			if err != nil {
				return nil, err
			}
			if ok {
				return integer(int64(i)), nil
			}
		}
		return object.NIL, nil
	}
}

func fnArrayDelete() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		var found object.Object
		kept := self.Elements[:0:0]
		for _, v := range self.Elements {
			eq, err := ctx.Equal(v, args[0])
			if err != nil {
				return nil, err
			}
			if eq {
				found = v
				continue
			}
			kept = append(kept, v)
		}
		self.Elements = kept
		if found == nil {
			if blk := ctx.Block(); blk != nil {
				return ctx.CallProc(blk, args[0])
			}
			return object.NIL, nil
		}
		return found, nil
	}
}

func fnArrayDeleteAt() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		i, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		idx, ok := normalizeIndex(i, len(self.Elements))
		if !ok || idx == len(self.Elements) {
			return object.NIL, nil
		}
		v := self.Elements[idx]
		self.Elements = slices.Delete(self.Elements, idx, idx+1)
		return v, nil
	}
}

func fnArrayClear() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		self.Elements = []object.Object{}
		return self, nil
	}
}

func fnArrayReplace() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		other, err := arrayArg(ctx, args[0])
		if err != nil {
			return nil, err
		}
		self.Elements = slices.Clone(other)
		return self, nil
	}
}

// fnArrayFill is fill(value), fill(value, start, length) or fill { |i| }.
func fnArrayFill() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		blk := ctx.Block()
		rest := args
		if blk == nil {
			if err := checkArgs(ctx, args, 1, 3); err != nil {
				return nil, err
			}
			rest = args[1:]
		}
		start, err := intArg(ctx, rest, 0, 0)
		if err != nil {
			return nil, err
		}
		if start < 0 {
			start = max(start+int64(len(self.Elements)), 0)
		}
		end := int64(len(self.Elements))
		if len(rest) > 1 {
			n, err := toInt(ctx, rest[1])
			if err != nil {
				return nil, err
			}
			end = start + n
		}
		for int64(len(self.Elements)) < end {
			self.Elements = append(self.Elements, object.NIL)
		}
		for i := start; i < end; i++ {
			if blk != nil {
				if self.Elements[i], err = ctx.CallProc(blk, integer(i)); err != nil {
					return nil, err
				}
				continue
			}
			self.Elements[i] = args[0]
		}
		return self, nil
	}
}

func fnArraySample() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		elems := selfArray(ctx).Elements
		if len(args) == 0 {
			if len(elems) == 0 {
				return object.NIL, nil
			}
			return elems[rand.IntN(len(elems))], nil
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		shuffled := slices.Clone(elems)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		return object.NewArray(shuffled[:min(int(n), len(shuffled))]...), nil
	}
}

func fnArrayShuffle() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		out := slices.Clone(selfArray(ctx).Elements)
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return object.NewArray(out...), nil
	}
}

func fnArrayProduct() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		rows := [][]object.Object{{}}
		lists := [][]object.Object{selfArray(ctx).Elements}
		for _, arg := range args {
			elems, err := arrayArg(ctx, arg)
			if err != nil {
				return nil, err
			}
			lists = append(lists, elems)
		}
		for _, list := range lists {
			var next [][]object.Object
			for _, row := range rows {
				for _, v := range list {
					next = append(next, append(slices.Clone(row), v))
				}
			}
			rows = next
		}
		out := make([]object.Object, len(rows))
		for i, row := range rows {
			out[i] = object.NewArray(row...)
		}
		return yieldEach(ctx, out)
	}
}

// fnArrayCombination enumerates combination(n), or permutation(n) with
// n defaulting to the array size.
func fnArrayCombination(ordered bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		elems := selfArray(ctx).Elements
		if !ordered {
			if err := checkArgs(ctx, args, 1, 1); err != nil {
				return nil, err
			}
		}
		k, err := intArg(ctx, args, 0, int64(len(elems)))
		if err != nil {
			return nil, err
		}
		var out []object.Object
		if k >= 0 && k <= int64(len(elems)) {
			used := make([]bool, len(elems))
			var pick []object.Object
			var walk func(from int)
			walk = func(from int) {
				if int64(len(pick)) == k {
					out = append(out, object.NewArray(slices.Clone(pick)...))
					return
				}
				for i := range elems {
					if used[i] || (!ordered && i < from) {
						continue
					}
					used[i] = true
					pick = append(pick, elems[i])
					walk(i + 1)
					pick = pick[:len(pick)-1]
					used[i] = false
				}
			}
			walk(0)
		}
		return yieldEach(ctx, out)
	}
}

func fnArrayTranspose() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		elems := selfArray(ctx).Elements
		if len(elems) == 0 {
			return object.NewArray(), nil
		}
		rows := make([][]object.Object, len(elems))
		for i, e := range elems {
			row, err := arrayArg(ctx, e)
			if err != nil {
				return nil, err
			}
			if i > 0 && len(row) != len(rows[0]) {
				return nil, ctx.NewError("IndexError", "element size differs (%d should be %d)", len(row), len(rows[0]))
			}
			rows[i] = row
		}
		out := make([]object.Object, len(rows[0]))
		for c := range out {
			col := make([]object.Object, len(rows))
			for r := range rows {
				col[r] = rows[r][c]
			}
			out[c] = object.NewArray(col...)
		}
		return object.NewArray(out...), nil
	}
}

func fnArrayAssoc() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		for _, e := range selfArray(ctx).Elements {
			pair, ok := e.(*object.Array)
			if !ok || len(pair.Elements) == 0 {
				continue
			}
			eq, err := ctx.Equal(pair.Elements[0], args[0])
			if err != nil {
				return nil, err
			}
			if eq {
				return pair, nil
			}
		}
		return object.NIL, nil
	}
}

// fnArrayBsearch is find-minimum mode: the first element for which the
// block is true, assuming the array is sorted by it.
func fnArrayBsearch() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		elems := selfArray(ctx).Elements
		low, high := 0, len(elems)
		for low < high {
			mid := (low + high) / 2
			out, err := ctx.CallProc(blk, elems[mid])
			if err != nil {
				return nil, err
			}
			if object.IsTruthy(out) {
				high = mid
			} else {
				low = mid + 1
			}
		}
		if low < len(elems) {
			return elems[low], nil
		}
		return object.NIL, nil
	}
}

func fnArrayKeepIf(keep bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		kept := []object.Object{}
		for _, v := range self.Elements {
			out, err := ctx.CallProc(blk, v)
			if err != nil {
				return nil, err
			}
			if object.IsTruthy(out) == keep {
				kept = append(kept, v)
			}
		}
		self.Elements = kept
		return self, nil
	}
}

// fnArrayBang runs the copying method and stores its result in the
// receiver.
func fnArrayBang(name string, nilIfSame bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutableArray(ctx)
		if err != nil {
			return nil, err
		}
		out, err := ctx.CallMethod(self, name, args, ctx.Block())
		if err != nil {
			return nil, err
		}
		result, err := arrayArg(ctx, out)
		if err != nil {
			return nil, err
		}
		same := len(result) == len(self.Elements)
		self.Elements = result
		if nilIfSame && same {
			return object.NIL, nil
		}
		return self, nil
	}
}
