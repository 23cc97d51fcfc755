package foreign

import (
	"slices"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerEnumerable(reg *registry.Registry) {
	reg.Method("Enumerable", fnEnumToA(), "to_a", "entries")
	reg.Method("Enumerable", fnEnumMap(), "map", "collect")
	reg.Method("Enumerable", fnEnumFlatMap(), "flat_map", "collect_concat")
	reg.Method("Enumerable", fnEnumSelect(true), "select", "filter", "find_all")
	reg.Method("Enumerable", fnEnumSelect(false), "reject")
	reg.Method("Enumerable", fnEnumFilterMap(), "filter_map")
	reg.Method("Enumerable", fnEnumFind(), "find", "detect")
	reg.Method("Enumerable", fnEnumFindIndex(), "find_index")
	reg.Method("Enumerable", fnEnumInclude(), "include?", "member?")
	reg.Method("Enumerable", fnEnumFirst(), "first")
	reg.Method("Enumerable", fnEnumCount(), "count")
	reg.Method("Enumerable", fnEnumEachWithIndex(), "each_with_index")
	reg.Method("Enumerable", fnEnumEachWithObject(), "each_with_object")
	reg.Method("Enumerable", fnEnumEachSlice(), "each_slice")
	reg.Method("Enumerable", fnEnumEachCons(), "each_cons")
	reg.Method("Enumerable", fnEnumReverseEach(), "reverse_each")
	reg.Method("Enumerable", fnEnumCycle(), "cycle")
	reg.Method("Enumerable", fnEnumInject(), "inject", "reduce")
	reg.Method("Enumerable", fnEnumSum(), "sum")
	reg.Method("Enumerable", fnEnumExtreme(-1), "min")
	reg.Method("Enumerable", fnEnumExtreme(1), "max")
	reg.Method("Enumerable", fnEnumExtremeBy(-1), "min_by")
	reg.Method("Enumerable", fnEnumExtremeBy(1), "max_by")
	reg.Method("Enumerable", fnEnumMinMax(), "minmax")
	reg.Method("Enumerable", fnEnumSort(), "sort")
	reg.Method("Enumerable", fnEnumSortBy(), "sort_by")
	reg.Method("Enumerable", fnEnumGroupBy(), "group_by")
	reg.Method("Enumerable", fnEnumPartition(), "partition")
	reg.Method("Enumerable", fnEnumChunkWhile(), "chunk_while")
	reg.Method("Enumerable", fnEnumTake(), "take")
	reg.Method("Enumerable", fnEnumTakeWhile(), "take_while")
	reg.Method("Enumerable", fnEnumDrop(), "drop")
	reg.Method("Enumerable", fnEnumDropWhile(), "drop_while")
	reg.Method("Enumerable", fnEnumQuantifier(quantAny), "any?")
	reg.Method("Enumerable", fnEnumQuantifier(quantAll), "all?")
	reg.Method("Enumerable", fnEnumQuantifier(quantNone), "none?")
	reg.Method("Enumerable", fnEnumQuantifier(quantOne), "one?")
	reg.Method("Enumerable", fnEnumUniq(), "uniq")
	reg.Method("Enumerable", fnEnumTally(), "tally")
	reg.Method("Enumerable", fnEnumZip(), "zip")
	reg.Method("Enumerable", fnEnumToH(), "to_h")
}

// each walks the elements of obj, stopping when fn asks to. Arrays, hashes
// and integer ranges are walked directly; anything else goes through its
// `each` method with a host block. Hash entries arrive as [key, value]
// pairs.
func each(ctx object.EvaluatorContext, obj object.Object, fn func(item object.Object) (stop bool, err error)) error {
	switch v := obj.(type) {
	case *object.Array:
		// indexing live so elements appended during iteration are visited
		for i := 0; i < len(v.Elements); i++ {
			if stop, err := fn(v.Elements[i]); stop || err != nil {
				return err
			}
		}
		return nil
	case *object.Hash:
		for _, pair := range v.Entries() {
			if stop, err := fn(object.NewArray(pair.Key, pair.Value)); stop || err != nil {
				return err
			}
		}
		return nil
	case *object.Range:
		if low, ok := v.Low.(*object.Integer); ok && isNil(v.High) {
			for i := low.Value; ; i++ {
				if stop, err := fn(integer(i)); stop || err != nil {
					return err
				}
			}
		}
		if low, high, ok := v.IntBounds(); ok {
			for i := low; i <= high; i++ {
				if stop, err := fn(integer(i)); stop || err != nil {
					return err
				}
			}
			return nil
		}
	}

	done := &object.Unwind{}
	blk := object.NewNativeProc(func(c object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		stop, err := fn(packArgs(args))
		if err != nil {
			return nil, err
		}
		if stop {
			return nil, done
		}
		return object.NIL, nil
	}, false)
	if _, err := ctx.CallMethod(obj, "each", nil, blk); err != nil && err != error(done) {
		return err
	}
	return nil
}

// packArgs turns the values yielded together into one element.
func packArgs(args []object.Object) object.Object {
	switch len(args) {
	case 0:
		return object.NIL
	case 1:
		return args[0]
	}
	return object.NewArray(args...)
}

// collect gathers the elements of obj into a slice.
func collect(ctx object.EvaluatorContext, obj object.Object) ([]object.Object, error) {
	if arr, ok := obj.(*object.Array); ok {
		return append([]object.Object(nil), arr.Elements...), nil
	}
	var out []object.Object
	err := each(ctx, obj, func(item object.Object) (bool, error) {
		out = append(out, item)
		return false, nil
	})
	return out, err
}

// sortValues sorts items stably with cmp, stopping at the first error.
func sortValues(items []object.Object, cmp func(a, b object.Object) (int, error)) error {
	var failed error
	slices.SortStableFunc(items, func(a, b object.Object) int {
		if failed != nil {
			return 0
		}
		c, err := cmp(a, b)
		if err != nil {
			failed = err
		}
		return c
	})
	return failed
}

// blockCompare orders by a comparator block returning an integer.
func blockCompare(ctx object.EvaluatorContext, blk *object.Proc) func(a, b object.Object) (int, error) {
	return func(a, b object.Object) (int, error) {
		out, err := ctx.CallProc(blk, a, b)
		if err != nil {
			return 0, err
		}
		i, ok := out.(*object.Integer)
		if !ok {
			return 0, ctx.NewError("ArgumentError", "comparison of %s with %s failed", className(ctx, a), className(ctx, b))
		}
		return int(i.Value), nil
	}
}

func fnEnumToA() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		return object.NewArray(items...), nil
	}
}

// Blockless forms of the iterating methods return the elements as an array,
// which stands in for an enumerator: `map.with_index` and
// `each_with_index.map` both work on it.
func fnEnumMap() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk := ctx.Block()
		var out []object.Object
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			if blk == nil {
				out = append(out, item)
				return false, nil
			}
			v, err := ctx.CallProc(blk, item)
			out = append(out, v)
			return false, err
		})
		if err != nil {
			return nil, err
		}
		return object.NewArray(out...), nil
	}
}

func fnEnumFlatMap() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		var out []object.Object
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			v, err := ctx.CallProc(blk, item)
			if arr, ok := v.(*object.Array); ok {
				out = append(out, arr.Elements...)
			} else if err == nil {
				out = append(out, v)
			}
			return false, err
		})
		if err != nil {
			return nil, err
		}
		return object.NewArray(out...), nil
	}
}

func fnEnumSelect(keep bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		var out []object.Object
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			v, err := ctx.CallProc(blk, item)
			if err == nil && object.IsTruthy(v) == keep {
				out = append(out, item)
			}
			return false, err
		})
		if err != nil {
			return nil, err
		}
		return object.NewArray(out...), nil
	}
}

func fnEnumFilterMap() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		var out []object.Object
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			v, err := ctx.CallProc(blk, item)
			if err == nil && object.IsTruthy(v) {
				out = append(out, v)
			}
			return false, err
		})
		if err != nil {
			return nil, err
		}
		return object.NewArray(out...), nil
	}
}

func fnEnumFind() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		var found object.Object = object.NIL
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			v, err := ctx.CallProc(blk, item)
			if err != nil || !object.IsTruthy(v) {
				return false, err
			}
			found = item
			return true, nil
		})
		return found, err
	}
}

func fnEnumFindIndex() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		blk := ctx.Block()
		if blk == nil && len(args) == 0 {
			return nil, ctx.NewError("ArgumentError", "find_index needs a block or an argument")
		}
		var found object.Object = object.NIL
		i := int64(0)
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			var hit bool
			if len(args) == 1 {
				eq, err := ctx.Equal(item, args[0])
				if err != nil {
					return false, err
				}
				hit = eq
			} else {
				v, err := ctx.CallProc(blk, item)
				if err != nil {
					return false, err
				}
				hit = object.IsTruthy(v)
			}
			if hit {
				found = integer(i)
				return true, nil
			}
			i++
			return false, nil
		})
		return found, err
	}
}

func fnEnumInclude() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		found := false
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			eq, err := ctx.Equal(item, args[0])
			found = eq
			return eq, err
		})
		return object.NativeBool(found), err
	}
}

func fnEnumFirst() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		if len(args) == 0 {
			var first object.Object = object.NIL
			err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
				first = item
				return true, nil
			})
			return first, err
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return takeN(ctx, ctx.Self(), n)
	}
}

func takeN(ctx object.EvaluatorContext, obj object.Object, n int64) (object.Object, error) {
	if n < 0 {
		return nil, ctx.NewError("ArgumentError", "attempt to take negative size")
	}
	out := []object.Object{}
	if n == 0 {
		return object.NewArray(), nil
	}
	err := each(ctx, obj, func(item object.Object) (bool, error) {
		out = append(out, item)
		return int64(len(out)) >= n, nil
	})
	return object.NewArray(out...), err
}

func fnEnumCount() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		blk := ctx.Block()
		n := int64(0)
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			switch {
			case len(args) == 1:
				eq, err := ctx.Equal(item, args[0])
				if err != nil {
					return false, err
				}
				if eq {
					n++
				}
			case blk != nil:
				v, err := ctx.CallProc(blk, item)
				if err != nil {
					return false, err
				}
				if object.IsTruthy(v) {
					n++
				}
			default:
				n++
			}
			return false, nil
		})
		return integer(n), err
	}
}

func fnEnumEachWithIndex() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk := ctx.Block()
		var pairs []object.Object
		i := int64(0)
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			defer func() { i++ }()
			if blk == nil {
				pairs = append(pairs, object.NewArray(item, integer(i)))
				return false, nil
			}
			_, err := ctx.CallProc(blk, item, integer(i))
			return false, err
		})
		if err != nil {
			return nil, err
		}
		if blk == nil {
			return object.NewArray(pairs...), nil
		}
		return ctx.Self(), nil
	}
}

func fnEnumEachWithObject() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		memo := args[0]
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			_, err := ctx.CallProc(blk, item, memo)
			return false, err
		})
		return memo, err
	}
}

func fnEnumEachSlice() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, ctx.NewError("ArgumentError", "invalid slice size")
		}
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		var groups []object.Object
		for start := 0; start < len(items); start += int(n) {
			end := min(start+int(n), len(items))
			groups = append(groups, object.NewArray(append([]object.Object(nil), items[start:end]...)...))
		}
		return yieldEach(ctx, groups)
	}
}

func fnEnumEachCons() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, ctx.NewError("ArgumentError", "invalid size")
		}
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		var windows []object.Object
		for start := 0; start+int(n) <= len(items); start++ {
			windows = append(windows, object.NewArray(append([]object.Object(nil), items[start:start+int(n)]...)...))
		}
		return yieldEach(ctx, windows)
	}
}

// yieldEach passes each group to the block and returns the receiver, or
// returns the groups when there is no block.
func yieldEach(ctx object.EvaluatorContext, groups []object.Object) (object.Object, error) {
	blk := ctx.Block()
	if blk == nil {
		return object.NewArray(groups...), nil
	}
	for _, g := range groups {
		if _, err := ctx.CallProc(blk, g); err != nil {
			return nil, err
		}
	}
	return ctx.Self(), nil
}

func fnEnumReverseEach() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		slices.Reverse(items)
		return yieldEach(ctx, items)
	}
}

// fnEnumCycle repeats the elements n times, or until the block breaks when
// n is nil.
func fnEnumCycle() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		items, err := collect(ctx, ctx.Self())
		if err != nil || len(items) == 0 {
			return object.NIL, err
		}
		rounds := int64(-1)
		if arg := optArg(args, 0); arg != nil && !isNil(arg) {
			if rounds, err = toInt(ctx, arg); err != nil {
				return nil, err
			}
		}
		for r := int64(0); rounds < 0 || r < rounds; r++ {
			for _, item := range items {
				if _, err := ctx.CallProc(blk, item); err != nil {
					return nil, err
				}
			}
		}
		return object.NIL, nil
	}
}

// fnEnumInject folds the elements: inject(sym), inject(init, sym),
// inject { } and inject(init) { }.
func fnEnumInject() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 2); err != nil {
			return nil, err
		}
		var acc object.Object
		var op string
		switch len(args) {
		case 2:
			name, err := toName(ctx, args[1])
			if err != nil {
				return nil, err
			}
			acc, op = args[0], name
		case 1:
			if s, ok := args[0].(*object.Symbol); ok && ctx.Block() == nil {
				op = s.Name
			} else {
				acc = args[0]
			}
		}
		blk := ctx.Block()
		if op == "" && blk == nil {
			return nil, ctx.NewError("LocalJumpError", "no block given")
		}
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			if acc == nil {
				acc = item
				return false, nil
			}
			var err error
			if op != "" {
				acc, err = ctx.CallMethod(acc, op, []object.Object{item}, nil)
			} else {
				acc, err = ctx.CallProc(blk, acc, item)
			}
			return false, err
		})
		if err != nil {
			return nil, err
		}
		if acc == nil {
			return object.NIL, nil
		}
		return acc, nil
	}
}

func fnEnumSum() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		var acc object.Object = integer(0)
		if len(args) == 1 {
			acc = args[0]
		}
		blk := ctx.Block()
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			if blk != nil {
				v, err := ctx.CallProc(blk, item)
				if err != nil {
					return false, err
				}
				item = v
			}
			if a, ok := acc.(*object.Integer); ok {
				if b, ok := item.(*object.Integer); ok {
					acc = integer(a.Value + b.Value)
					return false, nil
				}
			}
			var err error
			acc, err = ctx.CallMethod(acc, "+", []object.Object{item}, nil)
			return false, err
		})
		return acc, err
	}
}

// fnEnumExtreme is min (dir -1) and max (dir 1), with an optional count and
// comparator block.
func fnEnumExtreme(dir int) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		cmp := ctx.Compare
		if blk := ctx.Block(); blk != nil {
			cmp = blockCompare(ctx, blk)
		}
		if len(args) == 1 {
			n, err := toInt(ctx, args[0])
			if err != nil {
				return nil, err
			}
			if err := sortValues(items, func(a, b object.Object) (int, error) {
				c, err := cmp(a, b)
				return c * -dir, err
			}); err != nil {
				return nil, err
			}
			return object.NewArray(items[:min(int(n), len(items))]...), nil
		}
		if len(items) == 0 {
			return object.NIL, nil
		}
		best := items[0]
		for _, item := range items[1:] {
			c, err := cmp(item, best)
			if err != nil {
				return nil, err
			}
			if c*dir > 0 {
				best = item
			}
		}
		return best, nil
	}
}

func fnEnumExtremeBy(dir int) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		var best, bestKey object.Object = object.NIL, nil
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			key, err := ctx.CallProc(blk, item)
			if err != nil {
				return false, err
			}
			if bestKey == nil {
				best, bestKey = item, key
				return false, nil
			}
			c, err := ctx.Compare(key, bestKey)
			if err != nil {
				return false, err
			}
			if c*dir > 0 {
				best, bestKey = item, key
			}
			return false, nil
		})
		return best, err
	}
}

func fnEnumMinMax() object.ForeignFunction {
	minFn, maxFn := fnEnumExtreme(-1), fnEnumExtreme(1)
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		low, err := minFn(ctx)
		if err != nil {
			return nil, err
		}
		high, err := maxFn(ctx)
		if err != nil {
			return nil, err
		}
		return object.NewArray(low, high), nil
	}
}

func fnEnumSort() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		cmp := ctx.Compare
		if blk := ctx.Block(); blk != nil {
			cmp = blockCompare(ctx, blk)
		}
		if err := sortValues(items, cmp); err != nil {
			return nil, err
		}
		return object.NewArray(items...), nil
	}
}

// fnEnumSortBy computes each key once, then sorts by key.
func fnEnumSortBy() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		keyed := make([]object.Object, len(items))
		for i, item := range items {
			key, err := ctx.CallProc(blk, item)
			if err != nil {
				return nil, err
			}
			keyed[i] = object.NewArray(key, item)
		}
		if err := sortValues(keyed, func(a, b object.Object) (int, error) {
			return ctx.Compare(a.(*object.Array).Elements[0], b.(*object.Array).Elements[0])
		}); err != nil {
			return nil, err
		}
		for i, k := range keyed {
			items[i] = k.(*object.Array).Elements[1]
		}
		return object.NewArray(items...), nil
	}
}

func fnEnumGroupBy() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		groups := object.NewHash()
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			key, err := ctx.CallProc(blk, item)
			if err != nil {
				return false, err
			}
			if g, ok := groups.Get(key); ok {
				arr := g.(*object.Array)
				arr.Elements = append(arr.Elements, item)
			} else {
				groups.Set(key, object.NewArray(item))
			}
			return false, nil
		})
		return groups, err
	}
}

func fnEnumPartition() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		yes, no := object.NewArray(), object.NewArray()
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			v, err := ctx.CallProc(blk, item)
			if err != nil {
				return false, err
			}
			if object.IsTruthy(v) {
				yes.Elements = append(yes.Elements, item)
			} else {
				no.Elements = append(no.Elements, item)
			}
			return false, nil
		})
		return object.NewArray(yes, no), err
	}
}

// fnEnumChunkWhile splits between neighbours for which the block is false.
func fnEnumChunkWhile() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		items, err := collect(ctx, ctx.Self())
		if err != nil || len(items) == 0 {
			return object.NewArray(), err
		}
		chunks := []object.Object{object.NewArray(items[0])}
		for i := 1; i < len(items); i++ {
			v, err := ctx.CallProc(blk, items[i-1], items[i])
			if err != nil {
				return nil, err
			}
			if object.IsTruthy(v) {
				last := chunks[len(chunks)-1].(*object.Array)
				last.Elements = append(last.Elements, items[i])
			} else {
				chunks = append(chunks, object.NewArray(items[i]))
			}
		}
		return object.NewArray(chunks...), nil
	}
}

func fnEnumTake() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return takeN(ctx, ctx.Self(), n)
	}
}

func fnEnumTakeWhile() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		out := []object.Object{}
		err = each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			v, err := ctx.CallProc(blk, item)
			if err != nil || !object.IsTruthy(v) {
				return true, err
			}
			out = append(out, item)
			return false, nil
		})
		return object.NewArray(out...), err
	}
}

func fnEnumDrop() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, ctx.NewError("ArgumentError", "attempt to drop negative size")
		}
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		return object.NewArray(items[min(int(n), len(items)):]...), nil
	}
}

func fnEnumDropWhile() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		for i, item := range items {
			v, err := ctx.CallProc(blk, item)
			if err != nil {
				return nil, err
			}
			if !object.IsTruthy(v) {
				return object.NewArray(items[i:]...), nil
			}
		}
		return object.NewArray(), nil
	}
}

type quantifier int

const (
	quantAny quantifier = iota
	quantAll
	quantNone
	quantOne
)

// fnEnumQuantifier implements any?, all?, none? and one?. Each element is
// tested with the pattern argument (by ===), the block, or its truthiness.
func fnEnumQuantifier(q quantifier) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		blk := ctx.Block()
		test := func(item object.Object) (bool, error) {
			switch {
			case len(args) == 1:
				out, err := ctx.CallMethod(args[0], "===", []object.Object{item}, nil)
				return object.IsTruthy(out), err
			case blk != nil:
				out, err := ctx.CallProc(blk, item)
				return object.IsTruthy(out), err
			}
			return object.IsTruthy(item), nil
		}
		hits := 0
		result := q != quantAny
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			ok, err := test(item)
			if err != nil {
				return true, err
			}
			if ok {
				hits++
			}
			switch {
			case q == quantAny && ok:
				result = true
				return true, nil
			case q == quantAll && !ok, q == quantNone && ok:
				result = false
				return true, nil
			case q == quantOne && hits > 1:
				result = false
				return true, nil
			}
			return false, nil
		})
		if q == quantOne && result {
			result = hits == 1
		}
		return object.NativeBool(result), err
	}
}

func fnEnumUniq() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		out, err := uniqValues(ctx, items)
		if err != nil {
			return nil, err
		}
		return object.NewArray(out...), nil
	}
}

// uniqValues keeps the first element of each key, the key being the block
// result when there is a block.
func uniqValues(ctx object.EvaluatorContext, items []object.Object) ([]object.Object, error) {
	blk := ctx.Block()
	seen := object.NewHash()
	out := []object.Object{}
	for _, item := range items {
		key := item
		if blk != nil {
			k, err := ctx.CallProc(blk, item)
			if err != nil {
				return nil, err
			}
			key = k
		}
		if _, dup := seen.Get(key); dup {
			continue
		}
		seen.Set(key, object.TRUE)
		out = append(out, item)
	}
	return out, nil
}

func fnEnumTally() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		counts := object.NewHash()
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			n := int64(0)
			if v, ok := counts.Get(item); ok {
				n = v.(*object.Integer).Value
			}
			counts.Set(item, integer(n+1))
			return false, nil
		})
		return counts, err
	}
}

func fnEnumZip() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		items, err := collect(ctx, ctx.Self())
		if err != nil {
			return nil, err
		}
		others := make([][]object.Object, len(args))
		for i, arg := range args {
			if others[i], err = collect(ctx, arg); err != nil {
				return nil, err
			}
		}
		rows := make([]object.Object, len(items))
		for i, item := range items {
			row := []object.Object{item}
			for _, other := range others {
				if i < len(other) {
					row = append(row, other[i])
				} else {
					row = append(row, object.NIL)
				}
			}
			rows[i] = object.NewArray(row...)
		}
		if blk := ctx.Block(); blk != nil {
			for _, row := range rows {
				if _, err := ctx.CallProc(blk, row); err != nil {
					return nil, err
				}
			}
			return object.NIL, nil
		}
		return object.NewArray(rows...), nil
	}
}

func fnEnumToH() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk := ctx.Block()
		h := object.NewHash()
		err := each(ctx, ctx.Self(), func(item object.Object) (bool, error) {
			if blk != nil {
				v, err := ctx.CallProc(blk, item)
				if err != nil {
					return false, err
				}
				item = v
			}
			pair, ok := item.(*object.Array)
			if !ok {
				return false, ctx.NewError("TypeError", "wrong element type %s (expected array)", className(ctx, item))
			}
			if len(pair.Elements) != 2 {
				return false, ctx.NewError("ArgumentError", "element has wrong array length (expected 2, was %d)", len(pair.Elements))
			}
			h.Set(hashKey(ctx, pair.Elements[0]), pair.Elements[1])
			return false, nil
		})
		return h, err
	}
}

// hashKey freezes a copy of string keys, so later mutation of the original
// cannot change the key.
func hashKey(ctx object.EvaluatorContext, key object.Object) object.Object {
	if s, ok := key.(*object.String); ok && !ctx.Root().IsFrozen(s) {
		copied := str(s.Value)
		ctx.Root().Freeze(copied)
		return copied
	}
	return key
}
