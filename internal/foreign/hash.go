package foreign

import (
	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerHash(reg *registry.Registry) {
	reg.StaticMethod("Hash", fnHashNew(), "new")

	reg.Method("Hash", fnHashGet(), "[]")
	reg.Method("Hash", fnHashSet(), "[]=", "store")
	reg.Method("Hash", fnHashFetch(), "fetch")
	reg.Method("Hash", fnDig(), "dig")
	reg.Method("Hash", fnHashHasKey(), "key?", "has_key?", "include?", "member?")
	reg.Method("Hash", fnHashHasValue(), "value?", "has_value?")
	reg.Method("Hash", fnHashKey(), "key")
	reg.Method("Hash", fnHashKeys(), "keys")
	reg.Method("Hash", fnHashValues(), "values")
	reg.Method("Hash", fnHashValuesAt(false), "values_at")
	reg.Method("Hash", fnHashValuesAt(true), "fetch_values")
	reg.Method("Hash", fnHashLength(), "length", "size")
	reg.Method("Hash", fnHashEmpty(), "empty?")
	reg.Method("Hash", fnValueEqual(), "==", "eql?")
	reg.Method("Hash", fnValueInspect(), "inspect", "to_s")
	reg.Method("Hash", fnHashToA(), "to_a")
	reg.Method("Hash", fnHashToH(), "to_h")
	reg.Method("Hash", fnHashEach(), "each", "each_pair")
	reg.Method("Hash", fnHashEachPart(true), "each_key")
	reg.Method("Hash", fnHashEachPart(false), "each_value")
	reg.Method("Hash", fnHashDelete(), "delete")
	reg.Method("Hash", fnHashFilter(true, false), "select", "filter")
	reg.Method("Hash", fnHashFilter(false, false), "reject")
	reg.Method("Hash", fnHashFilter(true, true), "keep_if", "select!", "filter!")
	reg.Method("Hash", fnHashFilter(false, true), "delete_if", "reject!")
	reg.Method("Hash", fnHashMerge(false), "merge")
	reg.Method("Hash", fnHashMerge(true), "merge!", "update")
	reg.Method("Hash", fnHashTransform(false, false), "transform_values")
	reg.Method("Hash", fnHashTransform(false, true), "transform_values!")
	reg.Method("Hash", fnHashTransform(true, false), "transform_keys")
	reg.Method("Hash", fnHashTransform(true, true), "transform_keys!")
	reg.Method("Hash", fnHashInvert(), "invert")
	reg.Method("Hash", fnHashSlice(true), "slice")
	reg.Method("Hash", fnHashSlice(false), "except")
	reg.Method("Hash", fnHashCompact(), "compact")
	reg.Method("Hash", fnHashShift(), "shift")
	reg.Method("Hash", fnHashAssoc(), "assoc")
	reg.Method("Hash", fnHashClear(), "clear")
	reg.Method("Hash", fnHashReplace(), "replace")
	reg.Method("Hash", fnHashDefault(), "default")
	reg.Method("Hash", fnHashSetDefault(), "default=")
	reg.Method("Hash", fnHashDefaultProc(), "default_proc")
}

func selfHash(ctx object.EvaluatorContext) *object.Hash {
	return ctx.Self().(*object.Hash)
}

func mutableHash(ctx object.EvaluatorContext) (*object.Hash, error) {
	self := selfHash(ctx)
	return self, checkFrozen(ctx, self)
}

// fnHashNew is Hash.new(default) or Hash.new { |hash, key| }.
func fnHashNew() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		h := object.NewHash()
		if blk := ctx.Block(); blk != nil {
			if len(args) > 0 {
				return nil, ctx.NewError("ArgumentError", "wrong number of arguments (given 1, expected 0)")
			}
			h.DefaultProc = blk
		} else if len(args) == 1 {
			h.Default = args[0]
		}
		return h, nil
	}
}

// lookup answers the value for key, falling back to the default proc and
// then the default value.
func lookup(ctx object.EvaluatorContext, h *object.Hash, key object.Object) (object.Object, error) {
	if v, ok := h.Get(key); ok {
		return v, nil
	}
	if h.DefaultProc != nil {
		return ctx.CallProc(h.DefaultProc, h, key)
	}
	if h.Default != nil {
		return h.Default, nil
	}
	return object.NIL, nil
}

func fnHashGet() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		return lookup(ctx, selfHash(ctx), args[0])
	}
}

func fnHashSet() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		self, err := mutableHash(ctx)
		if err != nil {
			return nil, err
		}
		self.Set(hashKey(ctx, args[0]), args[1])
		return args[1], nil
	}
}

func keyError(ctx object.EvaluatorContext, key object.Object) error {
	inspected, err := ctx.Inspect(key)
	if err != nil {
		return err
	}
	return ctx.NewError("KeyError", "key not found: %s", inspected)
}

func fnHashFetch() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		if v, ok := selfHash(ctx).Get(args[0]); ok {
			return v, nil
		}
		if blk := ctx.Block(); blk != nil {
			return ctx.CallProc(blk, args[0])
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return nil, keyError(ctx, args[0])
	}
}

func fnHashHasKey() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		_, ok := selfHash(ctx).Get(args[0])
		return object.NativeBool(ok), nil
	}
}

// findValue answers the first key whose value equals v.
func findValue(ctx object.EvaluatorContext, h *object.Hash, v object.Object) (object.Object, error) {
	for _, pair := range h.Entries() {
		eq, err := ctx.Equal(pair.Value, v)
		if err != nil {
			return nil, err
		}
		if eq {
			return pair.Key, nil
		}
	}
	return nil, nil
}

func fnHashHasValue() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		key, err := findValue(ctx, selfHash(ctx), args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(key != nil), nil
	}
}

func fnHashKey() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		key, err := findValue(ctx, selfHash(ctx), args[0])
		if err != nil || key == nil {
			return object.NIL, err
		}
		return key, nil
	}
}

func fnHashKeys() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		entries := selfHash(ctx).Entries()
		out := make([]object.Object, len(entries))
		for i, pair := range entries {
			out[i] = pair.Key
		}
		return object.NewArray(out...), nil
	}
}

func fnHashValues() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		entries := selfHash(ctx).Entries()
		out := make([]object.Object, len(entries))
		for i, pair := range entries {
			out[i] = pair.Value
		}
		return object.NewArray(out...), nil
	}
}

func fnHashValuesAt(strict bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self := selfHash(ctx)
		out := make([]object.Object, len(args))
		for i, key := range args {
			if strict {
				v, ok := self.Get(key)
				if !ok {
					if blk := ctx.Block(); blk != nil {
						var err error
						if v, err = ctx.CallProc(blk, key); err != nil {
							return nil, err
						}
					} else {
						return nil, keyError(ctx, key)
					}
				}
				out[i] = v
				continue
			}
			v, err := lookup(ctx, self, key)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return object.NewArray(out...), nil
	}
}

func fnHashLength() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(int64(selfHash(ctx).Len())), nil
	}
}

func fnHashEmpty() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(selfHash(ctx).Len() == 0), nil
	}
}

func pairs(h *object.Hash) []object.Object {
	entries := h.Entries()
	out := make([]object.Object, len(entries))
	for i, pair := range entries {
		out[i] = object.NewArray(pair.Key, pair.Value)
	}
	return out
}

func fnHashToA() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NewArray(pairs(selfHash(ctx))...), nil
	}
}

// fnHashToH copies the pairs, or maps them through the block.
func fnHashToH() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if ctx.Block() != nil {
			return fnEnumToH()(ctx, args...)
		}
		return copyHash(selfHash(ctx)), nil
	}
}

func copyHash(h *object.Hash) *object.Hash {
	out := object.NewHash()
	for _, pair := range h.Entries() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

func fnHashEach() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk := ctx.Block()
		if blk == nil {
			return object.NewArray(pairs(selfHash(ctx))...), nil
		}
		for _, pair := range selfHash(ctx).Entries() {
			if _, err := ctx.CallProc(blk, object.NewArray(pair.Key, pair.Value)); err != nil {
				return nil, err
			}
		}
		return ctx.Self(), nil
	}
}

func fnHashEachPart(keys bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		entries := selfHash(ctx).Entries()
		parts := make([]object.Object, len(entries))
		for i, pair := range entries {
			parts[i] = pair.Value
			if keys {
				parts[i] = pair.Key
			}
		}
		return yieldEach(ctx, parts)
	}
}

func fnHashDelete() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		self, err := mutableHash(ctx)
		if err != nil {
			return nil, err
		}
		if v, ok := self.Delete(args[0]); ok {
			return v, nil
		}
		if blk := ctx.Block(); blk != nil {
			return ctx.CallProc(blk, args[0])
		}
		return object.NIL, nil
	}
}

// fnHashFilter keeps the pairs the block accepts (or rejects), building a
// new hash or editing the receiver in place.
func fnHashFilter(keep, inPlace bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		blk, err := requireBlock(ctx)
		if err != nil {
			return nil, err
		}
		self := selfHash(ctx)
		if inPlace {
			if err := checkFrozen(ctx, self); err != nil {
				return nil, err
			}
		}
		out := object.NewHash()
		for _, pair := range self.Entries() {
			res, err := ctx.CallProc(blk, object.NewArray(pair.Key, pair.Value))
			if err != nil {
				return nil, err
			}
			if object.IsTruthy(res) == keep {
				out.Set(pair.Key, pair.Value)
			} else if inPlace {
				self.Delete(pair.Key)
			}
		}
		if inPlace {
			return self, nil
		}
		return out, nil
	}
}

// fnHashMerge merges each argument in turn; the block resolves conflicts
// as |key, old, new|.
func fnHashMerge(inPlace bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		target := selfHash(ctx)
		if inPlace {
			if err := checkFrozen(ctx, target); err != nil {
				return nil, err
			}
		} else {
			target = copyHash(target)
			target.Default, target.DefaultProc = selfHash(ctx).Default, selfHash(ctx).DefaultProc
		}
		blk := ctx.Block()
		for _, arg := range args {
			other, ok := arg.(*object.Hash)
			if !ok {
				return nil, typeError(ctx, arg, "Hash")
			}
			for _, pair := range other.Entries() {
				v := pair.Value
				if old, exists := target.Get(pair.Key); exists && blk != nil {
					var err error
					if v, err = ctx.CallProc(blk, pair.Key, old, pair.Value); err != nil {
						return nil, err
					}
				}
				target.Set(pair.Key, v)
			}
		}
		return target, nil
	}
}

// fnHashTransform maps keys or values through the block, or keys through
// a renaming hash.
func fnHashTransform(keys, inPlace bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		self := selfHash(ctx)
		if inPlace {
			if err := checkFrozen(ctx, self); err != nil {
				return nil, err
			}
		}
		var mapping *object.Hash
		if keys && len(args) == 1 {
			m, ok := args[0].(*object.Hash)
			if !ok {
				return nil, typeError(ctx, args[0], "Hash")
			}
			mapping = m
		}
		blk := ctx.Block()
		if blk == nil && mapping == nil {
			return nil, ctx.NewError("LocalJumpError", "no block given (yield)")
		}
		out := object.NewHash()
		for _, pair := range self.Entries() {
			subject := pair.Value
			if keys {
				subject = pair.Key
			}
			var mapped object.Object
			if renamed, ok := lookupMapping(mapping, subject); ok {
				mapped = renamed
			} else if blk != nil {
				var err error
				if mapped, err = ctx.CallProc(blk, subject); err != nil {
					return nil, err
				}
			} else {
				mapped = subject
			}
			if keys {
				out.Set(hashKey(ctx, mapped), pair.Value)
			} else {
				out.Set(pair.Key, mapped)
			}
		}
		if inPlace {
			replaceHash(self, out)
			return self, nil
		}
		return out, nil
	}
}

func lookupMapping(mapping *object.Hash, key object.Object) (object.Object, bool) {
	if mapping == nil {
		return nil, false
	}
	return mapping.Get(key)
}

// replaceHash empties dst and refills it from src, keeping src's order.
func replaceHash(dst, src *object.Hash) {
	for _, pair := range dst.Entries() {
		dst.Delete(pair.Key)
	}
	for _, pair := range src.Entries() {
		dst.Set(pair.Key, pair.Value)
	}
}

func fnHashInvert() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		out := object.NewHash()
		for _, pair := range selfHash(ctx).Entries() {
			out.Set(hashKey(ctx, pair.Value), pair.Key)
		}
		return out, nil
	}
}

// fnHashSlice keeps only the named keys, or all but them.
func fnHashSlice(only bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		named := object.NewHash()
		for _, key := range args {
			named.Set(key, object.TRUE)
		}
		self := selfHash(ctx)
		out := object.NewHash()
		if only {
			for _, key := range args {
				if v, ok := self.Get(key); ok {
					out.Set(key, v)
				}
			}
			return out, nil
		}
		for _, pair := range self.Entries() {
			if _, drop := named.Get(pair.Key); !drop {
				out.Set(pair.Key, pair.Value)
			}
		}
		return out, nil
	}
}

func fnHashCompact() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		out := object.NewHash()
		for _, pair := range selfHash(ctx).Entries() {
			if !isNil(pair.Value) {
				out.Set(pair.Key, pair.Value)
			}
		}
		return out, nil
	}
}

func fnHashShift() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutableHash(ctx)
		if err != nil {
			return nil, err
		}
		entries := self.Entries()
		if len(entries) == 0 {
			return object.NIL, nil
		}
		self.Delete(entries[0].Key)
		return object.NewArray(entries[0].Key, entries[0].Value), nil
	}
}

func fnHashAssoc() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		if v, ok := selfHash(ctx).Get(args[0]); ok {
			return object.NewArray(args[0], v), nil
		}
		return object.NIL, nil
	}
}

func fnHashClear() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutableHash(ctx)
		if err != nil {
			return nil, err
		}
		replaceHash(self, object.NewHash())
		return self, nil
	}
}

func fnHashReplace() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		self, err := mutableHash(ctx)
		if err != nil {
			return nil, err
		}
		other, ok := args[0].(*object.Hash)
		if !ok {
			return nil, typeError(ctx, args[0], "Hash")
		}
		replaceHash(self, copyHash(other))
		return self, nil
	}
}

func fnHashDefault() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if d := selfHash(ctx).Default; d != nil {
			return d, nil
		}
		return object.NIL, nil
	}
}

func fnHashSetDefault() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		self, err := mutableHash(ctx)
		if err != nil {
			return nil, err
		}
		self.Default, self.DefaultProc = args[0], nil
		return args[0], nil
	}
}

func fnHashDefaultProc() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if p := selfHash(ctx).DefaultProc; p != nil {
			return p, nil
		}
		return object.NIL, nil
	}
}
