package evaluator

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"garnet/internal/object"
)

// resolved is the outcome of a method lookup: a method-table entry or a
// registry function.
type resolved struct {
	method *object.Method
	fn     object.ForeignFunction
	owner  *object.DynamicClass
}

// lookupChain lists the classes consulted for calls on recv, in order.
// Class objects look through their singleton chain (which mirrors the
// superclass chain) before Class, Module and Object.
func (e *Evaluator) lookupChain(recv object.Object) []*object.DynamicClass {
	if cls, ok := recv.(*object.DynamicClass); ok {
		chain := object.SingletonOf(cls, true).Ancestors()
		return append(chain, e.ClassOf(recv).Ancestors()...)
	}
	if s := object.SingletonOf(recv, false); s != nil {
		return s.Ancestors()
	}
	return e.ClassOf(recv).Ancestors()
}

// findMethod resolves name for recv. At each class the method table wins
// over registry entries for that class; the registry's global bucket comes
// last. With after set, lookup resumes behind that class's own methods, as
// `super` requires.
func (e *Evaluator) findMethod(recv object.Object, name string, after *object.DynamicClass) (resolved, bool) {
	passed := after == nil
	for _, c := range e.lookupChain(recv) {
		if passed {
			if m, ok := c.Methods[name]; ok {
				return resolved{method: m, owner: c}, true
			}
		} else if c == after {
			passed = true
		} else {
			continue
		}
		if fn, ok := e.registryLookup(c, name); ok {
			return resolved{fn: fn, owner: c}, true
		}
	}
	if !passed {
		return resolved{}, false
	}
	if fn, ok := e.Registry.LookupGlobal(name); ok {
		return resolved{fn: fn}, true
	}
	return resolved{}, false
}

func (e *Evaluator) registryLookup(c *object.DynamicClass, name string) (object.ForeignFunction, bool) {
	if c.IsSingleton {
		if attached, ok := c.Attached.(*object.DynamicClass); ok && attached.Name != "" {
			return e.Registry.LookupStatic(attached.Name, name)
		}
		return nil, false
	}
	if c.Name == "" {
		return nil, false
	}
	return e.Registry.Lookup(c.Name, name)
}

func (e *Evaluator) respondTo(recv object.Object, name string, includePrivate bool) bool {
	r, ok := e.findMethod(recv, name, nil)
	if !ok {
		return false
	}
	return includePrivate || r.method == nil || r.method.Visibility != object.Private
}

// send dispatches name on recv. privateOK is set for receiverless calls and
// calls on `self`.
func (e *Evaluator) send(ctx *object.Context, recv object.Object, name string, args []object.Object, block *object.Proc, privateOK bool, pos int) (object.Object, error) {
	r, ok := e.findMethod(recv, name, nil)
	if ok && r.method != nil && !privateOK {
		switch r.method.Visibility {
		case object.Private:
			return nil, e.errorAt(pos, "NoMethodError", "private method '%s' called for %s", name, e.describe(recv))
		case object.Protected:
			if !e.IsA(ctx.Self, r.method.Owner) {
				return nil, e.errorAt(pos, "NoMethodError", "protected method '%s' called for %s", name, e.describe(recv))
			}
		}
	}
	if !ok {
		return e.methodMissing(ctx, recv, name, args, block, pos)
	}
	return e.invoke(ctx, r, recv, name, args, block, pos)
}

// methodMissing forwards to a script-defined method_missing. The per-root
// guard stops a method_missing that itself calls the missing name from
// recursing forever.
func (e *Evaluator) methodMissing(ctx *object.Context, recv object.Object, name string, args []object.Object, block *object.Proc, pos int) (object.Object, error) {
	root := ctx.Root()
	if r, ok := e.findMethod(recv, "method_missing", nil); ok && root.EnterMissing(name) {
		defer root.LeaveMissing(name)
		full := append([]object.Object{object.InternSymbol(name)}, args...)
		return e.invoke(ctx, r, recv, "method_missing", full, block, pos)
	}
	return nil, e.noMethod(recv, name, pos)
}

func (e *Evaluator) noMethod(recv object.Object, name string, pos int) error {
	msg := "undefined method '" + name + "' for " + e.describe(recv)
	if hint := closest(name, e.methodNames(recv)); hint != "" {
		msg += "\nDid you mean?  " + hint
	}
	return e.errorAt(pos, "NoMethodError", "%s", msg)
}

// describe names a receiver the way error messages do.
func (e *Evaluator) describe(recv object.Object) string {
	switch o := recv.(type) {
	case *object.Nil:
		return "nil"
	case *object.Boolean:
		return o.Inspect()
	case *object.DynamicClass:
		if o.IsModule {
			return "module " + o.Inspect()
		}
		return "class " + o.Inspect()
	}
	if recv == e.root.Self {
		return "main:Object"
	}
	return "an instance of " + e.ClassOf(recv).Name
}

// methodNames lists every method callable on recv, for suggestions.
func (e *Evaluator) methodNames(recv object.Object) []string {
	seen := map[string]bool{}
	for _, c := range e.lookupChain(recv) {
		for name := range c.Methods {
			seen[name] = true
		}
		if c.IsSingleton {
			if attached, ok := c.Attached.(*object.DynamicClass); ok {
				for _, name := range e.Registry.Names(attached.Name) {
					seen[name] = true
				}
			}
		} else if c.Name != "" {
			for _, name := range e.Registry.Names(c.Name) {
				seen[name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names
}

// closest returns the candidate nearest to needle, if any is near enough to
// be a plausible typo.
func closest(needle string, candidates []string) string {
	sort.Strings(candidates)
	best, bestDistance := "", len(needle)/3+1
	for _, c := range candidates {
		if c == needle {
			continue
		}
		d := levenshtein.DistanceForStrings(
			[]rune(strings.ToLower(needle)),
			[]rune(strings.ToLower(c)),
			levenshtein.DefaultOptionsWithSub,
		)
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}
