// Package registry maps method names to host functions. Entries are keyed
// by the script type they extend; entries without a type form the global
// bucket consulted after every typed lookup fails.
package registry

import (
	"sort"

	"garnet/internal/object"
)

// Entry registers one host function under one or more names. Types lists the
// script type names it extends (empty means global). Static entries are
// class-side methods, called on the class object itself.
type Entry struct {
	Names  []string
	Types  []string
	Static bool
	Fn     object.ForeignFunction
}

type key struct {
	typ    string
	name   string
	static bool
}

type Registry struct {
	methods map[key]object.ForeignFunction
	globals map[string]object.ForeignFunction
	byType  map[string]map[string]bool
}

func New() *Registry {
	return &Registry{
		methods: map[key]object.ForeignFunction{},
		globals: map[string]object.ForeignFunction{},
		byType:  map[string]map[string]bool{},
	}
}

// Register adds e, replacing any previous entry with the same key.
func (r *Registry) Register(e Entry) {
	if len(e.Types) == 0 {
		for _, name := range e.Names {
			r.globals[name] = e.Fn
		}
		return
	}
	for _, typ := range e.Types {
		names := r.byType[typ]
		if names == nil {
			names = map[string]bool{}
			r.byType[typ] = names
		}
		for _, name := range e.Names {
			r.methods[key{typ: typ, name: name, static: e.Static}] = e.Fn
			names[name] = true
		}
	}
}

// Func registers global functions such as `puts`.
func (r *Registry) Func(fn object.ForeignFunction, names ...string) {
	r.Register(Entry{Names: names, Fn: fn})
}

// Method registers instance methods of typeName.
func (r *Registry) Method(typeName string, fn object.ForeignFunction, names ...string) {
	r.Register(Entry{Names: names, Types: []string{typeName}, Fn: fn})
}

// StaticMethod registers class-side methods of typeName.
func (r *Registry) StaticMethod(typeName string, fn object.ForeignFunction, names ...string) {
	r.Register(Entry{Names: names, Types: []string{typeName}, Static: true, Fn: fn})
}

func (r *Registry) Lookup(typeName, name string) (object.ForeignFunction, bool) {
	fn, ok := r.methods[key{typ: typeName, name: name}]
	return fn, ok
}

func (r *Registry) LookupStatic(typeName, name string) (object.ForeignFunction, bool) {
	fn, ok := r.methods[key{typ: typeName, name: name, static: true}]
	return fn, ok
}

func (r *Registry) LookupGlobal(name string) (object.ForeignFunction, bool) {
	fn, ok := r.globals[name]
	return fn, ok
}

// Names lists the method names registered for typeName, sorted. An empty
// typeName lists the global bucket.
func (r *Registry) Names(typeName string) []string {
	var names []string
	if typeName == "" {
		for name := range r.globals {
			names = append(names, name)
		}
	} else {
		for name := range r.byType[typeName] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Types lists every type name that has entries, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.byType))
	for typ := range r.byType {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
