// Package foreign is the core library: host functions for the built-in
// classes, registered into a registry.Registry by type and method name.
package foreign

import (
	"reflect"
	"time"

	"garnet/internal/registry"
)

// NativeType describes a host type the machine declares at startup. Its
// methods are the registry entries filed under Name.
type NativeType struct {
	Name   string
	GoType reflect.Type
}

// NativeTypes lists the host types this package provides methods for.
func NativeTypes() []NativeType {
	return []NativeType{
		{Name: "Time", GoType: reflect.TypeOf(time.Time{})},
		{Name: "Sql::Database", GoType: reflect.TypeOf(&Database{})},
		{Name: "File"},
	}
}

// ErrorClass is an exception class the library raises beyond the core
// hierarchy. The machine defines these at startup.
type ErrorClass struct {
	Name   string
	Parent string
}

func ErrorClasses() []ErrorClass {
	return []ErrorClass{{Name: "SQLError", Parent: "StandardError"}}
}

// Register installs the whole core library.
func Register(reg *registry.Registry) {
	registerKernel(reg)
	registerObject(reg)
	registerModule(reg)
	registerException(reg)
	registerComparable(reg)
	registerEnumerable(reg)
	registerNumeric(reg)
	registerString(reg)
	registerSymbol(reg)
	registerArray(reg)
	registerHash(reg)
	registerRange(reg)
	registerProc(reg)
	registerTime(reg)
	registerSQL(reg)
	registerFile(reg)
	registerDigest(reg)
}
