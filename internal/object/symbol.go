package object

import (
	"strconv"
	"sync"
	"unicode"
)

// Symbol values are interned: one *Symbol per name for the whole process,
// so identity comparison is name comparison.
type Symbol struct {
	Name string
	id   uint64
}

func (s *Symbol) Type() ObjectType { return SYMBOL_OBJ }

func (s *Symbol) Inspect() string {
	if plainSymbol(s.Name) {
		return ":" + s.Name
	}
	return ":" + strconv.Quote(s.Name)
}

func (s *Symbol) MapKey() MapKey { return MapKey{Type: s.Type(), Value: s.id} }

// symbols never shrinks; names are few and shared by every machine.
var symbols = struct {
	sync.Mutex
	byName map[string]*Symbol
}{byName: map[string]*Symbol{}}

func InternSymbol(name string) *Symbol {
	symbols.Lock()
	defer symbols.Unlock()
	if s, ok := symbols.byName[name]; ok {
		return s
	}
	s := &Symbol{Name: name, id: uint64(len(symbols.byName) + 1)}
	symbols.byName[name] = s
	return s
}

var operatorNames = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "**": true,
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"<=>": true, "===": true, "=~": true, "[]": true, "[]=": true,
	"<<": true, ">>": true, "!": true, "&": true, "|": true, "^": true, "~": true,
}

// plainSymbol reports whether name prints without quotes: an operator, a
// variable name, or an identifier optionally ending in ?, ! or =.
func plainSymbol(name string) bool {
	if operatorNames[name] {
		return true
	}
	runes := []rune(name)
	switch {
	case len(runes) > 2 && string(runes[:2]) == "@@":
		runes = runes[2:]
	case len(runes) > 1 && (runes[0] == '@' || runes[0] == '$'):
		runes = runes[1:]
	}
	if len(runes) == 0 {
		return false
	}
	if last := runes[len(runes)-1]; len(runes) > 1 && (last == '?' || last == '!' || last == '=') {
		runes = runes[:len(runes)-1]
	}
	for i, r := range runes {
		word := r == '_' || unicode.IsLetter(r) || unicode.In(r, unicode.Mn, unicode.Mc)
		if !word && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
