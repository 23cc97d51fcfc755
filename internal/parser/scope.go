package parser

// scope tracks which names are local variables at a point of the program.
// Block scopes see their parent's locals; method, class and module bodies
// start empty.
type scope struct {
	names  map[string]bool
	parent *scope // lexically visible scope, nil for a fresh frame
	outer  *scope // scope to restore on pop
}

func newScope(parent, outer *scope) *scope {
	return &scope{names: map[string]bool{}, parent: parent, outer: outer}
}

func (s *scope) declare(name string) {
	s.names[name] = true
}

func (s *scope) isLocal(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.names[name] {
			return true
		}
	}
	return false
}

// pushScope opens a frame; blocks pass inherit so they keep seeing the
// enclosing locals.
func (p *Parser) pushScope(inherit bool) {
	var parent *scope
	if inherit {
		parent = p.scope
	}
	p.scope = newScope(parent, p.scope)
}

func (p *Parser) popScope() {
	p.scope = p.scope.outer
}
