package parser

import (
	"garnet/internal/ast"
	"garnet/internal/token"
)

// blocks and parameters

func (p *Parser) parseBlock(open token.Token) *ast.BlockLiteral {
	p.pushScope(true)
	defer p.popScope()

	block := &ast.BlockLiteral{Token: open}
	if _, ok := p.accept(token.LOGICAL_OR); !ok {
		if _, ok := p.accept(token.BITWISE_OR); ok {
			block.Parameters = p.parseParameters(token.BITWISE_OR)
		}
	}
	block.Body = p.parseClosureBody(open)
	return block
}

// parseClosureBody parses the body after `{` or `do`, consuming the closer.
func (p *Parser) parseClosureBody(open token.Token) ast.Expression {
	if open.Type == token.LBRACE {
		body := p.parseBody(token.RBRACE)
		p.expect(token.RBRACE, "'}'")
		return body
	}
	return p.parseBodyWithRescue(open)
}

// parseParameters reads a parameter list up to closer. An empty closer is
// the unparenthesized form of `def name a, b`, which ends with the line.
func (p *Parser) parseParameters(closer token.TokenType) []*ast.Parameter {
	savedPipe := p.noPipe
	p.noPipe = closer == token.BITWISE_OR
	defer func() { p.noPipe = savedPipe }()

	var params []*ast.Parameter
	seen := map[string]bool{}
	for {
		if closer != "" {
			p.skipNewlines()
			if _, ok := p.accept(closer); ok {
				return params
			}
		} else if tok := p.peek(); isTerm(tok.Type) || tok.Type == token.LBRACE || tok.Type == token.DO {
			return params
		}

		nameTok, param := p.parseParameter()
		if seen[param.Name] {
			p.fail(nameTok, "duplicated argument name %s", param.Name)
		}
		seen[param.Name] = true
		p.scope.declare(param.Name)
		params = append(params, param)

		if _, ok := p.accept(token.COMMA); !ok {
			if closer != "" {
				p.skipNewlines()
				p.expect(closer, "','")
			}
			return params
		}
		p.skipNewlines()
	}
}

func (p *Parser) parseParameter() (token.Token, *ast.Parameter) {
	tok := p.next()
	switch tok.Type {
	case token.ASTERISK:
		name := p.expect(token.NAME, "rest parameter name")
		return name, &ast.Parameter{Name: name.Literal, Kind: ast.RestParam}
	case token.POW:
		name := p.expect(token.NAME, "keyword rest parameter name")
		return name, &ast.Parameter{Name: name.Literal, Kind: ast.KeywordRestParam}
	case token.BITWISE_AND:
		name := p.expect(token.NAME, "block parameter name")
		return name, &ast.Parameter{Name: name.Literal, Kind: ast.BlockParam}
	case token.LABEL:
		param := &ast.Parameter{Name: tok.Literal, Kind: ast.KeywordParam}
		switch next := p.peek(); {
		case next.Type == token.COMMA, isTerm(next.Type), next.Type == token.RPAREN, next.Type == token.BITWISE_OR:
		default:
			param.Default = p.parseTernary()
		}
		return tok, param
	case token.NAME:
		if isConstantName(tok.Literal) {
			p.fail(tok, "formal argument cannot be a constant")
		}
		param := &ast.Parameter{Name: tok.Literal, Kind: ast.RequiredParam}
		if _, ok := p.accept(token.ASSIGN); ok {
			param.Kind = ast.OptionalParam
			param.Default = p.parseTernary()
		}
		return tok, param
	}
	p.unexpected(tok, "parameter name")
	return tok, nil
}

func (p *Parser) parseStabbyLambda(tok token.Token) ast.Expression {
	p.pushScope(true)
	defer p.popScope()

	block := &ast.BlockLiteral{Token: tok}
	if lp := p.peek(); lp.Type == token.LPAREN {
		p.next()
		block.Parameters = p.parseParameters(token.RPAREN)
	} else {
		block.Parameters = p.parseParameters("")
	}
	open := p.next()
	if open.Type != token.LBRACE && open.Type != token.DO {
		p.unexpected(open, "'{' or 'do'")
	}
	block.Token = open
	block.Body = p.parseClosureBody(open)
	return &ast.ProcLiteral{Token: tok, Block: block, Lambda: true}
}

func (p *Parser) parseProcLiteral(tok token.Token) ast.Expression {
	block := p.parseOptionalBlock()
	if block == nil {
		p.fail(tok, "tried to create %s without a block", tok.Literal)
	}
	return &ast.ProcLiteral{Token: tok, Block: block, Lambda: tok.Type == token.LAMBDA}
}

// conditionals and loops

// parseCondition parses a loop or branch header, where a `do` belongs to
// the construct rather than to a call inside the condition.
func (p *Parser) parseCondition() ast.Expression {
	p.noDo++
	defer func() { p.noDo-- }()
	return p.parseExpressionStatement()
}

func (p *Parser) parseThen() {
	tok := p.next()
	switch {
	case tok.Type == token.THEN:
	case isTerm(tok.Type) && tok.Type != token.EOF:
		p.skipTerms()
		p.accept(token.THEN)
	default:
		p.unexpected(tok, "'then' or end of line")
	}
}

// parseLoopStart consumes the optional `do` or line break after a loop header.
func (p *Parser) parseLoopStart() {
	tok := p.next()
	if tok.Type != token.DO && (!isTerm(tok.Type) || tok.Type == token.EOF) {
		p.unexpected(tok, "'do' or end of line")
	}
}

func (p *Parser) parseIf(tok token.Token) ast.Expression {
	expr := &ast.IfExpression{Token: tok, Negate: tok.Type == token.UNLESS}
	expr.Condition = p.parseCondition()
	p.parseThen()
	expr.Consequence = p.parseBody(token.ELSIF, token.ELSE, token.END)

	switch next := p.next(); next.Type {
	case token.ELSIF:
		if expr.Negate {
			p.fail(next, "elsif is not allowed in unless")
		}
		expr.Alternative = p.parseIf(next)
	case token.ELSE:
		expr.Alternative = p.parseBody(token.END)
		p.expect(token.END, "'end'")
	}
	return expr
}

func (p *Parser) parseWhile(tok token.Token) ast.Expression {
	expr := &ast.WhileExpression{Token: tok, Negate: tok.Type == token.UNTIL}
	expr.Condition = p.parseCondition()
	p.parseLoopStart()
	expr.Body = p.parseBody(token.END)
	p.expect(token.END, "'end'")
	return expr
}

func (p *Parser) parseFor(tok token.Token) ast.Expression {
	expr := &ast.ForExpression{Token: tok}
	for {
		name := p.expect(token.NAME, "loop variable")
		p.scope.declare(name.Literal)
		expr.Variables = append(expr.Variables, name.Literal)
		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
	}
	p.expect(token.IN, "'in'")
	expr.Iterable = p.parseCondition()
	p.parseLoopStart()
	expr.Body = p.parseBody(token.END)
	p.expect(token.END, "'end'")
	return expr
}

func (p *Parser) parseCase(tok token.Token) ast.Expression {
	expr := &ast.CaseExpression{Token: tok}
	if next := p.peek(); !isTerm(next.Type) {
		expr.Subject = p.parseExpressionStatement()
	}
	p.skipTerms()

	for {
		when, ok := p.accept(token.WHEN)
		if !ok {
			break
		}
		clause := &ast.WhenClause{Token: when}
		for {
			clause.Values = append(clause.Values, p.parseSplatOrExpression())
			if _, ok := p.accept(token.COMMA); !ok {
				break
			}
			p.skipNewlines()
		}
		p.parseThen()
		clause.Body = p.parseBody(token.WHEN, token.ELSE, token.END)
		expr.Whens = append(expr.Whens, clause)
	}
	if len(expr.Whens) == 0 {
		p.unexpected(p.peek(), "'when'")
	}
	if _, ok := p.accept(token.ELSE); ok {
		expr.Alternative = p.parseBody(token.END)
	}
	p.expect(token.END, "'end'")
	return expr
}

// definitions

func (p *Parser) parseDef(tok token.Token) ast.Expression {
	def := &ast.MethodDefinition{Token: tok}
	nameTok := p.next()
	// `def self.x`, `def Const.x` and `def local.x` define singleton methods
	if nameTok.Type == token.SELF || nameTok.Type == token.NAME {
		if dot := p.peek(); dot.Type == token.PERIOD && !dot.SpaceBefore {
			p.next()
			if nameTok.Type == token.SELF {
				def.Singleton = &ast.SelfExpression{Token: nameTok}
			} else {
				def.Singleton = &ast.NameExpression{Token: nameTok, Name: nameTok.Literal, Local: p.scope.isLocal(nameTok.Literal)}
			}
			nameTok = p.next()
		}
	}
	def.Name = p.parseDefName(nameTok)

	p.pushScope(false)
	defer p.popScope()
	if lp := p.peek(); lp.Type == token.LPAREN {
		p.next()
		def.Parameters = p.parseParameters(token.RPAREN)
	} else {
		def.Parameters = p.parseParameters("")
	}
	def.Body = p.parseBodyWithRescue(tok)
	return def
}

// parseDefName accepts plain names, setters (`name=`), keywords, operators
// and the index methods `[]` and `[]=`.
func (p *Parser) parseDefName(tok token.Token) string {
	switch {
	case tok.Type == token.NAME:
		if eq := p.peek(); eq.Type == token.ASSIGN && !eq.SpaceBefore && isLetterName(tok.Literal) {
			p.next()
			return tok.Literal + "="
		}
		return tok.Literal
	case tok.Type == token.LBRACKET:
		p.expect(token.RBRACKET, "']'")
		if eq := p.peek(); eq.Type == token.ASSIGN && !eq.SpaceBefore {
			p.next()
			return "[]="
		}
		return "[]"
	case token.IsKeyword(tok.Type), operatorMethods[tok.Type]:
		return tok.Literal
	}
	p.unexpected(tok, "method name")
	return ""
}

func (p *Parser) parseClass(tok token.Token) ast.Expression {
	if _, ok := p.accept(token.SHIFT_LEFT); ok {
		target := p.parseExpression()
		p.pushScope(false)
		defer p.popScope()
		body := p.parseBody(token.END)
		p.expect(token.END, "'end'")
		return &ast.SingletonClassDefinition{Token: tok, Target: target, Body: body}
	}

	class := &ast.ClassDefinition{Token: tok, Path: p.parseConstantPath()}
	if _, ok := p.accept(token.LT); ok {
		class.Superclass = p.parseExpression()
	}
	p.pushScope(false)
	defer p.popScope()
	class.Body = p.parseBodyWithRescue(tok)
	return class
}

func (p *Parser) parseModule(tok token.Token) ast.Expression {
	module := &ast.ModuleDefinition{Token: tok, Path: p.parseConstantPath()}
	p.pushScope(false)
	defer p.popScope()
	module.Body = p.parseBodyWithRescue(tok)
	return module
}

// parseConstantPath reads `Name`, `Outer::Name` or `::Name`.
func (p *Parser) parseConstantPath() ast.Expression {
	var path ast.Expression
	if scopeTok, ok := p.accept(token.SCOPE); ok {
		name := p.constantName()
		path = &ast.ScopedConstant{Token: scopeTok, Name: name.Literal}
	} else {
		name := p.constantName()
		path = &ast.NameExpression{Token: name, Name: name.Literal}
	}
	for {
		scopeTok, ok := p.accept(token.SCOPE)
		if !ok {
			return path
		}
		name := p.constantName()
		path = &ast.ScopedConstant{Token: scopeTok, Scope: path, Name: name.Literal}
	}
}

func (p *Parser) constantName() token.Token {
	name := p.next()
	if name.Type != token.NAME {
		p.unexpected(name, "class/module name")
	}
	if !isConstantName(name.Literal) {
		p.fail(name, "class/module name must be CONSTANT")
	}
	return name
}

// rescue

// parseBodyWithRescue parses a body ending in `end` that may carry rescue,
// else and ensure clauses. Bodies without clauses come back as a plain
// sequence unless introduced by `begin`.
func (p *Parser) parseBodyWithRescue(tok token.Token) ast.Expression {
	body := p.parseBody(token.RESCUE, token.ELSE, token.ENSURE, token.END)
	expr := &ast.BeginExpression{Token: tok, Body: body}
	for {
		rescue, ok := p.accept(token.RESCUE)
		if !ok {
			break
		}
		expr.Rescues = append(expr.Rescues, p.parseRescueClause(rescue))
	}
	if elseTok, ok := p.accept(token.ELSE); ok {
		if len(expr.Rescues) == 0 {
			p.fail(elseTok, "else without rescue is useless")
		}
		expr.Else = p.parseBody(token.ENSURE, token.END)
	}
	if _, ok := p.accept(token.ENSURE); ok {
		expr.Ensure = p.parseBody(token.END)
	}
	p.expect(token.END, "'end'")

	if tok.Type != token.BEGIN && expr.Rescues == nil && expr.Ensure == nil {
		return body
	}
	return expr
}

func (p *Parser) parseRescueClause(tok token.Token) *ast.RescueClause {
	clause := &ast.RescueClause{Token: tok}
	next := p.peek()

	// `rescue e` binds the error to e
	if next.Type == token.NAME && !isConstantName(next.Literal) {
		if after := p.peekSecond(); isTerm(after.Type) || after.Type == token.THEN {
			p.next()
			clause.Variable = next.Literal
			p.scope.declare(next.Literal)
			next = p.peek()
		}
	}

	if clause.Variable == "" && !isTerm(next.Type) && next.Type != token.ROCKET && next.Type != token.THEN {
		for {
			clause.Exceptions = append(clause.Exceptions, p.parseSplatOrExpression())
			if _, ok := p.accept(token.COMMA); !ok {
				break
			}
			p.skipNewlines()
		}
	}
	if _, ok := p.accept(token.ROCKET); ok {
		name := p.expect(token.NAME, "variable name")
		clause.Variable = name.Literal
		p.scope.declare(name.Literal)
	}
	p.parseThen()
	clause.Body = p.parseBody(token.RESCUE, token.ELSE, token.ENSURE, token.END)
	return clause
}

// jumps

var jumpEnders = map[token.TokenType]bool{
	token.IF: true, token.UNLESS: true, token.WHILE: true, token.UNTIL: true, token.RESCUE: true,
	token.RBRACE: true, token.RPAREN: true, token.RBRACKET: true, token.END: true,
	token.AND: true, token.OR: true, token.THEN: true, token.ELSE: true, token.ELSIF: true,
	token.WHEN: true, token.ENSURE: true, token.COLON: true,
}

// parseJump parses return, break and next with an optional value; several
// values are returned as one array.
func (p *Parser) parseJump(tok token.Token) ast.Expression {
	var value ast.Expression
	if next := p.peek(); !isTerm(next.Type) && !jumpEnders[next.Type] {
		values := []ast.Expression{p.parseSplatOrExpression()}
		for {
			if _, ok := p.accept(token.COMMA); !ok {
				break
			}
			p.skipNewlines()
			values = append(values, p.parseSplatOrExpression())
		}
		if _, splat := values[0].(*ast.SplatExpression); len(values) == 1 && !splat {
			value = values[0]
		} else {
			value = &ast.ArrayLiteral{Token: tok, Elements: values}
		}
	}

	switch tok.Type {
	case token.RETURN:
		return &ast.ReturnExpression{Token: tok, Value: value}
	case token.BREAK:
		return &ast.BreakExpression{Token: tok, Value: value}
	}
	return &ast.NextExpression{Token: tok, Value: value}
}

func (p *Parser) parseYield(tok token.Token) ast.Expression {
	args, blockArg, _ := p.parseOptionalArguments()
	if blockArg != nil {
		p.fail(tok, "block argument should not be given to yield")
	}
	return &ast.YieldExpression{Token: tok, Arguments: args}
}

// parseSuper: a bare `super` forwards the current method's arguments, while
// `super()` passes none.
func (p *Parser) parseSuper(tok token.Token) ast.Expression {
	sup := &ast.SuperExpression{Token: tok}
	var present bool
	sup.Arguments, sup.BlockArg, present = p.parseOptionalArguments()
	sup.Implicit = !present
	sup.Block = p.parseOptionalBlock()
	if sup.Block != nil && sup.BlockArg != nil {
		p.fail(sup.Block.Token, "both block argument and literal block given")
	}
	return sup
}
