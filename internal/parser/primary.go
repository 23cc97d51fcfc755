package parser

import (
	"strings"

	"github.com/pkg/errors"

	"garnet/internal/ast"
	"garnet/internal/lexer"
	"garnet/internal/token"
)

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.next()
	switch tok.Type {
	case token.INTEGER, token.REAL:
		return p.parseNumber(tok)
	case token.STRING:
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}
	case token.DSTRING:
		return p.parseInterpolation(tok)
	case token.SYMBOL:
		return &ast.SymbolLiteral{Token: tok, Value: tok.Literal}
	case token.NIL:
		return &ast.NilLiteral{Token: tok}
	case token.TRUE, token.FALSE:
		return &ast.BooleanLiteral{Token: tok, Value: tok.Type == token.TRUE}
	case token.SELF:
		return &ast.SelfExpression{Token: tok}
	case token.INSTVAR:
		return &ast.InstanceVariable{Token: tok, Name: tok.Literal}
	case token.CLASSVAR:
		return &ast.ClassVariable{Token: tok, Name: tok.Literal}
	case token.GLOBAL:
		return &ast.GlobalVariable{Token: tok, Name: tok.Literal}
	case token.NAME:
		return p.parseIdentifier(tok)
	case token.LBRACKET:
		return p.parseArrayLiteral(tok)
	case token.LBRACE:
		return p.parseHashLiteral(tok)
	case token.LPAREN:
		return p.parseParenthesized(tok)
	case token.SCOPE:
		name := p.expect(token.NAME, "constant name")
		if !isConstantName(name.Literal) {
			p.fail(name, "%s is not a constant name", name.Literal)
		}
		return &ast.ScopedConstant{Token: tok, Name: name.Literal}
	case token.ARROW:
		return p.parseStabbyLambda(tok)
	case token.LAMBDA, token.PROC:
		return p.parseProcLiteral(tok)
	case token.IF, token.UNLESS:
		return p.parseIf(tok)
	case token.WHILE, token.UNTIL:
		return p.parseWhile(tok)
	case token.FOR:
		return p.parseFor(tok)
	case token.CASE:
		return p.parseCase(tok)
	case token.DEF:
		return p.parseDef(tok)
	case token.CLASS:
		return p.parseClass(tok)
	case token.MODULE:
		return p.parseModule(tok)
	case token.BEGIN:
		return p.parseBodyWithRescue(tok)
	case token.RETURN, token.BREAK, token.NEXT:
		return p.parseJump(tok)
	case token.REDO:
		return &ast.RedoExpression{Token: tok}
	case token.YIELD:
		return p.parseYield(tok)
	case token.SUPER:
		return p.parseSuper(tok)
	case token.RAISE:
		args, blockArg, _ := p.parseOptionalArguments()
		if blockArg != nil {
			p.fail(tok, "block argument is not allowed for raise")
		}
		return &ast.RaiseExpression{Token: tok, Arguments: args}
	case token.DEFINED:
		return &ast.DefinedExpression{Token: tok, Expression: p.parseUnary()}
	case token.NOT:
		return &ast.UnaryExpression{Token: tok, Operator: "!", Right: p.parseExpression()}
	}
	p.unexpected(tok, "expression")
	return nil
}

// parseIdentifier decides between a local variable, a constant and a method
// call on self. Locals are the names assigned earlier in the same scope, so
// `x -1` subtracts from local x but calls method x with -1 otherwise.
func (p *Parser) parseIdentifier(tok token.Token) ast.Expression {
	next := p.peek()
	if next.Type == token.LPAREN && !next.SpaceBefore {
		p.next()
		call := &ast.CallExpression{Token: tok, Name: tok.Literal, HasParens: true}
		call.Arguments, call.BlockArg = p.parseArgumentList(token.RPAREN)
		p.attachBlock(call)
		return call
	}
	if p.scope.isLocal(tok.Literal) {
		return &ast.NameExpression{Token: tok, Name: tok.Literal, Local: true}
	}
	if !isConstantName(tok.Literal) && p.startsCommandArgument(next) {
		call := &ast.CallExpression{Token: tok, Name: tok.Literal}
		p.parseCommandArguments(call)
		return call
	}
	if next.Type == token.LBRACE || (next.Type == token.DO && p.noDo == 0) {
		call := &ast.CallExpression{Token: tok, Name: tok.Literal}
		p.attachBlock(call)
		return call
	}
	return &ast.NameExpression{Token: tok, Name: tok.Literal}
}

// startsCommandArgument reports whether next begins the argument list of a
// call written without parentheses, as in `puts x, y`.
func (p *Parser) startsCommandArgument(next token.Token) bool {
	if !next.SpaceBefore {
		return false
	}
	switch next.Type {
	case token.INTEGER, token.REAL, token.STRING, token.DSTRING, token.SYMBOL,
		token.NAME, token.INSTVAR, token.CLASSVAR, token.GLOBAL, token.LABEL,
		token.NIL, token.TRUE, token.FALSE, token.SELF,
		token.ARROW, token.LAMBDA, token.PROC, token.DEFINED, token.NOT, token.BANG,
		token.LBRACKET, token.LPAREN, token.SUPER, token.YIELD, token.DEF:
		return true
	case token.MINUS, token.ASTERISK, token.POW, token.BITWISE_AND, token.SCOPE, token.COMPLEMENT:
		// unary, splat or block-pass when glued to its operand: `foo -1`, `foo *args`
		return !p.peekSecond().SpaceBefore
	}
	return false
}

func (p *Parser) parseCommandArguments(call *ast.CallExpression) {
	p.noDo++
	call.Arguments, call.BlockArg = p.parseArgumentList("")
	p.noDo--
	p.attachBlock(call)
}

// attachBlock binds a following `{ }` block, or a `do ... end` block unless
// an enclosing command or loop header owns the `do`.
func (p *Parser) attachBlock(call *ast.CallExpression) {
	call.Block = p.parseOptionalBlock()
	if call.Block != nil && call.BlockArg != nil {
		p.fail(call.Block.Token, "both block argument and literal block given")
	}
}

func (p *Parser) parseOptionalBlock() *ast.BlockLiteral {
	tok := p.peek()
	switch {
	case tok.Type == token.LBRACE:
		p.next()
		return p.parseBlock(tok)
	case tok.Type == token.DO && p.noDo == 0:
		p.next()
		return p.parseBlock(tok)
	}
	return nil
}

// parseOptionalArguments reads `(args)` glued to the keyword or command style
// arguments, as taken by yield, super and raise. present is false when
// neither form follows.
func (p *Parser) parseOptionalArguments() (args []ast.Expression, blockArg ast.Expression, present bool) {
	next := p.peek()
	switch {
	case next.Type == token.LPAREN && !next.SpaceBefore:
		p.next()
		args, blockArg = p.parseArgumentList(token.RPAREN)
	case p.startsCommandArgument(next):
		p.noDo++
		args, blockArg = p.parseArgumentList("")
		p.noDo--
	default:
		return nil, nil, false
	}
	return args, blockArg, true
}

// parseArgumentList parses call arguments up to closer, or up to the end of
// the command when closer is empty. `key: v` and `k => v` pairs are gathered
// into one trailing bare hash.
func (p *Parser) parseArgumentList(closer token.TokenType) (args []ast.Expression, blockArg ast.Expression) {
	savedDo, savedPipe := p.noDo, p.noPipe
	if closer != "" {
		p.noDo, p.noPipe = 0, false
	}
	defer func() { p.noDo, p.noPipe = savedDo, savedPipe }()

	var kwargs *ast.HashLiteral
	addPair := func(tok token.Token, pair ast.HashPair) {
		if kwargs == nil {
			kwargs = &ast.HashLiteral{Token: tok, Bare: true}
		}
		kwargs.Pairs = append(kwargs.Pairs, pair)
	}

	for {
		if closer != "" {
			p.skipNewlines()
			if _, ok := p.accept(closer); ok {
				break
			}
		}
		tok := p.peek()
		switch tok.Type {
		case token.ASTERISK:
			p.next()
			args = append(args, &ast.SplatExpression{Token: tok, Value: p.parseArgument()})
		case token.POW:
			p.next()
			addPair(tok, ast.HashPair{Value: p.parseArgument()})
		case token.BITWISE_AND:
			p.next()
			blockArg = p.parseArgument()
		case token.LABEL:
			p.next()
			p.skipNewlines()
			addPair(tok, ast.HashPair{Key: &ast.SymbolLiteral{Token: tok, Value: tok.Literal}, Value: p.parseArgument()})
		default:
			arg := p.parseArgument()
			if _, ok := p.accept(token.ROCKET); ok {
				p.skipNewlines()
				addPair(tok, ast.HashPair{Key: arg, Value: p.parseArgument()})
			} else {
				args = append(args, arg)
			}
		}

		if closer != "" {
			p.skipNewlines()
		}
		if _, ok := p.accept(token.COMMA); !ok {
			if closer != "" {
				p.expect(closer, "','")
			}
			break
		}
		p.skipNewlines()
	}

	if kwargs != nil {
		args = append(args, kwargs)
	}
	return args, blockArg
}

func (p *Parser) parseArgument() ast.Expression {
	return p.parseExpression()
}

// parsePostfix is the loop shared by every primary: `.name`, `::Name`,
// `[args]`, and calls continued on the next line with a leading dot.
func (p *Parser) parsePostfix(left ast.Expression) ast.Expression {
	for {
		tok := p.peek()
		switch tok.Type {
		case token.PERIOD:
			p.next()
			left = p.parseMethodCall(left, p.next())
		case token.EOL:
			if _, ok := p.leadingDot(); !ok {
				return left
			}
			left = p.parseMethodCall(left, p.next())
		case token.SCOPE:
			p.next()
			name := p.next()
			if name.Type == token.NAME && isConstantName(name.Literal) {
				if next := p.peek(); next.Type != token.LPAREN || next.SpaceBefore {
					left = &ast.ScopedConstant{Token: tok, Scope: left, Name: name.Literal}
					continue
				}
			}
			left = p.parseMethodCall(left, name)
		case token.LBRACKET:
			p.next()
			args, blockArg := p.parseArgumentList(token.RBRACKET)
			if blockArg != nil {
				p.fail(tok, "block argument is not allowed in an index")
			}
			left = &ast.IndexExpression{Token: tok, Receiver: left, Arguments: args}
		default:
			return left
		}
	}
}

// leadingDot consumes line breaks followed by a '.', restoring the tokens
// when the next line does not continue the chain.
func (p *Parser) leadingDot() (token.Token, bool) {
	var eols []token.Token
	for {
		tok := p.next()
		switch tok.Type {
		case token.EOL:
			eols = append(eols, tok)
			continue
		case token.PERIOD:
			return tok, true
		}
		p.l.PushBack(tok)
		for i := len(eols) - 1; i >= 0; i-- {
			p.l.PushBack(eols[i])
		}
		return token.Token{}, false
	}
}

// parseMethodCall parses what follows `recv.`: the method name, its
// arguments and an optional block.
func (p *Parser) parseMethodCall(receiver ast.Expression, nameTok token.Token) ast.Expression {
	name, ok := methodName(nameTok)
	if !ok {
		p.unexpected(nameTok, "method name")
	}
	call := &ast.CallExpression{Token: nameTok, Receiver: receiver, Name: name}
	next := p.peek()
	switch {
	case next.Type == token.LPAREN && !next.SpaceBefore:
		p.next()
		call.HasParens = true
		call.Arguments, call.BlockArg = p.parseArgumentList(token.RPAREN)
	case nameTok.Type == token.NAME && p.startsCommandArgument(next):
		p.noDo++
		call.Arguments, call.BlockArg = p.parseArgumentList("")
		p.noDo--
	}
	p.attachBlock(call)
	return call
}

var operatorMethods = map[token.TokenType]bool{
	token.PLUS: true, token.MINUS: true, token.ASTERISK: true, token.POW: true, token.SLASH: true,
	token.PERCENT: true, token.EQ: true, token.NOT_EQ: true, token.CASE_EQ: true, token.MATCH: true,
	token.CMP: true, token.LT: true, token.LT_EQ: true, token.GT: true, token.GT_EQ: true,
	token.SHIFT_LEFT: true, token.SHIFT_RIGHT: true, token.BITWISE_AND: true, token.BITWISE_OR: true,
	token.BITWISE_XOR: true, token.BANG: true, token.COMPLEMENT: true,
}

// methodName accepts names, keywords (`obj.class`) and operators after a dot.
func methodName(tok token.Token) (string, bool) {
	switch {
	case tok.Type == token.NAME, token.IsKeyword(tok.Type), operatorMethods[tok.Type]:
		return tok.Literal, true
	}
	return "", false
}

// literals

func (p *Parser) parseArrayLiteral(tok token.Token) ast.Expression {
	elements, blockArg := p.parseArgumentList(token.RBRACKET)
	if blockArg != nil {
		p.fail(tok, "block argument is not allowed in an array literal")
	}
	return &ast.ArrayLiteral{Token: tok, Elements: elements}
}

func (p *Parser) parseHashLiteral(tok token.Token) ast.Expression {
	savedDo, savedPipe := p.noDo, p.noPipe
	p.noDo, p.noPipe = 0, false
	defer func() { p.noDo, p.noPipe = savedDo, savedPipe }()

	hash := &ast.HashLiteral{Token: tok}
	for {
		p.skipNewlines()
		if _, ok := p.accept(token.RBRACE); ok {
			return hash
		}
		keyTok := p.next()
		switch keyTok.Type {
		case token.LABEL:
			p.skipNewlines()
			hash.Pairs = append(hash.Pairs, ast.HashPair{
				Key:   &ast.SymbolLiteral{Token: keyTok, Value: keyTok.Literal},
				Value: p.parseArgument(),
			})
		case token.POW:
			hash.Pairs = append(hash.Pairs, ast.HashPair{Value: p.parseArgument()})
		default:
			// "str": v is a symbol key
			if keyTok.Type == token.STRING {
				if colon := p.peek(); colon.Type == token.COLON && !colon.SpaceBefore {
					p.next()
					p.skipNewlines()
					hash.Pairs = append(hash.Pairs, ast.HashPair{
						Key:   &ast.SymbolLiteral{Token: keyTok, Value: keyTok.Literal},
						Value: p.parseArgument(),
					})
					break
				}
			}
			p.l.PushBack(keyTok)
			key := p.parseArgument()
			p.skipNewlines()
			p.expect(token.ROCKET, "'=>' in hash literal")
			p.skipNewlines()
			hash.Pairs = append(hash.Pairs, ast.HashPair{Key: key, Value: p.parseArgument()})
		}
		p.skipNewlines()
		if _, ok := p.accept(token.COMMA); !ok {
			p.expect(token.RBRACE, "'}'")
			return hash
		}
	}
}

func (p *Parser) parseParenthesized(tok token.Token) ast.Expression {
	p.skipTerms()
	if _, ok := p.accept(token.RPAREN); ok {
		return &ast.NilLiteral{Token: tok}
	}
	seq := p.parseBody(token.RPAREN)
	p.expect(token.RPAREN, "')'")
	if len(seq.Commands) == 1 {
		return seq.Commands[0]
	}
	seq.Token = tok
	return seq
}

// parseInterpolation splits the raw text of a double quoted string into
// literal parts and parsed `#{...}` code.
func (p *Parser) parseInterpolation(tok token.Token) ast.Expression {
	raw := tok.Literal
	str := &ast.InterpolatedString{Token: tok}
	var lit strings.Builder

	flush := func() {
		if lit.Len() == 0 {
			return
		}
		value, err := lexer.Unescape(lit.String())
		if err != nil {
			p.fail(tok, "%s", err.Error())
		}
		str.Parts = append(str.Parts, &ast.StringLiteral{Token: tok, Value: value})
		lit.Reset()
	}

	for i := 0; i < len(raw); {
		switch {
		case raw[i] == '\\' && i+1 < len(raw):
			lit.WriteString(raw[i : i+2])
			i += 2
		case raw[i] == '#' && i+1 < len(raw) && raw[i+1] == '{':
			end := matchingBrace(raw, i+1)
			if end < 0 {
				p.fail(tok, "unterminated string interpolation")
			}
			flush()
			str.Parts = append(str.Parts, p.parseEmbedded(tok, raw[i+2:end]))
			i = end + 1
		default:
			lit.WriteByte(raw[i])
			i++
		}
	}
	flush()
	return str
}

// matchingBrace returns the index of the '}' closing the '{' at open,
// stepping over nested string literals.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '"', '\'':
			quote := s[i]
			for i++; i < len(s) && s[i] != quote; i++ {
				if s[i] == '\\' {
					i++
				}
			}
		}
	}
	return -1
}

func (p *Parser) parseEmbedded(tok token.Token, code string) ast.Expression {
	sub := New(lexer.New(code))
	sub.scope = newScope(p.scope, nil)
	program, err := sub.ParseProgram()
	if err != nil {
		var syntaxErr *lexer.SyntaxError
		if errors.As(err, &syntaxErr) {
			p.fail(tok, "in string interpolation: %s", syntaxErr.Message)
		}
		panic(bailout{err})
	}
	switch len(program.Commands) {
	case 0:
		return &ast.StringLiteral{Token: tok}
	case 1:
		return program.Commands[0]
	}
	return &ast.Sequence{Token: tok, Commands: program.Commands}
}
