package parser

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"garnet/internal/ast"
	"garnet/internal/lexer"
	"garnet/internal/token"
)

const (
	_ int = iota
	LOWEST
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	EQUALS      // == != === =~ <=>
	COMPARISON  // > or <
	BITWISE_OR  // | ^
	BITWISE_AND // &
	SHIFT       // << >>
	SUM         // +
	PRODUCT     // *
)

var precedences = map[token.TokenType]int{
	token.LOGICAL_OR:  LOGICAL_OR,
	token.LOGICAL_AND: LOGICAL_AND,
	token.EQ:          EQUALS,
	token.NOT_EQ:      EQUALS,
	token.CASE_EQ:     EQUALS,
	token.MATCH:       EQUALS,
	token.CMP:         EQUALS,
	token.LT:          COMPARISON,
	token.LT_EQ:       COMPARISON,
	token.GT:          COMPARISON,
	token.GT_EQ:       COMPARISON,
	token.BITWISE_OR:  BITWISE_OR,
	token.BITWISE_XOR: BITWISE_OR,
	token.BITWISE_AND: BITWISE_AND,
	token.SHIFT_LEFT:  SHIFT,
	token.SHIFT_RIGHT: SHIFT,
	token.PLUS:        SUM,
	token.MINUS:       SUM,
	token.ASTERISK:    PRODUCT,
	token.SLASH:       PRODUCT,
	token.PERCENT:     PRODUCT,
}

var compoundOperators = map[token.TokenType]string{
	token.PLUS_ASSIGN:     "+",
	token.MINUS_ASSIGN:    "-",
	token.ASTERISK_ASSIGN: "*",
	token.SLASH_ASSIGN:    "/",
	token.PERCENT_ASSIGN:  "%",
	token.POW_ASSIGN:      "**",
	token.OR_ASSIGN:       "||",
	token.AND_ASSIGN:      "&&",
}

// bailout carries the first syntax error up to the exported entry points.
type bailout struct{ err error }

type Parser struct {
	l   *lexer.Lexer
	src string

	scope *scope

	noDo       int  // >0 while a `do` belongs to an enclosing command or loop header
	noPipe     bool // inside |block params|, where | closes the list
	allowMulti bool // the next expression starts a command and may be `a, b = ...`
}

func New(l *lexer.Lexer) *Parser {
	return &Parser{l: l, src: l.Input(), scope: newScope(nil, nil)}
}

// Parse parses a complete source text.
func Parse(src string) (*ast.Program, error) {
	return New(lexer.New(src)).ParseProgram()
}

// IsIncomplete reports whether err was caused by input ending in the middle
// of a construct, which interactive callers answer by reading more lines.
func IsIncomplete(err error) bool {
	var syntaxErr *lexer.SyntaxError
	return errors.As(err, &syntaxErr) && syntaxErr.Incomplete
}

// DeclareLocals marks names as local variables of the top-level scope, so a
// REPL can keep `x -1` meaning subtraction across inputs.
func (p *Parser) DeclareLocals(names ...string) {
	for _, name := range names {
		p.scope.declare(name)
	}
}

func (p *Parser) ParseProgram() (program *ast.Program, err error) {
	defer p.catch(&err)

	program = &ast.Program{}
	for {
		cmd := p.parseCommand()
		if cmd == nil {
			return program, nil
		}
		program.Commands = append(program.Commands, cmd)
	}
}

// ParseCommand returns the next top-level command, or nil at end of input.
func (p *Parser) ParseCommand() (cmd ast.Expression, err error) {
	defer p.catch(&err)
	return p.parseCommand(), nil
}

func (p *Parser) catch(errp *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*errp = b.err
	}
}

func (p *Parser) fail(tok token.Token, format string, a ...any) {
	panic(bailout{lexer.NewSyntaxError(p.src, tok.Position, tok.Type == token.EOF, format, a...)})
}

func (p *Parser) unexpected(tok token.Token, expected string) {
	p.fail(tok, "unexpected %s, expected %s", describe(tok), expected)
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.EOL:
		return "end of line"
	case token.STRING, token.DSTRING:
		return "string literal"
	}
	return fmt.Sprintf("%q", tok.Literal)
}

// token plumbing

func (p *Parser) next() token.Token {
	tok, err := p.l.Next()
	if err != nil {
		panic(bailout{err})
	}
	return tok
}

func (p *Parser) peek() token.Token {
	tok := p.next()
	p.l.PushBack(tok)
	return tok
}

// peekSecond looks two tokens ahead.
func (p *Parser) peekSecond() token.Token {
	first := p.next()
	second := p.next()
	p.l.PushBack(second)
	p.l.PushBack(first)
	return second
}

func (p *Parser) accept(tt token.TokenType) (token.Token, bool) {
	tok := p.next()
	if tok.Type == tt {
		return tok, true
	}
	p.l.PushBack(tok)
	return tok, false
}

func (p *Parser) expect(tt token.TokenType, what string) token.Token {
	tok := p.next()
	if tok.Type != tt {
		p.unexpected(tok, what)
	}
	return tok
}

func (p *Parser) skipNewlines() {
	for {
		if _, ok := p.accept(token.EOL); !ok {
			return
		}
	}
}

func (p *Parser) skipTerms() {
	for {
		tok := p.next()
		if tok.Type != token.EOL && tok.Type != token.SEMICOLON {
			p.l.PushBack(tok)
			return
		}
	}
}

func isTerm(tt token.TokenType) bool {
	return tt == token.EOL || tt == token.SEMICOLON || tt == token.EOF
}

// isConstantName is the naming rule for constants, classes and modules.
func isConstantName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// commands and bodies

func (p *Parser) parseCommand() ast.Expression {
	p.skipTerms()
	if p.peek().Type == token.EOF {
		return nil
	}
	cmd := p.parseStatement()
	if tok := p.peek(); !isTerm(tok.Type) {
		p.unexpected(tok, "end of command")
	}
	return cmd
}

// parseBody parses commands up to, not including, one of the terminators.
func (p *Parser) parseBody(terminators ...token.TokenType) *ast.Sequence {
	savedDo, savedPipe := p.noDo, p.noPipe
	p.noDo, p.noPipe = 0, false
	defer func() { p.noDo, p.noPipe = savedDo, savedPipe }()

	seq := &ast.Sequence{Token: p.peek()}
	for {
		p.skipTerms()
		tok := p.peek()
		if slices.Contains(terminators, tok.Type) {
			return seq
		}
		if tok.Type == token.EOF {
			p.unexpected(tok, fmt.Sprintf("'%s'", strings.ToLower(string(terminators[len(terminators)-1]))))
		}
		seq.Commands = append(seq.Commands, p.parseStatement())
		if tok := p.peek(); !isTerm(tok.Type) && !slices.Contains(terminators, tok.Type) {
			p.unexpected(tok, "end of command")
		}
	}
}

// parseStatement applies the trailing modifiers, which bind looser than
// everything else: `a ? b : c if d` is `(a ? b : c) if d`.
func (p *Parser) parseStatement() ast.Expression {
	p.allowMulti = true
	expr := p.parseExpressionStatement()
	for {
		tok := p.peek()
		switch tok.Type {
		case token.IF, token.UNLESS:
			p.next()
			cond := p.parseExpressionStatement()
			expr = &ast.IfExpression{Token: tok, Condition: cond, Consequence: expr, Negate: tok.Type == token.UNLESS}
		case token.WHILE, token.UNTIL:
			p.next()
			cond := p.parseExpressionStatement()
			expr = &ast.WhileExpression{Token: tok, Condition: cond, Body: expr, Negate: tok.Type == token.UNTIL}
		case token.RESCUE:
			p.next()
			fallback := p.parseExpressionStatement()
			expr = &ast.BeginExpression{
				Token:   tok,
				Body:    expr,
				Rescues: []*ast.RescueClause{{Token: tok, Body: fallback}},
			}
		default:
			return expr
		}
	}
}

// parseExpressionStatement handles the low precedence `not`, `and`, `or`.
func (p *Parser) parseExpressionStatement() ast.Expression {
	left := p.parseNot()
	for {
		tok := p.peek()
		if tok.Type != token.AND && tok.Type != token.OR {
			return left
		}
		p.next()
		p.skipNewlines()
		op := "&&"
		if tok.Type == token.OR {
			op = "||"
		}
		left = &ast.LogicalExpression{Token: tok, Left: left, Operator: op, Right: p.parseNot()}
	}
}

func (p *Parser) parseNot() ast.Expression {
	if tok, ok := p.accept(token.NOT); ok {
		p.allowMulti = false
		return &ast.UnaryExpression{Token: tok, Operator: "!", Right: p.parseNot()}
	}
	return p.parseExpression()
}

// parseExpression resolves assignment once a full postfix chain has been
// parsed as an ordinary expression.
func (p *Parser) parseExpression() ast.Expression {
	multi := p.allowMulti
	p.allowMulti = false

	left := p.parseTernary()
	tok := p.peek()
	switch {
	case tok.Type == token.ASSIGN:
		p.next()
		target := p.assignable(left, tok)
		p.skipNewlines()
		return &ast.AssignExpression{Token: tok, Target: target, Value: p.parseExpression()}

	case compoundOperators[tok.Type] != "":
		p.next()
		target := p.assignable(left, tok)
		p.skipNewlines()
		return p.rewriteCompound(tok, target, p.parseExpression())

	case tok.Type == token.COMMA && multi && isMultiTarget(left):
		return p.parseMultipleAssignment(left)
	}
	return left
}

// assignable checks the target shapes that may appear left of `=`.
func (p *Parser) assignable(left ast.Expression, tok token.Token) ast.Expression {
	switch t := left.(type) {
	case *ast.NameExpression:
		last := t.Name[len(t.Name)-1]
		if last == '?' || last == '!' {
			break
		}
		if !isConstantName(t.Name) {
			p.scope.declare(t.Name)
		}
		return t
	case *ast.InstanceVariable, *ast.ClassVariable, *ast.GlobalVariable, *ast.ScopedConstant, *ast.IndexExpression:
		return left
	case *ast.CallExpression:
		if t.Receiver != nil && !t.HasParens && len(t.Arguments) == 0 && t.Block == nil && t.BlockArg == nil &&
			isLetterName(t.Name) {
			return t
		}
	}
	p.fail(tok, "cannot assign to %s", left.String())
	return nil
}

func isLetterName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	last := name[len(name)-1]
	return (r == '_' || unicode.IsLetter(r)) && last != '?' && last != '!'
}

func isMultiTarget(e ast.Expression) bool {
	switch t := e.(type) {
	case *ast.NameExpression, *ast.InstanceVariable, *ast.ClassVariable, *ast.GlobalVariable, *ast.IndexExpression:
		return true
	case *ast.CallExpression:
		return t.Receiver != nil && !t.HasParens && len(t.Arguments) == 0 && t.Block == nil
	}
	return false
}

// rewriteCompound turns `t OP= v` into `t = t OP v`. The ||= form reads the
// target leniently so an undefined variable starts out as nil.
func (p *Parser) rewriteCompound(tok token.Token, target, value ast.Expression) ast.Expression {
	op := compoundOperators[tok.Type]
	var combined ast.Expression
	switch tok.Type {
	case token.OR_ASSIGN, token.AND_ASSIGN:
		read := target
		if tok.Type == token.OR_ASSIGN {
			read = lenient(target)
		}
		combined = &ast.LogicalExpression{Token: tok, Left: read, Operator: op, Right: value}
	default:
		combined = &ast.BinaryExpression{Token: tok, Left: target, Operator: op, Right: value}
	}
	return &ast.AssignExpression{Token: tok, Target: target, Value: combined}
}

func lenient(target ast.Expression) ast.Expression {
	switch t := target.(type) {
	case *ast.NameExpression:
		copied := *t
		copied.Lenient = true
		return &copied
	case *ast.ClassVariable:
		copied := *t
		copied.Lenient = true
		return &copied
	}
	return target
}

func (p *Parser) parseMultipleAssignment(first ast.Expression) ast.Expression {
	ma := &ast.MultipleAssignment{Token: p.peek()}
	ma.Targets = append(ma.Targets, p.assignable(first, ma.Token))
	for {
		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
		if star, ok := p.accept(token.ASTERISK); ok {
			target := p.parsePostfix(p.parsePrimary())
			ma.Targets = append(ma.Targets, &ast.SplatExpression{Token: star, Value: p.assignable(target, star)})
			continue
		}
		target := p.parsePostfix(p.parsePrimary())
		ma.Targets = append(ma.Targets, p.assignable(target, ma.Token))
	}
	eq := p.expect(token.ASSIGN, "'=' in multiple assignment")
	p.skipNewlines()

	values := []ast.Expression{p.parseSplatOrExpression()}
	for {
		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
		p.skipNewlines()
		values = append(values, p.parseSplatOrExpression())
	}
	if _, splat := values[0].(*ast.SplatExpression); len(values) == 1 && !splat {
		ma.Value = values[0]
	} else {
		ma.Value = &ast.ArrayLiteral{Token: eq, Elements: values}
	}
	return ma
}

func (p *Parser) parseSplatOrExpression() ast.Expression {
	if star, ok := p.accept(token.ASTERISK); ok {
		return &ast.SplatExpression{Token: star, Value: p.parseTernary()}
	}
	return p.parseExpression()
}

// parseTernary: neither branch may start another ternary without parentheses.
func (p *Parser) parseTernary() ast.Expression {
	cond := p.parseRange()
	tok, ok := p.accept(token.QUESTION)
	if !ok {
		return cond
	}
	p.skipNewlines()
	consequence := p.parseRange()
	p.skipNewlines()
	p.expect(token.COLON, "':' in ternary expression")
	p.skipNewlines()
	alternative := p.parseRange()
	return &ast.IfExpression{Token: tok, Condition: cond, Consequence: consequence, Alternative: alternative}
}

func (p *Parser) parseRange() ast.Expression {
	low := p.parseBinary(LOGICAL_OR)
	tok := p.peek()
	if tok.Type != token.RANGE && tok.Type != token.ELLIPSIS {
		return low
	}
	p.next()
	expr := &ast.RangeLiteral{Token: tok, Low: low, Exclusive: tok.Type == token.ELLIPSIS}
	if !endsRange[p.peek().Type] {
		expr.High = p.parseBinary(LOGICAL_OR)
	}
	return expr
}

// endsRange holds the tokens that leave a range without a high bound, as
// in `list[1..]`.
var endsRange = map[token.TokenType]bool{
	token.RBRACKET: true, token.RPAREN: true, token.RBRACE: true,
	token.COMMA: true, token.SEMICOLON: true, token.EOL: true, token.EOF: true,
	token.THEN: true, token.DO: true, token.END: true, token.IF: true, token.UNLESS: true,
}

// parseBinary is precedence climbing over the table above; every level
// left-associates.
func (p *Parser) parseBinary(minPrec int) ast.Expression {
	left := p.parseUnaryMinus()
	for {
		tok := p.peek()
		prec, ok := precedences[tok.Type]
		if !ok || prec < minPrec || (p.noPipe && tok.Type == token.BITWISE_OR) {
			return left
		}
		p.next()
		p.skipNewlines()
		right := p.parseBinary(prec + 1)
		if tok.Type == token.LOGICAL_AND || tok.Type == token.LOGICAL_OR {
			left = &ast.LogicalExpression{Token: tok, Left: left, Operator: tok.Literal, Right: right}
		} else {
			left = &ast.BinaryExpression{Token: tok, Left: left, Operator: tok.Literal, Right: right}
		}
	}
}

// parseUnaryMinus binds looser than ** so that -2 ** 2 is -(2 ** 2), while a
// glued literal like -2.abs is the negative number.
func (p *Parser) parseUnaryMinus() ast.Expression {
	tok, ok := p.accept(token.MINUS)
	if !ok {
		return p.parsePow()
	}
	num := p.next()
	if (num.Type == token.INTEGER || num.Type == token.REAL) && !num.SpaceBefore {
		lit := p.parseNumber(num)
		if p.peek().Type == token.POW {
			return &ast.UnaryExpression{Token: tok, Operator: "-", Right: p.parsePowRest(lit)}
		}
		return p.parsePowRest(p.parsePostfix(negate(lit, tok)))
	}
	p.l.PushBack(num)
	return &ast.UnaryExpression{Token: tok, Operator: "-", Right: p.parseUnaryMinus()}
}

func negate(lit ast.Expression, tok token.Token) ast.Expression {
	switch n := lit.(type) {
	case *ast.IntegerLiteral:
		return &ast.IntegerLiteral{Token: tok, Value: -n.Value}
	case *ast.FloatLiteral:
		return &ast.FloatLiteral{Token: tok, Value: -n.Value}
	}
	return lit
}

func (p *Parser) parsePow() ast.Expression {
	return p.parsePowRest(p.parseUnary())
}

// parsePowRest parses a right-associative `** exponent` tail.
func (p *Parser) parsePowRest(base ast.Expression) ast.Expression {
	tok, ok := p.accept(token.POW)
	if !ok {
		return base
	}
	p.skipNewlines()
	return &ast.BinaryExpression{Token: tok, Left: base, Operator: "**", Right: p.parseUnaryMinus()}
}

func (p *Parser) parseUnary() ast.Expression {
	tok := p.next()
	switch tok.Type {
	case token.BANG:
		return &ast.UnaryExpression{Token: tok, Operator: "!", Right: p.parseUnary()}
	case token.COMPLEMENT:
		return &ast.UnaryExpression{Token: tok, Operator: "~", Right: p.parseUnary()}
	case token.PLUS:
		return &ast.UnaryExpression{Token: tok, Operator: "+", Right: p.parseUnary()}
	case token.MINUS:
		p.l.PushBack(tok)
		return p.parseUnaryMinus()
	case token.DEFINED:
		return &ast.DefinedExpression{Token: tok, Expression: p.parseUnary()}
	}
	p.l.PushBack(tok)
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parseNumber(tok token.Token) ast.Expression {
	if tok.Type == token.REAL {
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.fail(tok, "invalid float literal %s", tok.Literal)
		}
		return &ast.FloatLiteral{Token: tok, Value: value}
	}
	value, err := strconv.ParseInt(tok.Literal, 0, 64)
	if err != nil {
		p.fail(tok, "invalid integer literal %s", tok.Literal)
	}
	return &ast.IntegerLiteral{Token: tok, Value: value}
}
