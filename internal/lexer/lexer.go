package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"garnet/internal/token"
	"garnet/internal/util"
)

// SyntaxError is the single parse-time error kind. Lexing and parsing stop at
// the first one.
type SyntaxError struct {
	Message  string
	Position int
	Line     int
	Column   int
	Excerpt  string
	// Incomplete is set when the error was caused by running out of input,
	// which lets interactive callers ask for another line.
	Incomplete bool
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("[%3d:%2d] %s", e.Line, e.Column, e.Message)
}

// NewSyntaxError builds a SyntaxError for the given source offset.
func NewSyntaxError(src string, pos int, incomplete bool, format string, a ...any) *SyntaxError {
	line, col := util.GetLineAndColumn(src, pos)
	return &SyntaxError{
		Message:    fmt.Sprintf(format, a...),
		Position:   pos,
		Line:       line,
		Column:     col,
		Excerpt:    util.GetContextLines(src, line, col),
		Incomplete: incomplete,
	}
}

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF

	pushed []token.Token // pushback stack, top is the last element
	last   token.Token   // last token handed out by the scanner

	// pending heredoc bodies: when the scanner reaches the newline at
	// heredocLine it continues at heredocEnd.
	heredocLine int
	heredocEnd  int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, heredocLine: -1}
	l.readChar()
	return l
}

// Input returns the source text being scanned.
func (l *Lexer) Input() string {
	return l.input
}

// Next returns the next token, replaying pushed back tokens first.
func (l *Lexer) Next() (token.Token, error) {
	if n := len(l.pushed); n > 0 {
		tok := l.pushed[n-1]
		l.pushed = l.pushed[:n-1]
		return tok, nil
	}
	tok, err := l.scan()
	if err != nil {
		return tok, err
	}
	l.last = tok
	return tok, nil
}

// PushBack makes the next call to Next return tok. Several tokens may be
// pushed back in a row; they come back in reverse order of pushing.
func (l *Lexer) PushBack(tok token.Token) {
	l.pushed = append(l.pushed, tok)
}

func (l *Lexer) errorf(pos int, format string, a ...any) error {
	return NewSyntaxError(l.input, pos, false, format, a...)
}

func (l *Lexer) incompletef(pos int, format string, a ...any) error {
	return NewSyntaxError(l.input, pos, true, format, a...)
}

func (l *Lexer) scan() (token.Token, error) {
	spaced := l.skipWhitespace()
	start := l.position

	tok, err := l.scanToken(start)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Position: start, End: l.position}, err
	}
	tok.SpaceBefore = spaced || start == 0
	return tok, nil
}

func (l *Lexer) scanToken(start int) (token.Token, error) {
	switch {
	case l.ch == 0:
		return token.Token{Type: token.EOF, Position: start, End: start}, nil

	case l.ch == '\n':
		tok := token.Token{Type: token.EOL, Literal: "\n", Position: start, End: start + 1}
		if l.heredocLine >= 0 && start >= l.heredocLine {
			// skip the heredoc bodies that were consumed when their openers were read
			l.readPosition = l.heredocEnd
			l.heredocLine = -1
		}
		l.readChar()
		return tok, nil

	case l.ch == ';':
		l.readChar()
		return token.Token{Type: token.SEMICOLON, Literal: ";", Position: start, End: l.position}, nil

	case l.ch == '@':
		return l.readVariable(start)

	case l.ch == '$':
		return l.readGlobal(start)

	case l.ch == '\'':
		return l.readSingleQuoted(start)

	case l.ch == '"':
		return l.readDoubleQuoted(start)

	case l.ch == ':' && l.peekChar() != ':':
		if tok, ok, err := l.readSymbol(start); ok || err != nil {
			return tok, err
		}

	case l.ch == '<' && l.peekChar() == '<':
		if tok, ok, err := l.readHeredoc(start); ok || err != nil {
			return tok, err
		}

	case isDigit(l.ch):
		return l.readNumber(start)

	case isLetter(l.ch):
		return l.readName(start), nil
	}

	if tok, ok := l.readOperator(start); ok {
		return tok, nil
	}
	return token.Token{}, l.errorf(start, "unexpected character %q", l.ch)
}

// skipWhitespace skips blanks, comments and escaped newlines. It reports
// whether anything was skipped.
func (l *Lexer) skipWhitespace() bool {
	skipped := false
	for {
		switch l.ch {
		case ' ', '\t', '\r', '\f', '\v':
			l.readChar()
		case '\\':
			if l.peekChar() != '\n' {
				return skipped
			}
			l.readChar()
			l.readChar()
		case '#':
			l.skipToLineEnd()
		case '=':
			if !l.atLineStart() || !strings.HasPrefix(l.input[l.position:], "=begin") {
				return skipped
			}
			l.skipBlockComment()
		default:
			return skipped
		}
		skipped = true
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) atLineStart() bool {
	return l.position == 0 || l.input[l.position-1] == '\n'
}

// skipBlockComment skips an =begin/=end comment, leaving the scanner on the
// newline that follows =end.
func (l *Lexer) skipBlockComment() {
	for l.ch != 0 {
		l.skipToLineEnd()
		if l.ch == 0 {
			return
		}
		l.readChar()
		if strings.HasPrefix(l.input[l.position:], "=end") {
			l.skipToLineEnd()
			return
		}
	}
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		l.readPosition = len(l.input) + 1
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	return l.peekAt(l.readPosition)
}

// peekTwoChars returns the rune after next without advancing; returns 0 if unavailable
func (l *Lexer) peekTwoChars() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return l.peekAt(l.readPosition + size)
}

func (l *Lexer) peekAt(idx int) rune {
	if idx >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[idx:])
	return r
}

// readIdentifier returns the substring (bytes) covering the identifier runes
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readName(start int) token.Token {
	name := l.readIdentifier()
	if (l.ch == '?' || l.ch == '!') && l.peekChar() != '=' {
		l.readChar()
		name = l.input[start:l.position]
	}

	if l.ch == ':' && l.peekChar() != ':' && !strings.HasSuffix(name, "?") {
		l.readChar()
		return token.Token{Type: token.LABEL, Literal: name, Position: start, End: l.position}
	}

	return token.Token{Type: token.LookupIdent(name), Literal: name, Position: start, End: l.position}
}

func (l *Lexer) readVariable(start int) (token.Token, error) {
	tt := token.TokenType(token.INSTVAR)
	kind := "instance"
	l.readChar() // consume @
	if l.ch == '@' {
		tt = token.CLASSVAR
		kind = "class"
		l.readChar()
	}
	if !isLetter(l.ch) {
		return token.Token{}, l.errorf(start, "invalid %s variable name", kind)
	}
	l.readIdentifier()
	return token.Token{Type: tt, Literal: l.input[start:l.position], Position: start, End: l.position}, nil
}

func (l *Lexer) readGlobal(start int) (token.Token, error) {
	l.readChar() // consume $
	if l.ch == '!' {
		l.readChar()
		return token.Token{Type: token.GLOBAL, Literal: "$!", Position: start, End: l.position}, nil
	}
	if !isLetter(l.ch) {
		return token.Token{}, l.errorf(start, "invalid global variable name")
	}
	l.readIdentifier()
	return token.Token{Type: token.GLOBAL, Literal: l.input[start:l.position], Position: start, End: l.position}, nil
}

// readNumber reads integers, reals and 0x hex literals. A '.' only belongs to
// the number when a digit follows it, so `3.times` stays INTEGER, '.', NAME.
func (l *Lexer) readNumber(start int) (token.Token, error) {
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		return l.readHexLiteral(start)
	}

	var num strings.Builder
	if err := l.readDigits(&num); err != nil {
		return token.Token{}, err
	}
	tt := token.TokenType(token.INTEGER)
	if l.ch == '.' && isDigit(l.peekChar()) {
		tt = token.REAL
		num.WriteRune(l.ch)
		l.readChar()
		if err := l.readDigits(&num); err != nil {
			return token.Token{}, err
		}
	}
	if (l.ch == 'e' || l.ch == 'E') &&
		(isDigit(l.peekChar()) || ((l.peekChar() == '+' || l.peekChar() == '-') && isDigit(l.peekTwoChars()))) {
		tt = token.REAL
		num.WriteRune(l.ch)
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			num.WriteRune(l.ch)
			l.readChar()
		}
		if err := l.readDigits(&num); err != nil {
			return token.Token{}, err
		}
	}
	if isLetter(l.ch) {
		return token.Token{}, l.errorf(l.position, "unexpected %q in number literal", l.ch)
	}
	return token.Token{Type: tt, Literal: num.String(), Position: start, End: l.position}, nil
}

func (l *Lexer) readDigits(out *strings.Builder) error {
	for isDigit(l.ch) || l.ch == '_' {
		if l.ch == '_' {
			// Rule: _ must be between digits
			if !isDigit(rune(l.input[l.position-1])) || !isDigit(l.peekChar()) {
				return l.errorf(l.position, "underscore must be between digits in number literal")
			}
		} else {
			out.WriteRune(l.ch)
		}
		l.readChar()
	}
	return nil
}

func (l *Lexer) readHexLiteral(start int) (token.Token, error) {
	l.readChar() // consume '0'
	l.readChar() // consume 'x'
	var hex strings.Builder
	hex.WriteString("0x")
	for isHexDigit(l.ch) || l.ch == '_' {
		if l.ch != '_' {
			hex.WriteRune(l.ch)
		}
		l.readChar()
	}
	if hex.Len() == 2 {
		return token.Token{}, l.errorf(start, "expected hex digit after '0x'")
	}
	return token.Token{Type: token.INTEGER, Literal: hex.String(), Position: start, End: l.position}, nil
}

// operators are matched longest first.
var operators = []struct {
	text string
	tt   token.TokenType
}{
	{"**=", token.POW_ASSIGN},
	{"<=>", token.CMP},
	{"===", token.CASE_EQ},
	{"...", token.ELLIPSIS},
	{"||=", token.OR_ASSIGN},
	{"&&=", token.AND_ASSIGN},
	{"**", token.POW},
	{"*=", token.ASTERISK_ASSIGN},
	{"<<", token.SHIFT_LEFT},
	{"<=", token.LT_EQ},
	{">>", token.SHIFT_RIGHT},
	{">=", token.GT_EQ},
	{"==", token.EQ},
	{"=~", token.MATCH},
	{"=>", token.ROCKET},
	{"!=", token.NOT_EQ},
	{"&&", token.LOGICAL_AND},
	{"||", token.LOGICAL_OR},
	{"..", token.RANGE},
	{"->", token.ARROW},
	{"-=", token.MINUS_ASSIGN},
	{"+=", token.PLUS_ASSIGN},
	{"/=", token.SLASH_ASSIGN},
	{"%=", token.PERCENT_ASSIGN},
	{"::", token.SCOPE},
	{"*", token.ASTERISK},
	{"<", token.LT},
	{">", token.GT},
	{"=", token.ASSIGN},
	{"!", token.BANG},
	{"&", token.BITWISE_AND},
	{"|", token.BITWISE_OR},
	{"^", token.BITWISE_XOR},
	{"~", token.COMPLEMENT},
	{".", token.PERIOD},
	{"-", token.MINUS},
	{"+", token.PLUS},
	{"/", token.SLASH},
	{"%", token.PERCENT},
	{":", token.COLON},
	{"?", token.QUESTION},
	{",", token.COMMA},
	{"(", token.LPAREN},
	{")", token.RPAREN},
	{"{", token.LBRACE},
	{"}", token.RBRACE},
	{"[", token.LBRACKET},
	{"]", token.RBRACKET},
}

func (l *Lexer) readOperator(start int) (token.Token, bool) {
	rest := l.input[start:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.readChar()
			}
			return token.Token{Type: op.tt, Literal: op.text, Position: start, End: l.position}, true
		}
	}
	return token.Token{}, false
}

// symbolOperators are the operator method names that may follow ':'.
var symbolOperators = []string{
	"[]=", "[]", "<=>", "===", "==", "=~", "!=", "<=", ">=", "<<", ">>", "**",
	"+@", "-@", "+", "-", "*", "/", "%", "<", ">", "!", "&", "|", "^", "~",
}

func (l *Lexer) readSymbol(start int) (token.Token, bool, error) {
	next := l.peekChar()
	switch {
	case isLetter(next):
		l.readChar() // consume :
		nameStart := l.position
		l.readIdentifier()
		if l.ch == '?' || l.ch == '!' || (l.ch == '=' && l.peekChar() != '=' && l.peekChar() != '>' && l.peekChar() != '~') {
			l.readChar()
		}
		return token.Token{Type: token.SYMBOL, Literal: l.input[nameStart:l.position], Position: start, End: l.position}, true, nil

	case next == '@' || next == '$':
		// :@ivar, :@@cvar and :$global name variables for reflection
		idx := l.readPosition + 1
		if next == '@' && l.peekAt(idx) == '@' {
			idx++
		}
		if !isLetter(l.peekAt(idx)) {
			return token.Token{}, false, nil
		}
		l.readChar() // consume :
		nameStart := l.position
		for l.position < idx {
			l.readChar()
		}
		l.readIdentifier()
		return token.Token{Type: token.SYMBOL, Literal: l.input[nameStart:l.position], Position: start, End: l.position}, true, nil

	case next == '"' || next == '\'':
		l.readChar() // consume :
		var str token.Token
		var err error
		if l.ch == '"' {
			str, err = l.readDoubleQuoted(start)
		} else {
			str, err = l.readSingleQuoted(start)
		}
		if err != nil {
			return token.Token{}, true, err
		}
		if str.Type == token.DSTRING {
			return token.Token{}, true, l.errorf(start, "interpolation is not supported in symbols")
		}
		return token.Token{Type: token.SYMBOL, Literal: str.Literal, Position: start, End: l.position}, true, nil
	}

	if l.last.Type == token.QUESTION || l.readPosition >= len(l.input) {
		return token.Token{}, false, nil
	}
	rest := l.input[l.readPosition:]
	for _, op := range symbolOperators {
		if strings.HasPrefix(rest, op) {
			l.readChar() // consume :
			for range op {
				l.readChar()
			}
			return token.Token{Type: token.SYMBOL, Literal: op, Position: start, End: l.position}, true, nil
		}
	}
	return token.Token{}, false, nil
}

// endsValue reports whether a token can end an operand, which decides
// between `a << b` and a heredoc opener.
func endsValue(t token.Token) bool {
	switch t.Type {
	case token.INTEGER, token.REAL, token.STRING, token.DSTRING, token.SYMBOL,
		token.INSTVAR, token.CLASSVAR, token.GLOBAL,
		token.RPAREN, token.RBRACKET, token.RBRACE,
		token.END, token.SELF, token.NIL, token.TRUE, token.FALSE:
		return true
	}
	return false
}

// Unicode-aware helpers
func isLetter(ch rune) bool {
	// Letters, underscore, and categories like Letter and Mark to support identifiers like café,变量
	return ch == '_' || unicode.IsLetter(ch) || unicode.Is(unicode.Mn, ch) || unicode.Is(unicode.Mc, ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
