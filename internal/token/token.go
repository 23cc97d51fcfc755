package token

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	EOL     = "EOL"

	// Identifiers + literals
	NAME     = "NAME"     // foo, Foo, empty?, save!
	INSTVAR  = "INSTVAR"  // @foo
	CLASSVAR = "CLASSVAR" // @@foo
	GLOBAL   = "GLOBAL"   // $foo
	LABEL    = "LABEL"    // foo: (hash key / keyword argument)
	INTEGER  = "INTEGER"  // 1343456
	REAL     = "REAL"     // 3.14
	STRING   = "STRING"   // 'foo', "foo"
	DSTRING  = "DSTRING"  // "foo #{bar}" raw, split by the parser
	SYMBOL   = "SYMBOL"   // :foo

	// Operators
	ASSIGN      = "="
	PLUS        = "+"
	MINUS       = "-"
	ASTERISK    = "*"
	POW         = "**"
	SLASH       = "/"
	PERCENT     = "%"
	BANG        = "!"
	COMPLEMENT  = "~"
	BITWISE_AND = "&"
	BITWISE_OR  = "|"
	BITWISE_XOR = "^"
	SHIFT_LEFT  = "<<"
	SHIFT_RIGHT = ">>"
	LOGICAL_AND = "&&"
	LOGICAL_OR  = "||"

	LT      = "<"
	LT_EQ   = "<="
	GT      = ">"
	GT_EQ   = ">="
	EQ      = "=="
	CASE_EQ = "==="
	NOT_EQ  = "!="
	MATCH   = "=~"
	CMP     = "<=>"

	PLUS_ASSIGN     = "+="
	MINUS_ASSIGN    = "-="
	ASTERISK_ASSIGN = "*="
	SLASH_ASSIGN    = "/="
	PERCENT_ASSIGN  = "%="
	POW_ASSIGN      = "**="
	OR_ASSIGN       = "||="
	AND_ASSIGN      = "&&="

	ROCKET   = "=>"
	ARROW    = "->"
	RANGE    = ".."
	ELLIPSIS = "..."
	SCOPE    = "::"
	QUESTION = "?"

	// Delimiters
	PERIOD    = "."
	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"

	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	// Keywords
	IF       = "IF"
	UNLESS   = "UNLESS"
	ELSIF    = "ELSIF"
	ELSE     = "ELSE"
	THEN     = "THEN"
	WHILE    = "WHILE"
	UNTIL    = "UNTIL"
	FOR      = "FOR"
	IN       = "IN"
	DO       = "DO"
	END      = "END"
	CASE     = "CASE"
	WHEN     = "WHEN"
	DEF      = "DEF"
	CLASS    = "CLASS"
	MODULE   = "MODULE"
	BEGIN    = "BEGIN"
	RESCUE   = "RESCUE"
	ENSURE   = "ENSURE"
	RAISE    = "RAISE"
	YIELD    = "YIELD"
	LAMBDA   = "LAMBDA"
	PROC     = "PROC"
	BREAK    = "BREAK"
	RETURN   = "RETURN"
	NEXT     = "NEXT"
	REDO     = "REDO"
	DEFINED  = "DEFINED"
	SUPER    = "SUPER"
	SELF     = "SELF"
	NIL      = "NIL"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
	AND      = "AND"
	OR       = "OR"
	NOT      = "NOT"
)

type Token struct {
	Type     TokenType
	Literal  string
	Position int // the src index of the token
	End      int // the src index just past the token
	// SpaceBefore is set when whitespace separated the token from the previous one.
	SpaceBefore bool
}

func (t Token) Is(tt TokenType) bool { return t.Type == tt }

var keywords = map[string]TokenType{
	// constants
	"nil":   NIL,
	"true":  TRUE,
	"false": FALSE,
	"self":  SELF,

	// flow control
	"if":     IF,
	"unless": UNLESS,
	"elsif":  ELSIF,
	"else":   ELSE,
	"then":   THEN,
	"while":  WHILE,
	"until":  UNTIL,
	"for":    FOR,
	"in":     IN,
	"do":     DO,
	"end":    END,
	"case":   CASE,
	"when":   WHEN,
	"break":  BREAK,
	"return": RETURN,
	"next":   NEXT,
	"redo":   REDO,
	"yield":  YIELD,

	// declarations
	"def":    DEF,
	"class":  CLASS,
	"module": MODULE,
	"lambda": LAMBDA,
	"proc":   PROC,
	"super":  SUPER,

	// error handling
	"begin":  BEGIN,
	"rescue": RESCUE,
	"ensure": ENSURE,
	"raise":  RAISE,

	"defined?": DEFINED,
	"and":      AND,
	"or":       OR,
	"not":      NOT,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return NAME
}

// IsKeyword reports whether the token type is a reserved word. Reserved words
// are still valid method names after a `.` or `def`.
func IsKeyword(t TokenType) bool {
	for _, k := range keywords {
		if k == t {
			return true
		}
	}
	return false
}
