package lexer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/token"
)

type expectedToken struct {
	expectedType    token.TokenType
	expectedLiteral string
}

func collect(t *testing.T, input string) []token.Token {
	t.Helper()
	l := New(input)
	var out []token.Token
	for {
		tok, err := l.Next()
		require.NoError(t, err, "input %q", input)
		out = append(out, tok)
		if tok.Type == token.EOF {
			return out
		}
	}
}

func assertTokens(t *testing.T, input string, tests []expectedToken) {
	t.Helper()
	toks := collect(t, input)
	require.Len(t, toks, len(tests)+1, "input %q: %v", input, toks)
	for i, tt := range tests {
		assert.Equal(t, tt.expectedType, toks[i].Type, "tests[%d] type", i)
		assert.Equal(t, tt.expectedLiteral, toks[i].Literal, "tests[%d] literal", i)
	}
	assert.Equal(t, token.TokenType(token.EOF), toks[len(tests)].Type)
}

func TestNextToken(t *testing.T) {
	input := "x = 123.foo # trailing comment\n@a @@b $c $!; defined? empty?"

	assertTokens(t, input, []expectedToken{
		{token.NAME, "x"},
		{token.ASSIGN, "="},
		{token.INTEGER, "123"},
		{token.PERIOD, "."},
		{token.NAME, "foo"},
		{token.EOL, "\n"},
		{token.INSTVAR, "@a"},
		{token.CLASSVAR, "@@b"},
		{token.GLOBAL, "$c"},
		{token.GLOBAL, "$!"},
		{token.SEMICOLON, ";"},
		{token.DEFINED, "defined?"},
		{token.NAME, "empty?"},
	})
}

func TestNumbers(t *testing.T) {
	assertTokens(t, "1_000 3.14 2e10 1.5e-3 0xff 7", []expectedToken{
		{token.INTEGER, "1000"},
		{token.REAL, "3.14"},
		{token.REAL, "2e10"},
		{token.REAL, "1.5e-3"},
		{token.INTEGER, "0xff"},
		{token.INTEGER, "7"},
	})
}

func TestOperatorsLongestFirst(t *testing.T) {
	assertTokens(t, "a **= b ** c * d <=> e <= f < g === h == i != j ... k .. l", []expectedToken{
		{token.NAME, "a"},
		{token.POW_ASSIGN, "**="},
		{token.NAME, "b"},
		{token.POW, "**"},
		{token.NAME, "c"},
		{token.ASTERISK, "*"},
		{token.NAME, "d"},
		{token.CMP, "<=>"},
		{token.NAME, "e"},
		{token.LT_EQ, "<="},
		{token.NAME, "f"},
		{token.LT, "<"},
		{token.NAME, "g"},
		{token.CASE_EQ, "==="},
		{token.NAME, "h"},
		{token.EQ, "=="},
		{token.NAME, "i"},
		{token.NOT_EQ, "!="},
		{token.NAME, "j"},
		{token.ELLIPSIS, "..."},
		{token.NAME, "k"},
		{token.RANGE, ".."},
		{token.NAME, "l"},
	})
}

func TestShiftIsNotHeredoc(t *testing.T) {
	assertTokens(t, "list << item\n1<<2", []expectedToken{
		{token.NAME, "list"},
		{token.SHIFT_LEFT, "<<"},
		{token.NAME, "item"},
		{token.EOL, "\n"},
		{token.INTEGER, "1"},
		{token.SHIFT_LEFT, "<<"},
		{token.INTEGER, "2"},
	})
}

func TestHashLiteralTokens(t *testing.T) {
	assertTokens(t, `{a: 1, "b" => 2, C::D => :e}`, []expectedToken{
		{token.LBRACE, "{"},
		{token.LABEL, "a"},
		{token.INTEGER, "1"},
		{token.COMMA, ","},
		{token.STRING, "b"},
		{token.ROCKET, "=>"},
		{token.INTEGER, "2"},
		{token.COMMA, ","},
		{token.NAME, "C"},
		{token.SCOPE, "::"},
		{token.NAME, "D"},
		{token.ROCKET, "=>"},
		{token.SYMBOL, "e"},
		{token.RBRACE, "}"},
	})
}

func TestSymbols(t *testing.T) {
	assertTokens(t, `:foo :bar? :name= :"a b" :+ :[]= :<=>`, []expectedToken{
		{token.SYMBOL, "foo"},
		{token.SYMBOL, "bar?"},
		{token.SYMBOL, "name="},
		{token.SYMBOL, "a b"},
		{token.SYMBOL, "+"},
		{token.SYMBOL, "[]="},
		{token.SYMBOL, "<=>"},
	})
	assertTokens(t, `:@q :@@c :$g`, []expectedToken{
		{token.SYMBOL, "@q"},
		{token.SYMBOL, "@@c"},
		{token.SYMBOL, "$g"},
	})
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input    string
		kind     token.TokenType
		expected string
	}{
		{`'a\'b#{c}\n'`, token.STRING, `a'b#{c}\n`},
		{`'back\\slash'`, token.STRING, `back\slash`},
		{`"tab\there"`, token.STRING, "tab\there"},
		{`"q\"uote \u00e9 \x41"`, token.STRING, "q\"uote é A"},
		{`"x#{1 + "}"}y"`, token.DSTRING, `x#{1 + "}"}y`},
		{`"no \#{interp}"`, token.STRING, "no #{interp}"},
	}

	for _, tt := range tests {
		toks := collect(t, tt.input)
		require.Len(t, toks, 2, tt.input)
		assert.Equal(t, tt.kind, toks[0].Type, tt.input)
		assert.Equal(t, tt.expected, toks[0].Literal, tt.input)
	}
}

func TestHeredocs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     token.TokenType
		expected string
	}{
		{
			name:     "plain",
			input:    "puts <<EOS\n  one\ntwo\nEOS\n",
			kind:     token.STRING,
			expected: "  one\ntwo\n",
		},
		{
			name:     "indented terminator",
			input:    "puts <<-EOS\n  one\n  EOS\n",
			kind:     token.STRING,
			expected: "  one\n",
		},
		{
			name:     "squiggly",
			input:    "puts <<~EOS\n    one\n      two\n\n    three\n  EOS\n",
			kind:     token.STRING,
			expected: "one\n  two\n\nthree\n",
		},
		{
			name:     "literal tag",
			input:    "puts <<~'EOS'\n  a #{b} \\n\n  EOS\n",
			kind:     token.STRING,
			expected: "a #{b} \\n\n",
		},
		{
			name:     "interpolated",
			input:    "puts <<~\"EOS\"\n  v=#{x}\n  EOS\n",
			kind:     token.DSTRING,
			expected: "v=#{x}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := collect(t, tt.input)
			require.GreaterOrEqual(t, len(toks), 3)
			assert.Equal(t, token.TokenType(token.NAME), toks[0].Type)
			assert.Equal(t, tt.kind, toks[1].Type)
			assert.Equal(t, tt.expected, toks[1].Literal)
			assert.Equal(t, token.TokenType(token.EOL), toks[2].Type)
			assert.Equal(t, token.TokenType(token.EOF), toks[len(toks)-1].Type)
		})
	}
}

func TestHeredocRestOfLineKeepsLexing(t *testing.T) {
	input := "x = <<~A.strip + y\n  body\nA\nz"
	assertTokens(t, input, []expectedToken{
		{token.NAME, "x"},
		{token.ASSIGN, "="},
		{token.STRING, "body\n"},
		{token.PERIOD, "."},
		{token.NAME, "strip"},
		{token.PLUS, "+"},
		{token.NAME, "y"},
		{token.EOL, "\n"},
		{token.NAME, "z"},
	})
}

func TestCommentsAndBlockComments(t *testing.T) {
	input := "=begin\nignored\n=end\na # note\n# whole line\nb"
	assertTokens(t, input, []expectedToken{
		{token.EOL, "\n"},
		{token.NAME, "a"},
		{token.EOL, "\n"},
		{token.EOL, "\n"},
		{token.NAME, "b"},
	})
}

func TestPushBackIsAStack(t *testing.T) {
	l := New("a b c")
	a, err := l.Next()
	require.NoError(t, err)
	b, err := l.Next()
	require.NoError(t, err)

	l.PushBack(b)
	l.PushBack(a)

	for _, want := range []string{"a", "b", "c"} {
		tok, err := l.Next()
		require.NoError(t, err)
		assert.Equal(t, want, tok.Literal)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input      string
		message    string
		incomplete bool
	}{
		{"@1", "invalid instance variable name", false},
		{"@@", "invalid class variable name", false},
		{"$9", "invalid global variable name", false},
		{`"never closed`, "unterminated string literal", true},
		{`'never closed`, "unterminated string literal", true},
		{"x = <<EOS\nbody\n", "unterminated heredoc EOS", true},
		{"1__0", "underscore must be between digits in number literal", false},
		{"`", "unexpected character '`'", false},
	}

	for _, tt := range tests {
		l := New(tt.input)
		var err error
		for err == nil {
			var tok token.Token
			tok, err = l.Next()
			if tok.Type == token.EOF {
				break
			}
		}
		require.Error(t, err, tt.input)
		var syntaxErr *SyntaxError
		require.True(t, errors.As(err, &syntaxErr), tt.input)
		assert.Equal(t, tt.message, syntaxErr.Message, tt.input)
		assert.Equal(t, tt.incomplete, syntaxErr.Incomplete, tt.input)
	}
}

func TestSyntaxErrorPosition(t *testing.T) {
	l := New("a\n  @1")
	for i := 0; i < 2; i++ {
		_, err := l.Next()
		require.NoError(t, err)
	}
	_, err := l.Next()
	require.Error(t, err)
	assert.Equal(t, "[  2: 3] invalid instance variable name", err.Error())
}
