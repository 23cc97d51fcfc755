package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"garnet/internal/token"
)

// readSingleQuoted reads a '...' literal. Only \\ and \' are escapes.
func (l *Lexer) readSingleQuoted(start int) (token.Token, error) {
	l.readChar() // consume the opening '
	var out strings.Builder
	for {
		switch l.ch {
		case 0:
			return token.Token{}, l.incompletef(start, "unterminated string literal")
		case '\\':
			if next := l.peekChar(); next == '\\' || next == '\'' {
				l.readChar()
			}
		case '\'':
			l.readChar() // consume the closing '
			return token.Token{Type: token.STRING, Literal: out.String(), Position: start, End: l.position}, nil
		}
		out.WriteRune(l.ch)
		l.readChar()
	}
}

// readDoubleQuoted reads a "..." literal. Without interpolation the escapes are
// processed here and a STRING comes back. With #{...} the raw text is kept
// for the parser, which splits it and unescapes the literal parts.
func (l *Lexer) readDoubleQuoted(start int) (token.Token, error) {
	l.readChar() // consume the opening "
	rawStart := l.position
	interpolated := false
	for {
		switch l.ch {
		case 0:
			return token.Token{}, l.incompletef(start, "unterminated string literal")
		case '\\':
			l.readChar()
			if l.ch == 0 {
				return token.Token{}, l.incompletef(start, "unterminated string literal")
			}
		case '#':
			if l.peekChar() == '{' {
				interpolated = true
				l.readChar() // consume #
				if err := l.skipInterpolation(start); err != nil {
					return token.Token{}, err
				}
				continue
			}
		case '"':
			raw := l.input[rawStart:l.position]
			l.readChar() // consume the closing "
			if interpolated {
				return token.Token{Type: token.DSTRING, Literal: raw, Position: start, End: l.position}, nil
			}
			value, err := Unescape(raw)
			if err != nil {
				return token.Token{}, l.errorf(start, "%s", err.Error())
			}
			return token.Token{Type: token.STRING, Literal: value, Position: start, End: l.position}, nil
		}
		l.readChar()
	}
}

// skipInterpolation moves past a balanced {...} that starts at the current
// '{', stepping over nested string literals.
func (l *Lexer) skipInterpolation(start int) error {
	depth := 0
	for {
		switch l.ch {
		case 0:
			return l.incompletef(start, "unterminated string interpolation")
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				l.readChar()
				return nil
			}
		case '"', '\'':
			quote := l.ch
			l.readChar()
			for l.ch != quote {
				if l.ch == 0 {
					return l.incompletef(start, "unterminated string literal")
				}
				if l.ch == '\\' {
					l.readChar()
				}
				l.readChar()
			}
		}
		l.readChar()
	}
}

// Unescape processes the backslash escapes of a double quoted string.
func Unescape(raw string) (string, error) {
	if !strings.ContainsRune(raw, '\\') {
		return raw, nil
	}
	var out strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			out.WriteByte(c)
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case '0':
			out.WriteByte(0)
		case 's':
			out.WriteByte(' ')
		case 'e':
			out.WriteByte(0x1b)
		case 'a':
			out.WriteByte('\a')
		case 'b':
			out.WriteByte('\b')
		case 'f':
			out.WriteByte('\f')
		case 'v':
			out.WriteByte('\v')
		case 'x':
			j := i + 1
			for j < len(raw) && j < i+3 && isHexDigit(rune(raw[j])) {
				j++
			}
			if j == i+1 {
				return "", errInvalidEscape("\\x")
			}
			v, _ := strconv.ParseUint(raw[i+1:j], 16, 8)
			out.WriteByte(byte(v))
			i = j - 1
		case 'u':
			r, next, err := readUnicodeEscape(raw, i+1)
			if err != nil {
				return "", err
			}
			out.WriteRune(r)
			i = next - 1
		default:
			// \\, \", \# and unknown escapes stand for the character itself
			r, size := utf8.DecodeRuneInString(raw[i:])
			out.WriteRune(r)
			i += size - 1
		}
	}
	return out.String(), nil
}

type errInvalidEscape string

func (e errInvalidEscape) Error() string { return "invalid escape sequence " + string(e) }

func readUnicodeEscape(raw string, i int) (rune, int, error) {
	if i < len(raw) && raw[i] == '{' {
		end := strings.IndexByte(raw[i:], '}')
		if end < 0 {
			return 0, 0, errInvalidEscape("\\u{")
		}
		v, err := strconv.ParseUint(raw[i+1:i+end], 16, 32)
		if err != nil {
			return 0, 0, errInvalidEscape("\\u{" + raw[i+1:i+end] + "}")
		}
		return rune(v), i + end + 1, nil
	}
	if i+4 > len(raw) {
		return 0, 0, errInvalidEscape("\\u")
	}
	v, err := strconv.ParseUint(raw[i:i+4], 16, 32)
	if err != nil {
		return 0, 0, errInvalidEscape("\\u" + raw[i:i+4])
	}
	return rune(v), i + 4, nil
}

// readHeredoc reads <<TAG, <<-TAG, <<~TAG and their quoted-tag forms. The
// body is taken from the lines after the current one, and the scanner skips
// over it when it reaches the end of the current line. ok is false when the
// '<<' is an operator.
func (l *Lexer) readHeredoc(start int) (token.Token, bool, error) {
	i := start + 2
	indentTerm, squiggly := false, false
	if i < len(l.input) && (l.input[i] == '-' || l.input[i] == '~') {
		indentTerm = true
		squiggly = l.input[i] == '~'
		i++
	}
	if i >= len(l.input) {
		return token.Token{}, false, nil
	}

	quote := byte(0)
	var tag string
	switch c := l.input[i]; {
	case c == '\'' || c == '"':
		quote = c
		end := strings.IndexByte(l.input[i+1:], c)
		if end < 0 || strings.ContainsRune(l.input[i+1:i+1+end], '\n') {
			return token.Token{}, true, l.errorf(start, "unterminated heredoc identifier")
		}
		tag = l.input[i+1 : i+1+end]
		i += end + 2
	case c == '_' || (c >= 'A' && c <= 'Z') || (indentTerm && isLetter(rune(c))):
		j := i
		for j < len(l.input) && (isLetter(rune(l.input[j])) || isDigit(rune(l.input[j]))) {
			j++
		}
		tag = l.input[i:j]
		i = j
	default:
		return token.Token{}, false, nil
	}

	// `a <<B` after a value is a shift, except after a spaced command name
	// like `puts <<EOS`.
	if l.last.Type != "" && endsValue(l.last) {
		return token.Token{}, false, nil
	}
	if l.last.Type == token.NAME && !l.isSpaced(start) {
		return token.Token{}, false, nil
	}

	lineEnd := l.heredocLine
	bodyStart := l.heredocEnd
	if lineEnd < 0 {
		nl := strings.IndexByte(l.input[i:], '\n')
		if nl < 0 {
			return token.Token{}, true, l.incompletef(start, "unterminated heredoc %s", tag)
		}
		lineEnd = i + nl
		bodyStart = lineEnd + 1
	}

	var lines []string
	pos := bodyStart
	found := false
	for pos < len(l.input) {
		nl := strings.IndexByte(l.input[pos:], '\n')
		next := len(l.input)
		line := l.input[pos:]
		if nl >= 0 {
			line = l.input[pos : pos+nl]
			next = pos + nl + 1
		}
		check := strings.TrimRight(line, "\r")
		if indentTerm {
			check = strings.TrimLeft(check, " \t")
		}
		if check == tag {
			found = true
			pos = next
			break
		}
		lines = append(lines, line+"\n")
		pos = next
	}
	if !found {
		return token.Token{}, true, l.incompletef(start, "unterminated heredoc %s", tag)
	}

	if squiggly {
		lines = dedent(lines)
	}
	body := strings.Join(lines, "")

	l.heredocLine = lineEnd
	l.heredocEnd = pos

	// move the scanner past the opener
	for l.position < i {
		l.readChar()
	}

	if quote == '\'' {
		return token.Token{Type: token.STRING, Literal: body, Position: start, End: l.position}, true, nil
	}
	if strings.Contains(body, "#{") {
		return token.Token{Type: token.DSTRING, Literal: body, Position: start, End: l.position}, true, nil
	}
	value, err := Unescape(body)
	if err != nil {
		return token.Token{}, true, l.errorf(start, "%s", err.Error())
	}
	return token.Token{Type: token.STRING, Literal: value, Position: start, End: l.position}, true, nil
}

func (l *Lexer) isSpaced(pos int) bool {
	return pos > 0 && (l.input[pos-1] == ' ' || l.input[pos-1] == '\t')
}

// dedent strips the smallest common leading whitespace of the non-blank lines.
func dedent(lines []string) []string {
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return lines
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if n > indent {
			n = indent
		}
		out[i] = line[n:]
	}
	return out
}
