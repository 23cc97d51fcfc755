package foreign

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerString(reg *registry.Registry) {
	reg.Method("String", fnStrLength(), "length", "size")
	reg.Method("String", fnStrBytesize(), "bytesize")
	reg.Method("String", fnObjectItself(), "to_s", "to_str")
	reg.Method("String", fnStrInspect(), "inspect")
	reg.Method("String", fnStrToSym(), "to_sym", "intern")
	reg.Method("String", fnStrToI(), "to_i")
	reg.Method("String", fnStrToF(), "to_f")
	reg.Method("String", fnStrHex(16), "hex")
	reg.Method("String", fnStrHex(8), "oct")
	reg.Method("String", fnStrEmpty(), "empty?")
	reg.Method("String", fnStrOrd(), "ord")
	reg.Method("String", fnStrChars(), "chars")
	reg.Method("String", fnStrBytes(), "bytes")
	reg.Method("String", fnStrLines(), "lines")
	reg.Method("String", fnStrEach(strChars), "each_char")
	reg.Method("String", fnStrEach(strLines), "each_line")
	reg.Method("String", fnStrSplit(), "split")
	reg.Method("String", fnStrIndex(false), "index")
	reg.Method("String", fnStrIndex(true), "rindex")
	reg.Method("String", fnStrInclude(), "include?")
	reg.Method("String", fnStrAffix(strings.HasPrefix), "start_with?")
	reg.Method("String", fnStrAffix(strings.HasSuffix), "end_with?")
	reg.Method("String", fnStrSlice(), "[]", "slice")
	reg.Method("String", fnStrSetSlice(), "[]=")
	reg.Method("String", fnStrRepeat(), "*")
	reg.Method("String", fnStrFormat(), "%")
	reg.Method("String", fnStrAppend(), "<<", "concat")
	reg.Method("String", fnStrInsert(), "insert")
	reg.Method("String", fnStrPrepend(), "prepend")
	reg.Method("String", fnStrReplace(), "replace")
	reg.Method("String", fnStrClear(), "clear")
	reg.Method("String", fnStrSub(false), "sub")
	reg.Method("String", fnStrSub(true), "gsub")
	reg.Method("String", fnStrSubBang(false), "sub!")
	reg.Method("String", fnStrSubBang(true), "gsub!")
	reg.Method("String", fnStrScan(), "scan")
	reg.Method("String", fnStrTr(), "tr")
	reg.Method("String", fnStrDelete(), "delete")
	reg.Method("String", fnStrSqueeze(), "squeeze")
	reg.Method("String", fnStrCount(), "count")
	reg.Method("String", fnStrPad(padCenter), "center")
	reg.Method("String", fnStrPad(padLeft), "ljust")
	reg.Method("String", fnStrPad(padRight), "rjust")
	reg.Method("String", fnStrPartition(false), "partition")
	reg.Method("String", fnStrPartition(true), "rpartition")
	reg.Method("String", fnStrCasecmp(false), "casecmp")
	reg.Method("String", fnStrCasecmp(true), "casecmp?")
	reg.Method("String", fnStrSucc(), "succ", "next")
	reg.Method("String", fnStrUpto(), "upto")
	reg.Method("String", fnStrDup(), "+@", "dup")
	reg.Method("String", fnStrDedup(), "-@")
	reg.Method("String", fnObjectItself(), "force_encoding", "scrub")
	reg.Method("String", fnConst(str("UTF-8")), "encoding")
	reg.Method("String", fnStrAsciiOnly(), "ascii_only?")

	transforms := map[string]func(string) string{
		"upcase":     strings.ToUpper,
		"downcase":   strings.ToLower,
		"capitalize": capitalize,
		"swapcase":   swapcase,
		"reverse":    reverse,
		"strip":      strings.TrimSpace,
		"lstrip":     func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) },
		"rstrip":     func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) },
		"chop":       chop,
	}
	for name, fn := range transforms {
		reg.Method("String", fnStrTransform(fn), name)
		reg.Method("String", fnStrBang(fn), name+"!")
	}
	reg.Method("String", fnStrChomp(false), "chomp")
	reg.Method("String", fnStrChomp(true), "chomp!")
	reg.Method("String", fnStrTrim(strings.TrimPrefix), "delete_prefix")
	reg.Method("String", fnStrTrim(strings.TrimSuffix), "delete_suffix")
}

func selfStr(ctx object.EvaluatorContext) *object.String {
	return ctx.Self().(*object.String)
}

func fnStrLength() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(int64(utf8.RuneCountInString(selfStr(ctx).Value))), nil
	}
}

func fnStrBytesize() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(int64(len(selfStr(ctx).Value))), nil
	}
}

func fnStrInspect() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(selfStr(ctx).Inspect()), nil
	}
}

func fnStrToSym() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return sym(selfStr(ctx).Value), nil
	}
}

// leadingInt parses the integer prefix of s the way String#to_i does:
// surrounding junk is ignored and no digits give 0.
func leadingInt(s string, base int) int64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	lower := strings.ToLower(s)
	prefixes := map[int]string{16: "0x", 8: "0o", 2: "0b"}
	if p, ok := prefixes[base]; ok && strings.HasPrefix(lower, p) {
		s = s[2:]
	}
	var digits strings.Builder
	for i, r := range s {
		if r == '_' && i > 0 {
			continue
		}
		d := strings.IndexRune("0123456789abcdefghijklmnopqrstuvwxyz", unicode.ToLower(r))
		if d < 0 || d >= base {
			break
		}
		digits.WriteRune(r)
	}
	n, err := strconv.ParseInt(digits.String(), base, 64)
	if err != nil {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

func fnStrToI() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		base, err := intArg(ctx, args, 0, 10)
		if err != nil {
			return nil, err
		}
		if base < 2 || base > 36 {
			return nil, ctx.NewError("ArgumentError", "invalid radix %d", base)
		}
		return integer(leadingInt(selfStr(ctx).Value, int(base))), nil
	}
}

func fnStrHex(base int) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(leadingInt(selfStr(ctx).Value, base)), nil
	}
}

// leadingFloat parses the longest numeric prefix of s.
func leadingFloat(s string) float64 {
	s = trimNumber(s)
	end := 0
	seenDot, seenExp, seenDigit := false, false, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case (c == '-' || c == '+') && (end == 0 || s[end-1] == 'e' || s[end-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			break scan
		}
		end++
	}
	for end > 0 {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
		end--
	}
	return 0
}

func fnStrToF() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return float(leadingFloat(selfStr(ctx).Value)), nil
	}
}

func fnStrEmpty() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(selfStr(ctx).Value == ""), nil
	}
}

func fnStrOrd() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		r, size := utf8.DecodeRuneInString(selfStr(ctx).Value)
		if size == 0 {
			return nil, ctx.NewError("ArgumentError", "empty string")
		}
		return integer(int64(r)), nil
	}
}

func strChars(s string) []object.Object {
	out := make([]object.Object, 0, len(s))
	for _, r := range s {
		out = append(out, str(string(r)))
	}
	return out
}

// strLines splits after each newline, keeping it.
func strLines(s string) []object.Object {
	var out []object.Object
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, str(s))
			break
		}
		out = append(out, str(s[:i+1]))
		s = s[i+1:]
	}
	return out
}

func fnStrChars() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NewArray(strChars(selfStr(ctx).Value)...), nil
	}
}

func fnStrBytes() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		s := selfStr(ctx).Value
		out := make([]object.Object, len(s))
		for i := 0; i < len(s); i++ {
			out[i] = integer(int64(s[i]))
		}
		return object.NewArray(out...), nil
	}
}

func fnStrLines() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NewArray(strLines(selfStr(ctx).Value)...), nil
	}
}

func fnStrEach(split func(string) []object.Object) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		parts := split(selfStr(ctx).Value)
		return yieldEach(ctx, parts)
	}
}

// fnStrSplit splits on whitespace runs by default, into characters on an
// empty separator, and drops trailing empty fields unless a limit is given.
func fnStrSplit() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 2); err != nil {
			return nil, err
		}
		s := selfStr(ctx).Value
		limit, err := intArg(ctx, args, 1, 0)
		if err != nil {
			return nil, err
		}
		var parts []string
		sep := optArg(args, 0)
		switch {
		case sep == nil || isNil(sep) || isSpaceSep(sep):
			parts = strings.Fields(s)
			if limit > 0 && int64(len(parts)) > limit {
				trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
				parts = parts[:limit-1]
				rest := trimmed
				for _, p := range parts {
					rest = strings.TrimLeftFunc(strings.TrimPrefix(rest, p), unicode.IsSpace)
				}
				parts = append(parts, rest)
			}
		default:
			sepStr, err := toStr(ctx, sep)
			if err != nil {
				return nil, err
			}
			if sepStr == "" {
				for _, r := range s {
					parts = append(parts, string(r))
				}
				if limit > 0 && int64(len(parts)) > limit {
					parts = append(parts[:limit-1], strings.Join(parts[limit-1:], ""))
				}
			} else if limit > 0 {
				parts = strings.SplitN(s, sepStr, int(limit))
			} else {
				parts = strings.Split(s, sepStr)
			}
		}
		if limit == 0 {
			for len(parts) > 0 && parts[len(parts)-1] == "" {
				parts = parts[:len(parts)-1]
			}
		}
		out := make([]object.Object, len(parts))
		for i, p := range parts {
			out[i] = str(p)
		}
		return object.NewArray(out...), nil
	}
}

func isSpaceSep(obj object.Object) bool {
	s, ok := obj.(*object.String)
	return ok && s.Value == " "
}

// runeIndex converts a byte offset into a character offset.
func runeIndex(s string, byteOffset int) int {
	return utf8.RuneCountInString(s[:byteOffset])
}

// byteOffset converts a character offset into a byte offset.
func byteOffset(s string, runeOffset int) int {
	i := 0
	for pos := range s {
		if i == runeOffset {
			return pos
		}
		i++
	}
	return len(s)
}

func fnStrIndex(last bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		s := selfStr(ctx).Value
		needle, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		n := utf8.RuneCountInString(s)
		if last {
			limit := int64(n)
			if len(args) == 2 {
				if limit, err = toInt(ctx, args[1]); err != nil {
					return nil, err
				}
				if limit < 0 {
					limit += int64(n)
				}
			}
			if limit < 0 {
				return object.NIL, nil
			}
			end := byteOffset(s, int(min(limit, int64(n)))) + len(needle)
			i := strings.LastIndex(s[:min(end, len(s))], needle)
			if i < 0 {
				return object.NIL, nil
			}
			return integer(int64(runeIndex(s, i))), nil
		}
		start, err := intArg(ctx, args, 1, 0)
		if err != nil {
			return nil, err
		}
		from, ok := normalizeIndex(start, n)
		if !ok {
			return object.NIL, nil
		}
		off := byteOffset(s, from)
		i := strings.Index(s[off:], needle)
		if i < 0 {
			return object.NIL, nil
		}
		return integer(int64(runeIndex(s, off+i))), nil
	}
}

func fnStrInclude() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		sub, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return object.NativeBool(strings.Contains(selfStr(ctx).Value, sub)), nil
	}
}

func fnStrAffix(test func(s, affix string) bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		for _, arg := range args {
			affix, err := toStr(ctx, arg)
			if err != nil {
				return nil, err
			}
			if test(selfStr(ctx).Value, affix) {
				return object.TRUE, nil
			}
		}
		return object.FALSE, nil
	}
}

// strSpan resolves the forms of String#[] into a character span. found is
// false when the index is out of range; a string argument locates its
// first occurrence.
func strSpan(ctx object.EvaluatorContext, s string, args []object.Object) (start, count int, found bool, err error) {
	runes := utf8.RuneCountInString(s)
	switch idx := args[0].(type) {
	case *object.Range:
		if len(args) != 1 {
			return 0, 0, false, checkArgs(ctx, args, 1, 1)
		}
		return rangeSpan(ctx, idx, runes)
	case *object.String:
		i := strings.Index(s, idx.Value)
		if i < 0 {
			return 0, 0, false, nil
		}
		return runeIndex(s, i), utf8.RuneCountInString(idx.Value), true, nil
	}
	i, err := toInt(ctx, args[0])
	if err != nil {
		return 0, 0, false, err
	}
	if len(args) == 2 {
		n, err := toInt(ctx, args[1])
		if err != nil {
			return 0, 0, false, err
		}
		from, ok := normalizeIndex(i, runes)
		if !ok || n < 0 {
			return 0, 0, false, nil
		}
		return from, int(min(n, int64(runes-from))), true, nil
	}
	from, ok := normalizeIndex(i, runes)
	if !ok || from == runes {
		return 0, 0, false, nil
	}
	return from, 1, true, nil
}

func fnStrSlice() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		s := selfStr(ctx).Value
		start, count, found, err := strSpan(ctx, s, args)
		if err != nil || !found {
			return object.NIL, err
		}
		from := byteOffset(s, start)
		return str(s[from:byteOffset(s, start+count)]), nil
	}
}

func fnStrSetSlice() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 3); err != nil {
			return nil, err
		}
		self := selfStr(ctx)
		if err := checkFrozen(ctx, self); err != nil {
			return nil, err
		}
		value := args[len(args)-1]
		repl, err := toStr(ctx, value)
		if err != nil {
			return nil, err
		}
		start, count, found, err := strSpan(ctx, self.Value, args[:len(args)-1])
		if err != nil {
			return nil, err
		}
		if !found {
			if _, isStr := args[0].(*object.String); isStr {
				return nil, ctx.NewError("IndexError", "string not matched")
			}
			return nil, ctx.NewError("IndexError", "index %s out of string", args[0].Inspect())
		}
		s := self.Value
		self.Value = s[:byteOffset(s, start)] + repl + s[byteOffset(s, start+count):]
		return value, nil
	}
}

func fnStrRepeat() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		n, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, ctx.NewError("ArgumentError", "negative argument")
		}
		return str(strings.Repeat(selfStr(ctx).Value, int(n))), nil
	}
}

func fnStrFormat() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		values := args
		if arr, ok := args[0].(*object.Array); ok {
			values = arr.Elements
		}
		s, err := format(ctx, selfStr(ctx).Value, values)
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

// mutable returns the receiver after the frozen check every mutator makes.
func mutable(ctx object.EvaluatorContext) (*object.String, error) {
	self := selfStr(ctx)
	return self, checkFrozen(ctx, self)
}

func fnStrAppend() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutable(ctx)
		if err != nil {
			return nil, err
		}
		for _, arg := range args {
			if n, ok := arg.(*object.Integer); ok {
				self.Value += string(rune(n.Value))
				continue
			}
			s, err := toStr(ctx, arg)
			if err != nil {
				return nil, err
			}
			self.Value += s
		}
		return self, nil
	}
}

func fnStrInsert() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		self, err := mutable(ctx)
		if err != nil {
			return nil, err
		}
		i, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		s, err := toStr(ctx, args[1])
		if err != nil {
			return nil, err
		}
		n := utf8.RuneCountInString(self.Value)
		if i < 0 {
			i += int64(n) + 1
		}
		if i < 0 || i > int64(n) {
			return nil, ctx.NewError("IndexError", "index %d out of string", i)
		}
		off := byteOffset(self.Value, int(i))
		self.Value = self.Value[:off] + s + self.Value[off:]
		return self, nil
	}
}

func fnStrPrepend() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutable(ctx)
		if err != nil {
			return nil, err
		}
		prefix := ""
		for _, arg := range args {
			s, err := toStr(ctx, arg)
			if err != nil {
				return nil, err
			}
			prefix += s
		}
		self.Value = prefix + self.Value
		return self, nil
	}
}

func fnStrReplace() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		self, err := mutable(ctx)
		if err != nil {
			return nil, err
		}
		if self.Value, err = toStr(ctx, args[0]); err != nil {
			return nil, err
		}
		return self, nil
	}
}

func fnStrClear() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutable(ctx)
		if err != nil {
			return nil, err
		}
		self.Value = ""
		return self, nil
	}
}

// substitute replaces the first or every occurrence of a literal pattern.
// The replacement is a string, a hash looked up by the match, or the block.
func substitute(ctx object.EvaluatorContext, s string, args []object.Object, global bool) (string, error) {
	if err := checkArgs(ctx, args, 1, 2); err != nil {
		return "", err
	}
	pattern, ok := args[0].(*object.String)
	if !ok {
		return "", ctx.NewError("TypeError", "wrong argument type %s (expected String)", className(ctx, args[0]))
	}
	replace := func(match string) (string, error) {
		if len(args) == 2 {
			if h, ok := args[1].(*object.Hash); ok {
				v, found := h.Get(str(match))
				if !found {
					return "", nil
				}
				return ctx.ToS(v)
			}
			r, err := toStr(ctx, args[1])
			if err != nil {
				return "", err
			}
			return strings.ReplaceAll(r, `\0`, match), nil
		}
		blk, err := requireBlock(ctx)
		if err != nil {
			return "", err
		}
		v, err := ctx.CallProc(blk, str(match))
		if err != nil {
			return "", err
		}
		return ctx.ToS(v)
	}
	if pattern.Value == "" {
		return s, nil
	}
	var out strings.Builder
	rest := s
	for {
		i := strings.Index(rest, pattern.Value)
		if i < 0 {
			break
		}
		r, err := replace(pattern.Value)
		if err != nil {
			return "", err
		}
		out.WriteString(rest[:i])
		out.WriteString(r)
		rest = rest[i+len(pattern.Value):]
		if !global {
			break
		}
	}
	out.WriteString(rest)
	return out.String(), nil
}

func fnStrSub(global bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		s, err := substitute(ctx, selfStr(ctx).Value, args, global)
		if err != nil {
			return nil, err
		}
		return str(s), nil
	}
}

func fnStrSubBang(global bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutable(ctx)
		if err != nil {
			return nil, err
		}
		s, err := substitute(ctx, self.Value, args, global)
		if err != nil {
			return nil, err
		}
		if s == self.Value {
			return object.NIL, nil
		}
		self.Value = s
		return self, nil
	}
}

func fnStrScan() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		pattern, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		var matches []object.Object
		if pattern != "" {
			for range strings.Count(selfStr(ctx).Value, pattern) {
				matches = append(matches, str(pattern))
			}
		}
		if ctx.Block() != nil {
			if _, err := yieldEach(ctx, matches); err != nil {
				return nil, err
			}
			return ctx.Self(), nil
		}
		return object.NewArray(matches...), nil
	}
}

// charSet expands a tr-style set such as "a-z" or "^aeiou".
func charSet(spec string) (set []rune, negated bool) {
	runes := []rune(spec)
	if len(runes) > 1 && runes[0] == '^' {
		negated = true
		runes = runes[1:]
	}
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' && runes[i] <= runes[i+2] {
			for r := runes[i]; r <= runes[i+2]; r++ {
				set = append(set, r)
			}
			i += 2
			continue
		}
		set = append(set, runes[i])
	}
	return set, negated
}

func inSet(r rune, set []rune, negated bool) bool {
	for _, c := range set {
		if c == r {
			return !negated
		}
	}
	return negated
}

func fnStrTr() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 2, 2); err != nil {
			return nil, err
		}
		fromSpec, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		toSpec, err := toStr(ctx, args[1])
		if err != nil {
			return nil, err
		}
		from, negated := charSet(fromSpec)
		to, _ := charSet(toSpec)
		var out strings.Builder
		for _, r := range selfStr(ctx).Value {
			if !inSet(r, from, negated) {
				out.WriteRune(r)
				continue
			}
			if len(to) == 0 {
				continue
			}
			if negated {
				out.WriteRune(to[len(to)-1])
				continue
			}
			for i, c := range from {
				if c == r {
					out.WriteRune(to[min(i, len(to)-1)])
					break
				}
			}
		}
		return str(out.String()), nil
	}
}

func fnStrDelete() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		spec, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		set, negated := charSet(spec)
		return str(strings.Map(func(r rune) rune {
			if inSet(r, set, negated) {
				return -1
			}
			return r
		}, selfStr(ctx).Value)), nil
	}
}

func fnStrSqueeze() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		var set []rune
		negated := true
		if len(args) > 0 {
			spec, err := toStr(ctx, args[0])
			if err != nil {
				return nil, err
			}
			set, negated = charSet(spec)
		}
		var out strings.Builder
		prev := rune(-1)
		for _, r := range selfStr(ctx).Value {
			if r == prev && inSet(r, set, negated) {
				continue
			}
			out.WriteRune(r)
			prev = r
		}
		return str(out.String()), nil
	}
}

func fnStrCount() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		spec, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		set, negated := charSet(spec)
		n := int64(0)
		for _, r := range selfStr(ctx).Value {
			if inSet(r, set, negated) {
				n++
			}
		}
		return integer(n), nil
	}
}

type padding int

const (
	padCenter padding = iota
	padLeft
	padRight
)

func fnStrPad(mode padding) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		width, err := toInt(ctx, args[0])
		if err != nil {
			return nil, err
		}
		pad := " "
		if len(args) == 2 {
			if pad, err = toStr(ctx, args[1]); err != nil {
				return nil, err
			}
			if pad == "" {
				return nil, ctx.NewError("ArgumentError", "zero width padding")
			}
		}
		s := selfStr(ctx).Value
		total := int(width) - utf8.RuneCountInString(s)
		if total <= 0 {
			return str(s), nil
		}
		fill := func(n int) string {
			p := []rune(strings.Repeat(pad, n/utf8.RuneCountInString(pad)+1))
			return string(p[:n])
		}
		switch mode {
		case padLeft:
			return str(s + fill(total)), nil
		case padRight:
			return str(fill(total) + s), nil
		}
		left := total / 2
		return str(fill(left) + s + fill(total-left)), nil
	}
}

func fnStrPartition(last bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		sep, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		s := selfStr(ctx).Value
		i := strings.Index(s, sep)
		if last {
			i = strings.LastIndex(s, sep)
		}
		if i < 0 {
			if last {
				return object.NewArray(str(""), str(""), str(s)), nil
			}
			return object.NewArray(str(s), str(""), str("")), nil
		}
		return object.NewArray(str(s[:i]), str(sep), str(s[i+len(sep):])), nil
	}
}

func fnStrCasecmp(predicate bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, ok := args[0].(*object.String)
		if !ok {
			return object.NIL, nil
		}
		if predicate {
			return object.NativeBool(strings.EqualFold(selfStr(ctx).Value, other.Value)), nil
		}
		return integer(int64(strings.Compare(strings.ToLower(selfStr(ctx).Value), strings.ToLower(other.Value)))), nil
	}
}

// succ increments the rightmost alphanumeric run with carry, so "az"
// becomes "ba" and "zz" becomes "aaa".
func succ(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	i := len(runes) - 1
	for i >= 0 && !isAlnum(runes[i]) {
		i--
	}
	if i < 0 {
		runes[len(runes)-1]++
		return string(runes)
	}
	for {
		r := runes[i]
		switch {
		case r == 'z':
			runes[i] = 'a'
		case r == 'Z':
			runes[i] = 'A'
		case r == '9':
			runes[i] = '0'
		default:
			runes[i]++
			return string(runes)
		}
		j := i - 1
		for j >= 0 && !isAlnum(runes[j]) {
			j--
		}
		if j < 0 {
			carry := map[rune]rune{'a': 'a', 'A': 'A', '0': '1'}[runes[i]]
			return string(runes[:i]) + string(carry) + string(runes[i:])
		}
		i = j
	}
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

func fnStrSucc() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(succ(selfStr(ctx).Value)), nil
	}
}

// strRange lists first..last by succ, stopping once values grow longer
// than last.
func strRange(first, last string, exclusive bool) []object.Object {
	var out []object.Object
	for cur := first; len(cur) <= len(last); cur = succ(cur) {
		if cur == last {
			if !exclusive {
				out = append(out, str(cur))
			}
			break
		}
		out = append(out, str(cur))
	}
	return out
}

func fnStrUpto() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 2); err != nil {
			return nil, err
		}
		last, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		exclusive := len(args) == 2 && object.IsTruthy(args[1])
		return yieldEach(ctx, strRange(selfStr(ctx).Value, last, exclusive))
	}
}

func fnStrDup() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(selfStr(ctx).Value), nil
	}
}

func fnStrDedup() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self := selfStr(ctx)
		if ctx.Root().IsFrozen(self) {
			return self, nil
		}
		copied := str(self.Value)
		ctx.Root().Freeze(copied)
		return copied, nil
	}
}

func fnStrAsciiOnly() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		for _, r := range selfStr(ctx).Value {
			if r > unicode.MaxASCII {
				return object.FALSE, nil
			}
		}
		return object.TRUE, nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func swapcase(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsUpper(r) {
			return unicode.ToLower(r)
		}
		return unicode.ToUpper(r)
	}, s)
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func chop(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

func fnStrTransform(fn func(string) string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(fn(selfStr(ctx).Value)), nil
	}
}

// fnStrBang is the in-place form of a transform. It returns nil when
// nothing changed.
func fnStrBang(fn func(string) string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		self, err := mutable(ctx)
		if err != nil {
			return nil, err
		}
		changed := fn(self.Value)
		if changed == self.Value {
			return object.NIL, nil
		}
		self.Value = changed
		return self, nil
	}
}

func chomp(s string, suffix *string) string {
	if suffix != nil {
		return strings.TrimSuffix(s, *suffix)
	}
	for _, nl := range []string{"\r\n", "\n", "\r"} {
		if strings.HasSuffix(s, nl) {
			return s[:len(s)-len(nl)]
		}
	}
	return s
}

func fnStrChomp(bang bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 0, 1); err != nil {
			return nil, err
		}
		var suffix *string
		if len(args) == 1 {
			s, err := toStr(ctx, args[0])
			if err != nil {
				return nil, err
			}
			suffix = &s
		}
		fn := func(s string) string { return chomp(s, suffix) }
		if bang {
			return fnStrBang(fn)(ctx)
		}
		return fnStrTransform(fn)(ctx)
	}
}

func fnStrTrim(trim func(s, affix string) string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		affix, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return str(trim(selfStr(ctx).Value, affix)), nil
	}
}
