package util

import (
	"fmt"
	"strings"
)

// GetLineAndColumn converts a byte offset into a 1-based line and rune column.
func GetLineAndColumn(src string, pos int) (line int, column int) {
	line = 1
	column = 1
	for i, char := range src {
		if i >= pos {
			break
		}
		if char == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return
}

// GetContextLines renders up to two lines before errorLine plus the error line
// itself, with a caret under errorCol.
func GetContextLines(src string, errorLine, errorCol int) string {
	lines := strings.Split(src, "\n")
	if errorLine > len(lines) {
		errorLine = len(lines)
	}

	var result strings.Builder
	for i := max(errorLine-2, 1); i <= errorLine; i++ {
		content := lines[i-1]
		if i != errorLine {
			fmt.Fprintf(&result, "     %3d | %s\n", i, content)
			continue
		}
		margin := fmt.Sprintf("  >  %3d | ", i)
		fmt.Fprintf(&result, "%s%s\n", margin, content)

		prefix := []rune(content)
		if col := errorCol - 1; col < len(prefix) {
			prefix = prefix[:max(col, 0)]
		}
		result.WriteString(replaceVisibleWithSpaces(margin + string(prefix)))
		result.WriteString("^ unexpected here")
	}
	return result.String()
}

// replaceVisibleWithSpaces replaces all non-whitespace characters with spaces
// while preserving tabs for correct alignment.
func replaceVisibleWithSpaces(s string) string {
	var buf strings.Builder
	for _, c := range s {
		if c == '\t' {
			buf.WriteRune('\t')
		} else {
			buf.WriteRune(' ')
		}
	}
	return buf.String()
}
