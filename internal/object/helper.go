package object

import (
	"bytes"
	"fmt"

	"garnet/internal/util"
)

// Frame is one backtrace entry: the method running, where it was called.
type Frame struct {
	Function string
	File     string
	Src      string
	Position int
}

func (f Frame) String() string {
	line, col := util.GetLineAndColumn(f.Src, f.Position)
	file := f.File
	if file == "" {
		file = "(eval)"
	}
	return fmt.Sprintf("%s:%d:%d:in '%s'", file, line, col, f.Function)
}

// RenderBacktrace formats an uncaught exception for a terminal: the message,
// a source excerpt around the innermost frame and the frame list.
func RenderBacktrace(className, message string, frames []Frame) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s: %s\n", className, message)

	if len(frames) > 0 && frames[0].Src != "" {
		l, c := util.GetLineAndColumn(frames[0].Src, frames[0].Position)
		buf.WriteString(util.GetContextLines(frames[0].Src, l, c))
		buf.WriteString("\n")
	}

	for _, frame := range frames {
		fmt.Fprintf(&buf, "\tfrom %s\n", frame)
	}
	return buf.String()
}
