// Package repl reads commands line by line, asking for more input while a
// construct is left open, and prints each result.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"garnet/internal/evaluator"
	"garnet/internal/machine"
	"garnet/internal/parser"
)

const (
	PROMPT       = ">> "
	CONT_PROMPT  = ".. "
	RESULT_ARROW = "=> "
)

// LineReader is satisfied by *liner.State.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// Start runs until in reaches EOF or the user types :quit.
func Start(ctx context.Context, m *machine.Machine, in LineReader, out io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		src, ok := read(in)
		if !ok {
			fmt.Fprintln(out)
			return
		}
		trimmed := strings.TrimSpace(src)
		switch {
		case trimmed == "":
			continue
		case trimmed == ":quit" || trimmed == ":exit":
			return
		case strings.HasPrefix(trimmed, ":"):
			fmt.Fprintln(out, "unknown command, type :quit to exit")
			continue
		}
		in.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		val, err := m.Execute(ctx, src)
		if err != nil {
			printError(out, err)
			continue
		}
		io.WriteString(out, RESULT_ARROW+val.Inspect()+"\n")
	}
}

// read collects lines until they parse or fail for a reason other than
// running out of input.
func read(in LineReader) (string, bool) {
	var b strings.Builder
	for {
		prompt := PROMPT
		if b.Len() > 0 {
			prompt = CONT_PROMPT
		}
		line, err := in.Prompt(prompt)
		switch {
		case errors.Is(err, io.EOF):
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		case err != nil:
			// ctrl-c drops the pending input
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if _, err := parser.Parse(b.String()); err == nil || !parser.IsIncomplete(err) {
			return b.String(), true
		}
	}
}

func printError(out io.Writer, err error) {
	var raised *evaluator.RaisedError
	if errors.As(err, &raised) {
		io.WriteString(out, raised.Render()+"\n")
		return
	}
	io.WriteString(out, err.Error()+"\n")
}
