package repl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garnet/internal/config"
	"garnet/internal/machine"
)

type scriptedReader struct {
	lines   []string
	prompts []string
	history []string
}

func (r *scriptedReader) Prompt(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	if line == "^C" {
		return "", errors.New("prompt aborted")
	}
	return line, nil
}

func (r *scriptedReader) AppendHistory(item string) {
	r.history = append(r.history, item)
}

func start(t *testing.T, lines ...string) (*scriptedReader, string) {
	t.Helper()
	out := new(bytes.Buffer)
	m, err := machine.New(config.Default(), machine.WithOutput(out))
	require.NoError(t, err)
	in := &scriptedReader{lines: lines}
	Start(context.Background(), m, in, out)
	return in, out.String()
}

func TestContinuationLines(t *testing.T) {
	in, out := start(t,
		"def add(a, b)",
		"  a + b",
		"end",
		"x = 2",
		"add(x, 3)",
	)
	assert.Equal(t, "=> :add\n=> 2\n=> 5\n\n", out)
	assert.Equal(t, []string{PROMPT, CONT_PROMPT, CONT_PROMPT, PROMPT, PROMPT, PROMPT}, in.prompts)
	assert.Equal(t, []string{"def add(a, b)   a + b end", "x = 2", "add(x, 3)"}, in.history)
}

func TestErrorsKeepTheSessionAlive(t *testing.T) {
	_, out := start(t,
		"raise ArgumentError, 'nope'",
		"1 + )",
		"puts 'still here'",
	)
	assert.Contains(t, out, "ArgumentError")
	assert.Contains(t, out, "nope")
	assert.Contains(t, out, "still here\n=> nil\n")
}

func TestCommands(t *testing.T) {
	in, out := start(t, ":help", "if true", "^C", ":quit", "1")
	assert.Equal(t, "unknown command, type :quit to exit\n", out)
	assert.Empty(t, in.history)
	assert.Len(t, in.lines, 1, "nothing is read after :quit")
}
