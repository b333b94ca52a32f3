package channel

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
)

// ErrInterrupt is returned by a LineReader when the user presses Ctrl-C at
// the prompt.
var ErrInterrupt = readline.ErrInterrupt

// LineReader yields one line of user input per call. It returns io.EOF when
// input is exhausted and ErrInterrupt on Ctrl-C.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

var _ LineReader = (*readline.Instance)(nil)

// NewReadlineReader returns an interactive line editor with persistent
// history. historyFile may be empty.
func NewReadlineReader(prompt, historyFile string) (LineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return rl, nil
}

// StdinIsTerminal reports whether standard input is an interactive terminal.
func StdinIsTerminal() bool {
	return readline.IsTerminal(int(os.Stdin.Fd()))
}

// scannerReader reads lines from a plain stream, for piped input and tests.
type scannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

// NewScannerReader reads newline-delimited input from in, writing prompt to
// out before each line when out is non-nil.
func NewScannerReader(in io.Reader, out io.Writer, prompt string) LineReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scannerReader{scanner: s, out: out, prompt: prompt}
}

func (r *scannerReader) Readline() (string, error) {
	if r.out != nil && r.prompt != "" {
		fmt.Fprint(r.out, r.prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *scannerReader) Close() error { return nil }
