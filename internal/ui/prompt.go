// Package ui implements the small interactive surface of the tool:
// numbered selection, yes/no confirmation, and color swatches.
package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"zotoc/internal/pdfdoc"
)

// Interactive reports whether stdin is a terminal. Prompts are refused
// otherwise, so the pipeline stays runnable non-interactively.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Prompter reads answers from in and writes prompts to out. Tests inject
// buffers instead of the terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Select presents numbered options and returns the chosen index. A single
// option is chosen automatically.
func (p *Prompter) Select(msg string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, errors.New("nothing to select from")
	}
	if len(options) == 1 {
		fmt.Fprintf(p.out, "choosing the only option: %s\n", options[0])
		return 0, nil
	}

	for i, opt := range options {
		fmt.Fprintf(p.out, "%3d: %s\n", i, opt)
	}
	for {
		fmt.Fprintf(p.out, "%s: ", msg)
		line, err := p.in.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("read selection: %w", err)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && idx >= 0 && idx < len(options) {
			return idx, nil
		}
		fmt.Fprintf(p.out, "enter a number between 0 and %d\n", len(options)-1)
	}
}

// AskYesNo asks until the answer is a clear yes or no.
func (p *Prompter) AskYesNo(msg string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s [y/n] ", msg)
		line, err := p.in.ReadString('\n')
		if err != nil {
			return false, fmt.Errorf("read answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "please answer y[es] or n[o]")
	}
}

// Swatch renders a colored block using truecolor escape codes, followed
// by the hex notation for terminals without color support.
func Swatch(c pdfdoc.RGB) string {
	to255 := func(v float64) int {
		n := int(v*255 + 0.5)
		if n < 0 {
			n = 0
		}
		if n > 255 {
			n = 255
		}
		return n
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm█████\x1b[0m %s",
		to255(c[0]), to255(c[1]), to255(c[2]), c.Hex())
}
