package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Control bytes the editor understands. Raw mode turns off the line
// discipline, so these arrive as plain input.
const (
	ctrlC     = 0x03
	ctrlD     = 0x04
	ctrlU     = 0x15
	backspace = 0x7f
)

// Editor assembles completed lines from a character stream, echoing as
// it goes. It satisfies LineSource: one auxiliary goroutine does the
// blocking reads and feeds a small channel the loop polls.
//
// Editing surface: backspace deletes one grapheme cluster, Ctrl-U
// clears the line. With the line discipline off, Ctrl-C is delivered as
// a terminate command and Ctrl-D on an empty line as quit.
type Editor struct {
	in      io.Reader
	out     io.Writer
	lines   chan string
	done    chan struct{}
	restore func() error

	closeOnce sync.Once
	closeErr  error
}

// NewEditor starts an editor over the given reader and writer. The
// caller owns any terminal mode switching.
func NewEditor(in io.Reader, out io.Writer) *Editor {
	e := &Editor{
		in:    in,
		out:   out,
		lines: make(chan string, 8),
		done:  make(chan struct{}),
	}
	go e.read()
	return e
}

// NewTerminalEditor puts stdin into raw mode and returns an editor over
// it. Close restores the terminal exactly once.
func NewTerminalEditor() (*Editor, error) {
	guard, err := enterRawMode(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	e := NewEditor(os.Stdin, os.Stdout)
	e.restore = guard.Restore
	return e, nil
}

// PollLine returns one completed line without blocking.
func (e *Editor) PollLine() (string, bool) {
	select {
	case line := <-e.lines:
		return line, true
	default:
		return "", false
	}
}

// Close stops line delivery and restores the terminal mode. Later calls
// return the first call's result.
func (e *Editor) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		if e.restore != nil {
			e.closeErr = e.restore()
		}
	})
	return e.closeErr
}

// emit hands a finished line to the poll channel. Returns false once
// the editor is closed.
func (e *Editor) emit(line string) bool {
	select {
	case e.lines <- line:
		return true
	case <-e.done:
		return false
	}
}

// read is the blocking rune loop. It exits on reader error or Close.
func (e *Editor) read() {
	r := bufio.NewReader(e.in)
	var buf string
	lastCR := false

	for {
		select {
		case <-e.done:
			return
		default:
		}

		ch, _, err := r.ReadRune()
		if err != nil {
			return
		}

		// A CRLF pair is one line terminator, not two
		if ch == '\n' && lastCR {
			lastCR = false
			continue
		}
		lastCR = ch == '\r'

		switch {
		case ch == '\r' || ch == '\n':
			fmt.Fprint(e.out, "\r\n")
			if !e.emit(buf) {
				return
			}
			buf = ""
		case ch == ctrlC:
			fmt.Fprint(e.out, "^C\r\n")
			buf = ""
			if !e.emit("terminate") {
				return
			}
		case ch == ctrlD:
			if buf == "" {
				fmt.Fprint(e.out, "\r\n")
				if !e.emit("quit") {
					return
				}
			}
		case ch == ctrlU:
			e.erase(runewidth.StringWidth(buf))
			buf = ""
		case ch == backspace || ch == '\b':
			trimmed, width := trimLastGrapheme(buf)
			buf = trimmed
			e.erase(width)
		case !unicode.IsControl(ch):
			buf += string(ch)
			fmt.Fprint(e.out, string(ch))
		}
	}
}

// erase backs the cursor over width terminal cells.
func (e *Editor) erase(width int) {
	if width <= 0 {
		return
	}
	fmt.Fprint(e.out, strings.Repeat("\b \b", width))
}

// trimLastGrapheme removes the final grapheme cluster from s, returning
// the shortened string and the display width of what was removed. A
// cluster may span several runes, so this walks the whole string.
func trimLastGrapheme(s string) (string, int) {
	if s == "" {
		return "", 0
	}

	var last string
	cut := 0
	rest := s
	state := -1
	for len(rest) > 0 {
		cluster, tail, _, newState := uniseg.StepString(rest, state)
		last = cluster
		cut = len(s) - len(tail) - len(cluster)
		rest = tail
		state = newState
	}

	return s[:cut], runewidth.StringWidth(last)
}
