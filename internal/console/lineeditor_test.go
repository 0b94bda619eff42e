package console

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScriptedEditor runs the editor over canned keystrokes.
func newScriptedEditor(t *testing.T, keys string) (*Editor, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	e := NewEditor(strings.NewReader(keys), out)
	t.Cleanup(func() { _ = e.Close() })
	return e, out
}

// waitLine blocks until the editor delivers a completed line.
func waitLine(t *testing.T, e *Editor) string {
	t.Helper()
	var line string
	require.Eventually(t, func() bool {
		l, ok := e.PollLine()
		if ok {
			line = l
		}
		return ok
	}, waitFor, tick, "expected a completed line")
	return line
}

// === Line Assembly Tests ===

func TestEditor_AssemblesCompletedLine(t *testing.T) {
	e, out := newScriptedEditor(t, "list\r")

	assert.Equal(t, "list", waitLine(t, e))
	assert.Contains(t, out.String(), "list", "typed characters should echo")
	assert.Contains(t, out.String(), "\r\n", "line end should echo a newline")
}

func TestEditor_PollLineEmptyWithoutInput(t *testing.T) {
	e, _ := newScriptedEditor(t, "")

	_, ok := e.PollLine()
	assert.False(t, ok)
}

func TestEditor_CRLFIsOneLineEnd(t *testing.T) {
	e, _ := newScriptedEditor(t, "one\r\ntwo\r\n")

	assert.Equal(t, "one", waitLine(t, e))
	assert.Equal(t, "two", waitLine(t, e))
	_, ok := e.PollLine()
	assert.False(t, ok, "CRLF must not produce a trailing empty line")
}

func TestEditor_MultibyteRunesSurvive(t *testing.T) {
	e, _ := newScriptedEditor(t, "héllo wörld\r")

	assert.Equal(t, "héllo wörld", waitLine(t, e))
}

func TestEditor_IgnoresUnknownControlBytes(t *testing.T) {
	e, _ := newScriptedEditor(t, "a\x01\x02b\r")

	assert.Equal(t, "ab", waitLine(t, e))
}

// === Editing Tests ===

func TestEditor_BackspaceDeletesLastGrapheme(t *testing.T) {
	e, out := newScriptedEditor(t, "ab\x7fc\r")

	assert.Equal(t, "ac", waitLine(t, e))
	assert.Contains(t, out.String(), "\b \b", "backspace should erase the cell")
}

func TestEditor_BackspaceErasesWideCluster(t *testing.T) {
	// CJK occupies two terminal cells, so both must be wiped
	e, out := newScriptedEditor(t, "世\x7fok\r")

	assert.Equal(t, "ok", waitLine(t, e))
	assert.Contains(t, out.String(), "\b \b\b \b")
}

func TestEditor_BackspaceOnEmptyLineIsHarmless(t *testing.T) {
	e, _ := newScriptedEditor(t, "\x7fok\r")

	assert.Equal(t, "ok", waitLine(t, e))
}

func TestEditor_CtrlUClearsLine(t *testing.T) {
	e, _ := newScriptedEditor(t, "abandoned\x15ok\r")

	assert.Equal(t, "ok", waitLine(t, e))
}

// === Control Key Tests ===

func TestEditor_CtrlCDeliversTerminate(t *testing.T) {
	e, out := newScriptedEditor(t, "\x03")

	assert.Equal(t, "terminate", waitLine(t, e))
	assert.Contains(t, out.String(), "^C")
}

func TestEditor_CtrlCDropsPartialLine(t *testing.T) {
	e, _ := newScriptedEditor(t, "half\x03")

	assert.Equal(t, "terminate", waitLine(t, e))
	_, ok := e.PollLine()
	assert.False(t, ok, "the abandoned partial line must not surface")
}

func TestEditor_CtrlDOnEmptyLineDeliversQuit(t *testing.T) {
	e, _ := newScriptedEditor(t, "\x04")

	assert.Equal(t, "quit", waitLine(t, e))
}

func TestEditor_CtrlDMidLineIgnored(t *testing.T) {
	e, _ := newScriptedEditor(t, "ab\x04c\r")

	assert.Equal(t, "abc", waitLine(t, e))
}

// === Close Tests ===

func TestEditor_CloseRunsRestoreOnce(t *testing.T) {
	e, _ := newScriptedEditor(t, "")
	restores := 0
	e.restore = func() error {
		restores++
		return nil
	}

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, 1, restores)
}

func TestEditor_CloseReturnsRestoreError(t *testing.T) {
	e, _ := newScriptedEditor(t, "")
	boom := errors.New("restore failed")
	e.restore = func() error { return boom }

	require.ErrorIs(t, e.Close(), boom)
	require.ErrorIs(t, e.Close(), boom, "later calls return the first result")
}

// === Grapheme Tests ===

func TestTrimLastGrapheme(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      string
		wantWidth int
	}{
		{"empty", "", "", 0},
		{"ascii", "abc", "ab", 1},
		{"single rune", "a", "", 1},
		{"cjk", "ab世", "ab", 2},
		{"combining accent", "éx", "é", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, width := trimLastGrapheme(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantWidth, width)
		})
	}
}

// === Raw Mode Tests ===

func TestEnterRawMode_RequiresTerminal(t *testing.T) {
	f, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	_, err = enterRawMode(int(f.Fd()))
	require.ErrorIs(t, err, ErrRawMode)
}
