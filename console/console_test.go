package console

import (
	"bytes"
	stdErrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lab0/config"
	"lab0/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()
	cfg := config.GetDefaultConfig()
	require.NoError(t, cfg.Adjust())
	out := &bytes.Buffer{}
	return New(cfg, out), out
}

// execLines runs lines and returns the console error count.
func execLines(c *Console, lines ...string) int {
	for _, line := range lines {
		_ = c.Exec(line)
	}
	return c.Errors()
}

func writeScript(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestConsole_InsertRemove(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"# insert at both ends",
		"new",
		"ih a",
		"ih b",
		"it c",
		"",
		"size",
		"show",
		"rh b",
		"rh a",
		"rh c",
		"size",
		"free",
	)
	require.Equal(t, 0, errs, out.String())
	require.Nil(t, c.Queue())
	require.Contains(t, out.String(), "cmd> ih a")
	require.Contains(t, out.String(), "q = [b a c]")
	require.Contains(t, out.String(), "Removed b from queue")
	require.NotContains(t, out.String(), "cmd> # insert")
}

func TestConsole_InsertRepeat(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"new",
		"it x 5",
		"ih RAND 10",
		"size 3",
	)
	require.Equal(t, 0, errs, out.String())
	require.Equal(t, 15, c.Queue().Size())
	for v := range c.Queue().Values() {
		if v == "x" {
			continue
		}
		require.GreaterOrEqual(t, len(v), minRandomLen)
		require.LessOrEqual(t, len(v), maxRandomLen)
		require.Equal(t, "", strings.Trim(v, randomLetters))
	}
	require.NoError(t, c.Close())
}

func TestConsole_QuotedArgument(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"new",
		`it "hello world"`,
		`rh "hello world"`,
	)
	require.Equal(t, 0, errs, out.String())
	require.NoError(t, c.Close())
}

func TestConsole_RemoveMismatch(t *testing.T) {
	c, out := newTestConsole(t)
	require.NoError(t, c.Exec("new"))
	require.NoError(t, c.Exec("ih a"))

	err := c.Exec("rh b")
	require.True(t, errors.ErrRemoveMismatch.Equal(err))
	require.Equal(t, 1, c.Errors())
	require.Contains(t, out.String(), "ERROR:")
	// the element is gone even though the value did not match
	require.Equal(t, 0, c.Queue().Size())
	require.NoError(t, c.Close())
}

func TestConsole_ReverseSort(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"new",
		"it banana",
		"it apple",
		"it cherry",
		"reverse",
		"show",
		"sort",
		"show",
		"rh apple",
		"rh banana",
		"rh cherry",
		"sort",
		"reverse",
		"free",
	)
	require.Equal(t, 0, errs, out.String())
	require.Contains(t, out.String(), "q = [cherry apple banana]")
	require.Contains(t, out.String(), "q = [apple banana cherry]")
}

func TestConsole_SortLarge(t *testing.T) {
	c, out := newTestConsole(t)
	c.cfg.Verbose = levelWarn
	errs := execLines(c,
		"new",
		"ih RAND 1000",
		"sort",
		"reverse",
		"sort",
		"free",
	)
	require.Equal(t, 0, errs, out.String())
}

func TestConsole_NullQueue(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"ih a",
		"it a",
		"rh",
		"rhq",
		"size",
		"reverse",
		"sort",
		"show",
		"free",
	)
	require.Equal(t, 0, errs, out.String())
	require.Contains(t, out.String(), "WARNING: Calling ih on null queue")
	require.Contains(t, out.String(), "WARNING: Calling rh on null queue")
	require.Contains(t, out.String(), "q = NULL")
}

func TestConsole_EmptyQueue(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"new",
		"rh",
		"rhq",
		"reverse",
		"sort",
		"size",
		"free",
	)
	require.Equal(t, 0, errs, out.String())
	require.Contains(t, out.String(), "WARNING: Calling rh on empty queue")
}

func TestConsole_Truncation(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"option length 4",
		"new",
		"ih abcdef",
		"rh abc",
		"ih ab",
		"rh ab",
		"option length 1",
		"ih xyz",
		"rh",
		"free",
	)
	require.Equal(t, 0, errs, out.String())
	require.Equal(t, 1, c.cfg.StringLength)
}

func TestConsole_TruncatedExpectation(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"option length 6",
		"new",
		"ih aardvark",
		"rh aardvark",
		"it dog",
		"rh dog",
	)
	require.Equal(t, 0, errs, out.String())

	require.NoError(t, c.Exec("ih aardvark"))
	err := c.Exec("rh aardwolf")
	require.True(t, errors.ErrRemoveMismatch.Equal(err))
	require.Contains(t, err.Error(), `removed value "aardv", expected "aardw"`)
	require.NoError(t, c.Close())
}

func TestConsole_LeakReportedOnce(t *testing.T) {
	c, out := newTestConsole(t)
	require.NoError(t, c.Exec("new"))
	require.NoError(t, c.Exec("ih a"))

	// storage obtained outside the queue is never given back
	require.True(t, c.alloc.Alloc(16))
	err := c.Exec("new")
	require.True(t, errors.ErrLeakedBlocks.Equal(err))
	require.Contains(t, err.Error(), "1 blocks")
	// the replacement queue exists despite the leak
	require.NotNil(t, c.Queue())
	require.Equal(t, 0, c.Queue().Size())

	errs := execLines(c,
		"it b",
		"rh b",
		"free",
		"new",
	)
	require.Equal(t, 1, errs, out.String())
	require.NoError(t, c.Close())
	require.Equal(t, 0, c.alloc.Blocks())
}

func TestConsole_FailInjection(t *testing.T) {
	c, out := newTestConsole(t)
	c.cfg.Verbose = levelWarn
	errs := execLines(c,
		"option fail 40",
		"new",
		"new",
		"new",
		"it RAND 200",
		"ih RAND 200",
		"reverse",
		"sort",
		"rh",
		"rhq",
		"option fail 0",
		"free",
	)
	require.Equal(t, 0, errs, out.String())
	require.Positive(t, c.alloc.Failures())
	require.Equal(t, 0, c.alloc.Blocks())
}

func TestConsole_BadCommands(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown", "push a"},
		{"missing argument", "ih"},
		{"too many arguments", "rh a b"},
		{"bad repeat", "ih a x"},
		{"zero repeat", "it a 0"},
		{"bad size repeat", "size -1"},
		{"unknown option", "option colour 1"},
		{"bad option value", "option verbose loud"},
		{"option out of range", "option fail 200"},
		{"half option", "option verbose"},
		{"unterminated quote", `ih "abc`},
		{"missing script", "source /nonexistent/script.cmd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestConsole(t)
			require.NoError(t, c.Exec("new"))
			require.Error(t, c.Exec(tt.line))
			require.Equal(t, 1, c.Errors(), out.String())
			require.Contains(t, out.String(), "ERROR:")
			// every argument is consumed by the message format
			require.NotContains(t, out.String(), "%!")
			require.NoError(t, c.Close())
		})
	}
}

func TestConsole_ErrorLimit(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"option error 2",
		"bogus",
		"bogus",
		"new",
	)
	require.Equal(t, 2, errs)
	require.True(t, c.Done())
	// commands after the limit are ignored
	require.Nil(t, c.Queue())
	require.Contains(t, out.String(), "error limit 2 reached")
}

func TestConsole_Quit(t *testing.T) {
	c, _ := newTestConsole(t)
	path := writeScript(t, "quit.cmd",
		"new",
		"ih a",
		"quit",
		"ih b",
	)
	require.NoError(t, c.RunScript(path))
	require.True(t, c.Done())
	require.Equal(t, 1, c.Queue().Size())
	require.NoError(t, c.Close())
}

func TestConsole_Source(t *testing.T) {
	c, out := newTestConsole(t)
	inner := writeScript(t, "inner.cmd",
		"it b",
		"it c",
	)
	outer := writeScript(t, "outer.cmd",
		"new",
		"ih a",
		"source "+inner,
		"rh a",
		"rh b",
		"rh c",
		"free",
	)
	require.NoError(t, c.RunScript(outer))
	require.Equal(t, 0, c.Errors(), out.String())
}

func TestConsole_SourceNestedErrors(t *testing.T) {
	c, out := newTestConsole(t)
	inner := writeScript(t, "inner.cmd",
		"ih a",
		"rh z",
	)
	require.NoError(t, c.Exec("new"))
	err := c.Exec("source " + inner)
	require.True(t, errors.ErrRemoveMismatch.Equal(err))
	require.Equal(t, 1, c.Errors(), out.String())

	outer := writeScript(t, "outer.cmd",
		"source "+inner,
	)
	err = c.RunScript(outer)
	require.True(t, stdErrors.Is(err, errors.ErrSourceScript))
	require.Contains(t, err.Error(), "removed value")
	// errors of nested commands are counted once
	require.Equal(t, 2, c.Errors(), out.String())
	require.NoError(t, c.Close())
}

func TestConsole_SourceRecursion(t *testing.T) {
	c, out := newTestConsole(t)
	path := filepath.Join(t.TempDir(), "self.cmd")
	require.NoError(t, os.WriteFile(path, []byte("source "+path+"\n"), 0o644))

	err := c.RunScript(path)
	require.Error(t, err)
	require.Equal(t, 1, c.Errors(), out.String())
}

func TestConsole_RunScriptErrors(t *testing.T) {
	c, _ := newTestConsole(t)
	path := writeScript(t, "bad.cmd",
		"new",
		"ih a",
		"rh z",
		"ih b",
		"rh y",
	)
	err := c.RunScript(path)
	require.True(t, stdErrors.Is(err, errors.ErrSourceScript))
	require.Contains(t, err.Error(), "removed value")
	require.Equal(t, 2, c.Errors())
	require.NoError(t, c.Close())

	err = c.RunScript(filepath.Join(t.TempDir(), "missing.cmd"))
	require.True(t, stdErrors.Is(err, errors.ErrSourceScript))
}

func TestConsole_Log(t *testing.T) {
	c, out := newTestConsole(t)
	path := filepath.Join(t.TempDir(), "out.log")
	errs := execLines(c,
		"log "+path,
		"new",
		"ih hello",
		"show",
	)
	require.Equal(t, 0, errs, out.String())
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "q = [hello]")
	require.Contains(t, out.String(), "q = [hello]")
}

func TestConsole_Show(t *testing.T) {
	c, out := newTestConsole(t)
	c.cfg.Verbose = levelError
	errs := execLines(c,
		"new",
		"it v 40",
		"show",
	)
	require.Equal(t, 0, errs, out.String())
	require.Contains(t, out.String(), "v v ...]")
	require.NoError(t, c.Close())
}

func TestConsole_OptionsAndHelp(t *testing.T) {
	c, out := newTestConsole(t)
	errs := execLines(c,
		"option",
		"option verbose 2",
		"option echo 0",
		"help",
	)
	require.Equal(t, 0, errs, out.String())
	require.Equal(t, 2, c.cfg.Verbose)
	require.False(t, c.cfg.Echo)
	require.Contains(t, out.String(), "fail")
	require.Contains(t, out.String(), "Commands:")
	require.Contains(t, out.String(), "ih str [n]")
}

func TestConsole_SizeMismatch(t *testing.T) {
	c, out := newTestConsole(t)
	require.NoError(t, c.Exec("new"))
	require.NoError(t, c.Exec("ih a"))

	// the queue changes behind the console's back
	c.q.InsertTail("b")
	err := c.Exec("size")
	require.True(t, errors.ErrQueueSizeMismatch.Equal(err))
	require.Equal(t, 1, c.Errors(), out.String())
	require.NoError(t, c.Close())
}
