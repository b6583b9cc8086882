package shell

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chzyer/readline"
	"github.com/nspcc-dev/refheap/pkg/config"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zaptest"
)

// syncBuffer is a bytes.Buffer safe for use by readline goroutines.
type syncBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.String()
}

type executor struct {
	cli      *HeapCLI
	out      *syncBuffer
	exitCode int
	exited   bool
}

func newTestHeapCLI(t *testing.T, cfg config.Heap, script string) *executor {
	e := &executor{out: new(syncBuffer)}
	var err error
	e.cli, err = NewWithConfig(true, func(code int) {
		e.exitCode = code
		e.exited = true
	}, &readline.Config{
		Stdin:          io.NopCloser(strings.NewReader(script)),
		Stdout:         e.out,
		Stderr:         e.out,
		FuncIsTerminal: func() bool { return false },
	}, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(e.cli.Close)
	return e
}

func (e *executor) run(t *testing.T) []string {
	require.NoError(t, e.cli.Run())
	var lines []string
	for _, l := range strings.Split(e.out.String(), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func TestLifecycle(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{Checked: true}, Scenarios["lifecycle"])
	require.Equal(t, []string{
		"> long 33", "0xb",
		"> incref $", "0xb: 2",
		"> incref $", "0xb: 3",
		"> refcnt $", "3",
		"> aslong $", "33",
		"> decref $", "0xb: 2",
		"> decref $", "0xb: 1",
		"> refcnt $", "1",
		"> decref $", "0xb: reclaimed",
		"> credits", "outstanding: 0",
		"> check", "OK",
	}, e.run(t))
	require.Equal(t, 0, e.cli.State().Outstanding())
	require.Equal(t, 0, e.cli.Failed())
}

func TestAllocationFailure(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{Checked: true}, Scenarios["allocfail"])
	out := e.run(t)
	require.Contains(t, out, "NULL (allocation failed)")
	require.Contains(t, out, "error flag: true")
	require.Contains(t, out, "error flag: false")
	require.Contains(t, out, "0xc: reclaimed")
	require.Contains(t, out, "0xb: reclaimed")
	require.Contains(t, out, "live:      10")
	require.Contains(t, out, "allocated: 2")
	require.Contains(t, out, "reclaimed: 2")
	require.Contains(t, out, "failed:    1")
	require.Equal(t, "OK", out[len(out)-1])
	require.False(t, e.cli.State().ErrOccurred())
	require.Equal(t, 0, e.cli.Failed())
}

func TestConstants(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{Checked: true}, Scenarios["constants"])
	out := e.run(t)
	s := e.cli.State()
	tr := s.GetTrue().String()
	require.Equal(t, []string{
		"> true", tr,
		"> true", tr,
		"> is true true", "true",
		"> refcnt true", "3",
		"> classify true", "Bool",
		"> none", s.GetNone().String(),
		"> is none false", "false",
		"> decref true", tr + ": 2",
		"> decref true", tr + ": 1",
		"> decref none", s.GetNone().String() + ": 1",
		"> check", "OK",
	}, out)
}

func TestPreconditionViolations(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{}, `decref none
refcnt 0x100
incref
long abc
aslong none
classify zzz
fail sideways
err
`)
	out := e.run(t)
	require.True(t, strings.HasPrefix(out[1], "Error: precondition violated: DecRef"), out[1])
	require.True(t, strings.HasPrefix(out[3], "Error: precondition violated: RefCnt"), out[3])
	require.Equal(t, "Error: missing argument: <handle>", out[5])
	require.True(t, strings.HasPrefix(out[7], "Error: can't parse argument"), out[7])
	require.Equal(t, "Error: object is not a long", out[9])
	require.True(t, strings.HasPrefix(out[11], "Error: can't parse argument"), out[11])
	require.Equal(t, "Error: can't parse argument: sideways", out[13])
	require.Equal(t, "error flag: true", out[15])
	require.False(t, e.exited)
	require.Equal(t, 7, e.cli.Failed())
}

func TestFailAfter(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{}, `fail after 1
dict
dict
fail off
dict
`)
	out := e.run(t)
	require.Equal(t, []string{
		"> fail after 1", "allocations will fail after 1 more",
		"> dict", "0xb",
		"> dict", "NULL (allocation failed)",
		"> fail off", "allocation failures disabled",
		"> dict", "0xc",
	}, out)
}

func TestDump(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{}, "long 7\ndump\n")
	out := e.run(t)
	require.Equal(t, "> dump", out[2])
	require.Equal(t, "HANDLE  TYPE            REFS  HELD  VALUE", out[3])
	require.Contains(t, out, "0xb     Long            1     1     7")
	require.Contains(t, out, "0x8     Bool            1     0     true (constant)")
	require.Contains(t, out, "0x4     Type            1     0     int")
}

func TestExit(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{}, "long 1\nexit\nlong 2\n")
	out := e.run(t)
	require.Equal(t, []string{"> long 1", "0xb", "> exit", "Bye!"}, out)
	require.True(t, e.exited)
	require.Equal(t, 0, e.exitCode)
	require.True(t, e.cli.State().Finalized())
}

func TestCommentsAndQuotes(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{}, "# comment\n\n\"long\" '5'\nlong \"unterminated\n")
	out := e.run(t)
	require.Equal(t, "> long 5", out[0])
	require.Equal(t, "0xb", out[1])
	require.True(t, strings.HasPrefix(out[2], "Error: failed to parse arguments"), out[2])
	require.Equal(t, 1, e.cli.Failed())
}

func TestCreatedReferences(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{}, `refcnt $
long 1
fail next
dict
dict
refcnt $
refcnt $1
incref $2
refcnt $3
refcnt $0
refcnt $x
decref $1
decref $2
decref $2
`)
	out := e.run(t)
	require.Equal(t, []string{
		"> refcnt $", "Error: can't parse argument: $: only 0 objects created",
		"> long 1", "0xb",
		"> fail next", "next allocation will fail",
		"> dict", "NULL (allocation failed)",
		"> dict", "0xc",
		"> refcnt $", "1",
		"> refcnt $1", "1",
		"> incref $2", "0xc: 2",
		"> refcnt $3", "Error: can't parse argument: $3: only 2 objects created",
		"> refcnt $0", "Error: can't parse argument: $0",
		"> refcnt $x", "Error: can't parse argument: $x",
		"> decref $1", "0xb: reclaimed",
		"> decref $2", "0xc: 1",
		"> decref $2", "0xc: reclaimed",
	}, out)
	require.Equal(t, 4, e.cli.Failed())
}

func TestDumpTypes(t *testing.T) {
	e := newTestHeapCLI(t, config.Heap{}, `long 7
dict
dump Long Dict
dump List
`)
	out := e.run(t)
	require.Equal(t, []string{
		"> long 7", "0xb",
		"> dict", "0xc",
		"> dump Long Dict",
		"HANDLE  TYPE  REFS  HELD  VALUE",
		"0xb     Long  1     1     7",
		"0xc     Dict  1     1",
		"> dump List", "Error: can't parse argument: List: invalid type",
	}, out)
}

func TestScenarioCommand(t *testing.T) {
	app := cli.NewApp()
	app.Commands = NewCommands()
	app.ExitErrHandler = func(*cli.Context, error) {}
	out := new(syncBuffer)
	app.Writer = out
	app.ErrWriter = out

	require.NoError(t, app.Run([]string{"refheap", "scenario", "--checked", "lifecycle"}))
	require.Contains(t, out.String(), "0xb: reclaimed")

	require.Error(t, app.Run([]string{"refheap", "scenario", "unknown"}))
	require.Error(t, app.Run([]string{"refheap", "scenario"}))
	require.Error(t, app.Run([]string{"refheap", "scenario", "--script", "x", "lifecycle"}))

	for _, name := range scenarioNames() {
		require.NoError(t, app.Run([]string{"refheap", "scenario", "--checked", name}), name)
	}

	script := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(script, []byte("dict\ndecref $\ncredits\n"), 0644))
	require.NoError(t, app.Run([]string{"refheap", "scenario", "--script", script}))
	require.Contains(t, out.String(), "0xb: reclaimed")
	require.Contains(t, out.String(), "outstanding: 0")

	broken := filepath.Join(t.TempDir(), "broken")
	require.NoError(t, os.WriteFile(broken, []byte("long 1\ndecref $\ndecref $\nrefcnt 0x99\n"), 0644))
	err := app.Run([]string{"refheap", "scenario", "--script", broken})
	require.Error(t, err)
	require.Contains(t, err.Error(), "scenario failed: 2 command(s) returned an error")
}
