package shell

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/nspcc-dev/refheap/pkg/config"
	"github.com/nspcc-dev/refheap/pkg/heap"
	"github.com/nspcc-dev/refheap/pkg/heap/frame"
	"github.com/nspcc-dev/refheap/pkg/heap/native"
	"github.com/nspcc-dev/refheap/pkg/heap/object"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

const (
	stateKey            = "state"
	arenaKey            = "arena"
	exitFuncKey         = "exitFunc"
	readlineInstanceKey = "readlineKey"
	echoKey             = "echoKey"
	createdKey          = "createdKey"
)

// lastCreated refers to the most recently created object, "$N" refers to the
// N-th object created by the prompt (starting from 1).
const lastCreated = "$"


// Constant names accepted wherever a handle is expected.
const (
	noneName    = "none"
	trueName    = "true"
	falseName   = "false"
	notImplName = "notimpl"
)

var commands = []cli.Command{
	{
		Name:        "exit",
		Usage:       "Finalize the heap and exit the prompt",
		Description: "Finalize the heap and exit the prompt",
		Action:      handleExit,
	},
	{
		Name:      "long",
		Usage:     "Create a new long object",
		UsageText: `long <value>`,
		Description: `long <value>
<value> is mandatory 64-bit integer, example:
> long 33`,
		Action: handleLong,
	},
	{
		Name:        "dict",
		Usage:       "Create a new empty dict object",
		Description: "Create a new empty dict object",
		Action:      handleDict,
	},
	{
		Name:        noneName,
		Usage:       "Acquire a reference to None",
		Description: "Acquire a reference to None",
		Action:      handleAcquire,
	},
	{
		Name:        trueName,
		Usage:       "Acquire a reference to True",
		Description: "Acquire a reference to True",
		Action:      handleAcquire,
	},
	{
		Name:        falseName,
		Usage:       "Acquire a reference to False",
		Description: "Acquire a reference to False",
		Action:      handleAcquire,
	},
	{
		Name:        notImplName,
		Usage:       "Acquire a reference to NotImplemented",
		Description: "Acquire a reference to NotImplemented",
		Action:      handleAcquire,
	},
	{
		Name:      "incref",
		Usage:     "Add a reference to the object",
		UsageText: `incref <handle>`,
		Description: `incref <handle>
<handle> is mandatory, it can be a hex handle, one of the constant names
(` + noneName + `, ` + trueName + `, ` + falseName + `, ` + notImplName + `), '$' for the last
created object or '$N' for the N-th created one, example:
> incref $`,
		Action: handleIncRef,
	},
	{
		Name:      "decref",
		Usage:     "Drop a reference to the object",
		UsageText: `decref <handle>`,
		Description: `decref <handle>
<handle> is mandatory, example:
> decref 0xb`,
		Action: handleDecRef,
	},
	{
		Name:      "refcnt",
		Usage:     "Show reference count of the object",
		UsageText: `refcnt <handle>`,
		Action:    handleRefCnt,
	},
	{
		Name:      "classify",
		Usage:     "Show type of the object",
		UsageText: `classify <handle>`,
		Action:    handleClassify,
	},
	{
		Name:      "aslong",
		Usage:     "Show value of the long object",
		UsageText: `aslong <handle>`,
		Action:    handleAsLong,
	},
	{
		Name:      "is",
		Usage:     "Check whether two handles refer to the same object",
		UsageText: `is <handle> <handle>`,
		Action:    handleIs,
	},
	{
		Name:      "dump",
		Usage:     "Dump live objects",
		UsageText: `dump [<type>]`,
		Description: `dump [<type>]
Dump live objects along with references held by the prompt. <type> is
optional, it limits the output to objects of the given type (None, Bool,
Long, Dict, NotImplemented, Type), example:
> dump Long`,
		Action: handleDump,
	},
	{
		Name:        "stats",
		Usage:       "Show allocator statistics",
		Description: "Show numbers of allocated, reclaimed and failed objects",
		Action:      handleStats,
	},
	{
		Name:        "credits",
		Usage:       "Show references held by the prompt",
		Description: "Show references held by the prompt",
		Action:      handleCredits,
	},
	{
		Name:      "err",
		Usage:     "Show or clear the error flag",
		UsageText: `err [clear]`,
		Action:    handleErr,
	},
	{
		Name:      "fail",
		Usage:     "Inject allocation failures",
		UsageText: `fail next | fail after <n> | fail off`,
		Description: `fail next | fail after <n> | fail off

'next' makes the next constructor fail, 'after <n>' lets <n> constructors
succeed and fails all subsequent ones, 'off' removes injected failures.`,
		Action: handleFail,
	},
	{
		Name:        "check",
		Usage:       "Check heap invariants",
		Description: "Check heap invariants",
		Action:      handleCheck,
	},
}

var completer *readline.PrefixCompleter

func init() {
	var pcItems []readline.PrefixCompleterInterface
	for _, c := range commands {
		if !c.Hidden {
			var flagsItems []readline.PrefixCompleterInterface
			for _, f := range c.Flags {
				names := strings.SplitN(f.GetName(), ", ", 2) // only long name will be offered
				flagsItems = append(flagsItems, readline.PcItem("--"+names[0]))
			}
			pcItems = append(pcItems, readline.PcItem(c.Name, flagsItems...))
		}
	}
	completer = readline.NewPrefixCompleter(pcItems...)
}

// Various errors.
var (
	ErrMissingParameter = errors.New("missing argument")
	ErrInvalidParameter = errors.New("can't parse argument")
)

// HeapCLI object for interacting with the heap.
type HeapCLI struct {
	state  *heap.State
	arena  *native.Arena
	shell  *cli.App
	failed int
}

// NewWithConfig returns new HeapCLI instance using provided heap configuration.
// Commands read from c.Stdin are echoed to c.Stdout if echo is set.
func NewWithConfig(echo bool, onExit func(int), c *readline.Config, cfg config.Heap, log *zap.Logger) (*HeapCLI, error) {
	if c.AutoComplete == nil {
		// Autocomplete commands/flags on TAB.
		c.AutoComplete = completer
	}
	l, err := readline.NewEx(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	ctl := cli.NewApp()
	ctl.Name = "Heap CLI"

	// Note: need to set empty `ctl.HelpName` and `ctl.UsageText`, otherwise
	// `filepath.Base(os.Args[0])` will be used which is `refheap`.
	ctl.HelpName = ""
	ctl.UsageText = ""

	ctl.Writer = l.Stdout()
	ctl.ErrWriter = l.Stderr()
	ctl.Version = config.Version
	ctl.Usage = "Interactive heap inspector"

	// Override default error handler in order not to exit on error.
	ctl.ExitErrHandler = func(context *cli.Context, err error) {}

	ctl.Commands = make([]cli.Command, len(commands))
	for i, cmd := range commands {
		cmd.Action = recoverPrecondition(cmd.Action.(func(*cli.Context) error))
		ctl.Commands[i] = cmd
	}

	state, arena := heap.NewFromConfig(cfg, log)
	hc := &HeapCLI{
		state: state,
		arena: arena,
		shell: ctl,
	}
	hc.shell.Metadata = map[string]any{
		stateKey:            state,
		arenaKey:            arena,
		exitFuncKey:         onExit,
		readlineInstanceKey: l,
		echoKey:             echo,
		createdKey:          new([]object.Handle),
	}
	changePrompt(hc.shell)
	return hc, nil
}

// recoverPrecondition turns precondition violations and frame violations
// into command errors, so that a typo doesn't kill the prompt.
func recoverPrecondition(h func(*cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				e, ok := r.(error)
				if !ok {
					panic(r)
				}
				err = e
			}
		}()
		return h(c)
	}
}

func getExitFuncFromContext(app *cli.App) func(int) {
	return app.Metadata[exitFuncKey].(func(int))
}

func getReadlineInstanceFromContext(app *cli.App) *readline.Instance {
	return app.Metadata[readlineInstanceKey].(*readline.Instance)
}

func getStateFromContext(app *cli.App) *heap.State {
	return app.Metadata[stateKey].(*heap.State)
}

func getArenaFromContext(app *cli.App) *native.Arena {
	return app.Metadata[arenaKey].(*native.Arena)
}

func getEchoFromContext(app *cli.App) bool {
	return app.Metadata[echoKey].(bool)
}

func getCreatedFromContext(app *cli.App) *[]object.Handle {
	return app.Metadata[createdKey].(*[]object.Handle)
}

func handleExit(c *cli.Context) error {
	s := getStateFromContext(c.App)
	if !s.Finalized() {
		s.Finalize()
	}
	fmt.Fprintln(c.App.Writer, "Bye!")
	l := getReadlineInstanceFromContext(c.App)
	_ = l.Close()
	exit := getExitFuncFromContext(c.App)
	exit(0)
	return nil
}

func handleLong(c *cli.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return fmt.Errorf("%w: <value>", ErrMissingParameter)
	}
	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidParameter, err)
	}
	return printCreated(c, getStateFromContext(c.App).CreateLong(v))
}

func handleDict(c *cli.Context) error {
	return printCreated(c, getStateFromContext(c.App).CreateDict())
}

// printCreated reports constructor result. Allocation failure is a regular
// outcome, it's visible via the error flag.
func printCreated(c *cli.Context, h object.Handle) error {
	if h == object.Null {
		fmt.Fprintf(c.App.Writer, "%s (%s)\n", h, heap.ErrAllocation)
		return nil
	}
	created := getCreatedFromContext(c.App)
	*created = append(*created, h)
	fmt.Fprintln(c.App.Writer, h)
	return nil
}

func handleAcquire(c *cli.Context) error {
	s := getStateFromContext(c.App)
	var h object.Handle
	switch c.Command.Name {
	case noneName:
		h = s.AcquireNone()
	case trueName:
		h = s.AcquireTrue()
	case falseName:
		h = s.AcquireFalse()
	case notImplName:
		h = s.AcquireNotImplemented()
	default:
		return errors.New("unknown constant")
	}
	fmt.Fprintln(c.App.Writer, h)
	return nil
}

func handleIncRef(c *cli.Context) error {
	h, err := getHandleArg(c, 0)
	if err != nil {
		return err
	}
	s := getStateFromContext(c.App)
	s.IncRef(h)
	fmt.Fprintf(c.App.Writer, "%s: %d\n", h, s.RefCnt(h))
	return nil
}

func handleDecRef(c *cli.Context) error {
	h, err := getHandleArg(c, 0)
	if err != nil {
		return err
	}
	s := getStateFromContext(c.App)
	s.DecRef(h)
	if _, ok := s.Record(h); !ok {
		fmt.Fprintf(c.App.Writer, "%s: reclaimed\n", h)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s: %d\n", h, s.RefCnt(h))
	return nil
}

func handleRefCnt(c *cli.Context) error {
	h, err := getHandleArg(c, 0)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, getStateFromContext(c.App).RefCnt(h))
	return nil
}

func handleClassify(c *cli.Context) error {
	h, err := getHandleArg(c, 0)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, getStateFromContext(c.App).Classify(h))
	return nil
}

func handleAsLong(c *cli.Context) error {
	h, err := getHandleArg(c, 0)
	if err != nil {
		return err
	}
	v, err := getStateFromContext(c.App).AsLong(h)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, v)
	return nil
}

func handleIs(c *cli.Context) error {
	h0, err := getHandleArg(c, 0)
	if err != nil {
		return err
	}
	h1, err := getHandleArg(c, 1)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, getStateFromContext(c.App).Identical(h0, h1))
	return nil
}

func handleDump(c *cli.Context) error {
	var types []object.Type
	for _, arg := range c.Args() {
		t, err := object.FromString(arg)
		if err != nil {
			return fmt.Errorf("%w: %s: %s", ErrInvalidParameter, arg, err)
		}
		types = append(types, t)
	}
	res, err := Dump(getStateFromContext(c.App), types...)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, res)
	return nil
}

// Dump returns a table of live objects of s. If types are given, only objects
// of these types are included.
func Dump(s *heap.State, types ...object.Type) (string, error) {
	buf := bytes.NewBuffer(nil)
	w := tabwriter.NewWriter(buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tTYPE\tREFS\tHELD\tVALUE")
	c := s.Constants()
	for _, h := range s.Live() {
		r, _ := s.Record(h)
		if len(types) != 0 && !slices.Contains(types, r.Type) {
			continue
		}
		var value string
		switch r.Type {
		case object.LongT:
			value = strconv.FormatInt(r.Long, 10)
		case object.BoolT:
			value = strconv.FormatBool(r.Bool)
		case object.TypeT:
			value = r.Name
		}
		if c.Contains(h) {
			value += " (constant)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", h, r.Type, r.RefCount, s.Credits(h), strings.TrimSpace(value))
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func handleCredits(c *cli.Context) error {
	s := getStateFromContext(c.App)
	for _, h := range s.Live() {
		if n := s.Credits(h); n != 0 {
			fmt.Fprintf(c.App.Writer, "%s: %d\n", h, n)
		}
	}
	fmt.Fprintf(c.App.Writer, "outstanding: %d\n", s.Outstanding())
	return nil
}

func handleStats(c *cli.Context) error {
	a := getArenaFromContext(c.App)
	st := a.Stats()
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 1, ' ', 0)
	fmt.Fprintf(w, "live:\t%d\n", a.Len())
	fmt.Fprintf(w, "allocated:\t%d\n", st.Allocated)
	fmt.Fprintf(w, "reclaimed:\t%d\n", st.Reclaimed)
	fmt.Fprintf(w, "failed:\t%d\n", st.Failed)
	if capacity := a.Capacity(); capacity != 0 {
		fmt.Fprintf(w, "capacity:\t%d\n", capacity)
	}
	return w.Flush()
}

func handleErr(c *cli.Context) error {
	s := getStateFromContext(c.App)
	args := c.Args()
	if len(args) > 0 {
		if args[0] != "clear" {
			return fmt.Errorf("%w: %s", ErrInvalidParameter, args[0])
		}
		s.ClearErr()
	}
	fmt.Fprintf(c.App.Writer, "error flag: %t\n", s.ErrOccurred())
	return nil
}

func handleFail(c *cli.Context) error {
	a := getArenaFromContext(c.App)
	args := c.Args()
	if len(args) < 1 {
		return fmt.Errorf("%w: next | after <n> | off", ErrMissingParameter)
	}
	switch args[0] {
	case "next":
		a.FailNext()
		fmt.Fprintln(c.App.Writer, "next allocation will fail")
	case "after":
		if len(args) < 2 {
			return fmt.Errorf("%w: <n>", ErrMissingParameter)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s", ErrInvalidParameter, args[1])
		}
		a.FailAfter(n)
		fmt.Fprintf(c.App.Writer, "allocations will fail after %d more\n", n)
	case "off":
		a.ClearFaults()
		fmt.Fprintln(c.App.Writer, "allocation failures disabled")
	default:
		return fmt.Errorf("%w: %s", ErrInvalidParameter, args[0])
	}
	return nil
}

func handleCheck(c *cli.Context) error {
	s := getStateFromContext(c.App)
	if err := frame.CheckInvariants(s, s.Constants()); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "OK")
	return nil
}

func getHandleArg(c *cli.Context, i int) (object.Handle, error) {
	args := c.Args()
	if len(args) <= i {
		return object.Null, fmt.Errorf("%w: <handle>", ErrMissingParameter)
	}
	return resolveHandle(c.App, args[i])
}

func resolveHandle(app *cli.App, arg string) (object.Handle, error) {
	s := getStateFromContext(app)
	if strings.HasPrefix(arg, lastCreated) {
		created := *getCreatedFromContext(app)
		n := len(created)
		if arg != lastCreated {
			var err error
			n, err = strconv.Atoi(arg[len(lastCreated):])
			if err != nil || n < 1 {
				return object.Null, fmt.Errorf("%w: %s", ErrInvalidParameter, arg)
			}
		}
		if n == 0 || n > len(created) {
			return object.Null, fmt.Errorf("%w: %s: only %d objects created", ErrInvalidParameter, arg, len(created))
		}
		return created[n-1], nil
	}
	switch arg {
	case noneName:
		return s.GetNone(), nil
	case trueName:
		return s.GetTrue(), nil
	case falseName:
		return s.GetFalse(), nil
	case notImplName:
		return s.GetNotImplemented(), nil
	}
	h, err := object.ParseHandle(arg)
	if err != nil {
		return object.Null, fmt.Errorf("%w: %s", ErrInvalidParameter, err)
	}
	return h, nil
}

func changePrompt(app *cli.App) {
	if getEchoFromContext(app) {
		return
	}
	s := getStateFromContext(app)
	l := getReadlineInstanceFromContext(app)
	if n := s.Outstanding(); n != 0 {
		l.SetPrompt(fmt.Sprintf("\033[32mHEAP %d >\033[0m ", n))
	} else {
		l.SetPrompt("\033[32mHEAP >\033[0m ")
	}
}

// State returns the heap state used by the prompt.
func (c *HeapCLI) State() *heap.State {
	return c.state
}

// Failed returns the number of commands that failed since the start.
func (c *HeapCLI) Failed() int {
	return c.failed
}

// Close finalizes the heap if it wasn't done by the exit command.
func (c *HeapCLI) Close() {
	if !c.state.Finalized() {
		c.state.Finalize()
	}
	_ = getReadlineInstanceFromContext(c.shell).Close()
}

// Run waits for user input from Stdin and executes the passed command.
func (c *HeapCLI) Run() error {
	l := getReadlineInstanceFromContext(c.shell)
	echo := getEchoFromContext(c.shell)
	for !c.state.Finalized() {
		line, err := l.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil // OK, stop execution.
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err) // Critical error, stop execution.
		}

		args, err := shellquote.Split(line)
		if err != nil {
			writeErr(c.shell.ErrWriter, fmt.Errorf("failed to parse arguments: %w", err))
			c.failed++
			continue // Not a critical error, continue execution.
		}
		if len(args) == 0 || strings.HasPrefix(args[0], "#") {
			continue
		}
		if echo {
			fmt.Fprintf(c.shell.Writer, "> %s\n", strings.Join(args, " "))
		}

		err = c.shell.Run(append([]string{"heap"}, args...))
		if err != nil {
			writeErr(c.shell.ErrWriter, err) // Various command/flags parsing errors and execution errors.
			c.failed++
		}
		if !c.state.Finalized() {
			changePrompt(c.shell)
		}
	}
	return nil
}

func writeErr(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", err)
}
