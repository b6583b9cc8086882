package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/chzyer/readline"
	"github.com/nspcc-dev/refheap/cli/options"
	"github.com/nspcc-dev/refheap/pkg/config"
	"github.com/nspcc-dev/refheap/pkg/services/metrics"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// Scenarios are command scripts runnable with the scenario command. They
// refer to created objects with '$' and '$N', so they don't depend on the
// handle values the allocator hands out.
var Scenarios = map[string]string{
	"lifecycle": `# Balanced lifecycle of a long object.
long 33
incref $
incref $
refcnt $
aslong $
decref $
decref $
refcnt $
decref $
credits
check
`,
	"allocfail": `# Allocation failure leaves the heap intact.
long 5
fail next
dict
err
err clear
dict
dump
decref $1
decref $2
stats
check
`,
	"constants": `# Constants are shared singletons.
true
true
is true true
refcnt true
classify true
none
is none false
decref true
decref true
decref none
check
`,
}

// NewCommands returns 'shell' and 'scenario' commands.
func NewCommands() []cli.Command {
	return []cli.Command{
		{
			Name:   "shell",
			Usage:  "Start an interactive heap prompt",
			Action: startShell,
			Flags:  options.Common,
		},
		{
			Name:      "scenario",
			Usage:     "Run a heap scenario",
			UsageText: "refheap scenario [--config-file file] [--checked] [--debug] <name | --script file>",
			Description: `Executes commands of a built-in scenario or of a script file and prints
their output. Built-in scenarios are: ` + strings.Join(scenarioNames(), ", ") + `.`,
			Action: runScenario,
			Flags: append(slices.Clone(options.Common), cli.StringFlag{
				Name:  "script, s",
				Usage: "path to the file with heap commands",
			}),
		},
	}
}

func scenarioNames() []string {
	names := make([]string, 0, len(Scenarios))
	for name := range Scenarios {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func startShell(ctx *cli.Context) error {
	if err := cmdargsEnsureNone(ctx); err != nil {
		return err
	}
	cfg, log, closer, err := prepare(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closer()

	p, err := NewWithConfig(false, os.Exit, &readline.Config{
		UniqueEditLine: true, // menu-completion on Tab
		Stdout:         ctx.App.Writer,
		Stderr:         ctx.App.ErrWriter,
	}, cfg.Heap, log)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to create heap CLI: %w", err), 1)
	}
	defer p.Close()
	return p.Run()
}

func runScenario(ctx *cli.Context) error {
	var script io.ReadCloser
	switch file := ctx.String("script"); {
	case file != "" && ctx.NArg() != 0:
		return cli.NewExitError("either scenario name or script file should be provided", 1)
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("failed to open script: %w", err), 1)
		}
		script = f
	case ctx.NArg() == 1:
		s, ok := Scenarios[ctx.Args().First()]
		if !ok {
			return cli.NewExitError(fmt.Errorf("unknown scenario %q, known ones are: %s",
				ctx.Args().First(), strings.Join(scenarioNames(), ", ")), 1)
		}
		script = io.NopCloser(strings.NewReader(s))
	default:
		return cli.NewExitError("scenario name is required", 1)
	}
	defer script.Close()

	cfg, log, closer, err := prepare(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer closer()

	p, err := NewWithConfig(true, func(int) {}, &readline.Config{
		Stdin:          script,
		Stdout:         ctx.App.Writer,
		Stderr:         ctx.App.Writer,
		FuncIsTerminal: func() bool { return false },
	}, cfg.Heap, log)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to create heap CLI: %w", err), 1)
	}
	defer p.Close()
	if err := p.Run(); err != nil {
		return cli.NewExitError(err, 1)
	}
	if n := p.Failed(); n != 0 {
		return cli.NewExitError(fmt.Sprintf("scenario failed: %d command(s) returned an error", n), 1)
	}
	return nil
}

// prepare loads configuration, creates logger and starts monitoring services.
// The returned function stops services and flushes the logger.
func prepare(ctx *cli.Context) (config.Config, *zap.Logger, func(), error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	prometheus := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	pprof := metrics.NewPprofService(cfg.ApplicationConfiguration.Pprof, log)
	for _, srv := range []*metrics.Service{prometheus, pprof} {
		if err := srv.Start(); err != nil {
			prometheus.ShutDown()
			pprof.ShutDown()
			_ = log.Sync()
			return config.Config{}, nil, nil, err
		}
	}
	return cfg, log, func() {
		prometheus.ShutDown()
		pprof.ShutDown()
		_ = log.Sync()
	}, nil
}

func cmdargsEnsureNone(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError(errors.New("this command does not accept arguments"), 1)
	}
	return nil
}
