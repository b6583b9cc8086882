package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/refheap/cli/shell"
	"github.com/nspcc-dev/refheap/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "RefHeap\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a RefHeap instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "refheap"
	ctl.Version = config.Version
	ctl.Usage = "Reference-counted object heap inspector"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, shell.NewCommands()...)
	return ctl
}
