// Command nexus is the command-line client for the Nexus conversion service.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atinyakov/nexus/internal/app"
	"github.com/atinyakov/nexus/internal/client/clienterr"
	"github.com/atinyakov/nexus/internal/client/gate"
	"github.com/atinyakov/nexus/internal/config"
	"github.com/atinyakov/nexus/internal/logger"
	"github.com/spf13/cobra"
)

var (
	version   string
	buildDate string
)

// cli carries the state shared by the commands of one invocation.
type cli struct {
	opts *config.Options
	log  *logger.Logger
	app  *app.App

	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "nexus",
		Short:         "Convert crypto currencies and keep a list of favorites",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			if err := config.Resolve(cmd.Flags(), c.opts); err != nil {
				return err
			}
			if err := c.log.Init(c.opts.LogLevel); err != nil {
				return err
			}
			a, err := app.New(c.opts, c.log.Log)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	c.opts = config.Default()
	// keep the terminal free of routine log lines
	c.opts.LogLevel = "error"
	config.BindFlags(root.PersistentFlags(), c.opts)

	root.AddCommand(
		newLoginCmd(c),
		newLogoutCmd(c),
		newRegisterCmd(c),
		newCurrenciesCmd(c),
		newConvertCmd(c),
		newFavoritesCmd(c),
		newHistoryCmd(c),
		newVersionCmd(c),
	)
	return root
}

// run executes one invocation and returns the process exit code.
func run(args []string, in io.Reader, out, errOut io.Writer) int {
	c := &cli{log: logger.New(), in: in, out: out, errOut: errOut}
	root := newRootCmd(c)
	root.SetArgs(args)

	err := root.Execute()
	if c.app != nil {
		_ = c.app.Close()
	}
	_ = c.log.Log.Sync()

	if err != nil {
		fmt.Fprintln(errOut, "Error:", err)
		return 1
	}
	return 0
}

// requireSession consults the gate before a protected command runs.
func (c *cli) requireSession() error {
	if d := c.app.Gate.Evaluate(); d.State == gate.Redirected {
		return errors.New("you need to be logged in (run: nexus login)")
	}
	return nil
}

// userError turns err into the message shown to the user.
func userError(err error, fallback string) error {
	return errors.New(clienterr.Message(err, fallback))
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
