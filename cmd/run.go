package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/josephlewis42/turtlesh/core/parse"
	"github.com/josephlewis42/turtlesh/core/shell"
	"github.com/spf13/cobra"
)

var runCommand string

// runCmd executes a script and exits with its status.
var runCmd = &cobra.Command{
	Use:   "run [-c COMMAND | SCRIPT]",
	Short: "Run a script file, a command string or a script read from stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		task, err := parseRunInput(cmd, args)
		if err != nil {
			return err
		}

		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// Scripts read from stdin can't also use it as input.
		stdin := s.io.Stdin()
		if runCommand == "" && len(args) == 0 {
			stdin = nil
		}

		status := task.Exec(ctx, s.ExecContext(stdin))
		if err := s.Close(); err != nil {
			return err
		}
		return statusToError(status)
	},
}

func parseRunInput(cmd *cobra.Command, args []string) (shell.Task, error) {
	switch {
	case runCommand != "":
		return parse.Parse(runCommand)
	case len(args) == 1:
		fd, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer fd.Close()
		return parse.ParseReader(fd, args[0])
	default:
		return parse.ParseReader(cmd.InOrStdin(), "stdin")
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runCommand, "command", "c", "", "command string to run instead of a script")
}
