package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/josephlewis42/turtlesh/core/parse"
	"github.com/josephlewis42/turtlesh/core/vos"
	"github.com/spf13/cobra"
)

var playgroundNoColor bool

// playgroundCmd runs an interactive read-eval loop over the local OS.
var playgroundCmd = &cobra.Command{
	Use:   "playground",
	Short: "Run the shell interactively, one line at a time.",
	Long: `Run the shell interactively, one line at a time.

There's no line editing or history. A line that ends in the middle of a
statement, such as an open while loop or quote, continues on the next line.
Type exit or end the input to quit.

Commands read the terminal directly. When the shell's input is piped or
recorded it holds the script being typed, so commands get empty input.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		s, err := newSession(cmd)
		if err != nil {
			return err
		}

		hostname, _ := os.Hostname()
		info := promptInfo{
			Hostname: hostname,
			Root:     os.Geteuid() == 0,
			Color:    !playgroundNoColor && s.env.Getenv("TERM") != "" && s.env.Getenv("TERM") != "dumb",
		}

		status := runREPL(context.Background(), s, bufio.NewReader(s.io.Stdin()), func() string {
			return expandPrompt(s.cfg.Prompt, s.env, info)
		})

		if err := s.Close(); err != nil {
			return err
		}
		return statusToError(status)
	},
}

// runREPL reads, parses and runs lines until exit or the end of input.
func runREPL(ctx context.Context, s *session, in *bufio.Reader, prompt func() string) int {
	out := s.io.Stdout()
	stdin := vos.TerminalInput(s.io)
	status := 0
	var pending strings.Builder

	for {
		if pending.Len() == 0 {
			fmt.Fprint(out, prompt())
		} else {
			fmt.Fprint(out, "> ")
		}

		line, err := in.ReadString('\n')
		if line == "" && err != nil {
			if err != io.EOF {
				fmt.Fprintf(s.io.Stderr(), "turtlesh: %v\n", err)
			}
			fmt.Fprintln(out)
			return status
		}

		if pending.Len() == 0 {
			if code, ok := parseExit(line, status); ok {
				return code
			}
		}

		pending.WriteString(line)
		task, perr := parse.Parse(pending.String())
		switch {
		case perr != nil && parse.IsIncomplete(perr) && err == nil:
			continue
		case perr != nil:
			fmt.Fprintf(s.io.Stderr(), "turtlesh: %v\n", perr)
			status = 2
		default:
			status = task.Exec(ctx, s.ExecContext(stdin))
		}
		pending.Reset()

		s.env.Setenv("?", strconv.Itoa(status))
	}
}

// parseExit recognizes "exit" and "exit N", a bare exit keeps the last status.
func parseExit(line string, last int) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "exit" || len(fields) > 2 {
		return 0, false
	}
	if len(fields) == 1 {
		return last, true
	}

	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 2, true
	}
	return code & 0xff, true
}

func init() {
	rootCmd.AddCommand(playgroundCmd)

	playgroundCmd.Flags().BoolVar(&playgroundNoColor, "no-color", false, "don't color the prompt")
}
