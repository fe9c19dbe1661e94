package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/josephlewis42/turtlesh/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var (
	eventsSession    string
	eventsFailedOnly bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the shell's event log.",
}

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Summarize the commands, assignments and sessions in the event log.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		report := logger.NewReport()
		if err := readSessionEvents(report.Update); err != nil {
			return err
		}
		if eventsSession != "" && report.LogEntries == 0 {
			return fmt.Errorf("no events for session %q", eventsSession)
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var commandsCommand = &cobra.Command{
	Use:   "commands",
	Short: "List the commands sessions ran with their exit status.",
	Long: `List the commands sessions ran with their exit status.

Each line holds the session ID, the exit status and the evaluated command
line. Commands that weren't found exit 127.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		return readSessionEvents(func(le *logger.LogEntry) {
			printCommandEvent(cmd.OutOrStdout(), le)
		})
	},
}

func printCommandEvent(w io.Writer, le *logger.LogEntry) {
	switch le.Type {
	case logger.EventRunCommand, logger.EventUnknownCommand:
	default:
		return
	}
	if eventsFailedOnly && le.Status == 0 {
		return
	}

	fmt.Fprintf(w, "%s\t%d\t%s\n", le.SessionID, le.Status, strings.Join(le.Command, " "))
}

// readSessionEvents calls handler for each logged event, restricted to the
// session picked with --session.
func readSessionEvents(handler func(le *logger.LogEntry)) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	fd, err := config.ReadEventLog()
	if err != nil {
		return err
	}
	defer fd.Close()

	return logger.ReadJSONLinesLog(fd, func(le *logger.LogEntry) {
		if eventsSession == "" || le.SessionID == eventsSession {
			handler(le)
		}
	})
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.PersistentFlags().StringVar(&eventsSession, "session", "", "only include events from the session with this ID")

	eventsCmd.AddCommand(reportCommand)

	commandsCommand.Flags().BoolVar(&eventsFailedOnly, "failed", false, "only list commands that exited non-zero")
	eventsCmd.AddCommand(commandsCommand)
}
