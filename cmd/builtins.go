package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/turtlesh/commands"
	"github.com/spf13/cobra"
)

// builtinsCmd lists the commands that run in-process
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands of the shell.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := color.New(color.FgGreen, color.Bold)
		alias := color.New(color.FgCyan)

		for _, builtin := range commands.ListBuiltinCommands() {
			line := name.Sprint(builtin.Names[0])
			if len(builtin.Names) > 1 {
				line += " " + alias.Sprintf("(%s)", strings.Join(builtin.Names[1:], ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
