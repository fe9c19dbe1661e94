package commands

import (
	"fmt"
)

// No-op commands.
type NoOpCommand struct {
	Name     string
	Use      string
	Short    string
	Stdout   string
	ExitCode int
}

// Convert the no-op command description to a functioning command.
func (c *NoOpCommand) ToCommand() ProcFunc {
	return func(p *Proc) int {
		cmd := &SimpleCommand{
			Use:   c.Use,
			Short: c.Short,
			// Never bail, even if args are bad.
			NeverBail: true,
		}

		return cmd.Run(p, func() int {
			if c.Stdout != "" {
				fmt.Fprintln(p.Stdout, c.Stdout)
			}

			return c.ExitCode
		})
	}
}

var noOpCommands = []NoOpCommand{
	{
		Name:  "true",
		Use:   "true [ignored arguments]",
		Short: "Exit with a status code indicating success.",
	},
	{
		Name:     "false",
		Use:      "false [ignored arguments]",
		Short:    "Exit with a status code indicating failure.",
		ExitCode: 1,
	},
	{
		Name:  ":",
		Use:   ": [arguments]",
		Short: "Null command, arguments are expanded and ignored.",
	},
}
