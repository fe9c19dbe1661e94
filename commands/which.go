package commands

import (
	"fmt"

	"github.com/josephlewis42/turtlesh/core/vos"
)

// Which implements the UNIX which command, builtins shadow the PATH.
func Which(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "which [COMMAND...]",
		Short: "Locate a command.",
		// Never bail, even if args are bad.
		NeverBail: true,
	}

	return cmd.RunEachArg(p, func(arg string) error {
		if isBuiltin(arg) {
			fmt.Fprintf(p.Stdout, "%s: shell builtin\n", arg)
			return nil
		}

		res, err := vos.LookPath(p.Env, arg)
		if err != nil {
			return fmt.Errorf("no %s in (%s)", arg, p.Env.Getenv(vos.EnvPath))
		}
		fmt.Fprintln(p.Stdout, res)
		return nil
	})
}

var _ ProcFunc = Which
