package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/josephlewis42/turtlesh/core/vos"
)

// Env implements the POSIX env command without running a utility.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/env.html
func Env(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "env",
		Short: "Print the environment for command invocation.",
	}

	return cmd.Run(p, func() int {
		env := p.Env.Environ()
		sort.Strings(env)
		for _, envDef := range env {
			fmt.Fprintln(p.Stdout, envDef)
		}

		return 0
	})
}

// Export sets each NAME=value pair, with no arguments the variables are
// listed in definition order.
//
// Every variable is passed to external commands so a bare NAME is accepted
// and ignored.
func Export(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "export [NAME[=VALUE]]...",
		Short: "Set shell variables for this session and child processes.",
	}

	return cmd.Run(p, func() int {
		args := cmd.Flags().Args()
		if len(args) == 0 {
			for _, envDef := range p.Env.Environ() {
				name, value := envDef, ""
				if i := strings.IndexByte(envDef, '='); i >= 0 {
					name, value = envDef[:i], envDef[i+1:]
				}
				fmt.Fprintf(p.Stdout, "export %s=%q\n", name, value)
			}
			return 0
		}

		anyFailed := false
		for _, arg := range args {
			name, value, hasValue := arg, "", false
			if i := strings.IndexByte(arg, '='); i >= 0 {
				name, value, hasValue = arg[:i], arg[i+1:], true
			}

			switch {
			case !vos.IsName(name):
				cmd.LogProgramError(p, fmt.Errorf("%q: not a valid identifier", arg))
				anyFailed = true
			case hasValue:
				p.Env.Setenv(name, value)
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

// Unset removes each named variable.
func Unset(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "unset NAME...",
		Short: "Remove shell variables.",
	}

	return cmd.RunEachArg(p, func(name string) error {
		if !vos.IsName(name) {
			return fmt.Errorf("%q: not a valid identifier", name)
		}
		p.Env.Unsetenv(name)
		return nil
	})
}

var _ ProcFunc = Env
var _ ProcFunc = Export
var _ ProcFunc = Unset
