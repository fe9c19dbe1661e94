package commands

import (
	"fmt"
)

// Pwd implements the UNIX pwd command.
func Pwd(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "pwd",
		Short: "Print the name of the current working directory.",
	}

	return cmd.Run(p, func() int {
		fmt.Fprintln(p.Stdout, p.Env.Getwd())
		return 0
	})
}

// Cd changes the session's working directory, with no argument it goes to
// $HOME and "-" returns to $OLDPWD.
func Cd(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "cd [DIR]",
		Short: "Change the shell working directory.",
	}

	return cmd.RunE(p, func() error {
		args := cmd.Flags().Args()

		var dir string
		printDir := false
		switch {
		case len(args) > 1:
			return fmt.Errorf("too many arguments")
		case len(args) == 0:
			dir = p.Env.Getenv("HOME")
			if dir == "" {
				return fmt.Errorf("HOME not set")
			}
		case args[0] == "-":
			dir = p.Env.Getenv("OLDPWD")
			if dir == "" {
				return fmt.Errorf("OLDPWD not set")
			}
			printDir = true
		default:
			dir = args[0]
		}

		prev := p.Env.Getwd()
		if err := p.Env.Chdir(dir); err != nil {
			return err
		}
		p.Env.Setenv("OLDPWD", prev)

		if printDir {
			fmt.Fprintln(p.Stdout, p.Env.Getwd())
		}
		return nil
	})
}

var _ ProcFunc = Pwd
var _ ProcFunc = Cd
