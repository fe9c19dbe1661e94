package commands

import (
	"io"
)

// Cat implements the UNIX cat command.
func Cat(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "cat [OPTION]... [FILE]...",
		Short: "Concatenate FILE(s) to standard output, - reads standard input.",
	}

	return cmd.Run(p, func() int {
		return cmd.RunEachFileOrStdin(p, cmd.Flags().Args(), func(_ string, fd io.Reader) error {
			_, err := io.Copy(p.Stdout, fd)
			return err
		})
	})
}

var _ ProcFunc = Cat
