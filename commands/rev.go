package commands

import (
	"bufio"
	"fmt"
	"io"
)

// Rev reverses the characters of every line.
func Rev(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "rev [FILE]...",
		Short: "Reverse lines characterwise.",
	}

	return cmd.Run(p, func() int {
		return cmd.RunEachFileOrStdin(p, cmd.Flags().Args(), func(_ string, fd io.Reader) error {
			scanner := bufio.NewScanner(fd)
			for scanner.Scan() {
				runes := []rune(scanner.Text())
				for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
					runes[i], runes[j] = runes[j], runes[i]
				}
				fmt.Fprintln(p.Stdout, string(runes))
			}
			return scanner.Err()
		})
	})
}

var _ ProcFunc = Rev
