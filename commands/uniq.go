package commands

import (
	"bufio"
	"fmt"
	"io"
)

// Uniq filters adjacent matching lines.
func Uniq(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "uniq [-c] [FILE]",
		Short: "Report or omit repeated lines.",
	}
	showCount := cmd.Flags().BoolLong("count", 'c', "prefix lines by the number of occurrences")

	return cmd.Run(p, func() int {
		var (
			prev  string
			count int
		)
		flush := func() {
			if count == 0 {
				return
			}
			if *showCount {
				fmt.Fprintf(p.Stdout, "%7d %s\n", count, prev)
			} else {
				fmt.Fprintln(p.Stdout, prev)
			}
		}

		status := cmd.RunEachFileOrStdin(p, cmd.Flags().Args(), func(_ string, fd io.Reader) error {
			scanner := bufio.NewScanner(fd)
			for scanner.Scan() {
				line := scanner.Text()
				if count > 0 && line == prev {
					count++
					continue
				}
				flush()
				prev, count = line, 1
			}
			return scanner.Err()
		})
		flush()

		return status
	})
}

var _ ProcFunc = Uniq
