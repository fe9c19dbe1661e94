package commands

import (
	"bufio"
	"fmt"
	"io"
)

// Head writes the first lines of each input.
func Head(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "head [-n NUM] [FILE]...",
		Short: "Output the first part of files.",
	}
	lines := cmd.Flags().IntLong("lines", 'n', 10, "print the first NUM lines")

	return cmd.Run(p, func() int {
		files := cmd.Flags().Args()
		return cmd.RunEachFileOrStdin(p, files, func(name string, fd io.Reader) error {
			if len(files) > 1 {
				fmt.Fprintf(p.Stdout, "==> %s <==\n", name)
			}

			scanner := bufio.NewScanner(fd)
			for n := 0; n < *lines && scanner.Scan(); n++ {
				fmt.Fprintf(p.Stdout, "%s\n", scanner.Bytes())
			}
			return scanner.Err()
		})
	})
}

// Tail writes the last lines of each input.
func Tail(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "tail [-n NUM] [FILE]...",
		Short: "Output the last part of files.",
	}
	lines := cmd.Flags().IntLong("lines", 'n', 10, "print the last NUM lines")

	return cmd.Run(p, func() int {
		files := cmd.Flags().Args()
		return cmd.RunEachFileOrStdin(p, files, func(name string, fd io.Reader) error {
			if len(files) > 1 {
				fmt.Fprintf(p.Stdout, "==> %s <==\n", name)
			}
			if *lines <= 0 {
				_, err := io.Copy(io.Discard, fd)
				return err
			}

			// Ring of the most recent lines.
			ring := make([]string, 0, *lines)
			start := 0
			scanner := bufio.NewScanner(fd)
			for scanner.Scan() {
				if len(ring) < *lines {
					ring = append(ring, scanner.Text())
					continue
				}
				ring[start] = scanner.Text()
				start = (start + 1) % len(ring)
			}

			for i := range ring {
				fmt.Fprintln(p.Stdout, ring[(start+i)%len(ring)])
			}
			return scanner.Err()
		})
	})
}

var _ ProcFunc = Head
var _ ProcFunc = Tail
