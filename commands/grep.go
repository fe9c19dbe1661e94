package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// Grep implements the POSIX grep command.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/
func Grep(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "grep [-cinv] PATTERN [FILE]...",
		Short: "Search files for text matching a pattern.",
	}

	invert := cmd.Flags().Bool('v', "Select lines not matching any of the specified patterns.")
	ignoreCase := cmd.Flags().Bool('i', "Perform pattern matching in searches without regard to case.")
	showLineNumbers := cmd.Flags().Bool('n', "Show line numbers.")
	countOnly := cmd.Flags().Bool('c', "Write only a count of selected lines.")

	return cmd.Run(p, func() int {
		args := cmd.Flags().Args()
		if len(args) == 0 {
			cmd.LogProgramError(p, errors.New("missing argument PATTERN"))
			return 2
		}

		// NOTE: Officially, the PATTERN argument supports multiple patterns delimited by newlines.
		// It's a very rare case so we'll ignore it here.
		pattern := args[0]
		if *ignoreCase {
			pattern = "(?i)" + pattern
		}
		regex, err := regexp.Compile(pattern)
		if err != nil {
			cmd.LogProgramError(p, err)
			return 2
		}

		files := args[1:]
		showFileName := len(files) > 1
		selected := 0
		status := cmd.RunEachFileOrStdin(p, files, func(name string, fd io.Reader) error {
			w := p.Stdout

			scanner := bufio.NewScanner(fd)
			lineNo := 1
			count := 0
			for scanner.Scan() {
				line := scanner.Bytes()
				lineMatches := regex.Match(line)

				if lineMatches != *invert {
					count++
					if !*countOnly {
						if showFileName {
							fmt.Fprintf(w, "%s:", name)
						}

						if *showLineNumbers {
							fmt.Fprintf(w, "%d:", lineNo)
						}

						fmt.Fprintf(w, "%s\n", line)
					}
				}
				lineNo++
			}

			if *countOnly {
				if showFileName {
					fmt.Fprintf(w, "%s:", name)
				}
				fmt.Fprintln(w, count)
			}

			selected += count
			return scanner.Err()
		})

		switch {
		case status != 0:
			return 2
		case selected == 0:
			return 1
		default:
			return 0
		}
	})
}

var _ ProcFunc = Grep
