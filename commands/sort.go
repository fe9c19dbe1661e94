package commands

import (
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strconv"
	"strings"
)

// Sort implements a subset of the POSIX sort command.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/sort.html
func Sort(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "sort [-nru] [FILE]...",
		Short: "Write sorted concatenation of all FILE(s) to standard output.",
	}

	numeric := cmd.Flags().BoolLong("numeric-sort", 'n', "compare according to string numerical value")
	reverse := cmd.Flags().BoolLong("reverse", 'r', "reverse the result of comparisons")
	unique := cmd.Flags().BoolLong("unique", 'u', "output only the first of an equal run")

	return cmd.Run(p, func() int {
		var lines []string
		status := cmd.RunEachFileOrStdin(p, cmd.Flags().Args(), func(_ string, fd io.Reader) error {
			data, err := ioutil.ReadAll(fd)
			lines = append(lines, linesOf(string(data))...)
			return err
		})
		if status != 0 {
			return 2
		}

		less := func(a, b string) bool { return a < b }
		if *numeric {
			less = func(a, b string) bool {
				na, nb := leadingNumber(a), leadingNumber(b)
				if na != nb {
					return na < nb
				}
				return a < b
			}
		}
		sort.SliceStable(lines, func(i, j int) bool {
			if *reverse {
				return less(lines[j], lines[i])
			}
			return less(lines[i], lines[j])
		})

		for i, line := range lines {
			if *unique && i > 0 && !less(lines[i-1], line) && !less(line, lines[i-1]) {
				continue
			}
			fmt.Fprintln(p.Stdout, line)
		}
		return 0
	})
}

// leadingNumber parses the numeric prefix of a line, lines without one sort
// as zero.
func leadingNumber(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.' || (end == 0 && s[end] == '-')) {
		end++
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return n
}

var _ ProcFunc = Sort
