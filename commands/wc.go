package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

type wcCounts struct {
	lines, words, bytes, chars int
}

func (c *wcCounts) add(other wcCounts) {
	c.lines += other.lines
	c.words += other.words
	c.bytes += other.bytes
	c.chars += other.chars
}

// wcCounter tallies everything written to it.
type wcCounter struct {
	wcCounts
	inWord bool
}

func (w *wcCounter) Write(data []byte) (int, error) {
	for _, b := range data {
		w.bytes++
		if utf8.RuneStart(b) {
			w.chars++
		}

		switch b {
		case '\n':
			w.lines++
			w.inWord = false
		case ' ', '\t', '\r', '\v', '\f':
			w.inWord = false
		default:
			if !w.inWord {
				w.words++
			}
			w.inWord = true
		}
	}
	return len(data), nil
}

func countReader(r io.Reader) (wcCounts, error) {
	var counter wcCounter
	_, err := io.Copy(&counter, r)
	return counter.wcCounts, err
}

// Wc implements the POSIX command by the same name, a missing operand is
// reported and the remaining ones are still counted.
//
// https://pubs.opengroup.org/onlinepubs/009695399/utilities/wc.html
func Wc(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "wc [-c|-m] [-lw] [FILE...]",
		Short: "Write the number of newlines, words, and bytes contained in each input file to the standard output.",
	}

	opts := cmd.Flags()
	writeLines := opts.BoolLong("l", 'l', "write the number of newlines in each file")
	writeWords := opts.BoolLong("w", 'w', "write the number of words in each file")
	writeBytes := opts.BoolLong("c", 'c', "write the number of bytes in each file")
	writeChars := opts.BoolLong("m", 'm', "write the number of characters in each file")

	return cmd.Run(p, func() int {
		defaults := !(*writeLines || *writeWords || *writeBytes || *writeChars)

		printCounts := func(c wcCounts, name string) {
			var fields []string
			if *writeLines || defaults {
				fields = append(fields, strconv.Itoa(c.lines))
			}
			if *writeWords || defaults {
				fields = append(fields, strconv.Itoa(c.words))
			}
			if *writeBytes || defaults {
				fields = append(fields, strconv.Itoa(c.bytes))
			}
			if *writeChars {
				fields = append(fields, strconv.Itoa(c.chars))
			}
			if name != "" {
				fields = append(fields, name)
			}
			fmt.Fprintln(p.Stdout, strings.Join(fields, " "))
		}

		files := opts.Args()
		if len(files) == 0 {
			counts, err := countReader(p.Stdin)
			if err != nil {
				cmd.LogProgramError(p, err)
				return 1
			}
			printCounts(counts, "")
			return 0
		}

		var total wcCounts
		status := cmd.RunEachFileOrStdin(p, files, func(name string, fd io.Reader) error {
			counts, err := countReader(fd)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			total.add(counts)
			printCounts(counts, name)
			return nil
		})

		if len(files) > 1 {
			printCounts(total, "total")
		}
		return status
	})
}

var _ ProcFunc = Wc
