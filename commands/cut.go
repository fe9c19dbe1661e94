package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

type cutRange struct {
	lo, hi int
}

// parseCutList parses a 1-based list like "1,3-4,6-".
func parseCutList(list string) ([]cutRange, error) {
	if list == "" {
		return nil, errors.New("fields are numbered from 1")
	}

	var out []cutRange
	for _, part := range strings.Split(list, ",") {
		lo, hi := part, part
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, hi = part[:i], part[i+1:]
			if lo == "" {
				lo = "1"
			}
			if hi == "" {
				hi = strconv.Itoa(math.MaxInt32)
			}
		}

		l, err := strconv.Atoi(lo)
		if err != nil || l < 1 {
			return nil, fmt.Errorf("invalid field value %q", part)
		}
		h, err := strconv.Atoi(hi)
		if err != nil || h < l {
			return nil, fmt.Errorf("invalid field range %q", part)
		}
		out = append(out, cutRange{l, h})
	}
	return out, nil
}

func (c cutRange) contains(n int) bool {
	return n >= c.lo && n <= c.hi
}

func selected(ranges []cutRange, n int) bool {
	for _, r := range ranges {
		if r.contains(n) {
			return true
		}
	}
	return false
}

// Cut implements the field and character modes of the POSIX cut command.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/cut.html
func Cut(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "cut -f LIST [-d DELIM] [FILE]... | cut -c LIST [FILE]...",
		Short: "Remove sections from each line of files.",
	}

	fields := cmd.Flags().StringLong("fields", 'f', "", "select only these fields")
	chars := cmd.Flags().StringLong("characters", 'c', "", "select only these characters")
	delim := cmd.Flags().StringLong("delimiter", 'd', "\t", "use DELIM instead of TAB for field delimiter")

	return cmd.Run(p, func() int {
		var (
			list string
			mode func(line string, ranges []cutRange) string
		)

		switch {
		case *fields != "" && *chars != "":
			cmd.LogProgramError(p, errors.New("only one type of list may be specified"))
			return 1
		case *fields != "":
			if len([]rune(*delim)) != 1 {
				cmd.LogProgramError(p, errors.New("the delimiter must be a single character"))
				return 1
			}
			list = *fields
			mode = func(line string, ranges []cutRange) string {
				if !strings.Contains(line, *delim) {
					// Lines without delimiters pass through.
					return line
				}
				var out []string
				for i, field := range strings.Split(line, *delim) {
					if selected(ranges, i+1) {
						out = append(out, field)
					}
				}
				return strings.Join(out, *delim)
			}
		case *chars != "":
			list = *chars
			mode = func(line string, ranges []cutRange) string {
				var sb strings.Builder
				for i, r := range []rune(line) {
					if selected(ranges, i+1) {
						sb.WriteRune(r)
					}
				}
				return sb.String()
			}
		default:
			cmd.LogProgramError(p, errors.New("you must specify a list of characters or fields"))
			return 1
		}

		ranges, err := parseCutList(list)
		if err != nil {
			cmd.LogProgramError(p, err)
			return 1
		}

		return cmd.RunEachFileOrStdin(p, cmd.Flags().Args(), func(_ string, fd io.Reader) error {
			scanner := bufio.NewScanner(fd)
			for scanner.Scan() {
				fmt.Fprintln(p.Stdout, mode(scanner.Text(), ranges))
			}
			return scanner.Err()
		})
	})
}

var _ ProcFunc = Cut
