package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// expandSet expands a tr character set, supporting ranges like a-z and the
// escapes handled by echo -e.
func expandSet(set string) ([]rune, error) {
	expanded, _ := expandEscapes(set)
	runes := []rune(expanded)

	var out []rune
	for i := 0; i < len(runes); i++ {
		if i+2 < len(runes) && runes[i+1] == '-' {
			lo, hi := runes[i], runes[i+2]
			if lo > hi {
				return nil, fmt.Errorf("range-endpoints of '%c-%c' are in reverse collating sequence order", lo, hi)
			}
			for r := lo; r <= hi; r++ {
				out = append(out, r)
			}
			i += 2
			continue
		}
		out = append(out, runes[i])
	}
	return out, nil
}

// Tr implements a subset of the POSIX tr command.
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/tr.html
func Tr(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "tr [-d] SET1 [SET2]",
		Short: "Translate or delete characters from standard input.",
	}
	del := cmd.Flags().BoolLong("delete", 'd', "delete characters in SET1, do not translate")

	return cmd.RunE(p, func() error {
		args := cmd.Flags().Args()
		switch {
		case len(args) == 0:
			return errors.New("missing operand")
		case *del && len(args) != 1:
			return errors.New("only one string may be given when deleting")
		case !*del && len(args) != 2:
			return errors.New("two strings must be given when translating")
		}

		from, err := expandSet(args[0])
		if err != nil {
			return err
		}

		mapping := make(map[rune]rune)
		if *del {
			for _, r := range from {
				mapping[r] = -1
			}
		} else {
			to, err := expandSet(args[1])
			if err != nil {
				return err
			}
			if len(to) == 0 {
				return errors.New("SET2 must be non-empty")
			}
			for i, r := range from {
				// SET2 is padded with its last character.
				if i < len(to) {
					mapping[r] = to[i]
				} else {
					mapping[r] = to[len(to)-1]
				}
			}
		}

		in := bufio.NewReader(p.Stdin)
		out := bufio.NewWriter(p.Stdout)
		defer out.Flush()
		for {
			r, _, err := in.ReadRune()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			mapped, ok := mapping[r]
			switch {
			case !ok:
				out.WriteRune(r)
			case mapped >= 0:
				out.WriteRune(mapped)
			}
		}
	})
}

var _ ProcFunc = Tr
