package commands

import (
	"fmt"
	"strconv"
	"strings"
)

var simpleEscapes = map[byte]byte{
	'a':  '\a',
	'b':  '\b',
	'f':  '\f',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'v':  '\v',
	'\\': '\\',
}

// expandEscapes interprets the backslash sequences echo -e understands.
// The second result is true if the text contained \c, everything after it
// is dropped along with the trailing newline.
func expandEscapes(s string) (string, bool) {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			out.WriteByte(s[i])
			continue
		}

		next := s[i+1]
		if c, ok := simpleEscapes[next]; ok {
			out.WriteByte(c)
			i++
			continue
		}

		switch next {
		case 'c':
			return out.String(), true
		case '0':
			digits := leadingDigits(s[i+2:], 3, "01234567")
			val, _ := strconv.ParseUint("0"+digits, 8, 16)
			out.WriteByte(byte(val))
			i += 1 + len(digits)
		case 'x':
			digits := leadingDigits(s[i+2:], 2, "0123456789abcdefABCDEF")
			if digits == "" {
				out.WriteByte('\\')
				continue
			}
			val, _ := strconv.ParseUint(digits, 16, 8)
			out.WriteByte(byte(val))
			i += 1 + len(digits)
		default:
			out.WriteByte('\\')
		}
	}
	return out.String(), false
}

func leadingDigits(s string, limit int, digits string) string {
	n := 0
	for n < len(s) && n < limit && strings.IndexByte(digits, s[n]) >= 0 {
		n++
	}
	return s[:n]
}

// Echo writes its arguments separated by spaces.
func Echo(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "echo [-ne] [ARG] ...",
		Short: "Display a line of text.",
	}

	opt := cmd.Flags()
	escaped := opt.Bool('e', "interpret backslash escapes")
	noNewline := opt.Bool('n', "do not output the trailing newline")

	return cmd.RunE(p, func() error {
		line := strings.Join(opt.Args(), " ")
		stopped := false
		if *escaped {
			line, stopped = expandEscapes(line)
		}
		if !*noNewline && !stopped {
			line += "\n"
		}

		// One write so a pipe consumer sees the line whole.
		if _, err := fmt.Fprint(p.Stdout, line); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
		return nil
	})
}

var _ ProcFunc = Echo
