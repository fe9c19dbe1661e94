package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

const (
	ModeMaskUser  fs.FileMode = 0700
	ModeMaskGroup fs.FileMode = 0070
	ModeMaskOther fs.FileMode = 0007
	ModeMaskAll               = ModeMaskUser | ModeMaskGroup | ModeMaskOther

	ModeRead  fs.FileMode = 0444
	ModeWrite fs.FileMode = 0222
	ModeExec  fs.FileMode = 0111
)

// modeChange rewrites the permission bits of a mode, other bits such as
// the file type are preserved.
type modeChange func(orig fs.FileMode) fs.FileMode

// parseModeChange parses an octal mode or a comma separated list of
// symbolic clauses like u+x,go-w.
func parseModeChange(expr string) (modeChange, error) {
	if octal, err := strconv.ParseUint(expr, 8, 32); err == nil {
		if octal > uint64(ModeMaskAll) {
			return nil, fmt.Errorf("invalid mode: %q", expr)
		}
		return func(orig fs.FileMode) fs.FileMode {
			return orig&^ModeMaskAll | fs.FileMode(octal)
		}, nil
	}

	var clauses []modeChange
	for _, clause := range strings.Split(expr, ",") {
		change, err := parseModeClause(clause)
		if err != nil {
			return nil, fmt.Errorf("invalid mode %q: %w", expr, err)
		}
		clauses = append(clauses, change)
	}

	return func(orig fs.FileMode) fs.FileMode {
		for _, change := range clauses {
			orig = change(orig)
		}
		return orig
	}, nil
}

// parseModeClause handles a single [ugoa]*[+-=][rwxX]* clause. The sticky
// and setuid bits are accepted and ignored.
func parseModeClause(clause string) (modeChange, error) {
	opAt := strings.IndexAny(clause, "+-=")
	if opAt < 0 {
		return nil, errors.New("no action provided")
	}

	var who fs.FileMode
	for _, c := range clause[:opAt] {
		switch c {
		case 'a':
			who |= ModeMaskAll
		case 'u':
			who |= ModeMaskUser
		case 'g':
			who |= ModeMaskGroup
		case 'o':
			who |= ModeMaskOther
		default:
			return nil, fmt.Errorf("unknown symbol %q", c)
		}
	}
	if who == 0 {
		who = ModeMaskAll
	}

	op := clause[opAt]
	var perms fs.FileMode
	conditionalExec := false
	for _, c := range clause[opAt+1:] {
		switch c {
		case 'r':
			perms |= ModeRead
		case 'w':
			perms |= ModeWrite
		case 'x':
			perms |= ModeExec
		case 'X':
			conditionalExec = true
		case 's', 't':
		default:
			return nil, fmt.Errorf("unknown symbol %q", c)
		}
	}

	return func(orig fs.FileMode) fs.FileMode {
		apply := perms
		if conditionalExec && (orig.IsDir() || orig&ModeExec != 0) {
			apply |= ModeExec
		}
		apply &= who

		switch op {
		case '+':
			return orig | apply
		case '-':
			return orig &^ apply
		default:
			return orig&^who | apply
		}
	}, nil
}

// Chmod implements a POSIX chmod command.
//
// Modes like -x look like flags so getopt isn't used.
func Chmod(p *Proc) int {
	cmd := &SimpleCommand{
		Use:   "chmod MODE[,MODE]... FILE...",
		Short: "Change the mode of each FILE to MODE.",
	}

	args := p.Args
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h") {
		cmd.PrintHelp(p.Stdout)
		return 0
	}
	if len(args) < 2 {
		cmd.LogProgramError(p, errors.New("missing operand"))
		return 1
	}

	change, err := parseModeChange(args[0])
	if err != nil {
		cmd.LogProgramError(p, err)
		return 1
	}

	status := 0
	for _, name := range args[1:] {
		if err := chmodFile(p, name, change); err != nil {
			cmd.LogProgramError(p, err)
			status = 1
		}
	}
	return status
}

func chmodFile(p *Proc, name string, change modeChange) error {
	fsys := p.Fs()
	stat, err := fsys.Stat(name)
	if err != nil {
		return operandError(name, err)
	}
	return operandError(name, fsys.Chmod(name, change(stat.Mode())))
}

var _ ProcFunc = Chmod
