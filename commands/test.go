package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

var errTestSyntax = errors.New("syntax error")

type testParser struct {
	p    *Proc
	args []string
	pos  int
}

func (t *testParser) peek() (string, bool) {
	if t.pos >= len(t.args) {
		return "", false
	}
	return t.args[t.pos], true
}

func (t *testParser) next() (string, error) {
	arg, ok := t.peek()
	if !ok {
		return "", fmt.Errorf("%w: argument expected", errTestSyntax)
	}
	t.pos++
	return arg, nil
}

// expr := and ( -o and )*
func (t *testParser) expr() (bool, error) {
	out, err := t.and()
	for err == nil {
		if arg, ok := t.peek(); !ok || arg != "-o" {
			break
		}
		t.pos++
		var rhs bool
		rhs, err = t.and()
		out = out || rhs
	}
	return out, err
}

// and := primary ( -a primary )*
func (t *testParser) and() (bool, error) {
	out, err := t.primary()
	for err == nil {
		if arg, ok := t.peek(); !ok || arg != "-a" {
			break
		}
		t.pos++
		var rhs bool
		rhs, err = t.primary()
		out = out && rhs
	}
	return out, err
}

func (t *testParser) primary() (bool, error) {
	arg, err := t.next()
	if err != nil {
		return false, err
	}

	// A lone word that is followed by a binary operator is an operand.
	if op, ok := t.peek(); ok && isTestBinary(op) && t.pos+1 < len(t.args) {
		t.pos++
		rhs, _ := t.next()
		return t.binary(arg, op, rhs)
	}

	switch {
	case arg == "!":
		v, err := t.primary()
		return !v, err
	case isTestUnary(arg):
		if _, ok := t.peek(); !ok {
			// "-n" on its own is a non-empty string.
			return true, nil
		}
		operand, _ := t.next()
		return t.unary(arg, operand)
	default:
		return arg != "", nil
	}
}

func isTestUnary(op string) bool {
	switch op {
	case "-e", "-f", "-d", "-s", "-r", "-w", "-x", "-L", "-h", "-z", "-n":
		return true
	}
	return false
}

func isTestBinary(op string) bool {
	switch op {
	case "=", "==", "!=", "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		return true
	}
	return false
}

func (t *testParser) unary(op, operand string) (bool, error) {
	switch op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	}

	fsys := t.p.Fs()
	var (
		stat fs.FileInfo
		err  error
	)
	if op == "-L" || op == "-h" {
		stat, err = lstatIfPossible(t.p, operand)
	} else {
		stat, err = fsys.Stat(operand)
	}
	if err != nil {
		return false, nil
	}

	mode := stat.Mode()
	switch op {
	case "-e":
		return true, nil
	case "-f":
		return mode.IsRegular(), nil
	case "-d":
		return mode.IsDir(), nil
	case "-s":
		return stat.Size() > 0, nil
	case "-r":
		return mode.Perm()&0444 != 0, nil
	case "-w":
		return mode.Perm()&0222 != 0, nil
	case "-x":
		return mode.Perm()&0111 != 0, nil
	default:
		return mode&fs.ModeSymlink != 0, nil
	}
}

func lstatIfPossible(p *Proc, name string) (fs.FileInfo, error) {
	if lstater, ok := p.Fs().(afero.Lstater); ok {
		stat, _, err := lstater.LstatIfPossible(name)
		return stat, err
	}
	return p.Fs().Stat(name)
}

func (t *testParser) binary(lhs, op, rhs string) (bool, error) {
	switch op {
	case "=", "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	}

	l, err := strconv.ParseInt(strings.TrimSpace(lhs), 10, 64)
	if err != nil {
		return false, fmt.Errorf("%s: integer expression expected", lhs)
	}
	r, err := strconv.ParseInt(strings.TrimSpace(rhs), 10, 64)
	if err != nil {
		return false, fmt.Errorf("%s: integer expression expected", rhs)
	}

	switch op {
	case "-eq":
		return l == r, nil
	case "-ne":
		return l != r, nil
	case "-lt":
		return l < r, nil
	case "-le":
		return l <= r, nil
	case "-gt":
		return l > r, nil
	default:
		return l >= r, nil
	}
}

// Test implements the POSIX test command, also installed as "[".
//
// https://pubs.opengroup.org/onlinepubs/9699919799.2018edition/utilities/test.html
func Test(p *Proc) int {
	args := p.Args
	if p.Name == "[" {
		if len(args) == 0 || args[len(args)-1] != "]" {
			fmt.Fprintln(p.Stderr(), "[: missing ]")
			return 2
		}
		args = args[:len(args)-1]
	}

	if len(args) == 0 {
		return 1
	}

	parser := &testParser{p: p, args: args}
	result, err := parser.expr()
	if err == nil && parser.pos != len(args) {
		err = fmt.Errorf("%w: unexpected %q", errTestSyntax, args[parser.pos])
	}
	if err != nil {
		fmt.Fprintf(p.Stderr(), "%s: %v\n", p.Name, err)
		return 2
	}

	if result {
		return 0
	}
	return 1
}

var _ ProcFunc = Test
