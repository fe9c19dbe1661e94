package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/turtlesh/core/shell"
	"github.com/josephlewis42/turtlesh/core/vos"
	getopt "github.com/pborman/getopt/v2"
	"github.com/spf13/afero"
)

// Proc holds a single invocation of a builtin.
type Proc struct {
	Env *vos.Env
	// Name the builtin was invoked as.
	Name string
	// Args excludes the name.
	Args []string

	Stdin  io.Reader
	Stdout io.Writer
}

// Argv returns the name followed by the arguments.
func (p *Proc) Argv() []string {
	return append([]string{p.Name}, p.Args...)
}

// Stderr is the session's diagnostic channel.
func (p *Proc) Stderr() io.Writer {
	return p.Env.Stderr()
}

// Fs is the session filesystem, relative paths resolve against the working
// directory.
func (p *Proc) Fs() afero.Fs {
	return p.Env.Fs()
}

// ProcFunc is the body of a builtin.
type ProcFunc func(p *Proc) int

// NewBuiltin binds a ProcFunc to the name it's registered under.
func NewBuiltin(name string, fn ProcFunc) shell.Builtin {
	return shell.BuiltinFunc(func(env *vos.Env, args []string, stdout io.Writer, stdin io.Reader) int {
		return fn(&Proc{
			Env:    env,
			Name:   name,
			Args:   args,
			Stdin:  stdin,
			Stdout: stdout,
		})
	})
}

// BuiltinCommand describes one builtin and the names it answers to.
type BuiltinCommand struct {
	Names []string
	Proc  ProcFunc
}

// ListBuiltinCommands returns every builtin sorted by primary name.
func ListBuiltinCommands() []BuiltinCommand {
	out := []BuiltinCommand{
		{Names: []string{"cat"}, Proc: Cat},
		{Names: []string{"cd"}, Proc: Cd},
		{Names: []string{"chmod"}, Proc: Chmod},
		{Names: []string{"cp"}, Proc: Cp},
		{Names: []string{"cut"}, Proc: Cut},
		{Names: []string{"echo"}, Proc: Echo},
		{Names: []string{"env"}, Proc: Env},
		{Names: []string{"export"}, Proc: Export},
		{Names: []string{"grep"}, Proc: Grep},
		{Names: []string{"head"}, Proc: Head},
		{Names: []string{"ls"}, Proc: Ls},
		{Names: []string{"mkdir"}, Proc: Mkdir},
		{Names: []string{"mv"}, Proc: Mv},
		{Names: []string{"pwd"}, Proc: Pwd},
		{Names: []string{"rev"}, Proc: Rev},
		{Names: []string{"rm"}, Proc: Rm},
		{Names: []string{"sleep"}, Proc: Sleep},
		{Names: []string{"sort"}, Proc: Sort},
		{Names: []string{"tail"}, Proc: Tail},
		{Names: []string{"test", "["}, Proc: Test},
		{Names: []string{"touch"}, Proc: Touch},
		{Names: []string{"tr"}, Proc: Tr},
		{Names: []string{"uniq"}, Proc: Uniq},
		{Names: []string{"unset"}, Proc: Unset},
		{Names: []string{"wc"}, Proc: Wc},
		{Names: []string{"which"}, Proc: Which},
	}

	for i := range noOpCommands {
		cmd := noOpCommands[i]
		out = append(out, BuiltinCommand{Names: []string{cmd.Name}, Proc: cmd.ToCommand()})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Names[0] < out[j].Names[0]
	})
	return out
}

// Builtins constructs a registry holding every builtin.
func Builtins() *shell.Registry {
	builtins := make(map[string]shell.Builtin)
	for _, cmd := range ListBuiltinCommands() {
		for _, name := range cmd.Names {
			builtins[name] = NewBuiltin(name, cmd.Proc)
		}
	}
	return shell.NewRegistry(builtins)
}

func isBuiltin(name string) bool {
	for _, cmd := range ListBuiltinCommands() {
		for _, n := range cmd.Names {
			if n == name {
				return true
			}
		}
	}
	return false
}

func BytesToHuman(bytes int64) string {
	for _, e := range []struct {
		unit  string
		power int64
	}{
		{"P", 1e15},
		{"T", 1e12},
		{"G", 1e9},
		{"M", 1e6},
		{"K", 1e3},
	} {
		quotient := bytes / e.power
		switch {
		case quotient == 0:
			continue
		case quotient > 10:
			return fmt.Sprintf("%d%s", quotient, e.unit)
		default:
			return fmt.Sprintf("%0.1f%s", float64(bytes)/float64(e.power), e.unit)
		}
	}

	return fmt.Sprintf("%d", bytes)
}

type SimpleCommand struct {
	// Use holds a one line usage string
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp sets whether help is displayed or not.
	// If this is non-nil when Run() is called, then the default help flag isn't
	// added.
	ShowHelp *bool
	// NeverBail skips interacting with stdout/stderr on failure and
	// always runs the callback.
	NeverBail bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (s *SimpleCommand) Flags() *getopt.Set {
	if s.flags == nil {
		s.flags = getopt.New()
	}

	return s.flags
}

// PrintHelp writes help for the command to the given writer.
func (s *SimpleCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, s.Use)
	fmt.Fprintln(w, s.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	s.Flags().PrintOptions(w)
}

// Run the command, if flag parsing was successful call the callback.
func (s *SimpleCommand) Run(p *Proc, callback func() int) int {
	opts := s.Flags()

	// Add help flag if not overridden.
	if s.ShowHelp == nil {
		s.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	err := opts.Getopt(p.Argv(), nil)
	if err != nil && !s.NeverBail {
		fmt.Fprintf(p.Stderr(), "error: %s\n\n", err)

		s.PrintHelp(p.Stdout)
		return 1
	}

	if *s.ShowHelp {
		s.PrintHelp(p.Stdout)
		return 0
	}

	return callback()
}

// RunE is like Run, but a returned error is reported and exits with 1.
func (s *SimpleCommand) RunE(p *Proc, callback func() error) int {
	return s.Run(p, func() int {
		if err := callback(); err != nil {
			s.LogProgramError(p, err)
			return 1
		}
		return 0
	})
}

// LogProgramError writes an error prefixed by the program name.
func (s *SimpleCommand) LogProgramError(p *Proc, err error) {
	fmt.Fprintf(p.Stderr(), "%s: %v\n", p.Name, err)
}

// RunEachArg calls fn for every positional argument, failures are reported
// and don't stop the remaining arguments.
func (s *SimpleCommand) RunEachArg(p *Proc, fn func(arg string) error) int {
	return s.Run(p, func() int {
		anyFailed := false
		for _, arg := range s.Flags().Args() {
			if err := fn(arg); err != nil {
				s.LogProgramError(p, err)
				anyFailed = true
			}
		}

		if anyFailed {
			return 1
		}
		return 0
	})
}

// RunEachFileOrStdin calls fn with each named file, or stdin if there are
// none. The name "-" also reads stdin.
func (s *SimpleCommand) RunEachFileOrStdin(p *Proc, files []string, fn func(name string, fd io.Reader) error) int {
	if len(files) == 0 {
		files = []string{"-"}
	}

	anyFailed := false
	for _, name := range files {
		if err := s.withFileOrStdin(p, name, fn); err != nil {
			s.LogProgramError(p, err)
			anyFailed = true
		}
	}

	if anyFailed {
		return 1
	}
	return 0
}

func (s *SimpleCommand) withFileOrStdin(p *Proc, name string, fn func(name string, fd io.Reader) error) error {
	if name == "-" {
		return fn(name, p.Stdin)
	}

	fd, err := p.Fs().Open(name)
	if err != nil {
		return operandError(name, err)
	}
	defer fd.Close()

	if stat, err := fd.Stat(); err == nil && stat.IsDir() {
		return fmt.Errorf("%s: Is a directory", name)
	}

	return fn(name, fd)
}

// operandError names the operand as the user typed it rather than the
// resolved path.
func operandError(name string, err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", name, pathErr.Err)
	}
	return err
}

const (
	colorAlways = "always"
	colorAuto   = "auto"
	colorNever  = "never"
)

var (
	ColorBoldBlue  = color.New(color.FgBlue, color.Bold)
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldCyan  = color.New(color.FgCyan, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

type ColorPrinter struct {
	value *string
	env   *vos.Env
}

// Init sets up the flag and environment to determine the color output.
func (c *ColorPrinter) Init(flags *getopt.Set, p *Proc) {
	c.env = p.Env
	c.value = flags.EnumLong(
		"color",
		rune(0), // No short flag.
		[]string{colorAlways, colorAuto, colorNever},
		colorAuto,
		"colorize the output (always|auto|never)")
}

func (c *ColorPrinter) ShouldColor() bool {
	switch {
	case *c.value == colorNever:
		return false
	case *c.value == colorAlways:
		return true
	default:
		term := c.env.Getenv("TERM")
		return term != "" && term != "dumb" && !color.NoColor
	}
}

func (c *ColorPrinter) Sprintf(col *color.Color, format string, a ...interface{}) string {
	if c.ShouldColor() {
		// The global NoColor switch tracks the process stdout, which may not be
		// where this output ends up.
		forced := *col
		forced.EnableColor()
		return forced.Sprintf(format, a...)
	}
	return fmt.Sprintf(format, a...)
}

// linesOf splits text into lines without their terminators, a trailing
// newline doesn't produce an empty final line.
func linesOf(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
