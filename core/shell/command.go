package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/josephlewis42/turtlesh/core/logger"
	"github.com/josephlewis42/turtlesh/core/vos"
)

// Command runs a single builtin or program.
type Command struct {
	// Words make up argv after evaluation, the first is the program name.
	Words []Word
	// Assigns are NAME=value pairs exported to this command only.
	Assigns []Assign
	// Destination receives this command's output as its input.
	Destination Task
	// Redirect sends output to a file instead of the destination or terminal.
	Redirect *Redirect
	// Background starts the command and its destinations without waiting.
	Background bool
}

// Assign is a variable set for the duration of a single command.
type Assign struct {
	Name  string
	Value Word
}

// Redirect writes output to a file.
type Redirect struct {
	Target Word
	Append bool
}

var _ Task = (*Command)(nil)

// Exec implements Task. A pipeline returns the status of its last stage.
func (c *Command) Exec(ctx context.Context, ec ExecContext) int {
	if c.Background {
		fg := *c
		fg.Background = false
		// The terminal's input stays with the shell.
		ec.Stdin = nil
		ec.Runtime.Background(func() {
			fg.Exec(ctx, ec)
		})
		return 0
	}

	if c.Destination == nil {
		return c.run(ctx, ec)
	}

	pr, pw := newPipe(ec.Runtime.relayDepth())

	upstream := make(chan int, 1)
	producer := ec
	producer.Stdout = pw
	go func() {
		defer pw.Close()
		upstream <- c.run(ctx, producer)
	}()

	consumer := ec
	consumer.Stdin = pr
	status := c.Destination.Exec(ctx, consumer)

	// Release the producer if the consumer stopped reading early.
	pr.CloseWithError(errConsumerDone)
	<-upstream

	return status
}

// run executes the command with its output going to ec.Stdout.
func (c *Command) run(ctx context.Context, ec ExecContext) int {
	argv := EvaluateAll(ctx, ec, c.Words)
	if len(argv) == 0 {
		return 0
	}

	if name, value, ok := parseAssignment(argv); ok {
		ec.Env.Setenv(name, value)
		ec.Runtime.record(&logger.LogEntry{
			Type:  logger.EventAssignment,
			Name:  name,
			Value: value,
		})
		return 0
	}

	out := ec.stdout()
	if c.Redirect != nil {
		f, err := c.Redirect.open(ctx, ec)
		if err != nil {
			fmt.Fprintf(ec.stderr(), "turtlesh: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	rr, rw := newPipe(ec.Runtime.relayDepth())
	relayed := relay(rr, out, ec.Runtime)
	defer func() {
		rw.Close()
		<-relayed
	}()

	if builtin, ok := ec.Runtime.builtin(argv[0]); ok {
		status := c.runBuiltin(ctx, ec, builtin, argv, rw)
		ec.Runtime.record(&logger.LogEntry{
			Type:    logger.EventRunCommand,
			Command: argv,
			Builtin: true,
			Status:  status,
		})
		return status
	}

	return c.runExternal(ctx, ec, argv, rw)
}

func (c *Command) runBuiltin(ctx context.Context, ec ExecContext, b Builtin, argv []string, stdout io.Writer) int {
	env := ec.Env
	if len(c.Assigns) > 0 {
		// Builtins share the session environment, prefix assignments stick.
		for _, kv := range c.assignments(ctx, ec) {
			env.Setenv(kv.name, kv.value)
		}
	}

	return b.Exec(env, argv[1:], stdout, ec.stdin())
}

func (c *Command) runExternal(ctx context.Context, ec ExecContext, argv []string, stdout io.Writer) int {
	path, err := vos.LookPath(ec.Env, argv[0])
	if err != nil {
		status := StatusNotFound
		msg := "command not found"
		if errors.Is(err, fs.ErrPermission) {
			status = StatusNotExecutable
			msg = "permission denied"
		}
		fmt.Fprintf(ec.stderr(), "turtlesh: %s: %s\n", argv[0], msg)
		ec.Runtime.record(&logger.LogEntry{
			Type:         logger.EventUnknownCommand,
			Command:      argv,
			Status:       status,
			ErrorMessage: err.Error(),
		})
		return status
	}

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Dir = ec.Env.Getwd()
	cmd.Env = ec.Env.Environ()
	for _, kv := range c.assignments(ctx, ec) {
		cmd.Env = append(cmd.Env, kv.name+"="+kv.value)
	}
	cmd.Stdout = stdout
	cmd.Stderr = ec.stderr()

	status, started, err := runProcess(cmd, ec.Stdin)
	switch {
	case !started:
		fmt.Fprintf(ec.stderr(), "turtlesh: %s: %v\n", argv[0], err)
		ec.Runtime.logf("starting %q: %v", path, err)
	case err != nil:
		ec.Runtime.logf("%s: %v", argv[0], err)
	}

	ec.Runtime.record(&logger.LogEntry{
		Type:    logger.EventRunCommand,
		Command: argv,
		Status:  status,
	})
	return status
}

// runProcess starts cmd with stdin wired in and waits for the program to
// exit. An *os.File is inherited by the program directly. Any other reader is
// copied in by a goroutine that isn't waited for: a program may exit without
// reading its input and the source may not have any yet. The copy ends when
// the pipe is closed after the program exits.
//
// The status is the program's exit code. If started is false the program
// never ran and err says why.
func runProcess(cmd *exec.Cmd, stdin io.Reader) (status int, started bool, err error) {
	var stdinPipe io.WriteCloser
	switch in := stdin.(type) {
	case nil:
	case *os.File:
		cmd.Stdin = in
	default:
		w, err := cmd.StdinPipe()
		if err != nil {
			return StatusNotExecutable, false, err
		}
		stdinPipe = w
	}

	if err := cmd.Start(); err != nil {
		return StatusNotExecutable, false, err
	}

	if stdinPipe != nil {
		go func() {
			io.Copy(stdinPipe, stdin)
			stdinPipe.Close()
		}()
	}

	err = cmd.Wait()
	return exitStatus(cmd.ProcessState), true, ignoreExitError(err)
}

// exitStatus is the program's exit code, 1 if a signal killed it.
func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return StatusNotExecutable
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

// ignoreExitError drops the error for a non-zero exit, which the status
// already carries. What's left are failures copying output.
func ignoreExitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

type keyValue struct {
	name  string
	value string
}

func (c *Command) assignments(ctx context.Context, ec ExecContext) []keyValue {
	out := make([]keyValue, 0, len(c.Assigns))
	for _, a := range c.Assigns {
		out = append(out, keyValue{name: a.Name, value: Evaluate(ctx, ec, a.Value)})
	}
	return out
}

// parseAssignment detects the NAME=value form. The value may be split over
// several words, either "NAME=a b" or "NAME" "=" "a" "b"; the words are joined
// with single spaces.
func parseAssignment(argv []string) (name, value string, ok bool) {
	var rest []string

	switch {
	case strings.Contains(argv[0], "="):
		split := strings.SplitN(argv[0], "=", 2)
		name = split[0]
		rest = append([]string{split[1]}, argv[1:]...)
	case len(argv) > 1 && strings.HasPrefix(argv[1], "="):
		name = argv[0]
		rest = append([]string{strings.TrimPrefix(argv[1], "=")}, argv[2:]...)
	default:
		return "", "", false
	}

	if !vos.IsName(name) {
		return "", "", false
	}

	if len(rest) > 1 && rest[0] == "" {
		rest = rest[1:]
	}
	return name, strings.Join(rest, " "), true
}

func (r *Runtime) builtin(name string) (Builtin, bool) {
	if r == nil {
		return nil, false
	}
	return r.Builtins.Lookup(name)
}

func (r *Redirect) open(ctx context.Context, ec ExecContext) (io.WriteCloser, error) {
	target := Evaluate(ctx, ec, r.Target)
	if target == "" {
		return nil, errors.New("ambiguous redirect")
	}

	flags := os.O_WRONLY | os.O_CREATE
	if r.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := ec.Env.Fs().OpenFile(target, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	return f, nil
}

func (r *Redirect) String() string {
	if r.Append {
		return ">> " + r.Target.String()
	}
	return "> " + r.Target.String()
}

// String renders the pipeline in shell syntax.
func (c *Command) String() string {
	var parts []string
	for _, a := range c.Assigns {
		parts = append(parts, a.Name+"="+a.Value.String())
	}
	for _, w := range c.Words {
		parts = append(parts, w.String())
	}
	if c.Redirect != nil {
		parts = append(parts, c.Redirect.String())
	}

	out := strings.Join(parts, " ")
	if c.Destination != nil {
		out += " | " + c.Destination.String()
	}
	if c.Background {
		out += " &"
	}
	return out
}
