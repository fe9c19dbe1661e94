package shell

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/josephlewis42/turtlesh/core/vos"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n int32
}

func (c *counter) Exec(*vos.Env, []string, io.Writer, io.Reader) int {
	atomic.AddInt32(&c.n, 1)
	return 0
}

func (c *counter) count() int {
	return int(atomic.LoadInt32(&c.n))
}

func testBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"echo": BuiltinFunc(func(_ *vos.Env, args []string, stdout io.Writer, _ io.Reader) int {
			fmt.Fprintln(stdout, strings.Join(args, " "))
			return 0
		}),
		"printf": BuiltinFunc(func(_ *vos.Env, args []string, stdout io.Writer, _ io.Reader) int {
			fmt.Fprint(stdout, strings.Join(args, ""))
			return 0
		}),
		"cat": BuiltinFunc(func(_ *vos.Env, _ []string, stdout io.Writer, stdin io.Reader) int {
			if _, err := io.Copy(stdout, stdin); err != nil {
				return 1
			}
			return 0
		}),
		"exit": BuiltinFunc(func(_ *vos.Env, args []string, _ io.Writer, _ io.Reader) int {
			n, _ := strconv.Atoi(args[0])
			return n
		}),
		"sleep": BuiltinFunc(func(_ *vos.Env, args []string, _ io.Writer, _ io.Reader) int {
			d, _ := time.ParseDuration(args[0])
			time.Sleep(d)
			return 0
		}),
	}
}

type harness struct {
	ec     ExecContext
	rt     *Runtime
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(t *testing.T, extra map[string]Builtin) *harness {
	t.Helper()

	builtins := testBuiltins()
	for k, v := range extra {
		builtins[k] = v
	}

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/home/turtle", 0755))

	env := vos.NewEnvFromList(fs, []string{"HOME=/home/turtle", "PWD=/home/turtle", "PATH="})
	stderr := &bytes.Buffer{}
	env.SetStderr(stderr)

	rt := NewRuntime(NewRegistry(builtins))
	stdout := &bytes.Buffer{}

	return &harness{
		ec:     NewExecContext(rt, env, nil, stdout),
		rt:     rt,
		stdout: stdout,
		stderr: stderr,
	}
}

func (h *harness) exec(task Task) int {
	return task.Exec(context.Background(), h.ec)
}

func cmd(args ...string) *Command {
	return &Command{Words: Words(args...)}
}

func pipeline(stages ...*Command) *Command {
	for i := len(stages) - 2; i >= 0; i-- {
		stages[i].Destination = stages[i+1]
	}
	return stages[0]
}

func TestSequence(t *testing.T) {
	h := newHarness(t, nil)

	status := h.exec(&Sequence{
		First:  cmd("printf", "a"),
		Second: cmd("printf", "b"),
	})

	assert.Equal(t, 0, status)
	assert.Equal(t, "ab", h.stdout.String())
}

func TestSequence_returnsSecondStatus(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, 4, h.exec(&Sequence{First: cmd("exit", "3"), Second: cmd("exit", "4")}))
	assert.Equal(t, 0, h.exec(&Sequence{First: cmd("exit", "3"), Second: cmd("exit", "0")}))
}

func TestPipelineFidelity(t *testing.T) {
	const want = "x\ny\nz\n"

	slowProducer := BuiltinFunc(func(_ *vos.Env, _ []string, stdout io.Writer, _ io.Reader) int {
		for _, line := range []string{"x\n", "y\n", "z\n"} {
			time.Sleep(5 * time.Millisecond)
			io.WriteString(stdout, line)
		}
		return 0
	})
	fastProducer := BuiltinFunc(func(_ *vos.Env, _ []string, stdout io.Writer, _ io.Reader) int {
		io.WriteString(stdout, want)
		return 0
	})
	slowConsumer := BuiltinFunc(func(_ *vos.Env, _ []string, stdout io.Writer, stdin io.Reader) int {
		buf := make([]byte, 1)
		for {
			n, err := stdin.Read(buf)
			stdout.Write(buf[:n])
			if err != nil {
				return 0
			}
			time.Sleep(2 * time.Millisecond)
		}
	})

	cases := map[string]struct {
		producer Builtin
		consumer Builtin
		depth    int
	}{
		"fast-fast":          {fastProducer, testBuiltins()["cat"], DefaultRelayBuffer},
		"slow-producer":      {slowProducer, testBuiltins()["cat"], DefaultRelayBuffer},
		"slow-consumer":      {fastProducer, slowConsumer, DefaultRelayBuffer},
		"slow-both":          {slowProducer, slowConsumer, DefaultRelayBuffer},
		"slow-consumer-tiny": {slowProducer, slowConsumer, 1},
	}

	for tn, tc := range cases {
		tc := tc
		t.Run(tn, func(t *testing.T) {
			h := newHarness(t, map[string]Builtin{
				"produce": tc.producer,
				"consume": tc.consumer,
			})
			h.rt.RelayBuffer = tc.depth

			status := h.exec(pipeline(cmd("produce"), cmd("consume")))

			assert.Equal(t, 0, status)
			assert.Equal(t, want, h.stdout.String())
		})
	}
}

func TestPipeline_largeOutputSmallBuffer(t *testing.T) {
	payload := strings.Repeat("0123456789abcdef\n", 1<<14)

	h := newHarness(t, map[string]Builtin{
		"produce": BuiltinFunc(func(_ *vos.Env, _ []string, stdout io.Writer, _ io.Reader) int {
			for i := 0; i < len(payload); i += 17 {
				io.WriteString(stdout, payload[i:i+17])
			}
			return 0
		}),
	})
	h.rt.RelayBuffer = 1

	status := h.exec(pipeline(cmd("produce"), cmd("cat"), cmd("cat")))

	assert.Equal(t, 0, status)
	assert.Equal(t, payload, h.stdout.String())
}

func TestPipeline_consumerExitsEarly(t *testing.T) {
	h := newHarness(t, map[string]Builtin{
		"yes": BuiltinFunc(func(_ *vos.Env, _ []string, stdout io.Writer, _ io.Reader) int {
			for {
				if _, err := io.WriteString(stdout, "y\n"); err != nil {
					return 1
				}
			}
		}),
		"first": BuiltinFunc(func(_ *vos.Env, _ []string, stdout io.Writer, stdin io.Reader) int {
			buf := make([]byte, 2)
			n, _ := io.ReadFull(stdin, buf)
			stdout.Write(buf[:n])
			return 0
		}),
	})

	done := make(chan int)
	go func() { done <- h.exec(pipeline(cmd("yes"), cmd("first"))) }()

	select {
	case status := <-done:
		assert.Equal(t, 0, status)
		assert.Equal(t, "y\n", h.stdout.String())
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline didn't finish after its consumer exited")
	}
}

func TestPipeline_statusOfLastStage(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, 0, h.exec(pipeline(cmd("exit", "3"), cmd("cat"))))
	assert.Equal(t, 3, h.exec(pipeline(cmd("cat"), cmd("exit", "3"))))
}

func TestAnd(t *testing.T) {
	h := newHarness(t, map[string]Builtin{"count": &counter{}})
	ctr := h.rt.Builtins.builtins["count"].(*counter)

	assert.Equal(t, 1, h.exec(&And{Test: cmd("exit", "1"), Then: cmd("count")}))
	assert.Equal(t, 0, ctr.count())

	assert.Equal(t, 0, h.exec(&And{Test: cmd("exit", "0"), Then: cmd("count")}))
	assert.Equal(t, 1, ctr.count())
}

func TestOr(t *testing.T) {
	h := newHarness(t, map[string]Builtin{"count": &counter{}})
	ctr := h.rt.Builtins.builtins["count"].(*counter)

	assert.Equal(t, 0, h.exec(&Or{Test: cmd("exit", "1"), Then: cmd("count")}))
	assert.Equal(t, 1, ctr.count())

	assert.Equal(t, 0, h.exec(&Or{Test: cmd("exit", "0"), Then: cmd("count")}))
	assert.Equal(t, 1, ctr.count())

	assert.Equal(t, 5, h.exec(&Or{Test: cmd("exit", "1"), Then: cmd("exit", "5")}))
}

func TestWhile_testSucceedsImmediately(t *testing.T) {
	h := newHarness(t, map[string]Builtin{"count": &counter{}})
	ctr := h.rt.Builtins.builtins["count"].(*counter)

	start := time.Now()
	status := h.exec(&While{Test: cmd("exit", "0"), Body: cmd("count")})

	assert.Equal(t, 1, status)
	assert.Equal(t, 0, ctr.count())
	assert.Less(t, int64(time.Since(start)), int64(time.Second))
}

func TestWhile_loopsWhileNonZero(t *testing.T) {
	remaining := 3
	h := newHarness(t, map[string]Builtin{
		"count": &counter{},
		"pending": BuiltinFunc(func(*vos.Env, []string, io.Writer, io.Reader) int {
			return remaining
		}),
		"tick": BuiltinFunc(func(*vos.Env, []string, io.Writer, io.Reader) int {
			remaining--
			return 0
		}),
	})

	status := h.exec(&While{
		Test: cmd("pending"),
		Body: &Sequence{First: cmd("tick"), Second: cmd("printf", ".")},
	})

	assert.Equal(t, 1, status)
	assert.Equal(t, "...", h.stdout.String())
}

func TestWhile_stopsOnCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	status := (&While{Test: cmd("exit", "1"), Body: cmd("sleep", "1ms")}).Exec(ctx, h.ec)

	assert.Equal(t, 1, status)
}

func TestIf(t *testing.T) {
	h := newHarness(t, nil)

	status := h.exec(&If{Test: cmd("exit", "2"), Then: cmd("printf", "then"), Else: cmd("printf", "else")})
	assert.Equal(t, 2, status)
	assert.Equal(t, "then", h.stdout.String())

	h.stdout.Reset()
	status = h.exec(&If{Test: cmd("exit", "0"), Then: cmd("printf", "then"), Else: cmd("printf", "else")})
	assert.Equal(t, 0, status)
	assert.Equal(t, "else", h.stdout.String())

	h.stdout.Reset()
	status = h.exec(&If{Test: cmd("exit", "0"), Then: cmd("printf", "then")})
	assert.Equal(t, 0, status)
	assert.Equal(t, "", h.stdout.String())
}

func TestBackground(t *testing.T) {
	h := newHarness(t, nil)
	slow := cmd("sleep", "300ms")

	start := time.Now()
	bg := *slow
	bg.Background = true
	status := h.exec(&bg)
	elapsed := time.Since(start)

	assert.Equal(t, 0, status)
	assert.Less(t, int64(elapsed), int64(50*time.Millisecond))

	start = time.Now()
	h.exec(slow)
	assert.GreaterOrEqual(t, int64(time.Since(start)), int64(300*time.Millisecond))

	h.rt.Wait()
}

func TestBackground_outputDeliveredAfterWait(t *testing.T) {
	h := newHarness(t, nil)

	task := pipeline(cmd("printf", "late"), cmd("cat"))
	task.Background = true

	assert.Equal(t, 0, h.exec(task))
	h.rt.Wait()
	assert.Equal(t, "late", h.stdout.String())
}

func TestBackground_leavesStdinToCaller(t *testing.T) {
	h := newHarness(t, nil)
	terminal := bufio.NewReader(strings.NewReader("next-line\n"))
	h.ec.Stdin = terminal

	task := cmd("cat")
	task.Background = true

	assert.Equal(t, 0, h.exec(task))
	h.rt.Wait()
	assert.Empty(t, h.stdout.String())

	line, err := terminal.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "next-line\n", line)
}

func TestAssignment(t *testing.T) {
	spawned := &counter{}
	h := newHarness(t, map[string]Builtin{"COUNT": spawned})

	status := h.exec(cmd("COUNT", "=", "5"))

	assert.Equal(t, 0, status)
	assert.Equal(t, "5", h.ec.Env.Getenv("COUNT"))
	assert.Equal(t, 0, spawned.count())
}

func TestParseAssignment(t *testing.T) {
	cases := map[string]struct {
		argv      []string
		wantName  string
		wantValue string
		wantOK    bool
	}{
		"single word":    {[]string{"A=b"}, "A", "b", true},
		"empty":          {[]string{"A="}, "A", "", true},
		"split":          {[]string{"A", "=", "b"}, "A", "b", true},
		"split attached": {[]string{"A", "=b"}, "A", "b", true},
		"many words":     {[]string{"A=b", "c"}, "A", "b c", true},
		"equals in val":  {[]string{"A=b=c"}, "A", "b=c", true},
		"bad name":       {[]string{"/x=y"}, "", "", false},
		"plain command":  {[]string{"echo", "hi"}, "", "", false},
		"flag":           {[]string{"ls", "--color=auto"}, "", "", false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			name, value, ok := parseAssignment(tc.argv)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantName, name)
			assert.Equal(t, tc.wantValue, value)
		})
	}
}

func TestCommand_assignsPrefixBuiltin(t *testing.T) {
	h := newHarness(t, map[string]Builtin{
		"show": BuiltinFunc(func(env *vos.Env, _ []string, stdout io.Writer, _ io.Reader) int {
			fmt.Fprint(stdout, env.Getenv("GREETING"))
			return 0
		}),
	})

	h.exec(&Command{
		Assigns: []Assign{{Name: "GREETING", Value: Word{Lit("hello")}}},
		Words:   Words("show"),
	})

	assert.Equal(t, "hello", h.stdout.String())
}

func TestCommand_unknown(t *testing.T) {
	h := newHarness(t, nil)

	status := h.exec(cmd("definitely-not-a-command"))

	assert.Equal(t, StatusNotFound, status)
	assert.Contains(t, h.stderr.String(), "definitely-not-a-command: command not found")
}

func TestCommand_notExecutable(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, afero.WriteFile(h.ec.Env.Fs(), "script", []byte("echo"), 0644))

	status := h.exec(cmd("./script"))

	assert.Equal(t, StatusNotExecutable, status)
}

func TestCommand_empty(t *testing.T) {
	h := newHarness(t, nil)

	assert.Equal(t, 0, h.exec(&Command{}))
}

func TestCommand_external(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh isn't installed")
	}

	env, err := vos.NewOSEnv()
	require.NoError(t, err)
	env.Setenv("TURTLE_VAR", "shell")

	stdout := &bytes.Buffer{}
	ec := NewExecContext(NewRuntime(NewRegistry(testBuiltins())), env, nil, stdout)

	status := pipeline(
		cmd("sh", "-c", `echo "hello $TURTLE_VAR"; exit 0`),
		cmd("cat"),
	).Exec(context.Background(), ec)

	assert.Equal(t, 0, status)
	assert.Equal(t, "hello shell\n", stdout.String())

	assert.Equal(t, 7, cmd("sh", "-c", "exit 7").Exec(context.Background(), ec))
}

// osExecContext runs against the real filesystem and PATH so external
// programs can be found.
func osExecContext(t *testing.T, stdin io.Reader, stdout io.Writer) ExecContext {
	t.Helper()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh isn't installed")
	}

	env, err := vos.NewOSEnv()
	require.NoError(t, err)
	env.SetStderr(io.Discard)

	return NewExecContext(NewRuntime(NewRegistry(testBuiltins())), env, stdin, stdout)
}

func TestCommand_externalIgnoresIdleStdin(t *testing.T) {
	idle, feed := io.Pipe()
	defer feed.Close()

	ec := osExecContext(t, idle, io.Discard)

	done := make(chan int, 1)
	go func() { done <- cmd("sh", "-c", "exit 3").Exec(context.Background(), ec) }()

	select {
	case status := <-done:
		assert.Equal(t, 3, status)
	case <-time.After(5 * time.Second):
		t.Fatal("program exited but Exec is still waiting on its input")
	}
}

func TestCommand_externalReadsStdin(t *testing.T) {
	stdout := &bytes.Buffer{}
	ec := osExecContext(t, strings.NewReader("typed\n"), stdout)

	assert.Equal(t, 0, cmd("sh", "-c", "cat").Exec(context.Background(), ec))
	assert.Equal(t, "typed\n", stdout.String())

	stdout.Reset()
	ec.Stdin = nil
	status := pipeline(cmd("printf", "a\nb\n"), cmd("sh", "-c", "cat")).Exec(context.Background(), ec)
	assert.Equal(t, 0, status)
	assert.Equal(t, "a\nb\n", stdout.String())
}

func TestSubst(t *testing.T) {
	h := newHarness(t, nil)

	status := h.exec(&Command{Words: []Word{
		{Lit("echo")},
		{Lit("["), &Subst{Task: cmd("echo", "inner")}, Lit("]")},
	}})

	assert.Equal(t, 0, status)
	assert.Equal(t, "[inner]\n", h.stdout.String())
}

func TestSubst_failureIsEmpty(t *testing.T) {
	h := newHarness(t, nil)

	got := Evaluate(context.Background(), h.ec, Word{
		Lit("a"), &Subst{Task: cmd("no-such-command")}, Lit("b"),
	})

	assert.Equal(t, "ab", got)
}

func TestSubst_pipelineAndBackground(t *testing.T) {
	h := newHarness(t, nil)

	bg := pipeline(cmd("printf", "x\n\n\n"), cmd("cat"))
	bg.Background = true

	got := Evaluate(context.Background(), h.ec, Word{&Subst{Task: bg}})

	assert.Equal(t, "x", got)
}

func TestEvaluate(t *testing.T) {
	h := newHarness(t, nil)
	h.ec.Env.Setenv("NAME", "turtle")

	cases := map[string]struct {
		word Word
		want string
	}{
		"literal":  {Word{Lit("$NAME")}, "$NAME"},
		"var":      {Word{Var("NAME")}, "turtle"},
		"unset":    {Word{Var("UNSET_VAR")}, ""},
		"mixed":    {Word{Lit("hi-"), Var("NAME"), Lit("!")}, "hi-turtle!"},
		"empty":    {Word{}, ""},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(context.Background(), h.ec, tc.word))
		})
	}
}

func TestRedirect(t *testing.T) {
	h := newHarness(t, nil)

	write := cmd("echo", "one")
	write.Redirect = &Redirect{Target: Word{Lit("out.txt")}}
	appendCmd := cmd("echo", "two")
	appendCmd.Redirect = &Redirect{Target: Word{Lit("out.txt")}, Append: true}

	assert.Equal(t, 0, h.exec(write))
	assert.Equal(t, 0, h.exec(appendCmd))

	contents, err := afero.ReadFile(h.ec.Env.BaseFs(), "/home/turtle/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(contents))
	assert.Empty(t, h.stdout.String())

	assert.Equal(t, 0, h.exec(write))
	contents, err = afero.ReadFile(h.ec.Env.BaseFs(), "/home/turtle/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(contents))
}

func TestRedirect_openFailure(t *testing.T) {
	h := newHarness(t, map[string]Builtin{"count": &counter{}})
	ctr := h.rt.Builtins.builtins["count"].(*counter)

	readOnly := vos.NewEnvFromList(afero.NewReadOnlyFs(afero.NewMemMapFs()), []string{"PWD=/"})
	readOnly.SetStderr(h.stderr)
	h.ec.Env = readOnly

	task := cmd("count")
	task.Redirect = &Redirect{Target: Word{Lit("out.txt")}}

	assert.Equal(t, 1, h.exec(task))
	assert.Equal(t, 0, ctr.count())
	assert.Contains(t, h.stderr.String(), "turtlesh: out.txt:")
}

func TestTaskString(t *testing.T) {
	task := &Sequence{
		First: &And{
			Test: pipeline(cmd("cat", "a"), cmd("grep", "b")),
			Then: &Command{Words: []Word{{Lit("echo")}, {Var("X")}}, Redirect: &Redirect{Target: Word{Lit("f")}, Append: true}},
		},
		Second: &While{Test: cmd("false"), Body: &Command{Words: Words("sleep", "1"), Background: true}},
	}

	assert.Equal(t, "cat a | grep b && echo $X >> f; while false; do sleep 1 &; done", task.String())
}

func TestRegistry(t *testing.T) {
	table := map[string]Builtin{"b": &counter{}, "a": &counter{}}
	reg := NewRegistry(table)
	table["c"] = &counter{}

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	_, ok := reg.Lookup("c")
	assert.False(t, ok)

	var nilReg *Registry
	_, ok = nilReg.Lookup("a")
	assert.False(t, ok)
}
