package cmd

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/josephlewis42/turtlesh/core/vos"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with fresh flag values.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cfgPath, recordPath, runCommand = "", "", ""
	playgroundNoColor, fixLineEndings = false, false
	eventsSession, eventsFailedOnly = "", false

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(script, []byte("NAME=file\necho from $NAME\n"), 0644))

	cases := map[string]struct {
		stdin      string
		args       []string
		wantOut    string
		wantStatus int
	}{
		"command": {
			args:    []string{"run", "-c", "echo hello | rev"},
			wantOut: "olleh\n",
		},
		"stdin script": {
			stdin:   "A=turtle\necho $A\n",
			args:    []string{"run"},
			wantOut: "turtle\n",
		},
		"script file": {
			args:    []string{"run", script},
			wantOut: "from file\n",
		},
		"status": {
			args:       []string{"run", "-c", "echo partial; false"},
			wantOut:    "partial\n",
			wantStatus: 1,
		},
		"not found": {
			args:       []string{"run", "-c", "turtlesh-no-such-command"},
			wantStatus: 127,
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			stdout, _, err := execute(t, tc.stdin, tc.args...)

			assert.Equal(t, tc.wantOut, stdout)
			if tc.wantStatus == 0 {
				assert.NoError(t, err)
				return
			}

			var status ExitStatusError
			require.True(t, errors.As(err, &status), "got error %v", err)
			assert.Equal(t, tc.wantStatus, int(status))
		})
	}
}

func TestRun_parseError(t *testing.T) {
	_, _, err := execute(t, "", "run", "-c", "echo 'unterminated")
	require.Error(t, err)

	var status ExitStatusError
	assert.False(t, errors.As(err, &status))
}

func TestPlayground(t *testing.T) {
	stdout, stderr, err := execute(t, "echo hi\nfalse\necho $?\necho )\ntrue\n", "playground", "--no-color")

	assert.NoError(t, err)
	assert.Contains(t, stdout, "hi\n")
	assert.Contains(t, stdout, "1\n")
	assert.Contains(t, stderr, "turtlesh: ")

	_, _, err = execute(t, "echo first\nexit 3\necho never\n", "playground", "--no-color")
	var status ExitStatusError
	require.True(t, errors.As(err, &status), "got error %v", err)
	assert.Equal(t, 3, int(status))
}

func TestPlayground_externalCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh isn't installed")
	}

	type result struct {
		stdout string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		stdout, _, err := execute(t, "sh -c 'echo external'\necho after\n", "playground", "--no-color")
		done <- result{stdout, err}
	}()

	select {
	case res := <-done:
		assert.NoError(t, res.err)
		assert.Contains(t, res.stdout, "external\n")
		assert.Contains(t, res.stdout, "after\n")
	case <-time.After(10 * time.Second):
		t.Fatal("playground stalled after running an external command")
	}
}

func TestRecordAndReplay(t *testing.T) {
	dir := t.TempDir()
	cast := filepath.Join(dir, "session.cast")
	uml := filepath.Join(dir, "session.ttylog")

	_, _, err := execute(t, "", "run", "--record", cast, "-c", "echo recorded")
	require.NoError(t, err)

	stdout, _, err := execute(t, "", "logs", "cat", cast)
	require.NoError(t, err)
	assert.Equal(t, "recorded\n", stdout)

	_, _, err = execute(t, "", "logs", "convert", cast, uml)
	require.NoError(t, err)

	stdout, _, err = execute(t, "", "logs", "cat", "--fix-line-endings", uml)
	require.NoError(t, err)
	assert.Equal(t, "recorded\r\n", stdout)

	stdout, _, err = execute(t, "", "logs", "play", "-i", "0", uml)
	require.NoError(t, err)
	assert.Equal(t, "recorded\n", stdout)
}

func TestInitAndEventReport(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := execute(t, "", "init", dir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "writing")
	assert.DirExists(t, filepath.Join(dir, "recordings"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
prompt: '$ '
relay_buffer: 8
event_log: events.jsonl
inherit_environment: true
`), 0600))

	_, _, err = execute(t, "", "run", "--config", dir, "--record", "s.cast", "-c", "echo hi; X=1; turtlesh-no-such-command")
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(dir, "recordings", "s.cast"))

	stdout, _, err := execute(t, "", "events", "report", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "echo: 1")
	assert.Contains(t, stdout, "turtlesh-no-such-command: 1")
	assert.Contains(t, stdout, "X: 1")
}

func TestEventsBySession(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("relay_buffer: 8\nevent_log: events.jsonl\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.jsonl"), []byte(strings.Join([]string{
		`{"type":"session_start","session_id":"11","timestamp_micros":1}`,
		`{"type":"run_command","session_id":"11","command":["echo","hi"],"builtin":true,"status":0}`,
		`{"type":"unknown_command","session_id":"11","command":["nope"],"status":127}`,
		`{"type":"session_start","session_id":"22","timestamp_micros":2}`,
		`{"type":"run_command","session_id":"22","command":["ls","-l"],"builtin":true,"status":1}`,
		`{"type":"assignment","session_id":"22","name":"X","value":"1"}`,
	}, "\n")+"\n"), 0600))

	stdout, _, err := execute(t, "", "events", "commands", "--config", dir)
	require.NoError(t, err)
	assert.Equal(t, "11\t0\techo hi\n11\t127\tnope\n22\t1\tls -l\n", stdout)

	stdout, _, err = execute(t, "", "events", "commands", "--failed", "--session", "11", "--config", dir)
	require.NoError(t, err)
	assert.Equal(t, "11\t127\tnope\n", stdout)

	stdout, _, err = execute(t, "", "events", "report", "--session", "22", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "log_entries: 3")
	assert.Contains(t, stdout, "ls: 1")
	assert.NotContains(t, stdout, "echo")

	_, _, err = execute(t, "", "events", "report", "--session", "33", "--config", dir)
	assert.EqualError(t, err, `no events for session "33"`)
}

func TestBuiltins(t *testing.T) {
	stdout, _, err := execute(t, "", "builtins")
	require.NoError(t, err)

	assert.Contains(t, stdout, "echo")
	assert.Contains(t, stdout, "test")
	assert.Contains(t, stdout, "([)")
}

func TestExpandPrompt(t *testing.T) {
	env := vos.NewEnvFromList(afero.NewMemMapFs(), []string{
		"HOME=/home/turtle",
		"PWD=/home/turtle/src",
		"USER=turtle",
		"MARK=!",
	})

	cases := map[string]struct {
		format string
		info   promptInfo
		want   string
	}{
		"default":  {`\u@\h:\w\$ `, promptInfo{Hostname: "box.example.com"}, "turtle@box:~/src$ "},
		"root":     {`\$`, promptInfo{Root: true}, "#"},
		"full":     {`\H \W`, promptInfo{Hostname: "box.example.com"}, "box.example.com src"},
		"escapes":  {`a\\b\nc\q`, promptInfo{}, "a\\b\nc\\q"},
		"vars":     {`$MARK `, promptInfo{}, "! "},
		"trailing": {`x\`, promptInfo{}, `x\`},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, expandPrompt(tc.format, env, tc.info))
		})
	}

	colored := expandPrompt(`\u`, env, promptInfo{Color: true})
	assert.Contains(t, colored, "\x1b[")
	assert.Contains(t, colored, "turtle")
}

func TestTildePath(t *testing.T) {
	cases := map[string]struct {
		home string
		wd   string
		want string
	}{
		"home":    {"/home/turtle", "/home/turtle", "~"},
		"inside":  {"/home/turtle", "/home/turtle/a/b", "~/a/b"},
		"sibling": {"/home/turtle", "/home/turtles", "/home/turtles"},
		"root":    {"/", "/etc", "/etc"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			env := vos.NewEnvFromList(afero.NewMemMapFs(), []string{"HOME=" + tc.home, "PWD=" + tc.wd})
			assert.Equal(t, tc.want, tildePath(env))
		})
	}
}

func TestParseExit(t *testing.T) {
	cases := map[string]struct {
		line   string
		last   int
		want   int
		isExit bool
	}{
		"bare":      {"exit\n", 4, 4, true},
		"code":      {"  exit 7\n", 0, 7, true},
		"wraps":     {"exit 257", 0, 1, true},
		"bad code":  {"exit x", 0, 2, true},
		"not exit":  {"echo exit", 0, 0, false},
		"extra arg": {"exit 1 2", 0, 0, false},
		"empty":     {"\n", 0, 0, false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			got, ok := parseExit(tc.line, tc.last)
			assert.Equal(t, tc.isExit, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
