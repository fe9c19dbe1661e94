package commands

import (
	"testing"

	"github.com/josephlewis42/turtlesh/core/vos"
	"github.com/josephlewis42/turtlesh/core/vos/vostest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnv_contents(t *testing.T) {
	cmd := command("env", Env)
	cmd.Env = vos.NewEnvFromList(nil, []string{"C=charlie", "A=alpha"})
	cmd.Env.Setenv("B", "bravo")

	out, err := cmd.CombinedOutput()

	assert.Equal(t, 0, cmd.ExitStatus, "exit code")
	assert.Nil(t, err)
	assert.Equal(t, "A=alpha\nB=bravo\nC=charlie\n", string(out))
}

func TestExport(t *testing.T) {
	env := vos.NewEnvFromList(nil, []string{"A=1"})

	cmd := command("export", Export, "B=two words", "A", "C=")
	cmd.Env = env
	require.NoError(t, cmd.Run())
	assert.Equal(t, 0, cmd.ExitStatus)
	assert.Equal(t, []string{"A=1", "B=two words", "C="}, env.Environ())

	cmd = command("export", Export)
	cmd.Env = env
	out, err := cmd.Output()
	require.NoError(t, err)
	assert.Equal(t, "export A=\"1\"\nexport B=\"two words\"\nexport C=\"\"\n", string(out))
}

func TestExport_invalid(t *testing.T) {
	cmd := command("export", Export, "1-bad=x", "GOOD=y")

	out, err := cmd.CombinedOutput()
	require.NoError(t, err)

	assert.Equal(t, 1, cmd.ExitStatus)
	assert.Contains(t, string(out), "not a valid identifier")
	assert.Equal(t, "y", cmd.Env.Getenv("GOOD"))
}

func TestUnset(t *testing.T) {
	cmd := command("unset", Unset, "USER", "NEVER_SET")
	cmd.Env = vostest.NewTestEnv()

	require.NoError(t, cmd.Run())

	assert.Equal(t, 0, cmd.ExitStatus)
	_, ok := cmd.Env.LookupEnv("USER")
	assert.False(t, ok)
}
