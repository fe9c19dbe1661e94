package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filterCase struct {
	args       []string
	stdin      string
	want       string
	wantStatus int
}

func runFilterCases(t *testing.T, name string, fn ProcFunc, cases map[string]filterCase) {
	t.Helper()

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cmd := command(name, fn, tc.args...)
			cmd.Stdin = strings.NewReader(tc.stdin)

			out, err := cmd.Output()
			require.NoError(t, err)

			assert.Equal(t, tc.want, string(out))
			assert.Equal(t, tc.wantStatus, cmd.ExitStatus, "exit code")
		})
	}
}

const numbers = "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n"

func TestHead(t *testing.T) {
	runFilterCases(t, "head", Head, map[string]filterCase{
		"default": {nil, numbers, "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n", 0},
		"lines":   {[]string{"-n", "2"}, numbers, "1\n2\n", 0},
		"short":   {[]string{"-n", "5"}, "a\nb", "a\nb\n", 0},
		"zero":    {[]string{"-n0"}, numbers, "", 0},
	})
}

func TestTail(t *testing.T) {
	runFilterCases(t, "tail", Tail, map[string]filterCase{
		"default": {nil, numbers, "3\n4\n5\n6\n7\n8\n9\n10\n11\n12\n", 0},
		"lines":   {[]string{"-n", "2"}, numbers, "11\n12\n", 0},
		"short":   {[]string{"-n", "5"}, "a\nb\n", "a\nb\n", 0},
		"zero":    {[]string{"-n", "0"}, numbers, "", 0},
	})
}

func TestSort(t *testing.T) {
	runFilterCases(t, "sort", Sort, map[string]filterCase{
		"lexical": {nil, "b\na\nc\n", "a\nb\nc\n", 0},
		"reverse": {[]string{"-r"}, "b\na\nc\n", "c\nb\na\n", 0},
		"numeric": {[]string{"-n"}, "10\n9\n-1\n100\n", "-1\n9\n10\n100\n", 0},
		"unique":  {[]string{"-u"}, "b\na\nb\na\n", "a\nb\n", 0},
		"empty":   {nil, "", "", 0},
	})
}

func TestUniq(t *testing.T) {
	runFilterCases(t, "uniq", Uniq, map[string]filterCase{
		"adjacent": {nil, "a\na\nb\na\n", "a\nb\na\n", 0},
		"count":    {[]string{"-c"}, "a\na\nb\n", "      2 a\n      1 b\n", 0},
		"empty":    {nil, "", "", 0},
	})
}

func TestRev(t *testing.T) {
	runFilterCases(t, "rev", Rev, map[string]filterCase{
		"ascii":   {nil, "abc\nde\n", "cba\ned\n", 0},
		"unicode": {nil, "日本\n", "本日\n", 0},
	})
}

func TestTr(t *testing.T) {
	runFilterCases(t, "tr", Tr, map[string]filterCase{
		"range":    {[]string{"a-z", "A-Z"}, "hello, world\n", "HELLO, WORLD\n", 0},
		"pad":      {[]string{"abc", "x"}, "aabbcd", "xxxxxd", 0},
		"delete":   {[]string{"-d", "lo"}, "hello", "he", 0},
		"newlines": {[]string{`\n`, " "}, "a\nb\n", "a b ", 0},
		"reversed": {[]string{"z-a", "x"}, "abc", "", 1},
		"missing":  {nil, "abc", "", 1},
	})
}

func TestCut(t *testing.T) {
	runFilterCases(t, "cut", Cut, map[string]filterCase{
		"field":        {[]string{"-d", ":", "-f", "1"}, "root:x:0\nuser:x:1000\n", "root\nuser\n", 0},
		"fields":       {[]string{"-d", ",", "-f", "1,3"}, "a,b,c,d\n", "a,c\n", 0},
		"open range":   {[]string{"-d", ",", "-f", "2-"}, "a,b,c\n", "b,c\n", 0},
		"tab":          {[]string{"-f", "2"}, "a\tb\n", "b\n", 0},
		"no delimiter": {[]string{"-d", ",", "-f", "2"}, "plain\n", "plain\n", 0},
		"characters":   {[]string{"-c", "2-3"}, "abcd\n", "bc\n", 0},
		"no list":      {nil, "abc\n", "", 1},
		"bad list":     {[]string{"-f", "0"}, "abc\n", "", 1},
	})
}

func TestParseSleep(t *testing.T) {
	d, err := parseSleep("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1.5s", d.String())

	d, err = parseSleep("20ms")
	require.NoError(t, err)
	assert.Equal(t, "20ms", d.String())

	_, err = parseSleep("-1")
	assert.Error(t, err)
	_, err = parseSleep("soon")
	assert.Error(t, err)
}

func TestSleep(t *testing.T) {
	cmd := command("sleep", Sleep, "0.01", "5ms")
	require.NoError(t, cmd.Run())
	assert.Equal(t, 0, cmd.ExitStatus)

	cmd = command("sleep", Sleep)
	require.NoError(t, cmd.Run())
	assert.Equal(t, 1, cmd.ExitStatus)
}
