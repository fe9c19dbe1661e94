package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestJSONLinesRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	lgr := NewJSONLinesLogRecorder(buf)
	lgr.Now = fixedClock
	session := lgr.NewSession()

	require.NoError(t, session.Record(&LogEntry{
		Type:    EventRunCommand,
		Command: []string{"echo", "hi"},
		Builtin: true,
	}))
	require.NoError(t, session.Record(&LogEntry{
		Type:  EventAssignment,
		Name:  "COUNT",
		Value: "5",
	}))

	var got []LogEntry
	err := ReadJSONLinesLog(buf, func(le *LogEntry) {
		got = append(got, *le)
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, LogEntry{
		TimestampMicros: fixedClock().UnixNano() / 1000,
		SessionID:       session.SessionID(),
		Type:            EventRunCommand,
		Command:         []string{"echo", "hi"},
		Builtin:         true,
	}, got[0])
	assert.Equal(t, EventAssignment, got[1].Type)
	assert.Equal(t, "COUNT", got[1].Name)
	assert.Equal(t, "5", got[1].Value)
}

func TestReadJSONLinesLog_missingType(t *testing.T) {
	err := ReadJSONLinesLog(bytes.NewBufferString(`{"status": 1}`), func(*LogEntry) {})
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	report := NewReport()
	for _, le := range []*LogEntry{
		{SessionID: "a", Type: EventRunCommand, Command: []string{"ls"}, Builtin: true},
		{SessionID: "a", Type: EventRunCommand, Command: []string{"grep", "x"}, Builtin: true, Status: 1},
		{SessionID: "a", Type: EventUnknownCommand, Command: []string{"nope"}, Status: 127},
		{SessionID: "b", Type: EventAssignment, Name: "A", Value: "1"},
		{SessionID: "b", Type: EventTTYLog, Name: "b.cast"},
		{Type: "bogus"},
	} {
		report.Update(le)
	}

	assert.Equal(t, 6, report.LogEntries)
	assert.Equal(t, 1, report.RunCommand.CommandNames.Count("grep"))
	assert.Equal(t, 2, report.RunCommand.Kinds.Count("builtin"))
	assert.Equal(t, 1, report.UnknownCommand.CommandStatuses.Count("127"))
	assert.Equal(t, 1, report.Assignment.Names.Count("A"))
	assert.Equal(t, 1, report.InvalidEntries.Count("bogus"))

	assert.Equal(t, []string{"ls", "grep x", "nope"}, report.Sessions.Session("a").Commands)
	assert.Equal(t, "b.cast", report.Sessions.Session("b").TTYLog)

	out, err := json.Marshal(report.RunCommand.Failures)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"count":1,"event":{"command":"grep","status":"1"}}]`, string(out))
}

func ExampleStrCounter() {
	var ctr StrCounter
	ctr.Increment("a")
	ctr.Increment("a")
	ctr.Increment("b")

	out, _ := json.Marshal(ctr)
	fmt.Println(string(out))

	// Output: {"a":2,"b":1}
}
