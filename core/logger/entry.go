package logger

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// EventType names the kind of event a LogEntry holds.
type EventType string

const (
	// EventRunCommand is logged after a builtin or external program exits.
	EventRunCommand EventType = "run_command"
	// EventUnknownCommand is logged when no builtin or program matched.
	EventUnknownCommand EventType = "unknown_command"
	// EventAssignment is logged when a NAME=value command sets a variable.
	EventAssignment EventType = "assignment"
	// EventSessionStart is logged once when a session begins.
	EventSessionStart EventType = "session_start"
	// EventTTYLog records the name of the session's terminal recording.
	EventTTYLog EventType = "tty_log"
)

// LogEntry is a single event.
type LogEntry struct {
	TimestampMicros int64
	SessionID       string
	Type            EventType

	// Command is the evaluated argv of the command the event is about.
	Command []string
	// Builtin is true if the command ran in-process.
	Builtin bool
	// Status is the exit status of the command.
	Status int

	// Name and Value hold assignment and tty_log details.
	Name  string
	Value string

	ErrorMessage string
}

// Struct converts the entry to a protobuf Struct, omitting empty fields.
func (le *LogEntry) Struct() (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"timestamp_micros": le.TimestampMicros,
		"type":             string(le.Type),
	}

	if le.SessionID != "" {
		fields["session_id"] = le.SessionID
	}
	if len(le.Command) > 0 {
		command := make([]interface{}, len(le.Command))
		for i, arg := range le.Command {
			command[i] = arg
		}
		fields["command"] = command
	}

	switch le.Type {
	case EventRunCommand, EventUnknownCommand:
		fields["builtin"] = le.Builtin
		fields["status"] = le.Status
	}

	if le.Name != "" {
		fields["name"] = le.Name
	}
	if le.Value != "" {
		fields["value"] = le.Value
	}
	if le.ErrorMessage != "" {
		fields["error_message"] = le.ErrorMessage
	}

	return structpb.NewStruct(fields)
}

// FromStruct fills the entry from a Struct produced by Struct.
func (le *LogEntry) FromStruct(s *structpb.Struct) error {
	fields := s.GetFields()

	typ, ok := fields["type"]
	if !ok {
		return fmt.Errorf("log entry has no type")
	}

	*le = LogEntry{
		TimestampMicros: int64(fields["timestamp_micros"].GetNumberValue()),
		SessionID:       fields["session_id"].GetStringValue(),
		Type:            EventType(typ.GetStringValue()),
		Builtin:         fields["builtin"].GetBoolValue(),
		Status:          int(fields["status"].GetNumberValue()),
		Name:            fields["name"].GetStringValue(),
		Value:           fields["value"].GetStringValue(),
		ErrorMessage:    fields["error_message"].GetStringValue(),
	}

	for _, arg := range fields["command"].GetListValue().GetValues() {
		le.Command = append(le.Command, arg.GetStringValue())
	}

	return nil
}
