package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(le *LogEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var rawEntry json.RawMessage
		if err := decoder.Decode(&rawEntry); err != nil {
			return err
		}

		var s structpb.Struct
		if err := protojson.Unmarshal(rawEntry, &s); err != nil {
			return err
		}

		var logEntry LogEntry
		if err := logEntry.FromStruct(&s); err != nil {
			return err
		}

		handler(&logEntry)
	}
	return nil
}

// Report holds statistics about the logged events.
type Report struct {
	LogEntries     int        `json:"log_entries"`
	InvalidEntries StrCounter `json:"unknown_log_entries,omitempty"`

	RunCommand     RunCommandReport     `json:"run_command_report"`
	UnknownCommand UnknownCommandReport `json:"unknown_command_report"`
	Assignment     AssignmentReport     `json:"assignment_report"`
	Sessions       SessionReport        `json:"session_report"`
}

// NewReport creates an empty report.
func NewReport() *Report {
	return &Report{
		RunCommand: RunCommandReport{
			Failures: NewPathCounter("command", "status"),
		},
	}
}

func (r *Report) Update(le *LogEntry) {
	r.LogEntries++
	r.Sessions.update(le)

	switch le.Type {
	case EventRunCommand:
		r.RunCommand.update(le)
	case EventUnknownCommand:
		r.UnknownCommand.update(le)
	case EventAssignment:
		r.Assignment.update(le)
	case EventSessionStart, EventTTYLog:
		// Ignore
	default:
		r.InvalidEntries.Increment(string(le.Type))
	}
}

type RunCommandReport struct {
	// Name of the command
	CommandNames StrCounter `json:"command_names"`
	// Builtin vs external breakdown.
	Kinds StrCounter `json:"kinds"`
	// Commands that exited non-zero.
	Failures *PathCounter `json:"failures"`
}

func (r *RunCommandReport) update(le *LogEntry) {
	if len(le.Command) == 0 {
		return
	}

	r.CommandNames.Increment(le.Command[0])
	if le.Builtin {
		r.Kinds.Increment("builtin")
	} else {
		r.Kinds.Increment("external")
	}

	if le.Status != 0 && r.Failures != nil {
		r.Failures.Increment(le.Command[0], fmt.Sprintf("%d", le.Status))
	}
}

type UnknownCommandReport struct {
	CommandNames    StrCounter `json:"command_names"`
	CommandStatuses StrCounter `json:"command_statuses"`
}

func (r *UnknownCommandReport) update(le *LogEntry) {
	if len(le.Command) > 0 {
		r.CommandNames.Increment(le.Command[0])
	}

	r.CommandStatuses.Increment(fmt.Sprintf("%d", le.Status))
}

type AssignmentReport struct {
	Names StrCounter `json:"names"`
}

func (r *AssignmentReport) update(le *LogEntry) {
	r.Names.Increment(le.Name)
}

// SessionReport lists the commands each session ran, in order.
type SessionReport struct {
	// Map of sessionID -> interactions
	interactions map[string]*Interaction
}

// Interaction summarizes a single session.
type Interaction struct {
	TTYLog     string   `json:"tty_log,omitempty"`
	LogEntries int      `json:"log_entries"`
	Commands   []string `json:"commands"`
}

func (s *SessionReport) update(le *LogEntry) {
	if le.SessionID == "" {
		return
	}
	if s.interactions == nil {
		s.interactions = make(map[string]*Interaction)
	}

	report, ok := s.interactions[le.SessionID]
	if !ok {
		report = &Interaction{}
		s.interactions[le.SessionID] = report
	}

	report.LogEntries++
	switch le.Type {
	case EventRunCommand, EventUnknownCommand:
		report.Commands = append(report.Commands, strings.Join(le.Command, " "))
	case EventTTYLog:
		report.TTYLog = le.Name
	}
}

// Session returns the interaction for the given ID, nil if it wasn't seen.
func (s *SessionReport) Session(id string) *Interaction {
	return s.interactions[id]
}

// MarshalJSON implements custom JSON marshaler.
func (s SessionReport) MarshalJSON() ([]byte, error) {
	if s.interactions == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.interactions)
}

// StrCounter counts the number of strings seen.
type StrCounter struct {
	internal map[string]int
}

// Increment adds one to the given key.
func (s *StrCounter) Increment(toAdd string) {
	if s.internal == nil {
		s.internal = make(map[string]int)
	}

	s.internal[toAdd]++
}

// Count returns the number of times key was seen.
func (s *StrCounter) Count(key string) int {
	return s.internal[key]
}

// MarshalJSON implements custom JSON marshaler.
func (s StrCounter) MarshalJSON() ([]byte, error) {
	if s.internal == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.internal)
}

func NewPathCounter(cols ...string) *PathCounter {
	return &PathCounter{
		cols:     cols,
		internal: make(map[string]int),
	}
}

// PathCounter counts tuples of strings.
type PathCounter struct {
	cols     []string
	internal map[string]int
}

// Increment adds one to the given key.
func (ctr *PathCounter) Increment(toAdd ...string) {
	if len(toAdd) != len(ctr.cols) {
		panic("wrong number of columns to add")
	}

	ctr.internal[toKey(toAdd...)]++
}

// MarshalJSON implements custom JSON marshaler, the most frequent tuples
// are listed first.
func (ctr *PathCounter) MarshalJSON() ([]byte, error) {
	type Count struct {
		Count  int               `json:"count"`
		Fields map[string]string `json:"event"`
		Path   string            `json:"-"`
	}

	out := []Count{}
	for k, v := range ctr.internal {
		count := Count{
			Count:  v,
			Path:   k,
			Fields: make(map[string]string),
		}

		splitPath := fromKey(k)
		for colNum, colVal := range ctr.cols {
			count.Fields[colVal] = splitPath[colNum]
		}

		out = append(out, count)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Path < out[j].Path
		}
		return out[i].Count > out[j].Count
	})

	return json.Marshal(out)
}

func toKey(vals ...string) string {
	key, _ := json.Marshal(vals)
	return string(key)
}

func fromKey(key string) (out []string) {
	json.Unmarshal([]byte(key), &out)
	return
}
