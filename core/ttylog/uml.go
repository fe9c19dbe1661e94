package ttylog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// UMLFileExt is used for recordings in the user-mode-linux tty log format.
const UMLFileExt = "ttylog"

type umlOp int32

const (
	opOpen  umlOp = 1
	opClose umlOp = 2
	opWrite umlOp = 3
	opExec  umlOp = 4
)

type umlDir int32

const (
	dirRead  umlDir = 1
	dirWrite umlDir = 2
)

// maxUMLEventSize bounds a single event so a corrupt size can't exhaust memory.
const maxUMLEventSize = 1 << 24

type umlEvent struct {
	Operation    int32  // Operation, maps into umlOp.
	Tty          uint32 // Should always be 0.
	Size         int32  // Number of bytes following this event that represent the data.
	Direction    int32  // Data direction, maps into umlDir.
	Seconds      uint32 // UNIX timestamp of the event.
	Microseconds uint32 // Microseconds after the timestamp of the event.
}

func writeUMLEvent(out io.Writer, timestampMicros int64, fd FD, op umlOp, data []byte) error {
	direction := dirWrite
	if fd == FDStdin {
		direction = dirRead
	}

	event := umlEvent{
		Operation:    int32(op),
		Size:         int32(len(data)),
		Direction:    int32(direction),
		Seconds:      uint32(timestampMicros / int64(time.Second/time.Microsecond)),
		Microseconds: uint32(timestampMicros % int64(time.Second/time.Microsecond)),
	}

	if err := binary.Write(out, binary.LittleEndian, &event); err != nil {
		return err
	}

	if len(data) > 0 {
		if _, err := out.Write(data); err != nil {
			return err
		}
	}

	return nil
}

// NewUMLLogSink creates a LogSink compatible with the user-mode-linux TTY
// log format, which is also what Kippo style tools replay.
func NewUMLLogSink(w io.Writer) LogSink {
	return func(e *Entry) error {
		if e.Close {
			return writeUMLEvent(w, e.TimestampMicros, e.FD, opClose, nil)
		}
		return writeUMLEvent(w, e.TimestampMicros, e.FD, opWrite, e.Data)
	}
}

// UMLLogSource parses log events from a user-mode-linux formatted file.
type UMLLogSource struct {
	r io.Reader
}

var _ LogSource = (*UMLLogSource)(nil)

// NewUMLLogSource reads log events from a user-mode-linux formatted file.
func NewUMLLogSource(r io.Reader) *UMLLogSource {
	return &UMLLogSource{r: r}
}

// Next gets the next log entry, it returns io.EOF if there are no more.
func (log *UMLLogSource) Next() (*Entry, error) {
	var event umlEvent
	buf := &bytes.Buffer{}

	for {
		if err := binary.Read(log.r, binary.LittleEndian, &event); err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("truncated event header: %w", err)
			}
			return nil, io.EOF
		}
		if event.Size < 0 || event.Size > maxUMLEventSize {
			return nil, fmt.Errorf("invalid event size %d", event.Size)
		}

		buf.Reset()
		if _, err := io.CopyN(buf, log.r, int64(event.Size)); err != nil {
			return nil, fmt.Errorf("truncated event data: %w", err)
		}

		timestamp := int64(event.Seconds)*int64(time.Second/time.Microsecond) + int64(event.Microseconds)

		// UML doesn't distinguish between stdout and stderr so we'll report it all
		// as stdout.
		fd := FDStdout
		if umlDir(event.Direction) == dirRead {
			fd = FDStdin
		}

		switch umlOp(event.Operation) {
		case opClose:
			return &Entry{TimestampMicros: timestamp, FD: fd, Close: true}, nil
		case opWrite:
			return &Entry{TimestampMicros: timestamp, FD: fd, Data: append([]byte(nil), buf.Bytes()...)}, nil
		case opOpen, opExec:
			fallthrough
		default:
			// Skip unknown or non-I/O operations
			continue
		}
	}
}
