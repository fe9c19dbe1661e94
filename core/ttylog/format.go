package ttylog

import (
	"io"
	"path/filepath"
	"strings"
)

// IsUMLFile reports whether the file name uses the user-mode-linux extension,
// every other name is treated as asciicast.
func IsUMLFile(name string) bool {
	return strings.TrimPrefix(filepath.Ext(name), ".") == UMLFileExt
}

// NewLogSource picks a reader for the recording based on its file name.
func NewLogSource(name string, r io.Reader) LogSource {
	if IsUMLFile(name) {
		return NewUMLLogSource(r)
	}
	return NewAsciicastLogSource(r)
}

// NewLogSink picks a writer for the recording based on its file name.
func NewLogSink(name string, w io.Writer) LogSink {
	if IsUMLFile(name) {
		return NewUMLLogSink(w)
	}
	return NewAsciicastLogSink(w)
}
