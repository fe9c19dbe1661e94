// Package logger is a standardized event logging framework for the shell.
//
// Events are stored as newline delimited JSON, each line being the protojson
// encoding of a google.protobuf.Struct so the log can be read by any tool
// that understands the well-known types.
package logger
