package log

import (
	"io"
	"os"
)

// Format selects the record encoding.
type Format int

const (
	// FormatJSON writes one JSON object per record, for CI logs.
	FormatJSON Format = iota
	// FormatText writes key=value records, for terminals.
	FormatText
)

func (f Format) String() string {
	if f == FormatText {
		return "text"
	}
	return "json"
}

// Output is the destination of log records. The zero Output is stderr,
// since task output owns stdout.
type Output struct {
	writer io.Writer
}

// Writer returns the destination writer.
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// NewOutput creates an Output writing to w.
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// Config holds the logger settings derived from --loglevel and the terminal.
type Config struct {
	Level  Level
	Format Format
	Output Output

	// ServiceName and ServiceVersion are attached to every record when set.
	ServiceName    string
	ServiceVersion string
}

// DefaultConfig logs JSON records at info level, tagged with the service.
func DefaultConfig() Config {
	return Config{
		Level:          LevelInfo,
		Format:         FormatJSON,
		ServiceName:    "makeflow",
		ServiceVersion: "dev",
	}
}

// TerminalConfig returns the configuration used for interactive runs:
// text records without service attributes.
func TerminalConfig(level Level) Config {
	return Config{
		Level:  level,
		Format: FormatText,
	}
}
