package process

import "log/slog"

// LogSink receives the command lines and stderr output of runs.
type LogSink interface {
	AppendLine(line string)
}

// LogFunc adapts a function to a LogSink.
type LogFunc func(line string)

func (f LogFunc) AppendLine(line string) { f(line) }

// SlogSink writes each line as a debug record.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) AppendLine(line string) {
	s.Logger.Debug(line, "component", "process")
}

type discardSink struct{}

func (discardSink) AppendLine(string) {}
