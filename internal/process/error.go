package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrExecutableNotFound is wrapped by errors returned when the executable
// cannot be resolved before spawning.
var ErrExecutableNotFound = errors.New("executable not found")

// Error is returned by Run for every failure: configuration errors, spawn
// errors and non-zero exits. Kind is empty when stderr matched no known pattern.
type Error struct {
	Message  string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Kind     Kind
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Dump renders the full diagnostic for log views.
func (e *Error) Dump() string {
	detail := struct {
		ExitCode int    `json:"exitCode"`
		Kind     Kind   `json:"kind,omitempty"`
		Command  string `json:"command"`
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
	}{e.ExitCode, e.Kind, e.Command, e.Stdout, e.Stderr}

	data, _ := json.MarshalIndent(detail, "", "  ")

	var b strings.Builder
	b.WriteString(e.Message)
	b.WriteByte(' ')
	b.Write(data)
	if e.Err != nil {
		b.WriteString("\ncause: ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// KindOf returns the classification of err, or the empty Kind when err is
// not an *Error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindNone
}
