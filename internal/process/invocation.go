// Package process runs external document builders and classifies their failures.
package process

// Invocation describes a single run of an external program.
type Invocation struct {
	Executable string            // program name or path, resolved via PATH
	Args       []string          // arguments, not including the program
	Dir        string            // working directory (empty = inherit)
	Env        map[string]string // overlay applied last over the inherited environment
	Input      []byte            // written to stdin, which is then closed; nil leaves stdin unconnected
	Encoding   string            // stdout text encoding (empty or unknown = utf-8)
	Silent     bool              // suppress command and stderr log lines
}

// Result holds the output of a successful run.
type Result struct {
	RunID    string // unique identifier for this run
	ExitCode int    // process exit code
	Stdout   string // stdout decoded with the invocation encoding
	Stderr   string // stderr decoded as utf-8
}
