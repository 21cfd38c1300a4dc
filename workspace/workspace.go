// Package workspace provides the process and file-system primitives that
// capabilities run against: reading and writing files, searching, and
// running shell commands inside a project root.
package workspace

import (
	"context"
	"errors"
	"time"
)

// ErrTooLarge is returned when a file exceeds the configured read limit.
var ErrTooLarge = errors.New("workspace: file too large")

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	TimedOut bool          `json:"timed_out"`
	Duration time.Duration `json:"duration"`
}

// Output returns stdout and stderr combined.
func (r ExecResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// GrepOptions configures content search.
type GrepOptions struct {
	CaseInsensitive bool
	MaxResults      int
}

// Environment abstracts where capabilities touch the outside world.
type Environment interface {
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	FileExists(path string) bool

	Exec(ctx context.Context, command string, timeout time.Duration) (*ExecResult, error)

	Grep(ctx context.Context, pattern string, opts GrepOptions) (string, error)
	Glob(pattern string) ([]string, error)
	// Lookup returns up to limit files whose path contains every term of
	// query, most specific first.
	Lookup(query string, limit int) ([]string, error)

	WorkingDirectory() string
	Platform() string
}
