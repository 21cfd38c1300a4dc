package subtask

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind discriminates Operation variants.
type Kind string

const (
	KindRunTask         Kind = "run_task"
	KindReadFile        Kind = "read_file"
	KindSearchFiles     Kind = "search_files"
	KindUpdateFile      Kind = "update_file"
	KindRunShellCommand Kind = "run_shell_command"
	KindExplain         Kind = "explain"
)

// Kinds lists every Operation kind. The engine refuses to start unless each
// one has a capability.
var Kinds = []Kind{KindRunTask, KindReadFile, KindSearchFiles, KindUpdateFile, KindRunShellCommand, KindExplain}

// Operation is a typed unit of requested work. The set of implementations is
// closed to this package.
type Operation interface {
	Kind() Kind
	// Description is a one-line human-readable summary.
	Description() string
	Icon() string
	// RequiresApproval reports whether a human must confirm before it runs.
	RequiresApproval() bool

	isOperation()
}

// FileTarget names a file either by path or by a lookup query. Exactly one
// field is set.
type FileTarget struct {
	Path  string `json:"path,omitempty"`
	Query string `json:"query,omitempty"`
}

func (t FileTarget) String() string {
	if t.Path != "" {
		return t.Path
	}
	return fmt.Sprintf("file matching %q", t.Query)
}

// ParseFileTarget classifies free text as a path or a query. Text starting
// with "/", "./" or "../", or containing a separator and an extension, is a
// path.
func ParseFileTarget(text string) FileTarget {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "/"), strings.HasPrefix(text, "./"), strings.HasPrefix(text, "../"):
		return FileTarget{Path: text}
	case !strings.ContainsAny(text, " \t") && strings.Contains(text, "/") && filepath.Ext(text) != "":
		return FileTarget{Path: text}
	default:
		return FileTarget{Query: text}
	}
}

// RunTask asks the planner to break a task into further operations.
type RunTask struct {
	Task string
}

// ReadFile reads a file into the context.
type ReadFile struct {
	Target FileTarget
}

// SearchFiles searches file names and contents for a pattern.
type SearchFiles struct {
	Pattern string
}

// UpdateFile rewrites a file according to instructions.
type UpdateFile struct {
	Target       FileTarget
	Instructions string
}

// RunShellCommand runs a command in the workspace.
type RunShellCommand struct {
	Command string
}

// Explain answers a question from the gathered context.
type Explain struct {
	Question string
}

func (RunTask) Kind() Kind         { return KindRunTask }
func (ReadFile) Kind() Kind        { return KindReadFile }
func (SearchFiles) Kind() Kind     { return KindSearchFiles }
func (UpdateFile) Kind() Kind      { return KindUpdateFile }
func (RunShellCommand) Kind() Kind { return KindRunShellCommand }
func (Explain) Kind() Kind         { return KindExplain }

func (o RunTask) Description() string     { return "Plan: " + o.Task }
func (o ReadFile) Description() string    { return "Read " + o.Target.String() }
func (o SearchFiles) Description() string { return fmt.Sprintf("Search for %q", o.Pattern) }
func (o UpdateFile) Description() string {
	return fmt.Sprintf("Update %s: %s", o.Target, o.Instructions)
}
func (o RunShellCommand) Description() string { return "Run `" + o.Command + "`" }
func (o Explain) Description() string         { return "Explain: " + o.Question }

func (RunTask) Icon() string         { return "📋" }
func (ReadFile) Icon() string        { return "👁️" }
func (SearchFiles) Icon() string     { return "🔎" }
func (UpdateFile) Icon() string      { return "✏️" }
func (RunShellCommand) Icon() string { return "🔧" }
func (Explain) Icon() string         { return "💡" }

func (RunTask) RequiresApproval() bool         { return false }
func (ReadFile) RequiresApproval() bool        { return false }
func (SearchFiles) RequiresApproval() bool     { return false }
func (UpdateFile) RequiresApproval() bool      { return true }
func (RunShellCommand) RequiresApproval() bool { return true }
func (Explain) RequiresApproval() bool         { return false }

func (RunTask) isOperation()         {}
func (ReadFile) isOperation()        {}
func (SearchFiles) isOperation()     {}
func (UpdateFile) isOperation()      {}
func (RunShellCommand) isOperation() {}
func (Explain) isOperation()         {}
