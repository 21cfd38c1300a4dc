package subtask

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/martinemde/stackrun/llm"
)

var (
	// ErrUnknownOperation is returned by DecodeOperation for a tool name that
	// matches no operation kind.
	ErrUnknownOperation = errors.New("subtask: unknown operation")
	// ErrInvalidArguments is returned by DecodeOperation when required
	// arguments are missing or malformed.
	ErrInvalidArguments = errors.New("subtask: invalid operation arguments")
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ToolDefinitions returns one tool definition per operation kind, for use in
// structured generation.
func ToolDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        string(KindRunTask),
			Description: "Break a larger sub-task into further steps. Use sparingly, only for work that needs its own plan.",
			Parameters: objectSchema(map[string]interface{}{
				"task": stringProp("The sub-task to plan."),
			}, "task"),
		},
		{
			Name:        string(KindReadFile),
			Description: "Read a file into context. Give a path when known, otherwise a query describing the file.",
			Parameters: objectSchema(map[string]interface{}{
				"path":  stringProp("Path of the file relative to the working directory."),
				"query": stringProp("Words describing the file when the path is unknown."),
			}),
		},
		{
			Name:        string(KindSearchFiles),
			Description: "Search file names and contents for a pattern.",
			Parameters: objectSchema(map[string]interface{}{
				"pattern": stringProp("A regular expression or glob to search for."),
			}, "pattern"),
		},
		{
			Name:        string(KindUpdateFile),
			Description: "Modify a file according to instructions. Requires user approval.",
			Parameters: objectSchema(map[string]interface{}{
				"path":         stringProp("Path of the file to modify."),
				"query":        stringProp("Words describing the file when the path is unknown."),
				"instructions": stringProp("What to change."),
			}, "instructions"),
		},
		{
			Name:        string(KindRunShellCommand),
			Description: "Run a shell command in the working directory. Requires user approval.",
			Parameters: objectSchema(map[string]interface{}{
				"command": stringProp("The command line to run."),
			}, "command"),
		},
		{
			Name:        string(KindExplain),
			Description: "Answer a question for the user from the gathered context. Use as the last step.",
			Parameters: objectSchema(map[string]interface{}{
				"question": stringProp("The question to answer."),
			}, "question"),
		},
	}
}

type operationArgs struct {
	Task         string `json:"task"`
	Path         string `json:"path"`
	Query        string `json:"query"`
	Target       string `json:"target"`
	Pattern      string `json:"pattern"`
	Instructions string `json:"instructions"`
	Command      string `json:"command"`
	Question     string `json:"question"`
}

func (a operationArgs) fileTarget() (FileTarget, bool) {
	switch {
	case strings.TrimSpace(a.Path) != "":
		return FileTarget{Path: strings.TrimSpace(a.Path)}, true
	case strings.TrimSpace(a.Query) != "":
		return FileTarget{Query: strings.TrimSpace(a.Query)}, true
	case strings.TrimSpace(a.Target) != "":
		return ParseFileTarget(a.Target), true
	}
	return FileTarget{}, false
}

func required(kind Kind, field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s requires %q", ErrInvalidArguments, kind, field)
	}
	return value, nil
}

// DecodeOperation builds an Operation from a tool call's name and JSON
// arguments.
func DecodeOperation(name string, arguments json.RawMessage) (Operation, error) {
	var args operationArgs
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
		}
	}

	kind := Kind(name)
	switch kind {
	case KindRunTask:
		task, err := required(kind, "task", args.Task)
		if err != nil {
			return nil, err
		}
		return RunTask{Task: task}, nil

	case KindReadFile:
		target, ok := args.fileTarget()
		if !ok {
			return nil, fmt.Errorf("%w: %s requires \"path\" or \"query\"", ErrInvalidArguments, kind)
		}
		return ReadFile{Target: target}, nil

	case KindSearchFiles:
		pattern, err := required(kind, "pattern", args.Pattern)
		if err != nil {
			return nil, err
		}
		return SearchFiles{Pattern: pattern}, nil

	case KindUpdateFile:
		target, ok := args.fileTarget()
		if !ok {
			return nil, fmt.Errorf("%w: %s requires \"path\" or \"query\"", ErrInvalidArguments, kind)
		}
		instructions, err := required(kind, "instructions", args.Instructions)
		if err != nil {
			return nil, err
		}
		return UpdateFile{Target: target, Instructions: instructions}, nil

	case KindRunShellCommand:
		command, err := required(kind, "command", args.Command)
		if err != nil {
			return nil, err
		}
		return RunShellCommand{Command: command}, nil

	case KindExplain:
		question, err := required(kind, "question", args.Question)
		if err != nil {
			return nil, err
		}
		return Explain{Question: question}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
}
