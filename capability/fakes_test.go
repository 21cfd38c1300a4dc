package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/martinemde/stackrun/llm"
	"github.com/martinemde/stackrun/workspace"
)

// fakeGenerator replays scripted answers and records every prompt.
type fakeGenerator struct {
	texts      []string
	textErr    error
	structured []*llm.Structured
	structErr  error

	textCalls   [][]llm.Message
	structCalls [][]llm.Message
	tools       []llm.ToolDefinition
}

func (g *fakeGenerator) GenerateText(_ context.Context, messages []llm.Message) (string, error) {
	g.textCalls = append(g.textCalls, messages)
	if g.textErr != nil {
		return "", g.textErr
	}
	if len(g.texts) == 0 {
		return "", errors.New("fakeGenerator: no scripted text")
	}
	text := g.texts[0]
	g.texts = g.texts[1:]
	return text, nil
}

func (g *fakeGenerator) GenerateStructured(_ context.Context, messages []llm.Message, tools []llm.ToolDefinition) (*llm.Structured, error) {
	g.structCalls = append(g.structCalls, messages)
	g.tools = tools
	if g.structErr != nil {
		return nil, g.structErr
	}
	if len(g.structured) == 0 {
		return &llm.Structured{}, nil
	}
	out := g.structured[0]
	g.structured = g.structured[1:]
	return out, nil
}

// fakeEnv is an in-memory workspace.
type fakeEnv struct {
	mu       sync.Mutex
	files    map[string]string
	commands map[string]*workspace.ExecResult
	grepOut  string
	grepErr  error
	globErr  error
	ran      []string
}

var _ workspace.Environment = (*fakeEnv)(nil)

func newFakeEnv(files map[string]string) *fakeEnv {
	if files == nil {
		files = map[string]string{}
	}
	return &fakeEnv{files: files, commands: map[string]*workspace.ExecResult{}}
}

func (e *fakeEnv) ReadFile(path string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	content, ok := e.files[path]
	if !ok {
		return "", fmt.Errorf("read %s: file does not exist", path)
	}
	return content, nil
}

func (e *fakeEnv) WriteFile(path, content string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[path] = content
	return nil
}

func (e *fakeEnv) FileExists(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.files[path]
	return ok
}

func (e *fakeEnv) Exec(_ context.Context, command string, _ time.Duration) (*workspace.ExecResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ran = append(e.ran, command)
	if res, ok := e.commands[command]; ok {
		return res, nil
	}
	return &workspace.ExecResult{ExitCode: 127, Stderr: "command not found"}, nil
}

func (e *fakeEnv) Grep(context.Context, string, workspace.GrepOptions) (string, error) {
	return e.grepOut, e.grepErr
}

func (e *fakeEnv) Glob(pattern string) ([]string, error) {
	if e.globErr != nil {
		return nil, e.globErr
	}
	needle := strings.Trim(pattern, "*/")
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for path := range e.files {
		if strings.Contains(path, needle) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (e *fakeEnv) Lookup(query string, limit int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for path := range e.files {
		if strings.Contains(path, query) {
			out = append(out, path)
		}
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) < len(out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (e *fakeEnv) WorkingDirectory() string { return "/work/project" }

func (e *fakeEnv) Platform() string { return "linux/amd64" }
