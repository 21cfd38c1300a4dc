package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/martinemde/stackrun/gate"
	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
)

// newTestApp builds an app around an engine whose planner expands every task
// into planned (last one runs first), and whose other capabilities record
// what they were asked.
func newTestApp(t *testing.T, g subtask.Gate, input string, planned ...subtask.Operation) (*app, *bytes.Buffer) {
	t.Helper()
	record := func(source string) subtask.CapabilityFunc {
		return func(_ context.Context, item subtask.WorkItem, _ subtask.Deps) subtask.Outcome {
			return subtask.RecordEvidence(memory.NewFragment(source, item.Operation.Description(), "note", ""))
		}
	}
	reg := subtask.Registry{
		subtask.KindRunTask: subtask.CapabilityFunc(func(context.Context, subtask.WorkItem, subtask.Deps) subtask.Outcome {
			return subtask.Expand(planned...)
		}),
		subtask.KindReadFile:        record("read_file"),
		subtask.KindSearchFiles:     record("search_files"),
		subtask.KindUpdateFile:      record("update_file"),
		subtask.KindRunShellCommand: record("run_shell_command"),
		subtask.KindExplain:         record("explain"),
	}
	mem := memory.New()
	eng, err := subtask.New(reg, subtask.Deps{Memory: mem}, g, subtask.DefaultConfig())
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &app{
		engine: eng,
		memory: mem,
		stdin:  bufio.NewReader(strings.NewReader(input)),
		out:    out,
	}, out
}

func TestReplRunsTasksAndCommands(t *testing.T) {
	a, out := newTestApp(t, gate.Deny{},
		"/pending\nhow does config load\n/context\n/clear\n/context\n/quit\nnever reached\n",
		subtask.Explain{Question: "how does config load"},
	)

	require.NoError(t, a.repl(context.Background(), out))

	s := out.String()
	assert.Contains(t, s, "Nothing pending.")
	assert.Contains(t, s, "done")
	assert.Contains(t, s, "Explain: how does config load")
	assert.Contains(t, s, "context cleared")
	assert.Contains(t, s, "No context gathered yet.")
	assert.Equal(t, 0, a.memory.Len())
}

func TestReplKeepsDeclinedWorkUntilCleared(t *testing.T) {
	a, out := newTestApp(t, gate.Deny{},
		"build it\n/pending\n/clear\n/pending\n",
		subtask.RunShellCommand{Command: "make"},
		subtask.SearchFiles{Pattern: "Makefile"},
	)

	require.NoError(t, a.repl(context.Background(), out))

	s := out.String()
	assert.Contains(t, s, "stopped with 1 operation(s) pending")
	assert.Contains(t, s, "Run `make`")
	assert.Contains(t, s, "Nothing pending.")
	assert.Equal(t, 0, a.engine.Len())
}

func TestReplResumeContinuesPendingWork(t *testing.T) {
	approve := false
	g := subtask.GateFunc(func(context.Context, subtask.Approval) bool { return approve })
	a, out := newTestApp(t, g, "", subtask.RunShellCommand{Command: "go test ./..."})

	require.NoError(t, a.handle(context.Background(), "run the tests"))
	require.Equal(t, 1, a.engine.Len())

	approve = true
	a.stdin = bufio.NewReader(strings.NewReader("/resume\n"))
	require.NoError(t, a.repl(context.Background(), out))

	assert.Equal(t, 0, a.engine.Len())
	snap := a.memory.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "run_shell_command", snap[0].Source)
}

func TestReplUnknownCommand(t *testing.T) {
	a, out := newTestApp(t, gate.Deny{}, "/bogus\n")

	require.NoError(t, a.repl(context.Background(), out))
	assert.Contains(t, out.String(), "unknown command /bogus")
}

func TestReplStopsOnCancelledContext(t *testing.T) {
	a, out := newTestApp(t, gate.Deny{}, "/bogus\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.repl(ctx, out))
	assert.NotContains(t, out.String(), "unknown command")
}

func TestRenderPendingIndentsByDepth(t *testing.T) {
	var buf bytes.Buffer
	renderPending(&buf, []subtask.WorkItem{
		{Depth: 1, Operation: subtask.ReadFile{Target: subtask.FileTarget{Path: "go.mod"}}},
		{Depth: 0, Operation: subtask.RunTask{Task: "ship it"}},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  "))
	assert.Contains(t, lines[0], "Read go.mod")
	assert.Contains(t, lines[1], "Plan: ship it")
}

func TestSelectGate(t *testing.T) {
	logger := zap.NewNop()

	g, err := selectGate("auto", nil, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, gate.AutoApprove{}, g)

	g, err = selectGate("deny", nil, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, gate.Deny{}, g)

	_, err = selectGate("sometimes", nil, nil, logger)
	assert.Error(t, err)
}
