package gate

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/martinemde/stackrun/subtask"
)

var shellApproval = subtask.Approval{
	Description: "Run `make test`",
	Category:    subtask.KindRunShellCommand,
	Icon:        "🔧",
}

func TestTerminalAnswers(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"YES\n", true},
		{"  y  \n", true},
		{"n\n", false},
		{"no\n", false},
		{"maybe\n", false},
		{"y", true},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			g := NewTerminal(strings.NewReader(tt.input), &out)
			assert.Equal(t, tt.want, g.Confirm(context.Background(), shellApproval))
			assert.Contains(t, out.String(), "Run `make test`")
			assert.Contains(t, out.String(), "[Y/n]")
		})
	}
}

func TestTerminalReadsSuccessiveAnswers(t *testing.T) {
	var out bytes.Buffer
	g := NewTerminal(strings.NewReader("y\nn\n"), &out)

	assert.True(t, g.Confirm(context.Background(), shellApproval))
	assert.False(t, g.Confirm(context.Background(), shellApproval))
	assert.False(t, g.Confirm(context.Background(), shellApproval))
}

func TestTerminalCancelledContextDeclines(t *testing.T) {
	var out bytes.Buffer
	g := NewTerminal(strings.NewReader("y\n"), &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, g.Confirm(ctx, shellApproval))
	assert.Empty(t, out.String())
}

func TestAutoApproveLogsEveryApproval(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := AutoApprove{Logger: zap.New(core)}

	assert.True(t, g.Confirm(context.Background(), shellApproval))
	assert.True(t, g.Confirm(context.Background(), shellApproval))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "auto-approving operation", entries[0].Message)
	assert.Equal(t, "run_shell_command", entries[0].ContextMap()["category"])

	assert.True(t, AutoApprove{}.Confirm(context.Background(), shellApproval))
}

func TestDeny(t *testing.T) {
	assert.False(t, Deny{}.Confirm(context.Background(), shellApproval))
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"prompt", "auto", "deny"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	_, err := ParseMode("yolo")
	assert.Error(t, err)
}
