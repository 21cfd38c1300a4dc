// Package capability implements the handlers the subtask engine dispatches
// to, one per operation kind.
package capability

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
	"github.com/martinemde/stackrun/workspace"
)

// DefaultShellTimeout bounds a shell command when Options.ShellTimeout is
// unset.
const DefaultShellTimeout = 2 * time.Minute

// Options is shared by every capability.
type Options struct {
	Env workspace.Environment
	// Out receives user-facing text such as explanations.
	Out    io.Writer
	Logger *zap.Logger
	// Model is shown to the planner in its environment block.
	Model            string
	MaxFragmentChars int
	ShellTimeout     time.Duration
}

func (o *Options) applyDefaults() {
	if o.Out == nil {
		o.Out = io.Discard
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MaxFragmentChars <= 0 {
		o.MaxFragmentChars = memory.DefaultMaxFragmentChars
	}
	if o.ShellTimeout <= 0 {
		o.ShellTimeout = DefaultShellTimeout
	}
}

// NewRegistry returns a registry with a capability for every operation kind.
func NewRegistry(opts Options) subtask.Registry {
	opts.applyDefaults()
	return subtask.Registry{
		subtask.KindRunTask:         &Plan{opts: opts},
		subtask.KindReadFile:        &Read{opts: opts},
		subtask.KindSearchFiles:     &Search{opts: opts},
		subtask.KindUpdateFile:      &Update{opts: opts},
		subtask.KindRunShellCommand: &Shell{opts: opts},
		subtask.KindExplain:         &Explain{opts: opts},
	}
}

func unexpected(item subtask.WorkItem, want subtask.Kind) subtask.Outcome {
	return subtask.Failed(fmt.Errorf("capability for %s got %s", want, item.Operation.Kind()))
}
