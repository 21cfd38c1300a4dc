// Package gate provides the approval gates the engine consults before it
// runs an operation that changes the workspace.
package gate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/martinemde/stackrun/subtask"
)

// Mode selects a gate implementation.
type Mode string

const (
	ModePrompt Mode = "prompt"
	ModeAuto   Mode = "auto"
	ModeDeny   Mode = "deny"
)

// ParseMode validates a configured approval mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModePrompt, ModeAuto, ModeDeny:
		return m, nil
	}
	return "", fmt.Errorf("unknown approval mode %q (want prompt, auto or deny)", s)
}

// AutoApprove approves everything. Every approval is logged as a warning so
// unattended changes leave a trail.
type AutoApprove struct {
	Logger *zap.Logger
}

var _ subtask.Gate = AutoApprove{}

func (g AutoApprove) Confirm(_ context.Context, a subtask.Approval) bool {
	if g.Logger != nil {
		g.Logger.Warn("auto-approving operation",
			zap.String("category", string(a.Category)),
			zap.String("operation", a.Description),
		)
	}
	return true
}

// Deny declines everything.
type Deny struct{}

var _ subtask.Gate = Deny{}

func (Deny) Confirm(context.Context, subtask.Approval) bool { return false }
