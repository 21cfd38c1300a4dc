package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
)

// Shell handles RunShellCommand and records the command's output.
type Shell struct {
	opts Options
}

func (s *Shell) Handle(ctx context.Context, item subtask.WorkItem, deps subtask.Deps) subtask.Outcome {
	op, ok := item.Operation.(subtask.RunShellCommand)
	if !ok {
		return unexpected(item, subtask.KindRunShellCommand)
	}

	res, err := s.opts.Env.Exec(ctx, op.Command, s.opts.ShellTimeout)
	if err != nil {
		return subtask.Failed(fmt.Errorf("run %q: %w", op.Command, err))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "$ %s\n", op.Command)
	if res.TimedOut {
		fmt.Fprintf(&sb, "[timed out after %s]\n", s.opts.ShellTimeout)
	} else {
		fmt.Fprintf(&sb, "[exit code %d]\n", res.ExitCode)
	}
	sb.WriteString(res.Output())

	out := truncateOutput(subtask.KindRunShellCommand, sb.String())
	return subtask.RecordEvidence(memory.NewFragment("run_shell_command", out, "command", ""))
}
