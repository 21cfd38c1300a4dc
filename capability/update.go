package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/martinemde/stackrun/llm"
	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
)

// Update handles UpdateFile. The model rewrites the whole file; the new
// content is written and a short summary appended to memory.
type Update struct {
	opts Options
}

func (u *Update) Handle(ctx context.Context, item subtask.WorkItem, deps subtask.Deps) subtask.Outcome {
	op, ok := item.Operation.(subtask.UpdateFile)
	if !ok {
		return unexpected(item, subtask.KindUpdateFile)
	}

	path, err := resolveTarget(ctx, u.opts, deps.LLM, op.Target)
	if err != nil {
		return subtask.Failed(err)
	}

	var original string
	if u.opts.Env.FileExists(path) {
		if original, err = u.opts.Env.ReadFile(path); err != nil {
			return subtask.Failed(err)
		}
	}

	var request strings.Builder
	fmt.Fprintf(&request, "File: %s\n\n", path)
	if original == "" {
		request.WriteString("The file is new or empty.\n\n")
	} else {
		fmt.Fprintf(&request, "Current content:\n```\n%s\n```\n\n", original)
	}
	fmt.Fprintf(&request, "Instructions: %s\n\n", op.Instructions)
	request.WriteString("Relevant context:\n")
	request.WriteString(memory.Format(deps.Memory.Snapshot(), u.opts.MaxFragmentChars))

	updated, err := deps.LLM.GenerateText(ctx, []llm.Message{
		llm.SystemMessage(updateSystemPrompt),
		llm.UserMessage(request.String()),
	})
	if err != nil {
		return subtask.Failed(fmt.Errorf("update %s: %w", path, err))
	}
	updated = stripCodeFence(updated)
	if strings.TrimSpace(updated) == "" {
		return subtask.Failed(errors.New("update " + path + ": model returned no content"))
	}
	if strings.HasSuffix(original, "\n") && !strings.HasSuffix(updated, "\n") {
		updated += "\n"
	}

	if err := u.opts.Env.WriteFile(path, updated); err != nil {
		return subtask.Failed(err)
	}

	before, after := lineCount(original), lineCount(updated)
	u.opts.Logger.Info("file updated", zap.String("path", path), zap.Int("lines_before", before), zap.Int("lines_after", after))
	fmt.Fprintf(u.opts.Out, "%s Updated %s (%d → %d lines)\n", op.Icon(), path, before, after)

	summary := fmt.Sprintf("Updated %s (%d → %d lines): %s", path, before, after, op.Instructions)
	deps.Memory.Append(memory.NewFragment("update_file", summary, "edit", path))
	return subtask.Done()
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}
