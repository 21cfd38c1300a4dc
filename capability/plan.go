package capability

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/martinemde/stackrun/llm"
	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
)

// Plan handles RunTask. It asks the model for a written plan, records it,
// then asks for the plan as tool calls and schedules the decoded operations.
// On the first visit the operations run one level deeper and the task is
// revisited afterwards; on a revisit they run alongside it.
type Plan struct {
	opts Options
}

func (p *Plan) Handle(ctx context.Context, item subtask.WorkItem, deps subtask.Deps) subtask.Outcome {
	op, ok := item.Operation.(subtask.RunTask)
	if !ok {
		return unexpected(item, subtask.KindRunTask)
	}

	var request strings.Builder
	fmt.Fprintf(&request, "Task: %s\n\n", op.Task)
	request.WriteString("Context gathered so far:\n")
	request.WriteString(memory.Format(deps.Memory.Snapshot(), p.opts.MaxFragmentChars))
	if item.Revisits > 0 {
		request.WriteString("\n\n")
		request.WriteString(revisitPrompt)
	} else {
		request.WriteString("\n\nWrite a short numbered plan.")
	}

	messages := []llm.Message{
		llm.SystemMessage(plannerSystemPrompt + "\n\n" + environmentContext(ctx, p.opts.Env, p.opts.Model)),
		llm.UserMessage(request.String()),
	}

	plan, err := deps.LLM.GenerateText(ctx, messages)
	if err != nil {
		return subtask.Failed(fmt.Errorf("plan %q: %w", op.Task, err))
	}
	if plan != "" {
		deps.Memory.Append(memory.NewFragment("plan", plan, "plan", "", "task:"+op.Task))
	}

	messages = append(messages, llm.AssistantMessage(plan), llm.UserMessage(structuredPrompt))
	out, err := deps.LLM.GenerateStructured(ctx, messages, subtask.ToolDefinitions())
	if err != nil {
		return subtask.Failed(fmt.Errorf("plan %q as tool calls: %w", op.Task, err))
	}

	ops := make([]subtask.Operation, 0, len(out.Calls))
	for _, call := range out.Calls {
		decoded, err := subtask.DecodeOperation(call.Name, call.Arguments)
		if err != nil {
			p.opts.Logger.Warn("skipping malformed tool call",
				zap.String("tool", call.Name),
				zap.String("arguments", string(call.Arguments)),
				zap.Error(err),
			)
			continue
		}
		ops = append(ops, decoded)
	}
	// The engine runs the last pushed operation first; reverse so the calls
	// run in the order the model wrote them.
	slices.Reverse(ops)

	p.opts.Logger.Debug("planned",
		zap.String("task", op.Task),
		zap.Int("operations", len(ops)),
		zap.Int("skipped", len(out.Calls)-len(ops)),
		zap.Int("revisits", item.Revisits),
	)

	switch {
	case len(ops) == 0:
		return subtask.Done()
	case item.Revisits == 0:
		return subtask.ExpandDeeper(ops...)
	default:
		return subtask.Expand(ops...)
	}
}
