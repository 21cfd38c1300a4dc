package capability

import (
	"context"
	"fmt"

	"github.com/martinemde/stackrun/llm"
	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
)

// Explain answers a question from the gathered context, prints the answer
// and records it.
type Explain struct {
	opts Options
}

func (e *Explain) Handle(ctx context.Context, item subtask.WorkItem, deps subtask.Deps) subtask.Outcome {
	op, ok := item.Operation.(subtask.Explain)
	if !ok {
		return unexpected(item, subtask.KindExplain)
	}

	answer, err := deps.LLM.GenerateText(ctx, []llm.Message{
		llm.SystemMessage(explainSystemPrompt),
		llm.UserMessage(fmt.Sprintf("Context:\n%s\n\nQuestion: %s",
			memory.Format(deps.Memory.Snapshot(), e.opts.MaxFragmentChars), op.Question)),
	})
	if err != nil {
		return subtask.Failed(fmt.Errorf("explain: %w", err))
	}

	fmt.Fprintf(e.opts.Out, "\n%s\n\n", answer)
	content := fmt.Sprintf("Q: %s\nA: %s", op.Question, answer)
	return subtask.RecordEvidence(memory.NewFragment("explain", content, "answer", ""))
}
