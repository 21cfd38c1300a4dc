package capability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/martinemde/stackrun/llm"
	"github.com/martinemde/stackrun/subtask"
)

const maxLookupCandidates = 10

// resolveTarget turns a FileTarget into a path. A query is looked up in the
// workspace; with several candidates the model picks one, falling back to
// the best-ranked candidate.
func resolveTarget(ctx context.Context, opts Options, gen llm.Generator, target subtask.FileTarget) (string, error) {
	if target.Path != "" {
		return target.Path, nil
	}

	candidates, err := opts.Env.Lookup(target.Query, maxLookupCandidates)
	if err != nil {
		return "", fmt.Errorf("look up %q: %w", target.Query, err)
	}
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no file matches %q", target.Query)
	case 1:
		return candidates[0], nil
	}

	answer, err := gen.GenerateText(ctx, []llm.Message{
		llm.SystemMessage(chooseFileSystemPrompt),
		llm.UserMessage(fmt.Sprintf("Description: %s\n\nFiles:\n%s", target.Query, strings.Join(candidates, "\n"))),
	})
	if err != nil {
		opts.Logger.Warn("file choice failed, using best match",
			zap.String("query", target.Query),
			zap.String("path", candidates[0]),
			zap.Error(err),
		)
		return candidates[0], nil
	}

	answer = strings.Trim(strings.TrimSpace(answer), "`\"'")
	for _, c := range candidates {
		if c == answer {
			return c, nil
		}
	}
	opts.Logger.Debug("model chose a path outside the candidates",
		zap.String("answer", answer),
		zap.String("path", candidates[0]),
	)
	return candidates[0], nil
}
