package capability

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
)

// Read handles ReadFile by recording the file's content as evidence.
type Read struct {
	opts Options
}

func (r *Read) Handle(ctx context.Context, item subtask.WorkItem, deps subtask.Deps) subtask.Outcome {
	op, ok := item.Operation.(subtask.ReadFile)
	if !ok {
		return unexpected(item, subtask.KindReadFile)
	}

	path, err := resolveTarget(ctx, r.opts, deps.LLM, op.Target)
	if err != nil {
		return subtask.Failed(err)
	}
	content, err := r.opts.Env.ReadFile(path)
	if err != nil {
		return subtask.Failed(err)
	}

	var tags []string
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		tags = append(tags, ext)
	}
	content = truncateOutput(subtask.KindReadFile, content)
	return subtask.RecordEvidence(memory.NewFragment("read_file", content, "file", path, tags...))
}
