package capability

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
	"github.com/martinemde/stackrun/workspace"
)

const maxGrepResults = 50

// Search handles SearchFiles. File names and file contents are searched
// concurrently and both result sets are recorded together.
type Search struct {
	opts Options
}

func (s *Search) Handle(ctx context.Context, item subtask.WorkItem, deps subtask.Deps) subtask.Outcome {
	op, ok := item.Operation.(subtask.SearchFiles)
	if !ok {
		return unexpected(item, subtask.KindSearchFiles)
	}

	var (
		names            []string
		content          string
		globErr, grepErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		names, globErr = s.opts.Env.Glob(namePattern(op.Pattern))
		return nil
	})
	g.Go(func() error {
		content, grepErr = s.opts.Env.Grep(gctx, op.Pattern, workspace.GrepOptions{
			CaseInsensitive: true,
			MaxResults:      maxGrepResults,
		})
		return nil
	})
	_ = g.Wait()

	if globErr != nil && grepErr != nil {
		return subtask.Failed(fmt.Errorf("search %q: %w", op.Pattern, errors.Join(globErr, grepErr)))
	}
	if globErr != nil {
		s.opts.Logger.Debug("file name search failed", zap.String("pattern", op.Pattern), zap.Error(globErr))
	}
	if grepErr != nil {
		s.opts.Logger.Debug("content search failed", zap.String("pattern", op.Pattern), zap.Error(grepErr))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Search: %s\n", op.Pattern)
	if len(names) > 0 {
		fmt.Fprintf(&sb, "\nFiles with matching names (%d):\n%s\n", len(names), strings.Join(names, "\n"))
	}
	if c := strings.TrimSpace(content); c != "" {
		fmt.Fprintf(&sb, "\nContent matches:\n%s\n", c)
	}
	if len(names) == 0 && strings.TrimSpace(content) == "" {
		sb.WriteString("\nNo matches.\n")
	}

	out := truncateOutput(subtask.KindSearchFiles, sb.String())
	return subtask.RecordEvidence(memory.NewFragment("search_files", out, "search", "", "pattern:"+op.Pattern))
}

// namePattern turns a search pattern into a glob over file names. Patterns
// that already look like globs are used as given.
func namePattern(pattern string) string {
	if strings.ContainsAny(pattern, "*?[") {
		return pattern
	}
	return "**/*" + pattern + "*"
}
