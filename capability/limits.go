package capability

import (
	"github.com/martinemde/stackrun/memory"
	"github.com/martinemde/stackrun/subtask"
)

// Character limits applied to evidence before it enters context memory.
var charLimits = map[subtask.Kind]int{
	subtask.KindReadFile:        50000,
	subtask.KindRunShellCommand: 30000,
	subtask.KindSearchFiles:     20000,
}

var truncationModes = map[subtask.Kind]memory.TruncationMode{
	subtask.KindReadFile:        memory.TruncateHeadTail,
	subtask.KindRunShellCommand: memory.TruncateHeadTail,
	subtask.KindSearchFiles:     memory.TruncateTail,
}

// Line limits, applied after the character limit.
var lineLimits = map[subtask.Kind]int{
	subtask.KindRunShellCommand: 256,
	subtask.KindSearchFiles:     200,
}

func truncateOutput(kind subtask.Kind, s string) string {
	if limit, ok := charLimits[kind]; ok {
		s = memory.Truncate(s, limit, truncationModes[kind])
	}
	if limit, ok := lineLimits[kind]; ok {
		s = memory.TruncateLines(s, limit)
	}
	return s
}
