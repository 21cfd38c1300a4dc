package memory

import (
	"fmt"
	"strings"
)

// DefaultMaxFragmentChars bounds each fragment's content in prompts.
const DefaultMaxFragmentChars = 2000

// TruncationMode selects which part of an oversized text is kept.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Truncate shortens s to at most maxChars characters of original content,
// marking the removed span.
func Truncate(s string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	removed := len(s) - maxChars

	if mode == TruncateTail {
		return fmt.Sprintf("[... %d characters truncated ...]\n", removed) + s[len(s)-maxChars:]
	}
	half := maxChars / 2
	return s[:half] +
		fmt.Sprintf("\n[... %d characters truncated ...]\n", removed) +
		s[len(s)-(maxChars-half):]
}

// TruncateLines keeps the first and last lines of s so that at most maxLines
// remain.
func TruncateLines(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return s
	}
	head := maxLines / 2
	tail := maxLines - head
	return strings.Join(lines[:head], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", len(lines)-head-tail) +
		strings.Join(lines[len(lines)-tail:], "\n")
}

// Format renders fragments as numbered context blocks for a prompt. Content
// longer than maxChars is cut in the middle.
func Format(fragments []Fragment, maxChars int) string {
	if len(fragments) == 0 {
		return "No context gathered yet."
	}

	var sb strings.Builder
	for i, f := range fragments {
		fmt.Fprintf(&sb, "=== CONTEXT ITEM %d (from %s) ===\n", i+1, f.Source)
		if f.Metadata != nil && f.Metadata.Path != "" {
			fmt.Fprintf(&sb, "Path: %s\n", f.Metadata.Path)
		}
		sb.WriteString(Truncate(f.Content, maxChars, TruncateHeadTail))
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
