package subtask

import (
	"crypto/sha256"
	"fmt"
)

// DefaultLoopWindow is how many recent dispatches the loop guard inspects.
const DefaultLoopWindow = 6

func operationSignature(op Operation) string {
	h := sha256.Sum256([]byte(op.Description()))
	return fmt.Sprintf("%s:%x", op.Kind(), h[:8])
}

// loopGuard remembers recent dispatch signatures and reports when the last
// window of them is a repetition of a pattern of length 1, 2 or 3.
type loopGuard struct {
	window int
	sigs   []string
}

func newLoopGuard(window int) *loopGuard {
	if window <= 0 {
		window = DefaultLoopWindow
	}
	return &loopGuard{window: window}
}

func (g *loopGuard) reset() { g.sigs = g.sigs[:0] }

// observe records op and reports whether the recent history now loops.
func (g *loopGuard) observe(op Operation) bool {
	g.sigs = append(g.sigs, operationSignature(op))
	if len(g.sigs) > g.window {
		g.sigs = g.sigs[len(g.sigs)-g.window:]
	}
	return repeating(g.sigs, g.window)
}

func repeating(sigs []string, window int) bool {
	if len(sigs) < window {
		return false
	}
	recent := sigs[len(sigs)-window:]
	for patternLen := 1; patternLen <= 3; patternLen++ {
		if window%patternLen != 0 || window == patternLen {
			continue
		}
		match := true
		for i := patternLen; i < window && match; i++ {
			if recent[i] != recent[i%patternLen] {
				match = false
			}
		}
		if match {
			return true
		}
	}
	return false
}
