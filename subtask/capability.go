package subtask

import (
	"context"

	"github.com/martinemde/stackrun/llm"
	"github.com/martinemde/stackrun/memory"
)

// Deps are the shared services a capability may use while handling an item.
type Deps struct {
	LLM    llm.Generator
	Memory *memory.ContextMemory
}

// Capability handles one operation kind. Handle must not panic on bad input;
// problems are reported with Failed.
type Capability interface {
	Handle(ctx context.Context, item WorkItem, deps Deps) Outcome
}

// CapabilityFunc adapts a function to Capability.
type CapabilityFunc func(ctx context.Context, item WorkItem, deps Deps) Outcome

func (f CapabilityFunc) Handle(ctx context.Context, item WorkItem, deps Deps) Outcome {
	return f(ctx, item, deps)
}

// Registry maps each operation kind to its capability.
type Registry map[Kind]Capability

func (r Registry) missing() []Kind {
	var out []Kind
	for _, k := range Kinds {
		if r[k] == nil {
			out = append(out, k)
		}
	}
	return out
}
