// Package memory holds the evidence log shared by every step of a run.
//
// Fragments are appended by capabilities (directly, or by the engine applying
// a RecordEvidence outcome) and read back as a formatted block when the
// planner or explainer prompts the model. A Sink mirrors appends to durable
// storage so evidence survives across CLI sessions.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// Metadata describes where a fragment came from.
type Metadata struct {
	Kind      string    `json:"kind"`
	Path      string    `json:"path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Tags      []string  `json:"tags,omitempty"`
}

// Fragment is one piece of evidence. Treat it as immutable; ContextMemory
// hands out copies.
type Fragment struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Content  string    `json:"content"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// NewFragment builds a fragment with a fresh ID and, when kind is non-empty,
// metadata stamped with the current time.
func NewFragment(source, content, kind, path string, tags ...string) Fragment {
	f := Fragment{
		ID:      uuid.NewString(),
		Source:  source,
		Content: content,
	}
	if kind != "" {
		f.Metadata = &Metadata{
			Kind:      kind,
			Path:      path,
			Timestamp: time.Now().UTC(),
			Tags:      tags,
		}
	}
	return f
}

func (f Fragment) clone() Fragment {
	if f.Metadata == nil {
		return f
	}
	meta := *f.Metadata
	if meta.Tags != nil {
		meta.Tags = append([]string(nil), meta.Tags...)
	}
	f.Metadata = &meta
	return f
}
