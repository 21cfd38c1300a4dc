package subtask

import "github.com/martinemde/stackrun/memory"

// OutcomeKind discriminates Outcome variants.
type OutcomeKind string

const (
	OutcomeDone           OutcomeKind = "done"
	OutcomeRecordEvidence OutcomeKind = "record_evidence"
	OutcomeExpand         OutcomeKind = "expand"
	OutcomeExpandDeeper   OutcomeKind = "expand_deeper"
	OutcomeFailed         OutcomeKind = "failed"
)

// Outcome is what a capability returns after handling a work item. Use the
// constructors below rather than building one directly.
type Outcome struct {
	Kind       OutcomeKind
	Fragment   memory.Fragment
	Operations []Operation
	Err        error
}

// Done reports that the item finished with nothing further to record.
func Done() Outcome { return Outcome{Kind: OutcomeDone} }

// RecordEvidence appends f to context memory.
func RecordEvidence(f memory.Fragment) Outcome {
	return Outcome{Kind: OutcomeRecordEvidence, Fragment: f}
}

// Expand schedules ops at the current depth. They are pushed in list order,
// so the last one runs next.
func Expand(ops ...Operation) Outcome {
	return Outcome{Kind: OutcomeExpand, Operations: ops}
}

// ExpandDeeper schedules ops one level deeper, pushed in list order like
// Expand, and revisits the current item once they have all finished.
func ExpandDeeper(ops ...Operation) Outcome {
	return Outcome{Kind: OutcomeExpandDeeper, Operations: ops}
}

// Failed reports an error. The engine logs it and carries on as if the item
// were Done.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}
