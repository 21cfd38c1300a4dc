// Package subtask schedules and runs the work an interactive agent does for
// one user request.
//
// # Architecture
//
// Work is a LIFO stack of [WorkItem] values, each wrapping a typed
// [Operation] and the depth it was scheduled at. An [Engine] pops the top
// item, syncs its depth cursor to the item's depth, asks the [Gate] for
// approval when the operation requires it, and hands the item to the
// [Capability] registered for its [Kind]. The capability answers with an
// [Outcome]:
//
//   - Done: nothing further.
//   - RecordEvidence: append a fragment to context memory.
//   - Expand: push new operations at the current depth, in list order, so
//     the last one runs next.
//   - ExpandDeeper: requeue the current item, open a deeper level and push
//     new operations there, so the item is revisited once they finish.
//   - Failed: log the error and carry on.
//
// Expansions are bounded. ExpandDeeper never opens a level past
// Config.MaxDepth, an item is requeued at most Config.MaxRevisits times, and
// a run that keeps dispatching the same operations, or exceeds
// Config.MaxSteps, stops growing the stack.
//
// # Quick Start
//
//	eng, err := subtask.New(registry, subtask.Deps{LLM: client, Memory: mem}, gate, subtask.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	eng.PushTask("explain how config is loaded")
//	outcome, err := eng.Drain(ctx)
package subtask
