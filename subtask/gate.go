package subtask

import "context"

// Approval describes an operation awaiting confirmation.
type Approval struct {
	Description string
	Category    Kind
	Icon        string
}

// Gate decides whether an operation that requires approval may run.
// Returning false declines it.
type Gate interface {
	Confirm(ctx context.Context, a Approval) bool
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context, a Approval) bool

func (f GateFunc) Confirm(ctx context.Context, a Approval) bool { return f(ctx, a) }

func approvalFor(op Operation) Approval {
	return Approval{Description: op.Description(), Category: op.Kind(), Icon: op.Icon()}
}
