package executor

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ApprovalStatus tracks the token allowance flow for one action.
type ApprovalStatus int

const (
	// ApprovalIdle means no allowance work has started.
	ApprovalIdle ApprovalStatus = iota

	// ApprovalChecking means the current allowance is being read.
	ApprovalChecking

	// ApprovalNeeded means the allowance is insufficient.
	ApprovalNeeded

	// ApprovalPending means an approval transaction is awaiting
	// confirmation.
	ApprovalPending

	// ApprovalGranted means the allowance covers the required amount.
	ApprovalGranted

	// ApprovalErrored means the allowance flow failed.
	ApprovalErrored
)

// String implements fmt.Stringer.
func (s ApprovalStatus) String() string {
	switch s {
	case ApprovalIdle:
		return "idle"
	case ApprovalChecking:
		return "checking"
	case ApprovalNeeded:
		return "needs_approval"
	case ApprovalPending:
		return "approving"
	case ApprovalGranted:
		return "approved"
	case ApprovalErrored:
		return "error"
	default:
		return "unknown"
	}
}

// ExecutionStatus tracks the action transaction itself.
type ExecutionStatus int

const (
	// ExecutionIdle means no action is in flight.
	ExecutionIdle ExecutionStatus = iota

	// ExecutionRunning means the action transaction has been submitted
	// (swapping or bridging, depending on the action kind).
	ExecutionRunning

	// ExecutionDone means the action confirmed.
	ExecutionDone
)

// String implements fmt.Stringer.
func (s ExecutionStatus) String() string {
	switch s {
	case ExecutionIdle:
		return "idle"
	case ExecutionRunning:
		return "running"
	case ExecutionDone:
		return "done"
	default:
		return "unknown"
	}
}

// Session holds the execution state for a single user action. It is
// created per action, mutated only by the executor, and never reused
// across unrelated actions: the executor resets it before starting a new
// flow, and callers reset it on teardown. At most one action is in flight
// per session.
type Session struct {
	// Approval is the token allowance state.
	Approval ApprovalStatus

	// Execution is the action transaction state.
	Execution ExecutionStatus

	// TxHash is the action transaction hash, recorded immediately upon
	// submission so callers can display it before confirmation.
	TxHash common.Hash

	// ApprovalTxHash is the approval transaction hash, when one was sent.
	ApprovalTxHash common.Hash

	// Err is the terminal error, when the flow failed.
	Err error
}

// Reset clears all state. Always safe to call, including redundantly.
func (s *Session) Reset() {
	*s = Session{}
}

// EventType identifies an executor lifecycle event.
type EventType string

const (
	// EventNetworkSwitched fires after the wallet reaches the required
	// chain.
	EventNetworkSwitched EventType = "network_switched"

	// EventApprovalChecked fires after the allowance read.
	EventApprovalChecked EventType = "approval_checked"

	// EventApprovalSubmitted fires when an approval transaction is sent.
	EventApprovalSubmitted EventType = "approval_submitted"

	// EventApprovalConfirmed fires when the approval confirms.
	EventApprovalConfirmed EventType = "approval_confirmed"

	// EventExecutionSubmitted fires when the action transaction is sent.
	EventExecutionSubmitted EventType = "execution_submitted"

	// EventExecutionConfirmed fires when the action confirms.
	EventExecutionConfirmed EventType = "execution_confirmed"

	// EventFailed fires on any terminal failure.
	EventFailed EventType = "failed"
)

// Event is an executor lifecycle notification for logging and UI display.
type Event struct {
	// Type is the event type.
	Type EventType

	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Kind is the action kind ("swap" or "bridge").
	Kind ActionKind

	// Approval is the approval state at event time.
	Approval ApprovalStatus

	// Execution is the execution state at event time.
	Execution ExecutionStatus

	// TxHash is the relevant transaction hash, when one exists.
	TxHash common.Hash

	// Err contains error details for EventFailed.
	Err error
}

// EventCallback handles executor events. Callbacks run synchronously
// inside the flow and should return quickly.
type EventCallback func(Event)
