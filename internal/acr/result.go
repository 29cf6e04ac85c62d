package acr

import "fmt"

// Result is the caller-facing outcome triple. OK=false always implies
// Changed=false: a failed operation never reports a mutation.
type Result struct {
	OK      bool
	Changed bool
	Message string
}

// Outcome classifies a terminal reconcile state.
type Outcome string

const (
	// OutcomeSatisfied covers the idempotent no-op paths.
	OutcomeSatisfied Outcome = "satisfied"
	// OutcomeMutated covers a successful create or delete.
	OutcomeMutated Outcome = "mutated"
	// OutcomeFailed covers precondition and remote-error paths.
	OutcomeFailed Outcome = "failed"
)

// Outcome maps the triple onto its terminal state.
func (r Result) Outcome() Outcome {
	switch {
	case !r.OK:
		return OutcomeFailed
	case r.Changed:
		return OutcomeMutated
	default:
		return OutcomeSatisfied
	}
}

// Canonical result messages. Object names travel in log fields so callers can
// match on stable text.
const (
	MsgMissingInitiatorGroup  = "missing initiator group"
	MsgMissingVolume          = "missing volume"
	MsgInitiatorGroupNotFound = "initiator group not found"
	MsgVolumeNotFound         = "volume not found"
	MsgAlreadyPresent         = "already present"
	MsgCreateConflict         = "already present, cannot create"
	MsgCreated                = "created"
	MsgDeleted                = "deleted"
	MsgAlreadyAbsent          = "already absent"
)

func satisfied(msg string) Result {
	return Result{OK: true, Changed: false, Message: msg}
}

func mutated(msg string) Result {
	return Result{OK: true, Changed: true, Message: msg}
}

func failed(msg string) Result {
	return Result{OK: false, Changed: false, Message: msg}
}

func failedf(format string, args ...any) Result {
	return failed(fmt.Sprintf(format, args...))
}
