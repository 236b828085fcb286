package types

// CheckOutcome represents the terminal state of a single check
type CheckOutcome string

const (
	OutcomeLookupFailed CheckOutcome = "lookup_failed"
	OutcomeUnchanged    CheckOutcome = "unchanged"
	OutcomeChanged      CheckOutcome = "changed"
)
