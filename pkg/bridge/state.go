package bridge

// State is the orchestrator's position in the approval-then-transfer protocol
type State string

const (
	StateIdle             State = "idle"
	StateQuoting          State = "quoting"
	StateAwaitingApproval State = "awaiting_approval"
	StateApproving        State = "approving"
	StateSubmitting       State = "submitting"
)

// Flags is the live state snapshot exported for the presentation layer
type Flags struct {
	State           State
	IsLoadingTokens bool
	IsGettingQuote  bool
	IsApproving     bool
	IsLoading       bool
	NeedsApproval   bool
}
