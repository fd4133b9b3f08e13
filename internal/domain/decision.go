package domain

// DecisionState enumerates the stages an event passes through.
type DecisionState string

const (
	StateReceived          DecisionState = "received"
	StateAuthenticated     DecisionState = "authenticated"
	StateRuleMatched       DecisionState = "rule_matched"
	StateRuleMiss          DecisionState = "rule_miss"
	StateTokenGateSkip     DecisionState = "token_gate_skip"
	StateSemanticAttempted DecisionState = "semantic_attempted"
	StateResolved          DecisionState = "resolved"
	StateNotResolved       DecisionState = "not_resolved"
)

// TicketStatusSolved is the backend status written by an auto-resolve.
const TicketStatusSolved = "solved"

// ResolveAction is the update sent to the ticketing backend.
type ResolveAction struct {
	TicketID TicketID
	Status   string
	Note     string
	Public   bool
	Tag      string
}

// Outcome records the path a single event took through the pipeline.
type Outcome struct {
	EventID  string
	TicketID TicketID
	Path     []DecisionState
	Final    DecisionState
	Verdict  bool
	Tokens   int
	Reason   string
	DryRun   bool
	Err      error
}

// Enter appends a state to the path and makes it current.
func (o *Outcome) Enter(state DecisionState) {
	o.Path = append(o.Path, state)
	o.Final = state
}

// Resolved reports whether a resolve action was issued successfully.
func (o Outcome) Resolved() bool { return o.Final == StateResolved }
