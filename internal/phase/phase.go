// Package phase models the search pipeline a query moves through and the
// controller that reconciles simulated progress with the real backend
// completion.
package phase

// Phase is one stage of the query-answering pipeline. The declaration order
// is the total order: Idle < Analyzing < VectorSearch < SQLSearch <
// Generating < Complete. Idle is both the initial phase and the target of a
// hard reset.
type Phase int

const (
	Idle Phase = iota
	Analyzing
	VectorSearch
	SQLSearch
	Generating
	Complete
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Analyzing:
		return "analyzing"
	case VectorSearch:
		return "vector_search"
	case SQLSearch:
		return "sql_search"
	case Generating:
		return "generating"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Reached reports whether candidate has been passed through (or is being
// worked on) given the current phase. While Idle nothing non-idle is
// reached.
func (p Phase) Reached(candidate Phase) bool {
	if p == Idle {
		return candidate == Idle
	}
	return candidate <= p
}

// StepStatus is the display state of one pipeline card.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepActive
	StepComplete
)

func (s StepStatus) String() string {
	switch s {
	case StepActive:
		return "active"
	case StepComplete:
		return "complete"
	default:
		return "pending"
	}
}

// StatusOf computes the card state for step given the current phase: active
// while the pipeline is in it, complete once a later phase has been reached.
func (p Phase) StatusOf(step Phase) StepStatus {
	if p == Idle || step == Idle {
		return StepPending
	}
	if p == step {
		return StepActive
	}
	if step < p {
		return StepComplete
	}
	return StepPending
}
