package phase

import (
	"context"
	"time"
)

// Step is one simulated emission: enter Phase, then stay in it for Dwell
// before the next step.
type Step struct {
	Phase Phase
	Dwell time.Duration
}

// DefaultSteps paces the simulation the way the backend pipeline tends to
// behave under normal latency. Generating has no dwell: the simulator parks
// there and only the controller's real-response handler can move past it.
func DefaultSteps() []Step {
	return []Step{
		{Phase: Analyzing, Dwell: 300 * time.Millisecond},
		{Phase: VectorSearch, Dwell: 600 * time.Millisecond},
		{Phase: SQLSearch, Dwell: 500 * time.Millisecond},
		{Phase: Generating, Dwell: 0},
	}
}

// Simulator produces a locally paced sequence of phase entries to animate
// progress while the backend call is in flight. The backend sends no
// incremental progress events, so this is perceived responsiveness only;
// it never claims Complete.
type Simulator struct {
	Steps []Step
}

func NewSimulator() Simulator {
	return Simulator{Steps: DefaultSteps()}
}

// Run emits each step in order, sleeping the dwell between emissions, and
// returns once the final step has been emitted or ctx is done. Each Run is
// scoped to a single query; staleness is enforced by the caller's emit
// callback, not in here.
func (s Simulator) Run(ctx context.Context, emit func(Phase)) {
	steps := s.Steps
	if len(steps) == 0 {
		steps = DefaultSteps()
	}
	for _, step := range steps {
		emit(step.Phase)
		if step.Dwell <= 0 {
			continue
		}
		select {
		case <-time.After(step.Dwell):
		case <-ctx.Done():
			return
		}
	}
}
