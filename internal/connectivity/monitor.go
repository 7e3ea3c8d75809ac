// Package connectivity tracks backend reachability and drives the retry
// affordance. Health probe failures are fully absorbed here; callers only
// ever see a state.
package connectivity

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// State of the backend link. Checking is the initial state and the state
// shown while a manual retry is running.
type State int

const (
	Checking State = iota
	Online
	Offline
)

func (s State) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	default:
		return "checking"
	}
}

// HealthChecker is the slice of the backend client the monitor needs.
type HealthChecker interface {
	Health(ctx context.Context) bool
}

// Monitor holds the connectivity state machine. A successful check invokes
// onOnline exactly once per check (used to refresh cached statistics); a
// stats failure inside that callback must not and does not flip the state
// back.
type Monitor struct {
	mu       sync.Mutex
	state    State
	checker  HealthChecker
	onOnline func(ctx context.Context)
	logger   *zap.Logger
}

func NewMonitor(checker HealthChecker, onOnline func(ctx context.Context), logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		state:    Checking,
		checker:  checker,
		onOnline: onOnline,
		logger:   logger,
	}
}

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Offline reports whether submissions must be rejected.
func (m *Monitor) Offline() bool {
	return m.State() == Offline
}

// Begin marks a manual retry as started so the UI can show the checking
// state while the probe runs.
func (m *Monitor) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Checking
}

// Check runs one health probe and transitions to Online or Offline. The
// probe never raises; any failure is just an unhealthy answer.
func (m *Monitor) Check(ctx context.Context) State {
	healthy := m.checker.Health(ctx)

	m.mu.Lock()
	prev := m.state
	if healthy {
		m.state = Online
	} else {
		m.state = Offline
	}
	next := m.state
	m.mu.Unlock()

	if prev != next {
		m.logger.Info("connectivity transition",
			zap.String("from", prev.String()),
			zap.String("to", next.String()),
		)
	}
	if healthy && m.onOnline != nil {
		m.onOnline(ctx)
	}
	return next
}
