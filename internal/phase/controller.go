package phase

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"moviechat/internal/conversation"
	"moviechat/internal/ragclient"
)

// ErrOffline rejects a submission attempted while the backend is known to be
// unreachable. Nothing is dispatched and no state changes.
var ErrOffline = errors.New("backend is offline")

// Gateway is the slice of the backend client the controller needs.
type Gateway interface {
	Query(ctx context.Context, message string, history []ragclient.Message) (*ragclient.ChatResponse, error)
}

// Event is one observed phase transition, tagged with the query generation
// that produced it.
type Event struct {
	Query uint64
	Phase Phase
}

// Result is the terminal outcome of one query generation. Exactly one of
// Response and Err is set. Generations superseded before completion produce
// no Result at all.
type Result struct {
	Query    uint64
	Response *ragclient.ChatResponse
	Err      error
}

// Controller races a Simulator run against the real backend call and merges
// both into one authoritative phase signal. Every in-flight task carries the
// generation it was started under; Submit and Reset bump the generation, so
// a lingering simulator or a late response from an abandoned query can never
// touch newer state.
type Controller struct {
	mu         sync.Mutex
	current    Phase
	generation uint64

	gateway Gateway
	store   *conversation.Store
	offline func() bool
	sim     Simulator
	logger  *zap.Logger

	events  chan Event
	results chan Result
}

func NewController(gateway Gateway, store *conversation.Store, offline func() bool, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		gateway: gateway,
		store:   store,
		offline: offline,
		sim:     NewSimulator(),
		logger:  logger,
		events:  make(chan Event, 16),
		results: make(chan Result, 4),
	}
}

// SetSimulator overrides the default pacing. Used by callers that want a
// different animation speed (and by tests, which want none).
func (c *Controller) SetSimulator(sim Simulator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sim = sim
}

// Events delivers phase transitions in observation order.
func (c *Controller) Events() <-chan Event { return c.events }

// Results delivers one terminal outcome per completed (non-superseded)
// query generation.
func (c *Controller) Results() <-chan Result { return c.results }

// Current returns the authoritative phase.
func (c *Controller) Current() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Submit starts a new query cycle: it snapshots conversational context,
// appends the user entry, then concurrently launches the phase simulation
// and the real backend call. The returned generation identifies this query's
// events and result. Fails fast with ErrOffline when connectivity is down,
// touching nothing.
func (c *Controller) Submit(ctx context.Context, message string) (uint64, error) {
	if c.offline != nil && c.offline() {
		return 0, ErrOffline
	}

	c.mu.Lock()
	c.generation++
	id := c.generation
	c.current = Idle
	c.mu.Unlock()

	// Context is captured strictly before the user entry is appended, so
	// the in-flight question is never part of its own history.
	history := c.store.SnapshotHistory()
	c.store.AppendUser(message)

	c.logger.Info("query submitted", zap.Uint64("generation", id))

	go c.sim.Run(ctx, func(p Phase) {
		c.apply(id, p)
	})
	go func() {
		resp, err := c.gateway.Query(ctx, message, history)
		c.finish(id, resp, err)
	}()
	return id, nil
}

// Reset is the hard reset to Idle used by the clear action. It supersedes
// any in-flight generation, so a late-arriving response is dropped instead
// of appended.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.current = Idle
	c.emitLocked(Event{Query: c.generation, Phase: Idle})
}

// apply folds one simulated emission into the authoritative phase. Stale
// generations and backward transitions are dropped; Complete is unreachable
// from here because the simulator never emits it.
func (c *Controller) apply(id uint64, p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.generation {
		return
	}
	if p != Idle && p <= c.current {
		return
	}
	c.current = p
	c.emitLocked(Event{Query: id, Phase: p})
}

// finish handles the real backend outcome. Only this path may reach
// Complete, and only for the still-current generation.
func (c *Controller) finish(id uint64, resp *ragclient.ChatResponse, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.generation {
		c.logger.Info("dropping stale query outcome",
			zap.Uint64("generation", id),
			zap.Uint64("current", c.generation),
		)
		return
	}
	if err != nil {
		// Supersede the generation so the simulator for this query cannot
		// re-advance the phase after the reset.
		c.generation++
		c.current = Idle
		c.emitLocked(Event{Query: id, Phase: Idle})
		c.logger.Warn("query failed", zap.Uint64("generation", id), zap.Error(err))
		c.results <- Result{Query: id, Err: err}
		return
	}
	c.store.AppendAssistant(resp.Response, resp.Sources, resp.Intent)
	c.store.SetLastResponse(resp)
	c.current = Complete
	c.emitLocked(Event{Query: id, Phase: Complete})
	c.results <- Result{Query: id, Response: resp}
}

func (c *Controller) emitLocked(ev Event) {
	c.events <- ev
}
