package engine

import (
	"context"
	"sync"
)

// GateState is the state of a step-mode Gate.
type GateState int

const (
	// Running lets every Wait call through immediately.
	Running GateState = iota
	// Paused blocks every Wait call until Resume or StepOnce is called.
	Paused
	// SteppingOne lets exactly one Wait call through, then reverts to
	// Paused.
	SteppingOne
)

// Gate implements step-mode debugging: scheduling is blocked at
// Paused until the caller resumes the run or steps it one node at a time.
// A Gate is safe for concurrent use; a single Gate may be shared by every
// goroutine in a Parallel run.
type Gate struct {
	mu       sync.Mutex
	state    GateState
	resumeCh chan struct{}
}

// NewGate creates a Gate in the Running state.
func NewGate() *Gate {
	return &Gate{state: Running, resumeCh: make(chan struct{})}
}

// NewPausedGate creates a Gate that starts Paused.
func NewPausedGate() *Gate {
	g := NewGate()
	g.state = Paused
	return g
}

// State returns the gate's current state.
func (g *Gate) State() GateState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Resume moves the gate to Running, releasing every blocked Wait call and
// every future one until the gate is paused again.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == Running {
		return
	}
	g.state = Running
	g.release()
}

// Pause moves the gate to Paused; subsequent Wait calls block.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Paused
}

// StepOnce lets exactly one blocked or future Wait call through, then
// returns the gate to Paused. A no-op unless the gate is currently Paused.
func (g *Gate) StepOnce() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Paused {
		return
	}
	g.state = SteppingOne
	g.release()
}

// release wakes every goroutine currently parked in Wait. Must be called
// with mu held.
func (g *Gate) release() {
	close(g.resumeCh)
	g.resumeCh = make(chan struct{})
}

// Wait blocks until the gate lets the caller through, or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		switch g.state {
		case Running:
			g.mu.Unlock()
			return nil
		case SteppingOne:
			g.state = Paused
			g.mu.Unlock()
			return nil
		default: // Paused
			ch := g.resumeCh
			g.mu.Unlock()
			select {
			case <-ch:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
