package monitor

import "sync"

// AlertGate is the pause/active suppression state for tier alerts. It starts
// active, is paused and resumed by operator commands, and is unconditionally
// reopened the moment the daily digest fires. No other writer exists.
type AlertGate struct {
	mu     sync.RWMutex
	paused bool
}

// NewAlertGate creates a gate in the active state.
func NewAlertGate() *AlertGate {
	return &AlertGate{}
}

// Pause suppresses tier alerts until Resume or the next digest.
func (g *AlertGate) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

// Resume re-enables tier alerts.
func (g *AlertGate) Resume() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
}

// IsPaused reports whether tier alerts are currently suppressed.
func (g *AlertGate) IsPaused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}

// ResetOnDigest reopens the gate when the daily digest fires, regardless of
// prior state. Invoked exactly once per digest, before alert evaluation for
// that tick.
func (g *AlertGate) ResetOnDigest() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
}
