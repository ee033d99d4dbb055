package limit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Config defines one gate: rate limiting and concurrency for the jobs of a
// trigger, optionally narrowed to a single job name.
type Config struct {
	// Trigger is the dispatch entry point the gate applies to.
	Trigger string

	// Job narrows the gate to one resolved job name within the trigger.
	// Empty applies the gate to every job dispatched for the trigger.
	Job string

	// MaxConcurrency limits how many matching jobs may run
	// simultaneously. Zero means no concurrency limit.
	MaxConcurrency int

	// RateLimit is the maximum sustained job starts per second.
	// Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket rate limiter.
	// Defaults to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// gateState tracks runtime state for a single gate.
type gateState struct {
	limiter *rate.Limiter
	slots   chan struct{}
}

func newGateState(cfg Config) *gateState {
	gs := &gateState{}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		gs.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.MaxConcurrency > 0 {
		gs.slots = make(chan struct{}, cfg.MaxConcurrency)
	}
	return gs
}

// gateKey builds the map key for a trigger+job pair.
func gateKey(trigger, jobName string) string {
	return fmt.Sprintf("%s:%s", trigger, jobName)
}

// Manager gates job starts by trigger and job name. Configuration is
// fixed at construction; the manager is safe for concurrent use.
type Manager struct {
	gates map[string]*gateState
}

// NewManager creates a Manager with the given gate configurations.
// Trigger+job pairs not listed here are not limited.
func NewManager(configs ...Config) *Manager {
	m := &Manager{gates: make(map[string]*gateState, len(configs))}
	for _, cfg := range configs {
		m.gates[gateKey(cfg.Trigger, cfg.Job)] = newGateState(cfg)
	}
	return m
}

// Acquire blocks until the matching gates admit one more job, or ctx is
// done. The trigger-wide gate is consulted first, then the job-specific
// one. On success the caller MUST call Release with the same pair when the
// job completes; on error no slot is held.
func (m *Manager) Acquire(ctx context.Context, trigger, jobName string) error {
	gs := m.gates[gateKey(trigger, "")]
	var js *gateState
	if jobName != "" {
		js = m.gates[gateKey(trigger, jobName)]
	}
	if gs == nil && js == nil {
		return nil
	}

	// Take concurrency slots before waiting on rate tokens so tokens are
	// not burned while blocked on a slot.
	if err := acquireSlot(ctx, gs); err != nil {
		return err
	}
	if err := acquireSlot(ctx, js); err != nil {
		releaseSlot(gs)
		return err
	}
	if gs != nil && gs.limiter != nil {
		if err := gs.limiter.Wait(ctx); err != nil {
			releaseSlot(js)
			releaseSlot(gs)
			return err
		}
	}
	if js != nil && js.limiter != nil {
		if err := js.limiter.Wait(ctx); err != nil {
			releaseSlot(js)
			releaseSlot(gs)
			return err
		}
	}
	return nil
}

// Release returns the slots taken by a successful Acquire.
func (m *Manager) Release(trigger, jobName string) {
	if jobName != "" {
		releaseSlot(m.gates[gateKey(trigger, jobName)])
	}
	releaseSlot(m.gates[gateKey(trigger, "")])
}

// ActiveCount returns the number of jobs currently holding the
// trigger-wide gate. Zero for unconfigured or unlimited gates.
func (m *Manager) ActiveCount(trigger string) int {
	return activeCount(m.gates[gateKey(trigger, "")])
}

// JobActiveCount returns the number of jobs currently holding the
// job-specific gate.
func (m *Manager) JobActiveCount(trigger, jobName string) int {
	return activeCount(m.gates[gateKey(trigger, jobName)])
}

func acquireSlot(ctx context.Context, g *gateState) error {
	if g == nil || g.slots == nil {
		return nil
	}
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func releaseSlot(g *gateState) {
	if g == nil || g.slots == nil {
		return
	}
	select {
	case <-g.slots:
	default:
	}
}

func activeCount(g *gateState) int {
	if g == nil || g.slots == nil {
		return 0
	}
	return len(g.slots)
}
