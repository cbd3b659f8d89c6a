// Engine advancing the cooling swarm one discrete tick at a time.
package swarm

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Event types recorded by the engine.
const (
	EventFaultInjected      = "fault_injected"
	EventSpontaneousFailure = "spontaneous_failure"
	EventRepair             = "repair"
	EventRedistribution     = "redistribution"
	EventRecovered          = "recovered"
)

// Event is one discrete occurrence inside the engine, stamped with the tick
// it happened on. Wall-clock time is the caller's concern.
type Event struct {
	Tick    int    `json:"tick"`
	Type    string `json:"type"`
	AgentID int    `json:"agent_id"`
}

// Engine owns the agent population and the simulation clock. All mutation
// goes through the mutex; commands and Step are never interleaved.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	rng *rand.Rand

	agents        []Agent
	tick          int
	running       bool
	faultInjected bool
	faultTick     int
	// stableTicks counts consecutive ticks without a failed agent; healthy
	// jitter tightens as it grows.
	stableTicks int
	events      []Event
}

// NewEngine builds a populated engine. A nil rng falls back to a time-seeded
// source; tests pass a fixed seed for reproducibility.
func NewEngine(cfg Config, rng *rand.Rand) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e := &Engine{cfg: cfg, rng: rng, faultTick: -1}
	e.populate()
	return e, nil
}

// Config returns the engine's effective configuration (defaults applied).
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) populate() {
	n := e.cfg.AgentCount
	e.agents = make([]Agent, n)
	for i := range e.agents {
		e.agents[i] = Agent{
			ID:          i,
			Temperature: e.draw(e.cfg.Temperature),
			FanSpeed:    e.draw(e.cfg.Fan),
			Power:       e.draw(e.cfg.Power),
			Load:        e.draw(e.cfg.Load),
			Status:      StatusHealthy,
			Neighbors:   neighborIDs(e.cfg.Topology, i, n),
			FailedAt:    -1,
		}
	}
}

func (e *Engine) draw(r Range) float64 {
	return clamp(r.Nominal+e.uniform(r.Spread), r.Min, r.Max)
}

// uniform returns a draw from U(-mag, +mag).
func (e *Engine) uniform(mag float64) float64 {
	if mag == 0 {
		return 0
	}
	return (e.rng.Float64()*2 - 1) * mag
}

// Start lets the external scheduler begin invoking Step.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
}

// Stop suppresses future ticks; an in-progress tick always completes.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
}

// Running reports whether the scheduler should keep ticking.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Tick returns the current tick counter.
func (e *Engine) Tick() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Reset recreates the population with fresh random draws, zeroes the clock,
// and clears the fault latch.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.populate()
	e.tick = 0
	e.running = false
	e.faultInjected = false
	e.faultTick = -1
	e.stableTicks = 0
	e.events = nil
}

// CanInjectFault reports whether a fault command would still take effect:
// no fault latched yet and the scheduled fault tick not reached.
func (e *Engine) CanInjectFault() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.faultInjected {
		return false
	}
	return e.cfg.FaultStep <= 0 || e.tick < e.cfg.FaultStep
}

// InjectFault forces the given agents into failed status and latches the
// fault. With no ids the last FaultAgents agents fail. When a fault tick is
// configured and not yet reached, the clock fast-forwards to it so the
// phase/efficiency narrative stays consistent. A second call while the latch
// is set is a no-op.
func (e *Engine) InjectFault(ids ...int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.injectLocked(ids)
}

func (e *Engine) injectLocked(ids []int) error {
	if e.faultInjected {
		return nil
	}
	for _, id := range ids {
		if id < 0 || id >= len(e.agents) {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
	}
	if len(ids) == 0 {
		for i := len(e.agents) - e.cfg.FaultAgents; i < len(e.agents); i++ {
			ids = append(ids, i)
		}
	}
	if e.cfg.FaultStep > 0 && e.tick < e.cfg.FaultStep {
		e.tick = e.cfg.FaultStep
	}
	e.faultTick = e.tick
	for _, id := range ids {
		a := &e.agents[id]
		a.Status = StatusFailed
		a.FailedAt = e.faultTick
		e.record(EventFaultInjected, id)
	}
	e.faultInjected = true
	e.stableTicks = 0
	return nil
}

// Repair clears failed status on one agent. No-op unless the agent is
// currently failed.
func (e *Engine) Repair(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id < 0 || id >= len(e.agents) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	a := &e.agents[id]
	if a.Status != StatusFailed {
		return nil
	}
	a.Status = StatusHealthy
	a.FailedAt = -1
	e.record(EventRepair, id)
	return nil
}

// DrainEvents returns all events recorded since the last drain.
func (e *Engine) DrainEvents() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	evs := e.events
	e.events = nil
	return evs
}

func (e *Engine) record(typ string, agentID int) {
	e.events = append(e.events, Event{Tick: e.tick, Type: typ, AgentID: agentID})
}

// Step advances exactly one tick. Each agent's next state is derived from
// the previous tick's full agent array so update order cannot bias results.
func (e *Engine) Step() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepLocked()
}

func (e *Engine) stepLocked() {
	if !e.faultInjected && e.cfg.FaultStep > 0 && e.tick >= e.cfg.FaultStep {
		// scheduled fault fires on its own once the clock reaches it
		_ = e.injectLocked(nil)
	}

	prev := e.agents
	next := make([]Agent, len(prev))
	for i := range prev {
		next[i] = prev[i].clone()
	}

	// Redistribution writes to neighbors, so deltas accumulate separately
	// and apply after the per-agent pass.
	powerDelta := make([]float64, len(prev))

	for i := range prev {
		a := &next[i]
		p := prev[i]
		if p.Status == StatusFailed {
			if e.withinRecovery(p) {
				e.updateFailed(a)
				continue
			}
			// recovery window elapsed: rejoin the healthy population
			a.Status = StatusHealthy
			a.FailedAt = -1
			e.record(EventRecovered, a.ID)
			p = *a
		}
		switch {
		case e.cfg.Mode == ModeThermal:
			e.updateThermal(a, p, powerDelta)
		case e.compensatingFor(i, prev):
			e.updateCompensating(a)
		default:
			e.updateHealthy(a)
		}
	}

	for i, d := range powerDelta {
		if d != 0 {
			next[i].Power = clamp(next[i].Power+d, e.cfg.Power.Min, e.cfg.Power.Max)
		}
	}

	if e.cfg.FailureRate > 0 && e.rng.Float64() < e.cfg.FailureRate {
		e.failSpontaneously(next)
	}

	e.agents = next
	e.tick++
	if e.cfg.MaxTicks > 0 && e.tick >= e.cfg.MaxTicks {
		e.tick = 0
	}

	stable := true
	for i := range next {
		if next[i].Status == StatusFailed {
			stable = false
			break
		}
	}
	if stable {
		e.stableTicks++
	} else {
		e.stableTicks = 0
	}
}

func (e *Engine) withinRecovery(a Agent) bool {
	return a.FailedAt >= 0 && e.tick-a.FailedAt <= e.cfg.RecoveryWindow
}

// updateFailed heats a dead zone monotonically toward the max bound with no
// cooling effort at all.
func (e *Engine) updateFailed(a *Agent) {
	a.Temperature = clamp(a.Temperature+(e.cfg.Temperature.Max-a.Temperature)*e.cfg.FaultHeatGain,
		e.cfg.Temperature.Min, e.cfg.Temperature.Max)
	a.FanSpeed = e.cfg.Fan.Min
	a.Power = e.cfg.Power.Min
	a.Status = StatusFailed
}

// compensatingFor reports whether agent i sits close enough (by index
// distance) to a recently failed agent to absorb its load.
func (e *Engine) compensatingFor(i int, prev []Agent) bool {
	for j := range prev {
		if prev[j].Status != StatusFailed || prev[j].FailedAt < 0 {
			continue
		}
		if e.tick-prev[j].FailedAt > e.cfg.Compensation.Window {
			continue
		}
		if indexDistance(e.cfg.Topology, i, j, len(prev)) <= e.cfg.Compensation.Radius {
			return true
		}
	}
	return false
}

func (e *Engine) updateCompensating(a *Agent) {
	comp := e.cfg.Compensation
	a.Status = StatusCompensating
	a.FanSpeed = clamp(a.FanSpeed+(comp.FanTarget-a.FanSpeed)*comp.PullRate+e.uniform(e.cfg.Fan.Jitter),
		e.cfg.Fan.Min, e.cfg.Fan.Max)
	a.Power = clamp(a.Power+(comp.PowerTarget-a.Power)*comp.PullRate+e.uniform(e.cfg.Power.Jitter),
		e.cfg.Power.Min, e.cfg.Power.Max)
	tempTarget := e.cfg.Temperature.Nominal - comp.TempOffset
	a.Temperature = clamp(a.Temperature+(tempTarget-a.Temperature)*comp.PullRate+e.uniform(e.cfg.Temperature.Jitter),
		e.cfg.Temperature.Min, e.cfg.Temperature.Max)
	a.Load = clamp(a.Load+e.uniform(e.cfg.Load.Jitter), e.cfg.Load.Min, e.cfg.Load.Max)
}

func (e *Engine) updateHealthy(a *Agent) {
	// jitter tightens the longer the swarm has been failure-free
	factor := 1 / (1 + e.cfg.TightenRate*float64(e.stableTicks))
	drift := func(v float64, r Range) float64 {
		return clamp(v+(r.Nominal-v)*e.cfg.SettleRate+e.uniform(r.Jitter*factor), r.Min, r.Max)
	}
	a.Temperature = drift(a.Temperature, e.cfg.Temperature)
	a.FanSpeed = drift(a.FanSpeed, e.cfg.Fan)
	a.Power = drift(a.Power, e.cfg.Power)
	a.Load = drift(a.Load, e.cfg.Load)
	a.Status = StatusHealthy
	if a.Temperature > e.cfg.WarningTemp {
		a.Status = StatusWarning
	}
}

// updateThermal evolves temperature from the heat/cool balance and heals hot
// agents by shifting power onto their neighbors.
func (e *Engine) updateThermal(a *Agent, p Agent, powerDelta []float64) {
	t := e.cfg.Thermal
	heat := p.Load * t.HeatGain
	cool := p.Power * t.CoolingGain
	a.Temperature = clamp(p.Temperature+t.HeatCoeff*heat-t.CoolCoeff*cool+e.uniform(e.cfg.Temperature.Jitter),
		e.cfg.Temperature.Min, e.cfg.Temperature.Max)
	a.Load = clamp(p.Load+e.uniform(e.cfg.Load.Jitter), e.cfg.Load.Min, e.cfg.Load.Max)

	// fan tracks the power duty fraction
	duty := 0.0
	if span := e.cfg.Power.Max - e.cfg.Power.Min; span > 0 {
		duty = (p.Power - e.cfg.Power.Min) / span
	}
	fanTarget := e.cfg.Fan.Min + duty*(e.cfg.Fan.Max-e.cfg.Fan.Min)
	a.FanSpeed = clamp(p.FanSpeed+(fanTarget-p.FanSpeed)*e.cfg.Compensation.PullRate+e.uniform(e.cfg.Fan.Jitter),
		e.cfg.Fan.Min, e.cfg.Fan.Max)

	switch {
	case a.Temperature > t.HotThreshold:
		// self-healing action: shed power onto the neighbors, once per tick
		a.Status = StatusWarning
		powerDelta[a.ID] -= t.RedistributeStep
		for _, nb := range a.Neighbors {
			powerDelta[nb] += t.RedistributeStep
		}
		e.record(EventRedistribution, a.ID)
	case p.Power > e.cfg.Power.Nominal+t.SettleStep:
		// cooled down but still carrying shifted power; settle back
		a.Status = StatusCooling
		a.Power = clamp(p.Power-t.SettleStep, e.cfg.Power.Min, e.cfg.Power.Max)
	default:
		a.Status = StatusHealthy
	}
}

// failSpontaneously forces one random agent into failed status, slashes its
// power, and boosts its neighbors once.
func (e *Engine) failSpontaneously(next []Agent) {
	v := e.rng.Intn(len(next))
	a := &next[v]
	a.Status = StatusFailed
	a.FailedAt = e.tick
	a.Power = clamp(a.Power*e.cfg.SlashFactor, e.cfg.Power.Min, e.cfg.Power.Max)
	for _, nb := range a.Neighbors {
		next[nb].Power = clamp(next[nb].Power+e.cfg.BoostStep, e.cfg.Power.Min, e.cfg.Power.Max)
	}
	e.record(EventSpontaneousFailure, v)
}
