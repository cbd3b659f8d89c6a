package swarm

// Snapshot is the per-tick read model consumed by presentation layers. It is
// recomputed from the live population on every call, never patched
// incrementally, so it can never drift from agent state.
type Snapshot struct {
	Tick          int  `json:"tick"`
	Running       bool `json:"running"`
	FaultInjected bool `json:"fault_injected"`

	Phase            Phase  `json:"phase"`
	PhaseDescription string `json:"phase_description"`

	AverageTemperature  float64 `json:"average_temperature"`
	TemperatureVariance float64 `json:"temperature_variance"`
	AveragePower        float64 `json:"average_power"`
	TotalLoad           float64 `json:"total_load"`

	// RecoveryTime is the tick count since the fault while still inside the
	// recovery window, zero outside it.
	RecoveryTime int `json:"recovery_time"`
	// Efficiency is the scripted per-phase score, not a measurement.
	Efficiency float64 `json:"efficiency"`

	Agents []Agent `json:"agents"`
}

// Snapshot returns the current simulation state. The returned agents are
// deep copies; callers may not reach the engine's own records through it.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	agents := make([]Agent, len(e.agents))
	for i := range e.agents {
		agents[i] = e.agents[i].clone()
	}

	var sumTemp, sumPower, totalLoad float64
	for i := range agents {
		sumTemp += agents[i].Temperature
		sumPower += agents[i].Power
		totalLoad += agents[i].Load
	}
	n := float64(len(agents))
	avgTemp := sumTemp / n
	var variance float64
	for i := range agents {
		d := agents[i].Temperature - avgTemp
		variance += d * d
	}
	variance /= n // population variance, divisor = agent count

	phase := e.phaseAt(e.tick)

	return Snapshot{
		Tick:                e.tick,
		Running:             e.running,
		FaultInjected:       e.faultInjected,
		Phase:               phase,
		PhaseDescription:    phaseDescriptions[phase],
		AverageTemperature:  avgTemp,
		TemperatureVariance: variance,
		AveragePower:        sumPower / n,
		TotalLoad:           totalLoad,
		RecoveryTime:        e.recoveryTimeAt(e.tick),
		Efficiency:          e.efficiencyAt(phase),
		Agents:              agents,
	}
}

var phaseDescriptions = map[Phase]string{
	PhaseStable:        "All agents nominal",
	PhaseFaultDetected: "Fault detected in the swarm",
	PhaseSelfHealing:   "Neighbors compensating for failed agents",
	PhaseStabilized:    "Swarm stabilized after recovery",
}

// effectiveFaultTick is the tick the narrative pivots on: the configured
// fault step when one is scheduled, otherwise the latched manual fault tick.
func (e *Engine) effectiveFaultTick() (int, bool) {
	if e.cfg.FaultStep > 0 {
		return e.cfg.FaultStep, true
	}
	if e.faultInjected {
		return e.faultTick, true
	}
	return 0, false
}

func (e *Engine) phaseAt(tick int) Phase {
	ft, ok := e.effectiveFaultTick()
	if !ok || tick < ft {
		return PhaseStable
	}
	elapsed := tick - ft
	switch {
	case elapsed < e.cfg.DetectWindow:
		return PhaseFaultDetected
	case elapsed < e.cfg.HealWindow:
		return PhaseSelfHealing
	default:
		return PhaseStabilized
	}
}

func (e *Engine) recoveryTimeAt(tick int) int {
	if !e.faultInjected {
		return 0
	}
	elapsed := tick - e.faultTick
	if elapsed <= 0 || elapsed > e.cfg.RecoveryWindow {
		return 0
	}
	return elapsed
}

func (e *Engine) efficiencyAt(phase Phase) float64 {
	switch phase {
	case PhaseFaultDetected:
		return e.cfg.Efficiency.Detected
	case PhaseSelfHealing:
		return e.cfg.Efficiency.Healing
	case PhaseStabilized:
		return e.cfg.Efficiency.Stabilized
	default:
		return e.cfg.Efficiency.Stable
	}
}
