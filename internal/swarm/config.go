package swarm

import "fmt"

// Range bounds one agent reading. Spread is the half-width of the uniform
// draw around Nominal at creation/reset; Jitter is the per-tick random
// magnitude used by the update rule.
type Range struct {
	Nominal float64 `yaml:"nominal"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Spread  float64 `yaml:"spread"`
	Jitter  float64 `yaml:"jitter"`
}

func (r Range) validate(name string) error {
	if r.Min > r.Max {
		return fmt.Errorf("%w: %s min %.2f above max %.2f", ErrInvalidConfig, name, r.Min, r.Max)
	}
	if r.Nominal < r.Min || r.Nominal > r.Max {
		return fmt.Errorf("%w: %s nominal %.2f outside [%.2f, %.2f]", ErrInvalidConfig, name, r.Nominal, r.Min, r.Max)
	}
	if r.Spread < 0 || r.Jitter < 0 {
		return fmt.Errorf("%w: %s spread/jitter must be non-negative", ErrInvalidConfig, name)
	}
	return nil
}

// CompensationParams control how neighbors of a failed agent step in
// (windowed mode).
type CompensationParams struct {
	// Radius is the index-distance within which agents compensate.
	Radius int `yaml:"radius"`
	// Window is the tick span after a failure during which compensation runs.
	Window      int     `yaml:"window"`
	FanTarget   float64 `yaml:"fan_target"`
	PowerTarget float64 `yaml:"power_target"`
	// TempOffset pulls the compensating agent this far below nominal.
	TempOffset float64 `yaml:"temp_offset"`
	// PullRate is the per-tick fraction of the gap closed toward targets.
	PullRate float64 `yaml:"pull_rate"`
}

// ThermalParams drive the heat/cool balance rule set (thermal mode).
type ThermalParams struct {
	HeatGain    float64 `yaml:"heat_gain"`
	CoolingGain float64 `yaml:"cooling_gain"`
	HeatCoeff   float64 `yaml:"heat_coeff"`
	CoolCoeff   float64 `yaml:"cool_coeff"`
	// HotThreshold flips an agent to warning and triggers redistribution.
	HotThreshold     float64 `yaml:"hot_threshold"`
	RedistributeStep float64 `yaml:"redistribute_step"`
	// SettleStep nudges elevated power back toward nominal once the agent
	// has cooled below the threshold again.
	SettleStep float64 `yaml:"settle_step"`
}

// EfficiencyLevels are the scripted per-phase efficiency scores. The score is
// a step function of the phase, not a measured quantity.
type EfficiencyLevels struct {
	Stable     float64 `yaml:"stable"`
	Detected   float64 `yaml:"detected"`
	Healing    float64 `yaml:"healing"`
	Stabilized float64 `yaml:"stabilized"`
}

// Config is the full engine configuration surface. Every numeric constant of
// the update rule lives here so scenario presets stay configuration.
type Config struct {
	AgentCount int      `yaml:"agent_count"`
	Topology   Topology `yaml:"topology"`
	Mode       Mode     `yaml:"mode"`

	// FaultStep schedules an automatic fault at that tick; <= 0 disables it.
	FaultStep int `yaml:"fault_step"`
	// FaultAgents is how many trailing agents fail when no explicit target
	// is given.
	FaultAgents int `yaml:"fault_agents"`
	// FailureRate is the per-tick probability of one spontaneous failure.
	FailureRate float64 `yaml:"failure_rate"`
	// MaxTicks wraps the tick counter back to 0; <= 0 disables wrapping.
	MaxTicks int `yaml:"max_ticks"`

	// RecoveryWindow is how many ticks a failed agent keeps heating before
	// it falls back to the healthy branch.
	RecoveryWindow int `yaml:"recovery_window"`
	// DetectWindow and HealWindow bound the FaultDetected and SelfHealing
	// phases, counted from the fault tick.
	DetectWindow int `yaml:"detect_window"`
	HealWindow   int `yaml:"heal_window"`

	// FaultHeatGain is the per-tick fraction of the remaining headroom a
	// failed agent heats by, keeping the climb strictly monotonic below max.
	FaultHeatGain float64 `yaml:"fault_heat_gain"`
	// SlashFactor scales a spontaneously failed agent's power.
	SlashFactor float64 `yaml:"slash_factor"`
	// BoostStep is the one-shot power boost applied to a failed agent's
	// neighbors.
	BoostStep float64 `yaml:"boost_step"`
	// SettleRate pulls healthy readings toward nominal each tick.
	SettleRate float64 `yaml:"settle_rate"`
	// TightenRate shrinks healthy jitter the longer the swarm stays
	// failure-free.
	TightenRate float64 `yaml:"tighten_rate"`
	// WarningTemp is the soft ceiling above which a healthy agent is flagged
	// warning (windowed mode).
	WarningTemp float64 `yaml:"warning_temp"`

	Temperature Range `yaml:"temperature"`
	Fan         Range `yaml:"fan"`
	Power       Range `yaml:"power"`
	Load        Range `yaml:"load"`

	Compensation CompensationParams `yaml:"compensation"`
	Thermal      ThermalParams      `yaml:"thermal"`
	Efficiency   EfficiencyLevels   `yaml:"efficiency"`
}

// DefaultConfig is the small windowed swarm the prototype demo runs.
func DefaultConfig() Config {
	return Config{
		AgentCount:     12,
		Topology:       TopologyRing,
		Mode:           ModeWindowed,
		FaultStep:      50,
		FaultAgents:    1,
		FailureRate:    0,
		RecoveryWindow: 100,
		DetectWindow:   10,
		HealWindow:     50,
		FaultHeatGain:  0.03,
		SlashFactor:    0.2,
		BoostStep:      60,
		SettleRate:     0.05,
		TightenRate:    0.01,
		WarningTemp:    60,
		Temperature:    Range{Nominal: 45, Min: 18, Max: 90, Spread: 2, Jitter: 1.5},
		Fan:            Range{Nominal: 55, Min: 0, Max: 100, Spread: 10, Jitter: 4},
		Power:          Range{Nominal: 300, Min: 0, Max: 800, Spread: 50, Jitter: 12},
		Load:           Range{Nominal: 0.5, Min: 0, Max: 1, Spread: 0.1, Jitter: 0.04},
		Compensation: CompensationParams{
			Radius:      1,
			Window:      50,
			FanTarget:   85,
			PowerTarget: 520,
			TempOffset:  2,
			PullRate:    0.25,
		},
		Thermal: ThermalParams{
			HeatGain:         1.0,
			CoolingGain:      1.0,
			HeatCoeff:        0.6,
			CoolCoeff:        0.5,
			HotThreshold:     60,
			RedistributeStep: 40,
			SettleStep:       10,
		},
		Efficiency: EfficiencyLevels{Stable: 0.95, Detected: 0.6, Healing: 0.75, Stabilized: 0.92},
	}
}

// withDefaults fills unset fields from DefaultConfig so partial YAML presets
// stay short.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Topology == "" {
		c.Topology = def.Topology
	}
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.FaultAgents == 0 {
		c.FaultAgents = def.FaultAgents
	}
	if c.RecoveryWindow == 0 {
		c.RecoveryWindow = def.RecoveryWindow
	}
	if c.DetectWindow == 0 {
		c.DetectWindow = def.DetectWindow
	}
	if c.HealWindow == 0 {
		c.HealWindow = def.HealWindow
	}
	if c.FaultHeatGain == 0 {
		c.FaultHeatGain = def.FaultHeatGain
	}
	if c.SlashFactor == 0 {
		c.SlashFactor = def.SlashFactor
	}
	if c.SettleRate == 0 {
		c.SettleRate = def.SettleRate
	}
	if c.WarningTemp == 0 {
		c.WarningTemp = def.WarningTemp
	}
	if c.Temperature == (Range{}) {
		c.Temperature = def.Temperature
	}
	if c.Fan == (Range{}) {
		c.Fan = def.Fan
	}
	if c.Power == (Range{}) {
		c.Power = def.Power
	}
	if c.Load == (Range{}) {
		c.Load = def.Load
	}
	if c.Compensation == (CompensationParams{}) {
		c.Compensation = def.Compensation
	}
	if c.Thermal == (ThermalParams{}) {
		c.Thermal = def.Thermal
	}
	if c.Efficiency == (EfficiencyLevels{}) {
		c.Efficiency = def.Efficiency
	}
	return c
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.AgentCount < 1 {
		return fmt.Errorf("%w: agent_count must be >= 1, got %d", ErrInvalidConfig, c.AgentCount)
	}
	switch c.Topology {
	case TopologyRing, TopologyLine:
	default:
		return fmt.Errorf("%w: unknown topology %q", ErrInvalidConfig, c.Topology)
	}
	switch c.Mode {
	case ModeWindowed, ModeThermal:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("%w: failure_rate %.3f outside [0, 1]", ErrInvalidConfig, c.FailureRate)
	}
	if c.FaultHeatGain <= 0 || c.FaultHeatGain >= 1 {
		return fmt.Errorf("%w: fault_heat_gain %.3f outside (0, 1)", ErrInvalidConfig, c.FaultHeatGain)
	}
	if c.FaultAgents < 1 || c.FaultAgents > c.AgentCount {
		return fmt.Errorf("%w: fault_agents %d outside [1, %d]", ErrInvalidConfig, c.FaultAgents, c.AgentCount)
	}
	if c.RecoveryWindow < 0 || c.DetectWindow < 0 || c.HealWindow < 0 || c.Compensation.Window < 0 {
		return fmt.Errorf("%w: windows must be non-negative", ErrInvalidConfig)
	}
	for _, r := range []struct {
		name string
		r    Range
	}{
		{"temperature", c.Temperature},
		{"fan", c.Fan},
		{"power", c.Power},
		{"load", c.Load},
	} {
		if err := r.r.validate(r.name); err != nil {
			return err
		}
	}
	return nil
}
