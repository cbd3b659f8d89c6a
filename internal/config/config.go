// YAML config loader with CUE schema validation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"swarmcool-sim/internal/swarm"
)

// Duration wraps time.Duration so YAML can carry values like "500ms".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse tick_interval: %w", err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// SimulationConfig is the root configuration: run identity, scheduling, and
// the engine parameters.
type SimulationConfig struct {
	ClusterID    string       `yaml:"cluster_id"`
	TickInterval Duration     `yaml:"tick_interval"`
	AdminAddr    string       `yaml:"admin_addr"`
	Swarm        swarm.Config `yaml:"swarm"`
}

// Load reads a YAML config, validates it against the CUE schema when a
// schema path is given, and fills defaults for omitted scheduling fields.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *SimulationConfig) applyDefaults() {
	if c.ClusterID == "" {
		c.ClusterID = "cooling-demo"
	}
	if c.TickInterval == 0 {
		c.TickInterval = Duration(500 * time.Millisecond)
	}
	if c.AdminAddr == "" {
		c.AdminAddr = ":8080"
	}
}

// Preset returns a built-in configuration matching one of the shipped
// scenario files: "prototype" (small windowed swarm) or "vision" (large
// thermal ring).
func Preset(name string) (*SimulationConfig, error) {
	cfg := &SimulationConfig{}
	switch name {
	case "prototype":
		cfg.Swarm = swarm.DefaultConfig()
	case "vision":
		sc := swarm.DefaultConfig()
		sc.AgentCount = 48
		sc.Mode = swarm.ModeThermal
		sc.Topology = swarm.TopologyRing
		sc.FaultStep = 120
		sc.FaultAgents = 3
		sc.FailureRate = 0.02
		sc.Power = swarm.Range{Nominal: 0.5, Min: 0, Max: 1, Spread: 0.1, Jitter: 0.02}
		sc.SlashFactor = 0.25
		sc.BoostStep = 0.12
		sc.Compensation.Radius = 3
		sc.Compensation.PowerTarget = 0.85
		sc.Thermal = swarm.ThermalParams{
			HeatGain:         1.0,
			CoolingGain:      1.0,
			HeatCoeff:        0.45,
			CoolCoeff:        0.4,
			HotThreshold:     62,
			RedistributeStep: 0.08,
			SettleStep:       0.02,
		}
		cfg.Swarm = sc
	default:
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	cfg.applyDefaults()
	return cfg, nil
}
