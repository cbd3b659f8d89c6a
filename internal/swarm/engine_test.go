package swarm

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func testEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := NewEngine(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero agents", func(c *Config) { c.AgentCount = 0 }},
		{"negative agents", func(c *Config) { c.AgentCount = -3 }},
		{"bad topology", func(c *Config) { c.Topology = "mesh" }},
		{"bad mode", func(c *Config) { c.Mode = "quantum" }},
		{"inverted bounds", func(c *Config) { c.Temperature.Min = 99; c.Temperature.Max = 10 }},
		{"failure rate above one", func(c *Config) { c.FailureRate = 1.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if _, err := NewEngine(cfg, nil); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestTopology_RingSymmetry(t *testing.T) {
	const n = 8
	e := testEngine(t, func(c *Config) { c.AgentCount = n; c.Topology = TopologyRing })
	for i, a := range e.Snapshot().Agents {
		want := []int{(i - 1 + n) % n, (i + 1) % n}
		if !reflect.DeepEqual(a.Neighbors, want) {
			t.Errorf("agent %d neighbors = %v, want %v", i, a.Neighbors, want)
		}
	}
	// membership must be symmetric
	agents := e.Snapshot().Agents
	for i, a := range agents {
		for _, nb := range a.Neighbors {
			if nb == i {
				t.Errorf("agent %d lists itself as neighbor", i)
			}
			back := false
			for _, rev := range agents[nb].Neighbors {
				if rev == i {
					back = true
				}
			}
			if !back {
				t.Errorf("agent %d -> %d not symmetric", i, nb)
			}
		}
	}
}

func TestTopology_LineEndpoints(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.AgentCount = 5; c.Topology = TopologyLine })
	agents := e.Snapshot().Agents
	if !reflect.DeepEqual(agents[0].Neighbors, []int{1}) {
		t.Errorf("first agent neighbors = %v", agents[0].Neighbors)
	}
	if !reflect.DeepEqual(agents[4].Neighbors, []int{3}) {
		t.Errorf("last agent neighbors = %v", agents[4].Neighbors)
	}
	if !reflect.DeepEqual(agents[2].Neighbors, []int{1, 3}) {
		t.Errorf("middle agent neighbors = %v", agents[2].Neighbors)
	}
}

func TestTopology_Degenerate(t *testing.T) {
	single := testEngine(t, func(c *Config) { c.AgentCount = 1; c.FaultAgents = 1 })
	if nbs := single.Snapshot().Agents[0].Neighbors; len(nbs) != 0 {
		t.Errorf("single agent should have no neighbors, got %v", nbs)
	}
	pair := testEngine(t, func(c *Config) { c.AgentCount = 2 })
	for i, a := range pair.Snapshot().Agents {
		if !reflect.DeepEqual(a.Neighbors, []int{1 - i}) {
			t.Errorf("agent %d neighbors = %v", i, a.Neighbors)
		}
	}
}

func assertBounds(t *testing.T, cfg Config, agents []Agent, tick int) {
	t.Helper()
	for _, a := range agents {
		if a.Temperature < cfg.Temperature.Min || a.Temperature > cfg.Temperature.Max {
			t.Fatalf("tick %d: agent %d temperature %.3f outside bounds", tick, a.ID, a.Temperature)
		}
		if a.FanSpeed < cfg.Fan.Min || a.FanSpeed > cfg.Fan.Max {
			t.Fatalf("tick %d: agent %d fan %.3f outside bounds", tick, a.ID, a.FanSpeed)
		}
		if a.Power < cfg.Power.Min || a.Power > cfg.Power.Max {
			t.Fatalf("tick %d: agent %d power %.3f outside bounds", tick, a.ID, a.Power)
		}
		if a.Load < cfg.Load.Min || a.Load > cfg.Load.Max {
			t.Fatalf("tick %d: agent %d load %.3f outside bounds", tick, a.ID, a.Load)
		}
	}
}

func TestStep_BoundsInvariant_Windowed(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.FailureRate = 0.3 })
	for i := 0; i < 500; i++ {
		e.Step()
		assertBounds(t, e.Config(), e.Snapshot().Agents, e.Tick())
	}
}

func TestStep_BoundsInvariant_Thermal(t *testing.T) {
	e := testEngine(t, func(c *Config) {
		c.Mode = ModeThermal
		c.FailureRate = 0.2
		c.Power = Range{Nominal: 0.5, Min: 0, Max: 1, Spread: 0.1, Jitter: 0.02}
		c.SlashFactor = 0.2
		c.BoostStep = 0.1
		c.Thermal.RedistributeStep = 0.08
		c.Thermal.SettleStep = 0.02
	})
	for i := 0; i < 500; i++ {
		e.Step()
		assertBounds(t, e.Config(), e.Snapshot().Agents, e.Tick())
	}
}

func TestInjectFault_Idempotent(t *testing.T) {
	e := testEngine(t, nil)
	if !e.CanInjectFault() {
		t.Fatal("expected CanInjectFault before injection")
	}
	if err := e.InjectFault(); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	first := e.Snapshot()
	if e.CanInjectFault() {
		t.Fatal("CanInjectFault must be false after injection")
	}
	if err := e.InjectFault(); err != nil {
		t.Fatalf("second InjectFault: %v", err)
	}
	second := e.Snapshot()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("second injection changed state")
	}
}

func TestInjectFault_FastForwardsClock(t *testing.T) {
	e := testEngine(t, nil) // fault_step 50
	if err := e.InjectFault(3); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	if e.Tick() != 50 {
		t.Fatalf("tick = %d, want 50", e.Tick())
	}
	snap := e.Snapshot()
	if snap.Agents[3].Status != StatusFailed || snap.Agents[3].FailedAt != 50 {
		t.Fatalf("unexpected target agent: %+v", snap.Agents[3])
	}
}

func TestInjectFault_DefaultsToTrailingAgents(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.FaultAgents = 2 })
	if err := e.InjectFault(); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	agents := e.Snapshot().Agents
	n := len(agents)
	if agents[n-1].Status != StatusFailed || agents[n-2].Status != StatusFailed {
		t.Fatalf("trailing agents not failed: %v %v", agents[n-2].Status, agents[n-1].Status)
	}
	if agents[n-3].Status == StatusFailed {
		t.Fatal("non-target agent failed")
	}
}

func TestInjectFault_UnknownAgent(t *testing.T) {
	e := testEngine(t, nil)
	if err := e.InjectFault(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if e.Snapshot().FaultInjected {
		t.Fatal("rejected injection must not set the latch")
	}
}

func TestRepair_UnknownAgent(t *testing.T) {
	e := testEngine(t, nil)
	if err := e.Repair(-1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepair_NoopOnHealthyAgent(t *testing.T) {
	e := testEngine(t, nil)
	before := e.Snapshot()
	if err := e.Repair(0); err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Fatal("repair of a healthy agent changed state")
	}
}

func TestFailedAgent_MonotonicHeating(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.FaultStep = 0 })
	if err := e.InjectFault(2); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	prev := e.Snapshot().Agents[2].Temperature
	for i := 0; i < 50; i++ {
		e.Step()
		a := e.Snapshot().Agents[2]
		if a.Status != StatusFailed {
			t.Fatalf("step %d: status = %v", i, a.Status)
		}
		if a.Temperature <= prev {
			t.Fatalf("step %d: temperature %.4f not above %.4f", i, a.Temperature, prev)
		}
		if a.FanSpeed != e.Config().Fan.Min || a.Power != e.Config().Power.Min {
			t.Fatalf("step %d: fan/power not forced to minimum: %+v", i, a)
		}
		prev = a.Temperature
	}
}

func TestFailedAgent_RecoversAfterWindow(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.FaultStep = 0; c.RecoveryWindow = 5 })
	if err := e.InjectFault(0); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	for i := 0; i < 7; i++ {
		e.Step()
	}
	a := e.Snapshot().Agents[0]
	if a.Status == StatusFailed {
		t.Fatalf("agent still failed after window: %+v", a)
	}
	found := false
	for _, ev := range e.DrainEvents() {
		if ev.Type == EventRecovered && ev.AgentID == 0 {
			found = true
		}
	}
	if !found {
		t.Fatal("no recovered event emitted")
	}
}

func TestRepair_ClearsStatus(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.FaultStep = 0 })
	if err := e.InjectFault(4); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	e.Step()
	if err := e.Repair(4); err != nil {
		t.Fatalf("Repair: %v", err)
	}
	a := e.Snapshot().Agents[4]
	if a.Status != StatusHealthy || a.FailedAt != -1 {
		t.Fatalf("repair did not clear status: %+v", a)
	}
	e.Step()
	a = e.Snapshot().Agents[4]
	if a.Status == StatusFailed {
		t.Fatal("heating branch still applied after repair")
	}
	if a.Power <= e.Config().Power.Min {
		t.Fatalf("power did not drift back after repair: %.3f", a.Power)
	}
}

func TestCompensation_NeighborsStepIn(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.FaultStep = 0; c.AgentCount = 6 })
	before := e.Snapshot().Agents
	if err := e.InjectFault(5); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	e.Step()
	agents := e.Snapshot().Agents
	for _, id := range []int{0, 4} { // ring neighbors of 5
		a := agents[id]
		if a.Status != StatusCompensating {
			t.Errorf("agent %d status = %v, want compensating", id, a.Status)
		}
		if a.FanSpeed <= before[id].FanSpeed {
			t.Errorf("agent %d fan %.3f did not rise above %.3f", id, a.FanSpeed, before[id].FanSpeed)
		}
		if a.Power <= before[id].Power {
			t.Errorf("agent %d power %.3f did not rise above %.3f", id, a.Power, before[id].Power)
		}
	}
	if agents[2].Status == StatusCompensating {
		t.Error("agent outside the radius is compensating")
	}
}

func TestCompensation_StopsAfterWindow(t *testing.T) {
	e := testEngine(t, func(c *Config) {
		c.FaultStep = 0
		c.AgentCount = 6
		c.Compensation.Window = 3
		c.RecoveryWindow = 100
	})
	if err := e.InjectFault(5); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	for i := 0; i < 6; i++ {
		e.Step()
	}
	agents := e.Snapshot().Agents
	for _, id := range []int{0, 4} {
		if agents[id].Status == StatusCompensating {
			t.Errorf("agent %d still compensating after window", id)
		}
	}
}

func TestThermal_RedistributionShedsPower(t *testing.T) {
	cfg := DefaultConfig().withDefaults()
	cfg.AgentCount = 4
	cfg.Mode = ModeThermal
	cfg.Power = Range{Nominal: 0.5, Min: 0, Max: 1, Spread: 0, Jitter: 0}
	cfg.Load = Range{Nominal: 0.5, Min: 0, Max: 1, Spread: 0, Jitter: 0}
	cfg.Temperature.Jitter = 0
	cfg.Thermal = ThermalParams{
		HeatGain: 1, CoolingGain: 1, HeatCoeff: 0.3, CoolCoeff: 0.3,
		HotThreshold: 60, RedistributeStep: 0.1, SettleStep: 0.02,
	}
	e, err := NewEngine(cfg, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	e.agents[1].Temperature = 80 // well above the threshold
	before := make([]Agent, len(e.agents))
	copy(before, e.agents)

	e.Step()

	agents := e.Snapshot().Agents
	if agents[1].Status != StatusWarning {
		t.Fatalf("hot agent status = %v, want warning", agents[1].Status)
	}
	if agents[1].Power >= before[1].Power {
		t.Fatalf("hot agent power %.3f did not drop below %.3f", agents[1].Power, before[1].Power)
	}
	for _, nb := range []int{0, 2} {
		if agents[nb].Power <= before[nb].Power {
			t.Errorf("neighbor %d power %.3f did not rise above %.3f", nb, agents[nb].Power, before[nb].Power)
		}
	}
	found := false
	for _, ev := range e.DrainEvents() {
		if ev.Type == EventRedistribution && ev.AgentID == 1 {
			found = true
		}
	}
	if !found {
		t.Fatal("no redistribution event emitted")
	}
}

func TestSpontaneousFailure(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.FailureRate = 1; c.FaultStep = 0 })
	e.Step()
	failed := 0
	for _, a := range e.Snapshot().Agents {
		if a.Status == StatusFailed {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("failed agents after one step = %d, want 1", failed)
	}
	events := e.DrainEvents()
	if len(events) != 1 || events[0].Type != EventSpontaneousFailure {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestReset_RestoresInvariants(t *testing.T) {
	e := testEngine(t, nil)
	e.Start()
	for i := 0; i < 80; i++ {
		e.Step()
	}
	if err := e.InjectFault(); err != nil {
		t.Fatalf("InjectFault: %v", err)
	}
	e.Reset()

	snap := e.Snapshot()
	if snap.Tick != 0 || snap.FaultInjected || snap.Running {
		t.Fatalf("reset left clock state behind: %+v", snap)
	}
	cfg := e.Config()
	for _, a := range snap.Agents {
		if a.Status != StatusHealthy || a.FailedAt != -1 {
			t.Fatalf("agent %d not healthy after reset: %+v", a.ID, a)
		}
		if d := a.Temperature - cfg.Temperature.Nominal; d > cfg.Temperature.Spread || d < -cfg.Temperature.Spread {
			t.Fatalf("agent %d temperature %.3f outside initial spread", a.ID, a.Temperature)
		}
	}
	if len(e.DrainEvents()) != 0 {
		t.Fatal("reset did not clear the event log")
	}
}

func TestMaxTicks_WrapsToZero(t *testing.T) {
	e := testEngine(t, func(c *Config) { c.MaxTicks = 10; c.FaultStep = 0 })
	for i := 0; i < 10; i++ {
		e.Step()
	}
	if e.Tick() != 0 {
		t.Fatalf("tick = %d, want wrap to 0", e.Tick())
	}
}

func TestStartStop(t *testing.T) {
	e := testEngine(t, nil)
	if e.Running() {
		t.Fatal("engine must not start running")
	}
	e.Start()
	if !e.Running() {
		t.Fatal("Start did not set running")
	}
	e.Stop()
	if e.Running() {
		t.Fatal("Stop did not clear running")
	}
}
