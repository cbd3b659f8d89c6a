// Data model for the cooling swarm: agents, status, topology, phases.
package swarm

import "errors"

// Status describes an agent's current operating condition. It is computed
// once per tick by the update rule and is the single source of truth;
// consumers must never re-derive it from readings.
type Status string

const (
	StatusHealthy      Status = "healthy"
	StatusFailed       Status = "failed"
	StatusCompensating Status = "compensating"
	StatusCooling      Status = "cooling"
	StatusWarning      Status = "warning"
)

// Topology is the fixed neighbor relation between agents.
type Topology string

const (
	TopologyRing Topology = "ring"
	TopologyLine Topology = "line"
)

// Mode selects the update rule set.
type Mode string

const (
	// ModeWindowed drives compensation from index-distance to failed agents
	// inside bounded tick windows.
	ModeWindowed Mode = "windowed"
	// ModeThermal evolves temperature from a heat/cool balance and heals by
	// redistributing power around hot agents (ring variant).
	ModeThermal Mode = "thermal"
)

// Phase is a coarse narrative label derived from tick distance to the fault
// tick. Display only.
type Phase string

const (
	PhaseStable        Phase = "Stable"
	PhaseFaultDetected Phase = "FaultDetected"
	PhaseSelfHealing   Phase = "SelfHealing"
	PhaseStabilized    Phase = "Stabilized"
)

var (
	// ErrInvalidConfig is returned when an engine cannot be constructed.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrNotFound is returned for commands referencing an unknown agent id.
	ErrNotFound = errors.New("agent not found")
)

// Agent is one simulated cooling zone.
type Agent struct {
	ID          int     `json:"id"`
	Temperature float64 `json:"temperature"`
	FanSpeed    float64 `json:"fan_speed"`
	Power       float64 `json:"power"`
	Load        float64 `json:"load"`
	Status      Status  `json:"status"`
	Neighbors   []int   `json:"neighbors"`
	// FailedAt is the tick at which the agent last entered failed status,
	// or -1 while it has never failed since the last reset/repair.
	FailedAt int `json:"failed_at"`
}

func (a *Agent) clone() Agent {
	cp := *a
	cp.Neighbors = append([]int(nil), a.Neighbors...)
	return cp
}

// neighborIDs builds the neighbor list for agent i in a population of n.
// Ring wraps around, line stops at the ends. Self-links and duplicates from
// degenerate populations (n <= 2) are dropped.
func neighborIDs(topology Topology, i, n int) []int {
	var candidates []int
	switch topology {
	case TopologyRing:
		candidates = []int{(i - 1 + n) % n, (i + 1) % n}
	case TopologyLine:
		if i > 0 {
			candidates = append(candidates, i-1)
		}
		if i < n-1 {
			candidates = append(candidates, i+1)
		}
	}
	var out []int
	for _, c := range candidates {
		if c == i {
			continue
		}
		dup := false
		for _, o := range out {
			if o == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// indexDistance is the topological distance between agent indices i and j.
func indexDistance(topology Topology, i, j, n int) int {
	d := i - j
	if d < 0 {
		d = -d
	}
	if topology == TopologyRing && n-d < d {
		d = n - d
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
