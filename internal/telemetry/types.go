// Telemetry row types shared by all writers.
package telemetry

import (
	"os"
	"time"

	"swarmcool-sim/internal/swarm"
)

// AgentRow is one per-agent reading for a single tick.
type AgentRow struct {
	ClusterID   string    `json:"cluster_id"` // TAG
	RunID       string    `json:"run_id"`     // TAG
	AgentID     int       `json:"agent_id"`   // TAG
	Temperature float64   `json:"temperature"`
	FanSpeed    float64   `json:"fan_speed"`
	Power       float64   `json:"power"`
	Load        float64   `json:"load"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"ts"` // TIME INDEX
}

// AgentTableName is the sink table for agent rows. Defaults to
// "cooling_telemetry" and can be overridden via SWARMCOOL_TABLE.
var AgentTableName = func() string {
	if env := os.Getenv("SWARMCOOL_TABLE"); env != "" {
		return env
	}
	return "cooling_telemetry"
}()

func (AgentRow) TableName() string {
	return AgentTableName
}

// StateRow captures the per-tick aggregate snapshot.
type StateRow struct {
	ClusterID           string    `json:"cluster_id"`
	RunID               string    `json:"run_id"`
	Tick                int       `json:"tick"`
	Phase               string    `json:"phase"`
	AverageTemperature  float64   `json:"average_temperature"`
	TemperatureVariance float64   `json:"temperature_variance"`
	AveragePower        float64   `json:"average_power"`
	TotalLoad           float64   `json:"total_load"`
	RecoveryTime        int       `json:"recovery_time"`
	Efficiency          float64   `json:"efficiency"`
	FaultInjected       bool      `json:"fault_injected"`
	Timestamp           time.Time `json:"ts"`
}

// StateTableName is the sink table for state rows. Defaults to
// "cooling_state" and can be overridden via SWARMCOOL_STATE_TABLE.
var StateTableName = func() string {
	if env := os.Getenv("SWARMCOOL_STATE_TABLE"); env != "" {
		return env
	}
	return "cooling_state"
}()

func (StateRow) TableName() string {
	return StateTableName
}

// EventTableName is the sink table for event rows. Defaults to
// "cooling_events" and can be overridden via SWARMCOOL_EVENT_TABLE.
var EventTableName = func() string {
	if env := os.Getenv("SWARMCOOL_EVENT_TABLE"); env != "" {
		return env
	}
	return "cooling_events"
}()

// EventRow is one discrete engine event (fault, repair, redistribution).
type EventRow struct {
	ClusterID string    `json:"cluster_id"`
	RunID     string    `json:"run_id"`
	EventType string    `json:"event_type"`
	AgentID   int       `json:"agent_id"`
	Tick      int       `json:"tick"`
	Timestamp time.Time `json:"ts"`
}

// AgentRowsFromSnapshot flattens a snapshot into one row per agent.
func AgentRowsFromSnapshot(clusterID, runID string, snap swarm.Snapshot, ts time.Time) []AgentRow {
	rows := make([]AgentRow, 0, len(snap.Agents))
	for _, a := range snap.Agents {
		rows = append(rows, AgentRow{
			ClusterID:   clusterID,
			RunID:       runID,
			AgentID:     a.ID,
			Temperature: a.Temperature,
			FanSpeed:    a.FanSpeed,
			Power:       a.Power,
			Load:        a.Load,
			Status:      string(a.Status),
			Timestamp:   ts,
		})
	}
	return rows
}

// StateRowFromSnapshot converts a snapshot's aggregates into a state row.
func StateRowFromSnapshot(clusterID, runID string, snap swarm.Snapshot, ts time.Time) StateRow {
	return StateRow{
		ClusterID:           clusterID,
		RunID:               runID,
		Tick:                snap.Tick,
		Phase:               string(snap.Phase),
		AverageTemperature:  snap.AverageTemperature,
		TemperatureVariance: snap.TemperatureVariance,
		AveragePower:        snap.AveragePower,
		TotalLoad:           snap.TotalLoad,
		RecoveryTime:        snap.RecoveryTime,
		Efficiency:          snap.Efficiency,
		FaultInjected:       snap.FaultInjected,
		Timestamp:           ts,
	}
}

// EventRowsFromEvents stamps engine events with identity and wall time.
func EventRowsFromEvents(clusterID, runID string, events []swarm.Event, ts time.Time) []EventRow {
	rows := make([]EventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, EventRow{
			ClusterID: clusterID,
			RunID:     runID,
			EventType: ev.Type,
			AgentID:   ev.AgentID,
			Tick:      ev.Tick,
			Timestamp: ts,
		})
	}
	return rows
}
