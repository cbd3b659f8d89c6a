package telemetry

import (
	"math/rand"
	"testing"
	"time"

	"swarmcool-sim/internal/swarm"
)

func testSnapshot(t *testing.T) swarm.Snapshot {
	t.Helper()
	cfg := swarm.DefaultConfig()
	cfg.AgentCount = 3
	cfg.FaultStep = 0
	eng, err := swarm.NewEngine(cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng.Snapshot()
}

func TestAgentRowsFromSnapshot(t *testing.T) {
	snap := testSnapshot(t)
	ts := time.Unix(100, 0).UTC()
	rows := AgentRowsFromSnapshot("c1", "r1", snap, ts)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	for i, row := range rows {
		if row.AgentID != snap.Agents[i].ID {
			t.Errorf("row %d agent id = %d", i, row.AgentID)
		}
		if row.ClusterID != "c1" || row.RunID != "r1" || !row.Timestamp.Equal(ts) {
			t.Errorf("row %d identity not stamped: %+v", i, row)
		}
		if row.Temperature != snap.Agents[i].Temperature {
			t.Errorf("row %d temperature mismatch", i)
		}
	}
}

func TestStateRowFromSnapshot(t *testing.T) {
	snap := testSnapshot(t)
	row := StateRowFromSnapshot("c1", "r1", snap, time.Unix(100, 0).UTC())
	if row.Tick != snap.Tick || row.Phase != string(snap.Phase) {
		t.Errorf("state row mismatch: %+v", row)
	}
	if row.AverageTemperature != snap.AverageTemperature {
		t.Error("average temperature not carried over")
	}
}

func TestEventRowsFromEvents(t *testing.T) {
	events := []swarm.Event{
		{Tick: 50, Type: swarm.EventFaultInjected, AgentID: 2},
		{Tick: 51, Type: swarm.EventRepair, AgentID: 2},
	}
	rows := EventRowsFromEvents("c1", "r1", events, time.Unix(100, 0).UTC())
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].EventType != swarm.EventFaultInjected || rows[0].Tick != 50 {
		t.Errorf("event row mismatch: %+v", rows[0])
	}
}

func TestTableNameDefaults(t *testing.T) {
	if AgentTableName == "" || StateTableName == "" || EventTableName == "" {
		t.Fatal("table names must have defaults")
	}
	var a AgentRow
	if a.TableName() != AgentTableName {
		t.Errorf("agent table name = %q", a.TableName())
	}
	var s StateRow
	if s.TableName() != StateTableName {
		t.Errorf("state table name = %q", s.TableName())
	}
}
