package sim

import (
	"context"
	"net"
	"strconv"

	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"swarmcool-sim/internal/telemetry"
)

// GreptimeDBWriter writes telemetry to GreptimeDB via the ingester client.
// Tables are created automatically on first write.
type GreptimeDBWriter struct {
	client *greptime.Client
}

// NewGreptimeDBWriter creates a new GreptimeDB writer. endpoint is host or
// host:port; the port defaults to the gRPC ingest port 4001.
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := splitEndpoint(endpoint)
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{client: client}, nil
}

func splitEndpoint(endpoint string) (string, int) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return endpoint, 4001
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 4001
	}
	return host, port
}

// Write inserts a single agent row.
func (w *GreptimeDBWriter) Write(row telemetry.AgentRow) error {
	return w.WriteBatch([]telemetry.AgentRow{row})
}

// WriteBatch inserts multiple agent rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.AgentRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := agentTable(rows)
	if err != nil {
		return err
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteState inserts an aggregate state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.StateRow) error {
	tbl, err := stateTable(row)
	if err != nil {
		return err
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

// WriteEvent inserts a single event row.
func (w *GreptimeDBWriter) WriteEvent(row telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{row})
}

// WriteEvents inserts multiple event rows.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := eventTable(rows)
	if err != nil {
		return err
	}
	_, err = w.client.Write(context.Background(), tbl)
	return err
}

func agentTable(rows []telemetry.AgentRow) (*table.Table, error) {
	tbl, err := table.New(telemetry.AgentTableName)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("cluster_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("agent_id", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("temperature", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("fan_speed", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("power", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("load", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("status", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, r.RunID, int64(r.AgentID),
			r.Temperature, r.FanSpeed, r.Power, r.Load, r.Status, r.Timestamp); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func stateTable(row telemetry.StateRow) (*table.Table, error) {
	tbl, err := table.New(telemetry.StateTableName)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("cluster_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("tick", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("phase", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("average_temperature", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("temperature_variance", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("average_power", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("total_load", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("recovery_time", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("efficiency", types.FLOAT); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("fault_injected", types.BOOLEAN); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	if err := tbl.AddRow(row.ClusterID, row.RunID, int64(row.Tick), row.Phase,
		row.AverageTemperature, row.TemperatureVariance, row.AveragePower,
		row.TotalLoad, int64(row.RecoveryTime), row.Efficiency,
		row.FaultInjected, row.Timestamp); err != nil {
		return nil, err
	}
	return tbl, nil
}

func eventTable(rows []telemetry.EventRow) (*table.Table, error) {
	tbl, err := table.New(telemetry.EventTableName)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("cluster_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddTagColumn("run_id", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("event_type", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("agent_id", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("tick", types.INT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, r.RunID, r.EventType,
			int64(r.AgentID), int64(r.Tick), r.Timestamp); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
