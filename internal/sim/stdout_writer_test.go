package sim

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"swarmcool-sim/internal/swarm"
	"swarmcool-sim/internal/telemetry"
)

func TestStdoutWriterJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &StdoutWriter{out: buf}
	row := telemetry.AgentRow{ClusterID: "c1", AgentID: 1, Timestamp: time.Unix(0, 0)}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
}

func TestColorStdoutWriterOverviewOnce(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &ColorStdoutWriter{cfg: swarm.DefaultConfig(), clusterID: "c1", out: buf}
	row := telemetry.AgentRow{ClusterID: "c1", AgentID: 1, Status: string(swarm.StatusHealthy), Timestamp: time.Unix(0, 0)}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Swarm Configuration:") {
		t.Fatalf("overview not printed: %q", output)
	}
	if !strings.Contains(output, "\x1b[") {
		t.Fatalf("expected color codes in output: %q", output)
	}

	buf.Reset()
	if err := w.Write(row); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if strings.Contains(buf.String(), "Swarm Configuration:") {
		t.Fatalf("overview printed more than once")
	}
}

func TestColorStdoutWriterStatusColors(t *testing.T) {
	if statusColor(string(swarm.StatusFailed)) != colorRed {
		t.Error("failed status should render red")
	}
	if statusColor(string(swarm.StatusHealthy)) != colorGreen {
		t.Error("healthy status should render green")
	}
}
