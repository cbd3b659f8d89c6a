// ColorStdoutWriter prints human-friendly, colorized telemetry to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"swarmcool-sim/internal/swarm"
	"swarmcool-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints rows using ANSI colors, with a one-time
// configuration overview before the first row.
type ColorStdoutWriter struct {
	cfg       swarm.Config
	clusterID string
	out       io.Writer
	once      sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg swarm.Config, clusterID string) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, clusterID: clusterID, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	fmt.Fprintln(w.out, "Swarm Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Cluster:\t%s\n", w.clusterID)
	fmt.Fprintf(tw, "Agents:\t%d\n", w.cfg.AgentCount)
	fmt.Fprintf(tw, "Topology:\t%s\n", w.cfg.Topology)
	fmt.Fprintf(tw, "Mode:\t%s\n", w.cfg.Mode)
	fmt.Fprintf(tw, "Fault Step:\t%d\n", w.cfg.FaultStep)
	fmt.Fprintf(tw, "Failure Rate:\t%.3f\n", w.cfg.FailureRate)
	fmt.Fprintf(tw, "Recovery Window:\t%d\n", w.cfg.RecoveryWindow)
	fmt.Fprintf(tw, "Warning Temp:\t%.1f\n", w.cfg.WarningTemp)
	tw.Flush()
	fmt.Fprintln(w.out)
}

func statusColor(status string) string {
	switch swarm.Status(status) {
	case swarm.StatusFailed:
		return colorRed
	case swarm.StatusCompensating:
		return colorMagenta
	case swarm.StatusWarning:
		return colorYellow
	case swarm.StatusCooling:
		return colorCyan
	default:
		return colorGreen
	}
}

// Write outputs a single agent row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.AgentRow) error {
	w.once.Do(w.printOverview)

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%scluster=%s%s ", colorBlue, row.ClusterID, colorReset)
	fmt.Fprintf(w.out, "%sagent=%d%s ", colorWhite, row.AgentID, colorReset)
	fmt.Fprintf(w.out, "%stemp=%.1f%s ", colorYellow, row.Temperature, colorReset)
	fmt.Fprintf(w.out, "%sfan=%.1f%s ", colorCyan, row.FanSpeed, colorReset)
	fmt.Fprintf(w.out, "%spower=%.1f%s ", colorMagenta, row.Power, colorReset)
	fmt.Fprintf(w.out, "%sload=%.2f%s ", colorGreen, row.Load, colorReset)
	fmt.Fprintf(w.out, "%sstatus=%s%s", statusColor(row.Status), row.Status, colorReset)
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple agent rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.AgentRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteState prints aggregate swarm metrics to STDOUT.
func (w *ColorStdoutWriter) WriteState(row telemetry.StateRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sSTATE%s tick=%d phase=%s avg_temp=%.2f variance=%.3f avg_power=%.1f load=%.2f eff=%.2f\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Tick, row.Phase,
		row.AverageTemperature, row.TemperatureVariance,
		row.AveragePower, row.TotalLoad, row.Efficiency)
	return nil
}

// WriteEvent prints an engine event to STDOUT.
func (w *ColorStdoutWriter) WriteEvent(row telemetry.EventRow) error {
	w.once.Do(w.printOverview)
	fmt.Fprintf(w.out, "%s[%s]%s %sEVENT%s type=%s agent=%d tick=%d\n",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, row.EventType, row.AgentID, row.Tick)
	return nil
}

// WriteEvents prints multiple engine events.
func (w *ColorStdoutWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		_ = w.WriteEvent(r)
	}
	return nil
}
