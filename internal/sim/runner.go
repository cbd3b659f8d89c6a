package sim

import (
	"context"
	"time"

	"swarmcool-sim/internal/logging"
	"swarmcool-sim/internal/swarm"
	"swarmcool-sim/internal/telemetry"
)

// Runner drives the engine on a fixed interval and fans rows out to the
// configured writers. The engine decides whether a tick actually advances
// state; a stopped engine keeps its clock frozen while the runner idles.
type Runner struct {
	clusterID string
	runID     string

	engine *swarm.Engine

	writer      TelemetryWriter
	stateWriter StateWriter
	eventWriter EventWriter

	tickInterval time.Duration
	now          func() time.Time
}

// NewRunner wires an engine to its writers. stateWriter and eventWriter may
// be nil to skip those streams.
func NewRunner(clusterID, runID string, engine *swarm.Engine, writer TelemetryWriter, stateWriter StateWriter, eventWriter EventWriter, tickInterval time.Duration) *Runner {
	return &Runner{
		clusterID:    clusterID,
		runID:        runID,
		engine:       engine,
		writer:       writer,
		stateWriter:  stateWriter,
		eventWriter:  eventWriter,
		tickInterval: tickInterval,
		now:          time.Now,
	}
}

// Engine exposes the underlying engine for control surfaces (admin, TUI).
func (r *Runner) Engine() *swarm.Engine {
	return r.engine
}

// Run starts the simulation loop and stops when the context is done.
func (r *Runner) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting runner", "tick_interval", r.tickInterval, "run_id", r.runID)
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			log.Info("stopping runner")
			return
		}
	}
}

// tick advances the engine once and emits the resulting rows.
func (r *Runner) tick(ctx context.Context) {
	if !r.engine.Running() {
		return
	}
	r.engine.Step()
	r.Emit(ctx)
}

// Emit writes one full set of rows for the current engine state without
// advancing a tick.
func (r *Runner) Emit(ctx context.Context) {
	log := logging.FromContext(ctx)
	snap := r.engine.Snapshot()
	ts := r.now().UTC()

	batch := telemetry.AgentRowsFromSnapshot(r.clusterID, r.runID, snap, ts)

	// Batch support if writer implements WriteBatch
	if bw, ok := r.writer.(batchWriter); ok {
		if err := bw.WriteBatch(batch); err != nil {
			log.Error("batch write failed", "err", err)
		}
	} else {
		for _, row := range batch {
			if err := r.writer.Write(row); err != nil {
				log.Error("write failed", "agent_id", row.AgentID, "err", err)
			}
		}
	}

	if r.stateWriter != nil {
		if err := r.stateWriter.WriteState(telemetry.StateRowFromSnapshot(r.clusterID, r.runID, snap, ts)); err != nil {
			log.Error("state write failed", "err", err)
		}
	}

	events := r.engine.DrainEvents()
	if len(events) == 0 || r.eventWriter == nil {
		return
	}
	rows := telemetry.EventRowsFromEvents(r.clusterID, r.runID, events, ts)
	if bw, ok := r.eventWriter.(batchEventWriter); ok {
		if err := bw.WriteEvents(rows); err != nil {
			log.Error("event batch write failed", "err", err)
		}
	} else {
		for _, row := range rows {
			if err := r.eventWriter.WriteEvent(row); err != nil {
				log.Error("event write failed", "event_type", row.EventType, "err", err)
			}
		}
	}
}
