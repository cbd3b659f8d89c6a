package main

import (
	"os"

	"golang.org/x/term"

	"swarmcool-sim/internal/sim"
	"swarmcool-sim/internal/swarm"
)

// newWriters sets up the agent, state, and event writers based on flags and
// env vars. It returns the writers and a cleanup function to close any
// resources. A non-nil tui replaces the stdout/DB base writers.
func newWriters(cfg swarm.Config, clusterID string, printOnly bool, logFile string, tui *sim.TUIWriter) (sim.TelemetryWriter, sim.StateWriter, sim.EventWriter, func(), error) {
	cleanup := func() {}

	var writer sim.TelemetryWriter
	var stateWriter sim.StateWriter
	var eventWriter sim.EventWriter
	if tui != nil {
		writer, stateWriter, eventWriter = tui, tui, tui
	} else {
		var err error
		writer, stateWriter, eventWriter, err = baseWriters(cfg, clusterID, printOnly)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	}
	if logFile == "" {
		return writer, stateWriter, eventWriter, cleanup, nil
	}

	fw, err := sim.NewFileWriter(logFile, logFile+".state", logFile+".events")
	if err != nil {
		return nil, nil, nil, nil, err
	}
	mw := sim.NewMultiWriter(
		[]sim.TelemetryWriter{writer, fw},
		[]sim.StateWriter{stateWriter, fw},
		[]sim.EventWriter{eventWriter, fw},
	)
	cleanup = func() { fw.Close() }
	return mw, mw, mw, cleanup, nil
}

// baseWriters chooses the underlying writers based on the printOnly flag and
// env vars: GreptimeDB when GREPTIMEDB_ENDPOINT is set, otherwise STDOUT
// (colorized on a terminal).
func baseWriters(cfg swarm.Config, clusterID string, printOnly bool) (sim.TelemetryWriter, sim.StateWriter, sim.EventWriter, error) {
	if printOnly || os.Getenv("GREPTIMEDB_ENDPOINT") == "" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			w := sim.NewColorStdoutWriter(cfg, clusterID)
			return w, w, w, nil
		}
		w := sim.NewStdoutWriter()
		return w, w, w, nil
	}

	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	w, err := sim.NewGreptimeDBWriter(endpoint, database)
	if err != nil {
		return nil, nil, nil, err
	}
	return w, w, w, nil
}

// newReplayWriter creates an agent-row writer without state or event streams.
func newReplayWriter(printOnly bool) (sim.TelemetryWriter, error) {
	w, _, _, err := baseWriters(swarm.DefaultConfig(), "replay", printOnly)
	return w, err
}
