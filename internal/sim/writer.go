package sim

import "swarmcool-sim/internal/telemetry"

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.AgentRow) error
}

// StateWriter handles per-tick aggregate snapshot rows.
type StateWriter interface {
	WriteState(telemetry.StateRow) error
}

// EventWriter handles discrete engine events.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// Optional: writers can also support batch mode.
type batchWriter interface {
	WriteBatch([]telemetry.AgentRow) error
}

// Optional: event writers may support batch mode.
type batchEventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}
