package sim

import "swarmcool-sim/internal/telemetry"

// MultiWriter fan-outs rows to multiple writers.
type MultiWriter struct {
	agentWriters []TelemetryWriter
	stateWriters []StateWriter
	eventWriters []EventWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(aws []TelemetryWriter, sws []StateWriter, ews []EventWriter) *MultiWriter {
	return &MultiWriter{agentWriters: aws, stateWriters: sws, eventWriters: ews}
}

// Write sends an agent row to all writers.
func (mw *MultiWriter) Write(row telemetry.AgentRow) error {
	for _, w := range mw.agentWriters {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple agent rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.AgentRow) error {
	for _, w := range mw.agentWriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteState sends a state row to all state writers.
func (mw *MultiWriter) WriteState(row telemetry.StateRow) error {
	for _, w := range mw.stateWriters {
		if err := w.WriteState(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent sends an event row to all event writers.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	for _, w := range mw.eventWriters {
		if err := w.WriteEvent(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvents sends multiple event rows to all event writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, w := range mw.eventWriters {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteEvent(r); err != nil {
				return err
			}
		}
	}
	return nil
}
