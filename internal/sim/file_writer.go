package sim

import (
	"encoding/json"
	"os"

	"swarmcool-sim/internal/telemetry"
)

// FileWriter writes agent, state, and event rows to JSONL files.
type FileWriter struct {
	agentFile *os.File
	stateFile *os.File
	eventFile *os.File
	agentEnc  *json.Encoder
	stateEnc  *json.Encoder
	eventEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. statePath or eventPath may be empty to
// skip those logs.
func NewFileWriter(agentPath, statePath, eventPath string) (*FileWriter, error) {
	af, err := os.Create(agentPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{agentFile: af, agentEnc: json.NewEncoder(af)}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			af.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			if fw.stateFile != nil {
				fw.stateFile.Close()
			}
			af.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	return fw, nil
}

// Write logs a single agent row.
func (f *FileWriter) Write(row telemetry.AgentRow) error {
	return f.agentEnc.Encode(row)
}

// WriteBatch logs multiple agent rows.
func (f *FileWriter) WriteBatch(rows []telemetry.AgentRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteState logs an aggregate state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.StateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// WriteEvent logs a single event row, if enabled.
func (f *FileWriter) WriteEvent(row telemetry.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(row)
}

// WriteEvents logs multiple event rows.
func (f *FileWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, r := range rows {
		if err := f.WriteEvent(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.agentFile != nil {
		if e := f.agentFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.stateFile != nil {
		if e := f.stateFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.eventFile != nil {
		if e := f.eventFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
