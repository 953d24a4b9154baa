// Package scenario loads verification scenarios: a primary mission, the
// competing flights it is checked against, and the detector parameters to
// use.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/airspace-deconfliction/core"
	"github.com/signalsfoundry/airspace-deconfliction/model"
)

// ErrUnknownScenario is returned by Builtin for names it does not know.
var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario is a validated, ready-to-verify scenario.
type Scenario struct {
	Name           string
	Description    string
	SafetyBuffer   float64
	TimeResolution float64
	Primary        core.Mission
	Others         []core.Mission
}

// Detector returns detector parameters for the scenario, taking worker and
// chunk settings from base.
func (s *Scenario) Detector(base core.DetectorConfig) core.DetectorConfig {
	base.SafetyBuffer = s.SafetyBuffer
	base.TimeResolution = s.TimeResolution
	return base
}

// file shape; keep it unexported so it can evolve independently of Scenario.
type scenarioJSON struct {
	Name           string                    `json:"name"`
	Description    string                    `json:"description,omitempty"`
	SafetyBuffer   *float64                  `json:"safety_buffer,omitempty"`
	TimeResolution *float64                  `json:"time_resolution,omitempty"`
	Primary        model.MissionDefinition   `json:"primary"`
	Others         []model.MissionDefinition `json:"others"`
}

// Load reads a JSON scenario from r. Missing safety_buffer and
// time_resolution fall back to the detector defaults. Every mission is
// validated; the first invalid one aborts the load.
func Load(r io.Reader) (*Scenario, error) {
	var payload scenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("scenario: decode failed: %w", err)
	}
	return fromJSON(payload)
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Write encodes s in the format Load reads.
func Write(w io.Writer, s *Scenario) error {
	buffer, resolution := s.SafetyBuffer, s.TimeResolution
	payload := scenarioJSON{
		Name:           s.Name,
		Description:    s.Description,
		SafetyBuffer:   &buffer,
		TimeResolution: &resolution,
		Primary:        s.Primary.Definition(),
		Others:         make([]model.MissionDefinition, 0, len(s.Others)),
	}
	for _, o := range s.Others {
		payload.Others = append(payload.Others, o.Definition())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func fromJSON(payload scenarioJSON) (*Scenario, error) {
	s := &Scenario{
		Name:           payload.Name,
		Description:    payload.Description,
		SafetyBuffer:   core.DefaultSafetyBuffer,
		TimeResolution: core.DefaultTimeResolution,
	}
	if payload.SafetyBuffer != nil {
		s.SafetyBuffer = *payload.SafetyBuffer
	}
	if payload.TimeResolution != nil {
		s.TimeResolution = *payload.TimeResolution
	}
	if err := (core.DetectorConfig{SafetyBuffer: s.SafetyBuffer, TimeResolution: s.TimeResolution}).Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	primary, err := core.MissionFromDefinition(payload.Primary)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: primary: %w", s.Name, err)
	}
	s.Primary = primary

	s.Others = make([]core.Mission, 0, len(payload.Others))
	for i, def := range payload.Others {
		m, err := core.MissionFromDefinition(def)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: others[%d]: %w", s.Name, i, err)
		}
		s.Others = append(s.Others, m)
	}
	return s, nil
}
