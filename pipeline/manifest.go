package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Version identifies the tool build recorded in manifests.
const Version = "0.3.0"

// Stage outcome recorded in manifests and stage reports.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Manifest is the provenance record of one pipeline command on one
// sample: what ran, on which inputs, what it produced and how it ended.
type Manifest struct {
	Command   string         `json:"command"`
	SampleID  string         `json:"sample_id"`
	Version   string         `json:"tool_version"`
	CreatedAt time.Time      `json:"created_at"`
	Inputs    []string       `json:"inputs"`
	Outputs   []string       `json:"outputs"`
	Meta      map[string]any `json:"metadata,omitempty"`
	Status    string         `json:"status"`
}

// NewManifest starts a manifest for a command on a sample.
func NewManifest(command, sampleID string) *Manifest {
	return &Manifest{
		Command:   command,
		SampleID:  sampleID,
		Version:   Version,
		CreatedAt: time.Now().UTC(),
		Meta:      map[string]any{},
		Status:    StatusSuccess,
	}
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %q: %w", path, err)
	}
	return &m, nil
}
